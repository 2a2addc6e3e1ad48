package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/sakif/bookifyme/internal/apperror"
	"github.com/sakif/bookifyme/internal/model"
)

const userColumns = `id, name, email, password_hash, created_at, reset_token, reset_token_expires`

// CreateUser inserts user and fills in its ID. A duplicate e-mail is
// apperror.ErrConflict.
//
// The caller is responsible for normalising the e-mail; the UNIQUE index
// compares bytes.
func (q *queries) CreateUser(ctx context.Context, user *model.User) error {
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}
	user.CreatedAt = timestamp(user.CreatedAt)

	res, err := q.ext.ExecContext(ctx,
		`INSERT INTO users (name, email, password_hash, created_at)
		 VALUES (?, ?, ?, ?)`,
		user.Name,
		user.Email,
		user.PasswordHash,
		user.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("User with this email already exists")
		}
		return fmt.Errorf("sqlite: creating user: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("sqlite: reading user id: %w", err)
	}
	user.ID = id
	return nil
}

func (q *queries) GetUserByID(ctx context.Context, id int64) (*model.User, error) {
	return q.getUser(ctx, "id = ?", id)
}

func (q *queries) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return q.getUser(ctx, "email = ?", email)
}

func (q *queries) GetUserByResetToken(ctx context.Context, token string) (*model.User, error) {
	return q.getUser(ctx, "reset_token = ?", token)
}

// getUser runs a single-row lookup. where is always a constant from this
// file, never user input.
func (q *queries) getUser(ctx context.Context, where string, arg any) (*model.User, error) {
	var u model.User
	err := sqlx.GetContext(ctx, q.ext, &u,
		`SELECT `+userColumns+` FROM users WHERE `+where, arg)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("User not found")
		}
		return nil, fmt.Errorf("sqlite: getting user (%s): %w", where, err)
	}
	return &u, nil
}

// SetResetToken stores a fresh reset token, replacing any previous one.
func (q *queries) SetResetToken(ctx context.Context, userID int64, token string, expires time.Time) error {
	res, err := q.ext.ExecContext(ctx,
		`UPDATE users SET reset_token = ?, reset_token_expires = ? WHERE id = ?`,
		token, timestamp(expires), userID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: setting reset token for user %d: %w", userID, err)
	}
	return affectedOne(res, "setting reset token", apperror.NotFound("User not found"))
}

// ResetPassword swaps the password hash and clears the token in one UPDATE.
// The WHERE clause re-checks the token and its expiry, so a token can be
// consumed at most once even under concurrent requests.
func (q *queries) ResetPassword(ctx context.Context, userID int64, token, passwordHash string, now time.Time) error {
	res, err := q.ext.ExecContext(ctx,
		`UPDATE users
		 SET password_hash = ?, reset_token = NULL, reset_token_expires = NULL
		 WHERE id = ? AND reset_token = ? AND reset_token_expires > ?`,
		passwordHash, userID, token, timestamp(now),
	)
	if err != nil {
		return fmt.Errorf("sqlite: resetting password for user %d: %w", userID, err)
	}
	return affectedOne(res, "resetting password", apperror.NotFound("Reset token not found"))
}

// ClearExpiredResetTokens nulls out reset tokens whose expiry is not after now.
func (q *queries) ClearExpiredResetTokens(ctx context.Context, now time.Time) (int64, error) {
	res, err := q.ext.ExecContext(ctx,
		`UPDATE users
		 SET reset_token = NULL, reset_token_expires = NULL
		 WHERE reset_token IS NOT NULL AND reset_token_expires <= ?`,
		timestamp(now),
	)
	if err != nil {
		return 0, fmt.Errorf("sqlite: clearing expired reset tokens: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sqlite: clearing expired reset tokens: %w", err)
	}
	return n, nil
}
