// Package service — authentication business logic.
//
// AuthService is the business logic layer for accounts. It sits between the
// HTTP handlers and the repository/auth utilities:
//
//	AuthHandler (HTTP) → AuthService (business rules) → UserRepository (DB)
//	                   ↘ TokenService (JWT)
//	                   ↘ PasswordService (bcrypt)
//	                   ↘ notify.Sink (reset links)
//
// KEY RESPONSIBILITIES:
//   - Register and log in with e-mail and password, issuing bearer tokens
//   - Resolve a bearer token back to a user (implements auth.Authenticator)
//   - Run the forgot-password / reset-password flow with single-use tokens
//   - Keep every error a client sees inside the apperror taxonomy
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/sakif/bookifyme/internal/apperror"
	"github.com/sakif/bookifyme/internal/auth"
	"github.com/sakif/bookifyme/internal/model"
	"github.com/sakif/bookifyme/internal/notify"
	"github.com/sakif/bookifyme/internal/repository"
)

// MinPasswordLength is counted in characters, not bytes.
const MinPasswordLength = 6

// DefaultResetTokenTTL is used when NewAuthService is given a zero TTL.
const DefaultResetTokenTTL = time.Hour

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// Client-facing messages. Login deliberately uses one message for an unknown
// e-mail and a wrong password.
const (
	msgRegisterRequired = "Name, email and password are required"
	msgLoginRequired    = "Email and password are required"
	msgInvalidEmail     = "Invalid email format"
	msgPasswordTooShort = "Password must be at least 6 characters long"
	msgPasswordTooLong  = "Password must be 72 bytes or fewer"
	msgEmailTaken       = "User with this email already exists"
	msgBadCredentials   = "Invalid email or password"
	msgBadToken         = "Invalid or expired token"
	msgEmailRequired    = "Email is required"
	msgResetRequired    = "Token and new password are required"
	msgBadResetToken    = "Invalid or expired reset token"
)

// AuthService handles the account business logic.
//
// DEPENDENCIES (injected via NewAuthService):
//   - users      repository.UserRepository  → read/write user records
//   - tokens     *auth.TokenService         → generate/validate JWTs
//   - passwords  *auth.PasswordService      → bcrypt hashing
//   - sink       notify.Sink                → delivers reset links
//   - logger     *slog.Logger               → structured logging
type AuthService struct {
	users     repository.UserRepository
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	sink      notify.Sink
	resetTTL  time.Duration
	logger    *slog.Logger
	now       func() time.Time

	dummyOnce sync.Once
	dummyHash string
}

// NewAuthService creates an AuthService with all required dependencies.
func NewAuthService(
	users repository.UserRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	sink notify.Sink,
	resetTTL time.Duration,
	logger *slog.Logger,
) *AuthService {
	if resetTTL <= 0 {
		resetTTL = DefaultResetTokenTTL
	}
	return &AuthService{
		users:     users,
		tokens:    tokens,
		passwords: passwords,
		sink:      sink,
		resetTTL:  resetTTL,
		logger:    logger,
		now:       time.Now,
	}
}

// AuthResult is returned by Register and Login.
// It bundles the public user record and the issued bearer token so the
// handler can respond in one step.
type AuthResult struct {
	User  *model.User `json:"user"`
	Token string      `json:"token"`
}

// NormalizeEmail applies NFKC, trims surrounding space and lower-cases, so
// that visually identical addresses map to one account.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(norm.NFKC.String(email)))
}

// checkPassword enforces the length rules shared by Register and
// ResetPassword.
func checkPassword(password string) error {
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return apperror.ValidationFailed("password", msgPasswordTooShort)
	}
	if len(password) > auth.MaxPasswordBytes {
		return apperror.ValidationFailed("password", msgPasswordTooLong)
	}
	return nil
}

// Register creates an account and logs it in.
//
// VALIDATION ORDER:
//  1. all three fields present
//  2. e-mail format (checked before the password, so a malformed address is
//     reported no matter what password came with it)
//  3. password length
//  4. e-mail not taken
func (s *AuthService) Register(ctx context.Context, name, email, password string) (*AuthResult, error) {
	name = strings.TrimSpace(name)
	email = NormalizeEmail(email)
	if name == "" || email == "" || password == "" {
		return nil, apperror.ValidationFailed("", msgRegisterRequired)
	}
	if !emailPattern.MatchString(email) {
		return nil, apperror.ValidationFailed("email", msgInvalidEmail)
	}
	if err := checkPassword(password); err != nil {
		return nil, err
	}

	// Fast path for the common duplicate. The UNIQUE index still decides
	// when two registrations race.
	if _, err := s.users.GetUserByEmail(ctx, email); err == nil {
		return nil, apperror.Conflict(msgEmailTaken)
	} else if !errors.Is(err, apperror.ErrNotFound) {
		return nil, fmt.Errorf("service/auth: checking email: %w", err)
	}

	hash, err := s.passwords.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("service/auth: hashing password: %w", err)
	}

	user := &model.User{Name: name, Email: email, PasswordHash: hash}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			return nil, apperror.Conflict(msgEmailTaken)
		}
		return nil, fmt.Errorf("service/auth: creating user: %w", err)
	}

	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		return nil, fmt.Errorf("service/auth: generating token for user %d: %w", user.ID, err)
	}

	s.logger.InfoContext(ctx, "user registered", slog.Int64("userID", user.ID))
	return &AuthResult{User: user, Token: token}, nil
}

// Login verifies credentials and issues a token.
//
// WHY HASH FOR UNKNOWN E-MAILS?
// Returning early for an unknown address would make that path measurably
// faster than a wrong password, which leaks which addresses are registered.
// A throwaway bcrypt comparison keeps both paths at the same cost.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, apperror.ValidationFailed("", msgLoginRequired)
	}

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, apperror.ErrNotFound) {
			return nil, fmt.Errorf("service/auth: loading user: %w", err)
		}
		_ = s.passwords.Verify(s.placeholderHash(), password)
		return nil, apperror.Unauthorized(msgBadCredentials)
	}

	if err := s.passwords.Verify(user.PasswordHash, password); err != nil {
		s.logger.InfoContext(ctx, "failed login", slog.Int64("userID", user.ID))
		return nil, apperror.Unauthorized(msgBadCredentials)
	}

	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		return nil, fmt.Errorf("service/auth: generating token for user %d: %w", user.ID, err)
	}
	return &AuthResult{User: user, Token: token}, nil
}

func (s *AuthService) placeholderHash() string {
	s.dummyOnce.Do(func() {
		h, err := s.passwords.Hash("placeholder-password")
		if err == nil {
			s.dummyHash = h
		}
	})
	return s.dummyHash
}

// Authenticate resolves a bearer token to its user. Every failure, including
// a deleted account, is reported as the same AuthError.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*model.User, error) {
	userID, err := s.tokens.Validate(token)
	if err != nil {
		return nil, apperror.Unauthorized(msgBadToken)
	}

	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.Unauthorized(msgBadToken)
		}
		return nil, fmt.Errorf("service/auth: loading user %d: %w", userID, err)
	}
	return user, nil
}

// RequestPasswordReset stores a fresh reset token for email and hands it to
// the sink. An unknown address is not an error, so callers cannot probe for
// accounts. Sink failures are logged only.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) error {
	email = NormalizeEmail(email)
	if email == "" {
		return apperror.ValidationFailed("email", msgEmailRequired)
	}

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			s.logger.DebugContext(ctx, "password reset for unknown email")
			return nil
		}
		return fmt.Errorf("service/auth: loading user: %w", err)
	}

	token, err := auth.NewResetToken()
	if err != nil {
		return fmt.Errorf("service/auth: generating reset token: %w", err)
	}
	expires := s.now().Add(s.resetTTL)
	if err := s.users.SetResetToken(ctx, user.ID, token, expires); err != nil {
		return fmt.Errorf("service/auth: storing reset token: %w", err)
	}

	if err := s.sink.SendPasswordReset(ctx, user.Email, token); err != nil {
		s.logger.ErrorContext(ctx, "password reset notification failed",
			slog.Int64("userID", user.ID),
			slog.String("error", err.Error()),
		)
	}
	return nil
}

// ResetPassword sets a new password using a reset token. The repository
// clears the token in the same statement that writes the hash, so a token
// works once.
func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword string) error {
	if token == "" || newPassword == "" {
		return apperror.ValidationFailed("", msgResetRequired)
	}
	if err := checkPassword(newPassword); err != nil {
		return err
	}

	user, err := s.users.GetUserByResetToken(ctx, token)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return apperror.Unauthorized(msgBadResetToken)
		}
		return fmt.Errorf("service/auth: loading reset token: %w", err)
	}
	now := s.now()
	if !user.ResetTokenValid(token, now) {
		return apperror.Unauthorized(msgBadResetToken)
	}

	hash, err := s.passwords.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("service/auth: hashing password: %w", err)
	}
	if err := s.users.ResetPassword(ctx, user.ID, token, hash, now); err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return apperror.Unauthorized(msgBadResetToken)
		}
		return fmt.Errorf("service/auth: resetting password: %w", err)
	}

	s.logger.InfoContext(ctx, "password reset", slog.Int64("userID", user.ID))
	return nil
}

// SweepExpiredResetTokens clears reset tokens that expired at or before now.
// It satisfies scheduler.TokenSweeper.
func (s *AuthService) SweepExpiredResetTokens(ctx context.Context, now time.Time) (int64, error) {
	n, err := s.users.ClearExpiredResetTokens(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("service/auth: sweeping reset tokens: %w", err)
	}
	return n, nil
}
