package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3" // registers the "sqlite3" dialect
	"github.com/jmoiron/sqlx"
	"github.com/sakif/bookifyme/internal/apperror"
	"github.com/sakif/bookifyme/internal/model"
	"github.com/sakif/bookifyme/internal/repository"
)

const dialectSQLite = "sqlite3"

const groupColumns = `g.id, g.name, g.description, g.created_by, g.created_at, g.is_public,
	(SELECT COUNT(*) FROM group_members m WHERE m.group_id = g.id) AS member_count`

var errGroupNotFound = apperror.NotFound("Group not found")

func (q *queries) GetGroup(ctx context.Context, id int64) (*model.ReadingGroup, error) {
	return q.getGroup(ctx, "g.id = ?", id)
}

func (q *queries) GetGroupByName(ctx context.Context, name string) (*model.ReadingGroup, error) {
	return q.getGroup(ctx, "g.name = ?", name)
}

func (q *queries) getGroup(ctx context.Context, where string, arg any) (*model.ReadingGroup, error) {
	var g model.ReadingGroup
	err := sqlx.GetContext(ctx, q.ext, &g,
		`SELECT `+groupColumns+` FROM reading_groups g WHERE `+where, arg)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errGroupNotFound
		}
		return nil, fmt.Errorf("sqlite: getting group (%s): %w", where, err)
	}
	return &g, nil
}

// InsertGroup creates a group and fills in its ID. A taken name is
// apperror.ErrConflict.
func (q *queries) InsertGroup(ctx context.Context, group *model.ReadingGroup) error {
	if group.CreatedAt.IsZero() {
		group.CreatedAt = time.Now()
	}
	group.CreatedAt = timestamp(group.CreatedAt)

	res, err := q.ext.ExecContext(ctx,
		`INSERT INTO reading_groups (name, description, created_by, created_at, is_public)
		 VALUES (?, ?, ?, ?, ?)`,
		group.Name,
		group.Description,
		group.CreatedBy,
		group.CreatedAt,
		group.IsPublic,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("Group name already exists")
		}
		return fmt.Errorf("sqlite: inserting group %q: %w", group.Name, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("sqlite: reading group id: %w", err)
	}
	group.ID = id
	return nil
}

// ListPublicGroups returns one page of public groups, newest first, plus the
// total number of matches.
//
// The query is assembled with goqu because the WHERE clause depends on
// whether a search term is present; Prepared(true) keeps every value as a
// bound parameter.
func (q *queries) ListPublicGroups(ctx context.Context, opts repository.GroupListOptions) ([]model.ReadingGroup, int64, error) {
	base := goqu.Dialect(dialectSQLite).
		From(goqu.T("reading_groups").As("g")).
		Where(goqu.I("g.is_public").Eq(true))

	if term := strings.TrimSpace(opts.Search); term != "" {
		base = base.Where(goqu.L(`LOWER(g.name) LIKE ? ESCAPE '\'`, likePattern(term)))
	}

	countSQL, countArgs, err := base.Select(goqu.COUNT(goqu.Star())).Prepared(true).ToSQL()
	if err != nil {
		return nil, 0, fmt.Errorf("sqlite: building group count query: %w", err)
	}
	var total int64
	if err := sqlx.GetContext(ctx, q.ext, &total, countSQL, countArgs...); err != nil {
		return nil, 0, fmt.Errorf("sqlite: counting groups: %w", err)
	}

	page := base.
		Select(
			goqu.I("g.id"),
			goqu.I("g.name"),
			goqu.I("g.description"),
			goqu.I("g.created_by"),
			goqu.I("g.created_at"),
			goqu.I("g.is_public"),
			goqu.L("(SELECT COUNT(*) FROM group_members m WHERE m.group_id = g.id)").As("member_count"),
		).
		Order(goqu.I("g.created_at").Desc(), goqu.I("g.id").Desc())
	if opts.Limit > 0 {
		page = page.Limit(uint(opts.Limit))
	}
	if opts.Offset > 0 {
		page = page.Offset(uint(opts.Offset))
	}

	listSQL, listArgs, err := page.Prepared(true).ToSQL()
	if err != nil {
		return nil, 0, fmt.Errorf("sqlite: building group list query: %w", err)
	}
	groups := []model.ReadingGroup{}
	if err := sqlx.SelectContext(ctx, q.ext, &groups, listSQL, listArgs...); err != nil {
		return nil, 0, fmt.Errorf("sqlite: listing groups: %w", err)
	}
	return groups, total, nil
}

// likePattern lower-cases term and escapes LIKE wildcards so the term is
// matched literally as a substring.
func likePattern(term string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(strings.ToLower(term)) + "%"
}

// ListUserGroups returns the groups userID belongs to, most recently joined
// first.
func (q *queries) ListUserGroups(ctx context.Context, userID int64) ([]model.ReadingGroup, error) {
	groups := []model.ReadingGroup{}
	err := sqlx.SelectContext(ctx, q.ext, &groups,
		`SELECT `+groupColumns+`
		 FROM reading_groups g
		 JOIN group_members gm ON gm.group_id = g.id
		 WHERE gm.user_id = ?
		 ORDER BY gm.joined_at DESC, gm.id DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing groups of user %d: %w", userID, err)
	}
	return groups, nil
}

var errMemberNotFound = apperror.NotFound("Not a member of this group")

func (q *queries) GetMember(ctx context.Context, groupID, userID int64) (*model.GroupMember, error) {
	var m model.GroupMember
	err := sqlx.GetContext(ctx, q.ext, &m,
		`SELECT id, group_id, user_id, role, joined_at
		 FROM group_members WHERE group_id = ? AND user_id = ?`,
		groupID, userID,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errMemberNotFound
		}
		return nil, fmt.Errorf("sqlite: getting member (group=%d, user=%d): %w", groupID, userID, err)
	}
	return &m, nil
}

// InsertMember adds a membership. A second membership for the same
// (group, user) is apperror.ErrConflict.
func (q *queries) InsertMember(ctx context.Context, member *model.GroupMember) error {
	if member.JoinedAt.IsZero() {
		member.JoinedAt = time.Now()
	}
	member.JoinedAt = timestamp(member.JoinedAt)
	if member.Role == "" {
		member.Role = model.RoleMember
	}

	res, err := q.ext.ExecContext(ctx,
		`INSERT INTO group_members (group_id, user_id, role, joined_at)
		 VALUES (?, ?, ?, ?)`,
		member.GroupID,
		member.UserID,
		string(member.Role),
		member.JoinedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("Already a member of this group")
		}
		return fmt.Errorf("sqlite: inserting member (group=%d, user=%d): %w", member.GroupID, member.UserID, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("sqlite: reading member id: %w", err)
	}
	member.ID = id
	return nil
}

func (q *queries) DeleteMember(ctx context.Context, memberID int64) error {
	res, err := q.ext.ExecContext(ctx, `DELETE FROM group_members WHERE id = ?`, memberID)
	if err != nil {
		return fmt.Errorf("sqlite: deleting member %d: %w", memberID, err)
	}
	return affectedOne(res, "deleting member", errMemberNotFound)
}

func (q *queries) UpdateMemberRole(ctx context.Context, memberID int64, role model.Role) error {
	res, err := q.ext.ExecContext(ctx,
		`UPDATE group_members SET role = ? WHERE id = ?`, string(role), memberID)
	if err != nil {
		return fmt.Errorf("sqlite: updating role of member %d: %w", memberID, err)
	}
	return affectedOne(res, "updating member role", errMemberNotFound)
}

func (q *queries) CountAdmins(ctx context.Context, groupID int64) (int64, error) {
	var n int64
	err := sqlx.GetContext(ctx, q.ext, &n,
		`SELECT COUNT(*) FROM group_members WHERE group_id = ? AND role = ?`,
		groupID, string(model.RoleAdmin),
	)
	if err != nil {
		return 0, fmt.Errorf("sqlite: counting admins of group %d: %w", groupID, err)
	}
	return n, nil
}

func (q *queries) ListMembers(ctx context.Context, groupID int64) ([]model.GroupMember, error) {
	members := []model.GroupMember{}
	err := sqlx.SelectContext(ctx, q.ext, &members,
		`SELECT gm.id, gm.group_id, gm.user_id, gm.role, gm.joined_at,
		        u.id         AS "user.id",
		        u.name       AS "user.name",
		        u.email      AS "user.email",
		        u.created_at AS "user.created_at"
		 FROM group_members gm
		 JOIN users u ON u.id = gm.user_id
		 WHERE gm.group_id = ?
		 ORDER BY gm.joined_at, gm.id`,
		groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing members of group %d: %w", groupID, err)
	}
	return members, nil
}
