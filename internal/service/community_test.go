package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/bookifyme/internal/apperror"
	"github.com/sakif/bookifyme/internal/model"
	"github.com/sakif/bookifyme/internal/repository/sqlite"
)

func newTestCommunityService(t *testing.T) (*CommunityService, *sqlite.DB) {
	t.Helper()
	db := newTestStore(t)
	return NewCommunityService(db, testLogger()), db
}

func TestCreateGroup(t *testing.T) {
	svc, db := newTestCommunityService(t)
	ctx := context.Background()
	owner := createUser(t, db, "alice")

	g, err := svc.CreateGroup(ctx, owner, "  Sci-Fi Club ", " Space books ", nil)
	require.NoError(t, err)
	assert.Equal(t, "Sci-Fi Club", g.Name)
	assert.Equal(t, "Space books", g.Description)
	assert.True(t, g.IsPublic)
	assert.Equal(t, int64(1), g.MemberCount)

	m, err := db.GetMember(ctx, g.ID, owner)
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, m.Role)
}

func TestCreateGroup_Private(t *testing.T) {
	svc, db := newTestCommunityService(t)
	owner := createUser(t, db, "alice")

	g, err := svc.CreateGroup(context.Background(), owner, "Hidden", "", ptr(false))
	require.NoError(t, err)
	assert.False(t, g.IsPublic)
}

func TestCreateGroup_Errors(t *testing.T) {
	svc, db := newTestCommunityService(t)
	ctx := context.Background()
	owner := createUser(t, db, "alice")

	_, err := svc.CreateGroup(ctx, owner, "   ", "", nil)
	requireAppError(t, err, apperror.ErrValidation, "Group name is required")

	_, err = svc.CreateGroup(ctx, owner, "Readers", "", nil)
	require.NoError(t, err)
	_, err = svc.CreateGroup(ctx, owner, "Readers", "again", nil)
	requireAppError(t, err, apperror.ErrConflict, "Group name already exists")
}

func TestJoin(t *testing.T) {
	svc, db := newTestCommunityService(t)
	ctx := context.Background()
	owner := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")
	g, err := svc.CreateGroup(ctx, owner, "Readers", "", nil)
	require.NoError(t, err)

	require.NoError(t, svc.Join(ctx, bob, g.ID))

	m, err := db.GetMember(ctx, g.ID, bob)
	require.NoError(t, err)
	assert.Equal(t, model.RoleMember, m.Role)

	err = svc.Join(ctx, bob, g.ID)
	requireAppError(t, err, apperror.ErrConflict, "Already a member of this group")

	err = svc.Join(ctx, bob, g.ID+100)
	requireAppError(t, err, apperror.ErrNotFound, "Group not found")
}

func TestLeave_AdminInvariant(t *testing.T) {
	svc, db := newTestCommunityService(t)
	ctx := context.Background()
	owner := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")
	g, err := svc.CreateGroup(ctx, owner, "Readers", "", nil)
	require.NoError(t, err)
	require.NoError(t, svc.Join(ctx, bob, g.ID))

	err = svc.Leave(ctx, owner, g.ID)
	requireAppError(t, err, apperror.ErrValidation, "Cannot leave as the only admin. Transfer ownership or delete group.")

	require.NoError(t, svc.PromoteMember(ctx, owner, g.ID, bob))
	require.NoError(t, svc.Leave(ctx, owner, g.ID))

	_, err = db.GetMember(ctx, g.ID, owner)
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	// bob is now the only admin
	err = svc.Leave(ctx, bob, g.ID)
	assert.ErrorIs(t, err, apperror.ErrValidation)
}

func TestLeave_MemberAndNonMember(t *testing.T) {
	svc, db := newTestCommunityService(t)
	ctx := context.Background()
	owner := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")
	g, err := svc.CreateGroup(ctx, owner, "Readers", "", nil)
	require.NoError(t, err)

	err = svc.Leave(ctx, bob, g.ID)
	requireAppError(t, err, apperror.ErrNotFound, "Not a member of this group")

	require.NoError(t, svc.Join(ctx, bob, g.ID))
	require.NoError(t, svc.Leave(ctx, bob, g.ID))
}

func TestPromoteMember_NotMember(t *testing.T) {
	svc, db := newTestCommunityService(t)
	ctx := context.Background()
	owner := createUser(t, db, "alice")
	g, err := svc.CreateGroup(ctx, owner, "Readers", "", nil)
	require.NoError(t, err)

	err = svc.PromoteMember(ctx, owner, g.ID, owner+1)
	requireAppError(t, err, apperror.ErrNotFound, "Not a member of this group")

	err = svc.PromoteMember(ctx, owner, g.ID+1, owner)
	requireAppError(t, err, apperror.ErrNotFound, "Group not found")

	// promoting an admin is a no-op
	assert.NoError(t, svc.PromoteMember(ctx, owner, g.ID, owner))
}

func TestPromoteMember_OnlyAdmins(t *testing.T) {
	svc, db := newTestCommunityService(t)
	ctx := context.Background()
	owner := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")
	carol := createUser(t, db, "carol")
	g, err := svc.CreateGroup(ctx, owner, "Readers", "", nil)
	require.NoError(t, err)
	require.NoError(t, svc.Join(ctx, bob, g.ID))

	tests := []struct {
		name  string
		actor int64
	}{
		{"plain member", bob},
		{"outsider", carol},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := svc.PromoteMember(ctx, tt.actor, g.ID, bob)
			requireAppError(t, err, apperror.ErrForbidden, "Only group admins can promote members")

			m, err := db.GetMember(ctx, g.ID, bob)
			require.NoError(t, err)
			assert.Equal(t, model.RoleMember, m.Role)
		})
	}
}

func TestListPublic(t *testing.T) {
	svc, db := newTestCommunityService(t)
	ctx := context.Background()
	owner := createUser(t, db, "alice")
	for i := range 5 {
		_, err := svc.CreateGroup(ctx, owner, fmt.Sprintf("Club %d", i), "", nil)
		require.NoError(t, err)
	}
	_, err := svc.CreateGroup(ctx, owner, "Secret Club", "", ptr(false))
	require.NoError(t, err)

	page, err := svc.ListPublic(ctx, "", 2, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(5), page.Total)
	assert.Equal(t, 2, page.Page)
	assert.Equal(t, 2, page.PerPage)
	assert.Equal(t, 3, page.Pages)
	require.Len(t, page.Items, 2)
	// newest first
	assert.Equal(t, "Club 2", page.Items[0].Name)
	assert.Equal(t, "Club 1", page.Items[1].Name)

	found, err := svc.ListPublic(ctx, "CLUB 3", 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, found.Page)
	assert.Equal(t, DefaultGroupsPerPage, found.PerPage)
	require.Len(t, found.Items, 1)
	assert.Equal(t, "Club 3", found.Items[0].Name)

	none, err := svc.ListPublic(ctx, "secret", 1, 10)
	require.NoError(t, err)
	assert.Empty(t, none.Items)
	assert.NotNil(t, none.Items)
	assert.Equal(t, 0, none.Pages)
}

func TestClampPerPage(t *testing.T) {
	assert.Equal(t, 20, ClampPerPage(0))
	assert.Equal(t, 1, ClampPerPage(-1))
	assert.Equal(t, 100, ClampPerPage(1000))
	assert.Equal(t, 1, ClampPage(0))
	assert.Equal(t, 1, ClampPage(-4))
	assert.Equal(t, 3, ClampPage(3))
}

func TestJoinedAndDetails(t *testing.T) {
	svc, db := newTestCommunityService(t)
	ctx := context.Background()
	owner := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")
	g1, err := svc.CreateGroup(ctx, owner, "Readers", "", nil)
	require.NoError(t, err)
	_, err = svc.CreateGroup(ctx, owner, "Writers", "", nil)
	require.NoError(t, err)
	require.NoError(t, svc.Join(ctx, bob, g1.ID))

	joined, err := svc.Joined(ctx, bob)
	require.NoError(t, err)
	require.Len(t, joined, 1)
	assert.Equal(t, "Readers", joined[0].Name)
	assert.Equal(t, int64(2), joined[0].MemberCount)

	details, err := svc.Details(ctx, g1.ID)
	require.NoError(t, err)
	assert.Equal(t, "Readers", details.Name)
	require.Len(t, details.Members, 2)
	assert.Equal(t, model.RoleAdmin, details.Members[0].Role)
	assert.Equal(t, "alice", details.Members[0].User.Name)
	assert.Equal(t, "bob", details.Members[1].User.Name)

	_, err = svc.Details(ctx, 9999)
	requireAppError(t, err, apperror.ErrNotFound, "Group not found")
}
