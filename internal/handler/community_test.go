package handler_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/bookifyme/internal/apperror"
	"github.com/sakif/bookifyme/internal/handler"
	"github.com/sakif/bookifyme/internal/model"
)

type MockCommunityService struct {
	Group   *model.ReadingGroup
	Groups  []model.ReadingGroup
	Detail  *model.GroupDetails
	Err     error

	GotUser, GotGroup   int64
	GotMember           int64
	GotName, GotSearch  string
	GotPublic           *bool
	GotPage, GotPerPage int
	Calls               int
}

func (m *MockCommunityService) CreateGroup(ctx context.Context, ownerID int64, name, description string, isPublic *bool) (*model.ReadingGroup, error) {
	m.Calls++
	m.GotUser, m.GotName, m.GotPublic = ownerID, name, isPublic
	return m.Group, m.Err
}

func (m *MockCommunityService) Join(ctx context.Context, userID, groupID int64) error {
	m.Calls++
	m.GotUser, m.GotGroup = userID, groupID
	return m.Err
}

func (m *MockCommunityService) Leave(ctx context.Context, userID, groupID int64) error {
	m.Calls++
	m.GotUser, m.GotGroup = userID, groupID
	return m.Err
}

func (m *MockCommunityService) PromoteMember(ctx context.Context, actorID, groupID, userID int64) error {
	m.Calls++
	m.GotUser, m.GotGroup, m.GotMember = actorID, groupID, userID
	return m.Err
}

func (m *MockCommunityService) ListPublic(ctx context.Context, search string, page, perPage int) (model.Page[model.ReadingGroup], error) {
	m.Calls++
	m.GotSearch, m.GotPage, m.GotPerPage = search, page, perPage
	return model.NewPage(m.Groups, int64(len(m.Groups)), 1, 20), m.Err
}

func (m *MockCommunityService) Joined(ctx context.Context, userID int64) ([]model.ReadingGroup, error) {
	m.Calls++
	m.GotUser = userID
	return m.Groups, m.Err
}

func (m *MockCommunityService) Details(ctx context.Context, groupID int64) (*model.GroupDetails, error) {
	m.Calls++
	m.GotGroup = groupID
	return m.Detail, m.Err
}

func communityRouter(h *handler.CommunityHandler) http.Handler {
	r := chi.NewRouter()
	r.Route("/api/community/groups", func(r chi.Router) {
		r.Get("/", h.HandleList)
		r.Post("/", h.HandleCreate)
		r.Get("/joined", h.HandleJoined)
		r.Get("/{id}", h.HandleDetails)
		r.Post("/{id}/join", h.HandleJoin)
		r.Post("/{id}/leave", h.HandleLeave)
		r.Post("/{id}/members/{user_id}/promote", h.HandlePromote)
	})
	return r
}

func TestCommunityHandler_List(t *testing.T) {
	t.Run("search and paging", func(t *testing.T) {
		mock := &MockCommunityService{Groups: []model.ReadingGroup{{ID: 1, Name: "Sci-Fi Club", MemberCount: 2}}}
		r := communityRouter(handler.NewCommunityHandler(mock, testLogger()))

		rr, env := serve(t, r, newRequest(http.MethodGet, "/api/community/groups?search=sci&page=2&per_page=5", "", nil))

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "Groups retrieved successfully", env.Message)
		assert.Equal(t, "sci", mock.GotSearch)
		assert.Equal(t, 2, mock.GotPage)
		assert.Equal(t, 5, mock.GotPerPage)

		var data struct {
			Groups model.Page[model.ReadingGroup] `json:"groups"`
		}
		decodeData(t, env, &data)
		require.Len(t, data.Groups.Items, 1)
		assert.Equal(t, int64(2), data.Groups.Items[0].MemberCount)
	})

	t.Run("non-numeric page", func(t *testing.T) {
		mock := &MockCommunityService{}
		r := communityRouter(handler.NewCommunityHandler(mock, testLogger()))

		rr, _ := serve(t, r, newRequest(http.MethodGet, "/api/community/groups?page=two", "", nil))

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Zero(t, mock.Calls)
	})
}

func TestCommunityHandler_Create(t *testing.T) {
	t.Run("created", func(t *testing.T) {
		mock := &MockCommunityService{Group: &model.ReadingGroup{ID: 4, Name: "Sci-Fi Club", IsPublic: false, MemberCount: 1}}
		r := communityRouter(handler.NewCommunityHandler(mock, testLogger()))

		rr, env := serve(t, r, newRequest(http.MethodPost, "/api/community/groups",
			`{"name":"Sci-Fi Club","description":"rockets","is_public":false}`, testUser))

		assert.Equal(t, http.StatusCreated, rr.Code)
		assert.Equal(t, "Group created successfully", env.Message)
		assert.Equal(t, testUser.ID, mock.GotUser)
		require.NotNil(t, mock.GotPublic)
		assert.False(t, *mock.GotPublic)
	})

	t.Run("is_public omitted", func(t *testing.T) {
		mock := &MockCommunityService{Group: &model.ReadingGroup{ID: 4}}
		r := communityRouter(handler.NewCommunityHandler(mock, testLogger()))

		rr, _ := serve(t, r, newRequest(http.MethodPost, "/api/community/groups", `{"name":"Club"}`, testUser))

		assert.Equal(t, http.StatusCreated, rr.Code)
		assert.Nil(t, mock.GotPublic)
	})

	t.Run("duplicate name", func(t *testing.T) {
		mock := &MockCommunityService{Err: apperror.ValidationFailed("name", "Group name already exists")}
		r := communityRouter(handler.NewCommunityHandler(mock, testLogger()))

		rr, env := serve(t, r, newRequest(http.MethodPost, "/api/community/groups", `{"name":"Club"}`, testUser))

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Equal(t, "Group name already exists", env.Message)
	})

	t.Run("anonymous", func(t *testing.T) {
		mock := &MockCommunityService{}
		r := communityRouter(handler.NewCommunityHandler(mock, testLogger()))

		rr, _ := serve(t, r, newRequest(http.MethodPost, "/api/community/groups", `{"name":"Club"}`, nil))

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		assert.Zero(t, mock.Calls)
	})
}

func TestCommunityHandler_Membership(t *testing.T) {
	t.Run("join", func(t *testing.T) {
		mock := &MockCommunityService{}
		r := communityRouter(handler.NewCommunityHandler(mock, testLogger()))

		rr, env := serve(t, r, newRequest(http.MethodPost, "/api/community/groups/9/join", "", testUser))

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "Joined group successfully", env.Message)
		assert.Equal(t, int64(9), mock.GotGroup)
	})

	t.Run("already a member", func(t *testing.T) {
		mock := &MockCommunityService{Err: apperror.ValidationFailed("", "Already a member of this group")}
		r := communityRouter(handler.NewCommunityHandler(mock, testLogger()))

		rr, env := serve(t, r, newRequest(http.MethodPost, "/api/community/groups/9/join", "", testUser))

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Equal(t, "Already a member of this group", env.Message)
	})

	t.Run("leave", func(t *testing.T) {
		mock := &MockCommunityService{}
		r := communityRouter(handler.NewCommunityHandler(mock, testLogger()))

		rr, env := serve(t, r, newRequest(http.MethodPost, "/api/community/groups/9/leave", "", testUser))

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "Left group successfully", env.Message)
	})

	t.Run("non-numeric id", func(t *testing.T) {
		mock := &MockCommunityService{}
		r := communityRouter(handler.NewCommunityHandler(mock, testLogger()))

		rr, env := serve(t, r, newRequest(http.MethodPost, "/api/community/groups/abc/leave", "", testUser))

		assert.Equal(t, http.StatusNotFound, rr.Code)
		assert.Equal(t, "Group not found", env.Message)
		assert.Zero(t, mock.Calls)
	})
}

func TestCommunityHandler_JoinedAndDetails(t *testing.T) {
	mock := &MockCommunityService{
		Groups: []model.ReadingGroup{{ID: 1, Name: "A"}, {ID: 2, Name: "B"}},
		Detail: &model.GroupDetails{
			ReadingGroup: model.ReadingGroup{ID: 1, Name: "A", MemberCount: 1},
			Members:      []model.GroupMember{{ID: 1, GroupID: 1, UserID: 7, Role: model.RoleAdmin}},
		},
	}
	r := communityRouter(handler.NewCommunityHandler(mock, testLogger()))

	rr, env := serve(t, r, newRequest(http.MethodGet, "/api/community/groups/joined", "", testUser))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "Joined groups retrieved successfully", env.Message)
	assert.Equal(t, testUser.ID, mock.GotUser)

	rr, env = serve(t, r, newRequest(http.MethodGet, "/api/community/groups/1", "", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	var data struct {
		Group struct {
			Name    string              `json:"name"`
			Members []model.GroupMember `json:"members"`
		} `json:"group"`
	}
	decodeData(t, env, &data)
	assert.Equal(t, "A", data.Group.Name)
	require.Len(t, data.Group.Members, 1)
	assert.Equal(t, model.RoleAdmin, data.Group.Members[0].Role)
}

func TestCommunityHandler_Promote(t *testing.T) {
	tests := []struct {
		name        string
		target      string
		err         error
		wantStatus  int
		wantMessage string
		wantCalls   int
	}{
		{"admin promotes", "/api/community/groups/3/members/9/promote", nil, http.StatusOK, "Member promoted to admin", 1},
		{"caller not admin", "/api/community/groups/3/members/9/promote", apperror.Forbidden("Only group admins can promote members"), http.StatusForbidden, "Only group admins can promote members", 1},
		{"target not member", "/api/community/groups/3/members/9/promote", apperror.NotFound("Not a member of this group"), http.StatusNotFound, "Not a member of this group", 1},
		{"bad user id", "/api/community/groups/3/members/abc/promote", nil, http.StatusNotFound, "Not a member of this group", 0},
		{"bad group id", "/api/community/groups/0/members/9/promote", nil, http.StatusNotFound, "Group not found", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &MockCommunityService{Err: tt.err}
			r := communityRouter(handler.NewCommunityHandler(mock, testLogger()))

			rr, env := serve(t, r, newRequest(http.MethodPost, tt.target, "", testUser))
			assert.Equal(t, tt.wantStatus, rr.Code)
			assert.Equal(t, tt.wantMessage, env.Message)
			assert.Equal(t, tt.wantCalls, mock.Calls)
			if tt.wantCalls > 0 {
				assert.Equal(t, testUser.ID, mock.GotUser)
				assert.Equal(t, int64(3), mock.GotGroup)
				assert.Equal(t, int64(9), mock.GotMember)
			}
			if tt.wantStatus == http.StatusForbidden {
				assert.Equal(t, "forbidden", env.Error)
			}
		})
	}
}
