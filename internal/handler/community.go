package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/bookifyme/internal/apperror"
	"github.com/sakif/bookifyme/internal/model"
)

// CommunityService is what CommunityHandler needs from
// service.CommunityService.
type CommunityService interface {
	CreateGroup(ctx context.Context, ownerID int64, name, description string, isPublic *bool) (*model.ReadingGroup, error)
	Join(ctx context.Context, userID, groupID int64) error
	Leave(ctx context.Context, userID, groupID int64) error
	PromoteMember(ctx context.Context, actorID, groupID, userID int64) error
	ListPublic(ctx context.Context, search string, page, perPage int) (model.Page[model.ReadingGroup], error)
	Joined(ctx context.Context, userID int64) ([]model.ReadingGroup, error)
	Details(ctx context.Context, groupID int64) (*model.GroupDetails, error)
}

// CommunityHandler serves reading groups. Listing and details are public;
// everything that changes membership needs a token.
type CommunityHandler struct {
	groups CommunityService
	logger *slog.Logger
}

func NewCommunityHandler(groups CommunityService, logger *slog.Logger) *CommunityHandler {
	return &CommunityHandler{groups: groups, logger: logger}
}

type createGroupRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	IsPublic    *bool  `json:"is_public"`
}

// groupID parses the {id} URL parameter. A non-numeric id cannot name a
// group, so it is reported exactly like a missing one.
func groupID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperror.NotFound("Group not found")
	}
	return id, nil
}

// HandleList returns one page of public groups.
//
// HTTP: GET /api/community/groups?search=sci&page=1&per_page=20
func (h *CommunityHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	page, err := queryInt(r, "page")
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	perPage, err := queryInt(r, "per_page")
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	groups, err := h.groups.ListPublic(r.Context(), r.URL.Query().Get("search"), page, perPage)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Groups retrieved successfully", map[string]any{"groups": groups})
}

// HandleCreate creates a group owned by the caller.
//
// HTTP: POST /api/community/groups
// REQUEST BODY: {"name": "Sci-Fi Club", "description": "...", "is_public": true}
func (h *CommunityHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req createGroupRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	group, err := h.groups.CreateGroup(r.Context(), user.ID, req.Name, req.Description, req.IsPublic)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeSuccess(w, http.StatusCreated, "Group created successfully", map[string]any{"group": group})
}

// HandleJoined lists the caller's groups.
//
// HTTP: GET /api/community/groups/joined
func (h *CommunityHandler) HandleJoined(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	groups, err := h.groups.Joined(r.Context(), user.ID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Joined groups retrieved successfully", map[string]any{"groups": groups})
}

// HandleDetails returns a group and its members.
//
// HTTP: GET /api/community/groups/{id}
func (h *CommunityHandler) HandleDetails(w http.ResponseWriter, r *http.Request) {
	id, err := groupID(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	group, err := h.groups.Details(r.Context(), id)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Group details retrieved successfully", map[string]any{"group": group})
}

// HandleJoin adds the caller to a group.
//
// HTTP: POST /api/community/groups/{id}/join
func (h *CommunityHandler) HandleJoin(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, err := groupID(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	if err := h.groups.Join(r.Context(), user.ID, id); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Joined group successfully", nil)
}

// HandleLeave removes the caller from a group.
//
// HTTP: POST /api/community/groups/{id}/leave
func (h *CommunityHandler) HandleLeave(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, err := groupID(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	if err := h.groups.Leave(r.Context(), user.ID, id); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Left group successfully", nil)
}

// HandlePromote makes a member an admin. Only admins of the group may call it.
//
// HTTP: POST /api/community/groups/{id}/members/{user_id}/promote
func (h *CommunityHandler) HandlePromote(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, err := groupID(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	memberID, err := strconv.ParseInt(chi.URLParam(r, "user_id"), 10, 64)
	if err != nil || memberID <= 0 {
		writeError(w, r, h.logger, apperror.NotFound("Not a member of this group"))
		return
	}

	if err := h.groups.PromoteMember(r.Context(), user.ID, id, memberID); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Member promoted to admin", nil)
}
