package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/bookifyme/internal/apperror"
	"github.com/sakif/bookifyme/internal/model"
	"github.com/sakif/bookifyme/internal/repository"
)

// Group listing page sizes.
const (
	DefaultGroupsPerPage = 20
	MaxGroupsPerPage     = 100
)

// CommunityService manages reading groups and memberships.
//
// ADMIN INVARIANT:
// A group with members always has at least one admin. The creator starts as
// admin, and Leave refuses to remove the last one. The check and the delete
// share a transaction, so two admins leaving at once cannot both pass.
type CommunityService struct {
	groups repository.GroupRepository
	logger *slog.Logger
}

func NewCommunityService(groups repository.GroupRepository, logger *slog.Logger) *CommunityService {
	return &CommunityService{groups: groups, logger: logger}
}

// CreateGroup creates a group owned by ownerID, who becomes its first admin.
// A nil isPublic means public.
func (s *CommunityService) CreateGroup(ctx context.Context, ownerID int64, name, description string, isPublic *bool) (*model.ReadingGroup, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperror.ValidationFailed("name", "Group name is required")
	}

	group := &model.ReadingGroup{
		Name:        name,
		Description: strings.TrimSpace(description),
		CreatedBy:   ownerID,
		IsPublic:    isPublic == nil || *isPublic,
	}

	err := s.groups.InGroupTx(ctx, func(q repository.GroupQueries) error {
		if _, err := q.GetGroupByName(ctx, name); err == nil {
			return apperror.Conflict("Group name already exists")
		} else if !errors.Is(err, apperror.ErrNotFound) {
			return err
		}

		if err := q.InsertGroup(ctx, group); err != nil {
			return err
		}
		return q.InsertMember(ctx, &model.GroupMember{
			GroupID: group.ID,
			UserID:  ownerID,
			Role:    model.RoleAdmin,
		})
	})
	if err != nil {
		return nil, fmt.Errorf("service/community: creating group %q: %w", name, err)
	}
	group.MemberCount = 1

	s.logger.InfoContext(ctx, "group created",
		slog.Int64("groupID", group.ID),
		slog.Int64("ownerID", ownerID),
	)
	return group, nil
}

// Join adds userID to the group as a plain member.
func (s *CommunityService) Join(ctx context.Context, userID, groupID int64) error {
	err := s.groups.InGroupTx(ctx, func(q repository.GroupQueries) error {
		if _, err := q.GetGroup(ctx, groupID); err != nil {
			return err
		}

		if _, err := q.GetMember(ctx, groupID, userID); err == nil {
			return apperror.Conflict("Already a member of this group")
		} else if !errors.Is(err, apperror.ErrNotFound) {
			return err
		}

		return q.InsertMember(ctx, &model.GroupMember{
			GroupID: groupID,
			UserID:  userID,
			Role:    model.RoleMember,
		})
	})
	if err != nil {
		return fmt.Errorf("service/community: user %d joining group %d: %w", userID, groupID, err)
	}
	return nil
}

// Leave removes userID from the group unless that would leave it without an
// admin.
func (s *CommunityService) Leave(ctx context.Context, userID, groupID int64) error {
	err := s.groups.InGroupTx(ctx, func(q repository.GroupQueries) error {
		member, err := q.GetMember(ctx, groupID, userID)
		if err != nil {
			return err
		}

		if member.Role == model.RoleAdmin {
			admins, err := q.CountAdmins(ctx, groupID)
			if err != nil {
				return err
			}
			if admins <= 1 {
				return apperror.ValidationFailed("", "Cannot leave as the only admin. Transfer ownership or delete group.")
			}
		}
		return q.DeleteMember(ctx, member.ID)
	})
	if err != nil {
		return fmt.Errorf("service/community: user %d leaving group %d: %w", userID, groupID, err)
	}
	return nil
}

// PromoteMember makes userID an admin of the group. Only an admin of the
// group may promote; promoting an admin is a no-op.
func (s *CommunityService) PromoteMember(ctx context.Context, actorID, groupID, userID int64) error {
	err := s.groups.InGroupTx(ctx, func(q repository.GroupQueries) error {
		if _, err := q.GetGroup(ctx, groupID); err != nil {
			return err
		}

		actor, err := q.GetMember(ctx, groupID, actorID)
		if err != nil && !errors.Is(err, apperror.ErrNotFound) {
			return err
		}
		if err != nil || actor.Role != model.RoleAdmin {
			return apperror.Forbidden("Only group admins can promote members")
		}

		member, err := q.GetMember(ctx, groupID, userID)
		if err != nil {
			return err
		}
		if member.Role == model.RoleAdmin {
			return nil
		}
		return q.UpdateMemberRole(ctx, member.ID, model.RoleAdmin)
	})
	if err != nil {
		return fmt.Errorf("service/community: promoting user %d in group %d: %w", userID, groupID, err)
	}

	s.logger.InfoContext(ctx, "member promoted",
		slog.Int64("groupID", groupID),
		slog.Int64("userID", userID),
		slog.Int64("by", actorID),
	)
	return nil
}

// ClampPage maps 0 (absent) and negative pages to 1.
func ClampPage(page int) int {
	return max(page, 1)
}

// ClampPerPage applies the default (for 0) and the [1, MaxGroupsPerPage]
// bounds.
func ClampPerPage(perPage int) int {
	switch {
	case perPage == 0:
		return DefaultGroupsPerPage
	case perPage < 1:
		return 1
	case perPage > MaxGroupsPerPage:
		return MaxGroupsPerPage
	}
	return perPage
}

// ListPublic returns one page of public groups whose name contains search
// (case-insensitive), newest first.
func (s *CommunityService) ListPublic(ctx context.Context, search string, page, perPage int) (model.Page[model.ReadingGroup], error) {
	page, perPage = ClampPage(page), ClampPerPage(perPage)

	groups, total, err := s.groups.ListPublicGroups(ctx, repository.GroupListOptions{
		Search: search,
		Limit:  perPage,
		Offset: (page - 1) * perPage,
	})
	if err != nil {
		return model.Page[model.ReadingGroup]{}, fmt.Errorf("service/community: listing groups: %w", err)
	}
	return model.NewPage(groups, total, page, perPage), nil
}

// Joined returns the groups userID belongs to.
func (s *CommunityService) Joined(ctx context.Context, userID int64) ([]model.ReadingGroup, error) {
	groups, err := s.groups.ListUserGroups(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service/community: listing groups of user %d: %w", userID, err)
	}
	return groups, nil
}

// Details returns a group with its member list.
func (s *CommunityService) Details(ctx context.Context, groupID int64) (*model.GroupDetails, error) {
	group, err := s.groups.GetGroup(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("service/community: loading group %d: %w", groupID, err)
	}
	members, err := s.groups.ListMembers(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("service/community: loading members of group %d: %w", groupID, err)
	}
	return &model.GroupDetails{ReadingGroup: *group, Members: members}, nil
}
