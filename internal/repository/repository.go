// Package repository declares the storage interfaces the service layer
// depends on. internal/repository/sqlite implements all of them on a single
// *sqlite.DB.
//
// Conventions shared by every implementation:
//   - a missing row is an *apperror.AppError wrapping apperror.ErrNotFound;
//   - a UNIQUE violation is an *apperror.AppError wrapping apperror.ErrConflict;
//   - every other failure is returned wrapped with the operation name.
//
// Operations that must see a consistent snapshot or write several rows run
// through the In*Tx helpers. The callback receives a Queries value bound to
// the transaction; returning an error rolls everything back.
package repository

import (
	"context"
	"time"

	"github.com/sakif/bookifyme/internal/model"
)

// UserRepository stores accounts and password-reset state.
type UserRepository interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id int64) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	GetUserByResetToken(ctx context.Context, token string) (*model.User, error)
	SetResetToken(ctx context.Context, userID int64, token string, expires time.Time) error
	// ResetPassword replaces the hash and clears the reset fields in one
	// statement, only while token is still current at now.
	ResetPassword(ctx context.Context, userID int64, token, passwordHash string, now time.Time) error
	// ClearExpiredResetTokens removes reset tokens that expired before now and
	// reports how many accounts were touched.
	ClearExpiredResetTokens(ctx context.Context, now time.Time) (int64, error)
}

// BookshelfQueries covers the book cache and the shelf entries that reference
// it.
type BookshelfQueries interface {
	GetBookByExternalID(ctx context.Context, externalID string) (*model.Book, error)
	InsertBook(ctx context.Context, book *model.Book) error

	GetEntry(ctx context.Context, userID, bookID int64) (*model.ShelfEntry, error)
	// GetEntryByExternalID returns the entry with its Book populated.
	GetEntryByExternalID(ctx context.Context, userID int64, externalID string) (*model.ShelfEntry, error)
	InsertEntry(ctx context.Context, entry *model.ShelfEntry) error
	UpdateEntryShelf(ctx context.Context, entryID int64, shelf model.Shelf, now time.Time) error
	DeleteEntry(ctx context.Context, entryID int64) error
	// ListEntries returns every entry of the user with its Book populated,
	// ordered by added_at then id.
	ListEntries(ctx context.Context, userID int64) ([]model.ShelfEntry, error)
}

// BookshelfRepository is BookshelfQueries plus transactions.
type BookshelfRepository interface {
	BookshelfQueries
	InBookshelfTx(ctx context.Context, fn func(q BookshelfQueries) error) error
}

// GroupListOptions filters and paginates the public group listing.
type GroupListOptions struct {
	Search string // case-insensitive substring of the name; empty matches all
	Limit  int
	Offset int
}

// GroupQueries covers reading groups and their memberships.
type GroupQueries interface {
	GetGroup(ctx context.Context, id int64) (*model.ReadingGroup, error)
	GetGroupByName(ctx context.Context, name string) (*model.ReadingGroup, error)
	InsertGroup(ctx context.Context, group *model.ReadingGroup) error
	ListPublicGroups(ctx context.Context, opts GroupListOptions) ([]model.ReadingGroup, int64, error)
	ListUserGroups(ctx context.Context, userID int64) ([]model.ReadingGroup, error)

	GetMember(ctx context.Context, groupID, userID int64) (*model.GroupMember, error)
	InsertMember(ctx context.Context, member *model.GroupMember) error
	DeleteMember(ctx context.Context, memberID int64) error
	UpdateMemberRole(ctx context.Context, memberID int64, role model.Role) error
	CountAdmins(ctx context.Context, groupID int64) (int64, error)
	// ListMembers returns members with their User populated, oldest first.
	ListMembers(ctx context.Context, groupID int64) ([]model.GroupMember, error)
}

// GroupRepository is GroupQueries plus transactions.
type GroupRepository interface {
	GroupQueries
	InGroupTx(ctx context.Context, fn func(q GroupQueries) error) error
}
