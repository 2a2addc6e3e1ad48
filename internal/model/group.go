package model

import "time"

// Role is a member's permission level inside a reading group.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

// ReadingGroup is a named community. Names are globally unique.
// MemberCount is computed by listing queries and is not a stored column.
type ReadingGroup struct {
	ID          int64     `json:"id"           db:"id"`
	Name        string    `json:"name"         db:"name"`
	Description string    `json:"description"  db:"description"`
	CreatedBy   int64     `json:"created_by"   db:"created_by"`
	CreatedAt   time.Time `json:"created_at"   db:"created_at"`
	IsPublic    bool      `json:"is_public"    db:"is_public"`
	MemberCount int64     `json:"member_count" db:"member_count"`
}

// GroupMember links a user to a group. Every group keeps at least one admin
// while it has members.
type GroupMember struct {
	ID       int64     `json:"id"        db:"id"`
	GroupID  int64     `json:"group_id"  db:"group_id"`
	UserID   int64     `json:"user_id"   db:"user_id"`
	Role     Role      `json:"role"      db:"role"`
	JoinedAt time.Time `json:"joined_at" db:"joined_at"`
	User     User      `json:"user"      db:"user"`
}

// GroupDetails is a group together with its member list.
type GroupDetails struct {
	ReadingGroup
	Members []GroupMember `json:"members"`
}

// Page is one page of a paginated listing.
type Page[T any] struct {
	Items   []T   `json:"items"`
	Total   int64 `json:"total"`
	Page    int   `json:"page"`
	PerPage int   `json:"per_page"`
	Pages   int   `json:"pages"`
}

// NewPage fills in the page count. items is replaced by an empty slice when
// nil.
func NewPage[T any](items []T, total int64, page, perPage int) Page[T] {
	if items == nil {
		items = []T{}
	}
	pages := 0
	if perPage > 0 {
		pages = int((total + int64(perPage) - 1) / int64(perPage))
	}
	return Page[T]{Items: items, Total: total, Page: page, PerPage: perPage, Pages: pages}
}
