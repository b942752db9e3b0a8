package model

import (
	"time"
)

// Canonical role names. Every user carries exactly one of these at
// creation time, though the schema allows a set.
const (
	RoleAdmin          = "admin"
	RoleProjectManager = "project_manager"
	RoleTeamMember     = "team_member"
)

func IsAssignableRole(name string) bool {
	switch name {
	case RoleAdmin, RoleProjectManager, RoleTeamMember:
		return true
	}
	return false
}

type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Username     string    `json:"username"`
	Email        *string   `json:"email"`
	PasswordHash string    `json:"-"` // Not exposed
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`

	// Populated by explicit joined queries, not implicit eager loading.
	Roles []string `json:"roles,omitempty"`
}

// UserSummary is the reduced shape embedded in project/task responses
// and returned by the assignable-users listing.
type UserSummary struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Username string `json:"username"`
}

// Identity is the normalized payload the frontend session context
// consumes. The exact shape is a contract: the UI keys conditional
// rendering off roles and permissions.
type Identity struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Email       *string  `json:"email"`
	Username    string   `json:"username"`
	Roles       []string `json:"roles"`
	Permissions []string `json:"permissions"`
}

// Role is a named bundle of permissions scoped to a guard.
type Role struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	GuardName string    `json:"guard_name"`
	CreatedAt time.Time `json:"created_at"`
}

// Permission is an atomic named capability scoped to a guard.
type Permission struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	GuardName string    `json:"guard_name"`
	CreatedAt time.Time `json:"created_at"`
}
