package domain

import "time"

// RoleCreatedEvent is emitted when an administrator provisions a role.
type RoleCreatedEvent struct {
	EventID   string
	RoleID    string
	RoleName  string
	CreatedBy string
	CreatedAt time.Time
	Metadata  map[string]any
}

// RoleDeletedEvent is emitted when a role is removed. ClearedUserIDs lists
// the users whose assignment to the role was cleared in the same transaction.
type RoleDeletedEvent struct {
	EventID        string
	RoleID         string
	RoleName       string
	DeletedBy      string
	DeletedAt      time.Time
	ClearedUserIDs []string
	Metadata       map[string]any
}

// RolePermissionsChangedEvent is emitted when a role's permission set is
// mutated through grant or revoke operations.
type RolePermissionsChangedEvent struct {
	EventID   string
	RoleID    string
	RoleName  string
	Granted   []string
	Revoked   []string
	ChangedBy string
	ChangedAt time.Time
	Metadata  map[string]any
}

// RoleAssignedEvent is emitted when a user's role membership changes.
type RoleAssignedEvent struct {
	EventID    string
	UserID     string
	RoleID     string
	RoleName   string
	Replaced   bool
	AssignedBy string
	AssignedAt time.Time
	Metadata   map[string]any
}
