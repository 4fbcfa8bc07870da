package domain

import "time"

// Role defines a named bundle of permissions assignable to users.
type Role struct {
	ID          string
	Name        string
	Description *string
}

// Permission defines an atomic (resource, action) grant. Name is a human
// label in the canonical "resource:action" form; the effective authorization
// key is the (Resource, Action) pair.
type Permission struct {
	ID          string
	Name        string
	Resource    string
	Action      string
	Description *string
}

// Key returns the effective authorization key for the permission.
func (p Permission) Key() PermissionKey {
	return PermissionKey{Resource: p.Resource, Action: p.Action}
}

// RolePermission links a role with a permission.
type RolePermission struct {
	RoleID       string
	PermissionID string
}

// UserRole assigns a role to a user.
type UserRole struct {
	UserID     string
	RoleID     string
	AssignedAt time.Time
}

// PermissionKey identifies a grant by resource type and action.
type PermissionKey struct {
	Resource string
	Action   string
}

// PermissionSet is a subject's permission closure: the union of grants across
// every role the subject holds.
type PermissionSet map[PermissionKey]struct{}

// NewPermissionSet builds a set from the provided permissions.
func NewPermissionSet(permissions []Permission) PermissionSet {
	set := make(PermissionSet, len(permissions))
	for _, permission := range permissions {
		set[permission.Key()] = struct{}{}
	}
	return set
}

// Has reports whether the closure contains a grant for (resource, action).
func (s PermissionSet) Has(resource, action string) bool {
	_, ok := s[PermissionKey{Resource: resource, Action: action}]
	return ok
}

// Keys returns the members of the set in unspecified order.
func (s PermissionSet) Keys() []PermissionKey {
	keys := make([]PermissionKey, 0, len(s))
	for key := range s {
		keys = append(keys, key)
	}
	return keys
}
