package domain

import "time"

// User mirrors the persisted representation in the users table. The password
// hash is opaque to this service: credential verification and token issuance
// live in the authentication layer.
type User struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	IsActive     bool
	IsSuperuser  bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Subject is the resolved caller descriptor consumed by the policy evaluator.
// Permissions is nil until the closure has been loaded; an explicitly empty
// closure is a non-nil empty set, so "not loaded" and "no permissions" are
// never confused.
type Subject struct {
	ID          string
	Active      bool
	Superuser   bool
	Roles       []string
	Permissions PermissionSet
}

// SubjectFromUser builds an unloaded subject descriptor for a persisted user.
func SubjectFromUser(user *User, roleNames []string) *Subject {
	return &Subject{
		ID:        user.ID,
		Active:    user.IsActive,
		Superuser: user.IsSuperuser,
		Roles:     roleNames,
	}
}
