package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/docplatform/authz-service/internal/core/domain"
	"github.com/docplatform/authz-service/internal/transport/http/middleware"
)

// ErrorResponse is the uniform error payload.
type ErrorResponse struct {
	Error   string `json:"error"`
	TraceID string `json:"trace_id,omitempty"`
}

// NewErrorResponse builds an error payload carrying the request's trace ID.
func NewErrorResponse(c *gin.Context, message string) ErrorResponse {
	return ErrorResponse{
		Error:   message,
		TraceID: middleware.GetTraceID(c),
	}
}

// HealthResponse reports service liveness.
type HealthResponse struct {
	Status    string    `json:"status"`
	StartedAt time.Time `json:"started_at"`
}

// ReadinessResponse reports per-dependency readiness probes.
type ReadinessResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// RolePayload is the wire representation of a role.
type RolePayload struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
}

// PermissionPayload is the wire representation of a permission.
type PermissionPayload struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Resource    string  `json:"resource"`
	Action      string  `json:"action"`
	Description *string `json:"description,omitempty"`
}

// UserPayload is the wire representation of a user. The password hash never
// leaves the service.
type UserPayload struct {
	ID          string    `json:"id"`
	Username    string    `json:"username"`
	Email       string    `json:"email"`
	IsActive    bool      `json:"is_active"`
	IsSuperuser bool      `json:"is_superuser"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// DocumentPayload is the wire representation of document metadata.
type DocumentPayload struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	ContentType string    `json:"content_type,omitempty"`
	OwnerID     string    `json:"owner_id"`
	SizeBytes   int64     `json:"size_bytes"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// RoleCreateRequest is the payload for creating a role.
type RoleCreateRequest struct {
	Name        string   `json:"name" binding:"required"`
	Description *string  `json:"description"`
	Permissions []string `json:"permissions"`
}

// RoleCreateResponse returns the created role with its resolved permissions.
type RoleCreateResponse struct {
	Role        RolePayload         `json:"role"`
	Permissions []PermissionPayload `json:"permissions"`
}

// RoleUpdateRequest is the payload for renaming a role.
type RoleUpdateRequest struct {
	Name        string  `json:"name" binding:"required"`
	Description *string `json:"description"`
}

// RolePermissionsRequest names permissions to grant or revoke.
type RolePermissionsRequest struct {
	Permissions []string `json:"permissions" binding:"required"`
}

// RolePermissionsResponse reports how many grant edges changed.
type RolePermissionsResponse struct {
	Changed int `json:"changed"`
}

// RoleAssignRequest assigns a role to a user.
type RoleAssignRequest struct {
	UserID  string `json:"user_id" binding:"required"`
	Replace bool   `json:"replace"`
}

// PermissionCreateRequest is the payload for defining a permission.
type PermissionCreateRequest struct {
	Resource    string  `json:"resource" binding:"required"`
	Action      string  `json:"action" binding:"required"`
	Description *string `json:"description"`
}

// UserCreateRequest is the payload for provisioning a user.
type UserCreateRequest struct {
	Username     string `json:"username" binding:"required"`
	Email        string `json:"email" binding:"required"`
	PasswordHash string `json:"password_hash"`
	IsSuperuser  bool   `json:"is_superuser"`
}

// UserFlagRequest toggles a boolean account flag.
type UserFlagRequest struct {
	Value bool `json:"value"`
}

// DocumentUpdateRequest renames a document.
type DocumentUpdateRequest struct {
	Name string `json:"name" binding:"required"`
}

// DocumentDownloadResponse carries a time-limited payload URL.
type DocumentDownloadResponse struct {
	URL string `json:"url"`
}

// IntrospectRequest carries the credential to introspect.
type IntrospectRequest struct {
	Token string `json:"token" binding:"required"`
}

// IntrospectResponse is the subject descriptor served to sibling services.
// Permissions always carry the full closure, so a caller never has to guess
// an unloaded closure as empty.
type IntrospectResponse struct {
	SubjectID   string               `json:"subject_id"`
	Active      bool                 `json:"active"`
	Superuser   bool                 `json:"superuser"`
	Roles       []string             `json:"roles"`
	Permissions []PermissionKeyModel `json:"permissions"`
}

// PermissionKeyModel is a single (resource, action) grant on the wire.
type PermissionKeyModel struct {
	Resource string `json:"resource"`
	Action   string `json:"action"`
}

func toRolePayload(role domain.Role) RolePayload {
	return RolePayload{
		ID:          role.ID,
		Name:        role.Name,
		Description: role.Description,
	}
}

func toPermissionPayload(permission domain.Permission) PermissionPayload {
	return PermissionPayload{
		ID:          permission.ID,
		Name:        permission.Name,
		Resource:    permission.Resource,
		Action:      permission.Action,
		Description: permission.Description,
	}
}

func toUserPayload(user domain.User) UserPayload {
	return UserPayload{
		ID:          user.ID,
		Username:    user.Username,
		Email:       user.Email,
		IsActive:    user.IsActive,
		IsSuperuser: user.IsSuperuser,
		CreatedAt:   user.CreatedAt,
		UpdatedAt:   user.UpdatedAt,
	}
}

func toDocumentPayload(document domain.Document) DocumentPayload {
	return DocumentPayload{
		ID:          document.ID,
		Name:        document.Name,
		ContentType: document.ContentType,
		OwnerID:     document.Owner,
		SizeBytes:   document.SizeBytes,
		CreatedAt:   document.CreatedAt,
		UpdatedAt:   document.UpdatedAt,
	}
}
