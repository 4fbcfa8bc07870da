package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/docplatform/authz-service/internal/core/domain"
	"github.com/docplatform/authz-service/internal/usecase"
)

// RoleHandler serves role catalog management.
type RoleHandler struct {
	roles *usecase.RoleService
}

// NewRoleHandler builds a RoleHandler.
func NewRoleHandler(roles *usecase.RoleService) *RoleHandler {
	return &RoleHandler{roles: roles}
}

// List returns all roles.
func (h *RoleHandler) List(c *gin.Context) {
	roles, err := h.roles.ListRoles(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to list roles"))
		return
	}

	payload := make([]RolePayload, 0, len(roles))
	for _, role := range roles {
		payload = append(payload, toRolePayload(role))
	}
	c.JSON(http.StatusOK, payload)
}

// Get returns a role by ID.
func (h *RoleHandler) Get(c *gin.Context) {
	role, err := h.roles.GetRole(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrRoleNotFound, Status: http.StatusNotFound, Message: "role not found"},
		}, http.StatusInternalServerError, "failed to load role")
		return
	}
	c.JSON(http.StatusOK, toRolePayload(*role))
}

// Create provisions a role with the named permissions.
func (h *RoleHandler) Create(c *gin.Context) {
	var req RoleCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid role payload"))
		return
	}

	input := usecase.CreateRoleInput{
		Name:            strings.TrimSpace(req.Name),
		Description:     req.Description,
		PermissionNames: req.Permissions,
	}

	result, err := h.roles.CreateRole(c.Request.Context(), input)
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrRoleExists, Status: http.StatusConflict, Message: "role already exists"},
			{Err: usecase.ErrPermissionNotFound, Status: http.StatusBadRequest, Message: "unknown permission"},
		}, http.StatusInternalServerError, "failed to create role")
		return
	}

	permissions := make([]PermissionPayload, 0, len(result.Permissions))
	for _, permission := range result.Permissions {
		permissions = append(permissions, toPermissionPayload(permission))
	}

	c.JSON(http.StatusCreated, RoleCreateResponse{
		Role:        toRolePayload(result.Role),
		Permissions: permissions,
	})
}

// Update renames a role.
func (h *RoleHandler) Update(c *gin.Context) {
	var req RoleUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid role payload"))
		return
	}

	role := domain.Role{
		ID:          c.Param("id"),
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
	}

	if err := h.roles.UpdateRole(c.Request.Context(), role); err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrRoleNotFound, Status: http.StatusNotFound, Message: "role not found"},
			{Err: usecase.ErrRoleExists, Status: http.StatusConflict, Message: "role name already taken"},
		}, http.StatusInternalServerError, "failed to update role")
		return
	}

	c.JSON(http.StatusOK, toRolePayload(role))
}

// Delete removes a role and clears its assignments.
func (h *RoleHandler) Delete(c *gin.Context) {
	if err := h.roles.DeleteRole(c.Request.Context(), c.Param("id")); err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrRoleNotFound, Status: http.StatusNotFound, Message: "role not found"},
		}, http.StatusInternalServerError, "failed to delete role")
		return
	}
	c.Status(http.StatusNoContent)
}

// ListPermissions returns the permissions granted to a role.
func (h *RoleHandler) ListPermissions(c *gin.Context) {
	permissions, err := h.roles.ListRolePermissions(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrRoleNotFound, Status: http.StatusNotFound, Message: "role not found"},
		}, http.StatusInternalServerError, "failed to list role permissions")
		return
	}

	payload := make([]PermissionPayload, 0, len(permissions))
	for _, permission := range permissions {
		payload = append(payload, toPermissionPayload(permission))
	}
	c.JSON(http.StatusOK, payload)
}

// GrantPermissions adds named permissions to a role.
func (h *RoleHandler) GrantPermissions(c *gin.Context) {
	var req RolePermissionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid permissions payload"))
		return
	}

	granted, err := h.roles.GrantPermissions(c.Request.Context(), c.Param("id"), req.Permissions)
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrRoleNotFound, Status: http.StatusNotFound, Message: "role not found"},
			{Err: usecase.ErrPermissionNotFound, Status: http.StatusBadRequest, Message: "unknown permission"},
		}, http.StatusInternalServerError, "failed to grant permissions")
		return
	}

	c.JSON(http.StatusOK, RolePermissionsResponse{Changed: granted})
}

// RevokePermissions removes named permissions from a role.
func (h *RoleHandler) RevokePermissions(c *gin.Context) {
	var req RolePermissionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid permissions payload"))
		return
	}

	revoked, err := h.roles.RevokePermissions(c.Request.Context(), c.Param("id"), req.Permissions)
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrRoleNotFound, Status: http.StatusNotFound, Message: "role not found"},
			{Err: usecase.ErrPermissionNotFound, Status: http.StatusBadRequest, Message: "unknown permission"},
		}, http.StatusInternalServerError, "failed to revoke permissions")
		return
	}

	c.JSON(http.StatusOK, RolePermissionsResponse{Changed: revoked})
}

// Assign grants the role to a user.
func (h *RoleHandler) Assign(c *gin.Context) {
	var req RoleAssignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid assignment payload"))
		return
	}

	if err := h.roles.AssignRole(c.Request.Context(), req.UserID, c.Param("id"), req.Replace); err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrRoleNotFound, Status: http.StatusNotFound, Message: "role not found"},
			{Err: usecase.ErrUserNotFound, Status: http.StatusBadRequest, Message: "user not found"},
		}, http.StatusInternalServerError, "failed to assign role")
		return
	}

	c.Status(http.StatusNoContent)
}

// Unassign removes the role from a user.
func (h *RoleHandler) Unassign(c *gin.Context) {
	if err := h.roles.UnassignRole(c.Request.Context(), c.Param("user_id"), c.Param("id")); err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrRoleNotFound, Status: http.StatusNotFound, Message: "assignment not found"},
		}, http.StatusInternalServerError, "failed to unassign role")
		return
	}
	c.Status(http.StatusNoContent)
}
