package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/docplatform/authz-service/internal/usecase"
)

// PermissionHandler serves the permission catalog.
type PermissionHandler struct {
	permissions *usecase.PermissionService
}

// NewPermissionHandler builds a PermissionHandler.
func NewPermissionHandler(permissions *usecase.PermissionService) *PermissionHandler {
	return &PermissionHandler{permissions: permissions}
}

// List returns the whole catalog.
func (h *PermissionHandler) List(c *gin.Context) {
	permissions, err := h.permissions.ListPermissions(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to list permissions"))
		return
	}

	payload := make([]PermissionPayload, 0, len(permissions))
	for _, permission := range permissions {
		payload = append(payload, toPermissionPayload(permission))
	}
	c.JSON(http.StatusOK, payload)
}

// Get returns a permission by ID.
func (h *PermissionHandler) Get(c *gin.Context) {
	permission, err := h.permissions.GetPermission(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrPermissionNotFound, Status: http.StatusNotFound, Message: "permission not found"},
		}, http.StatusInternalServerError, "failed to load permission")
		return
	}
	c.JSON(http.StatusOK, toPermissionPayload(*permission))
}

// Create defines a new (resource, action) permission.
func (h *PermissionHandler) Create(c *gin.Context) {
	var req PermissionCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid permission payload"))
		return
	}

	permission, err := h.permissions.CreatePermission(c.Request.Context(), usecase.CreatePermissionInput{
		Resource:    req.Resource,
		Action:      req.Action,
		Description: req.Description,
	})
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrPermissionExists, Status: http.StatusConflict, Message: "permission already exists"},
		}, http.StatusBadRequest, "invalid permission definition")
		return
	}

	c.JSON(http.StatusCreated, toPermissionPayload(permission))
}

// Delete removes a permission and any role grants referencing it.
func (h *PermissionHandler) Delete(c *gin.Context) {
	if err := h.permissions.DeletePermission(c.Request.Context(), c.Param("id")); err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrPermissionNotFound, Status: http.StatusNotFound, Message: "permission not found"},
		}, http.StatusInternalServerError, "failed to delete permission")
		return
	}
	c.Status(http.StatusNoContent)
}
