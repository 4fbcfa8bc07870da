package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/docplatform/authz-service/internal/transport/http/middleware"
	"github.com/docplatform/authz-service/internal/usecase"
)

// UserHandler serves user lifecycle operations.
type UserHandler struct {
	users       *usecase.UserService
	roles       *usecase.RoleService
	permissions *usecase.PermissionService
}

// NewUserHandler builds a UserHandler.
func NewUserHandler(users *usecase.UserService, roles *usecase.RoleService, permissions *usecase.PermissionService) *UserHandler {
	return &UserHandler{users: users, roles: roles, permissions: permissions}
}

// Create provisions a user.
func (h *UserHandler) Create(c *gin.Context) {
	var req UserCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid user payload"))
		return
	}

	user, err := h.users.CreateUser(c.Request.Context(), usecase.CreateUserInput{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: req.PasswordHash,
		IsSuperuser:  req.IsSuperuser,
	})
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrUserExists, Status: http.StatusConflict, Message: "user already exists"},
		}, http.StatusBadRequest, "invalid user definition")
		return
	}

	c.JSON(http.StatusCreated, toUserPayload(user))
}

// Me returns the authenticated caller's own user record.
func (h *UserHandler) Me(c *gin.Context) {
	subject := middleware.GetSubject(c)
	if subject == nil {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	user, err := h.users.GetUser(c.Request.Context(), subject.ID)
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrUserNotFound, Status: http.StatusNotFound, Message: "user not found"},
		}, http.StatusInternalServerError, "failed to load user")
		return
	}
	c.JSON(http.StatusOK, toUserPayload(*user))
}

// Get returns a user by ID.
func (h *UserHandler) Get(c *gin.Context) {
	user, err := h.users.GetUser(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrUserNotFound, Status: http.StatusNotFound, Message: "user not found"},
		}, http.StatusInternalServerError, "failed to load user")
		return
	}
	c.JSON(http.StatusOK, toUserPayload(*user))
}

// List returns a page of users.
func (h *UserHandler) List(c *gin.Context) {
	limit := queryInt(c, "limit", 50)
	offset := queryInt(c, "offset", 0)

	users, err := h.users.ListUsers(c.Request.Context(), limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to list users"))
		return
	}

	payload := make([]UserPayload, 0, len(users))
	for _, user := range users {
		payload = append(payload, toUserPayload(user))
	}
	c.JSON(http.StatusOK, payload)
}

// SetActive toggles the active flag.
func (h *UserHandler) SetActive(c *gin.Context) {
	var req UserFlagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid flag payload"))
		return
	}

	if err := h.users.SetActive(c.Request.Context(), c.Param("id"), req.Value); err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrUserNotFound, Status: http.StatusNotFound, Message: "user not found"},
		}, http.StatusInternalServerError, "failed to update user")
		return
	}
	c.Status(http.StatusNoContent)
}

// SetSuperuser toggles the superuser bypass flag.
func (h *UserHandler) SetSuperuser(c *gin.Context) {
	var req UserFlagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid flag payload"))
		return
	}

	if err := h.users.SetSuperuser(c.Request.Context(), c.Param("id"), req.Value); err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrUserNotFound, Status: http.StatusNotFound, Message: "user not found"},
		}, http.StatusInternalServerError, "failed to update user")
		return
	}
	c.Status(http.StatusNoContent)
}

// ListRoles returns the user's assigned roles.
func (h *UserHandler) ListRoles(c *gin.Context) {
	roles, err := h.roles.ListUserRoles(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to list user roles"))
		return
	}

	payload := make([]RolePayload, 0, len(roles))
	for _, role := range roles {
		payload = append(payload, toRolePayload(role))
	}
	c.JSON(http.StatusOK, payload)
}

// ListPermissions returns the user's permission closure.
func (h *UserHandler) ListPermissions(c *gin.Context) {
	permissions, err := h.permissions.ListUserPermissions(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to list user permissions"))
		return
	}

	payload := make([]PermissionPayload, 0, len(permissions))
	for _, permission := range permissions {
		payload = append(payload, toPermissionPayload(permission))
	}
	c.JSON(http.StatusOK, payload)
}

func queryInt(c *gin.Context, key string, fallback int) int {
	raw := c.Query(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return fallback
	}
	return value
}
