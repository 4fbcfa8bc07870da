package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/docplatform/authz-service/internal/core/port"
	"github.com/docplatform/authz-service/internal/usecase"
)

// IntrospectionHandler serves subject introspection to sibling services. The
// response always carries the full permission closure; callers deny on any
// non-2xx status.
type IntrospectionHandler struct {
	identity port.IdentityProvider
	authz    *usecase.AuthorizationService
}

// NewIntrospectionHandler builds an IntrospectionHandler.
func NewIntrospectionHandler(identity port.IdentityProvider, authz *usecase.AuthorizationService) *IntrospectionHandler {
	return &IntrospectionHandler{identity: identity, authz: authz}
}

// Introspect resolves the credential and returns the subject descriptor with
// its loaded closure.
func (h *IntrospectionHandler) Introspect(c *gin.Context) {
	var req IntrospectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid introspection payload"))
		return
	}

	subject, err := h.identity.ResolveSubject(c.Request.Context(), req.Token)
	if err != nil {
		if errors.Is(err, usecase.ErrUnauthenticated) {
			c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "invalid credentials"))
			return
		}
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "introspection failed"))
		return
	}

	closure, err := h.authz.PermissionsOf(c.Request.Context(), subject)
	if err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to load permissions"))
		return
	}

	permissions := make([]PermissionKeyModel, 0, len(closure))
	for _, key := range closure.Keys() {
		permissions = append(permissions, PermissionKeyModel{
			Resource: key.Resource,
			Action:   key.Action,
		})
	}

	roles := subject.Roles
	if roles == nil {
		roles = []string{}
	}

	c.JSON(http.StatusOK, IntrospectResponse{
		SubjectID:   subject.ID,
		Active:      subject.Active,
		Superuser:   subject.Superuser,
		Roles:       roles,
		Permissions: permissions,
	})
}
