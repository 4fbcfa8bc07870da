package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/docplatform/authz-service/internal/core/domain"
	"github.com/docplatform/authz-service/internal/core/port"
	"github.com/docplatform/authz-service/internal/usecase"
)

// ErrorResponse matches the handlers.ErrorResponse structure
type ErrorResponse struct {
	Error   string `json:"error"`
	TraceID string `json:"trace_id,omitempty"`
}

// newErrorResponse creates an error response with trace ID
func newErrorResponse(c *gin.Context, errorMsg string) ErrorResponse {
	return ErrorResponse{
		Error:   errorMsg,
		TraceID: GetTraceID(c),
	}
}

// RequireAuth resolves the Authorization bearer credential into a subject and
// stores it on the request. Resolution failures of any kind abort with 401;
// a resolved but deactivated subject aborts with 403. The gateway never
// forwards a request without a positively resolved, active subject.
func RequireAuth(identity port.IdentityProvider) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				newErrorResponse(c, "missing authorization header"))
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				newErrorResponse(c, "invalid authorization format: expected 'Bearer <token>'"))
			return
		}

		token := strings.TrimSpace(parts[1])
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				newErrorResponse(c, "missing access token"))
			return
		}

		subject, err := identity.ResolveSubject(c.Request.Context(), token)
		if err != nil {
			if errors.Is(err, usecase.ErrUnauthenticated) {
				c.AbortWithStatusJSON(http.StatusUnauthorized,
					newErrorResponse(c, "invalid credentials"))
				return
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError,
				newErrorResponse(c, "authentication failed"))
			return
		}

		if !subject.Active {
			c.AbortWithStatusJSON(http.StatusForbidden,
				newErrorResponse(c, "account is inactive"))
			return
		}

		c.Set(SubjectKey, subject)

		if reqCtx := GetRequestContext(c); reqCtx != nil {
			reqCtx.SubjectID = subject.ID
		}

		c.Next()
	}
}

// RequirePermission gates a route on a collection-level (resource, action)
// grant. Superusers pass; everyone else needs the grant in their closure.
func RequirePermission(authz *usecase.AuthorizationService, action, resource string) gin.HandlerFunc {
	return func(c *gin.Context) {
		subject := GetSubject(c)
		if subject == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				newErrorResponse(c, "authentication required"))
			return
		}

		allowed, err := authz.Can(c.Request.Context(), subject, action, resource)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError,
				newErrorResponse(c, "authorization check failed"))
			return
		}
		if !allowed {
			c.AbortWithStatusJSON(http.StatusForbidden,
				newErrorResponse(c, "insufficient permissions"))
			return
		}

		c.Next()
	}
}

// GetSubject retrieves the resolved subject from the request context, or nil
// when the request is unauthenticated.
func GetSubject(c *gin.Context) *domain.Subject {
	if value, exists := c.Get(SubjectKey); exists {
		if subject, ok := value.(*domain.Subject); ok {
			return subject
		}
	}
	return nil
}
