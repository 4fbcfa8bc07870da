package routes_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/docplatform/authz-service/internal/core/domain"
	"github.com/docplatform/authz-service/internal/infra/config"
	httproutes "github.com/docplatform/authz-service/internal/transport/http/routes"
	"github.com/docplatform/authz-service/internal/usecase"
)

type rejectingIdentity struct{}

func (rejectingIdentity) ResolveSubject(context.Context, string) (*domain.Subject, error) {
	return nil, usecase.ErrUnauthenticated
}

func newTestEngine(t *testing.T) *gin.Engine {
	t.Helper()

	gin.SetMode(gin.TestMode)
	logger, _ := zap.NewDevelopment()
	cfg := &config.AppConfig{App: config.AppSettings{Env: "test"}}

	return httproutes.Register(httproutes.Dependencies{
		Config:   cfg,
		Logger:   logger,
		Identity: rejectingIdentity{},
	})
}

func TestHealthEndpoint(t *testing.T) {
	r := newTestEngine(t)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/healthz", nil)

	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
}

func TestProtectedRoutesRequireCredentials(t *testing.T) {
	r := newTestEngine(t)

	paths := []string{"/api/v1/roles", "/api/v1/permissions", "/api/v1/users", "/api/v1/documents"}
	for _, path := range paths {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodGet, path, nil)

		r.ServeHTTP(w, req)

		if w.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401 for %s without credentials, got %d", path, w.Code)
		}
	}
}

func TestProtectedRoutesRejectInvalidToken(t *testing.T) {
	r := newTestEngine(t)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/api/v1/roles", nil)
	req.Header.Set("Authorization", "Bearer not-a-real-token")

	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for invalid token, got %d", w.Code)
	}
}
