package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/docplatform/authz-service/internal/core/domain"
	"github.com/docplatform/authz-service/internal/core/port"
	"github.com/docplatform/authz-service/internal/infra/config"
	"github.com/docplatform/authz-service/internal/usecase"
)

// RemoteProvider resolves subjects by introspecting the credential against an
// external identity service over HTTP. Any failure mode denies: transport
// errors, timeouts, non-2xx responses, and malformed bodies all resolve to
// ErrUnauthenticated rather than a degraded subject.
type RemoteProvider struct {
	url    string
	client *http.Client
	log    *zap.Logger
}

// NewRemoteProvider constructs a RemoteProvider.
func NewRemoteProvider(cfg config.IdentitySettings, log *zap.Logger) (*RemoteProvider, error) {
	if cfg.IntrospectionURL == "" {
		return nil, fmt.Errorf("identity.introspection_url is required in remote mode")
	}
	if log == nil {
		log = zap.NewNop()
	}

	timeout := cfg.IntrospectionTimeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}

	return &RemoteProvider{
		url:    cfg.IntrospectionURL,
		client: &http.Client{Timeout: timeout},
		log:    log,
	}, nil
}

type introspectionRequest struct {
	Token string `json:"token"`
}

// introspectionResponse is the wire shape served by a sibling authorization
// service's introspect endpoint. Permissions carry the full closure so the
// resolved subject never needs a local catalog lookup.
type introspectionResponse struct {
	SubjectID   string   `json:"subject_id"`
	Active      bool     `json:"active"`
	Superuser   bool     `json:"superuser"`
	Roles       []string `json:"roles"`
	Permissions []struct {
		Resource string `json:"resource"`
		Action   string `json:"action"`
	} `json:"permissions"`
}

// ResolveSubject introspects the credential remotely.
func (p *RemoteProvider) ResolveSubject(ctx context.Context, credential string) (*domain.Subject, error) {
	body, err := json.Marshal(introspectionRequest{Token: credential})
	if err != nil {
		return nil, fmt.Errorf("marshal introspection request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build introspection request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		p.log.Warn("introspection call failed", zap.Error(err))
		return nil, usecase.ErrUnauthenticated
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		p.log.Debug("introspection rejected credential", zap.Int("status", resp.StatusCode))
		return nil, usecase.ErrUnauthenticated
	}

	var payload introspectionResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		p.log.Warn("introspection response malformed", zap.Error(err))
		return nil, usecase.ErrUnauthenticated
	}

	if payload.SubjectID == "" {
		return nil, usecase.ErrUnauthenticated
	}

	// The closure arrives with the response, so it is always non-nil here;
	// the evaluator will never guess empty for a remote subject.
	permissions := make(domain.PermissionSet, len(payload.Permissions))
	for _, grant := range payload.Permissions {
		permissions[domain.PermissionKey{Resource: grant.Resource, Action: grant.Action}] = struct{}{}
	}

	return &domain.Subject{
		ID:          payload.SubjectID,
		Active:      payload.Active,
		Superuser:   payload.Superuser,
		Roles:       payload.Roles,
		Permissions: permissions,
	}, nil
}

var _ port.IdentityProvider = (*RemoteProvider)(nil)
