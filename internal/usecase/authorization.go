package usecase

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/docplatform/authz-service/internal/core/domain"
	"github.com/docplatform/authz-service/internal/core/port"
)

var (
	// ErrUnauthenticated indicates no valid subject could be resolved for the
	// request. Distinct from ErrForbidden: the caller is unknown, not merely
	// lacking a grant.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrForbidden indicates the subject was resolved but lacks the required
	// permission.
	ErrForbidden = errors.New("insufficient permissions")
)

const (
	decisionAllow = "allow"
	decisionDeny  = "deny"
)

// DecisionRecorder receives every evaluator outcome for observability.
type DecisionRecorder interface {
	RecordDecision(decision, resource, action string)
}

// AuthorizationConfig tunes instance-level evaluation.
type AuthorizationConfig struct {
	// OwnershipScopedTypes lists resource types whose instances carry an owner
	// and admit the owner regardless of role grants.
	OwnershipScopedTypes []string
	// GrantOverridesOwnership controls whether a role-level (resource, action)
	// grant authorizes access to instances the subject does not own. The
	// historical behavior is true; setting it false restricts ownership-scoped
	// types to owners and superusers only.
	GrantOverridesOwnership bool
}

// DefaultAuthorizationConfig mirrors the catalog's historical semantics.
func DefaultAuthorizationConfig() AuthorizationConfig {
	return AuthorizationConfig{
		OwnershipScopedTypes:    []string{domain.ResourceTypeDocument},
		GrantOverridesOwnership: true,
	}
}

// AuthorizationService decides whether a subject may perform an action on a
// resource type or instance. It is a pure function of the subject's permission
// closure and the resource; it never mutates catalog state and keeps no state
// between calls beyond the closure it caches on the subject.
type AuthorizationService struct {
	permissions             port.PermissionRepository
	ownershipScoped         map[string]struct{}
	grantOverridesOwnership bool
	recorder                DecisionRecorder
	logger                  *zap.Logger
}

// NewAuthorizationService constructs the evaluator.
func NewAuthorizationService(permissions port.PermissionRepository, cfg AuthorizationConfig, logger *zap.Logger) *AuthorizationService {
	if logger == nil {
		logger = zap.NewNop()
	}

	scoped := make(map[string]struct{}, len(cfg.OwnershipScopedTypes))
	for _, resourceType := range cfg.OwnershipScopedTypes {
		scoped[resourceType] = struct{}{}
	}

	return &AuthorizationService{
		permissions:             permissions,
		ownershipScoped:         scoped,
		grantOverridesOwnership: cfg.GrantOverridesOwnership,
		logger:                  logger,
	}
}

// WithDecisionRecorder attaches a metrics sink for evaluator outcomes.
func (s *AuthorizationService) WithDecisionRecorder(recorder DecisionRecorder) *AuthorizationService {
	s.recorder = recorder
	return s
}

// PermissionsOf returns the subject's permission closure, forcing a repository
// fetch when the subject does not already carry one. A nil closure is never
// interpreted as "no permissions": it means not loaded, and the fetch happens
// here. The loaded closure is cached on the subject for the rest of the
// request.
func (s *AuthorizationService) PermissionsOf(ctx context.Context, subject *domain.Subject) (domain.PermissionSet, error) {
	if subject == nil {
		return nil, ErrUnauthenticated
	}

	if subject.Permissions != nil {
		return subject.Permissions, nil
	}

	permissions, err := s.permissions.ListByUser(ctx, subject.ID)
	if err != nil {
		return nil, fmt.Errorf("load permissions for subject %s: %w", subject.ID, err)
	}

	subject.Permissions = domain.NewPermissionSet(permissions)
	return subject.Permissions, nil
}

// Can reports whether the subject may perform the action on the resource type
// as a class: the collection-level check used to gate creates and as a
// pre-filter before instance checks. A subject with no role holds the empty
// closure and is denied, never errored.
func (s *AuthorizationService) Can(ctx context.Context, subject *domain.Subject, action, resourceType string) (bool, error) {
	if subject == nil {
		return false, ErrUnauthenticated
	}

	if subject.Superuser {
		s.record(decisionAllow, resourceType, action)
		return true, nil
	}

	closure, err := s.PermissionsOf(ctx, subject)
	if err != nil {
		return false, err
	}

	allowed := closure.Has(resourceType, action)
	s.recordOutcome(allowed, resourceType, action)
	return allowed, nil
}

// CanInstance decides access to a concrete resource instance. Two independent
// allowance paths are OR'd: ownership (for ownership-scoped resource types)
// and role-level grants. They serve different resource categories and must not
// be collapsed into one another.
func (s *AuthorizationService) CanInstance(ctx context.Context, subject *domain.Subject, action string, resource domain.Resource) (bool, error) {
	if subject == nil {
		return false, ErrUnauthenticated
	}

	if subject.Superuser {
		s.record(decisionAllow, resource.ResourceType(), action)
		return true, nil
	}

	closure, err := s.PermissionsOf(ctx, subject)
	if err != nil {
		return false, err
	}

	allowed := s.decideInstance(subject, closure, action, resource)
	s.recordOutcome(allowed, resource.ResourceType(), action)
	return allowed, nil
}

// decideInstance is the pure instance-level decision: no I/O, no mutation.
func (s *AuthorizationService) decideInstance(subject *domain.Subject, closure domain.PermissionSet, action string, resource domain.Resource) bool {
	resourceType := resource.ResourceType()
	_, scoped := s.ownershipScoped[resourceType]

	if scoped {
		if owner := resource.OwnerID(); owner != "" && owner == subject.ID {
			return true
		}
		if !s.grantOverridesOwnership {
			return false
		}
	}

	return closure.Has(resourceType, action)
}

// FilterAuthorized returns the candidates the subject may perform the action
// on, preserving input order. Superusers receive the input unchanged. The
// closure is resolved once for the whole pass; candidates are never mutated.
func (s *AuthorizationService) FilterAuthorized(ctx context.Context, subject *domain.Subject, action string, candidates []domain.Resource) ([]domain.Resource, error) {
	if subject == nil {
		return nil, ErrUnauthenticated
	}

	if subject.Superuser {
		return candidates, nil
	}

	closure, err := s.PermissionsOf(ctx, subject)
	if err != nil {
		return nil, err
	}

	authorized := make([]domain.Resource, 0, len(candidates))
	for _, candidate := range candidates {
		if s.decideInstance(subject, closure, action, candidate) {
			authorized = append(authorized, candidate)
		}
	}

	return authorized, nil
}

func (s *AuthorizationService) recordOutcome(allowed bool, resourceType, action string) {
	if allowed {
		s.record(decisionAllow, resourceType, action)
		return
	}
	s.record(decisionDeny, resourceType, action)
}

func (s *AuthorizationService) record(decision, resourceType, action string) {
	if s.recorder == nil {
		return
	}
	s.recorder.RecordDecision(decision, resourceType, action)
}
