package identity

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/docplatform/authz-service/internal/core/domain"
	"github.com/docplatform/authz-service/internal/infra/config"
	"github.com/docplatform/authz-service/internal/repository"
	"github.com/docplatform/authz-service/internal/usecase"
)

type userStoreStub struct {
	users map[string]domain.User
}

func (s *userStoreStub) Create(ctx context.Context, user domain.User) error {
	s.users[user.ID] = user
	return nil
}

func (s *userStoreStub) GetByID(ctx context.Context, id string) (*domain.User, error) {
	user, ok := s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &user, nil
}

func (s *userStoreStub) GetByIdentifier(ctx context.Context, identifier string) (*domain.User, error) {
	for _, user := range s.users {
		if user.Username == identifier || user.Email == identifier {
			u := user
			return &u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *userStoreStub) List(ctx context.Context, limit, offset int) ([]domain.User, error) {
	return nil, errors.New("not implemented")
}

func (s *userStoreStub) SetActive(ctx context.Context, id string, active bool) error {
	return errors.New("not implemented")
}

func (s *userStoreStub) SetSuperuser(ctx context.Context, id string, superuser bool) error {
	return errors.New("not implemented")
}

type roleStoreStub struct {
	byUser map[string][]domain.Role
}

func (s *roleStoreStub) Create(context.Context, domain.Role) error {
	return errors.New("not implemented")
}
func (s *roleStoreStub) List(context.Context) ([]domain.Role, error) {
	return nil, errors.New("not implemented")
}
func (s *roleStoreStub) GetByID(context.Context, string) (*domain.Role, error) {
	return nil, errors.New("not implemented")
}
func (s *roleStoreStub) GetByName(context.Context, string) (*domain.Role, error) {
	return nil, errors.New("not implemented")
}
func (s *roleStoreStub) Update(context.Context, domain.Role) error {
	return errors.New("not implemented")
}
func (s *roleStoreStub) DeleteCascade(context.Context, string) ([]string, error) {
	return nil, errors.New("not implemented")
}
func (s *roleStoreStub) AssignPermissions(context.Context, string, []string) (int, error) {
	return 0, errors.New("not implemented")
}
func (s *roleStoreStub) RevokePermissions(context.Context, string, []string) (int, error) {
	return 0, errors.New("not implemented")
}
func (s *roleStoreStub) AssignToUser(context.Context, string, string, bool) error {
	return errors.New("not implemented")
}
func (s *roleStoreStub) UnassignFromUser(context.Context, string, string) error {
	return errors.New("not implemented")
}

func (s *roleStoreStub) ListByUser(ctx context.Context, userID string) ([]domain.Role, error) {
	return s.byUser[userID], nil
}

func newLocalProviderForTest(t *testing.T) *LocalProvider {
	t.Helper()

	users := &userStoreStub{users: map[string]domain.User{
		"user-1": {
			ID:       "user-1",
			Username: "alice",
			IsActive: true,
		},
	}}
	roles := &roleStoreStub{byUser: map[string][]domain.Role{
		"user-1": {{ID: "role-1", Name: "user"}},
	}}

	provider, err := NewLocalProvider(config.IdentitySettings{
		JWTSecret: "test-secret",
		JWTIssuer: "authz-service",
	}, usecase.NewUserService(users, roles), zap.NewNop())
	if err != nil {
		t.Fatalf("NewLocalProvider returned error: %v", err)
	}

	return provider
}

func TestLocalProviderRoundTrip(t *testing.T) {
	provider := newLocalProviderForTest(t)

	token, err := provider.IssueToken("user-1", time.Minute)
	if err != nil {
		t.Fatalf("IssueToken returned error: %v", err)
	}

	subject, err := provider.ResolveSubject(context.Background(), token)
	if err != nil {
		t.Fatalf("ResolveSubject returned error: %v", err)
	}

	if subject.ID != "user-1" {
		t.Fatalf("expected subject user-1, got %s", subject.ID)
	}
	if !subject.Active {
		t.Fatalf("expected active subject")
	}
	if len(subject.Roles) != 1 || subject.Roles[0] != "user" {
		t.Fatalf("expected role names [user], got %v", subject.Roles)
	}
	if subject.Permissions != nil {
		t.Fatalf("expected the permission closure to remain unloaded")
	}
}

func TestLocalProviderRejectsGarbageToken(t *testing.T) {
	provider := newLocalProviderForTest(t)

	_, err := provider.ResolveSubject(context.Background(), "not-a-jwt")
	if !errors.Is(err, usecase.ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
}

func TestLocalProviderRejectsExpiredToken(t *testing.T) {
	provider := newLocalProviderForTest(t)

	token, err := provider.IssueToken("user-1", -time.Minute)
	if err != nil {
		t.Fatalf("IssueToken returned error: %v", err)
	}

	_, err = provider.ResolveSubject(context.Background(), token)
	if !errors.Is(err, usecase.ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated for expired token, got %v", err)
	}
}

func TestLocalProviderRejectsWrongSecret(t *testing.T) {
	provider := newLocalProviderForTest(t)

	other, err := NewLocalProvider(config.IdentitySettings{
		JWTSecret: "different-secret",
		JWTIssuer: "authz-service",
	}, nil, zap.NewNop())
	if err != nil {
		t.Fatalf("NewLocalProvider returned error: %v", err)
	}

	token, err := other.IssueToken("user-1", time.Minute)
	if err != nil {
		t.Fatalf("IssueToken returned error: %v", err)
	}

	_, err = provider.ResolveSubject(context.Background(), token)
	if !errors.Is(err, usecase.ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated for wrong signature, got %v", err)
	}
}

func TestLocalProviderUnknownUserIsUnauthenticated(t *testing.T) {
	provider := newLocalProviderForTest(t)

	token, err := provider.IssueToken("ghost", time.Minute)
	if err != nil {
		t.Fatalf("IssueToken returned error: %v", err)
	}

	_, err = provider.ResolveSubject(context.Background(), token)
	if !errors.Is(err, usecase.ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated for unknown subject, got %v", err)
	}
}
