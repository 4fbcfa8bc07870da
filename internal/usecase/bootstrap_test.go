package usecase

import (
	"context"
	"errors"
	"sort"
	"testing"

	"github.com/docplatform/authz-service/internal/core/domain"
	"github.com/docplatform/authz-service/internal/core/port"
)

// catalogStoreFake keeps the seeded catalog in memory and snapshots state on
// InTx entry so a failed fn can roll back, mirroring the transactional store.
type catalogStoreFake struct {
	roles       map[string]domain.Role
	permissions map[string]domain.Permission
	roleGrants  map[string][]string
	inTxErr     error
}

func newCatalogStoreFake() *catalogStoreFake {
	return &catalogStoreFake{
		roles:       make(map[string]domain.Role),
		permissions: make(map[string]domain.Permission),
		roleGrants:  make(map[string][]string),
	}
}

func (f *catalogStoreFake) InTx(_ context.Context, fn func(tx port.CatalogTx) error) error {
	if f.inTxErr != nil {
		return f.inTxErr
	}

	snapshot := f.clone()
	if err := fn(&catalogTxFake{store: f}); err != nil {
		f.roles = snapshot.roles
		f.permissions = snapshot.permissions
		f.roleGrants = snapshot.roleGrants
		return err
	}
	return nil
}

func (f *catalogStoreFake) clone() *catalogStoreFake {
	copied := newCatalogStoreFake()
	for name, role := range f.roles {
		copied.roles[name] = role
	}
	for name, permission := range f.permissions {
		copied.permissions[name] = permission
	}
	for roleID, grants := range f.roleGrants {
		copied.roleGrants[roleID] = append([]string(nil), grants...)
	}
	return copied
}

type catalogTxFake struct {
	store *catalogStoreFake
}

func (t *catalogTxFake) EnsureRole(_ context.Context, role domain.Role) (domain.Role, error) {
	if existing, ok := t.store.roles[role.Name]; ok {
		return existing, nil
	}
	t.store.roles[role.Name] = role
	return role, nil
}

func (t *catalogTxFake) EnsurePermission(_ context.Context, permission domain.Permission) (domain.Permission, error) {
	if existing, ok := t.store.permissions[permission.Name]; ok {
		return existing, nil
	}
	t.store.permissions[permission.Name] = permission
	return permission, nil
}

func (t *catalogTxFake) ReplaceRolePermissions(_ context.Context, roleID string, permissionIDs []string) error {
	t.store.roleGrants[roleID] = append([]string(nil), permissionIDs...)
	return nil
}

func (f *catalogStoreFake) grantNames(t *testing.T, roleName string) []string {
	t.Helper()

	role, ok := f.roles[roleName]
	if !ok {
		t.Fatalf("role %q not seeded", roleName)
	}

	idToName := make(map[string]string, len(f.permissions))
	for name, permission := range f.permissions {
		idToName[permission.ID] = name
	}

	names := make([]string, 0, len(f.roleGrants[role.ID]))
	for _, id := range f.roleGrants[role.ID] {
		names = append(names, idToName[id])
	}
	sort.Strings(names)
	return names
}

func TestEnsureDefaultsSeedsCanonicalCatalog(t *testing.T) {
	store := newCatalogStoreFake()
	bootstrapper := NewCatalogBootstrapper(store, nil)

	if err := bootstrapper.EnsureDefaults(context.Background()); err != nil {
		t.Fatalf("EnsureDefaults returned error: %v", err)
	}

	if len(store.permissions) != 12 {
		t.Fatalf("expected 12 seeded permissions, got %d", len(store.permissions))
	}
	if len(store.roles) != 3 {
		t.Fatalf("expected 3 seeded roles, got %d", len(store.roles))
	}

	wantGuest := []string{
		PermissionName(domain.ResourceTypeDocument, ActionRead),
		PermissionName(ResourceTypeUser, ActionRead),
	}
	if got := store.grantNames(t, RoleGuest); !equalStrings(got, wantGuest) {
		t.Fatalf("guest grants = %v, want %v", got, wantGuest)
	}

	if got := store.grantNames(t, RoleAdmin); len(got) != 12 {
		t.Fatalf("expected admin to hold all 12 permissions, got %d: %v", len(got), got)
	}

	wantUser := []string{
		PermissionName(domain.ResourceTypeDocument, ActionCreate),
		PermissionName(domain.ResourceTypeDocument, ActionDelete),
		PermissionName(domain.ResourceTypeDocument, ActionRead),
		PermissionName(domain.ResourceTypeDocument, ActionUpdate),
		PermissionName(ResourceTypeUser, ActionRead),
	}
	if got := store.grantNames(t, RoleUser); !equalStrings(got, wantUser) {
		t.Fatalf("user grants = %v, want %v", got, wantUser)
	}
}

func TestEnsureDefaultsIsIdempotent(t *testing.T) {
	store := newCatalogStoreFake()
	bootstrapper := NewCatalogBootstrapper(store, nil)

	if err := bootstrapper.EnsureDefaults(context.Background()); err != nil {
		t.Fatalf("first run returned error: %v", err)
	}

	firstIDs := make(map[string]string, len(store.permissions))
	for name, permission := range store.permissions {
		firstIDs[name] = permission.ID
	}
	firstAdminGrants := store.grantNames(t, RoleAdmin)

	if err := bootstrapper.EnsureDefaults(context.Background()); err != nil {
		t.Fatalf("second run returned error: %v", err)
	}

	if len(store.permissions) != len(firstIDs) {
		t.Fatalf("second run changed permission count: %d", len(store.permissions))
	}
	for name, permission := range store.permissions {
		if firstIDs[name] != permission.ID {
			t.Fatalf("second run replaced permission %q", name)
		}
	}
	if got := store.grantNames(t, RoleAdmin); !equalStrings(got, firstAdminGrants) {
		t.Fatalf("second run changed admin grants: %v", got)
	}
}

func TestEnsureDefaultsConvergesDriftedRoleSets(t *testing.T) {
	store := newCatalogStoreFake()
	bootstrapper := NewCatalogBootstrapper(store, nil)

	if err := bootstrapper.EnsureDefaults(context.Background()); err != nil {
		t.Fatalf("EnsureDefaults returned error: %v", err)
	}

	// Drift: guest loses everything.
	guest := store.roles[RoleGuest]
	store.roleGrants[guest.ID] = nil

	if err := bootstrapper.EnsureDefaults(context.Background()); err != nil {
		t.Fatalf("EnsureDefaults returned error: %v", err)
	}

	wantGuest := []string{
		PermissionName(domain.ResourceTypeDocument, ActionRead),
		PermissionName(ResourceTypeUser, ActionRead),
	}
	if got := store.grantNames(t, RoleGuest); !equalStrings(got, wantGuest) {
		t.Fatalf("drifted guest grants not restored: %v", got)
	}
}

func TestEnsureDefaultsWrapsFailures(t *testing.T) {
	store := newCatalogStoreFake()
	store.inTxErr = errors.New("connection refused")
	bootstrapper := NewCatalogBootstrapper(store, nil)

	err := bootstrapper.EnsureDefaults(context.Background())
	if !errors.Is(err, ErrCatalogBootstrap) {
		t.Fatalf("expected ErrCatalogBootstrap, got %v", err)
	}
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
