package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/docplatform/authz-service/internal/core/domain"
	"github.com/docplatform/authz-service/internal/repository"
)

type roleRepoMock struct {
	roles          map[string]domain.Role
	rolesByName    map[string]domain.Role
	rolePerms      map[string][]string
	userRoles      map[string][]string
	clearedOnDrop  map[string][]string
	createErr      error
	deleteErr      error
	assignUserErr  error
	lastReplace    bool
	assignedUserID string
}

func newRoleRepoMock() *roleRepoMock {
	return &roleRepoMock{
		roles:         make(map[string]domain.Role),
		rolesByName:   make(map[string]domain.Role),
		rolePerms:     make(map[string][]string),
		userRoles:     make(map[string][]string),
		clearedOnDrop: make(map[string][]string),
	}
}

func (m *roleRepoMock) seed(role domain.Role) {
	m.roles[role.ID] = role
	m.rolesByName[role.Name] = role
}

func (m *roleRepoMock) Create(_ context.Context, role domain.Role) error {
	if m.createErr != nil {
		return m.createErr
	}
	if _, exists := m.rolesByName[role.Name]; exists {
		return repository.ErrConflict
	}
	m.seed(role)
	return nil
}

func (m *roleRepoMock) List(_ context.Context) ([]domain.Role, error) {
	roles := make([]domain.Role, 0, len(m.roles))
	for _, role := range m.roles {
		roles = append(roles, role)
	}
	return roles, nil
}

func (m *roleRepoMock) GetByID(_ context.Context, id string) (*domain.Role, error) {
	if role, ok := m.roles[id]; ok {
		return &role, nil
	}
	return nil, repository.ErrNotFound
}

func (m *roleRepoMock) GetByName(_ context.Context, name string) (*domain.Role, error) {
	if role, ok := m.rolesByName[name]; ok {
		return &role, nil
	}
	return nil, repository.ErrNotFound
}

func (m *roleRepoMock) Update(_ context.Context, role domain.Role) error {
	existing, ok := m.roles[role.ID]
	if !ok {
		return repository.ErrNotFound
	}
	delete(m.rolesByName, existing.Name)
	m.seed(role)
	return nil
}

func (m *roleRepoMock) DeleteCascade(_ context.Context, id string) ([]string, error) {
	if m.deleteErr != nil {
		return nil, m.deleteErr
	}
	role, ok := m.roles[id]
	if !ok {
		return nil, repository.ErrNotFound
	}

	cleared := make([]string, 0)
	for userID, roleIDs := range m.userRoles {
		remaining := roleIDs[:0]
		for _, roleID := range roleIDs {
			if roleID == id {
				cleared = append(cleared, userID)
				continue
			}
			remaining = append(remaining, roleID)
		}
		m.userRoles[userID] = remaining
	}

	delete(m.roles, id)
	delete(m.rolesByName, role.Name)
	delete(m.rolePerms, id)
	m.clearedOnDrop[id] = cleared
	return cleared, nil
}

func (m *roleRepoMock) AssignPermissions(_ context.Context, roleID string, permissionIDs []string) (int, error) {
	existing := make(map[string]struct{}, len(m.rolePerms[roleID]))
	for _, id := range m.rolePerms[roleID] {
		existing[id] = struct{}{}
	}

	added := 0
	for _, id := range permissionIDs {
		if _, ok := existing[id]; ok {
			continue
		}
		m.rolePerms[roleID] = append(m.rolePerms[roleID], id)
		added++
	}
	return added, nil
}

func (m *roleRepoMock) RevokePermissions(_ context.Context, roleID string, permissionIDs []string) (int, error) {
	drop := make(map[string]struct{}, len(permissionIDs))
	for _, id := range permissionIDs {
		drop[id] = struct{}{}
	}

	remaining := make([]string, 0, len(m.rolePerms[roleID]))
	revoked := 0
	for _, id := range m.rolePerms[roleID] {
		if _, ok := drop[id]; ok {
			revoked++
			continue
		}
		remaining = append(remaining, id)
	}
	m.rolePerms[roleID] = remaining
	return revoked, nil
}

func (m *roleRepoMock) AssignToUser(_ context.Context, userID, roleID string, replace bool) error {
	if m.assignUserErr != nil {
		return m.assignUserErr
	}
	m.lastReplace = replace
	m.assignedUserID = userID
	if replace {
		m.userRoles[userID] = nil
	}
	m.userRoles[userID] = append(m.userRoles[userID], roleID)
	return nil
}

func (m *roleRepoMock) UnassignFromUser(_ context.Context, userID, roleID string) error {
	roleIDs := m.userRoles[userID]
	for i, id := range roleIDs {
		if id == roleID {
			m.userRoles[userID] = append(roleIDs[:i], roleIDs[i+1:]...)
			return nil
		}
	}
	return repository.ErrNotFound
}

func (m *roleRepoMock) ListByUser(_ context.Context, userID string) ([]domain.Role, error) {
	roles := make([]domain.Role, 0, len(m.userRoles[userID]))
	for _, roleID := range m.userRoles[userID] {
		if role, ok := m.roles[roleID]; ok {
			roles = append(roles, role)
		}
	}
	return roles, nil
}

type permissionRepoMock struct {
	permissionClosureStub
	byName map[string]domain.Permission
}

func (m *permissionRepoMock) GetByName(_ context.Context, name string) (*domain.Permission, error) {
	if permission, ok := m.byName[name]; ok {
		return &permission, nil
	}
	return nil, repository.ErrNotFound
}

type userRepoMock struct {
	users map[string]domain.User
}

func (m *userRepoMock) Create(_ context.Context, user domain.User) error {
	for _, existing := range m.users {
		if existing.Username == user.Username || existing.Email == user.Email {
			return repository.ErrConflict
		}
	}
	if m.users == nil {
		m.users = make(map[string]domain.User)
	}
	m.users[user.ID] = user
	return nil
}

func (m *userRepoMock) GetByID(_ context.Context, id string) (*domain.User, error) {
	if user, ok := m.users[id]; ok {
		return &user, nil
	}
	return nil, repository.ErrNotFound
}

func (m *userRepoMock) GetByIdentifier(_ context.Context, identifier string) (*domain.User, error) {
	for _, user := range m.users {
		if user.Username == identifier || user.Email == identifier {
			return &user, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *userRepoMock) List(_ context.Context, _, _ int) ([]domain.User, error) {
	users := make([]domain.User, 0, len(m.users))
	for _, user := range m.users {
		users = append(users, user)
	}
	return users, nil
}

func (m *userRepoMock) SetActive(_ context.Context, id string, active bool) error {
	user, ok := m.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	user.IsActive = active
	m.users[id] = user
	return nil
}

func (m *userRepoMock) SetSuperuser(_ context.Context, id string, superuser bool) error {
	user, ok := m.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	user.IsSuperuser = superuser
	m.users[id] = user
	return nil
}

type eventPublisherMock struct {
	created  []domain.RoleCreatedEvent
	deleted  []domain.RoleDeletedEvent
	changed  []domain.RolePermissionsChangedEvent
	assigned []domain.RoleAssignedEvent
	err      error
}

func (m *eventPublisherMock) PublishRoleCreated(_ context.Context, event domain.RoleCreatedEvent) error {
	if m.err != nil {
		return m.err
	}
	m.created = append(m.created, event)
	return nil
}

func (m *eventPublisherMock) PublishRoleDeleted(_ context.Context, event domain.RoleDeletedEvent) error {
	if m.err != nil {
		return m.err
	}
	m.deleted = append(m.deleted, event)
	return nil
}

func (m *eventPublisherMock) PublishRolePermissionsChanged(_ context.Context, event domain.RolePermissionsChangedEvent) error {
	if m.err != nil {
		return m.err
	}
	m.changed = append(m.changed, event)
	return nil
}

func (m *eventPublisherMock) PublishRoleAssigned(_ context.Context, event domain.RoleAssignedEvent) error {
	if m.err != nil {
		return m.err
	}
	m.assigned = append(m.assigned, event)
	return nil
}

func newRoleServiceForTest(roles *roleRepoMock, permissions *permissionRepoMock, users *userRepoMock, events *eventPublisherMock) *RoleService {
	return NewRoleService(roles, permissions, users, events, nil)
}

func TestCreateRoleResolvesPermissionsByName(t *testing.T) {
	roles := newRoleRepoMock()
	permissions := &permissionRepoMock{byName: map[string]domain.Permission{
		"document:read": grant(domain.ResourceTypeDocument, ActionRead),
	}}
	events := &eventPublisherMock{}
	service := newRoleServiceForTest(roles, permissions, &userRepoMock{}, events)

	result, err := service.CreateRole(context.Background(), CreateRoleInput{
		Name:            "auditor",
		PermissionNames: []string{"document:read"},
	})
	if err != nil {
		t.Fatalf("CreateRole returned error: %v", err)
	}

	if result.Role.Name != "auditor" {
		t.Fatalf("unexpected role name %q", result.Role.Name)
	}
	if len(result.Permissions) != 1 || result.Permissions[0].Name != "document:read" {
		t.Fatalf("unexpected permissions %v", result.Permissions)
	}
	if got := roles.rolePerms[result.Role.ID]; len(got) != 1 {
		t.Fatalf("expected 1 grant edge, got %d", len(got))
	}
	if len(events.created) != 1 {
		t.Fatalf("expected role created event, got %d", len(events.created))
	}
}

func TestCreateRoleUnknownPermissionFails(t *testing.T) {
	roles := newRoleRepoMock()
	permissions := &permissionRepoMock{byName: map[string]domain.Permission{}}
	service := newRoleServiceForTest(roles, permissions, &userRepoMock{}, nil)

	_, err := service.CreateRole(context.Background(), CreateRoleInput{
		Name:            "auditor",
		PermissionNames: []string{"document:launch"},
	})
	if !errors.Is(err, ErrPermissionNotFound) {
		t.Fatalf("expected ErrPermissionNotFound, got %v", err)
	}
	if len(roles.roles) != 0 {
		t.Fatal("role must not be created when a permission is unknown")
	}
}

func TestCreateRoleDuplicateName(t *testing.T) {
	roles := newRoleRepoMock()
	roles.seed(domain.Role{ID: "r1", Name: "auditor"})
	service := newRoleServiceForTest(roles, &permissionRepoMock{}, &userRepoMock{}, nil)

	_, err := service.CreateRole(context.Background(), CreateRoleInput{Name: "auditor"})
	if !errors.Is(err, ErrRoleExists) {
		t.Fatalf("expected ErrRoleExists, got %v", err)
	}
}

func TestDeleteRoleClearsAssignmentsAtomically(t *testing.T) {
	roles := newRoleRepoMock()
	roles.seed(domain.Role{ID: "r1", Name: "auditor"})
	roles.userRoles["u1"] = []string{"r1"}
	roles.userRoles["u2"] = []string{"r1", "r2"}
	events := &eventPublisherMock{}
	service := newRoleServiceForTest(roles, &permissionRepoMock{}, &userRepoMock{}, events)

	if err := service.DeleteRole(context.Background(), "r1"); err != nil {
		t.Fatalf("DeleteRole returned error: %v", err)
	}

	for userID, roleIDs := range roles.userRoles {
		for _, roleID := range roleIDs {
			if roleID == "r1" {
				t.Fatalf("user %s still references deleted role", userID)
			}
		}
	}

	if len(events.deleted) != 1 {
		t.Fatalf("expected role deleted event, got %d", len(events.deleted))
	}
	if got := events.deleted[0].ClearedUserIDs; len(got) != 2 {
		t.Fatalf("expected 2 cleared users in event, got %v", got)
	}
}

func TestDeleteRoleNotFound(t *testing.T) {
	service := newRoleServiceForTest(newRoleRepoMock(), &permissionRepoMock{}, &userRepoMock{}, nil)

	if err := service.DeleteRole(context.Background(), "missing"); !errors.Is(err, ErrRoleNotFound) {
		t.Fatalf("expected ErrRoleNotFound, got %v", err)
	}
}

func TestAssignRoleReplaceClearsExisting(t *testing.T) {
	roles := newRoleRepoMock()
	roles.seed(domain.Role{ID: "r1", Name: "auditor"})
	roles.seed(domain.Role{ID: "r2", Name: "viewer"})
	roles.userRoles["u1"] = []string{"r2"}
	users := &userRepoMock{users: map[string]domain.User{
		"u1": {ID: "u1", Username: "alice"},
	}}
	events := &eventPublisherMock{}
	service := newRoleServiceForTest(roles, &permissionRepoMock{}, users, events)

	if err := service.AssignRole(context.Background(), "u1", "r1", true); err != nil {
		t.Fatalf("AssignRole returned error: %v", err)
	}

	if got := roles.userRoles["u1"]; len(got) != 1 || got[0] != "r1" {
		t.Fatalf("expected sole assignment r1, got %v", got)
	}
	if len(events.assigned) != 1 || !events.assigned[0].Replaced {
		t.Fatal("expected assigned event with Replaced set")
	}
}

func TestAssignRoleUnknownUser(t *testing.T) {
	roles := newRoleRepoMock()
	roles.seed(domain.Role{ID: "r1", Name: "auditor"})
	service := newRoleServiceForTest(roles, &permissionRepoMock{}, &userRepoMock{}, nil)

	if err := service.AssignRole(context.Background(), "ghost", "r1", false); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestGrantPermissionsSkipsDuplicates(t *testing.T) {
	roles := newRoleRepoMock()
	roles.seed(domain.Role{ID: "r1", Name: "auditor"})
	readGrant := grant(domain.ResourceTypeDocument, ActionRead)
	roles.rolePerms["r1"] = []string{readGrant.ID}
	permissions := &permissionRepoMock{byName: map[string]domain.Permission{
		"document:read":   readGrant,
		"document:update": grant(domain.ResourceTypeDocument, ActionUpdate),
	}}
	events := &eventPublisherMock{}
	service := newRoleServiceForTest(roles, permissions, &userRepoMock{}, events)

	granted, err := service.GrantPermissions(context.Background(), "r1", []string{"document:read", "document:update"})
	if err != nil {
		t.Fatalf("GrantPermissions returned error: %v", err)
	}
	if granted != 1 {
		t.Fatalf("expected 1 new grant, got %d", granted)
	}
	if len(events.changed) != 1 || len(events.changed[0].Granted) != 2 {
		t.Fatal("expected a permissions changed event listing requested names")
	}
}

func TestMutationSucceedsWhenPublishFails(t *testing.T) {
	roles := newRoleRepoMock()
	roles.seed(domain.Role{ID: "r1", Name: "auditor"})
	events := &eventPublisherMock{err: errors.New("broker down")}
	service := newRoleServiceForTest(roles, &permissionRepoMock{}, &userRepoMock{}, events)

	if err := service.DeleteRole(context.Background(), "r1"); err != nil {
		t.Fatalf("expected delete to succeed despite publish failure, got %v", err)
	}
	if _, ok := roles.roles["r1"]; ok {
		t.Fatal("role should be deleted")
	}
}
