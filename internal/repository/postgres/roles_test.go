package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v2"

	"github.com/docplatform/authz-service/internal/core/domain"
	"github.com/docplatform/authz-service/internal/repository"
)

func newRoleRepoMock(t *testing.T) (pgxmock.PgxPoolIface, *RoleRepository) {
	t.Helper()

	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	t.Cleanup(mock.Close)

	return mock, NewRoleRepository(mock)
}

func TestRoleRepository_Create(t *testing.T) {
	mock, repo := newRoleRepoMock(t)

	description := "Full administrative access"
	role := domain.Role{
		ID:          "role-1",
		Name:        "admin",
		Description: &description,
	}

	mock.ExpectExec(`INSERT INTO authz\.roles`).
		WithArgs(role.ID, role.Name, role.Description).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	if err := repo.Create(context.Background(), role); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRoleRepository_CreateDuplicateMapsToConflict(t *testing.T) {
	mock, repo := newRoleRepoMock(t)

	mock.ExpectExec(`INSERT INTO authz\.roles`).
		WithArgs("role-1", "admin", (*string)(nil)).
		WillReturnError(&pgconn.PgError{Code: "23505"})

	err := repo.Create(context.Background(), domain.Role{ID: "role-1", Name: "admin"})
	if !errors.Is(err, repository.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestRoleRepository_GetByName(t *testing.T) {
	mock, repo := newRoleRepoMock(t)

	rows := pgxmock.NewRows([]string{"id", "name", "description"}).
		AddRow("role-1", "admin", "Full administrative access")

	mock.ExpectQuery(`SELECT id, name, description FROM authz\.roles`).
		WithArgs("admin").
		WillReturnRows(rows)

	role, err := repo.GetByName(context.Background(), "admin")
	if err != nil {
		t.Fatalf("GetByName returned error: %v", err)
	}
	if role.ID != "role-1" {
		t.Fatalf("expected role id role-1, got %s", role.ID)
	}
	if role.Description == nil || *role.Description != "Full administrative access" {
		t.Fatalf("expected description to be populated")
	}
}

func TestRoleRepository_GetByIDNotFound(t *testing.T) {
	mock, repo := newRoleRepoMock(t)

	mock.ExpectQuery(`SELECT id, name, description FROM authz\.roles`).
		WithArgs("missing").
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "description"}))

	_, err := repo.GetByID(context.Background(), "missing")
	if !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRoleRepository_UpdateMissingRowIsNotFound(t *testing.T) {
	mock, repo := newRoleRepoMock(t)

	role := domain.Role{ID: "missing", Name: "renamed"}

	mock.ExpectExec(`UPDATE authz\.roles`).
		WithArgs(role.Name, role.Description, role.ID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	if err := repo.Update(context.Background(), role); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRoleRepository_AssignPermissionsReportsInsertedCount(t *testing.T) {
	mock, repo := newRoleRepoMock(t)

	mock.ExpectExec(`INSERT INTO authz\.role_permissions`).
		WithArgs("role-1", "perm-1", "role-1", "perm-2").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	inserted, err := repo.AssignPermissions(context.Background(), "role-1", []string{"perm-1", "perm-2"})
	if err != nil {
		t.Fatalf("AssignPermissions returned error: %v", err)
	}
	if inserted != 1 {
		t.Fatalf("expected 1 inserted row, got %d", inserted)
	}
}

func TestRoleRepository_AssignPermissionsEmptyIsNoop(t *testing.T) {
	mock, repo := newRoleRepoMock(t)

	inserted, err := repo.AssignPermissions(context.Background(), "role-1", nil)
	if err != nil {
		t.Fatalf("AssignPermissions returned error: %v", err)
	}
	if inserted != 0 {
		t.Fatalf("expected no insertions, got %d", inserted)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expected no statements to run: %v", err)
	}
}

func TestRoleRepository_AssignToUserReplaceClearsFirst(t *testing.T) {
	mock, repo := newRoleRepoMock(t)

	mock.ExpectExec(`DELETE FROM authz\.user_roles`).
		WithArgs("user-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectExec(`INSERT INTO authz\.user_roles`).
		WithArgs("user-1", "role-1", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	if err := repo.AssignToUser(context.Background(), "user-1", "role-1", true); err != nil {
		t.Fatalf("AssignToUser returned error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRoleRepository_UnassignMissingAssignment(t *testing.T) {
	mock, repo := newRoleRepoMock(t)

	mock.ExpectExec(`DELETE FROM authz\.user_roles`).
		WithArgs("role-1", "user-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	if err := repo.UnassignFromUser(context.Background(), "user-1", "role-1"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRoleRepository_ListByUser(t *testing.T) {
	mock, repo := newRoleRepoMock(t)

	rows := pgxmock.NewRows([]string{"id", "name", "description"}).
		AddRow("role-2", "guest", nil).
		AddRow("role-1", "user", "Standard access")

	mock.ExpectQuery(`SELECT r\.id, r\.name, r\.description FROM authz\.roles r JOIN authz\.user_roles ur`).
		WithArgs("user-1").
		WillReturnRows(rows)

	roles, err := repo.ListByUser(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("ListByUser returned error: %v", err)
	}
	if len(roles) != 2 {
		t.Fatalf("expected 2 roles, got %d", len(roles))
	}
	if roles[0].Name != "guest" || roles[1].Name != "user" {
		t.Fatalf("unexpected role names: %s, %s", roles[0].Name, roles[1].Name)
	}
	if roles[0].Description != nil {
		t.Fatalf("expected nil description for guest")
	}
}
