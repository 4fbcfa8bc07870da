package postgres

import (
	"context"
	"errors"
	"fmt"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/docplatform/authz-service/internal/core/domain"
	"github.com/docplatform/authz-service/internal/core/port"
	"github.com/docplatform/authz-service/internal/repository"
)

// CatalogStore runs catalog seeding inside a single transaction so a failed
// bootstrap never leaves a partially seeded catalog behind.
type CatalogStore struct {
	pool *pgxpool.Pool
}

// NewCatalogStore constructs a PostgreSQL-backed catalog store.
func NewCatalogStore(pool *pgxpool.Pool) *CatalogStore {
	return &CatalogStore{pool: pool}
}

// InTx begins a transaction, hands fn a transaction-bound CatalogTx, and
// commits only when fn succeeds.
func (s *CatalogStore) InTx(ctx context.Context, fn func(tx port.CatalogTx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin catalog tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	catalogTx := &catalogTx{
		roles:       NewRoleRepository(s.pool).WithTx(tx),
		permissions: NewPermissionRepository(s.pool).WithTx(tx),
		builder:     squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
		tx:          tx,
	}

	if err := fn(catalogTx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit catalog tx: %w", err)
	}

	return nil
}

type catalogTx struct {
	roles       *RoleRepository
	permissions *PermissionRepository
	builder     squirrel.StatementBuilderType
	tx          pgx.Tx
}

// EnsureRole creates the role when absent. The insert uses ON CONFLICT so
// concurrent bootstraps converge instead of racing on duplicates.
func (c *catalogTx) EnsureRole(ctx context.Context, role domain.Role) (domain.Role, error) {
	stmt, args, err := c.builder.Insert("authz.roles").
		Columns("id", "name", "description").
		Values(role.ID, role.Name, role.Description).
		Suffix("ON CONFLICT (name) DO NOTHING").
		ToSql()
	if err != nil {
		return domain.Role{}, fmt.Errorf("build ensure role sql: %w", err)
	}

	if _, err := c.tx.Exec(ctx, stmt, args...); err != nil {
		return domain.Role{}, fmt.Errorf("ensure role %q: %w", role.Name, err)
	}

	existing, err := c.roles.GetByName(ctx, role.Name)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.Role{}, fmt.Errorf("ensure role %q: row missing after upsert", role.Name)
		}
		return domain.Role{}, err
	}

	return *existing, nil
}

// EnsurePermission creates the permission when absent.
func (c *catalogTx) EnsurePermission(ctx context.Context, permission domain.Permission) (domain.Permission, error) {
	stmt, args, err := c.builder.Insert("authz.permissions").
		Columns("id", "name", "resource", "action", "description").
		Values(permission.ID, permission.Name, permission.Resource, permission.Action, permission.Description).
		Suffix("ON CONFLICT (name) DO NOTHING").
		ToSql()
	if err != nil {
		return domain.Permission{}, fmt.Errorf("build ensure permission sql: %w", err)
	}

	if _, err := c.tx.Exec(ctx, stmt, args...); err != nil {
		return domain.Permission{}, fmt.Errorf("ensure permission %q: %w", permission.Name, err)
	}

	existing, err := c.permissions.GetByName(ctx, permission.Name)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.Permission{}, fmt.Errorf("ensure permission %q: row missing after upsert", permission.Name)
		}
		return domain.Permission{}, err
	}

	return *existing, nil
}

// ReplaceRolePermissions overwrites the role's permission set with exactly the
// provided IDs.
func (c *catalogTx) ReplaceRolePermissions(ctx context.Context, roleID string, permissionIDs []string) error {
	clearStmt, clearArgs, err := c.builder.Delete("authz.role_permissions").
		Where(squirrel.Eq{"role_id": roleID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build clear role permissions sql: %w", err)
	}

	if _, err := c.tx.Exec(ctx, clearStmt, clearArgs...); err != nil {
		return fmt.Errorf("clear role permissions: %w", err)
	}

	if _, err := c.roles.AssignPermissions(ctx, roleID, permissionIDs); err != nil {
		return err
	}

	return nil
}

var _ port.CatalogStore = (*CatalogStore)(nil)
