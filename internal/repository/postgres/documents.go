package postgres

import (
	"context"
	"fmt"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/docplatform/authz-service/internal/core/domain"
	"github.com/docplatform/authz-service/internal/core/port"
	"github.com/docplatform/authz-service/internal/repository"
)

const documentColumns = "id, name, content_type, storage_key, owner_id, size_bytes, created_at, updated_at"

// DocumentRepository implements port.DocumentRepository over PostgreSQL.
type DocumentRepository struct {
	pool    *pgxpool.Pool
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewDocumentRepository constructs a document repository instance.
func NewDocumentRepository(exec pgExecutor) *DocumentRepository {
	repo := &DocumentRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
	if pool, ok := exec.(*pgxpool.Pool); ok {
		repo.pool = pool
	}
	return repo
}

// WithTx returns a repository configured to execute within the provided transaction.
func (r *DocumentRepository) WithTx(tx pgx.Tx) *DocumentRepository {
	if tx == nil {
		return r
	}
	return &DocumentRepository{
		pool:    r.pool,
		exec:    tx,
		builder: r.builder,
	}
}

// Create inserts a document metadata row.
func (r *DocumentRepository) Create(ctx context.Context, document domain.Document) error {
	stmt, args, err := r.builder.Insert("authz.documents").
		Columns("id", "name", "content_type", "storage_key", "owner_id", "size_bytes", "created_at", "updated_at").
		Values(
			document.ID,
			document.Name,
			document.ContentType,
			document.StorageKey,
			document.Owner,
			document.SizeBytes,
			document.CreatedAt,
			document.UpdatedAt,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert document sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("insert document: %w", mapWriteError(err))
	}

	return nil
}

// GetByID retrieves a document by its ID.
func (r *DocumentRepository) GetByID(ctx context.Context, id string) (*domain.Document, error) {
	stmt, args, err := r.builder.Select(documentColumns).
		From("authz.documents").
		Where(squirrel.Eq{"id": id}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select document sql: %w", err)
	}

	row := r.exec.QueryRow(ctx, stmt, args...)

	var document domain.Document
	if err := row.Scan(
		&document.ID,
		&document.Name,
		&document.ContentType,
		&document.StorageKey,
		&document.Owner,
		&document.SizeBytes,
		&document.CreatedAt,
		&document.UpdatedAt,
	); err != nil {
		if err == pgx.ErrNoRows {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan document: %w", err)
	}

	return &document, nil
}

// List returns documents ordered by creation time, newest first.
func (r *DocumentRepository) List(ctx context.Context, limit, offset int) ([]domain.Document, error) {
	return r.list(ctx, nil, limit, offset)
}

// ListByOwner returns documents belonging to the given owner.
func (r *DocumentRepository) ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]domain.Document, error) {
	return r.list(ctx, squirrel.Eq{"owner_id": ownerID}, limit, offset)
}

func (r *DocumentRepository) list(ctx context.Context, where any, limit, offset int) ([]domain.Document, error) {
	query := r.builder.Select(documentColumns).
		From("authz.documents").
		OrderBy("created_at DESC")

	if where != nil {
		query = query.Where(where)
	}
	if limit > 0 {
		query = query.Limit(uint64(limit))
	}
	if offset > 0 {
		query = query.Offset(uint64(offset))
	}

	stmt, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list documents sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}
	defer rows.Close()

	documents := make([]domain.Document, 0)
	for rows.Next() {
		var document domain.Document
		if err := rows.Scan(
			&document.ID,
			&document.Name,
			&document.ContentType,
			&document.StorageKey,
			&document.Owner,
			&document.SizeBytes,
			&document.CreatedAt,
			&document.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		documents = append(documents, document)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}

	return documents, nil
}

// Update modifies mutable document metadata.
func (r *DocumentRepository) Update(ctx context.Context, document domain.Document) error {
	stmt, args, err := r.builder.Update("authz.documents").
		Set("name", document.Name).
		Set("content_type", document.ContentType).
		Set("updated_at", document.UpdatedAt).
		Where(squirrel.Eq{"id": document.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update document sql: %w", err)
	}

	res, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("update document: %w", err)
	}

	if res.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// Delete removes a document metadata row.
func (r *DocumentRepository) Delete(ctx context.Context, id string) error {
	stmt, args, err := r.builder.Delete("authz.documents").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete document sql: %w", err)
	}

	res, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}

	if res.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

var _ port.DocumentRepository = (*DocumentRepository)(nil)
