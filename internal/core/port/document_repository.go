package port

import (
	"context"

	"github.com/docplatform/authz-service/internal/core/domain"
)

// DocumentRepository persists document metadata rows.
type DocumentRepository interface {
	Create(ctx context.Context, document domain.Document) error
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	List(ctx context.Context, limit, offset int) ([]domain.Document, error)
	ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]domain.Document, error)
	Update(ctx context.Context, document domain.Document) error
	Delete(ctx context.Context, id string) error
}
