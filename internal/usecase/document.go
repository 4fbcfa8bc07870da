package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	uuid "github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/docplatform/authz-service/internal/core/domain"
	"github.com/docplatform/authz-service/internal/core/port"
	"github.com/docplatform/authz-service/internal/repository"
)

// ErrDocumentNotFound is returned when the referenced document does not exist.
var ErrDocumentNotFound = errors.New("document not found")

const presignedURLTTL = 15 * time.Minute

// UploadDocumentInput captures a document upload.
type UploadDocumentInput struct {
	Name        string
	ContentType string
	Body        io.Reader
	SizeBytes   int64
}

// DocumentService stores document payloads in the blob store, keeps metadata
// in the database, and runs every access through the policy evaluator.
type DocumentService struct {
	documents port.DocumentRepository
	blobs     port.BlobStore
	authz     *AuthorizationService
	logger    *zap.Logger
}

// NewDocumentService constructs a DocumentService.
func NewDocumentService(documents port.DocumentRepository, blobs port.BlobStore, authz *AuthorizationService, logger *zap.Logger) *DocumentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DocumentService{documents: documents, blobs: blobs, authz: authz, logger: logger}
}

// Upload stores the payload and its metadata. Requires the collection-level
// create grant; the uploader becomes the owner.
func (s *DocumentService) Upload(ctx context.Context, subject *domain.Subject, input UploadDocumentInput) (domain.Document, error) {
	allowed, err := s.authz.Can(ctx, subject, ActionCreate, domain.ResourceTypeDocument)
	if err != nil {
		return domain.Document{}, err
	}
	if !allowed {
		return domain.Document{}, ErrForbidden
	}

	name := strings.TrimSpace(input.Name)
	if name == "" {
		return domain.Document{}, fmt.Errorf("document name is required")
	}

	now := time.Now().UTC()
	document := domain.Document{
		ID:          uuid.NewString(),
		Name:        name,
		ContentType: input.ContentType,
		Owner:       subject.ID,
		SizeBytes:   input.SizeBytes,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	document.StorageKey = fmt.Sprintf("documents/%s", document.ID)

	if err := s.blobs.Upload(ctx, document.StorageKey, input.Body, input.ContentType); err != nil {
		return domain.Document{}, fmt.Errorf("upload document payload: %w", err)
	}

	if err := s.documents.Create(ctx, document); err != nil {
		if deleteErr := s.blobs.Delete(ctx, document.StorageKey); deleteErr != nil {
			s.logger.Warn("orphaned blob after failed metadata insert",
				zap.String("storage_key", document.StorageKey),
				zap.Error(deleteErr),
			)
		}
		return domain.Document{}, fmt.Errorf("insert document metadata: %w", err)
	}

	return document, nil
}

// Get returns the document when the subject may read that specific instance.
func (s *DocumentService) Get(ctx context.Context, subject *domain.Subject, id string) (*domain.Document, error) {
	document, err := s.lookup(ctx, id)
	if err != nil {
		return nil, err
	}

	allowed, err := s.authz.CanInstance(ctx, subject, ActionRead, *document)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, ErrForbidden
	}

	return document, nil
}

// DownloadURL returns a time-limited payload URL after an instance-level read
// check.
func (s *DocumentService) DownloadURL(ctx context.Context, subject *domain.Subject, id string) (string, error) {
	document, err := s.Get(ctx, subject, id)
	if err != nil {
		return "", err
	}

	url, err := s.blobs.PresignGet(ctx, document.StorageKey, presignedURLTTL)
	if err != nil {
		return "", fmt.Errorf("presign document payload: %w", err)
	}

	return url, nil
}

// List returns the page of documents the subject is authorized to read,
// preserving storage order.
func (s *DocumentService) List(ctx context.Context, subject *domain.Subject, limit, offset int) ([]domain.Document, error) {
	documents, err := s.documents.List(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}

	candidates := make([]domain.Resource, 0, len(documents))
	for _, document := range documents {
		candidates = append(candidates, document)
	}

	authorized, err := s.authz.FilterAuthorized(ctx, subject, ActionRead, candidates)
	if err != nil {
		return nil, err
	}

	visible := make([]domain.Document, 0, len(authorized))
	for _, candidate := range authorized {
		visible = append(visible, candidate.(domain.Document))
	}

	return visible, nil
}

// Update renames a document after an instance-level update check.
func (s *DocumentService) Update(ctx context.Context, subject *domain.Subject, id, name string) (*domain.Document, error) {
	document, err := s.lookup(ctx, id)
	if err != nil {
		return nil, err
	}

	allowed, err := s.authz.CanInstance(ctx, subject, ActionUpdate, *document)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, ErrForbidden
	}

	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return nil, fmt.Errorf("document name is required")
	}

	document.Name = trimmed
	document.UpdatedAt = time.Now().UTC()

	if err := s.documents.Update(ctx, *document); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrDocumentNotFound
		}
		return nil, fmt.Errorf("update document: %w", err)
	}

	return document, nil
}

// Delete removes the metadata row first, then the payload. A failed blob
// delete leaves an unreachable object behind, which is preferable to metadata
// pointing at a missing payload.
func (s *DocumentService) Delete(ctx context.Context, subject *domain.Subject, id string) error {
	document, err := s.lookup(ctx, id)
	if err != nil {
		return err
	}

	allowed, err := s.authz.CanInstance(ctx, subject, ActionDelete, *document)
	if err != nil {
		return err
	}
	if !allowed {
		return ErrForbidden
	}

	if err := s.documents.Delete(ctx, document.ID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrDocumentNotFound
		}
		return fmt.Errorf("delete document: %w", err)
	}

	if err := s.blobs.Delete(ctx, document.StorageKey); err != nil {
		s.logger.Warn("orphaned blob after metadata delete",
			zap.String("storage_key", document.StorageKey),
			zap.Error(err),
		)
	}

	return nil
}

func (s *DocumentService) lookup(ctx context.Context, id string) (*domain.Document, error) {
	document, err := s.documents.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrDocumentNotFound
		}
		return nil, fmt.Errorf("lookup document: %w", err)
	}
	return document, nil
}
