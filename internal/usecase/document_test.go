package usecase

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/docplatform/authz-service/internal/core/domain"
	"github.com/docplatform/authz-service/internal/repository"
)

type documentRepoMock struct {
	documents map[string]domain.Document
	order     []string
	createErr error
}

func newDocumentRepoMock() *documentRepoMock {
	return &documentRepoMock{documents: make(map[string]domain.Document)}
}

func (m *documentRepoMock) seed(document domain.Document) {
	m.documents[document.ID] = document
	m.order = append(m.order, document.ID)
}

func (m *documentRepoMock) Create(_ context.Context, document domain.Document) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.seed(document)
	return nil
}

func (m *documentRepoMock) GetByID(_ context.Context, id string) (*domain.Document, error) {
	if document, ok := m.documents[id]; ok {
		return &document, nil
	}
	return nil, repository.ErrNotFound
}

func (m *documentRepoMock) List(_ context.Context, _, _ int) ([]domain.Document, error) {
	documents := make([]domain.Document, 0, len(m.order))
	for _, id := range m.order {
		if document, ok := m.documents[id]; ok {
			documents = append(documents, document)
		}
	}
	return documents, nil
}

func (m *documentRepoMock) ListByOwner(_ context.Context, ownerID string, _, _ int) ([]domain.Document, error) {
	documents := make([]domain.Document, 0)
	for _, id := range m.order {
		if document, ok := m.documents[id]; ok && document.Owner == ownerID {
			documents = append(documents, document)
		}
	}
	return documents, nil
}

func (m *documentRepoMock) Update(_ context.Context, document domain.Document) error {
	if _, ok := m.documents[document.ID]; !ok {
		return repository.ErrNotFound
	}
	m.documents[document.ID] = document
	return nil
}

func (m *documentRepoMock) Delete(_ context.Context, id string) error {
	if _, ok := m.documents[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.documents, id)
	return nil
}

type blobStoreMock struct {
	uploads   map[string][]byte
	deleted   []string
	uploadErr error
	deleteErr error
}

func newBlobStoreMock() *blobStoreMock {
	return &blobStoreMock{uploads: make(map[string][]byte)}
}

func (m *blobStoreMock) Upload(_ context.Context, key string, body io.Reader, _ string) error {
	if m.uploadErr != nil {
		return m.uploadErr
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(body); err != nil {
		return err
	}
	m.uploads[key] = buf.Bytes()
	return nil
}

func (m *blobStoreMock) Delete(_ context.Context, key string) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	m.deleted = append(m.deleted, key)
	delete(m.uploads, key)
	return nil
}

func (m *blobStoreMock) PresignGet(_ context.Context, key string, _ time.Duration) (string, error) {
	return "https://blobs.local/" + key, nil
}

func newDocumentServiceForTest(documents *documentRepoMock, blobs *blobStoreMock, closures map[string][]domain.Permission) *DocumentService {
	stub := &permissionClosureStub{closures: closures}
	return NewDocumentService(documents, blobs, newEvaluator(stub), nil)
}

func TestUploadRequiresCreateGrant(t *testing.T) {
	documents := newDocumentRepoMock()
	blobs := newBlobStoreMock()
	service := newDocumentServiceForTest(documents, blobs, map[string][]domain.Permission{
		"guest": {grant(domain.ResourceTypeDocument, ActionRead)},
	})

	subject := &domain.Subject{ID: "guest", Active: true}

	_, err := service.Upload(context.Background(), subject, UploadDocumentInput{
		Name: "report.pdf",
		Body: strings.NewReader("payload"),
	})
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if len(blobs.uploads) != 0 {
		t.Fatal("denied upload must not reach the blob store")
	}
}

func TestUploadStoresPayloadAndMetadata(t *testing.T) {
	documents := newDocumentRepoMock()
	blobs := newBlobStoreMock()
	service := newDocumentServiceForTest(documents, blobs, map[string][]domain.Permission{
		"writer": {grant(domain.ResourceTypeDocument, ActionCreate)},
	})

	subject := &domain.Subject{ID: "writer", Active: true}

	document, err := service.Upload(context.Background(), subject, UploadDocumentInput{
		Name:        "report.pdf",
		ContentType: "application/pdf",
		Body:        strings.NewReader("payload"),
		SizeBytes:   7,
	})
	if err != nil {
		t.Fatalf("Upload returned error: %v", err)
	}

	if document.Owner != "writer" {
		t.Fatalf("expected uploader to own the document, got %q", document.Owner)
	}
	if _, ok := blobs.uploads[document.StorageKey]; !ok {
		t.Fatalf("payload not stored under %q", document.StorageKey)
	}
	if _, ok := documents.documents[document.ID]; !ok {
		t.Fatal("metadata row not persisted")
	}
}

func TestUploadCleansUpBlobWhenMetadataInsertFails(t *testing.T) {
	documents := newDocumentRepoMock()
	documents.createErr = errors.New("insert failed")
	blobs := newBlobStoreMock()
	service := newDocumentServiceForTest(documents, blobs, map[string][]domain.Permission{
		"writer": {grant(domain.ResourceTypeDocument, ActionCreate)},
	})

	subject := &domain.Subject{ID: "writer", Active: true}

	_, err := service.Upload(context.Background(), subject, UploadDocumentInput{
		Name: "report.pdf",
		Body: strings.NewReader("payload"),
	})
	if err == nil {
		t.Fatal("expected upload to fail")
	}
	if len(blobs.deleted) != 1 {
		t.Fatalf("expected blob cleanup, got %v", blobs.deleted)
	}
}

func TestGetOwnerReadsWithoutGrant(t *testing.T) {
	documents := newDocumentRepoMock()
	documents.seed(domain.Document{ID: "d1", Name: "mine.txt", Owner: "alice"})
	service := newDocumentServiceForTest(documents, newBlobStoreMock(), map[string][]domain.Permission{})

	subject := &domain.Subject{ID: "alice", Active: true}

	document, err := service.Get(context.Background(), subject, "d1")
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if document.ID != "d1" {
		t.Fatalf("unexpected document %q", document.ID)
	}
}

func TestGetDeniedWithoutOwnershipOrGrant(t *testing.T) {
	documents := newDocumentRepoMock()
	documents.seed(domain.Document{ID: "d1", Name: "private.txt", Owner: "alice"})
	service := newDocumentServiceForTest(documents, newBlobStoreMock(), map[string][]domain.Permission{})

	subject := &domain.Subject{ID: "bob", Active: true}

	if _, err := service.Get(context.Background(), subject, "d1"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestGetUnknownDocument(t *testing.T) {
	service := newDocumentServiceForTest(newDocumentRepoMock(), newBlobStoreMock(), nil)

	subject := &domain.Subject{ID: "alice", Active: true, Superuser: true}

	if _, err := service.Get(context.Background(), subject, "missing"); !errors.Is(err, ErrDocumentNotFound) {
		t.Fatalf("expected ErrDocumentNotFound, got %v", err)
	}
}

func TestListReturnsOnlyAuthorizedDocumentsInOrder(t *testing.T) {
	documents := newDocumentRepoMock()
	documents.seed(domain.Document{ID: "d1", Owner: "alice"})
	documents.seed(domain.Document{ID: "d2", Owner: "bob"})
	documents.seed(domain.Document{ID: "d3", Owner: "alice"})
	service := newDocumentServiceForTest(documents, newBlobStoreMock(), map[string][]domain.Permission{})

	subject := &domain.Subject{ID: "alice", Active: true}

	visible, err := service.List(context.Background(), subject, 0, 0)
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}

	wantIDs := []string{"d1", "d3"}
	if len(visible) != len(wantIDs) {
		t.Fatalf("expected %d documents, got %d", len(wantIDs), len(visible))
	}
	for i, document := range visible {
		if document.ID != wantIDs[i] {
			t.Fatalf("position %d: expected %s, got %s", i, wantIDs[i], document.ID)
		}
	}
}

func TestDeleteRemovesMetadataThenBlob(t *testing.T) {
	documents := newDocumentRepoMock()
	documents.seed(domain.Document{ID: "d1", Owner: "alice", StorageKey: "documents/d1"})
	blobs := newBlobStoreMock()
	service := newDocumentServiceForTest(documents, blobs, map[string][]domain.Permission{})

	subject := &domain.Subject{ID: "alice", Active: true}

	if err := service.Delete(context.Background(), subject, "d1"); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
	if _, ok := documents.documents["d1"]; ok {
		t.Fatal("metadata row not removed")
	}
	if len(blobs.deleted) != 1 || blobs.deleted[0] != "documents/d1" {
		t.Fatalf("expected blob delete for documents/d1, got %v", blobs.deleted)
	}
}

func TestDownloadURLChecksReadAccess(t *testing.T) {
	documents := newDocumentRepoMock()
	documents.seed(domain.Document{ID: "d1", Owner: "alice", StorageKey: "documents/d1"})
	service := newDocumentServiceForTest(documents, newBlobStoreMock(), map[string][]domain.Permission{})

	owner := &domain.Subject{ID: "alice", Active: true}
	url, err := service.DownloadURL(context.Background(), owner, "d1")
	if err != nil {
		t.Fatalf("DownloadURL returned error: %v", err)
	}
	if url != "https://blobs.local/documents/d1" {
		t.Fatalf("unexpected url %q", url)
	}

	stranger := &domain.Subject{ID: "bob", Active: true}
	if _, err := service.DownloadURL(context.Background(), stranger, "d1"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}
