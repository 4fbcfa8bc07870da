package domain

import "time"

// ResourceTypeDocument is the resource type string for document instances.
const ResourceTypeDocument = "document"

// Resource is any concrete object an instance-level authorization decision
// can be made about. OwnerID returns the empty string for resource types
// without ownership semantics.
type Resource interface {
	ResourceType() string
	OwnerID() string
}

// Document is an uploaded file's metadata. The payload itself lives in the
// object store under StorageKey; this service only tracks ownership and
// descriptive fields.
type Document struct {
	ID          string
	Name        string
	ContentType string
	StorageKey  string
	Owner       string
	SizeBytes   int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ResourceType implements Resource.
func (Document) ResourceType() string { return ResourceTypeDocument }

// OwnerID implements Resource.
func (d Document) OwnerID() string { return d.Owner }
