// Package repository contains data access layer abstractions for document metadata.
// Implementations live in subpackages (postgres, memory) inside this directory.
package repository

import (
	"context"
	"errors"

	"doccatalog/internal/model"
	"doccatalog/internal/query"
)

var (
	// ErrNotFound covers both absent rows and rows owned by someone else.
	ErrNotFound = errors.New("document not found")
	// ErrDuplicateLocalID means another row already holds (owner_id, local_id).
	ErrDuplicateLocalID = errors.New("duplicate local id")
	// ErrUnscoped is returned for a list query that is not bound to an owner.
	ErrUnscoped = errors.New("query is not scoped to an owner")
)

// DocumentRepository defines data access for documents.
// No business logic here; strictly persistence operations. Every operation is
// bound to a single owner and no operation queries across owners.
type DocumentRepository interface {
	// Insert stores a new document. The caller provides ID and UploadTimestamp.
	// Returns ErrDuplicateLocalID if (OwnerID, LocalID) is already taken.
	Insert(ctx context.Context, doc *model.Document) (*model.Document, error)

	// Update rewrites the mutable attributes (file name/type/size, URL, metadata)
	// of the row identified by (doc.OwnerID, doc.ID). ID, OwnerID, LocalID and
	// UploadTimestamp are never written.
	Update(ctx context.Context, doc *model.Document) (*model.Document, error)

	// GetByLocalID returns the owner's document with the given local id.
	GetByLocalID(ctx context.Context, ownerID, localID string) (*model.Document, error)

	// GetByID returns the owner's document with the given id.
	GetByID(ctx context.Context, ownerID, id string) (*model.Document, error)

	// List returns a page of documents matching q, newest upload first, ties by id.
	List(ctx context.Context, q query.Scoped, pq PageQuery) (*PageResult[model.Document], error)

	// Delete hard-deletes the owner's document. Returns ErrNotFound when nothing was deleted.
	Delete(ctx context.Context, ownerID, id string) error
}

// PageQuery holds limit/offset pagination parameters.
type PageQuery struct {
	Limit  int
	Offset int
}

// PageResult is a generic pagination result wrapper.
// T is typically a model type.
type PageResult[T any] struct {
	Items []T
	Total int
}

// DefaultSort is the listing order shared by all implementations.
var DefaultSort = []query.SortField{
	{Field: query.FieldUploadTimestamp, Descending: true},
	{Field: query.FieldID},
}
