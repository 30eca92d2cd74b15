// Package memory provides an in-process DocumentRepository used for local
// development and tests. It enforces the same uniqueness and isolation rules
// as the PostgreSQL implementation.
package memory

import (
	"cmp"
	"context"
	"slices"
	"sync"

	"doccatalog/internal/model"
	"doccatalog/internal/query"
	"doccatalog/internal/repository"
)

type localKey struct {
	owner string
	local string
}

// DocumentMemory is safe for concurrent use by multiple goroutines.
type DocumentMemory struct {
	mu      sync.RWMutex
	byID    map[string]*model.Document
	byLocal map[localKey]string
}

// NewDocumentMemory creates an empty repository.
func NewDocumentMemory() *DocumentMemory {
	return &DocumentMemory{
		byID:    make(map[string]*model.Document),
		byLocal: make(map[localKey]string),
	}
}

var _ repository.DocumentRepository = (*DocumentMemory)(nil)

func (r *DocumentMemory) Insert(ctx context.Context, doc *model.Document) (*model.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	key := localKey{owner: doc.OwnerID, local: doc.LocalID}
	if _, ok := r.byLocal[key]; ok {
		return nil, repository.ErrDuplicateLocalID
	}
	if _, ok := r.byID[doc.ID]; ok {
		return nil, repository.ErrDuplicateLocalID
	}
	stored := doc.Clone()
	r.byID[stored.ID] = stored
	r.byLocal[key] = stored.ID
	return stored.Clone(), nil
}

func (r *DocumentMemory) Update(ctx context.Context, doc *model.Document) (*model.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.byID[doc.ID]
	if !ok || cur.OwnerID != doc.OwnerID {
		return nil, repository.ErrNotFound
	}
	cur.FileName = doc.FileName
	cur.FileType = doc.FileType
	cur.FileSize = doc.FileSize
	cur.FileURL = doc.FileURL
	cur.Metadata = doc.Metadata.Clone()
	return cur.Clone(), nil
}

func (r *DocumentMemory) GetByLocalID(ctx context.Context, ownerID, localID string) (*model.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byLocal[localKey{owner: ownerID, local: localID}]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return r.byID[id].Clone(), nil
}

func (r *DocumentMemory) GetByID(ctx context.Context, ownerID, id string) (*model.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.byID[id]
	if !ok || d.OwnerID != ownerID {
		return nil, repository.ErrNotFound
	}
	return d.Clone(), nil
}

func (r *DocumentMemory) List(ctx context.Context, q query.Scoped, pq repository.PageQuery) (*repository.PageResult[model.Document], error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !q.Valid() {
		return nil, repository.ErrUnscoped
	}
	if err := q.Validate(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	matched := make([]model.Document, 0)
	for _, d := range r.byID {
		if q.Match(d) {
			matched = append(matched, *d.Clone())
		}
	}
	r.mu.RUnlock()

	slices.SortFunc(matched, func(a, b model.Document) int {
		if c := b.UploadTimestamp.Compare(a.UploadTimestamp); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})

	total := len(matched)
	start := min(max(pq.Offset, 0), total)
	end := total
	if pq.Limit > 0 {
		end = min(start+pq.Limit, total)
	}
	return &repository.PageResult[model.Document]{
		Items: matched[start:end],
		Total: total,
	}, nil
}

func (r *DocumentMemory) Delete(ctx context.Context, ownerID, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.byID[id]
	if !ok || d.OwnerID != ownerID {
		return repository.ErrNotFound
	}
	delete(r.byID, id)
	delete(r.byLocal, localKey{owner: d.OwnerID, local: d.LocalID})
	return nil
}
