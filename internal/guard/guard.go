// Package guard enforces row ownership on top of a DocumentRepository.
// The owner is always taken from the identity in the context. Writes are
// stamped with it and reads are conjoined with it, so no caller-supplied
// filter can widen visibility beyond the caller's own documents.
package guard

import (
	"context"

	"doccatalog/internal/identity"
	"doccatalog/internal/model"
	"doccatalog/internal/query"
	"doccatalog/internal/repository"
)

// Guard is stateless and safe for concurrent use.
type Guard struct {
	repo repository.DocumentRepository
}

// New wraps repo.
func New(repo repository.DocumentRepository) *Guard {
	return &Guard{repo: repo}
}

// Owner returns the verified owner of ctx.
func (g *Guard) Owner(ctx context.Context) (string, error) {
	return identity.OwnerFromContext(ctx)
}

// Scope binds filter to the caller. An invalid filter is rejected here so the
// store never sees it.
func (g *Guard) Scope(ctx context.Context, filter query.Predicate) (query.Scoped, error) {
	owner, err := g.Owner(ctx)
	if err != nil {
		return query.Scoped{}, err
	}
	s := query.Scope(owner, filter)
	if err := s.Validate(); err != nil {
		return query.Scoped{}, err
	}
	return s, nil
}

// Insert stores doc as owned by the caller, whatever doc.OwnerID says.
func (g *Guard) Insert(ctx context.Context, doc *model.Document) (*model.Document, error) {
	owner, err := g.Owner(ctx)
	if err != nil {
		return nil, err
	}
	d := doc.Clone()
	d.OwnerID = owner
	return g.repo.Insert(ctx, d)
}

// Update rewrites a document owned by the caller. A document stamped with a
// different owner is indistinguishable from a missing one.
func (g *Guard) Update(ctx context.Context, doc *model.Document) (*model.Document, error) {
	owner, err := g.Owner(ctx)
	if err != nil {
		return nil, err
	}
	if doc.OwnerID != "" && doc.OwnerID != owner {
		return nil, repository.ErrNotFound
	}
	d := doc.Clone()
	d.OwnerID = owner
	return g.repo.Update(ctx, d)
}

func (g *Guard) GetByLocalID(ctx context.Context, localID string) (*model.Document, error) {
	owner, err := g.Owner(ctx)
	if err != nil {
		return nil, err
	}
	return g.repo.GetByLocalID(ctx, owner, localID)
}

func (g *Guard) GetByID(ctx context.Context, id string) (*model.Document, error) {
	owner, err := g.Owner(ctx)
	if err != nil {
		return nil, err
	}
	return g.repo.GetByID(ctx, owner, id)
}

// List returns the caller's documents matching filter.
func (g *Guard) List(ctx context.Context, filter query.Predicate, pq repository.PageQuery) (*repository.PageResult[model.Document], error) {
	s, err := g.Scope(ctx, filter)
	if err != nil {
		return nil, err
	}
	return g.repo.List(ctx, s, pq)
}

func (g *Guard) Delete(ctx context.Context, id string) error {
	owner, err := g.Owner(ctx)
	if err != nil {
		return err
	}
	return g.repo.Delete(ctx, owner, id)
}
