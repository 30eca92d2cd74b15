package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"doccatalog/internal/model"
	"doccatalog/internal/query"
	"doccatalog/internal/repository"
)

type MockDocumentRepository struct {
	mock.Mock
}

var _ repository.DocumentRepository = (*MockDocumentRepository)(nil)

func (m *MockDocumentRepository) document(args mock.Arguments) (*model.Document, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Document), args.Error(1)
}

func (m *MockDocumentRepository) Insert(ctx context.Context, doc *model.Document) (*model.Document, error) {
	return m.document(m.Called(ctx, doc))
}

func (m *MockDocumentRepository) Update(ctx context.Context, doc *model.Document) (*model.Document, error) {
	return m.document(m.Called(ctx, doc))
}

func (m *MockDocumentRepository) GetByLocalID(ctx context.Context, ownerID, localID string) (*model.Document, error) {
	return m.document(m.Called(ctx, ownerID, localID))
}

func (m *MockDocumentRepository) GetByID(ctx context.Context, ownerID, id string) (*model.Document, error) {
	return m.document(m.Called(ctx, ownerID, id))
}

func (m *MockDocumentRepository) List(ctx context.Context, q query.Scoped, pq repository.PageQuery) (*repository.PageResult[model.Document], error) {
	args := m.Called(ctx, q, pq)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.PageResult[model.Document]), args.Error(1)
}

func (m *MockDocumentRepository) Delete(ctx context.Context, ownerID, id string) error {
	args := m.Called(ctx, ownerID, id)
	return args.Error(0)
}
