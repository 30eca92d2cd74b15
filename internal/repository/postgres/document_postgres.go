package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"doccatalog/internal/model"
	"doccatalog/internal/query"
	"doccatalog/internal/repository"
)

const (
	pgUniqueViolation     = "23505"
	pgInvalidTextEncoding = "22P02"
)

var projection = query.NewProjection("documents", "",
	query.FieldID,
	query.FieldOwnerID,
	query.FieldLocalID,
	query.FieldFileName,
	query.FieldFileType,
	query.FieldFileSize,
	query.FieldFileURL,
	"metadata",
	query.FieldUploadTimestamp,
)

// DocumentPostgres is a PostgreSQL implementation of repository.DocumentRepository.
// It uses database/sql with parameterized queries and contains no business logic.
// Every statement carries an owner_id predicate.
type DocumentPostgres struct {
	db *sql.DB
}

// NewDocumentPostgres creates a new DocumentPostgres repository.
func NewDocumentPostgres(db *sql.DB) *DocumentPostgres {
	return &DocumentPostgres{db: db}
}

var _ repository.DocumentRepository = (*DocumentPostgres)(nil)

type scanner interface {
	Scan(dest ...any) error
}

func scanDocument(s scanner) (*model.Document, error) {
	var d model.Document
	if err := s.Scan(
		&d.ID,
		&d.OwnerID,
		&d.LocalID,
		&d.FileName,
		&d.FileType,
		&d.FileSize,
		&d.FileURL,
		&d.Metadata,
		&d.UploadTimestamp,
	); err != nil {
		return nil, err
	}
	return &d, nil
}

// mapError translates driver errors into repository errors.
func mapError(err error, noRows error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return noRows
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return repository.ErrDuplicateLocalID
		case pgInvalidTextEncoding:
			return repository.ErrNotFound
		}
	}
	return err
}

// Insert stores a new row. A conflicting (owner_id, local_id) yields no row,
// reported as ErrDuplicateLocalID.
func (r *DocumentPostgres) Insert(ctx context.Context, doc *model.Document) (*model.Document, error) {
	const q = `
		INSERT INTO documents (id, owner_id, local_id, file_name, file_type, file_size, file_url, metadata, upload_timestamp)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (owner_id, local_id) DO NOTHING
		RETURNING id, owner_id, local_id, file_name, file_type, file_size, file_url, metadata, upload_timestamp
	`
	row := r.db.QueryRowContext(ctx, q,
		doc.ID,
		doc.OwnerID,
		doc.LocalID,
		doc.FileName,
		doc.FileType,
		doc.FileSize,
		doc.FileURL,
		doc.Metadata,
		doc.UploadTimestamp,
	)
	out, err := scanDocument(row)
	if err != nil {
		return nil, mapError(err, repository.ErrDuplicateLocalID)
	}
	return out, nil
}

// Update rewrites mutable attributes only.
func (r *DocumentPostgres) Update(ctx context.Context, doc *model.Document) (*model.Document, error) {
	const q = `
		UPDATE documents
		SET file_name = $3, file_type = $4, file_size = $5, file_url = $6, metadata = $7
		WHERE owner_id = $1 AND id = $2
		RETURNING id, owner_id, local_id, file_name, file_type, file_size, file_url, metadata, upload_timestamp
	`
	row := r.db.QueryRowContext(ctx, q,
		doc.OwnerID,
		doc.ID,
		doc.FileName,
		doc.FileType,
		doc.FileSize,
		doc.FileURL,
		doc.Metadata,
	)
	out, err := scanDocument(row)
	if err != nil {
		return nil, mapError(err, repository.ErrNotFound)
	}
	return out, nil
}

// GetByLocalID fetches the owner's document by its client-assigned id.
func (r *DocumentPostgres) GetByLocalID(ctx context.Context, ownerID, localID string) (*model.Document, error) {
	const q = `
		SELECT id, owner_id, local_id, file_name, file_type, file_size, file_url, metadata, upload_timestamp
		FROM documents
		WHERE owner_id = $1 AND local_id = $2
	`
	d, err := scanDocument(r.db.QueryRowContext(ctx, q, ownerID, localID))
	if err != nil {
		return nil, mapError(err, repository.ErrNotFound)
	}
	return d, nil
}

// GetByID fetches the owner's document by its server id.
func (r *DocumentPostgres) GetByID(ctx context.Context, ownerID, id string) (*model.Document, error) {
	const q = `
		SELECT id, owner_id, local_id, file_name, file_type, file_size, file_url, metadata, upload_timestamp
		FROM documents
		WHERE owner_id = $1 AND id = $2
	`
	d, err := scanDocument(r.db.QueryRowContext(ctx, q, ownerID, id))
	if err != nil {
		return nil, mapError(err, repository.ErrNotFound)
	}
	return d, nil
}

// List returns documents using LIMIT/OFFSET pagination and a total count.
func (r *DocumentPostgres) List(ctx context.Context, sq query.Scoped, pq repository.PageQuery) (*repository.PageResult[model.Document], error) {
	if !sq.Valid() {
		return nil, repository.ErrUnscoped
	}
	if err := sq.Validate(); err != nil {
		return nil, err
	}

	qb := query.NewBuilder(projection, sq, repository.DefaultSort...)

	qCount, countArgs := qb.BuildCount()
	var total int
	if err := r.db.QueryRowContext(ctx, qCount, countArgs...).Scan(&total); err != nil {
		return nil, err
	}

	qList, listArgs := qb.BuildPage(pq.Limit, pq.Offset)
	rows, err := r.db.QueryContext(ctx, qList, listArgs...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.Document, 0)
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &repository.PageResult[model.Document]{
		Items: items,
		Total: total,
	}, nil
}

// Delete removes the owner's row. Zero affected rows is ErrNotFound.
func (r *DocumentPostgres) Delete(ctx context.Context, ownerID, id string) error {
	const q = `DELETE FROM documents WHERE owner_id = $1 AND id = $2`
	res, err := r.db.ExecContext(ctx, q, ownerID, id)
	if err != nil {
		return mapError(err, repository.ErrNotFound)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return nil
}
