// Package service holds the document catalog use cases. Every operation runs
// against the caller's own documents only: ownership is resolved from the
// identity in the context by the access guard.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"doccatalog/internal/guard"
	"doccatalog/internal/lock"
	"doccatalog/internal/model"
	"doccatalog/internal/query"
	"doccatalog/internal/repository"
	"doccatalog/internal/storage"
)

const (
	defaultLimit = 10
	maxLimit     = 100
)

var tracer = otel.Tracer("doccatalog/internal/service")

// Outcome tells what a reconciliation did to the stored document.
type Outcome string

const (
	OutcomeCreated   Outcome = "created"
	OutcomeUpdated   Outcome = "updated"
	OutcomeUnchanged Outcome = "unchanged"
)

// ReconcileResult is the persisted document plus what happened to it.
type ReconcileResult struct {
	Document *model.Document
	Outcome  Outcome
}

// ListOptions selects a page of the caller's documents.
type ListOptions struct {
	Filter query.Predicate
	Limit  int
	Offset int
}

// DocumentListResult is the service-level DTO for paginated documents.
type DocumentListResult struct {
	Items  []model.Document `json:"data"`
	Total  int              `json:"total"`
	Limit  int              `json:"limit"`
	Offset int              `json:"offset"`
}

// DocumentService defines the use cases for handling documents.
type DocumentService interface {
	// Reconcile creates or updates the caller's document identified by
	// in.LocalID. Concurrent calls for the same local id are serialized.
	Reconcile(ctx context.Context, in model.ReconcileInput) (*ReconcileResult, error)

	// Get returns a single document by its ID.
	Get(ctx context.Context, id string) (*model.Document, error)

	// GetByLocalID returns a single document by its client-assigned id.
	GetByLocalID(ctx context.Context, localID string) (*model.Document, error)

	// List returns documents newest first using limit/offset and a total count.
	List(ctx context.Context, opts ListOptions) (*DocumentListResult, error)

	// Delete removes the metadata row, then releases the blob best-effort.
	Delete(ctx context.Context, id string) error

	// DownloadURL returns a time-limited URL for the document's bytes.
	DownloadURL(ctx context.Context, id string) (string, error)
}

// Option configures a documentService.
type Option func(*documentService)

// WithLocker replaces the in-process per-document lock.
func WithLocker(l lock.Locker) Option { return func(s *documentService) { s.locker = l } }

// WithLogger sets the logger used for blob release warnings.
func WithLogger(l *slog.Logger) Option { return func(s *documentService) { s.log = l } }

// WithMetrics enables the reconcile and orphaned blob counters.
func WithMetrics(m *Metrics) Option { return func(s *documentService) { s.metrics = m } }

// WithClock overrides time.Now for upload timestamps.
func WithClock(now func() time.Time) Option { return func(s *documentService) { s.now = now } }

// WithLayout sets the buckets and key scheme for stored blobs.
func WithLayout(l storage.Layout) Option { return func(s *documentService) { s.layout = l } }

// WithPresignExpiry sets how long download URLs stay valid.
func WithPresignExpiry(d time.Duration) Option {
	return func(s *documentService) { s.presignExpiry = d }
}

// documentService is a concrete implementation of DocumentService.
type documentService struct {
	store         storage.Storage
	guard         *guard.Guard
	locker        lock.Locker
	layout        storage.Layout
	log           *slog.Logger
	metrics       *Metrics
	now           func() time.Time
	presignExpiry time.Duration
}

// NewDocumentService constructs a new DocumentService.
func NewDocumentService(store storage.Storage, repo repository.DocumentRepository, opts ...Option) DocumentService {
	s := &documentService{
		store:         store,
		guard:         guard.New(repo),
		locker:        lock.NewKeyedMutex(),
		layout:        storage.Layout{DocumentsBucket: "documents", ImagesBucket: "images"},
		log:           slog.Default(),
		now:           time.Now,
		presignExpiry: 15 * time.Minute,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *documentService) Reconcile(ctx context.Context, in model.ReconcileInput) (res *ReconcileResult, err error) {
	ctx, span := tracer.Start(ctx, "DocumentService.Reconcile",
		trace.WithAttributes(attribute.String("document.local_id", in.LocalID)))
	defer func() { endSpan(span, err) }()

	owner, err := s.guard.Owner(ctx)
	if err != nil {
		return nil, err
	}
	if err := validateInput(in); err != nil {
		return nil, err
	}

	release, err := s.lockDocument(ctx, owner, in.LocalID)
	if err != nil {
		return nil, err
	}
	defer release()

	cur, err := s.guard.GetByLocalID(ctx, in.LocalID)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		res, err = s.create(ctx, owner, in)
	case err != nil:
		return nil, err
	default:
		res, err = s.update(ctx, owner, cur, in)
	}
	if err != nil {
		return nil, err
	}

	span.SetAttributes(
		attribute.String("document.id", res.Document.ID),
		attribute.String("reconcile.outcome", string(res.Outcome)),
	)
	s.metrics.reconciled(string(res.Outcome))
	return res, nil
}

// lockDocument serializes every operation touching the blob key of
// (owner, localID). A wait that runs out is reported as a conflict.
func (s *documentService) lockDocument(ctx context.Context, owner, localID string) (func(), error) {
	release, err := s.locker.Lock(ctx, s.layout.KeyFor(owner, localID))
	if err != nil {
		if errors.Is(err, lock.ErrLockTimeout) {
			return nil, fmt.Errorf("%w: %w", ErrDuplicateLocalID, err)
		}
		return nil, err
	}
	return release, nil
}

func validateInput(in model.ReconcileInput) error {
	if strings.TrimSpace(in.LocalID) == "" {
		return invalid("local_id", "must not be empty")
	}
	if strings.TrimSpace(in.Attrs.FileName) == "" {
		return invalid("file_name", "must not be empty")
	}
	if in.Attrs.FileSize <= 0 {
		return invalid("file_size", "must be positive")
	}
	if in.Blob.Changed() && in.Blob.Size >= 0 && in.Blob.Size != in.Attrs.FileSize {
		return invalid("file_size", fmt.Sprintf("does not match content length %d", in.Blob.Size))
	}
	if err := in.Attrs.Metadata.Validate(); err != nil {
		return invalid("metadata", err.Error())
	}
	return nil
}

func (s *documentService) create(ctx context.Context, owner string, in model.ReconcileInput) (*ReconcileResult, error) {
	if !in.Blob.Changed() && in.Blob.URL == "" {
		return nil, invalid("file", "content or file_url is required for a new document")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	fileURL := in.Blob.URL
	if in.Blob.Changed() {
		u, err := s.upload(ctx, owner, in)
		if err != nil {
			return nil, err
		}
		fileURL = u
	}

	meta := in.Attrs.Metadata.Clone()
	if meta == nil {
		meta = model.Metadata{}
	}
	doc := &model.Document{
		ID:              uuid.NewString(),
		LocalID:         in.LocalID,
		FileName:        in.Attrs.FileName,
		FileType:        in.Attrs.FileType,
		FileSize:        in.Attrs.FileSize,
		FileURL:         fileURL,
		Metadata:        meta,
		UploadTimestamp: s.now().UTC(),
	}

	// Past this point the blob may already be stored; the row must follow.
	stored, err := s.guard.Insert(context.WithoutCancel(ctx), doc)
	if err != nil {
		return nil, fmt.Errorf("insert document: %w", err)
	}
	return &ReconcileResult{Document: stored, Outcome: OutcomeCreated}, nil
}

func (s *documentService) update(ctx context.Context, owner string, cur *model.Document, in model.ReconcileInput) (*ReconcileResult, error) {
	newRemote := !in.Blob.Changed() && in.Blob.URL != "" && in.Blob.URL != cur.FileURL
	if !in.Blob.Changed() && !newRemote {
		if in.Attrs.FileSize != cur.FileSize {
			return nil, invalid("file_size", "changed without new content")
		}
		if in.Attrs.FileType != cur.FileType {
			return nil, invalid("file_type", "changed without new content")
		}
	}

	next := cur.Clone()
	next.FileName = in.Attrs.FileName
	next.FileType = in.Attrs.FileType
	next.FileSize = in.Attrs.FileSize
	next.Metadata = in.Attrs.Metadata.Clone()
	if next.Metadata == nil {
		next.Metadata = model.Metadata{}
	}
	if newRemote {
		next.FileURL = in.Blob.URL
	}

	if !in.Blob.Changed() && sameDocument(cur, next) {
		return &ReconcileResult{Document: cur, Outcome: OutcomeUnchanged}, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var stale *blobLocation
	if in.Blob.Changed() {
		u, err := s.upload(ctx, owner, in)
		if err != nil {
			return nil, err
		}
		next.FileURL = u
		if old, ok := s.ownedBlob(cur); ok && old.bucket != s.layout.BucketFor(next.FileType) {
			stale = &old
		}
	} else if newRemote {
		// The document now points elsewhere; the uploaded copy is unreferenced.
		if old, ok := s.ownedBlob(cur); ok {
			stale = &old
		}
	}

	commitCtx := context.WithoutCancel(ctx)
	stored, err := s.guard.Update(commitCtx, next)
	if err != nil {
		return nil, fmt.Errorf("update document: %w", err)
	}
	if stale != nil {
		s.releaseBlob(commitCtx, stored.ID, *stale)
	}
	return &ReconcileResult{Document: stored, Outcome: OutcomeUpdated}, nil
}

func sameDocument(a, b *model.Document) bool {
	return a.FileName == b.FileName &&
		a.FileType == b.FileType &&
		a.FileSize == b.FileSize &&
		a.FileURL == b.FileURL &&
		a.Metadata.Equal(b.Metadata)
}

func (s *documentService) upload(ctx context.Context, owner string, in model.ReconcileInput) (string, error) {
	bucket := s.layout.BucketFor(in.Attrs.FileType)
	key := s.layout.KeyFor(owner, in.LocalID)

	info, err := s.store.Put(ctx, bucket, key, in.Blob.Content, storage.PutObjectOptions{
		Size:        in.Attrs.FileSize,
		ContentType: storage.ContentType(in.Attrs.FileType),
		Metadata: map[string]string{
			"local-id":  in.LocalID,
			"file-name": in.Attrs.FileName,
		},
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		return "", fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}
	if info.URL != "" {
		return info.URL, nil
	}
	return s.store.ObjectURL(bucket, key), nil
}

type blobLocation struct {
	bucket string
	key    string
}

// ownedBlob reports where the document's bytes live when they were uploaded
// through this service rather than referenced remotely.
func (s *documentService) ownedBlob(doc *model.Document) (blobLocation, bool) {
	key := s.layout.KeyFor(doc.OwnerID, doc.LocalID)
	for _, bucket := range s.layout.Buckets() {
		if doc.FileURL == s.store.ObjectURL(bucket, key) {
			return blobLocation{bucket: bucket, key: key}, true
		}
	}
	return blobLocation{}, false
}

func (s *documentService) releaseBlob(ctx context.Context, docID string, loc blobLocation) {
	if err := s.store.Delete(ctx, loc.bucket, loc.key); err != nil {
		s.metrics.orphan()
		s.log.WarnContext(ctx, "blob release failed",
			slog.String("document_id", docID),
			slog.String("bucket", loc.bucket),
			slog.String("key", loc.key),
			slog.Any("error", err),
		)
	}
}

// Get returns a document by ID.
func (s *documentService) Get(ctx context.Context, id string) (doc *model.Document, err error) {
	ctx, span := tracer.Start(ctx, "DocumentService.Get")
	defer func() { endSpan(span, err) }()

	if id == "" {
		return nil, invalid("id", "is required")
	}
	return s.guard.GetByID(ctx, id)
}

func (s *documentService) GetByLocalID(ctx context.Context, localID string) (doc *model.Document, err error) {
	ctx, span := tracer.Start(ctx, "DocumentService.GetByLocalID")
	defer func() { endSpan(span, err) }()

	if strings.TrimSpace(localID) == "" {
		return nil, invalid("local_id", "must not be empty")
	}
	return s.guard.GetByLocalID(ctx, localID)
}

// List returns paginated documents without exposing repository types.
func (s *documentService) List(ctx context.Context, opts ListOptions) (out *DocumentListResult, err error) {
	ctx, span := tracer.Start(ctx, "DocumentService.List")
	defer func() { endSpan(span, err) }()

	limit, offset := opts.Limit, opts.Offset
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	if offset < 0 {
		offset = 0
	}

	res, err := s.guard.List(ctx, opts.Filter, repository.PageQuery{Limit: limit, Offset: offset})
	if err != nil {
		if errors.Is(err, query.ErrInvalidPredicate) {
			return nil, invalid("filter", err.Error())
		}
		return nil, err
	}
	return &DocumentListResult{Items: res.Items, Total: res.Total, Limit: limit, Offset: offset}, nil
}

// Delete removes the record, then the blob. A blob that cannot be released is
// logged and counted for external reclamation.
func (s *documentService) Delete(ctx context.Context, id string) (err error) {
	ctx, span := tracer.Start(ctx, "DocumentService.Delete")
	defer func() { endSpan(span, err) }()

	if id == "" {
		return invalid("id", "is required")
	}
	owner, err := s.guard.Owner(ctx)
	if err != nil {
		return err
	}
	doc, err := s.guard.GetByID(ctx, id)
	if err != nil {
		return err
	}

	// A reconcile for the same local id reuses the blob key, so it must not
	// run between the row delete and the blob release.
	release, err := s.lockDocument(ctx, owner, doc.LocalID)
	if err != nil {
		return err
	}
	defer release()

	// Re-read under the lock: the row may have moved buckets or gone.
	doc, err = s.guard.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.guard.Delete(ctx, id); err != nil {
		return err
	}
	if loc, ok := s.ownedBlob(doc); ok {
		s.releaseBlob(context.WithoutCancel(ctx), id, loc)
	}
	return nil
}

// DownloadURL presigns the stored blob, or returns the remote reference as is.
func (s *documentService) DownloadURL(ctx context.Context, id string) (u string, err error) {
	ctx, span := tracer.Start(ctx, "DocumentService.DownloadURL")
	defer func() { endSpan(span, err) }()

	doc, err := s.Get(ctx, id)
	if err != nil {
		return "", err
	}
	loc, ok := s.ownedBlob(doc)
	if !ok {
		return doc.FileURL, nil
	}
	u, err = s.store.PresignGet(ctx, loc.bucket, loc.key, s.presignExpiry)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}
	return u, nil
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
