package model

import "io"

// BlobRef is a handle to the bytes of a document.
// Content is set when the client sends (new) bytes; otherwise URL may carry an
// existing remote reference for a blob that did not change.
type BlobRef struct {
	Content io.Reader
	// Size is the byte length of Content, or -1 when unknown.
	Size int64
	URL  string
}

// NewBlob wraps uploaded content.
func NewBlob(r io.Reader, size int64) BlobRef {
	return BlobRef{Content: r, Size: size}
}

// RemoteBlob references bytes that are already stored elsewhere.
func RemoteBlob(url string) BlobRef {
	return BlobRef{Size: -1, URL: url}
}

// Changed reports whether the reference carries content that must be uploaded.
func (b BlobRef) Changed() bool {
	return b.Content != nil
}

// Attributes are the client-controlled descriptive fields of a document.
type Attributes struct {
	FileName string
	FileType string
	FileSize int64
	Metadata Metadata
}

// ReconcileInput describes one locally-created document presented for reconciliation.
type ReconcileInput struct {
	LocalID string
	Blob    BlobRef
	Attrs   Attributes
}
