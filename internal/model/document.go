package model

import "time"

// Document is the catalog record for one blob owned by one principal.
// This is a pure domain model with no database-specific dependencies or tags.
// It can be used across layers (HTTP, service, storage) without coupling to persistence.
type Document struct {
	ID       string `json:"id"`
	OwnerID  string `json:"owner_id"`
	LocalID  string `json:"local_id"`
	FileName string `json:"file_name"`
	FileType string `json:"file_type"`
	FileSize int64  `json:"file_size"`
	// FileURL always points at the most recently accepted blob.
	FileURL         string    `json:"file_url"`
	Metadata        Metadata  `json:"metadata"`
	UploadTimestamp time.Time `json:"upload_timestamp"`
}

// Clone returns a deep copy so callers cannot mutate stored state.
func (d *Document) Clone() *Document {
	if d == nil {
		return nil
	}
	out := *d
	out.Metadata = d.Metadata.Clone()
	return &out
}
