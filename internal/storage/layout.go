package storage

import (
	"encoding/base64"
	"mime"
	"net/url"
	"strings"
)

const defaultContentType = "application/octet-stream"

var imageTypes = map[string]struct{}{
	"jpg": {}, "jpeg": {}, "png": {}, "gif": {}, "webp": {}, "bmp": {},
	"tif": {}, "tiff": {}, "svg": {}, "heic": {}, "heif": {},
}

// Layout decides where a document's blob lives.
type Layout struct {
	DocumentsBucket string
	ImagesBucket    string
}

// Buckets returns every bucket the layout writes to.
func (l Layout) Buckets() []string {
	return []string{l.DocumentsBucket, l.ImagesBucket}
}

// BucketFor picks the images bucket for image types (extension or MIME type)
// and the documents bucket for everything else.
func (l Layout) BucketFor(fileType string) string {
	if isImage(fileType) {
		return l.ImagesBucket
	}
	return l.DocumentsBucket
}

// encodedPrefix marks a base64url-encoded key segment. It is outside the
// plain segment alphabet, so encoded and plain segments never collide.
const encodedPrefix = "~"

// KeyFor returns the object key for a document. The key is a pure function of
// owner and local id so a re-upload overwrites the previous object. It always
// has exactly two segments, neither of which is "." or "..".
func (l Layout) KeyFor(ownerID, localID string) string {
	return keySegment(ownerID) + "/" + keySegment(localID)
}

// keySegment keeps ids made of [A-Za-z0-9._-] readable and base64url-encodes
// everything else, including dot-only segments.
func keySegment(s string) string {
	if plainSegment(s) {
		return s
	}
	return encodedPrefix + base64.RawURLEncoding.EncodeToString([]byte(s))
}

func plainSegment(s string) bool {
	if s == "" || strings.Trim(s, ".") == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		case c == '.', c == '-', c == '_':
		default:
			return false
		}
	}
	return true
}

// JoinObjectURL builds the URL naming key inside bucket under base. Each key
// segment is escaped on its own, so the URL path decodes back to exactly
// bucket/key.
func JoinObjectURL(base *url.URL, bucket, key string) string {
	segs := strings.Split(key, "/")
	for i, seg := range segs {
		segs[i] = url.PathEscape(seg)
	}
	return strings.TrimSuffix(base.JoinPath(bucket).String(), "/") + "/" + strings.Join(segs, "/")
}

// ContentType maps a file type (extension or MIME type) to a MIME type.
func ContentType(fileType string) string {
	ft := strings.TrimSpace(fileType)
	if strings.Contains(ft, "/") {
		return ft
	}
	if ft == "" {
		return defaultContentType
	}
	if ct := mime.TypeByExtension("." + strings.TrimPrefix(strings.ToLower(ft), ".")); ct != "" {
		return ct
	}
	return defaultContentType
}

func isImage(fileType string) bool {
	ft := strings.ToLower(strings.TrimSpace(fileType))
	if strings.HasPrefix(ft, "image/") {
		return true
	}
	_, ok := imageTypes[strings.TrimPrefix(ft, ".")]
	return ok
}
