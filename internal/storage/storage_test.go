package storage

import (
	"encoding/base64"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"doccatalog/internal/config"
)

func TestLayout_BucketFor(t *testing.T) {
	l := Layout{DocumentsBucket: "documents", ImagesBucket: "images"}

	tests := []struct {
		fileType string
		want     string
	}{
		{"pdf", "documents"},
		{"docx", "documents"},
		{"", "documents"},
		{"png", "images"},
		{".JPG", "images"},
		{"image/webp", "images"},
		{"application/pdf", "documents"},
	}
	for _, tt := range tests {
		t.Run(tt.fileType, func(t *testing.T) {
			assert.Equal(t, tt.want, l.BucketFor(tt.fileType))
		})
	}

	assert.Equal(t, []string{"documents", "images"}, l.Buckets())
}

func TestLayout_KeyFor(t *testing.T) {
	var l Layout
	enc := func(s string) string { return "~" + base64.RawURLEncoding.EncodeToString([]byte(s)) }

	tests := []struct {
		owner, local string
		want         string
	}{
		{"user-1", "doc-1", "user-1/doc-1"},
		{"user-1", "scan_v2.pdf", "user-1/scan_v2.pdf"},
		{"user-1", "a/b c", "user-1/" + enc("a/b c")},
		{"user-1", "doc 1", "user-1/" + enc("doc 1")},
		{"user-1", "..", "user-1/" + enc("..")},
		{"user-1", ".", "user-1/" + enc(".")},
		{"user-1", "~x", "user-1/" + enc("~x")},
		{"auth0|abc", "doc-1", enc("auth0|abc") + "/doc-1"},
	}
	for _, tt := range tests {
		t.Run(tt.local, func(t *testing.T) {
			got := l.KeyFor(tt.owner, tt.local)
			assert.Equal(t, tt.want, got)

			segs := strings.Split(got, "/")
			require.Len(t, segs, 2)
			for _, seg := range segs {
				assert.NotContains(t, []string{"", ".", ".."}, seg)
			}
		})
	}

	assert.NotEqual(t, l.KeyFor("u", "a/b"), l.KeyFor("u/a", "b"))
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "application/pdf", ContentType("pdf"))
	assert.Equal(t, "image/png", ContentType(".PNG"))
	assert.Equal(t, "text/csv", ContentType("text/csv"))
	assert.Equal(t, "application/octet-stream", ContentType(""))
	assert.Equal(t, "application/octet-stream", ContentType("nosuchext"))
}

func TestNewMinIO_Validation(t *testing.T) {
	valid := config.MinIOConfig{
		Endpoint:        "localhost:9000",
		AccessKey:       "ak",
		SecretKey:       "sk",
		DocumentsBucket: "documents",
		ImagesBucket:    "images",
	}

	tests := []struct {
		name   string
		mutate func(c *config.MinIOConfig)
	}{
		{"missing endpoint", func(c *config.MinIOConfig) { c.Endpoint = "" }},
		{"missing credentials", func(c *config.MinIOConfig) { c.SecretKey = "" }},
		{"missing images bucket", func(c *config.MinIOConfig) { c.ImagesBucket = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			_, err := NewMinIO(cfg)
			assert.Error(t, err)
		})
	}
}

func TestMinIO_ObjectURL(t *testing.T) {
	cfg := config.MinIOConfig{
		Endpoint:        "localhost:9000",
		AccessKey:       "ak",
		SecretKey:       "sk",
		DocumentsBucket: "documents",
		ImagesBucket:    "images",
	}

	ms, err := newMinIO(cfg)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:9000/documents/user-1/doc-1", ms.ObjectURL("documents", "user-1/doc-1"))

	// The URL path must decode to exactly bucket/key for every local id.
	var l Layout
	for _, local := range []string{"doc-1", "doc 1", "a/b", "..", ".", "100%", "ünïcode?.pdf"} {
		key := l.KeyFor("u1", local)
		u, err := url.Parse(ms.ObjectURL("documents", key))
		require.NoError(t, err, local)
		assert.Equal(t, "/documents/"+key, u.Path, local)
	}

	cfg.PublicURL = "https://cdn.example.com/store"
	ms, err = newMinIO(cfg)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/store/images/user-1/pic", ms.ObjectURL("images", "user-1/pic"))
}

func TestJoinObjectURL_EscapesSegments(t *testing.T) {
	base, err := url.Parse("http://localhost:9000/")
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:9000/documents/u1/a%20b", JoinObjectURL(base, "documents", "u1/a b"))
	assert.Equal(t, "http://localhost:9000/documents/u1/..", JoinObjectURL(base, "documents", "u1/.."),
		"dot segments are passed through verbatim, never cleaned")
}
