package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMetadata(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
		check   func(t *testing.T, m Metadata)
	}{
		{
			name:  "scalar kinds and nesting",
			input: `{"test": true, "created_by": "test_script", "pages": 12, "geo": {"lat": -6.2, "tag": "site"}}`,
			check: func(t *testing.T, m Metadata) {
				assert.Equal(t, KindBool, m["test"].Kind())
				assert.True(t, m["test"].Truth())
				assert.Equal(t, "test_script", m["created_by"].Str())
				assert.Equal(t, float64(12), m["pages"].Num())
				assert.Equal(t, KindMap, m["geo"].Kind())
				assert.Equal(t, -6.2, m["geo"].Nested()["lat"].Num())
			},
		},
		{
			name:  "empty input",
			input: "  ",
			check: func(t *testing.T, m Metadata) {
				assert.NotNil(t, m)
				assert.Len(t, m, 0)
			},
		},
		{name: "array rejected", input: `{"tags": ["a", "b"]}`, wantErr: true},
		{name: "null rejected", input: `{"owner": null}`, wantErr: true},
		{name: "nested array rejected", input: `{"a": {"b": [1]}}`, wantErr: true},
		{name: "top level must be object", input: `"text"`, wantErr: true},
		{name: "malformed json", input: `{"a":`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := ParseMetadata([]byte(tt.input))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			tt.check(t, m)
		})
	}
}

func TestParseMetadata_UnsupportedIsSentinel(t *testing.T) {
	_, err := ParseMetadata([]byte(`{"tags": []}`))
	assert.ErrorIs(t, err, ErrUnsupportedValue)
}

func TestMetadata_JSON(t *testing.T) {
	m := Metadata{
		"source": String("scanner"),
		"ocr":    Bool(false),
		"dpi":    Number(300),
		"device": Map(Metadata{"model": String("X1")}),
	}

	b, err := json.Marshal(m)
	require.NoError(t, err)
	assert.JSONEq(t, `{"source":"scanner","ocr":false,"dpi":300,"device":{"model":"X1"}}`, string(b))

	var nilMeta Metadata
	b, err = json.Marshal(nilMeta)
	require.NoError(t, err)
	assert.Equal(t, "{}", string(b))
}

func TestMetadata_Validate(t *testing.T) {
	assert.NoError(t, Metadata{"a": String("x"), "b": Map(Metadata{"c": Bool(true)})}.Validate())
	assert.ErrorIs(t, Metadata{"a": {}}.Validate(), ErrUnsupportedValue)
	assert.ErrorIs(t, Metadata{"a": Map(Metadata{"b": {}})}.Validate(), ErrUnsupportedValue)
}

func TestMetadata_EqualAndClone(t *testing.T) {
	a := Metadata{"n": Map(Metadata{"x": Number(1)})}
	b := a.Clone()
	assert.True(t, a.Equal(b))

	b["n"].Nested()["x"] = Number(2)
	assert.False(t, a.Equal(b))
	assert.Equal(t, float64(1), a["n"].Nested()["x"].Num())

	assert.True(t, Metadata(nil).Equal(Metadata{}))
	assert.False(t, Metadata{"a": String("1")}.Equal(Metadata{"a": Number(1)}))
}

func TestMetadata_SQL(t *testing.T) {
	m := Metadata{"k": String("v")}
	v, err := m.Value()
	require.NoError(t, err)
	assert.Equal(t, `{"k":"v"}`, v)

	var out Metadata
	require.NoError(t, out.Scan([]byte(`{"k":"v"}`)))
	assert.True(t, m.Equal(out))

	require.NoError(t, out.Scan(nil))
	assert.Len(t, out, 0)

	assert.Error(t, out.Scan(42))
}

func TestDocument_Clone(t *testing.T) {
	d := &Document{ID: "1", Metadata: Metadata{"a": String("b")}}
	c := d.Clone()
	c.Metadata["a"] = String("changed")
	assert.Equal(t, "b", d.Metadata["a"].Str())

	var nilDoc *Document
	assert.Nil(t, nilDoc.Clone())
}
