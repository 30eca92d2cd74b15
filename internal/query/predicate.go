// Package query provides the filter language used to select documents.
// Predicates form a closed set: they can only be built with the constructors in
// this package, and each one both compiles to parameterised SQL and evaluates
// against an in-memory document.
package query

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"doccatalog/internal/model"
)

// ErrInvalidPredicate is returned for unknown fields or values of the wrong type.
var ErrInvalidPredicate = errors.New("invalid predicate")

// Field names a filterable document attribute. Field names match column names.
type Field string

const (
	FieldID              Field = "id"
	FieldOwnerID         Field = "owner_id"
	FieldLocalID         Field = "local_id"
	FieldFileName        Field = "file_name"
	FieldFileType        Field = "file_type"
	FieldFileSize        Field = "file_size"
	FieldFileURL         Field = "file_url"
	FieldUploadTimestamp Field = "upload_timestamp"
)

type fieldKind uint8

const (
	kindText fieldKind = iota + 1
	kindInt
	kindTime
)

var fieldKinds = map[Field]fieldKind{
	FieldID:              kindText,
	FieldOwnerID:         kindText,
	FieldLocalID:         kindText,
	FieldFileName:        kindText,
	FieldFileType:        kindText,
	FieldFileSize:        kindInt,
	FieldFileURL:         kindText,
	FieldUploadTimestamp: kindTime,
}

// Valid reports whether f is a known document field.
func (f Field) Valid() bool {
	_, ok := fieldKinds[f]
	return ok
}

// Predicate is a boolean condition over a document.
type Predicate interface {
	// Match evaluates the predicate against d.
	Match(d *model.Document) bool
	writeSQL(w *sqlWriter)
	validate() error
}

// Validate reports the first invalid field or value in p.
func Validate(p Predicate) error {
	if p == nil {
		return nil
	}
	return p.validate()
}

type op string

const (
	opEq  op = "="
	opNeq op = "<>"
	opLt  op = "<"
	opLte op = "<="
	opGt  op = ">"
	opGte op = ">="
)

type comparison struct {
	field Field
	op    op
	value any
	err   error
}

func compare(f Field, o op, v any) Predicate {
	nv, err := normalize(f, v)
	return &comparison{field: f, op: o, value: nv, err: err}
}

// Eq matches documents whose field equals v.
func Eq(f Field, v any) Predicate { return compare(f, opEq, v) }

// Neq matches documents whose field differs from v.
func Neq(f Field, v any) Predicate { return compare(f, opNeq, v) }

func Lt(f Field, v any) Predicate { return compare(f, opLt, v) }
func Lte(f Field, v any) Predicate { return compare(f, opLte, v) }
func Gt(f Field, v any) Predicate { return compare(f, opGt, v) }
func Gte(f Field, v any) Predicate { return compare(f, opGte, v) }

func (c *comparison) validate() error { return c.err }

func (c *comparison) Match(d *model.Document) bool {
	if c.err != nil || d == nil {
		return false
	}
	cmp, ok := compareValues(fieldValue(d, c.field), c.value)
	if !ok {
		return false
	}
	switch c.op {
	case opEq:
		return cmp == 0
	case opNeq:
		return cmp != 0
	case opLt:
		return cmp < 0
	case opLte:
		return cmp <= 0
	case opGt:
		return cmp > 0
	case opGte:
		return cmp >= 0
	}
	return false
}

func (c *comparison) writeSQL(w *sqlWriter) {
	w.column(c.field)
	w.WriteString(" " + string(c.op) + " ")
	w.arg(c.value)
}

type contains struct {
	field  Field
	needle string
	err    error
}

// Contains matches a case-insensitive substring of a text field.
func Contains(f Field, needle string) Predicate {
	var err error
	if fieldKinds[f] != kindText {
		err = fmt.Errorf("%w: contains on non-text field %q", ErrInvalidPredicate, f)
	}
	return &contains{field: f, needle: needle, err: err}
}

func (c *contains) validate() error { return c.err }

func (c *contains) Match(d *model.Document) bool {
	if c.err != nil || d == nil {
		return false
	}
	s, _ := fieldValue(d, c.field).(string)
	return strings.Contains(strings.ToLower(s), strings.ToLower(c.needle))
}

func (c *contains) writeSQL(w *sqlWriter) {
	w.column(c.field)
	w.WriteString(" ILIKE ")
	w.arg("%" + escapeLike(c.needle) + "%")
}

type in struct {
	field  Field
	values []any
	err    error
}

// In matches documents whose field equals any of values. An empty list matches nothing.
func In(f Field, values ...any) Predicate {
	p := &in{field: f, values: make([]any, 0, len(values))}
	for _, v := range values {
		nv, err := normalize(f, v)
		if err != nil {
			p.err = err
			break
		}
		p.values = append(p.values, nv)
	}
	return p
}

func (p *in) validate() error { return p.err }

func (p *in) Match(d *model.Document) bool {
	if p.err != nil || d == nil {
		return false
	}
	got := fieldValue(d, p.field)
	for _, v := range p.values {
		if cmp, ok := compareValues(got, v); ok && cmp == 0 {
			return true
		}
	}
	return false
}

func (p *in) writeSQL(w *sqlWriter) {
	if len(p.values) == 0 {
		w.WriteString("FALSE")
		return
	}
	w.column(p.field)
	w.WriteString(" IN (")
	for i, v := range p.values {
		if i > 0 {
			w.WriteString(", ")
		}
		w.arg(v)
	}
	w.WriteString(")")
}

type junction struct {
	and   bool
	parts []Predicate
}

// And matches when every part matches. And() with no parts matches everything.
func And(parts ...Predicate) Predicate { return &junction{and: true, parts: compact(parts)} }

// Or matches when any part matches. Or() with no parts matches nothing.
func Or(parts ...Predicate) Predicate { return &junction{and: false, parts: compact(parts)} }

func compact(parts []Predicate) []Predicate {
	out := make([]Predicate, 0, len(parts))
	for _, p := range parts {
		if p != nil {
			out = append(out, p)
		}
	}
	return out
}

func (j *junction) validate() error {
	for _, p := range j.parts {
		if err := p.validate(); err != nil {
			return err
		}
	}
	return nil
}

func (j *junction) Match(d *model.Document) bool {
	for _, p := range j.parts {
		if p.Match(d) != j.and {
			return !j.and
		}
	}
	return j.and
}

func (j *junction) writeSQL(w *sqlWriter) {
	if len(j.parts) == 0 {
		if j.and {
			w.WriteString("TRUE")
		} else {
			w.WriteString("FALSE")
		}
		return
	}
	sep := " OR "
	if j.and {
		sep = " AND "
	}
	w.WriteString("(")
	for i, p := range j.parts {
		if i > 0 {
			w.WriteString(sep)
		}
		p.writeSQL(w)
	}
	w.WriteString(")")
}

type not struct {
	inner Predicate
}

// Not negates p. A nil p negates All and so matches nothing.
func Not(p Predicate) Predicate {
	if p == nil {
		p = All()
	}
	return &not{inner: p}
}

func (n *not) validate() error { return n.inner.validate() }
func (n *not) Match(d *model.Document) bool { return !n.inner.Match(d) }

func (n *not) writeSQL(w *sqlWriter) {
	w.WriteString("NOT (")
	n.inner.writeSQL(w)
	w.WriteString(")")
}

// All matches every document.
func All() Predicate { return And() }

func normalize(f Field, v any) (any, error) {
	kind, ok := fieldKinds[f]
	if !ok {
		return nil, fmt.Errorf("%w: unknown field %q", ErrInvalidPredicate, f)
	}
	switch kind {
	case kindText:
		if s, ok := v.(string); ok {
			return s, nil
		}
	case kindInt:
		switch n := v.(type) {
		case int:
			return int64(n), nil
		case int32:
			return int64(n), nil
		case int64:
			return n, nil
		}
	case kindTime:
		if t, ok := v.(time.Time); ok {
			return t.UTC(), nil
		}
	}
	return nil, fmt.Errorf("%w: value %v (%T) not valid for field %q", ErrInvalidPredicate, v, v, f)
}

func fieldValue(d *model.Document, f Field) any {
	switch f {
	case FieldID:
		return d.ID
	case FieldOwnerID:
		return d.OwnerID
	case FieldLocalID:
		return d.LocalID
	case FieldFileName:
		return d.FileName
	case FieldFileType:
		return d.FileType
	case FieldFileSize:
		return d.FileSize
	case FieldFileURL:
		return d.FileURL
	case FieldUploadTimestamp:
		return d.UploadTimestamp
	}
	return nil
}

func compareValues(a, b any) (int, bool) {
	switch x := a.(type) {
	case string:
		y, ok := b.(string)
		if !ok {
			return 0, false
		}
		return strings.Compare(x, y), true
	case int64:
		y, ok := b.(int64)
		if !ok {
			return 0, false
		}
		switch {
		case x < y:
			return -1, true
		case x > y:
			return 1, true
		}
		return 0, true
	case time.Time:
		y, ok := b.(time.Time)
		if !ok {
			return 0, false
		}
		return x.Compare(y), true
	}
	return 0, false
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
