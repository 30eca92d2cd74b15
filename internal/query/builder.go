package query

import (
	"fmt"
	"strings"

	"doccatalog/internal/model"
)

type sqlWriter struct {
	strings.Builder
	projection *Projection
	args       []any
	next       int
}

func (w *sqlWriter) column(f Field) {
	w.WriteString(w.projection.Column(f))
}

func (w *sqlWriter) arg(v any) {
	w.args = append(w.args, v)
	fmt.Fprintf(w, "$%d", w.next)
	w.next++
}

// Projection maps document fields to columns of one table.
type Projection struct {
	table   string
	alias   string
	columns []Field
}

// NewProjection creates a Projection selecting columns in the given order.
func NewProjection(table, alias string, columns ...Field) *Projection {
	return &Projection{table: table, alias: alias, columns: columns}
}

// Column returns the qualified column for f.
func (p *Projection) Column(f Field) string {
	if p.alias == "" {
		return string(f)
	}
	return p.alias + "." + string(f)
}

// Columns returns all projected columns as a comma-separated list.
func (p *Projection) Columns() string {
	cols := make([]string, len(p.columns))
	for i, f := range p.columns {
		cols[i] = p.Column(f)
	}
	return strings.Join(cols, ", ")
}

// From returns the table reference including alias.
func (p *Projection) From() string {
	if p.alias == "" {
		return p.table
	}
	return p.table + " " + p.alias
}

// Scoped is a filter bound to exactly one owner. The zero value is unscoped and
// repositories refuse it.
type Scoped struct {
	owner  string
	filter Predicate
}

// Scope conjoins owner equality onto filter at the root of the predicate tree,
// so no shape of filter (negations included) can reach another owner's rows.
func Scope(owner string, filter Predicate) Scoped {
	if filter == nil {
		filter = All()
	}
	return Scoped{owner: owner, filter: filter}
}

// Owner returns the owner the query is bound to.
func (s Scoped) Owner() string { return s.owner }

// Valid reports whether the query is bound to an owner.
func (s Scoped) Valid() bool { return s.owner != "" }

// Predicate returns the full predicate including the owner conjunction.
func (s Scoped) Predicate() Predicate {
	filter := s.filter
	if filter == nil {
		filter = All()
	}
	return And(Eq(FieldOwnerID, s.owner), filter)
}

// Validate checks the caller-supplied part of the query.
func (s Scoped) Validate() error {
	return Validate(s.filter)
}

// Match evaluates the scoped predicate against d.
func (s Scoped) Match(d *model.Document) bool {
	if !s.Valid() {
		return false
	}
	return s.Predicate().Match(d)
}

// SortField represents a single column in an ORDER BY clause.
type SortField struct {
	Field      Field
	Descending bool
}

// Builder constructs SQL queries for a scoped filter with automatic parameter numbering.
type Builder struct {
	projection *Projection
	scope      Scoped
	sort       []SortField
}

// NewBuilder creates a Builder for the given projection and scope.
func NewBuilder(projection *Projection, scope Scoped, sort ...SortField) *Builder {
	return &Builder{projection: projection, scope: scope, sort: sort}
}

// Where returns the WHERE clause (with leading space) and its arguments.
func (b *Builder) Where() (string, []any) {
	w := &sqlWriter{projection: b.projection, next: 1}
	w.WriteString(" WHERE ")
	b.scope.Predicate().writeSQL(w)
	return w.String(), w.args
}

// Build returns a SELECT query with the current conditions and ordering.
func (b *Builder) Build() (string, []any) {
	where, args := b.Where()
	return fmt.Sprintf("SELECT %s FROM %s%s%s",
		b.projection.Columns(), b.projection.From(), where, b.orderBy()), args
}

// BuildCount returns a COUNT(*) query with the current conditions.
func (b *Builder) BuildCount() (string, []any) {
	where, args := b.Where()
	return fmt.Sprintf("SELECT COUNT(*) FROM %s%s", b.projection.From(), where), args
}

// BuildPage returns a SELECT query with ordering, limit and offset as trailing parameters.
func (b *Builder) BuildPage(limit, offset int) (string, []any) {
	where, args := b.Where()
	n := len(args)
	sql := fmt.Sprintf("SELECT %s FROM %s%s%s LIMIT $%d OFFSET $%d",
		b.projection.Columns(), b.projection.From(), where, b.orderBy(), n+1, n+2)
	return sql, append(args, limit, offset)
}

func (b *Builder) orderBy() string {
	if len(b.sort) == 0 {
		return ""
	}
	parts := make([]string, len(b.sort))
	for i, f := range b.sort {
		dir := "ASC"
		if f.Descending {
			dir = "DESC"
		}
		parts[i] = b.projection.Column(f.Field) + " " + dir
	}
	return " ORDER BY " + strings.Join(parts, ", ")
}
