package handler

import (
	"fmt"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"doccatalog/internal/query"
)

type filterParam struct {
	name  string
	build func(v string) (query.Predicate, error)
}

// filterParams maps list query parameters onto predicates. They are conjoined.
var filterParams = []filterParam{
	{"file_type", text(func(v string) query.Predicate { return query.Eq(query.FieldFileType, v) })},
	{"file_type_ne", text(func(v string) query.Predicate { return query.Neq(query.FieldFileType, v) })},
	{"q", text(func(v string) query.Predicate { return query.Contains(query.FieldFileName, v) })},
	{"owner_id", text(func(v string) query.Predicate { return query.Eq(query.FieldOwnerID, v) })},
	{"owner_id_ne", text(func(v string) query.Predicate { return query.Neq(query.FieldOwnerID, v) })},
	{"min_size", size(query.Gte)},
	{"max_size", size(query.Lte)},
	{"since", timestamp(query.Gte)},
	{"until", timestamp(query.Lt)},
}

func text(f func(string) query.Predicate) func(string) (query.Predicate, error) {
	return func(v string) (query.Predicate, error) { return f(v), nil }
}

func size(op func(query.Field, any) query.Predicate) func(string) (query.Predicate, error) {
	return func(v string) (query.Predicate, error) {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("must be an integer")
		}
		return op(query.FieldFileSize, n), nil
	}
}

func timestamp(op func(query.Field, any) query.Predicate) func(string) (query.Predicate, error) {
	return func(v string) (query.Predicate, error) {
		ts, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return nil, fmt.Errorf("must be an RFC 3339 timestamp")
		}
		return op(query.FieldUploadTimestamp, ts), nil
	}
}

// parseFilter builds the list predicate from query parameters. It returns nil
// when no filter parameter is present.
func parseFilter(c *fiber.Ctx) (query.Predicate, error) {
	var parts []query.Predicate
	for _, p := range filterParams {
		v := c.Query(p.name)
		if v == "" {
			continue
		}
		pred, err := p.build(v)
		if err != nil {
			return nil, fmt.Errorf("%s %w", p.name, err)
		}
		parts = append(parts, pred)
	}
	if len(parts) == 0 {
		return nil, nil
	}
	return query.And(parts...), nil
}
