package querydoc

import (
	"fmt"
	"maps"
	"net/url"
	"slices"
	"strconv"
	"strings"
)

const (
	DefaultLimit = 50
	MaxLimit     = 200
)

var reservedParams = map[string]bool{
	"from":     true,
	"alias":    true,
	"adapter":  true,
	"select":   true,
	"distinct": true,
	"join":     true,
	"where":    true,
	"order":    true,
	"limit":    true,
	"offset":   true,
}

// FromValues builds a document from URL query parameters:
//
//	?from=book&select=id,title&join=Author&order=title.desc&limit=20&Title=like.War*
//
// Every non-reserved key is a column filter in "op.value" form. Filters are applied in
// key order so the compiled SQL is stable.
func FromValues(q url.Values) (*Document, error) {
	d := &Document{From: q.Get("from"), Alias: q.Get("alias"), Adapter: q.Get("adapter")}
	if d.From == "" {
		return nil, fmt.Errorf("missing from parameter")
	}
	limit := DefaultLimit
	d.Limit = &limit

	// ?select=Field1,Field2
	if sel := q.Get("select"); sel != "" {
		for _, f := range strings.Split(sel, ",") {
			if f = strings.TrimSpace(f); f != "" {
				d.Select = append(d.Select, f)
			}
		}
	}

	if v := q.Get("distinct"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("invalid distinct %q", v)
		}
		d.Distinct = b
	}

	// ?join=Author.Country,Book:left
	for _, j := range q["join"] {
		for _, path := range strings.Split(j, ",") {
			path = strings.TrimSpace(path)
			if path == "" {
				continue
			}
			rel, typ, _ := strings.Cut(path, ":")
			d.Joins = append(d.Joins, Join{Relation: rel, Type: typ})
		}
	}

	d.Where = append(d.Where, q["where"]...)

	// ?order=Field.desc,Other
	if ord := q.Get("order"); ord != "" {
		for _, o := range strings.Split(ord, ",") {
			if o = strings.TrimSpace(o); o != "" {
				d.Order = append(d.Order, o)
			}
		}
	}

	// ?limit=20
	if lim := q.Get("limit"); lim != "" {
		n, err := strconv.Atoi(lim)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("invalid limit %q", lim)
		}
		if n > MaxLimit {
			n = MaxLimit
		}
		*d.Limit = n
	}

	if off := q.Get("offset"); off != "" {
		n, err := strconv.Atoi(off)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("invalid offset %q", off)
		}
		d.Offset = n
	}

	// Remaining params are filters: ?FieldName=op.value
	for _, key := range slices.Sorted(maps.Keys(q)) {
		if reservedParams[key] {
			continue
		}
		for _, v := range q[key] {
			if _, _, err := ParseFilter(v); err != nil {
				return nil, fmt.Errorf("filter %q: %w", key, err)
			}
			d.Filters = append(d.Filters, FilterSpec{Column: key, Expr: v})
		}
	}

	return d, nil
}
