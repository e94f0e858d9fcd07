// Package querydoc reads declarative query documents (YAML or JSON) and URL query
// parameters, and builds them into criteria.
package querydoc

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Document is a declarative query over one primary table.
//
//	from: book
//	select: [book.id, book.title]
//	joins:
//	  - relation: Author
//	    alias: a
//	filters:
//	  - column: title
//	    expr: like.War*
//	where:
//	  - "a.name = 'Tolstoy' OR id < 10"
//	order: [title.desc]
//	limit: 10
type Document struct {
	From       string       `yaml:"from" json:"from"`
	Alias      string       `yaml:"alias,omitempty" json:"alias,omitempty"`
	Adapter    string       `yaml:"adapter,omitempty" json:"adapter,omitempty"`
	Select     []string     `yaml:"select,omitempty" json:"select,omitempty"`
	As         []AsColumn   `yaml:"as,omitempty" json:"as,omitempty"`
	Distinct   bool         `yaml:"distinct,omitempty" json:"distinct,omitempty"`
	IgnoreCase bool         `yaml:"ignore_case,omitempty" json:"ignore_case,omitempty"`
	Joins      []Join       `yaml:"joins,omitempty" json:"joins,omitempty"`
	Filters    []FilterSpec `yaml:"filters,omitempty" json:"filters,omitempty"`
	Where      []string     `yaml:"where,omitempty" json:"where,omitempty"`
	Exists     []Subquery   `yaml:"exists,omitempty" json:"exists,omitempty"`
	GroupBy    []string     `yaml:"group_by,omitempty" json:"group_by,omitempty"`
	Having     []Clause     `yaml:"having,omitempty" json:"having,omitempty"`
	Order      []string     `yaml:"order,omitempty" json:"order,omitempty"`
	Limit      *int         `yaml:"limit,omitempty" json:"limit,omitempty"`
	Offset     int          `yaml:"offset,omitempty" json:"offset,omitempty"`
}

// AsColumn is a computed select expression.
type AsColumn struct {
	Alias string `yaml:"alias" json:"alias"`
	Expr  string `yaml:"expr" json:"expr"`
}

// Join follows a relation path such as "Author.Country".
type Join struct {
	Relation string `yaml:"relation" json:"relation"`
	Alias    string `yaml:"alias,omitempty" json:"alias,omitempty"`
	Type     string `yaml:"type,omitempty" json:"type,omitempty"`
}

// FilterSpec is one "op.value" filter. Or attaches it to the previous filter with OR.
type FilterSpec struct {
	Column string `yaml:"column" json:"column"`
	Expr   string `yaml:"expr" json:"expr"`
	Or     bool   `yaml:"or,omitempty" json:"or,omitempty"`
}

// Subquery is an EXISTS (or IN, with In set) sub-query along a relation of the primary table.
type Subquery struct {
	Relation string       `yaml:"relation" json:"relation"`
	Alias    string       `yaml:"alias,omitempty" json:"alias,omitempty"`
	Not      bool         `yaml:"not,omitempty" json:"not,omitempty"`
	In       bool         `yaml:"in,omitempty" json:"in,omitempty"`
	Filters  []FilterSpec `yaml:"filters,omitempty" json:"filters,omitempty"`
	Where    []string     `yaml:"where,omitempty" json:"where,omitempty"`
}

// Clause is a raw SQL fragment with ? placeholders.
type Clause struct {
	SQL    string `yaml:"sql" json:"sql"`
	Values []any  `yaml:"values,omitempty" json:"values,omitempty"`
}

// Parse decodes a YAML or JSON document. Unknown keys are rejected.
func Parse(data []byte) (*Document, error) {
	return Decode(bytes.NewReader(data))
}

// Decode reads one document from r.
func Decode(r io.Reader) (*Document, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var d Document
	if err := dec.Decode(&d); err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("decode query document: empty document")
		}
		return nil, fmt.Errorf("decode query document: %w", err)
	}
	if d.From == "" {
		return nil, fmt.Errorf("query document: from is required")
	}
	return &d, nil
}

// LoadFile reads a document from path.
func LoadFile(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open query document: %w", err)
	}
	defer f.Close()
	return Decode(f)
}
