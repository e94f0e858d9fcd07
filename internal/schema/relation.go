package schema

import "fmt"

// RelationType classifies a relation by cardinality.
type RelationType string

const (
	ManyToOne  RelationType = "many_to_one"
	OneToMany  RelationType = "one_to_many"
	OneToOne   RelationType = "one_to_one"
	ManyToMany RelationType = "many_to_many"
)

// inverse returns the cardinality seen from the other side.
func (t RelationType) inverse() RelationType {
	switch t {
	case ManyToOne:
		return OneToMany
	case OneToMany:
		return ManyToOne
	}
	return t
}

// ColumnMapping pairs a local column with a foreign column.
// When HasValue is set, one side is a constant: the present column must equal Value.
type ColumnMapping struct {
	Local    *ColumnMap
	Foreign  *ColumnMap
	Value    any
	HasValue bool
}

// RelationMap is a foreign-key derived relation from Local to Foreign.
type RelationMap struct {
	Name     string
	Type     RelationType
	Local    *TableMap
	Foreign  *TableMap
	Mappings []ColumnMapping

	symmetrical *RelationMap
	derived     bool // built by invert
}

// Symmetrical returns the same relation seen from the foreign table.
func (r *RelationMap) Symmetrical() *RelationMap { return r.symmetrical }

// LocalColumns returns the local side of every non-constant mapping.
func (r *RelationMap) LocalColumns() []*ColumnMap {
	var cols []*ColumnMap
	for _, m := range r.Mappings {
		if !m.HasValue {
			cols = append(cols, m.Local)
		}
	}
	return cols
}

// ForeignColumns returns the foreign side of every non-constant mapping.
func (r *RelationMap) ForeignColumns() []*ColumnMap {
	var cols []*ColumnMap
	for _, m := range r.Mappings {
		if !m.HasValue {
			cols = append(cols, m.Foreign)
		}
	}
	return cols
}

// MappingDef declares one column pair of a RelationDef by SQL column name.
// Set Value (with an empty Local or Foreign) for a constant discriminator condition.
type MappingDef struct {
	Local   string `yaml:"local,omitempty"`
	Foreign string `yaml:"foreign,omitempty"`
	Value   any    `yaml:"value,omitempty"`
}

// RelationDef declares a relation between two registered tables.
type RelationDef struct {
	Name         string       `yaml:"name"`
	Type         RelationType `yaml:"type,omitempty"`
	LocalTable   string       `yaml:"-"`
	ForeignTable string       `yaml:"foreign_table"`
	Mappings     []MappingDef `yaml:"columns"`
	// Inverse names the symmetrical relation on the foreign table.
	// It defaults to the local table's logical name.
	Inverse string `yaml:"inverse,omitempty"`
}

func (d RelationDef) build(local, foreign *TableMap) (*RelationMap, error) {
	typ := d.Type
	if typ == "" {
		typ = ManyToOne
	}
	rel := &RelationMap{Name: d.Name, Type: typ, Local: local, Foreign: foreign}
	for _, md := range d.Mappings {
		var m ColumnMapping
		if md.Local != "" {
			c, ok := local.Column(md.Local)
			if !ok {
				return nil, fmt.Errorf("relation %s: unknown local column %s.%s", d.Name, local.Name, md.Local)
			}
			m.Local = c
		}
		if md.Foreign != "" {
			c, ok := foreign.Column(md.Foreign)
			if !ok {
				return nil, fmt.Errorf("relation %s: unknown foreign column %s.%s", d.Name, foreign.Name, md.Foreign)
			}
			m.Foreign = c
		}
		switch {
		case m.Local == nil && m.Foreign == nil:
			return nil, fmt.Errorf("relation %s: mapping needs at least one column", d.Name)
		case m.Local == nil || m.Foreign == nil:
			if md.Value == nil {
				return nil, fmt.Errorf("relation %s: one-sided mapping requires a value", d.Name)
			}
			m.Value, m.HasValue = md.Value, true
		}
		rel.Mappings = append(rel.Mappings, m)
	}
	if len(rel.Mappings) == 0 {
		return nil, fmt.Errorf("relation %s: no column mappings", d.Name)
	}
	return rel, nil
}

// invert builds the symmetrical relation.
func (r *RelationMap) invert(name string) *RelationMap {
	inv := &RelationMap{Name: name, Type: r.Type.inverse(), Local: r.Foreign, Foreign: r.Local, derived: true}
	for _, m := range r.Mappings {
		inv.Mappings = append(inv.Mappings, ColumnMapping{
			Local:    m.Foreign,
			Foreign:  m.Local,
			Value:    m.Value,
			HasValue: m.HasValue,
		})
	}
	inv.symmetrical = r
	r.symmetrical = inv
	return inv
}

// def rebuilds the declaration of r.
func (r *RelationMap) def() RelationDef {
	d := RelationDef{Name: r.Name, Type: r.Type, LocalTable: r.Local.Name, ForeignTable: r.Foreign.Name}
	if r.Type == ManyToOne {
		d.Type = ""
	}
	if r.symmetrical != nil {
		d.Inverse = r.symmetrical.Name
	}
	for _, m := range r.Mappings {
		var md MappingDef
		if m.Local != nil {
			md.Local = m.Local.Name
		}
		if m.Foreign != nil {
			md.Foreign = m.Foreign.Name
		}
		if m.HasValue {
			md.Value = m.Value
		}
		d.Mappings = append(d.Mappings, md)
	}
	return d
}
