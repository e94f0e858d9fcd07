package schema

import (
	"fmt"
	"strings"
	"sync"
)

// DatabaseMap is the registry of table metadata consumed by the criteria engine.
// It is safe for concurrent reads once loaded.
type DatabaseMap struct {
	Name    string
	Adapter string // adapter name, e.g. "pgsql"

	mu        sync.RWMutex
	tables    map[string]*TableMap
	byLogical map[string]*TableMap
	order     []*TableMap
}

// NewDatabase returns an empty database map.
func NewDatabase(name string) *DatabaseMap {
	return &DatabaseMap{
		Name:      name,
		tables:    make(map[string]*TableMap),
		byLogical: make(map[string]*TableMap),
	}
}

// AddTable creates and registers a table. Registering a name twice returns the existing table.
func (d *DatabaseMap) AddTable(name, logicalName string) *TableMap {
	d.mu.Lock()
	defer d.mu.Unlock()
	if t, ok := d.tables[name]; ok {
		return t
	}
	t := NewTable(name, logicalName)
	t.db = d
	d.tables[name] = t
	d.byLogical[t.LogicalName] = t
	d.order = append(d.order, t)
	return t
}

// Table finds a table by SQL name or logical name.
func (d *DatabaseMap) Table(name string) (*TableMap, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if t, ok := d.tables[name]; ok {
		return t, true
	}
	t, ok := d.byLogical[name]
	return t, ok
}

// Tables returns the tables in registration order.
func (d *DatabaseMap) Tables() []*TableMap {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]*TableMap(nil), d.order...)
}

// TableCount returns the number of registered tables.
func (d *DatabaseMap) TableCount() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.order)
}

// Column resolves a "table.column" name, accepting SQL or logical names on both sides.
func (d *DatabaseMap) Column(fqn string) (*ColumnMap, bool) {
	i := strings.LastIndexByte(fqn, '.')
	if i < 0 {
		return nil, false
	}
	t, ok := d.Table(fqn[:i])
	if !ok {
		return nil, false
	}
	return t.Column(fqn[i+1:])
}

// AddRelation registers the relation described by def on its local table, together with
// its symmetrical relation on the foreign table.
func (d *DatabaseMap) AddRelation(def RelationDef) (*RelationMap, error) {
	local, ok := d.Table(def.LocalTable)
	if !ok {
		return nil, fmt.Errorf("relation %s: unknown table %q", def.Name, def.LocalTable)
	}
	foreign, ok := d.Table(def.ForeignTable)
	if !ok {
		return nil, fmt.Errorf("relation %s: unknown table %q", def.Name, def.ForeignTable)
	}
	if def.Name == "" {
		def.Name = foreign.LogicalName
	}
	rel, err := def.build(local, foreign)
	if err != nil {
		return nil, err
	}
	inverse := def.Inverse
	if inverse == "" {
		inverse = local.LogicalName
	}
	inv := rel.invert(inverse)

	d.mu.Lock()
	defer d.mu.Unlock()
	if _, dup := local.relByName[rel.Name]; dup {
		return nil, fmt.Errorf("relation %s already declared on %s", rel.Name, local.Name)
	}
	local.addRelation(rel)
	if _, dup := foreign.relByName[inv.Name]; !dup {
		foreign.addRelation(inv)
	}
	return rel, nil
}

// TableByLogicalName finds a table by its logical name only.
func (d *DatabaseMap) TableByLogicalName(name string) (*TableMap, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	t, ok := d.byLogical[name]
	return t, ok
}
