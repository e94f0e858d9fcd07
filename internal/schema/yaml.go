package schema

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

type yamlDatabase struct {
	Name    string      `yaml:"name"`
	Adapter string      `yaml:"adapter"`
	Tables  []yamlTable `yaml:"tables"`
}

type yamlTable struct {
	Name      string        `yaml:"name"`
	Logical   string        `yaml:"logical"`
	Quoting   bool          `yaml:"identifier_quoting,omitempty"`
	Columns   []yamlColumn  `yaml:"columns"`
	Relations []RelationDef `yaml:"relations,omitempty"`
}

type yamlColumn struct {
	Name       string   `yaml:"name"`
	Logical    string   `yaml:"logical"`
	Type       string   `yaml:"type"`
	PrimaryKey bool     `yaml:"primary_key,omitempty"`
	Required   bool     `yaml:"required,omitempty"`
	Values     []string `yaml:"values,omitempty"`
}

// LoadYAMLFile reads a database map from a YAML schema file.
func LoadYAMLFile(path string) (*DatabaseMap, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open schema: %w", err)
	}
	defer f.Close()
	return LoadYAML(f)
}

// LoadYAML reads a database map from YAML. Relations are linked after all tables are known,
// so they may reference tables declared later in the document.
func LoadYAML(r io.Reader) (*DatabaseMap, error) {
	var doc yamlDatabase
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode schema: %w", err)
	}

	db := NewDatabase(doc.Name)
	db.Adapter = doc.Adapter
	for _, yt := range doc.Tables {
		if yt.Name == "" {
			return nil, fmt.Errorf("schema: table without name")
		}
		t := db.AddTable(yt.Name, yt.Logical)
		t.IdentifierQuoting = yt.Quoting
		for _, yc := range yt.Columns {
			var opts []ColumnOption
			if yc.PrimaryKey {
				opts = append(opts, PrimaryKey())
			}
			if yc.Required {
				opts = append(opts, NotNull())
			}
			if len(yc.Values) > 0 {
				opts = append(opts, Values(yc.Values...))
			}
			t.AddColumn(yc.Name, yc.Logical, ParseColumnType(yc.Type), opts...)
		}
	}

	for _, yt := range doc.Tables {
		for _, def := range yt.Relations {
			def.LocalTable = yt.Name
			if _, err := db.AddRelation(def); err != nil {
				return nil, fmt.Errorf("schema: %w", err)
			}
		}
	}
	return db, nil
}

// WriteYAML encodes db in the format read by LoadYAML. Only declared relations are
// written; their symmetrical relations are rebuilt on load.
func WriteYAML(w io.Writer, db *DatabaseMap) error {
	doc := yamlDatabase{Name: db.Name, Adapter: db.Adapter}
	for _, t := range db.Tables() {
		yt := yamlTable{Name: t.Name, Logical: t.LogicalName, Quoting: t.IdentifierQuoting}
		for _, c := range t.Columns() {
			yt.Columns = append(yt.Columns, yamlColumn{
				Name:       c.Name,
				Logical:    c.LogicalName,
				Type:       string(c.Type),
				PrimaryKey: c.PrimaryKey,
				Required:   c.NotNull && !c.PrimaryKey,
				Values:     c.ValueSet,
			})
		}
		for _, r := range t.Relations() {
			if r.derived {
				continue
			}
			yt.Relations = append(yt.Relations, r.def())
		}
		doc.Tables = append(doc.Tables, yt)
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(&doc); err != nil {
		return fmt.Errorf("encode schema: %w", err)
	}
	return enc.Close()
}
