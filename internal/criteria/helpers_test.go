package criteria

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/smhg/criteria/internal/schema"
)

// bookstore builds book -> author -> country plus an item table with typed columns.
func bookstore(t *testing.T) *schema.DatabaseMap {
	t.Helper()
	db := schema.NewDatabase("bookstore")

	book := db.AddTable("book", "Book")
	book.AddColumn("id", "Id", schema.TypeInteger, schema.PrimaryKey())
	book.AddColumn("title", "Title", schema.TypeVarchar)
	book.AddColumn("author_id", "AuthorId", schema.TypeInteger)

	author := db.AddTable("author", "Author")
	author.AddColumn("id", "Id", schema.TypeInteger, schema.PrimaryKey())
	author.AddColumn("name", "Name", schema.TypeVarchar)
	author.AddColumn("country_id", "CountryId", schema.TypeInteger)

	country := db.AddTable("country", "Country")
	country.AddColumn("id", "Id", schema.TypeInteger, schema.PrimaryKey())
	country.AddColumn("name", "Name", schema.TypeVarchar)

	item := db.AddTable("item", "Item")
	item.AddColumn("id", "Id", schema.TypeInteger, schema.PrimaryKey())
	item.AddColumn("genre", "Genre", schema.TypeEnum, schema.Values("fiction", "poetry", "essay"))
	item.AddColumn("tags", "Tags", schema.TypeSet, schema.Values("new", "classic", "signed"))
	item.AddColumn("labels", "Labels", schema.TypeArray)

	_, err := db.AddRelation(schema.RelationDef{
		Name: "Author", LocalTable: "book", ForeignTable: "author", Inverse: "Book",
		Mappings: []schema.MappingDef{{Local: "author_id", Foreign: "id"}},
	})
	require.NoError(t, err)
	_, err = db.AddRelation(schema.RelationDef{
		Name: "Country", LocalTable: "author", ForeignTable: "country", Inverse: "Author",
		Mappings: []schema.MappingDef{{Local: "country_id", Foreign: "id"}},
	})
	require.NoError(t, err)
	return db
}

func compile(t *testing.T, c *Criteria) *Statement {
	t.Helper()
	stmt, err := c.Compile()
	require.NoError(t, err)
	return stmt
}

// whereOf returns the text after WHERE.
func whereOf(t *testing.T, c *Criteria) string {
	t.Helper()
	sql := compile(t, c).SQL
	_, where, ok := strings.Cut(sql, " WHERE ")
	require.True(t, ok, "no WHERE in %s", sql)
	return where
}

func values(params []Param) []any {
	out := make([]any, len(params))
	for i, p := range params {
		out[i] = p.Value
	}
	return out
}
