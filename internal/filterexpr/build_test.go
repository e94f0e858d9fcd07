package filterexpr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smhg/criteria/internal/adapter"
	"github.com/smhg/criteria/internal/criteria"
	"github.com/smhg/criteria/internal/schema"
)

func library(t *testing.T) *schema.DatabaseMap {
	t.Helper()
	db := schema.NewDatabase("library")
	book := db.AddTable("book", "Book")
	book.AddColumn("id", "Id", schema.TypeInteger, schema.PrimaryKey())
	book.AddColumn("title", "Title", schema.TypeVarchar)
	book.AddColumn("author_id", "AuthorId", schema.TypeInteger)
	author := db.AddTable("author", "Author")
	author.AddColumn("id", "Id", schema.TypeInteger, schema.PrimaryKey())
	author.AddColumn("name", "Name", schema.TypeVarchar)
	_, err := db.AddRelation(schema.RelationDef{
		Name: "Author", LocalTable: "book", ForeignTable: "author",
		Mappings: []schema.MappingDef{{Local: "author_id", Foreign: "id"}},
	})
	require.NoError(t, err)
	return db
}

func TestBuild(t *testing.T) {
	db := library(t)
	tests := []struct {
		input string
		sql   string
		args  []any
	}{
		{"title LIKE 'War%' AND (author_id IN (1, 2, 3) OR id = 4)",
			"(book.title LIKE :p1 AND (book.author_id IN (:p2,:p3,:p4) OR book.id = :p5))",
			[]any{"War%", int64(1), int64(2), int64(3), int64(4)}},
		{"Title = 'x' OR Id > 2 AND AuthorId < 9",
			"(book.title = :p1 OR (book.id > :p2 AND book.author_id < :p3))",
			[]any{"x", int64(2), int64(9)}},
		{"book.title IS NOT NULL", "book.title IS NOT NULL", []any{}},
		{"title = null", "book.title IS NULL", []any{}},
		{"title ilike 'w%'", "book.title ILIKE :p1", []any{"w%"}},
		{"id NOT IN ()", "1=1", []any{}},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			c := criteria.New(db, "book")
			f, err := Compile(c, tt.input)
			require.NoError(t, err)
			sql, params, err := f.Build(adapter.Postgres{})
			require.NoError(t, err)
			assert.Equal(t, tt.sql, sql)
			args := []any{}
			for _, p := range params {
				args = append(args, p.Value)
			}
			assert.Equal(t, tt.args, args)
		})
	}
}

func TestBuildILikeFallback(t *testing.T) {
	db := library(t)
	f, err := Compile(criteria.New(db, "book"), "title NOT ILIKE 'w%'")
	require.NoError(t, err)
	sql, _, err := f.Build(adapter.MySQL{})
	require.NoError(t, err)
	assert.Equal(t, "UPPER(book.title) NOT LIKE UPPER(:p1)", sql)
}

func TestApply(t *testing.T) {
	db := library(t)
	c := criteria.New(db, "book").Select("book.id").JoinRelation("Author", "a", criteria.InnerJoin)
	require.NoError(t, Apply(c, "a.name = 'Tolstoy'"))
	require.NoError(t, Apply(c, "id > 10"))

	stmt, err := c.Compile()
	require.NoError(t, err)
	assert.Equal(t, "SELECT book.id FROM book INNER JOIN author AS a ON (book.author_id = a.id) WHERE a.name = :p1 AND book.id > :p2", stmt.SQL)
	assert.Equal(t, []any{"Tolstoy", int64(10)}, stmt.Args())
}

func TestBuildErrors(t *testing.T) {
	db := library(t)
	c := criteria.New(db, "book")

	_, err := Compile(c, "missing = 1")
	var colErr *criteria.UnknownColumnError
	require.ErrorAs(t, err, &colErr)
	assert.Equal(t, "missing", colErr.Column)

	_, err = Compile(c, "id > null")
	var valErr *criteria.InvalidValueError
	assert.ErrorAs(t, err, &valErr)

	err = Apply(c, "id =")
	assert.Error(t, err)
	assert.NoError(t, c.Err(), "parse errors do not poison the criteria")

	_, err = Build(c, nil)
	assert.Error(t, err)
}
