package criteria

import (
	"errors"
	"strings"
	"testing"

	sq "github.com/Masterminds/squirrel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smhg/criteria/internal/adapter"
	"github.com/smhg/criteria/internal/schema"
)

func TestResolve(t *testing.T) {
	db := bookstore(t)
	q := New(db, "book")

	tests := []struct {
		id   string
		want string
	}{
		{"book.title", "book.title"},
		{"Book.Title", "book.title"},
		{"title", "book.title"},
		{"Title", "book.title"},
		{"author.name", "author.name"},
		{"Author.Name", "author.name"},
	}
	for _, tt := range tests {
		ref, err := q.Resolve(tt.id, false)
		if err != nil {
			t.Errorf("Resolve(%q): %v", tt.id, err)
			continue
		}
		if ref.FullName() != tt.want {
			t.Errorf("Resolve(%q): expected %s, got %s", tt.id, tt.want, ref.FullName())
		}
		if ref.Column == nil {
			t.Errorf("Resolve(%q): expected bound column", tt.id)
		}
	}

	ref, _ := q.Resolve("book.id", false)
	same, err := q.Resolve(ref, false)
	require.NoError(t, err)
	assert.Equal(t, ref, same)
}

func TestResolveAlias(t *testing.T) {
	db := bookstore(t)
	q := New(db, "book").As("b")

	for _, id := range []string{"b.title", "Book.Title", "title"} {
		ref, err := q.Resolve(id, false)
		require.NoError(t, err, id)
		assert.Equal(t, "b.title", ref.FullName(), id)
	}

	q.AddAlias("a", "author")
	ref, err := q.Resolve("a.name", false)
	require.NoError(t, err)
	assert.Equal(t, "a.name", ref.FullName())
	assert.Equal(t, "author", ref.tableName())
}

func TestResolveErrors(t *testing.T) {
	db := bookstore(t)
	q := New(db, "book")

	_, err := q.Resolve("nope", false)
	var colErr *UnknownColumnError
	require.ErrorAs(t, err, &colErr)
	assert.Equal(t, "nope", colErr.Column)

	_, err = q.Resolve("publisher.id", false)
	require.ErrorAs(t, err, &colErr)
	var tableErr *UnknownTableError
	assert.ErrorAs(t, err, &tableErr)

	_, err = q.Resolve("book.nope", false)
	assert.ErrorAs(t, err, &colErr)

	_, err = newEmpty(db).Resolve("title", false)
	assert.True(t, errors.Is(err, errNoPrimaryTable))

	_, err = q.Resolve(42, false)
	assert.ErrorAs(t, err, &colErr)
}

func TestResolveOutputColumns(t *testing.T) {
	db := bookstore(t)
	q := New(db, "book").AddAsColumn("nb", "COUNT(book.id)")

	ref, err := q.Resolve("nb", true)
	require.NoError(t, err)
	assert.True(t, ref.AsColumn)

	_, err = q.Resolve("nb", false)
	assert.Error(t, err)
}

func TestLikeAndInScenario(t *testing.T) {
	db := bookstore(t)
	q := New(db, "book").
		Filter("book.title", OpLike, "War%").
		Filter("book.author_id", OpIn, []int{1, 2, 3})

	sql, args, err := q.ToSql()
	require.NoError(t, err)
	assert.Equal(t, "SELECT book.id, book.title, book.author_id FROM book WHERE book.title LIKE ? AND book.author_id IN (?,?,?)", sql)
	assert.Equal(t, []any{"War%", 1, 2, 3}, args)
}

func TestExistsScenario(t *testing.T) {
	db := bookstore(t)
	stmt := compile(t, New(db, "book").UseExistsQuery("Author", "", nil))
	assert.Equal(t, "SELECT book.id, book.title, book.author_id FROM book WHERE EXISTS (SELECT 1 FROM author WHERE author.id = book.author_id)", stmt.SQL)
	assert.Empty(t, stmt.Params)
}

func TestSubqueries(t *testing.T) {
	db := bookstore(t)
	tests := []struct {
		name  string
		query *Criteria
		want  string
		args  []any
	}{
		{"not exists with alias and filter", New(db, "book").Select("book.id").
			UseNotExistsQuery("Author", "a", func(s *Criteria) { s.Filter("a.name", OpEq, "Tolstoy") }),
			"SELECT book.id FROM book WHERE NOT EXISTS (SELECT 1 FROM author AS a WHERE a.name = :p1 AND a.id = book.author_id)",
			[]any{"Tolstoy"}},
		{"exists from the one side", New(db, "author").Select("author.id").UseExistsQuery("Book", "", nil),
			"SELECT author.id FROM author WHERE EXISTS (SELECT 1 FROM book WHERE book.author_id = author.id)",
			[]any{}},
		{"in query", New(db, "book").Select("book.id").
			UseInQuery("Author", "", func(s *Criteria) { s.Filter("author.name", OpEq, "Tolstoy") }),
			"SELECT book.id FROM book WHERE book.author_id IN (SELECT author.id FROM author WHERE author.name = :p1)",
			[]any{"Tolstoy"}},
		{"not in query", New(db, "book").Select("book.id").UseNotInQuery("Author", "", nil),
			"SELECT book.id FROM book WHERE book.author_id NOT IN (SELECT author.id FROM author)",
			[]any{}},
		{"where in query", New(db, "book").Select("book.id").Filter("book.id", OpGt, 10).
			WhereInQuery("book.author_id", OpIn, New(db, "author").Select("author.id").Filter("author.country_id", OpEq, 3)),
			"SELECT book.id FROM book WHERE book.id > :p1 AND book.author_id IN (SELECT author.id FROM author WHERE author.country_id = :p2)",
			[]any{10, 3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stmt := compile(t, tt.query)
			assert.Equal(t, tt.want, stmt.SQL)
			assert.Equal(t, tt.args, stmt.Args())
		})
	}

	q := New(db, "book").UseExistsQuery("Publisher", "", nil)
	var relErr *UnknownRelationError
	assert.ErrorAs(t, q.Err(), &relErr)
}

func TestParameterOrdering(t *testing.T) {
	db := bookstore(t)
	inner := New(db, "author").Select("author.id").Filter("author.name", OpEq, "Tolstoy")
	q := New(db, "book").
		Select("book.author_id").
		AddAsColumn("nb", "COUNT(Book.Id)").
		AddSelectQuery(New(db, "country").Select("country.id").Filter("country.name", OpEq, "RU"), "c").
		Filter("book.title", OpLike, "War%").
		WhereInQuery("book.author_id", OpIn, inner).
		GroupBy("book.author_id").
		Having("COUNT(Book.Id) > ?", 2)

	stmt := compile(t, q)
	assert.Equal(t, "SELECT book.author_id, COUNT(book.id) AS nb"+
		" FROM book, (SELECT country.id FROM country WHERE country.name = :p1) AS c"+
		" WHERE book.title LIKE :p2 AND book.author_id IN (SELECT author.id FROM author WHERE author.name = :p3)"+
		" GROUP BY book.author_id HAVING COUNT(book.id) > :p4", stmt.SQL)
	assert.Equal(t, []any{"RU", "War%", "Tolstoy", 2}, stmt.Args())

	// the Nth placeholder in the text is :pN
	for i := range stmt.Params {
		assert.Contains(t, stmt.SQL, ":p"+string(rune('1'+i)))
	}
	assert.NotContains(t, stmt.SQL, mark)
}

func TestColumnMerge(t *testing.T) {
	db := bookstore(t)

	q := New(db, "book").Select("book.id").FilterBy("Id", 1).FilterBy("Id", 2)
	assert.Equal(t, "(book.id = :p1 AND book.id = :p2)", whereOf(t, q))
	assert.Len(t, q.filters.root.entries, 1)

	q = New(db, "book").Select("book.id").FilterBy("Id", 1).FilterBy("Title", "x").FilterBy("Id", 2)
	assert.Equal(t, "(book.id = :p1 AND book.id = :p2) AND book.title = :p3", whereOf(t, q))

	q = New(db, "book").Select("book.id").Where("Book.Id = ?", 1).Where("Book.Id = ?", 2)
	assert.Equal(t, "book.id = :p1 AND book.id = :p2", whereOf(t, q))
	assert.Len(t, q.filters.root.entries, 2)
}

func TestOr(t *testing.T) {
	db := bookstore(t)
	q := New(db, "book").Select("book.id").
		Filter("book.id", OpEq, 1).
		Filter("book.title", OpEq, "a").
		Or().Filter("book.title", OpEq, "b").
		Filter("book.author_id", OpEq, 2)
	assert.Equal(t, "book.id = :p1 AND (book.title = :p2 OR book.title = :p3) AND book.author_id = :p4", whereOf(t, q))
}

func TestFilterBy(t *testing.T) {
	db := bookstore(t)
	tests := []struct {
		name  string
		col   string
		value any
		want  string
		args  []any
	}{
		{"scalar", "Id", 3, "item.id = :p1", []any{3}},
		{"list", "Id", []int{1, 2}, "item.id IN (:p1,:p2)", []any{1, 2}},
		{"range", "Id", map[string]any{"min": 1, "max": 9}, "(item.id >= :p1 AND item.id <= :p2)", []any{1, 9}},
		{"min only", "Id", map[string]any{"min": 4}, "item.id >= :p1", []any{4}},
		{"enum", "Genre", "essay", "item.genre = :p1", []any{2}},
		{"set list", "Tags", []string{"new", "classic"}, "item.tags & :p1 = :p2", []any{3, 3}},
		{"array list", "Labels", []string{"a", "b"}, "(item.labels LIKE :p1 AND item.labels LIKE :p2)", []any{"%| a |%", "%| b |%"}},
		{"null", "Genre", nil, "item.genre IS NULL", []any{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stmt := compile(t, New(db, "item").Select("item.id").FilterBy(tt.col, tt.value))
			_, where, _ := strings.Cut(stmt.SQL, " WHERE ")
			assert.Equal(t, tt.want, where)
			assert.Equal(t, tt.args, stmt.Args())
		})
	}

	q := New(db, "book").Select("book.id").FilterBy("Title", "War*")
	assert.Equal(t, "book.title LIKE :p1", whereOf(t, q))
	assert.Equal(t, []any{"War%"}, compile(t, q).Args())
}

func TestWhereSqlizer(t *testing.T) {
	db := bookstore(t)

	q := New(db, "book").Select("book.id").WhereSqlizer(sq.Eq{"book.id": []int{1, 2}})
	assert.Equal(t, "book.id IN (:p1,:p2)", whereOf(t, q))

	q = New(db, "book").Select("book.id").WhereSqlizer(sq.And{sq.Eq{"book.title": "x"}, sq.Gt{"book.id": 3}})
	assert.Equal(t, "(book.title = :p1 AND book.id > :p2)", whereOf(t, q))
	assert.Equal(t, []any{"x", 3}, compile(t, q).Args())

	q = New(db, "book").Select("book.id").WhereSqlizer(sq.Eq{"book.title": nil})
	assert.Equal(t, "book.title IS NULL", whereOf(t, q))
}

func TestCriteriaAsSqlizer(t *testing.T) {
	db := bookstore(t)
	inner := New(db, "book").Select("book.author_id").Filter("book.title", OpEq, "War")

	sql, args, err := sq.Select("author.name").From("author").
		Where(sq.Expr("author.id IN (?)", inner)).
		ToSql()
	require.NoError(t, err)
	assert.Equal(t, "SELECT author.name FROM author WHERE author.id IN (SELECT book.author_id FROM book WHERE book.title = ?)", sql)
	assert.Equal(t, []any{"War"}, args)
}

func TestNamedConditions(t *testing.T) {
	db := bookstore(t)
	q := New(db, "book").Select("book.id").
		Condition("c1", "Book.Title = ?", "War").
		Condition("c2", "Book.Id > ?", 5).
		Combine([]string{"c1", "c2"}, Or, "c12").
		Condition("c3", "Book.AuthorId = ?", 1).
		WhereConditions("c12", "c3")
	assert.Equal(t, "((book.title = :p1 OR book.id > :p2) AND book.author_id = :p3)", whereOf(t, q))

	q = New(db, "book").Select("book.id").Condition("c1", "Book.Id = ?", 1).WhereConditions("c1", "missing")
	var condErr *UnknownConditionError
	require.ErrorAs(t, q.Err(), &condErr)
	assert.Equal(t, "missing", condErr.Name)

	q = New(db, "book").Select("book.id").Condition("c1", "Book.Id = ?", 1).Combine([]string{"c1", "c1"}, Or, "")
	var dupErr *DuplicateConditionError
	require.ErrorAs(t, q.Err(), &dupErr)
	assert.Equal(t, "c1", dupErr.Name)

	q = New(db, "book").Select("book.author_id").AddAsColumn("nb", "COUNT(Book.Id)").GroupBy("book.author_id").
		Condition("h1", "COUNT(Book.Id) > ?", 1).
		Condition("h2", "COUNT(Book.Id) < ?", 9).
		HavingConditions("h1", "h2")
	stmt := compile(t, q)
	assert.True(t, strings.HasSuffix(stmt.SQL, " HAVING (COUNT(book.id) > :p1 AND COUNT(book.id) < :p2)"), stmt.SQL)
}

func TestAddFilterTwice(t *testing.T) {
	db := bookstore(t)
	q := New(db, "book").Select("book.id")
	f, err := q.NewFilter("book.id", OpEq, 1)
	require.NoError(t, err)
	q.AddFilter(f).AddFilter(f)
	assert.Equal(t, "book.id = :p1", whereOf(t, q))

	g, err := q.NewFilter("book.title", OpEq, "War")
	require.NoError(t, err)
	g.AddOr(g)
	assert.Equal(t, 0, g.Siblings())

	h, err := q.NewFilter("book.id", OpGt, 5)
	require.NoError(t, err)
	g.AddAnd(h)
	h.AddOr(g)
	assert.Equal(t, 0, h.Siblings())

	q = New(db, "book").Select("book.id").AddFilter(g).Or().AddFilter(g)
	assert.Equal(t, "(book.title = :p1 AND book.id > :p2)", whereOf(t, q))
}

func TestCombineFilters(t *testing.T) {
	db := bookstore(t)

	q := New(db, "book").Select("book.id")
	q.CombineFilters(And).Filter("book.title", OpEq, "a").Filter("book.id", OpEq, 1)
	require.True(t, q.EndCombineFilters())
	q.CombineFilters(Or).Filter("book.title", OpEq, "b").Filter("book.id", OpEq, 2)
	require.True(t, q.EndCombineFilters())
	assert.False(t, q.EndCombineFilters())
	assert.Equal(t, "((book.title = :p1 AND book.id = :p2) OR (book.title = :p3 AND book.id = :p4))", whereOf(t, q))

	q = New(db, "book").Select("book.id")
	q.CombineFilters(And).Filter("book.id", OpEq, 1)
	q.CombineFilters(Or).Filter("book.title", OpEq, "x").Filter("book.author_id", OpEq, 2)
	q.EndCombineFilters()
	q.EndCombineFilters()
	assert.Equal(t, "(book.id = :p1 OR (book.title = :p2 AND book.author_id = :p3))", whereOf(t, q))
}

func TestCombineFiltersMergeStaysInScope(t *testing.T) {
	db := bookstore(t)
	q := New(db, "book").Select("book.id").FilterBy("Id", 1)
	q.CombineFilters(Or).FilterBy("Id", 2).FilterBy("Id", 3)
	q.EndCombineFilters()
	assert.Equal(t, "(book.id = :p1 OR (book.id = :p2 AND book.id = :p3))", whereOf(t, q))
}

func TestOpenCombineFoldsAtCompile(t *testing.T) {
	db := bookstore(t)
	q := New(db, "book").Select("book.id").Filter("book.id", OpEq, 1)
	q.CombineFilters(Or).Filter("book.title", OpEq, "x")

	first := compile(t, q).SQL
	assert.Equal(t, "SELECT book.id FROM book WHERE (book.id = :p1 OR book.title = :p2)", first)
	assert.Equal(t, first, compile(t, q).SQL, "compiling must not consume open brackets")
	assert.True(t, q.EndCombineFilters())
}

func TestCloneIsDeep(t *testing.T) {
	db := bookstore(t)
	q := New(db, "book").Select("book.id").FilterBy("Id", 1).JoinRelation("Author.Country", "", InnerJoin).
		Having("COUNT(Book.Id) > ?", 1)
	before := compile(t, q).SQL

	cl := q.Clone()
	assert.True(t, cl.Equal(q))
	cl.FilterBy("Id", 2).Or().Filter("book.title", OpEq, "x").Having("COUNT(Book.Id) < ?", 5).Limit(3)
	cl.Select("book.title")

	assert.Equal(t, before, compile(t, q).SQL)
	assert.NotEqual(t, before, compile(t, cl).SQL)
	assert.False(t, cl.Equal(q))

	require.Len(t, cl.Joins(), 2)
	assert.Same(t, cl.Joins()[0], cl.Joins()[1].Previous)
	assert.NotSame(t, q.Joins()[0], cl.Joins()[1].Previous)
	j, ok := cl.JoinFor("Country")
	require.True(t, ok)
	assert.Same(t, cl.Joins()[1], j)
}

func TestSelect(t *testing.T) {
	db := bookstore(t)
	tests := []struct {
		name  string
		query *Criteria
		want  string
	}{
		{"default columns", New(db, "author"), "SELECT author.id, author.name, author.country_id FROM author"},
		{"as column only", New(db, "book").AddAsColumn("nb", "COUNT(*)"), "SELECT COUNT(*) AS nb FROM book"},
		{"distinct", New(db, "book").Distinct().Select("book.title"), "SELECT DISTINCT book.title FROM book"},
		{"raw expression", New(db, "book").AddSelectColumn("MAX(book.id)"), "SELECT MAX(book.id) FROM book"},
		{"duplicate names alias every column", New(db, "book").JoinRelation("Author", "", InnerJoin).
			Select("book.id", "author.id", "book.title"),
			"SELECT book.id AS book_id, author.id AS author_id, book.title AS book_title FROM book INNER JOIN author ON (book.author_id = author.id)"},
		{"primary alias", New(db, "book").As("b").Select("title"), "SELECT b.title FROM book AS b"},
		{"order and limit", New(db, "book").Select("book.id").AddDescendingOrderBy("Id").AddAscendingOrderBy("title").Limit(10).Offset(20),
			"SELECT book.id FROM book ORDER BY book.id DESC, book.title ASC LIMIT 10 OFFSET 20"},
		{"order ignore case", New(db, "book").Select("book.id").IgnoreCase(true).OrderBy("title", "asc"),
			"SELECT book.id FROM book ORDER BY UPPER(book.title) ASC"},
		{"mysql limit", New(db, "book").WithAdapter(adapter.MySQL{}).Select("book.id").Limit(10).Offset(20),
			"SELECT book.id FROM book LIMIT 20, 10"},
		{"modifier", New(db, "book").AddSelectModifier("sql_no_cache").Select("book.id"), "SELECT SQL_NO_CACHE book.id FROM book"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, compile(t, tt.query).SQL)
		})
	}

	q := New(db, "book").OrderBy("title", "sideways")
	var clauseErr *InvalidClauseError
	assert.ErrorAs(t, q.Err(), &clauseErr)
}

func TestDerivedTables(t *testing.T) {
	db := bookstore(t)
	stats := New(db, "book").Select("book.author_id").AddAsColumn("nb", "COUNT(book.id)").GroupBy("book.author_id")

	q := NewFromQuery(stats, "stats").Filter("stats.nb", OpGt, 2).AddDescendingOrderBy("nb")
	stmt := compile(t, q)
	assert.Equal(t, "SELECT stats.author_id, stats.nb FROM (SELECT book.author_id, COUNT(book.id) AS nb FROM book GROUP BY book.author_id) AS stats WHERE stats.nb > :p1 ORDER BY stats.nb DESC", stmt.SQL)
	assert.Equal(t, []any{2}, stmt.Args())

	_, err := q.Resolve("stats.missing", false)
	assert.Error(t, err)
}

func TestCount(t *testing.T) {
	db := bookstore(t)

	q := New(db, "book").Filter("book.title", OpEq, "x").AddAscendingOrderBy("title")
	assert.Equal(t, "SELECT COUNT(*) AS count FROM book WHERE book.title = :p1", compile(t, q.Count()).SQL)

	q = New(db, "book").Limit(5)
	assert.Equal(t, "SELECT COUNT(*) AS count FROM (SELECT book.id, book.title, book.author_id FROM book LIMIT 5) AS counted", compile(t, q.Count()).SQL)
}

func TestIdentifierQuoting(t *testing.T) {
	db := schema.NewDatabase("app")
	users := db.AddTable("user", "User")
	users.IdentifierQuoting = true
	users.AddColumn("id", "Id", schema.TypeInteger, schema.PrimaryKey())
	users.AddColumn("name", "Name", schema.TypeVarchar)

	q := New(db, "user").Select("user.id").Filter("name", OpEq, "x")
	assert.Equal(t, `SELECT "user"."id" FROM "user" WHERE "user"."name" = :p1`, compile(t, q).SQL)

	q = New(db, "user").WithAdapter(adapter.MySQL{}).As("u").Select("id")
	assert.Equal(t, "SELECT `u`.`id` FROM `user` AS `u`", compile(t, q).SQL)
}

func TestErrorsAreSticky(t *testing.T) {
	db := bookstore(t)

	q := New(db, "nope")
	var tableErr *UnknownTableError
	require.ErrorAs(t, q.Err(), &tableErr)
	q.Filter("id", OpEq, 1).FilterBy("title", "x").JoinRelation("Author", "", InnerJoin)
	_, err := q.Compile()
	assert.ErrorAs(t, err, &tableErr)

	q = New(db, "book").Filter("missing", OpEq, 1).Filter("book.id", OpGt, nil)
	var colErr *UnknownColumnError
	assert.ErrorAs(t, q.Err(), &colErr)
	assert.Contains(t, q.String(), "unknown column")
}

func TestStatementRendering(t *testing.T) {
	db := bookstore(t)
	q := New(db, "book").Select("book.id").Filter("book.title", OpEq, "O'Neil").Filter("book.id", OpIn, []int{1, 2})
	stmt := compile(t, q)

	assert.Equal(t, "SELECT book.id FROM book WHERE book.title = 'O''Neil' AND book.id IN (1,2)", stmt.String())

	sql, args, err := stmt.Query()
	require.NoError(t, err)
	assert.Equal(t, "SELECT book.id FROM book WHERE book.title = $1 AND book.id IN ($2,$3)", sql)
	assert.Equal(t, []any{"O'Neil", 1, 2}, args)

	require.Len(t, stmt.Params, 3)
	assert.Equal(t, Param{Table: "book", Column: "title", Type: schema.TypeVarchar, Value: "O'Neil"}, stmt.Params[0])

	sqlite := compile(t, q.Clone().WithAdapter(adapter.SQLite{}))
	sql, _, err = sqlite.Query()
	require.NoError(t, err)
	assert.Equal(t, "SELECT book.id FROM book WHERE book.title = ? AND book.id IN (?,?)", sql)
}

func TestStatementLiteralPlaceholders(t *testing.T) {
	db := bookstore(t)

	q := New(db, "book").Select("book.id").Where("book.title = 'Why?' AND book.id = ?", 7)
	stmt := compile(t, q)
	assert.Equal(t, "SELECT book.id FROM book WHERE book.title = 'Why?' AND book.id = :p1", stmt.SQL)

	sql, args, err := stmt.Query()
	require.NoError(t, err)
	assert.Equal(t, "SELECT book.id FROM book WHERE book.title = 'Why?' AND book.id = $1", sql)
	assert.Equal(t, []any{7}, args)

	sql, args, err = stmt.ToSql()
	require.NoError(t, err)
	assert.Equal(t, "SELECT book.id FROM book WHERE book.title = 'Why?' AND book.id = ?", sql)
	assert.Equal(t, []any{7}, args)
	assert.Equal(t, "SELECT book.id FROM book WHERE book.title = 'Why?' AND book.id = 7", stmt.String())

	q = New(db, "book").Select("book.id").Where("book.title = 'x:p1' AND book.id = ?", 7)
	stmt = compile(t, q)

	sql, args, err = stmt.ToSql()
	require.NoError(t, err)
	assert.Equal(t, "SELECT book.id FROM book WHERE book.title = 'x:p1' AND book.id = ?", sql)
	assert.Equal(t, []any{7}, args)

	sql, args, err = stmt.Query()
	require.NoError(t, err)
	assert.Equal(t, "SELECT book.id FROM book WHERE book.title = 'x:p1' AND book.id = $1", sql)
	assert.Equal(t, []any{7}, args)
	assert.Equal(t, "SELECT book.id FROM book WHERE book.title = 'x:p1' AND book.id = 7", stmt.String())
}

func TestStatementWithoutPositions(t *testing.T) {
	stmt := &Statement{SQL: "SELECT 1 WHERE a = :p1", Params: []Param{{Value: 1}}}
	_, _, err := stmt.ToSql()
	assert.Error(t, err)

	stmt = &Statement{SQL: "SELECT 1"}
	sql, args, err := stmt.ToSql()
	require.NoError(t, err)
	assert.Equal(t, "SELECT 1", sql)
	assert.Empty(t, args)
}

func TestEqual(t *testing.T) {
	db := bookstore(t)
	build := func() *Criteria {
		return New(db, "book").Select("book.id").FilterBy("Id", []int{1, 2}).JoinRelation("Author", "a", LeftJoin).
			UseExistsQuery("Author", "", nil).AddDescendingOrderBy("title").Limit(4)
	}
	assert.True(t, build().Equal(build()))
	assert.False(t, build().Equal(build().Offset(1)))
	assert.False(t, build().Equal(build().Filter("book.title", OpEq, "x")))
	assert.False(t, build().Equal(New(db, "author")))
}
