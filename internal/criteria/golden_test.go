package criteria

import (
	"fmt"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/smhg/criteria/internal/adapter"
)

// render prints the statement followed by one line per bound parameter.
func render(stmt *Statement) []byte {
	var sb strings.Builder
	sb.WriteString(stmt.SQL + "\n")
	for i, p := range stmt.Params {
		fmt.Fprintf(&sb, ":p%d %s.%s %s %v\n", i+1, p.Table, p.Column, p.Type, p.Value)
	}
	return []byte(sb.String())
}

func TestGoldenStatements(t *testing.T) {
	db := bookstore(t)

	tests := []struct {
		name  string
		query func() *Criteria
	}{
		{"scenario_like_in", func() *Criteria {
			return New(db, "book").
				Filter("book.title", OpLike, "War%").
				Filter("book.author_id", OpIn, []int{1, 2, 3})
		}},
		{"exists_author", func() *Criteria {
			return New(db, "book").UseExistsQuery("Author", "", nil)
		}},
		{"report_mysql", func() *Criteria {
			return New(db, "book").WithAdapter(adapter.MySQL{}).IgnoreCase(true).
				JoinRelation("Author.Country", "", LeftJoin).
				Select("book.title", "author.name").
				AddAsColumn("nb", "COUNT(Book.Id)").
				Filter("country.name", OpLike, "fr%").
				GroupBy("book.title", "author.name").
				Having("COUNT(Book.Id) > ?", 1).
				AddDescendingOrderBy("nb").
				Limit(10).Offset(5)
		}},
		{"combine_sqlite", func() *Criteria {
			q := New(db, "book").WithAdapter(adapter.SQLite{}).Select("book.id")
			q.CombineFilters(And).Filter("book.title", OpEq, "a").Filter("book.author_id", OpEq, 1)
			q.EndCombineFilters()
			q.CombineFilters(Or).Filter("book.title", OpEq, "b").Filter("book.author_id", OpEq, 2)
			q.EndCombineFilters()
			return q.Offset(3)
		}},
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g.Assert(t, tt.name, render(compile(t, tt.query())))
		})
	}
}
