package cli

import (
	"fmt"
	"io"
	"net/url"

	"github.com/smhg/criteria/internal/criteria"
	"github.com/smhg/criteria/internal/querydoc"
	"github.com/smhg/criteria/internal/schema"
)

// QueryOptions selects the query document of compile and exec.
type QueryOptions struct {
	Query  string // document path, "-" for stdin
	Params string // URL query string form
}

func (q *QueryOptions) document(stdin io.Reader) (*querydoc.Document, error) {
	switch {
	case q.Query != "" && q.Params != "":
		return nil, fmt.Errorf("--query and --params are mutually exclusive")
	case q.Query == "-":
		return querydoc.Decode(stdin)
	case q.Query != "":
		return querydoc.LoadFile(q.Query)
	case q.Params != "":
		values, err := url.ParseQuery(q.Params)
		if err != nil {
			return nil, fmt.Errorf("parse params: %w", err)
		}
		return querydoc.FromValues(values)
	}
	return nil, fmt.Errorf("one of --query or --params is required")
}

// loadSchema reads the schema file and applies the adapter precedence: the --adapter
// flag, then the schema file, then $CRITERIA_ADAPTER.
func (o *RootOptions) loadSchema() (*schema.DatabaseMap, error) {
	if o.Schema == "" {
		return nil, fmt.Errorf("no schema: pass --schema or set CRITERIA_SCHEMA")
	}
	db, err := schema.LoadYAMLFile(o.Schema)
	if err != nil {
		return nil, err
	}
	switch {
	case o.Adapter != "":
		db.Adapter = o.Adapter
	case db.Adapter == "":
		db.Adapter = o.config().Adapter
	}
	return db, nil
}

// build loads the schema and the document and turns them into a criteria.
func (o *RootOptions) build(q *QueryOptions, stdin io.Reader) (*criteria.Criteria, error) {
	db, err := o.loadSchema()
	if err != nil {
		return nil, err
	}
	doc, err := q.document(stdin)
	if err != nil {
		return nil, err
	}
	return doc.Build(db)
}
