package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"golang.org/x/sync/errgroup"

	"github.com/smhg/criteria/internal/criteria"
	"github.com/smhg/criteria/internal/db"
	"github.com/smhg/criteria/internal/middleware"
	"github.com/smhg/criteria/internal/querydoc"
	"github.com/smhg/criteria/internal/schema"
)

// maxDocumentSize bounds request bodies holding query documents.
const maxDocumentSize = 1 << 20

// Handler serves compilation and execution of query documents over HTTP.
type Handler struct {
	schema *schema.DatabaseMap
	runner db.Runner
}

// New returns a handler compiling documents against dbMap. runner may be nil, in which
// case Query answers 501.
func New(dbMap *schema.DatabaseMap, runner db.Runner) *Handler {
	return &Handler{schema: dbMap, runner: runner}
}

// Routes registers the endpoints on mux.
func (h *Handler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("POST /compile", h.Compile)
	mux.HandleFunc("GET /compile", h.CompileParams)
	mux.HandleFunc("POST /query", h.Query)
	mux.HandleFunc("GET /tables", h.Tables)
}

// Compile handles POST /compile with a YAML or JSON query document.
func (h *Handler) Compile(w http.ResponseWriter, r *http.Request) {
	doc, ok := h.readDocument(w, r)
	if !ok {
		return
	}
	h.compile(w, r, doc)
}

// CompileParams handles GET /compile?from=book&Title=like.War*
func (h *Handler) CompileParams(w http.ResponseWriter, r *http.Request) {
	doc, err := querydoc.FromValues(r.URL.Query())
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_PARAM", err.Error(), "")
		return
	}
	h.compile(w, r, doc)
}

func (h *Handler) compile(w http.ResponseWriter, r *http.Request, doc *querydoc.Document) {
	c, ok := h.build(w, r, doc)
	if !ok {
		return
	}
	stmt, err := c.Compile()
	if err != nil {
		writeBuildError(w, r, err)
		return
	}
	resp, err := NewCompileResponse(c.Adapter().Name(), stmt)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to render query", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// Query handles POST /query: the document is compiled, then the rows and the total
// count are read concurrently. The count ignores limit and offset.
func (h *Handler) Query(w http.ResponseWriter, r *http.Request) {
	if h.runner == nil {
		writeError(w, r, http.StatusNotImplemented, "NO_DATABASE", "No database configured", "")
		return
	}
	doc, ok := h.readDocument(w, r)
	if !ok {
		return
	}
	c, ok := h.build(w, r, doc)
	if !ok {
		return
	}
	stmt, err := c.Compile()
	if err != nil {
		writeBuildError(w, r, err)
		return
	}
	countStmt, err := c.Clone().Limit(-1).Offset(0).Count().Compile()
	if err != nil {
		writeBuildError(w, r, err)
		return
	}

	g, ctx := errgroup.WithContext(r.Context())

	var result *db.Result
	g.Go(func() error {
		var err error
		result, err = h.runner.Rows(ctx, stmt)
		return err
	})

	var total int64
	g.Go(func() error {
		res, err := h.runner.Rows(ctx, countStmt)
		if err != nil {
			return err
		}
		total = countValue(res)
		return nil
	})

	if err := g.Wait(); err != nil {
		writeError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "Query failed", err.Error())
		return
	}

	rows := result.Rows
	if rows == nil {
		rows = [][]any{}
	}
	writeJSON(w, http.StatusOK, QueryResponse{TotalCount: total, Columns: result.Columns, Rows: rows})
}

// Tables handles GET /tables and lists the tables known to the schema.
func (h *Handler) Tables(w http.ResponseWriter, r *http.Request) {
	type table struct {
		Name        string   `json:"name"`
		LogicalName string   `json:"logical_name"`
		Columns     []string `json:"columns"`
		Relations   []string `json:"relations,omitempty"`
	}
	out := []table{}
	for _, t := range h.schema.Tables() {
		tt := table{Name: t.Name, LogicalName: t.LogicalName}
		for _, col := range t.Columns() {
			tt.Columns = append(tt.Columns, col.Name)
		}
		for _, rel := range t.Relations() {
			tt.Relations = append(tt.Relations, rel.Name)
		}
		out = append(out, tt)
	}
	writeJSON(w, http.StatusOK, map[string]any{"tables": out})
}

func (h *Handler) readDocument(w http.ResponseWriter, r *http.Request) (*querydoc.Document, bool) {
	doc, err := querydoc.Decode(io.LimitReader(r.Body, maxDocumentSize))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_DOCUMENT", "Invalid query document", err.Error())
		return nil, false
	}
	return doc, true
}

func (h *Handler) build(w http.ResponseWriter, r *http.Request, doc *querydoc.Document) (*criteria.Criteria, bool) {
	c, err := doc.Build(h.schema)
	if err != nil {
		writeBuildError(w, r, err)
		return nil, false
	}
	slog.Debug("query built", "from", doc.From, "request_id", requestID(r))
	return c, true
}

func writeBuildError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		unknownTable  *criteria.UnknownTableError
		unknownColumn *criteria.UnknownColumnError
		unknownRel    *criteria.UnknownRelationError
	)
	switch {
	case errors.As(err, &unknownColumn):
		writeError(w, r, http.StatusBadRequest, "UNKNOWN_COLUMN", "Unknown column", err.Error())
	case errors.As(err, &unknownRel):
		writeError(w, r, http.StatusBadRequest, "UNKNOWN_RELATION", "Unknown relation", err.Error())
	case errors.As(err, &unknownTable):
		writeError(w, r, http.StatusNotFound, "TABLE_NOT_FOUND", "Table not found", err.Error())
	default:
		writeError(w, r, http.StatusBadRequest, "INVALID_QUERY", "Invalid query", err.Error())
	}
}

// countValue reads the single COUNT(*) cell. Drivers return int64 for counts.
func countValue(res *db.Result) int64 {
	if len(res.Rows) == 0 || len(res.Rows[0]) == 0 {
		return 0
	}
	switch v := res.Rows[0][0].(type) {
	case int64:
		return v
	case int32:
		return int64(v)
	case int:
		return int64(v)
	}
	return 0
}

func requestID(r *http.Request) string {
	return middleware.RequestIDFrom(r.Context())
}
