package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/smhg/criteria/internal/criteria"
)

type ErrorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	Details   string `json:"details,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// ParamResponse describes one bound value of a compiled statement.
type ParamResponse struct {
	Placeholder string `json:"placeholder"`
	Column      string `json:"column,omitempty"`
	Type        string `json:"type,omitempty"`
	Value       any    `json:"value"`
}

// CompileResponse is returned by the compile endpoints. SQL uses ":pN" placeholders,
// Query the adapter's native ones, and Debug inlines the values.
type CompileResponse struct {
	Adapter string          `json:"adapter"`
	SQL     string          `json:"sql"`
	Query   string          `json:"query"`
	Params  []ParamResponse `json:"params"`
	Debug   string          `json:"debug"`
}

// QueryResponse is returned by the query endpoint.
type QueryResponse struct {
	TotalCount int64    `json:"total_count"`
	Columns    []string `json:"columns"`
	Rows       [][]any  `json:"rows"`
}

// NewCompileResponse describes stmt compiled for adapterName.
func NewCompileResponse(adapterName string, stmt *criteria.Statement) (CompileResponse, error) {
	query, _, err := stmt.Query()
	if err != nil {
		return CompileResponse{}, err
	}
	resp := CompileResponse{
		Adapter: adapterName,
		SQL:     stmt.SQL,
		Query:   query,
		Params:  make([]ParamResponse, len(stmt.Params)),
		Debug:   stmt.String(),
	}
	for i, p := range stmt.Params {
		col := p.Column
		if p.Table != "" && col != "" {
			col = p.Table + "." + col
		}
		resp.Params[i] = ParamResponse{
			Placeholder: ":p" + strconv.Itoa(i+1),
			Column:      col,
			Type:        string(p.Type),
			Value:       p.Value,
		}
	}
	return resp, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code, message, details string) {
	writeJSON(w, status, ErrorResponse{
		Error:     message,
		Code:      code,
		Details:   details,
		RequestID: requestID(r),
	})
}
