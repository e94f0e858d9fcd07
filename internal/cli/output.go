package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/davecgh/go-spew/spew"
	"github.com/fatih/color"

	"github.com/smhg/criteria/internal/criteria"
	"github.com/smhg/criteria/internal/db"
	"github.com/smhg/criteria/internal/handler"
)

var (
	sqlColor    = color.New(color.FgCyan, color.Bold)
	paramColor  = color.New(color.FgYellow)
	headerColor = color.New(color.FgGreen, color.Bold)
)

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printStatement writes compiled SQL and its parameters.
func printStatement(w io.Writer, format, adapterName string, stmt *criteria.Statement, dump bool) error {
	resp, err := handler.NewCompileResponse(adapterName, stmt)
	if err != nil {
		return err
	}
	if format == "json" {
		return writeJSON(w, resp)
	}

	sqlColor.Fprintln(w, resp.SQL)
	if len(resp.Params) > 0 {
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		for _, p := range resp.Params {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", p.Placeholder, p.Column, p.Type, paramColor.Sprint(fmt.Sprintf("%v", p.Value)))
		}
		tw.Flush()
	}
	if dump {
		spew.Fdump(w, stmt.Params)
	}
	return nil
}

// printResult writes a result set as an aligned table.
func printResult(w io.Writer, format string, res *db.Result) error {
	if format == "json" {
		rows := res.Rows
		if rows == nil {
			rows = [][]any{}
		}
		return writeJSON(w, map[string]any{"columns": res.Columns, "rows": rows})
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	header := make([]string, len(res.Columns))
	for i, c := range res.Columns {
		header[i] = headerColor.Sprint(c)
	}
	fmt.Fprintln(tw, strings.Join(header, "\t"))
	for _, row := range res.Rows {
		cells := make([]string, len(row))
		for i, v := range row {
			if v == nil {
				cells[i] = "NULL"
			} else {
				cells[i] = fmt.Sprint(v)
			}
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(w, "(%d rows)\n", len(res.Rows))
	return nil
}
