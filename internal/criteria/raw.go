package criteria

import (
	"fmt"
	"iter"
	"reflect"
	"regexp"
	"strings"

	"github.com/smhg/criteria/internal/schema"
)

type partKind int

const (
	partText partKind = iota
	partColumn
	partPlaceholder
)

// rawPart is one segment of a parsed raw clause. Placeholder parts carry the column they bind to.
type rawPart struct {
	kind partKind
	text string
	col  ColumnRef
}

func isIdentStart(ch byte) bool {
	return ch == '_' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}

func isIdentChar(ch byte) bool {
	return isIdentStart(ch) || (ch >= '0' && ch <= '9')
}

// parseClause splits a raw clause into text, column and placeholder parts.
// Dotted names that resolve are replaced by column parts; quoted literals are left untouched.
func (c *Criteria) parseClause(clause string, allowOutput bool) []rawPart {
	var (
		parts []rawPart
		text  strings.Builder
	)
	flush := func() {
		if text.Len() > 0 {
			parts = append(parts, rawPart{kind: partText, text: text.String()})
			text.Reset()
		}
	}

	for i := 0; i < len(clause); {
		ch := clause[i]
		switch {
		case ch == '\'' || ch == '"' || ch == '`':
			end := len(clause)
			if j := strings.IndexByte(clause[i+1:], ch); j >= 0 {
				end = i + 1 + j + 1
			}
			text.WriteString(clause[i:end])
			i = end
		case ch == '?':
			flush()
			parts = append(parts, rawPart{kind: partPlaceholder})
			i++
		case isIdentStart(ch) && (i == 0 || (!isIdentChar(clause[i-1]) && clause[i-1] != ':')):
			j := i
			for j < len(clause) && (isIdentChar(clause[j]) || clause[j] == '.') {
				j++
			}
			word := strings.TrimRight(clause[i:j], ".")
			j = i + len(word)
			if strings.Contains(word, ".") {
				if ref, err := c.Resolve(word, allowOutput); err == nil {
					flush()
					parts = append(parts, rawPart{kind: partColumn, col: ref})
					i = j
					continue
				}
			}
			text.WriteString(word)
			i = j
		default:
			text.WriteByte(ch)
			i++
		}
	}
	flush()

	// type each placeholder by the nearest preceding column, falling back to the first one
	var first, last *ColumnRef
	for i := range parts {
		switch parts[i].kind {
		case partColumn:
			last = &parts[i].col
			if first == nil {
				first = last
			}
		case partPlaceholder:
			if last != nil {
				parts[i].col = *last
			}
		}
	}
	if first != nil {
		for i := range parts {
			if parts[i].kind == partPlaceholder && parts[i].col.IsZero() {
				parts[i].col = *first
			}
		}
	}
	return parts
}

var (
	notInSuffix = regexp.MustCompile(`(?i)\bNOT\s+IN\s*\(?\s*$`)
	inSuffix    = regexp.MustCompile(`(?i)\bIN\s*\(?\s*$`)
)

// newRawClause parses clause and validates the placeholder count against values.
// A single placeholder with a list value expands to "(:p1,:p2,...)".
func (c *Criteria) newRawClause(clause string, values []any, allowOutput bool) (RawClause, error) {
	rc := RawClause{SQL: clause, parts: c.parseClause(clause, allowOutput)}

	var binds []ColumnRef
	var before strings.Builder // text preceding the first placeholder
	for _, p := range rc.parts {
		switch p.kind {
		case partPlaceholder:
			binds = append(binds, p.col)
		case partText:
			if len(binds) == 0 {
				before.WriteString(p.text)
			}
		case partColumn:
			if len(binds) == 0 {
				before.WriteString(p.col.FullName())
			}
		}
	}

	switch n := len(binds); {
	case n == 0:
		if len(values) > 0 {
			return RawClause{}, &InvalidClauseError{Clause: clause, Reason: fmt.Sprintf("no placeholders but %d values given", len(values))}
		}
	case n == 1:
		switch len(values) {
		case 0:
			return RawClause{}, &InvalidClauseError{Clause: clause, Reason: "expected a value for the placeholder"}
		case 1:
			if binds[0].Type() != schema.TypeArray {
				if list, ok := materialize(values[0]); ok {
					rc.list, values = true, list
				}
			}
		default:
			rc.list = true
		}
		if rc.list && len(values) == 0 {
			switch prefix := before.String(); {
			case notInSuffix.MatchString(prefix):
				rc.fixed = "1=1"
			case inSuffix.MatchString(prefix):
				rc.fixed = "1<>1"
			default:
				return RawClause{}, &InvalidClauseError{Clause: clause, Reason: "empty value list"}
			}
		}
	default:
		if len(values) == 1 {
			if list, ok := materialize(values[0]); ok && len(list) == n {
				values = list
			}
		}
		if len(values) != n {
			return RawClause{}, &InvalidClauseError{Clause: clause, Reason: fmt.Sprintf("expected %d values, got %d", n, len(values))}
		}
	}

	rc.Values = make([]any, len(values))
	for i, v := range values {
		col := binds[min(i, len(binds)-1)]
		conv, err := col.convert(v)
		if err != nil {
			return RawClause{}, &InvalidValueError{Column: col.FullName(), Err: err}
		}
		rc.Values[i] = conv
	}
	return rc, nil
}

// materialize expands slices, arrays and iterators into a value list.
// Strings and byte slices are scalars.
func materialize(v any) ([]any, bool) {
	switch t := v.(type) {
	case nil, string, []byte:
		return nil, false
	case []any:
		return t, true
	case iter.Seq[any]:
		return collectSeq(t), true
	case func(yield func(any) bool):
		return collectSeq(t), true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

func collectSeq(seq iter.Seq[any]) []any {
	out := []any{}
	for item := range seq {
		out = append(out, item)
	}
	return out
}
