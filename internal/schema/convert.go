package schema

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// ErrValueNotInSet is returned when an ENUM or SET value is not declared on the column.
var ErrValueNotInSet = errors.New("value not in column value set")

// ConvertValue turns a caller value into the value bound for this column.
// ENUM values bind as their index in the value set, SET values as a bitmask of indexes,
// ARRAY values as "| a | b |", OBJECT/JSON values as JSON text and UUID strings as uuid.UUID.
// nil is always returned unchanged.
func (c *ColumnMap) ConvertValue(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch c.Type {
	case TypeEnum:
		return c.enumKey(v)
	case TypeSet:
		return c.setMask(v)
	case TypeArray:
		if s, ok := v.(string); ok {
			return s, nil
		}
		items, ok := toStrings(v)
		if !ok {
			return nil, fmt.Errorf("column %s: cannot store %T in an ARRAY column", c.FullyQualifiedName(), v)
		}
		if len(items) == 0 {
			return nil, nil
		}
		return "| " + strings.Join(items, " | ") + " |", nil
	case TypeObject, TypeJSON:
		switch t := v.(type) {
		case string, []byte, json.RawMessage:
			return t, nil
		}
		b, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", c.FullyQualifiedName(), err)
		}
		return string(b), nil
	case TypeUUID:
		switch t := v.(type) {
		case uuid.UUID:
			return t, nil
		case string:
			id, err := uuid.Parse(t)
			if err != nil {
				return nil, fmt.Errorf("column %s: invalid uuid %q: %w", c.FullyQualifiedName(), t, err)
			}
			return id, nil
		}
	case TypeBoolean:
		if s, ok := v.(string); ok {
			switch strings.ToLower(strings.TrimSpace(s)) {
			case "yes", "y", "on":
				return true, nil
			case "no", "n", "off", "":
				return false, nil
			}
			b, err := strconv.ParseBool(s)
			if err != nil {
				return nil, fmt.Errorf("column %s: invalid boolean %q", c.FullyQualifiedName(), s)
			}
			return b, nil
		}
	}
	return v, nil
}

func (c *ColumnMap) enumKey(v any) (any, error) {
	s, ok := v.(string)
	if !ok {
		// already a stored key
		return v, nil
	}
	for i, allowed := range c.ValueSet {
		if allowed == s {
			return i, nil
		}
	}
	return nil, fmt.Errorf("column %s: %q: %w", c.FullyQualifiedName(), s, ErrValueNotInSet)
}

func (c *ColumnMap) setMask(v any) (any, error) {
	var items []string
	switch t := v.(type) {
	case string:
		for _, part := range strings.Split(t, ",") {
			if part = strings.TrimSpace(part); part != "" {
				items = append(items, part)
			}
		}
	default:
		var ok bool
		if items, ok = toStrings(v); !ok {
			return v, nil
		}
	}
	mask := 0
	for _, item := range items {
		idx := -1
		for i, allowed := range c.ValueSet {
			if allowed == item {
				idx = i
				break
			}
		}
		if idx < 0 {
			return nil, fmt.Errorf("column %s: %q: %w", c.FullyQualifiedName(), item, ErrValueNotInSet)
		}
		mask |= 1 << idx
	}
	return mask, nil
}

// toStrings converts any slice or array into its elements' string forms.
func toStrings(v any) ([]string, bool) {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	out := make([]string, rv.Len())
	for i := range out {
		out[i] = fmt.Sprint(rv.Index(i).Interface())
	}
	return out, true
}
