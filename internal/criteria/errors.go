package criteria

import "fmt"

// UnknownColumnError is returned when an identifier matches no declared column or AS-column.
type UnknownColumnError struct {
	Column string
	Err    error
}

func (e *UnknownColumnError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("unknown column %q: %v", e.Column, e.Err)
	}
	return fmt.Sprintf("unknown column %q", e.Column)
}

func (e *UnknownColumnError) Unwrap() error { return e.Err }

// UnknownRelationError is returned when a relation name is not declared on a table.
type UnknownRelationError struct {
	Table    string
	Relation string
}

func (e *UnknownRelationError) Error() string {
	return fmt.Sprintf("unknown relation %q on table %s", e.Relation, e.Table)
}

// UnknownTableError is returned when a table, alias or derived query name cannot be found.
type UnknownTableError struct {
	Table string
}

func (e *UnknownTableError) Error() string {
	return fmt.Sprintf("unknown table %q", e.Table)
}

// InvalidClauseError reports a malformed raw clause, typically a placeholder/value count mismatch.
type InvalidClauseError struct {
	Clause string
	Reason string
}

func (e *InvalidClauseError) Error() string {
	return fmt.Sprintf("invalid clause %q: %s", e.Clause, e.Reason)
}

// InvalidValueError reports a value that cannot be used with an operator or column.
type InvalidValueError struct {
	Column   string
	Operator Operator
	Err      error
}

func (e *InvalidValueError) Error() string {
	msg := fmt.Sprintf("invalid value for %s", e.Column)
	if e.Operator != "" {
		msg += fmt.Sprintf(" with operator %s", e.Operator)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *InvalidValueError) Unwrap() error { return e.Err }

// UnknownConditionError is returned when combining a named condition that was never declared.
type UnknownConditionError struct {
	Name string
}

func (e *UnknownConditionError) Error() string {
	return fmt.Sprintf("unknown condition %q", e.Name)
}

// DuplicateConditionError is returned when one combine call names a condition twice.
type DuplicateConditionError struct {
	Name string
}

func (e *DuplicateConditionError) Error() string {
	return fmt.Sprintf("condition %q named more than once", e.Name)
}
