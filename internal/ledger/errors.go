package ledger

import "fmt"

// NotFoundError means a referenced entity is missing, inactive, or owned by
// another user. The three cases are deliberately indistinguishable to the
// caller.
type NotFoundError struct {
	Entity string
}

func (e *NotFoundError) Error() string {
	return e.Entity + " not found"
}

// ValidationError means the input is malformed or mutually inconsistent
// (wrong type/category combination, non-positive amount, same from/to
// account, unparseable import row).
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return e.Msg
}

func validationf(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// ConflictError means a case-insensitive name is already taken within its
// scope.
type ConflictError struct {
	Entity string
	Name   string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s %q already exists", e.Entity, e.Name)
}

// RowError is one failed row of a bulk import.
type RowError struct {
	Line    int    `json:"line"`
	Message string `json:"message"`
}

// ImportError aggregates every failed row of an import. Its presence means
// the whole file was rolled back.
type ImportError struct {
	Rows []RowError
}

func (e *ImportError) Error() string {
	return fmt.Sprintf("import failed: %d invalid row(s)", len(e.Rows))
}
