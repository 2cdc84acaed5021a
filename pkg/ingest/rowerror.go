package ingest

import "fmt"

// RowErrorKind classifies why a single row was rejected.
type RowErrorKind string

const (
	// BadAmount means a value mapped to amount or tax did not coerce to a
	// decimal.
	BadAmount RowErrorKind = "bad-amount"
	// BadDate means the posting date did not parse with any known layout.
	BadDate RowErrorKind = "bad-date"
	// MissingAmount means no resolvable amount remained after applying
	// every mapping rule.
	MissingAmount RowErrorKind = "missing-amount"
	// BadRow means the source line itself was malformed (CSV structure).
	BadRow RowErrorKind = "bad-row"
)

// RowError describes one rejected row. Rows fail independently; a
// RowError is collected in the import report and never aborts the file.
type RowError struct {
	Row    int
	Kind   RowErrorKind
	Column string
	Value  string
	Err    error
}

func (e RowError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("row %d: %s in column %q (value %q)", e.Row, e.Kind, e.Column, e.Value)
	}
	return fmt.Sprintf("row %d: %s", e.Row, e.Kind)
}

func (e RowError) Unwrap() error { return e.Err }
