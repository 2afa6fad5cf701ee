package dataset

import "fmt"

// MissingColumnError reports a required column absent from a table header.
type MissingColumnError struct {
	Table  string
	Column string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("dataset: %s is missing required column %q", e.Table, e.Column)
}
