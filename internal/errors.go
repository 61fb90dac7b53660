package internal

import (
	"strings"

	"github.com/cockroachdb/errors"
)

var (
	// ErrSchema rejects a whole batch: a required column is missing.
	ErrSchema = errors.New("schema error")
	// ErrDateParse marks a row whose date could not be read. Recovered.
	ErrDateParse = errors.New("date parse error")
	// ErrAmbiguous marks a reduction or termination with no matching start. Recovered.
	ErrAmbiguous = errors.New("classification ambiguity")
)

// SchemaError lists the required columns absent from an input batch.
type SchemaError struct {
	Source  string
	Missing []string
}

func (e *SchemaError) Error() string {
	return "missing required columns in " + e.Source + ": " + strings.Join(e.Missing, ", ")
}

// Is lets errors.Is(err, ErrSchema) match a SchemaError.
func (e *SchemaError) Is(target error) bool {
	return target == ErrSchema
}

func newSchemaError(source string, missing []string) error {
	return errors.WithHint(
		&SchemaError{Source: source, Missing: missing},
		"the batch was not processed; export the opportunity report with all required columns",
	)
}
