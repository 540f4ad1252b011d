// Package parser converts external data into dataset loads. Every parser returns a
// dataset.LoadSpec that can be passed to Dataset.Load; the dataset coerces the raw values to the
// column types. Column types are detected from the data unless the input declares them or an
// Override sets them.
package parser

import (
	"errors"
	"fmt"

	"github.com/l7mp/dataset/pkg/dataset"
	"github.com/l7mp/dataset/pkg/types"
)

// ErrParse is returned for malformed input.
var ErrParse = errors.New("parse error")

func NewParseError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrParse, fmt.Sprintf(format, args...))
}

// Override sets the type and the format of a column, replacing what the input declares or what
// would be detected.
type Override struct {
	Name   string    `json:"name"`
	Type   types.Tag `json:"type"`
	Format string    `json:"format,omitempty"`
}

// Options are shared by the parsers. Not every parser uses every field.
type Options struct {
	// Overrides are applied to the parsed columns.
	Overrides []Override
	// Columns selects and orders the columns of object rows. By default all keys are used in
	// lexical order.
	Columns []string
	// Path is a JSONPath expression that selects the rows from an object document, e.g.,
	// "$.items" or "$.data[*]".
	Path string
	// Delimiter separates the fields of delimited text, defaults to a comma.
	Delimiter rune
}

func applyOverrides(spec *dataset.LoadSpec, overrides []Override) error {
	for _, o := range overrides {
		found := false
		for i := range spec.Columns {
			if spec.Columns[i].Name == o.Name {
				spec.Columns[i].Type = o.Type
				spec.Columns[i].Format = o.Format
				found = true
				break
			}
		}
		if !found {
			return dataset.NewUnknownColumnError(o.Name)
		}
	}
	return nil
}
