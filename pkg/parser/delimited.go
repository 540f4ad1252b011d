package parser

import (
	"encoding/csv"
	"errors"
	"io"
	"strings"

	"github.com/l7mp/dataset/pkg/dataset"
)

// Delimited parses delimited text with a header line, e.g., CSV or TSV. Empty fields become nil
// values.
func Delimited(r io.Reader, opts Options) (dataset.LoadSpec, error) {
	cr := csv.NewReader(r)
	if opts.Delimiter != 0 {
		cr.Comma = opts.Delimiter
	}

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return dataset.LoadSpec{}, NewParseError("missing header line")
	}
	if err != nil {
		return dataset.LoadSpec{}, NewParseError("%s", err)
	}

	names := make([]string, len(header))
	data := make([][]any, len(header))
	for i, h := range header {
		names[i] = strings.TrimSpace(h)
		if names[i] == "" {
			return dataset.LoadSpec{}, NewParseError("empty column name in header field %d", i+1)
		}
		data[i] = []any{}
	}

	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return dataset.LoadSpec{}, NewParseError("%s", err)
		}
		for i, field := range record {
			if field == "" {
				data[i] = append(data[i], nil)
			} else {
				data[i] = append(data[i], field)
			}
		}
	}

	spec := dataset.LoadSpec{}
	for i, name := range names {
		spec.Columns = append(spec.Columns, dataset.ColumnSpec{Name: name, Data: data[i]})
	}

	if err := applyOverrides(&spec, opts.Overrides); err != nil {
		return dataset.LoadSpec{}, err
	}
	return spec, nil
}
