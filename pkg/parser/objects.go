package parser

import (
	"sort"

	"github.com/ohler55/ojg/jp"
	"k8s.io/apimachinery/pkg/util/json"
	"sigs.k8s.io/yaml"

	"github.com/l7mp/dataset/pkg/dataset"
)

// Objects parses a JSON or YAML array of row objects. Keys missing from a row become nil values.
// If Options.Path is set, the rows are selected from the document with the JSONPath expression.
func Objects(data []byte, opts Options) (dataset.LoadSpec, error) {
	js, err := yaml.YAMLToJSON(data)
	if err != nil {
		return dataset.LoadSpec{}, NewParseError("invalid object list: %s", err)
	}

	var doc any
	if err := json.Unmarshal(js, &doc); err != nil {
		return dataset.LoadSpec{}, NewParseError("invalid object list: %s", err)
	}

	list, ok := doc.([]any)
	if opts.Path != "" {
		if list, err = selectRows(doc, opts.Path); err != nil {
			return dataset.LoadSpec{}, err
		}
	} else if !ok {
		return dataset.LoadSpec{}, NewParseError("expected a list of objects, got %T", doc)
	}

	rows := make([]map[string]any, len(list))
	for i, r := range list {
		if rows[i], ok = r.(map[string]any); !ok {
			return dataset.LoadSpec{}, NewParseError("row %d: expected an object, got %T", i, r)
		}
	}

	return Rows(rows, opts)
}

// selectRows evaluates a JSONPath expression. A single list result is taken as the row list,
// otherwise every match is a row.
func selectRows(doc any, path string) ([]any, error) {
	x, err := jp.ParseString(path)
	if err != nil {
		return nil, NewParseError("invalid path %q: %s", path, err)
	}

	res := x.Get(doc)
	if len(res) == 1 {
		if list, ok := res[0].([]any); ok {
			return list, nil
		}
	}
	return res, nil
}

// Rows converts row objects to a load.
func Rows(rows []map[string]any, opts Options) (dataset.LoadSpec, error) {
	names := opts.Columns
	if names == nil {
		keys := map[string]bool{}
		for _, r := range rows {
			for k := range r {
				if k != dataset.IDColumn {
					keys[k] = true
				}
			}
		}
		for k := range keys {
			names = append(names, k)
		}
		sort.Strings(names)
	}

	spec := dataset.LoadSpec{}
	for _, name := range names {
		values := make([]any, len(rows))
		for i, r := range rows {
			values[i] = r[name]
		}
		spec.Columns = append(spec.Columns, dataset.ColumnSpec{Name: name, Data: values})
	}

	if err := applyOverrides(&spec, opts.Overrides); err != nil {
		return dataset.LoadSpec{}, err
	}
	return spec, nil
}
