package parser

import (
	"k8s.io/apimachinery/pkg/util/json"
	"sigs.k8s.io/yaml"

	"github.com/l7mp/dataset/pkg/dataset"
)

type strictDocument struct {
	Columns []dataset.ColumnSpec `json:"columns"`
}

// Strict parses the strict format: a document with a list of columns, each with a name, an
// optional type and format and the column data. The document may be JSON or YAML:
//
//	columns:
//	  - name: one
//	    type: number
//	    data: [1, 5, 9]
//	  - name: two
//	    data: ["a", "b", "c"]
func Strict(data []byte, opts Options) (dataset.LoadSpec, error) {
	js, err := yaml.YAMLToJSON(data)
	if err != nil {
		return dataset.LoadSpec{}, NewParseError("invalid strict document: %s", err)
	}

	doc := strictDocument{}
	if err := json.Unmarshal(js, &doc); err != nil {
		return dataset.LoadSpec{}, NewParseError("invalid strict document: %s", err)
	}
	if doc.Columns == nil {
		return dataset.LoadSpec{}, NewParseError("strict document has no columns")
	}

	for i, c := range doc.Columns {
		if c.Name == "" {
			return dataset.LoadSpec{}, NewParseError("column %d has no name", i)
		}
		if c.Data == nil {
			doc.Columns[i].Data = []any{}
		}
	}

	spec := dataset.LoadSpec{Columns: doc.Columns}
	if err := applyOverrides(&spec, opts.Overrides); err != nil {
		return dataset.LoadSpec{}, err
	}
	return spec, nil
}
