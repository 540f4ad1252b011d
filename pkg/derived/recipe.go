package derived

import (
	"fmt"
	"slices"
	"strings"

	"github.com/l7mp/dataset/pkg/dataset"
	"github.com/l7mp/dataset/pkg/method"
)

// Kind is the aggregation a recipe runs.
type Kind string

const (
	KindMovingAverage Kind = "movingAverage"
	KindCountBy       Kind = "countBy"
	KindGroupBy       Kind = "groupBy"
)

const (
	// OIDsColumn holds, for each derived row, the parent row ids that produced it.
	OIDsColumn = "_oids"

	// CountColumn is the generated column of count-by results.
	CountColumn = "count"

	DefaultMovingAverageMethod = "mean"
	DefaultGroupByMethod       = "sum"
)

// Recipe describes a derivation: the aggregation kind and its arguments. Methods and
// preprocessors are referenced by name. Recipes are values; a derived dataset keeps its own copy.
type Recipe struct {
	Kind Kind `json:"kind"`
	// Columns are the aggregated columns of movingAverage and groupBy.
	Columns []string `json:"columns,omitempty"`
	// By is the category column of countBy and groupBy.
	By string `json:"by,omitempty"`
	// Window is the window size of movingAverage.
	Window int `json:"window,omitempty"`
	// Method names the aggregation method, defaults to mean for movingAverage and sum for groupBy.
	Method string `json:"method,omitempty"`
	// Preprocess names a preprocessor mapping groupBy values to categories.
	Preprocess string `json:"preprocess,omitempty"`
}

// DeepCopy returns a copy of the recipe that shares no memory with the original.
func (r Recipe) DeepCopy() Recipe {
	ret := r
	if r.Columns != nil {
		ret.Columns = slices.Clone(r.Columns)
	}
	return ret
}

// String returns a compact human readable form, e.g., "groupBy(cat; val; sum)".
func (r Recipe) String() string {
	args := []string{}
	switch r.Kind {
	case KindMovingAverage:
		args = append(args, strings.Join(r.Columns, ","), fmt.Sprintf("%d", r.Window), r.method())
	case KindCountBy:
		args = append(args, r.By)
	case KindGroupBy:
		args = append(args, r.By, strings.Join(r.Columns, ","), r.method())
		if r.Preprocess != "" {
			args = append(args, r.Preprocess)
		}
	}
	return fmt.Sprintf("%s(%s)", r.Kind, strings.Join(args, "; "))
}

func (r Recipe) method() string {
	if r.Method != "" {
		return r.Method
	}
	switch r.Kind {
	case KindMovingAverage:
		return DefaultMovingAverageMethod
	case KindGroupBy:
		return DefaultGroupByMethod
	}
	return ""
}

// Validate checks the recipe without looking at data. Names are resolved against the method
// registry; column names are checked only when the recipe runs.
func (r Recipe) Validate(methods *method.Registry) error {
	if methods == nil {
		methods = method.DefaultRegistry
	}

	for _, c := range r.Columns {
		if c == "" || c == dataset.IDColumn || c == OIDsColumn {
			return NewInvalidArgumentError("invalid column %q in %s", c, r.Kind)
		}
	}
	if r.By == dataset.IDColumn || r.By == OIDsColumn {
		return NewInvalidArgumentError("invalid category column %q in %s", r.By, r.Kind)
	}

	switch r.Kind {
	case KindMovingAverage:
		if r.Window < 1 {
			return NewInvalidArgumentError("window size must be at least 1, got %d", r.Window)
		}
		if len(r.Columns) == 0 {
			return NewInvalidArgumentError("movingAverage needs at least one column")
		}
		if r.By != "" || r.Preprocess != "" {
			return NewInvalidArgumentError("movingAverage takes no category column")
		}

	case KindCountBy:
		if r.By == "" {
			return NewInvalidArgumentError("countBy needs a category column")
		}
		if r.By == CountColumn {
			return NewInvalidArgumentError("category column %q clashes with the generated column", r.By)
		}
		if len(r.Columns) != 0 || r.Window != 0 || r.Method != "" || r.Preprocess != "" {
			return NewInvalidArgumentError("countBy takes only a category column")
		}
		return nil

	case KindGroupBy:
		if r.By == "" {
			return NewInvalidArgumentError("groupBy needs a category column")
		}
		if len(r.Columns) == 0 {
			return NewInvalidArgumentError("groupBy needs at least one column")
		}
		if slices.Contains(r.Columns, r.By) {
			return NewInvalidArgumentError("category column %q cannot be aggregated", r.By)
		}
		if r.Window != 0 {
			return NewInvalidArgumentError("groupBy takes no window")
		}
		if r.Preprocess != "" {
			if _, err := methods.LookupPreprocessor(r.Preprocess); err != nil {
				return err
			}
		}

	default:
		return NewInvalidArgumentError("unknown recipe kind %q", r.Kind)
	}

	for i, c := range r.Columns {
		if slices.Contains(r.Columns[i+1:], c) {
			return NewInvalidArgumentError("column %q listed twice", c)
		}
	}

	_, err := methods.Lookup(r.method())
	return err
}

// compute runs the recipe against the current contents of parent. The result is a complete
// load for the derived dataset, the origin id column included.
func (r Recipe) compute(parent *dataset.Dataset, methods *method.Registry) (dataset.LoadSpec, error) {
	switch r.Kind {
	case KindMovingAverage:
		return movingAverage(parent, r, methods)
	case KindCountBy:
		return countBy(parent, r)
	case KindGroupBy:
		return groupBy(parent, r, methods)
	}
	return dataset.LoadSpec{}, NewInvalidArgumentError("unknown recipe kind %q", r.Kind)
}
