// Package method provides the named aggregation methods and category preprocessors used by
// derived datasets. Recipes refer to methods and preprocessors by name so that they stay
// serializable; the names are resolved against a Registry when a recipe runs.
package method

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/montanaflynn/stats"

	"github.com/l7mp/dataset/pkg/types"
)

// Func reduces a list of values to one value. Nil values are dropped before the call.
type Func func(values []any) (any, error)

// Preprocessor maps a raw value to a category key. Type is the type of the keys it produces; an
// empty Type means the key has the type of the input column.
type Preprocessor struct {
	Fn   func(v any) (any, error)
	Type types.Tag
}

// FormatPrefix introduces a parametric preprocessor that formats times with a strftime layout,
// e.g., "format:%Y-%m".
const FormatPrefix = "format:"

// Registry maps names to methods and preprocessors.
type Registry struct {
	methods       map[string]Func
	preprocessors map[string]Preprocessor
}

// DefaultRegistry holds the built-in methods and preprocessors. Register custom ones at startup.
var DefaultRegistry = Default()

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{methods: map[string]Func{}, preprocessors: map[string]Preprocessor{}}
}

// Default returns a new registry with the built-in methods and preprocessors.
func Default() *Registry {
	r := NewRegistry()
	for name, fn := range builtinMethods() {
		r.Register(name, fn)
	}
	for name, p := range builtinPreprocessors() {
		r.RegisterPreprocessor(name, p)
	}
	return r
}

// Register adds a method, replacing any method of the same name.
func (r *Registry) Register(name string, fn Func) { r.methods[name] = fn }

// RegisterPreprocessor adds a preprocessor, replacing any preprocessor of the same name.
func (r *Registry) RegisterPreprocessor(name string, p Preprocessor) { r.preprocessors[name] = p }

// Lookup returns a method that drops nil values, calls the registered function and wraps its
// errors into ErrMethod.
func (r *Registry) Lookup(name string) (Func, error) {
	fn, ok := r.methods[name]
	if !ok {
		return nil, NewUnknownMethodError(name)
	}
	return func(values []any) (any, error) {
		ret, err := fn(dropNil(values))
		if err != nil {
			if errors.Is(err, ErrMethod) {
				return nil, err
			}
			return nil, NewMethodError(name, err)
		}
		return ret, nil
	}, nil
}

// LookupPreprocessor resolves a preprocessor name. Names of the form "format:<layout>" produce a
// time formatter.
func (r *Registry) LookupPreprocessor(name string) (Preprocessor, error) {
	if layout, ok := strings.CutPrefix(name, FormatPrefix); ok {
		if layout == "" {
			return Preprocessor{}, NewUnknownPreprocessorError(name)
		}
		return formatPreprocessor(layout), nil
	}

	p, ok := r.preprocessors[name]
	if !ok {
		return Preprocessor{}, NewUnknownPreprocessorError(name)
	}
	return Preprocessor{
		Type: p.Type,
		Fn: func(v any) (any, error) {
			ret, err := p.Fn(v)
			if err != nil {
				return nil, NewMethodError(name, err)
			}
			return ret, nil
		},
	}, nil
}

// Methods returns the sorted method names.
func (r *Registry) Methods() []string { return sortedKeys(r.methods) }

// Preprocessors returns the sorted preprocessor names, the parametric format preprocessor not
// included.
func (r *Registry) Preprocessors() []string { return sortedKeys(r.preprocessors) }

func sortedKeys[T any](m map[string]T) []string {
	ret := make([]string, 0, len(m))
	for k := range m {
		ret = append(ret, k)
	}
	sort.Strings(ret)
	return ret
}

func builtinMethods() map[string]Func {
	return map[string]Func{
		"sum":      sum,
		"mean":     numeric(stats.Mean),
		"median":   numeric(stats.Median),
		"min":      numeric(stats.Min),
		"max":      numeric(stats.Max),
		"variance": numeric(stats.PopulationVariance),
		"stddev":   numeric(stats.StandardDeviationPopulation),
		"count":    func(values []any) (any, error) { return float64(len(values)), nil },
		"first": func(values []any) (any, error) {
			if len(values) == 0 {
				return nil, nil
			}
			return values[0], nil
		},
		"last": func(values []any) (any, error) {
			if len(values) == 0 {
				return nil, nil
			}
			return values[len(values)-1], nil
		},
	}
}

// sum of no values is zero
func sum(values []any) (any, error) {
	data, err := Float64s(values)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return float64(0), nil
	}
	return stats.Sum(data)
}

// numeric adapts a stats function. The result of an empty input is nil.
func numeric(fn func(stats.Float64Data) (float64, error)) Func {
	return func(values []any) (any, error) {
		data, err := Float64s(values)
		if err != nil {
			return nil, err
		}
		if len(data) == 0 {
			return nil, nil
		}
		ret, err := fn(data)
		if err != nil {
			return nil, err
		}
		if math.IsNaN(ret) {
			return nil, nil
		}
		return ret, nil
	}
}

// Float64s converts values to float64. Nil values are skipped, any other non-numeric value is an
// error.
func Float64s(values []any) (stats.Float64Data, error) {
	ret := make(stats.Float64Data, 0, len(values))
	for _, v := range values {
		if v == nil {
			continue
		}
		f, ok := types.ToFloat(v)
		if !ok {
			return nil, fmt.Errorf("%w: non-numeric value %#v (%T)", ErrMethod, v, v)
		}
		ret = append(ret, f)
	}
	return ret, nil
}

func dropNil(values []any) []any {
	ret := make([]any, 0, len(values))
	for _, v := range values {
		if v != nil {
			ret = append(ret, v)
		}
	}
	return ret
}
