// Package config reads derivation plans: a named list of derived datasets, each computed from the
// source dataset or from another derivation of the plan.
//
//	derivations:
//	  - name: groups
//	    recipe: {kind: groupBy, by: cat, columns: [val]}
//	  - name: trend
//	    from: groups
//	    recipe: {kind: movingAverage, columns: [val], window: 2}
package config

import (
	"errors"
	"fmt"
	"os"

	"sigs.k8s.io/yaml"

	"github.com/l7mp/dataset/internal/dag"
	"github.com/l7mp/dataset/pkg/dataset"
	"github.com/l7mp/dataset/pkg/derived"
	"github.com/l7mp/dataset/pkg/lineage"
	"github.com/l7mp/dataset/pkg/method"
)

// SourceName refers to the source dataset in the from field of a derivation. An empty from field
// means the same.
const SourceName = "source"

// ErrInvalidPlan is returned for plans that cannot be materialized.
var ErrInvalidPlan = errors.New("invalid plan")

func NewInvalidPlanError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidPlan, fmt.Sprintf(format, args...))
}

// Derivation is a named derived dataset.
type Derivation struct {
	Name   string         `json:"name"`
	From   string         `json:"from,omitempty"`
	Recipe derived.Recipe `json:"recipe"`
	// Detached derivations are computed once and do not follow their parent.
	Detached bool `json:"detached,omitempty"`
}

// Plan is a set of derivations.
type Plan struct {
	Derivations []Derivation `json:"derivations"`
}

// Parse reads a plan from YAML or JSON. Unknown fields are rejected.
func Parse(data []byte) (*Plan, error) {
	p := &Plan{}
	if err := yaml.UnmarshalStrict(data, p); err != nil {
		return nil, fmt.Errorf("failed to parse plan: %w", err)
	}
	return p, nil
}

// ReadFile reads a plan from a file.
func ReadFile(file string) (*Plan, error) {
	b, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return Parse(b)
}

// Validate checks names, references and recipes, and returns the derivation names in an order in
// which they can be computed.
func (p *Plan) Validate(methods *method.Registry) ([]string, error) {
	g := dag.New()
	byName := map[string]bool{}
	for _, d := range p.Derivations {
		if d.Name == "" || d.Name == SourceName {
			return nil, NewInvalidPlanError("invalid derivation name %q", d.Name)
		}
		if byName[d.Name] {
			return nil, NewInvalidPlanError("duplicate derivation %q", d.Name)
		}
		byName[d.Name] = true
		g.AddNode(d.Name)
	}

	for _, d := range p.Derivations {
		if err := d.Recipe.Validate(methods); err != nil {
			return nil, fmt.Errorf("derivation %q: %w", d.Name, err)
		}
		if d.From == "" || d.From == SourceName {
			continue
		}
		if !byName[d.From] {
			return nil, NewInvalidPlanError("derivation %q refers to unknown dataset %q", d.Name, d.From)
		}
		if err := g.AddEdge(d.From, d.Name); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidPlan, err)
		}
	}

	return g.TopoSort()
}

// Result holds the datasets materialized from a plan.
type Result struct {
	Source  *dataset.Dataset
	Derived map[string]*derived.Derived
	// Order lists the derivation names in the order they were computed.
	Order []string
}

// Apply materializes the plan against a source dataset. Derivations are computed so that every
// dataset exists before the datasets derived from it. If a derivation fails, the ones already
// computed are detached from the source.
func (p *Plan) Apply(source *dataset.Dataset, opts derived.Options) (*Result, error) {
	order, err := p.Validate(opts.Methods)
	if err != nil {
		return nil, err
	}

	byName := map[string]Derivation{}
	for _, d := range p.Derivations {
		byName[d.Name] = d
	}

	res := &Result{Source: source, Derived: map[string]*derived.Derived{}, Order: order}
	for _, name := range order {
		d := byName[name]
		parent := source
		if d.From != "" && d.From != SourceName {
			parent = res.Derived[d.From].Dataset
		}

		o := opts
		o.Name = d.Name
		ds, err := derived.New(parent, d.Recipe, o)
		if err != nil {
			// the caller never sees the datasets built so far, they must not follow the source
			res.Detach()
			return nil, fmt.Errorf("derivation %q: %w", d.Name, err)
		}
		if d.Detached {
			ds.Detach()
		}
		res.Derived[name] = ds
	}

	return res, nil
}

// Dataset returns a dataset of the result by name.
func (r *Result) Dataset(name string) (*dataset.Dataset, error) {
	if name == "" || name == SourceName {
		return r.Source, nil
	}
	d, ok := r.Derived[name]
	if !ok {
		return nil, NewInvalidPlanError("unknown dataset %q", name)
	}
	return d.Dataset, nil
}

// Lineage returns the derivation graph of the result.
func (r *Result) Lineage(name string) (*lineage.Graph, error) {
	members := []lineage.Member{r.Source}
	for _, n := range r.Order {
		members = append(members, r.Derived[n])
	}
	return lineage.Build(name, members...)
}

// Detach detaches every derived dataset of the result from its parent.
func (r *Result) Detach() {
	for _, n := range r.Order {
		if d, ok := r.Derived[n]; ok {
			d.Detach()
		}
	}
}
