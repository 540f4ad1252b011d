// Package derived implements datasets computed from a parent dataset by a recipe: moving
// averages, counts and grouped aggregates.
//
// A derived dataset runs its recipe once at construction. If the parent is syncable, the derived
// dataset subscribes to the parent's change event, recomputes on every parent mutation and then
// emits its own change event, so chains of derived datasets stay up to date. Every recomputation
// replaces the full contents of the derived dataset in a single load. Each derived row records
// the parent row ids it was computed from in the _oids column.
package derived

import (
	"fmt"

	"github.com/go-logr/logr"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/l7mp/dataset/pkg/dataset"
	"github.com/l7mp/dataset/pkg/method"
)

// State is the lifecycle state of a derived dataset.
type State int

const (
	Uninitialized State = iota
	Computed
	Recomputing
	Detached
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "Uninitialized"
	case Computed:
		return "Computed"
	case Recomputing:
		return "Recomputing"
	case Detached:
		return "Detached"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Options configure a derived dataset.
type Options struct {
	// Name defaults to "<parent>-<kind>".
	Name string
	// Methods resolves method and preprocessor names. Defaults to method.DefaultRegistry.
	Methods *method.Registry
	// Logger defaults to the parent's logger.
	Logger logr.Logger
}

// Derived is a dataset computed from a parent. All read accessors of the embedded dataset are
// available; the contents are replaced on every recomputation.
type Derived struct {
	*dataset.Dataset

	parent  *dataset.Dataset
	recipe  Recipe
	methods *method.Registry
	log     logr.Logger

	state   State
	binding dataset.Binding
	bound   bool
}

// New validates the recipe, computes the derived dataset and, if the parent is syncable, binds it
// to the parent's change event.
func New(parent *dataset.Dataset, recipe Recipe, opts Options) (*Derived, error) {
	if parent == nil {
		return nil, NewInvalidArgumentError("nil parent")
	}
	if opts.Methods == nil {
		opts.Methods = method.DefaultRegistry
	}
	if err := recipe.Validate(opts.Methods); err != nil {
		return nil, err
	}
	if opts.Name == "" {
		opts.Name = fmt.Sprintf("%s-%s", parent.Name(), recipe.Kind)
	}
	if opts.Logger.GetSink() == nil {
		opts.Logger = parent.Logger()
	}

	ds, err := dataset.New(dataset.Options{
		Name:     opts.Name,
		Syncable: parent.IsSyncable(),
		Registry: parent.Registry(),
		Logger:   opts.Logger,
		Parent:   parent,
	})
	if err != nil {
		return nil, err
	}

	d := &Derived{
		Dataset: ds,
		parent:  parent,
		recipe:  recipe.DeepCopy(),
		methods: opts.Methods,
		log:     opts.Logger.WithName("derived").WithValues("name", opts.Name, "recipe", recipe.String()),
		state:   Uninitialized,
	}

	if err := d.sync(); err != nil {
		return nil, err
	}

	if err := d.bind(); err != nil {
		return nil, err
	}

	d.log.V(2).Info("derived dataset created", "parent", parent.Name(), "rows", d.Len())
	return d, nil
}

// MovingAverage creates a derived dataset holding the moving average of the listed columns over
// windows of the given size.
func MovingAverage(parent *dataset.Dataset, columns []string, window int, opts Options) (*Derived, error) {
	return New(parent, Recipe{Kind: KindMovingAverage, Columns: columns, Window: window}, opts)
}

// CountBy creates a derived dataset counting the rows per distinct value of a column.
func CountBy(parent *dataset.Dataset, by string, opts Options) (*Derived, error) {
	return New(parent, Recipe{Kind: KindCountBy, By: by}, opts)
}

// GroupBy creates a derived dataset summing the listed columns per distinct value of a column.
func GroupBy(parent *dataset.Dataset, by string, columns []string, opts Options) (*Derived, error) {
	return New(parent, Recipe{Kind: KindGroupBy, By: by, Columns: columns}, opts)
}

// Recipe returns a copy of the recipe of the derived dataset.
func (d *Derived) Recipe() Recipe { return d.recipe.DeepCopy() }

// Source returns the parent the dataset is derived from.
func (d *Derived) Source() *dataset.Dataset { return d.parent }

// State returns the lifecycle state.
func (d *Derived) State() State { return d.state }

// IsBound reports whether the dataset follows the changes of its parent.
func (d *Derived) IsBound() bool { return d.bound }

// Recompute runs the recipe against the current contents of the parent. It fails on detached
// datasets.
func (d *Derived) Recompute() error {
	if d.state == Detached {
		return NewDetachedError(d.Name())
	}
	return d.sync()
}

// Detach stops following the parent. The contents remain as last computed.
func (d *Derived) Detach() {
	if d.state == Detached {
		return
	}
	if d.bound {
		d.parent.Unbind(d.binding)
		d.bound = false
	}
	d.state = Detached
	d.log.V(2).Info("derived dataset detached")
}

// Attach reattaches a detached dataset to its parent and recomputes it.
func (d *Derived) Attach() error {
	if d.state != Detached {
		return nil
	}
	d.state = Computed
	if err := d.sync(); err != nil {
		d.state = Detached
		return err
	}
	if err := d.bind(); err != nil {
		d.state = Detached
		return err
	}
	d.log.V(2).Info("derived dataset attached", "rows", d.Len())
	return nil
}

func (d *Derived) bind() error {
	if !d.parent.IsSyncable() {
		return nil
	}
	b, err := d.parent.Bind(dataset.EventChange, func(e dataset.Event) error {
		// a dispatch in progress keeps calling handlers unbound during the dispatch
		if d.state == Detached {
			return nil
		}
		d.log.V(4).Info("parent changed", "deltas", len(e.Deltas))
		return d.sync()
	})
	if err != nil {
		return err
	}
	d.binding, d.bound = b, true
	return nil
}

// sync recomputes the contents. On failure the previous contents are kept and the error is
// returned to the caller, for recomputations triggered by the parent this is the caller of the
// parent mutation.
func (d *Derived) sync() error {
	prev := d.state
	if prev == Detached {
		return NewDetachedError(d.Name())
	}
	if prev != Uninitialized {
		d.state = Recomputing
	}

	timer := prometheus.NewTimer(recomputeDuration.WithLabelValues(string(d.recipe.Kind)))
	spec, err := d.recipe.compute(d.parent, d.methods)
	observe(d.recipe.Kind, err, timer)
	if err != nil {
		d.state = prev
		d.log.Error(err, "recomputation failed")
		return fmt.Errorf("derived dataset %s: %w", d.Name(), err)
	}

	// the state is Computed before the load emits our own change event
	d.state = Computed
	if err := d.Load(spec); err != nil {
		if prev == Uninitialized {
			d.state = prev
		}
		return fmt.Errorf("derived dataset %s: %w", d.Name(), err)
	}

	d.log.V(2).Info("recomputed", "rows", d.Len())
	return nil
}
