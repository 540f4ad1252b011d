// Package dataset implements an in-memory table of typed, named columns. Every row carries a
// synthetic id that stays the same for the lifetime of the row, independently of the row's
// position.
//
// A dataset maintains three caches on top of its columns: row position to id, id to row position
// and column name to column position. The caches are derived data, they are rebuilt from the id
// column and the column list. Every mutation computes the new columns and caches first and swaps
// them in only on success, so a failed call leaves the dataset untouched.
//
// A syncable dataset emits a "change" event after each successful mutation. Derived datasets bind
// to this event to keep themselves up to date.
//
// Datasets are not safe for concurrent use.
package dataset

import (
	"fmt"

	"github.com/go-logr/logr"
	"github.com/google/uuid"

	"github.com/l7mp/dataset/pkg/types"
)

// IDColumn is the name of the row id column every dataset has.
const IDColumn = "_id"

// RowID identifies a row.
type RowID int64

// Row is a snapshot of a row: column name to value, the row id included under IDColumn.
type Row map[string]any

// ID returns the row id of the snapshot.
func (r Row) ID() RowID {
	id, _ := r[IDColumn].(RowID)
	return id
}

// Options configure a new dataset.
type Options struct {
	// Name is a human readable name, used in logs and lineage graphs.
	Name string
	// Syncable datasets emit events and can have live derived datasets.
	Syncable bool
	// Registry resolves column types. Defaults to types.DefaultRegistry.
	Registry *types.Registry
	// Logger defaults to a discarding logger.
	Logger logr.Logger
	// Columns are added in order at construction.
	Columns []ColumnSpec
	// Parent is the dataset this one is derived from. The link is fixed for the lifetime of the
	// dataset.
	Parent *Dataset
}

// Dataset is a collection of columns plus the row id generator and the identity caches.
type Dataset struct {
	name     string
	uid      string
	registry *types.Registry
	log      logr.Logger

	columns []*Column
	length  int
	nextID  RowID

	positionToID   []RowID
	idToPosition   map[RowID]int
	columnPosition map[string]int

	syncable    bool
	handlers    map[string][]binding
	nextBinding uint64

	parent *Dataset
}

type caches struct {
	positionToID   []RowID
	idToPosition   map[RowID]int
	columnPosition map[string]int
}

// New creates a dataset with an empty id column followed by the columns in opts.
func New(opts Options) (*Dataset, error) {
	d := &Dataset{
		name:     opts.Name,
		uid:      uuid.New().String(),
		registry: opts.Registry,
		log:      opts.Logger,
		nextID:   1,
		syncable: opts.Syncable,
		handlers: map[string][]binding{},
	}
	if d.registry == nil {
		d.registry = types.DefaultRegistry
	}
	if d.log.GetSink() == nil {
		d.log = logr.Discard()
	}
	if d.name == "" {
		d.name = "dataset-" + d.uid[:8]
	}
	d.log = d.log.WithName("dataset").WithValues("name", d.name)

	d.columns = []*Column{{name: IDColumn, tag: types.Number, data: []any{}}}
	if err := d.RebuildCaches(); err != nil {
		return nil, err
	}

	for _, spec := range opts.Columns {
		if err := d.addColumn(spec); err != nil {
			return nil, err
		}
	}

	if err := d.setParent(opts.Parent); err != nil {
		return nil, err
	}

	return d, nil
}

// Name returns the name of the dataset.
func (d *Dataset) Name() string { return d.name }

// UID returns a process-unique identifier of the dataset.
func (d *Dataset) UID() string { return d.uid }

// Registry returns the type registry used to coerce and compare column values.
func (d *Dataset) Registry() *types.Registry { return d.registry }

// Logger returns the logger of the dataset.
func (d *Dataset) Logger() logr.Logger { return d.log }

// IsSyncable reports whether the dataset emits events.
func (d *Dataset) IsSyncable() bool { return d.syncable }

// Len returns the number of rows.
func (d *Dataset) Len() int { return d.length }

// Parent returns the dataset this one is derived from, or nil.
func (d *Dataset) Parent() *Dataset { return d.parent }

// setParent records that the dataset is derived from parent. A nil parent clears the link. The
// call fails if the dataset is an ancestor of parent, derivations must form a DAG.
func (d *Dataset) setParent(parent *Dataset) error {
	for a := parent; a != nil; a = a.parent {
		if a == d {
			return NewCycleError(d.name, parent.name)
		}
	}
	d.parent = parent
	return nil
}

// Column returns a column by name.
func (d *Dataset) Column(name string) (*Column, error) {
	pos, ok := d.columnPosition[name]
	if !ok {
		return nil, NewUnknownColumnError(name)
	}
	return d.columns[pos], nil
}

// HasColumn reports whether the named column exists.
func (d *Dataset) HasColumn(name string) bool {
	_, ok := d.columnPosition[name]
	return ok
}

// ColumnNames returns the column names in column order, the id column included.
func (d *Dataset) ColumnNames() []string {
	ret := make([]string, len(d.columns))
	for i, c := range d.columns {
		ret[i] = c.name
	}
	return ret
}

// Columns returns the columns in column order.
func (d *Dataset) Columns() []*Column {
	ret := make([]*Column, len(d.columns))
	copy(ret, d.columns)
	return ret
}

// EachColumn calls fn for every column in column order and stops at the first error.
func (d *Dataset) EachColumn(fn func(c *Column, pos int) error) error {
	for i, c := range d.columns {
		if err := fn(c, i); err != nil {
			return err
		}
	}
	return nil
}

// IDs returns the row ids in position order.
func (d *Dataset) IDs() []RowID {
	ret := make([]RowID, len(d.positionToID))
	copy(ret, d.positionToID)
	return ret
}

// IDAt returns the id of the row at the given position.
func (d *Dataset) IDAt(pos int) (RowID, error) {
	if pos < 0 || pos >= d.length {
		return 0, NewIndexOutOfRangeError(pos, d.length)
	}
	return d.positionToID[pos], nil
}

// Position returns the current position of a row.
func (d *Dataset) Position(id RowID) (int, error) {
	pos, ok := d.idToPosition[id]
	if !ok {
		return 0, NewUnknownRowError(id)
	}
	return pos, nil
}

// RowByPosition returns a snapshot of the row at pos.
func (d *Dataset) RowByPosition(pos int) (Row, error) {
	if pos < 0 || pos >= d.length {
		return nil, NewIndexOutOfRangeError(pos, d.length)
	}
	return d.row(pos), nil
}

// RowByID returns a snapshot of the row with the given id.
func (d *Dataset) RowByID(id RowID) (Row, error) {
	pos, ok := d.idToPosition[id]
	if !ok {
		return nil, NewUnknownRowError(id)
	}
	return d.row(pos), nil
}

func (d *Dataset) row(pos int) Row {
	r := make(Row, len(d.columns))
	for _, c := range d.columns {
		r[c.name] = c.data[pos]
	}
	return r
}

// Each calls fn for every row in position order and stops at the first error.
func (d *Dataset) Each(fn func(r Row, pos int) error) error {
	for i := 0; i < d.length; i++ {
		if err := fn(d.row(i), i); err != nil {
			return err
		}
	}
	return nil
}

// Rows returns snapshots of all rows in position order.
func (d *Dataset) Rows() []Row {
	ret := make([]Row, d.length)
	for i := range ret {
		ret[i] = d.row(i)
	}
	return ret
}

// RebuildCaches reconstructs all three caches from the id column and the column list.
func (d *Dataset) RebuildCaches() error {
	c, err := buildCaches(d.columns)
	if err != nil {
		return err
	}
	d.setCaches(c)
	return nil
}

func (d *Dataset) setCaches(c caches) {
	d.positionToID = c.positionToID
	d.idToPosition = c.idToPosition
	d.columnPosition = c.columnPosition
	d.length = len(c.positionToID)
}

// buildCaches computes the caches for a column list without touching the dataset. The first
// column must be the id column.
func buildCaches(columns []*Column) (caches, error) {
	if len(columns) == 0 || columns[0].name != IDColumn {
		return caches{}, NewRowShapeError("missing id column")
	}

	ids := columns[0].data
	c := caches{
		positionToID:   make([]RowID, len(ids)),
		idToPosition:   make(map[RowID]int, len(ids)),
		columnPosition: make(map[string]int, len(columns)),
	}

	for i, col := range columns {
		if _, ok := c.columnPosition[col.name]; ok {
			return caches{}, NewDuplicateColumnError(col.name)
		}
		if len(col.data) != len(ids) {
			return caches{}, NewRowShapeError(fmt.Sprintf("column %q has %d values, expected %d",
				col.name, len(col.data), len(ids)))
		}
		c.columnPosition[col.name] = i
	}

	for pos, v := range ids {
		id, ok := v.(RowID)
		if !ok {
			return caches{}, NewRowShapeError(fmt.Sprintf("invalid row id %#v at position %d", v, pos))
		}
		if _, ok := c.idToPosition[id]; ok {
			return caches{}, NewRowShapeError(fmt.Sprintf("duplicate row id %d", id))
		}
		c.positionToID[pos] = id
		c.idToPosition[id] = pos
	}

	return c, nil
}
