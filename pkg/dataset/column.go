package dataset

import (
	"github.com/l7mp/dataset/pkg/types"
)

// ColumnSpec declares a column, optionally with data. Type may be left empty, in which case it
// is inferred from the data.
type ColumnSpec struct {
	Name   string    `json:"name"`
	Type   types.Tag `json:"type,omitempty"`
	Format string    `json:"format,omitempty"`
	Data   []any     `json:"data,omitempty"`
}

// Column is a named, typed sequence of values. Columns are owned by a dataset and can only be
// changed through it, so the accessors below never expose the underlying storage.
type Column struct {
	name   string
	tag    types.Tag
	format string
	data   []any
}

func (c *Column) Name() string { return c.name }

func (c *Column) Type() types.Tag { return c.tag }

// Format is the type-specific format the column values were coerced with, if any.
func (c *Column) Format() string { return c.format }

func (c *Column) Len() int { return len(c.data) }

// Value returns the value at the given row position.
func (c *Column) Value(pos int) (any, error) {
	if pos < 0 || pos >= len(c.data) {
		return nil, NewIndexOutOfRangeError(pos, len(c.data))
	}
	return c.data[pos], nil
}

// Values returns a copy of the column data in row position order.
func (c *Column) Values() []any {
	ret := make([]any, len(c.data))
	copy(ret, c.data)
	return ret
}

// Spec returns a ColumnSpec that reproduces the column, data included.
func (c *Column) Spec() ColumnSpec {
	return ColumnSpec{Name: c.name, Type: c.tag, Format: c.format, Data: c.Values()}
}
