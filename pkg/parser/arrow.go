package parser

import (
	"fmt"
	"io"
	"math"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/l7mp/dataset/pkg/dataset"
	"github.com/l7mp/dataset/pkg/types"
	"github.com/l7mp/dataset/pkg/util"
)

// FromRecord converts an Arrow record to a load. An int64 field named after the id column
// provides the row ids. Fields of types without a dataset counterpart become mixed columns.
func FromRecord(rec arrow.Record, opts Options) (dataset.LoadSpec, error) {
	spec := dataset.LoadSpec{}
	n := int(rec.NumRows())

	for i, f := range rec.Schema().Fields() {
		col := rec.Column(i)

		if f.Name == dataset.IDColumn {
			ids, ok := col.(*array.Int64)
			if !ok {
				return dataset.LoadSpec{}, NewParseError("id field must be int64, got %s", f.Type)
			}
			spec.IDs = make([]dataset.RowID, n)
			for j := 0; j < n; j++ {
				if ids.IsNull(j) {
					return dataset.LoadSpec{}, NewParseError("null row id at position %d", j)
				}
				spec.IDs[j] = dataset.RowID(ids.Value(j))
			}
			continue
		}

		tag, get := arrowReader(f, col)
		values := make([]any, n)
		for j := 0; j < n; j++ {
			if col.IsNull(j) {
				continue
			}
			values[j] = get(j)
		}
		spec.Columns = append(spec.Columns, dataset.ColumnSpec{Name: f.Name, Type: tag, Data: values})
	}

	if err := applyOverrides(&spec, opts.Overrides); err != nil {
		return dataset.LoadSpec{}, err
	}
	return spec, nil
}

func arrowReader(f arrow.Field, col arrow.Array) (types.Tag, func(int) any) {
	switch a := col.(type) {
	case *array.Boolean:
		return types.Boolean, func(j int) any { return a.Value(j) }
	case *array.String:
		return types.String, func(j int) any { return a.Value(j) }
	case *array.LargeString:
		return types.String, func(j int) any { return a.Value(j) }
	case *array.Timestamp:
		unit := f.Type.(*arrow.TimestampType).Unit
		return types.Time, func(j int) any { return a.Value(j).ToTime(unit) }
	case *array.Date32:
		return types.Time, func(j int) any { return a.Value(j).ToTime() }
	case *array.Date64:
		return types.Time, func(j int) any { return a.Value(j).ToTime() }
	}

	switch f.Type.ID() {
	case arrow.INT8, arrow.INT16, arrow.INT32, arrow.INT64,
		arrow.UINT8, arrow.UINT16, arrow.UINT32, arrow.UINT64,
		arrow.FLOAT32, arrow.FLOAT64:
		return types.Number, func(j int) any { return col.GetOneForMarshal(j) }
	}
	return types.Mixed, func(j int) any { return col.GetOneForMarshal(j) }
}

var (
	nanoTimestamp  = &arrow.TimestampType{Unit: arrow.Nanosecond, TimeZone: "UTC"}
	milliTimestamp = &arrow.TimestampType{Unit: arrow.Millisecond, TimeZone: "UTC"}

	// range of int64 nanoseconds since the epoch
	minNano = time.Unix(0, math.MinInt64)
	maxNano = time.Unix(0, math.MaxInt64)
)

// ToRecord converts a dataset to an Arrow record. Numbers become float64 fields and columns of
// other types JSON strings. Times become nanosecond timestamps, or millisecond timestamps if a
// value of the column is out of the nanosecond range, losing sub-millisecond precision. The
// caller must release the record.
func ToRecord(d *dataset.Dataset, mem memory.Allocator) (arrow.Record, error) {
	mem = memOrDefault(mem)

	columns := d.Columns()
	fields := make([]arrow.Field, len(columns))
	for i, c := range columns {
		fields[i] = arrow.Field{Name: c.Name(), Type: arrowType(c), Nullable: c.Name() != dataset.IDColumn}
	}
	schema := arrow.NewSchema(fields, nil)

	b := array.NewRecordBuilder(mem, schema)
	defer b.Release()

	for i, c := range columns {
		fb := b.Field(i)
		for _, v := range c.Values() {
			if v == nil {
				fb.AppendNull()
				continue
			}
			if err := appendValue(fb, v); err != nil {
				return nil, fmt.Errorf("column %q: %w", c.Name(), err)
			}
		}
	}

	return b.NewRecord(), nil
}

func arrowType(c *dataset.Column) arrow.DataType {
	if c.Name() == dataset.IDColumn {
		return arrow.PrimitiveTypes.Int64
	}
	switch c.Type() {
	case types.Number:
		return arrow.PrimitiveTypes.Float64
	case types.Boolean:
		return arrow.FixedWidthTypes.Boolean
	case types.Time:
		for _, v := range c.Values() {
			if t, ok := v.(time.Time); ok && (t.Before(minNano) || t.After(maxNano)) {
				return milliTimestamp
			}
		}
		return nanoTimestamp
	}
	return arrow.BinaryTypes.String
}

func appendValue(b array.Builder, v any) error {
	switch fb := b.(type) {
	case *array.Int64Builder:
		id, ok := v.(dataset.RowID)
		if !ok {
			return fmt.Errorf("invalid row id %#v", v)
		}
		fb.Append(int64(id))
	case *array.Float64Builder:
		f, ok := types.ToFloat(v)
		if !ok {
			return fmt.Errorf("invalid number %#v", v)
		}
		fb.Append(f)
	case *array.BooleanBuilder:
		x, ok := v.(bool)
		if !ok {
			return fmt.Errorf("invalid boolean %#v", v)
		}
		fb.Append(x)
	case *array.TimestampBuilder:
		t, ok := v.(time.Time)
		if !ok {
			return fmt.Errorf("invalid time %#v", v)
		}
		if fb.Type().(*arrow.TimestampType).Unit == arrow.Nanosecond {
			fb.Append(arrow.Timestamp(t.UnixNano()))
		} else {
			fb.Append(arrow.Timestamp(t.UnixMilli()))
		}
	case *array.StringBuilder:
		if s, ok := v.(string); ok {
			fb.Append(s)
		} else {
			fb.Append(util.Stringify(v))
		}
	default:
		return fmt.Errorf("unsupported builder %T", b)
	}
	return nil
}

// Stream parses an Arrow IPC stream. The record batches of the stream are concatenated.
func Stream(r io.Reader, opts Options) (dataset.LoadSpec, error) {
	rdr, err := ipc.NewReader(r)
	if err != nil {
		return dataset.LoadSpec{}, NewParseError("%s", err)
	}
	defer rdr.Release()

	var spec dataset.LoadSpec
	first := true
	for rdr.Next() {
		batch, err := FromRecord(rdr.Record(), Options{})
		if err != nil {
			return dataset.LoadSpec{}, err
		}
		if first {
			spec, first = batch, false
			continue
		}
		if (spec.IDs == nil) != (batch.IDs == nil) || len(spec.Columns) != len(batch.Columns) {
			return dataset.LoadSpec{}, NewParseError("record batches differ in shape")
		}
		spec.IDs = append(spec.IDs, batch.IDs...)
		for i := range spec.Columns {
			spec.Columns[i].Data = append(spec.Columns[i].Data, batch.Columns[i].Data...)
		}
	}
	if err := rdr.Err(); err != nil && err != io.EOF {
		return dataset.LoadSpec{}, NewParseError("%s", err)
	}
	if first {
		return dataset.LoadSpec{}, NewParseError("empty stream")
	}

	if err := applyOverrides(&spec, opts.Overrides); err != nil {
		return dataset.LoadSpec{}, err
	}
	return spec, nil
}

// WriteStream writes a dataset as an Arrow IPC stream of a single record batch.
func WriteStream(w io.Writer, d *dataset.Dataset, mem memory.Allocator) error {
	rec, err := ToRecord(d, mem)
	if err != nil {
		return err
	}
	defer rec.Release()

	iw := ipc.NewWriter(w, ipc.WithSchema(rec.Schema()), ipc.WithAllocator(memOrDefault(mem)))
	if err := iw.Write(rec); err != nil {
		iw.Close() //nolint:errcheck
		return fmt.Errorf("failed to write record: %w", err)
	}
	return iw.Close()
}

func memOrDefault(mem memory.Allocator) memory.Allocator {
	if mem == nil {
		return memory.NewGoAllocator()
	}
	return mem
}
