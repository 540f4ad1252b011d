package dataset

import (
	"fmt"

	"github.com/l7mp/dataset/pkg/types"
)

// LoadSpec is the bulk input of a dataset: the full column list with data of equal length and,
// optionally, the row ids to use. Ids are reused by importers that refresh a dataset and must
// keep row identity across fetches.
type LoadSpec struct {
	Columns []ColumnSpec
	IDs     []RowID
}

// AddColumn appends a column. If spec.Data is nil the column is filled with nil values,
// otherwise it must hold exactly one value per row.
func (d *Dataset) AddColumn(spec ColumnSpec) error {
	if err := d.addColumn(spec); err != nil {
		return err
	}
	d.log.V(4).Info("column added", "column", spec.Name)
	return d.notify()
}

func (d *Dataset) addColumn(spec ColumnSpec) error {
	if _, ok := d.columnPosition[spec.Name]; ok || spec.Name == IDColumn {
		return NewDuplicateColumnError(spec.Name)
	}

	col, err := d.newColumn(spec, d.length)
	if err != nil {
		return err
	}

	d.columns = append(d.columns, col)
	d.columnPosition[col.name] = len(d.columns) - 1
	return nil
}

// RemoveColumn removes a column. The id column cannot be removed.
func (d *Dataset) RemoveColumn(name string) error {
	pos, ok := d.columnPosition[name]
	if !ok {
		return NewUnknownColumnError(name)
	}
	if name == IDColumn {
		return NewRowShapeError("the id column cannot be removed")
	}

	columns := make([]*Column, 0, len(d.columns)-1)
	columns = append(columns, d.columns[:pos]...)
	columns = append(columns, d.columns[pos+1:]...)
	d.columns = columns

	d.columnPosition = make(map[string]int, len(columns))
	for i, c := range columns {
		d.columnPosition[c.name] = i
	}

	d.log.V(4).Info("column removed", "column", name)
	return d.notify()
}

// AddRow appends a row and returns its new id. The values must supply every column except the id
// column, and nothing else.
func (d *Dataset) AddRow(values map[string]any) (RowID, error) {
	row, err := d.coerceRow(values, true)
	if err != nil {
		return 0, err
	}

	id := d.appendRow(row)
	d.log.V(4).Info("row added", "id", id)
	return id, d.notify(Delta{Type: Added, ID: id})
}

// AppendRows appends rows in bulk. Either all rows are added or none.
func (d *Dataset) AppendRows(rows []map[string]any) ([]RowID, error) {
	coerced := make([][]any, len(rows))
	for i, values := range rows {
		row, err := d.coerceRow(values, true)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		coerced[i] = row
	}

	ids := make([]RowID, len(coerced))
	deltas := make([]Delta, len(coerced))
	for i, row := range coerced {
		ids[i] = d.appendRow(row)
		deltas[i] = Delta{Type: Added, ID: ids[i]}
	}

	d.log.V(4).Info("rows appended", "count", len(ids))
	return ids, d.notify(deltas...)
}

func (d *Dataset) appendRow(row []any) RowID {
	id := d.nextID
	d.nextID++

	d.columns[0].data = append(d.columns[0].data, id)
	for i := 1; i < len(d.columns); i++ {
		d.columns[i].data = append(d.columns[i].data, row[i])
	}

	d.positionToID = append(d.positionToID, id)
	d.idToPosition[id] = d.length
	d.length++
	return id
}

// SetRows replaces all rows, keeping the columns. Every row gets a fresh id.
func (d *Dataset) SetRows(rows []map[string]any) ([]RowID, error) {
	data := make([][]any, len(d.columns))
	for i := range data {
		data[i] = make([]any, len(rows))
	}

	ids := make([]RowID, len(rows))
	for r, values := range rows {
		row, err := d.coerceRow(values, true)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", r, err)
		}
		for i := 1; i < len(d.columns); i++ {
			data[i][r] = row[i]
		}
	}

	for r := range rows {
		ids[r] = d.nextID
		data[0][r] = d.nextID
		d.nextID++
	}

	for i, c := range d.columns {
		c.data = data[i]
	}
	if err := d.RebuildCaches(); err != nil {
		return nil, err
	}

	d.log.V(4).Info("rows replaced", "count", len(ids))
	return ids, d.notify(Delta{Type: Replaced})
}

// Update overwrites some values of a row.
func (d *Dataset) Update(id RowID, values map[string]any) error {
	pos, ok := d.idToPosition[id]
	if !ok {
		return NewUnknownRowError(id)
	}

	row, err := d.coerceRow(values, false)
	if err != nil {
		return err
	}

	for name := range values {
		i := d.columnPosition[name]
		d.columns[i].data[pos] = row[i]
	}

	d.log.V(4).Info("row updated", "id", id)
	return d.notify(Delta{Type: Updated, ID: id})
}

// RemoveRow removes a row. Ids of the other rows do not change, rows after the removed one move
// one position up.
func (d *Dataset) RemoveRow(id RowID) error {
	pos, ok := d.idToPosition[id]
	if !ok {
		return NewUnknownRowError(id)
	}

	for _, c := range d.columns {
		c.data = removeAt(c.data, pos)
	}

	copy(d.positionToID[pos:], d.positionToID[pos+1:])
	d.positionToID = d.positionToID[:len(d.positionToID)-1]
	delete(d.idToPosition, id)
	for i := pos; i < len(d.positionToID); i++ {
		d.idToPosition[d.positionToID[i]] = i
	}
	d.length--

	d.log.V(4).Info("row removed", "id", id, "position", pos)
	return d.notify(Delta{Type: Deleted, ID: id})
}

func removeAt(data []any, pos int) []any {
	copy(data[pos:], data[pos+1:])
	data[len(data)-1] = nil
	return data[:len(data)-1]
}

// Load replaces the columns and rows of the dataset in one step. The caches are rebuilt once. If
// spec.IDs is nil, fresh ids are assigned, unless the column list contains an id column whose
// values are then used as ids. On error the dataset is left unchanged.
func (d *Dataset) Load(spec LoadSpec) error {
	ids := spec.IDs
	specs := make([]ColumnSpec, 0, len(spec.Columns))
	for _, s := range spec.Columns {
		if s.Name != IDColumn {
			specs = append(specs, s)
			continue
		}
		if ids != nil {
			return NewRowShapeError("row ids given both as an id list and as a column")
		}
		var err error
		if ids, err = toRowIDs(s.Data); err != nil {
			return err
		}
		if ids == nil {
			ids = []RowID{}
		}
	}

	n := -1
	if ids != nil {
		n = len(ids)
	}
	for _, s := range specs {
		if s.Data == nil {
			continue
		}
		if n >= 0 && len(s.Data) != n {
			return NewRowShapeError(fmt.Sprintf("column %q has %d values, expected %d",
				s.Name, len(s.Data), n))
		}
		n = len(s.Data)
	}
	if n < 0 {
		n = 0
	}

	nextID := d.nextID
	idData := make([]any, n)
	if ids == nil {
		for i := range idData {
			idData[i] = nextID
			nextID++
		}
	} else {
		for i, id := range ids {
			idData[i] = id
			if id >= nextID {
				nextID = id + 1
			}
		}
	}

	columns := make([]*Column, 0, len(specs)+1)
	columns = append(columns, &Column{name: IDColumn, tag: types.Number, data: idData})
	for _, s := range specs {
		col, err := d.newColumn(s, n)
		if err != nil {
			return err
		}
		columns = append(columns, col)
	}

	c, err := buildCaches(columns)
	if err != nil {
		return err
	}

	d.columns = columns
	d.nextID = nextID
	d.setCaches(c)

	d.log.V(4).Info("dataset loaded", "columns", len(columns), "rows", n)
	return d.notify(Delta{Type: Replaced})
}

func (d *Dataset) newColumn(spec ColumnSpec, length int) (*Column, error) {
	if spec.Name == "" {
		return nil, NewRowShapeError("empty column name")
	}

	tag := spec.Type
	if tag == "" {
		tag = types.Detect(spec.Data)
	}
	if !d.registry.Has(tag) {
		return nil, fmt.Errorf("column %q: %w", spec.Name, types.NewUnknownTypeError(tag))
	}

	data := make([]any, length)
	if spec.Data != nil {
		if len(spec.Data) != length {
			return nil, NewRowShapeError(fmt.Sprintf("column %q has %d values, expected %d",
				spec.Name, len(spec.Data), length))
		}
		for i, raw := range spec.Data {
			v, err := d.registry.CoerceFormat(tag, raw, spec.Format)
			if err != nil {
				return nil, fmt.Errorf("column %q, position %d: %w", spec.Name, i, err)
			}
			data[i] = v
		}
	}

	return &Column{name: spec.Name, tag: tag, format: spec.Format, data: data}, nil
}

// coerceRow converts row values to the column types. The result is aligned with the column
// list, its first element (the id column) is unused. If full is set, every column must be
// present in values.
func (d *Dataset) coerceRow(values map[string]any, full bool) ([]any, error) {
	for name := range values {
		if name == IDColumn {
			return nil, NewRowShapeError("row ids are assigned by the dataset")
		}
		if _, ok := d.columnPosition[name]; !ok {
			return nil, NewRowShapeError(fmt.Sprintf("undeclared column %q", name))
		}
	}

	row := make([]any, len(d.columns))
	for i := 1; i < len(d.columns); i++ {
		c := d.columns[i]
		raw, ok := values[c.name]
		if !ok {
			if full {
				return nil, NewRowShapeError(fmt.Sprintf("missing value for column %q", c.name))
			}
			continue
		}
		v, err := d.registry.CoerceFormat(c.tag, raw, c.format)
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", c.name, err)
		}
		row[i] = v
	}

	return row, nil
}

func toRowIDs(data []any) ([]RowID, error) {
	if data == nil {
		return nil, nil
	}
	ids := make([]RowID, len(data))
	for i, v := range data {
		if id, ok := v.(RowID); ok {
			ids[i] = id
			continue
		}
		f, ok := types.ToFloat(v)
		if !ok || f != float64(int64(f)) {
			return nil, NewRowShapeError(fmt.Sprintf("invalid row id %#v at position %d", v, i))
		}
		ids[i] = RowID(f)
	}
	return ids, nil
}
