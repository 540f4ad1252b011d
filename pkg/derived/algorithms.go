package derived

import (
	"fmt"
	"slices"

	"github.com/l7mp/dataset/pkg/dataset"
	"github.com/l7mp/dataset/pkg/method"
	"github.com/l7mp/dataset/pkg/types"
	"github.com/l7mp/dataset/pkg/util"
)

// movingAverage slides a window of r.Window rows over the parent. Listed columns hold the method
// applied to each window, other columns are copied from the last row of the window, and so is
// the row id.
func movingAverage(parent *dataset.Dataset, r Recipe, methods *method.Registry) (dataset.LoadSpec, error) {
	fn, err := methods.Lookup(r.method())
	if err != nil {
		return dataset.LoadSpec{}, err
	}
	for _, name := range r.Columns {
		if !parent.HasColumn(name) {
			return dataset.LoadSpec{}, dataset.NewUnknownColumnError(name)
		}
	}

	w, n := r.Window, parent.Len()
	m := max(n-w+1, 0)

	parentIDs := parent.IDs()
	spec := dataset.LoadSpec{IDs: make([]dataset.RowID, m)}
	oids := make([]any, m)
	for i := 0; i < m; i++ {
		spec.IDs[i] = parentIDs[i+w-1]
		oids[i] = slices.Clone(parentIDs[i : i+w])
	}

	for _, c := range parent.Columns() {
		if c.Name() == dataset.IDColumn || c.Name() == OIDsColumn {
			continue
		}

		values := c.Values()
		data := make([]any, m)
		if slices.Contains(r.Columns, c.Name()) {
			for i := 0; i < m; i++ {
				v, err := fn(values[i : i+w])
				if err != nil {
					return dataset.LoadSpec{}, fmt.Errorf("column %q, window %d: %w", c.Name(), i, err)
				}
				data[i] = v
			}
		} else if m > 0 {
			copy(data, values[w-1:])
		}

		spec.Columns = append(spec.Columns, dataset.ColumnSpec{
			Name: c.Name(), Type: c.Type(), Format: c.Format(), Data: data,
		})
	}

	spec.Columns = append(spec.Columns, dataset.ColumnSpec{Name: OIDsColumn, Type: types.Mixed, Data: oids})
	return spec, nil
}

type category struct {
	value any
	oids  []dataset.RowID
	// positions of the member rows in the parent
	rows []int
}

// categories partitions the parent rows by key in first-seen order.
type categories struct {
	list  []*category
	index map[string]*category
}

func newCategories() *categories {
	return &categories{index: map[string]*category{}}
}

func (cs *categories) add(key string, value any, id dataset.RowID, pos int) {
	c, ok := cs.index[key]
	if !ok {
		c = &category{value: value}
		cs.index[key] = c
		cs.list = append(cs.list, c)
	}
	c.oids = append(c.oids, id)
	c.rows = append(c.rows, pos)
}

// countBy counts the rows per distinct value of the by column. Values are equal if the column
// type's comparator says so. Exact types are hashed, other types are matched with a linear scan
// over the values found so far.
func countBy(parent *dataset.Dataset, r Recipe) (dataset.LoadSpec, error) {
	col, err := parent.Column(r.By)
	if err != nil {
		return dataset.LoadSpec{}, err
	}

	registry, tag := parent.Registry(), col.Type()
	ids := parent.IDs()
	cs := newCategories()
	for pos, v := range col.Values() {
		var key string
		if registry.IsExact(tag) {
			if key, err = util.CanonicalKey(v); err != nil {
				return dataset.LoadSpec{}, err
			}
		} else {
			idx := -1
			for i, c := range cs.list {
				cmp, err := registry.Compare(tag, c.value, v)
				if err != nil {
					return dataset.LoadSpec{}, err
				}
				if cmp == 0 {
					idx = i
					break
				}
			}
			if idx < 0 {
				idx = len(cs.list)
			}
			key = fmt.Sprintf("#%d", idx)
		}
		cs.add(key, v, ids[pos], pos)
	}

	values := make([]any, len(cs.list))
	counts := make([]any, len(cs.list))
	oids := make([]any, len(cs.list))
	for i, c := range cs.list {
		values[i] = c.value
		counts[i] = float64(len(c.oids))
		oids[i] = c.oids
	}

	return dataset.LoadSpec{Columns: []dataset.ColumnSpec{
		{Name: r.By, Type: tag, Format: col.Format(), Data: values},
		{Name: CountColumn, Type: types.Number, Data: counts},
		{Name: OIDsColumn, Type: types.Mixed, Data: oids},
	}}, nil
}

// groupBy aggregates the listed columns per category of the by column. The category of a row is
// its by value, or the preprocessed by value if the recipe names a preprocessor.
func groupBy(parent *dataset.Dataset, r Recipe, methods *method.Registry) (dataset.LoadSpec, error) {
	fn, err := methods.Lookup(r.method())
	if err != nil {
		return dataset.LoadSpec{}, err
	}

	byCol, err := parent.Column(r.By)
	if err != nil {
		return dataset.LoadSpec{}, err
	}
	cols := make([]*dataset.Column, len(r.Columns))
	for i, name := range r.Columns {
		if cols[i], err = parent.Column(name); err != nil {
			return dataset.LoadSpec{}, err
		}
	}

	byTag, byFormat := byCol.Type(), byCol.Format()
	var pre *method.Preprocessor
	if r.Preprocess != "" {
		p, err := methods.LookupPreprocessor(r.Preprocess)
		if err != nil {
			return dataset.LoadSpec{}, err
		}
		pre = &p
		if p.Type != "" {
			byTag, byFormat = p.Type, ""
		}
	}

	ids := parent.IDs()
	cs := newCategories()
	for pos, v := range byCol.Values() {
		if pre != nil {
			if v, err = pre.Fn(v); err != nil {
				return dataset.LoadSpec{}, fmt.Errorf("category of row %d: %w", ids[pos], err)
			}
		}
		key, err := util.CanonicalKey(v)
		if err != nil {
			return dataset.LoadSpec{}, err
		}
		cs.add(key, v, ids[pos], pos)
	}

	keys := make([]any, len(cs.list))
	oids := make([][]dataset.RowID, len(cs.list))
	for i, c := range cs.list {
		keys[i] = c.value
	}

	spec := dataset.LoadSpec{Columns: []dataset.ColumnSpec{{Name: r.By, Type: byTag, Format: byFormat, Data: keys}}}
	for _, col := range cols {
		values := col.Values()
		data := make([]any, len(cs.list))
		for i, c := range cs.list {
			// origin ids are collected per aggregated column, without deduplication
			oids[i] = append(oids[i], c.oids...)

			bin := make([]any, len(c.rows))
			for j, pos := range c.rows {
				bin[j] = values[pos]
			}
			v, err := fn(bin)
			if err != nil {
				return dataset.LoadSpec{}, fmt.Errorf("column %q, category %s: %w",
					col.Name(), util.Stringify(c.value), err)
			}
			data[i] = v
		}
		spec.Columns = append(spec.Columns, dataset.ColumnSpec{
			Name: col.Name(), Type: col.Type(), Format: col.Format(), Data: data,
		})
	}

	oidData := make([]any, len(oids))
	for i := range oids {
		oidData[i] = oids[i]
	}
	spec.Columns = append(spec.Columns, dataset.ColumnSpec{Name: OIDsColumn, Type: types.Mixed, Data: oidData})
	return spec, nil
}
