package dataset

import (
	"errors"
	"testing"
	"time"

	"github.com/go-logr/logr"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap/zapcore"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"

	"github.com/l7mp/dataset/internal/testutils"
	"github.com/l7mp/dataset/pkg/types"
)

var (
	loglevel = -10
	logger   = zap.New(zap.UseFlagOptions(&zap.Options{
		Development:     true,
		DestWriter:      GinkgoWriter,
		StacktraceLevel: zapcore.Level(3),
		TimeEncoder:     zapcore.RFC3339NanoTimeEncoder,
		Level:           zapcore.Level(loglevel),
	}))
)

func TestDataset(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Dataset")
}

func alphabetSpec() LoadSpec {
	data := testutils.Alphabet()
	spec := LoadSpec{}
	for _, name := range testutils.AlphabetColumns {
		spec.Columns = append(spec.Columns, ColumnSpec{
			Name: name,
			Type: types.Tag(testutils.AlphabetTypes[name]),
			Data: data[name],
		})
	}
	return spec
}

func newAlphabet(syncable bool) *Dataset {
	d, err := New(Options{Name: "alphabet", Syncable: syncable, Logger: logger})
	Expect(err).NotTo(HaveOccurred())
	Expect(d.Load(alphabetSpec())).To(Succeed())
	return d
}

// checkCaches verifies the identity caches against the columns.
func checkCaches(d *Dataset) {
	ids := d.IDs()
	Expect(ids).To(HaveLen(d.Len()))
	for i, id := range ids {
		pos, err := d.Position(id)
		Expect(err).NotTo(HaveOccurred())
		Expect(pos).To(Equal(i))
		v, err := d.columns[0].Value(i)
		Expect(err).NotTo(HaveOccurred())
		Expect(v).To(Equal(id))
	}
	Expect(d.idToPosition).To(HaveLen(d.Len()))

	names := d.ColumnNames()
	Expect(d.columnPosition).To(HaveLen(len(names)))
	for i, name := range names {
		Expect(d.columnPosition[name]).To(Equal(i))
	}
	for _, c := range d.Columns() {
		Expect(c.Len()).To(Equal(d.Len()), "column %s", c.Name())
	}
}

var _ = Describe("Dataset", func() {
	var d *Dataset

	BeforeEach(func() {
		d = newAlphabet(false)
	})

	It("should load the fixture", func() {
		Expect(d.Len()).To(Equal(testutils.AlphabetLen))
		Expect(d.ColumnNames()).To(Equal(append([]string{IDColumn}, testutils.AlphabetColumns...)))
		checkCaches(d)

		c, err := d.Column("numeric_value")
		Expect(err).NotTo(HaveOccurred())
		Expect(c.Type()).To(Equal(types.Number))
		v, err := c.Value(0)
		Expect(err).NotTo(HaveOccurred())
		Expect(v).To(Equal(1.0))

		r, err := d.RowByPosition(23)
		Expect(err).NotTo(HaveOccurred())
		Expect(r["name"]).To(Equal("omega"))
		Expect(r["is_modern"]).To(BeFalse())
	})

	It("should start with an empty id column", func() {
		e, err := New(Options{})
		Expect(err).NotTo(HaveOccurred())
		Expect(e.Len()).To(Equal(0))
		Expect(e.ColumnNames()).To(Equal([]string{IDColumn}))
		Expect(e.Name()).To(HavePrefix("dataset-"))
		Expect(e.UID()).NotTo(BeEmpty())
		checkCaches(e)
	})

	It("should look up rows by id and position", func() {
		id, err := d.IDAt(3)
		Expect(err).NotTo(HaveOccurred())
		r, err := d.RowByID(id)
		Expect(err).NotTo(HaveOccurred())
		Expect(r["name"]).To(Equal("delta"))
		Expect(r.ID()).To(Equal(id))

		_, err = d.RowByPosition(24)
		Expect(errors.Is(err, ErrIndexOutOfRange)).To(BeTrue())
		_, err = d.RowByPosition(-1)
		Expect(errors.Is(err, ErrIndexOutOfRange)).To(BeTrue())
		_, err = d.RowByID(1000)
		Expect(errors.Is(err, ErrUnknownRow)).To(BeTrue())
		_, err = d.Column("nope")
		Expect(errors.Is(err, ErrUnknownColumn)).To(BeTrue())
	})

	It("should iterate rows and columns in order", func() {
		names := []any{}
		Expect(d.Each(func(r Row, pos int) error {
			names = append(names, r["name"])
			return nil
		})).To(Succeed())
		Expect(names).To(Equal(testutils.Alphabet()["name"]))

		stop := errors.New("stop")
		count := 0
		err := d.EachColumn(func(c *Column, pos int) error {
			count++
			if c.Name() == "name" {
				return stop
			}
			return nil
		})
		Expect(err).To(MatchError(stop))
		Expect(count).To(Equal(3))

		Expect(d.Rows()).To(HaveLen(testutils.AlphabetLen))
	})

	It("should keep ids stable when removing rows", func() {
		before := d.IDs()
		Expect(d.RemoveRow(before[5])).To(Succeed())
		Expect(d.Len()).To(Equal(23))
		checkCaches(d)

		after := d.IDs()
		Expect(after[:5]).To(Equal(before[:5]))
		Expect(after[5:]).To(Equal(before[6:]))

		pos, err := d.Position(before[6])
		Expect(err).NotTo(HaveOccurred())
		Expect(pos).To(Equal(5))

		Expect(errors.Is(d.RemoveRow(before[5]), ErrUnknownRow)).To(BeTrue())
	})

	It("should never reuse ids", func() {
		last := d.IDs()[d.Len()-1]
		Expect(d.RemoveRow(last)).To(Succeed())
		id, err := d.AddRow(map[string]any{"character": "ϝ", "name": "digamma", "is_modern": "no", "numeric_value": "6.5"})
		Expect(err).NotTo(HaveOccurred())
		Expect(id).To(BeNumerically(">", last))

		r, err := d.RowByID(id)
		Expect(err).NotTo(HaveOccurred())
		Expect(r["is_modern"]).To(BeFalse())
		Expect(r["numeric_value"]).To(Equal(6.5))
		checkCaches(d)
	})

	It("should reject badly shaped rows", func() {
		_, err := d.AddRow(map[string]any{"character": "ϝ"})
		Expect(errors.Is(err, ErrRowShape)).To(BeTrue())
		_, err = d.AddRow(map[string]any{"character": "ϝ", "name": "digamma", "is_modern": false,
			"numeric_value": 6, "extra": 1})
		Expect(errors.Is(err, ErrRowShape)).To(BeTrue())
		_, err = d.AddRow(map[string]any{IDColumn: RowID(7)})
		Expect(errors.Is(err, ErrRowShape)).To(BeTrue())
		_, err = d.AddRow(map[string]any{"character": "ϝ", "name": "digamma", "is_modern": false,
			"numeric_value": "six"})
		Expect(errors.Is(err, ErrCoercion)).To(BeTrue())
		Expect(d.Len()).To(Equal(testutils.AlphabetLen))
		checkCaches(d)
	})

	It("should append rows atomically", func() {
		rows := []map[string]any{
			{"character": "a", "name": "a", "is_modern": true, "numeric_value": 100},
			{"character": "b", "name": "b", "is_modern": true, "numeric_value": "NaN?"},
		}
		_, err := d.AppendRows(rows)
		Expect(errors.Is(err, ErrCoercion)).To(BeTrue())
		Expect(d.Len()).To(Equal(testutils.AlphabetLen))

		rows[1]["numeric_value"] = 101
		ids, err := d.AppendRows(rows)
		Expect(err).NotTo(HaveOccurred())
		Expect(ids).To(HaveLen(2))
		Expect(d.Len()).To(Equal(26))
		checkCaches(d)
	})

	It("should replace all rows with fresh ids", func() {
		before := d.IDs()
		ids, err := d.SetRows(testutils.AlphabetRows()[:3])
		Expect(err).NotTo(HaveOccurred())
		Expect(d.Len()).To(Equal(3))
		for _, id := range ids {
			Expect(before).NotTo(ContainElement(id))
		}
		checkCaches(d)

		_, err = d.SetRows([]map[string]any{{"name": "x"}})
		Expect(errors.Is(err, ErrRowShape)).To(BeTrue())
		Expect(d.IDs()).To(Equal(ids))
		checkCaches(d)
	})

	It("should update rows", func() {
		id := d.IDs()[0]
		Expect(d.Update(id, map[string]any{"numeric_value": "42"})).To(Succeed())
		r, err := d.RowByID(id)
		Expect(err).NotTo(HaveOccurred())
		Expect(r["numeric_value"]).To(Equal(42.0))
		Expect(r["name"]).To(Equal("alpha"))

		Expect(errors.Is(d.Update(id, map[string]any{"numeric_value": "x"}), ErrCoercion)).To(BeTrue())
		Expect(errors.Is(d.Update(1000, map[string]any{}), ErrUnknownRow)).To(BeTrue())
		r, _ = d.RowByID(id)
		Expect(r["numeric_value"]).To(Equal(42.0))
	})

	It("should add and remove columns", func() {
		Expect(d.AddColumn(ColumnSpec{Name: "note", Type: types.String})).To(Succeed())
		c, err := d.Column("note")
		Expect(err).NotTo(HaveOccurred())
		Expect(c.Len()).To(Equal(testutils.AlphabetLen))
		v, _ := c.Value(0)
		Expect(v).To(BeNil())
		checkCaches(d)

		Expect(errors.Is(d.AddColumn(ColumnSpec{Name: "note"}), ErrDuplicateColumn)).To(BeTrue())
		Expect(errors.Is(d.AddColumn(ColumnSpec{Name: IDColumn}), ErrDuplicateColumn)).To(BeTrue())
		Expect(errors.Is(d.AddColumn(ColumnSpec{Name: "short", Data: []any{1}}), ErrRowShape)).To(BeTrue())
		Expect(errors.Is(d.AddColumn(ColumnSpec{Name: "money", Type: "money"}), ErrUnknownType)).To(BeTrue())

		Expect(d.RemoveColumn("name")).To(Succeed())
		Expect(d.HasColumn("name")).To(BeFalse())
		checkCaches(d)
		Expect(errors.Is(d.RemoveColumn("name"), ErrUnknownColumn)).To(BeTrue())
		Expect(errors.Is(d.RemoveColumn(IDColumn), ErrRowShape)).To(BeTrue())
	})

	It("should detect column types", func() {
		e, err := New(Options{})
		Expect(err).NotTo(HaveOccurred())
		Expect(e.Load(LoadSpec{Columns: []ColumnSpec{
			{Name: "n", Data: []any{"1", "2.5"}},
			{Name: "t", Data: []any{"2024-01-02", "2024-01-03"}},
			{Name: "s", Data: []any{"a", "1"}},
		}})).To(Succeed())

		for name, tag := range map[string]types.Tag{"n": types.Number, "t": types.Time, "s": types.String} {
			c, err := e.Column(name)
			Expect(err).NotTo(HaveOccurred())
			Expect(c.Type()).To(Equal(tag))
		}
		c, _ := e.Column("t")
		v, _ := c.Value(0)
		Expect(v).To(Equal(time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)))
	})

	It("should reuse ids on load", func() {
		Expect(d.Load(LoadSpec{
			Columns: []ColumnSpec{{Name: "v", Type: types.Number, Data: []any{1, 2, 3}}},
			IDs:     []RowID{10, 30, 20},
		})).To(Succeed())
		Expect(d.IDs()).To(Equal([]RowID{10, 30, 20}))
		checkCaches(d)

		id, err := d.AddRow(map[string]any{"v": 4})
		Expect(err).NotTo(HaveOccurred())
		Expect(id).To(Equal(RowID(31)))

		Expect(d.Load(LoadSpec{Columns: []ColumnSpec{
			{Name: IDColumn, Data: []any{5, 6}},
			{Name: "v", Type: types.Number, Data: []any{1, 2}},
		}})).To(Succeed())
		Expect(d.IDs()).To(Equal([]RowID{5, 6}))
	})

	It("should leave the dataset untouched on a failed load", func() {
		before := d.Rows()
		ids := d.IDs()

		err := d.Load(LoadSpec{Columns: []ColumnSpec{
			{Name: "a", Data: []any{1, 2}},
			{Name: "b", Data: []any{1}},
		}})
		Expect(errors.Is(err, ErrRowShape)).To(BeTrue())

		err = d.Load(LoadSpec{
			Columns: []ColumnSpec{{Name: "a", Data: []any{1, 2}}},
			IDs:     []RowID{1, 1},
		})
		Expect(errors.Is(err, ErrRowShape)).To(BeTrue())

		err = d.Load(LoadSpec{Columns: []ColumnSpec{
			{Name: "a", Data: []any{1, 2}},
			{Name: "a", Data: []any{1, 2}},
		}})
		Expect(errors.Is(err, ErrDuplicateColumn)).To(BeTrue())

		err = d.Load(LoadSpec{Columns: []ColumnSpec{{Name: "a", Type: types.Number, Data: []any{"x"}}}})
		Expect(errors.Is(err, ErrCoercion)).To(BeTrue())

		err = d.Load(LoadSpec{Columns: []ColumnSpec{{Name: "a", Type: types.Number, Data: []any{"1", "NaN", "NaN"}}}})
		Expect(errors.Is(err, ErrCoercion)).To(BeTrue())

		Expect(d.Rows()).To(Equal(before))
		Expect(d.IDs()).To(Equal(ids))
		checkCaches(d)
	})

	It("should fix the parent at construction", func() {
		a, err := New(Options{Name: "a"})
		Expect(err).NotTo(HaveOccurred())
		b, err := New(Options{Name: "b", Parent: a})
		Expect(err).NotTo(HaveOccurred())
		Expect(b.Parent()).To(Equal(a))
		Expect(a.Parent()).To(BeNil())
	})

	It("should reject cyclic parents", func() {
		a, _ := New(Options{Name: "a"})
		b, _ := New(Options{Name: "b", Parent: a})
		c, _ := New(Options{Name: "c", Parent: b})
		Expect(errors.Is(a.setParent(c), ErrCycle)).To(BeTrue())
		Expect(errors.Is(a.setParent(a), ErrCycle)).To(BeTrue())
		Expect(a.Parent()).To(BeNil())
		Expect(c.Parent()).To(Equal(b))
	})
})

var _ = Describe("Events", func() {
	var d *Dataset
	var events []Event

	BeforeEach(func() {
		d = newAlphabet(true)
		events = []Event{}
	})

	record := func(e Event) error {
		events = append(events, e)
		return nil
	}

	It("should refuse binding on non-syncable datasets", func() {
		e, _ := New(Options{Logger: logr.Discard()})
		_, err := e.Bind(EventChange, record)
		Expect(errors.Is(err, ErrNotSyncable)).To(BeTrue())
	})

	It("should emit a change per mutation", func() {
		_, err := d.Bind(EventChange, record)
		Expect(err).NotTo(HaveOccurred())

		id, err := d.AddRow(map[string]any{"character": "ϝ", "name": "digamma", "is_modern": false, "numeric_value": 6})
		Expect(err).NotTo(HaveOccurred())
		Expect(d.Update(id, map[string]any{"numeric_value": 7})).To(Succeed())
		Expect(d.RemoveRow(id)).To(Succeed())
		Expect(d.Load(alphabetSpec())).To(Succeed())

		Expect(events).To(HaveLen(4))
		Expect(events[0].Name).To(Equal(EventChange))
		Expect(events[0].Source).To(Equal(d))
		Expect(events[0].Deltas).To(Equal([]Delta{{Type: Added, ID: id}}))
		Expect(events[1].Deltas).To(Equal([]Delta{{Type: Updated, ID: id}}))
		Expect(events[2].Deltas).To(Equal([]Delta{{Type: Deleted, ID: id}}))
		Expect(events[3].Deltas).To(Equal([]Delta{{Type: Replaced}}))
	})

	It("should not emit on failed mutations", func() {
		_, err := d.Bind(EventChange, record)
		Expect(err).NotTo(HaveOccurred())
		Expect(d.RemoveRow(1000)).NotTo(Succeed())
		_, err = d.AddRow(map[string]any{})
		Expect(err).To(HaveOccurred())
		Expect(events).To(BeEmpty())
	})

	It("should call handlers in binding order and stop at the first error", func() {
		order := []int{}
		boom := errors.New("boom")
		_, _ = d.Bind("custom", func(Event) error { order = append(order, 1); return nil })
		_, _ = d.Bind("custom", func(Event) error { order = append(order, 2); return boom })
		_, _ = d.Bind("custom", func(Event) error { order = append(order, 3); return nil })

		err := d.Trigger("custom", Event{})
		Expect(errors.Is(err, boom)).To(BeTrue())
		Expect(order).To(Equal([]int{1, 2}))
	})

	It("should unbind handlers", func() {
		b1, _ := d.Bind(EventChange, record)
		_, _ = d.Bind(EventChange, record)

		Expect(d.Trigger(EventChange, Event{})).To(Succeed())
		Expect(events).To(HaveLen(2))

		d.Unbind(b1)
		d.Unbind(b1)
		Expect(d.Trigger(EventChange, Event{})).To(Succeed())
		Expect(events).To(HaveLen(3))
	})

	It("should return handler errors from mutations with the mutation committed", func() {
		boom := errors.New("boom")
		_, _ = d.Bind(EventChange, func(Event) error { return boom })
		id := d.IDs()[0]
		err := d.RemoveRow(id)
		Expect(errors.Is(err, boom)).To(BeTrue())
		Expect(d.Len()).To(Equal(testutils.AlphabetLen - 1))
		checkCaches(d)
	})
})
