package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/l7mp/dataset/internal/dag"
	"github.com/l7mp/dataset/pkg/dataset"
	"github.com/l7mp/dataset/pkg/derived"
	"github.com/l7mp/dataset/pkg/types"
)

func TestConfig(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Config")
}

const planYAML = `
derivations:
  - name: trend
    from: groups
    recipe:
      kind: movingAverage
      columns: [val]
      window: 2
  - name: groups
    recipe:
      kind: groupBy
      by: cat
      columns: [val]
  - name: counts
    from: source
    detached: true
    recipe:
      kind: countBy
      by: cat
`

var _ = Describe("Plan", func() {
	var src *dataset.Dataset

	BeforeEach(func() {
		var err error
		src, err = dataset.New(dataset.Options{Name: "sales", Syncable: true})
		Expect(err).NotTo(HaveOccurred())
		Expect(src.Load(dataset.LoadSpec{Columns: []dataset.ColumnSpec{
			{Name: "cat", Type: types.String, Data: []any{"x", "y", "x", "z"}},
			{Name: "val", Type: types.Number, Data: []any{1, 2, 3, 4}},
		}})).To(Succeed())
	})

	It("should parse and order a plan", func() {
		p, err := Parse([]byte(planYAML))
		Expect(err).NotTo(HaveOccurred())
		Expect(p.Derivations).To(HaveLen(3))
		Expect(p.Derivations[0].Recipe).To(Equal(derived.Recipe{
			Kind: derived.KindMovingAverage, Columns: []string{"val"}, Window: 2}))

		order, err := p.Validate(nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(order).To(Equal([]string{"groups", "trend", "counts"}))
	})

	It("should read plan files", func() {
		file := filepath.Join(GinkgoT().TempDir(), "plan.yaml")
		Expect(os.WriteFile(file, []byte(planYAML), 0o600)).To(Succeed())
		p, err := ReadFile(file)
		Expect(err).NotTo(HaveOccurred())
		Expect(p.Derivations).To(HaveLen(3))

		_, err = ReadFile(filepath.Join(GinkgoT().TempDir(), "missing.yaml"))
		Expect(err).To(HaveOccurred())
	})

	It("should reject unknown fields", func() {
		_, err := Parse([]byte("derivations:\n  - name: a\n    recipe: {kind: countBy, by: cat, color: red}\n"))
		Expect(err).To(HaveOccurred())
	})

	It("should reject invalid plans", func() {
		for _, p := range []Plan{
			{Derivations: []Derivation{{Name: "", Recipe: derived.Recipe{Kind: derived.KindCountBy, By: "c"}}}},
			{Derivations: []Derivation{{Name: SourceName, Recipe: derived.Recipe{Kind: derived.KindCountBy, By: "c"}}}},
			{Derivations: []Derivation{
				{Name: "a", Recipe: derived.Recipe{Kind: derived.KindCountBy, By: "c"}},
				{Name: "a", Recipe: derived.Recipe{Kind: derived.KindCountBy, By: "c"}},
			}},
			{Derivations: []Derivation{{Name: "a", From: "b", Recipe: derived.Recipe{Kind: derived.KindCountBy, By: "c"}}}},
		} {
			_, err := p.Validate(nil)
			Expect(errors.Is(err, ErrInvalidPlan)).To(BeTrue())
		}

		p := Plan{Derivations: []Derivation{
			{Name: "a", From: "b", Recipe: derived.Recipe{Kind: derived.KindCountBy, By: "c"}},
			{Name: "b", From: "a", Recipe: derived.Recipe{Kind: derived.KindCountBy, By: "c"}},
		}}
		_, err := p.Validate(nil)
		Expect(errors.Is(err, ErrInvalidPlan)).To(BeTrue())
		Expect(errors.Is(err, dag.ErrCycle)).To(BeTrue())

		p = Plan{Derivations: []Derivation{{Name: "a", Recipe: derived.Recipe{Kind: derived.KindCountBy}}}}
		_, err = p.Validate(nil)
		Expect(errors.Is(err, derived.ErrInvalidArgument)).To(BeTrue())
	})

	It("should materialize a plan", func() {
		p, err := Parse([]byte(planYAML))
		Expect(err).NotTo(HaveOccurred())
		res, err := p.Apply(src, derived.Options{})
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Order).To(Equal([]string{"groups", "trend", "counts"}))

		trend, err := res.Dataset("trend")
		Expect(err).NotTo(HaveOccurred())
		c, _ := trend.Column("val")
		Expect(c.Values()).To(Equal([]any{3.0, 3.0}))
		Expect(trend.Parent()).To(Equal(res.Derived["groups"].Dataset))

		s, err := res.Dataset(SourceName)
		Expect(err).NotTo(HaveOccurred())
		Expect(s).To(Equal(src))
		_, err = res.Dataset("nope")
		Expect(errors.Is(err, ErrInvalidPlan)).To(BeTrue())

		Expect(res.Derived["counts"].State()).To(Equal(derived.Detached))
	})

	It("should keep materialized datasets in sync", func() {
		p, err := Parse([]byte(planYAML))
		Expect(err).NotTo(HaveOccurred())
		res, err := p.Apply(src, derived.Options{})
		Expect(err).NotTo(HaveOccurred())

		_, err = src.AddRow(map[string]any{"cat": "w", "val": 10})
		Expect(err).NotTo(HaveOccurred())

		trend, _ := res.Dataset("trend")
		c, _ := trend.Column("val")
		Expect(c.Values()).To(Equal([]any{3.0, 3.0, 7.0}))
		counts, _ := res.Dataset("counts")
		Expect(counts.Len()).To(Equal(3))

		g, err := res.Lineage("plan")
		Expect(err).NotTo(HaveOccurred())
		order, err := g.Order()
		Expect(err).NotTo(HaveOccurred())
		Expect(order).To(HaveLen(4))
		Expect(order[0].Name).To(Equal("sales"))

		res.Detach()
		_, err = src.AddRow(map[string]any{"cat": "v", "val": 1})
		Expect(err).NotTo(HaveOccurred())
		Expect(trend.Len()).To(Equal(3))
	})

	It("should fail on recipes that do not fit the data", func() {
		p := Plan{Derivations: []Derivation{{Name: "a", Recipe: derived.Recipe{Kind: derived.KindCountBy, By: "nope"}}}}
		_, err := p.Apply(src, derived.Options{})
		Expect(errors.Is(err, dataset.ErrUnknownColumn)).To(BeTrue())
	})

	It("should release the source when a derivation fails", func() {
		p := Plan{Derivations: []Derivation{
			{Name: "g", Recipe: derived.Recipe{Kind: derived.KindGroupBy, By: "cat", Columns: []string{"val"}}},
			{Name: "bad", From: "g", Recipe: derived.Recipe{Kind: derived.KindCountBy, By: "nope"}},
		}}
		res, err := p.Apply(src, derived.Options{})
		Expect(errors.Is(err, dataset.ErrUnknownColumn)).To(BeTrue())
		Expect(res).To(BeNil())

		// nothing computed from the source is left to fail on its mutations
		Expect(src.RemoveColumn("val")).To(Succeed())
		_, err = src.AddRow(map[string]any{"cat": "w"})
		Expect(err).NotTo(HaveOccurred())
	})
})
