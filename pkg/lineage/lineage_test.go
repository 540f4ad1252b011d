package lineage

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/l7mp/dataset/pkg/dataset"
	"github.com/l7mp/dataset/pkg/derived"
	"github.com/l7mp/dataset/pkg/types"
)

func TestLineage(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Lineage")
}

var _ = Describe("Lineage", func() {
	var src *dataset.Dataset
	var groups, counts, avg *derived.Derived

	BeforeEach(func() {
		var err error
		src, err = dataset.New(dataset.Options{Name: "sales", Syncable: true})
		Expect(err).NotTo(HaveOccurred())
		Expect(src.Load(dataset.LoadSpec{Columns: []dataset.ColumnSpec{
			{Name: "cat", Type: types.String, Data: []any{"x", "y", "x"}},
			{Name: "val", Type: types.Number, Data: []any{1, 2, 3}},
		}})).To(Succeed())

		groups, err = derived.GroupBy(src, "cat", []string{"val"}, derived.Options{Name: "groups"})
		Expect(err).NotTo(HaveOccurred())
		counts, err = derived.CountBy(groups.Dataset, "val", derived.Options{Name: "counts"})
		Expect(err).NotTo(HaveOccurred())
		avg, err = derived.MovingAverage(src, []string{"val"}, 2, derived.Options{Name: "avg"})
		Expect(err).NotTo(HaveOccurred())
	})

	It("should order datasets by derivation", func() {
		g, err := Build("test", counts, avg, groups, src)
		Expect(err).NotTo(HaveOccurred())
		Expect(g.Nodes()).To(HaveLen(4))

		order, err := g.Order()
		Expect(err).NotTo(HaveOccurred())
		names := []string{}
		for _, n := range order {
			names = append(names, n.Name)
		}
		Expect(names).To(Equal([]string{"sales", "avg", "groups", "counts"}))

		Expect(g.Sources()).To(HaveLen(1))
		Expect(g.Sources()[0].Name).To(Equal("sales"))
		Expect(g.Sources()[0].IsSource()).To(BeTrue())
		Expect(g.Children(src.UID())).To(HaveLen(2))
	})

	It("should add missing ancestors", func() {
		g, err := Build("test", counts)
		Expect(err).NotTo(HaveOccurred())
		Expect(g.Nodes()).To(HaveLen(3))

		n, ok := g.Node(groups.UID())
		Expect(ok).To(BeTrue())
		Expect(n.Name).To(Equal("groups"))

		n, ok = g.Node(counts.UID())
		Expect(ok).To(BeTrue())
		Expect(n.Recipe).To(Equal("countBy(val)"))
		Expect(n.State).To(Equal("Computed"))
	})

	It("should render DOT", func() {
		avg.Detach()
		g, err := Build("test", src, groups, counts, avg)
		Expect(err).NotTo(HaveOccurred())
		out := g.DOT()
		Expect(out).To(HavePrefix("digraph"))
		Expect(out).To(ContainSubstring("sales, 3 rows"))
		Expect(out).To(ContainSubstring("groupBy(cat; val; sum)"))
		Expect(out).To(ContainSubstring("dashed"))
	})

	It("should render Mermaid", func() {
		g, err := Build("test", src, groups)
		Expect(err).NotTo(HaveOccurred())
		out := g.Mermaid()
		Expect(out).To(HavePrefix("```mermaid\n"))
		Expect(out).To(ContainSubstring("flowchart LR"))
		Expect(out).To(ContainSubstring("groups"))
	})
})
