// Package lineage builds the derivation graph of a set of datasets and renders it as a diagram.
package lineage

import (
	"github.com/l7mp/dataset/internal/dag"
	"github.com/l7mp/dataset/pkg/dataset"
	"github.com/l7mp/dataset/pkg/derived"
)

// Member is a dataset that can be placed in a lineage graph. Both *dataset.Dataset and
// *derived.Derived implement it.
type Member interface {
	Name() string
	UID() string
	Len() int
	ColumnNames() []string
	Parent() *dataset.Dataset
}

// Node is a dataset in the graph.
type Node struct {
	UID     string
	Name    string
	Rows    int
	Columns []string
	// Recipe is set for derived datasets.
	Recipe string
	// State is the lifecycle state of derived datasets.
	State string
}

// IsSource reports whether the node is not derived from another dataset.
func (n Node) IsSource() bool { return n.Recipe == "" }

// Graph is the derivation graph: an edge points from a parent to a dataset derived from it.
type Graph struct {
	Name  string
	nodes map[string]Node
	dag   *dag.Graph
}

// Build constructs the graph of the given datasets. Ancestors that are not listed are added too,
// from the information their children carry.
func Build(name string, members ...Member) (*Graph, error) {
	g := &Graph{Name: name, nodes: map[string]Node{}, dag: dag.New()}

	for _, m := range members {
		g.addNode(nodeOf(m))
	}

	for _, m := range members {
		var child Member = m
		for p := child.Parent(); p != nil; child, p = p, p.Parent() {
			if _, ok := g.nodes[p.UID()]; !ok {
				g.addNode(nodeOf(p))
			}
			if err := g.dag.AddEdge(p.UID(), child.UID()); err != nil {
				return nil, err
			}
		}
	}

	return g, nil
}

func nodeOf(m Member) Node {
	n := Node{UID: m.UID(), Name: m.Name(), Rows: m.Len(), Columns: m.ColumnNames()}
	if d, ok := m.(*derived.Derived); ok {
		n.Recipe = d.Recipe().String()
		n.State = d.State().String()
	}
	return n
}

func (g *Graph) addNode(n Node) {
	// a derived dataset listed after its embedded dataset was reached as a parent
	if old, ok := g.nodes[n.UID]; ok && n.Recipe == "" {
		n = old
	}
	g.nodes[n.UID] = n
	g.dag.AddNode(n.UID)
}

// Nodes returns the nodes in insertion order.
func (g *Graph) Nodes() []Node {
	ret := make([]Node, 0, len(g.dag.Nodes))
	for _, uid := range g.dag.Nodes {
		ret = append(ret, g.nodes[uid])
	}
	return ret
}

// Node returns a node by UID.
func (g *Graph) Node(uid string) (Node, bool) {
	n, ok := g.nodes[uid]
	return n, ok
}

// Children returns the datasets derived directly from the given one.
func (g *Graph) Children(uid string) []Node {
	ret := []Node{}
	for _, c := range g.dag.Edges(uid) {
		ret = append(ret, g.nodes[c])
	}
	return ret
}

// Sources returns the datasets that are not derived from any dataset in the graph.
func (g *Graph) Sources() []Node {
	ret := []Node{}
	for _, uid := range g.dag.Roots() {
		ret = append(ret, g.nodes[uid])
	}
	return ret
}

// Order returns the nodes so that every dataset comes after the dataset it is derived from. This
// is the order in which a derivation chain recomputes.
func (g *Graph) Order() ([]Node, error) {
	uids, err := g.dag.TopoSort()
	if err != nil {
		return nil, err
	}
	ret := make([]Node, len(uids))
	for i, uid := range uids {
		ret[i] = g.nodes[uid]
	}
	return ret, nil
}
