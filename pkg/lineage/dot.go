package lineage

import (
	"fmt"

	"github.com/emicklei/dot"
)

// BuildDotGraph creates a dot.Graph from the lineage graph. The result can be rendered in
// different formats (DOT, Mermaid).
func BuildDotGraph(g *Graph) *dot.Graph {
	graph := dot.NewGraph(dot.Directed)
	graph.Attr("rankdir", "LR") // Left to right layout.
	graph.Attr("newrank", "true")
	if g.Name != "" {
		graph.Attr("label", g.Name)
		graph.Attr("labelloc", "t")
		graph.Attr("fontsize", "16")
	}

	nodes := make(map[string]dot.Node)
	for _, n := range g.Nodes() {
		label := fmt.Sprintf("%s, %d rows", n.Name, n.Rows)
		node := graph.Node(n.UID).
			Attr("label", label).
			Attr("fontname", "helvetica")

		if n.IsSource() {
			node.Attr("shape", "ellipse").
				Attr("style", "filled").
				Attr("fillcolor", "lightgreen")
		} else {
			node.Attr("shape", "box").
				Attr("style", "filled,rounded").
				Attr("fillcolor", "lightblue").
				Attr("color", "darkblue").
				Attr("penwidth", "2")
			if n.State == "Detached" {
				node.Attr("style", "filled,rounded,dashed").
					Attr("fillcolor", "lightgrey")
			}
		}
		nodes[n.UID] = node
	}

	for _, n := range g.Nodes() {
		for _, c := range g.Children(n.UID) {
			edge := graph.Edge(nodes[n.UID], nodes[c.UID]).
				Attr("fontname", "helvetica").
				Attr("fontsize", "10")
			if c.Recipe != "" {
				edge.Attr("label", c.Recipe)
			}
			if c.State == "Detached" {
				edge.Attr("style", "dashed")
			}
		}
	}

	return graph
}

// DOT renders the graph in Graphviz DOT format.
func (g *Graph) DOT() string {
	return BuildDotGraph(g).String()
}
