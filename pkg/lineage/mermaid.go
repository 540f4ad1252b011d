package lineage

import (
	"fmt"

	"github.com/emicklei/dot"
)

// Mermaid renders the graph as a Mermaid flowchart wrapped in a markdown code block.
func (g *Graph) Mermaid() string {
	mermaid := dot.MermaidFlowchart(BuildDotGraph(g), dot.MermaidLeftToRight)
	return fmt.Sprintf("```mermaid\n%s\n```\n", mermaid)
}
