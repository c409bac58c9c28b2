package render

import "strings"

// Filter is a single ffmpeg filter with ordered parameters. Parameters are
// emitted as-is, so positional and key=value forms may be mixed.
type Filter struct {
	Name   string
	Params []string
}

func (f Filter) String() string {
	if len(f.Params) == 0 {
		return f.Name
	}
	return f.Name + "=" + strings.Join(f.Params, ":")
}

// FilterNode is one labeled chain in a filter graph: the named input pads,
// one or more filters applied in order, and the output pad.
type FilterNode struct {
	Inputs  []string
	Filters []Filter
	Output  string
}

func (n FilterNode) String() string {
	var b strings.Builder
	for _, in := range n.Inputs {
		b.WriteString("[" + in + "]")
	}
	for i, f := range n.Filters {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(f.String())
	}
	if n.Output != "" {
		b.WriteString("[" + n.Output + "]")
	}
	return b.String()
}

// FilterGraph is an ordered list of nodes serialized for -filter_complex.
type FilterGraph struct {
	Nodes []FilterNode
}

// Add appends a node and returns the graph for chaining.
func (g *FilterGraph) Add(inputs []string, output string, filters ...Filter) *FilterGraph {
	g.Nodes = append(g.Nodes, FilterNode{Inputs: inputs, Filters: filters, Output: output})
	return g
}

// String joins the nodes with semicolons.
func (g FilterGraph) String() string {
	parts := make([]string, 0, len(g.Nodes))
	for _, node := range g.Nodes {
		parts = append(parts, node.String())
	}
	return strings.Join(parts, ";")
}

// FinalLabel is the output pad mapped into the encoded file.
const FinalLabel = "final"
