package fg

import (
	"fmt"
	"strings"
)

// DOT renders the declared graph (after Compile, if it has run) as
// Graphviz source: one node per pass and per resource entry, edges for
// reads and writes, and a dashed entry-to-entry edge for every recorded
// MoveResource alias. Culled passes and entries are rendered dashed and
// dimmed rather than omitted, so a "before vs. after cull" diff is visible
// in one graph.
func (fg *FrameGraph) DOT() string {
	var b strings.Builder
	b.WriteString("digraph framegraph {\n")
	b.WriteString("  rankdir=LR;\n")

	for i, p := range fg.passes {
		if i == 0 {
			continue
		}
		style := "style=filled,fillcolor=lightblue"
		if p.culled {
			style = "style=dashed,fillcolor=lightgray,fontcolor=gray"
		}
		fmt.Fprintf(&b, "  pass%d [label=%q,shape=box,%s];\n", i, p.name, style)
	}

	for i, e := range fg.entries {
		if i == 0 {
			continue
		}
		style := "style=filled,fillcolor=lightyellow"
		if e.culled() {
			style = "style=dashed,fillcolor=lightgray,fontcolor=gray"
		}
		label := e.name
		if e.imported {
			label += " (imported)"
		}
		fmt.Fprintf(&b, "  entry%d [label=%q,shape=ellipse,%s];\n", i, label, style)
	}

	for i, p := range fg.passes {
		if i == 0 {
			continue
		}
		for _, w := range p.writes {
			fmt.Fprintf(&b, "  pass%d -> entry%d [label=write];\n", i, fg.resNodes[w].entry)
		}
		for _, r := range p.reads {
			fmt.Fprintf(&b, "  entry%d -> pass%d [label=read];\n", fg.resNodes[r.node].entry, i)
		}
	}

	for _, al := range fg.aliases {
		fromEntry := fg.resNodes[al.fromNode].entry
		toEntry := fg.resNodes[al.toNode].entry
		fmt.Fprintf(&b, "  entry%d -> entry%d [label=alias,style=dashed];\n", fromEntry, toEntry)
	}

	b.WriteString("}\n")
	return b.String()
}
