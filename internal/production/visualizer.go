// Package production provides integrations for running machines in a host:
// diagnostic sinks for logging, metrics and channels, and Graphviz export.
package production

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/comalice/hfsm"
)

// DefaultVisualizer renders a live machine tree as Graphviz DOT.
type DefaultVisualizer struct{}

// unwrapper is implemented by state decorators.
type unwrapper interface {
	Unwrap() hfsm.State
}

func unwrap(s hfsm.State) hfsm.State {
	for {
		u, ok := s.(unwrapper)
		if !ok {
			return s
		}
		s = u.Unwrap()
	}
}

// ExportDOT generates DOT source for root. Every composite becomes a cluster
// with an ellipse anchor node; dashed edges from the anchor are entrance
// conditions and solid edges are transitions, both labelled with their
// priority index. The active path is highlighted.
func (v *DefaultVisualizer) ExportDOT(root *hfsm.StateMachine) string {
	var buf bytes.Buffer
	buf.WriteString(`digraph HFSM {
  rankdir=LR;
  compound=true;
  node [shape=box, fontsize=10, style=rounded];
  edge [fontsize=9];
`)
	renderMachine(&buf, root, root.Name(), true, 1)
	buf.WriteString("}\n")
	return buf.String()
}

// renderMachine writes the cluster for m. id is the node id of m's anchor.
func renderMachine(buf *bytes.Buffer, m *hfsm.StateMachine, id string, active bool, depth int) {
	indent := strings.Repeat("  ", depth)
	style := ""
	if active {
		style = " style=filled fillcolor=orange"
	}

	fmt.Fprintf(buf, "%ssubgraph %s {\n", indent, quote("cluster_"+id))
	fmt.Fprintf(buf, "%s  label=%s;\n", indent, quote(m.Name()))
	fmt.Fprintf(buf, "%s  %s [label=%s shape=ellipse%s];\n", indent, quote(id), quote(m.Name()), style)

	current, _ := m.CurrentState()
	ids := make(map[hfsm.State]string)
	taken := make(map[string]bool)
	for _, s := range members(m) {
		childID := id + "." + hfsm.NameOf(s)
		for n := 2; taken[childID]; n++ {
			childID = fmt.Sprintf("%s.%s#%d", id, hfsm.NameOf(s), n)
		}
		taken[childID] = true
		ids[s] = childID
		isActive := active && s == current
		if sm, ok := unwrap(s).(*hfsm.StateMachine); ok {
			renderMachine(buf, sm, childID, isActive, depth+1)
			continue
		}
		leafStyle := ""
		if isActive {
			leafStyle = " style=filled fillcolor=lightgreen"
		}
		fmt.Fprintf(buf, "%s  %s [label=%s%s];\n", indent, quote(childID), quote(hfsm.NameOf(s)), leafStyle)
	}
	fmt.Fprintf(buf, "%s}\n", indent)

	for i, s := range m.Entrances() {
		fmt.Fprintf(buf, "%s%s -> %s [style=dashed label=\"%d\"];\n", indent, quote(id), quote(ids[s]), i)
	}
	for _, e := range m.Edges() {
		fmt.Fprintf(buf, "%s%s -> %s [label=\"%d\"];\n", indent, quote(ids[e.From]), quote(ids[e.To]), e.Priority)
	}
}

// members lists every state m references, in first-seen order.
func members(m *hfsm.StateMachine) []hfsm.State {
	seen := make(map[hfsm.State]bool)
	var out []hfsm.State
	add := func(s hfsm.State) {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	for _, s := range m.Entrances() {
		add(s)
	}
	for _, e := range m.Edges() {
		add(e.From)
		add(e.To)
	}
	return out
}

func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
}
