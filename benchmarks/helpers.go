// Package benchmarks provides shared machine generators for benchmark tests.
package benchmarks

import (
	"fmt"

	"github.com/comalice/hfsm"
	"github.com/comalice/hfsm/builder"
	"github.com/comalice/hfsm/chart"
)

// GenFlat creates a flat machine with n leaves cycling s0 -> s1 -> ... -> s0,
// one edge per tick.
func GenFlat(n int) *hfsm.StateMachine {
	if n < 1 {
		n = 1
	}
	m := hfsm.New(fmt.Sprintf("flat_%d", n))
	leaves := make([]*builder.Leaf, n)
	for i := range leaves {
		leaves[i] = builder.New(fmt.Sprintf("s%d", i))
	}
	m.AddEntranceCondition(leaves[0], hfsm.Always)
	for i, l := range leaves {
		m.AddTransition(l, leaves[(i+1)%n], hfsm.Always)
	}
	return m
}

// GenDeep creates depth nested machines with two leaves flipping at the
// bottom. Outer machines hold a single self-edge that never fires.
func GenDeep(depth int) *hfsm.StateMachine {
	if depth < 1 {
		depth = 1
	}
	leaf1, leaf2 := builder.New("leaf1"), builder.New("leaf2")
	inner := hfsm.New(fmt.Sprintf("c%d", depth-1))
	inner.AddEntranceCondition(leaf1, hfsm.Always)
	inner.AddTransition(leaf1, leaf2, hfsm.Always)
	inner.AddTransition(leaf2, leaf1, hfsm.Always)

	for i := depth - 2; i >= 0; i-- {
		outer := hfsm.New(fmt.Sprintf("c%d", i))
		outer.AddEntranceCondition(inner, hfsm.Always)
		outer.AddTransition(inner, inner, hfsm.Never)
		inner = outer
	}
	return inner
}

// GenWide creates one main state with numTransitions outgoing edges of which
// only the last can fire, so every Update scans the whole list.
func GenWide(numTransitions int) *hfsm.StateMachine {
	if numTransitions < 1 {
		numTransitions = 1
	}
	m := hfsm.New(fmt.Sprintf("wide_%d", numTransitions))
	main := builder.New("main")
	m.AddEntranceCondition(main, hfsm.Always)
	for i := 0; i < numTransitions; i++ {
		target := builder.New(fmt.Sprintf("target%d", i))
		p := hfsm.Predicate(hfsm.Never)
		if i == numTransitions-1 {
			p = hfsm.Always
		}
		m.AddTransition(main, target, p)
		m.AddTransition(target, main, hfsm.Always)
	}
	return m
}

// GenChart builds a chart of depth nested machines, each holding width leaves
// cycling on the "go" flag.
func GenChart(depth, width int) *chart.Config {
	if depth < 1 {
		depth = 1
	}
	if width < 1 {
		width = 1
	}
	var inner *chart.MachineConfig
	for d := depth - 1; d >= 0; d-- {
		mc := &chart.MachineConfig{Name: fmt.Sprintf("m%d", d)}
		for i := 0; i < width; i++ {
			name := fmt.Sprintf("s%d", i)
			mc.States = append(mc.States, &chart.StateConfig{Name: name, Leaf: "leaf"})
			mc.Transitions = append(mc.Transitions, chart.EdgeConfig{
				From: name,
				To:   fmt.Sprintf("s%d", (i+1)%width),
				When: "go",
			})
		}
		if inner != nil {
			mc.States = append(mc.States, &chart.StateConfig{Name: "child", Machine: inner})
			mc.Transitions = append(mc.Transitions, chart.EdgeConfig{From: "s0", To: "child", When: "descend"})
		}
		mc.Entrance = []chart.EdgeConfig{{To: "s0"}}
		inner = mc
	}
	return &chart.Config{Version: "bench", Machine: inner}
}
