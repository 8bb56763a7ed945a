package graph

import (
	"github.com/py-baudin/machines/target"
	"github.com/py-baudin/machines/task"
)

// Trace returns every task that, directly or transitively, produced an
// input consumed by tk, followed by tk itself - the order that would
// reproduce tk's output from scratch. Ported from graph.py's get_trace.
func (g *Graph) Trace(tk *task.Task) []*task.Task {
	var out []*task.Task
	for _, input := range flattenInputTargets(tk.InputTargets()) {
		prev, ok := g.targets[input.Sig()]
		if !ok {
			continue
		}
		out = append(out, g.Trace(prev)...)
	}
	return append(out, tk)
}

// Parents returns every target consumed, directly or transitively, in the
// course of producing tk's output - graph.py's get_parents.
func (g *Graph) Parents(tk *task.Task) []*target.Target {
	seen := map[target.Signature]*target.Target{}
	for _, t := range g.Trace(tk) {
		for _, input := range flattenInputTargets(t.InputTargets()) {
			seen[input.Sig()] = input
		}
	}
	out := make([]*target.Target, 0, len(seen))
	for _, t := range seen {
		out = append(out, t)
	}
	return out
}

// History returns the serializable trace leading to tk - graph.py's
// get_history, minus MetaTask bookkeeping (session/replay territory, not
// yet built here).
func (g *Graph) History(tk *task.Task) []*task.Task {
	return g.Trace(tk)
}

func flattenInputTargets(inputs map[string]any) []*target.Target {
	var out []*target.Target
	for _, v := range inputs {
		switch vv := v.(type) {
		case *target.Target:
			if vv != nil {
				out = append(out, vv)
			}
		case []*target.Target:
			out = append(out, vv...)
		}
	}
	return out
}
