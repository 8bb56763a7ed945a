package graph

import (
	"context"

	"github.com/py-baudin/machines/cmn"
	"github.com/py-baudin/machines/machine"
	"github.com/py-baudin/machines/storage"
	"github.com/py-baudin/machines/target"
	"github.com/py-baudin/machines/task"
)

// RunOptions configures one Graph.Run pass.
type RunOptions struct {
	// Dry reports what would run without invoking any task function.
	Dry bool
}

// LockChecker is an optional capability an Engine may implement; when
// present, Run refuses to overwrite locked output targets rather than
// silently clobbering them.
type LockChecker interface {
	Locked(t *target.Target) bool
}

// Run drives the graph's tasks to completion, ported from
// graph.py's DependencyGraph.run. In the original, task.run() hands off to
// the ambient factory's queue, and it's that factory's worker loop (ported
// here as factory.runWorker) which actually retries a PENDING task until it
// either resolves or the whole queue stops making progress; DependencyGraph.run
// itself only decides which tasks to submit and pulls in not-yet-queued
// ancestors reactively. Run plays both roles at once, since it drives tasks
// synchronously rather than through a queue: it decides whether every task
// must run (overwrite mode, an aggregating graph, or no identifiable output
// targets) or only the tasks feeding the graph's own output machines, then
// repeatedly sweeps the selected tasks - pulling in an unready task's
// not-yet-run ancestors and retrying the task itself on the next sweep -
// until a full sweep resolves nothing further, mirroring factory.py's
// WorkThread.run outer "while updated" loop.
func (g *Graph) Run(ctx context.Context, engine task.Engine, opts RunOptions) ([]*task.Task, error) {
	outputTargets := g.outputTargets()

	overwrite := false
	for _, tk := range g.Tasks {
		if tk.Mode == storage.ModeOverwrite || tk.Mode == storage.ModeUpgrade {
			overwrite = true
			break
		}
	}
	if overwrite {
		if checker, ok := engine.(LockChecker); ok {
			for _, tg := range outputTargets {
				if checker.Locked(tg) {
					return nil, cmn.Reject("some output targets are locked")
				}
			}
		}
	}

	runAll := overwrite || g.Aggregate || len(outputTargets) == 0
	outputSigs := make(map[target.Signature]bool, len(outputTargets))
	for _, tg := range outputTargets {
		outputSigs[tg.Sig()] = true
	}

	var remaining []*task.Task
	if runAll {
		remaining = append(remaining, g.Tasks...)
	} else {
		for _, tk := range g.Tasks {
			if tk.Output != nil && outputSigs[tk.Output.Sig()] {
				remaining = append(remaining, tk)
			}
		}
	}

	ran := map[*task.Task]bool{}
	pulled := map[*task.Task]bool{}
	var runTasks []*task.Task

	for len(remaining) > 0 {
		var pending []*task.Task
		queued := map[*task.Task]bool{}
		progressed := false

		for len(remaining) > 0 {
			tk := remaining[0]
			remaining = remaining[1:]
			if ran[tk] {
				continue
			}

			if !opts.Dry {
				tk.AddCallback(g.recordProducer)
				tk.SafeRun(ctx, engine)
			}

			if runAll || tk.Status.Terminal() {
				ran[tk] = true
				runTasks = append(runTasks, tk)
				progressed = true
				continue
			}

			// still PENDING: pull in any not-yet-run ancestor so it gets a
			// chance to produce tk's input, then retry tk on the next sweep.
			for _, other := range g.Tasks {
				if ran[other] || queued[other] {
					continue
				}
				if tk.IsChildOf(other) {
					queued[other] = true
					pending = append(pending, other)
					if !pulled[other] {
						// a first pull-in is progress: other runs next sweep
						pulled[other] = true
						progressed = true
					}
				}
			}
			if !queued[tk] {
				queued[tk] = true
				pending = append(pending, tk)
			}
		}

		if !progressed {
			// the sweep resolved nothing and pulled in no new ancestor: every pending task is genuinely
			// stuck (a real missing dependency, not just scheduling order),
			// so stop instead of spinning forever.
			runTasks = append(runTasks, pending...)
			break
		}

		remaining = pending
	}

	return runTasks, nil
}

// outputTargets returns the deduplicated output targets of the graph's
// output machines: machines whose output storage destination is not
// itself consumed by any other machine in the graph.
func (g *Graph) outputTargets() []*target.Target {
	outputs := g.outputMachines()
	seen := map[target.Signature]bool{}
	var out []*target.Target
	for _, tk := range g.Tasks {
		if tk.Output == nil || !outputs[tk.Machine] {
			continue
		}
		sig := tk.Output.Sig()
		if seen[sig] {
			continue
		}
		seen[sig] = true
		out = append(out, tk.Output)
	}
	return out
}

// outputMachines returns the subset of the graph's machines whose output
// destination is never consumed as an input by any other machine in the
// graph (graph.py's get_meta_ios/output_machines).
func (g *Graph) outputMachines() map[*machine.Machine]bool {
	allInputs := map[string]bool{}
	allOutputs := map[string]bool{}
	for _, m := range g.machines {
		for _, d := range m.FlatInputs() {
			allInputs[d] = true
		}
		for _, d := range m.FlatOutputs() {
			allOutputs[d] = true
		}
	}
	out := map[*machine.Machine]bool{}
	for _, m := range g.machines {
		for _, d := range m.FlatOutputs() {
			if !allInputs[d] {
				out[m] = true
				break
			}
		}
	}
	return out
}
