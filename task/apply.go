package task

import (
	"fmt"
	"sort"

	"github.com/py-baudin/machines/ids"
	"github.com/py-baudin/machines/machine"
	"github.com/py-baudin/machines/storage"
)

// ApplyOptions configures how Apply turns a machine and an identifier list
// into tasks, ported from machine.py's apply/_map/_aggregate.
type ApplyOptions struct {
	// OutputIndices/OutputBranches override the output identifier(s). Nil
	// copies the corresponding input component. A non-nil slice must match
	// the number of tasks Apply would otherwise produce (one per input
	// identifier when not aggregating; one per distinct group when
	// aggregating).
	OutputIndices  []ids.Index
	OutputBranches []ids.Branch

	// ExtendBranch, when non-empty, is appended to each task's (copied)
	// input branch rather than replacing it - the original's "non-list
	// output_branches extends the existing branch" case.
	ExtendBranch ids.Branch

	// Parameters applies the same parameter set to every produced task.
	Parameters map[string]any
	// ParametersByID overrides Parameters per input identifier, keyed by
	// Identifier.String() since ids.Identifier itself is not a comparable
	// map key (it embeds the atom-slice-backed Index/Branch base type).
	// Must cover every identifier if set at all (spec.md 9's
	// dispatch_parameters).
	ParametersByID map[string]map[string]any

	Meta     map[string]any
	Mode     storage.WriteMode
	Fallback bool
	Attach   map[string]any
}

// Apply expands identifiers into tasks for m, implementing _map when
// m.Aggregate is AggregateNone and _aggregate otherwise, sorted by
// (index, branch) exactly as machine.py's apply does via indices_as_key.
func Apply(m *machine.Machine, identifiers []ids.Identifier, opts ApplyOptions) ([]*Task, error) {
	var tasks []*Task
	var err error
	if m.Aggregate == machine.AggregateNone {
		tasks, err = mapTasks(m, identifiers, opts)
	} else {
		tasks, err = aggregateTasks(m, identifiers, opts)
	}
	if err != nil {
		return nil, err
	}
	sort.Slice(tasks, func(i, j int) bool {
		return tasks[i].Identifier().Compare(tasks[j].Identifier()) < 0
	})
	return tasks, nil
}

func taskOptions(opts ApplyOptions) []Option {
	var out []Option
	if opts.Meta != nil {
		out = append(out, WithMeta(opts.Meta))
	}
	out = append(out, WithMode(opts.Mode))
	out = append(out, WithFallback(opts.Fallback))
	if opts.Attach != nil {
		out = append(out, WithAttach(opts.Attach))
	}
	return out
}

func dispatchParameters(identifiers []ids.Identifier, opts ApplyOptions) (map[string]map[string]any, error) {
	if opts.ParametersByID == nil {
		out := make(map[string]map[string]any, len(identifiers))
		for _, id := range identifiers {
			out[id.String()] = opts.Parameters
		}
		return out, nil
	}
	for _, id := range identifiers {
		if _, ok := opts.ParametersByID[id.String()]; !ok {
			return nil, fmt.Errorf("task: missing per-identifier parameters for %s", id)
		}
	}
	return opts.ParametersByID, nil
}

func mapTasks(m *machine.Machine, identifiers []ids.Identifier, opts ApplyOptions) ([]*Task, error) {
	outputIDs, err := zipOutputIDs(identifiers, opts, func(id ids.Identifier) (ids.Index, ids.Branch) {
		return id.Index, id.Branch
	})
	if err != nil {
		return nil, err
	}
	dispatched, err := dispatchParameters(identifiers, opts)
	if err != nil {
		return nil, err
	}

	tasks := make([]*Task, 0, len(identifiers))
	for i, inputID := range identifiers {
		tk, err := New(m, []ids.Identifier{inputID}, outputIDs[i], dispatched[inputID.String()], taskOptions(opts)...)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, tk)
	}
	return tasks, nil
}

// aggGroup is one output group: a predicate selecting its member
// identifiers, and the (index, branch) the group's output copies by default.
type aggGroup struct {
	index  ids.Index
	branch ids.Branch
	match  func(ids.Identifier) bool
}

func buildGroups(identifiers []ids.Identifier, agg machine.Aggregate) []aggGroup {
	switch agg {
	case machine.AggregateIDs:
		return []aggGroup{{index: ids.EmptyIndex, branch: ids.EmptyBranch, match: func(ids.Identifier) bool { return true }}}

	case machine.AggregateIndex:
		seen := map[string]bool{}
		var groups []aggGroup
		for _, id := range identifiers {
			key := id.Branch.String()
			if seen[key] {
				continue
			}
			seen[key] = true
			branch := id.Branch
			groups = append(groups, aggGroup{
				index:  ids.EmptyIndex,
				branch: branch,
				match:  func(b ids.Branch) func(ids.Identifier) bool { return func(id ids.Identifier) bool { return id.Branch.Equal(b) } }(branch),
			})
		}
		return groups

	case machine.AggregateBranch:
		seen := map[string]bool{}
		var groups []aggGroup
		for _, id := range identifiers {
			key := id.Index.String()
			if seen[key] {
				continue
			}
			seen[key] = true
			index := id.Index
			groups = append(groups, aggGroup{
				index:  index,
				branch: ids.EmptyBranch,
				match:  func(ix ids.Index) func(ids.Identifier) bool { return func(id ids.Identifier) bool { return id.Index.Equal(ix) } }(index),
			})
		}
		return groups

	default:
		return nil
	}
}

func aggregateTasks(m *machine.Machine, identifiers []ids.Identifier, opts ApplyOptions) ([]*Task, error) {
	groups := buildGroups(identifiers, m.Aggregate)

	outputIDs, err := zipOutputIDsForGroups(groups, opts)
	if err != nil {
		return nil, err
	}

	tasks := make([]*Task, 0, len(groups))
	for i, group := range groups {
		var members []ids.Identifier
		for _, id := range identifiers {
			if group.match(id) {
				members = append(members, id)
			}
		}
		tk, err := New(m, members, outputIDs[i], opts.Parameters, taskOptions(opts)...)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, tk)
	}
	return tasks, nil
}

func zipOutputIDs(identifiers []ids.Identifier, opts ApplyOptions, defaultOf func(ids.Identifier) (ids.Index, ids.Branch)) ([]ids.Identifier, error) {
	indices := opts.OutputIndices
	if indices != nil && len(indices) != len(identifiers) {
		return nil, fmt.Errorf("task: %d output indices for %d input identifiers", len(indices), len(identifiers))
	}
	branches := opts.OutputBranches
	if branches != nil && len(branches) != len(identifiers) {
		return nil, fmt.Errorf("task: %d output branches for %d input identifiers", len(branches), len(identifiers))
	}

	out := make([]ids.Identifier, len(identifiers))
	for i, id := range identifiers {
		defIndex, defBranch := defaultOf(id)
		index := defIndex
		if indices != nil {
			index = indices[i]
		}
		branch := defBranch
		if branches != nil {
			branch = branches[i]
		} else if !opts.ExtendBranch.IsEmpty() {
			branch = branch.Add(opts.ExtendBranch)
		}
		out[i] = ids.Identifier{Index: index, Branch: branch}
	}
	return out, nil
}

func zipOutputIDsForGroups(groups []aggGroup, opts ApplyOptions) ([]ids.Identifier, error) {
	indices := opts.OutputIndices
	if indices != nil && len(indices) != len(groups) {
		return nil, fmt.Errorf("task: %d output indices for %d groups", len(indices), len(groups))
	}
	branches := opts.OutputBranches
	if branches != nil && len(branches) != len(groups) {
		return nil, fmt.Errorf("task: %d output branches for %d groups", len(branches), len(groups))
	}

	out := make([]ids.Identifier, len(groups))
	for i, g := range groups {
		index := g.index
		if indices != nil {
			index = indices[i]
		}
		branch := g.branch
		if branches != nil {
			branch = branches[i]
		} else if !opts.ExtendBranch.IsEmpty() {
			branch = branch.Add(opts.ExtendBranch)
		}
		out[i] = ids.Identifier{Index: index, Branch: branch}
	}
	return out, nil
}
