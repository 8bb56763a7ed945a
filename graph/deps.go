package graph

import "github.com/py-baudin/machines/machine"

// aggregateKind mirrors graph.py's get_aggregate return value, which is
// either False, "index", "branch", or True (meaning "some machine
// aggregates by id, or the pipeline mixes index- and branch-aggregation").
type aggregateKind int

const (
	aggregateNone aggregateKind = iota
	aggregateIndex
	aggregateBranch
	aggregateAny
)

// getAggregate folds a machine list's individual Aggregate settings into
// one pipeline-wide mode: mixing index- and branch-aggregating machines
// (or any ids-aggregating machine) escalates to aggregateAny.
func getAggregate(machines []*machine.Machine) aggregateKind {
	kind := aggregateNone
	for _, m := range machines {
		switch m.Aggregate {
		case machine.AggregateIndex:
			if kind == aggregateBranch {
				return aggregateAny
			}
			kind = aggregateIndex
		case machine.AggregateBranch:
			if kind == aggregateIndex {
				return aggregateAny
			}
			kind = aggregateBranch
		case machine.AggregateIDs:
			return aggregateAny
		}
	}
	return kind
}

func overlaps(a, b []string) bool {
	set := make(map[string]bool, len(a))
	for _, s := range a {
		set[s] = true
	}
	for _, s := range b {
		if set[s] {
			return true
		}
	}
	return false
}

// getRequirements returns m's ancestors: every machine whose output feeds
// one of m's inputs, walked recursively to grandparents.
func getRequirements(machines []*machine.Machine, m *machine.Machine, reqs []*machine.Machine) []*machine.Machine {
	contains := func(list []*machine.Machine, x *machine.Machine) bool {
		for _, v := range list {
			if v == x {
				return true
			}
		}
		return false
	}
	for _, other := range machines {
		if other.OutputName() == "" || contains(reqs, other) || other == m {
			continue
		}
		if overlaps(other.FlatOutputs(), m.FlatInputs()) {
			reqs = append(reqs, other)
			grand := getRequirements(machines, other, reqs)
			for _, g := range grand {
				if !contains(reqs, g) {
					reqs = append(reqs, g)
				}
			}
		}
	}
	return reqs
}

// getDependencies returns m's descendants: every machine that consumes m's
// output, walked recursively to grandchildren.
func getDependencies(machines []*machine.Machine, m *machine.Machine, deps []*machine.Machine) []*machine.Machine {
	if m.OutputName() == "" {
		return deps
	}
	contains := func(list []*machine.Machine, x *machine.Machine) bool {
		for _, v := range list {
			if v == x {
				return true
			}
		}
		return false
	}
	for _, other := range machines {
		if contains(deps, other) || other == m {
			continue
		}
		if overlaps(m.FlatOutputs(), other.FlatInputs()) {
			deps = append(deps, other)
			deps = getDependencies(machines, other, deps)
		}
	}
	return deps
}

// checkAcyclic rejects a machine list whose producer/consumer edges form a
// cycle, before Generate tries to walk it (spec.md 9's Design Notes call
// for an explicit acyclicity check absent from the original).
func checkAcyclic(machines []*machine.Machine) error {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[*machine.Machine]int, len(machines))

	var visit func(m *machine.Machine) error
	visit = func(m *machine.Machine) error {
		color[m] = gray
		for _, other := range machines {
			if other == m {
				continue
			}
			if !overlaps(m.FlatOutputs(), other.FlatInputs()) {
				continue
			}
			switch color[other] {
			case gray:
				return ErrCycle
			case white:
				if err := visit(other); err != nil {
					return err
				}
			}
		}
		color[m] = black
		return nil
	}

	for _, m := range machines {
		if color[m] == white {
			if err := visit(m); err != nil {
				return err
			}
		}
	}
	return nil
}
