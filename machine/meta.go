package machine

import (
	"fmt"

	"github.com/py-baudin/machines/params"
	"github.com/py-baudin/machines/target"
)

// MachineFactory is implemented by both *Machine (trivially - it only
// resolves its own VariableIO slots) and *MetaMachine (recursively - it
// runs its selector function and solves whatever it returns). SolveAll
// walks an arbitrary mix of the two to a fixed point of plain *Machine
// values, replacing the original's dynamic machine.solve()/MetaMachine.solve()
// dispatch (spec.md 9: "MachineFactory interface with fixed-point expansion").
type MachineFactory interface {
	Solve(parameters map[string]any) ([]*Machine, error)
}

// Solve resolves m's own VariableIO-typed parameters against parameters,
// replacing any Virtual input/output slot with the chosen concrete
// target.Type (or removing the slot, if the parameter resolves to nil).
// Machines with no VariableIO parameters solve to themselves unchanged.
func (m *Machine) Solve(parameters map[string]any) ([]*Machine, error) {
	variable := m.VariableParameters()
	if len(variable) == 0 {
		return []*Machine{m}, nil
	}

	values, err := params.SolveParameters(variable, parameters)
	if err != nil {
		return nil, fmt.Errorf("machine %s: %w", m.Name, err)
	}

	var opts []Option
	for name := range variable {
		v, ok := values[name]
		if !ok || v == nil {
			if _, isInput := m.Inputs[name]; isInput {
				opts = append(opts, RemoveInput(name))
			}
			if _, isOutput := m.Outputs[name]; isOutput {
				opts = append(opts, RemoveOutput(name))
			}
			continue
		}
		t, ok := v.(target.Type)
		if !ok {
			return nil, fmt.Errorf("machine %s: variable i/o %q did not resolve to a target.Type", m.Name, name)
		}
		if _, isInput := m.Inputs[name]; isInput {
			opts = append(opts, ReplaceInput(name, t))
		}
		if _, isOutput := m.Outputs[name]; isOutput {
			opts = append(opts, ReplaceOutput(name, t))
		}
	}

	solved, err := m.Copy(opts...)
	if err != nil {
		return nil, err
	}
	return []*Machine{solved}, nil
}

// MetaSelector chooses which concrete machines/factories run for a given
// parameter assignment, ported from MetaMachine.func (a plain function in
// the original; here an explicit, statically typed callback).
type MetaSelector func(values map[string]any) ([]MachineFactory, error)

// MetaMachine is the declarative "choose among machines" wrapper, ported
// from machine.py's MetaMachine. Unlike a Machine, a MetaMachine has no
// function of its own to run: Solve recurses into whatever its Selector
// returns.
type MetaMachine struct {
	Name           string
	Description    string
	MetaParameters map[string]*params.Parameter
	Selector       MetaSelector

	// ExternalInputs/ExternalOutputs name the slots a MetaMachine exposes to
	// the outside world; any input/output on a solved child machine not in
	// this set is marked Temp=true (ported from update_machines_ios: "set
	// intermediary machine i/os to temporary").
	ExternalInputs  []string
	ExternalOutputs []string
}

var _ MachineFactory = (*MetaMachine)(nil)

// Solve runs mm.Selector against the resolved meta-parameters and
// recursively solves whatever factories it returns, via SolveAll - this is
// the fixed-point expansion spec.md 9 calls for in place of the original's
// ad hoc recursive solve().
func (mm *MetaMachine) Solve(parameters map[string]any) ([]*Machine, error) {
	values, err := params.SolveParameters(mm.MetaParameters, parameters)
	if err != nil {
		return nil, fmt.Errorf("metamachine %s: %w", mm.Name, err)
	}

	factories, err := mm.Selector(values)
	if err != nil {
		return nil, fmt.Errorf("metamachine %s: %w", mm.Name, err)
	}

	solved, err := SolveAll(factories, parameters)
	if err != nil {
		return nil, err
	}
	return markIntermediary(solved, mm.ExternalInputs, mm.ExternalOutputs), nil
}

// SolveAll expands a list of factories (each a plain Machine or a nested
// MetaMachine) to a flat list of concrete, fully solved Machines.
func SolveAll(factories []MachineFactory, parameters map[string]any) ([]*Machine, error) {
	var out []*Machine
	for _, f := range factories {
		machines, err := f.Solve(parameters)
		if err != nil {
			return nil, err
		}
		out = append(out, machines...)
	}
	return out, nil
}

func markIntermediary(machines []*Machine, externalInputs, externalOutputs []string) []*Machine {
	extIn := toSet(externalInputs)
	extOut := toSet(externalOutputs)

	out := make([]*Machine, len(machines))
	for i, m := range machines {
		var opts []Option
		for name, alts := range m.Inputs {
			if extIn[name] {
				continue
			}
			opts = append(opts, tempifyInput(name, alts))
		}
		for name, alts := range m.Outputs {
			if extOut[name] {
				continue
			}
			opts = append(opts, tempifyOutput(name, alts))
		}
		copied, err := m.Copy(opts...)
		if err != nil {
			// Copy only fails on signature-overlap errors, which Copy
			// preserves verbatim from the source machine; a machine that
			// was valid before tempifying its i/o stays valid after.
			out[i] = m
			continue
		}
		out[i] = copied
	}
	return out
}

func tempifyInput(name string, alts []target.Type) Option {
	updated := make([]target.Type, len(alts))
	for i, t := range alts {
		updated[i] = t.Update("", "", nil, boolPtr(true))
	}
	return ReplaceInput(name, updated...)
}

func tempifyOutput(name string, alts []target.Type) Option {
	updated := make([]target.Type, len(alts))
	for i, t := range alts {
		updated[i] = t.Update("", "", nil, boolPtr(true))
	}
	return ReplaceOutput(name, updated...)
}

func boolPtr(b bool) *bool { return &b }

func toSet(names []string) map[string]bool {
	out := make(map[string]bool, len(names))
	for _, n := range names {
		out[n] = true
	}
	return out
}
