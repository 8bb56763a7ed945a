// Package machine implements the declarative function wrapper ported from
// original_source/machines/machine.py: a Machine records a function's
// input/output target types and parameters. Expanding an identifier list
// into concrete tasks is done by package task (task.Apply).
/*
 * Copyright (c) 2018-2023, NVIDIA CORPORATION. All rights reserved.
 */
package machine

import (
	"fmt"

	"github.com/py-baudin/machines/params"
	"github.com/py-baudin/machines/target"
	"github.com/py-baudin/machines/taskctx"
)

// TaskFunc is the function a Machine wraps. The engine builds a
// *taskctx.Context (see package taskctx) and passes it as the sole argument,
// in place of the original's reflection-based positional-argument injection.
type TaskFunc func(ctx *taskctx.Context) (any, error)

// Aggregate controls whether and how a Machine groups input identifiers into
// a single task.
type Aggregate int

const (
	// AggregateNone maps each input identifier to its own task.
	AggregateNone Aggregate = iota
	// AggregateIDs groups every supplied identifier into one task.
	AggregateIDs
	// AggregateIndex groups by branch, aggregating across indices.
	AggregateIndex
	// AggregateBranch groups by index, aggregating across branches.
	AggregateBranch
)

func (a Aggregate) String() string {
	switch a {
	case AggregateIDs:
		return "ids"
	case AggregateIndex:
		return "index"
	case AggregateBranch:
		return "branch"
	default:
		return "none"
	}
}

// Requires controls how many matching input targets a task needs to be
// considered ready.
type Requires int

const (
	// RequiresAll demands every declared input be resolvable.
	RequiresAll Requires = iota
	// RequiresAny demands at least one declared input be resolvable, and
	// disables the branch-crop fallback (spec.md 4.4).
	RequiresAny
)

func (r Requires) String() string {
	if r == RequiresAny {
		return "any"
	}
	return "all"
}

// Machine is the process-creation object: a function plus the declarative
// description of what it reads, writes, and accepts as parameters.
type Machine struct {
	Name         string
	Description  string
	Func         TaskFunc
	MultiOutputs bool

	Inputs  map[string][]target.Type
	Outputs map[string][]target.Type

	Parameters map[string]*params.Parameter
	Groups     map[string][]string

	Aggregate Aggregate
	Requires  Requires

	inputOrder  []string
	outputOrder []string
}

// InputNames returns input slot names in declaration order.
func (m *Machine) InputNames() []string { return append([]string(nil), m.inputOrder...) }

// OutputNames returns output slot names in declaration order.
func (m *Machine) OutputNames() []string { return append([]string(nil), m.outputOrder...) }

// OutputName returns the single output slot name, or "" if the machine has
// none (MetaMachine instances may have several; OutputName then returns "").
func (m *Machine) OutputName() string {
	if len(m.outputOrder) != 1 {
		return ""
	}
	return m.outputOrder[0]
}

// MainInputs returns the primary (first) alternative of every input slot,
// in declaration order.
func (m *Machine) MainInputs() []target.Type {
	out := make([]target.Type, 0, len(m.inputOrder))
	for _, name := range m.inputOrder {
		out = append(out, m.Inputs[name][0])
	}
	return out
}

// MainOutputs returns the primary (first) alternative of every output slot,
// in declaration order.
func (m *Machine) MainOutputs() []target.Type {
	out := make([]target.Type, 0, len(m.outputOrder))
	for _, name := range m.outputOrder {
		out = append(out, m.Outputs[name][0])
	}
	return out
}

// FlatInputs returns the storage destination of every alternative across
// every declared input slot, used by the dependency graph to detect
// producer/consumer overlap between machines (graph.py's flat_inputs).
func (m *Machine) FlatInputs() []string {
	var out []string
	for _, name := range m.inputOrder {
		for _, alt := range m.Inputs[name] {
			if !alt.IsVirtual() {
				out = append(out, alt.Dest)
			}
		}
	}
	return out
}

// FlatOutputs is FlatInputs' output-side counterpart.
func (m *Machine) FlatOutputs() []string {
	var out []string
	for _, name := range m.outputOrder {
		for _, alt := range m.Outputs[name] {
			if !alt.IsVirtual() {
				out = append(out, alt.Dest)
			}
		}
	}
	return out
}

// VariableParameters returns the subset of Parameters whose type is
// params.VariableIO - i.e. the parameters that resolve a Virtual i/o slot.
func (m *Machine) VariableParameters() map[string]*params.Parameter {
	out := map[string]*params.Parameter{}
	for name, p := range m.Parameters {
		if _, ok := p.Type.(params.VariableIO); ok {
			out[name] = p
		}
	}
	return out
}

func (m *Machine) String() string {
	return fmt.Sprintf("Machine(%s)", m.Name)
}

// Copy returns a new Machine sharing Func but with independently mutable
// maps, optionally overridden field-by-field via the given options.
func (m *Machine) Copy(opts ...Option) (*Machine, error) {
	c := &Contract{m: &Machine{
		Name:         m.Name,
		Description:  m.Description,
		Func:         m.Func,
		MultiOutputs: m.MultiOutputs,
		Aggregate:    m.Aggregate,
		Requires:     m.Requires,
		Inputs:       map[string][]target.Type{},
		Outputs:      map[string][]target.Type{},
		Parameters:   map[string]*params.Parameter{},
		Groups:       map[string][]string{},
	}}
	for _, name := range m.inputOrder {
		c.m.inputOrder = append(c.m.inputOrder, name)
		c.m.Inputs[name] = append([]target.Type(nil), m.Inputs[name]...)
	}
	for _, name := range m.outputOrder {
		c.m.outputOrder = append(c.m.outputOrder, name)
		c.m.Outputs[name] = append([]target.Type(nil), m.Outputs[name]...)
	}
	for name, p := range m.Parameters {
		c.m.Parameters[name] = p
	}
	for name, members := range m.Groups {
		c.m.Groups[name] = append([]string(nil), members...)
	}
	for _, opt := range opts {
		opt(c)
	}
	return c.Build()
}

// Option mutates a Contract during Copy; see ReplaceInput/ReplaceOutput.
type Option func(*Contract)

// ReplaceInput overrides a named input slot's alternatives wholesale, used
// by Solve to bind a resolved VariableIO type in place of a Virtual slot.
func ReplaceInput(name string, alts ...target.Type) Option {
	return func(c *Contract) {
		if _, ok := c.m.Inputs[name]; !ok {
			c.m.inputOrder = append(c.m.inputOrder, name)
		}
		c.m.Inputs[name] = alts
	}
}

// RemoveInput drops a named input slot entirely (a VariableIO parameter
// resolved to nil).
func RemoveInput(name string) Option {
	return func(c *Contract) {
		delete(c.m.Inputs, name)
		c.m.inputOrder = removeName(c.m.inputOrder, name)
	}
}

// ReplaceOutput overrides a named output slot's alternatives wholesale.
func ReplaceOutput(name string, alts ...target.Type) Option {
	return func(c *Contract) {
		if _, ok := c.m.Outputs[name]; !ok {
			c.m.outputOrder = append(c.m.outputOrder, name)
		}
		c.m.Outputs[name] = alts
	}
}

// RemoveOutput drops a named output slot entirely.
func RemoveOutput(name string) Option {
	return func(c *Contract) {
		delete(c.m.Outputs, name)
		c.m.outputOrder = removeName(c.m.outputOrder, name)
	}
}

func removeName(names []string, name string) []string {
	out := names[:0]
	for _, n := range names {
		if n != name {
			out = append(out, n)
		}
	}
	return out
}
