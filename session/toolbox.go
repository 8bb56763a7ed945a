// Package session binds a registry of named programs (pkg machine
// factories) to concrete storages and a scheduler, ported from
// original_source/machines/toolbox.py and session.py.
/*
 * Copyright (c) 2018-2023, NVIDIA CORPORATION. All rights reserved.
 */
package session

import (
	"fmt"

	"github.com/py-baudin/machines/handler"
	"github.com/py-baudin/machines/machine"
	"github.com/py-baudin/machines/signature"
	"github.com/py-baudin/machines/storage"
)

// Toolbox is an ordered, named registry of machine factories, ported from
// toolbox.py's Toolbox.
type Toolbox struct {
	Name        string
	Description string

	order    []string
	programs map[string]machine.MachineFactory
	help     map[string]string
	meta     map[string]map[string]any
	groups   map[string][]string

	Handlers       map[string]handler.FileHandler
	DefaultHandler handler.FileHandler
	Comparators    map[string]storage.Comparator
	Signature      *signature.Signature
}

// NewToolbox builds an empty, named Toolbox.
func NewToolbox(name, description string) *Toolbox {
	return &Toolbox{
		Name:        name,
		Description: description,
		programs:    map[string]machine.MachineFactory{},
		help:        map[string]string{},
		meta:        map[string]map[string]any{},
		groups:      map[string][]string{},
		Handlers:    map[string]handler.FileHandler{},
		Comparators: map[string]storage.Comparator{},
	}
}

// Programs returns every registered program name, in the order added.
func (tb *Toolbox) Programs() []string {
	return append([]string(nil), tb.order...)
}

// Program looks up a registered program by name.
func (tb *Toolbox) Program(name string) (machine.MachineFactory, error) {
	p, ok := tb.programs[name]
	if !ok {
		return nil, fmt.Errorf("session: unknown program: %s", name)
	}
	return p, nil
}

// AddProgram registers a new named program, rejecting a duplicate name -
// toolbox.py's add_program.
func (tb *Toolbox) AddProgram(name string, factory machine.MachineFactory, help string, meta map[string]any, group string) error {
	if _, exists := tb.programs[name]; exists {
		return fmt.Errorf("session: program already added: %s", name)
	}
	tb.programs[name] = factory
	tb.order = append(tb.order, name)
	tb.help[name] = help
	if meta == nil {
		meta = map[string]any{}
	}
	tb.meta[name] = meta
	tb.groups[group] = append(tb.groups[group], name)
	return nil
}

// RemoveProgram drops a registered program and its bookkeeping.
func (tb *Toolbox) RemoveProgram(name string) {
	delete(tb.programs, name)
	delete(tb.help, name)
	delete(tb.meta, name)
	for g, names := range tb.groups {
		tb.groups[g] = removeString(names, name)
	}
	tb.order = removeString(tb.order, name)
}

func removeString(list []string, v string) []string {
	out := list[:0:0]
	for _, s := range list {
		if s != v {
			out = append(out, s)
		}
	}
	return out
}

// AddHandler registers a file handler for a target name.
func (tb *Toolbox) AddHandler(target string, h handler.FileHandler, replace bool) error {
	if !replace {
		if _, exists := tb.Handlers[target]; exists {
			return fmt.Errorf("session: file handler already set for target %s", target)
		}
	}
	tb.Handlers[target] = h
	return nil
}

// AddComparator registers a storage.Comparator for a target name.
func (tb *Toolbox) AddComparator(target string, cmp storage.Comparator) {
	tb.Comparators[target] = cmp
}

// AddSignature sets the signature file written into every output directory
// on a successful write, toolbox.py's add_signature.
func (tb *Toolbox) AddSignature(filename string, items map[string]any) {
	tb.Signature = signature.New(filename, items)
}

// Relationships maps each target name (whether a program's own name or one
// of its declared outputs) to the programs that can produce it, solved with
// no parameters - toolbox.py's get_relationships. A program whose factory
// fails to solve with no parameters (e.g. a MetaMachine requiring a
// selection parameter) is skipped rather than erroring the whole toolbox;
// Relationships is a best-effort structural view, not a run-time guarantee.
func (tb *Toolbox) Relationships() (map[string][]string, error) {
	rel := map[string][]string{}
	add := func(key, program string) error {
		for _, existing := range rel[key] {
			if existing == program {
				return nil
			}
		}
		rel[key] = append(rel[key], program)
		return nil
	}

	for _, name := range tb.order {
		if _, exists := rel[name]; exists {
			return nil, fmt.Errorf("session: duplicate name: %s", name)
		}
		rel[name] = []string{name}

		factory := tb.programs[name]
		solved, err := factory.Solve(nil)
		if err != nil {
			continue
		}
		for _, m := range solved {
			for _, out := range m.FlatOutputs() {
				if err := add(out, name); err != nil {
					return nil, err
				}
			}
		}
	}
	return rel, nil
}
