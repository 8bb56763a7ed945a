// Package task implements the execution unit wrapping one Machine
// invocation, ported from original_source/machines/task.py.
/*
 * Copyright (c) 2018-2023, NVIDIA CORPORATION. All rights reserved.
 */
package task

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/py-baudin/machines/cmn"
	"github.com/py-baudin/machines/ids"
	"github.com/py-baudin/machines/machine"
	"github.com/py-baudin/machines/params"
	"github.com/py-baudin/machines/storage"
	"github.com/py-baudin/machines/target"
)

// Engine is the storage view a Task needs at run time: existence checks,
// reads, and the final output write. A session binds the real multi-storage
// routing; tests can use a single storage.Storage directly, since every
// storage.Storage already satisfies this interface.
type Engine interface {
	Exists(t *target.Target) bool
	Read(t *target.Target) (any, error)
	Write(t *target.Target, data any, mode storage.WriteMode) error
}

// Callback is invoked after every status transition, mirroring the
// original's per-task callback list.
type Callback func(t *Task, msg any)

// Task is one Machine invocation bound to concrete input/output
// identifiers.
type Task struct {
	mu sync.Mutex

	Machine    *machine.Machine
	InputIDs   []ids.Identifier
	OutputID   ids.Identifier
	Parameters map[string]any
	Meta       map[string]any
	UUID       uuid.UUID

	Status  cmn.Status
	Message string
	trace   string

	Mode      storage.WriteMode
	fallback  bool
	callbacks []Callback

	availableInputs map[string]any // name -> *target.Target | []*target.Target
	Output          *target.Target

	engine Engine
}

// Option configures a Task at construction time.
type Option func(*Task)

func WithMeta(meta map[string]any) Option { return func(t *Task) { t.Meta = meta } }
func WithMode(mode storage.WriteMode) Option { return func(t *Task) { t.Mode = mode } }
func WithFallback(b bool) Option              { return func(t *Task) { t.fallback = b } }
func WithCallback(cb Callback) Option {
	return func(t *Task) { t.callbacks = append(t.callbacks, cb) }
}
func WithAttach(attach map[string]any) Option {
	return func(t *Task) {
		if t.Output == nil {
			return
		}
		for k, v := range attach {
			t.Output.Attach(k, v)
		}
	}
}

// New builds a Task for m over inputIDs (a single-element slice unless m
// aggregates), bound to outputID, with parameters solved against m's
// declared Parameters (spec.md 4.3's solve_parameters).
func New(m *machine.Machine, inputIDs []ids.Identifier, outputID ids.Identifier, parameters map[string]any, opts ...Option) (*Task, error) {
	if len(inputIDs) == 0 {
		inputIDs = []ids.Identifier{ids.NoID}
	}

	solved, err := params.SolveParameters(m.Parameters, parameters)
	if err != nil {
		return nil, fmt.Errorf("task(%s): %w", m.Name, err)
	}

	tk := &Task{
		Machine:         m,
		InputIDs:        inputIDs,
		OutputID:        outputID,
		Parameters:      solved,
		Meta:            map[string]any{},
		UUID:            uuid.New(),
		Status:          cmn.StatusNew,
		fallback:        true,
		availableInputs: map[string]any{},
	}

	if outName := m.OutputName(); outName != "" {
		outType := m.Outputs[outName][0]
		out, err := outType.Target(outputID.Index, outputID.Branch)
		if err != nil {
			return nil, err
		}
		tk.Output = out
	}

	for _, opt := range opts {
		opt(tk)
	}
	return tk, nil
}

// Identifier returns the task's own identifier: its output's, or the
// distinguished no-id if the machine has no output.
func (t *Task) Identifier() ids.Identifier {
	if t.Output == nil {
		return ids.NoID
	}
	return t.OutputID
}

// Name is the owning machine's name.
func (t *Task) Name() string { return t.Machine.Name }

// Aggregating reports whether this task's machine aggregates its inputs.
func (t *Task) Aggregating() bool { return t.Machine.Aggregate != machine.AggregateNone }

// Temporary reports whether the task's output target is marked temp.
func (t *Task) Temporary() bool { return t.Output != nil && t.Output.Temp }

// Trace returns the captured error trace, if any (set on ERROR by SafeRun
// for any failure other than an Expected error).
func (t *Task) Trace() string { return t.trace }

// InputTargets returns only the resolved input targets (no output), keyed
// by slot name, for callers that need to walk producer/consumer edges
// without the task's own output mixed in (see graph.Graph.Trace).
func (t *Task) InputTargets() map[string]any {
	out := make(map[string]any, len(t.availableInputs))
	for name, v := range t.availableInputs {
		out[name] = v
	}
	return out
}

// Summary reduces the task to the minimal view storage.Storage.Cleanup
// needs: its resolved input targets, whether its machine aggregates, and
// its terminal status.
func (t *Task) Summary() storage.Summary {
	var inputs []*target.Target
	for _, tg := range flattenInputTargets(t.availableInputs) {
		inputs = append(inputs, tg)
	}
	return storage.Summary{
		Inputs:    inputs,
		Aggregate: t.Aggregating(),
		Status:    t.Status,
	}
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

// Targets returns every named target this task touches: available inputs
// plus output, keyed by slot name.
func (t *Task) Targets() map[string]any {
	out := make(map[string]any, len(t.availableInputs)+1)
	for name, v := range t.availableInputs {
		out[name] = v
	}
	if t.Output != nil {
		out[t.Machine.OutputName()] = t.Output
	}
	return out
}

func (t *Task) String() string {
	return fmt.Sprintf("Task(%s, %s)", t.Machine.Name, t.Identifier())
}

// AddCallback attaches an additional status-change callback after
// construction, used by the dependency graph to record a task's producer
// the moment it starts running (run.go's RUNNING transition). It runs after
// whatever callbacks were set at New time.
func (t *Task) AddCallback(cb Callback) {
	t.mu.Lock()
	t.callbacks = append(t.callbacks, cb)
	t.mu.Unlock()
}

// IsChildOf reports whether parent's output could have fed t as an input:
// parent produced an output, that output's storage destination is one of
// t's declared input alternatives, and parent's output identifier is one
// t actually requested. Ported from task.py's ischild/isparent pair (here
// expressed one-directional, from the consumer's side) for the graph's
// on-demand parent pull-in during Run.
func (t *Task) IsChildOf(parent *Task) bool {
	if parent.Output == nil {
		return false
	}
	matches := false
	for _, dest := range t.Machine.FlatInputs() {
		if dest == parent.Output.Name {
			matches = true
			break
		}
	}
	if !matches {
		return false
	}
	parentID := parent.Output.Identifier()
	for _, id := range t.InputIDs {
		if id.Equal(parentID) {
			return true
		}
	}
	return false
}

func inputPresent(v any) bool {
	switch vv := v.(type) {
	case *target.Target:
		return vv != nil
	case []*target.Target:
		return len(vv) > 0
	default:
		return false
	}
}
