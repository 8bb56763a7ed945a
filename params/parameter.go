// Package params implements the typed parameter model described in
// spec.md 4.3, ported from original_source/machines/parameters.py.
/*
 * Copyright (c) 2018-2023, NVIDIA CORPORATION. All rights reserved.
 */
package params

import (
	"github.com/py-baudin/machines/cmn"
)

// unset is the sentinel for "no value supplied"/"no default set", standing
// in for Python's Ellipsis default.
type unsetType struct{}

var Unset = unsetType{}

// Type converts a raw supplied value into its typed form.
type Type interface {
	Convert(value any) (any, error)
}

// Flagger is implemented by Types that expose named boolean/choice flags
// (Flag, Switch, VariableSelector), mirroring ParameterType.flags.
type Flagger interface {
	Flags() map[string]any
}

// Parameter is one declared machine parameter: its Type plus arity and
// optionality metadata.
type Parameter struct {
	Type    Type
	Name    string
	Nargs   int  // 0 = scalar (default); >0 = fixed arity; -1 = variadic
	None    bool // whether an explicit nil value is accepted
	Default any  // Unset if required
	Help    string
}

// Option configures a Parameter at construction time.
type Option func(*Parameter)

func WithNargs(n int) Option   { return func(p *Parameter) { p.Nargs = n } }
func WithNone(b bool) Option   { return func(p *Parameter) { p.None = b } }
func WithHelp(s string) Option { return func(p *Parameter) { p.Help = s } }

// New builds a Parameter. default_ may be Unset for a required parameter.
func New(name string, typ Type, default_ any, opts ...Option) (*Parameter, error) {
	p := &Parameter{Type: typ, Name: name, Default: Unset}
	for _, opt := range opts {
		opt(p)
	}
	if default_ == nil {
		p.None = true
	}
	if default_ != Unset {
		parsed, err := p.parse(default_)
		if err != nil {
			return nil, err
		}
		p.Default = parsed
	}
	return p, nil
}

// Required reports whether the parameter has no default.
func (p *Parameter) Required() bool { return p.Default == Unset }

// Flags returns the type's named flags, if any.
func (p *Parameter) Flags() map[string]any {
	if f, ok := p.Type.(Flagger); ok {
		return f.Flags()
	}
	return nil
}

// Parse converts a supplied value (or Unset to take the default).
func (p *Parameter) Parse(value any) (any, error) {
	return p.parse(value)
}

func (p *Parameter) parse(value any) (any, error) {
	if value == Unset {
		if p.Default != Unset {
			return p.Default, nil
		}
		return nil, cmn.ParameterError(p.Name, errRequired)
	}
	if value == nil {
		if p.None {
			return nil, nil
		}
		return nil, cmn.ParameterError(p.Name, errCannotBeNil)
	}

	if p.Nargs == 0 {
		return p.Type.Convert(value)
	}

	seq, ok := value.([]any)
	if !ok {
		if p.Nargs == -1 || p.Nargs == 1 {
			seq = []any{value}
		} else {
			return nil, cmn.ParameterError(p.Name, errExpectSequence)
		}
	}
	if p.Nargs > 0 && len(seq) != p.Nargs {
		return nil, cmn.ParameterError(p.Name, errArityMismatch)
	}
	out := make([]any, len(seq))
	for i, item := range seq {
		converted, err := p.Type.Convert(item)
		if err != nil {
			return nil, cmn.ParameterError(p.Name, err)
		}
		out[i] = converted
	}
	return out, nil
}
