package params

import (
	"fmt"

	"github.com/py-baudin/machines/handler"
	"github.com/py-baudin/machines/target"
)

// IoDecl is the tagged union from spec.md 9's "IoDecl = Fixed(TargetType) |
// Virtual(ParameterRef)" design note: a machine slot is either a fixed
// target.Type known at registration time, or late-bound to whatever
// target.Type a VariableIO parameter resolves to at task-build time.
// Exactly one field is non-nil.
type IoDecl struct {
	Fixed   *target.Type
	Virtual *Parameter
}

// IsVirtual reports whether the slot is late-bound.
func (d IoDecl) IsVirtual() bool { return d.Virtual != nil }

// FixedDecl wraps an already-known target.Type.
func FixedDecl(t target.Type) IoDecl { return IoDecl{Fixed: &t} }

// VirtualDecl wraps a VariableIO-typed Parameter.
func VirtualDecl(p *Parameter) IoDecl { return IoDecl{Virtual: p} }

// VariableIO is a ParameterType whose Convert produces a target.Type,
// ported from parameters.py's VariableIO: late-bound I/O selector.
type VariableIO struct {
	DefaultType string
	Handler     handler.FileHandler
}

func (v VariableIO) Convert(value any) (any, error) {
	if t, ok := value.(target.Type); ok {
		return t, nil
	}
	name, ok := value.(string)
	if !ok {
		return nil, fmt.Errorf("invalid variable i/o value: %v", value)
	}
	kind := v.DefaultType
	h := v.Handler
	return target.NewType(name, kind, h, false)
}

// VariableSelector restricts VariableIO to a fixed choice of target.Type
// values, ported from parameters.py's VariableSelector.
type VariableSelector struct {
	Choice map[string]target.Type
}

// NewVariableSelector builds a VariableSelector from named destinations,
// each wrapping them as target.Type(dest, type, handler, false) unless
// already a target.Type.
func NewVariableSelector(dests map[string]string, typ string, h handler.FileHandler) (*VariableSelector, error) {
	choice := map[string]target.Type{}
	for name, dest := range dests {
		t, err := target.NewType(dest, typ, h, false)
		if err != nil {
			return nil, err
		}
		choice[name] = t
	}
	return &VariableSelector{Choice: choice}, nil
}

func (s *VariableSelector) Convert(value any) (any, error) {
	key, ok := value.(string)
	if !ok {
		return nil, fmt.Errorf("invalid option value: %v", value)
	}
	t, ok := s.Choice[key]
	if !ok {
		return nil, fmt.Errorf("invalid option value: %s", key)
	}
	return t, nil
}

func (s *VariableSelector) Flags() map[string]any {
	out := make(map[string]any, len(s.Choice))
	for k := range s.Choice {
		out[k] = k
	}
	return out
}
