package params

import (
	"fmt"
	"strconv"

	"github.com/py-baudin/machines/cmn"
)

// BaseType tries each of several scalar coercions in order, mirroring
// BaseType/STRING/BOOL/INT/FLOAT in the original.
type BaseType struct {
	Name    string
	convert func(value any) (any, error)
}

func (b BaseType) Convert(value any) (any, error) {
	v, err := b.convert(value)
	if err != nil {
		return nil, cmn.ParameterError(b.Name, err)
	}
	return v, nil
}

func (b BaseType) String() string { return b.Name }

var (
	String = BaseType{Name: "STRING", convert: func(v any) (any, error) { return fmt.Sprintf("%v", v), nil }}
	Bool   = BaseType{Name: "BOOL", convert: convertBool}
	Int    = BaseType{Name: "INT", convert: convertInt}
	Float  = BaseType{Name: "FLOAT", convert: convertFloat}
)

func convertBool(v any) (any, error) {
	switch t := v.(type) {
	case bool:
		return t, nil
	case string:
		b, err := strconv.ParseBool(t)
		if err != nil {
			return nil, fmt.Errorf("invalid bool value: %v", v)
		}
		return b, nil
	}
	return nil, fmt.Errorf("invalid bool value: %v", v)
}

func convertInt(v any) (any, error) {
	switch t := v.(type) {
	case int:
		return t, nil
	case int64:
		return int(t), nil
	case float64:
		return int(t), nil
	case string:
		n, err := strconv.Atoi(t)
		if err != nil {
			return nil, fmt.Errorf("invalid int value: %v", v)
		}
		return n, nil
	}
	return nil, fmt.Errorf("invalid int value: %v", v)
}

func convertFloat(v any) (any, error) {
	switch t := v.(type) {
	case float64:
		return t, nil
	case int:
		return float64(t), nil
	case string:
		f, err := strconv.ParseFloat(t, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid float value: %v", v)
		}
		return f, nil
	}
	return nil, fmt.Errorf("invalid float value: %v", v)
}

// Choice accepts only one of a fixed set of values.
type Choice struct {
	Values []any
}

func NewChoice(values ...any) (*Choice, error) {
	if len(values) < 1 {
		return nil, fmt.Errorf("params: a Choice must have at least one value")
	}
	return &Choice{Values: values}, nil
}

func (c *Choice) Convert(value any) (any, error) {
	for _, v := range c.Values {
		if v == value {
			return value, nil
		}
	}
	return nil, fmt.Errorf("value %v is not among %v", value, c.Values)
}

// Flag is a boolean toggled by a named enable/disable flag.
type Flag struct {
	Enable, Disable string
}

func (f Flag) Convert(value any) (any, error) {
	switch t := value.(type) {
	case bool:
		return t, nil
	case string:
		switch t {
		case "true", "1":
			return true, nil
		case "false", "0":
			return false, nil
		}
		return nil, fmt.Errorf("invalid flag value: %s", t)
	}
	return nil, fmt.Errorf("invalid flag value: %v", value)
}

func (f Flag) Flags() map[string]any {
	out := map[string]any{}
	if f.Enable != "" {
		out[f.Enable] = true
	}
	if f.Disable != "" {
		out[f.Disable] = false
	}
	return out
}

// Switch maps named options onto arbitrary values.
type Switch struct {
	Values map[string]any
}

func NewSwitch(values map[string]any) (*Switch, error) {
	if len(values) == 0 {
		return nil, fmt.Errorf("params: a Switch must be initialized with at least one value")
	}
	return &Switch{Values: values}, nil
}

func (s *Switch) Convert(value any) (any, error) {
	key, ok := value.(string)
	if !ok {
		return nil, fmt.Errorf("invalid switch option: %v", value)
	}
	v, ok := s.Values[key]
	if !ok {
		return nil, fmt.Errorf("invalid switch option: %s", key)
	}
	return v, nil
}

func (s *Switch) Flags() map[string]any {
	out := make(map[string]any, len(s.Values))
	for k := range s.Values {
		out[k] = k
	}
	return out
}

// Path normalizes a filesystem path, optionally requiring it to exist.
type Path struct {
	MustExist bool
}

func (p Path) Convert(value any) (any, error) {
	s, ok := value.(string)
	if !ok {
		return nil, fmt.Errorf("invalid path value: %v", value)
	}
	if p.MustExist {
		if !pathExists(s) {
			return nil, fmt.Errorf("path does not exist: %s", s)
		}
	}
	return s, nil
}

// Freeze always returns its fixed value, ignoring any supplied value -
// the "frozen constant" case from spec.md 3's parameter invariant: a
// Freeze parameter is never presented for user assignment.
type Freeze struct {
	Value any
}

func (f Freeze) Convert(any) (any, error) { return f.Value, nil }
