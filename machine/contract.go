package machine

import (
	"fmt"

	"github.com/py-baudin/machines/params"
	"github.com/py-baudin/machines/target"
)

// Contract is the builder DSL replacing the original's reflection over a
// Python function's parameter names (spec.md 9: Go has no runtime parameter
// names to reflect on). Each declared slot records both the storage-facing
// target.Type/params.Parameter and the key under which the built
// *taskctx.Context exposes it to Func.
type Contract struct {
	m   *Machine
	err error
}

// New starts a Contract for fn.
func New(name string, fn TaskFunc) *Contract {
	return &Contract{m: &Machine{
		Name:       name,
		Func:       fn,
		Inputs:     map[string][]target.Type{},
		Outputs:    map[string][]target.Type{},
		Parameters: map[string]*params.Parameter{},
		Groups:     map[string][]string{},
	}}
}

func (c *Contract) fail(err error) *Contract {
	if c.err == nil {
		c.err = err
	}
	return c
}

// Description sets the Machine's human-readable description.
func (c *Contract) Description(d string) *Contract {
	c.m.Description = d
	return c
}

// Input declares a named input slot with one or more alternative target
// types (the first is primary).
func (c *Contract) Input(name string, alts ...target.Type) *Contract {
	if c.err != nil {
		return c
	}
	if len(alts) == 0 {
		return c.fail(fmt.Errorf("machine: input %q needs at least one target.Type", name))
	}
	if _, exists := c.m.Inputs[name]; !exists {
		c.m.inputOrder = append(c.m.inputOrder, name)
	}
	c.m.Inputs[name] = append(c.m.Inputs[name], alts...)
	return c
}

// VirtualInput declares an input slot late-bound to a VariableIO-typed
// parameter: the slot starts out as target.Virtual and is replaced by the
// parameter's resolved target.Type at Solve time.
func (c *Contract) VirtualInput(name string, p *params.Parameter) *Contract {
	if c.err != nil {
		return c
	}
	if _, ok := p.Type.(params.VariableIO); !ok {
		return c.fail(fmt.Errorf("machine: VirtualInput %q requires a VariableIO-typed parameter", name))
	}
	if _, exists := c.m.Inputs[name]; !exists {
		c.m.inputOrder = append(c.m.inputOrder, name)
	}
	virtual, _ := target.NewType(target.Virtual, "", nil, false)
	c.m.Inputs[name] = append(c.m.Inputs[name], virtual)
	c.m.Parameters[name] = p
	return c
}

// Output declares a named output slot. Unless MultiOutputs(true) was called,
// at most one output slot (with any number of alternatives) is authorized.
func (c *Contract) Output(name string, alts ...target.Type) *Contract {
	if c.err != nil {
		return c
	}
	if len(alts) == 0 {
		return c.fail(fmt.Errorf("machine: output %q needs at least one target.Type", name))
	}
	if !c.m.MultiOutputs && len(c.m.Outputs) > 0 {
		if _, exists := c.m.Outputs[name]; !exists {
			return c.fail(fmt.Errorf("machine: multiple outputs are not authorized"))
		}
	}
	if _, exists := c.m.Outputs[name]; !exists {
		c.m.outputOrder = append(c.m.outputOrder, name)
	}
	c.m.Outputs[name] = append(c.m.Outputs[name], alts...)
	return c
}

// VirtualOutput declares an output slot late-bound to a VariableIO-typed
// parameter, analogous to VirtualInput.
func (c *Contract) VirtualOutput(name string, p *params.Parameter) *Contract {
	if c.err != nil {
		return c
	}
	if _, ok := p.Type.(params.VariableIO); !ok {
		return c.fail(fmt.Errorf("machine: VirtualOutput %q requires a VariableIO-typed parameter", name))
	}
	if !c.m.MultiOutputs && len(c.m.Outputs) > 0 {
		if _, exists := c.m.Outputs[name]; !exists {
			return c.fail(fmt.Errorf("machine: multiple outputs are not authorized"))
		}
	}
	if _, exists := c.m.Outputs[name]; !exists {
		c.m.outputOrder = append(c.m.outputOrder, name)
	}
	virtual, _ := target.NewType(target.Virtual, "", nil, false)
	c.m.Outputs[name] = append(c.m.Outputs[name], virtual)
	c.m.Parameters[name] = p
	return c
}

// Param declares a named parameter (Freeze-typed parameters are accepted
// here too; Build does not special-case them further since params.Parameter
// already carries that distinction via its Type).
func (c *Contract) Param(name string, p *params.Parameter) *Contract {
	if c.err != nil {
		return c
	}
	if _, exists := c.m.Parameters[name]; exists {
		return c.fail(fmt.Errorf("machine: parameter %q already set", name))
	}
	c.m.Parameters[name] = p
	return c
}

// Group names a bundle of input slots, exposed to Func as a sub-Context
// (spec.md 4.4's "groups").
func (c *Contract) Group(name string, members ...string) *Contract {
	if c.err != nil {
		return c
	}
	c.m.Groups[name] = append(c.m.Groups[name], members...)
	return c
}

// MultiOutputs toggles whether more than one output slot is authorized
// (true for MetaMachine).
func (c *Contract) MultiOutputs(b bool) *Contract {
	c.m.MultiOutputs = b
	return c
}

// Aggregate sets the Machine's aggregation mode.
func (c *Contract) Aggregate(a Aggregate) *Contract {
	c.m.Aggregate = a
	return c
}

// Requires sets the Machine's requirement mode.
func (c *Contract) Requires(r Requires) *Contract {
	c.m.Requires = r
	return c
}

// Build finalizes the Machine, validating slot/parameter name overlap
// (ported from machine.py's _check_signature: parameters may not collide
// with a non-virtual input/output name).
func (c *Contract) Build() (*Machine, error) {
	if c.err != nil {
		return nil, c.err
	}
	virtual := map[string]bool{}
	for name, p := range c.m.Parameters {
		if _, ok := p.Type.(params.VariableIO); ok {
			virtual[name] = true
		}
	}
	for name := range c.m.Parameters {
		if virtual[name] {
			continue
		}
		if _, ok := c.m.Inputs[name]; ok {
			return nil, fmt.Errorf("machine: parameter %q overlaps with input slot", name)
		}
		if _, ok := c.m.Outputs[name]; ok {
			return nil, fmt.Errorf("machine: parameter %q overlaps with output slot", name)
		}
	}
	return c.m, nil
}
