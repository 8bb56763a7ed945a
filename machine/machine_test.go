package machine

import (
	"testing"

	"github.com/py-baudin/machines/params"
	"github.com/py-baudin/machines/target"
	"github.com/py-baudin/machines/taskctx"
)

func mustType(t *testing.T, dest string) target.Type {
	t.Helper()
	tt, err := target.NewType(dest, "", nil, false)
	if err != nil {
		t.Fatalf("new type: %v", err)
	}
	return tt
}

func TestContractBuildsMachine(t *testing.T) {
	fn := func(ctx *taskctx.Context) (any, error) { return nil, nil }
	m, err := New("double", fn).
		Input("a", mustType(t, "a")).
		Output("b", mustType(t, "b")).
		Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if m.InputNames()[0] != "a" || m.OutputName() != "b" {
		t.Fatalf("unexpected slot names: %v %v", m.InputNames(), m.OutputName())
	}
}

func TestContractRejectsParameterOverlap(t *testing.T) {
	fn := func(ctx *taskctx.Context) (any, error) { return nil, nil }
	p, _ := params.New("a", params.Int, params.Unset)
	_, err := New("clash", fn).
		Input("a", mustType(t, "a")).
		Param("a", p).
		Build()
	if err == nil {
		t.Fatalf("expected overlap error")
	}
}

func TestContractRejectsSecondOutputWithoutMultiOutputs(t *testing.T) {
	fn := func(ctx *taskctx.Context) (any, error) { return nil, nil }
	_, err := New("two-out", fn).
		Output("b1", mustType(t, "b1")).
		Output("b2", mustType(t, "b2")).
		Build()
	if err == nil {
		t.Fatalf("expected multiple-outputs error")
	}
}

func TestMachineSolveResolvesVariableInput(t *testing.T) {
	fn := func(ctx *taskctx.Context) (any, error) { return nil, nil }
	vio, _ := params.New("dest", params.VariableIO{}, params.Unset)
	m, err := New("sink", fn).
		VirtualInput("dest", vio).
		Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	solved, err := m.Solve(map[string]any{"dest": "custom"})
	if err != nil {
		t.Fatalf("solve: %v", err)
	}
	if len(solved) != 1 {
		t.Fatalf("expected one solved machine, got %d", len(solved))
	}
	alts := solved[0].Inputs["dest"]
	if len(alts) != 1 || alts[0].Dest != "custom" {
		t.Fatalf("unexpected resolved input: %v", alts)
	}
}

func TestMetaMachineSolveFlattensChildren(t *testing.T) {
	fn := func(ctx *taskctx.Context) (any, error) { return nil, nil }
	child, err := New("child", fn).Input("a", mustType(t, "a")).Build()
	if err != nil {
		t.Fatalf("build child: %v", err)
	}

	mm := &MetaMachine{
		Name:           "choice",
		MetaParameters: map[string]*params.Parameter{},
		Selector: func(values map[string]any) ([]MachineFactory, error) {
			return []MachineFactory{child}, nil
		},
		ExternalInputs: nil,
	}

	solved, err := mm.Solve(nil)
	if err != nil {
		t.Fatalf("solve: %v", err)
	}
	if len(solved) != 1 || solved[0].Name != "child" {
		t.Fatalf("unexpected solved machines: %v", solved)
	}
	if !solved[0].Inputs["a"][0].Temp {
		t.Fatalf("expected intermediary input to be marked temp")
	}
}
