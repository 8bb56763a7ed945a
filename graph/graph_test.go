package graph

import (
	"context"
	"testing"

	"github.com/py-baudin/machines/cmn"
	"github.com/py-baudin/machines/ids"
	"github.com/py-baudin/machines/machine"
	"github.com/py-baudin/machines/storage"
	"github.com/py-baudin/machines/target"
	"github.com/py-baudin/machines/task"
)

func mustType(t *testing.T, dest string) target.Type {
	t.Helper()
	typ, err := target.NewType(dest, "", nil, false)
	if err != nil {
		t.Fatalf("NewType(%s): %v", dest, err)
	}
	return typ
}

func buildMachine(t *testing.T) *machine.Machine {
	t.Helper()
	m, err := machine.New("source", func(ctx *task.Context) (any, error) {
		return "raw", nil
	}).
		Output("out", mustType(t, "raw")).
		Build()
	if err != nil {
		t.Fatalf("build source: %v", err)
	}
	return m
}

func squareMachine(t *testing.T) *machine.Machine {
	t.Helper()
	m, err := machine.New("square", func(ctx *task.Context) (any, error) {
		return ctx.Inputs["in"], nil
	}).
		Input("in", mustType(t, "raw")).
		Output("out", mustType(t, "squared")).
		Build()
	if err != nil {
		t.Fatalf("build square: %v", err)
	}
	return m
}

func TestGenerateLinearPipeline(t *testing.T) {
	src := buildMachine(t)
	sq := squareMachine(t)

	g, err := Generate([]machine.MachineFactory{src, sq}, GenerateOptions{
		Indices: []ids.Index{ids.MustIndex("a"), ids.MustIndex("b")},
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(g.Tasks) != 4 {
		t.Fatalf("len(Tasks) = %d, want 4 (2 machines x 2 identifiers)", len(g.Tasks))
	}
}

func TestGenerateRejectsCycle(t *testing.T) {
	a, err := machine.New("a", func(ctx *task.Context) (any, error) { return nil, nil }).
		Input("in", mustType(t, "b-out")).
		Output("out", mustType(t, "a-out")).
		Build()
	if err != nil {
		t.Fatalf("build a: %v", err)
	}
	b, err := machine.New("b", func(ctx *task.Context) (any, error) { return nil, nil }).
		Input("in", mustType(t, "a-out")).
		Output("out", mustType(t, "b-out")).
		Build()
	if err != nil {
		t.Fatalf("build b: %v", err)
	}

	_, err = Generate([]machine.MachineFactory{a, b}, GenerateOptions{})
	if err == nil {
		t.Fatal("expected a cycle error")
	}
}

func TestRunExecutesLinearPipeline(t *testing.T) {
	src := buildMachine(t)
	sq := squareMachine(t)

	g, err := Generate([]machine.MachineFactory{src, sq}, GenerateOptions{
		Indices: []ids.Index{ids.MustIndex("a")},
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	engine := storage.NewMemory(false)

	// A single Run call sweeps to convergence: "square" starts out PENDING
	// since "source" hasn't produced its input yet, which pulls "source" in
	// and re-queues "square" for a follow-up sweep within the same call.
	runTasks, err := g.Run(context.Background(), engine, RunOptions{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(runTasks) != 2 {
		t.Fatalf("len(runTasks) = %d, want 2", len(runTasks))
	}

	for _, tk := range g.Tasks {
		if tk.Status != cmn.StatusSuccess {
			t.Fatalf("%s task status = %v, want SUCCESS", tk.Name(), tk.Status)
		}
	}
}
