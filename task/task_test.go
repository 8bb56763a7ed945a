package task

import (
	"context"
	"testing"

	"github.com/py-baudin/machines/cmn"
	"github.com/py-baudin/machines/ids"
	"github.com/py-baudin/machines/machine"
	"github.com/py-baudin/machines/storage"
	"github.com/py-baudin/machines/target"
)

func mustInputType(t *testing.T, dest string) target.Type {
	t.Helper()
	typ, err := target.NewType(dest, "", nil, false)
	if err != nil {
		t.Fatalf("NewType(%s): %v", dest, err)
	}
	return typ
}

func echoMachine(t *testing.T) *machine.Machine {
	t.Helper()
	m, err := machine.New("echo", func(ctx *Context) (any, error) {
		v := ctx.Inputs["in"]
		return v, nil
	}).
		Input("in", mustInputType(t, "in")).
		Output("out", mustInputType(t, "out")).
		Build()
	if err != nil {
		t.Fatalf("build echo machine: %v", err)
	}
	return m
}

func rejectMachine(t *testing.T) *machine.Machine {
	t.Helper()
	m, err := machine.New("rejector", func(ctx *Context) (any, error) {
		return nil, Reject("never happy")
	}).
		Input("in", mustInputType(t, "in")).
		Output("out", mustInputType(t, "out")).
		Build()
	if err != nil {
		t.Fatalf("build rejector machine: %v", err)
	}
	return m
}

func failMachine(t *testing.T) *machine.Machine {
	t.Helper()
	m, err := machine.New("failer", func(ctx *Context) (any, error) {
		panic("unreachable in test - fail via returned error")
	}).
		Input("in", mustInputType(t, "in")).
		Output("out", mustInputType(t, "out")).
		Build()
	if err != nil {
		t.Fatalf("build failer machine: %v", err)
	}
	m.Func = func(ctx *Context) (any, error) {
		return nil, cmn.Expected("boom")
	}
	return m
}

func sourceMachine(t *testing.T) *machine.Machine {
	t.Helper()
	m, err := machine.New("source", func(ctx *Context) (any, error) {
		return "seed", nil
	}).
		Output("out", mustInputType(t, "in")).
		Build()
	if err != nil {
		t.Fatalf("build source machine: %v", err)
	}
	return m
}

func TestSafeRunSkipsWhenOutputAlreadyExists(t *testing.T) {
	engine := storage.NewMemory(false)
	m := echoMachine(t)

	src, err := New(sourceMachine(t), nil, ids.NoID, nil)
	if err != nil {
		t.Fatalf("New(source): %v", err)
	}
	if status := src.SafeRun(context.Background(), engine); status != cmn.StatusSuccess {
		t.Fatalf("seed run status = %v, want Success", status)
	}

	tk, err := New(m, []ids.Identifier{ids.NoID}, ids.NoID, nil)
	if err != nil {
		t.Fatalf("New(echo): %v", err)
	}
	if status := tk.SafeRun(context.Background(), engine); status != cmn.StatusSuccess {
		t.Fatalf("first run status = %v, want Success", status)
	}

	tk2, err := New(m, []ids.Identifier{ids.NoID}, ids.NoID, nil)
	if err != nil {
		t.Fatalf("New(echo) second: %v", err)
	}
	if status := tk2.SafeRun(context.Background(), engine); status != cmn.StatusSkipped {
		t.Fatalf("second run status = %v, want Skipped", status)
	}
}

func TestSafeRunPendingWithoutInput(t *testing.T) {
	engine := storage.NewMemory(false)
	m := echoMachine(t)

	tk, err := New(m, []ids.Identifier{ids.NoID}, ids.NoID, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if status := tk.SafeRun(context.Background(), engine); status != cmn.StatusPending {
		t.Fatalf("status = %v, want Pending", status)
	}
}

func TestSafeRunRejected(t *testing.T) {
	engine := storage.NewMemory(false)
	src, _ := New(sourceMachine(t), nil, ids.NoID, nil)
	src.SafeRun(context.Background(), engine)

	tk, err := New(rejectMachine(t), []ids.Identifier{ids.NoID}, ids.NoID, nil)
	if err != nil {
		t.Fatalf("New(rejector): %v", err)
	}
	if status := tk.SafeRun(context.Background(), engine); status != cmn.StatusRejected {
		t.Fatalf("status = %v, want Rejected", status)
	}
}

func TestSafeRunErrorCapturesMessageWithoutTrace(t *testing.T) {
	engine := storage.NewMemory(false)
	src, _ := New(sourceMachine(t), nil, ids.NoID, nil)
	src.SafeRun(context.Background(), engine)

	tk, err := New(failMachine(t), []ids.Identifier{ids.NoID}, ids.NoID, nil)
	if err != nil {
		t.Fatalf("New(failer): %v", err)
	}
	if status := tk.SafeRun(context.Background(), engine); status != cmn.StatusError {
		t.Fatalf("status = %v, want Error", status)
	}
	if tk.Message == "" {
		t.Fatal("expected error message to be set")
	}
	if tk.Trace() != "" {
		t.Fatal("expected no trace for an Expected error")
	}
}

// TestReadyBranchFallback mirrors spec.md's worked example: A exists at
// index 1 with an empty branch, B exists at (1, "br1"); a machine taking
// both as inputs on identifier (1, "br1") becomes ready because B matches
// exactly and A falls back across its empty branch.
func TestReadyBranchFallback(t *testing.T) {
	engine := storage.NewMemory(false)
	m, err := machine.New("combine", func(ctx *Context) (any, error) { return nil, nil }).
		Input("a", mustInputType(t, "a")).
		Input("b", mustInputType(t, "b")).
		Output("out", mustInputType(t, "out")).
		Build()
	if err != nil {
		t.Fatalf("build combine machine: %v", err)
	}

	index := ids.MustIndex("1")
	br1 := ids.MustBranch("br1")

	targetA, err := target.New("a", index, ids.EmptyBranch)
	if err != nil {
		t.Fatalf("New(target a): %v", err)
	}
	if err := engine.Write(targetA, "data-a", storage.ModeUnset); err != nil {
		t.Fatalf("write a: %v", err)
	}
	targetB, err := target.New("b", index, br1)
	if err != nil {
		t.Fatalf("New(target b): %v", err)
	}
	if err := engine.Write(targetB, "data-b", storage.ModeUnset); err != nil {
		t.Fatalf("write b: %v", err)
	}

	id := ids.Identifier{Index: index, Branch: br1}
	tk, err := New(m, []ids.Identifier{id}, id, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if !tk.Ready(engine) {
		t.Fatal("expected branch-crop fallback on A alongside an exact match on B to resolve")
	}
}

// TestReadyBranchFallbackSkipsWhenNothingMatchesExactly covers the other
// half of the same rule: if every resolved input needed the fallback crop
// (none matches the requested branch exactly), the identifier contributes
// nothing and the task stays not-ready.
func TestReadyBranchFallbackSkipsWhenNothingMatchesExactly(t *testing.T) {
	engine := storage.NewMemory(false)
	m := echoMachine(t)

	index := ids.MustIndex("1")
	targetIn, err := target.New("in", index, ids.EmptyBranch)
	if err != nil {
		t.Fatalf("New(target): %v", err)
	}
	if err := engine.Write(targetIn, "seed", storage.ModeUnset); err != nil {
		t.Fatalf("write: %v", err)
	}

	id := ids.Identifier{Index: index, Branch: ids.MustBranch("br1")}
	tk, err := New(m, []ids.Identifier{id}, id, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if tk.Ready(engine) {
		t.Fatal("expected task to stay not-ready when only a cropped-branch match exists")
	}
}

func TestApplyMapOneTaskPerIdentifier(t *testing.T) {
	m := echoMachine(t)
	a := ids.Identifier{Index: ids.MustIndex("a")}
	b := ids.Identifier{Index: ids.MustIndex("b")}

	tasks, err := Apply(m, []ids.Identifier{b, a}, ApplyOptions{})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if len(tasks) != 2 {
		t.Fatalf("len(tasks) = %d, want 2", len(tasks))
	}
	if !tasks[0].Identifier().Equal(a) || !tasks[1].Identifier().Equal(b) {
		t.Fatalf("tasks not sorted by identifier: %v, %v", tasks[0].Identifier(), tasks[1].Identifier())
	}
}

func TestApplyAggregateIDsProducesSingleTask(t *testing.T) {
	m, err := machine.New("agg", func(ctx *Context) (any, error) {
		return len(ctx.Inputs["in"].([]any)), nil
	}).
		Input("in", mustInputType(t, "in")).
		Output("out", mustInputType(t, "out")).
		Aggregate(machine.AggregateIDs).
		Build()
	if err != nil {
		t.Fatalf("build agg machine: %v", err)
	}

	ids1 := []ids.Identifier{
		{Index: ids.MustIndex("a")},
		{Index: ids.MustIndex("b")},
		{Index: ids.MustIndex("c")},
	}
	tasks, err := Apply(m, ids1, ApplyOptions{})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if len(tasks) != 1 {
		t.Fatalf("len(tasks) = %d, want 1", len(tasks))
	}
	if len(tasks[0].InputIDs) != 3 {
		t.Fatalf("len(InputIDs) = %d, want 3", len(tasks[0].InputIDs))
	}
}

func TestApplyAggregateBranchGroupsByIndex(t *testing.T) {
	m, err := machine.New("aggbranch", func(ctx *Context) (any, error) { return nil, nil }).
		Input("in", mustInputType(t, "in")).
		Output("out", mustInputType(t, "out")).
		Aggregate(machine.AggregateBranch).
		Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	idA1 := ids.Identifier{Index: ids.MustIndex("a"), Branch: ids.MustBranch("x")}
	idA2 := ids.Identifier{Index: ids.MustIndex("a"), Branch: ids.MustBranch("y")}
	idB1 := ids.Identifier{Index: ids.MustIndex("b"), Branch: ids.MustBranch("x")}

	tasks, err := Apply(m, []ids.Identifier{idA1, idA2, idB1}, ApplyOptions{})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if len(tasks) != 2 {
		t.Fatalf("len(tasks) = %d, want 2", len(tasks))
	}
	for _, tk := range tasks {
		if !tk.Identifier().Branch.IsEmpty() {
			t.Fatalf("aggregate-by-branch output should have empty branch, got %v", tk.Identifier())
		}
	}
}

func TestApplyDispatchParametersRequiresFullCoverage(t *testing.T) {
	m := echoMachine(t)
	a := ids.Identifier{Index: ids.MustIndex("a")}
	b := ids.Identifier{Index: ids.MustIndex("b")}

	_, err := Apply(m, []ids.Identifier{a, b}, ApplyOptions{
		ParametersByID: map[string]map[string]any{a.String(): {}},
	})
	if err == nil {
		t.Fatal("expected error for missing per-identifier parameters")
	}
}
