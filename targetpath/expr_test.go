package targetpath

import (
	"testing"

	"github.com/py-baudin/machines/ids"
	"github.com/py-baudin/machines/target"
)

func mustTarget(t *testing.T, name string, index ids.Index, branch ids.Branch) *target.Target {
	t.Helper()
	tg, err := target.New(name, index, branch)
	if err != nil {
		t.Fatalf("new target: %v", err)
	}
	return tg
}

func TestDefaultExprRoundTrip(t *testing.T) {
	e := Default()
	cases := []*target.Target{
		mustTarget(t, "alpha", ids.EmptyIndex, ids.EmptyBranch),
		mustTarget(t, "alpha", ids.MustIndex("1"), ids.EmptyBranch),
		mustTarget(t, "alpha", ids.MustIndex([]string{"1", "2", "3"}), ids.EmptyBranch),
		mustTarget(t, "alpha", ids.MustIndex("1"), ids.MustBranch("b1")),
		mustTarget(t, "alpha", ids.MustIndex([]string{"1", "2"}), ids.MustBranch([]string{"b1", "b2"})),
	}
	for _, tg := range cases {
		if err := e.Check(tg); err != nil {
			t.Errorf("round-trip failed for %s: %v", tg, err)
		}
	}
}

func TestDefaultExprToPathLiteralForm(t *testing.T) {
	e := Default()
	tg := mustTarget(t, "alpha", ids.MustIndex([]string{"1", "2"}), ids.EmptyBranch)
	p, err := e.ToPath(tg)
	if err != nil {
		t.Fatalf("to_path: %v", err)
	}
	if p != "1.2/alpha" {
		t.Fatalf("unexpected path: %q", p)
	}
}

func TestExprWithNamePin(t *testing.T) {
	e, err := NewExpr("<index><branch>", "<id>[.<id>]", "~<id>[.<id>]", "_", "")
	if err != nil {
		t.Fatalf("new expr: %v", err)
	}
	e = e.WithName("alpha")
	tg := mustTarget(t, "alpha", ids.MustIndex("1"), ids.EmptyBranch)
	if err := e.Check(tg); err != nil {
		t.Fatalf("round-trip with pinned name failed: %v", err)
	}
	other := mustTarget(t, "beta", ids.MustIndex("1"), ids.EmptyBranch)
	if _, err := e.ToPath(other); err == nil {
		t.Fatalf("expected error for mismatched pinned name")
	}
}

func TestExprWithDefaultBranchOmitsFromPath(t *testing.T) {
	e := Default().WithDefaultBranch(ids.MustBranch("main"))
	tg := mustTarget(t, "alpha", ids.MustIndex("1"), ids.MustBranch("main"))
	p, err := e.ToPath(tg)
	if err != nil {
		t.Fatalf("to_path: %v", err)
	}
	if p != "1/alpha" {
		t.Fatalf("expected default branch to be omitted from path, got %q", p)
	}
	back, err := e.FromPath(p)
	if err != nil {
		t.Fatalf("from_path: %v", err)
	}
	if !back.Branch.Equal(ids.MustBranch("main")) {
		t.Fatalf("expected reconstructed branch 'main', got %s", back.Branch)
	}
}

func TestExprRejectsUnmatchedPath(t *testing.T) {
	e := Default()
	if _, err := e.FromPath("not/a/valid/shape/at/all/here"); err == nil {
		t.Fatalf("expected error for unmatched path")
	}
}
