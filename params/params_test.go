package params

import "testing"

func TestRequiredParameterMissing(t *testing.T) {
	p, err := New("count", Int, Unset)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if !p.Required() {
		t.Fatalf("expected required")
	}
	if _, err := p.Parse(Unset); err == nil {
		t.Fatalf("expected error for missing required parameter")
	}
}

func TestDefaultParameter(t *testing.T) {
	p, err := New("count", Int, 3)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	v, err := p.Parse(Unset)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if v != 3 {
		t.Fatalf("expected default 3, got %v", v)
	}
}

func TestChoiceRejectsUnlisted(t *testing.T) {
	c, err := NewChoice("a", "b")
	if err != nil {
		t.Fatalf("new choice: %v", err)
	}
	p, err := New("mode", c, Unset)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if _, err := p.Parse("c"); err == nil {
		t.Fatalf("expected error for value not in choice")
	}
	v, err := p.Parse("a")
	if err != nil || v != "a" {
		t.Fatalf("expected a, got %v, %v", v, err)
	}
}

func TestNargsFixedArity(t *testing.T) {
	p, err := New("coords", Int, Unset, WithNargs(2))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if _, err := p.Parse([]any{1}); err == nil {
		t.Fatalf("expected arity mismatch error")
	}
	v, err := p.Parse([]any{1, 2})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	seq := v.([]any)
	if len(seq) != 2 || seq[0] != 1 || seq[1] != 2 {
		t.Fatalf("unexpected result: %v", v)
	}
}

func TestSolveParametersAppliesDefaults(t *testing.T) {
	count, _ := New("count", Int, 5)
	frozen, _ := New("version", Freeze{Value: "v1"}, Unset)
	solved, err := SolveParameters(map[string]*Parameter{"count": count, "version": frozen}, map[string]any{})
	if err != nil {
		t.Fatalf("solve: %v", err)
	}
	if solved["count"] != 5 || solved["version"] != "v1" {
		t.Fatalf("unexpected solved values: %v", solved)
	}
}
