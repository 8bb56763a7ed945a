package ids

import "testing"

func TestIndexConcatenationIdentity(t *testing.T) {
	a := MustIndex([]string{"a", "b"})
	if !a.Add(EmptyIndex).Equal(a) {
		t.Fatalf("a + empty != a")
	}
	if !EmptyIndex.Add(a).Equal(a) {
		t.Fatalf("empty + a != a")
	}
}

func TestIndexConcatenationAssociative(t *testing.T) {
	a := MustIndex("a")
	b := MustIndex("b")
	c := MustIndex("c")
	left := a.Add(b).Add(c)
	right := a.Add(b.Add(c))
	if !left.Equal(right) {
		t.Fatalf("(a+b)+c != a+(b+c): %v vs %v", left, right)
	}
}

func TestIndexAllowsDuplicates(t *testing.T) {
	a := MustIndex([]string{"x"})
	dup := a.Add(a)
	if dup.Len() != 2 {
		t.Fatalf("expected duplicate atoms preserved, got %v", dup.Atoms())
	}
}

func TestIndexEmptySortsGreatest(t *testing.T) {
	a := MustIndex("a")
	if EmptyIndex.Compare(a) <= 0 {
		t.Fatalf("expected empty index to sort greater than non-empty")
	}
}

func TestIndexCrop(t *testing.T) {
	a := MustIndex([]string{"a", "b", "c"})
	cropped, ok := a.Crop(3)
	if !ok || !cropped.Equal(EmptyIndex) {
		t.Fatalf("crop(len) should yield empty index")
	}
	_, ok = a.Crop(4)
	if ok {
		t.Fatalf("crop(len+1) should fail")
	}
}

func TestBranchConcatenationIdempotent(t *testing.T) {
	a := MustBranch([]string{"br1", "br2"})
	if !a.Add(a).Equal(a) {
		t.Fatalf("a + a != a for branch: %v", a.Add(a).Atoms())
	}
}

func TestBranchConcatenationSetLike(t *testing.T) {
	a := MustBranch([]string{"br1"})
	b := MustBranch([]string{"br1", "br2"})
	got := a.Add(b)
	want := MustBranch([]string{"br1", "br2"})
	if !got.Equal(want) {
		t.Fatalf("got %v want %v", got.Atoms(), want.Atoms())
	}
}

func TestBranchEmptySortsLeast(t *testing.T) {
	a := MustBranch("br1")
	if EmptyBranch.Compare(a) >= 0 {
		t.Fatalf("expected empty branch to sort less than non-empty")
	}
}

func TestBranchCropLen(t *testing.T) {
	a := MustBranch([]string{"a", "b"})
	cropped, ok := a.Crop(1)
	if !ok || !cropped.Equal(MustBranch("a")) {
		t.Fatalf("crop(1) should drop last atom")
	}
	_, ok = a.Crop(3)
	if ok {
		t.Fatalf("crop(len+1) should fail")
	}
}

func TestIndexMatchWildcard(t *testing.T) {
	a := MustIndex([]string{"foo", "bar"})
	if !a.Match("foo*") {
		t.Fatalf("expected wildcard match")
	}
	if a.Match("baz*") {
		t.Fatalf("unexpected wildcard match")
	}
}

func TestRavelIdentifiersPairwise(t *testing.T) {
	indices := []Index{MustIndex("1"), MustIndex("2")}
	branches := []Branch{MustBranch("a"), MustBranch("b")}
	ids := RavelIdentifiers(indices, branches)
	if len(ids) != 2 {
		t.Fatalf("expected pairwise zip of equal-length slices, got %d", len(ids))
	}
}

func TestRavelIdentifiersCrossProduct(t *testing.T) {
	indices := []Index{MustIndex("1"), MustIndex("2")}
	branches := []Branch{MustBranch("a"), MustBranch("b"), MustBranch("c")}
	ids := RavelIdentifiers(indices, branches)
	if len(ids) != 6 {
		t.Fatalf("expected cross product of differing-length slices, got %d", len(ids))
	}
}

func TestIdentifierOrdering(t *testing.T) {
	a := Identifier{Index: MustIndex("1"), Branch: EmptyBranch}
	b := Identifier{Index: MustIndex("1"), Branch: MustBranch("br1")}
	if a.Compare(b) >= 0 {
		t.Fatalf("expected empty branch to sort before non-empty at same index")
	}
}
