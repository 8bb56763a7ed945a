package handler

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

type fakeRef struct{ name string }

func (f fakeRef) TargetName() string { return f.name }
func (f fakeRef) TargetKind() string { return "" }

func TestJSONRoundTrip(t *testing.T) {
	dir := t.TempDir()
	ref := fakeRef{name: "A"}
	data := map[string]any{"x": float64(1), "y": "hello"}

	if err := JSON.Save(dir, ref, data); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := JSON.Load(dir, ref)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !reflect.DeepEqual(got, data) {
		t.Fatalf("got %v want %v", got, data)
	}
}

func TestChainedUnionsLoadResults(t *testing.T) {
	dir := t.TempDir()
	ref := fakeRef{name: "A"}

	h1 := Func{
		SaveFunc: func(dir string, _ TargetRef, data any) error {
			return os.WriteFile(filepath.Join(dir, "one.json"), []byte(`{"a":1}`), 0o644)
		},
		LoadFunc: func(string, TargetRef) (any, error) {
			return map[string]any{"a": float64(1)}, nil
		},
	}
	h2 := Func{
		SaveFunc: func(dir string, _ TargetRef, data any) error {
			return os.WriteFile(filepath.Join(dir, "two.json"), []byte(`{"b":2}`), 0o644)
		},
		LoadFunc: func(string, TargetRef) (any, error) {
			return map[string]any{"b": float64(2)}, nil
		},
	}
	chained := NewFileHandler(h1, h2)
	if err := chained.Save(dir, ref, nil); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := chained.Load(dir, ref)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	want := map[string]any{"a": float64(1), "b": float64(2)}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v want %v", got, want)
	}
}

func TestCompressedRoundTrip(t *testing.T) {
	dir := t.TempDir()
	ref := fakeRef{name: "A"}
	data := map[string]any{"payload": "some reasonably long string to compress"}

	c := Compressed{Inner: JSON, Filename: jsonFilename}
	if err := c.Save(dir, ref, data); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, jsonFilename)); !os.IsNotExist(err) {
		t.Fatalf("expected plain file to be removed after compression")
	}
	got, err := c.Load(dir, ref)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !reflect.DeepEqual(got, data) {
		t.Fatalf("got %v want %v", got, data)
	}
}
