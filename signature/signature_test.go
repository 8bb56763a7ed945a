package signature

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestSignatureWritesPresetsAndLiterals(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "data.json"), []byte("{}"), 0o644); err != nil {
		t.Fatalf("seed file: %v", err)
	}

	sig := New("signature.json", map[string]any{
		"toolbox": "demo",
		"files":   "$FILES",
		"hash":    "$HASH",
	})
	if err := sig.Write(dir); err != nil {
		t.Fatalf("write: %v", err)
	}

	raw, err := os.ReadFile(filepath.Join(dir, "signature.json"))
	if err != nil {
		t.Fatalf("read sidecar: %v", err)
	}
	var content map[string]any
	if err := json.Unmarshal(raw, &content); err != nil {
		t.Fatalf("decode sidecar: %v", err)
	}
	if content["toolbox"] != "demo" {
		t.Fatalf("expected literal item preserved, got %v", content["toolbox"])
	}
	if _, ok := content["hash"].(map[string]any); !ok {
		t.Fatalf("expected hash preset to resolve to a map, got %T", content["hash"])
	}
}

func TestSignatureSkipsMissingDirectory(t *testing.T) {
	sig := New("signature.json", map[string]any{"a": 1})
	if err := sig.Write(filepath.Join(t.TempDir(), "missing")); err != nil {
		t.Fatalf("expected no hard error for a missing directory, got %v", err)
	}
}
