package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, dir, contents string) string {
	t.Helper()
	path := filepath.Join(dir, "session.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestLoadDefaultsToMemoryStorages(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "workdir: \"\"\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	storages, err := cfg.SetupStorages("__MAIN__", "__TEMP__")
	if err != nil {
		t.Fatalf("SetupStorages: %v", err)
	}
	if _, ok := storages["__MAIN__"]; !ok {
		t.Fatal("expected a main storage even with no workdir configured")
	}
	if _, ok := storages["__TEMP__"]; ok {
		t.Fatal("expected no temp storage without a configured tempdir")
	}
}

func TestLoadWithTargetDirsRoutesByName(t *testing.T) {
	dir := t.TempDir()
	workDir := filepath.Join(dir, "work")
	dedicated := filepath.Join(dir, "dedicated")
	path := writeConfig(t, dir, "workdir: "+workDir+"\ntargetdirs:\n  - name: special\n    path: "+dedicated+"\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	storages, err := cfg.SetupStorages("__MAIN__", "__TEMP__")
	if err != nil {
		t.Fatalf("SetupStorages: %v", err)
	}
	if _, ok := storages["special"]; !ok {
		t.Fatal("expected a dedicated storage keyed by target name")
	}
	if storages["special"] == storages["__MAIN__"] {
		t.Fatal("dedicated storage should not alias the main storage")
	}
}

func TestLoadWithBuntDirsRoutesByName(t *testing.T) {
	dir := t.TempDir()
	workDir := filepath.Join(dir, "work")
	buntPath := filepath.Join(dir, "index.db")
	path := writeConfig(t, dir, "workdir: "+workDir+"\nbuntdirs:\n  - name: indexed\n    path: "+buntPath+"\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	storages, err := cfg.SetupStorages("__MAIN__", "__TEMP__")
	if err != nil {
		t.Fatalf("SetupStorages: %v", err)
	}
	if _, ok := storages["indexed"]; !ok {
		t.Fatal("expected a buntdb-backed storage keyed by target name")
	}
	if storages["indexed"] == storages["__MAIN__"] {
		t.Fatal("buntdb storage should not alias the main storage")
	}
}
