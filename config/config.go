// Package config loads the engine's own runtime configuration: where the
// main and temporary storages live on disk, and any dedicated target
// directories, ported from session.py's setup_storages/setup_storage. This
// is distinct from pkg params' Config (parameter preset files).
/*
 * Copyright (c) 2018-2023, NVIDIA CORPORATION. All rights reserved.
 */
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/py-baudin/machines/storage"
	"github.com/py-baudin/machines/targetpath"
)

// TargetDir describes one dedicated storage directory for a single target
// name, session.py's setup_storages targetdirs entries.
type TargetDir struct {
	Name string `yaml:"name"`
	Path string `yaml:"path"`
}

// Config is the root of a session's storage layout.
type Config struct {
	// WorkDir backs the main storage; empty means an in-memory main
	// storage (spec.md's default when no root is given).
	WorkDir string `yaml:"workdir"`
	// TempDir backs the temp storage; empty means temporary targets share
	// the in-memory temp storage factory() falls back to.
	TempDir string `yaml:"tempdir"`
	// TargetDirs are dedicated per-name directories, routed to ahead of
	// the main storage by Factory.getStorage.
	TargetDirs []TargetDir `yaml:"targetdirs"`
	// TargetLock, when true, locks every configured target name against
	// removal once its storage is built (storage.Storage.Lock).
	TargetLock bool `yaml:"target_lock"`
	// BuntDirs are dedicated per-name directories backed by an embedded
	// buntdb index instead of a plain file tree, for targets a pipeline
	// queries or lists often enough that the directory-walk cost of the
	// file backend matters.
	BuntDirs []TargetDir `yaml:"buntdirs"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: invalid configuration file %s: %w", path, err)
	}
	return &cfg, nil
}

// SetupStorages builds the {MAIN_STORAGE, TEMP_STORAGE, <name>...} storage
// map a factory.Option (factory.WithStorages) or session expects, mirroring
// session.py's setup_storages/setup_storage.
func (c *Config) SetupStorages(mainKey, tempKey string) (map[string]storage.Storage, error) {
	out := map[string]storage.Storage{}

	if c.WorkDir != "" {
		out[mainKey] = storage.NewFile(c.WorkDir, targetpath.Default(), false)
	} else {
		out[mainKey] = storage.NewMemory(false)
	}

	if c.TempDir != "" {
		out[tempKey] = storage.NewFile(c.TempDir, targetpath.Default(), true)
	}

	for _, td := range c.TargetDirs {
		if td.Name == "" {
			return nil, fmt.Errorf("config: targetdirs entry missing name")
		}
		conv, err := targetpath.TargetDir(td.Name)
		if err != nil {
			return nil, fmt.Errorf("config: targetdirs[%s]: %w", td.Name, err)
		}
		s := storage.NewFile(td.Path, conv, false)
		if c.TargetLock {
			s.Lock(td.Name)
		}
		out[td.Name] = s
	}

	for _, bd := range c.BuntDirs {
		if bd.Name == "" {
			return nil, fmt.Errorf("config: buntdirs entry missing name")
		}
		conv, err := targetpath.TargetDir(bd.Name)
		if err != nil {
			return nil, fmt.Errorf("config: buntdirs[%s]: %w", bd.Name, err)
		}
		s, err := storage.NewBunt(bd.Path, conv, false)
		if err != nil {
			return nil, fmt.Errorf("config: buntdirs[%s]: %w", bd.Name, err)
		}
		if c.TargetLock {
			s.Lock(bd.Name)
		}
		out[bd.Name] = s
	}

	return out, nil
}
