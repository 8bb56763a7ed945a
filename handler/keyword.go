package handler

import (
	"fmt"
	"os"
	"path/filepath"
)

// Keyword saves/loads a map[string]any by key, delegating each key to a
// dedicated handler (or Default when the key has none). Ported from
// keyword_saver/keyword_loader in the original handlers.py.
type Keyword struct {
	Handlers map[string]FileHandler
	Default  FileHandler
}

func (k Keyword) handlerFor(key string) FileHandler {
	if h, ok := k.Handlers[key]; ok {
		return h
	}
	return k.Default
}

func (k Keyword) Save(dir string, ref TargetRef, data any) error {
	m, ok := data.(map[string]any)
	if !ok {
		return fmt.Errorf("handler: Keyword.Save expects map[string]any, got %T", data)
	}
	for key, val := range m {
		h := k.handlerFor(key)
		if h == nil {
			return fmt.Errorf("handler: no handler registered for key %q", key)
		}
		sub := filepath.Join(dir, key)
		if err := os.MkdirAll(sub, 0o755); err != nil {
			return err
		}
		if err := h.Save(sub, ref, val); err != nil {
			return err
		}
	}
	return nil
}

func (k Keyword) Load(dir string, ref TargetRef) (any, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	out := map[string]any{}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		h := k.handlerFor(e.Name())
		if h == nil {
			continue
		}
		v, err := h.Load(filepath.Join(dir, e.Name()), ref)
		if err != nil {
			return nil, err
		}
		out[e.Name()] = v
	}
	return out, nil
}
