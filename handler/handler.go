// Package handler implements pluggable (target, dir) <-> value codecs used
// by file-tree-backed storages. The core treats each handler as an opaque
// (target, dir) <-> value pair, per spec.md 1.
/*
 * Copyright (c) 2018-2023, NVIDIA CORPORATION. All rights reserved.
 */
package handler

// TargetRef is the minimal view of a target.Target a handler may need; kept
// as a narrow interface here (rather than importing package target) so that
// target.Type can hold a FileHandler without an import cycle.
type TargetRef interface {
	TargetName() string
	TargetKind() string
}

// FileHandler saves/loads a value to/from a target's storage directory.
type FileHandler interface {
	Save(dir string, ref TargetRef, data any) error
	Load(dir string, ref TargetRef) (any, error)
}

// Func adapts a pair of plain save/load functions into a FileHandler.
type Func struct {
	SaveFunc func(dir string, ref TargetRef, data any) error
	LoadFunc func(dir string, ref TargetRef) (any, error)
}

func (f Func) Save(dir string, ref TargetRef, data any) error { return f.SaveFunc(dir, ref, data) }
func (f Func) Load(dir string, ref TargetRef) (any, error)    { return f.LoadFunc(dir, ref) }
