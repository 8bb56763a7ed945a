// Package storage implements the pluggable Target persistence contract,
// ported from original_source/machines/storages.py's TargetStorage.
/*
 * Copyright (c) 2018-2023, NVIDIA CORPORATION. All rights reserved.
 */
package storage

import (
	"github.com/py-baudin/machines/cmn"
	"github.com/py-baudin/machines/target"
)

// WriteMode governs what happens when a write targets an already-persisted
// target.
type WriteMode int

const (
	// ModeUnset fails with TargetAlreadyExists if the target is present.
	ModeUnset WriteMode = iota
	// ModeOverwrite always replaces the stored value.
	ModeOverwrite
	// ModeUpgrade compares values (via a registered Comparator, or equality)
	// and replaces only when they differ.
	ModeUpgrade
	// ModeTest compares values but never mutates storage.
	ModeTest
)

func (m WriteMode) String() string {
	switch m {
	case ModeOverwrite:
		return "overwrite"
	case ModeUpgrade:
		return "upgrade"
	case ModeTest:
		return "test"
	default:
		return "unset"
	}
}

// Comparator reports whether previous and next are equivalent for write-mode
// purposes (upgrade/test). Registered per target name.
type Comparator func(previous, next any) bool

// SignatureFunc is invoked with a target's storage directory after a
// successful write, mirroring the optional signature writer of spec.md 4.2.
// File-tree backends pass their per-target directory; non-file backends
// (Memory, Bunt, object stores) may pass an empty string or a synthetic key,
// since not every backend has a filesystem directory to drop a sidecar into.
type SignatureFunc func(dirname string) error

// OnWrite/OnRead/OnDel mirror the original's on_write/on_read/on_del
// callbacks.
type (
	OnWriteFunc func(t *target.Target, data any)
	OnReadFunc  func(t *target.Target)
	OnDelFunc   func(t *target.Target)
)

// Summary is the minimal per-task view Cleanup needs: which targets a task
// read as input, whether it aggregated them, and its terminal status.
type Summary struct {
	Inputs    []*target.Target
	Aggregate bool
	Status    cmn.Status
}

// Storage is the contract every backend (memory, file, bunt, S3, Azure blob,
// GCS, HDFS) implements; see spec.md 4.2.
type Storage interface {
	Name() string
	Exists(t *target.Target) bool
	Read(t *target.Target) (any, error)
	Write(t *target.Target, data any, mode WriteMode) error
	Remove(t *target.Target) error
	Copy(src, dst *target.Target) error
	List() ([]*target.Target, error)
	Failed() []string
	Clear() error
	Location(t *target.Target) string
	Check(t *target.Target) error

	Lock(name string)
	Unlock(name string)
	Locked(t *target.Target) bool

	SetComparator(name string, cmp Comparator)
	SetSignature(fn SignatureFunc)
	SetCallbacks(onWrite OnWriteFunc, onRead OnReadFunc, onDel OnDelFunc)

	// Temporary reports whether Cleanup should ever act on this storage.
	Temporary() bool
	Cleanup(summary []Summary) error
}
