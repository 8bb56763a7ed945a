// Package taskctx defines the per-invocation view threaded through a running
// task's function call, replacing the thread-local "current task" global of
// the original implementation with an explicit context.Context value.
/*
 * Copyright (c) 2018-2023, NVIDIA CORPORATION. All rights reserved.
 */
package taskctx

import (
	"context"

	"github.com/py-baudin/machines/ids"
	"github.com/py-baudin/machines/target"
)

type contextKey struct{}

// Context is the frozen, read-only view of a task's inputs, identifiers,
// targets, parameters and output, built once per invocation and passed to
// the wrapped function. Names that are aggregated carry slices instead of
// single values (Inputs["x"] is []any, Identifiers["x"] is []ids.Identifier,
// etc.) - callers distinguish by type-asserting on the declared aggregate
// mode, since Go has no dynamic "maybe a list" type.
type Context struct {
	Meta        map[string]any
	Inputs      map[string]any
	Identifiers map[string]any // ids.Identifier or []ids.Identifier
	Targets     map[string]any // *target.Target or []*target.Target
	Attachments map[string]any // map[string]any or []map[string]any
	Groups      map[string]*Context
	Parameters  map[string]any
	Output      *target.Target
	OutputID    ids.Identifier
}

// WithContext returns a derived context.Context carrying tc, retrievable via
// Current. Exactly one Context is live per running task.
func WithContext(ctx context.Context, tc *Context) context.Context {
	return context.WithValue(ctx, contextKey{}, tc)
}

// Current returns the Context bound to ctx by the running task, if any.
// Outside a task invocation - or from a goroutine that dropped the context -
// ok is false: there is no mutable global to fall back on.
func Current(ctx context.Context) (*Context, bool) {
	tc, ok := ctx.Value(contextKey{}).(*Context)
	return tc, ok
}
