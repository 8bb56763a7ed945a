package task

import "github.com/py-baudin/machines/taskctx"

// Context is the view passed to a running machine's function; defined in
// package taskctx (not here) so machine can depend on it without importing
// package task, which itself must depend on machine for *machine.Machine -
// Go's import graph has no room for the original's mutual Python imports.
type Context = taskctx.Context

// Current returns the Context bound to ctx by the running task, if any.
var Current = taskctx.Current
