package task

import "github.com/py-baudin/machines/cmn"

// Reject and Expected are a task function's two "soft failure" signals
// (spec.md 4.6): Reject moves the owning task to REJECTED, Expected to
// ERROR with a clean message and no captured trace. Both are backed by
// cmn.Error so callers elsewhere in the engine (parameter solving, storage)
// share the same Kind-tagged vocabulary instead of a separate sentinel type.
func Reject(reason string) error   { return cmn.Reject(reason) }
func Expected(reason string) error { return cmn.Expected(reason) }

// IsReject/IsExpected classify an error returned from a machine's function.
func IsReject(err error) bool   { return cmn.Is(err, cmn.KindReject) }
func IsExpected(err error) bool { return cmn.Is(err, cmn.KindExpected) }
