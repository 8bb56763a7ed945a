package factory

import "context"

// NewDry creates a Factory whose Serve is a no-op: tasks accumulate in the
// queue but are never run, for plan-printing dry runs. Mirrors factory.py's
// DryFactory.
func NewDry(name string, opts ...Option) *Factory {
	f := New(name, opts...)
	f.dry = true
	return f
}

func (f *Factory) serveOrSkip(ctx context.Context) {
	if f.dry {
		return
	}
	f.serve(ctx)
}
