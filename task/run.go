package task

import (
	"context"
	"fmt"

	pkgerrors "github.com/pkg/errors"

	"github.com/py-baudin/machines/cmn"
	"github.com/py-baudin/machines/nlog"
	"github.com/py-baudin/machines/storage"
	"github.com/py-baudin/machines/target"
	"github.com/py-baudin/machines/taskctx"
)

// SafeRun executes the task against engine: skip if already complete and no
// write mode was requested, go PENDING if not ready, otherwise RUNNING, then
// invoke the machine's function and record the outcome. Ported from
// task.py's safe_run; mirrors its exact status mapping (spec.md 4.6):
// Reject -> REJECTED, Expected -> ERROR with a clean message, any other
// error -> ERROR with a captured trace.
func (t *Task) SafeRun(ctx context.Context, engine Engine) cmn.Status {
	t.mu.Lock()
	if t.Status != cmn.StatusNew && t.Status != cmn.StatusPending {
		t.mu.Unlock()
		nlog.Warningf("%s: cannot run a terminated task again", t)
		return t.Status
	}

	if t.Complete(engine) && t.Mode == storage.ModeUnset {
		t.mu.Unlock()
		return t.setStatus(cmn.StatusSkipped, "target already exists")
	}

	t.engine = engine
	if err := t.update(); err != nil {
		t.mu.Unlock()
		return t.setStatus(cmn.StatusError, err.Error())
	}
	if !t.availableSatisfiesRequires() {
		t.mu.Unlock()
		return t.setStatus(cmn.StatusPending, "")
	}
	t.mu.Unlock()
	t.setStatus(cmn.StatusRunning, "")

	tc, err := t.buildContext()
	if err != nil {
		if cmn.Is(err, cmn.KindReject) {
			return t.setStatus(cmn.StatusRejected, err.Error())
		}
		return t.fail(err)
	}

	runCtx := taskctx.WithContext(ctx, tc)
	value, err := t.Machine.Func(mustContext(runCtx))
	if err != nil {
		switch {
		case cmn.Is(err, cmn.KindReject):
			return t.setStatus(cmn.StatusRejected, err.Error())
		case cmn.Is(err, cmn.KindExpected):
			t.Message = err.Error()
			return t.setStatus(cmn.StatusError, err.Error())
		default:
			return t.fail(err)
		}
	}

	if t.Output != nil {
		if err := engine.Write(t.Output, value, t.Mode); err != nil {
			return t.fail(err)
		}
	}
	return t.setStatus(cmn.StatusSuccess, "")
}

func mustContext(ctx context.Context) *taskctx.Context {
	tc, _ := taskctx.Current(ctx)
	return tc
}

func (t *Task) fail(err error) cmn.Status {
	t.trace = fmt.Sprintf("%+v", pkgerrors.WithStack(err))
	return t.setStatus(cmn.StatusError, err.Error())
}

func (t *Task) setStatus(s cmn.Status, msg string) cmn.Status {
	t.mu.Lock()
	t.Status = s
	if msg != "" {
		t.Message = msg
	}
	t.mu.Unlock()
	t.runCallbacks(msg)
	return s
}

func (t *Task) runCallbacks(msg any) {
	for _, cb := range t.callbacks {
		func() {
			defer func() {
				if r := recover(); r != nil {
					nlog.Warningf("%s: callback panicked: %v", t, r)
				}
			}()
			cb(t, msg)
		}()
	}
}

// buildContext loads input data for every resolved target and assembles the
// *taskctx.Context passed to the machine's function, ported from task.py's
// _load_input_data + TaskContext.__init__.
func (t *Task) buildContext() (*taskctx.Context, error) {
	inputs := map[string]any{}
	identifiers := map[string]any{}
	targets := map[string]any{}
	attachments := map[string]any{}

	for name, v := range t.availableInputs {
		switch vv := v.(type) {
		case *target.Target:
			if vv == nil {
				continue
			}
			data, err := t.engine.Read(vv)
			if err != nil {
				return nil, err
			}
			inputs[name] = data
			identifiers[name] = vv.Identifier()
			targets[name] = vv
			attachments[name] = vv.Attachment

		case []*target.Target:
			var data []any
			var ids []any
			var atts []any
			for _, tg := range vv {
				d, err := t.engine.Read(tg)
				if err != nil {
					if cmn.Is(err, cmn.KindReject) {
						continue
					}
					return nil, err
				}
				data = append(data, d)
				ids = append(ids, tg.Identifier())
				atts = append(atts, tg.Attachment)
			}
			if len(vv) > 0 && len(data) == 0 {
				return nil, cmn.Reject(fmt.Sprintf("all input data for %q were rejected", name))
			}
			inputs[name] = data
			identifiers[name] = ids
			targets[name] = vv
			attachments[name] = atts
		}
	}

	if t.Output != nil {
		outName := t.Machine.OutputName()
		identifiers[outName] = t.Output.Identifier()
		targets[outName] = t.Output
		attachments[outName] = t.Output.Attachment
	}

	var groups map[string]*taskctx.Context
	if len(t.Machine.Groups) > 0 {
		groups = map[string]*taskctx.Context{}
		for gname, members := range t.Machine.Groups {
			groups[gname] = &taskctx.Context{
				Meta:        t.Meta,
				Inputs:      subset(inputs, members),
				Identifiers: subset(identifiers, members),
				Targets:     subset(targets, members),
				Attachments: subset(attachments, members),
				Parameters:  t.Parameters,
				Output:      t.Output,
				OutputID:    t.OutputID,
			}
		}
	}

	return &taskctx.Context{
		Meta:        t.Meta,
		Inputs:      inputs,
		Identifiers: identifiers,
		Targets:     targets,
		Attachments: attachments,
		Groups:      groups,
		Parameters:  t.Parameters,
		Output:      t.Output,
		OutputID:    t.OutputID,
	}, nil
}

func subset(m map[string]any, keys []string) map[string]any {
	out := make(map[string]any, len(keys))
	for _, k := range keys {
		if v, ok := m[k]; ok {
			out[k] = v
		}
	}
	return out
}
