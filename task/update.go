package task

import (
	"github.com/py-baudin/machines/cmn"
	"github.com/py-baudin/machines/ids"
	"github.com/py-baudin/machines/machine"
	"github.com/py-baudin/machines/target"
)

// update refreshes availableInputs against engine, ported from task.py's
// _update: for each input identifier and each declared input slot, walk the
// slot's alternative target types looking for one that exists; on a miss,
// crop the identifier's branch by one atom and retry, unless fallback is
// disabled or the machine requires "any" (spec.md 4.4's branch-fallback
// rule). Not thread-safe; callers hold t.mu.
func (t *Task) update() error {
	if t.Status != cmn.StatusNew && t.Status != cmn.StatusPending {
		return nil
	}

	found := map[string][]*target.Target{}
	for name := range t.Machine.Inputs {
		found[name] = nil
	}

	for _, id := range t.InputIDs {
		targets, matchedBranch, err := t.resolveOne(id)
		if err != nil {
			return err
		}
		if !matchedBranch {
			continue
		}
		for name, tg := range targets {
			found[name] = append(found[name], tg)
		}
	}

	if t.Aggregating() {
		avail := map[string]any{}
		for name := range t.Machine.Inputs {
			avail[name] = found[name]
		}
		t.availableInputs = avail
		return nil
	}

	avail := map[string]any{}
	for name := range t.Machine.Inputs {
		list := found[name]
		if len(list) > 0 {
			avail[name] = list[0]
		} else {
			avail[name] = (*target.Target)(nil)
		}
	}
	t.availableInputs = avail
	return nil
}

// resolveOne walks every declared input slot for a single identifier,
// applying the branch-crop fallback loop once per slot. It returns the
// resolved target per slot name and whether at least one resolved target's
// branch still equals id's original branch (a task whose every match came
// from a cropped branch is dropped entirely, matching the original's
// "skip targets if no target has the correct branch").
func (t *Task) resolveOne(id ids.Identifier) (map[string]*target.Target, bool, error) {
	allowFallback := t.fallback && t.Machine.Requires != machine.RequiresAny

	resolved := map[string]*target.Target{}
	for name, alts := range t.Machine.Inputs {
		branch := id.Branch
		for {
			var hit *target.Target
			for _, alt := range alts {
				tg, err := alt.Target(id.Index, branch)
				if err != nil {
					return nil, false, err
				}
				if t.engineExists(tg) {
					hit = tg
					break
				}
			}
			if hit != nil {
				resolved[name] = hit
				break
			}
			if allowFallback && !branch.IsEmpty() {
				cropped, ok := branch.Crop(1)
				if !ok {
					break
				}
				branch = cropped
				continue
			}
			break
		}
	}

	matched := false
	for _, tg := range resolved {
		if tg.Branch.Equal(id.Branch) {
			matched = true
			break
		}
	}
	return resolved, matched, nil
}

// engineExists is set by Ready/SafeRun before update is called; see run.go.
func (t *Task) engineExists(tg *target.Target) bool {
	if t.engine == nil {
		return false
	}
	return t.engine.Exists(tg)
}

// Ready reports whether the task can run: every (or, if requires=any, at
// least one) declared input slot resolved to a target, per update's result.
func (t *Task) Ready(engine Engine) bool {
	if len(t.Machine.Inputs) == 0 {
		return true
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.engine = engine
	if err := t.update(); err != nil {
		return false
	}
	return t.availableSatisfiesRequires()
}

// availableSatisfiesRequires checks availableInputs against the machine's
// Requires mode ("all" or "any"); callers hold t.mu. A machine declaring no
// inputs is always satisfied (mirrors Ready's same short-circuit).
func (t *Task) availableSatisfiesRequires() bool {
	if len(t.Machine.Inputs) == 0 {
		return true
	}
	if len(t.availableInputs) == 0 {
		return false
	}
	switch t.Machine.Requires {
	case machine.RequiresAny:
		for _, v := range t.availableInputs {
			if inputPresent(v) {
				return true
			}
		}
		return false
	default:
		for _, v := range t.availableInputs {
			if !inputPresent(v) {
				return false
			}
		}
		return true
	}
}

// Complete reports whether the task's output already exists.
func (t *Task) Complete(engine Engine) bool {
	if t.Output == nil {
		return false
	}
	return engine.Exists(t.Output)
}
