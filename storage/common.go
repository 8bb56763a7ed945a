package storage

import (
	"sync"

	"github.com/py-baudin/machines/cmn"
	"github.com/py-baudin/machines/target"
)

// Backend is the pluggable data mechanics a Common storage delegates to -
// mirrors the "memory" argument of the original's TargetStorage (a dict, or
// a FileDB, or any dict-like object). Write/Remove/Read act on the raw
// value; write-mode comparison, locking, and callbacks are handled once by
// Common so every backend gets them for free.
type Backend interface {
	Exists(t *target.Target) bool
	Read(t *target.Target) (any, error)
	Write(t *target.Target, data any) error
	Remove(t *target.Target) error
	List() ([]*target.Target, error)
	Failed() []string
	Location(t *target.Target) string
	Check(t *target.Target) error
}

// Common implements the full Storage interface on top of a Backend,
// ported from storages.py's TargetStorage (the withlock-guarded RLock,
// target_lock set, comparators map, and on_write/on_read/on_del callbacks
// are all shared here instead of per-backend).
type Common struct {
	mu        sync.RWMutex
	name      string
	backend   Backend
	temporary bool

	locked      map[string]bool
	comparators map[string]Comparator
	signature   SignatureFunc

	onWrite OnWriteFunc
	onRead  OnReadFunc
	onDel   OnDelFunc
}

// NewCommon wraps backend into a full Storage, named name. temporary marks
// it eligible for Cleanup (spec.md 4.2's "temporary storage").
func NewCommon(name string, backend Backend, temporary bool) *Common {
	return &Common{
		name:        name,
		backend:     backend,
		temporary:   temporary,
		locked:      map[string]bool{},
		comparators: map[string]Comparator{},
	}
}

func (c *Common) Name() string      { return c.name }
func (c *Common) Temporary() bool    { return c.temporary }

func (c *Common) Exists(t *target.Target) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.backend.Exists(t)
}

func (c *Common) Locked(t *target.Target) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.backend.Exists(t) {
		return false
	}
	return c.locked[t.Name]
}

func (c *Common) Lock(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.locked[name] = true
}

func (c *Common) Unlock(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.locked, name)
}

func (c *Common) SetComparator(name string, cmp Comparator) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.comparators[name] = cmp
}

func (c *Common) SetSignature(fn SignatureFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.signature = fn
}

func (c *Common) SetCallbacks(onWrite OnWriteFunc, onRead OnReadFunc, onDel OnDelFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onWrite, c.onRead, c.onDel = onWrite, onRead, onDel
}

func (c *Common) Check(t *target.Target) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.backend.Check(t)
}

func (c *Common) Location(t *target.Target) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.backend.Location(t)
}

func (c *Common) List() ([]*target.Target, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.backend.List()
}

func (c *Common) Failed() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.backend.Failed()
}

func (c *Common) Read(t *target.Target) (any, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.onRead != nil {
		c.onRead(t)
	}
	data, err := c.backend.Read(t)
	if err != nil {
		return nil, cmn.TargetDoesNotExist(t.String())
	}
	return data, nil
}

func (c *Common) Write(t *target.Target, data any, mode WriteMode) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.locked[t.Name] {
		return cmn.TargetIsLocked(t.Name)
	}

	exists := c.backend.Exists(t)

	if mode == ModeTest {
		// test never changes storage, whether or not the target exists yet.
		if exists {
			_, err := c.compareLocked(t, data)
			return err
		}
		return nil
	}

	if exists {
		switch mode {
		case ModeUpgrade:
			same, err := c.compareLocked(t, data)
			if err != nil {
				return err
			}
			if same {
				return nil
			}
			// different: fall through to overwrite
		case ModeOverwrite:
			// fall through to overwrite
		case ModeUnset:
			return cmn.TargetAlreadyExists(t.String())
		}
	}

	if err := c.backend.Write(t, data); err != nil {
		return err
	}
	if c.onWrite != nil {
		c.onWrite(t, data)
	}
	if c.signature != nil {
		if err := c.signature(c.backend.Location(t)); err != nil {
			return err
		}
	}
	return nil
}

func (c *Common) compareLocked(t *target.Target, next any) (bool, error) {
	prev, err := c.backend.Read(t)
	if err != nil {
		return false, cmn.TargetDoesNotExist(t.String())
	}
	if cmp, ok := c.comparators[t.Name]; ok {
		return cmp(prev, next), nil
	}
	return equalValue(prev, next), nil
}

func (c *Common) Copy(src, dst *target.Target) error {
	c.mu.Lock()
	existsSrc := c.backend.Exists(src)
	existsDst := c.backend.Exists(dst)
	c.mu.Unlock()
	if !existsSrc {
		return cmn.TargetDoesNotExist(src.String())
	}
	if existsDst {
		return cmn.TargetAlreadyExists(dst.String())
	}
	data, err := c.Read(src)
	if err != nil {
		return err
	}
	return c.Write(dst, data, ModeUnset)
}

func (c *Common) Remove(t *target.Target) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.locked[t.Name] {
		return cmn.TargetIsLocked(t.Name)
	}
	if !c.backend.Exists(t) {
		return cmn.TargetDoesNotExist(t.String())
	}
	if err := c.backend.Remove(t); err != nil {
		return err
	}
	if c.onDel != nil {
		c.onDel(t)
	}
	return nil
}

func (c *Common) Clear() error {
	c.mu.RLock()
	targets, err := c.backend.List()
	c.mu.RUnlock()
	if err != nil {
		return err
	}
	for _, t := range targets {
		if err := c.Remove(t); err != nil {
			return err
		}
	}
	return nil
}

// Cleanup removes non-final targets from a temporary storage, ported from
// TargetStorage.cleanup: inputs of SUCCESS/SKIPPED/REJECTED tasks are
// removed, inputs of ERROR tasks are kept.
func (c *Common) Cleanup(summary []Summary) error {
	if !c.temporary {
		return nil
	}
	all := map[target.Signature]*target.Target{}
	keep := map[target.Signature]bool{}

	for _, s := range summary {
		if !s.Status.Terminal() {
			continue
		}
		var present []*target.Target
		for _, t := range s.Inputs {
			if t != nil && c.Exists(t) {
				present = append(present, t)
			}
		}
		if len(present) == 0 {
			continue
		}
		for _, t := range present {
			all[t.Sig()] = t
			if s.Status == cmn.StatusError {
				keep[t.Sig()] = true
			}
		}
	}

	for sig, t := range all {
		if keep[sig] {
			continue
		}
		if err := c.Remove(t); err != nil {
			return err
		}
	}
	return nil
}

func equalValue(a, b any) bool {
	return deepEqual(a, b)
}
