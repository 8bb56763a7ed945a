package storage

import (
	"github.com/py-baudin/machines/cmn"
	"github.com/py-baudin/machines/target"
)

// memoryBackend is a plain map[Signature]value Backend, ported from
// storages.py's MemoryStorage (memory={}).
type memoryBackend struct {
	data    map[target.Signature]any
	targets map[target.Signature]*target.Target
}

func newMemoryBackend() *memoryBackend {
	return &memoryBackend{data: map[target.Signature]any{}, targets: map[target.Signature]*target.Target{}}
}

func (m *memoryBackend) Exists(t *target.Target) bool {
	_, ok := m.data[t.Sig()]
	return ok
}

func (m *memoryBackend) Read(t *target.Target) (any, error) {
	v, ok := m.data[t.Sig()]
	if !ok {
		return nil, cmn.TargetDoesNotExist(t.String())
	}
	return v, nil
}

func (m *memoryBackend) Write(t *target.Target, data any) error {
	sig := t.Sig()
	m.data[sig] = data
	m.targets[sig] = t
	return nil
}

func (m *memoryBackend) Remove(t *target.Target) error {
	sig := t.Sig()
	if _, ok := m.data[sig]; !ok {
		return cmn.TargetDoesNotExist(t.String())
	}
	delete(m.data, sig)
	delete(m.targets, sig)
	return nil
}

func (m *memoryBackend) List() ([]*target.Target, error) {
	out := make([]*target.Target, 0, len(m.targets))
	for _, t := range m.targets {
		out = append(out, t)
	}
	return out, nil
}

func (m *memoryBackend) Failed() []string { return nil }

func (m *memoryBackend) Location(t *target.Target) string { return "memory" }

func (m *memoryBackend) Check(t *target.Target) error { return nil }

// NewMemory builds an in-memory Storage backend. temporary marks it
// eligible for Cleanup, matching the factory's default scratch storage.
func NewMemory(temporary bool) *Common {
	return NewCommon("memory", newMemoryBackend(), temporary)
}
