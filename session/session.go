package session

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/py-baudin/machines/cmn"
	"github.com/py-baudin/machines/factory"
	"github.com/py-baudin/machines/graph"
	"github.com/py-baudin/machines/ids"
	"github.com/py-baudin/machines/machine"
	"github.com/py-baudin/machines/storage"
	"github.com/py-baudin/machines/target"
	"github.com/py-baudin/machines/task"
)

// maxCleanupFanout bounds how many storages Cleanup clears concurrently.
const maxCleanupFanout = 4

// Sentinel storage keys, re-exported from pkg factory for session callers
// that build a storages map by hand (session.py's MAIN_STORAGE/TEMP_STORAGE).
const (
	MainStorage = factory.MainStorage
	TempStorage = factory.TempStorage
)

// maxHistoryLength bounds Session.history the same way factory.Factory
// bounds its own tasklist.
const maxHistoryLength = 1000

// Session runs a Toolbox's programs against a bound set of storages and a
// single Factory, ported from session.py's Session.
type Session struct {
	Toolbox *Toolbox
	Factory *factory.Factory

	mu       sync.Mutex
	storages map[string]storage.Storage // deduplicated, for Cleanup/List/Summary/Location
	history  []*task.Task               // every task run() has produced, oldest first, for Monitor
}

// New binds toolbox to storages (expected to carry at least MainStorage;
// TempStorage defaults to an in-memory storage when absent, matching
// factory.New) under a new Factory named name, extending storages with a
// shared main-storage entry for every toolbox program input/output not
// already routed elsewhere - session.py's Session.__init__.
func New(toolbox *Toolbox, storages map[string]storage.Storage, name string, autoCleanup bool) (*Session, error) {
	merged := map[string]storage.Storage{}
	for k, v := range storages {
		merged[k] = v
	}
	main, ok := merged[MainStorage]
	if !ok {
		return nil, fmt.Errorf("session: storages must include a main storage")
	}

	for _, progName := range toolbox.order {
		m, err := toolbox.programs[progName].Solve(nil)
		if err != nil {
			continue
		}
		for _, one := range m {
			for _, dest := range append(one.FlatInputs(), one.FlatOutputs()...) {
				if _, exists := merged[dest]; !exists {
					merged[dest] = main
				}
			}
		}
	}

	f := factory.New(name,
		factory.WithStorages(merged),
		factory.WithAutoCleanup(autoCleanup),
	)

	return &Session{Toolbox: toolbox, Factory: f, storages: merged}, nil
}

// RunOptions parametrizes Run/Autorun, mirroring machine.py's __call__
// keyword arguments.
type RunOptions struct {
	Indices        []ids.Index
	Branches       []ids.Branch
	OutputIndices  []ids.Index
	OutputBranches []ids.Branch
	Parameters     map[string]any
	Mode           storage.WriteMode
	Fallback       bool
	ShowAll        bool // include temporary tasks in the returned list
}

// Run solves program, expands it into a dependency graph over the given
// identifiers, and drives it to completion against the session's Factory,
// recording the tasks in the session's history read by Monitor -
// session.py's Session.run.
func (s *Session) Run(ctx context.Context, program string, opts RunOptions) ([]*task.Task, error) {
	f, err := s.Toolbox.Program(program)
	if err != nil {
		return nil, err
	}
	return s.run(ctx, []machine.MachineFactory{f}, opts)
}

// Autorun additionally pulls in every ancestor program the toolbox knows how
// to build for program's inputs, transitively, before running - session.py's
// Session.autorun / MetaMachine.from_list(get_parents(...)).
func (s *Session) Autorun(ctx context.Context, program string, opts RunOptions) ([]*task.Task, error) {
	rel, err := s.Toolbox.Relationships()
	if err != nil {
		return nil, err
	}

	seen := map[string]bool{}
	var names []string
	var walk func(item string)
	walk = func(item string) {
		for _, producer := range rel[item] {
			if seen[producer] {
				continue
			}
			seen[producer] = true
			names = append(names, producer)
			factory, err := s.Toolbox.Program(producer)
			if err != nil {
				continue
			}
			solved, err := factory.Solve(nil)
			if err != nil {
				continue
			}
			for _, m := range solved {
				for _, name := range m.FlatInputs() {
					walk(name)
				}
			}
		}
	}
	walk(program)

	factories := make([]machine.MachineFactory, 0, len(names))
	for _, name := range names {
		f, err := s.Toolbox.Program(name)
		if err != nil {
			continue
		}
		factories = append(factories, f)
	}
	return s.run(ctx, factories, opts)
}

func (s *Session) run(ctx context.Context, factories []machine.MachineFactory, opts RunOptions) ([]*task.Task, error) {
	g, err := graph.Generate(factories, graph.GenerateOptions{
		Indices:        opts.Indices,
		Branches:       opts.Branches,
		OutputIndices:  opts.OutputIndices,
		OutputBranches: opts.OutputBranches,
		Parameters:     opts.Parameters,
		Mode:           opts.Mode,
		Fallback:       opts.Fallback,
	})
	if err != nil {
		return nil, err
	}
	ran, err := g.Run(ctx, s.Factory, graph.RunOptions{})
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.history = append(s.history, ran...)
	if len(s.history) > maxHistoryLength {
		s.history = s.history[len(s.history)-maxHistoryLength:]
	}
	s.mu.Unlock()

	if opts.ShowAll {
		return ran, nil
	}
	out := ran[:0:0]
	for _, t := range ran {
		if !t.Temporary() {
			out = append(out, t)
		}
	}
	return out, nil
}

// Stop requests the factory stop once the task it is running finishes, then
// optionally blocks until it does - session.py's Session.stop.
func (s *Session) Stop(hold bool) {
	s.Factory.Stop()
	if hold {
		s.Factory.Hold()
	}
}

// Hold blocks until the factory's worker goroutine exits.
func (s *Session) Hold() { s.Factory.Hold() }

// Cleanup clears every temporary target across the session's storages -
// session.py's Session.cleanup. Storages are independent of one another, so
// they're cleared concurrently, bounded to maxCleanupFanout at a time.
func (s *Session) Cleanup() error {
	g := new(errgroup.Group)
	g.SetLimit(maxCleanupFanout)
	for _, st := range s.allStorages() {
		if !st.Temporary() {
			continue
		}
		st := st
		g.Go(func() error { return st.Clear() })
	}
	return g.Wait()
}

// List returns every target across every bound storage, deduplicated by
// signature - session.py's Session.list.
func (s *Session) List() ([]*target.Target, error) {
	seen := map[target.Signature]bool{}
	var out []*target.Target
	for _, st := range s.allStorages() {
		targets, err := st.List()
		if err != nil {
			return nil, err
		}
		for _, tg := range targets {
			if sig := tg.Sig(); !seen[sig] {
				seen[sig] = true
				out = append(out, tg)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Compare(out[j]) < 0 })
	return out, nil
}

// Summary groups every bound storage's targets by storage name -
// session.py's Session.summary.
func (s *Session) Summary() (map[string][]*target.Target, error) {
	out := map[string][]*target.Target{}
	for _, st := range s.allStorages() {
		targets, err := st.List()
		if err != nil {
			return nil, err
		}
		sort.Slice(targets, func(i, j int) bool { return targets[i].Compare(targets[j]) < 0 })
		out[st.Name()] = targets
	}
	return out, nil
}

// Location returns every bound storage's on-disk (or backend-specific)
// location for each of its targets, keyed by storage name.
func (s *Session) Location() (map[string]map[string]string, error) {
	out := map[string]map[string]string{}
	for _, st := range s.allStorages() {
		targets, err := st.List()
		if err != nil {
			return nil, err
		}
		locs := make(map[string]string, len(targets))
		for _, tg := range targets {
			locs[tg.String()] = st.Location(tg)
		}
		out[st.Name()] = locs
	}
	return out, nil
}

// Monitor returns the n most recent tasks in the session's history (the
// tasks Run/Autorun have run), newest first, optionally filtered to a status set, mirroring session.py's
// Session.monitor (its "issues always shown" / "temporary tasks hidden by
// default" rules).
func (s *Session) Monitor(n int, status []cmn.Status, showAll bool) []*task.Task {
	s.mu.Lock()
	all := append([]*task.Task(nil), s.history...)
	s.mu.Unlock()
	if n <= 0 || n > len(all) {
		n = len(all)
	}

	statusSet := map[cmn.Status]bool{}
	for _, st := range status {
		statusSet[st] = true
	}
	issues := map[cmn.Status]bool{cmn.StatusError: true, cmn.StatusRejected: true, cmn.StatusRunning: true}

	var out []*task.Task
	for i := len(all) - 1; i >= 0 && len(out) < n; i-- {
		t := all[i]
		if len(statusSet) > 0 && !statusSet[t.Status] {
			continue
		}
		if !issues[t.Status] && !showAll && t.Temporary() {
			continue
		}
		out = append(out, t)
	}
	return out
}

func (s *Session) allStorages() []storage.Storage {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := map[storage.Storage]bool{}
	var out []storage.Storage
	for _, st := range s.storages {
		if !seen[st] {
			seen[st] = true
			out = append(out, st)
		}
	}
	return out
}
