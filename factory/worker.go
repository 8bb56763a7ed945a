package factory

import (
	"context"
	"time"

	"github.com/py-baudin/machines/cmn"
	"github.com/py-baudin/machines/nlog"
	"github.com/py-baudin/machines/storage"
	"github.com/py-baudin/machines/task"
)

// loopSleep paces the inner drain loop, mirroring factory.py's
// LOOP_SLEEP_TIME (1ms) between queue pops.
const loopSleep = time.Millisecond

// runWorker is the double loop of factory.py's WorkThread.run: drain the
// queue once (inner loop), re-queue anything left PENDING, and keep going
// as long as the last drain made progress (outer loop).
func (f *Factory) runWorker(ctx context.Context) {
	defer f.workerWG.Done()
	defer func() {
		f.mu.Lock()
		f.running = false
		f.mu.Unlock()
	}()

	var summary []*task.Task

	for {
		var pending []*task.Task
		updated := false

		for {
			t := f.queue.get()
			if t == nil {
				break
			}

			start := time.Now()
			status := t.SafeRun(ctx, f)
			if f.metrics != nil {
				f.metrics.TaskDuration.WithLabelValues(f.name).Observe(time.Since(start).Seconds())
				f.observeStatus(status)
			}

			if f.stopOnError && status == cmn.StatusError {
				f.Stop()
			}
			updated = updated || status == cmn.StatusSuccess

			if status == cmn.StatusPending {
				pending = append(pending, t)
			} else {
				summary = append(summary, t)
			}

			if f.stopping() {
				break
			}
			time.Sleep(loopSleep)
		}

		f.mu.Lock()
		for _, t := range pending {
			f.queue.put(t)
		}
		if f.metrics != nil {
			f.metrics.QueueDepth.WithLabelValues(f.name).Set(float64(f.queue.size()))
		}
		stop := f.stopFlag
		f.mu.Unlock()

		if stop {
			break
		}
		if !updated {
			break
		}
	}

	if f.queue.size() == 0 {
		nlog.Infof("stopping factory: %s (empty queue)", f)
	} else {
		nlog.Infof("stopping factory: %s (%d tasks pending)", f, f.queue.size())
	}

	f.runCallback(summary)
}

func (f *Factory) observeStatus(status cmn.Status) {
	switch status {
	case cmn.StatusSuccess:
		f.metrics.TasksSucceeded.WithLabelValues(f.name).Inc()
	case cmn.StatusPending:
		f.metrics.TasksPending.WithLabelValues(f.name).Inc()
	case cmn.StatusRejected:
		f.metrics.TasksRejected.WithLabelValues(f.name).Inc()
	case cmn.StatusError:
		f.metrics.TasksErrored.WithLabelValues(f.name).Inc()
	}
}

// runCallback runs the registered completion callback, drops the tasks still
// queued when nosession is set, and, when auto-cleanup is on, runs Cleanup on
// every temporary storage - factory.py's Factory.callback.
func (f *Factory) runCallback(summary []*task.Task) {
	nlog.Debugln("running callback for factory:", f)
	if f.callback != nil {
		f.callback(summary)
	}

	if f.nosession {
		nlog.Infof("remove %d pending tasks", f.queue.size())
		f.queue.reset()
	}

	if !f.autoCleanup {
		return
	}
	storageSummary := make([]storage.Summary, len(summary))
	for i, t := range summary {
		storageSummary[i] = t.Summary()
	}
	for _, s := range f.allStorages() {
		if !s.Temporary() {
			continue
		}
		if err := s.Cleanup(storageSummary); err != nil {
			nlog.Errorf("%s: cleanup failed: %v", f, err)
		}
	}
}

func (f *Factory) allStorages() []storage.Storage {
	seen := map[storage.Storage]bool{f.mainStorage: true}
	out := []storage.Storage{f.mainStorage}
	if f.tempStorage != nil && !seen[f.tempStorage] {
		out = append(out, f.tempStorage)
		seen[f.tempStorage] = true
	}
	for _, s := range f.storages {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
