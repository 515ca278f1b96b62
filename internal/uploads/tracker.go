// Package uploads tracks in-flight uploads for display and reconciles
// completed ones against the record store before dropping them. It owns
// the transient per-upload state machine: queued → uploading →
// (complete | removed on error | removed on cancel).
package uploads

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/dmitrijs2005/mediavault/internal/asset"
	"github.com/dmitrijs2005/mediavault/internal/common"
	"github.com/dmitrijs2005/mediavault/internal/fingerprint"
	"github.com/dmitrijs2005/mediavault/internal/logging"
	"github.com/dmitrijs2005/mediavault/internal/pipeline"
	"github.com/dmitrijs2005/mediavault/internal/store"
)

// Status of a tracked upload.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusUploading Status = "uploading"
	StatusComplete  Status = "complete"
)

// Task is the transient tracking entry for one in-flight upload, keyed
// by content fingerprint so identical-content submissions share a slot.
type Task struct {
	Fingerprint string
	Type        asset.Type
	Name        string
	Size        int64
	Status      Status
	Percent     float64
	PreviewPath string
}

type trackedTask struct {
	Task
	cancel      context.CancelFunc
	completedAt time.Time
}

// Tracker folds pipeline events into queryable per-upload state.
type Tracker struct {
	uploader *pipeline.Uploader
	store    store.Store
	log      logging.Logger

	settleDelay     time.Duration
	reconcileWindow time.Duration

	onComplete func(rec *asset.Record, existed bool)
	onError    func(fp string, err error)

	mu      sync.Mutex
	tasks   map[string]*trackedTask
	order   []string
	pending map[string]struct{}
	timer   *time.Timer
	closed  bool

	wg sync.WaitGroup
}

// Option customizes a Tracker.
type Option func(*Tracker)

// WithLogger sets the tracker logger.
func WithLogger(l logging.Logger) Option {
	return func(t *Tracker) { t.log = l }
}

// WithSettleDelay sets how long a completed upload must age before the
// reconciliation query considers it.
func WithSettleDelay(d time.Duration) Option {
	return func(t *Tracker) { t.settleDelay = d }
}

// WithReconcileWindow sets the batching window for reconciliation
// sweeps.
func WithReconcileWindow(d time.Duration) Option {
	return func(t *Tracker) { t.reconcileWindow = d }
}

// WithCompleteFunc registers a callback invoked on every terminal
// Complete event, including the duplicate-content short circuit.
func WithCompleteFunc(fn func(rec *asset.Record, existed bool)) Option {
	return func(t *Tracker) { t.onComplete = fn }
}

// WithErrorFunc registers a callback receiving terminal upload errors
// verbatim.
func WithErrorFunc(fn func(fp string, err error)) Option {
	return func(t *Tracker) { t.onError = fn }
}

// New constructs a Tracker driving uploads through u and reconciling
// against st.
func New(u *pipeline.Uploader, st store.Store, opts ...Option) *Tracker {
	t := &Tracker{
		uploader:        u,
		store:           st,
		log:             logging.NewNopLogger(),
		settleDelay:     common.DefaultSettleDelay,
		reconcileWindow: common.DefaultReconcileWindow,
		tasks:           make(map[string]*trackedTask),
		pending:         make(map[string]struct{}),
	}
	for _, o := range opts {
		o(t)
	}
	return t
}

// Submit fingerprints src and starts tracking an upload for it. When
// identical content is already tracked the existing entry is reused and
// started reports false: duplicate concurrent submissions are never
// double-queued.
func (t *Tracker) Submit(ctx context.Context, src pipeline.Source, typ asset.Type) (fp string, started bool, err error) {
	data := src.Data
	if data == nil {
		data, err = os.ReadFile(src.Path)
		if err != nil {
			return "", false, fmt.Errorf("%w: %s: %v", common.ErrUnreadableFile, src.Path, err)
		}
		src.Data = data
	}
	fp = fingerprint.SumBytes(data)

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return fp, false, common.ErrUploadCancelled
	}
	if _, exists := t.tasks[fp]; exists {
		t.mu.Unlock()
		return fp, false, nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	t.tasks[fp] = &trackedTask{
		Task: Task{
			Fingerprint: fp,
			Type:        typ,
			Name:        src.Name,
			Size:        int64(len(data)),
			Status:      StatusQueued,
		},
		cancel: cancel,
	}
	t.order = append(t.order, fp)
	t.mu.Unlock()

	events := t.uploader.Upload(runCtx, src, typ)

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		defer cancel()
		t.consume(fp, events)
	}()

	return fp, true, nil
}

// consume folds one pipeline run's events into the task map.
func (t *Tracker) consume(fp string, events <-chan pipeline.Event) {
	terminal := false
	for ev := range events {
		switch e := ev.(type) {
		case pipeline.ProgressEvent:
			t.mu.Lock()
			if task, ok := t.tasks[fp]; ok && task.Status != StatusComplete {
				task.Status = StatusUploading
				if e.Percent > task.Percent {
					task.Percent = e.Percent
				}
			}
			t.mu.Unlock()

		case pipeline.PreviewEvent:
			t.mu.Lock()
			task, ok := t.tasks[fp]
			if ok && task.PreviewPath == "" {
				task.PreviewPath = e.Path
				t.mu.Unlock()
			} else {
				t.mu.Unlock()
				// Task already gone or preview already set: release the file.
				os.Remove(e.Path)
			}

		case pipeline.CompleteEvent:
			t.mu.Lock()
			if task, ok := t.tasks[fp]; ok {
				task.Status = StatusComplete
				task.Percent = 100
				task.completedAt = time.Now()
				t.pending[fp] = struct{}{}
				t.scheduleSweepLocked()
			}
			t.mu.Unlock()
			terminal = true
			if t.onComplete != nil {
				t.onComplete(e.Record, e.Existed)
			}

		case pipeline.ErrorEvent:
			// Errors are terminal: drop the task immediately and surface
			// the message unchanged. Retry of transients already happened
			// inside the transport.
			t.removeTask(fp)
			terminal = true
			if t.onError != nil {
				t.onError(fp, e.Err)
			}
		}
	}

	// A stream that ended without a terminal event was cancelled; drop
	// any leftover tracking entry.
	if !terminal {
		t.removeTask(fp)
	}
}

// Cancel aborts the tracked upload for fp, propagating cancellation to
// whichever suspension point is active, and drops the task. Cancelling
// an unknown fingerprint is a no-op.
func (t *Tracker) Cancel(fp string) {
	t.mu.Lock()
	task, ok := t.tasks[fp]
	t.mu.Unlock()
	if !ok {
		return
	}
	task.cancel()
	t.removeTask(fp)
}

// removeTask drops fp from tracking and releases its preview file.
func (t *Tracker) removeTask(fp string) {
	t.mu.Lock()
	task, ok := t.tasks[fp]
	if ok {
		delete(t.tasks, fp)
		delete(t.pending, fp)
		for i, id := range t.order {
			if id == fp {
				t.order = append(t.order[:i], t.order[i+1:]...)
				break
			}
		}
	}
	t.mu.Unlock()

	if ok && task.PreviewPath != "" {
		os.Remove(task.PreviewPath)
	}
}

// scheduleSweepLocked arms the batched reconciliation timer. Callers
// hold t.mu.
func (t *Tracker) scheduleSweepLocked() {
	if t.timer != nil || t.closed {
		return
	}
	t.timer = time.AfterFunc(t.reconcileWindow, t.sweep)
}

// sweep confirms server-side persistence for completed uploads in one
// batched query, evicting confirmed tasks. Tasks the store has not
// registered yet stay tracked for a later pass instead of disappearing
// prematurely.
func (t *Tracker) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	t.mu.Lock()
	t.timer = nil
	now := time.Now()
	var ready []string
	var tooYoung bool
	for fp := range t.pending {
		task, ok := t.tasks[fp]
		if !ok {
			delete(t.pending, fp)
			continue
		}
		if now.Sub(task.completedAt) < t.settleDelay {
			tooYoung = true
			continue
		}
		ready = append(ready, fp)
	}
	t.mu.Unlock()

	if len(ready) > 0 {
		existing, err := t.store.ExistingFingerprints(ctx, ready)
		if err != nil {
			t.log.Warn(ctx, "reconciliation query failed", "error", err)
		} else {
			for _, fp := range ready {
				if existing[fp] {
					t.log.Debug(ctx, "upload reconciled", "fingerprint", fp)
					t.removeTask(fp)
				}
			}
		}
	}

	// Anything still pending gets another pass.
	t.mu.Lock()
	if (len(t.pending) > 0 || tooYoung) && !t.closed {
		t.scheduleSweepLocked()
	}
	t.mu.Unlock()
}

// Snapshot returns the tracked tasks in submission order.
func (t *Tracker) Snapshot() []Task {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]Task, 0, len(t.order))
	for _, fp := range t.order {
		if task, ok := t.tasks[fp]; ok {
			out = append(out, task.Task)
		}
	}
	return out
}

// Close cancels every in-flight upload, stops the sweep timer and waits
// for event consumers to drain.
func (t *Tracker) Close() {
	t.mu.Lock()
	t.closed = true
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	tasks := make([]*trackedTask, 0, len(t.tasks))
	for _, task := range t.tasks {
		tasks = append(tasks, task)
	}
	t.mu.Unlock()

	for _, task := range tasks {
		task.cancel()
	}
	t.wg.Wait()
}
