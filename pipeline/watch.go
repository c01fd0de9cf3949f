package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultSettle is how long a file must stay quiet before it is loaded.
const DefaultSettle = 500 * time.Millisecond

// Watcher loads every CSV that lands in a directory.
type Watcher struct {
	ingester *Ingester
	logger   *zap.Logger
	Settle   time.Duration
	// OnLoad, when set, is called after each load attempt.
	OnLoad func(Stats, error)
}

func NewWatcher(ingester *Ingester, logger *zap.Logger) *Watcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Watcher{ingester: ingester, logger: logger, Settle: DefaultSettle}
}

// Watch blocks until ctx is done. Each new or rewritten .csv file in dir is
// loaded with template, its Source replaced by the file path. A failed load
// is logged and watching continues.
func (w *Watcher) Watch(ctx context.Context, dir string, template Job) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	w.logger.Info("watching for csv files", zap.String("dir", dir))

	settle := w.Settle
	if settle <= 0 {
		settle = DefaultSettle
	}
	q := newSettleQueue(ctx, settle)
	defer q.stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !isCSV(ev.Name) || !(ev.Has(fsnotify.Create) || ev.Has(fsnotify.Write)) {
				continue
			}
			q.touch(ev.Name)

		case entry := <-q.ready:
			if !q.take(entry) {
				continue
			}
			name := entry.name
			job := template
			job.Source = name
			stats, err := w.ingester.Run(ctx, job)
			if err != nil {
				w.logger.Error("load failed",
					zap.String("source", name),
					zap.String("reason", Describe(job, err)),
					zap.Error(err))
			}
			if w.OnLoad != nil {
				w.OnLoad(stats, err)
			}

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watcher error", zap.Error(err))
		}
	}
}

// settleQueue delivers a file name once no event has touched it for the
// settle window. Only the goroutine running Watch calls touch and take.
type settleQueue struct {
	ctx     context.Context
	settle  time.Duration
	pending map[string]*settleEntry
	ready   chan *settleEntry
}

type settleEntry struct {
	name  string
	timer *time.Timer
}

func newSettleQueue(ctx context.Context, settle time.Duration) *settleQueue {
	return &settleQueue{
		ctx:     ctx,
		settle:  settle,
		pending: make(map[string]*settleEntry),
		ready:   make(chan *settleEntry),
	}
}

// touch restarts the window for name. A timer that already fired cannot be
// reset, so it is replaced and its delivery becomes stale.
func (q *settleQueue) touch(name string) {
	if e, ok := q.pending[name]; ok && e.timer.Stop() {
		e.timer.Reset(q.settle)
		return
	}
	e := &settleEntry{name: name}
	e.timer = time.AfterFunc(q.settle, func() {
		select {
		case q.ready <- e:
		case <-q.ctx.Done():
		}
	})
	q.pending[name] = e
}

// take accepts a delivery if it is still the live entry for its name.
func (q *settleQueue) take(e *settleEntry) bool {
	if q.pending[e.name] != e {
		return false
	}
	delete(q.pending, e.name)
	return true
}

func (q *settleQueue) stop() {
	for _, e := range q.pending {
		e.timer.Stop()
	}
}

func isCSV(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".csv")
}
