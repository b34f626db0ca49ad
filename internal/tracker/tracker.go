package tracker

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Sink receives aggregated view counts keyed by slug.
type Sink interface {
	IncrementViews(ctx context.Context, deltas map[string]int64) error
}

// Options configures a Tracker.
type Options struct {
	QueueSize     int
	FlushInterval time.Duration
}

// Stats is a point-in-time view of tracker counters.
type Stats struct {
	Queued      int   `json:"queued"`
	Pending     int   `json:"pending_slugs"`
	Recorded    int64 `json:"recorded"`
	Dropped     int64 `json:"dropped"`
	Flushed     int64 `json:"flushed"`
	FlushErrors int64 `json:"flush_errors"`
}

// Tracker counts project views off the request path. Record never blocks;
// a single worker aggregates views and writes them in batches.
type Tracker struct {
	sink     Sink
	log      *slog.Logger
	queue    chan string
	interval time.Duration

	mu      sync.Mutex
	pending map[string]int64

	recorded    atomic.Int64
	dropped     atomic.Int64
	flushed     atomic.Int64
	flushErrors atomic.Int64

	stopped  atomic.Bool
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// New creates a tracker. Call Start to begin flushing.
func New(sink Sink, opts Options, log *slog.Logger) *Tracker {
	if opts.QueueSize <= 0 {
		opts.QueueSize = 256
	}
	if opts.FlushInterval <= 0 {
		opts.FlushInterval = 10 * time.Second
	}
	return &Tracker{
		sink:     sink,
		log:      log.With("component", "tracker"),
		queue:    make(chan string, opts.QueueSize),
		interval: opts.FlushInterval,
		pending:  make(map[string]int64),
	}
}

// Start launches the worker goroutine.
func (t *Tracker) Start(ctx context.Context) {
	workerCtx, cancel := context.WithCancel(ctx)
	t.cancel = cancel

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		ticker := time.NewTicker(t.interval)
		defer ticker.Stop()
		for {
			select {
			case <-workerCtx.Done():
				t.drain()
				return
			case slug := <-t.queue:
				t.add(slug)
			case <-ticker.C:
				t.flush(workerCtx)
			}
		}
	}()
}

// Record queues one view of slug. It reports false when the view was
// dropped because the queue is full or the tracker is stopped.
func (t *Tracker) Record(slug string) bool {
	if slug == "" || t.stopped.Load() {
		return false
	}
	select {
	case t.queue <- slug:
		t.recorded.Add(1)
		return true
	default:
		t.dropped.Add(1)
		return false
	}
}

// Stop drains queued views, writes them and waits for the worker.
func (t *Tracker) Stop() {
	t.stopOnce.Do(func() {
		t.stopped.Store(true)
		if t.cancel != nil {
			t.cancel()
		}
		t.wg.Wait()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		t.flush(ctx)
	})
}

// Stats returns the current counters.
func (t *Tracker) Stats() Stats {
	t.mu.Lock()
	pending := len(t.pending)
	t.mu.Unlock()
	return Stats{
		Queued:      len(t.queue),
		Pending:     pending,
		Recorded:    t.recorded.Load(),
		Dropped:     t.dropped.Load(),
		Flushed:     t.flushed.Load(),
		FlushErrors: t.flushErrors.Load(),
	}
}

func (t *Tracker) add(slug string) {
	t.mu.Lock()
	t.pending[slug]++
	t.mu.Unlock()
}

func (t *Tracker) drain() {
	for {
		select {
		case slug := <-t.queue:
			t.add(slug)
		default:
			return
		}
	}
}

// flush writes pending counts. On failure the counts are merged back so
// the next flush retries them.
func (t *Tracker) flush(ctx context.Context) {
	t.mu.Lock()
	if len(t.pending) == 0 {
		t.mu.Unlock()
		return
	}
	batch := t.pending
	t.pending = make(map[string]int64)
	t.mu.Unlock()

	if err := t.sink.IncrementViews(ctx, batch); err != nil {
		t.flushErrors.Add(1)
		t.log.Warn("view flush failed", "slugs", len(batch), "error", err)
		t.mu.Lock()
		for slug, n := range batch {
			t.pending[slug] += n
		}
		t.mu.Unlock()
		return
	}

	var total int64
	for _, n := range batch {
		total += n
	}
	t.flushed.Add(total)
	t.log.Debug("views flushed", "slugs", len(batch), "views", total)
}
