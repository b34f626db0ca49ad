package metrics

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/zg0ul/portfolio/internal/project"
)

// InstrumentedStore records per-operation latency for a project.Store.
type InstrumentedStore struct {
	next   project.Store
	log    *slog.Logger
	window time.Duration

	mu    sync.Mutex
	stats map[string]*LatencyStats
}

var _ project.Store = (*InstrumentedStore)(nil)

func NewInstrumentedStore(next project.Store, window time.Duration, log *slog.Logger) *InstrumentedStore {
	return &InstrumentedStore{
		next:   next,
		log:    log.With("component", "store"),
		window: window,
		stats:  make(map[string]*LatencyStats),
	}
}

func (s *InstrumentedStore) observe(op string, start time.Time, err error) {
	// Not-found is a normal answer for slug lookups, not a backend failure.
	failed := err != nil && !errors.Is(err, project.ErrNotFound)

	s.mu.Lock()
	st, ok := s.stats[op]
	if !ok {
		st = NewLatencyStats(s.window)
		s.stats[op] = st
	}
	s.mu.Unlock()

	elapsed := time.Since(start)
	st.Record(elapsed, failed)
	if failed {
		s.log.Error("store operation failed", "op", op, "duration_ms", elapsed.Milliseconds(), "error", err)
	}
}

// Snapshot returns the current stats keyed by operation name.
func (s *InstrumentedStore) Snapshot() map[string]StatsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]StatsSnapshot, len(s.stats))
	for op, st := range s.stats {
		out[op] = st.Snapshot()
	}
	return out
}

func (s *InstrumentedStore) FetchBySlug(ctx context.Context, slug string) (p *project.Project, err error) {
	defer func(start time.Time) { s.observe("fetch_by_slug", start, err) }(time.Now())
	return s.next.FetchBySlug(ctx, slug)
}

func (s *InstrumentedStore) Get(ctx context.Context, id string) (p *project.Project, err error) {
	defer func(start time.Time) { s.observe("get", start, err) }(time.Now())
	return s.next.Get(ctx, id)
}

func (s *InstrumentedStore) List(ctx context.Context, opts project.ListOptions) (ps []project.Project, err error) {
	defer func(start time.Time) { s.observe("list", start, err) }(time.Now())
	return s.next.List(ctx, opts)
}

func (s *InstrumentedStore) Create(ctx context.Context, p *project.Project) (out *project.Project, err error) {
	defer func(start time.Time) { s.observe("create", start, err) }(time.Now())
	return s.next.Create(ctx, p)
}

func (s *InstrumentedStore) Update(ctx context.Context, id string, patch project.Patch) (out *project.Project, err error) {
	defer func(start time.Time) { s.observe("update", start, err) }(time.Now())
	return s.next.Update(ctx, id, patch)
}

func (s *InstrumentedStore) Delete(ctx context.Context, id string) (err error) {
	defer func(start time.Time) { s.observe("delete", start, err) }(time.Now())
	return s.next.Delete(ctx, id)
}

func (s *InstrumentedStore) Related(ctx context.Context, excludeID string, limit int) (out []project.Summary, err error) {
	defer func(start time.Time) { s.observe("related", start, err) }(time.Now())
	return s.next.Related(ctx, excludeID, limit)
}

func (s *InstrumentedStore) IncrementViews(ctx context.Context, deltas map[string]int64) (err error) {
	defer func(start time.Time) { s.observe("increment_views", start, err) }(time.Now())
	return s.next.IncrementViews(ctx, deltas)
}

func (s *InstrumentedStore) Close() error {
	return s.next.Close()
}
