package toc

import (
	"sync"
	"time"
)

// ImmediateFrames runs every request synchronously.
type ImmediateFrames struct{}

func (ImmediateFrames) RequestFrame(fn func()) { fn() }

// FrameInterval is one frame at 60Hz.
const FrameInterval = time.Second / 60

// TickerFrames batches requests and runs them on a fixed tick, in request
// order. Call Stop to release the goroutine.
type TickerFrames struct {
	mu      sync.Mutex
	pending []func()

	stop chan struct{}
	done chan struct{}
	once sync.Once
}

func NewTickerFrames(interval time.Duration) *TickerFrames {
	if interval <= 0 {
		interval = FrameInterval
	}
	f := &TickerFrames{
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	go f.run(interval)
	return f
}

func (f *TickerFrames) RequestFrame(fn func()) {
	f.mu.Lock()
	f.pending = append(f.pending, fn)
	f.mu.Unlock()
}

func (f *TickerFrames) run(interval time.Duration) {
	defer close(f.done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-f.stop:
			return
		case <-ticker.C:
			f.flush()
		}
	}
}

func (f *TickerFrames) flush() {
	f.mu.Lock()
	batch := f.pending
	f.pending = nil
	f.mu.Unlock()
	for _, fn := range batch {
		fn()
	}
}

// Stop ends the tick loop. Requests still queued are dropped.
func (f *TickerFrames) Stop() {
	f.once.Do(func() { close(f.stop) })
	<-f.done
}
