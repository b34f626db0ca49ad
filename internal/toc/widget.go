package toc

import (
	"sync"
)

// Viewport reports where anchors sit and scrolls to them.
type Viewport interface {
	// AnchorTop returns the anchor's distance from the top of the viewport.
	// ok is false when the anchor is no longer in the document.
	AnchorTop(id string) (top float64, ok bool)
	ScrollTo(id string, smooth bool)
}

// ScrollSource delivers scroll and resize notifications.
type ScrollSource interface {
	OnScroll(handler func()) (unsubscribe func())
}

// FrameScheduler runs fn on the next animation frame.
type FrameScheduler interface {
	RequestFrame(fn func())
}

// Presentation selects how a widget is laid out.
type Presentation int

const (
	// Inline is the always-visible sidebar on wide layouts.
	Inline Presentation = iota
	// Floating is the collapsible trigger on narrow layouts.
	Floating
)

func (p Presentation) String() string {
	if p == Floating {
		return "floating"
	}
	return "inline"
}

// State is the expand/collapse state of a widget.
type State int

const (
	Collapsed State = iota
	Expanded
)

func (s State) String() string {
	if s == Expanded {
		return "expanded"
	}
	return "collapsed"
}

// DefaultOffset is the viewport offset, in pixels, below which a heading
// no longer counts as the active one.
const DefaultOffset = 100

// Options configures a Widget.
type Options struct {
	Presentation Presentation
	Offset       float64
	Viewport     Viewport
	Frames       FrameScheduler
}

// Widget owns the outline, expand state and active entry for one ToC
// instance. Instances never share state.
type Widget struct {
	mu sync.Mutex

	entries []HeadingEntry
	outline []*OutlineNode
	pres    Presentation
	offset  float64
	vp      Viewport
	frames  FrameScheduler

	state     State
	activeIdx int // -1 when nothing is active

	source       ScrollSource
	unsubscribe  func()
	framePending bool
	gen          uint64 // bumped by Select; frames from older generations are dropped
	closed       bool
}

// NewWidget builds a widget over entries. The widget starts Collapsed
// with no active entry.
func NewWidget(entries []HeadingEntry, opts Options) *Widget {
	if opts.Offset == 0 {
		opts.Offset = DefaultOffset
	}
	if opts.Frames == nil {
		opts.Frames = ImmediateFrames{}
	}
	return &Widget{
		entries:   entries,
		outline:   Build(entries),
		pres:      opts.Presentation,
		offset:    opts.Offset,
		vp:        opts.Viewport,
		frames:    opts.Frames,
		activeIdx: -1,
	}
}

// Empty reports whether there is nothing to render.
func (w *Widget) Empty() bool {
	return len(w.entries) == 0
}

func (w *Widget) Outline() []*OutlineNode {
	return w.outline
}

func (w *Widget) Presentation() Presentation {
	return w.pres
}

func (w *Widget) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Active returns the currently highlighted entry.
func (w *Widget) Active() (HeadingEntry, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.activeIdx < 0 {
		return HeadingEntry{}, false
	}
	return w.entries[w.activeIdx], true
}

// Listening reports whether a scroll handler is currently registered.
func (w *Widget) Listening() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.unsubscribe != nil
}

// Mount attaches the widget to a scroll source. Tracking starts right
// away for inline widgets and on expand for floating ones. Empty widgets
// never register a listener.
func (w *Widget) Mount(src ScrollSource) {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.source = src
	frame, stop := w.syncTrackingLocked()
	w.mu.Unlock()
	w.after(frame, stop)
}

// Toggle flips between Collapsed and Expanded.
func (w *Widget) Toggle() State {
	w.mu.Lock()
	if w.state == Collapsed {
		w.state = Expanded
	} else {
		w.state = Collapsed
	}
	frame, stop := w.syncTrackingLocked()
	state := w.state
	w.mu.Unlock()
	w.after(frame, stop)
	return state
}

// Select scrolls to the entry with the given id, makes it active and
// collapses the widget. It reports false for unknown ids. Frames queued
// before the call do not override the selection.
func (w *Widget) Select(id string) bool {
	w.mu.Lock()
	idx := w.indexLocked(id)
	if idx < 0 || w.closed {
		w.mu.Unlock()
		return false
	}
	w.activeIdx = idx
	w.state = Collapsed
	w.gen++
	w.framePending = false
	frame, stop := w.syncTrackingLocked()
	vp := w.vp
	w.mu.Unlock()
	w.after(frame, stop)

	if vp != nil {
		vp.ScrollTo(id, true)
	}
	return true
}

// Close deregisters every listener. The widget ignores later events.
func (w *Widget) Close() {
	w.mu.Lock()
	w.closed = true
	stop := w.takeUnsubscribeLocked()
	w.source = nil
	w.mu.Unlock()
	w.after(nil, stop)
}

func (w *Widget) indexLocked(id string) int {
	for i, e := range w.entries {
		if e.ID == id {
			return i
		}
	}
	return -1
}

// trackingLocked reports whether continuous recomputation should run now.
func (w *Widget) trackingLocked() bool {
	if w.closed || w.source == nil || len(w.entries) == 0 || w.vp == nil {
		return false
	}
	return w.pres == Inline || w.state == Expanded
}

// syncTrackingLocked subscribes or unsubscribes to match the current
// state. It returns a first frame to schedule and an unsubscribe to run,
// both to be handed to after once the lock is released.
func (w *Widget) syncTrackingLocked() (frame, stop func()) {
	want := w.trackingLocked()
	switch {
	case want && w.unsubscribe == nil:
		w.unsubscribe = w.source.OnScroll(w.onScroll)
		return w.markPendingLocked(), nil
	case !want && w.unsubscribe != nil:
		return nil, w.takeUnsubscribeLocked()
	}
	return nil, nil
}

func (w *Widget) takeUnsubscribeLocked() func() {
	stop := w.unsubscribe
	w.unsubscribe = nil
	return stop
}

// after runs work collected under w.mu. Unsubscribing happens outside the
// lock because a source may wait for in-flight handlers, which take w.mu.
func (w *Widget) after(frame, stop func()) {
	if stop != nil {
		stop()
	}
	if frame != nil {
		w.frames.RequestFrame(frame)
	}
}

// onScroll coalesces notifications so at most one recomputation runs per
// frame. The frame reads positions when it fires, so the last scroll
// before it is always reflected.
func (w *Widget) onScroll() {
	w.mu.Lock()
	frame := w.markPendingLocked()
	w.mu.Unlock()
	w.after(frame, nil)
}

// markPendingLocked returns the frame to schedule, or nil when one is
// already pending or tracking is off.
func (w *Widget) markPendingLocked() func() {
	if w.framePending || !w.trackingLocked() {
		return nil
	}
	w.framePending = true
	gen := w.gen
	return func() { w.recompute(gen) }
}

func (w *Widget) recompute(gen uint64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if gen != w.gen {
		return
	}
	w.framePending = false
	if !w.trackingLocked() {
		return
	}
	if idx, ok := nearestIndex(w.entries, w.vp, w.offset); ok {
		w.activeIdx = idx
	}
}

// Nearest returns the entry whose anchor is closest to, but not below,
// offset. Ties go to the earlier entry. Anchors missing from the
// document are skipped.
func Nearest(entries []HeadingEntry, vp Viewport, offset float64) (HeadingEntry, bool) {
	idx, ok := nearestIndex(entries, vp, offset)
	if !ok {
		return HeadingEntry{}, false
	}
	return entries[idx], true
}

func nearestIndex(entries []HeadingEntry, vp Viewport, offset float64) (int, bool) {
	best := -1
	var bestTop float64
	for i, e := range entries {
		top, ok := vp.AnchorTop(e.ID)
		if !ok || top > offset {
			continue
		}
		if best < 0 || top > bestTop {
			best = i
			bestTop = top
		}
	}
	return best, best >= 0
}
