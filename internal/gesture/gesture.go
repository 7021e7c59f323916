// Package gesture turns raw pointer and keyboard events on an alert row into
// tap, double-tap and hold gestures.
//
// A pointer-down arms a hold timer. The matching pointer-up either reports a
// hold (the timer already fired), completes a double tap (a previous tap was
// seen within the double-tap window) or starts the single-tap timer, which
// reports a tap if no second tap arrives first. Enter and Space report a tap
// immediately.
package gesture

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Timings match the dashboard frontend's conventions.
const (
	HoldDelay       = 500 * time.Millisecond
	DoubleTapWindow = 250 * time.Millisecond
	TapDelay        = 260 * time.Millisecond
)

// PrimaryButton is the only pointer button that produces gestures.
const PrimaryButton = 0

// Kind identifies a recognised gesture.
type Kind int

const (
	Tap Kind = iota + 1
	DoubleTap
	Hold
)

func (k Kind) String() string {
	switch k {
	case Tap:
		return "tap"
	case DoubleTap:
		return "double_tap"
	case Hold:
		return "hold"
	default:
		return "unknown"
	}
}

// State is the disambiguator's position in the pointer sequence.
type State int

const (
	Idle State = iota
	Holding
	Held
)

func (s State) String() string {
	switch s {
	case Holding:
		return "holding"
	case Held:
		return "held"
	default:
		return "idle"
	}
}

// Event is a recognised gesture on a target (an alert row key).
type Event struct {
	Kind     Kind
	Target   string
	Keyboard bool
}

// Handler receives recognised gestures. It is never called with the
// disambiguator's lock held, and may be called from a timer goroutine.
type Handler func(Event)

// Disambiguator tracks one pointer sequence at a time. Timer callbacks run on
// clock goroutines, so the mutable state is guarded by mu; generation counters
// discard callbacks from timers that were superseded after they fired.
type Disambiguator struct {
	clock   clockwork.Clock
	handler Handler

	mu        sync.Mutex
	state     State
	holdFired bool
	lastTap   time.Time
	holdTimer clockwork.Timer
	tapTimer  clockwork.Timer
	holdGen   uint64
	tapGen    uint64
	closed    bool
}

// New creates a Disambiguator that reports gestures to handler.
func New(clock clockwork.Clock, handler Handler) *Disambiguator {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Disambiguator{clock: clock, handler: handler}
}

// State reports the current pointer state.
func (d *Disambiguator) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// PointerDown starts a press. Non-primary buttons are ignored.
func (d *Disambiguator) PointerDown(button int) {
	if button != PrimaryButton {
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}

	d.stopHoldLocked()
	d.holdFired = false
	d.state = Holding
	gen := d.holdGen
	d.holdTimer = d.clock.AfterFunc(HoldDelay, func() { d.onHoldTimer(gen) })
}

// PointerUp ends a press on target and reports a hold or double tap
// immediately, or arms the single-tap timer.
func (d *Disambiguator) PointerUp(button int, target string) {
	if button != PrimaryButton {
		return
	}

	ev, ok := d.pointerUp(target)
	if ok {
		d.emit(ev)
	}
}

func (d *Disambiguator) pointerUp(target string) (Event, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return Event{}, false
	}

	d.stopHoldLocked()
	d.state = Idle

	if d.holdFired {
		d.holdFired = false
		return Event{Kind: Hold, Target: target}, true
	}

	now := d.clock.Now()
	if !d.lastTap.IsZero() && now.Sub(d.lastTap) < DoubleTapWindow {
		d.lastTap = time.Time{}
		d.stopTapLocked()
		return Event{Kind: DoubleTap, Target: target}, true
	}

	d.lastTap = now
	d.stopTapLocked()
	gen := d.tapGen
	d.tapTimer = d.clock.AfterFunc(TapDelay, func() { d.onTapTimer(gen, target) })
	return Event{}, false
}

// KeyDown reports a tap for Enter or Space without any timing logic.
func (d *Disambiguator) KeyDown(key, target string) {
	if key != "Enter" && key != " " {
		return
	}

	d.mu.Lock()
	closed := d.closed
	d.mu.Unlock()
	if closed {
		return
	}
	d.emit(Event{Kind: Tap, Target: target, Keyboard: true})
}

// Close cancels pending timers. No gesture is reported afterwards.
func (d *Disambiguator) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	d.stopHoldLocked()
	d.stopTapLocked()
	d.state = Idle
}

func (d *Disambiguator) onHoldTimer(gen uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed || gen != d.holdGen {
		return
	}
	d.holdFired = true
	d.state = Held
}

func (d *Disambiguator) onTapTimer(gen uint64, target string) {
	d.mu.Lock()
	if d.closed || gen != d.tapGen {
		d.mu.Unlock()
		return
	}
	fire := !d.lastTap.IsZero() && d.clock.Since(d.lastTap) >= DoubleTapWindow
	if fire {
		d.lastTap = time.Time{}
	}
	d.mu.Unlock()

	if fire {
		d.emit(Event{Kind: Tap, Target: target})
	}
}

func (d *Disambiguator) stopHoldLocked() {
	if d.holdTimer != nil {
		d.holdTimer.Stop()
		d.holdTimer = nil
	}
	d.holdGen++
}

func (d *Disambiguator) stopTapLocked() {
	if d.tapTimer != nil {
		d.tapTimer.Stop()
		d.tapTimer = nil
	}
	d.tapGen++
}

func (d *Disambiguator) emit(ev Event) {
	if d.handler != nil {
		d.handler(ev)
	}
}
