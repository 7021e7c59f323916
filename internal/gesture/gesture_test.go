package gesture

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const rowKey = "Severe-Stockholm-2024-01-01T00:00:00Z"

func newRecorder(t *testing.T) (*Disambiguator, *clockwork.FakeClock, chan Event) {
	t.Helper()
	fc := clockwork.NewFakeClock()
	events := make(chan Event, 8)
	d := New(fc, func(e Event) { events <- e })
	t.Cleanup(d.Close)
	return d, fc, events
}

func receive(t *testing.T, events <-chan Event) Event {
	t.Helper()
	select {
	case e := <-events:
		return e
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for gesture")
		return Event{}
	}
}

func assertQuiet(t *testing.T, events <-chan Event) {
	t.Helper()
	select {
	case e := <-events:
		t.Fatalf("unexpected gesture %s", e.Kind)
	case <-time.After(50 * time.Millisecond):
	}
}

func tap(d *Disambiguator, fc *clockwork.FakeClock, press time.Duration) {
	d.PointerDown(PrimaryButton)
	fc.Advance(press)
	d.PointerUp(PrimaryButton, rowKey)
}

func TestSingleTap(t *testing.T) {
	d, fc, events := newRecorder(t)

	tap(d, fc, 80*time.Millisecond)
	assertQuiet(t, events)

	fc.Advance(TapDelay)

	got := receive(t, events)
	assert.Equal(t, Tap, got.Kind)
	assert.Equal(t, rowKey, got.Target)
	assert.False(t, got.Keyboard)
	assertQuiet(t, events)
}

func TestDoubleTap(t *testing.T) {
	d, fc, events := newRecorder(t)

	tap(d, fc, 50*time.Millisecond)
	fc.Advance(100 * time.Millisecond)
	tap(d, fc, 50*time.Millisecond)

	got := receive(t, events)
	assert.Equal(t, DoubleTap, got.Kind)
	assert.Equal(t, rowKey, got.Target)

	fc.Advance(time.Second)
	assertQuiet(t, events)
}

func TestSlowSecondTapIsTwoTaps(t *testing.T) {
	d, fc, events := newRecorder(t)

	tap(d, fc, 50*time.Millisecond)
	fc.Advance(300 * time.Millisecond)
	assert.Equal(t, Tap, receive(t, events).Kind)

	tap(d, fc, 50*time.Millisecond)
	fc.Advance(300 * time.Millisecond)
	assert.Equal(t, Tap, receive(t, events).Kind)
	assertQuiet(t, events)
}

func TestHold(t *testing.T) {
	d, fc, events := newRecorder(t)

	d.PointerDown(PrimaryButton)
	assert.Equal(t, Holding, d.State())

	fc.Advance(600 * time.Millisecond)
	require.Eventually(t, func() bool { return d.State() == Held }, time.Second, 5*time.Millisecond)
	assertQuiet(t, events)

	d.PointerUp(PrimaryButton, rowKey)

	got := receive(t, events)
	assert.Equal(t, Hold, got.Kind)
	assert.Equal(t, Idle, d.State())

	fc.Advance(time.Second)
	assertQuiet(t, events)
}

func TestShortPressIsNotHold(t *testing.T) {
	d, fc, events := newRecorder(t)

	tap(d, fc, 499*time.Millisecond)
	fc.Advance(TapDelay)

	assert.Equal(t, Tap, receive(t, events).Kind)
}

func TestNonPrimaryButtonIgnored(t *testing.T) {
	d, fc, events := newRecorder(t)

	d.PointerDown(2)
	assert.Equal(t, Idle, d.State())
	fc.Advance(time.Second)
	d.PointerUp(2, rowKey)
	fc.Advance(time.Second)

	assertQuiet(t, events)
}

func TestKeyboard(t *testing.T) {
	d, _, events := newRecorder(t)

	d.KeyDown("Enter", rowKey)
	got := receive(t, events)
	assert.Equal(t, Tap, got.Kind)
	assert.True(t, got.Keyboard)

	d.KeyDown(" ", rowKey)
	assert.Equal(t, Tap, receive(t, events).Kind)

	d.KeyDown("a", rowKey)
	d.KeyDown("Escape", rowKey)
	assertQuiet(t, events)
}

func TestCloseCancelsPendingTap(t *testing.T) {
	d, fc, events := newRecorder(t)

	tap(d, fc, 50*time.Millisecond)
	d.Close()
	fc.Advance(time.Second)
	assertQuiet(t, events)

	d.KeyDown("Enter", rowKey)
	assertQuiet(t, events)
}

func TestCloseCancelsPendingHold(t *testing.T) {
	d, fc, events := newRecorder(t)

	d.PointerDown(PrimaryButton)
	d.Close()
	fc.Advance(time.Second)
	d.PointerUp(PrimaryButton, rowKey)

	assert.Equal(t, Idle, d.State())
	assertQuiet(t, events)
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "tap", Tap.String())
	assert.Equal(t, "double_tap", DoubleTap.String())
	assert.Equal(t, "hold", Hold.String())
	assert.Equal(t, "unknown", Kind(0).String())
}
