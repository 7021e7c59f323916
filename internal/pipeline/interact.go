package pipeline

import (
	"context"

	"github.com/couchcryptid/crisis-alert-card/internal/card"
	"github.com/couchcryptid/crisis-alert-card/internal/gesture"
)

// SignalSink carries out or records outbound signals.
type SignalSink interface {
	Name() string
	// Accepts reports whether the sink handles signals of this kind.
	Accepts(kind card.ActionKind) bool
	Send(ctx context.Context, sig card.Signal) error
}

// PointerDown forwards a pointer press on an alert row.
func (p *Pipeline) PointerDown(button int) {
	p.gestures.PointerDown(button)
}

// PointerUp forwards a pointer release on the row identified by key.
func (p *Pipeline) PointerUp(button int, key string) {
	p.gestures.PointerUp(button, key)
}

// KeyDown forwards a key press on the row identified by key.
func (p *Pipeline) KeyDown(code, key string) {
	p.gestures.KeyDown(code, key)
}

// Toggle flips a row's details and re-renders from the cached selection.
func (p *Pipeline) Toggle(ctx context.Context, key string) (bool, error) {
	expanded := p.card.Toggle(key)
	p.metrics.Toggles.Inc()

	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.hasModel {
		return expanded, nil
	}
	return expanded, p.renderLocked(ctx)
}

func (p *Pipeline) onGesture(ev gesture.Event) {
	p.metrics.Gestures.WithLabelValues(ev.Kind.String()).Inc()

	cfg := p.card.Config()
	action := cfg.ActionFor(ev.Kind)
	sig, ok := action.Signal(cfg.Entity)
	if !ok {
		p.logger.Debug("gesture action is a no-op", "gesture", ev.Kind, "action", action.Action, "alert", ev.Target)
		return
	}
	sig.Gesture = ev.Kind.String()
	sig.AlertKey = ev.Target

	ctx, cancel := context.WithTimeout(context.Background(), p.dispatchTimeout)
	defer cancel()
	p.Dispatch(ctx, sig)
}

// Dispatch delivers sig to every sink that accepts its kind. A failing sink
// is logged and counted and does not stop delivery to the others.
func (p *Pipeline) Dispatch(ctx context.Context, sig card.Signal) {
	for _, sink := range p.sinks {
		if !sink.Accepts(sig.Kind) {
			continue
		}
		if err := sink.Send(ctx, sig); err != nil {
			p.logger.Warn("signal delivery failed", "sink", sink.Name(), "kind", sig.Kind, "error", err)
			p.metrics.Signals.WithLabelValues(string(sig.Kind), sink.Name(), "error").Inc()
			continue
		}
		p.logger.Info("signal delivered", "sink", sink.Name(), "kind", sig.Kind, "gesture", sig.Gesture, "alert", sig.AlertKey)
		p.metrics.Signals.WithLabelValues(string(sig.Kind), sink.Name(), "success").Inc()
	}
}
