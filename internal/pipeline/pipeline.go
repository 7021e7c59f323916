package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/storm-data-shared/retry"
	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/crisis-alert-card/internal/card"
	"github.com/couchcryptid/crisis-alert-card/internal/gesture"
	"github.com/couchcryptid/crisis-alert-card/internal/observability"
)

const (
	initialBackoff = 200 * time.Millisecond
	maxBackoff     = 5 * time.Second
)

// StateSource delivers host state snapshots. Next blocks until a snapshot
// is available or ctx is cancelled.
type StateSource interface {
	Name() string
	Next(ctx context.Context) (card.HostState, error)
}

// Renderer turns a View into the HTML sent to live clients.
type Renderer interface {
	FragmentString(v card.View) (string, error)
}

// Update is one rendered state of the card.
type Update struct {
	View card.View
	HTML string
}

// Publisher fans updates out to connected dashboards. Publish must not block.
type Publisher interface {
	Publish(ctx context.Context, u Update)
}

// Pipeline orchestrates the source -> card -> publisher loop and routes
// browser interaction back through the card.
type Pipeline struct {
	source    StateSource
	card      *card.Card
	renderer  Renderer
	publisher Publisher
	sinks     []SignalSink
	gestures  *gesture.Disambiguator
	clock     clockwork.Clock
	logger    *slog.Logger
	metrics   *observability.Metrics
	ready     atomic.Bool

	dispatchTimeout time.Duration

	// mu serializes state pushes, config changes and toggles.
	mu       sync.Mutex
	state    card.HostState
	model    card.Model
	hasModel bool
	current  Update
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithSinks adds outbound signal sinks.
func WithSinks(sinks ...SignalSink) Option {
	return func(p *Pipeline) { p.sinks = append(p.sinks, sinks...) }
}

// WithClock sets the clock used by gesture timers.
func WithClock(c clockwork.Clock) Option {
	return func(p *Pipeline) { p.clock = c }
}

// WithDispatchTimeout bounds each sink delivery.
func WithDispatchTimeout(d time.Duration) Option {
	return func(p *Pipeline) { p.dispatchTimeout = d }
}

// New creates a Pipeline. A nil publisher discards updates.
func New(src StateSource, c *card.Card, r Renderer, pub Publisher, logger *slog.Logger, metrics *observability.Metrics, opts ...Option) *Pipeline {
	p := &Pipeline{
		source:          src,
		card:            c,
		renderer:        r,
		publisher:       pub,
		clock:           clockwork.NewRealClock(),
		logger:          logger,
		metrics:         metrics,
		dispatchTimeout: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.publisher == nil {
		p.publisher = discardPublisher{}
	}
	p.gestures = gesture.New(p.clock, p.onGesture)
	return p
}

// CheckReadiness returns nil once the first host state has been rendered.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("no host state received yet")
	}
	return nil
}

// Run pulls host states until the context is cancelled.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("pipeline started", "source", p.source.Name(), "entity", p.card.Config().Entity)
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)
	defer p.gestures.Close()

	backoff := initialBackoff

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("pipeline stopping", "reason", ctx.Err())
			return nil
		default:
		}

		if !p.pull(ctx, &backoff) {
			return nil
		}
	}
}

// pull fetches and applies one snapshot. Returns false if the pipeline should stop.
func (p *Pipeline) pull(ctx context.Context, backoff *time.Duration) bool {
	state, err := p.source.Next(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		p.logger.Error("read host state failed", "source", p.source.Name(), "error", err, "retry_in", *backoff)
		p.metrics.SourceErrors.WithLabelValues(p.source.Name()).Inc()
		if !retry.SleepWithContext(ctx, *backoff) {
			return false
		}
		*backoff = retry.NextBackoff(*backoff, maxBackoff)
		return true
	}

	*backoff = initialBackoff
	if err := p.Push(ctx, state); err != nil {
		p.logger.Error("render failed", "error", err)
	}
	return true
}

// Push applies a host state snapshot. A snapshot whose alerts fingerprint
// matches the previous one is not re-rendered.
func (p *Pipeline) Push(ctx context.Context, state card.HostState) error {
	start := time.Now()
	p.metrics.StatePushes.Inc()

	p.mu.Lock()
	defer p.mu.Unlock()

	// Prepared under mu so a concurrent SetConfig cannot be overwritten by a
	// model built from the old config.
	model := p.card.Prepare(state)
	p.state = state
	if p.hasModel && model.Fingerprint == p.model.Fingerprint {
		p.metrics.RendersSkipped.Inc()
		p.logger.Debug("alerts unchanged, skipping render", "fingerprint", model.Fingerprint)
		return nil
	}

	p.metrics.AlertsNormalized.Add(float64(model.Normalized))
	if dropped := model.Dropped(); dropped > 0 {
		p.metrics.AlertsDropped.Add(float64(dropped))
		p.logger.Debug("dropped alert records", "count", dropped)
	}

	p.model = model
	p.hasModel = true
	if err := p.renderLocked(ctx); err != nil {
		return err
	}

	p.metrics.RenderDuration.Observe(time.Since(start).Seconds())
	p.ready.Store(true)
	return nil
}

// SetConfig replaces the card configuration and re-renders the last host
// state, if any.
func (p *Pipeline) SetConfig(ctx context.Context, cfg card.Config) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.card.SetConfig(cfg)
	if !p.hasModel {
		return nil
	}
	p.model = p.card.Prepare(p.state)
	return p.renderLocked(ctx)
}

// Current returns the latest rendered update, rendering the empty card if no
// host state has arrived yet.
func (p *Pipeline) Current() (Update, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.hasModel {
		return p.current, nil
	}
	view := p.card.Render(card.Model{})
	html, err := p.renderer.FragmentString(view)
	if err != nil {
		return Update{}, err
	}
	return Update{View: view, HTML: html}, nil
}

func (p *Pipeline) renderLocked(ctx context.Context) error {
	view := p.card.Render(p.model)
	html, err := p.renderer.FragmentString(view)
	if err != nil {
		return err
	}
	p.current = Update{View: view, HTML: html}
	p.metrics.AlertsVisible.Set(float64(p.model.Count))
	p.metrics.Renders.Inc()
	p.publisher.Publish(ctx, p.current)
	return nil
}

type discardPublisher struct{}

func (discardPublisher) Publish(context.Context, Update) {}
