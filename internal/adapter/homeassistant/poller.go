package homeassistant

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/crisis-alert-card/internal/card"
)

// Poller reads the entity over REST on a fixed interval. The first Next
// returns immediately.
type Poller struct {
	client   *Client
	entityID string
	language string
	interval time.Duration
	clock    clockwork.Clock
	ticker   clockwork.Ticker
}

// NewPoller creates a REST polling source. A nil clock uses real time.
func NewPoller(client *Client, entityID, language string, interval time.Duration, clock clockwork.Clock) *Poller {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Poller{
		client:   client,
		entityID: entityID,
		language: language,
		interval: interval,
		clock:    clock,
	}
}

// Name implements pipeline.StateSource.
func (p *Poller) Name() string { return "rest" }

// Next implements pipeline.StateSource.
func (p *Poller) Next(ctx context.Context) (card.HostState, error) {
	if p.ticker == nil {
		p.ticker = p.clock.NewTicker(p.interval)
	} else {
		select {
		case <-ctx.Done():
			return card.HostState{}, ctx.Err()
		case <-p.ticker.Chan():
		}
	}

	state, err := p.client.State(ctx, p.entityID)
	if err != nil {
		return card.HostState{}, err
	}
	return card.HostState{
		Language: p.language,
		States:   map[string]card.EntityState{p.entityID: state},
	}, nil
}

// Close stops the ticker.
func (p *Poller) Close() error {
	if p.ticker != nil {
		p.ticker.Stop()
	}
	return nil
}
