// Package mqtt follows a Home Assistant entity through the mqtt_statestream
// integration, which publishes each state as <base>/<domain>/<object_id>/state
// and each attribute as a JSON payload on <base>/<domain>/<object_id>/<name>.
package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"maps"
	"strings"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/crisis-alert-card/internal/card"
)

// DefaultSettle is how long Next waits after the first message of a burst
// so the state and all attribute topics land in one snapshot.
const DefaultSettle = 200 * time.Millisecond

// Options configures a Source.
type Options struct {
	Broker   string
	ClientID string
	Username string
	Password string
	// Base is the statestream base topic, without slashes.
	Base     string
	EntityID string
	Language string
	Settle   time.Duration
	Clock    clockwork.Clock
}

// Source implements pipeline.StateSource over mqtt_statestream.
type Source struct {
	opts   Options
	prefix string
	client paho.Client
	logger *slog.Logger

	mu      sync.Mutex
	state   card.EntityState
	changed chan struct{}
}

// NewSource creates an unconnected source. Call Connect before Next.
func NewSource(opts Options, logger *slog.Logger) (*Source, error) {
	domain, object, ok := strings.Cut(opts.EntityID, ".")
	if !ok || domain == "" || object == "" {
		return nil, fmt.Errorf("invalid entity id %q", opts.EntityID)
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	return &Source{
		opts:    opts,
		prefix:  fmt.Sprintf("%s/%s/%s/", opts.Base, domain, object),
		logger:  logger,
		state:   card.EntityState{EntityID: opts.EntityID, Attributes: map[string]any{}},
		changed: make(chan struct{}, 1),
	}, nil
}

// Topic is the subscription filter for the entity.
func (s *Source) Topic() string {
	return s.prefix + "#"
}

// Connect dials the broker and subscribes. The subscription is renewed on
// every reconnect.
func (s *Source) Connect(ctx context.Context) error {
	opts := paho.NewClientOptions()
	opts.AddBroker(s.opts.Broker)
	opts.SetClientID(s.opts.ClientID)
	if s.opts.Username != "" {
		opts.SetUsername(s.opts.Username)
	}
	if s.opts.Password != "" {
		opts.SetPassword(s.opts.Password)
	}
	opts.SetAutoReconnect(true)
	opts.SetCleanSession(true)
	opts.SetOnConnectHandler(func(c paho.Client) {
		token := c.Subscribe(s.Topic(), 1, func(_ paho.Client, msg paho.Message) {
			s.HandleMessage(msg.Topic(), msg.Payload())
		})
		if token.Wait() && token.Error() != nil {
			s.logger.Error("mqtt subscribe failed", "topic", s.Topic(), "error", token.Error())
			return
		}
		s.logger.Info("mqtt subscribed", "topic", s.Topic())
	})
	opts.SetConnectionLostHandler(func(_ paho.Client, err error) {
		s.logger.Warn("mqtt connection lost", "error", err)
	})

	s.client = paho.NewClient(opts)
	if err := wait(ctx, s.client.Connect()); err != nil {
		return fmt.Errorf("connect to mqtt broker %s: %w", s.opts.Broker, err)
	}
	return nil
}

// Name implements pipeline.StateSource.
func (s *Source) Name() string { return "mqtt" }

// Next implements pipeline.StateSource. It blocks until a message for the
// entity arrives, then returns the accumulated state once the burst settles.
func (s *Source) Next(ctx context.Context) (card.HostState, error) {
	select {
	case <-ctx.Done():
		return card.HostState{}, ctx.Err()
	case <-s.changed:
	}

	if s.opts.Settle > 0 {
		select {
		case <-ctx.Done():
			return card.HostState{}, ctx.Err()
		case <-s.opts.Clock.After(s.opts.Settle):
		}
		// Messages within the settle window are part of this snapshot.
		select {
		case <-s.changed:
		default:
		}
	}

	return card.HostState{
		Language: s.opts.Language,
		States:   map[string]card.EntityState{s.opts.EntityID: s.snapshot()},
	}, nil
}

// HandleMessage applies one statestream message to the accumulated state.
func (s *Source) HandleMessage(topic string, payload []byte) {
	name, ok := strings.CutPrefix(topic, s.prefix)
	if !ok || name == "" || strings.Contains(name, "/") {
		return
	}

	s.mu.Lock()
	switch name {
	case "state":
		s.state.State = string(payload)
	case "last_updated":
		s.state.LastUpdated = decodeString(payload)
	case "last_changed":
	default:
		s.state.Attributes[name] = decodeAttribute(payload)
	}
	s.mu.Unlock()

	select {
	case s.changed <- struct{}{}:
	default:
	}
}

// Close disconnects from the broker.
func (s *Source) Close() error {
	if s.client != nil && s.client.IsConnected() {
		s.client.Disconnect(250)
	}
	return nil
}

func (s *Source) snapshot() card.EntityState {
	s.mu.Lock()
	defer s.mu.Unlock()
	state := s.state
	state.Attributes = maps.Clone(s.state.Attributes)
	return state
}

func decodeAttribute(payload []byte) any {
	var v any
	if err := json.Unmarshal(payload, &v); err != nil {
		return string(payload)
	}
	return v
}

func decodeString(payload []byte) string {
	if s, ok := decodeAttribute(payload).(string); ok {
		return s
	}
	return string(payload)
}

func wait(ctx context.Context, token paho.Token) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-token.Done():
	}
	return token.Error()
}
