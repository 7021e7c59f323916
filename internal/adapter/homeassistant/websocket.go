package homeassistant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/couchcryptid/crisis-alert-card/internal/card"
)

const subscriptionID = 1

// ErrAuthInvalid is returned when Home Assistant rejects the access token.
var ErrAuthInvalid = errors.New("home assistant rejected the access token")

// message is the envelope of every websocket API frame.
type message struct {
	ID      int             `json:"id,omitempty"`
	Type    string          `json:"type"`
	Success *bool           `json:"success,omitempty"`
	Message string          `json:"message,omitempty"`
	Event   *event          `json:"event,omitempty"`
	Error   *apiErrorDetail `json:"error,omitempty"`
}

type apiErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type event struct {
	EventType string `json:"event_type"`
	Data      struct {
		EntityID string            `json:"entity_id"`
		NewState *card.EntityState `json:"new_state"`
	} `json:"data"`
}

// Subscriber follows one entity over the websocket API. The first Next after
// (re)connecting returns a REST snapshot; later calls block until a
// state_changed event for the entity arrives.
type Subscriber struct {
	wsURL    string
	token    string
	entityID string
	language string
	rest     *Client
	dialer   *websocket.Dialer
	logger   *slog.Logger

	mu   sync.Mutex
	conn *websocket.Conn
}

// NewSubscriber creates a websocket source for entityID on the instance at
// baseURL. rest provides the initial snapshot after each connect.
func NewSubscriber(baseURL, token, entityID, language string, rest *Client, logger *slog.Logger) (*Subscriber, error) {
	wsURL, err := WebsocketURL(baseURL)
	if err != nil {
		return nil, err
	}
	return &Subscriber{
		wsURL:    wsURL,
		token:    token,
		entityID: entityID,
		language: language,
		rest:     rest,
		dialer:   &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		logger:   logger,
	}, nil
}

// WebsocketURL derives the websocket API endpoint from the instance base URL.
func WebsocketURL(baseURL string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/api/websocket"
	return u.String(), nil
}

// Name implements pipeline.StateSource.
func (s *Subscriber) Name() string { return "websocket" }

// Next implements pipeline.StateSource.
func (s *Subscriber) Next(ctx context.Context) (card.HostState, error) {
	conn, fresh, err := s.connection(ctx)
	if err != nil {
		return card.HostState{}, err
	}
	if fresh {
		state, err := s.rest.State(ctx, s.entityID)
		if err != nil {
			s.drop(conn)
			return card.HostState{}, fmt.Errorf("initial snapshot: %w", err)
		}
		return s.hostState(state), nil
	}

	// Unblock ReadJSON when the caller gives up.
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	for {
		var msg message
		if err := conn.ReadJSON(&msg); err != nil {
			s.drop(conn)
			if ctx.Err() != nil {
				return card.HostState{}, ctx.Err()
			}
			return card.HostState{}, fmt.Errorf("read event: %w", err)
		}
		if msg.Type != "event" || msg.Event == nil || msg.Event.EventType != "state_changed" {
			continue
		}
		data := msg.Event.Data
		if data.EntityID != s.entityID || data.NewState == nil {
			continue
		}
		return s.hostState(*data.NewState), nil
	}
}

// Close drops the connection.
func (s *Subscriber) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	s.conn = nil
	return err
}

func (s *Subscriber) hostState(state card.EntityState) card.HostState {
	if state.EntityID == "" {
		state.EntityID = s.entityID
	}
	return card.HostState{
		Language: s.language,
		States:   map[string]card.EntityState{s.entityID: state},
	}
}

// connection returns the live connection, dialing and subscribing if there
// is none. fresh reports whether a new connection was made.
func (s *Subscriber) connection(ctx context.Context) (*websocket.Conn, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn != nil {
		return s.conn, false, nil
	}

	conn, _, err := s.dialer.DialContext(ctx, s.wsURL, nil)
	if err != nil {
		return nil, false, fmt.Errorf("dial %s: %w", s.wsURL, err)
	}
	if err := s.handshake(conn); err != nil {
		conn.Close()
		return nil, false, err
	}

	s.logger.Info("subscribed to state changes", "url", s.wsURL, "entity", s.entityID)
	s.conn = conn
	return conn, true, nil
}

func (s *Subscriber) handshake(conn *websocket.Conn) error {
	if err := conn.SetReadDeadline(time.Now().Add(s.dialer.HandshakeTimeout)); err != nil {
		return err
	}
	defer conn.SetReadDeadline(time.Time{}) //nolint:errcheck // cleared before the event loop

	var msg message
	if err := conn.ReadJSON(&msg); err != nil {
		return fmt.Errorf("read auth_required: %w", err)
	}
	if msg.Type != "auth_required" {
		return fmt.Errorf("unexpected %q before auth", msg.Type)
	}

	if err := conn.WriteJSON(map[string]string{"type": "auth", "access_token": s.token}); err != nil {
		return fmt.Errorf("send auth: %w", err)
	}
	if err := conn.ReadJSON(&msg); err != nil {
		return fmt.Errorf("read auth result: %w", err)
	}
	switch msg.Type {
	case "auth_ok":
	case "auth_invalid":
		return fmt.Errorf("%w: %s", ErrAuthInvalid, msg.Message)
	default:
		return fmt.Errorf("unexpected %q after auth", msg.Type)
	}

	subscribe := map[string]any{
		"id":         subscriptionID,
		"type":       "subscribe_events",
		"event_type": "state_changed",
	}
	if err := conn.WriteJSON(subscribe); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	msg = message{}
	if err := conn.ReadJSON(&msg); err != nil {
		return fmt.Errorf("read subscribe result: %w", err)
	}
	if msg.Type != "result" || msg.ID != subscriptionID || msg.Success == nil || !*msg.Success {
		detail := ""
		if msg.Error != nil {
			detail = msg.Error.Message
		}
		return fmt.Errorf("subscribe_events rejected: %s", detail)
	}
	return nil
}

func (s *Subscriber) drop(conn *websocket.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == conn {
		s.conn = nil
	}
	conn.Close()
}
