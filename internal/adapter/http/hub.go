package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/couchcryptid/crisis-alert-card/internal/card"
	"github.com/couchcryptid/crisis-alert-card/internal/observability"
	"github.com/couchcryptid/crisis-alert-card/internal/pipeline"
)

const (
	sendBuffer   = 16
	writeTimeout = 5 * time.Second
	pongTimeout  = 60 * time.Second
	pingInterval = 50 * time.Second
	maxFrameSize = 4096
)

// Outbound frame types.
const (
	frameRender = "render"
	frameSignal = "signal"
)

// Inbound event types sent by the page script.
const (
	eventPointerDown = "pointerdown"
	eventPointerUp   = "pointerup"
	eventKeyDown     = "keydown"
	eventToggle      = "toggle"
)

type outboundFrame struct {
	Type   string       `json:"type"`
	HTML   string       `json:"html,omitempty"`
	Signal *card.Signal `json:"signal,omitempty"`
}

type inboundEvent struct {
	Type   string `json:"type"`
	Button int    `json:"button"`
	Key    string `json:"key"`
	Code   string `json:"code"`
}

// Hub keeps the live dashboard connections. It publishes rendered updates to
// every client and is the signal sink for actions the browser performs.
type Hub struct {
	upgrader websocket.Upgrader
	logger   *slog.Logger
	metrics  *observability.Metrics

	mu      sync.Mutex
	clients map[string]*client
}

type client struct {
	id   string
	conn *websocket.Conn
	send chan []byte
	once sync.Once
}

// NewHub creates an empty hub.
func NewHub(logger *slog.Logger, metrics *observability.Metrics) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{ReadBufferSize: 1024, WriteBufferSize: 16384},
		logger:   logger,
		metrics:  metrics,
		clients:  make(map[string]*client),
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Publish implements pipeline.Publisher. Slow clients whose buffer is full
// are disconnected.
func (h *Hub) Publish(_ context.Context, u pipeline.Update) {
	h.broadcast(outboundFrame{Type: frameRender, HTML: u.HTML})
}

// Name implements pipeline.SignalSink.
func (h *Hub) Name() string { return "browser" }

// Accepts implements pipeline.SignalSink.
func (h *Hub) Accepts(kind card.ActionKind) bool {
	switch kind {
	case card.ActionMoreInfo, card.ActionNavigate, card.ActionURL:
		return true
	default:
		return false
	}
}

// Send implements pipeline.SignalSink. The signal goes to every dashboard
// showing the card.
func (h *Hub) Send(_ context.Context, sig card.Signal) error {
	h.broadcast(outboundFrame{Type: frameSignal, Signal: &sig})
	return nil
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	clients := make([]*client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		h.remove(c)
	}
}

// serve upgrades the request and runs the client until it disconnects.
func (h *Hub) serve(w http.ResponseWriter, r *http.Request, svc CardService) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	c := &client{id: uuid.NewString(), conn: conn, send: make(chan []byte, sendBuffer)}

	// The first frame is the current render so a fresh page never waits for
	// the next host push.
	if update, err := svc.Current(); err == nil {
		if data, err := json.Marshal(outboundFrame{Type: frameRender, HTML: update.HTML}); err == nil {
			c.send <- data
		}
	} else {
		h.logger.Error("render for new client failed", "client", c.id, "error", err)
	}

	h.mu.Lock()
	h.clients[c.id] = c
	h.mu.Unlock()
	h.metrics.LiveClients.Inc()
	h.logger.Info("live client connected", "client", c.id, "remote", r.RemoteAddr)

	go h.writePump(c)
	h.readPump(r.Context(), c, svc)
}

func (h *Hub) readPump(ctx context.Context, c *client, svc CardService) {
	defer h.remove(c)

	c.conn.SetReadLimit(maxFrameSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongTimeout))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongTimeout))
	})

	for {
		var ev inboundEvent
		if err := c.conn.ReadJSON(&ev); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("live client read failed", "client", c.id, "error", err)
			}
			return
		}
		h.handleEvent(ctx, c, svc, ev)
	}
}

func (h *Hub) handleEvent(ctx context.Context, c *client, svc CardService, ev inboundEvent) {
	switch ev.Type {
	case eventPointerDown:
		svc.PointerDown(ev.Button)
	case eventPointerUp:
		svc.PointerUp(ev.Button, ev.Key)
	case eventKeyDown:
		svc.KeyDown(ev.Code, ev.Key)
	case eventToggle:
		if _, err := svc.Toggle(ctx, ev.Key); err != nil {
			h.logger.Error("toggle failed", "client", c.id, "key", ev.Key, "error", err)
		}
	default:
		h.logger.Debug("unknown live event", "client", c.id, "type", ev.Type)
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case data, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				c.conn.Close()
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				c.conn.Close()
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.conn.Close()
				return
			}
		}
	}
}

func (h *Hub) broadcast(frame outboundFrame) {
	data, err := json.Marshal(frame)
	if err != nil {
		h.logger.Error("encode live frame failed", "type", frame.Type, "error", err)
		return
	}

	h.mu.Lock()
	var slow []*client
	for _, c := range h.clients {
		select {
		case c.send <- data:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.Unlock()

	for _, c := range slow {
		h.logger.Warn("dropping slow live client", "client", c.id)
		h.remove(c)
	}
}

func (h *Hub) remove(c *client) {
	c.once.Do(func() {
		h.mu.Lock()
		delete(h.clients, c.id)
		h.mu.Unlock()
		close(c.send)
		h.metrics.LiveClients.Dec()
		h.logger.Info("live client disconnected", "client", c.id)
	})
}
