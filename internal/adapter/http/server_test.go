package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpadapter "github.com/couchcryptid/crisis-alert-card/internal/adapter/http"
	"github.com/couchcryptid/crisis-alert-card/internal/card"
	"github.com/couchcryptid/crisis-alert-card/internal/observability"
	"github.com/couchcryptid/crisis-alert-card/internal/pipeline"
	"github.com/couchcryptid/crisis-alert-card/internal/render"
)

const (
	testEntity = "sensor.krisinformation"
	stormKey   = "Severe-Stockholm-2024-01-01T00:00:00Z"
)

type idleSource struct{}

func (idleSource) Name() string { return "idle" }

func (idleSource) Next(ctx context.Context) (card.HostState, error) {
	<-ctx.Done()
	return card.HostState{}, ctx.Err()
}

type fixture struct {
	srv      *httpadapter.Server
	pipeline *pipeline.Pipeline
	hub      *httpadapter.Hub
	metrics  *observability.Metrics
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	metrics := observability.NewMetricsForTesting()

	cfg, err := card.ParseConfig([]byte("entity: " + testEntity + "\n"))
	require.NoError(t, err)
	renderer, err := render.New()
	require.NoError(t, err)

	registry := card.NewRegistry()
	registry.Register(card.Builtin())

	hub := httpadapter.NewHub(logger, metrics)
	p := pipeline.New(idleSource{}, card.New(cfg, card.WithLocation(time.UTC)), renderer, hub, logger, metrics,
		pipeline.WithSinks(hub))

	srv := httpadapter.NewServer(":0", httpadapter.Deps{
		Card:     p,
		Hub:      hub,
		Registry: registry,
		Renderer: renderer,
		Entity:   testEntity,
	}, logger)
	t.Cleanup(hub.Close)

	return &fixture{srv: srv, pipeline: p, hub: hub, metrics: metrics}
}

func (f *fixture) push(t *testing.T) {
	t.Helper()
	require.NoError(t, f.pipeline.Push(context.Background(), card.HostState{
		Language: "sv",
		States: map[string]card.EntityState{
			testEntity: {
				EntityID: testEntity,
				Attributes: map[string]any{
					"friendly_name": "Kris Stockholm",
					"alerts": []any{map[string]any{
						"severity":    "Severe",
						"area":        "Stockholm",
						"event":       "Storm",
						"description": "Hårda vindar.",
						"sent":        "2024-01-01T00:00:00Z",
					}},
				},
			},
		},
	}))
}

func (f *fixture) do(method, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	f.srv.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func TestHealthzReturns200(t *testing.T) {
	rec := newFixture(t).do(http.MethodGet, "/healthz")

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
}

func TestReadyzReturns503BeforeFirstPush(t *testing.T) {
	rec := newFixture(t).do(http.MethodGet, "/readyz")

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "not ready", body["status"])
	assert.Equal(t, "no host state received yet", body["error"])
}

func TestReadyzReturns200AfterPush(t *testing.T) {
	f := newFixture(t)
	f.push(t)

	rec := f.do(http.MethodGet, "/readyz")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	rec := newFixture(t).do(http.MethodGet, "/metrics")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestPageRendersLiveCard(t *testing.T) {
	f := newFixture(t)
	f.push(t)

	rec := f.do(http.MethodGet, "/")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	body := rec.Body.String()
	assert.Contains(t, body, "<!DOCTYPE html>")
	assert.Contains(t, body, "Kris Stockholm")
	assert.Contains(t, body, "new WebSocket")

	assert.Equal(t, http.StatusNotFound, f.do(http.MethodGet, "/nope").Code)
}

func TestViewEndpoint(t *testing.T) {
	f := newFixture(t)
	f.push(t)

	rec := f.do(http.MethodGet, "/api/view")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		View card.View `json:"view"`
		HTML string    `json:"html"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Kris Stockholm", body.View.Header)
	require.Len(t, body.View.Rows(), 1)
	assert.Equal(t, stormKey, body.View.Rows()[0].Key)
	assert.Contains(t, body.HTML, "Storm")
}

func TestToggleEndpoint(t *testing.T) {
	f := newFixture(t)
	f.push(t)

	rec := f.do(http.MethodPost, "/api/alerts/"+stormKey+"/toggle")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Key      string `json:"key"`
		Expanded bool   `json:"expanded"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, stormKey, body.Key)
	assert.True(t, body.Expanded)

	update, err := f.pipeline.Current()
	require.NoError(t, err)
	assert.True(t, update.View.Rows()[0].Expanded)

	assert.Equal(t, http.StatusMethodNotAllowed, f.do(http.MethodGet, "/api/alerts/"+stormKey+"/toggle").Code)
}

func TestCardsEndpoint(t *testing.T) {
	rec := newFixture(t).do(http.MethodGet, "/api/cards")
	require.Equal(t, http.StatusOK, rec.Code)

	var defs []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &defs))
	require.Len(t, defs, 1)
	assert.Equal(t, card.CardType, defs[0]["type"])
	assert.Equal(t, true, defs[0]["preview"])
}

func TestStubEndpoint(t *testing.T) {
	f := newFixture(t)

	t.Run("configured entity", func(t *testing.T) {
		rec := f.do(http.MethodGet, "/api/cards/"+card.CardType+"/stub")
		require.Equal(t, http.StatusOK, rec.Code)

		var stub map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stub))
		assert.Equal(t, testEntity, stub["entity"])
		assert.Equal(t, "time_desc", stub["sort_order"])
	})

	t.Run("entities from query", func(t *testing.T) {
		rec := f.do(http.MethodGet, "/api/cards/custom:"+card.CardType+"/stub?entity=light.kitchen&entity=sensor.kris_goteborg")
		require.Equal(t, http.StatusOK, rec.Code)

		var stub map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stub))
		assert.Equal(t, "sensor.kris_goteborg", stub["entity"])
	})

	t.Run("unknown type", func(t *testing.T) {
		rec := f.do(http.MethodGet, "/api/cards/weather-card/stub")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

type liveFrame struct {
	Type   string       `json:"type"`
	HTML   string       `json:"html"`
	Signal *card.Signal `json:"signal"`
}

func dial(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) liveFrame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var frame liveFrame
	require.NoError(t, conn.ReadJSON(&frame))
	return frame
}

func TestLiveChannel(t *testing.T) {
	f := newFixture(t)
	ts := httptest.NewServer(f.srv)
	defer ts.Close()

	conn := dial(t, ts)

	initial := readFrame(t, conn)
	assert.Equal(t, "render", initial.Type)
	assert.Contains(t, initial.HTML, "No alerts")
	require.Eventually(t, func() bool { return f.hub.Clients() == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.LiveClients))

	f.push(t)
	pushed := readFrame(t, conn)
	assert.Equal(t, "render", pushed.Type)
	assert.Contains(t, pushed.HTML, stormKey)
	assert.NotContains(t, pushed.HTML, "Hårda vindar.")

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "toggle", "key": stormKey}))
	toggled := readFrame(t, conn)
	assert.Contains(t, toggled.HTML, "Hårda vindar.")

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "keydown", "key": stormKey, "code": "Enter"}))
	signal := readFrame(t, conn)
	assert.Equal(t, "signal", signal.Type)
	require.NotNil(t, signal.Signal)
	assert.Equal(t, card.ActionMoreInfo, signal.Signal.Kind)
	assert.Equal(t, testEntity, signal.Signal.EntityID)
	assert.Equal(t, stormKey, signal.Signal.AlertKey)

	conn.Close()
	require.Eventually(t, func() bool { return f.hub.Clients() == 0 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 0.0, testutil.ToFloat64(f.metrics.LiveClients))
}

func TestHub_AcceptsBrowserKinds(t *testing.T) {
	hub := httpadapter.NewHub(slog.Default(), observability.NewMetricsForTesting())

	assert.Equal(t, "browser", hub.Name())
	assert.True(t, hub.Accepts(card.ActionMoreInfo))
	assert.True(t, hub.Accepts(card.ActionNavigate))
	assert.True(t, hub.Accepts(card.ActionURL))
	assert.False(t, hub.Accepts(card.ActionCallService))
	assert.NoError(t, hub.Send(context.Background(), card.Signal{Kind: card.ActionURL}))
}

type brokenCard struct{}

func (brokenCard) CheckReadiness(context.Context) error { return nil }
func (brokenCard) Current() (pipeline.Update, error) {
	return pipeline.Update{}, errors.New("template exploded")
}
func (brokenCard) Toggle(context.Context, string) (bool, error) {
	return false, errors.New("template exploded")
}
func (brokenCard) PointerDown(int)        {}
func (brokenCard) PointerUp(int, string)  {}
func (brokenCard) KeyDown(string, string) {}

func TestRenderFailuresReturn500(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	renderer, err := render.New()
	require.NoError(t, err)
	srv := httpadapter.NewServer(":0", httpadapter.Deps{
		Card:     brokenCard{},
		Hub:      httpadapter.NewHub(logger, observability.NewMetricsForTesting()),
		Registry: card.NewRegistry(),
		Renderer: renderer,
	}, logger)

	for _, tc := range []struct{ method, target string }{
		{http.MethodGet, "/"},
		{http.MethodGet, "/api/view"},
		{http.MethodPost, "/api/alerts/x/toggle"},
	} {
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, httptest.NewRequest(tc.method, tc.target, nil))
		assert.Equal(t, http.StatusInternalServerError, rec.Code, tc.target)
	}
}
