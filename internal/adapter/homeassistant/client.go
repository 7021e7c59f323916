// Package homeassistant talks to a Home Assistant instance: it reads entity
// state over the REST and websocket APIs and calls services on behalf of the
// card's call-service actions.
package homeassistant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/couchcryptid/crisis-alert-card/internal/card"
)

// ErrEntityNotFound is returned when Home Assistant does not know the entity.
var ErrEntityNotFound = errors.New("entity not found")

// Client is a Home Assistant REST API client. It also serves as the signal
// sink for call-service actions.
type Client struct {
	http   *resty.Client
	logger *slog.Logger
}

// NewClient creates a REST client for the instance at baseURL authenticated
// with a long-lived access token.
func NewClient(baseURL, token string, timeout time.Duration, logger *slog.Logger) *Client {
	rc := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetAuthToken(token).
		SetRetryCount(2).
		SetRetryWaitTime(200 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second).
		SetHeader("Accept", "application/json")

	return &Client{http: rc, logger: logger}
}

// State fetches the current state of one entity.
func (c *Client) State(ctx context.Context, entityID string) (card.EntityState, error) {
	var state card.EntityState
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("entity_id", entityID).
		SetResult(&state).
		Get("/api/states/{entity_id}")
	if err != nil {
		return card.EntityState{}, fmt.Errorf("get state %s: %w", entityID, err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return card.EntityState{}, fmt.Errorf("%s: %w", entityID, ErrEntityNotFound)
	}
	if resp.IsError() {
		return card.EntityState{}, apiError(resp)
	}
	return state, nil
}

// CallService invokes domain.service with data.
func (c *Client) CallService(ctx context.Context, domain, service string, data map[string]any) error {
	if data == nil {
		data = map[string]any{}
	}
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParams(map[string]string{"domain": domain, "service": service}).
		SetBody(data).
		Post("/api/services/{domain}/{service}")
	if err != nil {
		return fmt.Errorf("call service %s.%s: %w", domain, service, err)
	}
	if resp.IsError() {
		return apiError(resp)
	}
	c.logger.Debug("service called", "domain", domain, "service", service)
	return nil
}

// Name implements pipeline.SignalSink.
func (c *Client) Name() string { return "homeassistant" }

// Accepts implements pipeline.SignalSink. Only service calls are carried out
// server-side; the other kinds need a browser.
func (c *Client) Accepts(kind card.ActionKind) bool {
	return kind == card.ActionCallService
}

// Send implements pipeline.SignalSink.
func (c *Client) Send(ctx context.Context, sig card.Signal) error {
	return c.CallService(ctx, sig.Domain, sig.Service, sig.ServiceData)
}

func apiError(resp *resty.Response) error {
	return fmt.Errorf("home assistant API error: status %d: %s", resp.StatusCode(), resp.String())
}
