// Package file reads host state from a JSON fixture on disk. It backs the
// offline source, the render and list commands, and fixture validation.
package file

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/crisis-alert-card/internal/card"
)

// DefaultInterval is how often the fixture's modification time is checked.
const DefaultInterval = 2 * time.Second

// ErrUnsupportedFixture is returned for JSON that is neither an alert list
// nor an entity state object.
var ErrUnsupportedFixture = errors.New("fixture must be an alert array or an entity state object")

// Load reads a fixture. A bare JSON array is treated as the alerts attribute
// of entityID; an object is decoded as the full entity state.
func Load(path, entityID string) (card.EntityState, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return card.EntityState{}, fmt.Errorf("read fixture: %w", err)
	}
	return Parse(data, entityID)
}

// Parse decodes fixture bytes. See Load.
func Parse(data []byte, entityID string) (card.EntityState, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return card.EntityState{}, ErrUnsupportedFixture
	}

	switch trimmed[0] {
	case '[':
		var alerts []any
		if err := json.Unmarshal(trimmed, &alerts); err != nil {
			return card.EntityState{}, fmt.Errorf("decode fixture: %w", err)
		}
		return card.EntityState{
			EntityID:   entityID,
			State:      fmt.Sprint(len(alerts)),
			Attributes: map[string]any{card.AlertsAttribute: alerts},
		}, nil
	case '{':
		var state card.EntityState
		if err := json.Unmarshal(trimmed, &state); err != nil {
			return card.EntityState{}, fmt.Errorf("decode fixture: %w", err)
		}
		if state.EntityID == "" {
			state.EntityID = entityID
		}
		if state.Attributes == nil {
			state.Attributes = map[string]any{}
		}
		return state, nil
	default:
		return card.EntityState{}, ErrUnsupportedFixture
	}
}

// Source implements pipeline.StateSource over a fixture file. The first Next
// reads the file; later calls block until its modification time changes.
type Source struct {
	path     string
	entityID string
	language string
	interval time.Duration
	clock    clockwork.Clock

	loaded  bool
	modTime time.Time
}

// NewSource creates a fixture source. A nil clock uses real time.
func NewSource(path, entityID, language string, clock clockwork.Clock) *Source {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Source{
		path:     path,
		entityID: entityID,
		language: language,
		interval: DefaultInterval,
		clock:    clock,
	}
}

// Name implements pipeline.StateSource.
func (s *Source) Name() string { return "file" }

// Next implements pipeline.StateSource.
func (s *Source) Next(ctx context.Context) (card.HostState, error) {
	if s.loaded {
		if err := s.waitForChange(ctx); err != nil {
			return card.HostState{}, err
		}
	}

	info, err := os.Stat(s.path)
	if err != nil {
		return card.HostState{}, fmt.Errorf("stat fixture: %w", err)
	}
	state, err := Load(s.path, s.entityID)
	if err != nil {
		return card.HostState{}, err
	}
	s.loaded = true
	s.modTime = info.ModTime()

	return card.HostState{
		Language: s.language,
		States:   map[string]card.EntityState{s.entityID: state},
	}, nil
}

// Close implements io.Closer. The source holds no open handles.
func (s *Source) Close() error { return nil }

func (s *Source) waitForChange(ctx context.Context) error {
	ticker := s.clock.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.Chan():
		}
		info, err := os.Stat(s.path)
		if err != nil {
			// Editors replace files by rename; try again on the next tick.
			continue
		}
		if !info.ModTime().Equal(s.modTime) {
			return nil
		}
	}
}
