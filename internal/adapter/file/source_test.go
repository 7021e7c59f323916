package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/crisis-alert-card/internal/card"
)

const testEntity = "sensor.krisinformation"

func writeFixture(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "alerts.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestParse(t *testing.T) {
	t.Run("alert array", func(t *testing.T) {
		state, err := Parse([]byte(`[{"severity":"Severe","event":"Storm"},{"event":"Flood"}]`), testEntity)
		require.NoError(t, err)
		assert.Equal(t, testEntity, state.EntityID)
		assert.Equal(t, "2", state.State)
		assert.Len(t, state.Attributes[card.AlertsAttribute], 2)
	})

	t.Run("entity state object", func(t *testing.T) {
		state, err := Parse([]byte(`{
			"entity_id": "sensor.kris_stockholm",
			"state": "1",
			"attributes": {"friendly_name": "Kris Stockholm", "alerts": [{"event": "Storm"}]}
		}`), testEntity)
		require.NoError(t, err)
		assert.Equal(t, "sensor.kris_stockholm", state.EntityID)
		assert.Equal(t, "Kris Stockholm", state.FriendlyName())
	})

	t.Run("object without entity id", func(t *testing.T) {
		state, err := Parse([]byte(`{"state": "0"}`), testEntity)
		require.NoError(t, err)
		assert.Equal(t, testEntity, state.EntityID)
		assert.NotNil(t, state.Attributes)
	})

	for _, body := range []string{"", "   ", `"alerts"`, `42`} {
		t.Run("unsupported "+body, func(t *testing.T) {
			_, err := Parse([]byte(body), testEntity)
			require.ErrorIs(t, err, ErrUnsupportedFixture)
		})
	}

	t.Run("malformed", func(t *testing.T) {
		_, err := Parse([]byte(`[{"event":`), testEntity)
		require.Error(t, err)
	})
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.json"), testEntity)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read fixture")
}

func TestLoad_MockFixture(t *testing.T) {
	state, err := Load(filepath.Join("..", "..", "..", "data", "mock", "krisinformation_alerts.json"), testEntity)
	require.NoError(t, err)

	alerts, ok := state.Attributes[card.AlertsAttribute].([]any)
	require.True(t, ok)
	assert.NotEmpty(t, alerts)
}

func TestSource_ReloadsOnChange(t *testing.T) {
	dir := t.TempDir()
	path := writeFixture(t, dir, `[{"severity":"Severe","event":"Storm"}]`)
	fc := clockwork.NewFakeClock()
	src := NewSource(path, testEntity, "sv", fc)
	assert.Equal(t, "file", src.Name())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	first, err := src.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, "sv", first.Language)
	assert.Len(t, first.States[testEntity].Attributes[card.AlertsAttribute], 1)

	done := make(chan card.HostState, 1)
	go func() {
		state, err := src.Next(ctx)
		assert.NoError(t, err)
		done <- state
	}()

	// An unchanged file does not produce a snapshot.
	require.NoError(t, fc.BlockUntilContext(ctx, 1))
	fc.Advance(DefaultInterval)
	select {
	case <-done:
		t.Fatal("unchanged fixture produced a snapshot")
	case <-time.After(50 * time.Millisecond):
	}

	writeFixture(t, dir, `[{"event":"Storm"},{"event":"Flood"}]`)
	later := time.Now().Add(time.Minute)
	require.NoError(t, os.Chtimes(path, later, later))

	require.NoError(t, fc.BlockUntilContext(ctx, 1))
	fc.Advance(DefaultInterval)

	select {
	case state := <-done:
		assert.Len(t, state.States[testEntity].Attributes[card.AlertsAttribute], 2)
	case <-ctx.Done():
		t.Fatal("changed fixture was not reloaded")
	}
}

func TestSource_NextCancelled(t *testing.T) {
	path := writeFixture(t, t.TempDir(), `[]`)
	src := NewSource(path, testEntity, "sv", clockwork.NewFakeClock())

	_, err := src.Next(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = src.Next(ctx)
	require.ErrorIs(t, err, context.Canceled)
}
