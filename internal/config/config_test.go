package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testToken = "hass-test-token"

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("HASS_TOKEN", testToken)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "card.yaml", cfg.CardConfigPath)
	assert.Equal(t, SourceWebsocket, cfg.AlertSource)
	assert.Equal(t, time.Local, cfg.DisplayLocation)
	assert.Equal(t, "http://homeassistant.local:8123", cfg.HassURL)
	assert.Equal(t, testToken, cfg.HassToken)
	assert.Equal(t, 10*time.Second, cfg.HassTimeout)
	assert.Equal(t, "sv", cfg.HassLanguage)
	assert.Equal(t, 30*time.Second, cfg.HassPollInterval)
	assert.Equal(t, "tcp://localhost:1883", cfg.MQTTBroker)
	assert.Equal(t, "alert-card", cfg.MQTTClientID)
	assert.Empty(t, cfg.MQTTUsername)
	assert.Equal(t, "homeassistant", cfg.MQTTStatestreamBase)
	assert.Equal(t, "data/mock/krisinformation_alerts.json", cfg.AlertFixture)
	assert.Empty(t, cfg.KafkaBrokers)
	assert.False(t, cfg.KafkaEnabled())
	assert.Equal(t, "card-signals", cfg.KafkaSignalTopic)
}

func TestLoad_CustomEnv(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("SHUTDOWN_TIMEOUT", "30s")
	t.Setenv("CARD_CONFIG", "/etc/card/kris.yaml")
	t.Setenv("ALERT_SOURCE", "MQTT")
	t.Setenv("DISPLAY_TIMEZONE", "Europe/Stockholm")
	t.Setenv("HASS_URL", "https://ha.example.se/")
	t.Setenv("HASS_TIMEOUT", "3s")
	t.Setenv("HASS_LANGUAGE", "EN")
	t.Setenv("HASS_POLL_INTERVAL", "1m")
	t.Setenv("MQTT_BROKER", "tcp://mqtt:1883")
	t.Setenv("MQTT_CLIENT_ID", "card-2")
	t.Setenv("MQTT_USERNAME", "card")
	t.Setenv("MQTT_PASSWORD", "secret")
	t.Setenv("MQTT_STATESTREAM_BASE", "/ha/")
	t.Setenv("ALERT_FIXTURE", "fixture.json")
	t.Setenv("KAFKA_BROKERS", "broker1:9092, broker2:9092")
	t.Setenv("KAFKA_SIGNAL_TOPIC", "audit")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "/etc/card/kris.yaml", cfg.CardConfigPath)
	assert.Equal(t, SourceMQTT, cfg.AlertSource)
	assert.Equal(t, "Europe/Stockholm", cfg.DisplayLocation.String())
	assert.Equal(t, "https://ha.example.se", cfg.HassURL)
	assert.Equal(t, 3*time.Second, cfg.HassTimeout)
	assert.Equal(t, "en", cfg.HassLanguage)
	assert.Equal(t, time.Minute, cfg.HassPollInterval)
	assert.Equal(t, "tcp://mqtt:1883", cfg.MQTTBroker)
	assert.Equal(t, "card-2", cfg.MQTTClientID)
	assert.Equal(t, "card", cfg.MQTTUsername)
	assert.Equal(t, "secret", cfg.MQTTPassword)
	assert.Equal(t, "ha", cfg.MQTTStatestreamBase)
	assert.Equal(t, "fixture.json", cfg.AlertFixture)
	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
	assert.True(t, cfg.KafkaEnabled())
	assert.Equal(t, "audit", cfg.KafkaSignalTopic)
}

func TestLoad_TokenRequiredForHomeAssistantSources(t *testing.T) {
	for _, source := range []string{SourceWebsocket, SourceREST} {
		t.Run(source, func(t *testing.T) {
			t.Setenv("ALERT_SOURCE", source)
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), "HASS_TOKEN")
		})
	}
}

func TestLoad_TokenOptionalForOfflineSources(t *testing.T) {
	for _, source := range []string{SourceMQTT, SourceFile} {
		t.Run(source, func(t *testing.T) {
			t.Setenv("ALERT_SOURCE", source)
			_, err := Load()
			require.NoError(t, err)
		})
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		key, value, wantErr string
	}{
		{"SHUTDOWN_TIMEOUT", "not-a-duration", "SHUTDOWN_TIMEOUT"},
		{"SHUTDOWN_TIMEOUT", "-1s", "SHUTDOWN_TIMEOUT"},
		{"HASS_TIMEOUT", "bad", "HASS_TIMEOUT"},
		{"HASS_POLL_INTERVAL", "0s", "HASS_POLL_INTERVAL"},
		{"DISPLAY_TIMEZONE", "Mars/Olympus", "DISPLAY_TIMEZONE"},
		{"ALERT_SOURCE", "carrier-pigeon", "ALERT_SOURCE"},
		{"HASS_URL", "homeassistant.local", "HASS_URL"},
	}
	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			t.Setenv("HASS_TOKEN", testToken)
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
