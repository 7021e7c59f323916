package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Alert sources.
const (
	SourceWebsocket = "websocket"
	SourceREST      = "rest"
	SourceMQTT      = "mqtt"
	SourceFile      = "file"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	CardConfigPath  string
	AlertSource     string
	DisplayLocation *time.Location

	// Home Assistant connection.
	HassURL          string
	HassToken        string
	HassTimeout      time.Duration
	HassLanguage     string
	HassPollInterval time.Duration

	// MQTT statestream source.
	MQTTBroker          string
	MQTTClientID        string
	MQTTUsername        string
	MQTTPassword        string
	MQTTStatestreamBase string

	AlertFixture string

	// Signal audit; disabled when no brokers are configured.
	KafkaBrokers     []string
	KafkaSignalTopic string
}

// KafkaEnabled reports whether signals are audited to Kafka.
func (c *Config) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	hassTimeout, err := parsePositiveDuration("HASS_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}

	pollInterval, err := parsePositiveDuration("HASS_POLL_INTERVAL", "30s")
	if err != nil {
		return nil, err
	}

	tz := sharedcfg.EnvOrDefault("DISPLAY_TIMEZONE", "Local")
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("invalid DISPLAY_TIMEZONE: %w", err)
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		CardConfigPath:  sharedcfg.EnvOrDefault("CARD_CONFIG", "card.yaml"),
		AlertSource:     strings.ToLower(sharedcfg.EnvOrDefault("ALERT_SOURCE", SourceWebsocket)),
		DisplayLocation: loc,

		HassURL:          strings.TrimRight(sharedcfg.EnvOrDefault("HASS_URL", "http://homeassistant.local:8123"), "/"),
		HassToken:        os.Getenv("HASS_TOKEN"),
		HassTimeout:      hassTimeout,
		HassLanguage:     strings.ToLower(sharedcfg.EnvOrDefault("HASS_LANGUAGE", "sv")),
		HassPollInterval: pollInterval,

		MQTTBroker:          sharedcfg.EnvOrDefault("MQTT_BROKER", "tcp://localhost:1883"),
		MQTTClientID:        sharedcfg.EnvOrDefault("MQTT_CLIENT_ID", "alert-card"),
		MQTTUsername:        os.Getenv("MQTT_USERNAME"),
		MQTTPassword:        os.Getenv("MQTT_PASSWORD"),
		MQTTStatestreamBase: strings.Trim(sharedcfg.EnvOrDefault("MQTT_STATESTREAM_BASE", "homeassistant"), "/"),

		AlertFixture: sharedcfg.EnvOrDefault("ALERT_FIXTURE", "data/mock/krisinformation_alerts.json"),

		KafkaBrokers:     sharedcfg.ParseBrokers(os.Getenv("KAFKA_BROKERS")),
		KafkaSignalTopic: sharedcfg.EnvOrDefault("KAFKA_SIGNAL_TOPIC", "card-signals"),
	}

	switch cfg.AlertSource {
	case SourceWebsocket, SourceREST:
		if cfg.HassToken == "" {
			return nil, fmt.Errorf("HASS_TOKEN is required for ALERT_SOURCE=%s", cfg.AlertSource)
		}
	case SourceMQTT, SourceFile:
	default:
		return nil, fmt.Errorf("invalid ALERT_SOURCE %q: must be websocket, rest, mqtt or file", cfg.AlertSource)
	}

	if u, err := url.Parse(cfg.HassURL); err != nil || u.Scheme == "" || u.Host == "" {
		return nil, errors.New("invalid HASS_URL: must be an absolute URL")
	}
	if cfg.MQTTStatestreamBase == "" {
		return nil, errors.New("MQTT_STATESTREAM_BASE is required")
	}
	if cfg.KafkaEnabled() && cfg.KafkaSignalTopic == "" {
		return nil, errors.New("KAFKA_SIGNAL_TOPIC is required when KAFKA_BROKERS is set")
	}

	return cfg, nil
}

func parsePositiveDuration(key, fallback string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, fallback))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s: must be a positive duration", key)
	}
	return d, nil
}
