// Package config loads process-level configuration for a playercore
// embedder binary: ring/dispatch sizing, the optional debug server, the
// optional NATS event mirror, metrics, and logging.
//
// Grounded on the teacher's internal/config (go-server-3): viper with
// defaults set programmatically, an optional config file, and a
// service-specific env prefix, unmarshaled into a typed struct tree.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all runtime configuration for a playercore embedder.
type Config struct {
	Engine      EngineConfig      `mapstructure:"engine"`
	DebugServer DebugServerConfig `mapstructure:"debug_server"`
	EventSink   EventSinkConfig   `mapstructure:"event_sink"`
	Metrics     MetricsConfig     `mapstructure:"metrics"`
	Logging     LoggingConfig     `mapstructure:"logging"`
}

// EngineConfig sizes the core client API: event rings and the dispatch
// bridge's task queue.
type EngineConfig struct {
	RingCapacity      int `mapstructure:"ring_capacity"`
	DispatchQueueSize int `mapstructure:"dispatch_queue_size"`
}

// DebugServerConfig controls the optional JWT-gated WebSocket spectator
// endpoint (pkg/debugserver).
type DebugServerConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	Addr      string        `mapstructure:"addr"`
	JWTSecret string        `mapstructure:"jwt_secret"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`
}

// EventSinkConfig controls the optional NATS broadcast mirror
// (pkg/eventsink).
type EventSinkConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	URL     string `mapstructure:"url"`
	Subject string `mapstructure:"subject"`
}

// MetricsConfig controls the Prometheus metrics endpoint.
type MetricsConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	ListenAddr string `mapstructure:"listen_addr"`
	Endpoint   string `mapstructure:"endpoint"`
}

// LoggingConfig controls zap logger level/encoding.
type LoggingConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// Load reads configuration from environment variables (prefixed
// PLAYERCORE_) and an optional "playercore.yaml"/"playercore.json" config
// file in the working directory or ./config.
func Load() (Config, error) {
	v := viper.New()

	v.SetDefault("engine.ring_capacity", 1000)
	v.SetDefault("engine.dispatch_queue_size", 64)

	v.SetDefault("debug_server.enabled", false)
	v.SetDefault("debug_server.addr", ":8091")
	v.SetDefault("debug_server.jwt_secret", "")
	v.SetDefault("debug_server.token_ttl", time.Hour)

	v.SetDefault("event_sink.enabled", false)
	v.SetDefault("event_sink.url", "nats://127.0.0.1:4222")
	v.SetDefault("event_sink.subject", "playercore.events")

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.listen_addr", ":9095")
	v.SetDefault("metrics.endpoint", "/metrics")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.development", false)

	v.SetConfigName("playercore")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.SetEnvPrefix("PLAYERCORE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	_ = v.ReadInConfig()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config unmarshal: %w", err)
	}

	if cfg.Engine.RingCapacity <= 0 {
		cfg.Engine.RingCapacity = 1000
	}
	if cfg.Engine.DispatchQueueSize <= 0 {
		cfg.Engine.DispatchQueueSize = 64
	}

	return cfg, nil
}
