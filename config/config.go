// Package config loads stopclock settings and builds the server's backends
// from them.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/b-open-io/stopclock/internal/logging"
	"github.com/b-open-io/stopclock/store"
)

// EnvPrefix is prepended to every environment variable, e.g.
// STOPCLOCK_SERVER_LISTEN for server.listen
const EnvPrefix = "STOPCLOCK"

// InitialStop is recorded when the history starts out empty
const InitialStop int64 = 1662921288

// ServerSettings configures the serve command
type ServerSettings struct {
	Listen       string        `mapstructure:"listen"`
	StoreURL     string        `mapstructure:"store"`
	PubSubURL    string        `mapstructure:"pubsub"`
	Capacity     int           `mapstructure:"capacity"`
	InitialStop  int64         `mapstructure:"initial_stop"`
	PingInterval time.Duration `mapstructure:"ping_interval"`
	StopRate     float64       `mapstructure:"stop_rate"`
	StopBurst    int           `mapstructure:"stop_burst"`
}

// ClientSettings configures the watch, stop and history commands
type ClientSettings struct {
	ServerURL  string        `mapstructure:"server_url"`
	EventsPath string        `mapstructure:"events_path"`
	RetryMin   time.Duration `mapstructure:"retry_min"`
	RetryMax   time.Duration `mapstructure:"retry_max"`
}

// Settings is the complete stopclock configuration
type Settings struct {
	Server ServerSettings  `mapstructure:"server"`
	Client ClientSettings  `mapstructure:"client"`
	Log    logging.Options `mapstructure:"log"`
}

// SetDefaults registers every setting's default on v. Each key needs a
// default for environment overrides to reach Unmarshal.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.listen", ":8000")
	v.SetDefault("server.store", "memory://")
	v.SetDefault("server.pubsub", "channels://")
	v.SetDefault("server.capacity", store.DefaultCapacity)
	v.SetDefault("server.initial_stop", InitialStop)
	v.SetDefault("server.ping_interval", 15*time.Second)
	v.SetDefault("server.stop_rate", 1.0)
	v.SetDefault("server.stop_burst", 5)

	v.SetDefault("client.server_url", "http://localhost:8000")
	v.SetDefault("client.events_path", "/stop_events")
	v.SetDefault("client.retry_min", time.Second)
	v.SetDefault("client.retry_max", 64*time.Second)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.file", "")
}

// BindEnv makes v read STOPCLOCK_* environment variables
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// Load reads the settings from v, which should already have its config
// file and flags bound.
func Load(v *viper.Viper) (*Settings, error) {
	SetDefaults(v)
	BindEnv(v)

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("failed to decode settings: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate reports the first invalid setting
func (s *Settings) Validate() error {
	switch {
	case s.Server.Capacity < 1:
		return fmt.Errorf("server.capacity must be at least 1, got %d", s.Server.Capacity)
	case s.Server.PingInterval <= 0:
		return errors.New("server.ping_interval must be positive")
	case s.Server.StopRate <= 0:
		return errors.New("server.stop_rate must be positive")
	case s.Server.StopBurst < 1:
		return errors.New("server.stop_burst must be at least 1")
	case s.Client.RetryMin <= 0:
		return errors.New("client.retry_min must be positive")
	case s.Client.RetryMax < s.Client.RetryMin:
		return fmt.Errorf("client.retry_max (%s) is below client.retry_min (%s)", s.Client.RetryMax, s.Client.RetryMin)
	}
	if _, err := logging.ParseLevel(s.Log.Level); err != nil {
		return err
	}
	return nil
}
