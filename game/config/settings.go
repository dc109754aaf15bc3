package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

var ErrInvalidSettings = errors.New("invalid server settings")

// Settings is the server configuration file.
type Settings struct {
	Server  ServerSettings  `yaml:"server"`
	Log     LogSettings     `yaml:"log"`
	Rooms   RoomSettings    `yaml:"rooms"`
	Presets PresetSettings  `yaml:"presets"`
	History HistorySettings `yaml:"history"`
	Ngrok   NgrokSettings   `yaml:"ngrok"`
}

type ServerSettings struct {
	Host            string        `yaml:"host"`
	Port            string        `yaml:"port"`
	StaticDir       string        `yaml:"static_dir"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type LogSettings struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// RoomSettings bound room size and lifetime.
type RoomSettings struct {
	MaxPlayers    int           `yaml:"max_players"`
	IdleTimeout   time.Duration `yaml:"idle_timeout"`
	SweepInterval time.Duration `yaml:"sweep_interval"`
}

type PresetSettings struct {
	Dir     string `yaml:"dir"`
	Default string `yaml:"default"`
}

// HistorySettings control where resolved hands are recorded. Limit is the
// number of hands kept in memory per room.
type HistorySettings struct {
	Limit   int    `yaml:"limit"`
	Dir     string `yaml:"dir"`
	NATSURL string `yaml:"nats_url"`
	Subject string `yaml:"subject"`
}

type NgrokSettings struct {
	Enabled   bool   `yaml:"enabled"`
	AuthToken string `yaml:"auth_token"`
	Domain    string `yaml:"domain"`
}

// Default returns the settings used when no file is given.
func Default() Settings {
	return Settings{
		Server: ServerSettings{
			Host:            "localhost",
			Port:            "8080",
			StaticDir:       "./static",
			ShutdownTimeout: 30 * time.Second,
		},
		Log: LogSettings{
			Level:  "info",
			Format: "text",
		},
		Rooms: RoomSettings{
			MaxPlayers:    10,
			IdleTimeout:   6 * time.Hour,
			SweepInterval: time.Minute,
		},
		Presets: PresetSettings{
			Default: DefaultPresetID,
		},
		History: HistorySettings{
			Limit:   100,
			Subject: "chiptracker.hands",
		},
	}
}

// Load reads a YAML settings file over the defaults. An empty path returns
// the defaults.
func Load(path string) (Settings, error) {
	s := Default()
	if path == "" {
		return s, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return s, fmt.Errorf("failed to read settings file: %w", err)
	}
	if err := yaml.Unmarshal(data, &s); err != nil {
		return s, fmt.Errorf("%w: failed to parse %s: %v", ErrInvalidSettings, path, err)
	}
	if err := s.Validate(); err != nil {
		return s, err
	}
	return s, nil
}

// Validate checks the settings for values the server cannot run with.
func (s Settings) Validate() error {
	if s.Server.Port == "" {
		return fmt.Errorf("%w: config validation: server.port is required", ErrInvalidSettings)
	}
	if s.Rooms.MaxPlayers < 2 {
		return fmt.Errorf("%w: config validation: rooms.max_players must be at least 2, got %d", ErrInvalidSettings, s.Rooms.MaxPlayers)
	}
	if s.Rooms.IdleTimeout <= 0 {
		return fmt.Errorf("%w: config validation: rooms.idle_timeout must be positive", ErrInvalidSettings)
	}
	if s.Rooms.SweepInterval <= 0 {
		return fmt.Errorf("%w: config validation: rooms.sweep_interval must be positive", ErrInvalidSettings)
	}
	if s.History.Limit < 0 {
		return fmt.Errorf("%w: config validation: history.limit cannot be negative", ErrInvalidSettings)
	}
	switch s.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("%w: config validation: log.format must be text or json, got %q", ErrInvalidSettings, s.Log.Format)
	}
	return nil
}

// Addr returns host:port for the HTTP listener.
func (s Settings) Addr() string {
	return fmt.Sprintf("%s:%s", s.Server.Host, s.Server.Port)
}
