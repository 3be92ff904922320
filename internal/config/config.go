package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Server   ServerConfig   `toml:"server"`
	Database DatabaseConfig `toml:"database"`
	Network  NetworkConfig  `toml:"network"`
	World    WorldConfig    `toml:"world"`
	Logging  LoggingConfig  `toml:"logging"`
}

type ServerConfig struct {
	Name      string `toml:"name"`
	StartTime int64  // set at boot, not from config
}

type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
}

type NetworkConfig struct {
	BindAddress  string        `toml:"bind_address"`
	TickRate     time.Duration `toml:"tick_rate"`
	WriteTimeout time.Duration `toml:"write_timeout"`
	ReadTimeout  time.Duration `toml:"read_timeout"`
	InQueueSize  int           `toml:"in_queue_size"`
}

type WorldConfig struct {
	ModulesDir    string `toml:"modules_dir"`
	StartLocation string `toml:"start_location"`
	AutosaveTicks int    `toml:"autosave_ticks"`
	DataDir       string `toml:"data_dir"`
}

type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "json" or "console"
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg := defaults()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.Server.StartTime = time.Now().Unix()
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Name: "Emberwake",
		},
		Database: DatabaseConfig{
			Path:         "emberwake.db",
			MaxOpenConns: 1,
		},
		Network: NetworkConfig{
			BindAddress:  "0.0.0.0:8080",
			TickRate:     200 * time.Millisecond,
			WriteTimeout: 10 * time.Second,
			ReadTimeout:  60 * time.Second,
			InQueueSize:  64,
		},
		World: WorldConfig{
			ModulesDir:    "world",
			StartLocation: "",
			AutosaveTicks: 1500, // 1500 ticks x 200ms = 5 minutes
			DataDir:       "data",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}
