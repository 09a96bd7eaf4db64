package main

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/drblury/svcweaver/registry"
)

type fileConfig struct {
	Log struct {
		Level  string `toml:"level"`
		Format string `toml:"format"`
	} `toml:"log"`
	Client struct {
		Timeout   string            `toml:"timeout"`
		Headers   map[string]string `toml:"headers"`
		Arguments bool              `toml:"arguments"`
		Backtrace bool              `toml:"backtrace"`
	} `toml:"client"`
	Registry struct {
		SQLite string `toml:"sqlite"`
	} `toml:"registry"`
	Services map[string]registry.Entry `toml:"services"`
}

type config struct {
	LogLevel   slog.Level
	LogFormat  string
	Timeout    time.Duration
	Headers    map[string]string
	Arguments  bool
	Backtrace  bool
	SQLitePath string
	Services   map[string]registry.Entry
}

func defaultConfig() config {
	return config{
		LogLevel:  slog.LevelInfo,
		LogFormat: "console",
		Timeout:   10 * time.Second,
		Headers:   map[string]string{},
		Arguments: true,
		Backtrace: true,
		Services:  map[string]registry.Entry{},
	}
}

func loadConfig(path string) (config, error) {
	cfg := defaultConfig()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return config{}, fmt.Errorf("load svccall config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, key := range undecoded {
			keys = append(keys, key.String())
		}
		return config{}, fmt.Errorf("load svccall config: unknown keys: %s", strings.Join(keys, ", "))
	}

	if meta.IsDefined("log", "level") {
		var level slog.Level
		if err := level.UnmarshalText([]byte(strings.TrimSpace(raw.Log.Level))); err != nil {
			return config{}, fmt.Errorf("parse log.level: %w", err)
		}
		cfg.LogLevel = level
	}

	if meta.IsDefined("log", "format") {
		format := strings.ToLower(strings.TrimSpace(raw.Log.Format))
		if format != "console" && format != "json" {
			return config{}, fmt.Errorf("parse log.format: unsupported format %q", raw.Log.Format)
		}
		cfg.LogFormat = format
	}

	if meta.IsDefined("client", "timeout") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.Client.Timeout))
		if err != nil {
			return config{}, fmt.Errorf("parse client.timeout: %w", err)
		}
		cfg.Timeout = d
	}

	if meta.IsDefined("client", "headers") {
		for key, value := range raw.Client.Headers {
			cfg.Headers[key] = value
		}
	}

	if meta.IsDefined("client", "arguments") {
		cfg.Arguments = raw.Client.Arguments
	}

	if meta.IsDefined("client", "backtrace") {
		cfg.Backtrace = raw.Client.Backtrace
	}

	if meta.IsDefined("registry", "sqlite") {
		cfg.SQLitePath = strings.TrimSpace(raw.Registry.SQLite)
	}

	if meta.IsDefined("services") {
		for name, entry := range raw.Services {
			cfg.Services[name] = entry
		}
	}

	return cfg, nil
}
