package registry

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
)

// Entry is one service in a registry file.
//
//	[services.core]
//	url = "http://core.internal:8080"
type Entry struct {
	URL string `toml:"url"`
}

type fileConfig struct {
	Services map[string]Entry `toml:"services"`
}

// LoadFile reads a TOML registry file.
func LoadFile(path string) (*Static, error) {
	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return nil, fmt.Errorf("load registry: %w", err)
	}
	if err := rejectUndecoded(meta); err != nil {
		return nil, fmt.Errorf("load registry %s: %w", path, err)
	}
	return FromEntries(raw.Services)
}

// Parse reads a TOML registry document from memory.
func Parse(data []byte) (*Static, error) {
	var raw fileConfig
	meta, err := toml.Decode(string(data), &raw)
	if err != nil {
		return nil, fmt.Errorf("parse registry: %w", err)
	}
	if err := rejectUndecoded(meta); err != nil {
		return nil, fmt.Errorf("parse registry: %w", err)
	}
	return FromEntries(raw.Services)
}

// FromEntries builds a Static resolver from decoded entries.
func FromEntries(entries map[string]Entry) (*Static, error) {
	services := make(map[string]string, len(entries))
	for name, entry := range entries {
		services[name] = entry.URL
	}
	return NewStatic(services)
}

func rejectUndecoded(meta toml.MetaData) error {
	undecoded := meta.Undecoded()
	if len(undecoded) == 0 {
		return nil
	}
	keys := make([]string, 0, len(undecoded))
	for _, key := range undecoded {
		keys = append(keys, key.String())
	}
	return fmt.Errorf("unknown keys: %s", strings.Join(keys, ", "))
}
