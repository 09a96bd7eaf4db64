package router

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Config holds the router settings that are commonly loaded from a file.
type Config struct {
	Timeout         time.Duration
	CORS            CORSConfig
	QuietdownRoutes []string
	HideHeaders     []string
}

// CORSConfig lists the origins, methods and headers answered on preflight.
// An empty Origins list disables CORS handling.
type CORSConfig struct {
	Origins          []string `toml:"origins"`
	Methods          []string `toml:"methods"`
	Headers          []string `toml:"headers"`
	AllowCredentials bool     `toml:"allow_credentials"`
}

type fileConfig struct {
	Timeout         string     `toml:"timeout"`
	CORS            CORSConfig `toml:"cors"`
	QuietdownRoutes []string   `toml:"quietdown_routes"`
	HideHeaders     []string   `toml:"hide_headers"`
}

// LoadConfig reads a TOML file such as
//
//	timeout = "5s"
//	quietdown_routes = ["/healthz", "/readyz"]
//	hide_headers = ["Authorization"]
//
//	[cors]
//	origins = ["https://admin.internal"]
//
// Keys left out keep their zero value; unknown keys are rejected.
func LoadConfig(path string) (Config, error) {
	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("router: decode %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("router: unknown key %q in %s", undecoded[0].String(), path)
	}

	cfg := Config{
		CORS:            raw.CORS,
		QuietdownRoutes: raw.QuietdownRoutes,
		HideHeaders:     raw.HideHeaders,
	}
	if s := strings.TrimSpace(raw.Timeout); s != "" {
		d, err := time.ParseDuration(s)
		if err != nil || d < 0 {
			return Config{}, fmt.Errorf("router: invalid timeout %q", raw.Timeout)
		}
		cfg.Timeout = d
	}
	return cfg, nil
}

func (c Config) clone() Config {
	c.QuietdownRoutes = cloneStrings(c.QuietdownRoutes)
	c.HideHeaders = cloneStrings(c.HideHeaders)
	c.CORS.Origins = cloneStrings(c.CORS.Origins)
	c.CORS.Methods = cloneStrings(c.CORS.Methods)
	c.CORS.Headers = cloneStrings(c.CORS.Headers)
	return c
}

func cloneStrings(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	return append([]string(nil), values...)
}
