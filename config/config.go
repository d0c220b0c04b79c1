package config

import (
	"flag"
	"net/url"
	"os"
	"strings"
	"time"
	_ "time/tzdata"

	"f1countdown/season"

	"github.com/pkg/errors"
)

// Environment variables read by FromEnv.
const (
	EnvEndpoints      = "F1_ENDPOINTS"
	EnvListenAddr     = "LISTEN_ADDR"
	EnvReloadInterval = "F1_RELOAD_INTERVAL"
	EnvFetchTimeout   = "F1_FETCH_TIMEOUT"
	EnvTimezone       = "F1_TIMEZONE"
)

// Default values
const (
	DefaultListenAddr     = "localhost:8080"
	DefaultReloadInterval = season.DefaultLoadInterval
	DefaultFetchTimeout   = 20 * time.Second
	DefaultTimezone       = "UTC"
)

// Config is the static configuration of the service.
type Config struct {
	ListenAddr     string
	Endpoints      []string
	ReloadInterval time.Duration
	FetchTimeout   time.Duration
	Timezone       string
}

func Default() Config {
	return Config{
		ListenAddr:     DefaultListenAddr,
		Endpoints:      append([]string(nil), season.DefaultEndpoints...),
		ReloadInterval: DefaultReloadInterval,
		FetchTimeout:   DefaultFetchTimeout,
		Timezone:       DefaultTimezone,
	}
}

// FromEnv applies environment overrides on top of c.
func (c Config) FromEnv(getenv func(string) string) (Config, error) {
	if getenv == nil {
		getenv = os.Getenv
	}
	if v := getenv(EnvEndpoints); v != "" {
		c.Endpoints = SplitList(v)
	}
	if v := getenv(EnvListenAddr); v != "" {
		c.ListenAddr = v
	}
	if v := getenv(EnvReloadInterval); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return c, errors.Wrapf(err, "%s", EnvReloadInterval)
		}
		c.ReloadInterval = d
	}
	if v := getenv(EnvFetchTimeout); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return c, errors.Wrapf(err, "%s", EnvFetchTimeout)
		}
		c.FetchTimeout = d
	}
	if v := getenv(EnvTimezone); v != "" {
		c.Timezone = v
	}
	return c, nil
}

// RegisterFlags binds command line flags to c, using its current values as defaults.
func (c *Config) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.ListenAddr, "addr", c.ListenAddr, "address to listen on")
	fs.Func("endpoints", "comma separated calendar endpoints, tried in order", func(v string) error {
		c.Endpoints = SplitList(v)
		return nil
	})
	fs.DurationVar(&c.ReloadInterval, "reload", c.ReloadInterval, "how often the calendar is refetched")
	fs.DurationVar(&c.FetchTimeout, "fetch-timeout", c.FetchTimeout, "timeout for one pass over all endpoints")
	fs.StringVar(&c.Timezone, "tz", c.Timezone, "default IANA timezone used for display")
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	if len(c.Endpoints) == 0 {
		return errors.New("at least one endpoint is required")
	}
	for _, e := range c.Endpoints {
		u, err := url.Parse(e)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return errors.Errorf("invalid endpoint %q", e)
		}
	}
	if c.ListenAddr == "" {
		return errors.New("listen address is required")
	}
	if c.ReloadInterval <= 0 {
		return errors.Errorf("reload interval must be positive, got %s", c.ReloadInterval)
	}
	if c.FetchTimeout <= 0 {
		return errors.Errorf("fetch timeout must be positive, got %s", c.FetchTimeout)
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return errors.Wrapf(err, "timezone %q", c.Timezone)
	}
	return nil
}

// Location returns the configured display timezone, UTC when it cannot be loaded.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// SplitList splits a comma separated list, dropping blanks.
func SplitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
