package ratelimit

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// EndpointConfig allows Limit requests per Window for one method and path
// pattern. Path segments may be "*", and a pattern ending in "/" matches the
// whole subtree. A zero Burst defaults to Limit.
type EndpointConfig struct {
	Path   string
	Method string
	Limit  int
	Window time.Duration
	Burst  int
}

// Environment variables read by LoadConfig.
const (
	EnvEnabled         = "RATE_LIMIT_ENABLED"
	EnvDefaultLimit    = "RATE_LIMIT_DEFAULT_LIMIT"
	EnvDefaultWindow   = "RATE_LIMIT_DEFAULT_WINDOW"
	EnvCleanupInterval = "RATE_LIMIT_CLEANUP_INTERVAL"
	EnvWhitelist       = "RATE_LIMIT_WHITELIST"
	EnvBlacklist       = "RATE_LIMIT_BLACKLIST"
	EnvEndpoints       = "RATE_LIMIT_ENDPOINTS" // "POST /sessions/*/discover=5/1h,POST /auth/token=3/1m"
)

// LoadConfig reads the limiter configuration from the environment. Malformed
// values fall back to their defaults.
func LoadConfig() *Config {
	return loadConfig(os.Getenv)
}

func loadConfig(getenv func(string) string) *Config {
	env := envReader(getenv)
	if !env.bool(EnvEnabled, true) {
		return &Config{Enabled: false}
	}

	endpoints := DefaultEndpointConfigs()
	if overrides, err := ParseEndpointOverrides(getenv(EnvEndpoints)); err == nil {
		endpoints = applyOverrides(endpoints, overrides)
	}

	return &Config{
		Enabled:         true,
		DefaultLimit:    env.int(EnvDefaultLimit, 1000),
		DefaultWindow:   env.duration(EnvDefaultWindow, time.Minute),
		CleanupInterval: env.duration(EnvCleanupInterval, 5*time.Minute),
		Whitelist:       parseIPList(getenv(EnvWhitelist)),
		Blacklist:       parseIPList(getenv(EnvBlacklist)),
		EndpointConfigs: endpoints,
	}
}

// DefaultEndpointConfigs keeps crawling and LLM steps well below the general
// limit, since each call fans out to many fetches or model requests.
func DefaultEndpointConfigs() []EndpointConfig {
	return []EndpointConfig{
		{Path: "/sessions/*/discover", Method: "POST", Limit: 10, Window: time.Hour, Burst: 2},
		{Path: "/sessions/*/scrape", Method: "POST", Limit: 20, Window: time.Hour, Burst: 3},
		{Path: "/sessions/*/process", Method: "POST", Limit: 20, Window: time.Hour, Burst: 3},
		{Path: "/sessions/*/combine", Method: "POST", Limit: 20, Window: time.Hour, Burst: 3},
		{Path: "/sessions/*/steps/*", Method: "POST", Limit: 30, Window: time.Hour, Burst: 5},

		{Path: "/auth/token", Method: "POST", Limit: 10, Window: time.Minute, Burst: 5},
		{Path: "/sessions", Method: "POST", Limit: 60, Window: time.Minute, Burst: 10},
		{Path: "/sessions/*/documents", Method: "POST", Limit: 100, Window: time.Minute, Burst: 10},
	}
}

// ParseEndpointOverrides parses comma-separated "METHOD PATH=LIMIT/WINDOW"
// entries. Burst is left zero and so defaults to the limit.
func ParseEndpointOverrides(spec string) ([]EndpointConfig, error) {
	var out []EndpointConfig
	for _, entry := range strings.Split(spec, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		route, quota, ok := strings.Cut(entry, "=")
		if !ok {
			return nil, fmt.Errorf("rate limit override %q: missing '='", entry)
		}
		method, path, ok := strings.Cut(strings.TrimSpace(route), " ")
		if !ok || strings.TrimSpace(path) == "" {
			return nil, fmt.Errorf("rate limit override %q: want METHOD PATH", entry)
		}
		limitText, windowText, ok := strings.Cut(quota, "/")
		if !ok {
			return nil, fmt.Errorf("rate limit override %q: want LIMIT/WINDOW", entry)
		}
		limit, err := strconv.Atoi(strings.TrimSpace(limitText))
		if err != nil || limit <= 0 {
			return nil, fmt.Errorf("rate limit override %q: bad limit", entry)
		}
		window, err := time.ParseDuration(strings.TrimSpace(windowText))
		if err != nil || window <= 0 {
			return nil, fmt.Errorf("rate limit override %q: bad window", entry)
		}
		out = append(out, EndpointConfig{
			Path:   strings.TrimSpace(path),
			Method: strings.ToUpper(method),
			Limit:  limit,
			Window: window,
		})
	}
	return out, nil
}

// applyOverrides replaces entries with the same method and path and appends
// the rest.
func applyOverrides(base, overrides []EndpointConfig) []EndpointConfig {
	out := append([]EndpointConfig(nil), base...)
	for _, o := range overrides {
		replaced := false
		for i := range out {
			if out[i].Method == o.Method && out[i].Path == o.Path {
				out[i] = o
				replaced = true
			}
		}
		if !replaced {
			out = append(out, o)
		}
	}
	return out
}

type envReader func(string) string

func (e envReader) int(key string, def int) int {
	if n, err := strconv.Atoi(e(key)); err == nil {
		return n
	}
	return def
}

func (e envReader) bool(key string, def bool) bool {
	if b, err := strconv.ParseBool(e(key)); err == nil {
		return b
	}
	return def
}

func (e envReader) duration(key string, def time.Duration) time.Duration {
	if d, err := time.ParseDuration(e(key)); err == nil {
		return d
	}
	return def
}

func parseIPList(list string) map[string]bool {
	ips := make(map[string]bool)
	for _, ip := range strings.Split(list, ",") {
		if ip = strings.TrimSpace(ip); ip != "" {
			ips[ip] = true
		}
	}
	return ips
}
