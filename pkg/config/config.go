// Package config loads and validates Fabrik's on-disk configuration.
//
// The shape mirrors the reference implementation's FabrikConfig: a cache
// section (directory, size budget, eviction policy), a list of upstreams,
// the Fabrik protocol server, and observability settings. Unlike the
// reference implementation, the file format is YAML (matching this
// codebase's own conventions) rather than TOML.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the complete Fabrik daemon configuration.
type Config struct {
	Cache         CacheConfig        `yaml:"cache"`
	Upstream      []UpstreamConfig   `yaml:"upstream"`
	Fabrik        FabrikProtocol     `yaml:"fabrik"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// CacheConfig configures the local cache engine.
type CacheConfig struct {
	Dir            string `yaml:"dir"`
	MaxSize        string `yaml:"max_size"`
	EvictionPolicy string `yaml:"eviction_policy"`
	DefaultTTL     string `yaml:"default_ttl"`
	IndexBackend   string `yaml:"index_backend"` // "bolt" or "badger"; non-reloadable
	MemoryCacheMB  int    `yaml:"memory_cache_mb"`
}

// UpstreamConfig describes an optional regional L2 upstream. Entries are
// validated on load and compared on reload; the daemon does not contact
// them, so misses are not forwarded and Token is not sent anywhere.
type UpstreamConfig struct {
	URL         string `yaml:"url"`
	Timeout     string `yaml:"timeout"`
	ReadOnly    bool   `yaml:"read_only"`
	WriteThrough bool  `yaml:"write_through"`
	Token       string `yaml:"token"`
}

// FabrikProtocol configures the Layer-2 gRPC cache service.
type FabrikProtocol struct {
	Enabled bool   `yaml:"enabled"`
	Bind    string `yaml:"bind"`
}

// ObservabilityConfig configures logging, health, and metrics surfaces.
type ObservabilityConfig struct {
	LogLevel      string `yaml:"log_level"`
	LogFormat     string `yaml:"log_format"`
	HealthBind    string `yaml:"health_bind"`
	HealthEnabled bool   `yaml:"health_enabled"`
	MetricsEnabled bool  `yaml:"metrics_enabled"`
}

// Default returns the configuration used when no file is present, mirroring
// the reference implementation's field defaults.
func Default() *Config {
	return &Config{
		Cache: CacheConfig{
			Dir:            ".fabrik/cache",
			MaxSize:        "5GB",
			EvictionPolicy: "lfu",
			DefaultTTL:     "7d",
			IndexBackend:   "bolt",
		},
		Fabrik: FabrikProtocol{
			Enabled: false,
			Bind:    "0.0.0.0:7070",
		},
		Observability: ObservabilityConfig{
			LogLevel:       "info",
			LogFormat:      "json",
			HealthBind:     "0.0.0.0:8888",
			HealthEnabled:  true,
			MetricsEnabled: true,
		},
	}
}

// Load reads and parses the config file at path, filling unset fields with
// defaults, then validates it.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes raw YAML bytes into a validated Config.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the config for internally-consistent, parseable values.
func (c *Config) Validate() error {
	if c.Cache.Dir == "" {
		return fmt.Errorf("cache.dir must not be empty")
	}
	if _, err := ParseSize(c.Cache.MaxSize); err != nil {
		return fmt.Errorf("cache.max_size: %w", err)
	}
	if _, err := ParseTTL(c.Cache.DefaultTTL); err != nil {
		return fmt.Errorf("cache.default_ttl: %w", err)
	}
	switch strings.ToLower(c.Cache.EvictionPolicy) {
	case "lru", "lfu", "ttl", "ttl-lru", "ttl-lfu":
	default:
		return fmt.Errorf("cache.eviction_policy: unknown policy %q", c.Cache.EvictionPolicy)
	}
	switch c.Cache.IndexBackend {
	case "", "bolt", "badger":
	default:
		return fmt.Errorf("cache.index_backend: unknown backend %q", c.Cache.IndexBackend)
	}
	for i, up := range c.Upstream {
		if up.URL == "" {
			return fmt.Errorf("upstream[%d].url must not be empty", i)
		}
		if up.Timeout != "" {
			if _, err := ParseTTL(up.Timeout); err != nil {
				return fmt.Errorf("upstream[%d].timeout: %w", i, err)
			}
		}
	}
	return nil
}

// ParseSize parses a size string in the grammar <int><unit>, unit in
// {B (omitted), KB, MB, GB, TB}, case-insensitive. Grounded in the
// reference implementation's eviction config size parser.
func ParseSize(s string) (uint64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty size")
	}
	upper := strings.ToUpper(s)
	multiplier := uint64(1)
	numPart := upper
	for _, unit := range []struct {
		suffix string
		mul    uint64
	}{
		{"TB", 1 << 40},
		{"GB", 1 << 30},
		{"MB", 1 << 20},
		{"KB", 1 << 10},
		{"B", 1},
	} {
		if strings.HasSuffix(upper, unit.suffix) {
			multiplier = unit.mul
			numPart = strings.TrimSuffix(upper, unit.suffix)
			break
		}
	}
	n, err := strconv.ParseUint(strings.TrimSpace(numPart), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q: %w", s, err)
	}
	return n * multiplier, nil
}

// ParseTTL parses a duration string in the grammar <int><unit>, unit in
// {s, m, h, d}, case-insensitive.
func ParseTTL(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty duration")
	}
	lower := strings.ToLower(s)
	var unit time.Duration
	var numPart string
	switch {
	case strings.HasSuffix(lower, "d"):
		unit = 24 * time.Hour
		numPart = strings.TrimSuffix(lower, "d")
	case strings.HasSuffix(lower, "h"):
		unit = time.Hour
		numPart = strings.TrimSuffix(lower, "h")
	case strings.HasSuffix(lower, "m"):
		unit = time.Minute
		numPart = strings.TrimSuffix(lower, "m")
	case strings.HasSuffix(lower, "s"):
		unit = time.Second
		numPart = strings.TrimSuffix(lower, "s")
	default:
		return 0, fmt.Errorf("invalid duration %q: missing unit", s)
	}
	n, err := strconv.ParseInt(strings.TrimSpace(numPart), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", s, err)
	}
	return time.Duration(n) * unit, nil
}

// ReloadableDiff describes which fields changed between two configs and
// whether each change can be applied live.
type ReloadableDiff struct {
	Reloadable    []string
	NonReloadable []string
}

// Diff compares old and new, classifying each changed field as reloadable
// or not, per the Hot-Reload Supervisor's field split.
func Diff(old, next *Config) ReloadableDiff {
	var d ReloadableDiff

	if len(old.Upstream) != len(next.Upstream) || !sameUpstreams(old.Upstream, next.Upstream) {
		d.Reloadable = append(d.Reloadable, "upstream")
	}
	if old.Cache.EvictionPolicy != next.Cache.EvictionPolicy {
		d.Reloadable = append(d.Reloadable, "cache.eviction_policy")
	}
	if old.Cache.MaxSize != next.Cache.MaxSize {
		d.Reloadable = append(d.Reloadable, "cache.max_size")
	}
	if old.Cache.DefaultTTL != next.Cache.DefaultTTL {
		d.Reloadable = append(d.Reloadable, "cache.default_ttl")
	}
	if old.Observability.LogLevel != next.Observability.LogLevel {
		d.Reloadable = append(d.Reloadable, "observability.log_level")
	}

	if old.Cache.Dir != next.Cache.Dir {
		d.NonReloadable = append(d.NonReloadable, "cache.dir")
	}
	if old.Cache.IndexBackend != next.Cache.IndexBackend {
		d.NonReloadable = append(d.NonReloadable, "cache.index_backend")
	}
	if old.Fabrik.Bind != next.Fabrik.Bind {
		d.NonReloadable = append(d.NonReloadable, "fabrik.bind")
	}
	if old.Observability.HealthBind != next.Observability.HealthBind {
		d.NonReloadable = append(d.NonReloadable, "observability.health_bind")
	}

	return d
}

func sameUpstreams(a, b []UpstreamConfig) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].URL != b[i].URL || a[i].ReadOnly != b[i].ReadOnly {
			return false
		}
	}
	return true
}
