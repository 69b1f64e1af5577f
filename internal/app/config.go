package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/aussiebroadwan/wingsclient/pkg/httpx"
	"github.com/aussiebroadwan/wingsclient/pkg/wings"
)

// EnvPrefix is the prefix of environment overrides, e.g. WINGS_HOST.
const EnvPrefix = "WINGS_"

// Config is the operator configuration of a node client. Keys are the
// koanf tags; the same names are used in YAML and, upper cased with the
// WINGS_ prefix, in the environment.
type Config struct {
	Host               string        `koanf:"host"`
	Port               int           `koanf:"port"`
	Scheme             string        `koanf:"scheme"`
	Token              string        `koanf:"token"`
	Timeout            time.Duration `koanf:"timeout"`
	ConnectTimeout     time.Duration `koanf:"connect_timeout"`
	CallTimeout        time.Duration `koanf:"call_timeout"`
	MaxRetries         int           `koanf:"max_retries"`
	InsecureSkipVerify bool          `koanf:"insecure_skip_verify"`

	TokenTTL       time.Duration `koanf:"token_ttl"`
	TokenAlgorithm string        `koanf:"token_algorithm"`
	TokenIssuer    string        `koanf:"token_issuer"`

	DNSCacheTTL time.Duration `koanf:"dns_cache_ttl"`

	RateLimitRequests int           `koanf:"rate_limit_requests"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitBurst    int           `koanf:"rate_limit_burst"`

	Env       string `koanf:"env"`        // dev, staging, prod (default: prod)
	LogLevel  string `koanf:"log_level"`  // debug, info, warn, error (default: info)
	LogFormat string `koanf:"log_format"` // json, text (default: json)
}

func defaults() map[string]any {
	return map[string]any{
		"port":                wings.DefaultPort,
		"scheme":              wings.DefaultScheme,
		"timeout":             wings.DefaultTimeout.String(),
		"connect_timeout":     wings.DefaultConnectTimeout.String(),
		"call_timeout":        wings.DefaultCallTimeout.String(),
		"max_retries":         wings.DefaultMaxRetries,
		"token_algorithm":     "HS256",
		"token_ttl":           (15 * time.Minute).String(),
		"dns_cache_ttl":       (5 * time.Minute).String(),
		"rate_limit_requests": httpx.DefaultNodeLimit.RequestsPerWindow,
		"rate_limit_window":   httpx.DefaultNodeLimit.Window.String(),
		"rate_limit_burst":    httpx.DefaultNodeLimit.Burst,
		"env":                 "prod",
		"log_level":           "info",
		"log_format":          "json",
	}
}

// LoadOption adjusts LoadConfig.
type LoadOption func(*loader)

type loader struct {
	file      string
	envPrefix string
	overrides map[string]any
}

// WithConfigFile reads a YAML file after the defaults.
func WithConfigFile(path string) LoadOption {
	return func(l *loader) { l.file = path }
}

// WithEnvPrefix replaces EnvPrefix.
func WithEnvPrefix(prefix string) LoadOption {
	return func(l *loader) { l.envPrefix = prefix }
}

// WithOverrides applies values after the environment, typically flags the
// operator set explicitly.
func WithOverrides(values map[string]any) LoadOption {
	return func(l *loader) { l.overrides = values }
}

// LoadConfig merges, in increasing priority: defaults, the YAML file, the
// environment and overrides.
func LoadConfig(opts ...LoadOption) (Config, error) {
	l := &loader{envPrefix: EnvPrefix}
	for _, opt := range opts {
		opt(l)
	}

	k := koanf.New(".")
	if err := k.Load(mapProvider(defaults()), nil); err != nil {
		return Config{}, fmt.Errorf("load defaults: %w", err)
	}

	if l.file != "" {
		if err := k.Load(file.Provider(l.file), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("load config file %s: %w", l.file, err)
		}
	}

	// WINGS_CONNECT_TIMEOUT -> connect_timeout. Keys are flat so
	// underscores are kept.
	prefix := l.envPrefix
	envKey := func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, prefix))
	}
	if err := k.Load(env.Provider(prefix, ".", envKey), nil); err != nil {
		return Config{}, fmt.Errorf("load env: %w", err)
	}

	if len(l.overrides) > 0 {
		if err := k.Load(mapProvider(l.overrides), nil); err != nil {
			return Config{}, fmt.Errorf("load overrides: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, nil
}

// Validate checks what the node client cannot default.
func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Host) == "" {
		errs = append(errs, errors.New("host is required (WINGS_HOST)"))
	}
	if c.RateLimitRequests < 0 || c.RateLimitBurst < 0 {
		errs = append(errs, errors.New("rate limit values must not be negative"))
	}
	return errors.Join(errs...)
}

// RateLimit returns the pacing settings.
func (c Config) RateLimit() httpx.RateLimitConfig {
	return httpx.RateLimitConfig{
		RequestsPerWindow: c.RateLimitRequests,
		Window:            c.RateLimitWindow,
		Burst:             c.RateLimitBurst,
	}
}

// mapProvider feeds an in-memory map to koanf.
type mapProvider map[string]any

var errReadBytes = errors.New("app: map provider does not support ReadBytes")

func (m mapProvider) ReadBytes() ([]byte, error) { return nil, errReadBytes }

func (m mapProvider) Read() (map[string]any, error) { return m, nil }
