package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	platformerrors "grant-store/internal/platform/errors"
)

// EnvPrefix namespaces every environment override.
const EnvPrefix = "GRANTSTORE_"

const opLoad = "config.load"

// defaultPaths are probed in order when no explicit path is configured.
var defaultPaths = []string{".config.yaml", "config.yaml"}

// Loader reads YAML configuration, layers environment overrides on top and validates the result.
type Loader struct {
	useDotEnv bool
	path      string
	lookupEnv func(string) (string, bool)
	validate  *validator.Validate
}

// NewLoader creates a loader that probes the default paths and honours .env files.
func NewLoader() *Loader {
	return &Loader{
		useDotEnv: true,
		lookupEnv: os.LookupEnv,
		validate:  validator.New(validator.WithRequiredStructEnabled()),
	}
}

// WithDotEnv toggles loading variables from a .env file before reading config.
func (l *Loader) WithDotEnv(enabled bool) *Loader {
	l.useDotEnv = enabled
	return l
}

// WithPath pins the configuration file. A pinned file must exist.
func (l *Loader) WithPath(path string) *Loader {
	l.path = path
	return l
}

// WithLookupEnv overrides environment lookup (useful for tests).
func (l *Loader) WithLookupEnv(fn func(string) (string, bool)) *Loader {
	if fn != nil {
		l.lookupEnv = fn
	}
	return l
}

// Result captures the loaded configuration and its origin path.
type Result struct {
	Config *Config
	Path   string
}

// Load resolves defaults, file, then environment, in that order of precedence.
func (l *Loader) Load() (*Result, error) {
	if l.useDotEnv {
		// a missing .env is normal outside development
		_ = godotenv.Load()
	}

	cfg := DefaultConfig()
	path, err := l.readFile(cfg)
	if err != nil {
		return nil, err
	}
	if err := l.applyEnv(cfg); err != nil {
		return nil, err
	}
	if err := l.Validate(cfg); err != nil {
		return nil, err
	}
	return &Result{Config: cfg, Path: path}, nil
}

func (l *Loader) readFile(cfg *Config) (string, error) {
	candidates := defaultPaths
	if l.path != "" {
		candidates = []string{l.path}
	}

	for _, path := range candidates {
		data, err := os.ReadFile(path)
		if errors.Is(err, os.ErrNotExist) && l.path == "" {
			continue
		}
		if err != nil {
			return "", platformerrors.Wrap(platformerrors.KindConfig, opLoad, "read "+path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return "", platformerrors.Wrap(platformerrors.KindConfig, opLoad, "parse "+path, err)
		}
		return path, nil
	}
	return "", nil
}

type override struct {
	name  string
	apply func(cfg *Config, value string) error
}

var overrides = []override{
	{"SERVER_IP", func(c *Config, v string) error { c.Server.IP = v; return nil }},
	{"SERVER_PORT", func(c *Config, v string) error { return setInt(&c.Server.Port, v) }},
	{"LOG_LEVEL", func(c *Config, v string) error { c.Log.Level = v; return nil }},
	{"LOG_DIR", func(c *Config, v string) error { c.Log.Dir = v; return nil }},
	{"STORE_DRIVER", func(c *Config, v string) error { c.Store.Driver = v; return nil }},
	{"STORE_KEY_PREFIX", func(c *Config, v string) error { c.Store.KeyPrefix = v; return nil }},
	{"STORE_CLEANUP_INTERVAL", func(c *Config, v string) error { return setDuration(&c.Store.CleanupInterval, v) }},
	{"REDIS_ADDR", func(c *Config, v string) error { c.Store.Redis.Addr = v; return nil }},
	{"REDIS_USERNAME", func(c *Config, v string) error { c.Store.Redis.Username = v; return nil }},
	{"REDIS_PASSWORD", func(c *Config, v string) error { c.Store.Redis.Password = v; return nil }},
	{"REDIS_DB", func(c *Config, v string) error { return setInt(&c.Store.Redis.DB, v) }},
	{"SQLITE_DSN", func(c *Config, v string) error { c.Store.SQLite.DSN = v; return nil }},
	{"CACHE_DRIVER", func(c *Config, v string) error { c.Cache.Driver = v; return nil }},
	{"ADMIN_ENABLED", func(c *Config, v string) error { return setBool(&c.Admin.Enabled, v) }},
	{"ADMIN_JWT_SECRET", func(c *Config, v string) error { c.Admin.JWTSecret = v; return nil }},
	{"OBSERVABILITY_ENABLED", func(c *Config, v string) error { return setBool(&c.Observability.Enabled, v) }},
}

func (l *Loader) applyEnv(cfg *Config) error {
	for _, o := range overrides {
		value, ok := l.lookupEnv(EnvPrefix + o.name)
		if !ok {
			continue
		}
		if err := o.apply(cfg, strings.TrimSpace(value)); err != nil {
			return platformerrors.Wrap(platformerrors.KindConfig, opLoad, EnvPrefix+o.name, err)
		}
	}
	return nil
}

// Validate checks field constraints and the cross-section rules the tags cannot express.
func (l *Loader) Validate(cfg *Config) error {
	if err := l.validate.Struct(cfg); err != nil {
		return platformerrors.Wrap(platformerrors.KindConfig, "config.validate", "invalid configuration", err)
	}
	if (cfg.Store.Driver == "redis" || cfg.Cache.Driver == "redis") && cfg.Store.Redis.Addr == "" {
		return platformerrors.New(platformerrors.KindConfig, "config.validate", "store.redis.addr required for redis drivers")
	}
	if cfg.Admin.Enabled && len(cfg.Admin.JWTSecret) < 16 {
		return platformerrors.New(platformerrors.KindConfig, "config.validate", "admin.jwt_secret must be at least 16 bytes")
	}
	return nil
}

func setInt(dst *int, v string) error {
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("invalid integer %q", v)
	}
	*dst = n
	return nil
}

func setBool(dst *bool, v string) error {
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("invalid boolean %q", v)
	}
	*dst = b
	return nil
}

func setDuration(dst *time.Duration, v string) error {
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("invalid duration %q", v)
	}
	*dst = d
	return nil
}
