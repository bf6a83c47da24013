package config

import (
	"time"
)

type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Log           LogConfig           `yaml:"log"`
	Store         StoreConfig         `yaml:"store"`
	Cache         CacheConfig         `yaml:"cache"`
	Admin         AdminConfig         `yaml:"admin"`
	Observability ObservabilityConfig `yaml:"observability"`
}

type ServerConfig struct {
	IP              string        `yaml:"ip" validate:"omitempty,ip"`
	Port            int           `yaml:"port" validate:"min=1,max=65535"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" validate:"min=0"`
	CORSOrigins     []string      `yaml:"cors_origins"`
	// StaticRoot, when set, is served at / next to the API.
	StaticRoot      string        `yaml:"static_root,omitempty"`
}

type LogConfig struct {
	Level string `yaml:"log_level" validate:"omitempty,oneof=debug info warn error DEBUG INFO WARN ERROR"`
	Dir   string `yaml:"log_dir"`
	File  string `yaml:"log_file"`
}

type StoreConfig struct {
	Driver          string        `yaml:"driver" validate:"oneof=memory sqlite redis"`
	KeyPrefix       string        `yaml:"key_prefix"`
	CleanupInterval time.Duration `yaml:"cleanup_interval" validate:"min=0"`
	Redis           RedisConfig   `yaml:"redis"`
	SQLite          SQLiteConfig  `yaml:"sqlite"`
	Memory          MemoryConfig  `yaml:"memory"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr" validate:"omitempty,hostname_port"`
	Username string `yaml:"username,omitempty"`
	Password string `yaml:"password,omitempty"`
	DB       int    `yaml:"db,omitempty" validate:"min=0,max=15"`
}

type SQLiteConfig struct {
	DSN string `yaml:"dsn,omitempty"`
}

type MemoryConfig struct {
	GCInterval time.Duration `yaml:"gc_interval" validate:"min=0"`
}

type CacheConfig struct {
	Driver    string             `yaml:"driver" validate:"oneof=memory redis"`
	Namespace string             `yaml:"namespace"`
	Size      int                `yaml:"size" validate:"min=0"`
	Profile   ProfileCacheConfig `yaml:"profile"`
}

type ProfileCacheConfig struct {
	Enabled    bool          `yaml:"enabled"`
	KeyPrefix  string        `yaml:"key_prefix"`
	Expiration time.Duration `yaml:"expiration" validate:"min=0"`
}

type AdminConfig struct {
	Enabled   bool          `yaml:"enabled"`
	JWTSecret string        `yaml:"jwt_secret" validate:"required_if=Enabled true"`
	Issuer    string        `yaml:"issuer"`
	TokenTTL  time.Duration `yaml:"token_ttl" validate:"min=0"`
}

type ObservabilityConfig struct {
	Enabled       bool          `yaml:"enabled"`
	SlowThreshold time.Duration `yaml:"slow_threshold" validate:"min=0"`
}
