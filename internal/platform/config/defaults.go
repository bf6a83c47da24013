package config

import "time"

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			IP:              "0.0.0.0",
			Port:            8080,
			ShutdownTimeout: 10 * time.Second,
		},
		Log: LogConfig{
			Level: "info",
			Dir:   "data/logs",
			File:  "grant-server.log",
		},
		Store: StoreConfig{
			Driver:          "redis",
			KeyPrefix:       "grants",
			CleanupInterval: 5 * time.Minute,
			Redis: RedisConfig{
				Addr: "127.0.0.1:6379",
			},
			SQLite: SQLiteConfig{
				DSN: "data/grants.db",
			},
			Memory: MemoryConfig{
				GCInterval: time.Minute,
			},
		},
		Cache: CacheConfig{
			Driver:    "redis",
			Namespace: "cache",
			Size:      1024,
			Profile: ProfileCacheConfig{
				Enabled:    true,
				KeyPrefix:  "profile",
				Expiration: 10 * time.Minute,
			},
		},
		Admin: AdminConfig{
			Issuer:   "grant-server",
			TokenTTL: time.Hour,
		},
	}
}
