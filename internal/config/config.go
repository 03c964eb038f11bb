// Package config loads the recognized environment options and
// selects the Store backend they imply. Struct-of-concerns layout
// follows the teacher's pkg/config.Config; the source is environment
// variables rather than a JSON file, since that's how the recognized
// options table in the storage contract is expressed.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Backend names the selected Store implementation.
type Backend int

const (
	BackendEmbedded Backend = iota
	BackendPostgres
)

// Config is the full set of recognized options.
type Config struct {
	DatabaseURL            string
	Backend                Backend
	CORSOrigins            []string
	Debug                  bool
	Host                   string
	Port                   int
	MaxSyncBatchSize       int // 0 = unbounded
	SyncEventRetentionDays int // advisory; not enforced by the core
}

// Load reads the recognized options from the environment, applying
// the defaults a local development run would want.
func Load() Config {
	cfg := Config{
		DatabaseURL: os.Getenv("DATABASE_URL"),
		Debug:       envBool("DEBUG", false),
		Host:        envString("HOST", "0.0.0.0"),
		Port:        envInt("PORT", 8080),
	}
	cfg.Backend = backendFor(cfg.DatabaseURL)

	if origins := os.Getenv("CORS_ORIGINS"); origins != "" {
		for _, o := range strings.Split(origins, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.CORSOrigins = append(cfg.CORSOrigins, o)
			}
		}
	}

	cfg.MaxSyncBatchSize = envInt("MAX_SYNC_BATCH_SIZE", 0)
	cfg.SyncEventRetentionDays = envInt("SYNC_EVENT_RETENTION_DAYS", 0)
	return cfg
}

// backendFor selects the networked relational engine when
// DATABASE_URL carries a postgres(ql):// prefix, else the embedded
// single-file engine.
func backendFor(databaseURL string) Backend {
	if strings.HasPrefix(databaseURL, "postgres://") || strings.HasPrefix(databaseURL, "postgresql://") {
		return BackendPostgres
	}
	return BackendEmbedded
}

// RetentionDuration returns SyncEventRetentionDays as a Duration, for
// callers that eventually implement log garbage collection (out of
// scope for the core, per spec §1).
func (c Config) RetentionDuration() time.Duration {
	return time.Duration(c.SyncEventRetentionDays) * 24 * time.Hour
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func envBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}
