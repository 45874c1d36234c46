// Package config defines the configuration structures of the MolGrid data
// layer. No I/O or parsing logic lives here, only plain data types and
// validation.
package config

import (
	"strings"
	"time"

	"github.com/turtacn/molgrid/pkg/errors"
)

// ─────────────────────────────────────────────────────────────────────────────
// Sub-configuration structs
// ─────────────────────────────────────────────────────────────────────────────

// AcceleratorConfig sizes the parallel backend.
type AcceleratorConfig struct {
	// Workers is the number of x-slab workers; 0 means GOMAXPROCS.
	Workers int `mapstructure:"workers"`
	// MemoryLimitBytes caps the atom buffer; 0 means unlimited.
	MemoryLimitBytes int64 `mapstructure:"memory_limit_bytes"`
}

// GridConfig holds the rasterization and augmentation parameters.
type GridConfig struct {
	Resolution      float64           `mapstructure:"resolution"`
	Dimension       float64           `mapstructure:"dimension"`
	RadiusMultiple  float64           `mapstructure:"radius_multiple"`
	RandomTranslate float64           `mapstructure:"random_translate"`
	RandomRotate    bool              `mapstructure:"random_rotate"`
	Binary          bool              `mapstructure:"binary"`
	DensityCap      float64           `mapstructure:"density_cap"`
	NumRotations    uint              `mapstructure:"num_rotations"`
	UseAccelerator  bool              `mapstructure:"use_accelerator"`
	Accelerator     AcceleratorConfig `mapstructure:"accelerator"`
}

// DataConfig describes where examples come from and how they are batched.
type DataConfig struct {
	// RootFolder prefixes every structure path. It may be a local directory
	// or an s3://bucket/prefix location.
	RootFolder    string   `mapstructure:"root_folder"`
	Source        string   `mapstructure:"source"`
	ActivesSource string   `mapstructure:"actives_source"`
	DecoysSource  string   `mapstructure:"decoys_source"`
	BatchSize     int      `mapstructure:"batch_size"`
	Balanced      bool     `mapstructure:"balanced"`
	Shuffle       bool     `mapstructure:"shuffle"`
	Seed          int64    `mapstructure:"seed"`
	InMemory      bool     `mapstructure:"in_memory"`
	Prefetch      bool     `mapstructure:"prefetch"`
	ReceptorTypes []string `mapstructure:"receptor_types"`
	LigandTypes   []string `mapstructure:"ligand_types"`
}

// RedisConfig enables the shared geometry tier.
type RedisConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	Mode      string        `mapstructure:"mode"`
	Addr      string        `mapstructure:"addr"`
	Password  string        `mapstructure:"password"`
	DB        int           `mapstructure:"db"`
	KeyPrefix string        `mapstructure:"key_prefix"`
	TTL       time.Duration `mapstructure:"ttl"`
}

type CacheConfig struct {
	Redis RedisConfig `mapstructure:"redis"`
}

// MinIOConfig enables object storage for s3:// locations.
type MinIOConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Bucket    string `mapstructure:"bucket"`
	UseSSL    bool   `mapstructure:"use_ssl"`
	Region    string `mapstructure:"region"`
}

type StorageConfig struct {
	MinIO MinIOConfig `mapstructure:"minio"`
}

// LogConfig mirrors logging.LogConfig.
type LogConfig struct {
	Level       string   `mapstructure:"level"`
	Format      string   `mapstructure:"format"`
	OutputPaths []string `mapstructure:"output_paths"`
}

type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Namespace string `mapstructure:"namespace"`
}

// RateLimitConfig throttles /api/v1 per client IP. A zero rate disables it.
type RateLimitConfig struct {
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

// ServerConfig holds HTTP server tunables.
type ServerConfig struct {
	Addr            string          `mapstructure:"addr"`
	Mode            string          `mapstructure:"mode"` // "debug" | "release" | "test"
	ShutdownTimeout time.Duration   `mapstructure:"shutdown_timeout"`
	RateLimit       RateLimitConfig `mapstructure:"rate_limit"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Root
// ─────────────────────────────────────────────────────────────────────────────

// Config is the root configuration object.
type Config struct {
	Grid    GridConfig    `mapstructure:"grid"`
	Data    DataConfig    `mapstructure:"data"`
	Cache   CacheConfig   `mapstructure:"cache"`
	Storage StorageConfig `mapstructure:"storage"`
	Log     LogConfig     `mapstructure:"log"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Server  ServerConfig  `mapstructure:"server"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Validation
// ─────────────────────────────────────────────────────────────────────────────

func invalid(format string, args ...interface{}) error {
	return errors.Newf(errors.ErrCodeInvalidConfig, "config: "+format, args...)
}

// Validate performs semantic validation of the fully-populated Config and
// returns the first problem found. List files are checked for readability
// when the data layer is set up, not here.
func (c *Config) Validate() error {
	// Grid
	if c.Grid.Resolution <= 0 {
		return invalid("grid.resolution must be > 0, got %g", c.Grid.Resolution)
	}
	if c.Grid.Dimension <= 0 {
		return invalid("grid.dimension must be > 0, got %g", c.Grid.Dimension)
	}
	if c.Grid.RadiusMultiple <= 0 {
		return invalid("grid.radius_multiple must be > 0, got %g", c.Grid.RadiusMultiple)
	}
	if c.Grid.RandomTranslate < 0 {
		return invalid("grid.random_translate must be >= 0, got %g", c.Grid.RandomTranslate)
	}
	if c.Grid.DensityCap < 0 {
		return invalid("grid.density_cap must be >= 0, got %g", c.Grid.DensityCap)
	}
	if c.Grid.Accelerator.Workers < 0 {
		return invalid("grid.accelerator.workers must be >= 0, got %d", c.Grid.Accelerator.Workers)
	}
	if c.Grid.Accelerator.MemoryLimitBytes < 0 {
		return invalid("grid.accelerator.memory_limit_bytes must be >= 0")
	}

	// Data
	if c.Data.BatchSize < 1 {
		return invalid("data.batch_size must be >= 1, got %d", c.Data.BatchSize)
	}
	if !c.Data.InMemory {
		twoFiles := c.Data.ActivesSource != "" || c.Data.DecoysSource != ""
		switch {
		case twoFiles && (c.Data.ActivesSource == "" || c.Data.DecoysSource == ""):
			return invalid("data.actives_source and data.decoys_source must be set together")
		case twoFiles && !c.Data.Balanced:
			return invalid("data.actives_source/decoys_source require data.balanced")
		case !twoFiles && c.Data.Source == "":
			return invalid("data.source is required unless data.in_memory is set")
		}
	}

	// Cache
	if c.Cache.Redis.Enabled && c.Cache.Redis.Addr == "" {
		return invalid("cache.redis.addr is required when redis is enabled")
	}
	if c.Cache.Redis.DB < 0 {
		return invalid("cache.redis.db must be >= 0, got %d", c.Cache.Redis.DB)
	}

	// Storage
	if c.Storage.MinIO.Enabled && c.Storage.MinIO.Endpoint == "" {
		return invalid("storage.minio.endpoint is required when minio is enabled")
	}
	if !c.Storage.MinIO.Enabled {
		for _, loc := range []string{c.Data.RootFolder, c.Data.Source, c.Data.ActivesSource, c.Data.DecoysSource} {
			if strings.HasPrefix(loc, "s3://") {
				return invalid("%s requires storage.minio.enabled", loc)
			}
		}
	}

	// Log
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return invalid("log.level %q is invalid; expected debug|info|warn|error", c.Log.Level)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return invalid("log.format %q is invalid; expected json|console", c.Log.Format)
	}

	// Server
	switch c.Server.Mode {
	case "debug", "release", "test":
	default:
		return invalid("server.mode %q is invalid; expected debug|release|test", c.Server.Mode)
	}
	if c.Server.RateLimit.RequestsPerSecond < 0 {
		return invalid("server.rate_limit.requests_per_second must be >= 0, got %g", c.Server.RateLimit.RequestsPerSecond)
	}
	if c.Server.RateLimit.Burst < 0 {
		return invalid("server.rate_limit.burst must be >= 0, got %d", c.Server.RateLimit.Burst)
	}

	return nil
}

//Personal.AI order the ending
