package config

import (
	"time"

	"github.com/spf13/viper"
)

// ─────────────────────────────────────────────────────────────────────────────
// Default value constants
// ─────────────────────────────────────────────────────────────────────────────

const (
	DefaultResolution     = 0.5
	DefaultDimension      = 23.5
	DefaultRadiusMultiple = 1.5
	DefaultBatchSize      = 10

	DefaultRedisAddr      = "localhost:6379"
	DefaultRedisKeyPrefix = "molgrid:geom:"
	DefaultRedisTTL       = 24 * time.Hour

	DefaultMinIOEndpoint = "localhost:9000"
	DefaultMinIOBucket   = "molgrid"
	DefaultMinIORegion   = "us-east-1"

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"

	DefaultMetricsNamespace = "molgrid"

	DefaultServerAddr            = ":8080"
	DefaultServerMode            = "release"
	DefaultServerShutdownTimeout = 15 * time.Second
)

// setDefaults registers every key with viper. Registration is also what lets
// MOLGRID_* variables override keys absent from the file.
func setDefaults(v *viper.Viper) {
	v.SetDefault("grid.resolution", DefaultResolution)
	v.SetDefault("grid.dimension", DefaultDimension)
	v.SetDefault("grid.radius_multiple", DefaultRadiusMultiple)
	v.SetDefault("grid.random_translate", 0.0)
	v.SetDefault("grid.random_rotate", false)
	v.SetDefault("grid.binary", false)
	v.SetDefault("grid.density_cap", 0.0)
	v.SetDefault("grid.num_rotations", 0)
	v.SetDefault("grid.use_accelerator", false)
	v.SetDefault("grid.accelerator.workers", 0)
	v.SetDefault("grid.accelerator.memory_limit_bytes", 0)

	v.SetDefault("data.root_folder", "")
	v.SetDefault("data.source", "")
	v.SetDefault("data.actives_source", "")
	v.SetDefault("data.decoys_source", "")
	v.SetDefault("data.batch_size", DefaultBatchSize)
	v.SetDefault("data.balanced", false)
	v.SetDefault("data.shuffle", false)
	v.SetDefault("data.seed", 0)
	v.SetDefault("data.in_memory", false)
	v.SetDefault("data.prefetch", true)
	v.SetDefault("data.receptor_types", []string{})
	v.SetDefault("data.ligand_types", []string{})

	v.SetDefault("cache.redis.enabled", false)
	v.SetDefault("cache.redis.mode", "standalone")
	v.SetDefault("cache.redis.addr", DefaultRedisAddr)
	v.SetDefault("cache.redis.password", "")
	v.SetDefault("cache.redis.db", 0)
	v.SetDefault("cache.redis.key_prefix", DefaultRedisKeyPrefix)
	v.SetDefault("cache.redis.ttl", DefaultRedisTTL)

	v.SetDefault("storage.minio.enabled", false)
	v.SetDefault("storage.minio.endpoint", DefaultMinIOEndpoint)
	v.SetDefault("storage.minio.access_key", "")
	v.SetDefault("storage.minio.secret_key", "")
	v.SetDefault("storage.minio.bucket", DefaultMinIOBucket)
	v.SetDefault("storage.minio.use_ssl", false)
	v.SetDefault("storage.minio.region", DefaultMinIORegion)

	v.SetDefault("log.level", DefaultLogLevel)
	v.SetDefault("log.format", DefaultLogFormat)
	v.SetDefault("log.output_paths", []string{"stdout"})

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.namespace", DefaultMetricsNamespace)

	v.SetDefault("server.addr", DefaultServerAddr)
	v.SetDefault("server.mode", DefaultServerMode)
	v.SetDefault("server.shutdown_timeout", DefaultServerShutdownTimeout)
	v.SetDefault("server.rate_limit.requests_per_second", 0.0)
	v.SetDefault("server.rate_limit.burst", 0)
}

// Default returns the configuration produced by an empty file, ignoring the
// environment.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	cfg := &Config{}
	_ = v.Unmarshal(cfg)
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills zero-value fields that have no meaningful zero, for
// configs built in code rather than loaded. Numeric grid parameters are
// left alone so that an explicit zero still fails Validate.
func ApplyDefaults(cfg *Config) {
	if cfg == nil {
		return
	}

	// ── Data ──────────────────────────────────────────────────────────────────
	if cfg.Data.BatchSize == 0 {
		cfg.Data.BatchSize = DefaultBatchSize
	}

	// ── Cache / Storage ───────────────────────────────────────────────────────
	if cfg.Cache.Redis.KeyPrefix == "" {
		cfg.Cache.Redis.KeyPrefix = DefaultRedisKeyPrefix
	}
	if cfg.Storage.MinIO.Bucket == "" {
		cfg.Storage.MinIO.Bucket = DefaultMinIOBucket
	}
	if cfg.Storage.MinIO.Region == "" {
		cfg.Storage.MinIO.Region = DefaultMinIORegion
	}

	// ── Log ───────────────────────────────────────────────────────────────────
	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = DefaultLogFormat
	}
	if len(cfg.Log.OutputPaths) == 0 {
		cfg.Log.OutputPaths = []string{"stdout"}
	}

	// ── Metrics / Server ──────────────────────────────────────────────────────
	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = DefaultMetricsNamespace
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = DefaultServerAddr
	}
	if cfg.Server.Mode == "" {
		cfg.Server.Mode = DefaultServerMode
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultServerShutdownTimeout
	}
}

//Personal.AI order the ending
