package cli

import (
	"context"
	"strings"

	"github.com/turtacn/molgrid/internal/application/molgrid"
	"github.com/turtacn/molgrid/internal/config"
	"github.com/turtacn/molgrid/internal/infrastructure/database/redis"
	"github.com/turtacn/molgrid/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/molgrid/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/molgrid/internal/infrastructure/storage/minio"
	"github.com/turtacn/molgrid/internal/infrastructure/storage/tensor"
	"github.com/turtacn/molgrid/internal/infrastructure/structure"
	"github.com/turtacn/molgrid/internal/intelligence/gridmaker"
	"github.com/turtacn/molgrid/internal/interfaces/http/handlers"
	"github.com/turtacn/molgrid/pkg/errors"
)

// Runtime holds the dependencies a command needs, built from Config.
type Runtime struct {
	Config    *config.Config
	Logger    logging.Logger
	Collector prometheus.MetricsCollector
	Metrics   *prometheus.GridMetrics
	Layer     *molgrid.Layer
	Checkers  []handlers.HealthChecker

	objects *minio.MinIOClient
	redis   *redis.Client
}

// LayerOptions maps the configuration onto the batch assembler setup block.
func LayerOptions(cfg *config.Config) molgrid.Options {
	return molgrid.Options{
		Grid: gridmaker.Spec{
			Resolution:     cfg.Grid.Resolution,
			Dimension:      cfg.Grid.Dimension,
			RadiusMultiple: cfg.Grid.RadiusMultiple,
			Binary:         cfg.Grid.Binary,
			DensityCap:     cfg.Grid.DensityCap,
		},
		RandomTranslate:        cfg.Grid.RandomTranslate,
		RandomRotate:           cfg.Grid.RandomRotate,
		NumRotations:           cfg.Grid.NumRotations,
		Seed:                   cfg.Data.Seed,
		UseAccelerator:         cfg.Grid.UseAccelerator,
		AcceleratorWorkers:     cfg.Grid.Accelerator.Workers,
		AcceleratorMemoryLimit: cfg.Grid.Accelerator.MemoryLimitBytes,
		BatchSize:              cfg.Data.BatchSize,
		Source:                 cfg.Data.Source,
		ActivesSource:          cfg.Data.ActivesSource,
		DecoysSource:           cfg.Data.DecoysSource,
		Balanced:               cfg.Data.Balanced,
		Shuffle:                cfg.Data.Shuffle,
		InMemory:               cfg.Data.InMemory,
		Prefetch:               cfg.Data.Prefetch,
		ReceptorTypes:          cfg.Data.ReceptorTypes,
		LigandTypes:            cfg.Data.LigandTypes,
	}
}

// NewRuntime connects the optional backends and sets up the layer. On error
// everything opened so far is closed.
func NewRuntime(ctx context.Context, cfg *config.Config, logger logging.Logger) (_ *Runtime, err error) {
	rt := &Runtime{Config: cfg, Logger: logger}
	defer func() {
		if err != nil {
			_ = rt.Close()
		}
	}()

	if cfg.Metrics.Enabled {
		rt.Collector, err = prometheus.NewMetricsCollector(prometheus.CollectorConfig{
			Namespace:            cfg.Metrics.Namespace,
			EnableProcessMetrics: true,
			EnableGoMetrics:      true,
		}, logger.Named("metrics"))
		if err != nil {
			return nil, err
		}
	} else {
		rt.Collector = prometheus.NewNoopCollector()
	}
	rt.Metrics = prometheus.NewGridMetrics(rt.Collector)

	if m := cfg.Storage.MinIO; m.Enabled {
		rt.objects, err = minio.NewMinIOClient(&minio.MinIOConfig{
			Endpoint:        m.Endpoint,
			AccessKeyID:     m.AccessKey,
			SecretAccessKey: m.SecretKey,
			UseSSL:          m.UseSSL,
			Region:          m.Region,
			Bucket:          m.Bucket,
		}, logger.Named("minio"))
		if err != nil {
			return nil, err
		}
		objects := rt.objects
		rt.Checkers = append(rt.Checkers, handlers.CheckFunc{Label: "minio", Probe: func(ctx context.Context) error {
			_, err := objects.HealthCheck(ctx)
			return err
		}})
	}

	opts := []molgrid.Option{
		molgrid.WithLogger(logger),
		molgrid.WithObserver(rt.Metrics),
	}
	if !cfg.Data.InMemory {
		src, err := rt.source(cfg.Data.RootFolder)
		if err != nil {
			return nil, err
		}
		opts = append(opts, molgrid.WithSource(src))
	}

	if r := cfg.Cache.Redis; r.Enabled {
		rt.redis, err = redis.NewClient(&redis.RedisConfig{
			Mode:     r.Mode,
			Addr:     r.Addr,
			Password: r.Password,
			DB:       r.DB,
		}, logger.Named("redis"))
		if err != nil {
			return nil, err
		}
		rt.Checkers = append(rt.Checkers, handlers.CheckFunc{Label: "redis", Probe: rt.redis.Ping})
		store := redis.NewGeometryStore(rt.redis, logger.Named("geometry"),
			redis.WithPrefix(r.KeyPrefix), redis.WithTTL(r.TTL))
		opts = append(opts, molgrid.WithGeometryStore(store))
	}

	rt.Layer, err = molgrid.NewLayer(ctx, LayerOptions(cfg), opts...)
	if err != nil {
		return nil, err
	}
	return rt, nil
}

// source resolves the data root: s3://bucket/prefix through MinIO, anything
// else as a local directory.
func (rt *Runtime) source(root string) (structure.Source, error) {
	bucket, prefix, ok := minio.ParseURI(root)
	if !ok {
		return structure.NewDirSource(root), nil
	}
	if rt.objects == nil {
		return nil, errors.New(errors.ErrCodeInvalidConfig, "object storage root requires storage.minio.enabled").WithDetail(root)
	}
	return minio.NewObjectSource(rt.objects, bucket, prefix), nil
}

// Sink resolves an output location the same way source does.
func (rt *Runtime) Sink(out string) (tensor.Sink, error) {
	bucket, prefix, ok := minio.ParseURI(out)
	if !ok {
		if strings.TrimSpace(out) == "" {
			return nil, errors.InvalidParam("output location is empty")
		}
		return tensor.NewDirSink(out), nil
	}
	if rt.objects == nil {
		return nil, errors.New(errors.ErrCodeInvalidConfig, "object storage output requires storage.minio.enabled").WithDetail(out)
	}
	return minio.NewObjectSink(rt.objects, bucket, prefix, rt.Logger.Named("export")), nil
}

// Close releases the layer and the backend connections.
func (rt *Runtime) Close() error {
	var firstErr error
	keep := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if rt.Layer != nil {
		keep(rt.Layer.Close())
	}
	if rt.redis != nil {
		keep(rt.redis.Close())
	}
	if rt.objects != nil {
		keep(rt.objects.Close())
	}
	return firstErr
}

//Personal.AI order the ending
