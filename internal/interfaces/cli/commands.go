package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/turtacn/molgrid/internal/application/molgrid"
	"github.com/turtacn/molgrid/internal/config"
	"github.com/turtacn/molgrid/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/molgrid/internal/infrastructure/storage/tensor"
	httpapi "github.com/turtacn/molgrid/internal/interfaces/http"
	"github.com/turtacn/molgrid/internal/interfaces/http/handlers"
	"github.com/turtacn/molgrid/internal/interfaces/http/middleware"
	"github.com/turtacn/molgrid/pkg/errors"
	mtypes "github.com/turtacn/molgrid/pkg/types/molecule"
)

// ShapeOutput is the shape report plus one name per channel.
type ShapeOutput struct {
	*mtypes.ShapeResponse
	Channels []string `json:"channels"`
}

// NewShapeCmd prints the tensor shapes the configuration produces. It does
// not read any example list.
func NewShapeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "shape",
		Short: "Print grid and label shapes",
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			opts := LayerOptions(cc.Config)
			opts.InMemory = true
			opts.Prefetch = false
			layer, err := molgrid.NewLayer(cmd.Context(), opts, molgrid.WithLogger(cc.Logger))
			if err != nil {
				return err
			}
			defer layer.Close()

			return printJSON(cmd, ShapeOutput{
				ShapeResponse: layer.Shape(),
				Channels:      layer.TypeMap().ChannelNames(),
			})
		},
	}
}

// GenerateSummary is printed after a generate run.
type GenerateSummary struct {
	Batches    int    `json:"batches"`
	GridShape  []int  `json:"grid_shape"`
	LabelShape []int  `json:"label_shape"`
	Output     string `json:"output"`
	Elapsed    string `json:"elapsed"`
}

// NewGenerateCmd writes batches as grids_NNNN.npy / labels_NNNN.npy pairs to
// a directory or an s3://bucket/prefix location.
func NewGenerateCmd() *cobra.Command {
	var (
		batches int
		out     string
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate batches and export them as .npy files",
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			if batches < 1 {
				return errors.InvalidParam("--batches must be positive")
			}
			if cc.Config.Data.InMemory {
				return errors.New(errors.ErrCodeInvalidConfig, "generate needs example lists; data.in_memory is set")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			rt, err := NewRuntime(ctx, cc.Config, cc.Logger)
			if err != nil {
				return err
			}
			defer rt.Close()

			sink, err := rt.Sink(out)
			if err != nil {
				return err
			}
			summary, err := generate(ctx, rt.Layer, sink, batches, cc.Logger)
			if err != nil {
				return err
			}
			return printJSON(cmd, summary)
		},
	}

	cmd.Flags().IntVarP(&batches, "batches", "n", 1, "number of batches to generate")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output directory or s3://bucket/prefix [REQUIRED]")
	_ = cmd.MarkFlagRequired("out")
	return cmd
}

func generate(ctx context.Context, layer *molgrid.Layer, sink tensor.Sink, batches int, logger logging.Logger) (*GenerateSummary, error) {
	start := time.Now()
	gridShape, labelShape := layer.GridShape(), layer.LabelShape()
	n := 1
	for _, d := range gridShape {
		n *= d
	}
	grids := make([]float32, n)
	labels := make([]float32, labelShape[0])

	channels, err := json.Marshal(layer.TypeMap().ChannelNames())
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "encode channel names")
	}
	if err := sink.Put(ctx, "channels.json", "application/json", channels); err != nil {
		return nil, err
	}

	for b := 0; b < batches; b++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := layer.Forward(ctx, grids, labels); err != nil {
			return nil, errors.Wrap(err, errors.CodeUnknown, fmt.Sprintf("batch %d", b))
		}
		for _, t := range []struct {
			name  string
			shape []int
			data  []float32
		}{
			{fmt.Sprintf("grids_%04d.npy", b), gridShape, grids},
			{fmt.Sprintf("labels_%04d.npy", b), labelShape, labels},
		} {
			body, err := tensor.Encode(t.shape, t.data)
			if err != nil {
				return nil, err
			}
			if err := sink.Put(ctx, t.name, tensor.ContentType, body); err != nil {
				return nil, err
			}
		}
		logger.Debug("batch exported", logging.Int("batch", b), logging.String("output", sink.Describe()))
	}

	elapsed := time.Since(start)
	logger.Info("generation finished",
		logging.Int("batches", batches),
		logging.String("output", sink.Describe()),
		logging.Duration("elapsed", elapsed),
	)
	return &GenerateSummary{
		Batches:    batches,
		GridShape:  gridShape,
		LabelShape: labelShape,
		Output:     sink.Describe(),
		Elapsed:    elapsed.Truncate(time.Millisecond).String(),
	}, nil
}

// NewServeCmd runs the HTTP interface until SIGINT or SIGTERM.
func NewServeCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve shapes, single grids, health and metrics over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			cfg := cc.Config
			if addr != "" {
				cfg.Server.Addr = addr
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			rt, err := NewRuntime(ctx, cfg, cc.Logger)
			if err != nil {
				return err
			}
			defer rt.Close()

			if cc.ConfigPath != "" {
				watchLogLevel(cc.ConfigPath, cc.Logger)
			}

			gin.SetMode(cfg.Server.Mode)
			limit := middleware.RateLimitConfig{
				RequestsPerSecond: cfg.Server.RateLimit.RequestsPerSecond,
				Burst:             cfg.Server.RateLimit.Burst,
			}
			router := httpapi.NewRouter(httpapi.RouterConfig{
				GridHandler:      handlers.NewGridHandler(rt.Layer, cc.Logger.Named("http")),
				HealthHandler:    handlers.NewHealthHandler(Version, rt.Checkers...),
				Logging:          middleware.DefaultLoggingConfig(),
				Observer:         rt.Metrics,
				RateLimit:        limit,
				Logger:           cc.Logger.Named("http"),
				MetricsCollector: rt.Collector,
			})
			server := httpapi.NewServer(cfg.Server.Addr, router, cc.Logger)

			errCh := make(chan error, 1)
			go func() { errCh <- server.Start() }()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}
			return server.Stop(context.Background(), cfg.Server.ShutdownTimeout)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides server.addr)")
	return cmd
}

// watchLogLevel applies log.level changes from the config file without a
// restart. Other settings need one.
func watchLogLevel(path string, logger logging.Logger) {
	err := config.Watch(path, func(cfg *config.Config, e fsnotify.Event) {
		if logging.SetLevel(logger, cfg.Log.Level) {
			logger.Info("log level reloaded",
				logging.String("level", cfg.Log.Level),
				logging.String("op", e.Op.String()),
			)
		}
	}, func(err error) {
		logger.Warn("config reload rejected", logging.Err(err))
	})
	if err != nil {
		logger.Warn("config watch disabled", logging.Err(err))
	}
}

// NewVersionCmd prints build information.
func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "molgrid %s (commit: %s, built: %s)\n", Version, GitCommit, BuildDate)
			return nil
		},
	}
}

//Personal.AI order the ending
