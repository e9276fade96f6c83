package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"campaign-analytics/internal/analytics"
	"campaign-analytics/internal/api"
	"campaign-analytics/internal/api/handler"
	"campaign-analytics/internal/config"
	"campaign-analytics/internal/dataset"
	"campaign-analytics/internal/store"
	"campaign-analytics/pkg/logger"
	"campaign-analytics/pkg/router"
)

func newServeCmd(configFile *string) *cobra.Command {
	var addr, source string
	var noSwagger bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Load the dataset and serve the analytics API",
		Long: `Load the campaign dataset and serve the analytics API until interrupted.

Example:
  analytics-api serve --config config.yaml --addr :8000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configFile)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}
			if source != "" {
				cfg.Dataset.Source = source
			}
			return serve(cfg, !noSwagger)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides server.addr)")
	cmd.Flags().StringVar(&source, "source", "", "Dataset URL or path (overrides dataset.source)")
	cmd.Flags().BoolVar(&noSwagger, "no-swagger", false, "Disable the Swagger UI")
	return cmd
}

func serve(cfg *config.Config, swagger bool) error {
	if err := logger.Init(cfg.Log.Logger()); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	loader, st, err := newLoader(cfg)
	if err != nil {
		return err
	}
	if st != nil {
		defer st.Close()
	}

	table, stats, err := loader.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load dataset: %w", err)
	}
	logger.Info("dataset ready",
		zap.String("load_id", stats.LoadID),
		zap.String("origin", stats.Origin),
		zap.Int("records", table.Len()),
	)

	holder := dataset.NewHolder(table)

	if cfg.Dataset.Watch {
		go func() {
			if err := loader.Watch(ctx, holder); err != nil {
				logger.Error("dataset watcher stopped", zap.Error(err))
			}
		}()
	}

	var history handler.LoadHistory
	if st != nil {
		history = st
	}
	h := handler.New(analytics.New(holder), history)

	opts := api.Options{Swagger: swagger}
	if cfg.Metrics.Enabled {
		opts.MetricsPath = cfg.Metrics.Path
	}
	r := api.NewRouter(h, opts)

	return r.Run(ctx, cfg.Server.Addr, router.ServerOptions{
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})
}

// newLoader builds the dataset loader and, when configured, the snapshot store
// backing it. The caller closes the returned store.
func newLoader(cfg *config.Config) (*dataset.Loader, *store.Store, error) {
	loader := &dataset.Loader{
		Source:   cfg.Dataset.Source,
		Client:   &http.Client{Timeout: cfg.Dataset.Timeout},
		Retry:    cfg.Dataset.Retry,
		Timeout:  cfg.Dataset.Timeout,
		Fallback: cfg.Snapshot.Fallback,
	}
	if cfg.Snapshot.Path == "" {
		return loader, nil, nil
	}

	st, err := store.Open(cfg.Snapshot.Path)
	if err != nil {
		return nil, nil, err
	}
	loader.Store = st
	return loader, st, nil
}
