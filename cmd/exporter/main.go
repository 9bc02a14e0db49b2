// Command exporter is the long-running export service: it watches a spool
// directory for grid bundles, converts each one into viewer assets (.vf
// volumes, isosurface meshes, meta.json), optionally announces completions
// on Kafka, and serves health and metrics over HTTP.
//
// With --bundle it exports a single descriptor and exits.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v3"

	"github.com/couchcryptid/radar-volume-etl/internal/adapter/httpapi"
	kafkaadapter "github.com/couchcryptid/radar-volume-etl/internal/adapter/kafka"
	"github.com/couchcryptid/radar-volume-etl/internal/adapter/mesh"
	"github.com/couchcryptid/radar-volume-etl/internal/adapter/spool"
	"github.com/couchcryptid/radar-volume-etl/internal/config"
	"github.com/couchcryptid/radar-volume-etl/internal/domain"
	"github.com/couchcryptid/radar-volume-etl/internal/observability"
	"github.com/couchcryptid/radar-volume-etl/internal/pipeline"
)

func main() {
	// Local development convenience; the file is absent in deployments.
	godotenv.Load() //nolint:errcheck

	cmd := &cli.Command{
		Name:  "exporter",
		Usage: "export gridded radar volumes as 3-D viewer assets",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to the YAML config file",
			},
			&cli.StringFlag{
				Name:  "bundle",
				Usage: "export a single bundle descriptor and exit",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return run(ctx, cmd.String("config"), cmd.String("bundle"))
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("exporter failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath, bundlePath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	sites, err := loadSites(cfg.SiteTablePath)
	if err != nil {
		return err
	}

	// Triangulation and smoothing are external capabilities; without them
	// scalar payloads export through the vector path only.
	exporter := pipeline.NewExporter(sites, nil, meshWriterFor(cfg.MeshFormat), nil, logger, metrics)

	var publisher pipeline.NoticePublisher
	var notifier *kafkaadapter.Notifier
	if cfg.KafkaEnabled {
		notifier = kafkaadapter.NewNotifier(cfg.KafkaBrokers, cfg.KafkaTopic, logger)
		publisher = notifier
		logger.Info("kafka notifications enabled", "topic", cfg.KafkaTopic)
	} else {
		logger.Info("kafka notifications disabled")
	}

	watcher := spool.NewWatcher(cfg.SpoolDir, logger)
	runner := pipeline.NewRunner(exporter, watcher, publisher, pipeline.RunnerOptions{
		OutputDir:        cfg.OutputDir,
		ProcessedDir:     cfg.ProcessedDir,
		IsosurfaceLevels: cfg.IsosurfaceLevels,
		Smooth:           cfg.Smooth,
		Normalize:        cfg.Normalize,
	}, logger, metrics)

	if bundlePath != "" {
		defer closeNotifier(notifier, logger)
		return runner.ProcessBundle(ctx, bundlePath)
	}

	srv := httpapi.NewServer(cfg.HTTPAddr, runner, logger)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	go func() {
		if err := runner.Run(ctx); err != nil {
			logger.Error("runner error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	closeNotifier(notifier, logger)

	logger.Info("shutdown complete")
	return nil
}

func loadSites(path string) (*domain.SiteTable, error) {
	if path == "" {
		return domain.DefaultSiteTable(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open site table: %w", err)
	}
	defer f.Close()
	t, err := domain.LoadSiteTable(f)
	if err != nil {
		return nil, fmt.Errorf("load site table %s: %w", path, err)
	}
	return t, nil
}

func meshWriterFor(format string) pipeline.MeshWriter {
	if format == "dae" {
		return mesh.ColladaWriter{}
	}
	return mesh.OBJWriter{}
}

func closeNotifier(n *kafkaadapter.Notifier, logger *slog.Logger) {
	if n == nil {
		return
	}
	if err := n.Close(); err != nil {
		logger.Error("kafka notifier close error", "error", err)
	}
}
