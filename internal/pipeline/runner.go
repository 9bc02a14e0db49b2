package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/radar-volume-etl/internal/adapter/spool"
	"github.com/couchcryptid/radar-volume-etl/internal/domain"
	"github.com/couchcryptid/radar-volume-etl/internal/observability"
)

// BundleWatcher feeds descriptor paths of newly spooled bundles.
type BundleWatcher interface {
	Run(ctx context.Context) error
	Events() <-chan string
}

// NoticePublisher announces finished exports downstream.
type NoticePublisher interface {
	PublishExport(ctx context.Context, notice domain.ExportNotice) error
}

// RunnerOptions are the service-loop settings carried over from config.
type RunnerOptions struct {
	OutputDir        string
	ProcessedDir     string
	IsosurfaceLevels []float64
	Smooth           bool
	Normalize        bool
}

// Runner is the long-running service loop: watch the spool, export each
// bundle, announce the result, and archive the bundle. One bad bundle never
// stops the loop.
type Runner struct {
	exporter  *Exporter
	watcher   BundleWatcher
	publisher NoticePublisher // nil when notifications are disabled
	opts      RunnerOptions
	logger    *slog.Logger
	metrics   *observability.Metrics
	ready     atomic.Bool
}

func NewRunner(
	exporter *Exporter,
	watcher BundleWatcher,
	publisher NoticePublisher,
	opts RunnerOptions,
	logger *slog.Logger,
	metrics *observability.Metrics,
) *Runner {
	return &Runner{
		exporter:  exporter,
		watcher:   watcher,
		publisher: publisher,
		opts:      opts,
		logger:    logger,
		metrics:   metrics,
	}
}

// Run consumes the spool until ctx is cancelled.
func (r *Runner) Run(ctx context.Context) error {
	r.metrics.ExporterRunning.Set(1)
	defer r.metrics.ExporterRunning.Set(0)

	watchErr := make(chan error, 1)
	go func() { watchErr <- r.watcher.Run(ctx) }()

	for path := range r.watcher.Events() {
		if err := r.ProcessBundle(ctx, path); err != nil {
			r.logger.Error("bundle export failed", "descriptor", path, "error", err)
			r.metrics.ExportFailures.Inc()
		}
	}

	err := <-watchErr
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// CheckReadiness satisfies httpapi.ReadinessChecker: ready once at least one
// export has completed.
func (r *Runner) CheckReadiness(_ context.Context) error {
	if !r.ready.Load() {
		return errors.New("no export completed yet")
	}
	return nil
}

// ProcessBundle exports one spooled bundle: load, build the request, run the
// exporter, publish the notice, and archive the bundle files.
func (r *Runner) ProcessBundle(ctx context.Context, descriptorPath string) error {
	start := time.Now()
	defer func() {
		r.metrics.ExportDuration.Observe(time.Since(start).Seconds())
	}()

	b, err := spool.ReadBundle(descriptorPath)
	if err != nil {
		return err
	}
	coords, warnings, err := b.Coordinates()
	if err != nil {
		return err
	}

	builder := NewRequestBuilder(coords, b.ValidTime).WithWarnings(warnings...)
	if b.SiteID != "" {
		builder.WithSite(b.SiteID)
	}

	if b.Scalar != nil {
		switch {
		case !r.exporter.HasTriangulator():
			r.logger.Warn("advisory",
				"condition", "scalar payload skipped; no triangulator configured",
				"variable", b.Scalar.Variable)
			r.metrics.AdvisoryWarnings.Inc()
		case len(r.opts.IsosurfaceLevels) == 0:
			r.logger.Warn("advisory",
				"condition", "scalar payload skipped; no isosurface levels configured",
				"variable", b.Scalar.Variable)
			r.metrics.AdvisoryWarnings.Inc()
		default:
			vol, err := b.LoadScalar()
			if err != nil {
				return err
			}
			builder.WithIsosurface(IsosurfaceSpec{
				Volume:   vol,
				Variable: b.Scalar.Variable,
				Units:    b.Scalar.Units,
				Levels:   r.opts.IsosurfaceLevels,
				Smooth:   r.opts.Smooth,
			})
		}
	}

	if b.Vector != nil {
		u, v, w, err := b.LoadVector()
		if err != nil {
			return err
		}
		builder.WithVectorField(VectorFieldSpec{
			U: u, V: v, W: w,
			Name:      b.Vector.Name,
			Units:     b.Vector.Units,
			Normalize: r.opts.Normalize,
		})
	}

	req, err := builder.Build()
	if err != nil {
		return err
	}

	destDir := filepath.Join(r.opts.OutputDir, bundleName(descriptorPath))
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	res, err := r.exporter.Run(ctx, req, destDir)
	if err != nil {
		return err
	}
	r.metrics.BundlesProcessed.Inc()
	r.ready.Store(true)

	if r.publisher != nil {
		notice := domain.ExportNotice{
			SiteID:      b.SiteID,
			ValidTime:   b.ValidTime,
			OutputDir:   destDir,
			Manifest:    domain.ManifestFileName,
			Files:       res.Files,
			GeneratedAt: time.Now().UTC(),
		}
		if err := r.publisher.PublishExport(ctx, notice); err != nil {
			// Publish failures never fail an already-written export.
			r.logger.Error("export notice publish failed", "error", err)
		}
	}

	if err := r.archiveBundle(b, descriptorPath); err != nil {
		r.logger.Error("bundle archive failed", "descriptor", descriptorPath, "error", err)
	}
	return nil
}

// archiveBundle moves the descriptor and its component files out of the
// spool so restarts do not re-export them.
func (r *Runner) archiveBundle(b *spool.Bundle, descriptorPath string) error {
	if r.opts.ProcessedDir == "" {
		return nil
	}
	if err := os.MkdirAll(r.opts.ProcessedDir, 0o755); err != nil {
		return fmt.Errorf("create processed dir: %w", err)
	}

	files := []string{filepath.Base(descriptorPath)}
	if b.Scalar != nil {
		files = append(files, b.Scalar.File)
	}
	if b.Vector != nil {
		files = append(files, b.Vector.UFile)
		if b.Vector.VFile != "" {
			files = append(files, b.Vector.VFile)
		}
		if b.Vector.WFile != "" {
			files = append(files, b.Vector.WFile)
		}
	}
	for _, f := range files {
		src := filepath.Join(b.Dir(), f)
		if err := os.Rename(src, filepath.Join(r.opts.ProcessedDir, f)); err != nil {
			return err
		}
	}
	return nil
}

func bundleName(descriptorPath string) string {
	return strings.TrimSuffix(filepath.Base(descriptorPath), spool.DescriptorSuffix)
}
