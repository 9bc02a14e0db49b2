// Package pipeline orchestrates export runs: request assembly, the vector
// and isosurface stages, manifest writing, and the long-running service loop.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/couchcryptid/radar-volume-etl/internal/adapter/mesh"
	"github.com/couchcryptid/radar-volume-etl/internal/domain"
	"github.com/couchcryptid/radar-volume-etl/internal/observability"
)

// Triangulator extracts a level surface from a volume already in viewer axis
// order. Implementations are injected; tests use fakes.
type Triangulator interface {
	Triangulate(v *domain.Volume, level float64) (*mesh.TriangleMesh, error)
}

// MeshWriter serializes one triangle mesh. Ext is the output filename
// extension without the dot.
type MeshWriter interface {
	Ext() string
	WriteMesh(w io.Writer, m *mesh.TriangleMesh, name string) error
}

// Smoother denoises a volume before triangulation. Optional; requesting
// smoothing without one configured is a fatal request error.
type Smoother interface {
	Smooth(v *domain.Volume) (*domain.Volume, error)
}

// RunResult reports what one export run produced.
type RunResult struct {
	Manifest domain.Manifest
	Files    []string
}

// Exporter runs export requests against a destination directory.
type Exporter struct {
	sites        *domain.SiteTable
	triangulator Triangulator
	meshWriter   MeshWriter
	smoother     Smoother
	logger       *slog.Logger
	metrics      *observability.Metrics
}

// NewExporter wires an exporter. triangulator and smoother may be nil; the
// corresponding request features then fail fast at run time.
func NewExporter(
	sites *domain.SiteTable,
	triangulator Triangulator,
	meshWriter MeshWriter,
	smoother Smoother,
	logger *slog.Logger,
	metrics *observability.Metrics,
) *Exporter {
	return &Exporter{
		sites:        sites,
		triangulator: triangulator,
		meshWriter:   meshWriter,
		smoother:     smoother,
		logger:       logger,
		metrics:      metrics,
	}
}

// HasTriangulator reports whether isosurface requests can be served.
func (e *Exporter) HasTriangulator() bool {
	return e.triangulator != nil
}

// Run executes one export: radar metadata lookup first so an unknown site
// aborts before any file is written, then the isosurface stage, the vector
// stage, and finally the manifest. destDir must exist. A fatal error aborts
// the run; advisory conditions are logged and counted but never abort.
func (e *Exporter) Run(ctx context.Context, req *ExportRequest, destDir string) (*RunResult, error) {
	builder := domain.NewManifestBuilder()

	if id := req.SiteID(); id != "" {
		site, err := e.sites.Lookup(id)
		if err != nil {
			return nil, fmt.Errorf("radar metadata: %w", err)
		}
		builder.SetRadar(site)
	}

	for _, w := range req.Warnings() {
		e.logger.Warn("advisory", "condition", w)
		e.metrics.AdvisoryWarnings.Inc()
	}

	var files []string

	if req.Isosurface() != nil {
		isoFiles, err := e.runIsosurfaceStage(ctx, req, destDir, builder)
		if err != nil {
			return nil, err
		}
		files = append(files, isoFiles...)
	}

	if req.VectorField() != nil {
		vecFiles, err := e.runVectorStage(ctx, req, destDir, builder)
		if err != nil {
			return nil, err
		}
		files = append(files, vecFiles...)
	}

	manifest := builder.Build()
	manifestPath := filepath.Join(destDir, domain.ManifestFileName)
	if err := manifest.WriteFile(manifestPath); err != nil {
		return nil, err
	}
	e.countFile(manifestPath, "manifest")
	files = append(files, domain.ManifestFileName)

	e.logger.Info("export complete",
		"dest", destDir,
		"files", len(files),
		"valid_time", req.ValidTime())
	return &RunResult{Manifest: manifest, Files: files}, nil
}

// countFile records file-written metrics from the artifact on disk.
func (e *Exporter) countFile(path, kind string) {
	e.metrics.FilesWritten.WithLabelValues(kind).Inc()
	if info, err := os.Stat(path); err == nil {
		e.metrics.BytesWritten.Add(float64(info.Size()))
	}
}

// unityDims returns the manifest dimension triple for a volume already in
// viewer axis order: [width, height, depth].
func unityDims(shape [3]int) [3]int {
	return [3]int{shape[2], shape[1], shape[0]}
}
