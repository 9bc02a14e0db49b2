package pipeline

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/couchcryptid/radar-volume-etl/internal/adapter/mesh"
	"github.com/couchcryptid/radar-volume-etl/internal/domain"
)

// runIsosurfaceStage triangulates one mesh per requested level and records a
// manifest entry per mesh file. The volume is optionally smoothed, then
// transposed once into viewer axis order before triangulation. Bounding
// metadata comes from the untransposed volume against the coordinate grids.
func (e *Exporter) runIsosurfaceStage(ctx context.Context, req *ExportRequest, destDir string, builder *domain.ManifestBuilder) ([]string, error) {
	spec := req.Isosurface()
	coords := req.Coordinates()

	if e.triangulator == nil {
		return nil, fmt.Errorf("isosurface stage requested but no triangulator is configured")
	}
	if spec.Smooth && e.smoother == nil {
		return nil, fmt.Errorf("smoothing requested but no smoother is configured")
	}

	vol := spec.Volume
	if spec.Smooth {
		smoothed, err := e.smoother.Smooth(vol)
		if err != nil {
			return nil, fmt.Errorf("smooth %s: %w", spec.Variable, err)
		}
		vol = smoothed
	}
	view := domain.ToViewerAxes(vol)

	var files []string
	for _, level := range spec.Levels {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		m, err := e.triangulator.Triangulate(view, level)
		if err != nil {
			return nil, fmt.Errorf("triangulate %s at %g: %w", spec.Variable, level, err)
		}
		if m.Empty() {
			e.logger.Warn("advisory",
				"condition", "isosurface level produced no triangles",
				"variable", spec.Variable,
				"level", level)
			e.metrics.AdvisoryWarnings.Inc()
		}

		filename := fmt.Sprintf("%g_%s.%s", level, spec.Variable, e.meshWriter.Ext())
		path := filepath.Join(destDir, filename)
		if err := e.writeMeshFile(path, m, fmt.Sprintf("%gSurface", level)); err != nil {
			return nil, err
		}
		e.countFile(path, "mesh")
		e.metrics.IsosurfacesExported.Inc()

		entry := e.isosurfaceEntry(spec, coords, req, vol, level)
		entry.UnityDims = unityDims(view.Shape)
		builder.AddIsosurface(filename, entry)
		files = append(files, filename)
	}
	return files, nil
}

// writeMeshFile serializes one mesh with the configured writer, closing the
// file on every path.
func (e *Exporter) writeMeshFile(path string, m *mesh.TriangleMesh, name string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := e.meshWriter.WriteMesh(f, m, name); err != nil {
		f.Close()
		return fmt.Errorf("write mesh %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	return nil
}

// isosurfaceEntry assembles the manifest entry for one level: the bounding
// box of all grid points at or above the level, or "not available" bounds
// when the level is reached nowhere.
func (e *Exporter) isosurfaceEntry(spec *IsosurfaceSpec, coords domain.CoordinateVolumes, req *ExportRequest, vol *domain.Volume, level float64) domain.IsosurfaceEntry {
	bounds, ok := levelBounds(vol, coords, level)

	entry := domain.IsosurfaceEntry{
		IsosurfaceUnits:  spec.Units,
		IsosurfaceLevel:  level,
		Variable:         spec.Variable,
		XCoordinateUnits: coords.X.Units.String(),
		YCoordinateUnits: coords.Y.Units.String(),
		ZCoordinateUnits: coords.Z.Units.String(),
		Grid:             coords.GridType(),
		Smooth:           spec.Smooth,
		RunTime:          domain.FormatRunTime(req.ValidTime()),
	}
	if ok {
		entry.XMin, entry.XMax = domain.AvailableCoord(bounds[0]), domain.AvailableCoord(bounds[1])
		entry.YMin, entry.YMax = domain.AvailableCoord(bounds[2]), domain.AvailableCoord(bounds[3])
		entry.ZMin, entry.ZMax = domain.AvailableCoord(bounds[4]), domain.AvailableCoord(bounds[5])
	}
	return entry
}

// levelBounds scans the volume for samples >= level and accumulates the
// coordinate extents of the matching grid points. ok is false when no sample
// reaches the level.
func levelBounds(vol *domain.Volume, coords domain.CoordinateVolumes, level float64) (bounds [6]float64, ok bool) {
	bounds = [6]float64{
		math.Inf(1), math.Inf(-1),
		math.Inf(1), math.Inf(-1),
		math.Inf(1), math.Inf(-1),
	}
	xs, ys, zs := coords.X.Data.Data, coords.Y.Data.Data, coords.Z.Data.Data

	for i, s := range vol.Data {
		if s < level {
			continue
		}
		ok = true
		bounds[0] = math.Min(bounds[0], xs[i])
		bounds[1] = math.Max(bounds[1], xs[i])
		bounds[2] = math.Min(bounds[2], ys[i])
		bounds[3] = math.Max(bounds[3], ys[i])
		bounds[4] = math.Min(bounds[4], zs[i])
		bounds[5] = math.Max(bounds[5], zs[i])
	}
	return bounds, ok
}
