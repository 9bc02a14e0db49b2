package pipeline

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/couchcryptid/radar-volume-etl/internal/adapter/vf"
	"github.com/couchcryptid/radar-volume-etl/internal/domain"
)

// componentPrefixes maps volume-file prefixes to vector components. The
// viewer's y axis is vertical, so the w (vertical) component lands in the
// y_ file and the v (northward) component in the z_ file.
var componentPrefixes = []struct {
	prefix string
	pick   func(*VectorFieldSpec) *domain.Volume
}{
	{"x_", func(s *VectorFieldSpec) *domain.Volume { return s.U }},
	{"y_", func(s *VectorFieldSpec) *domain.Volume { return s.W }},
	{"z_", func(s *VectorFieldSpec) *domain.Volume { return s.V }},
}

// runVectorStage writes one .vf file per present component and records a
// manifest entry per file. Components share one normalization factor so the
// field's direction survives scaling.
func (e *Exporter) runVectorStage(ctx context.Context, req *ExportRequest, destDir string, builder *domain.ManifestBuilder) ([]string, error) {
	spec := req.VectorField()
	coords := req.Coordinates()

	scale := 1.0
	if spec.Normalize {
		maxAbs := 0.0
		for _, c := range componentPrefixes {
			if v := c.pick(spec); v != nil && v.MaxAbs() > maxAbs {
				maxAbs = v.MaxAbs()
			}
		}
		if maxAbs > 0 {
			scale = 1 / maxAbs
		} else {
			// An all-zero field stays zero rather than dividing by zero.
			e.logger.Warn("advisory", "condition", "vector field is all zero; normalization skipped")
			e.metrics.AdvisoryWarnings.Inc()
		}
	}

	entry := e.vectorEntry(spec, coords, req)

	var files []string
	for _, c := range componentPrefixes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		vol := c.pick(spec)
		if vol == nil {
			continue
		}

		out := vol
		if scale != 1 {
			scaled := make([]float64, len(vol.Data))
			for i, s := range vol.Data {
				scaled[i] = s * scale
			}
			out = &domain.Volume{Data: scaled, Shape: vol.Shape}
		}
		view := domain.ToViewerAxes(out)

		filename := c.prefix + spec.Name + ".vf"
		path := filepath.Join(destDir, filename)
		if err := vf.WriteFile(path, view); err != nil {
			return nil, fmt.Errorf("vector component %s: %w", filename, err)
		}
		e.countFile(path, "vf")

		entry.UnityDims = unityDims(view.Shape)
		builder.AddVectorField(filename, entry)
		files = append(files, filename)
	}
	return files, nil
}

// vectorEntry assembles the per-file manifest entry shared by all components:
// grid extents, coordinate units, vector units, and the run's valid time.
func (e *Exporter) vectorEntry(spec *VectorFieldSpec, coords domain.CoordinateVolumes, req *ExportRequest) domain.VectorFieldEntry {
	xmin, xmax := coords.X.Data.MinMax()
	ymin, ymax := coords.Y.Data.MinMax()
	zmin, zmax := coords.Z.Data.MinMax()

	return domain.VectorFieldEntry{
		XMin: xmin, XMax: xmax, XCoordinateUnits: coords.X.Units.String(),
		YMin: ymin, YMax: ymax, YCoordinateUnits: coords.Y.Units.String(),
		ZMin: zmin, ZMax: zmax, ZCoordinateUnits: coords.Z.Units.String(),
		VectorUnits: spec.Units,
		Grid:        coords.GridType(),
		RunTime:     domain.FormatRunTime(req.ValidTime()),
	}
}
