package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/radar-volume-etl/internal/adapter/mesh"
	"github.com/couchcryptid/radar-volume-etl/internal/adapter/vf"
	"github.com/couchcryptid/radar-volume-etl/internal/domain"
	"github.com/couchcryptid/radar-volume-etl/internal/observability"
)

// fakeTriangulator returns one fixed triangle per level, or an empty mesh
// for levels above emptyAbove.
type fakeTriangulator struct {
	emptyAbove float64
	err        error
	calls      []float64
}

func (f *fakeTriangulator) Triangulate(_ *domain.Volume, level float64) (*mesh.TriangleMesh, error) {
	f.calls = append(f.calls, level)
	if f.err != nil {
		return nil, f.err
	}
	if f.emptyAbove != 0 && level > f.emptyAbove {
		return &mesh.TriangleMesh{}, nil
	}
	return &mesh.TriangleMesh{
		Vertices: [][3]float64{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}},
		Faces:    [][3]int{{0, 1, 2}},
	}, nil
}

type fakeSmoother struct {
	called bool
}

func (f *fakeSmoother) Smooth(v *domain.Volume) (*domain.Volume, error) {
	f.called = true
	out := make([]float64, len(v.Data))
	copy(out, v.Data)
	return &domain.Volume{Data: out, Shape: v.Shape}, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestExporter(tri Triangulator, sm Smoother) *Exporter {
	return NewExporter(
		domain.DefaultSiteTable(),
		tri,
		mesh.OBJWriter{},
		sm,
		testLogger(),
		observability.NewMetricsForTesting(),
	)
}

func readManifest(t *testing.T, destDir string) domain.Manifest {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(destDir, domain.ManifestFileName))
	require.NoError(t, err)
	var m domain.Manifest
	require.NoError(t, json.Unmarshal(data, &m))
	return m
}

func TestExporterVectorStage(t *testing.T) {
	coords := testCoords(t)

	t.Run("all three components", func(t *testing.T) {
		u := gridVolume(t, 4)
		v := gridVolume(t, -8)
		w := gridVolume(t, 2)
		req, err := NewRequestBuilder(coords, testValidTime).
			WithVectorField(VectorFieldSpec{U: u, V: v, W: w, Name: "wind", Units: "knot", Normalize: true}).
			Build()
		require.NoError(t, err)

		dest := t.TempDir()
		res, err := newTestExporter(nil, nil).Run(context.Background(), req, dest)

		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"x_wind.vf", "y_wind.vf", "z_wind.vf", "meta.json"}, res.Files)

		// The u component scales by the joint maximum |v| = 8, not its own.
		x, err := vf.ReadFile(filepath.Join(dest, "x_wind.vf"))
		require.NoError(t, err)
		assert.Equal(t, [3]int{3, 3, 3}, x.Shape)
		assert.InDelta(t, 0.5, x.Data[0], 1e-7)

		// y_ carries w, z_ carries v.
		y, err := vf.ReadFile(filepath.Join(dest, "y_wind.vf"))
		require.NoError(t, err)
		assert.InDelta(t, 0.25, y.Data[0], 1e-7)
		z, err := vf.ReadFile(filepath.Join(dest, "z_wind.vf"))
		require.NoError(t, err)
		assert.InDelta(t, -1.0, z.Data[0], 1e-7)

		info, err := os.Stat(filepath.Join(dest, "x_wind.vf"))
		require.NoError(t, err)
		assert.Equal(t, int64(10+4*27), info.Size())

		m := readManifest(t, dest)
		require.Len(t, m.VectorField, 3)
		entry := m.VectorField["x_wind.vf"]
		assert.Equal(t, -2000.0, entry.XMin)
		assert.Equal(t, 2000.0, entry.XMax)
		assert.Equal(t, "meter", entry.XCoordinateUnits)
		assert.Equal(t, 0.0, entry.ZMin)
		assert.Equal(t, 4000.0, entry.ZMax)
		assert.Equal(t, "knot", entry.VectorUnits)
		assert.Equal(t, "cartesian", entry.Grid)
		assert.Equal(t, [3]int{3, 3, 3}, entry.UnityDims)
		assert.Equal(t, "03/03/2024 003012 UTC", entry.RunTime)
		assert.Nil(t, m.Radar)
	})

	t.Run("single component scalar export", func(t *testing.T) {
		req, err := NewRequestBuilder(coords, testValidTime).
			WithVectorField(VectorFieldSpec{U: gridVolume(t, 3), Name: "reflectivity", Units: "dBZ"}).
			Build()
		require.NoError(t, err)

		dest := t.TempDir()
		res, err := newTestExporter(nil, nil).Run(context.Background(), req, dest)

		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"x_reflectivity.vf", "meta.json"}, res.Files)

		// Normalize off: samples pass through untouched.
		x, err := vf.ReadFile(filepath.Join(dest, "x_reflectivity.vf"))
		require.NoError(t, err)
		assert.Equal(t, 3.0, x.Data[0])
	})

	t.Run("all-zero field stays zero under normalization", func(t *testing.T) {
		req, err := NewRequestBuilder(coords, testValidTime).
			WithVectorField(VectorFieldSpec{U: gridVolume(t, 0), Name: "wind", Normalize: true}).
			Build()
		require.NoError(t, err)

		dest := t.TempDir()
		_, err = newTestExporter(nil, nil).Run(context.Background(), req, dest)

		require.NoError(t, err)
		x, err := vf.ReadFile(filepath.Join(dest, "x_wind.vf"))
		require.NoError(t, err)
		for _, s := range x.Data {
			assert.Equal(t, 0.0, s)
		}
	})

	t.Run("transposition applied before encoding", func(t *testing.T) {
		// An asymmetric grid so the axis swap is visible in the header.
		spec := domain.GridSpecFromKilometers(1000, 0, 4, 0, 2, 0, 1, 1000)
		coords := domain.BuildCoordinateVolumes(spec)
		nx, ny, nz := spec.PointCounts()
		require.Equal(t, [3]int{5, 3, 2}, [3]int{nx, ny, nz})

		vol, err := domain.NewVolume(make([]float64, nx*ny*nz), [3]int{nz, ny, nx})
		require.NoError(t, err)
		req, err := NewRequestBuilder(coords, testValidTime).
			WithVectorField(VectorFieldSpec{U: vol, Name: "wind"}).
			Build()
		require.NoError(t, err)

		dest := t.TempDir()
		res, err := newTestExporter(nil, nil).Run(context.Background(), req, dest)
		require.NoError(t, err)

		// Volume shape (nz, ny, nx) = (2, 3, 5) transposes to (2, 5, 3):
		// width 3, height 5, depth 2.
		back, err := vf.ReadFile(filepath.Join(dest, "x_wind.vf"))
		require.NoError(t, err)
		assert.Equal(t, [3]int{2, 5, 3}, back.Shape)

		m := readManifest(t, dest)
		assert.Equal(t, [3]int{3, 5, 2}, m.VectorField["x_wind.vf"].UnityDims)
		_ = res
	})
}

func TestExporterIsosurfaceStage(t *testing.T) {
	coords := testCoords(t)

	// A volume with one voxel above 50 at grid point (z=1, y=1, x=1).
	peaked := gridVolume(t, 10)
	peaked.Data[(1*3+1)*3+1] = 60

	t.Run("meshes and bounds per level", func(t *testing.T) {
		tri := &fakeTriangulator{}
		req, err := NewRequestBuilder(coords, testValidTime).
			WithIsosurface(IsosurfaceSpec{
				Volume:   peaked,
				Variable: "reflectivity",
				Units:    "dBZ",
				Levels:   []float64{5, 50},
			}).
			Build()
		require.NoError(t, err)

		dest := t.TempDir()
		res, err := newTestExporter(tri, nil).Run(context.Background(), req, dest)

		require.NoError(t, err)
		assert.Equal(t, []float64{5, 50}, tri.calls)
		assert.ElementsMatch(t, []string{"5_reflectivity.obj", "50_reflectivity.obj", "meta.json"}, res.Files)

		data, err := os.ReadFile(filepath.Join(dest, "5_reflectivity.obj"))
		require.NoError(t, err)
		assert.Contains(t, string(data), "o 5Surface")

		m := readManifest(t, dest)
		require.Len(t, m.Isosurface, 2)

		// Level 5: every grid point matches, bounds are the grid extents.
		all := m.Isosurface["5_reflectivity.obj"]
		assert.Equal(t, 5.0, all.IsosurfaceLevel)
		assert.Equal(t, "reflectivity", all.Variable)
		assert.Equal(t, "dBZ", all.IsosurfaceUnits)
		require.True(t, all.XMin.Valid)
		assert.Equal(t, -2000.0, all.XMin.Value)
		assert.Equal(t, 2000.0, all.XMax.Value)
		assert.Equal(t, 0.0, all.ZMin.Value)
		assert.Equal(t, 4000.0, all.ZMax.Value)
		assert.False(t, all.Smooth)
		assert.Equal(t, [3]int{3, 3, 3}, all.UnityDims)
		assert.Equal(t, "03/03/2024 003012 UTC", all.RunTime)

		// Level 50: only the center voxel matches.
		peak := m.Isosurface["50_reflectivity.obj"]
		require.True(t, peak.XMin.Valid)
		assert.Equal(t, 0.0, peak.XMin.Value)
		assert.Equal(t, 0.0, peak.XMax.Value)
		assert.Equal(t, 2000.0, peak.ZMin.Value)
		assert.Equal(t, 2000.0, peak.ZMax.Value)
	})

	t.Run("unreached level reports unavailable bounds", func(t *testing.T) {
		tri := &fakeTriangulator{emptyAbove: 70}
		req, err := NewRequestBuilder(coords, testValidTime).
			WithIsosurface(IsosurfaceSpec{
				Volume:   peaked,
				Variable: "reflectivity",
				Levels:   []float64{75},
			}).
			Build()
		require.NoError(t, err)

		dest := t.TempDir()
		res, err := newTestExporter(tri, nil).Run(context.Background(), req, dest)

		require.NoError(t, err)
		// The empty mesh file is still written.
		assert.Contains(t, res.Files, "75_reflectivity.obj")

		entry := readManifest(t, dest).Isosurface["75_reflectivity.obj"]
		assert.False(t, entry.XMin.Valid)
		assert.False(t, entry.YMax.Valid)
		assert.False(t, entry.ZMin.Valid)
	})

	t.Run("smoothing invoked when requested", func(t *testing.T) {
		sm := &fakeSmoother{}
		req, err := NewRequestBuilder(coords, testValidTime).
			WithIsosurface(IsosurfaceSpec{
				Volume:   peaked,
				Variable: "reflectivity",
				Levels:   []float64{30},
				Smooth:   true,
			}).
			Build()
		require.NoError(t, err)

		dest := t.TempDir()
		_, err = newTestExporter(&fakeTriangulator{}, sm).Run(context.Background(), req, dest)

		require.NoError(t, err)
		assert.True(t, sm.called)
		entry := readManifest(t, dest).Isosurface["30_reflectivity.obj"]
		assert.True(t, entry.Smooth)
	})

	t.Run("smoothing without a smoother is fatal", func(t *testing.T) {
		req, err := NewRequestBuilder(coords, testValidTime).
			WithIsosurface(IsosurfaceSpec{
				Volume:   peaked,
				Variable: "reflectivity",
				Levels:   []float64{30},
				Smooth:   true,
			}).
			Build()
		require.NoError(t, err)

		dest := t.TempDir()
		_, err = newTestExporter(&fakeTriangulator{}, nil).Run(context.Background(), req, dest)

		require.ErrorContains(t, err, "no smoother")
		assert.NoFileExists(t, filepath.Join(dest, domain.ManifestFileName))
	})

	t.Run("no triangulator is fatal", func(t *testing.T) {
		req, err := NewRequestBuilder(coords, testValidTime).
			WithIsosurface(IsosurfaceSpec{Volume: peaked, Variable: "reflectivity", Levels: []float64{30}}).
			Build()
		require.NoError(t, err)

		_, err = newTestExporter(nil, nil).Run(context.Background(), req, t.TempDir())
		assert.ErrorContains(t, err, "no triangulator")
	})

	t.Run("triangulation failure aborts the run", func(t *testing.T) {
		tri := &fakeTriangulator{err: fmt.Errorf("degenerate cell")}
		req, err := NewRequestBuilder(coords, testValidTime).
			WithIsosurface(IsosurfaceSpec{Volume: peaked, Variable: "reflectivity", Levels: []float64{30}}).
			Build()
		require.NoError(t, err)

		dest := t.TempDir()
		_, err = newTestExporter(tri, nil).Run(context.Background(), req, dest)

		require.ErrorContains(t, err, "degenerate cell")
		assert.NoFileExists(t, filepath.Join(dest, domain.ManifestFileName))
	})
}

func TestExporterRadarMetadata(t *testing.T) {
	coords := testCoords(t)

	t.Run("known site lands in the manifest", func(t *testing.T) {
		req, err := NewRequestBuilder(coords, testValidTime).
			WithSite("KMPX").
			WithVectorField(VectorFieldSpec{U: gridVolume(t, 1), Name: "wind"}).
			Build()
		require.NoError(t, err)

		dest := t.TempDir()
		_, err = newTestExporter(nil, nil).Run(context.Background(), req, dest)

		require.NoError(t, err)
		m := readManifest(t, dest)
		require.NotNil(t, m.Radar)
		assert.Equal(t, "KMPX", m.Radar.ID)
		assert.Equal(t, "meter", m.Radar.ElevationUnits)
	})

	t.Run("unknown site aborts before any file is written", func(t *testing.T) {
		req, err := NewRequestBuilder(coords, testValidTime).
			WithSite("XXXX").
			WithVectorField(VectorFieldSpec{U: gridVolume(t, 1), Name: "wind"}).
			Build()
		require.NoError(t, err)

		dest := t.TempDir()
		_, err = newTestExporter(nil, nil).Run(context.Background(), req, dest)

		require.ErrorIs(t, err, domain.ErrUnknownSite)
		entries, readErr := os.ReadDir(dest)
		require.NoError(t, readErr)
		assert.Empty(t, entries)
	})
}

func TestExporterCancelledContext(t *testing.T) {
	coords := testCoords(t)
	req, err := NewRequestBuilder(coords, testValidTime).
		WithVectorField(VectorFieldSpec{U: gridVolume(t, 1), Name: "wind"}).
		Build()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = newTestExporter(nil, nil).Run(ctx, req, t.TempDir())
	assert.ErrorIs(t, err, context.Canceled)
}
