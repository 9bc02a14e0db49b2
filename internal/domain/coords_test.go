package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildCoordinateVolumes(t *testing.T) {
	spec := GridSpecFromKilometers(2000, -2, 2, 0, 4, 0, 3, 1500)

	cv := BuildCoordinateVolumes(spec)

	// x: 3 points, y: 3 points, z: 3 points → shape (nz, ny, nx).
	assert.Equal(t, [3]int{3, 3, 3}, cv.Shape())
	assert.Equal(t, UnitMeter, cv.X.Units)
	assert.Equal(t, UnitMeter, cv.Y.Units)
	assert.Equal(t, UnitMeter, cv.Z.Units)
	assert.True(t, cv.IsCartesian())
	assert.Equal(t, "cartesian", cv.GridType())

	// The x volume varies along axis 2 only, y along axis 1, z along axis 0.
	assert.Equal(t, -2000.0, cv.X.Data.At(0, 0, 0))
	assert.Equal(t, 2000.0, cv.X.Data.At(2, 1, 2))
	assert.Equal(t, 0.0, cv.Y.Data.At(1, 0, 2))
	assert.Equal(t, 4000.0, cv.Y.Data.At(0, 2, 0))
	assert.Equal(t, 0.0, cv.Z.Data.At(0, 2, 2))
	assert.Equal(t, 3000.0, cv.Z.Data.At(2, 0, 0))
}

func TestCoordinateVolumesFromAxes(t *testing.T) {
	t.Run("broadcast shape and values", func(t *testing.T) {
		xs := []float64{10, 20}
		ys := []float64{1, 2, 3}
		zs := []float64{100}

		cv := CoordinateVolumesFromAxes(xs, ys, zs, UnitMeter, UnitMeter, UnitMeter)

		require.Equal(t, [3]int{1, 3, 2}, cv.Shape())
		for j := 0; j < 3; j++ {
			for k := 0; k < 2; k++ {
				assert.Equal(t, xs[k], cv.X.Data.At(0, j, k))
				assert.Equal(t, ys[j], cv.Y.Data.At(0, j, k))
				assert.Equal(t, 100.0, cv.Z.Data.At(0, j, k))
			}
		}
	})

	t.Run("degree-tagged axes make a latlon grid", func(t *testing.T) {
		cv := CoordinateVolumesFromAxes(
			[]float64{-93.5, -93.4},
			[]float64{44.8, 44.9},
			[]float64{0, 1000},
			UnitDegree, UnitDegree, UnitMeter,
		)

		assert.False(t, cv.IsCartesian())
		assert.Equal(t, "latlon", cv.GridType())
		assert.Equal(t, UnitDegree, cv.X.Units)
		assert.Equal(t, UnitMeter, cv.Z.Units)
	})
}
