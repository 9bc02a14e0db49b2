package domain

// CoordinateField is one axis of the coordinate grid: a full 3-D volume of
// that axis's coordinate value at every grid point, plus its unit tag.
type CoordinateField struct {
	Data  *Volume
	Units Unit
}

// CoordinateVolumes holds the three expanded coordinate fields. All three
// share the (z, y, x) shape of the data volumes they describe.
type CoordinateVolumes struct {
	X, Y, Z CoordinateField
}

// BuildCoordinateVolumes expands a GridSpec into Cartesian coordinate
// volumes. Every field is tagged meter.
func BuildCoordinateVolumes(spec GridSpec) CoordinateVolumes {
	xs, ys, zs := spec.Axes()
	return CoordinateVolumesFromAxes(xs, ys, zs, UnitMeter, UnitMeter, UnitMeter)
}

// CoordinateVolumesFromAxes broadcasts 1-D axes into 3-D coordinate volumes
// of shape (len(zs), len(ys), len(xs)). Model grids pass degree-tagged x/y
// axes here; the z axis is always meters in practice but the tag is the
// caller's to choose.
func CoordinateVolumesFromAxes(xs, ys, zs []float64, xUnit, yUnit, zUnit Unit) CoordinateVolumes {
	nz, ny, nx := len(zs), len(ys), len(xs)
	shape := [3]int{nz, ny, nx}
	n := nz * ny * nx

	xv := make([]float64, n)
	yv := make([]float64, n)
	zv := make([]float64, n)
	idx := 0
	for i := 0; i < nz; i++ {
		for j := 0; j < ny; j++ {
			for k := 0; k < nx; k++ {
				xv[idx] = xs[k]
				yv[idx] = ys[j]
				zv[idx] = zs[i]
				idx++
			}
		}
	}

	return CoordinateVolumes{
		X: CoordinateField{Data: &Volume{Data: xv, Shape: shape}, Units: xUnit},
		Y: CoordinateField{Data: &Volume{Data: yv, Shape: shape}, Units: yUnit},
		Z: CoordinateField{Data: &Volume{Data: zv, Shape: shape}, Units: zUnit},
	}
}

// Shape returns the common (z, y, x) shape of the coordinate volumes.
func (c CoordinateVolumes) Shape() [3]int {
	return c.X.Data.Shape
}

// IsCartesian reports whether the grid is distance-based. A grid is Cartesian
// iff its x coordinate is not tagged degree.
func (c CoordinateVolumes) IsCartesian() bool {
	return c.X.Units != UnitDegree
}

// GridType returns the manifest grid label: "cartesian" or "latlon".
func (c CoordinateVolumes) GridType() string {
	if c.IsCartesian() {
		return "cartesian"
	}
	return "latlon"
}
