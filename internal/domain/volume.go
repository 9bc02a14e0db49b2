package domain

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// Volume is a dense 3-D array of float64 samples in row-major order. Shape is
// (z, y, x) for pipeline-internal volumes; after ToViewerAxes it is (z, x, y).
// Samples are held as float64 until serialization, where the .vf codec casts
// to float32 regardless of source precision.
type Volume struct {
	Data  []float64
	Shape [3]int
}

// NewVolume wraps data in a Volume after checking the element count.
func NewVolume(data []float64, shape [3]int) (*Volume, error) {
	n := shape[0] * shape[1] * shape[2]
	if shape[0] <= 0 || shape[1] <= 0 || shape[2] <= 0 {
		return nil, fmt.Errorf("%w: non-positive shape %v", ErrShapeMismatch, shape)
	}
	if len(data) != n {
		return nil, fmt.Errorf("%w: %d samples for shape %v (want %d)", ErrShapeMismatch, len(data), shape, n)
	}
	return &Volume{Data: data, Shape: shape}, nil
}

// At returns the sample at index (i, j, k) along axes 0, 1, 2.
func (v *Volume) At(i, j, k int) float64 {
	return v.Data[(i*v.Shape[1]+j)*v.Shape[2]+k]
}

// Len returns the total sample count.
func (v *Volume) Len() int { return len(v.Data) }

// MaxAbs returns the largest absolute sample value, 0 for an empty volume.
func (v *Volume) MaxAbs() float64 {
	if len(v.Data) == 0 {
		return 0
	}
	return floats.Norm(v.Data, math.Inf(1))
}

// MinMax returns the smallest and largest sample values.
func (v *Volume) MinMax() (minVal, maxVal float64) {
	return floats.Min(v.Data), floats.Max(v.Data)
}

// ToViewerAxes transposes axes 1 and 2, converting the pipeline's internal
// (z, y, x) order into the order the viewer ingests: its vertical axis
// receives z-like data and its depth axis receives y-like data. This is the
// only axis shuffle in the pipeline; it is applied exactly once per volume,
// immediately before serialization or triangulation.
func ToViewerAxes(v *Volume) *Volume {
	nz, ny, nx := v.Shape[0], v.Shape[1], v.Shape[2]
	out := make([]float64, len(v.Data))
	for i := 0; i < nz; i++ {
		for j := 0; j < ny; j++ {
			row := (i*ny + j) * nx
			for k := 0; k < nx; k++ {
				out[(i*nx+k)*ny+j] = v.Data[row+k]
			}
		}
	}
	return &Volume{Data: out, Shape: [3]int{nz, nx, ny}}
}

// SameShape reports whether all volumes share one shape. Nil entries are
// ignored so optional vector components can be checked in one call.
func SameShape(vols ...*Volume) bool {
	var ref *Volume
	for _, v := range vols {
		if v == nil {
			continue
		}
		if ref == nil {
			ref = v
			continue
		}
		if v.Shape != ref.Shape {
			return false
		}
	}
	return true
}
