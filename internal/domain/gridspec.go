package domain

import (
	"fmt"
	"math"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// NEXRAD operating envelope used for the advisory (non-fatal) grid checks.
const (
	maxRangeMeters     = 230_000
	nativeGateMeters   = 250
	coarseHorizMeters  = 10_000
	coarseVertMeters   = 2_000
	metersPerKilometer = 1_000
)

// GridSpec describes the export grid. All fields are meters; use
// GridSpecFromKilometers to construct one from the kilometer-based extents
// accepted at the API boundary.
type GridSpec struct {
	HorizontalResolution float64
	XStart, XEnd         float64
	YStart, YEnd         float64
	ZStart, ZEnd         float64
	VerticalResolution   float64
}

// GridSpecFromKilometers converts kilometer extents to the meter-based spec.
// Resolutions are already meters. The rest of the pipeline never sees
// kilometers again.
func GridSpecFromKilometers(horizResM, xStartKM, xEndKM, yStartKM, yEndKM, zStartKM, zEndKM, vertResM float64) GridSpec {
	return GridSpec{
		HorizontalResolution: horizResM,
		XStart:               xStartKM * metersPerKilometer,
		XEnd:                 xEndKM * metersPerKilometer,
		YStart:               yStartKM * metersPerKilometer,
		YEnd:                 yEndKM * metersPerKilometer,
		ZStart:               zStartKM * metersPerKilometer,
		ZEnd:                 zEndKM * metersPerKilometer,
		VerticalResolution:   vertResM,
	}
}

// Validate enforces the hard invariants: positive resolutions, ordered
// extents on every axis, and a non-negative grid floor. Failures are fatal
// and wrap ErrGridSpec.
func (s GridSpec) Validate() error {
	err := validation.ValidateStruct(&s,
		validation.Field(&s.HorizontalResolution, validation.Required, validation.Min(0.0).Exclusive()),
		validation.Field(&s.VerticalResolution, validation.Required, validation.Min(0.0).Exclusive()),
		validation.Field(&s.ZStart, validation.Min(0.0)),
	)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrGridSpec, err)
	}

	type axis struct {
		name       string
		start, end float64
	}
	for _, a := range []axis{
		{"x", s.XStart, s.XEnd},
		{"y", s.YStart, s.YEnd},
		{"z", s.ZStart, s.ZEnd},
	} {
		if a.start > a.end {
			return fmt.Errorf("%w: %s start %g m is greater than end %g m", ErrGridSpec, a.name, a.start, a.end)
		}
	}
	return nil
}

// Warnings returns the advisory conditions: extents beyond radar range and
// resolutions outside the instrument's useful band. None of these abort a run.
func (s GridSpec) Warnings() []string {
	var w []string
	edges := []struct {
		name  string
		value float64
	}{
		{"x start", s.XStart}, {"x end", s.XEnd},
		{"y start", s.YStart}, {"y end", s.YEnd},
	}
	for _, e := range edges {
		if e.value > maxRangeMeters || e.value < -maxRangeMeters {
			w = append(w, fmt.Sprintf("%s %g m is beyond the %d m maximum radar range", e.name, e.value, maxRangeMeters))
		}
	}
	if s.HorizontalResolution < nativeGateMeters {
		w = append(w, fmt.Sprintf("horizontal resolution %g m is finer than the %d m native gate spacing", s.HorizontalResolution, nativeGateMeters))
	}
	if s.HorizontalResolution > coarseHorizMeters {
		w = append(w, fmt.Sprintf("horizontal resolution %g m is very coarse; features may be missing", s.HorizontalResolution))
	}
	if s.VerticalResolution > coarseVertMeters {
		w = append(w, fmt.Sprintf("vertical resolution %g m is very coarse; features may be missing", s.VerticalResolution))
	}
	return w
}

// PointCounts returns the number of grid points per axis under the inclusive
// stepping convention: ceil(span/res)+1, so the last point may overshoot the
// end by up to one resolution step. The externally gridded volumes are sized
// with the same rule, and shape parity with them is load-bearing.
func (s GridSpec) PointCounts() (nx, ny, nz int) {
	nx = stepCount(s.XStart, s.XEnd, s.HorizontalResolution)
	ny = stepCount(s.YStart, s.YEnd, s.HorizontalResolution)
	nz = stepCount(s.ZStart, s.ZEnd, s.VerticalResolution)
	return nx, ny, nz
}

// Axes returns the 1-D coordinate sequences for the three axes, in meters.
func (s GridSpec) Axes() (xs, ys, zs []float64) {
	xs = stepRange(s.XStart, s.XEnd, s.HorizontalResolution)
	ys = stepRange(s.YStart, s.YEnd, s.HorizontalResolution)
	zs = stepRange(s.ZStart, s.ZEnd, s.VerticalResolution)
	return xs, ys, zs
}

func stepCount(start, end, step float64) int {
	// Tiny tolerance so an exact multiple of the step is not pushed to an
	// extra point by float rounding.
	return int(math.Ceil((end-start)/step-1e-9)) + 1
}

func stepRange(start, end, step float64) []float64 {
	n := stepCount(start, end, step)
	out := make([]float64, n)
	for i := range out {
		out[i] = start + float64(i)*step
	}
	return out
}
