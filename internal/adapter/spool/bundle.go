// Package spool reads grid bundles handed over by the gridding collaborator:
// a JSON descriptor next to raw little-endian float component files in
// (z, y, x) sample order.
package spool

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/couchcryptid/radar-volume-etl/internal/domain"
)

// DescriptorSuffix marks bundle descriptors in the spool directory.
const DescriptorSuffix = ".bundle.json"

// GridConfig is the descriptor's Cartesian grid block: kilometer extents,
// meter resolutions, matching the API boundary convention.
type GridConfig struct {
	HorizontalResolutionM float64 `json:"horizontal_resolution_m"`
	XStartKM              float64 `json:"x_start_km"`
	XEndKM                float64 `json:"x_end_km"`
	YStartKM              float64 `json:"y_start_km"`
	YEndKM                float64 `json:"y_end_km"`
	ZStartKM              float64 `json:"z_start_km"`
	ZEndKM                float64 `json:"z_end_km"`
	VerticalResolutionM   float64 `json:"vertical_resolution_m"`
}

// Spec converts the block to the meter-based domain spec.
func (g GridConfig) Spec() domain.GridSpec {
	return domain.GridSpecFromKilometers(
		g.HorizontalResolutionM,
		g.XStartKM, g.XEndKM,
		g.YStartKM, g.YEndKM,
		g.ZStartKM, g.ZEndKM,
		g.VerticalResolutionM,
	)
}

// AxesConfig is the descriptor's explicit-axes block for model grids that are
// not regular Cartesian, typically degree-tagged lat/lon horizontal axes.
type AxesConfig struct {
	X      []float64 `json:"x"`
	Y      []float64 `json:"y"`
	Z      []float64 `json:"z"`
	XUnits string    `json:"x_units"`
	YUnits string    `json:"y_units"`
	ZUnits string    `json:"z_units"`
}

// ScalarConfig names one scalar variable component file.
type ScalarConfig struct {
	Variable string `json:"variable"`
	Units    string `json:"units"`
	File     string `json:"file"`
	DType    string `json:"dtype"`
}

// VectorConfig names the vector component files. V and W are optional.
type VectorConfig struct {
	Name  string `json:"name"`
	Units string `json:"units"`
	UFile string `json:"u_file"`
	VFile string `json:"v_file,omitempty"`
	WFile string `json:"w_file,omitempty"`
	DType string `json:"dtype"`
}

// Bundle is one parsed descriptor. Component files resolve relative to the
// descriptor's directory.
type Bundle struct {
	SiteID    string        `json:"site_id,omitempty"`
	ValidTime time.Time     `json:"valid_time"`
	Shape     [3]int        `json:"shape"`
	Grid      *GridConfig   `json:"grid,omitempty"`
	Axes      *AxesConfig   `json:"axes,omitempty"`
	Scalar    *ScalarConfig `json:"scalar,omitempty"`
	Vector    *VectorConfig `json:"vector,omitempty"`

	dir string
}

// ReadBundle parses and validates the descriptor at path.
func ReadBundle(path string) (*Bundle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read bundle descriptor: %w", err)
	}
	var b Bundle
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("parse bundle descriptor %s: %w", path, err)
	}
	b.dir = filepath.Dir(path)
	if err := b.Validate(); err != nil {
		return nil, fmt.Errorf("bundle descriptor %s: %w", path, err)
	}
	return &b, nil
}

// Validate checks descriptor consistency: a valid time, a positive shape,
// exactly one coordinate source, at least one payload, and shape agreement
// between the coordinate source and the declared shape.
func (b *Bundle) Validate() error {
	err := validation.ValidateStruct(b,
		validation.Field(&b.ValidTime, validation.Required),
	)
	if err != nil {
		return err
	}
	for _, n := range b.Shape {
		if n <= 0 {
			return fmt.Errorf("non-positive shape %v", b.Shape)
		}
	}
	if (b.Grid == nil) == (b.Axes == nil) {
		return fmt.Errorf("exactly one of grid and axes must be set")
	}
	if b.Scalar == nil && b.Vector == nil {
		return fmt.Errorf("bundle carries neither a scalar nor a vector payload")
	}
	if b.Scalar != nil {
		if b.Scalar.File == "" || b.Scalar.Variable == "" {
			return fmt.Errorf("scalar payload needs variable and file")
		}
	}
	if b.Vector != nil && b.Vector.UFile == "" {
		return fmt.Errorf("vector payload needs at least u_file")
	}

	if b.Grid != nil {
		spec := b.Grid.Spec()
		if err := spec.Validate(); err != nil {
			return err
		}
		nx, ny, nz := spec.PointCounts()
		if want := [3]int{nz, ny, nx}; want != b.Shape {
			return fmt.Errorf("%w: grid yields %v, descriptor declares %v", domain.ErrShapeMismatch, want, b.Shape)
		}
	}
	if b.Axes != nil {
		want := [3]int{len(b.Axes.Z), len(b.Axes.Y), len(b.Axes.X)}
		if want != b.Shape {
			return fmt.Errorf("%w: axes yield %v, descriptor declares %v", domain.ErrShapeMismatch, want, b.Shape)
		}
	}
	return nil
}

// Coordinates expands the bundle's coordinate source into 3-D volumes and
// returns any advisory grid warnings.
func (b *Bundle) Coordinates() (domain.CoordinateVolumes, []string, error) {
	if b.Grid != nil {
		spec := b.Grid.Spec()
		return domain.BuildCoordinateVolumes(spec), spec.Warnings(), nil
	}

	xu, err := domain.ParseUnit(b.Axes.XUnits)
	if err != nil {
		return domain.CoordinateVolumes{}, nil, fmt.Errorf("x axis: %w", err)
	}
	yu, err := domain.ParseUnit(b.Axes.YUnits)
	if err != nil {
		return domain.CoordinateVolumes{}, nil, fmt.Errorf("y axis: %w", err)
	}
	zu, err := domain.ParseUnit(b.Axes.ZUnits)
	if err != nil {
		return domain.CoordinateVolumes{}, nil, fmt.Errorf("z axis: %w", err)
	}
	return domain.CoordinateVolumesFromAxes(b.Axes.X, b.Axes.Y, b.Axes.Z, xu, yu, zu), nil, nil
}

// LoadComponent reads one raw component file into a volume of the bundle's
// shape. Sample formats other than float32/float64 are ErrUnsupportedDType.
func (b *Bundle) LoadComponent(file, dtype string) (*domain.Volume, error) {
	var width int
	switch dtype {
	case "float32":
		width = 4
	case "float64":
		width = 8
	default:
		return nil, fmt.Errorf("%w: %q", domain.ErrUnsupportedDType, dtype)
	}

	path := filepath.Join(b.dir, file)
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read component: %w", err)
	}
	n := b.Shape[0] * b.Shape[1] * b.Shape[2]
	if len(raw) != n*width {
		return nil, fmt.Errorf("%w: component %s holds %d bytes, shape %v needs %d",
			domain.ErrShapeMismatch, file, len(raw), b.Shape, n*width)
	}

	data := make([]float64, n)
	if width == 4 {
		for i := range data {
			data[i] = float64(math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:])))
		}
	} else {
		for i := range data {
			data[i] = math.Float64frombits(binary.LittleEndian.Uint64(raw[i*8:]))
		}
	}
	return domain.NewVolume(data, b.Shape)
}

// LoadScalar loads the scalar payload volume.
func (b *Bundle) LoadScalar() (*domain.Volume, error) {
	if b.Scalar == nil {
		return nil, fmt.Errorf("bundle has no scalar payload")
	}
	return b.LoadComponent(b.Scalar.File, b.Scalar.DType)
}

// LoadVector loads the vector payload components. Absent components come
// back nil.
func (b *Bundle) LoadVector() (u, v, w *domain.Volume, err error) {
	if b.Vector == nil {
		return nil, nil, nil, fmt.Errorf("bundle has no vector payload")
	}
	if u, err = b.LoadComponent(b.Vector.UFile, b.Vector.DType); err != nil {
		return nil, nil, nil, fmt.Errorf("u component: %w", err)
	}
	if b.Vector.VFile != "" {
		if v, err = b.LoadComponent(b.Vector.VFile, b.Vector.DType); err != nil {
			return nil, nil, nil, fmt.Errorf("v component: %w", err)
		}
	}
	if b.Vector.WFile != "" {
		if w, err = b.LoadComponent(b.Vector.WFile, b.Vector.DType); err != nil {
			return nil, nil, nil, fmt.Errorf("w component: %w", err)
		}
	}
	return u, v, w, nil
}

// Dir returns the directory the descriptor was read from.
func (b *Bundle) Dir() string { return b.dir }

// WriteBundle writes a descriptor plus float32 component files into dir,
// for tooling and tests. Components are keyed by file name.
func WriteBundle(dir, name string, b *Bundle, components map[string][]float64) (string, error) {
	for file, samples := range components {
		raw := make([]byte, 4*len(samples))
		for i, s := range samples {
			binary.LittleEndian.PutUint32(raw[i*4:], math.Float32bits(float32(s)))
		}
		if err := os.WriteFile(filepath.Join(dir, file), raw, 0o644); err != nil {
			return "", fmt.Errorf("write component %s: %w", file, err)
		}
	}

	data, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal descriptor: %w", err)
	}
	path := filepath.Join(dir, name+DescriptorSuffix)
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return "", fmt.Errorf("write descriptor: %w", err)
	}
	return path, nil
}
