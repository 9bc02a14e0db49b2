package domain

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// ManifestFileName is the fixed name of the JSON side-car in the output
// directory.
const ManifestFileName = "meta.json"

// runTimeLayout is the viewer's timestamp spelling: MM/DD/YYYY HHMMSS, with
// a literal " UTC" suffix appended by FormatRunTime.
const runTimeLayout = "01/02/2006 150405"

// FormatRunTime renders a timestamp the way the viewer expects it.
func FormatRunTime(t time.Time) string {
	return t.UTC().Format(runTimeLayout) + " UTC"
}

// Coord is a bounding coordinate that may be unavailable: an isosurface
// level that no voxel reaches has no bounding box, and the manifest reports
// the string "not available" instead of failing the run.
type Coord struct {
	Valid bool
	Value float64
}

// AvailableCoord wraps a known bounding coordinate.
func AvailableCoord(v float64) Coord {
	return Coord{Valid: true, Value: v}
}

const notAvailable = "not available"

func (c Coord) MarshalJSON() ([]byte, error) {
	if !c.Valid {
		return json.Marshal(notAvailable)
	}
	return json.Marshal(c.Value)
}

func (c *Coord) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if s != notAvailable {
			return fmt.Errorf("bounding coordinate: unexpected string %q", s)
		}
		*c = Coord{}
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*c = AvailableCoord(v)
	return nil
}

// RadarMetadata is the optional radar block, populated from the site table.
type RadarMetadata struct {
	ID             string  `json:"id"`
	Latitude       float64 `json:"latitude"`
	Longitude      float64 `json:"longitude"`
	Elevation      float64 `json:"elevation"`
	ElevationUnits string  `json:"elevation_units"`
}

// IsosurfaceEntry describes one exported mesh file.
type IsosurfaceEntry struct {
	IsosurfaceUnits  string  `json:"isosurface_units"`
	IsosurfaceLevel  float64 `json:"isosurface_level"`
	Variable         string  `json:"variable"`
	XMin             Coord   `json:"x_min"`
	XMax             Coord   `json:"x_max"`
	XCoordinateUnits string  `json:"x_coordinate_units"`
	YMin             Coord   `json:"y_min"`
	YMax             Coord   `json:"y_max"`
	YCoordinateUnits string  `json:"y_coordinate_units"`
	ZMin             Coord   `json:"z_min"`
	ZMax             Coord   `json:"z_max"`
	ZCoordinateUnits string  `json:"z_coordinate_units"`
	Grid             string  `json:"grid"`
	UnityDims        [3]int  `json:"unity_dims"`
	Smooth           bool    `json:"smooth"`
	RunTime          string  `json:"Date|Run_Time"`
}

// VectorFieldEntry describes one exported .vf component file. The bounds are
// grid extents, always available.
type VectorFieldEntry struct {
	XMin             float64 `json:"x_min"`
	XMax             float64 `json:"x_max"`
	XCoordinateUnits string  `json:"x_coordinate_units"`
	YMin             float64 `json:"y_min"`
	YMax             float64 `json:"y_max"`
	YCoordinateUnits string  `json:"y_coordinate_units"`
	ZMin             float64 `json:"z_min"`
	ZMax             float64 `json:"z_max"`
	ZCoordinateUnits string  `json:"z_coordinate_units"`
	VectorUnits      string  `json:"vector_units"`
	Grid             string  `json:"grid"`
	UnityDims        [3]int  `json:"unity_dims"`
	RunTime          string  `json:"Date|Run_Time"`
}

// Manifest is the JSON side-car describing every artifact of one export run.
// Map keys are output filenames; encoding/json emits them sorted, so two runs
// over identical inputs produce manifests differing only in FILE_GENERATED.
type Manifest struct {
	FileGenerated string                      `json:"FILE_GENERATED"`
	Radar         *RadarMetadata              `json:"radar,omitempty"`
	Isosurface    map[string]IsosurfaceEntry  `json:"isosurface,omitempty"`
	VectorField   map[string]VectorFieldEntry `json:"vector_field,omitempty"`
}

// WriteFile serializes the manifest to path with a trailing newline.
func (m Manifest) WriteFile(path string) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	data = append(data, '\n')
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write manifest %s: %w", path, err)
	}
	return nil
}

// ManifestBuilder accumulates per-file entries during an export run and
// stamps FILE_GENERATED at Build time.
type ManifestBuilder struct {
	radar *RadarMetadata
	iso   map[string]IsosurfaceEntry
	vec   map[string]VectorFieldEntry
}

func NewManifestBuilder() *ManifestBuilder {
	return &ManifestBuilder{}
}

// SetRadar attaches site metadata from the static table.
func (b *ManifestBuilder) SetRadar(site Site) *ManifestBuilder {
	b.radar = &RadarMetadata{
		ID:             site.ID,
		Latitude:       site.Latitude,
		Longitude:      site.Longitude,
		Elevation:      site.Elevation.Value,
		ElevationUnits: site.Elevation.Unit.String(),
	}
	return b
}

// AddIsosurface records the entry for one mesh output file.
func (b *ManifestBuilder) AddIsosurface(filename string, e IsosurfaceEntry) *ManifestBuilder {
	if b.iso == nil {
		b.iso = make(map[string]IsosurfaceEntry)
	}
	b.iso[filename] = e
	return b
}

// AddVectorField records the entry for one .vf output file.
func (b *ManifestBuilder) AddVectorField(filename string, e VectorFieldEntry) *ManifestBuilder {
	if b.vec == nil {
		b.vec = make(map[string]VectorFieldEntry)
	}
	b.vec[filename] = e
	return b
}

// Build stamps the generation time and returns the finished manifest.
func (b *ManifestBuilder) Build() Manifest {
	return Manifest{
		FileGenerated: FormatRunTime(clock.Now()),
		Radar:         b.radar,
		Isosurface:    b.iso,
		VectorField:   b.vec,
	}
}
