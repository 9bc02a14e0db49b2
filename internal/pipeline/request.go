package pipeline

import (
	"fmt"
	"time"

	"github.com/couchcryptid/radar-volume-etl/internal/domain"
)

// IsosurfaceSpec describes the isosurface stage of one export run.
type IsosurfaceSpec struct {
	Volume   *domain.Volume
	Variable string
	Units    string
	Levels   []float64
	Smooth   bool
}

// VectorFieldSpec describes the vector stage. V and W may be nil; a scalar
// field exports as the degenerate single-component case with just U set.
type VectorFieldSpec struct {
	U, V, W   *domain.Volume
	Name      string
	Units     string
	Normalize bool
}

// ExportRequest is the immutable input to one export run. Build it with
// RequestBuilder; a constructed request has already passed shape validation.
type ExportRequest struct {
	coords    domain.CoordinateVolumes
	validTime time.Time
	siteID    string
	iso       *IsosurfaceSpec
	vector    *VectorFieldSpec
	warnings  []string
}

func (r *ExportRequest) Coordinates() domain.CoordinateVolumes { return r.coords }
func (r *ExportRequest) ValidTime() time.Time                  { return r.validTime }
func (r *ExportRequest) SiteID() string                        { return r.siteID }
func (r *ExportRequest) Isosurface() *IsosurfaceSpec           { return r.iso }
func (r *ExportRequest) VectorField() *VectorFieldSpec         { return r.vector }

// Warnings returns advisory conditions attached at build time, typically
// grid soft-bound violations.
func (r *ExportRequest) Warnings() []string { return r.warnings }

// RequestBuilder accumulates the parts of an export request and validates
// them as a whole at Build time.
type RequestBuilder struct {
	coords    domain.CoordinateVolumes
	validTime time.Time
	siteID    string
	iso       *IsosurfaceSpec
	vector    *VectorFieldSpec
	warnings  []string
}

// NewRequestBuilder starts a request over the given coordinate volumes. The
// valid time stamps every manifest entry of the run.
func NewRequestBuilder(coords domain.CoordinateVolumes, validTime time.Time) *RequestBuilder {
	return &RequestBuilder{coords: coords, validTime: validTime}
}

// WithSite requests radar metadata for the given site id.
func (b *RequestBuilder) WithSite(id string) *RequestBuilder {
	b.siteID = id
	return b
}

// WithIsosurface adds the isosurface stage.
func (b *RequestBuilder) WithIsosurface(spec IsosurfaceSpec) *RequestBuilder {
	b.iso = &spec
	return b
}

// WithVectorField adds the vector stage.
func (b *RequestBuilder) WithVectorField(spec VectorFieldSpec) *RequestBuilder {
	b.vector = &spec
	return b
}

// WithWarnings attaches advisory conditions to surface during the run.
func (b *RequestBuilder) WithWarnings(warnings ...string) *RequestBuilder {
	b.warnings = append(b.warnings, warnings...)
	return b
}

// Build validates the assembled request: a valid time, at least one stage,
// complete stage specs, and shape agreement of every payload volume with the
// coordinate volumes.
func (b *RequestBuilder) Build() (*ExportRequest, error) {
	if b.validTime.IsZero() {
		return nil, fmt.Errorf("export request has no valid time")
	}
	if b.iso == nil && b.vector == nil {
		return nil, fmt.Errorf("export request has no stages")
	}

	shapeRef := &domain.Volume{Shape: b.coords.Shape()}

	if iso := b.iso; iso != nil {
		if iso.Volume == nil {
			return nil, fmt.Errorf("isosurface stage has no volume")
		}
		if iso.Variable == "" {
			return nil, fmt.Errorf("isosurface stage has no variable name")
		}
		if len(iso.Levels) == 0 {
			return nil, fmt.Errorf("isosurface stage has no levels")
		}
		if !domain.SameShape(shapeRef, iso.Volume) {
			return nil, fmt.Errorf("%w: isosurface volume %v against grid %v",
				domain.ErrShapeMismatch, iso.Volume.Shape, b.coords.Shape())
		}
	}

	if vec := b.vector; vec != nil {
		if vec.U == nil {
			return nil, fmt.Errorf("vector stage has no u component")
		}
		if vec.Name == "" {
			return nil, fmt.Errorf("vector stage has no base name")
		}
		if !domain.SameShape(shapeRef, vec.U, vec.V, vec.W) {
			return nil, fmt.Errorf("%w: vector components against grid %v",
				domain.ErrShapeMismatch, b.coords.Shape())
		}
	}

	return &ExportRequest{
		coords:    b.coords,
		validTime: b.validTime,
		siteID:    b.siteID,
		iso:       b.iso,
		vector:    b.vector,
		warnings:  b.warnings,
	}, nil
}
