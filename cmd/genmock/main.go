// Command genmock writes a synthetic grid bundle into a spool directory so
// the exporter can be exercised end to end without the gridding
// collaborator. The bundle holds a Gaussian reflectivity blob and a rotating
// wind field on a small Cartesian grid.
//
// Usage:
//
//	go run ./cmd/genmock -spool-dir /var/lib/radar-etl/spool -site KMPX
package main

import (
	"flag"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/couchcryptid/radar-volume-etl/internal/adapter/spool"
	"github.com/couchcryptid/radar-volume-etl/internal/domain"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	spoolDir := flag.String("spool-dir", "", "spool directory to write the bundle into")
	site := flag.String("site", "KMPX", "radar site id for the bundle")
	validTime := flag.String("valid-time", "2024-03-03T00:30:12Z", "valid time of the synthetic scan, RFC 3339")
	flag.Parse()

	if *spoolDir == "" {
		flag.Usage()
		return fmt.Errorf("missing required flag: -spool-dir")
	}
	vt, err := time.Parse(time.RFC3339, *validTime)
	if err != nil {
		return fmt.Errorf("parse -valid-time: %w", err)
	}

	grid := &spool.GridConfig{
		HorizontalResolutionM: 1000,
		XStartKM:              -10, XEndKM: 10,
		YStartKM: -10, YEndKM: 10,
		ZStartKM: 0, ZEndKM: 10,
		VerticalResolutionM: 1000,
	}
	spec := grid.Spec()
	nx, ny, nz := spec.PointCounts()
	xs, ys, zs := spec.Axes()

	reflectivity := make([]float64, nx*ny*nz)
	u := make([]float64, nx*ny*nz)
	v := make([]float64, nx*ny*nz)
	w := make([]float64, nx*ny*nz)

	// Gaussian reflectivity core centered 3 km up, with a solid-body
	// rotation around it and a weak updraft inside it.
	const (
		peakDBZ  = 65.0
		coreM    = 4000.0
		spinKt   = 40.0
		upKt     = 15.0
		centerZM = 3000.0
	)
	idx := 0
	for i := 0; i < nz; i++ {
		for j := 0; j < ny; j++ {
			for k := 0; k < nx; k++ {
				x, y, z := xs[k], ys[j], zs[i]-centerZM
				r2 := (x*x + y*y + z*z) / (coreM * coreM)
				reflectivity[idx] = peakDBZ * math.Exp(-r2)

				u[idx] = -spinKt * y / coreM * math.Exp(-r2/2)
				v[idx] = spinKt * x / coreM * math.Exp(-r2/2)
				w[idx] = upKt * math.Exp(-r2)
				idx++
			}
		}
	}

	name := fmt.Sprintf("%s-%s", *site, vt.Format("20060102-150405"))
	bundle := &spool.Bundle{
		SiteID:    *site,
		ValidTime: vt,
		Shape:     [3]int{nz, ny, nx},
		Grid:      grid,
		Scalar: &spool.ScalarConfig{
			Variable: "reflectivity",
			Units:    "dBZ",
			File:     "reflectivity.f32",
			DType:    "float32",
		},
		Vector: &spool.VectorConfig{
			Name:  "wind",
			Units: domain.UnitKnot.String(),
			UFile: "u.f32",
			VFile: "v.f32",
			WFile: "w.f32",
			DType: "float32",
		},
	}

	path, err := spool.WriteBundle(*spoolDir, name, bundle, map[string][]float64{
		"reflectivity.f32": reflectivity,
		"u.f32":            u,
		"v.f32":            v,
		"w.f32":            w,
	})
	if err != nil {
		return err
	}

	log.Printf("bundle written: %s (%dx%dx%d, %d samples per component)", path, nx, ny, nz, nx*ny*nz)
	return nil
}
