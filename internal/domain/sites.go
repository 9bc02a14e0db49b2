package domain

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	_ "embed"
)

// Site is one radar site from the static site table.
type Site struct {
	ID          string
	Latitude    float64 // decimal degrees, south negative
	Longitude   float64 // decimal degrees, west negative
	Elevation   Quantity
	TowerHeight Quantity
}

// SiteTable maps 4-character site identifiers to site metadata.
type SiteTable struct {
	sites map[string]Site
}

//go:embed sites.csv
var defaultSitesCSV []byte

var (
	defaultTableOnce sync.Once
	defaultTable     *SiteTable
)

// DefaultSiteTable returns the table embedded in the binary. The embedded
// table is a curated subset of the NWS radar site listing; deployments with
// other sites point the config at a full CSV instead.
func DefaultSiteTable() *SiteTable {
	defaultTableOnce.Do(func() {
		t, err := LoadSiteTable(bytes.NewReader(defaultSitesCSV))
		if err != nil {
			panic(fmt.Sprintf("embedded site table: %v", err))
		}
		defaultTable = t
	})
	return defaultTable
}

// LoadSiteTable parses a site CSV with columns
// id, coordinates, elevation_m, tower_height_m. Lines starting with '#' and
// a header row are both tolerated.
func LoadSiteTable(r io.Reader) (*SiteTable, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.Comment = '#'

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read site table: %w", err)
	}

	sites := make(map[string]Site, len(rows))
	for i, row := range rows {
		if len(row) < 4 {
			return nil, fmt.Errorf("site table row %d: want 4 columns, got %d", i+1, len(row))
		}
		id := strings.ToUpper(strings.TrimSpace(row[0]))
		if i == 0 && strings.EqualFold(id, "id") {
			continue
		}
		if len(id) != siteIdentifierSize {
			return nil, fmt.Errorf("site table row %d: id %q is not %d characters", i+1, id, siteIdentifierSize)
		}

		lat, lon, err := ParseSiteCoordinates(row[1])
		if err != nil {
			return nil, fmt.Errorf("site table row %d (%s): %w", i+1, id, err)
		}
		elev, err := strconv.ParseFloat(strings.TrimSpace(row[2]), 64)
		if err != nil {
			return nil, fmt.Errorf("site table row %d (%s): elevation: %w", i+1, id, err)
		}
		tower, err := strconv.ParseFloat(strings.TrimSpace(row[3]), 64)
		if err != nil {
			return nil, fmt.Errorf("site table row %d (%s): tower height: %w", i+1, id, err)
		}

		sites[id] = Site{
			ID:          id,
			Latitude:    lat,
			Longitude:   lon,
			Elevation:   Quantity{Value: elev, Unit: UnitMeter},
			TowerHeight: Quantity{Value: tower, Unit: UnitMeter},
		}
	}
	return &SiteTable{sites: sites}, nil
}

// Lookup returns the site for a 4-character id. A missing id is
// ErrUnknownSite, fatal when radar metadata was explicitly requested.
func (t *SiteTable) Lookup(id string) (Site, error) {
	s, ok := t.sites[strings.ToUpper(id)]
	if !ok {
		return Site{}, fmt.Errorf("%w: %q", ErrUnknownSite, id)
	}
	return s, nil
}

// Len returns the number of sites in the table.
func (t *SiteTable) Len() int { return len(t.sites) }

// ParseSiteCoordinates parses the site listing's coordinate string:
// degrees minutes seconds with a hemisphere suffix per component, the two
// components separated by '/', e.g. "44 50 56 N / 093 33 56 W". The
// hemisphere letter may be attached to the seconds field ("56N"). Suffix S
// negates latitude; any suffix other than E negates longitude.
func ParseSiteCoordinates(s string) (lat, lon float64, err error) {
	parts := strings.Split(s, "/")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("coordinates %q: want two '/'-separated components", s)
	}
	lat, hemi, err := parseDMS(parts[0])
	if err != nil {
		return 0, 0, fmt.Errorf("latitude: %w", err)
	}
	if hemi == "S" {
		lat = -lat
	}
	lon, hemi, err = parseDMS(parts[1])
	if err != nil {
		return 0, 0, fmt.Errorf("longitude: %w", err)
	}
	if hemi != "E" {
		lon = -lon
	}
	return lat, lon, nil
}

// parseDMS parses one "DD MM SS H" component into decimal degrees plus the
// hemisphere letter.
func parseDMS(s string) (float64, string, error) {
	fields := strings.Fields(strings.TrimSpace(s))
	if len(fields) == 0 {
		return 0, "", fmt.Errorf("empty DMS component")
	}

	var hemi string
	last := fields[len(fields)-1]
	switch {
	case len(last) == 1 && isHemisphereLetter(last[0]):
		hemi = last
		fields = fields[:len(fields)-1]
	case len(last) > 1 && isHemisphereLetter(last[len(last)-1]):
		hemi = last[len(last)-1:]
		fields[len(fields)-1] = last[:len(last)-1]
	default:
		return 0, "", fmt.Errorf("DMS component %q: missing hemisphere suffix", s)
	}

	if len(fields) != 3 {
		return 0, "", fmt.Errorf("DMS component %q: want degrees minutes seconds", s)
	}
	var dms [3]float64
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return 0, "", fmt.Errorf("DMS component %q: %w", s, err)
		}
		dms[i] = v
	}
	return dms[0] + dms[1]/60 + dms[2]/3600, hemi, nil
}

func isHemisphereLetter(b byte) bool {
	return b == 'N' || b == 'S' || b == 'E' || b == 'W'
}
