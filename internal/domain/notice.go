package domain

import "time"

// ExportNotice describes one finished export run for downstream consumers.
type ExportNotice struct {
	SiteID      string    `json:"site_id,omitempty"`
	ValidTime   time.Time `json:"valid_time"`
	OutputDir   string    `json:"output_dir"`
	Manifest    string    `json:"manifest"`
	Files       []string  `json:"files"`
	GeneratedAt time.Time `json:"generated_at"`
}
