package domain

import (
	"fmt"
	"strings"
	"time"
)

// EntryKind classifies an archive object name by naming era.
type EntryKind int

const (
	KindUnknown EntryKind = iota
	KindModern            // {site}%Y%m%d_%H%M%S_V06
	KindLegacyGzipV03     // {site}%Y%m%d_%H%M%S_V03.gz
	KindLegacyGzipV06     // {site}%Y%m%d_%H%M%S_V06.gz
	KindLegacyGzip        // {site}%Y%m%d_%H%M%S.gz, no version tag
	KindSkip              // tar/MDM sidecar, never a selection candidate
)

func (k EntryKind) String() string {
	switch k {
	case KindModern:
		return "modern"
	case KindLegacyGzipV03:
		return "legacy-gzip-v03"
	case KindLegacyGzipV06:
		return "legacy-gzip-v06"
	case KindLegacyGzip:
		return "legacy-gzip"
	case KindSkip:
		return "skip"
	default:
		return "unknown"
	}
}

// ArchiveEntry is one classified object name from a day bucket listing.
// Timestamp is the zero time for Skip and Unknown entries.
type ArchiveEntry struct {
	RawName   string
	Kind      EntryKind
	Timestamp time.Time
}

// HasTimestamp reports whether the entry is a selection candidate.
func (e ArchiveEntry) HasTimestamp() bool {
	return !e.Timestamp.IsZero()
}

// Every era embeds the scan time as a fixed-width %Y%m%d_%H%M%S block
// between the site prefix and an era-specific trailer. The trailer is
// stripped before parsing: its digits ("V03", "V06") would otherwise be
// eaten as date elements by a time layout.
const (
	timestampLayout    = "20060102_150405"
	siteIdentifierSize = 4
)

var eraTrailers = map[EntryKind]string{
	KindModern:        "_V06",
	KindLegacyGzipV03: "_V03.gz",
	KindLegacyGzipV06: "_V06.gz",
	KindLegacyGzip:    ".gz",
}

// Classify maps one object name to an ArchiveEntry. rawName may carry a
// bucket path; classification looks at the final path segment only. Suffix
// rules are applied in priority order: sidecars first, then the gzip eras
// (sub-suffix V03/V06 before the untagged fallback), then modern V06.
// A suffix outside the model is ErrUnrecognizedArchiveFormat; a matched era
// whose timestamp does not parse is ErrArchiveNameParse. Both are fatal.
func Classify(rawName, siteID string) (ArchiveEntry, error) {
	base := rawName
	if i := strings.LastIndex(base, "/"); i >= 0 {
		base = base[i+1:]
	}
	if len(base) < 3 {
		return ArchiveEntry{RawName: rawName, Kind: KindUnknown},
			fmt.Errorf("%w: %q", ErrUnrecognizedArchiveFormat, rawName)
	}

	suffix := base[len(base)-3:]
	switch {
	case suffix == "MDM" || suffix == "tar":
		return ArchiveEntry{RawName: rawName, Kind: KindSkip}, nil

	case suffix == ".gz":
		kind := KindLegacyGzip
		if len(base) >= 6 {
			switch base[len(base)-6 : len(base)-3] {
			case "V03":
				kind = KindLegacyGzipV03
			case "V06":
				kind = KindLegacyGzipV06
			}
		}
		return parseTimestamped(rawName, base, siteID, kind)

	case suffix == "V06":
		return parseTimestamped(rawName, base, siteID, KindModern)

	default:
		return ArchiveEntry{RawName: rawName, Kind: KindUnknown},
			fmt.Errorf("%w: %q", ErrUnrecognizedArchiveFormat, rawName)
	}
}

func parseTimestamped(rawName, base, siteID string, kind EntryKind) (ArchiveEntry, error) {
	prefix := strings.ToUpper(siteID)
	trailer := eraTrailers[kind]
	unknown := ArchiveEntry{RawName: rawName, Kind: KindUnknown}

	if len(prefix) != siteIdentifierSize || !strings.HasPrefix(base, prefix) {
		return unknown, fmt.Errorf("%w: %q does not start with site id %q", ErrArchiveNameParse, base, prefix)
	}
	stamp := base[siteIdentifierSize:]
	if !strings.HasSuffix(stamp, trailer) {
		return unknown, fmt.Errorf("%w: %q does not match the %s pattern", ErrArchiveNameParse, base, kind)
	}
	stamp = strings.TrimSuffix(stamp, trailer)

	ts, err := time.ParseInLocation(timestampLayout, stamp, time.UTC)
	if err != nil {
		return unknown, fmt.Errorf("%w: %q against the %s pattern: %v", ErrArchiveNameParse, base, kind, err)
	}
	return ArchiveEntry{RawName: rawName, Kind: kind, Timestamp: ts}, nil
}

// Catalog is the classified, order-preserving listing of one or more day
// buckets. Skip entries stay in place: the resolver's previous-entry step
// relies on contiguous positions.
type Catalog struct {
	entries []ArchiveEntry
}

// NewCatalog classifies every name in listing order. The first
// classification failure aborts the whole catalog.
func NewCatalog(names []string, siteID string) (*Catalog, error) {
	entries := make([]ArchiveEntry, 0, len(names))
	for _, name := range names {
		e, err := Classify(name, siteID)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return &Catalog{entries: entries}, nil
}

// Entries returns the classified entries in listing order.
func (c *Catalog) Entries() []ArchiveEntry {
	return c.entries
}

// Len returns the number of entries, sidecars included.
func (c *Catalog) Len() int { return len(c.entries) }
