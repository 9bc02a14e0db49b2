package domain

import "errors"

// Fatal error categories for an export run. Call sites wrap these with
// fmt.Errorf("...: %w", ...) context so errors.Is keeps working across the
// pipeline boundary.
var (
	// ErrUnrecognizedArchiveFormat marks a catalog entry whose suffix matches
	// no known naming era. Fatal for the whole catalog: it signals that the
	// naming-convention model is stale, not that one file is bad.
	ErrUnrecognizedArchiveFormat = errors.New("unrecognized archive format")

	// ErrArchiveNameParse marks an entry that matched a known era but whose
	// embedded timestamp does not parse against that era's pattern.
	ErrArchiveNameParse = errors.New("archive name parse failure")

	// ErrEmptyCatalog is returned when resolution finds no timestamped entry.
	ErrEmptyCatalog = errors.New("catalog has no timestamped entries")

	// ErrGridSpec covers invalid grid extents or resolutions.
	ErrGridSpec = errors.New("invalid grid spec")

	// ErrShapeMismatch is returned when volumes that must share a shape do not.
	ErrShapeMismatch = errors.New("volume shape mismatch")

	// ErrUnsupportedDType is returned for component data in a sample format
	// that cannot be converted to float32.
	ErrUnsupportedDType = errors.New("unsupported sample dtype")

	// ErrVolumeTooLarge is returned when a post-transpose axis extent does not
	// fit the .vf header's unsigned 16-bit dimension fields.
	ErrVolumeTooLarge = errors.New("volume axis exceeds 65535 points")

	// ErrUnknownSite is returned when a radar site id is not in the site table.
	ErrUnknownSite = errors.New("unknown radar site id")
)
