// Package domain models the export of gridded radar volumes into assets for
// the 3-D viewer: archive entry selection, the canonical coordinate grid, and
// the metadata manifest that accompanies every export run.
//
// # Archive Naming Eras
//
// NEXRAD Level-II object names embed the scan time, but the convention has
// shifted over the archive's lifetime. All names start with the 4-character
// site identifier (e.g. KMPX):
//
//	KMPX20240303_003012_V06       modern uncompressed volume
//	KMPX20100303_003012_V06.gz    legacy gzip, V06 message format
//	KMPX20040303_003012_V03.gz    legacy gzip, V03 message format
//	KMPX19990303_003012.gz        oldest gzip era, no version tag
//
// Day buckets also contain non-data sidecars (suffix "tar" or "MDM") that are
// classified as Skip: they carry no timestamp and are never selection
// candidates, but they keep their position in the catalog because the
// nearest-file scan does index arithmetic on the ordered listing. Any other
// suffix is a fatal classification error — an unknown suffix means the naming
// model above is stale and must not be guessed around.
//
// # Axis Conventions
//
// Gridded volumes and the coordinate volumes built from a [GridSpec] use
// (z, y, x) index order: axis 0 is vertical, axis 1 is northward, axis 2 is
// eastward. The viewer swaps the roles of y and z (its vertical axis is y,
// its depth axis is z), so every volume and coordinate array is passed
// through [ToViewerAxes] — a single transposition of axes 1 and 2 — exactly
// once, immediately before serialization. Bounding metadata is computed in
// the internal order, from world coordinates.
//
// # Units
//
// Coordinates and variables carry an explicit [Unit] tag rather than relying
// on dynamic inspection. Meters and seconds are the canonical internal units;
// grid extents are accepted in kilometers only at the construction boundary
// ([GridSpecFromKilometers]) and converted immediately. A grid whose x
// coordinate is tagged degree is a lat/lon grid ("latlon" in the manifest);
// anything else is "cartesian".
package domain
