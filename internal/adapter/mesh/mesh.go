// Package mesh holds the triangle mesh interchange type and the writers that
// serialize it for the viewer.
package mesh

import "fmt"

// TriangleMesh is an indexed triangle soup. Faces index into Vertices and,
// when normals are present, into Normals with the same index. Normals may be
// empty; writers omit them from the output then.
type TriangleMesh struct {
	Vertices [][3]float64
	Normals  [][3]float64
	Faces    [][3]int
}

// Empty reports whether the mesh has no triangles. An isosurface level no
// voxel reaches produces an empty mesh; the exporter still writes the file so
// the manifest and the output listing stay in lockstep.
func (m *TriangleMesh) Empty() bool {
	return len(m.Faces) == 0
}

// Validate checks that every face index is in range.
func (m *TriangleMesh) Validate() error {
	nv, nn := len(m.Vertices), len(m.Normals)
	if nn > 0 && nn != nv {
		return fmt.Errorf("mesh has %d normals for %d vertices", nn, nv)
	}
	for i, f := range m.Faces {
		for _, idx := range f {
			if idx < 0 || idx >= nv {
				return fmt.Errorf("face %d references vertex %d of %d", i, idx, nv)
			}
		}
	}
	return nil
}
