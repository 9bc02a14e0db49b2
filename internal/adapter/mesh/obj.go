package mesh

import (
	"bufio"
	"fmt"
	"io"
)

// OBJWriter serializes meshes as Wavefront OBJ. Vertex and face indices are
// 1-based per the format; faces carry normal references only when the mesh
// has normals.
type OBJWriter struct{}

// Ext returns the output filename extension, without the dot.
func (OBJWriter) Ext() string { return "obj" }

// WriteMesh writes the mesh to w under the given object name.
func (OBJWriter) WriteMesh(w io.Writer, m *TriangleMesh, name string) error {
	if err := m.Validate(); err != nil {
		return fmt.Errorf("obj %s: %w", name, err)
	}

	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "o %s\n", name)
	for _, v := range m.Vertices {
		fmt.Fprintf(bw, "v %g %g %g\n", v[0], v[1], v[2])
	}
	withNormals := len(m.Normals) > 0
	if withNormals {
		for _, n := range m.Normals {
			fmt.Fprintf(bw, "vn %g %g %g\n", n[0], n[1], n[2])
		}
	}
	for _, f := range m.Faces {
		if withNormals {
			fmt.Fprintf(bw, "f %d//%d %d//%d %d//%d\n", f[0]+1, f[0]+1, f[1]+1, f[1]+1, f[2]+1, f[2]+1)
		} else {
			fmt.Fprintf(bw, "f %d %d %d\n", f[0]+1, f[1]+1, f[2]+1)
		}
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("obj %s: %w", name, err)
	}
	return nil
}
