package mesh

import (
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

// ColladaWriter serializes meshes as COLLADA 1.4.1 documents with a single
// geometry node instanced into one visual scene. Y is up, matching the
// viewer's convention.
type ColladaWriter struct{}

func (ColladaWriter) Ext() string { return "dae" }

type colladaDoc struct {
	XMLName xml.Name       `xml:"COLLADA"`
	XMLNS   string         `xml:"xmlns,attr"`
	Version string         `xml:"version,attr"`
	Asset   colladaAsset   `xml:"asset"`
	Geoms   colladaGeoms   `xml:"library_geometries"`
	Scenes  colladaScenes  `xml:"library_visual_scenes"`
	Scene   colladaSceneIn `xml:"scene"`
}

type colladaAsset struct {
	UpAxis string `xml:"up_axis"`
}

type colladaGeoms struct {
	Geometry colladaGeometry `xml:"geometry"`
}

type colladaGeometry struct {
	ID   string      `xml:"id,attr"`
	Name string      `xml:"name,attr"`
	Mesh colladaMesh `xml:"mesh"`
}

type colladaMesh struct {
	Sources   []colladaSource  `xml:"source"`
	Verts     colladaVertices  `xml:"vertices"`
	Triangles colladaTriangles `xml:"triangles"`
}

type colladaSource struct {
	ID        string           `xml:"id,attr"`
	Array     colladaArray     `xml:"float_array"`
	Technique colladaTechnique `xml:"technique_common"`
}

type colladaArray struct {
	ID    string `xml:"id,attr"`
	Count int    `xml:"count,attr"`
	Data  string `xml:",chardata"`
}

type colladaTechnique struct {
	Accessor colladaAccessor `xml:"accessor"`
}

type colladaAccessor struct {
	Source string         `xml:"source,attr"`
	Count  int            `xml:"count,attr"`
	Stride int            `xml:"stride,attr"`
	Params []colladaParam `xml:"param"`
}

type colladaParam struct {
	Name string `xml:"name,attr"`
	Type string `xml:"type,attr"`
}

type colladaVertices struct {
	ID    string         `xml:"id,attr"`
	Input []colladaInput `xml:"input"`
}

type colladaInput struct {
	Semantic string `xml:"semantic,attr"`
	Source   string `xml:"source,attr"`
	Offset   *int   `xml:"offset,attr,omitempty"`
}

type colladaTriangles struct {
	Count  int            `xml:"count,attr"`
	Inputs []colladaInput `xml:"input"`
	P      string         `xml:"p"`
}

type colladaScenes struct {
	Scene colladaVisualScene `xml:"visual_scene"`
}

type colladaVisualScene struct {
	ID    string      `xml:"id,attr"`
	Nodes colladaNode `xml:"node"`
}

type colladaNode struct {
	ID       string                  `xml:"id,attr"`
	Name     string                  `xml:"name,attr"`
	Instance colladaInstanceGeometry `xml:"instance_geometry"`
}

type colladaInstanceGeometry struct {
	URL string `xml:"url,attr"`
}

type colladaSceneIn struct {
	Instance colladaInstanceScene `xml:"instance_visual_scene"`
}

type colladaInstanceScene struct {
	URL string `xml:"url,attr"`
}

// WriteMesh writes the mesh to w as a standalone COLLADA document. The name
// becomes both the geometry id and the scene node name.
func (ColladaWriter) WriteMesh(w io.Writer, m *TriangleMesh, name string) error {
	if err := m.Validate(); err != nil {
		return fmt.Errorf("collada %s: %w", name, err)
	}

	xyzParams := []colladaParam{
		{Name: "X", Type: "float"},
		{Name: "Y", Type: "float"},
		{Name: "Z", Type: "float"},
	}
	posID := name + "-positions"
	sources := []colladaSource{{
		ID:    posID,
		Array: colladaArray{ID: posID + "-array", Count: 3 * len(m.Vertices), Data: joinTriples(m.Vertices)},
		Technique: colladaTechnique{Accessor: colladaAccessor{
			Source: "#" + posID + "-array",
			Count:  len(m.Vertices),
			Stride: 3,
			Params: xyzParams,
		}},
	}}

	withNormals := len(m.Normals) > 0
	normID := name + "-normals"
	if withNormals {
		sources = append(sources, colladaSource{
			ID:    normID,
			Array: colladaArray{ID: normID + "-array", Count: 3 * len(m.Normals), Data: joinTriples(m.Normals)},
			Technique: colladaTechnique{Accessor: colladaAccessor{
				Source: "#" + normID + "-array",
				Count:  len(m.Normals),
				Stride: 3,
				Params: xyzParams,
			}},
		})
	}

	vertID := name + "-vertices"
	zero, one := 0, 1
	triInputs := []colladaInput{{Semantic: "VERTEX", Source: "#" + vertID, Offset: &zero}}
	if withNormals {
		triInputs = append(triInputs, colladaInput{Semantic: "NORMAL", Source: "#" + normID, Offset: &one})
	}

	doc := colladaDoc{
		XMLNS:   "http://www.collada.org/2005/11/COLLADASchema",
		Version: "1.4.1",
		Asset:   colladaAsset{UpAxis: "Y_UP"},
		Geoms: colladaGeoms{Geometry: colladaGeometry{
			ID:   name,
			Name: name,
			Mesh: colladaMesh{
				Sources: sources,
				Verts: colladaVertices{
					ID:    vertID,
					Input: []colladaInput{{Semantic: "POSITION", Source: "#" + posID}},
				},
				Triangles: colladaTriangles{
					Count:  len(m.Faces),
					Inputs: triInputs,
					P:      joinFaces(m.Faces, withNormals),
				},
			},
		}},
		Scenes: colladaScenes{Scene: colladaVisualScene{
			ID: "scene",
			Nodes: colladaNode{
				ID:       name + "-node",
				Name:     name,
				Instance: colladaInstanceGeometry{URL: "#" + name},
			},
		}},
		Scene: colladaSceneIn{Instance: colladaInstanceScene{URL: "#scene"}},
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return fmt.Errorf("collada %s: %w", name, err)
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("collada %s: %w", name, err)
	}
	return nil
}

func joinTriples(vals [][3]float64) string {
	var sb strings.Builder
	for i, v := range vals {
		if i > 0 {
			sb.WriteByte(' ')
		}
		fmt.Fprintf(&sb, "%g %g %g", v[0], v[1], v[2])
	}
	return sb.String()
}

// joinFaces interleaves vertex and normal indices when normals are present,
// matching the two triangle inputs at offsets 0 and 1.
func joinFaces(faces [][3]int, withNormals bool) string {
	var sb strings.Builder
	for i, f := range faces {
		if i > 0 {
			sb.WriteByte(' ')
		}
		for j, idx := range f {
			if j > 0 {
				sb.WriteByte(' ')
			}
			if withNormals {
				fmt.Fprintf(&sb, "%d %d", idx, idx)
			} else {
				fmt.Fprintf(&sb, "%d", idx)
			}
		}
	}
	return sb.String()
}
