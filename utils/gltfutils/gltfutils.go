package gltfutils

import (
	"io"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"

	"github.com/mogaika/hello_stage/stage"
	"github.com/mogaika/hello_stage/xform"
)

// StageRootName is the name of the node converting stage units and up axis
// to glTF meters and Y up. It is only added when a conversion is needed.
const StageRootName = "__stage"

func NewDocument() *gltf.Document {
	return gltf.NewDocument()
}

func ExportBinary(w io.Writer, doc *gltf.Document) error {
	encoder := gltf.NewEncoder(w)
	encoder.AsBinary = true
	return encoder.Encode(doc)
}

// ExportStage writes the stage at time t as a binary glTF.
func ExportStage(w io.Writer, s *stage.Stage, t xform.TimeCode) error {
	doc, err := StageDocument(s, t)
	if err != nil {
		return err
	}
	return ExportBinary(w, doc)
}

func toFloat32Matrix(m mgl64.Mat4) [16]float32 {
	var r [16]float32
	for i := range m {
		r[i] = float32(m[i])
	}
	return r
}

func stageMatrix(s *stage.Stage) mgl64.Mat4 {
	m := mgl64.Ident4()
	if mpu := s.MetersPerUnit(); mpu > 0 && mpu != 1 {
		m = mgl64.Scale3D(mpu, mpu, mpu)
	}
	if s.UpAxis() == stage.UpAxisZ {
		m = m.Mul4(mgl64.HomogRotate3DX(-mgl64.DegToRad(90)))
	}
	return m
}

// StageDocument converts prims to glTF nodes keeping the hierarchy.
// Mesh and Cube prims get a mesh, prims resetting the transform stack are
// attached to the scene root.
func StageDocument(s *stage.Stage, t xform.TimeCode) (*gltf.Document, error) {
	doc := NewDocument()
	scene := doc.Scenes[0]

	var root *gltf.Node
	if m := stageMatrix(s); m != mgl64.Ident4() {
		root = &gltf.Node{Name: StageRootName, Matrix: toFloat32Matrix(m)}
		doc.Nodes = append(doc.Nodes, root)
		scene.Nodes = append(scene.Nodes, 0)
	}
	attach := func(parent *gltf.Node, index uint32) {
		if parent != nil {
			parent.Children = append(parent.Children, index)
		} else if root != nil {
			root.Children = append(root.Children, index)
		} else {
			scene.Nodes = append(scene.Nodes, index)
		}
	}

	nodes := make(map[string]*gltf.Node)
	for _, path := range s.Traverse() {
		m, reset, err := s.LocalTransform(path, t)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to evaluate transform of %q", path)
		}
		typ, err := s.PrimType(path)
		if err != nil {
			return nil, err
		}

		node := &gltf.Node{
			Name:   stage.PrimName(path),
			Matrix: toFloat32Matrix(m),
		}

		var mesh *gltf.Mesh
		switch typ {
		case "Mesh":
			mesh, err = writeMesh(doc, s, path, t)
		case "Cube":
			mesh, err = writeCube(doc, s, path, t)
		}
		if err != nil {
			return nil, errors.Wrapf(err, "failed to export mesh %q", path)
		}
		if mesh != nil {
			doc.Meshes = append(doc.Meshes, mesh)
			node.Mesh = gltf.Index(uint32(len(doc.Meshes) - 1))
		}

		index := uint32(len(doc.Nodes))
		doc.Nodes = append(doc.Nodes, node)
		nodes[path] = node
		if reset {
			attach(nil, index)
		} else {
			attach(nodes[stage.ParentPath(path)], index)
		}
	}
	return doc, nil
}

func getAttr(s *stage.Stage, path, name string, t xform.TimeCode) (interface{}, bool) {
	if !s.HasAttribute(path, name) {
		return nil, false
	}
	v, ok, err := s.Get(path, name, t)
	if err != nil || !ok {
		return nil, false
	}
	return v, true
}

func vec3s(v []mgl64.Vec3) [][3]float32 {
	out := make([][3]float32, len(v))
	for i := range v {
		out[i] = [3]float32{float32(v[i][0]), float32(v[i][1]), float32(v[i][2])}
	}
	return out
}

// Triangulate splits polygons of faceVertexCounts into triangle fans.
func Triangulate(counts, indices []int) ([]uint32, error) {
	if counts == nil {
		counts = make([]int, len(indices)/3)
		for i := range counts {
			counts[i] = 3
		}
	}
	var result []uint32
	offset := 0
	for iFace, count := range counts {
		if count < 3 {
			return nil, errors.Errorf("face %d has %d vertices", iFace, count)
		}
		if offset+count > len(indices) {
			return nil, errors.Errorf("face %d is out of %d indices", iFace, len(indices))
		}
		face := indices[offset : offset+count]
		for i := 1; i+1 < count; i++ {
			result = append(result, uint32(face[0]), uint32(face[i]), uint32(face[i+1]))
		}
		offset += count
	}
	return result, nil
}

func material(doc *gltf.Document, name string, color mgl64.Vec3, doubleSided bool) uint32 {
	doc.Materials = append(doc.Materials, &gltf.Material{
		Name:        name,
		DoubleSided: doubleSided,
		PBRMetallicRoughness: &gltf.PBRMetallicRoughness{
			BaseColorFactor: &[4]float32{float32(color[0]), float32(color[1]), float32(color[2]), 1},
		},
	})
	return uint32(len(doc.Materials) - 1)
}

func writeMesh(doc *gltf.Document, s *stage.Stage, path string, t xform.TimeCode) (*gltf.Mesh, error) {
	pointsValue, ok := getAttr(s, path, "points", t)
	if !ok {
		return nil, nil
	}
	points := pointsValue.([]mgl64.Vec3)
	indicesValue, ok := getAttr(s, path, "faceVertexIndices", t)
	if !ok {
		return nil, nil
	}
	var counts []int
	if v, ok := getAttr(s, path, "faceVertexCounts", t); ok {
		counts = v.([]int)
	}
	indices, err := Triangulate(counts, indicesValue.([]int))
	if err != nil {
		return nil, err
	}
	for _, i := range indices {
		if int(i) >= len(points) {
			return nil, errors.Errorf("index %d is out of %d points", i, len(points))
		}
	}

	attributes := map[string]uint32{
		"POSITION": modeler.WritePosition(doc, vec3s(points)),
	}
	if v, ok := getAttr(s, path, "normals", t); ok {
		if normals := v.([]mgl64.Vec3); len(normals) == len(points) {
			attributes["NORMAL"] = modeler.WriteNormal(doc, vec3s(normals))
		}
	}
	if v, ok := getAttr(s, path, "primvars:st", t); ok {
		if st := v.([]mgl64.Vec2); len(st) == len(points) {
			uvs := make([][2]float32, len(st))
			for i := range st {
				// glTF has the texture origin in the top left corner
				uvs[i] = [2]float32{float32(st[i][0]), float32(1 - st[i][1])}
			}
			attributes["TEXCOORD_0"] = modeler.WriteTextureCoord(doc, uvs)
		}
	}

	color := mgl64.Vec3{0.8, 0.8, 0.8}
	if v, ok := getAttr(s, path, "primvars:displayColor", t); ok {
		if colors := v.([]mgl64.Vec3); len(colors) > 0 {
			color = colors[0]
		}
	}
	doubleSided := false
	if v, ok := getAttr(s, path, "doubleSided", t); ok {
		doubleSided = v.(bool)
	}

	name := stage.PrimName(path)
	return &gltf.Mesh{
		Name: name,
		Primitives: []*gltf.Primitive{{
			Indices:    gltf.Index(modeler.WriteIndices(doc, indices)),
			Attributes: attributes,
			Material:   gltf.Index(material(doc, name, color, doubleSided)),
		}},
	}, nil
}

var cubeCorners = [8][3]float32{
	{-1, -1, -1}, {1, -1, -1}, {1, 1, -1}, {-1, 1, -1},
	{-1, -1, 1}, {1, -1, 1}, {1, 1, 1}, {-1, 1, 1},
}

var cubeIndices = []uint32{
	0, 2, 1, 0, 3, 2,
	4, 5, 6, 4, 6, 7,
	0, 1, 5, 0, 5, 4,
	3, 7, 6, 3, 6, 2,
	0, 4, 7, 0, 7, 3,
	1, 2, 6, 1, 6, 5,
}

func writeCube(doc *gltf.Document, s *stage.Stage, path string, t xform.TimeCode) (*gltf.Mesh, error) {
	size := 2.0
	if v, ok := getAttr(s, path, "size", t); ok {
		size = v.(float64)
	}
	half := float32(size / 2)
	positions := make([][3]float32, len(cubeCorners))
	for i, c := range cubeCorners {
		positions[i] = [3]float32{c[0] * half, c[1] * half, c[2] * half}
	}
	name := stage.PrimName(path)
	return &gltf.Mesh{
		Name: name,
		Primitives: []*gltf.Primitive{{
			Indices:    gltf.Index(modeler.WriteIndices(doc, cubeIndices)),
			Attributes: map[string]uint32{"POSITION": modeler.WritePosition(doc, positions)},
			Material:   gltf.Index(material(doc, name, mgl64.Vec3{0.8, 0.8, 0.8}, false)),
		}},
	}, nil
}
