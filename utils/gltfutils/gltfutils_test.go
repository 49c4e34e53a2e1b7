package gltfutils

import (
	"bytes"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/qmuntal/gltf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mogaika/hello_stage/stage"
	"github.com/mogaika/hello_stage/xform"
)

func TestTriangulate(t *testing.T) {
	var tests = []struct {
		counts, indices []int
		want            []uint32
	}{
		{[]int{4}, []int{0, 1, 2, 3}, []uint32{0, 1, 2, 0, 2, 3}},
		{[]int{3, 3}, []int{0, 1, 2, 1, 3, 2}, []uint32{0, 1, 2, 1, 3, 2}},
		{nil, []int{5, 6, 7}, []uint32{5, 6, 7}},
		{[]int{5}, []int{0, 1, 2, 3, 4}, []uint32{0, 1, 2, 0, 2, 3, 0, 3, 4}},
	}
	for _, test := range tests {
		got, err := Triangulate(test.counts, test.indices)
		require.NoError(t, err)
		assert.Equal(t, test.want, got)
	}

	_, err := Triangulate([]int{2}, []int{0, 1})
	assert.Error(t, err)
	_, err = Triangulate([]int{4}, []int{0, 1, 2})
	assert.Error(t, err)
}

func testStage(t *testing.T) *stage.Stage {
	s := stage.New()
	require.NoError(t, s.DefinePrim("/Root", "Xform"))
	require.NoError(t, s.DefinePrim("/Root/quad", "Mesh"))
	require.NoError(t, s.Set("/Root/quad", "points", "point3f[]",
		[]mgl64.Vec3{{-5, 0, -5}, {-5, 0, 5}, {5, 0, 5}, {5, 0, -5}}, xform.DefaultTime()))
	require.NoError(t, s.Set("/Root/quad", "faceVertexCounts", "int[]", []int{4}, xform.DefaultTime()))
	require.NoError(t, s.Set("/Root/quad", "faceVertexIndices", "int[]", []int{0, 1, 2, 3}, xform.DefaultTime()))
	require.NoError(t, s.Set("/Root/quad", "normals", "normal3f[]",
		[]mgl64.Vec3{{0, 1, 0}, {0, 1, 0}, {0, 1, 0}, {0, 1, 0}}, xform.DefaultTime()))

	require.NoError(t, s.DefinePrim("/Root/cube", "Cube"))
	require.NoError(t, s.Set("/Root/cube", "size", "double", 100.0, xform.DefaultTime()))
	translate := xform.Op{Type: xform.OpTranslate}
	require.NoError(t, s.CreateOp("/Root/cube", translate))
	require.NoError(t, s.SetOpValue("/Root/cube", translate, mgl64.Vec3{65, 300, 65}, xform.DefaultTime()))
	return s
}

func TestStageDocument(t *testing.T) {
	s := testStage(t)
	s.SetMetersPerUnit(1)

	doc, err := StageDocument(s, xform.DefaultTime())
	require.NoError(t, err)

	require.Len(t, doc.Nodes, 3)
	assert.Equal(t, []uint32{0}, doc.Scenes[0].Nodes)
	assert.Equal(t, "Root", doc.Nodes[0].Name)
	assert.Equal(t, []uint32{1, 2}, doc.Nodes[0].Children)
	assert.Len(t, doc.Meshes, 2)

	quad := doc.Meshes[*doc.Nodes[1].Mesh].Primitives[0]
	assert.Equal(t, uint32(6), doc.Accessors[*quad.Indices].Count)
	assert.Contains(t, quad.Attributes, "NORMAL")
	assert.NotContains(t, quad.Attributes, "TEXCOORD_0")

	cube := doc.Nodes[2]
	assert.Equal(t, "cube", cube.Name)
	assert.Equal(t, [3]float32{65, 300, 65}, [3]float32{cube.Matrix[12], cube.Matrix[13], cube.Matrix[14]})
	cubePrim := doc.Meshes[*cube.Mesh].Primitives[0]
	assert.Equal(t, uint32(36), doc.Accessors[*cubePrim.Indices].Count)
	assert.Equal(t, []float32{50, 50, 50}, doc.Accessors[cubePrim.Attributes["POSITION"]].Max)
}

func TestStageUnits(t *testing.T) {
	s := testStage(t)
	require.NoError(t, s.SetUpAxis(stage.UpAxisZ))

	doc, err := StageDocument(s, xform.DefaultTime())
	require.NoError(t, err)
	require.Len(t, doc.Nodes, 4)
	assert.Equal(t, StageRootName, doc.Nodes[0].Name)
	assert.Equal(t, []uint32{1}, doc.Nodes[0].Children)
	assert.InDelta(t, 0.01, doc.Nodes[0].Matrix[0], 1e-7)
}

func TestExportStageBinary(t *testing.T) {
	s := testStage(t)

	var buf bytes.Buffer
	require.NoError(t, ExportStage(&buf, s, xform.DefaultTime()))
	assert.Equal(t, "glTF", buf.String()[:4])

	var doc gltf.Document
	require.NoError(t, gltf.NewDecoder(bytes.NewReader(buf.Bytes())).Decode(&doc))
	assert.Len(t, doc.Meshes, 2)
	assert.Len(t, doc.Nodes, 4)
}
