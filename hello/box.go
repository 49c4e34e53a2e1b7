package hello

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"

	"github.com/mogaika/hello_stage/xform"
)

const boxHalfSize = 50.0

var (
	boxVertexIndices = []int{
		0, 1, 2, 1, 3, 2,
		4, 5, 6, 4, 6, 7,
		8, 9, 10, 8, 10, 11,
		12, 13, 14, 12, 14, 15,
		16, 17, 18, 16, 18, 19,
		20, 21, 22, 20, 22, 23,
	}
	boxNormals = []mgl64.Vec3{
		{0, 0, -1}, {0, 0, -1}, {0, 0, -1}, {0, 0, -1},
		{0, 0, 1}, {0, 0, 1}, {0, 0, 1}, {0, 0, 1},
		{0, -1, 0}, {0, -1, 0}, {0, -1, 0}, {0, -1, 0},
		{1, 0, 0}, {1, 0, 0}, {1, 0, 0}, {1, 0, 0},
		{0, 1, 0}, {0, 1, 0}, {0, 1, 0}, {0, 1, 0},
		{-1, 0, 0}, {-1, 0, 0}, {-1, 0, 0}, {-1, 0, 0},
	}
	boxUVs = []mgl64.Vec2{
		{0, 0}, {0, 1}, {1, 1}, {1, 0},
		{0, 0}, {0, 1}, {1, 1}, {1, 0},
		{0, 0}, {0, 1}, {1, 1}, {1, 0},
		{0, 0}, {0, 1}, {1, 1}, {1, 0},
		{0, 0}, {0, 1}, {1, 1}, {1, 0},
		{0, 0}, {0, 1}, {1, 1}, {1, 0},
	}
	boxColor = mgl64.Vec3{0.463, 0.725, 0.0}
)

func boxPoints(h float64) []mgl64.Vec3 {
	return []mgl64.Vec3{
		{h, -h, -h}, {-h, -h, -h}, {h, h, -h}, {-h, h, -h},
		{h, h, h}, {-h, h, h}, {-h, -h, h}, {h, -h, h},
		{h, -h, h}, {-h, -h, h}, {-h, -h, -h}, {h, -h, -h},
		{h, h, h}, {h, -h, h}, {h, -h, -h}, {h, h, -h},
		{-h, h, h}, {h, h, h}, {h, h, -h}, {-h, h, -h},
		{-h, -h, h}, {-h, h, h}, {-h, h, -h}, {-h, -h, -h},
	}
}

func boxVertexCounts() []int {
	counts := make([]int, len(boxVertexIndices)/3)
	for i := range counts {
		counts[i] = 3
	}
	return counts
}

// BoxSRT is the initial transform of created boxes.
var BoxSRT = xform.SRT{
	Translation: mgl64.Vec3{0, 100, 0},
	Rotation:    mgl64.Vec3{20, 0, 20},
	Scale:       mgl64.Vec3{1, 1, 1},
}

// CreateBox defines the textured box mesh /Root/box_<number>, places it
// with the transform composer and makes it a dynamic rigid body.
func (b *Builder) CreateBox(number int) (string, error) {
	s := b.Stage
	path := fmt.Sprintf("%s/box_%d", RootPath, number)
	if err := s.DefinePrim(path, "Mesh"); err != nil {
		return "", errors.Wrapf(err, "failure to create box")
	}

	t := xform.DefaultTime()
	attrs := []struct {
		name, typeName string
		value          interface{}
	}{
		{"primvars:displayColor", "color3f[]", []mgl64.Vec3{boxColor}},
		{"points", "point3f[]", boxPoints(boxHalfSize)},
		{"normals", "normal3f[]", boxNormals},
		{"faceVertexCounts", "int[]", boxVertexCounts()},
		{"faceVertexIndices", "int[]", boxVertexIndices},
		{"primvars:st", "texCoord2f[]", boxUVs},
	}
	for _, a := range attrs {
		if err := s.Set(path, a.name, a.typeName, a.value, t); err != nil {
			return "", err
		}
	}
	if err := s.SetInterpolation(path, "primvars:st", "vertex"); err != nil {
		return "", err
	}

	c, err := xform.NewComposer(s, path, b.Log)
	if err != nil {
		return "", err
	}
	if err := c.Do(BoxSRT.Request(t)); err != nil {
		return "", errors.Wrapf(err, "failed to place %q", path)
	}

	if err := b.EnablePhysics(path, true); err != nil {
		return "", err
	}
	return path, b.save()
}
