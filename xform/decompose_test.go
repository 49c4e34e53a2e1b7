package xform

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
)

func TestDecomposeDefaults(t *testing.T) {
	assert.Equal(t, DefaultSRT(), Decompose(nil, nil))

	defaults := SRT{
		Translation: mgl64.Vec3{1, 1, 1},
		Rotation:    mgl64.Vec3{0, 90, 0},
		Scale:       mgl64.Vec3{5, 5, 5},
	}
	got := Decompose([]OpValue{{Op{Type: OpTranslate}, mgl64.Vec3{1, 2, 3}}}, &defaults)
	assert.Equal(t, mgl64.Vec3{2, 3, 4}, got.Translation)
	assert.Equal(t, mgl64.Vec3{0, 90, 0}, got.Rotation)
	assert.Equal(t, mgl64.Vec3{5, 5, 5}, got.Scale)

	// a found scale replaces the default instead of adding to it
	got = Decompose([]OpValue{{Op{Type: OpScale}, mgl64.Vec3{2, 2, 2}}}, &defaults)
	assert.Equal(t, mgl64.Vec3{2, 2, 2}, got.Scale)
}

func TestDecomposeSumsContributions(t *testing.T) {
	ops := []OpValue{
		{Op{Type: OpTranslate}, mgl64.Vec3{10, 0, 0}},
		{Op{Type: OpRotateZ}, 30.0},
		{Op{Type: OpRotateY}, 20.0},
		{Op{Type: OpRotateX}, 10.0},
		{Op{Type: OpScale}, mgl64.Vec3{2, 2, 2}},
		{Op{Type: OpTranslate, Suffix: "pivot"}, mgl64.Vec3{1, 1, 1}},
		{Op{Type: OpRotateX, Suffix: "unset"}, nil},
	}
	got := Decompose(ops, nil)
	assert.Equal(t, mgl64.Vec3{11, 1, 1}, got.Translation)
	assert.Equal(t, mgl64.Vec3{10, 20, 30}, got.Rotation)
	assert.Equal(t, mgl64.Vec3{2, 2, 2}, got.Scale)
}

func TestDecomposeReadsCompositeAsXYZ(t *testing.T) {
	for _, typ := range []OpType{OpRotateXYZ, OpRotateZYX, OpRotateYXZ} {
		got := Decompose([]OpValue{{Op{Type: typ}, mgl64.Vec3{10, 20, 30}}}, nil)
		assert.Equal(t, mgl64.Vec3{10, 20, 30}, got.Rotation, "%v", typ)
	}
}

func TestDecomposeOrient(t *testing.T) {
	q := EulerToQuat(mgl64.Vec3{-15, 40, 100}, OrderXYZ)
	got := Decompose([]OpValue{{Op{Type: OpOrient}, q}}, nil)
	assertNear(t, mgl64.Vec3{-15, 40, 100}, got.Rotation, 1e-9, "%v", got.Rotation)
}

func TestDecomposeTransform(t *testing.T) {
	m := ComposeMatrix(mgl64.Vec3{1, 2, 3}, mgl64.Vec3{10, 20, 30}, OrderXYZ, mgl64.Vec3{-1, 2, 3})
	got := Decompose([]OpValue{
		{Op{Type: OpTransform}, m},
		{Op{Type: OpTranslate, Suffix: "pivot"}, mgl64.Vec3{1, 0, 0}},
	}, nil)
	assertNear(t, mgl64.Vec3{2, 2, 3}, got.Translation, 1e-9, "%v", got.Translation)
	assertNear(t, mgl64.Vec3{-1, 2, 3}, got.Scale, 1e-9, "%v", got.Scale)
	assertNear(t, mgl64.Vec3{10, 20, 30}, got.Rotation, 1e-9, "%v", got.Rotation)
}

func TestDecomposeIgnoresMismatchedValues(t *testing.T) {
	got := Decompose([]OpValue{
		{Op{Type: OpTranslate}, mgl64.Ident4()},
		{Op{Type: OpScale}, 3.0},
		{Op{Type: OpTransform}, mgl64.Vec3{1, 2, 3}},
	}, nil)
	assert.Equal(t, DefaultSRT(), got)
}
