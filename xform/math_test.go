package xform

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var allOrders = []RotationOrder{
	{0, 1, 2}, {0, 2, 1}, {1, 0, 2}, {1, 2, 0}, {2, 0, 1}, {2, 1, 0},
}

func TestRotationOrder(t *testing.T) {
	var tests = []struct {
		order RotationOrder
		name  string
		op    OpType
	}{
		{RotationOrder{0, 1, 2}, "XYZ", OpRotateXYZ},
		{RotationOrder{1, 2, 0}, "YZX", OpRotateYZX},
		{RotationOrder{2, 1, 0}, "ZYX", OpRotateZYX},
	}
	for _, test := range tests {
		assert.True(t, test.order.Valid())
		assert.Equal(t, test.name, test.order.String())
		assert.Equal(t, test.op, test.order.OpType(OpOrient))
		back, ok := RotationOrderOf(test.op)
		assert.True(t, ok)
		assert.Equal(t, test.order, back)
	}

	for _, bad := range []RotationOrder{{0, 0, 1}, {0, 1, 3}, {-1, 1, 2}} {
		assert.False(t, bad.Valid(), "%v", bad)
		assert.Equal(t, OpOrient, bad.OpType(OpOrient))
	}
	assert.True(t, RotationOrder{0, 0, 1}.InRange())
	assert.True(t, OrderXYZ.InRange())
	assert.False(t, RotationOrder{0, 1, 3}.InRange())
	assert.False(t, RotationOrder{-1, 1, 2}.InRange())
}

func TestEulerToQuatMatchesRotationMatrix(t *testing.T) {
	euler := mgl64.Vec3{15, -40, 75}
	for _, order := range allOrders {
		m := RotationMatrix(euler, order)
		q := EulerToQuat(euler, order)
		assertNear(t, m, q.Mat4(), 1e-12, "order %v", order)
	}
}

func TestRotationMatrixAppliesFirstAxisFirst(t *testing.T) {
	// 90 around X then 90 around Y moves +Y to +Z and then to +X.
	m := RotationMatrix(mgl64.Vec3{90, 90, 0}, OrderXYZ)
	p := m.Mul4x1(mgl64.Vec4{0, 1, 0, 0}).Vec3()
	assertNear(t, mgl64.Vec3{1, 0, 0}, p, 1e-12, "%v", p)

	// rotating around Y first keeps +Y in place, X then moves it to +Z
	m = RotationMatrix(mgl64.Vec3{90, 90, 0}, RotationOrder{1, 0, 2})
	p = m.Mul4x1(mgl64.Vec4{0, 1, 0, 0}).Vec3()
	assertNear(t, mgl64.Vec3{0, 0, 1}, p, 1e-12, "%v", p)
}

func TestComposeMatrixOrder(t *testing.T) {
	m := ComposeMatrix(mgl64.Vec3{10, 0, 0}, mgl64.Vec3{0, 0, 90}, OrderXYZ, mgl64.Vec3{2, 2, 2})
	p := m.Mul4x1(mgl64.Vec4{1, 0, 0, 1}).Vec3()
	assertNear(t, mgl64.Vec3{10, 2, 0}, p, 1e-12, "%v", p)
}

func TestMatrixToEulerXYZ(t *testing.T) {
	for _, euler := range []mgl64.Vec3{{10, 20, 30}, {-170, 45, 5}, {0, -89, 0}, {30, 90, 0}, {30, -90, 10}} {
		m := RotationMatrix(euler, OrderXYZ)
		back := MatrixToEulerXYZ(m)
		// gimbal locked angles are ambiguous, compare the rotation instead
		assertNear(t, m, RotationMatrix(back, OrderXYZ), 1e-9, "%v -> %v", euler, back)
	}
	back := MatrixToEulerXYZ(RotationMatrix(mgl64.Vec3{10, 20, 30}, OrderXYZ))
	assertNear(t, mgl64.Vec3{10, 20, 30}, back, 1e-9, "%v", back)
}

func TestQuatToEulerXYZ(t *testing.T) {
	q := EulerToQuat(mgl64.Vec3{10, 20, 30}, OrderXYZ)
	e := QuatToEulerXYZ(q)
	assertNear(t, mgl64.Vec3{10, 20, 30}, e, 1e-9, "%v", e)

	// scaled quaternions describe the same rotation
	e = QuatToEulerXYZ(q.Scale(3))
	assertNear(t, mgl64.Vec3{10, 20, 30}, e, 1e-9, "%v", e)
}

func TestDecomposeMatrix(t *testing.T) {
	var tests = []struct {
		t, r, s mgl64.Vec3
	}{
		{mgl64.Vec3{1, 2, 3}, mgl64.Vec3{10, 20, 30}, mgl64.Vec3{2, 3, 4}},
		{mgl64.Vec3{0, 0, 0}, mgl64.Vec3{0, 0, 0}, mgl64.Vec3{-2, 3, 4}},
		{mgl64.Vec3{-5, 0, 5}, mgl64.Vec3{-60, 10, 120}, mgl64.Vec3{0.5, 0.5, 0.5}},
	}
	for _, test := range tests {
		tr, rot, sc := DecomposeMatrix(ComposeMatrix(test.t, test.r, OrderXYZ, test.s))
		assertNear(t, test.t, tr, 1e-9, "%v", tr)
		assertNear(t, test.r, rot, 1e-9, "%v", rot)
		assertNear(t, test.s, sc, 1e-9, "%v", sc)
	}

	_, rot, sc := DecomposeMatrix(mgl64.Scale3D(0, 1, 1))
	assert.Equal(t, mgl64.Vec3{}, rot)
	assert.Equal(t, mgl64.Vec3{0, 1, 1}, sc)
}

func TestLocalTransform(t *testing.T) {
	tr, rot, sc := mgl64.Vec3{1, 2, 3}, mgl64.Vec3{10, 20, 30}, mgl64.Vec3{1, 2, 1}
	ops := []OpValue{
		{Op{Type: OpTranslate}, tr},
		{Op{Type: OpTranslate, Suffix: "unset"}, nil},
		{Op{Type: OpRotateZ}, rot[2]},
		{Op{Type: OpRotateY}, rot[1]},
		{Op{Type: OpRotateX}, rot[0]},
		{Op{Type: OpScale}, sc},
	}
	want := ComposeMatrix(tr, rot, OrderXYZ, sc)
	assertNear(t, want, LocalTransform(ops), 1e-12)

	ops = []OpValue{
		{Op{Type: OpTranslate}, tr},
		{Op{Type: OpOrient}, EulerToQuat(rot, OrderXYZ)},
		{Op{Type: OpScale}, sc},
	}
	assertNear(t, want, LocalTransform(ops), 1e-12)

	assert.Equal(t, mgl64.Ident4(), OpMatrix(OpTranslate, 1.0))
}

func TestParseOpName(t *testing.T) {
	var tests = []struct {
		name string
		op   Op
	}{
		{"xformOp:translate", Op{Type: OpTranslate}},
		{"xformOp:translate:pivot", Op{Type: OpTranslate, Suffix: "pivot"}},
		{"xformOp:rotateZXY", Op{Type: OpRotateZXY}},
		{"xformOp:transform:a:b", Op{Type: OpTransform, Suffix: "a:b"}},
	}
	for _, test := range tests {
		op, err := ParseOpName(test.name)
		require.NoError(t, err, test.name)
		assert.Equal(t, test.op, op)
		assert.Equal(t, test.name, op.Name())
	}

	for _, bad := range []string{"", "xformOp", "xformOp:skew", "attr:translate"} {
		_, err := ParseOpName(bad)
		assert.Error(t, err, bad)
	}
}

func TestCastPrecision(t *testing.T) {
	v := mgl64.Vec3{0.1, 1.0 / 3, 1000.7}
	assert.Equal(t, v, CastPrecision(v, PrecisionDouble))

	f := CastPrecision(v, PrecisionFloat).(mgl64.Vec3)
	for i := range v {
		assert.Equal(t, float64(float32(v[i])), f[i])
	}

	h := CastPrecision(v, PrecisionHalf).(mgl64.Vec3)
	for i := range v {
		assert.InDelta(t, v[i], h[i], math.Abs(v[i])*1e-3)
	}
	assert.NotEqual(t, v, h)

	m := mgl64.Translate3D(0.1, 0, 0)
	assert.Equal(t, m, CastPrecision(m, PrecisionHalf))
}

func TestIsClose(t *testing.T) {
	assert.True(t, IsClose(1.0, 1.0+1e-7, 1e-6))
	assert.False(t, IsClose(1.0, 1.0+1e-5, 1e-6))
	assert.True(t, IsClose(mgl64.Vec3{1, 2, 3}, mgl64.Vec3{1, 2, 3}, 0))
	assert.False(t, IsClose(mgl64.Vec3{1, 2, 3}, mgl64.Quat{W: 1, V: mgl64.Vec3{2, 3, 0}}, 1e-6))
	assert.False(t, IsClose(nil, 1.0, 1))
	assert.False(t, IsClose(mgl64.Vec3{1, 2, 3}, 1.0, 10))
}

func TestCheckValue(t *testing.T) {
	assert.NoError(t, CheckValue(OpRotateX, 1.0))
	assert.NoError(t, CheckValue(OpRotateZYX, mgl64.Vec3{}))
	assert.NoError(t, CheckValue(OpOrient, mgl64.QuatIdent()))
	assert.NoError(t, CheckValue(OpTransform, mgl64.Ident4()))
	assert.Error(t, CheckValue(OpTranslate, 1.0))
	assert.Error(t, CheckValue(OpOrient, mgl64.Vec3{}))
	assert.Error(t, CheckValue(OpScale, float32(1)))
}

func TestTimeCode(t *testing.T) {
	assert.True(t, DefaultTime().IsDefault())
	assert.True(t, math.IsNaN(DefaultTime().Value()))
	assert.Equal(t, "DEFAULT", DefaultTime().String())
	assert.False(t, At(0).IsDefault())
	assert.Equal(t, "1.5", At(1.5).String())
}

func TestRotationWrites(t *testing.T) {
	req := NewRequest()
	req.Rotation = mgl64.Vec3{10, 20, 30}
	req.RotationOrder = RotationOrder{1, 2, 0}

	writes, err := rotationWrites(OpRotateY, req)
	require.Nil(t, err)
	require.Len(t, writes, 3)
	assert.Equal(t, []OpType{OpRotateX, OpRotateZ, OpRotateY},
		[]OpType{writes[0].op.Type, writes[1].op.Type, writes[2].op.Type})
	assert.Equal(t, []Value{10.0, 30.0, 20.0}, []Value{writes[0].value, writes[1].value, writes[2].value})

	writes, err = rotationWrites(OpRotateXYZ, req)
	require.Nil(t, err)
	assert.Equal(t, []opWrite{{Op{Type: OpRotateXYZ}, req.Rotation}}, writes)

	writes, err = rotationWrites(OpOrient, req)
	require.Nil(t, err)
	require.Len(t, writes, 1)
	assert.True(t, IsClose(writes[0].value, EulerToQuat(req.Rotation, req.RotationOrder), 1e-15))

	writes, err = rotationWrites(OpInvalid, req)
	assert.Nil(t, writes)
	require.NotNil(t, err)
	assert.Equal(t, OpInvalid, err.Type)
}

func TestMergeOrder(t *testing.T) {
	tr := Op{Type: OpTranslate}
	pivot := Op{Type: OpTranslate, Suffix: "pivot"}
	rot := Op{Type: OpRotateXYZ}
	sc := Op{Type: OpScale}
	other := Op{Type: OpTransform, Suffix: "extra"}

	assert.Equal(t, []Op{tr, rot, sc}, mergeOrder(nil, []Op{tr, rot, sc}, false))
	assert.Equal(t, []Op{sc, tr, rot, pivot},
		mergeOrder([]Op{pivot, sc, other}, []Op{tr, rot, sc, pivot}, true))
	// precision does not make another op
	assert.Equal(t, []Op{{Type: OpScale, Precision: PrecisionFloat}, tr},
		mergeOrder([]Op{sc}, []Op{tr, {Type: OpScale, Precision: PrecisionFloat}}, false))
}

// assertNear compares vectors, matrices and quaternions component wise
// within an absolute delta.
func assertNear(t *testing.T, want, got interface{}, delta float64, msgAndArgs ...interface{}) {
	t.Helper()
	assert.InDeltaSlice(t, components(want), components(got), delta, msgAndArgs...)
}
