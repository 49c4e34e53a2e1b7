package xform

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/mogaika/hello_stage/utils"
)

// Matrices use the column vector convention of mgl64: a point is transformed
// by M * p, so an op list [A, B, C] evaluates to A * B * C and C is applied first.

var axes = [3]mgl64.Vec3{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}

func axisRotation(axis int, degrees float64) mgl64.Mat4 {
	return mgl64.HomogRotate3D(mgl64.DegToRad(degrees), axes[axis])
}

// RotationMatrix combines three single axis rotations, the first axis of
// order being applied first.
func RotationMatrix(euler mgl64.Vec3, order RotationOrder) mgl64.Mat4 {
	return axisRotation(order[2], euler[order[2]]).
		Mul4(axisRotation(order[1], euler[order[1]])).
		Mul4(axisRotation(order[0], euler[order[0]]))
}

// EulerToQuat composes the same rotation as RotationMatrix as a quaternion.
func EulerToQuat(euler mgl64.Vec3, order RotationOrder) mgl64.Quat {
	q := func(axis int) mgl64.Quat {
		return mgl64.QuatRotate(mgl64.DegToRad(euler[axis]), axes[axis])
	}
	return q(order[2]).Mul(q(order[1])).Mul(q(order[0])).Normalize()
}

// ComposeMatrix builds the matrix that scales, then rotates, then translates.
func ComposeMatrix(translation, rotation mgl64.Vec3, order RotationOrder, scale mgl64.Vec3) mgl64.Mat4 {
	return mgl64.Translate3D(translation[0], translation[1], translation[2]).
		Mul4(RotationMatrix(rotation, order)).
		Mul4(mgl64.Scale3D(scale[0], scale[1], scale[2]))
}

// MatrixToEulerXYZ extracts XYZ euler angles in degrees from the orthonormal
// upper 3x3 part of m.
func MatrixToEulerXYZ(m mgl64.Mat4) mgl64.Vec3 {
	var x, y, z float64
	sy := -m.At(2, 0)
	if sy >= 1 {
		sy = 1
	} else if sy <= -1 {
		sy = -1
	}
	y = math.Asin(sy)
	if math.Abs(sy) < 1-1e-12 {
		x = math.Atan2(m.At(2, 1), m.At(2, 2))
		z = math.Atan2(m.At(1, 0), m.At(0, 0))
	} else {
		// gimbal lock, z folds into x
		x = math.Atan2(-m.At(1, 2), m.At(1, 1))
	}
	return utils.RadiansToDegreeV3(mgl64.Vec3{x, y, z})
}

// QuatToEulerXYZ returns XYZ euler angles in degrees.
func QuatToEulerXYZ(q mgl64.Quat) mgl64.Vec3 {
	return utils.RadiansToDegreeV3(utils.QuatToEuler(q))
}

func orthonormalize(c0, c1, c2 mgl64.Vec3) (mgl64.Vec3, mgl64.Vec3, mgl64.Vec3) {
	c0 = c0.Normalize()
	c1 = c1.Sub(c0.Mul(c0.Dot(c1))).Normalize()
	c2 = c2.Sub(c0.Mul(c0.Dot(c2))).Sub(c1.Mul(c1.Dot(c2))).Normalize()
	return c0, c1, c2
}

// DecomposeMatrix splits m into translation, XYZ euler rotation (degrees) and
// scale. The rotation part is orthonormalized, shear is dropped. A negative
// determinant flips the X scale.
func DecomposeMatrix(m mgl64.Mat4) (translation, rotation, scale mgl64.Vec3) {
	translation = m.Col(3).Vec3()

	c0, c1, c2 := m.Col(0).Vec3(), m.Col(1).Vec3(), m.Col(2).Vec3()
	scale = mgl64.Vec3{c0.Len(), c1.Len(), c2.Len()}
	if m.Mat3().Det() < 0 {
		scale[0] = -scale[0]
		c0 = c0.Mul(-1)
	}
	for _, l := range scale {
		if l == 0 {
			return translation, mgl64.Vec3{}, scale
		}
	}

	c0, c1, c2 = orthonormalize(c0, c1, c2)
	rot := mgl64.Ident4()
	rot.SetCol(0, c0.Vec4(0))
	rot.SetCol(1, c1.Vec4(0))
	rot.SetCol(2, c2.Vec4(0))
	rotation = MatrixToEulerXYZ(rot)
	return translation, rotation, scale
}

// OpMatrix returns the matrix contribution of a single op value.
func OpMatrix(t OpType, v Value) mgl64.Mat4 {
	switch t {
	case OpTranslate:
		if tr, ok := v.(mgl64.Vec3); ok {
			return mgl64.Translate3D(tr[0], tr[1], tr[2])
		}
	case OpScale:
		if s, ok := v.(mgl64.Vec3); ok {
			return mgl64.Scale3D(s[0], s[1], s[2])
		}
	case OpRotateX, OpRotateY, OpRotateZ:
		if a, ok := v.(float64); ok {
			return axisRotation(int(t-OpRotateX), a)
		}
	case OpRotateXYZ, OpRotateXZY, OpRotateYXZ, OpRotateYZX, OpRotateZXY, OpRotateZYX:
		order, _ := RotationOrderOf(t)
		if e, ok := v.(mgl64.Vec3); ok {
			return RotationMatrix(e, order)
		}
	case OpOrient:
		if q, ok := v.(mgl64.Quat); ok {
			return q.Normalize().Mat4()
		}
	case OpTransform:
		if m, ok := v.(mgl64.Mat4); ok {
			return m
		}
	}
	return mgl64.Ident4()
}

// OpValue pairs an op with its value at some time.
type OpValue struct {
	Op    Op
	Value Value
}

// LocalTransform evaluates an ordered op list. Ops without value count as identity.
func LocalTransform(ops []OpValue) mgl64.Mat4 {
	m := mgl64.Ident4()
	for _, ov := range ops {
		if ov.Value == nil {
			continue
		}
		m = m.Mul4(OpMatrix(ov.Op.Type, ov.Value))
	}
	return m
}
