package utils

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// QuatToEuler returns x, y, z angles in radians of q = qz * qy * qx,
// i.e. rotation around X applied first.
func QuatToEuler(q mgl64.Quat) (e mgl64.Vec3) {
	q = q.Normalize()

	sinr_cosp := 2 * (q.W*q.X() + q.Y()*q.Z())
	cosr_cosp := 1 - 2*(q.X()*q.X()+q.Y()*q.Y())

	e[0] = math.Atan2(sinr_cosp, cosr_cosp)

	sinp := 2 * (q.W*q.Y() - q.Z()*q.X())
	if math.Abs(sinp) >= 1 {
		e[1] = math.Copysign(math.Pi/2, sinp)
	} else {
		e[1] = math.Asin(sinp)
	}

	siny_cosp := 2 * (q.W*q.Z() + q.X()*q.Y())
	cosy_cosp := 1 - 2*(q.Y()*q.Y()+q.Z()*q.Z())
	e[2] = math.Atan2(siny_cosp, cosy_cosp)

	return e
}

func DegreeToRadiansV3(v mgl64.Vec3) mgl64.Vec3 {
	return v.Mul(math.Pi / 180.0)
}

func RadiansToDegreeV3(v mgl64.Vec3) mgl64.Vec3 {
	return v.Mul(180.0 / math.Pi)
}

// EulerToQuat is the inverse of QuatToEuler, input in radians.
func EulerToQuat(v mgl64.Vec3) (q mgl64.Quat) {
	x := v[0] * 0.5
	y := v[1] * 0.5
	z := v[2] * 0.5

	sx := math.Sin(x)
	cx := math.Cos(x)
	sy := math.Sin(y)
	cy := math.Cos(y)
	sz := math.Sin(z)
	cz := math.Cos(z)

	q.V[0] = sx*cy*cz - cx*sy*sz
	q.V[1] = cx*sy*cz + sx*cy*sz
	q.V[2] = cx*cy*sz - sx*sy*cz
	q.W = cx*cy*cz + sx*sy*sz

	return q.Normalize()
}

// NormalizeDegrees wraps an angle into (-180, 180].
func NormalizeDegrees(a float64) float64 {
	a = math.Mod(a, 360)
	if a > 180 {
		a -= 360
	} else if a <= -180 {
		a += 360
	}
	return a
}
