package xform

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
)

// RotationOrder lists axis indexes (0 - X, 1 - Y, 2 - Z) in the order the
// rotations are applied. {0, 1, 2} rotates around X first.
type RotationOrder [3]int

var OrderXYZ = RotationOrder{0, 1, 2}

var rotationOrderTypes = map[RotationOrder]OpType{
	{0, 1, 2}: OpRotateXYZ,
	{0, 2, 1}: OpRotateXZY,
	{1, 0, 2}: OpRotateYXZ,
	{1, 2, 0}: OpRotateYZX,
	{2, 0, 1}: OpRotateZXY,
	{2, 1, 0}: OpRotateZYX,
}

// OpType returns the composite rotation type for the order, or def when
// the order is not a permutation of the three axes.
func (o RotationOrder) OpType(def OpType) OpType {
	if t, ok := rotationOrderTypes[o]; ok {
		return t
	}
	return def
}

// Valid reports whether the order is a permutation of the three axes.
func (o RotationOrder) Valid() bool {
	_, ok := rotationOrderTypes[o]
	return ok
}

// InRange reports whether every axis index is 0, 1 or 2. Such orders that
// repeat an axis are still written, as an orient op.
func (o RotationOrder) InRange() bool {
	for _, axis := range o {
		if axis < 0 || axis > 2 {
			return false
		}
	}
	return true
}

// RotationOrderOf is the inverse of RotationOrder.OpType.
func RotationOrderOf(t OpType) (RotationOrder, bool) {
	for order, ot := range rotationOrderTypes {
		if ot == t {
			return order, true
		}
	}
	return RotationOrder{}, false
}

func (o RotationOrder) String() string {
	const axes = "XYZ"
	if !o.Valid() {
		return fmt.Sprintf("%v", [3]int(o))
	}
	return string([]byte{axes[o[0]], axes[o[1]], axes[o[2]]})
}

type Request struct {
	Translation   mgl64.Vec3
	Rotation      mgl64.Vec3 // euler angles in degrees
	RotationOrder RotationOrder
	Scale         mgl64.Vec3
	Time          TimeCode
}

func NewRequest() Request {
	return Request{
		RotationOrder: OrderXYZ,
		Scale:         mgl64.Vec3{1, 1, 1},
		Time:          DefaultTime(),
	}
}

// SRT is a translate / XYZ euler rotate (degrees) / scale triple.
type SRT struct {
	Translation mgl64.Vec3
	Rotation    mgl64.Vec3
	Scale       mgl64.Vec3
}

func DefaultSRT() SRT {
	return SRT{Scale: mgl64.Vec3{1, 1, 1}}
}

// Request converts the triple into a request with XYZ order at time t.
func (s SRT) Request(t TimeCode) Request {
	return Request{
		Translation:   s.Translation,
		Rotation:      s.Rotation,
		RotationOrder: OrderXYZ,
		Scale:         s.Scale,
		Time:          t,
	}
}
