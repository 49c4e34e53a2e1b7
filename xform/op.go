package xform

import (
	"fmt"
	"math"
	"reflect"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"

	"github.com/mogaika/hello_stage/3rdparty/half"
)

type OpType int

// Rotation types are kept contiguous: RotateX..Orient.
const (
	OpInvalid OpType = iota
	OpTranslate
	OpScale
	OpRotateX
	OpRotateY
	OpRotateZ
	OpRotateXYZ
	OpRotateXZY
	OpRotateYXZ
	OpRotateYZX
	OpRotateZXY
	OpRotateZYX
	OpOrient
	OpTransform
)

var opTypeTokens = map[OpType]string{
	OpTranslate: "translate",
	OpScale:     "scale",
	OpRotateX:   "rotateX",
	OpRotateY:   "rotateY",
	OpRotateZ:   "rotateZ",
	OpRotateXYZ: "rotateXYZ",
	OpRotateXZY: "rotateXZY",
	OpRotateYXZ: "rotateYXZ",
	OpRotateYZX: "rotateYZX",
	OpRotateZXY: "rotateZXY",
	OpRotateZYX: "rotateZYX",
	OpOrient:    "orient",
	OpTransform: "transform",
}

func (t OpType) String() string {
	if s, ok := opTypeTokens[t]; ok {
		return s
	}
	return fmt.Sprintf("OpType(%d)", int(t))
}

func (t OpType) IsRotation() bool {
	return t >= OpRotateX && t <= OpOrient
}

func (t OpType) IsSingleAxisRotation() bool {
	return t >= OpRotateX && t <= OpRotateZ
}

func (t OpType) IsCompositeRotation() bool {
	return t >= OpRotateXYZ && t <= OpRotateZYX
}

type Precision int

const (
	PrecisionDouble Precision = iota
	PrecisionFloat
	PrecisionHalf
)

func (p Precision) String() string {
	switch p {
	case PrecisionDouble:
		return "double"
	case PrecisionFloat:
		return "float"
	case PrecisionHalf:
		return "half"
	}
	return fmt.Sprintf("Precision(%d)", int(p))
}

const OpNamespace = "xformOp"

// Op identifies one transform operation of a node. Two ops are the same op
// when their names match; precision only describes how values are stored.
type Op struct {
	Type      OpType
	Precision Precision
	Suffix    string
}

func (o Op) Name() string {
	name := OpNamespace + ":" + o.Type.String()
	if o.Suffix != "" {
		name += ":" + o.Suffix
	}
	return name
}

func (o Op) String() string {
	return o.Name()
}

func (o Op) Same(other Op) bool {
	return o.Type == other.Type && o.Suffix == other.Suffix
}

// ParseOpName parses names like "xformOp:translate:pivot".
// The returned op has double precision.
func ParseOpName(name string) (Op, error) {
	parts := strings.SplitN(name, ":", 3)
	if len(parts) < 2 || parts[0] != OpNamespace {
		return Op{}, errors.Errorf("%q is not a transform op name", name)
	}
	op := Op{Type: OpInvalid}
	for t, token := range opTypeTokens {
		if token == parts[1] {
			op.Type = t
			break
		}
	}
	if op.Type == OpInvalid {
		return Op{}, errors.Errorf("unknown transform op type %q in %q", parts[1], name)
	}
	if len(parts) == 3 {
		op.Suffix = parts[2]
	}
	return op, nil
}

// Value is the payload of an op:
// float64 for single axis rotations (degrees), mgl64.Vec3 for translate, scale
// and composite rotations (degrees), mgl64.Quat for orient and mgl64.Mat4 for transform.
type Value interface{}

func CheckValue(t OpType, v Value) error {
	ok := false
	switch v.(type) {
	case float64:
		ok = t.IsSingleAxisRotation()
	case mgl64.Vec3:
		ok = t == OpTranslate || t == OpScale || t.IsCompositeRotation()
	case mgl64.Quat:
		ok = t == OpOrient
	case mgl64.Mat4:
		ok = t == OpTransform
	}
	if !ok {
		return errors.Errorf("value of type %T does not fit op type %v", v, t)
	}
	return nil
}

func roundTo(p Precision, f float64) float64 {
	switch p {
	case PrecisionFloat:
		return float64(float32(f))
	case PrecisionHalf:
		return half.Round(f)
	}
	return f
}

// CastPrecision rounds every component of v to the storage precision p.
func CastPrecision(v Value, p Precision) Value {
	if p == PrecisionDouble {
		return v
	}
	switch val := v.(type) {
	case float64:
		return roundTo(p, val)
	case mgl64.Vec3:
		for i := range val {
			val[i] = roundTo(p, val[i])
		}
		return val
	case mgl64.Quat:
		val.W = roundTo(p, val.W)
		for i := range val.V {
			val.V[i] = roundTo(p, val.V[i])
		}
		return val
	case mgl64.Mat4:
		// matrices are only authored as double
		return val
	}
	return v
}

func components(v Value) []float64 {
	switch val := v.(type) {
	case float64:
		return []float64{val}
	case mgl64.Vec3:
		return val[:]
	case mgl64.Quat:
		return []float64{val.W, val.V[0], val.V[1], val.V[2]}
	case mgl64.Mat4:
		return val[:]
	}
	return nil
}

// IsClose reports whether a and b are of the same type and every
// component differs by at most tolerance.
func IsClose(a, b Value, tolerance float64) bool {
	ca, cb := components(a), components(b)
	if ca == nil || cb == nil || len(ca) != len(cb) {
		return false
	}
	if reflect.TypeOf(a) != reflect.TypeOf(b) {
		return false
	}
	for i := range ca {
		if math.Abs(ca[i]-cb[i]) > tolerance {
			return false
		}
	}
	return true
}

// TimeCode is either the default (time invariant) time or a sample time.
type TimeCode struct {
	value   float64
	sampled bool
}

func DefaultTime() TimeCode {
	return TimeCode{}
}

func At(t float64) TimeCode {
	return TimeCode{value: t, sampled: true}
}

func (t TimeCode) IsDefault() bool {
	return !t.sampled
}

func (t TimeCode) Value() float64 {
	if !t.sampled {
		return math.NaN()
	}
	return t.value
}

func (t TimeCode) String() string {
	if !t.sampled {
		return "DEFAULT"
	}
	return fmt.Sprintf("%g", t.value)
}
