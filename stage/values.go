package stage

import (
	"strings"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/mogaika/hello_stage/xform"
)

type valueKind int

const (
	kindScalar valueKind = iota
	kindVec3
	kindQuat
	kindMatrix
	kindString
	kindBool
	kindIntArray
	kindVec3Array
	kindVec2Array
	kindStringArray
)

var valueTypes = map[string]valueKind{
	"double": kindScalar, "float": kindScalar, "half": kindScalar,
	"double3": kindVec3, "float3": kindVec3, "half3": kindVec3,
	"color3f": kindVec3, "vector3f": kindVec3,
	"quatd": kindQuat, "quatf": kindQuat, "quath": kindQuat,
	"matrix4d":     kindMatrix,
	"token":        kindString,
	"string":       kindString,
	"asset":        kindString,
	"bool":         kindBool,
	"int[]":        kindIntArray,
	"point3f[]":    kindVec3Array,
	"normal3f[]":   kindVec3Array,
	"color3f[]":    kindVec3Array,
	"float3[]":     kindVec3Array,
	"texCoord2f[]": kindVec2Array,
	"token[]":      kindStringArray,
}

func checkValueType(typeName string, v interface{}) error {
	kind, ok := valueTypes[typeName]
	if !ok {
		return errors.Errorf("unknown attribute type %q", typeName)
	}
	match := false
	switch v.(type) {
	case float64:
		match = kind == kindScalar
	case mgl64.Vec3:
		match = kind == kindVec3
	case mgl64.Quat:
		match = kind == kindQuat
	case mgl64.Mat4:
		match = kind == kindMatrix
	case string:
		match = kind == kindString
	case bool:
		match = kind == kindBool
	case []int:
		match = kind == kindIntArray
	case []mgl64.Vec3:
		match = kind == kindVec3Array
	case []mgl64.Vec2:
		match = kind == kindVec2Array
	case []string:
		match = kind == kindStringArray
	}
	if !match {
		return errors.Wrapf(ErrValueType, "%T is not %s", v, typeName)
	}
	return nil
}

// OpTypeName returns the attribute type storing values of op.
func OpTypeName(op xform.Op) string {
	prefix := op.Precision.String()
	switch {
	case op.Type == xform.OpTransform:
		return "matrix4d"
	case op.Type == xform.OpOrient:
		return "quat" + prefix[:1]
	case op.Type.IsSingleAxisRotation():
		return prefix
	}
	return prefix + "3"
}

// PrecisionOf is the inverse of OpTypeName for the precision part.
func PrecisionOf(typeName string) xform.Precision {
	switch {
	case strings.HasPrefix(typeName, "half"), typeName == "quath":
		return xform.PrecisionHalf
	case strings.HasPrefix(typeName, "float"), typeName == "quatf":
		return xform.PrecisionFloat
	}
	return xform.PrecisionDouble
}

func vec3s(in [][]float64) ([]mgl64.Vec3, error) {
	out := make([]mgl64.Vec3, len(in))
	for i, v := range in {
		if len(v) != 3 {
			return nil, errors.Errorf("element %d has %d components, expected 3", i, len(v))
		}
		out[i] = mgl64.Vec3{v[0], v[1], v[2]}
	}
	return out, nil
}

// encodeValue converts a value into plain yaml friendly data.
func encodeValue(v interface{}) interface{} {
	switch val := v.(type) {
	case mgl64.Vec3:
		return val[:]
	case mgl64.Quat:
		return []float64{val.W, val.V[0], val.V[1], val.V[2]}
	case mgl64.Mat4:
		return val[:]
	case []mgl64.Vec3:
		out := make([][]float64, len(val))
		for i := range val {
			out[i] = []float64{val[i][0], val[i][1], val[i][2]}
		}
		return out
	case []mgl64.Vec2:
		out := make([][]float64, len(val))
		for i := range val {
			out[i] = []float64{val[i][0], val[i][1]}
		}
		return out
	}
	return v
}

func decodeValue(typeName string, node *yaml.Node) (interface{}, error) {
	kind, ok := valueTypes[typeName]
	if !ok {
		return nil, errors.Errorf("unknown attribute type %q", typeName)
	}
	fixed := func(n int) ([]float64, error) {
		var f []float64
		if err := node.Decode(&f); err != nil {
			return nil, err
		}
		if len(f) != n {
			return nil, errors.Errorf("%s expects %d components, got %d", typeName, n, len(f))
		}
		return f, nil
	}

	switch kind {
	case kindScalar:
		var f float64
		err := node.Decode(&f)
		return f, err
	case kindVec3:
		f, err := fixed(3)
		if err != nil {
			return nil, err
		}
		return mgl64.Vec3{f[0], f[1], f[2]}, nil
	case kindQuat:
		f, err := fixed(4)
		if err != nil {
			return nil, err
		}
		return mgl64.Quat{W: f[0], V: mgl64.Vec3{f[1], f[2], f[3]}}, nil
	case kindMatrix:
		f, err := fixed(16)
		if err != nil {
			return nil, err
		}
		var m mgl64.Mat4
		copy(m[:], f)
		return m, nil
	case kindString:
		var s string
		err := node.Decode(&s)
		return s, err
	case kindBool:
		var b bool
		err := node.Decode(&b)
		return b, err
	case kindIntArray:
		var a []int
		err := node.Decode(&a)
		return a, err
	case kindVec3Array:
		var a [][]float64
		if err := node.Decode(&a); err != nil {
			return nil, err
		}
		return vec3s(a)
	case kindVec2Array:
		var a [][]float64
		if err := node.Decode(&a); err != nil {
			return nil, err
		}
		out := make([]mgl64.Vec2, len(a))
		for i, v := range a {
			if len(v) != 2 {
				return nil, errors.Errorf("element %d has %d components, expected 2", i, len(v))
			}
			out[i] = mgl64.Vec2{v[0], v[1]}
		}
		return out, nil
	case kindStringArray:
		var a []string
		err := node.Decode(&a)
		return a, err
	}
	return nil, errors.Errorf("unhandled attribute type %q", typeName)
}
