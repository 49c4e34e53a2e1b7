package xform

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"
)

// Decompose reduces an ordered op list to translate, rotate and scale.
// Contributions are summed on top of defaults (nil means DefaultSRT), so a
// translate plus a pivot translate add up. Every rotation is reduced to XYZ
// euler angles: composite rotations of another order are read as if they
// were XYZ, which loses information for those orders.
// Scale falls back to the default scale when no op contributes to it.
func Decompose(ops []OpValue, defaults *SRT) SRT {
	d := DefaultSRT()
	if defaults != nil {
		d = *defaults
	}

	translate := d.Translation
	rotate := d.Rotation
	var scale mgl64.Vec3
	hasScale := false

	addScale := func(s mgl64.Vec3) {
		scale = scale.Add(s)
		hasScale = true
	}

	for _, ov := range ops {
		switch v := ov.Value.(type) {
		case mgl64.Mat4:
			if ov.Op.Type != OpTransform {
				continue
			}
			t, r, s := DecomposeMatrix(v)
			translate = translate.Add(t)
			rotate = rotate.Add(r)
			addScale(s)
		case mgl64.Quat:
			if ov.Op.Type == OpOrient {
				rotate = rotate.Add(QuatToEulerXYZ(v))
			}
		case float64:
			if ov.Op.Type.IsSingleAxisRotation() {
				rotate[ov.Op.Type-OpRotateX] += v
			}
		case mgl64.Vec3:
			switch {
			case ov.Op.Type == OpTranslate:
				translate = translate.Add(v)
			case ov.Op.Type == OpScale:
				addScale(v)
			case ov.Op.Type.IsCompositeRotation():
				rotate = rotate.Add(v)
			}
		}
	}

	if !hasScale {
		scale = d.Scale
	}
	return SRT{Translation: translate, Rotation: rotate, Scale: scale}
}

// OpValues reads the ordered ops of a prim with their values at t.
// Ops without a value are returned with a nil value.
func OpValues(s Stage, path string, t TimeCode) ([]OpValue, bool, error) {
	ops, reset, err := s.OrderedOps(path)
	if err != nil {
		return nil, false, errors.Wrapf(err, "failed to read ops of %q", path)
	}
	result := make([]OpValue, 0, len(ops))
	for _, op := range ops {
		v, ok, err := s.OpValue(path, op, t)
		if err != nil {
			return nil, false, errors.Wrapf(err, "failed to read %v of %q", op, path)
		}
		if !ok {
			v = nil
		}
		result = append(result, OpValue{Op: op, Value: v})
	}
	return result, reset, nil
}

// DecomposePrim reads the ops of path at t and decomposes them.
func DecomposePrim(s Stage, path string, t TimeCode, defaults *SRT) (SRT, error) {
	if !s.HasPrim(path) {
		return SRT{}, &InvalidTargetError{Path: path}
	}
	ops, _, err := OpValues(s, path, t)
	if err != nil {
		return SRT{}, err
	}
	return Decompose(ops, defaults), nil
}
