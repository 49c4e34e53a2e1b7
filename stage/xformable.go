package stage

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"

	"github.com/mogaika/hello_stage/xform"
)

// opOrder returns the raw op order of a prim, including names without an attribute.
func (s *Stage) opOrder(p *Prim) ([]string, bool) {
	a, ok := p.attributes[OpOrderAttr]
	if !ok || !a.HasDefault {
		return nil, false
	}
	names, _ := a.Default.([]string)
	if len(names) > 0 && names[0] == ResetXformStack {
		return names[1:], true
	}
	return names, false
}

func (s *Stage) setOpOrder(p *Prim, names []string, reset bool) error {
	a, err := s.createAttribute(p.Path, OpOrderAttr, "token[]")
	if err != nil {
		return err
	}
	order := make([]string, 0, len(names)+1)
	if reset {
		order = append(order, ResetXformStack)
	}
	order = append(order, names...)
	return s.setValue(p.Path, a, order, xform.DefaultTime())
}

func (s *Stage) prim(path string) (*Prim, error) {
	p, ok := s.prims[path]
	if !ok {
		return nil, errors.Wrapf(ErrNoPrim, "%q", path)
	}
	return p, nil
}

func (s *Stage) OrderedOps(path string) ([]xform.Op, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, err := s.prim(path)
	if err != nil {
		return nil, false, err
	}
	names, reset := s.opOrder(p)
	ops := make([]xform.Op, 0, len(names))
	for _, name := range names {
		a, ok := p.attributes[name]
		if !ok {
			continue
		}
		op, err := xform.ParseOpName(name)
		if err != nil {
			return nil, false, errors.Wrapf(err, "op order of %q", path)
		}
		op.Precision = PrecisionOf(a.TypeName)
		ops = append(ops, op)
	}
	return ops, reset, nil
}

func (s *Stage) SetOrderedOps(path string, ops []xform.Op, resetXformStack bool) error {
	s.mu.Lock()
	defer s.flush()
	defer s.mu.Unlock()
	if s.editDepth > 0 {
		return errors.Wrapf(ErrStructuralEdit, "set op order of %q", path)
	}
	p, err := s.prim(path)
	if err != nil {
		return err
	}
	names := make([]string, len(ops))
	for i, op := range ops {
		names[i] = op.Name()
	}
	return s.setOpOrder(p, names, resetXformStack)
}

// SetOpOrderNames writes the raw op order, names are not checked against attributes.
func (s *Stage) SetOpOrderNames(path string, names []string, resetXformStack bool) error {
	s.mu.Lock()
	defer s.flush()
	defer s.mu.Unlock()
	if s.editDepth > 0 {
		return errors.Wrapf(ErrStructuralEdit, "set op order of %q", path)
	}
	p, err := s.prim(path)
	if err != nil {
		return err
	}
	return s.setOpOrder(p, names, resetXformStack)
}

func (s *Stage) CreateOp(path string, op xform.Op) error {
	s.mu.Lock()
	defer s.flush()
	defer s.mu.Unlock()
	if s.editDepth > 0 {
		return errors.Wrapf(ErrStructuralEdit, "create %v on %q", op, path)
	}
	p, err := s.prim(path)
	if err != nil {
		return err
	}
	names, reset := s.opOrder(p)
	name := op.Name()
	for _, n := range names {
		if n == name {
			return errors.Wrapf(ErrOpExists, "%v on %q", op, path)
		}
	}
	if _, err := s.createAttribute(path, name, OpTypeName(op)); err != nil {
		return err
	}
	return s.setOpOrder(p, append(append([]string(nil), names...), name), reset)
}

func (s *Stage) opAttribute(path string, op xform.Op) (*Attribute, error) {
	return s.attribute(path, op.Name())
}

func (s *Stage) OpValue(path string, op xform.Op, t xform.TimeCode) (xform.Value, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, err := s.opAttribute(path, op)
	if err != nil {
		return nil, false, err
	}
	v, ok := a.resolve(t)
	return v, ok, nil
}

func (s *Stage) SetOpValue(path string, op xform.Op, v xform.Value, t xform.TimeCode) error {
	if err := xform.CheckValue(op.Type, v); err != nil {
		return errors.Wrapf(ErrValueType, "%v", err)
	}
	s.mu.Lock()
	defer s.flush()
	defer s.mu.Unlock()
	a, err := s.opAttribute(path, op)
	if err != nil {
		return err
	}
	return s.setValue(path, a, xform.CastPrecision(v, PrecisionOf(a.TypeName)), t)
}

func (s *Stage) TimeSamples(path string, op xform.Op) ([]float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, err := s.opAttribute(path, op)
	if err != nil {
		return nil, err
	}
	return a.sampleTimes(), nil
}

func (s *Stage) ClearOpValue(path string, op xform.Op, t xform.TimeCode) error {
	s.mu.Lock()
	defer s.flush()
	defer s.mu.Unlock()
	a, err := s.opAttribute(path, op)
	if err != nil {
		return err
	}
	if t.IsDefault() {
		a.Default, a.HasDefault = nil, false
	} else {
		delete(a.Samples, t.Value())
	}
	s.changed(Change{Path: path, Field: a.Name})
	return nil
}

// LocalTransform evaluates the op list of a prim at t.
func (s *Stage) LocalTransform(path string, t xform.TimeCode) (mgl64.Mat4, bool, error) {
	ops, reset, err := xform.OpValues(s, path, t)
	if err != nil {
		return mgl64.Ident4(), false, err
	}
	return xform.LocalTransform(ops), reset, nil
}

// WorldTransform multiplies local transforms from the root down to path,
// restarting at prims that reset the transform stack.
func (s *Stage) WorldTransform(path string, t xform.TimeCode) (mgl64.Mat4, error) {
	if !s.HasPrim(path) {
		return mgl64.Ident4(), errors.Wrapf(ErrNoPrim, "%q", path)
	}
	m := mgl64.Ident4()
	for p := path; p != "/"; p = ParentPath(p) {
		local, reset, err := s.LocalTransform(p, t)
		if err != nil {
			return m, err
		}
		m = local.Mul4(m)
		if reset {
			break
		}
	}
	return m, nil
}
