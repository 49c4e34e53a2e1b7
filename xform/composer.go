// Package xform composes translate / rotate / scale requests into the ordered
// transform ops of a stage node, and decomposes existing ops back.
package xform

import (
	"io"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	PivotSuffix = "pivot"

	// RedundantSampleTolerance is the distance under which a new time sample
	// is considered equal to the value already resolved at that time.
	RedundantSampleTolerance = 1e-6
)

// EditScope batches value writes. End flushes and releases it.
type EditScope interface {
	End()
}

// Stage is the node graph the composer authors into.
type Stage interface {
	HasPrim(path string) bool
	// OrderedOps returns the ops of the node in evaluation order and whether
	// the node resets the parent transform.
	OrderedOps(path string) ([]Op, bool, error)
	SetOrderedOps(path string, ops []Op, resetXformStack bool) error
	// CreateOp adds the op attribute and appends it to the op order.
	// It returns ErrOpExists when the op is already in the op order.
	CreateOp(path string, op Op) error
	OpValue(path string, op Op, t TimeCode) (Value, bool, error)
	SetOpValue(path string, op Op, v Value, t TimeCode) error
	TimeSamples(path string, op Op) ([]float64, error)
	ClearOpValue(path string, op Op, t TimeCode) error
	// BeginEdits opens a value edit block. Structural edits are not allowed
	// until it is ended.
	BeginEdits() EditScope
}

// Composer authors transforms of a single prim.
type Composer struct {
	stage Stage
	path  string
	log   logrus.FieldLogger
}

func NewComposer(s Stage, path string, log logrus.FieldLogger) (*Composer, error) {
	if log == nil {
		l := logrus.New()
		l.Out = io.Discard
		log = l
	}
	if s == nil || !s.HasPrim(path) {
		err := &InvalidTargetError{Path: path}
		log.Error(err.Error())
		return nil, err
	}
	return &Composer{
		stage: s,
		path:  path,
		log:   log.WithField("prim", path),
	}, nil
}

func (c *Composer) Path() string {
	return c.path
}

// Do applies the request skipping redundant time samples.
func (c *Composer) Do(req Request) error {
	return c.Apply(req, true)
}

func (c *Composer) Undo() error {
	return &NotSupportedError{Operation: "undo of transform"}
}

// Apply writes req either into the existing matrix op of the node, or into
// translate, rotate and scale ops.
func (c *Composer) Apply(req Request, skipRedundantTimeSample bool) error {
	if !req.RotationOrder.InRange() {
		return errors.Errorf("invalid rotation order %v for %q", req.RotationOrder, c.path)
	}
	ops, reset, err := c.stage.OrderedOps(c.path)
	if err != nil {
		return errors.Wrapf(err, "failed to read ops of %q", c.path)
	}
	for _, op := range ops {
		if op.Type == OpTransform {
			return c.applyMatrix(op, reset, req, skipRedundantTimeSample)
		}
	}
	return c.applySRT(req, skipRedundantTimeSample)
}

func (c *Composer) applyMatrix(op Op, reset bool, req Request, skip bool) error {
	m := ComposeMatrix(req.Translation, req.Rotation, req.RotationOrder, req.Scale)

	// Other ops would transform the node a second time.
	if err := c.stage.SetOrderedOps(c.path, []Op{op}, reset); err != nil {
		return errors.Wrapf(err, "failed to reset op order of %q", c.path)
	}

	edits := c.stage.BeginEdits()
	defer edits.End()
	_, err := c.setValue(op, m, req.Time, skip)
	return err
}

type opWrite struct {
	op    Op
	value Value
}

func (c *Composer) applySRT(req Request, skip bool) error {
	before, _, err := c.stage.OrderedOps(c.path)
	if err != nil {
		return errors.Wrapf(err, "failed to read ops of %q", c.path)
	}

	// Op creation happens before the edit block is opened.
	writes, rotErr := c.srtWrites(req)
	if rotErr != nil {
		if _, ok := rotErr.(*UnresolvedRotationKindError); !ok {
			return rotErr
		}
		c.log.Error(rotErr.Error())
	}

	pivot, hasPivot, err := c.findOrAdd(OpTranslate, false, PrecisionDouble, PivotSuffix)
	if err != nil {
		return err
	}

	if err := c.writeValues(writes, req.Time, skip); err != nil {
		return err
	}

	ordered := make([]Op, 0, len(writes)+1)
	for _, w := range writes {
		ordered = append(ordered, w.op)
	}
	if hasPivot {
		ordered = append(ordered, pivot)
	}

	_, reset, err := c.stage.OrderedOps(c.path)
	if err != nil {
		return errors.Wrapf(err, "failed to read ops of %q", c.path)
	}
	if err := c.stage.SetOrderedOps(c.path, mergeOrder(before, ordered, hasPivot), reset); err != nil {
		return errors.Wrapf(err, "failed to set op order of %q", c.path)
	}
	return rotErr
}

func (c *Composer) writeValues(writes []opWrite, t TimeCode, skip bool) error {
	edits := c.stage.BeginEdits()
	defer edits.End()
	for _, w := range writes {
		if _, err := c.setValue(w.op, w.value, t, skip); err != nil {
			return err
		}
	}
	return nil
}

// mergeOrder keeps ops that were already ordered in their relative order,
// appends new ones and puts the pivot (the last entry of ops when hasPivot) at the end.
func mergeOrder(before, ops []Op, hasPivot bool) []Op {
	var pivot Op
	if hasPivot {
		pivot = ops[len(ops)-1]
		ops = ops[:len(ops)-1]
	}

	pending := append([]Op(nil), ops...)
	result := make([]Op, 0, len(ops)+1)
	for _, old := range before {
		for i, op := range pending {
			if op.Same(old) {
				result = append(result, op)
				pending = append(pending[:i], pending[i+1:]...)
				break
			}
		}
	}
	result = append(result, pending...)
	if hasPivot {
		result = append(result, pivot)
	}
	return result
}

// srtWrites finds or creates the translate, rotate and scale ops and pairs
// them with the requested values. Rotation failures do not stop the other roles.
func (c *Composer) srtWrites(req Request) ([]opWrite, error) {
	writes := make([]opWrite, 0, 5)

	op, _, err := c.findOrAdd(OpTranslate, true, PrecisionDouble, "")
	if err != nil {
		return nil, err
	}
	writes = append(writes, opWrite{op, req.Translation})

	rotType, precision, err := c.firstRotateType(req.RotationOrder)
	if err != nil {
		return nil, err
	}
	rotations, rotErr := rotationWrites(rotType, req)
	if rotErr != nil {
		rotErr.Path = c.path
	} else {
		if rotType.IsCompositeRotation() {
			if wanted := req.RotationOrder.OpType(rotType); wanted != rotType {
				c.log.Warnf("Existing rotation order %v on prim %s is different than desired %v, overriding...",
					rotType, c.path, wanted)
			}
		}
		for _, r := range rotations {
			op, _, err := c.findOrAdd(r.op.Type, true, precision, "")
			if err != nil {
				return nil, err
			}
			writes = append(writes, opWrite{op, r.value})
		}
	}

	op, _, err = c.findOrAdd(OpScale, true, PrecisionDouble, "")
	if err != nil {
		return nil, err
	}
	writes = append(writes, opWrite{op, req.Scale})

	if rotErr != nil {
		return writes, rotErr
	}
	return writes, nil
}

// rotationWrites builds rotation op values for the resolved rotation type.
func rotationWrites(t OpType, req Request) ([]opWrite, *UnresolvedRotationKindError) {
	switch {
	case t.IsSingleAxisRotation():
		// Ops evaluate right to left, so they are added in reverse order.
		writes := make([]opWrite, 0, 3)
		for i := 2; i >= 0; i-- {
			axis := req.RotationOrder[i]
			writes = append(writes, opWrite{
				op:    Op{Type: OpRotateX + OpType(axis)},
				value: req.Rotation[axis],
			})
		}
		return writes, nil
	case t.IsCompositeRotation():
		return []opWrite{{op: Op{Type: t}, value: req.Rotation}}, nil
	case t == OpOrient:
		return []opWrite{{op: Op{Type: t}, value: EulerToQuat(req.Rotation, req.RotationOrder)}}, nil
	}
	return nil, &UnresolvedRotationKindError{Type: t}
}

// firstRotateType returns type and precision of the first rotation op of the
// node, or the type matching the requested order.
func (c *Composer) firstRotateType(order RotationOrder) (OpType, Precision, error) {
	ops, _, err := c.stage.OrderedOps(c.path)
	if err != nil {
		return OpInvalid, PrecisionDouble, errors.Wrapf(err, "failed to read ops of %q", c.path)
	}
	for _, op := range ops {
		if op.Type.IsRotation() {
			return op.Type, op.Precision, nil
		}
	}
	return order.OpType(OpOrient), PrecisionDouble, nil
}

// findOrAdd looks the op up in the current op order and creates it when
// create is set. The returned bool reports whether an op is returned.
func (c *Composer) findOrAdd(t OpType, create bool, precision Precision, suffix string) (Op, bool, error) {
	ops, reset, err := c.stage.OrderedOps(c.path)
	if err != nil {
		return Op{}, false, errors.Wrapf(err, "failed to read ops of %q", c.path)
	}
	for _, op := range ops {
		if op.Type == t && op.Suffix == suffix {
			return op, true, nil
		}
	}
	if !create {
		return Op{}, false, nil
	}

	op := Op{Type: t, Precision: precision, Suffix: suffix}
	err = c.stage.CreateOp(c.path, op)
	if errors.Is(err, ErrOpExists) {
		// The op order names an op that has no attribute. Rewrite the order
		// with valid ops only and try again.
		c.log.Warnf("%v is listed in op order but not authored, resetting op order", op)
		if err := c.stage.SetOrderedOps(c.path, ops, reset); err != nil {
			return Op{}, false, errors.Wrapf(err, "failed to reset op order of %q", c.path)
		}
		if err := c.stage.CreateOp(c.path, op); err != nil {
			return Op{}, false, &OpCreationRaceError{Path: c.path, Op: op, Err: err}
		}
	} else if err != nil {
		return Op{}, false, errors.Wrapf(err, "failed to create %v on %q", op, c.path)
	}
	return op, true, nil
}

// setValue writes v following the time sample policy. It returns false when
// the write was skipped.
func (c *Composer) setValue(op Op, v Value, t TimeCode, skipRedundant bool) (bool, error) {
	samples, err := c.stage.TimeSamples(c.path, op)
	if err != nil {
		return false, errors.Wrapf(err, "failed to read time samples of %v", op)
	}

	if len(samples) == 0 && !t.IsDefault() {
		c.log.Warnf("%v is not time sampled. Force using default time.", op)
		t = DefaultTime()
	}

	v = CastPrecision(v, op.Precision)

	old, ok, err := c.stage.OpValue(c.path, op, t)
	if err != nil {
		return false, errors.Wrapf(err, "failed to read %v", op)
	}
	if ok && skipRedundant && !t.IsDefault() && !c.hasTimeSample(op, samples, t) {
		if IsClose(v, old, RedundantSampleTolerance) {
			c.log.Warnf("xform op value not set - %v, %v", op, v)
			return false, nil
		}
	}

	c.log.Debugf("Setting %v to %v at time %v", op, v, t)
	if err := c.stage.SetOpValue(c.path, op, v, t); err != nil {
		return false, errors.Wrapf(err, "failed to set %v", op)
	}
	return true, nil
}

func (c *Composer) hasTimeSample(op Op, samples []float64, t TimeCode) bool {
	if t.IsDefault() {
		return false
	}
	tv := t.Value()
	if math.Round(tv) != tv {
		c.log.Warnf("Error: try to identify attribute %v has time sample on a non round key %v", op, tv)
		return false
	}
	for _, s := range samples {
		if s == tv {
			return true
		}
	}
	return false
}

// ClearAtTime removes the samples authored exactly at t from every op.
func (c *Composer) ClearAtTime(t TimeCode) error {
	if t.IsDefault() {
		return nil
	}
	ops, _, err := c.stage.OrderedOps(c.path)
	if err != nil {
		return errors.Wrapf(err, "failed to read ops of %q", c.path)
	}
	for _, op := range ops {
		samples, err := c.stage.TimeSamples(c.path, op)
		if err != nil {
			return errors.Wrapf(err, "failed to read time samples of %v", op)
		}
		if c.hasTimeSample(op, samples, t) {
			if err := c.stage.ClearOpValue(c.path, op, t); err != nil {
				return errors.Wrapf(err, "failed to clear %v at %v", op, t)
			}
		}
	}
	return nil
}

// Matrix returns the matrix the request would author in matrix mode.
func Matrix(req Request) mgl64.Mat4 {
	return ComposeMatrix(req.Translation, req.Rotation, req.RotationOrder, req.Scale)
}
