// Package liveedit moves a prim around interactively, either from single key
// presses or from a watched request file.
package liveedit

import (
	"bufio"
	"io"
	"math"
	"sync"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/mogaika/hello_stage/stage"
	"github.com/mogaika/hello_stage/utils"
	"github.com/mogaika/hello_stage/xform"
)

const (
	KeyMove   = 't'
	KeyQuit   = 'q'
	KeyEscape = 27

	// AngleStep is the rotation in degrees added by every move.
	AngleStep = 15
	// Radius of the circle the prim moves on.
	Radius = 100
)

type Editor struct {
	Stage *stage.Stage
	Path  string
	Log   logrus.FieldLogger

	mu    sync.Mutex
	angle float64
}

func NewEditor(s *stage.Stage, path string, log logrus.FieldLogger) (*Editor, error) {
	if !s.HasPrim(path) {
		return nil, &xform.InvalidTargetError{Path: path}
	}
	return &Editor{Stage: s, Path: path, Log: log}, nil
}

func (e *Editor) Angle() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.angle
}

// Locker is held during every edit. Other writers of the stage share it.
func (e *Editor) Locker() sync.Locker {
	return &e.mu
}

// Apply composes req onto the prim and saves the stage.
func (e *Editor) Apply(req xform.Request) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.apply(req)
}

func (e *Editor) apply(req xform.Request) error {
	c, err := xform.NewComposer(e.Stage, e.Path, e.Log)
	if err != nil {
		return err
	}
	if err := c.Do(req); err != nil {
		return errors.Wrapf(err, "failed to transform %q", e.Path)
	}
	return errors.Wrapf(e.Stage.Save(), "failed to save stage")
}

// Move advances the angle and steps the prim along a circle, facing the
// direction of the angle.
func (e *Editor) Move() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.angle = math.Mod(e.angle+AngleStep, 360)
	radians := mgl64.DegToRad(e.angle)
	x := math.Sin(radians) * Radius
	z := math.Cos(radians) * Radius

	srt, err := xform.DecomposePrim(e.Stage, e.Path, xform.DefaultTime(), nil)
	if err != nil {
		return err
	}
	translate := srt.Translation.Add(mgl64.Vec3{x, 0, z})
	rotate := mgl64.Vec3{srt.Rotation[0], e.angle, srt.Rotation[2]}

	e.Log.Infof("Setting pos [%.2f, %.2f, %.2f] and rot [%.2f, %.2f, %.2f]",
		translate[0], translate[1], translate[2], rotate[0], rotate[1], rotate[2])

	return e.apply(xform.Request{
		Translation:   translate,
		Rotation:      rotate,
		RotationOrder: xform.OrderXYZ,
		Scale:         srt.Scale,
		Time:          xform.DefaultTime(),
	})
}

// Step handles one key. It returns true once editing is over.
func (e *Editor) Step(key byte) (bool, error) {
	switch key {
	case KeyMove:
		return false, e.Move()
	case KeyQuit, KeyEscape:
		e.Log.Info("Live edit complete")
		return true, nil
	case '\n', '\r':
		return false, nil
	}
	e.Log.Info("Enter 't' to transform or 'q' to quit.")
	return false, nil
}

// Run reads keys from r until quit or the end of input.
func (e *Editor) Run(r io.Reader) error {
	e.Log.Infof("Begin Live Edit on %s - Press 't' to move the box", e.Path)
	e.Log.Info("Press 'q' or escape to quit")
	utils.LogDump(e.Log, "initial transform", e.currentOps())

	br := bufio.NewReader(r)
	for {
		key, err := br.ReadByte()
		if err == io.EOF {
			return nil
		} else if err != nil {
			return errors.Wrapf(err, "failed to read key")
		}
		done, err := e.Step(key)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
	}
}

func (e *Editor) currentOps() []xform.OpValue {
	ops, _, err := xform.OpValues(e.Stage, e.Path, xform.DefaultTime())
	if err != nil {
		return nil
	}
	return ops
}
