package utils

import (
	"bytes"
	"fmt"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestLogFormatter(t *testing.T) {
	var buf bytes.Buffer
	log := NewLoggerTo(&buf, "HelloStage", logrus.InfoLevel, true)
	log.WithField("prim", "/Root/box_0").Warnf("value not set %d", 1)
	log.Debug("hidden")

	line := buf.String()
	assert.Regexp(t, `^\[\d{4}-\d\d-\d\d \d\d:\d\d:\d\d HelloStage \(WARNING\)\] value not set 1 prim=/Root/box_0\n$`, line)

	buf.Reset()
	colored := NewLoggerTo(&buf, "HelloStage", logrus.InfoLevel, false)
	colored.Error("boom")
	assert.Contains(t, buf.String(), colorRed)
	assert.Contains(t, buf.String(), colorClear+"\n")
}

func TestRandomNames(t *testing.T) {
	SeedNames(1)
	var rng RandomNameGenerator
	seen := map[string]bool{}
	for i := 0; i < 20; i++ {
		name := rng.RandomName()
		assert.NotEmpty(t, name)
		assert.False(t, seen[name], name)
		seen[name] = true
	}
}

func TestAngles(t *testing.T) {
	v := mgl64.Vec3{90, -45, 180}
	r := DegreeToRadiansV3(v)
	assert.InDelta(t, math.Pi/2, r[0], 1e-15)
	assertNear(t, v, RadiansToDegreeV3(r), 1e-12)

	var tests = []struct {
		in, out float64
	}{
		{0, 0}, {180, 180}, {-180, 180}, {190, -170}, {360, 0}, {375, 15}, {-735, -15},
	}
	for _, test := range tests {
		assert.InDelta(t, test.out, NormalizeDegrees(test.in), 1e-12, "%v", test.in)
	}
}

func TestEulerQuat(t *testing.T) {
	e := DegreeToRadiansV3(mgl64.Vec3{10, 20, 30})
	q := EulerToQuat(e)
	want := mgl64.QuatRotate(e[2], mgl64.Vec3{0, 0, 1}).
		Mul(mgl64.QuatRotate(e[1], mgl64.Vec3{0, 1, 0})).
		Mul(mgl64.QuatRotate(e[0], mgl64.Vec3{1, 0, 0}))
	assertNear(t, want, q, 1e-12, "%v != %v", q, want)
	assertNear(t, e, QuatToEuler(q), 1e-12)
}

// assertNear compares vectors, matrices and quaternions component wise
// within an absolute delta.
func assertNear(t *testing.T, want, got interface{}, delta float64, msgAndArgs ...interface{}) {
	t.Helper()
	assert.InDeltaSlice(t, components(want), components(got), delta, msgAndArgs...)
}

func components(v interface{}) []float64 {
	switch v := v.(type) {
	case mgl64.Vec3:
		return v[:]
	case mgl64.Mat4:
		return v[:]
	case mgl64.Quat:
		return []float64{v.W, v.V[0], v.V[1], v.V[2]}
	}
	panic(fmt.Sprintf("no components for %T", v))
}
