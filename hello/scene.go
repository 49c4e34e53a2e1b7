// Package hello authors the demo scene: a root prim, a physics scene, a box,
// a dynamic cube, a static quad and two lights.
package hello

import (
	"os"
	"path/filepath"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/mogaika/hello_stage/stage"
	"github.com/mogaika/hello_stage/xform"
)

const (
	RootPath         = "/Root"
	PhysicsScenePath = RootPath + "/physicsScene"
	DistantLightPath = RootPath + "/DistantLight"
	DomeLightPath    = RootPath + "/DomeLight"

	StageFileName = "helloworld.yaml"
	DomeTexture   = "./Materials/kloofendal_48d_partly_cloudy.hdr"

	// standard gravity in meters per second squared
	gravity = 9.81
)

var (
	ErrNoMesh = errors.New("no mesh found in stage")
)

// Builder authors prims into Stage and saves after each step.
type Builder struct {
	Stage *stage.Stage
	Log   logrus.FieldLogger
	// Live disables checkpoints.
	Live bool
}

func (b *Builder) save() error {
	return errors.Wrapf(b.Stage.Save(), "failed to save stage")
}

// CreateStage creates an empty Y up stage in centimeters inside dir,
// replacing any previous stage file.
func CreateStage(dir string, log logrus.FieldLogger) (*stage.Stage, error) {
	log.Info("Creating stage")
	file := filepath.Join(dir, StageFileName)
	s, err := stage.CreateNew(file)
	if err != nil {
		return nil, err
	}
	if err := s.SetUpAxis(stage.UpAxisY); err != nil {
		return nil, err
	}
	s.SetMetersPerUnit(0.01)
	if err := s.Save(); err != nil {
		return nil, err
	}
	log.Infof("Created stage: %s", file)
	return s, nil
}

// DefineRoot defines the root Xform and makes it the default prim.
func (b *Builder) DefineRoot() error {
	if err := b.Stage.DefinePrim(RootPath, "Xform"); err != nil {
		return err
	}
	return b.Stage.SetDefaultPrim(RootPath)
}

// Gravity derives the gravity of the physics scene from the stage up axis
// and units: (0, -981, 0) for a Y up stage in centimeters.
func Gravity(s *stage.Stage) (direction mgl64.Vec3, magnitude float64) {
	direction = mgl64.Vec3{0, -1, 0}
	if s.UpAxis() == stage.UpAxisZ {
		direction = mgl64.Vec3{0, 0, -1}
	}
	magnitude = gravity
	if mpu := s.MetersPerUnit(); mpu > 0 {
		magnitude /= mpu
	}
	return direction, magnitude
}

func (b *Builder) CreatePhysicsScene() error {
	s := b.Stage
	if err := s.DefinePrim(PhysicsScenePath, "PhysicsScene"); err != nil {
		return err
	}
	direction, magnitude := Gravity(s)
	if err := s.Set(PhysicsScenePath, "physics:gravityDirection", "vector3f", direction, xform.DefaultTime()); err != nil {
		return err
	}
	return s.Set(PhysicsScenePath, "physics:gravityMagnitude", "float", magnitude, xform.DefaultTime())
}

// EnablePhysics applies a collider to the prim, a rigid body when dynamic.
// Meshes collide with their convex hull when dynamic and as is when static.
func (b *Builder) EnablePhysics(path string, dynamic bool) error {
	s := b.Stage
	if dynamic {
		if err := s.ApplyAPI(path, "PhysicsRigidBodyAPI"); err != nil {
			return err
		}
	}
	if err := s.ApplyAPI(path, "PhysicsCollisionAPI"); err != nil {
		return err
	}

	typ, err := s.PrimType(path)
	if err != nil {
		return err
	}
	if typ != "Mesh" {
		return nil
	}
	if err := s.ApplyAPI(path, "PhysicsMeshCollisionAPI"); err != nil {
		return err
	}
	approximation := "none"
	if dynamic {
		approximation = "convexHull"
	}
	return s.Set(path, "physics:approximation", "token", approximation, xform.DefaultTime())
}

// CreateDynamicCube defines /Root/cube lifted above the quad.
func (b *Builder) CreateDynamicCube(size float64) (string, error) {
	s := b.Stage
	path := RootPath + "/cube"
	if err := s.DefinePrim(path, "Cube"); err != nil {
		return "", errors.Wrapf(err, "failure to create cube")
	}

	translate := xform.Op{Type: xform.OpTranslate}
	if err := s.CreateOp(path, translate); err != nil {
		return "", err
	}
	if err := s.SetOpValue(path, translate, mgl64.Vec3{65, 300, 65}, xform.DefaultTime()); err != nil {
		return "", err
	}
	if err := s.Set(path, "size", "double", size, xform.DefaultTime()); err != nil {
		return "", err
	}
	if err := b.EnablePhysics(path, true); err != nil {
		return "", err
	}
	return path, b.save()
}

// CreateQuad defines /Root/quad, a static collider on the ground.
func (b *Builder) CreateQuad(size float64) (string, error) {
	s := b.Stage
	path := RootPath + "/quad"
	if err := s.DefinePrim(path, "Mesh"); err != nil {
		return "", errors.Wrapf(err, "failure to create quad")
	}

	t := xform.DefaultTime()
	points := []mgl64.Vec3{{-size, 0, -size}, {-size, 0, size}, {size, 0, size}, {size, 0, -size}}
	normals := []mgl64.Vec3{{0, 0, 1}, {0, 0, 1}, {0, 0, 1}, {0, 0, 1}}
	if err := s.Set(path, "points", "point3f[]", points, t); err != nil {
		return "", err
	}
	if err := s.Set(path, "faceVertexIndices", "int[]", []int{0, 1, 2, 3}, t); err != nil {
		return "", err
	}
	if err := s.Set(path, "normals", "normal3f[]", normals, t); err != nil {
		return "", err
	}
	if err := s.Set(path, "faceVertexCounts", "int[]", []int{4}, t); err != nil {
		return "", err
	}
	if err := b.EnablePhysics(path, false); err != nil {
		return "", err
	}
	return path, b.save()
}

func (b *Builder) CreateDistantLight() error {
	s := b.Stage
	t := xform.DefaultTime()
	if err := s.DefinePrim(DistantLightPath, "DistantLight"); err != nil {
		return err
	}
	if err := s.Set(DistantLightPath, "inputs:angle", "float", 0.53, t); err != nil {
		return err
	}
	if err := s.Set(DistantLightPath, "inputs:color", "color3f", mgl64.Vec3{1, 1, 0.745}, t); err != nil {
		return err
	}
	if err := s.Set(DistantLightPath, "inputs:intensity", "float", 5000.0, t); err != nil {
		return err
	}
	return b.save()
}

// CreateDomeLight defines a lat-long environment light rotated to Y up.
func (b *Builder) CreateDomeLight(texture string) error {
	s := b.Stage
	t := xform.DefaultTime()
	if err := s.DefinePrim(DomeLightPath, "DomeLight"); err != nil {
		return err
	}
	if err := s.Set(DomeLightPath, "inputs:intensity", "float", 1000.0, t); err != nil {
		return err
	}
	if err := s.Set(DomeLightPath, "inputs:texture:file", "asset", texture, t); err != nil {
		return err
	}
	if err := s.Set(DomeLightPath, "inputs:texture:format", "token", "latlong", t); err != nil {
		return err
	}

	rotate := xform.Op{Type: xform.OpRotateXYZ}
	if err := s.CreateOp(DomeLightPath, rotate); err != nil {
		return err
	}
	if err := s.SetOpValue(DomeLightPath, rotate, mgl64.Vec3{270, 0, 0}, t); err != nil {
		return err
	}
	return b.save()
}

// Checkpoint adds a commented checkpoint of the stage file.
// Live sessions are not checkpointed.
func (b *Builder) Checkpoint(comment string) error {
	if b.Live {
		return nil
	}
	b.Log.Infof("Adding checkpoint comment <%s> to stage <%s>", comment, b.Stage.File())
	_, err := b.Stage.Checkpoint(comment)
	return err
}

// CreateEmptyFolder is an example of plain folder creation next to the stage.
func CreateEmptyFolder(path string, log logrus.FieldLogger) error {
	log.Infof("Creating new folder: %s", path)
	if err := os.MkdirAll(path, 0777); err != nil {
		return errors.Wrapf(err, "failed to create folder %q", path)
	}
	log.Infof("Finished [ %s ]", path)
	return nil
}

// FindGeomMesh returns the path of the first mesh prim of the stage.
func FindGeomMesh(s *stage.Stage) (string, error) {
	for _, path := range s.Traverse() {
		if typ, _ := s.PrimType(path); typ == "Mesh" {
			return path, nil
		}
	}
	return "", errors.Wrapf(ErrNoMesh, "%q", s.File())
}
