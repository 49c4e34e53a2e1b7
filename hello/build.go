package hello

import (
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/mogaika/hello_stage/stage"
)

type Options struct {
	// Dir is the folder receiving the stage file.
	Dir  string
	Live bool
	User string
}

func LogConnectedUsername(log logrus.FieldLogger, user string) {
	if user != "" {
		log.Infof("Connected username: %s", user)
	}
}

// Build creates a new stage with the demo scene and returns it together
// with the path of the box mesh.
func Build(opts Options, log logrus.FieldLogger) (*stage.Stage, string, error) {
	s, err := CreateStage(opts.Dir, log)
	if err != nil {
		return nil, "", err
	}
	LogConnectedUsername(log, opts.User)

	b := &Builder{Stage: s, Log: log, Live: opts.Live}
	if err := b.DefineRoot(); err != nil {
		return nil, "", err
	}
	if err := b.CreatePhysicsScene(); err != nil {
		return nil, "", err
	}
	box, err := b.CreateBox(0)
	if err != nil {
		return nil, "", err
	}
	if _, err := b.CreateDynamicCube(100); err != nil {
		return nil, "", err
	}
	// static triangle mesh for the box and the cube to fall on
	if _, err := b.CreateQuad(500); err != nil {
		return nil, "", err
	}
	if err := b.Checkpoint("Add box and nothing else"); err != nil {
		return nil, "", err
	}

	if err := b.CreateDistantLight(); err != nil {
		return nil, "", err
	}
	if err := b.CreateDomeLight(DomeTexture); err != nil {
		return nil, "", err
	}
	if err := b.Checkpoint("Add lights to stage"); err != nil {
		return nil, "", err
	}

	if err := CreateEmptyFolder(filepath.Join(opts.Dir, "EmptyFolder"), log); err != nil {
		return nil, "", err
	}
	return s, box, nil
}

// OpenExisting opens a stage file and finds the mesh to edit.
func OpenExisting(file string, log logrus.FieldLogger) (*stage.Stage, string, error) {
	log.Debugf("Stage file: %s", file)
	s, err := stage.Open(file)
	if err != nil {
		return nil, "", err
	}
	mesh, err := FindGeomMesh(s)
	if err != nil {
		return nil, "", err
	}
	return s, mesh, nil
}
