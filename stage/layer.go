package stage

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/mogaika/hello_stage/xform"
)

type layerSample struct {
	Time  float64    `yaml:"time"`
	Value yaml.Node `yaml:"value"`
}

type layerAttribute struct {
	Name          string        `yaml:"name"`
	Type          string        `yaml:"type"`
	Default       yaml.Node     `yaml:"default,omitempty"`
	TimeSamples   []layerSample `yaml:"timeSamples,omitempty"`
	Interpolation string        `yaml:"interpolation,omitempty"`
}

type layerPrim struct {
	Path       string           `yaml:"path"`
	Type       string           `yaml:"type,omitempty"`
	APISchemas []string         `yaml:"apiSchemas,omitempty"`
	Attributes []layerAttribute `yaml:"attributes,omitempty"`
}

type layer struct {
	Comment       string      `yaml:"comment,omitempty"`
	UpAxis        string      `yaml:"upAxis"`
	MetersPerUnit float64     `yaml:"metersPerUnit"`
	DefaultPrim   string      `yaml:"defaultPrim,omitempty"`
	Prims         []layerPrim `yaml:"prims"`
}

func valueNode(v interface{}) (yaml.Node, error) {
	var n yaml.Node
	if err := n.Encode(encodeValue(v)); err != nil {
		return n, err
	}
	if len(n.Content) > 0 && n.Kind == yaml.SequenceNode {
		n.Style = yaml.FlowStyle
	}
	return n, nil
}

func (s *Stage) toLayer() (*layer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l := &layer{
		Comment:       s.comment,
		UpAxis:        s.upAxis,
		MetersPerUnit: s.metersPerUnit,
		Prims:         make([]layerPrim, 0, len(s.primOrder)),
	}
	if s.defaultPrim != "" {
		l.DefaultPrim = s.defaultPrim[1:]
	}

	for _, path := range s.primOrder {
		p := s.prims[path]
		lp := layerPrim{Path: p.Path, Type: p.TypeName, APISchemas: p.APISchemas}
		for _, name := range p.attrOrder {
			a := p.attributes[name]
			la := layerAttribute{Name: a.Name, Type: a.TypeName, Interpolation: a.Interpolation}
			if a.HasDefault {
				n, err := valueNode(a.Default)
				if err != nil {
					return nil, errors.Wrapf(err, "failed to encode %s.%s", path, name)
				}
				la.Default = n
			}
			for _, t := range a.sampleTimes() {
				n, err := valueNode(a.Samples[t])
				if err != nil {
					return nil, errors.Wrapf(err, "failed to encode %s.%s at %v", path, name, t)
				}
				la.TimeSamples = append(la.TimeSamples, layerSample{Time: t, Value: n})
			}
			lp.Attributes = append(lp.Attributes, la)
		}
		l.Prims = append(l.Prims, lp)
	}
	return l, nil
}

// Export writes the stage as a yaml layer.
func (s *Stage) Export(w io.Writer) error {
	l, err := s.toLayer()
	if err != nil {
		return err
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(l); err != nil {
		return errors.Wrapf(err, "failed to encode layer")
	}
	return enc.Close()
}

// Read parses a yaml layer into a new stage.
func Read(r io.Reader) (*Stage, error) {
	var l layer
	if err := yaml.NewDecoder(r).Decode(&l); err != nil {
		return nil, errors.Wrapf(err, "failed to decode layer")
	}

	s := New()
	if l.UpAxis != "" {
		if err := s.SetUpAxis(l.UpAxis); err != nil {
			return nil, err
		}
	}
	if l.MetersPerUnit != 0 {
		s.metersPerUnit = l.MetersPerUnit
	}
	s.comment = l.Comment

	for _, lp := range l.Prims {
		if err := ValidatePath(lp.Path); err != nil {
			return nil, err
		}
		p := s.definePrim(lp.Path, lp.Type)
		p.APISchemas = append(p.APISchemas, lp.APISchemas...)
		for _, la := range lp.Attributes {
			a, err := s.createAttribute(lp.Path, la.Name, la.Type)
			if err != nil {
				return nil, err
			}
			a.Interpolation = la.Interpolation
			// a missing default leaves the node kind unset
			if la.Default.Kind != 0 {
				v, err := decodeValue(la.Type, &la.Default)
				if err != nil {
					return nil, errors.Wrapf(err, "failed to decode %s.%s", lp.Path, la.Name)
				}
				a.Default, a.HasDefault = v, true
			}
			for i := range la.TimeSamples {
				ls := &la.TimeSamples[i]
				v, err := decodeValue(la.Type, &ls.Value)
				if err != nil {
					return nil, errors.Wrapf(err, "failed to decode %s.%s at %v", lp.Path, la.Name, ls.Time)
				}
				if a.Samples == nil {
					a.Samples = make(map[float64]interface{})
				}
				a.Samples[ls.Time] = v
			}
		}
	}
	if l.DefaultPrim != "" {
		if err := s.SetDefaultPrim("/" + l.DefaultPrim); err != nil {
			return nil, err
		}
	}
	// loading is not an edit
	s.pending = nil
	return s, nil
}

// CreateNew returns an empty stage bound to file, removing any previous file.
func CreateNew(file string) (*Stage, error) {
	if err := os.Remove(file); err != nil && !os.IsNotExist(err) {
		return nil, errors.Wrapf(err, "failed to remove %q", file)
	}
	if err := os.MkdirAll(filepath.Dir(file), 0777); err != nil {
		return nil, errors.Wrapf(err, "failed to create folder for %q", file)
	}
	s := New()
	s.file = file
	return s, s.Save()
}

func Open(file string) (*Stage, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to open stage %q", file)
	}
	defer f.Close()
	s, err := Read(f)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to read stage %q", file)
	}
	s.file = file
	return s, nil
}

func (s *Stage) Save() error {
	file := s.File()
	if file == "" {
		return errors.New("stage has no file to save to")
	}
	return s.SaveAs(file)
}

// SaveAs writes the layer next to file and renames it into place.
func (s *Stage) SaveAs(file string) error {
	var buf bytes.Buffer
	if err := s.Export(&buf); err != nil {
		return err
	}
	tmp := file + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0666); err != nil {
		return errors.Wrapf(err, "failed to write %q", tmp)
	}
	if err := os.Rename(tmp, file); err != nil {
		return errors.Wrapf(err, "failed to move %q to %q", tmp, file)
	}
	return nil
}

// CheckpointDir is the folder keeping the checkpoints of the stage file.
func CheckpointDir(file string) string {
	return file + ".checkpoints"
}

type Checkpoint struct {
	File    string
	Comment string
	Time    time.Time
}

// Checkpoint saves the stage and stores a numbered copy with a comment.
func (s *Stage) Checkpoint(comment string) (string, error) {
	if err := s.Save(); err != nil {
		return "", err
	}
	file := s.File()
	dir := CheckpointDir(file)
	if err := os.MkdirAll(dir, 0777); err != nil {
		return "", errors.Wrapf(err, "failed to create %q", dir)
	}
	existing, err := ListCheckpoints(file)
	if err != nil {
		return "", err
	}

	prevComment := s.Comment()
	s.SetComment(comment)
	defer s.SetComment(prevComment)

	name := fmt.Sprintf("%04d_%s.yaml", len(existing)+1, MakeValidIdentifier(comment))
	target := filepath.Join(dir, name)
	if err := s.SaveAs(target); err != nil {
		return "", err
	}
	return target, nil
}

// ListCheckpoints returns the checkpoints of a stage file, oldest first.
func ListCheckpoints(file string) ([]Checkpoint, error) {
	entries, err := os.ReadDir(CheckpointDir(file))
	if os.IsNotExist(err) {
		return nil, nil
	} else if err != nil {
		return nil, errors.Wrapf(err, "failed to list checkpoints of %q", file)
	}
	var result []Checkpoint
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".yaml") {
			continue
		}
		path := filepath.Join(CheckpointDir(file), e.Name())
		cp := Checkpoint{File: path}
		if info, err := e.Info(); err == nil {
			cp.Time = info.ModTime()
		}
		if f, err := os.Open(path); err == nil {
			var l layer
			if yaml.NewDecoder(f).Decode(&l) == nil {
				cp.Comment = l.Comment
			}
			f.Close()
		}
		result = append(result, cp)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].File < result[j].File })
	return result, nil
}

// Snapshot returns a copy of the stage that shares nothing with s.
func (s *Stage) Snapshot() (*Stage, error) {
	var buf bytes.Buffer
	if err := s.Export(&buf); err != nil {
		return nil, err
	}
	c, err := Read(&buf)
	if err != nil {
		return nil, err
	}
	c.file = s.File()
	return c, nil
}

var _ xform.Stage = (*Stage)(nil)
