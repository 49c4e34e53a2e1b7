// Package stage is a small in-memory scene description: prims addressed by
// path, typed attributes with a default value and time samples, applied API
// schemas and stage metadata. It has no layering or composition.
package stage

import (
	"sort"
	"strings"
	"sync"

	"github.com/pkg/errors"

	"github.com/mogaika/hello_stage/xform"
)

var (
	ErrNoPrim         = errors.New("no prim at path")
	ErrNoAttribute    = errors.New("no such attribute")
	ErrValueType      = errors.New("value does not match attribute type")
	ErrStructuralEdit = errors.New("structural edit inside of an edit block")
	ErrOpExists       = xform.ErrOpExists
)

const (
	UpAxisY = "Y"
	UpAxisZ = "Z"

	OpOrderAttr     = "xformOpOrder"
	ResetXformStack = "!resetXformStack!"
)

type Attribute struct {
	Name          string
	TypeName      string
	Default       interface{}
	HasDefault    bool
	Samples       map[float64]interface{}
	Interpolation string
}

func (a *Attribute) sampleTimes() []float64 {
	times := make([]float64, 0, len(a.Samples))
	for t := range a.Samples {
		times = append(times, t)
	}
	sort.Float64s(times)
	return times
}

// resolve returns the default value for the default time. For sample times
// the closest sample at or before t wins, the first sample is held before it.
func (a *Attribute) resolve(t xform.TimeCode) (interface{}, bool) {
	if t.IsDefault() || len(a.Samples) == 0 {
		return a.Default, a.HasDefault
	}
	times := a.sampleTimes()
	tv := t.Value()
	i := sort.SearchFloat64s(times, tv)
	if i < len(times) && times[i] == tv {
		return a.Samples[tv], true
	}
	if i == 0 {
		return a.Samples[times[0]], true
	}
	return a.Samples[times[i-1]], true
}

type Prim struct {
	Path       string
	TypeName   string
	APISchemas []string
	attributes map[string]*Attribute
	attrOrder  []string
}

func (p *Prim) Name() string {
	return PrimName(p.Path)
}

// Change describes one modification of the stage.
type Change struct {
	Path string
	// Field is an attribute name, or empty for prim level changes.
	Field string
}

type Stage struct {
	mu sync.Mutex

	file          string
	upAxis        string
	metersPerUnit float64
	defaultPrim   string
	comment       string

	prims     map[string]*Prim
	primOrder []string

	editDepth int
	pending   []Change
	listeners []func([]Change)
}

func New() *Stage {
	return &Stage{
		upAxis:        UpAxisY,
		metersPerUnit: 0.01,
		prims:         make(map[string]*Prim),
	}
}

func (s *Stage) File() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.file
}

func (s *Stage) SetUpAxis(axis string) error {
	if axis != UpAxisY && axis != UpAxisZ {
		return errors.Errorf("invalid up axis %q", axis)
	}
	s.mu.Lock()
	s.upAxis = axis
	s.changed(Change{Path: "/", Field: "upAxis"})
	s.mu.Unlock()
	s.flush()
	return nil
}

func (s *Stage) UpAxis() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.upAxis
}

func (s *Stage) SetMetersPerUnit(m float64) {
	s.mu.Lock()
	s.metersPerUnit = m
	s.changed(Change{Path: "/", Field: "metersPerUnit"})
	s.mu.Unlock()
	s.flush()
}

func (s *Stage) MetersPerUnit() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.metersPerUnit
}

func (s *Stage) SetComment(c string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.comment = c
}

func (s *Stage) Comment() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.comment
}

// SetDefaultPrim marks a root prim as the default prim of the stage.
func (s *Stage) SetDefaultPrim(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.prims[path]; !ok {
		return errors.Wrapf(ErrNoPrim, "%q", path)
	}
	if ParentPath(path) != "/" {
		return errors.Errorf("default prim %q is not a root prim", path)
	}
	s.defaultPrim = path
	return nil
}

func (s *Stage) DefaultPrim() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.defaultPrim
}

// DefinePrim creates the prim (and typeless ancestors) or retypes an
// existing one.
func (s *Stage) DefinePrim(path, typeName string) error {
	if err := ValidatePath(path); err != nil {
		return err
	}
	s.mu.Lock()
	if s.editDepth > 0 {
		s.mu.Unlock()
		return errors.Wrapf(ErrStructuralEdit, "define %q", path)
	}
	s.definePrim(path, typeName)
	s.mu.Unlock()
	s.flush()
	return nil
}

func (s *Stage) definePrim(path, typeName string) *Prim {
	if parent := ParentPath(path); parent != "/" {
		if _, ok := s.prims[parent]; !ok {
			s.definePrim(parent, "")
		}
	}
	p, ok := s.prims[path]
	if !ok {
		p = &Prim{Path: path, attributes: make(map[string]*Attribute)}
		s.prims[path] = p
		s.primOrder = append(s.primOrder, path)
	}
	if typeName != "" {
		p.TypeName = typeName
	}
	s.changed(Change{Path: path})
	return p
}

// RemovePrim removes the prim and its descendants.
func (s *Stage) RemovePrim(path string) error {
	s.mu.Lock()
	if s.editDepth > 0 {
		s.mu.Unlock()
		return errors.Wrapf(ErrStructuralEdit, "remove %q", path)
	}
	if _, ok := s.prims[path]; !ok {
		s.mu.Unlock()
		return errors.Wrapf(ErrNoPrim, "%q", path)
	}
	order := s.primOrder[:0]
	for _, p := range s.primOrder {
		if p == path || strings.HasPrefix(p, path+"/") {
			delete(s.prims, p)
			continue
		}
		order = append(order, p)
	}
	s.primOrder = order
	if s.defaultPrim == path {
		s.defaultPrim = ""
	}
	s.changed(Change{Path: path})
	s.mu.Unlock()
	s.flush()
	return nil
}

func (s *Stage) HasPrim(path string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.prims[path]
	return ok
}

func (s *Stage) PrimType(path string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.prims[path]
	if !ok {
		return "", errors.Wrapf(ErrNoPrim, "%q", path)
	}
	return p.TypeName, nil
}

// Traverse returns prim paths depth first, children in definition order.
func (s *Stage) Traverse() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var result []string
	var walk func(parent string)
	walk = func(parent string) {
		for _, c := range s.children(parent) {
			result = append(result, c)
			walk(c)
		}
	}
	walk("/")
	return result
}

func (s *Stage) Children(path string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.children(path)
}

func (s *Stage) children(path string) []string {
	var result []string
	for _, p := range s.primOrder {
		if ParentPath(p) == path {
			result = append(result, p)
		}
	}
	return result
}

func (s *Stage) ApplyAPI(path, schema string) error {
	s.mu.Lock()
	defer s.flush()
	defer s.mu.Unlock()
	p, ok := s.prims[path]
	if !ok {
		return errors.Wrapf(ErrNoPrim, "%q", path)
	}
	for _, a := range p.APISchemas {
		if a == schema {
			return nil
		}
	}
	p.APISchemas = append(p.APISchemas, schema)
	s.changed(Change{Path: path, Field: "apiSchemas"})
	return nil
}

func (s *Stage) HasAPI(path, schema string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.prims[path]
	if !ok {
		return false
	}
	for _, a := range p.APISchemas {
		if a == schema {
			return true
		}
	}
	return false
}

func (s *Stage) APISchemas(path string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.prims[path]; ok {
		return append([]string(nil), p.APISchemas...)
	}
	return nil
}

// CreateAttribute declares an attribute. Declaring an existing attribute with
// the same type is a no-op.
func (s *Stage) CreateAttribute(path, name, typeName string) error {
	s.mu.Lock()
	defer s.flush()
	defer s.mu.Unlock()
	_, err := s.createAttribute(path, name, typeName)
	return err
}

func (s *Stage) createAttribute(path, name, typeName string) (*Attribute, error) {
	p, ok := s.prims[path]
	if !ok {
		return nil, errors.Wrapf(ErrNoPrim, "%q", path)
	}
	if _, known := valueTypes[typeName]; !known {
		return nil, errors.Errorf("unknown attribute type %q for %s.%s", typeName, path, name)
	}
	if a, ok := p.attributes[name]; ok {
		if a.TypeName != typeName {
			return nil, errors.Wrapf(ErrValueType, "%s.%s is %s, not %s", path, name, a.TypeName, typeName)
		}
		return a, nil
	}
	if s.editDepth > 0 {
		return nil, errors.Wrapf(ErrStructuralEdit, "create %s.%s", path, name)
	}
	a := &Attribute{Name: name, TypeName: typeName}
	p.attributes[name] = a
	p.attrOrder = append(p.attrOrder, name)
	s.changed(Change{Path: path, Field: name})
	return a, nil
}

// Set creates the attribute when needed and writes v at time t.
func (s *Stage) Set(path, name, typeName string, v interface{}, t xform.TimeCode) error {
	s.mu.Lock()
	defer s.flush()
	defer s.mu.Unlock()
	a, err := s.createAttribute(path, name, typeName)
	if err != nil {
		return err
	}
	return s.setValue(path, a, v, t)
}

func (s *Stage) setValue(path string, a *Attribute, v interface{}, t xform.TimeCode) error {
	if err := checkValueType(a.TypeName, v); err != nil {
		return errors.Wrapf(err, "%s.%s", path, a.Name)
	}
	if t.IsDefault() {
		a.Default = v
		a.HasDefault = true
	} else {
		if a.Samples == nil {
			a.Samples = make(map[float64]interface{})
		}
		a.Samples[t.Value()] = v
	}
	s.changed(Change{Path: path, Field: a.Name})
	return nil
}

func (s *Stage) SetInterpolation(path, name, interpolation string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, err := s.attribute(path, name)
	if err != nil {
		return err
	}
	a.Interpolation = interpolation
	return nil
}

func (s *Stage) attribute(path, name string) (*Attribute, error) {
	p, ok := s.prims[path]
	if !ok {
		return nil, errors.Wrapf(ErrNoPrim, "%q", path)
	}
	a, ok := p.attributes[name]
	if !ok {
		return nil, errors.Wrapf(ErrNoAttribute, "%s.%s", path, name)
	}
	return a, nil
}

// Get resolves the attribute value at t.
func (s *Stage) Get(path, name string, t xform.TimeCode) (interface{}, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, err := s.attribute(path, name)
	if err != nil {
		return nil, false, err
	}
	v, ok := a.resolve(t)
	return v, ok, nil
}

func (s *Stage) HasAttribute(path, name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.attribute(path, name)
	return err == nil
}

// AttributeNames lists attributes in creation order.
func (s *Stage) AttributeNames(path string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.prims[path]; ok {
		return append([]string(nil), p.attrOrder...)
	}
	return nil
}

func (s *Stage) AttributeType(path, name string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, err := s.attribute(path, name)
	if err != nil {
		return "", err
	}
	return a.TypeName, nil
}

// Subscribe registers fn to be called with every batch of changes.
// Calls happen outside of the stage lock.
func (s *Stage) Subscribe(fn func([]Change)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// changed must be called with the lock held.
func (s *Stage) changed(c Change) {
	for _, p := range s.pending {
		if p == c {
			return
		}
	}
	s.pending = append(s.pending, c)
}

// flush delivers pending changes unless an edit block is open.
func (s *Stage) flush() {
	s.mu.Lock()
	if s.editDepth > 0 || len(s.pending) == 0 {
		s.mu.Unlock()
		return
	}
	changes := s.pending
	s.pending = nil
	listeners := append([]func([]Change){}, s.listeners...)
	s.mu.Unlock()

	for _, l := range listeners {
		l(changes)
	}
}

// EditBlock groups value writes. Change notifications are delivered once the
// outermost block ends.
type EditBlock struct {
	s    *Stage
	once sync.Once
}

func (s *Stage) BeginEdits() xform.EditScope {
	s.mu.Lock()
	s.editDepth++
	s.mu.Unlock()
	return &EditBlock{s: s}
}

func (b *EditBlock) End() {
	b.once.Do(func() {
		b.s.mu.Lock()
		b.s.editDepth--
		b.s.mu.Unlock()
		b.s.flush()
	})
}

func (s *Stage) InEditBlock() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.editDepth > 0
}
