package web

import (
	"bytes"
	"net/http"
	"strconv"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/mogaika/hello_stage/liveedit"
	"github.com/mogaika/hello_stage/stage"
	"github.com/mogaika/hello_stage/utils/gltfutils"
	"github.com/mogaika/hello_stage/webutils"
	"github.com/mogaika/hello_stage/xform"
)

type jsonPrim struct {
	Path string `json:"path"`
	Type string `json:"type"`
}

type jsonStage struct {
	File          string     `json:"file"`
	UpAxis        string     `json:"upAxis"`
	MetersPerUnit float64    `json:"metersPerUnit"`
	DefaultPrim   string     `json:"defaultPrim"`
	Prims         []jsonPrim `json:"prims"`
}

type jsonAttribute struct {
	Name  string      `json:"name"`
	Type  string      `json:"type"`
	Value interface{} `json:"value,omitempty"`
}

type jsonPrimDetails struct {
	jsonPrim
	APISchemas []string        `json:"apiSchemas"`
	Children   []string        `json:"children"`
	Attributes []jsonAttribute `json:"attributes"`
}

type jsonSRT struct {
	Translate mgl64.Vec3 `json:"translate"`
	Rotate    mgl64.Vec3 `json:"rotate"`
	Scale     mgl64.Vec3 `json:"scale"`
}

type jsonXform struct {
	Path            string     `json:"path"`
	Ops             []string   `json:"ops"`
	ResetXformStack bool       `json:"resetXformStack"`
	SRT             jsonSRT    `json:"srt"`
	Local           mgl64.Mat4 `json:"local"`
	World           mgl64.Mat4 `json:"world"`
}

// errorCode maps transform and stage errors to http statuses.
func errorCode(err error) int {
	var target *xform.InvalidTargetError
	var kind *xform.UnresolvedRotationKindError
	var notSupported *xform.NotSupportedError
	switch {
	case errors.As(err, &target), errors.Is(err, stage.ErrNoPrim):
		return http.StatusNotFound
	case errors.As(err, &kind), errors.As(err, &notSupported):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// timeParam reads the optional ?time= query value.
func timeParam(r *http.Request) (xform.TimeCode, error) {
	v := r.URL.Query().Get("time")
	if v == "" {
		return xform.DefaultTime(), nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return xform.TimeCode{}, errors.Errorf("param 'time' %q is not a number", v)
	}
	return xform.At(f), nil
}

func (srv *Server) HandlerStage(w http.ResponseWriter, r *http.Request) {
	s := srv.Stage
	result := jsonStage{
		File:          s.File(),
		UpAxis:        s.UpAxis(),
		MetersPerUnit: s.MetersPerUnit(),
		DefaultPrim:   s.DefaultPrim(),
		Prims:         []jsonPrim{},
	}
	for _, path := range s.Traverse() {
		typ, _ := s.PrimType(path)
		result.Prims = append(result.Prims, jsonPrim{Path: path, Type: typ})
	}
	webutils.WriteJson(w, result)
}

func (srv *Server) HandlerPrim(w http.ResponseWriter, r *http.Request) {
	s := srv.Stage
	path := mux.Vars(r)["path"]
	t, err := timeParam(r)
	if err != nil {
		webutils.WriteErrorCode(w, http.StatusBadRequest, err)
		return
	}
	typ, err := s.PrimType(path)
	if err != nil {
		webutils.WriteErrorCode(w, errorCode(err), err)
		return
	}

	result := jsonPrimDetails{
		jsonPrim:   jsonPrim{Path: path, Type: typ},
		APISchemas: append([]string{}, s.APISchemas(path)...),
		Children:   append([]string{}, s.Children(path)...),
		Attributes: []jsonAttribute{},
	}
	for _, name := range s.AttributeNames(path) {
		attrType, err := s.AttributeType(path, name)
		if err != nil {
			webutils.WriteError(w, err)
			return
		}
		v, _, err := s.Get(path, name, t)
		if err != nil {
			webutils.WriteError(w, err)
			return
		}
		result.Attributes = append(result.Attributes, jsonAttribute{Name: name, Type: attrType, Value: v})
	}
	webutils.WriteJson(w, result)
}

func (srv *Server) xformInfo(path string, t xform.TimeCode) (*jsonXform, error) {
	s := srv.Stage
	ops, reset, err := xform.OpValues(s, path, t)
	if err != nil {
		return nil, err
	}
	result := &jsonXform{Path: path, Ops: []string{}, ResetXformStack: reset}
	for _, op := range ops {
		result.Ops = append(result.Ops, op.Op.Name())
	}
	srt := xform.Decompose(ops, nil)
	result.SRT = jsonSRT{Translate: srt.Translation, Rotate: srt.Rotation, Scale: srt.Scale}
	result.Local = xform.LocalTransform(ops)
	if result.World, err = s.WorldTransform(path, t); err != nil {
		return nil, err
	}
	return result, nil
}

func (srv *Server) HandlerXform(w http.ResponseWriter, r *http.Request) {
	path := mux.Vars(r)["path"]
	t, err := timeParam(r)
	if err != nil {
		webutils.WriteErrorCode(w, http.StatusBadRequest, err)
		return
	}
	if !srv.Stage.HasPrim(path) {
		err := &xform.InvalidTargetError{Path: path}
		webutils.WriteErrorCode(w, errorCode(err), err)
		return
	}
	result, err := srv.xformInfo(path, t)
	if err != nil {
		webutils.WriteErrorCode(w, errorCode(err), err)
		return
	}
	webutils.WriteJson(w, result)
}

// HandlerActionXform composes the posted request onto the prim.
// ?skipRedundant=1 skips writes equal to the current time sample.
func (srv *Server) HandlerActionXform(w http.ResponseWriter, r *http.Request) {
	path := mux.Vars(r)["path"]
	var body liveedit.RequestFile
	if err := webutils.ReadJson(r, &body); err != nil {
		webutils.WriteErrorCode(w, http.StatusBadRequest, err)
		return
	}
	req, err := body.Request()
	if err != nil {
		webutils.WriteErrorCode(w, http.StatusBadRequest, err)
		return
	}
	skip, _ := strconv.ParseBool(r.URL.Query().Get("skipRedundant"))

	srv.EditLock.Lock()
	err = srv.apply(path, req, skip)
	srv.EditLock.Unlock()
	if err != nil {
		srv.Log.Errorf("Failed to transform %q: %v", path, err)
		if srv.Hub != nil {
			srv.Hub.Error("Failed to transform %s: %v", path, err)
		}
		webutils.WriteErrorCode(w, errorCode(err), err)
		return
	}
	if srv.Hub != nil {
		srv.Hub.Info("Transformed %s", path)
	}

	result, err := srv.xformInfo(path, req.Time)
	if err != nil {
		webutils.WriteError(w, err)
		return
	}
	webutils.WriteJson(w, result)
}

func (srv *Server) apply(path string, req xform.Request, skip bool) error {
	c, err := xform.NewComposer(srv.Stage, path, srv.Log)
	if err != nil {
		return err
	}
	return c.Apply(req, skip)
}

func (srv *Server) HandlerActionSave(w http.ResponseWriter, r *http.Request) {
	srv.EditLock.Lock()
	err := srv.Stage.Save()
	srv.EditLock.Unlock()
	if err != nil {
		webutils.WriteError(w, errors.Wrapf(err, "failed to save stage"))
		return
	}
	srv.Log.Infof("Saved %s", srv.Stage.File())
	if srv.Hub != nil {
		srv.Hub.Info("Saved %s", srv.Stage.File())
	}
	webutils.WriteJson(w, map[string]string{"file": srv.Stage.File()})
}

func (srv *Server) HandlerDumpGlb(w http.ResponseWriter, r *http.Request) {
	t, err := timeParam(r)
	if err != nil {
		webutils.WriteErrorCode(w, http.StatusBadRequest, err)
		return
	}
	var buf bytes.Buffer
	if err := gltfutils.ExportStage(&buf, srv.Stage, t); err != nil {
		webutils.WriteError(w, errors.Wrapf(err, "Error converting to glb"))
		return
	}
	webutils.WriteFile(w, &buf, "stage.glb")
}

func (srv *Server) HandlerDumpYaml(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := srv.Stage.Export(&buf); err != nil {
		webutils.WriteError(w, err)
		return
	}
	webutils.WriteFile(w, &buf, "stage.yaml")
}
