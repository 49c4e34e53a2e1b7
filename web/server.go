package web

import (
	"net/http"
	"sync"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/mogaika/hello_stage/stage"
	"github.com/mogaika/hello_stage/status"
)

// Server exposes a stage over http. Transform edits are serialized.
type Server struct {
	Stage *stage.Stage
	Hub   *status.Hub
	Log   logrus.FieldLogger
	// EditLock serializes transform edits and saves.
	EditLock sync.Locker

	handler http.Handler
}

func NewServer(s *stage.Stage, hub *status.Hub, log logrus.FieldLogger) *Server {
	srv := &Server{Stage: s, Hub: hub, Log: log, EditLock: &sync.Mutex{}}

	r := mux.NewRouter()
	r.HandleFunc("/json/stage", srv.HandlerStage).Methods("GET")
	r.HandleFunc("/json/prim{path:/.*}", srv.HandlerPrim).Methods("GET")
	r.HandleFunc("/json/xform{path:/.*}", srv.HandlerXform).Methods("GET")
	r.HandleFunc("/action/xform{path:/.*}", srv.HandlerActionXform).Methods("POST")
	r.HandleFunc("/action/save", srv.HandlerActionSave).Methods("POST")
	r.HandleFunc("/dump/stage.glb", srv.HandlerDumpGlb).Methods("GET")
	r.HandleFunc("/dump/stage.yaml", srv.HandlerDumpYaml).Methods("GET")
	if hub != nil {
		r.HandleFunc("/ws/status", hub.ServeWS)
	}

	h := handlers.RecoveryHandler(handlers.PrintRecoveryStack(true))(r)
	access := log.WithField("component", "access").WriterLevel(logrus.DebugLevel)
	srv.handler = handlers.LoggingHandler(access, h)
	return srv
}

// Handler returns the router wrapped with panic recovery and access logging.
func (srv *Server) Handler() http.Handler {
	return srv.handler
}

func (srv *Server) ListenAndServe(addr string) error {
	srv.Log.Infof("Starting server %v", addr)
	return http.ListenAndServe(addr, srv.Handler())
}
