package service

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"miner-submission-server/config"
	"miner-submission-server/pkgs/helpers"
	"miner-submission-server/pkgs/store"
	"miner-submission-server/pkgs/verifier"
)

// Fallback task advertised when the tasks table has no active row.
const (
	defaultTaskID               = "task-prod-001"
	defaultPerformanceThreshold = 0.90
	defaultValidationDataHash   = "deadbeef..."
)

// Database is the slice of the durable store the HTTP layer touches
// directly: task discovery and reachability. The verification pipeline
// holds its own handles for key lookup and the ledger.
type Database interface {
	ActiveTask(ctx context.Context) (*store.Task, error)
	Ping(ctx context.Context) error
}

// Pinger reports backend reachability for the health endpoint.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server exposes the submission gate over HTTP: task discovery on
// /get_task, the verification pipeline on /submit, and backend health
// on /health.
type Server struct {
	pipeline *verifier.Pipeline
	db       Database
	replay   Pinger
	reporter *helpers.ReportingService
	srv      *http.Server
}

// NewServer wires the HTTP routes. The reporter may be nil, in which case
// rejections are only logged.
func NewServer(settings *config.Settings, pipeline *verifier.Pipeline, db Database, replay Pinger, reporter *helpers.ReportingService) *Server {
	s := &Server{
		pipeline: pipeline,
		db:       db,
		replay:   replay,
		reporter: reporter,
	}

	r := chi.NewRouter()
	r.Get("/get_task", s.handleGetTask)
	r.Post("/submit", s.handleSubmit)
	r.Get("/health", s.handleHealth)

	s.srv = &http.Server{Addr: settings.BindAddr, Handler: r}
	return s
}

// Start blocks serving requests until Shutdown is called or the listener
// fails. Returns http.ErrServerClosed after a graceful shutdown.
func (s *Server) Start() error {
	log.Infof("Submission server listening at %s", s.srv.Addr)
	return s.srv.ListenAndServe()
}

// Shutdown stops accepting new connections and drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	task, err := s.db.ActiveTask(r.Context())
	if errors.Is(err, store.ErrNoActiveTask) {
		task = &store.Task{
			TaskID:               defaultTaskID,
			PerformanceThreshold: defaultPerformanceThreshold,
			ValidationDataHash:   defaultValidationDataHash,
		}
	} else if err != nil {
		log.Errorf("Active task lookup failed: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "db_error"})
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	resp := struct {
		Status   string `json:"status"`
		Redis    string `json:"redis"`
		Postgres string `json:"postgres"`
	}{Status: "ok", Redis: "ok", Postgres: "ok"}

	code := http.StatusOK
	if err := s.replay.Ping(ctx); err != nil {
		resp.Status, resp.Redis = "degraded", "unreachable"
		code = http.StatusServiceUnavailable
	}
	if err := s.db.Ping(ctx); err != nil {
		resp.Status, resp.Postgres = "degraded", "unreachable"
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Errorln("Error encoding response: ", err)
	}
}
