package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httplog"

	"browserx/internal/application/port/input"
	"browserx/internal/application/port/output"
	"browserx/internal/domain/entity"
	"browserx/internal/infrastructure/userinteraction"
)

// ErrBusy is returned when a run is requested while another one is active.
var ErrBusy = errors.New("an agent run is already in progress")

// PromptBroker answers the blocking prompts of the active run.
type PromptBroker interface {
	output.CredentialPrompter
	output.HumanIntervention
	Pending() []userinteraction.Prompt
	Resolve(id string, cred *entity.Credential) error
	Reject(id string) error
}

type Config struct {
	Addr     string
	JSONLogs bool
	// ShutdownTimeout bounds the graceful shutdown of ListenAndServe.
	ShutdownTimeout time.Duration
}

type Deps struct {
	Runner  input.AgentRunner
	Planner output.Planner
	Prompts PromptBroker
	// Sink receives the progress lines of every run, Stream serves them.
	Sink    output.LogSink
	Stream  http.Handler
	Metrics http.Handler
	Logger  output.LoggerPort
}

// Server is the HTTP control plane: it plans goals, runs them one at a
// time, stops them and answers their prompts.
type Server struct {
	cfg    Config
	deps   Deps
	router chi.Router

	mu      sync.Mutex
	stop    *entity.StopSignal
	base    context.Context
	running bool
}

func New(cfg Config, deps Deps) *Server {
	if deps.Sink == nil {
		deps.Sink = output.LogSinkFunc(func(string) {})
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	s := &Server{cfg: cfg, deps: deps, base: context.Background()}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(httplog.RequestLogger(httplog.NewLogger("browserx", httplog.Options{
		JSON:    s.cfg.JSONLogs,
		Concise: true,
	})))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/plan", s.handlePlan)
		r.Post("/run", s.handleRun)
		r.Post("/stop", s.handleStop)
		r.Get("/prompts", s.handlePrompts)
		r.Post("/prompts/{id}/resolve", s.handleResolve)
		r.Post("/prompts/{id}/reject", s.handleReject)
	})

	if s.deps.Stream != nil {
		r.Get("/ws", s.deps.Stream.ServeHTTP)
	}
	if s.deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.deps.Metrics)
	}
	return r
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves until ctx is done, then shuts down gracefully and
// stops the active run.
func (s *Server) ListenAndServe(ctx context.Context) error {
	s.mu.Lock()
	s.base = ctx
	s.mu.Unlock()

	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.deps.Logger.Info("Control server listening", "addr", s.cfg.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.stopActive()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown control server: %w", err)
	}
	<-errCh
	return nil
}

type planRequest struct {
	Goal string `json:"goal"`
}

type runRequest struct {
	Goal string       `json:"goal"`
	Plan *entity.Plan `json:"plan"`
}

type credentialRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type response struct {
	Success     bool                     `json:"success"`
	Error       string                   `json:"error,omitempty"`
	Plan        *entity.Plan             `json:"plan,omitempty"`
	Summary     string                   `json:"summary,omitempty"`
	SessionID   string                   `json:"sessionId,omitempty"`
	Steps       int                      `json:"steps,omitempty"`
	IsUserStop  bool                     `json:"isUserStop,omitempty"`
	IsCancelled bool                     `json:"isCancelled,omitempty"`
	Prompts     []userinteraction.Prompt `json:"prompts,omitempty"`
}

func (s *Server) handlePlan(w http.ResponseWriter, r *http.Request) {
	if s.deps.Planner == nil {
		writeJSON(w, http.StatusServiceUnavailable, response{Error: "planner is not configured"})
		return
	}
	var req planRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, response{Error: fmt.Sprintf("invalid request body: %v", err)})
		return
	}
	if strings.TrimSpace(req.Goal) == "" {
		writeJSON(w, http.StatusBadRequest, response{Error: "goal is required"})
		return
	}

	s.deps.Sink.Log("Agent is thinking about a plan...")
	plan, err := s.deps.Planner.CreatePlan(r.Context(), req.Goal)
	if err != nil {
		s.deps.Sink.Log(fmt.Sprintf("FAILED TO CREATE PLAN: %v", err))
		writeJSON(w, http.StatusInternalServerError, response{Error: err.Error()})
		return
	}
	s.deps.Sink.Log("Plan received. Please review and confirm.")
	writeJSON(w, http.StatusOK, response{Success: true, Plan: plan})
}

// handleRun blocks until the run ends. The run is not tied to the request
// so a dropped client does not abort it; use /api/stop instead.
func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	var req runRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, response{Error: fmt.Sprintf("invalid request body: %v", err)})
		return
	}
	goal := strings.TrimSpace(req.Goal)
	if goal == "" && req.Plan != nil {
		goal = req.Plan.TaskSummary
	}
	if goal == "" {
		writeJSON(w, http.StatusBadRequest, response{Error: "goal or plan.taskSummary is required"})
		return
	}

	stop, base, err := s.begin()
	if err != nil {
		writeJSON(w, http.StatusConflict, response{Error: err.Error()})
		return
	}
	defer s.end()

	s.deps.Sink.Log(fmt.Sprintf("Handing off to Autonomous Agent to execute goal: %q", goal))
	res, err := s.deps.Runner.Run(base, input.RunRequest{
		Goal:        goal,
		Plan:        req.Plan,
		Sink:        s.deps.Sink,
		Stop:        stop,
		Credentials: s.deps.Prompts,
		Human:       s.deps.Prompts,
	})
	if err != nil {
		resp := response{
			Error:       err.Error(),
			IsUserStop:  entity.IsUserStop(err),
			IsCancelled: entity.IsCancelled(err),
		}
		if resp.IsUserStop {
			s.deps.Sink.Log("Agent execution has been stopped by the user.")
		}
		s.deps.Sink.Log(fmt.Sprintf("FINAL ERROR: %v", err))
		writeJSON(w, http.StatusInternalServerError, resp)
		return
	}

	writeJSON(w, http.StatusOK, response{
		Success:   true,
		Summary:   res.Summary,
		SessionID: res.SessionID,
		Steps:     res.Steps,
	})
}

func (s *Server) handleStop(w http.ResponseWriter, _ *http.Request) {
	s.deps.Sink.Log("Stop signal received. Halting agent...")
	s.stopActive()
	writeJSON(w, http.StatusOK, response{Success: true})
}

func (s *Server) handlePrompts(w http.ResponseWriter, _ *http.Request) {
	if s.deps.Prompts == nil {
		writeJSON(w, http.StatusOK, response{Success: true})
		return
	}
	writeJSON(w, http.StatusOK, response{Success: true, Prompts: s.deps.Prompts.Pending()})
}

func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	if s.deps.Prompts == nil {
		writeJSON(w, http.StatusNotFound, response{Error: userinteraction.ErrPromptNotFound.Error()})
		return
	}

	var cred *entity.Credential
	if r.ContentLength != 0 {
		var req credentialRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, response{Error: fmt.Sprintf("invalid request body: %v", err)})
			return
		}
		if req.Username != "" || req.Password != "" {
			cred = &entity.Credential{Username: req.Username, Password: req.Password}
		}
	}

	if err := s.deps.Prompts.Resolve(chi.URLParam(r, "id"), cred); err != nil {
		writeJSON(w, promptStatus(err), response{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, response{Success: true})
}

func (s *Server) handleReject(w http.ResponseWriter, r *http.Request) {
	if s.deps.Prompts == nil {
		writeJSON(w, http.StatusNotFound, response{Error: userinteraction.ErrPromptNotFound.Error()})
		return
	}
	if err := s.deps.Prompts.Reject(chi.URLParam(r, "id")); err != nil {
		writeJSON(w, promptStatus(err), response{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, response{Success: true})
}

func (s *Server) begin() (*entity.StopSignal, context.Context, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil, nil, ErrBusy
	}
	s.running = true
	s.stop = entity.NewStopSignal()
	return s.stop, s.base, nil
}

func (s *Server) end() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = false
	s.stop = nil
}

func (s *Server) stopActive() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stop != nil {
		s.stop.Stop()
	}
}

// Running reports whether a run is active.
func (s *Server) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func promptStatus(err error) int {
	if errors.Is(err, userinteraction.ErrPromptNotFound) {
		return http.StatusNotFound
	}
	return http.StatusBadRequest
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
