package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/cors"

	"mxf2proxy/internal/config"
	"mxf2proxy/internal/history"
	"mxf2proxy/internal/logging"
	"mxf2proxy/internal/prompt"
	"mxf2proxy/internal/queue"
	"mxf2proxy/internal/services"
)

// apiBackend is the daemon surface the HTTP API serves.
type apiBackend interface {
	Submit(ctx context.Context, source string) (queue.Job, bool, error)
	Status(ctx context.Context) Status
	Prompts() []prompt.Pending
	Answer(id string, answer prompt.Answer) error
	History(ctx context.Context, limit int) ([]history.JobRecord, error)
}

type apiServer struct {
	bind    string
	logger  *slog.Logger
	backend apiBackend

	listener net.Listener
	server   *http.Server
}

// SubmitRequest is the body of POST /api/sources.
type SubmitRequest struct {
	Path string `json:"path"`
}

// SubmitResponse reports the queued job.
type SubmitResponse struct {
	Job   queue.Job `json:"job"`
	Added bool     `json:"added"`
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) (*apiServer, error) {
	if cfg == nil || d == nil {
		return nil, nil
	}
	bind := strings.TrimSpace(cfg.Paths.APIBind)
	if bind == "" {
		return nil, nil
	}
	srv := &apiServer{
		bind:    bind,
		logger:  logger,
		backend: d,
	}
	srv.server = &http.Server{
		Handler:           srv.router(cfg.API.AllowedOrigins, cfg.Paths.APIToken),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv, nil
}

func (s *apiServer) router(origins []string, token string) http.Handler {
	r := chi.NewRouter()
	corsMw := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type", requestIDHeader},
		ExposedHeaders: []string{requestIDHeader},
	})
	r.Use(corsMw.Handler)
	r.Use(requestIDMiddleware)
	r.Use(authMiddleware(token))

	r.Get("/api/status", s.handleStatus)
	r.Post("/api/sources", s.handleSubmit)
	r.Get("/api/jobs", s.handleJobs)
	r.Get("/api/prompts", s.handlePrompts)
	r.Post("/api/prompts/{id}", s.handleAnswer)
	return r
}

const requestIDHeader = "X-Request-Id"

// requestIDMiddleware tags each request context with the caller's request
// ID, or a fresh one, and echoes it back.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(requestIDHeader))
		if id == "" || len(id) > 64 {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(services.WithRequestID(r.Context(), id)))
	})
}

func (s *apiServer) start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log().Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.log().Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	if s == nil {
		return
	}
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.backend.Status(r.Context()))
}

func (s *apiServer) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req SubmitRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(&req); err != nil || strings.TrimSpace(req.Path) == "" {
		s.writeError(w, r, http.StatusBadRequest, "request body must be {\"path\": \"...\"}")
		return
	}
	job, added, err := s.backend.Submit(r.Context(), req.Path)
	if err != nil {
		s.writeError(w, r, statusForError(err), err.Error())
		return
	}
	code := http.StatusAccepted
	if !added {
		code = http.StatusOK
	}
	s.writeJSON(w, code, SubmitResponse{Job: job, Added: added})
}

func (s *apiServer) handleJobs(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = 20
	}
	jobs, err := s.backend.History(r.Context(), limit)
	if err != nil {
		s.writeError(w, r, http.StatusServiceUnavailable, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"jobs": jobs})
}

func (s *apiServer) handlePrompts(w http.ResponseWriter, _ *http.Request) {
	prompts := s.backend.Prompts()
	if prompts == nil {
		prompts = []prompt.Pending{}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"prompts": prompts})
}

func (s *apiServer) handleAnswer(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var answer prompt.Answer
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(&answer); err != nil {
		s.writeError(w, r, http.StatusBadRequest, "invalid answer body")
		return
	}
	if answer.Verdict != "" {
		verdict, err := prompt.ParseVerdict(string(answer.Verdict))
		if err != nil {
			s.writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		answer.Verdict = verdict
	}
	if err := s.backend.Answer(id, answer); err != nil {
		s.writeError(w, r, statusForError(err), err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, prompt.ErrPromptNotFound), errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotRunning), errors.Is(err, services.ErrCancelled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log().Error("failed to encode response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, r *http.Request, status int, message string) {
	if status >= http.StatusInternalServerError {
		logging.WithContext(r.Context(), s.log()).Warn("api request failed",
			logging.String("path", r.URL.Path),
			logging.Int("status", status),
			logging.String("error", message),
		)
	}
	s.writeJSON(w, status, map[string]string{"error": message})
}

func (s *apiServer) log() *slog.Logger {
	if s.logger != nil {
		return s.logger.With(logging.String("component", "api-server"))
	}
	return logging.NewNop()
}
