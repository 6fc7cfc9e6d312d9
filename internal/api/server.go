package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/tidewatch/tidewatch/internal/task"
)

const defaultListLimit = 20

// Server exposes the task surface the agent framework talks to.
type Server struct {
	processor *task.Processor
	store     *task.MemoryStore
	logger    *zap.Logger
	server    *http.Server
}

// NewServer creates the HTTP server on the given port.
func NewServer(port int, processor *task.Processor, store *task.MemoryStore, logger *zap.Logger) *Server {
	s := &Server{
		processor: processor,
		store:     store,
		logger:    logger,
		server: &http.Server{
			Addr:         fmt.Sprintf(":%d", port),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 120 * time.Second, // 单个任务内含多次外呼,给足处理时间
			IdleTimeout:  60 * time.Second,
		},
	}
	s.server.Handler = s.Routes()
	return s
}

// Start starts the API server and blocks until it stops.
func (s *Server) Start() error {
	s.logger.Info("starting api server", zap.String("address", s.server.Addr))

	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start api server: %w", err)
	}
	return nil
}

// Stop shuts the server down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("stopping api server")
	return s.server.Shutdown(ctx)
}

// Routes builds the router. Exposed so tests can drive handlers directly.
func (s *Server) Routes() *mux.Router {
	router := mux.NewRouter()
	router.Use(s.loggingMiddleware)

	api := router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/tasks", s.submitTask).Methods("POST")
	api.HandleFunc("/tasks", s.listTasks).Methods("GET")
	api.HandleFunc("/tasks/{id}", s.getTask).Methods("GET")
	api.HandleFunc("/tasks/{id}/messages", s.postMessage).Methods("POST")
	api.HandleFunc("/health", s.healthCheck).Methods("GET")

	return router
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("remote_addr", r.RemoteAddr),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

type submitTaskRequest struct {
	Input string `json:"input"`
}

type postMessageRequest struct {
	Text string `json:"text"`
}

// submitTask accepts a chat message or bare address and runs the analysis
// within the request. The response carries the task's final state.
func (s *Server) submitTask(w http.ResponseWriter, r *http.Request) {
	var req submitTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Input) == "" {
		s.writeError(w, http.StatusBadRequest, "invalid_request", "request body must be a JSON object with a non-empty input field")
		return
	}

	t, err := s.processor.Submit(r.Context(), req.Input)
	if err != nil {
		s.writeTaskError(w, err)
		return
	}

	s.writeJSON(w, http.StatusAccepted, t)
}

func (s *Server) getTask(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	t, err := s.store.Get(id)
	if err != nil {
		s.writeTaskError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, t)
}

// postMessage feeds a human reply into a paused task.
func (s *Server) postMessage(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var req postMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Text) == "" {
		s.writeError(w, http.StatusBadRequest, "invalid_request", "request body must be a JSON object with a non-empty text field")
		return
	}

	t, err := s.processor.ResumeWithReply(r.Context(), id, req.Text)
	if err != nil {
		s.writeTaskError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, t)
}

func (s *Server) listTasks(w http.ResponseWriter, r *http.Request) {
	limit := defaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			s.writeError(w, http.StatusBadRequest, "invalid_request", "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	s.writeJSON(w, http.StatusOK, s.store.List(limit))
}

func (s *Server) healthCheck(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) writeTaskError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, task.ErrNotFound):
		s.writeError(w, http.StatusNotFound, "task_not_found", err.Error())
	case errors.Is(err, task.ErrInvalidTransition):
		s.writeError(w, http.StatusConflict, "invalid_transition", err.Error())
	case errors.Is(err, task.ErrConflict):
		s.writeError(w, http.StatusConflict, "task_conflict", err.Error())
	default:
		s.logger.Error("request failed", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "internal_error", "unexpected error")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, code, message string) {
	s.writeJSON(w, status, map[string]string{
		"error":   code,
		"message": message,
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", zap.Error(err))
	}
}
