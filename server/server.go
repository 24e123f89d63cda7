// Package server exposes a tool dispatcher over HTTP.
package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/petal-labs/petalcall/tool"
)

// ServerConfig configures a Server instance.
type ServerConfig struct {
	Dispatcher *tool.Dispatcher
	MaxBody    int64
	Logger     *slog.Logger
}

// Server is the PetalCall HTTP API server.
type Server struct {
	dispatcher *tool.Dispatcher
	maxBody    int64
	logger     *slog.Logger
}

// NewServer creates a new Server with the given configuration.
func NewServer(cfg ServerConfig) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	maxBody := cfg.MaxBody
	if maxBody <= 0 {
		maxBody = 1 << 20 // 1 MB default
	}
	dispatcher := cfg.Dispatcher
	if dispatcher == nil {
		dispatcher = tool.NewDispatcher(tool.DispatcherConfig{Logger: logger})
	}
	return &Server{
		dispatcher: dispatcher,
		maxBody:    maxBody,
		logger:     logger,
	}
}

// Handler returns the router with all routes and middleware wired.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(s.maxBodyMiddleware)

	r.Get("/health", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Get("/tools", s.handleListTools)
		r.Get("/tools/{name}", s.handleGetTool)
		r.Post("/tools/{name}/dispatch", s.handleDispatchTool)
		r.Post("/dispatch", s.handleDispatchCall)
		r.Get("/schemas", s.handleSchemas)
		r.Get("/history", s.handleHistory)
	})
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "ROUTE_NOT_FOUND", "no route for "+r.Method+" "+r.URL.Path)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", r.Method+" not allowed on "+r.URL.Path)
	})
	return r
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

func (s *Server) maxBodyMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Body != nil {
			r.Body = http.MaxBytesReader(w, r.Body, s.maxBody)
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// apiError is the standard error envelope.
type apiError struct {
	Error apiErrorBody `json:"error"`
}

type apiErrorBody struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Stage     string `json:"stage,omitempty"`
	Tool      string `json:"tool,omitempty"`
	Parameter string `json:"parameter,omitempty"`
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, apiError{
		Error: apiErrorBody{
			Code:    code,
			Message: message,
		},
	})
}

// writeToolError maps a dispatch error to its HTTP status and envelope.
func writeToolError(w http.ResponseWriter, err error) {
	var toolErr *tool.ToolError
	if !errors.As(err, &toolErr) {
		writeError(w, http.StatusInternalServerError, "INTERNAL", err.Error())
		return
	}
	writeJSON(w, statusForToolError(toolErr), apiError{
		Error: apiErrorBody{
			Code:      toolErr.Code,
			Message:   toolErr.Message,
			Stage:     string(toolErr.Stage),
			Tool:      toolErr.Tool,
			Parameter: toolErr.Parameter,
		},
	})
}

func statusForToolError(err *tool.ToolError) int {
	switch {
	case err.Code == tool.CodeNotFound:
		return http.StatusNotFound
	case err.Stage == tool.StageArgument:
		return http.StatusBadRequest
	case err.Code == tool.CodeExecutionFailed:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// isMaxBytesError checks if the error is from http.MaxBytesReader.
func isMaxBytesError(err error) bool {
	var maxBytesErr *http.MaxBytesError
	return errors.As(err, &maxBytesErr)
}
