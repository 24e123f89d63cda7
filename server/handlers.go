package server

import (
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/petal-labs/petalcall/tool"
)

type toolSummary struct {
	Name       string               `json:"name"`
	Parameters []tool.ParameterSpec `json:"parameters"`
	HasSchema  bool                 `json:"has_schema"`
}

type toolDetail struct {
	tool.Descriptor
	Description string `json:"description,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"tools":  s.dispatcher.Registry().Len(),
	})
}

func (s *Server) handleListTools(w http.ResponseWriter, _ *http.Request) {
	tools := s.dispatcher.Registry().List()
	out := make([]toolSummary, 0, len(tools))
	for _, t := range tools {
		_, hasSchema := t.SchemaDocument()
		out = append(out, toolSummary{
			Name:       t.Name(),
			Parameters: t.Parameters(),
			HasSchema:  hasSchema,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"tools": out})
}

func (s *Server) handleGetTool(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	t, ok := s.dispatcher.Registry().Get(name)
	if !ok {
		writeError(w, http.StatusNotFound, tool.CodeNotFound, "tool "+strconv.Quote(name)+" not found")
		return
	}
	detail := toolDetail{Descriptor: t.Descriptor()}
	if doc, ok := t.SchemaDocument(); ok {
		detail.Description = doc.Description
	}
	writeJSON(w, http.StatusOK, detail)
}

func (s *Server) handleSchemas(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"schemas": s.dispatcher.Registry().Schemas()})
}

// handleDispatchTool treats the request body as the argument payload.
func (s *Server) handleDispatchTool(w http.ResponseWriter, r *http.Request) {
	body, ok := s.readBody(w, r)
	if !ok {
		return
	}
	res, err := s.dispatcher.ExecuteJSON(r.Context(), middleware.GetReqID(r.Context()), chi.URLParam(r, "name"), body)
	s.writeResult(w, res, err)
}

// handleDispatchCall treats the request body as an invoker envelope.
func (s *Server) handleDispatchCall(w http.ResponseWriter, r *http.Request) {
	body, ok := s.readBody(w, r)
	if !ok {
		return
	}
	res, err := s.dispatcher.ExecuteEnvelope(r.Context(), middleware.GetReqID(r.Context()), body)
	s.writeResult(w, res, err)
}

func (s *Server) writeResult(w http.ResponseWriter, res tool.Result, err error) {
	if err != nil {
		writeToolError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "INVALID_LIMIT", "limit must be a non-negative integer")
			return
		}
		limit = n
	}
	entries, err := s.dispatcher.Journal().Recent(r.Context(), limit)
	if err != nil {
		s.logger.Error("reading dispatch journal", "error", err)
		writeError(w, http.StatusInternalServerError, "JOURNAL_ERROR", "failed to read dispatch history")
		return
	}
	if entries == nil {
		entries = []tool.JournalEntry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

func (s *Server) readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		if isMaxBytesError(err) {
			writeError(w, http.StatusRequestEntityTooLarge, "BODY_TOO_LARGE", "request body exceeds size limit")
			return nil, false
		}
		writeError(w, http.StatusBadRequest, "READ_ERROR", err.Error())
		return nil, false
	}
	return body, true
}
