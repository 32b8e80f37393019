package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	statics "github.com/goliatone/go-statics"
)

const (
	opGet    = "get"
	opUpdate = "update"
	opSchema = "schema"
)

// APIErrors is the body of every failed request.
type APIErrors struct {
	Errors []string `json:"errors,omitempty"`
}

// curl http://localhost:7890/api/v1/statics
func (s *Server) handleStaticsGet(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	result, err := s.service.Get(r.Context())
	if err != nil {
		s.metrics.observe(opGet, s.writeError(w, r, err), start)
		return
	}
	s.metrics.observe(opGet, s.writeJSON(w, http.StatusOK, result), start)
}

// curl --request PUT -H "Content-Type: application/json" \
// -d '{"values": {"title": "Acme"}}' \
// http://localhost:7890/api/v1/statics
func (s *Server) handleStaticsUpdate(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.metrics.observe(opUpdate, s.writeErrors(w, http.StatusRequestEntityTooLarge, "request body too large"), start)
			return
		}
		s.metrics.observe(opUpdate, s.writeErrors(w, http.StatusBadRequest, err.Error()), start)
		return
	}
	req, err := statics.DecodeUpdateRequest(body)
	if err != nil {
		s.metrics.observe(opUpdate, s.writeError(w, r, err), start)
		return
	}

	ctx := r.Context()
	if s.actorHeader != "" {
		if actor := strings.TrimSpace(r.Header.Get(s.actorHeader)); actor != "" {
			ctx = statics.ContextWithActor(ctx, actor)
		}
	}
	result, err := s.service.Update(ctx, req)
	if err != nil {
		s.metrics.observe(opUpdate, s.writeError(w, r, err), start)
		return
	}
	s.metrics.observe(opUpdate, s.writeJSON(w, http.StatusOK, result), start)
}

func (s *Server) handleStaticsSchemaGet(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	if s.schemas == nil {
		s.metrics.observe(opSchema, s.writeErrors(w, http.StatusNotFound, "schema document not available"), start)
		return
	}
	schema, err := s.schemas.Load(r.Context())
	if err != nil {
		s.metrics.observe(opSchema, s.writeError(w, r, err), start)
		return
	}
	doc, err := s.generator.Generate(schema)
	if err != nil {
		s.metrics.observe(opSchema, s.writeError(w, r, err), start)
		return
	}
	s.metrics.observe(opSchema, s.writeJSON(w, http.StatusOK, doc), start)
}

func (s *Server) handleHealthzGet(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// writeError maps err to a status code and writes it. Client errors are
// reported with their message; anything else is logged and hidden.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) int {
	if statics.IsClientError(err) {
		return s.writeErrors(w, http.StatusBadRequest, clientMessages(err)...)
	}
	s.logger.ErrorContext(r.Context(), "statics request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	return s.writeErrors(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
}

// clientMessages lists one message per validation violation, or the single
// error message otherwise.
func clientMessages(err error) []string {
	var violations statics.ValidationErrors
	if errors.As(err, &violations) && len(violations) > 0 {
		out := make([]string, 0, len(violations))
		for _, v := range violations {
			out = append(out, v.Error())
		}
		return out
	}
	return []string{err.Error()}
}

func (s *Server) writeErrors(w http.ResponseWriter, code int, messages ...string) int {
	return s.writeJSON(w, code, APIErrors{Errors: messages})
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, body any) int {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
	return code
}
