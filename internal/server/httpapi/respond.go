package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dmitrijs2005/filedrop/internal/common"
)

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps the error taxonomy onto HTTP statuses and always returns
// a structured body. The response carries the sentinel's message, not the
// wrapped storage cause, so internals do not leak to anonymous callers.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	msg := "internal error"

	switch {
	case errors.Is(err, common.ErrorNoFile):
		status = http.StatusBadRequest
		msg = common.ErrorNoFile.Error()
	case errors.Is(err, common.ErrorNotFound):
		status = http.StatusNotFound
		msg = common.ErrorNotFound.Error()
	case errors.Is(err, common.ErrInvalidToken), errors.Is(err, common.ErrorUnauthorized):
		status = http.StatusUnauthorized
		msg = "not authenticated"
	}

	if status == http.StatusInternalServerError {
		s.logger.Error(r.Context(), "request failed", "method", r.Method, "path", r.URL.Path, "error", err.Error())
	}

	s.writeJSON(w, status, errorResponse{Success: false, Error: msg})
}
