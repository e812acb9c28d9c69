package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/manifestgen/manifestgen/internal/dispatch"
)

// maxRequestBodySize limits the size of trigger requests.
const maxRequestBodySize = 1024 * 1024

const messageTriggered = "Test triggered successfully"

type errorBody struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
	Message string `json:"message,omitempty"`
}

type triggerResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	*dispatch.RunHandle
}

func (s *Server) handleTriggerTest(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBodySize))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "Failed to read request body", Details: err.Error()})
		return
	}

	var req dispatch.Request
	if len(body) > 0 {
		if err := json.Unmarshal(body, &req); err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "Invalid JSON body", Details: err.Error()})
			return
		}
	}

	handle, err := s.dispatcher.Dispatch(r.Context(), req)
	if err != nil {
		s.writeDispatchError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, triggerResponse{
		Success:   true,
		Message:   messageTriggered,
		RunHandle: handle,
	})
}

func (s *Server) writeDispatchError(w http.ResponseWriter, err error) {
	var (
		validation *dispatch.ValidationError
		upstream   *dispatch.UpstreamError
	)
	switch {
	case errors.As(err, &validation):
		if len(validation.Missing) > 0 {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "Missing required fields"})
			return
		}
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "Nothing to test", Details: validation.Error()})
	case errors.As(err, &upstream):
		s.logger.Error("GitHub API error", zap.Int("status", upstream.StatusCode), zap.String("body", upstream.Body))
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "Failed to trigger test", Details: upstream.Body})
	default:
		s.logger.Error("error triggering workflow", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "Internal server error", Message: err.Error()})
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}
