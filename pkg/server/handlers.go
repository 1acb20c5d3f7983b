package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"mercator-hq/europa/pkg/document"
	"mercator-hq/europa/pkg/policy/engine"
)

// maxInputBytes bounds the size of an evaluation request body.
const maxInputBytes = 1 << 20

// PolicySession is the part of the policy session the server needs.
type PolicySession interface {
	Loaded() bool
	Version() uint64
	QueryPath() string
	EvaluateText(ctx context.Context, inputJSON string) (document.Value, error)
}

// evaluateRequest is the body of POST /v1/evaluate.
type evaluateRequest struct {
	Input json.RawMessage `json:"input"`
}

// evaluateResponse is the body of a successful evaluation.
type evaluateResponse struct {
	Result        json.RawMessage `json:"result"`
	PolicyVersion uint64          `json:"policy_version"`
	QueryPath     string          `json:"query_path"`
}

// errorBody is the JSON error envelope for all non-2xx responses.
type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorBody{Error: errorDetail{Code: code, Message: message}})
}

// EvaluateHandler evaluates the configured query path against the input
// document of each request.
type EvaluateHandler struct {
	session PolicySession
}

// NewEvaluateHandler creates the evaluation handler.
func NewEvaluateHandler(sess PolicySession) *EvaluateHandler {
	return &EvaluateHandler{session: sess}
}

func (h *EvaluateHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "use POST")
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxInputBytes+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, "read_failed", "failed to read request body")
		return
	}
	if len(body) > maxInputBytes {
		writeError(w, http.StatusRequestEntityTooLarge, "input_too_large", "request body exceeds 1MB")
		return
	}

	// An empty body or an absent input field means a null input document.
	inputJSON := "null"
	if len(body) > 0 {
		var req evaluateRequest
		if err := json.Unmarshal(body, &req); err != nil {
			writeError(w, http.StatusBadRequest, "malformed_request", err.Error())
			return
		}
		if len(req.Input) > 0 {
			inputJSON = string(req.Input)
		}
	}

	result, err := h.session.EvaluateText(r.Context(), inputJSON)
	if err != nil {
		status, code := statusForError(err)
		writeError(w, status, code, err.Error())
		return
	}

	raw, err := result.MarshalJSON()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal", "failed to encode decision")
		return
	}

	writeJSON(w, http.StatusOK, evaluateResponse{
		Result:        raw,
		PolicyVersion: h.session.Version(),
		QueryPath:     h.session.QueryPath(),
	})
}

func statusForError(err error) (int, string) {
	switch engine.KindOf(err) {
	case engine.ErrInputDecode:
		return http.StatusBadRequest, string(engine.ErrInputDecode)
	case engine.ErrNotLoaded:
		return http.StatusServiceUnavailable, string(engine.ErrNotLoaded)
	case engine.ErrUndefinedPath:
		return http.StatusNotFound, string(engine.ErrUndefinedPath)
	default:
		return http.StatusInternalServerError, string(engine.ErrInternal)
	}
}

// HealthHandler answers liveness probes.
type HealthHandler struct{}

// NewHealthHandler creates the liveness handler.
func NewHealthHandler() *HealthHandler {
	return &HealthHandler{}
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "use GET")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Unix(),
	})
}

// ReadyHandler answers readiness probes: ready once a policy is loaded.
type ReadyHandler struct {
	session PolicySession
}

// NewReadyHandler creates the readiness handler.
func NewReadyHandler(sess PolicySession) *ReadyHandler {
	return &ReadyHandler{session: sess}
}

func (h *ReadyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "use GET")
		return
	}

	if !h.session.Loaded() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":         "ready",
		"policy_version": h.session.Version(),
		"query_path":     h.session.QueryPath(),
	})
}
