package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"exam-practice-service/internal/app"
	"exam-practice-service/internal/auth"
	"exam-practice-service/internal/domain"
)

const maxBodyBytes = 1 << 20

// Handler serves the REST API. Dependencies are injected once at startup.
type Handler struct {
	exams  *app.ExamService
	auth   *auth.Service
	tokens *auth.Tokens
	ws     *WSHandler
	logger *slog.Logger
	checks map[string]HealthCheck
}

// HealthCheck reports whether a backing dependency is reachable.
type HealthCheck func(ctx context.Context) error

const healthTimeout = 2 * time.Second

func NewHandler(exams *app.ExamService, authSvc *auth.Service, tokens *auth.Tokens, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		exams:  exams,
		auth:   authSvc,
		tokens: tokens,
		ws:     NewWSHandler(exams, logger),
		logger: logger,
		checks: make(map[string]HealthCheck),
	}
}

// AddHealthCheck registers a dependency check reported by /healthz.
// Call it before serving.
func (h *Handler) AddHealthCheck(name string, check HealthCheck) {
	h.checks[name] = check
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	status, code := "ok", http.StatusOK
	results := make(map[string]string, len(names))
	for _, name := range names {
		if err := h.checks[name](ctx); err != nil {
			h.logger.Warn("health check failed", "check", name, "error", err)
			results[name] = err.Error()
			status, code = "unavailable", http.StatusServiceUnavailable
			continue
		}
		results[name] = "ok"
	}
	respondJSON(w, code, map[string]any{"status": status, "checks": results})
}

type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
	Index *int   `json:"index,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// respondError maps domain errors onto status codes. Anything unrecognised is
// logged and reported as a 500 without leaking the cause.
func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		resp := errorResponse{Error: verr.Error(), Field: verr.Field}
		if verr.Index >= 0 {
			idx := verr.Index
			resp.Index = &idx
		}
		respondJSON(w, http.StatusBadRequest, resp)
	case errors.Is(err, domain.ErrEmptyExam):
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, domain.ErrNotFound):
		respondJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	case errors.Is(err, domain.ErrUnauthorized):
		respondJSON(w, http.StatusUnauthorized, errorResponse{Error: err.Error()})
	case errors.Is(err, domain.ErrUsernameTaken), errors.Is(err, domain.ErrAttemptClosed):
		respondJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
	default:
		h.logger.Error("request failed", "error", err, "method", r.Method, "path", r.URL.Path)
		respondJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

// decodeJSON reads a bounded JSON body into v. It writes a 400 and returns false on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return false
	}
	return true
}

// userID returns the authenticated caller, or "" for anonymous requests.
func userID(r *http.Request) string {
	uid, _ := auth.UserIDFromContext(r.Context())
	return uid
}
