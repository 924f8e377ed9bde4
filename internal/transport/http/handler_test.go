package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"exam-practice-service/internal/app"
	"exam-practice-service/internal/auth"
	"exam-practice-service/internal/infra/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const twoQuestions = `[
	{"id": "q1", "question": "2+2?", "options": ["3", "4"], "correctAnswer": "4", "topic": "math"},
	{"id": "q2", "question": "Primes?", "options": ["2", "3", "4"], "correctAnswers": ["2", "3"]}
]`

type testServer struct {
	*httptest.Server
	service *app.ExamService
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := memory.NewStore()
	tokens := auth.NewTokens("test-secret", time.Hour)
	service := app.NewExamService(store, memory.NewAttemptStore(), nil, nil, logger)
	handler := NewHandler(service, auth.NewService(store, tokens), tokens, logger)

	srv := httptest.NewServer(Logging(logger)(CORS(handler.Routes())))
	t.Cleanup(srv.Close)
	return &testServer{Server: srv, service: service}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) (*http.Response, []byte) {
	t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, s.URL+path, reader)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := s.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func (s *testServer) register(t *testing.T, username string) string {
	t.Helper()
	resp, data := s.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{"username": username, "password": "secret123"})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(data))
	var session auth.Session
	require.NoError(t, json.Unmarshal(data, &session))
	require.NotEmpty(t, session.Token)
	return session.Token
}

func decode[T any](t *testing.T, data []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(data, &v), string(data))
	return v
}

func TestAttemptLifecycleOverHTTP(t *testing.T) {
	srv := newTestServer(t)
	token := srv.register(t, "alice")

	resp, data := srv.do(t, http.MethodPost, "/api/attempts", token, map[string]any{"exam": json.RawMessage(twoQuestions)})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(data))
	view := decode[app.AttemptView](t, data)
	require.Len(t, view.Questions, 2)
	assert.Empty(t, view.Questions[0].CorrectAnswers, "answers must stay hidden while active")

	base := "/api/attempts/" + view.ID
	resp, data = srv.do(t, http.MethodPost, base+"/answers", token, map[string]string{"questionId": "q1", "option": "4"})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(data))
	resp, _ = srv.do(t, http.MethodPost, base+"/navigate", token, map[string]int{"delta": 1})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = srv.do(t, http.MethodPost, base+"/answers", token, map[string]string{"questionId": "q2", "option": "2"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp, data = srv.do(t, http.MethodPost, base+"/flags", token, map[string]string{"questionId": "q2"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, decode[app.AttemptView](t, data).Answers[1].Flagged)

	resp, data = srv.do(t, http.MethodPost, base+"/submit", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(data))
	sub := decode[app.Submission](t, data)
	assert.Equal(t, 1, sub.Result.Score)
	assert.Equal(t, 2, sub.Result.Total)
	assert.Equal(t, 50.0, sub.Result.Percentage)
	assert.True(t, sub.Saved)
	require.NotNil(t, sub.Streak)
	assert.Equal(t, 1, sub.Streak.Current)

	// A retried submit returns the same outcome.
	resp, data = srv.do(t, http.MethodPost, base+"/submit", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, sub.Result.ID, decode[app.Submission](t, data).Result.ID)

	resp, data = srv.do(t, http.MethodGet, "/api/results", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decode[[]json.RawMessage](t, data), 1)

	resp, data = srv.do(t, http.MethodGet, "/api/stats", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	dash := decode[app.Dashboard](t, data)
	assert.Equal(t, 1, dash.Stats.TotalExams)
	assert.Equal(t, 1, dash.Streak.Current)

	// Owned attempts are hidden from other callers.
	other := srv.register(t, "bob")
	resp, _ = srv.do(t, http.MethodGet, base, other, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestValidateQuestions(t *testing.T) {
	srv := newTestServer(t)

	yamlSet := `
title: Basics
questions:
  - question: 2+2?
    options: [3, 4]
    correctAnswer: 4
    topic: math
`
	resp, data := srv.do(t, http.MethodPost, "/api/questions/validate", "", yamlSet)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(data))
	var summary struct {
		Title     string   `json:"title"`
		Questions int      `json:"questions"`
		Topics    []string `json:"topics"`
	}
	require.NoError(t, json.Unmarshal(data, &summary))
	assert.Equal(t, "Basics", summary.Title)
	assert.Equal(t, 1, summary.Questions)
	assert.Equal(t, []string{"math"}, summary.Topics)

	resp, data = srv.do(t, http.MethodPost, "/api/questions/validate", "", `[{"question": "ok", "options": ["a"], "correctAnswer": "a"}, {"question": "", "options": ["a"]}]`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	errResp := decode[errorResponse](t, data)
	require.NotNil(t, errResp.Index)
	assert.Equal(t, 1, *errResp.Index)
	assert.Equal(t, "question", errResp.Field)

	resp, _ = srv.do(t, http.MethodPost, "/api/questions/validate", "", `[]`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestErrorMapping(t *testing.T) {
	srv := newTestServer(t)

	resp, _ := srv.do(t, http.MethodGet, "/api/results", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = srv.do(t, http.MethodGet, "/api/results", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	srv.register(t, "carol")
	resp, _ = srv.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{"username": "carol", "password": "secret123"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, _ = srv.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"username": "carol", "password": "wrong-pass"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = srv.do(t, http.MethodGet, "/api/attempts/missing", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = srv.do(t, http.MethodGet, "/api/shares/missing", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = srv.do(t, http.MethodPost, "/api/attempts", "", `{"exam": [`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = srv.do(t, http.MethodPost, "/api/attempts", "", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = srv.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = srv.do(t, http.MethodOptions, "/api/attempts", "", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestBankEndpoints(t *testing.T) {
	srv := newTestServer(t)
	token := srv.register(t, "dave")

	resp, data := srv.do(t, http.MethodPost, "/api/bank", token, `{"title": "Set A", "questions": `+twoQuestions+`}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(data))
	entry := decode[struct {
		ID string `json:"id"`
	}](t, data)

	resp, data = srv.do(t, http.MethodGet, "/api/bank", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decode[[]json.RawMessage](t, data), 1)

	resp, _ = srv.do(t, http.MethodPut, "/api/bank/"+entry.ID, token, `{"title": "Set B", "questions": `+twoQuestions+`}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, data = srv.do(t, http.MethodPost, "/api/attempts", token, map[string]string{"bankEntryId": entry.ID})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(data))
	assert.Equal(t, "Set B", decode[app.AttemptView](t, data).Title)

	other := srv.register(t, "erin")
	resp, _ = srv.do(t, http.MethodGet, "/api/bank/"+entry.ID, other, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = srv.do(t, http.MethodDelete, "/api/bank/"+entry.ID, token, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp, _ = srv.do(t, http.MethodGet, "/api/bank/"+entry.ID, token, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHealthzReportsFailingDependency(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := memory.NewStore()
	tokens := auth.NewTokens("test-secret", time.Hour)
	handler := NewHandler(app.NewExamService(store, memory.NewAttemptStore(), nil, nil, logger), auth.NewService(store, tokens), tokens, logger)

	var storeDown atomic.Bool
	handler.AddHealthCheck("store", func(ctx context.Context) error {
		if storeDown.Load() {
			return errors.New("connection refused")
		}
		return nil
	})
	handler.AddHealthCheck("redis", func(ctx context.Context) error { return nil })
	srv := httptest.NewServer(handler.Routes())
	t.Cleanup(srv.Close)

	var body struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	resp, err := srv.Client().Get(srv.URL + "/healthz")
	require.NoError(t, err)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, map[string]string{"store": "ok", "redis": "ok"}, body.Checks)

	storeDown.Store(true)
	resp, err = srv.Client().Get(srv.URL + "/healthz")
	require.NoError(t, err)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, "unavailable", body.Status)
	assert.Equal(t, "connection refused", body.Checks["store"])
	assert.Equal(t, "ok", body.Checks["redis"])
}
