package http

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"

	"exam-practice-service/internal/app"
	"exam-practice-service/internal/domain"
	"exam-practice-service/internal/exam"
)

// ── Request types ───────────────────────────────────────────────────────────

// startAttemptRequest carries exactly one exam source. Exam accepts the same
// payload shapes as the validate endpoint: a list of questions or a full set.
type startAttemptRequest struct {
	Exam        json.RawMessage `json:"exam,omitempty"`
	BankEntryID string          `json:"bankEntryId,omitempty"`
	ShareID     string          `json:"shareId,omitempty"`
	Nickname    string          `json:"nickname,omitempty"`
}

type selectAnswerRequest struct {
	QuestionID string `json:"questionId"`
	Option     string `json:"option"`
}

// navigateRequest moves by Delta, or jumps when Index is set.
type navigateRequest struct {
	Delta int  `json:"delta"`
	Index *int `json:"index,omitempty"`
}

type flagRequest struct {
	QuestionID string `json:"questionId"`
}

type submitRequest struct {
	Nickname string `json:"nickname,omitempty"`
}

// questionSet decodes an embedded payload. A missing or null payload yields nil.
func questionSet(raw json.RawMessage) (*exam.QuestionSet, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}
	// A JSON string holds a pasted YAML or JSON document.
	if trimmed[0] == '"' {
		var text string
		if err := json.Unmarshal(trimmed, &text); err != nil {
			return nil, domain.Invalid("exam", err.Error())
		}
		trimmed = []byte(text)
	}
	set, err := exam.DecodeQuestionSet(trimmed)
	if err != nil {
		return nil, err
	}
	return &set, nil
}

// ── Handlers ────────────────────────────────────────────────────────────────

// POST /api/questions/validate
func (h *Handler) validateQuestions(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	set, err := exam.DecodeQuestionSet(body)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	def, err := exam.BuildDefinition("preview", set)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, exam.Describe(def))
}

// POST /api/attempts
func (h *Handler) startAttempt(w http.ResponseWriter, r *http.Request) {
	var req startAttemptRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	set, err := questionSet(req.Exam)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	view, err := h.exams.StartAttempt(r.Context(), app.StartRequest{
		UserID:      userID(r),
		Exam:        set,
		BankEntryID: req.BankEntryID,
		ShareID:     req.ShareID,
		Nickname:    req.Nickname,
	})
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, view)
}

// GET /api/attempts/{id}
func (h *Handler) getAttempt(w http.ResponseWriter, r *http.Request) {
	view, err := h.exams.Attempt(r.Context(), r.PathValue("id"), userID(r))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

// POST /api/attempts/{id}/answers
func (h *Handler) selectAnswer(w http.ResponseWriter, r *http.Request) {
	var req selectAnswerRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	view, err := h.exams.SelectAnswer(r.Context(), r.PathValue("id"), userID(r), req.QuestionID, req.Option)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

// POST /api/attempts/{id}/navigate
func (h *Handler) navigate(w http.ResponseWriter, r *http.Request) {
	var req navigateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	var (
		view app.AttemptView
		err  error
	)
	if req.Index != nil {
		view, err = h.exams.JumpTo(r.Context(), r.PathValue("id"), userID(r), *req.Index)
	} else {
		view, err = h.exams.Navigate(r.Context(), r.PathValue("id"), userID(r), req.Delta)
	}
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

// POST /api/attempts/{id}/flags
func (h *Handler) toggleFlag(w http.ResponseWriter, r *http.Request) {
	var req flagRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	view, err := h.exams.ToggleFlag(r.Context(), r.PathValue("id"), userID(r), req.QuestionID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

// POST /api/attempts/{id}/submit
func (h *Handler) submitAttempt(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	sub, err := h.exams.Submit(r.Context(), r.PathValue("id"), userID(r), req.Nickname)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, sub)
}

// POST /api/attempts/{id}/quit
func (h *Handler) quitAttempt(w http.ResponseWriter, r *http.Request) {
	if err := h.exams.Quit(r.Context(), r.PathValue("id"), userID(r)); err != nil {
		h.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
