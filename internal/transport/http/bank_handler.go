package http

import (
	"io"
	"net/http"

	"exam-practice-service/internal/exam"
)

// readQuestionSet decodes the request body as a pasted question set (JSON or YAML).
func (h *Handler) readQuestionSet(w http.ResponseWriter, r *http.Request) (exam.QuestionSet, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return exam.QuestionSet{}, false
	}
	set, err := exam.DecodeQuestionSet(body)
	if err != nil {
		h.respondError(w, r, err)
		return exam.QuestionSet{}, false
	}
	return set, true
}

// GET /api/bank
func (h *Handler) listBank(w http.ResponseWriter, r *http.Request) {
	entries, err := h.exams.BankEntries(r.Context(), userID(r))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, entries)
}

// POST /api/bank
func (h *Handler) createBankEntry(w http.ResponseWriter, r *http.Request) {
	set, ok := h.readQuestionSet(w, r)
	if !ok {
		return
	}
	entry, err := h.exams.SaveBankEntry(r.Context(), userID(r), set)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, entry)
}

// GET /api/bank/{id}
func (h *Handler) getBankEntry(w http.ResponseWriter, r *http.Request) {
	entry, err := h.exams.BankEntry(r.Context(), userID(r), r.PathValue("id"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, entry)
}

// PUT /api/bank/{id}
func (h *Handler) updateBankEntry(w http.ResponseWriter, r *http.Request) {
	set, ok := h.readQuestionSet(w, r)
	if !ok {
		return
	}
	entry, err := h.exams.UpdateBankEntry(r.Context(), userID(r), r.PathValue("id"), set)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, entry)
}

// DELETE /api/bank/{id}
func (h *Handler) deleteBankEntry(w http.ResponseWriter, r *http.Request) {
	if err := h.exams.DeleteBankEntry(r.Context(), userID(r), r.PathValue("id")); err != nil {
		h.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
