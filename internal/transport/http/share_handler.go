package http

import (
	"encoding/json"
	"net/http"

	"exam-practice-service/internal/app"
)

type createShareRequest struct {
	BankEntryID string          `json:"bankEntryId,omitempty"`
	Exam        json.RawMessage `json:"exam,omitempty"`
}

// POST /api/shares
func (h *Handler) createShare(w http.ResponseWriter, r *http.Request) {
	var req createShareRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	set, err := questionSet(req.Exam)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	share, err := h.exams.ShareExam(r.Context(), userID(r), app.ShareRequest{BankEntryID: req.BankEntryID, Exam: set})
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]string{"shareId": share.ShareID})
}

// GET /api/shares/{shareId}
func (h *Handler) getShare(w http.ResponseWriter, r *http.Request) {
	share, err := h.exams.SharedExam(r.Context(), r.PathValue("shareId"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, share)
}

// GET /api/shares/{shareId}/leaderboard
func (h *Handler) getLeaderboard(w http.ResponseWriter, r *http.Request) {
	lb, err := h.exams.Leaderboard(r.Context(), r.PathValue("shareId"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, lb)
}
