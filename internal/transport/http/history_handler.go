package http

import "net/http"

// GET /api/results
func (h *Handler) listResults(w http.ResponseWriter, r *http.Request) {
	results, err := h.exams.Results(r.Context(), userID(r))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, results)
}

// GET /api/results/{id}
func (h *Handler) getResult(w http.ResponseWriter, r *http.Request) {
	result, err := h.exams.Result(r.Context(), userID(r), r.PathValue("id"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// GET /api/stats
func (h *Handler) stats(w http.ResponseWriter, r *http.Request) {
	dash, err := h.exams.Dashboard(r.Context(), userID(r))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, dash)
}

// GET /api/weak-areas
func (h *Handler) weakAreas(w http.ResponseWriter, r *http.Request) {
	stats, err := h.exams.WeakAreas(r.Context(), userID(r))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, stats)
}
