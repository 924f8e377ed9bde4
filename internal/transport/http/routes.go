package http

import (
	"net/http"

	"exam-practice-service/internal/auth"
)

// Routes builds the API mux. Bearer tokens are parsed for every request;
// routes wrapped in authed reject anonymous callers.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	authed := func(fn http.HandlerFunc) http.Handler { return auth.RequireAuth(fn) }

	mux.HandleFunc("GET /healthz", h.health)

	// Accounts
	mux.HandleFunc("POST /api/auth/register", h.register)
	mux.HandleFunc("POST /api/auth/login", h.login)
	mux.Handle("GET /api/auth/me", authed(h.me))

	// Question sets
	mux.HandleFunc("POST /api/questions/validate", h.validateQuestions)

	// Attempts
	mux.HandleFunc("POST /api/attempts", h.startAttempt)
	mux.HandleFunc("GET /api/attempts/{id}", h.getAttempt)
	mux.HandleFunc("POST /api/attempts/{id}/answers", h.selectAnswer)
	mux.HandleFunc("POST /api/attempts/{id}/navigate", h.navigate)
	mux.HandleFunc("POST /api/attempts/{id}/flags", h.toggleFlag)
	mux.HandleFunc("POST /api/attempts/{id}/submit", h.submitAttempt)
	mux.HandleFunc("POST /api/attempts/{id}/quit", h.quitAttempt)

	// History
	mux.Handle("GET /api/results", authed(h.listResults))
	mux.Handle("GET /api/results/{id}", authed(h.getResult))
	mux.Handle("GET /api/stats", authed(h.stats))
	mux.Handle("GET /api/weak-areas", authed(h.weakAreas))

	// Bank
	mux.Handle("GET /api/bank", authed(h.listBank))
	mux.Handle("POST /api/bank", authed(h.createBankEntry))
	mux.Handle("GET /api/bank/{id}", authed(h.getBankEntry))
	mux.Handle("PUT /api/bank/{id}", authed(h.updateBankEntry))
	mux.Handle("DELETE /api/bank/{id}", authed(h.deleteBankEntry))

	// Sharing
	mux.Handle("POST /api/shares", authed(h.createShare))
	mux.HandleFunc("GET /api/shares/{shareId}", h.getShare)
	mux.HandleFunc("GET /api/shares/{shareId}/leaderboard", h.getLeaderboard)
	mux.HandleFunc("GET /ws/leaderboard", h.ws.ServeWS)

	return h.tokens.WithAuth(mux)
}
