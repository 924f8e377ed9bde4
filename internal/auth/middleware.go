package auth

import (
	"context"
	"net/http"
	"strings"
)

type authCtxKey int

const claimsKey authCtxKey = 1

// WithAuth attaches claims to the context when a valid bearer token is present.
// Requests without one pass through anonymously.
func (t *Tokens) WithAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := r.Header.Get("Authorization")
		if strings.HasPrefix(h, "Bearer ") {
			tok := strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
			if c, err := t.Parse(tok); err == nil {
				next.ServeHTTP(w, r.WithContext(ContextWithClaims(r.Context(), c)))
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAuth rejects requests that WithAuth did not authenticate.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := UserIDFromContext(r.Context()); !ok {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"unauthorized"}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func ContextWithClaims(ctx context.Context, c *Claims) context.Context {
	return context.WithValue(ctx, claimsKey, c)
}

func UserIDFromContext(ctx context.Context) (string, bool) {
	if c, ok := ctx.Value(claimsKey).(*Claims); ok && c.UID != "" {
		return c.UID, true
	}
	return "", false
}
