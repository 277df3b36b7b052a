package http

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/fjod/go_pos/internal/auth"
)

type ctxKey string

const (
	ctxKeySession   ctxKey = "session"
	ctxKeyRequestID ctxKey = "request_id"
)

// RequestIDMiddleware adds a unique request ID to each request
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = fmt.Sprintf("req-%d", time.Now().UnixNano())
		}

		ctx := context.WithValue(r.Context(), ctxKeyRequestID, requestID)
		w.Header().Set("X-Request-ID", requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// SessionMiddleware resolves the bearer token into an active session and
// rejects requests without one. Login and health endpoints are mounted
// outside this middleware.
func SessionMiddleware(sessions *auth.Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				respondError(w, http.StatusUnauthorized, "unauthorized", "missing session token")
				return
			}

			session, err := sessions.Get(token)
			if err != nil {
				respondError(w, http.StatusUnauthorized, "session_expired", "session not found or expired")
				return
			}

			ctx := context.WithValue(r.Context(), ctxKeySession, session)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if after, ok := strings.CutPrefix(header, "Bearer "); ok {
		return after
	}
	return r.Header.Get("X-Session-Token")
}

func getSessionFromContext(ctx context.Context) *auth.Session {
	if s, ok := ctx.Value(ctxKeySession).(*auth.Session); ok {
		return s
	}
	return nil
}
