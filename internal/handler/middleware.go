package handler

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"pdf-view-session/internal/domain"
	apperrors "pdf-view-session/pkg/errors"
)

// ControlTokenMiddleware guards the session API with a shared bearer token.
// An empty token leaves the API open.
type ControlTokenMiddleware struct {
	token  string
	logger domain.Logger
}

// NewControlTokenMiddleware creates the middleware for token.
func NewControlTokenMiddleware(token string, logger domain.Logger) *ControlTokenMiddleware {
	return &ControlTokenMiddleware{token: token, logger: logger}
}

// Middleware validates the Authorization header. Browsers cannot set headers
// on WebSocket upgrades, so a token query parameter is accepted for those.
func (m *ControlTokenMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.token == "" {
			next.ServeHTTP(w, r)
			return
		}

		token := ""
		authHeader := r.Header.Get("Authorization")
		switch {
		case authHeader != "":
			// Extract token from "Bearer <token>" format
			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				writeAppError(w, apperrors.NewUnauthorizedError("Invalid authorization header format"))
				return
			}
			token = parts[1]
		case isWebSocketUpgrade(r):
			token = r.URL.Query().Get("token")
		default:
			writeAppError(w, apperrors.NewUnauthorizedError("Authorization header required"))
			return
		}

		if token == "" {
			writeAppError(w, apperrors.NewUnauthorizedError("Token required"))
			return
		}
		if subtle.ConstantTimeCompare([]byte(token), []byte(m.token)) != 1 {
			m.logger.Warn("Rejected control token", "path", r.URL.Path, "remote", r.RemoteAddr)
			writeAppError(w, apperrors.NewUnauthorizedError("Invalid token"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func isWebSocketUpgrade(r *http.Request) bool {
	return strings.EqualFold(r.Header.Get("Upgrade"), "websocket")
}
