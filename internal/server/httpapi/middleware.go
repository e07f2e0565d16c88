package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"runtime/debug"
	"sync/atomic"

	"github.com/guardianvault/vaultd/internal/common"
	"github.com/guardianvault/vaultd/internal/server/auth"
	"github.com/guardianvault/vaultd/internal/vault"
)

type contextKey string

const principalContextKey contextKey = "principal"

var nextRequestID uint64

// requestMetadataMiddleware tags every request with an id the logging
// middleware picks up.
func (s *Server) requestMetadataMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := atomic.AddUint64(&nextRequestID, 1)
		ctx := context.WithValue(r.Context(), contextKey("requestID"), id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// loggingMiddleware writes one log line per request.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.logger.Info(r.Context(), "request",
			"id", r.Context().Value(contextKey("requestID")),
			"method", r.Method, "uri", r.RequestURI)
		next.ServeHTTP(w, r)
	})
}

// recoveryMiddleware turns handler panics into 500 responses.
func (s *Server) recoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if p := recover(); p != nil {
				s.logger.Error(r.Context(), "handler panic",
					"panic", fmt.Sprintf("%v", p), "stack", string(debug.Stack()))
				sendErr(w, common.ErrorInternal)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// setJSONMiddleware sets the response content type for every route.
func (s *Server) setJSONMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		next.ServeHTTP(w, r)
	})
}

// authMiddleware validates the access token and stores the caller's
// principal in the request context.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := r.Header.Get(common.AccessTokenHeaderName)
		if token == "" {
			sendErr(w, fmt.Errorf("%w: missing access token", common.ErrorUnauthorized))
			return
		}

		text, err := auth.GetPrincipalFromToken(token, []byte(s.config.SecretKey))
		if err != nil {
			sendErr(w, err)
			return
		}
		principal, err := vault.PrincipalFromText(text)
		if err != nil {
			sendErr(w, fmt.Errorf("%w: bad principal in token", common.ErrorUnauthorized))
			return
		}

		ctx := context.WithValue(r.Context(), principalContextKey, principal)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// watcherMiddleware gates watcher-only routes behind the shared secret.
func (s *Server) watcherMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := s.sessions.VerifyWatcher(r.Header.Get(common.WatcherTokenHeaderName)); err != nil {
			sendErr(w, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// callerPrincipal returns the authenticated principal set by authMiddleware.
func callerPrincipal(ctx context.Context) (vault.Principal, error) {
	p, ok := ctx.Value(principalContextKey).(vault.Principal)
	if !ok {
		return vault.Principal{}, common.ErrorUnauthorized
	}
	return p, nil
}
