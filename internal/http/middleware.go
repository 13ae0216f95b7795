package http

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"ai-speech-proxy-service/internal/auth"
	"ai-speech-proxy-service/internal/observability/logging"
)

type contextKey string

// policyContextKey carries the authenticated client policy through the
// request context.
const policyContextKey contextKey = "clientPolicy"

// policyFrom returns the authenticated policy stored by bearerAuth.
func policyFrom(ctx context.Context) *auth.ClientPolicy {
	p, _ := ctx.Value(policyContextKey).(*auth.ClientPolicy)
	return p
}

// requestLogger logs each request with its status and duration.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		duration := time.Since(start)
		lg := logging.WithRequest(middleware.GetReqID(r.Context()), r.Method, r.URL.Path)
		lg.Info().
			Int("status", ww.Status()).
			Dur("duration", duration).
			Msg("HTTP request")
	})
}

// bearerAuth resolves the Authorization header to a client policy and stores
// it in the request context. Missing or unknown credentials get a uniform
// 401 response.
func (s *Server) bearerAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			s.metrics.RecordAuthFailure()
			writeJSONError(w, http.StatusUnauthorized, "Invalid API Key")
			return
		}

		policy, err := s.registry.Authenticate(token)
		if err != nil {
			s.metrics.RecordAuthFailure()
			writeJSONError(w, http.StatusUnauthorized, "Invalid API Key")
			return
		}

		ctx := context.WithValue(r.Context(), policyContextKey, policy)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
