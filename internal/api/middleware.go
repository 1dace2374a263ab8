package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"immo-workers/internal/common/errors"
	"immo-workers/internal/platform"

	chimw "github.com/go-chi/chi/v5/middleware"
)

type userKey struct{}

func withUser(ctx context.Context, u *platform.User) context.Context {
	return context.WithValue(ctx, userKey{}, u)
}

// userFrom returns the authenticated user. Routes behind authenticate
// always have one.
func userFrom(ctx context.Context) *platform.User {
	u, _ := ctx.Value(userKey{}).(*platform.User)
	return u
}

// authenticate forwards the bearer token to the platform and resolves the
// user it belongs to.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			writeError(w, r, errors.NewPlatformError("auth.me", http.StatusUnauthorized, errMissingToken))
			return
		}
		if s.auth == nil {
			writeUnavailable(w, r, "auth")
			return
		}
		ctx := platform.WithToken(r.Context(), token)
		user, err := s.auth.Me(ctx)
		if err != nil {
			writeError(w, r, err)
			return
		}
		if user == nil || user.Email == "" {
			writeError(w, r, errors.NewPlatformError("auth.me", http.StatusUnauthorized, errMissingToken))
			return
		}
		next.ServeHTTP(w, r.WithContext(withUser(ctx, user)))
	})
}

func bearerToken(r *http.Request) string {
	h := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(h) < 7 || !strings.EqualFold(h[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(h[7:])
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		fields := map[string]interface{}{
			"method":     r.Method,
			"path":       r.URL.Path,
			"status":     ww.Status(),
			"bytes":      ww.BytesWritten(),
			"durationMs": time.Since(start).Milliseconds(),
			"requestId":  chimw.GetReqID(r.Context()),
		}
		if ww.Status() >= http.StatusInternalServerError {
			s.logger.Warn("request failed", fields)
			return
		}
		s.logger.Debug("request", fields)
	})
}
