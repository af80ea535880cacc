package api

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

type viewerKey struct{}
type loggerKey struct{}

// Viewer is the authenticated caller. Timeline rows are computed relative
// to it (liked_by_me, mine).
type Viewer struct {
	UserID  int64
	Login   string
	TokenID int64
}

// viewerFrom returns the authenticated viewer, nil outside requireAuth.
func viewerFrom(ctx context.Context) *Viewer {
	v, _ := ctx.Value(viewerKey{}).(*Viewer)
	return v
}

// logFor returns the request-scoped logger, or the default one.
func logFor(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}
	return slog.Default()
}

// traceMiddleware tags each request with a random ID, exposes it in the
// X-Request-ID header, and scopes a logger carrying it into the context.
func traceMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var buf [8]byte
		rid := "unknown"
		if _, err := rand.Read(buf[:]); err == nil {
			rid = hex.EncodeToString(buf[:])
		}
		w.Header().Set("X-Request-ID", rid)

		ctx := context.WithValue(r.Context(), loggerKey{}, slog.Default().With("rid", rid))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// recoverMiddleware turns handler panics into 500 responses.
func recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				logFor(r.Context()).Error("panic recovered", "panic", rec, "path", r.URL.Path)
				writeError(w, http.StatusInternalServerError, ErrCodeInternal, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// statusWriter remembers the response code for the access log.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (sw *statusWriter) WriteHeader(code int) {
	sw.status = code
	sw.ResponseWriter.WriteHeader(code)
}

// accessLog writes one line per request after it completes.
func accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		logFor(r.Context()).Info("http",
			"method", r.Method,
			"path", r.URL.Path,
			"status", sw.status,
			"ms", time.Since(start).Milliseconds(),
		)
	})
}

// requireAuth verifies the Bearer session token and puts the Viewer in the
// context before calling handler.
func (s *Server) requireAuth(handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || raw == "" {
			writeError(w, http.StatusUnauthorized, ErrCodeUnauthorized, "missing bearer token")
			return
		}

		tok, user, err := s.store.VerifyToken(raw)
		if err != nil {
			logFor(r.Context()).Error("verify token", "err", err)
			writeError(w, http.StatusInternalServerError, ErrCodeInternal, "failed to verify token")
			return
		}
		if tok == nil || user == nil {
			writeError(w, http.StatusUnauthorized, ErrCodeUnauthorized, "session token not recognized")
			return
		}

		viewer := &Viewer{UserID: user.ID, Login: user.Login, TokenID: tok.ID}
		ctx := context.WithValue(r.Context(), viewerKey{}, viewer)
		ctx = context.WithValue(ctx, loggerKey{}, logFor(ctx).With("uid", user.ID))
		handler(w, r.WithContext(ctx))
	}
}

// limitBody caps request body reads at max bytes.
func limitBody(max int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, max)
			next.ServeHTTP(w, r)
		})
	}
}

// chain applies middleware in order, first one outermost.
func chain(h http.Handler, mws ...func(http.Handler) http.Handler) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}
