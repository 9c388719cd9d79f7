package httpx

import (
	"errors"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strconv"
	"strings"
	"time"

	"github.com/soundrise/creator-api/internal/observability/metrics"
	"github.com/soundrise/creator-api/internal/observability/statsd"
	"github.com/soundrise/creator-api/internal/ports"
	"github.com/soundrise/creator-api/internal/ratelimit"
)

// Logging returns a middleware that logs HTTP requests and responses.
func Logging(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			const defaultHTTPStatus = 200
			ww := &respWriter{ResponseWriter: w, status: defaultHTTPStatus}
			next.ServeHTTP(ww, r)
			logger.Info("http",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.status),
				slog.Duration("duration", time.Since(start)),
			)
		})
	}
}

type respWriter struct {
	http.ResponseWriter
	status int
}

func (w *respWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// Recover returns a middleware that recovers from panics and logs them.
func Recover(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					logger.Error("panic",
						slog.Any("error", err),
						slog.String("path", r.URL.Path),
						slog.String("method", r.Method),
						slog.String("stack", string(debug.Stack())))
					http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// sessionCookieName is the cookie the edge sets after upstream login.
const sessionCookieName = "creator_session"

// RequireSession returns a middleware that resolves the session token from
// the Authorization header or session cookie and attaches the session to
// the request context. Requests without a valid session get 401.
func RequireSession(store ports.SessionStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := sessionToken(r)
			if token == "" {
				WriteError(w, ErrorParams{
					Code:    http.StatusUnauthorized,
					ErrCode: "authentication_required",
					Err:     errors.New("authentication required"),
				})
				return
			}

			sess, err := store.Get(r.Context(), token)
			if err != nil {
				WriteError(w, ErrorParams{
					Code:    http.StatusUnauthorized,
					ErrCode: "invalid_session",
					Err:     errors.New("session is invalid or expired"),
				})
				return
			}

			ctx := SetSessionInContext(r.Context(), &sess)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// sessionToken pulls the opaque session id from Bearer auth or the cookie.
func sessionToken(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); auth != "" {
		if tok, ok := strings.CutPrefix(auth, "Bearer "); ok {
			return strings.TrimSpace(tok)
		}
	}
	if c, err := r.Cookie(sessionCookieName); err == nil {
		return c.Value
	}
	return ""
}

// RateLimitParams configures one RateLimit middleware instance.
type RateLimitParams struct {
	Limiter *ratelimit.Limiter
	Rule    ratelimit.Rule
	// KeyFunc derives the bucket key from the request. Defaults to the
	// authenticated user id, falling back to client IP.
	KeyFunc func(r *http.Request) string
	Metrics statsd.Sink // Optional
}

// RateLimit returns a middleware enforcing a fixed-window limit per action
// class. The action name is part of the key so the same caller has
// independent budgets for, say, job creation and leaderboard reads.
func RateLimit(action string, p RateLimitParams) func(http.Handler) http.Handler {
	keyFunc := p.KeyFunc
	if keyFunc == nil {
		keyFunc = func(r *http.Request) string {
			if id := CurrentUserID(r.Context()); id != "" {
				return id
			}
			return clientIP(r)
		}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if p.Limiter == nil {
				next.ServeHTTP(w, r)
				return
			}
			res := p.Limiter.Allow(action+":"+keyFunc(r), p.Rule)
			if !res.Allowed {
				metrics.EmitRateLimitDenied(p.Metrics, action)
				writeLimitExceeded(w, action, res)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeLimitExceeded(w http.ResponseWriter, action string, res ratelimit.Result) {
	retry := int(time.Until(res.ResetAt).Seconds())
	if retry < 1 {
		retry = 1
	}
	w.Header().Set("Retry-After", strconv.Itoa(retry))
	WriteError(w, ErrorParams{
		Code:    http.StatusTooManyRequests,
		ErrCode: "rate_limited",
		Err:     errors.New("too many " + action + " requests, slow down"),
	})
}
