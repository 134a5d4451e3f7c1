package httpapi

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"taskhive.io/internal/audit"
	"taskhive.io/internal/ids"
	"taskhive.io/internal/obs"
)

type requestIDContextKey struct{}

// RequestID assigns each request an identifier, honoring an inbound
// X-Request-Id header, and echoes it on the response.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rid := strings.TrimSpace(r.Header.Get("X-Request-Id"))
		if rid == "" {
			rid = ids.NewRequestID()
		}
		ctx := context.WithValue(r.Context(), requestIDContextKey{}, rid)
		ctx = audit.WithRequestID(ctx, rid)
		w.Header().Set("X-Request-Id", rid)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequestIDFromContext returns the request identifier, if assigned.
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(requestIDContextKey{}).(string); ok {
		return v
	}
	return ""
}

// LoggingJSON emits one structured line per completed request.
func LoggingJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sw := &statusWriter{ResponseWriter: w, code: 200}
		start := time.Now()
		next.ServeHTTP(sw, r)
		obs.LogRequest(map[string]any{
			"ts":          time.Now().UTC().Format(time.RFC3339Nano),
			"level":       "info",
			"msg":         "request_complete",
			"request_id":  RequestIDFromContext(r.Context()),
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      sw.code,
			"duration_ms": time.Since(start).Milliseconds(),
			"remote":      clientKey(r),
		})
	})
}

type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}

// SecurityHeaders applies baseline hardening headers.
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("X-XSS-Protection", "0")
		w.Header().Set("Referrer-Policy", "no-referrer")
		w.Header().Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		next.ServeHTTP(w, r)
	})
}

// MaxBodyBytes limits request body size.
func MaxBodyBytes(next http.Handler, maxBytes int64) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
		next.ServeHTTP(w, r)
	})
}

// Admission control defaults: a fixed 60-second window of at most 100
// requests per client key.
const (
	DefaultAdmissionLimit  = 100
	DefaultAdmissionWindow = 60 * time.Second
)

// window is one client's counter. The per-key lock makes the
// increment-and-reset sequence atomic under contention.
type window struct {
	mu    sync.Mutex
	count int
	reset time.Time
}

// RateLimiter is the admission filter: it counts requests per client key in
// fixed windows and short-circuits before authentication once the limit is
// exceeded. Counters are created lazily on first sight of a key and reset
// when the window elapses.
type RateLimiter struct {
	mu      sync.Mutex
	windows map[string]*window

	limit  int
	window time.Duration
	now    func() time.Time
	bypass *pathSet
}

// RateLimiterOption configures RateLimiter behavior.
type RateLimiterOption func(*RateLimiter)

// WithRateLimiterClock overrides the time source (useful for tests).
func WithRateLimiterClock(fn func() time.Time) RateLimiterOption {
	return func(l *RateLimiter) {
		if fn != nil {
			l.now = fn
		}
	}
}

// WithRateLimiterBypass allow-lists paths that skip admission control.
func WithRateLimiterBypass(paths ...string) RateLimiterOption {
	return func(l *RateLimiter) {
		for _, p := range paths {
			l.bypass.add(p)
		}
	}
}

// NewRateLimiter constructs the admission filter.
func NewRateLimiter(limit int, windowSize time.Duration, opts ...RateLimiterOption) *RateLimiter {
	l := &RateLimiter{
		windows: make(map[string]*window),
		limit:   limit,
		window:  windowSize,
		now:     time.Now,
		bypass:  &pathSet{exact: map[string]struct{}{}},
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Allow records one request for the key and reports whether it is admitted.
// When rejected, retryAfter is the remainder of the current window.
func (l *RateLimiter) Allow(key string) (bool, time.Duration) {
	l.mu.Lock()
	win, ok := l.windows[key]
	if !ok {
		win = &window{}
		l.windows[key] = win
	}
	l.mu.Unlock()

	win.mu.Lock()
	defer win.mu.Unlock()
	now := l.now()
	if win.reset.IsZero() || now.After(win.reset) {
		win.count = 0
		win.reset = now.Add(l.window)
	}
	win.count++
	if win.count > l.limit {
		return false, win.reset.Sub(now)
	}
	return true, 0
}

// Middleware applies admission control in front of the handler chain.
func (l *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if l.bypass.match(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}
		allowed, retryAfter := l.Allow(clientKey(r))
		if !allowed {
			obs.ObserveRateLimited()
			secs := int(retryAfter.Round(time.Second) / time.Second)
			if secs < 1 {
				secs = 1
			}
			w.Header().Set("Retry-After", strconv.Itoa(secs))
			writeError(w, r, http.StatusTooManyRequests, "Too many requests. Please try again later.")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientKey identifies the client: the first X-Forwarded-For entry when it
// is a syntactically valid IPv4 address, otherwise the transport-level
// remote address.
func clientKey(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first := strings.TrimSpace(strings.Split(xff, ",")[0])
		if ip := net.ParseIP(first); ip != nil && ip.To4() != nil {
			return first
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
