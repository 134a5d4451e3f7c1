package httpapi

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"taskhive.io/internal/auth"
	"taskhive.io/internal/obs"
	"taskhive.io/internal/tenant"
)

// ReadyProbe checks readiness (ping the database when one is configured).
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// Config wires the API's collaborators.
type Config struct {
	Auth       *auth.Service
	Tokens     *auth.TokenService
	ReadyProbe ReadyProbe
	Version    string

	// PublicPaths extends the default authentication allow-list.
	PublicPaths []string
	// RateLimitBypass extends the default admission-filter allow-list.
	RateLimitBypass []string
}

// API is the HTTP layer: the auth surface plus health, metrics and a mount
// point for business handlers that run behind the full middleware chain.
type API struct {
	mux        *http.ServeMux
	authSvc    *auth.Service
	tokens     *auth.TokenService
	readyProbe ReadyProbe
	version    string
	public     *pathSet
	limiter    *RateLimiter
}

func New(cfg Config) *API {
	a := &API{
		mux:        http.NewServeMux(),
		authSvc:    cfg.Auth,
		tokens:     cfg.Tokens,
		readyProbe: cfg.ReadyProbe,
		version:    cfg.Version,
		public:     defaultPublicPaths(),
	}
	for _, p := range cfg.PublicPaths {
		a.public.add(p)
	}
	bypass := append([]string{"/auth/login", "/auth/refresh"}, cfg.RateLimitBypass...)
	a.limiter = NewRateLimiter(DefaultAdmissionLimit, DefaultAdmissionWindow,
		WithRateLimiterBypass(bypass...))

	a.mux.HandleFunc("/healthz", a.Healthz)
	a.mux.HandleFunc("/readyz", a.Ready)
	a.mux.HandleFunc("/v1/info", a.Info)
	a.mux.HandleFunc("/v1/me", a.handleMe)
	a.mux.Handle("/metrics", obs.Handler())

	a.mux.HandleFunc("/auth/login", a.handleLogin)
	a.mux.HandleFunc("/auth/refresh", a.handleRefresh)
	a.mux.HandleFunc("/auth/logout", a.handleLogout)

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, "endpoint not found")
	})

	return a
}

// Mount attaches an external business handler. The pattern is subject to the
// admission filter and the authentication middleware unless explicitly
// allow-listed.
func (a *API) Mount(pattern string, handler http.Handler) {
	a.mux.Handle(pattern, handler)
}

// Handler returns the fully assembled chain. The admission filter runs
// before authentication; both run before any business handler.
func (a *API) Handler() http.Handler {
	var h http.Handler = a.mux
	h = a.withAuth(h)
	h = a.limiter.Middleware(h)
	h = MaxBodyBytes(h, 1<<20)
	h = SecurityHeaders(h)
	h = LoggingJSON(h)
	h = RequestID(h)
	return obs.Instrument(h)
}

// --- service endpoints ---

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "taskhive-auth",
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if err := a.readyProbe.Check(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}

func (a *API) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    "taskhive-auth",
		"time":    time.Now().UTC().Format(time.RFC3339),
		"version": a.version,
	})
}

// handleMe reports the caller's identity and resolved tenant scope.
func (a *API) handleMe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "not authenticated")
		return
	}
	body := map[string]any{
		"userId": principal.UserID,
		"role":   string(principal.Role),
	}
	if tenantID, ok := tenant.FromContext(r.Context()); ok {
		body["tenantId"] = tenantID
	}
	writeJSON(w, http.StatusOK, body)
}

// --- helpers ---

func timeNowRFC3339() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, code int, msg string) {
	payload := map[string]any{
		"error": msg,
	}
	if rid := RequestIDFromContext(r.Context()); rid != "" {
		payload["request_id"] = rid
	}
	writeJSON(w, code, payload)
}

// writeMessage renders the {"message": ...} bodies used by the auth
// endpoints.
func writeMessage(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]any{"message": msg})
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	reader := http.MaxBytesReader(w, r.Body, 1<<20)
	defer reader.Close()
	dec := json.NewDecoder(reader)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		if err == nil {
			return errors.New("unexpected data after JSON body")
		}
		return err
	}
	return nil
}
