package httpapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"taskhive.io/internal/auth"
	"taskhive.io/internal/obs"
	"taskhive.io/internal/tenant"
)

const (
	authHeader = "Authorization"
	bearer     = "Bearer "
)

// pathSet is the authentication allow-list: exact paths and prefixes that
// intentionally start with no identity and no tenant scope.
type pathSet struct {
	exact    map[string]struct{}
	prefixes []string
}

func defaultPublicPaths() *pathSet {
	return &pathSet{
		exact: map[string]struct{}{
			"/healthz": {},
			"/readyz":  {},
			"/metrics": {},
			"/v1/info": {},
		},
		prefixes: []string{"/auth/"},
	}
}

func (p *pathSet) add(path string) {
	path = strings.TrimSpace(path)
	if path == "" {
		return
	}
	if strings.HasSuffix(path, "/") {
		p.prefixes = append(p.prefixes, path)
		return
	}
	p.exact[path] = struct{}{}
}

func (p *pathSet) match(path string) bool {
	if _, ok := p.exact[path]; ok {
		return true
	}
	for _, prefix := range p.prefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// withAuth is the authentication middleware. Per request it extracts the
// bearer token, verifies it, binds the principal and the tenant scope, and
// dispatches. Teardown of both bindings runs on every exit path, including
// handler panics, so a reused execution slot never observes stale scope.
func (a *API) withAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions || a.public.match(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		scope := tenant.NewScope()
		binding := auth.NewBinding()
		ctx := tenant.WithScope(r.Context(), scope)
		ctx = auth.ContextWithBinding(ctx, binding)

		defer func() {
			rec := recover()
			scope.Clear()
			binding.Clear()
			if rec != nil {
				obs.LogRequest(map[string]any{
					"ts":         time.Now().UTC().Format(time.RFC3339Nano),
					"level":      "error",
					"msg":        "handler_panic",
					"request_id": RequestIDFromContext(r.Context()),
					"path":       r.URL.Path,
					"panic":      rec,
				})
				writeError(w, r, http.StatusInternalServerError, "internal server error")
			}
		}()

		raw, err := extractBearerToken(r.Header.Get(authHeader))
		if err != nil {
			writeError(w, r, http.StatusUnauthorized, "Missing or invalid Authorization header")
			return
		}

		claims, err := a.tokens.Parse(raw)
		if err != nil {
			switch {
			case errors.Is(err, auth.ErrTokenExpired):
				writeError(w, r, http.StatusUnauthorized, "Token expired")
			case errors.Is(err, auth.ErrInvalidToken):
				writeError(w, r, http.StatusUnauthorized, "Invalid token")
			default:
				writeError(w, r, http.StatusInternalServerError, "Authentication failed")
			}
			return
		}

		binding.Bind(auth.Principal{
			UserID:   claims.Subject,
			Role:     auth.Role(claims.Role),
			TenantID: claims.TenantID,
		})
		// A super admin legitimately carries no tenant claim; everyone else
		// had one embedded at issuance.
		if claims.TenantID != "" {
			scope.Bind(claims.TenantID)
		}

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func extractBearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", errors.New("missing bearer token")
	}
	if !strings.HasPrefix(strings.ToLower(header), strings.ToLower(bearer)) {
		return "", errors.New("invalid authorization scheme")
	}
	token := strings.TrimSpace(header[len(bearer):])
	if token == "" {
		return "", errors.New("missing bearer token")
	}
	return token, nil
}
