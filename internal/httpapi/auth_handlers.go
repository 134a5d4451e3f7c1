package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"taskhive.io/internal/audit"
	"taskhive.io/internal/auth"
	"taskhive.io/internal/obs"
)

type loginRequest struct {
	TenantKey string `json:"tenantKey"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type tokenResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	TokenType    string `json:"tokenType"`
	ExpiresIn    int64  `json:"expiresIn"`
}

func (a *API) tokenResponse(pair auth.TokenPair) tokenResponse {
	return tokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int64(a.authSvc.AccessTTL().Seconds()),
	}
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	pair, err := a.authSvc.Login(r.Context(), req.TenantKey, req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrInvalidInput):
			obs.ObserveLogin("bad_request")
			writeMessage(w, http.StatusBadRequest, userMessage(err, "Invalid request"))
		case errors.Is(err, auth.ErrUnauthorized):
			obs.ObserveLogin("unauthorized")
			_ = audit.LogEvent(r.Context(), "auth.login.denied", map[string]any{
				"tenant_key": strings.TrimSpace(req.TenantKey),
			})
			writeMessage(w, http.StatusUnauthorized, userMessage(err, "Invalid credentials"))
		default:
			obs.ObserveLogin("error")
			logInternal(r, "login failed", err)
			writeMessage(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}

	obs.ObserveLogin("ok")
	_ = audit.LogEvent(r.Context(), "auth.login", map[string]any{
		"tenant_key": strings.TrimSpace(req.TenantKey),
	})
	writeJSON(w, http.StatusOK, a.tokenResponse(pair))
}

func (a *API) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req refreshRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	pair, err := a.authSvc.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrRefreshExpired):
			obs.ObserveRefresh("expired")
			writeMessage(w, http.StatusUnauthorized, "Refresh token expired. Please login again")
		case errors.Is(err, auth.ErrInvalidToken):
			obs.ObserveRefresh("invalid")
			writeMessage(w, http.StatusUnauthorized, "Invalid refresh token")
		case errors.Is(err, auth.ErrNotFound):
			obs.ObserveRefresh("orphaned")
			writeMessage(w, http.StatusNotFound, "User not found")
		default:
			obs.ObserveRefresh("error")
			logInternal(r, "refresh failed", err)
			writeMessage(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}

	obs.ObserveRefresh("ok")
	_ = audit.LogEvent(r.Context(), "auth.refresh", nil)
	writeJSON(w, http.StatusOK, a.tokenResponse(pair))
}

func (a *API) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req refreshRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := a.authSvc.Logout(r.Context(), req.RefreshToken); err != nil {
		logInternal(r, "logout failed", err)
		writeMessage(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	_ = audit.LogEvent(r.Context(), "auth.logout", nil)
	writeMessage(w, http.StatusOK, "Logged out successfully")
}

// userMessage derives the caller-facing message from a wrapped sentinel
// error without exposing internals: only the innermost reason is rendered.
func userMessage(err error, fallback string) string {
	msg := err.Error()
	if i := strings.LastIndex(msg, ": "); i >= 0 {
		msg = msg[i+2:]
	}
	msg = strings.TrimSpace(msg)
	if msg == "" {
		return fallback
	}
	return strings.ToUpper(msg[:1]) + msg[1:]
}

func logInternal(r *http.Request, msg string, err error) {
	obs.LogRequest(map[string]any{
		"ts":         timeNowRFC3339(),
		"level":      "error",
		"msg":        msg,
		"error":      err.Error(),
		"request_id": RequestIDFromContext(r.Context()),
		"path":       r.URL.Path,
	})
}
