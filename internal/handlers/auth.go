package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/asock/catio-cam/internal/database"
	"github.com/asock/catio-cam/internal/logging"
)

// SessionCookieName is the name of the session cookie.
const SessionCookieName = "catio_session"

type contextKey string

const userContextKey contextKey = "user"

// SessionRequest carries identity claims already verified by the
// external OAuth layer. This endpoint trusts its caller; it must only be
// reachable from the auth proxy.
type SessionRequest struct {
	Email      string `json:"email"`
	Name       string `json:"name"`
	AvatarURL  string `json:"avatarUrl"`
	Provider   string `json:"provider"`
	ProviderID string `json:"providerId"`
}

// CreateSession upserts the user from verified claims and issues a
// session cookie.
func (h *Handlers) CreateSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req SessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Email == "" || req.Provider == "" {
		writeJSONError(w, "Missing identity claims", http.StatusBadRequest)
		return
	}
	if req.Name == "" {
		req.Name = req.Email
	}

	user, err := h.db.UpsertUser(ctx, req.Email, req.Name, req.AvatarURL, req.Provider, req.ProviderID)
	if err != nil {
		logging.Error("Failed to upsert user: %v", err)
		writeJSONError(w, "Failed to create session", http.StatusInternalServerError)
		return
	}

	session, err := h.db.CreateSession(ctx, user.ID)
	if err != nil {
		logging.Error("Failed to create session: %v", err)
		writeJSONError(w, "Failed to create session", http.StatusInternalServerError)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    session.Token,
		Path:     "/",
		Expires:  session.ExpiresAt,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	logging.Info("Session created for user %d via %s", user.ID, req.Provider)

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, user)
}

// Me returns the authenticated user's profile.
func (h *Handlers) Me(w http.ResponseWriter, r *http.Request) {
	user := UserFrom(r.Context())
	if user == nil {
		writeJSONError(w, "Not authenticated", http.StatusUnauthorized)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, user)
}

// Logout ends the current session.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	cookie, err := r.Cookie(SessionCookieName)
	if err == nil && cookie.Value != "" {
		// Best-effort session cleanup.
		if err := h.db.DeleteSession(ctx, cookie.Value); err != nil {
			logging.Error("failed to delete session during logout: %v", err)
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	writeJSONStatus(w, "logged_out")
}

// UserFrom returns the authenticated user stored in the request context,
// or nil.
func UserFrom(ctx context.Context) *database.User {
	user, _ := ctx.Value(userContextKey).(*database.User)
	return user
}

// resolveUser looks up the session cookie, returning nil without error
// for anonymous requests.
func (h *Handlers) resolveUser(r *http.Request) *database.User {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil || cookie.Value == "" {
		return nil
	}
	user, err := h.db.GetUserByToken(r.Context(), cookie.Value)
	if err != nil {
		if !errors.Is(err, database.ErrNotFound) {
			logging.Warn("Session lookup failed: %v", err)
		}
		return nil
	}
	return user
}

// WithUser attaches the session user to the request context when
// present. Anonymous requests pass through untouched.
func (h *Handlers) WithUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if user := h.resolveUser(r); user != nil {
			r = r.WithContext(context.WithValue(r.Context(), userContextKey, user))
		}
		next.ServeHTTP(w, r)
	})
}

// RequireUser rejects unauthenticated requests.
func (h *Handlers) RequireUser(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if UserFrom(r.Context()) == nil {
			writeJSONError(w, "Authentication required", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

// RequireAdmin rejects requests from non-admin users.
func (h *Handlers) RequireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := UserFrom(r.Context())
		if user == nil {
			writeJSONError(w, "Authentication required", http.StatusUnauthorized)
			return
		}
		if !user.IsAdmin {
			writeJSONError(w, "Admin access required", http.StatusForbidden)
			return
		}
		next(w, r)
	}
}
