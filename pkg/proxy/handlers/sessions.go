package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"emberhq/ember/pkg/proxy"
	"emberhq/ember/pkg/session"
	"emberhq/ember/pkg/store"
)

// SessionsHandler serves the session CRUD endpoints.
type SessionsHandler struct {
	Ledger *session.Ledger
}

// NewSessionsHandler creates a sessions handler.
func NewSessionsHandler(l *session.Ledger) *SessionsHandler {
	return &SessionsHandler{Ledger: l}
}

// List serves GET /v1/sessions.
func (h *SessionsHandler) List(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.Ledger.List(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to list sessions", "error", err)
		_ = proxy.WriteError(w, http.StatusInternalServerError, "backend_error", "failed to list sessions")
		return
	}
	if sessions == nil {
		sessions = []*store.Session{}
	}
	_ = proxy.WriteJSON(w, http.StatusOK, sessions)
}

// Create serves POST /v1/sessions.
func (h *SessionsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req proxy.CreateSessionRequest
	if r.ContentLength != 0 {
		if err := proxy.ParseJSONBody(r, &req); err != nil {
			_ = proxy.WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
			return
		}
	}

	sess, err := h.Ledger.Create(r.Context(), req.Title)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to create session", "error", err)
		_ = proxy.WriteError(w, http.StatusInternalServerError, "backend_error", "failed to create session")
		return
	}

	_ = proxy.WriteJSON(w, http.StatusOK, map[string]string{
		"id":    sess.ID,
		"title": sess.Title,
	})
}

// Get serves GET /v1/sessions/{id}.
func (h *SessionsHandler) Get(w http.ResponseWriter, r *http.Request) {
	sess, err := h.Ledger.Get(r.Context(), r.PathValue("id"))
	if errors.Is(err, store.ErrNotFound) {
		_ = proxy.WriteError(w, http.StatusNotFound, "not_found", "")
		return
	}
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to load session", "error", err)
		_ = proxy.WriteError(w, http.StatusInternalServerError, "backend_error", "failed to load session")
		return
	}
	_ = proxy.WriteJSON(w, http.StatusOK, sess)
}

// Delete serves DELETE /v1/sessions/{id}. Deletion is idempotent.
func (h *SessionsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.Ledger.Delete(r.Context(), r.PathValue("id")); err != nil {
		slog.ErrorContext(r.Context(), "failed to delete session", "error", err)
		_ = proxy.WriteError(w, http.StatusInternalServerError, "backend_error", "failed to delete session")
		return
	}
	_ = proxy.WriteJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
