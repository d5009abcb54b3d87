package api

import (
	"context"
	"net/http"
	"strings"

	"office-action-orchestrator/internal/domain"
)

type sessionKey struct{}

// requireSession resolves the bearer session id. An unknown or wiped
// session answers 401 so the client returns to sign-in.
func (h *Handler) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok {
			writeError(w, r, domain.ErrSessionInvalid)
			return
		}
		sess, err := h.tracker.Authenticate(r.Context(), strings.TrimSpace(id))
		if err != nil {
			writeError(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionKey{}, sess)))
	})
}

func sessionFrom(r *http.Request) domain.Session {
	sess, _ := r.Context().Value(sessionKey{}).(domain.Session)
	return sess
}

type loginResponse struct {
	SessionID string `json:"session_id"`
	UserID    string `json:"user_id"`
	Email     string `json:"email"`
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req domain.Registration
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.tracker.Register(r.Context(), req); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"status": "registered"})
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req domain.Credentials
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	sess, err := h.tracker.Login(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{SessionID: sess.ID, UserID: sess.UserID, Email: sess.Email})
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.tracker.Logout(r.Context(), sessionFrom(r)); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type verifyResetRequest struct {
	Token string `json:"token" validate:"required"`
}

func (h *Handler) VerifyResetToken(w http.ResponseWriter, r *http.Request) {
	var req verifyResetRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.tracker.VerifyResetToken(r.Context(), req.Token); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "valid"})
}

func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req domain.PasswordReset
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.tracker.ResetPassword(r.Context(), req); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, sessionFrom(r))
}

type setActiveRequest struct {
	ApplicationID string `json:"applicationId"`
	DocketID      string `json:"docketId"`
}

func (h *Handler) SetActive(w http.ResponseWriter, r *http.Request) {
	var req setActiveRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	sess, err := h.tracker.SetActive(r.Context(), sessionFrom(r), req.ApplicationID, req.DocketID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}
