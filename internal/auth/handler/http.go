// Package handler exposes the auth service over HTTP. Request bodies arrive
// either as plain JSON or wrapped in a credential envelope; responses mirror
// the form the request used.
package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"time"

	"taskboard/backend/internal/auth/service"
	"taskboard/backend/internal/envelope"
	"taskboard/backend/internal/response"
	"taskboard/backend/internal/server/middleware"
)

// maxBodyBytes bounds request bodies; credential payloads are tiny.
const maxBodyBytes = 64 << 10

// Handler serves the /auth endpoints.
type Handler struct {
	svc   *service.AuthService
	codec *envelope.Codec
}

// NewHandler returns a Handler. codec may be nil to disable envelope support.
func NewHandler(svc *service.AuthService, codec *envelope.Codec) *Handler {
	return &Handler{svc: svc, codec: codec}
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type unlockRequest struct {
	Username string `json:"username"`
}

type sessionData struct {
	Token     string    `json:"token"`
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type statusData struct {
	Subject   string    `json:"subject"`
	Role      string    `json:"role"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Login handles POST /auth/login.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var creds credentials
	enveloped, ok := h.decodeBody(w, r, &creds)
	if !ok {
		return
	}
	res, err := h.svc.Login(r.Context(), creds.Username, creds.Password)
	if err != nil {
		h.writeServiceError(w, enveloped, err)
		return
	}
	h.respond(w, enveloped, http.StatusOK, response.Success(sessionData{
		Token:     res.Token,
		Username:  res.Username,
		Role:      string(res.Role),
		ExpiresAt: res.ExpiresAt,
	}))
}

// Register handles POST /auth/register.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var creds credentials
	enveloped, ok := h.decodeBody(w, r, &creds)
	if !ok {
		return
	}
	acct, err := h.svc.Register(r.Context(), creds.Username, creds.Password)
	if err != nil {
		h.writeServiceError(w, enveloped, err)
		return
	}
	h.respond(w, enveloped, http.StatusCreated, response.Success(map[string]string{
		"username": acct.Username,
		"role":     string(acct.Role),
	}, "account created"))
}

// Logout handles POST /auth/logout: revokes the caller's current session.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		response.WriteJSON(w, http.StatusUnauthorized, response.Error("session expired, please log in again"))
		return
	}
	if err := h.svc.Logout(r.Context(), id); err != nil {
		h.writeServiceError(w, false, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, response.Success(nil, "session closed"))
}

// LogoutAll handles POST /auth/logout-all: revokes every session for the caller.
func (h *Handler) LogoutAll(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		response.WriteJSON(w, http.StatusUnauthorized, response.Error("session expired, please log in again"))
		return
	}
	if err := h.svc.LogoutAll(r.Context(), id); err != nil {
		h.writeServiceError(w, false, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, response.Success(nil, "all sessions closed"))
}

// Status handles GET /auth/status. The filter chain has already validated the
// token by the time this runs, so reaching here means the session is live.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		response.WriteJSON(w, http.StatusUnauthorized, response.Error("session expired, please log in again"))
		return
	}
	response.WriteJSON(w, http.StatusOK, response.Success(statusData{
		Subject:   id.Subject,
		Role:      string(id.Role),
		ExpiresAt: id.ExpiresAt,
	}))
}

// Unlock handles POST /auth/unlock. Admin role is enforced by the filter chain.
func (h *Handler) Unlock(w http.ResponseWriter, r *http.Request) {
	var req unlockRequest
	enveloped, ok := h.decodeBody(w, r, &req)
	if !ok {
		return
	}
	if err := h.svc.Unlock(r.Context(), req.Username); err != nil {
		h.writeServiceError(w, enveloped, err)
		return
	}
	h.respond(w, enveloped, http.StatusOK, response.Success(nil, "account unlocked"))
}

// decodeBody reads the request body into v, transparently opening a
// credential envelope when one is presented. The returned bool pair is
// (request was enveloped, decode succeeded); on failure the error response
// has already been written. Codec failures surface as a generic bad request,
// never crypto diagnostics.
func (h *Handler) decodeBody(w http.ResponseWriter, r *http.Request, v any) (enveloped, ok bool) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil || len(body) == 0 {
		response.WriteJSON(w, http.StatusBadRequest, response.Error("malformed request body"))
		return false, false
	}
	var env envelope.Envelope
	if err := json.Unmarshal(body, &env); err == nil && env.Encrypted {
		if h.codec == nil {
			response.WriteJSON(w, http.StatusBadRequest, response.Error("malformed request body"))
			return true, false
		}
		if err := h.codec.Open(&env, v); err != nil {
			response.WriteJSON(w, http.StatusBadRequest, response.Error("malformed request body"))
			return true, false
		}
		return true, true
	}
	if err := json.Unmarshal(body, v); err != nil {
		response.WriteJSON(w, http.StatusBadRequest, response.Error("malformed request body"))
		return false, false
	}
	return false, true
}

// respond writes result, sealing it in an envelope when the request arrived
// in one.
func (h *Handler) respond(w http.ResponseWriter, enveloped bool, status int, result *response.Result) {
	if enveloped && h.codec != nil {
		env, err := h.codec.Seal(result)
		if err != nil {
			log.Printf("handler: seal response: %v", err)
			response.WriteJSON(w, http.StatusInternalServerError, response.Error("internal error"))
			return
		}
		response.WriteJSON(w, status, env)
		return
	}
	response.WriteJSON(w, status, result)
}

// writeServiceError maps service errors onto the wire taxonomy. Unknown
// username and wrong password share one message; the lockout rejection is the
// single intentionally distinct authentication failure.
func (h *Handler) writeServiceError(w http.ResponseWriter, enveloped bool, err error) {
	var locked *service.LockedError
	switch {
	case errors.As(err, &locked):
		h.respond(w, enveloped, http.StatusUnauthorized, response.Error(locked.Error()))
	case errors.Is(err, service.ErrPermanentlyLocked):
		h.respond(w, enveloped, http.StatusUnauthorized, response.Error(service.ErrPermanentlyLocked.Error()))
	case errors.Is(err, service.ErrInvalidCredentials):
		h.respond(w, enveloped, http.StatusUnauthorized, response.Error("invalid username or password"))
	case errors.Is(err, service.ErrUsernameTaken):
		h.respond(w, enveloped, http.StatusConflict, response.Error(service.ErrUsernameTaken.Error()))
	case errors.Is(err, service.ErrAccountNotFound):
		h.respond(w, enveloped, http.StatusNotFound, response.Error(service.ErrAccountNotFound.Error()))
	case errors.Is(err, service.ErrInvalidInput):
		h.respond(w, enveloped, http.StatusBadRequest, response.Error(err.Error()))
	default:
		log.Printf("handler: internal error: %v", err)
		h.respond(w, enveloped, http.StatusInternalServerError, response.Error("internal error"))
	}
}
