package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"chat-relay/auth"
	"chat-relay/domain"
	relayerrors "chat-relay/errors"
	"chat-relay/services"
)

type AuthHandler struct {
	svc services.IAuthService
}

func NewAuthHandler(svc services.IAuthService) *AuthHandler {
	return &AuthHandler{svc: svc}
}

type authResponse struct {
	Token string            `json:"token"`
	User  domain.PublicUser `json:"user"`
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req auth.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	token, user, err := h.svc.Register(r.Context(), req.Email, req.Password)
	switch {
	case errors.Is(err, relayerrors.ErrUserAlreadyExists):
		respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, relayerrors.ErrInvalidPassword):
		respondError(w, http.StatusBadRequest, err.Error())
	case err != nil:
		respondError(w, http.StatusInternalServerError, "registration failed")
	default:
		respondJSON(w, http.StatusOK, authResponse{Token: string(token), User: user})
	}
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req auth.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := auth.ValidateLogin(req); err != nil {
		respondError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	token, user, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		respondError(w, http.StatusUnauthorized, relayerrors.ErrInvalidCredentials.Error())
		return
	}
	respondJSON(w, http.StatusOK, authResponse{Token: string(token), User: user})
}
