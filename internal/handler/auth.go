package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/mwilkes/basket/internal/apperror"
	"github.com/mwilkes/basket/internal/auth"
	"github.com/mwilkes/basket/internal/model"
	"github.com/mwilkes/basket/internal/store"
)

type AuthHandler struct {
	users  *store.UserStore
	tokens *auth.TokenService
	logger *slog.Logger
}

func NewAuthHandler(users *store.UserStore, tokens *auth.TokenService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{users: users, tokens: tokens, logger: logger}
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type sessionResponse struct {
	Token string      `json:"token"`
	User  *model.User `json:"user"`
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, apperror.New(apperror.CodeParametersRequired, "invalid JSON"))
		return
	}

	req.Email = strings.TrimSpace(req.Email)
	req.Name = strings.TrimSpace(req.Name)
	if req.Email == "" || !strings.Contains(req.Email, "@") {
		writeError(w, h.logger, apperror.New(apperror.CodeEmailRequired, "a valid email is required"))
		return
	}
	if len(req.Password) < 8 {
		writeError(w, h.logger, apperror.New(apperror.CodeParametersRequired, "password must be at least 8 characters"))
		return
	}

	existing, err := h.users.GetByEmail(req.Email)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if existing != nil {
		writeError(w, h.logger, apperror.New(apperror.CodeEmailTaken, "an account with this email already exists"))
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		writeError(w, h.logger, apperror.New(apperror.CodeParametersRequired, err.Error()))
		return
	}

	user, err := h.users.Create(req.Email, req.Name, hash)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	token, err := h.tokens.Generate(user.ID, user.Email)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, sessionResponse{Token: token, User: user})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, apperror.New(apperror.CodeParametersRequired, "invalid JSON"))
		return
	}

	user, err := h.users.GetByEmail(strings.TrimSpace(req.Email))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	// Same answer for unknown email and wrong password.
	if user == nil || !auth.CheckPassword(user.PasswordHash, req.Password) {
		writeError(w, h.logger, apperror.New(apperror.CodeUnauthorized, "invalid email or password"))
		return
	}

	token, err := h.tokens.Generate(user.ID, user.Email)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{Token: token, User: user})
}
