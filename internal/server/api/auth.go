package api

import (
	"errors"
	"net/http"

	"github.com/intelvis/intelvis/internal/server/metrics"
	"github.com/intelvis/intelvis/internal/server/services"
	"github.com/intelvis/intelvis/pkg/models"
	"github.com/intelvis/intelvis/pkg/utils"
)

type AuthHandler struct {
	authService *services.AuthService
	cookie      *SessionCookie
	metrics     *metrics.Metrics
}

func NewAuthHandler(authService *services.AuthService, cookie *SessionCookie, m *metrics.Metrics) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		cookie:      cookie,
		metrics:     m,
	}
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondErrorJSON(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Email = utils.NormalizeEmail(req.Email)
	if err := validateRequest(&req); err != nil {
		respondErrorJSON(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.authService.Register(r.Context(), req.Email, req.Password)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, user.Public())
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondErrorJSON(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Email = utils.NormalizeEmail(req.Email)
	if err := validateRequest(&req); err != nil {
		respondErrorJSON(w, http.StatusBadRequest, err.Error())
		return
	}

	user, token, err := h.authService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			h.metrics.Login(metrics.ResultUnauthorized)
		} else {
			h.metrics.Login(metrics.ResultError)
		}
		respondServiceError(w, r, err)
		return
	}
	h.metrics.Login(metrics.ResultOK)

	h.cookie.Set(w, token)
	respondJSON(w, http.StatusOK, user.Public())
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user := GetUser(r)
	if user == nil {
		respondErrorJSON(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	resp := user.Public()
	createdAt := user.CreatedAt
	resp.CreatedAt = &createdAt
	respondJSON(w, http.StatusOK, resp)
}

// Logout needs no session: clearing a cookie that is already gone is harmless.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.cookie.Clear(w)
	respondJSON(w, http.StatusOK, models.MessageResponse{Message: "Logged out"})
}
