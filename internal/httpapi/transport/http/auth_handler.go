package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/otprent/rental-gateway/internal/httpapi/middleware"
	"github.com/otprent/rental-gateway/internal/user/app"
)

// AuthHandler exposes register, login and profile endpoints.
type AuthHandler struct {
	authService *app.AuthService
	logger      *slog.Logger
	validate    *validator.Validate
}

func NewAuthHandler(authService *app.AuthService, logger *slog.Logger, validate *validator.Validate) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		logger:      logger,
		validate:    validate,
	}
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var reqDTO RegisterRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&reqDTO); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	if err := h.validate.StructCtx(ctx, reqDTO); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("validation error: %s", err)})
		return
	}

	user, err := h.authService.Register(ctx, reqDTO.Username, reqDTO.Password, reqDTO.FullName)
	if err != nil {
		if errors.Is(err, app.ErrUsernameExists) {
			writeJSON(w, http.StatusConflict, errorResponse{Error: "username already exists"})
			return
		}
		h.logger.ErrorContext(ctx, "register failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal server error"})
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var reqDTO LoginRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&reqDTO); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	if err := h.validate.StructCtx(ctx, reqDTO); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("validation error: %s", err)})
		return
	}

	token, user, err := h.authService.Login(ctx, reqDTO.Username, reqDTO.Password)
	if err != nil {
		if errors.Is(err, app.ErrInvalidCredentials) {
			writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "invalid username or password"})
			return
		}
		h.logger.ErrorContext(ctx, "login failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal server error"})
		return
	}
	writeJSON(w, http.StatusOK, LoginResponseDTO{Token: token, User: *user})
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	authUser, ok := middleware.UserFromContext(ctx)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "authentication required"})
		return
	}

	user, err := h.authService.Profile(ctx, authUser.ID)
	if err != nil {
		if errors.Is(err, app.ErrUserNotFound) {
			writeJSON(w, http.StatusNotFound, errorResponse{Error: "user not found"})
			return
		}
		h.logger.ErrorContext(ctx, "profile lookup failed", "user_id", authUser.ID, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal server error"})
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *AuthHandler) UpdateQuota(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	authUser, ok := middleware.UserFromContext(ctx)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "authentication required"})
		return
	}

	var reqDTO UpdateQuotaRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&reqDTO); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	if err := h.validate.StructCtx(ctx, reqDTO); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("validation error: %s", err)})
		return
	}

	user, err := h.authService.UpdateQuota(ctx, authUser.ID, reqDTO.Quota)
	if err != nil {
		if errors.Is(err, app.ErrUserNotFound) {
			writeJSON(w, http.StatusNotFound, errorResponse{Error: "user not found"})
			return
		}
		h.logger.ErrorContext(ctx, "quota update failed", "user_id", authUser.ID, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal server error"})
		return
	}
	writeJSON(w, http.StatusOK, user)
}
