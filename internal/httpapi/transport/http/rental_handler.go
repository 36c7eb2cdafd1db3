package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/otprent/rental-gateway/internal/rental/app"
	"github.com/otprent/rental-gateway/internal/rental/domain"
)

// RentalHandler exposes the rental core over JSON.
type RentalHandler struct {
	service  *app.RentalService
	logger   *slog.Logger
	validate *validator.Validate
}

func NewRentalHandler(service *app.RentalService, logger *slog.Logger, validate *validator.Validate) *RentalHandler {
	return &RentalHandler{
		service:  service,
		logger:   logger,
		validate: validate,
	}
}

func (h *RentalHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	force := r.URL.Query().Get("force") == "true"

	snap, err := h.service.Balance(ctx, force)
	if err != nil {
		writeProviderError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (h *RentalHandler) GetServices(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	country := r.URL.Query().Get("country")
	if country == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "country query parameter is required"})
		return
	}
	force := r.URL.Query().Get("force") == "true"

	entries, err := h.service.Services(ctx, country, force)
	if err != nil {
		writeProviderError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (h *RentalHandler) Rent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var reqDTO RentRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&reqDTO); err != nil {
		h.logger.WarnContext(ctx, "failed to decode rent request body", "error", err)
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	if err := h.validate.StructCtx(ctx, reqDTO); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("validation error: %s", err)})
		return
	}

	record, err := h.service.Rent(ctx, reqDTO.ServiceID, reqDTO.Country)
	if err != nil {
		writeProviderError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, toRentalDTO(record))
}

func (h *RentalHandler) ListRentals(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, toRentalDTOs(h.service.Rentals(r.Context())))
}

func (h *RentalHandler) GetRental(w http.ResponseWriter, r *http.Request) {
	requestID := chi.URLParam(r, "requestID")
	record, err := h.service.Rental(r.Context(), requestID)
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "rental not found"})
		return
	}
	writeJSON(w, http.StatusOK, toRentalDTO(record))
}

func (h *RentalHandler) RefreshRental(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := chi.URLParam(r, "requestID")

	record, err := h.service.RefreshRental(ctx, requestID)
	if err != nil {
		if errors.Is(err, app.ErrRentalNotFound) {
			writeJSON(w, http.StatusNotFound, errorResponse{Error: "rental not found"})
			return
		}
		writeProviderError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toRentalDTO(record))
}

func (h *RentalHandler) RefreshRentals(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, toRentalDTOs(h.service.RefreshRentals(r.Context())))
}

func (h *RentalHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	filter := domain.HistoryFilter{
		ServiceID: q.Get("serviceId"),
		FromDate:  q.Get("fromDate"),
		ToDate:    q.Get("toDate"),
	}
	if raw := q.Get("status"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "status must be numeric"})
			return
		}
		status := domain.Status(n)
		filter.Status = &status
	}
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "limit must be a non-negative integer"})
			return
		}
		filter.Limit = n
	}

	entries, err := h.service.History(ctx, filter)
	if err != nil {
		writeProviderError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}
