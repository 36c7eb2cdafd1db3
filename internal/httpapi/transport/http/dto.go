package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	rentaldomain "github.com/otprent/rental-gateway/internal/rental/domain"
	userdomain "github.com/otprent/rental-gateway/internal/user/domain"
)

type RegisterRequestDTO struct {
	Username string `json:"username" validate:"required,min=3,max=64"`
	Password string `json:"password" validate:"required,min=6,max=128"`
	FullName string `json:"fullname" validate:"required,max=128"`
}

type LoginRequestDTO struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type LoginResponseDTO struct {
	Token string          `json:"token"`
	User  userdomain.User `json:"user"`
}

type UpdateQuotaRequestDTO struct {
	Quota int64 `json:"quota" validate:"gte=0"`
}

type RentRequestDTO struct {
	ServiceID string `json:"serviceId" validate:"required"`
	Country   string `json:"country" validate:"required,len=2"`
}

// RentalDTO is the API shape of one tracked rental.
type RentalDTO struct {
	RequestID    string    `json:"request_id"`
	PhoneNumber  string    `json:"phone_number"`
	DisplayPhone string    `json:"display_phone"`
	ServiceID    string    `json:"service_id"`
	ServiceName  string    `json:"service_name"`
	Price        int64     `json:"price"`
	Status       string    `json:"status"`
	Code         string    `json:"code,omitempty"`
	SMSContent   string    `json:"sms_content,omitempty"`
	IsSound      bool      `json:"is_sound,omitempty"`
	CreatedTime  time.Time `json:"created_time"`
}

func toRentalDTO(rec rentaldomain.RentalRecord) RentalDTO {
	return RentalDTO{
		RequestID:    rec.RequestID,
		PhoneNumber:  rec.PhoneNumber,
		DisplayPhone: rec.DisplayPhone(),
		ServiceID:    rec.ServiceID,
		ServiceName:  rec.ServiceName,
		Price:        rec.Price,
		Status:       rec.Status.String(),
		Code:         rec.Code,
		SMSContent:   rec.SMSContent,
		IsSound:      rec.IsSound,
		CreatedTime:  rec.CreatedTime,
	}
}

func toRentalDTOs(recs []rentaldomain.RentalRecord) []RentalDTO {
	out := make([]RentalDTO, 0, len(recs))
	for _, rec := range recs {
		out = append(out, toRentalDTO(rec))
	}
	return out
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeProviderError maps gateway failures onto gateway-ish HTTP
// statuses: the provider said no -> 502 with its message, the provider
// was unreachable -> 504.
func writeProviderError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var remoteErr *rentaldomain.RemoteError
	if errors.As(err, &remoteErr) {
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: remoteErr.Message})
		return
	}
	var netErr *rentaldomain.NetworkError
	if errors.As(err, &netErr) {
		writeJSON(w, http.StatusGatewayTimeout, errorResponse{Error: "provider unreachable"})
		return
	}
	logger.Error("unexpected provider error", "error", err)
	writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal server error"})
}
