package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/otprent/rental-gateway/internal/rental/domain"
)

// Client talks to the OTP rental provider. The access token is attached
// server-side on every request so it never has to reach a browser.
type Client struct {
	logger     *slog.Logger
	httpClient *http.Client
	baseURL    string
	token      string
}

// NewClient builds a provider client. A nil httpClient gets a 10s
// timeout default.
func NewClient(logger *slog.Logger, baseURL, token string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{
		logger:     logger.With("component", "provider_client"),
		httpClient: httpClient,
		baseURL:    baseURL,
		token:      token,
	}
}

// envelope is the provider's uniform response wrapper.
type envelope struct {
	Success    bool            `json:"success"`
	StatusCode int             `json:"status_code"`
	Message    string          `json:"message"`
	Data       json.RawMessage `json:"data"`
}

// get performs one provider call and decodes the envelope's data into
// out. Transport and decode failures become NetworkError; a failure
// envelope becomes RemoteError with the provider's message.
func (c *Client) get(ctx context.Context, op, path string, params url.Values, out any) error {
	if params == nil {
		params = url.Values{}
	}
	params.Set("token", c.token)
	reqURL := c.baseURL + path + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return &domain.NetworkError{Op: op, Err: err}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.WarnContext(ctx, "provider request failed", "op", op, "error", err)
		return &domain.NetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &domain.NetworkError{Op: op, Err: fmt.Errorf("read response body: %w", err)}
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		c.logger.WarnContext(ctx, "provider response is not a valid envelope", "op", op, "http_status", resp.StatusCode, "error", err)
		return &domain.NetworkError{Op: op, Err: fmt.Errorf("decode envelope: %w", err)}
	}

	if !env.Success || env.StatusCode != 200 {
		msg := env.Message
		if msg == "" {
			msg = domain.FallbackRemoteMessage
		}
		return &domain.RemoteError{Op: op, StatusCode: env.StatusCode, Message: msg}
	}

	if out != nil {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return &domain.NetworkError{Op: op, Err: fmt.Errorf("decode data: %w", err)}
		}
	}
	return nil
}

// GetBalance returns the account balance.
func (c *Client) GetBalance(ctx context.Context) (float64, error) {
	var data struct {
		Balance float64 `json:"balance"`
	}
	if err := c.get(ctx, "balance", "/users/balance", nil, &data); err != nil {
		return 0, err
	}
	return data.Balance, nil
}

// serviceDTO tolerates numeric or string ids and prices on the wire.
type serviceDTO struct {
	ID    json.Number `json:"id"`
	Name  string      `json:"name"`
	Price json.Number `json:"price"`
}

// GetServices returns the rentable service catalog for a country code.
func (c *Client) GetServices(ctx context.Context, country string) ([]domain.ServiceCatalogEntry, error) {
	params := url.Values{}
	params.Set("country", country)

	var dtos []serviceDTO
	if err := c.get(ctx, "services", "/service/getv2", params, &dtos); err != nil {
		return nil, err
	}

	entries := make([]domain.ServiceCatalogEntry, 0, len(dtos))
	for _, d := range dtos {
		price, _ := d.Price.Int64()
		entries = append(entries, domain.ServiceCatalogEntry{
			ID:    d.ID.String(),
			Name:  d.Name,
			Price: price,
		})
	}
	return entries, nil
}

// RentPhone leases a phone number for a service and country.
func (c *Client) RentPhone(ctx context.Context, serviceID, country string) (domain.RentResult, error) {
	params := url.Values{}
	params.Set("serviceId", serviceID)
	params.Set("country", country)

	var data struct {
		RequestID   json.Number `json:"request_id"`
		PhoneNumber string      `json:"phone_number"`
	}
	if err := c.get(ctx, "rent", "/request/getv2", params, &data); err != nil {
		return domain.RentResult{}, err
	}
	return domain.RentResult{
		RequestID:   data.RequestID.String(),
		PhoneNumber: data.PhoneNumber,
	}, nil
}

// GetSessionStatus fetches the OTP delivery status of one rental
// session. Field names are PascalCase on this endpoint.
func (c *Client) GetSessionStatus(ctx context.Context, requestID string) (domain.SessionStatus, error) {
	params := url.Values{}
	params.Set("requestId", requestID)

	var data struct {
		Status     int      `json:"Status"`
		Code       string   `json:"Code"`
		SMSContent string   `json:"SmsContent"`
		IsSound    flexBool `json:"IsSound"`
	}
	if err := c.get(ctx, "status", "/session/getv2", params, &data); err != nil {
		return domain.SessionStatus{}, err
	}
	return domain.SessionStatus{
		Status:     domain.Status(data.Status),
		Code:       data.Code,
		SMSContent: data.SMSContent,
		IsSound:    bool(data.IsSound),
	}, nil
}

// historyDTO mirrors one row of /session/historyv2.
type historyDTO struct {
	ID            json.Number `json:"ID"`
	ServiceName   string      `json:"ServiceName"`
	Phone         string      `json:"Phone"`
	PhoneOriginal string      `json:"PhoneOriginal"`
	Code          string      `json:"Code"`
	Price         json.Number `json:"Price"`
	CreatedTime   string      `json:"CreatedTime"`
	Status        int         `json:"Status"`
	SMSContent    string      `json:"SmsContent"`
	IsSound       flexBool    `json:"IsSound"`
}

// GetHistory fetches past rental sessions. Unset service and status
// filters are sent as -1, which the provider treats as "any".
func (c *Client) GetHistory(ctx context.Context, filter domain.HistoryFilter) ([]domain.HistoryEntry, error) {
	params := url.Values{}
	if filter.ServiceID != "" {
		params.Set("service", filter.ServiceID)
	} else {
		params.Set("service", "-1")
	}
	if filter.Status != nil {
		params.Set("status", strconv.Itoa(int(*filter.Status)))
	} else {
		params.Set("status", "-1")
	}
	if filter.FromDate != "" {
		params.Set("fromDate", filter.FromDate)
	}
	if filter.ToDate != "" {
		params.Set("toDate", filter.ToDate)
	}
	if filter.Limit > 0 {
		params.Set("limit", strconv.Itoa(filter.Limit))
	}

	var dtos []historyDTO
	if err := c.get(ctx, "history", "/session/historyv2", params, &dtos); err != nil {
		return nil, err
	}

	entries := make([]domain.HistoryEntry, 0, len(dtos))
	for _, d := range dtos {
		price, _ := d.Price.Int64()
		entries = append(entries, domain.HistoryEntry{
			ID:            d.ID.String(),
			ServiceName:   d.ServiceName,
			Phone:         d.Phone,
			PhoneOriginal: d.PhoneOriginal,
			Code:          d.Code,
			Price:         price,
			CreatedTime:   parseProviderTime(d.CreatedTime),
			Status:        domain.Status(d.Status),
			SMSContent:    d.SMSContent,
			IsSound:       bool(d.IsSound),
		})
	}
	return entries, nil
}

// parseProviderTime tolerates the formats the provider has been seen
// emitting. An unparseable value yields the zero time rather than
// failing the whole history page.
func parseProviderTime(s string) time.Time {
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// flexBool accepts true/false, "true"/"false" and null. The provider
// serializes IsSound inconsistently across endpoints.
type flexBool bool

func (b *flexBool) UnmarshalJSON(data []byte) error {
	switch string(data) {
	case "true", `"true"`:
		*b = true
	case "false", `"false"`, "null", `""`:
		*b = false
	default:
		return fmt.Errorf("invalid bool value %s", string(data))
	}
	return nil
}
