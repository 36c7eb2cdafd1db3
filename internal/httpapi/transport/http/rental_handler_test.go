package http

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/otprent/rental-gateway/internal/rental/app"
	"github.com/otprent/rental-gateway/internal/rental/domain"
)

type stubGateway struct {
	balance    float64
	balanceErr error
	services   []domain.ServiceCatalogEntry
	rentResult domain.RentResult
	rentErr    error
	history    []domain.HistoryEntry
	historyErr error

	lastHistoryFilter domain.HistoryFilter
}

func (g *stubGateway) GetBalance(ctx context.Context) (float64, error) {
	return g.balance, g.balanceErr
}

func (g *stubGateway) GetServices(ctx context.Context, country string) ([]domain.ServiceCatalogEntry, error) {
	return g.services, nil
}

func (g *stubGateway) RentPhone(ctx context.Context, serviceID, country string) (domain.RentResult, error) {
	return g.rentResult, g.rentErr
}

func (g *stubGateway) GetSessionStatus(ctx context.Context, requestID string) (domain.SessionStatus, error) {
	return domain.SessionStatus{}, nil
}

func (g *stubGateway) GetHistory(ctx context.Context, filter domain.HistoryFilter) ([]domain.HistoryEntry, error) {
	g.lastHistoryFilter = filter
	return g.history, g.historyErr
}

type stubRegistry struct {
	records map[string]domain.RentalRecord
	order   []string
}

func newStubRegistry(records ...domain.RentalRecord) *stubRegistry {
	r := &stubRegistry{records: make(map[string]domain.RentalRecord)}
	for _, rec := range records {
		r.Upsert(rec)
	}
	return r
}

func (r *stubRegistry) Upsert(rec domain.RentalRecord) {
	if _, ok := r.records[rec.RequestID]; !ok {
		r.order = append(r.order, rec.RequestID)
	}
	r.records[rec.RequestID] = rec
}

func (r *stubRegistry) Snapshot() []domain.RentalRecord {
	out := make([]domain.RentalRecord, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.records[id])
	}
	return out
}

func (r *stubRegistry) Get(requestID string) (domain.RentalRecord, bool) {
	rec, ok := r.records[requestID]
	return rec, ok
}

func (r *stubRegistry) Pending() []domain.RentalRecord {
	var out []domain.RentalRecord
	for _, id := range r.order {
		if r.records[id].Status == domain.StatusWaiting {
			out = append(out, r.records[id])
		}
	}
	return out
}

type stubPoller struct {
	ensureCalls     int
	refreshAllCalls int
	refreshOneErr   error
	refreshedIDs    []string
}

func (p *stubPoller) EnsureRunning() { p.ensureCalls++ }

func (p *stubPoller) RefreshAll(ctx context.Context) { p.refreshAllCalls++ }

func (p *stubPoller) RefreshOne(ctx context.Context, requestID string) error {
	p.refreshedIDs = append(p.refreshedIDs, requestID)
	return p.refreshOneErr
}

type stubCaches struct {
	balance    *domain.BalanceSnapshot
	services   map[string][]domain.ServiceCatalogEntry
	setBalance int
}

func (c *stubCaches) Balance(ctx context.Context) (domain.BalanceSnapshot, bool) {
	if c.balance == nil {
		return domain.BalanceSnapshot{}, false
	}
	return *c.balance, true
}

func (c *stubCaches) SetBalance(ctx context.Context, balance float64) {
	c.setBalance++
	c.balance = &domain.BalanceSnapshot{Balance: balance, Timestamp: time.Now()}
}

func (c *stubCaches) Services(ctx context.Context, country string) ([]domain.ServiceCatalogEntry, bool) {
	entries, ok := c.services[country]
	return entries, ok
}

func (c *stubCaches) SetServices(ctx context.Context, country string, entries []domain.ServiceCatalogEntry) {
	if c.services == nil {
		c.services = make(map[string][]domain.ServiceCatalogEntry)
	}
	c.services[country] = entries
}

type rentalHandlerFixture struct {
	handler  *RentalHandler
	gateway  *stubGateway
	registry *stubRegistry
	poller   *stubPoller
}

func newRentalHandlerFixture(records ...domain.RentalRecord) *rentalHandlerFixture {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	gateway := &stubGateway{}
	registry := newStubRegistry(records...)
	poller := &stubPoller{}
	service := app.NewRentalService(gateway, registry, poller, &stubCaches{}, logger)
	return &rentalHandlerFixture{
		handler:  NewRentalHandler(service, logger, validator.New()),
		gateway:  gateway,
		registry: registry,
		poller:   poller,
	}
}

func TestRentalHandler_Rent(t *testing.T) {
	fx := newRentalHandlerFixture()
	fx.gateway.services = []domain.ServiceCatalogEntry{{ID: "svc-1", Name: "Telegram", Price: 1500}}
	fx.gateway.rentResult = domain.RentResult{RequestID: "r1", PhoneNumber: "912345678"}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/rentals",
		strings.NewReader(`{"serviceId":"svc-1","country":"vn"}`))
	rec := httptest.NewRecorder()
	fx.handler.Rent(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	var dto RentalDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &dto))
	assert.Equal(t, "r1", dto.RequestID)
	assert.Equal(t, "0912345678", dto.DisplayPhone)
	assert.Equal(t, "Telegram", dto.ServiceName)
	assert.Equal(t, int64(1500), dto.Price)
	assert.Equal(t, "waiting", dto.Status)
	assert.Equal(t, 1, fx.poller.ensureCalls)
}

func TestRentalHandler_RentValidation(t *testing.T) {
	fx := newRentalHandlerFixture()

	tests := []struct {
		name string
		body string
	}{
		{"MissingService", `{"country":"vn"}`},
		{"BadCountry", `{"serviceId":"svc-1","country":"vnm"}`},
		{"NotJSON", `service=svc-1`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/rentals", strings.NewReader(tc.body))
			rec := httptest.NewRecorder()
			fx.handler.Rent(rec, req)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Empty(t, fx.registry.records)
		})
	}
}

func TestRentalHandler_RentProviderRejection(t *testing.T) {
	fx := newRentalHandlerFixture()
	fx.gateway.rentErr = &domain.RemoteError{Op: "rent_phone", Message: "Not enough balance"}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/rentals",
		strings.NewReader(`{"serviceId":"svc-1","country":"vn"}`))
	rec := httptest.NewRecorder()
	fx.handler.Rent(rec, req)

	require.Equal(t, http.StatusBadGateway, rec.Code)
	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Not enough balance", resp.Error)
	assert.Empty(t, fx.registry.records)
	assert.Zero(t, fx.poller.ensureCalls)
}

func TestRentalHandler_GetBalance(t *testing.T) {
	fx := newRentalHandlerFixture()
	fx.gateway.balance = 42000

	req := httptest.NewRequest(http.MethodGet, "/api/v1/balance", nil)
	rec := httptest.NewRecorder()
	fx.handler.GetBalance(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var snap domain.BalanceSnapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Equal(t, float64(42000), snap.Balance)
}

func TestRentalHandler_GetBalanceProviderDown(t *testing.T) {
	fx := newRentalHandlerFixture()
	fx.gateway.balanceErr = &domain.NetworkError{Op: "get_balance", Err: io.ErrUnexpectedEOF}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/balance", nil)
	rec := httptest.NewRecorder()
	fx.handler.GetBalance(rec, req)

	require.Equal(t, http.StatusGatewayTimeout, rec.Code)
	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "provider unreachable", resp.Error)
}

func TestRentalHandler_GetServicesRequiresCountry(t *testing.T) {
	fx := newRentalHandlerFixture()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/services", nil)
	rec := httptest.NewRecorder()
	fx.handler.GetServices(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRentalHandler_ListRentals(t *testing.T) {
	created := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	fx := newRentalHandlerFixture(
		domain.RentalRecord{RequestID: "r1", PhoneNumber: "911111111", Status: domain.StatusSuccess, Code: "4821", CreatedTime: created},
		domain.RentalRecord{RequestID: "r2", PhoneNumber: "922222222", Status: domain.StatusWaiting, CreatedTime: created.Add(time.Minute)},
	)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/rentals", nil)
	rec := httptest.NewRecorder()
	fx.handler.ListRentals(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var dtos []RentalDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &dtos))
	require.Len(t, dtos, 2)
	assert.Equal(t, "r1", dtos[0].RequestID)
	assert.Equal(t, "success", dtos[0].Status)
	assert.Equal(t, "4821", dtos[0].Code)
	assert.Equal(t, "r2", dtos[1].RequestID)
	assert.Equal(t, "waiting", dtos[1].Status)
}

func TestRentalHandler_GetHistoryFilters(t *testing.T) {
	fx := newRentalHandlerFixture()

	req := httptest.NewRequest(http.MethodGet,
		"/api/v1/history?serviceId=svc-1&status=1&fromDate=2026-08-01&toDate=2026-08-28&limit=50", nil)
	rec := httptest.NewRecorder()
	fx.handler.GetHistory(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	filter := fx.gateway.lastHistoryFilter
	assert.Equal(t, "svc-1", filter.ServiceID)
	require.NotNil(t, filter.Status)
	assert.Equal(t, domain.StatusSuccess, *filter.Status)
	assert.Equal(t, "2026-08-01", filter.FromDate)
	assert.Equal(t, "2026-08-28", filter.ToDate)
	assert.Equal(t, 50, filter.Limit)
}

func TestRentalHandler_GetHistoryBadStatus(t *testing.T) {
	fx := newRentalHandlerFixture()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/history?status=done", nil)
	rec := httptest.NewRecorder()
	fx.handler.GetHistory(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProxyHandler_AttachesToken(t *testing.T) {
	var captured *http.Request
	provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = r.Clone(context.Background())
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"success":true,"status_code":200,"data":{"balance":1000}}`))
	}))
	defer provider.Close()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := NewProxyHandler(logger, provider.URL, "secret-token", provider.Client())

	req := httptest.NewRequest(http.MethodGet, "/api/proxy?path=users/balance&country=vn", nil)
	rec := httptest.NewRecorder()
	handler.Forward(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, captured)
	assert.Equal(t, "/users/balance", captured.URL.Path)
	assert.Equal(t, "secret-token", captured.URL.Query().Get("token"))
	assert.Equal(t, "vn", captured.URL.Query().Get("country"))
	assert.JSONEq(t, `{"success":true,"status_code":200,"data":{"balance":1000}}`, rec.Body.String())
}

func TestProxyHandler_RequiresPath(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := NewProxyHandler(logger, "http://127.0.0.1:0", "tok", nil)

	req := httptest.NewRequest(http.MethodGet, "/api/proxy", nil)
	rec := httptest.NewRecorder()
	handler.Forward(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
