package provider

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/otprent/rental-gateway/internal/rental/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(testLogger(), server.URL, "test-token", server.Client())
}

func TestClient_GetBalance(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/users/balance", r.URL.Path)
		assert.Equal(t, "test-token", r.URL.Query().Get("token"))
		_, _ = w.Write([]byte(`{"success":true,"status_code":200,"data":{"balance":25000}}`))
	})

	balance, err := client.GetBalance(context.Background())
	require.NoError(t, err)
	assert.Equal(t, float64(25000), balance)
}

func TestClient_GetServices(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/service/getv2", r.URL.Path)
		assert.Equal(t, "vn", r.URL.Query().Get("country"))
		_, _ = w.Write([]byte(`{"success":true,"status_code":200,"data":[
			{"id":42,"name":"Telegram","price":1500},
			{"id":"7","name":"Gmail","price":900}
		]}`))
	})

	services, err := client.GetServices(context.Background(), "vn")
	require.NoError(t, err)
	require.Len(t, services, 2)
	assert.Equal(t, domain.ServiceCatalogEntry{ID: "42", Name: "Telegram", Price: 1500}, services[0])
	assert.Equal(t, domain.ServiceCatalogEntry{ID: "7", Name: "Gmail", Price: 900}, services[1])
}

func TestClient_RentPhone(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/request/getv2", r.URL.Path)
		assert.Equal(t, "42", r.URL.Query().Get("serviceId"))
		assert.Equal(t, "vn", r.URL.Query().Get("country"))
		_, _ = w.Write([]byte(`{"success":true,"status_code":200,"data":{"request_id":"r9","phone_number":"912345678"}}`))
	})

	result, err := client.RentPhone(context.Background(), "42", "vn")
	require.NoError(t, err)
	assert.Equal(t, "r9", result.RequestID)
	assert.Equal(t, "912345678", result.PhoneNumber)
}

func TestClient_GetSessionStatus(t *testing.T) {
	t.Run("SuccessWithStringBool", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/session/getv2", r.URL.Path)
			assert.Equal(t, "r1", r.URL.Query().Get("requestId"))
			_, _ = w.Write([]byte(`{"success":true,"status_code":200,"data":
				{"Status":1,"Code":"482913","SmsContent":"your code is 482913","IsSound":"true"}}`))
		})

		status, err := client.GetSessionStatus(context.Background(), "r1")
		require.NoError(t, err)
		assert.Equal(t, domain.StatusSuccess, status.Status)
		assert.Equal(t, "482913", status.Code)
		assert.Equal(t, "your code is 482913", status.SMSContent)
		assert.True(t, status.IsSound)
	})

	t.Run("Waiting", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"success":true,"status_code":200,"data":{"Status":0,"Code":"","SmsContent":""}}`))
		})

		status, err := client.GetSessionStatus(context.Background(), "r1")
		require.NoError(t, err)
		assert.Equal(t, domain.StatusWaiting, status.Status)
		assert.False(t, status.IsSound)
	})
}

func TestClient_GetHistory(t *testing.T) {
	status := domain.StatusSuccess
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "/session/historyv2", r.URL.Path)
		assert.Equal(t, "42", q.Get("service"))
		assert.Equal(t, "1", q.Get("status"))
		assert.Equal(t, "2024-03-01", q.Get("fromDate"))
		assert.Equal(t, "50", q.Get("limit"))
		_, _ = w.Write([]byte(`{"success":true,"status_code":200,"data":[
			{"ID":881,"ServiceName":"Telegram","Phone":"912345678","Code":"482913",
			 "Price":"1500","CreatedTime":"2024-03-01 10:15:00","Status":1,
			 "SmsContent":"your code is 482913","IsSound":false}
		]}`))
	})

	entries, err := client.GetHistory(context.Background(), domain.HistoryFilter{
		ServiceID: "42",
		Status:    &status,
		FromDate:  "2024-03-01",
		Limit:     50,
	})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "881", entries[0].ID)
	assert.Equal(t, int64(1500), entries[0].Price)
	assert.Equal(t, domain.StatusSuccess, entries[0].Status)
	assert.Equal(t, "912345678", entries[0].Phone)
	assert.False(t, entries[0].CreatedTime.IsZero())
}

func TestClient_GetHistoryDefaultsUnsetFiltersToMinusOne(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "-1", q.Get("service"))
		assert.Equal(t, "-1", q.Get("status"))
		assert.Empty(t, q.Get("fromDate"))
		assert.Empty(t, q.Get("limit"))
		_, _ = w.Write([]byte(`{"success":true,"status_code":200,"data":[]}`))
	})

	entries, err := client.GetHistory(context.Background(), domain.HistoryFilter{})
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestClient_RemoteErrorCarriesProviderMessage(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":false,"status_code":400,"message":"insufficient balance"}`))
	})

	_, err := client.RentPhone(context.Background(), "42", "vn")
	require.Error(t, err)

	var remoteErr *domain.RemoteError
	require.ErrorAs(t, err, &remoteErr)
	assert.Equal(t, "insufficient balance", remoteErr.Message)
	assert.Equal(t, 400, remoteErr.StatusCode)
}

func TestClient_RemoteErrorFallbackMessage(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":false,"status_code":500}`))
	})

	_, err := client.GetBalance(context.Background())
	require.Error(t, err)

	var remoteErr *domain.RemoteError
	require.ErrorAs(t, err, &remoteErr)
	assert.Equal(t, domain.FallbackRemoteMessage, remoteErr.Message)
}

func TestClient_NonEnvelopeResponseIsNetworkError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("<html>bad gateway</html>"))
	})

	_, err := client.GetBalance(context.Background())
	require.Error(t, err)

	var netErr *domain.NetworkError
	assert.ErrorAs(t, err, &netErr)
}

func TestClient_TransportFailureIsNetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	client := NewClient(testLogger(), server.URL, "test-token", nil)
	server.Close()

	_, err := client.GetBalance(context.Background())
	require.Error(t, err)

	var netErr *domain.NetworkError
	assert.ErrorAs(t, err, &netErr)
}
