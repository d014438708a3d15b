package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/riseup/payments/services/checkout/internal/repository"
	"github.com/riseup/payments/services/checkout/internal/repository/memory"
	"github.com/riseup/payments/services/checkout/internal/service"
	"github.com/riseup/payments/services/checkout/internal/service/mocks"
)

type testEnv struct {
	repo    *memory.MemoryRepository
	gateway *mocks.GatewayClient
	router  http.Handler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	repo := memory.NewMemoryRepository()
	gateway := mocks.NewGatewayClient(t)
	publisher := mocks.NewPaymentEventPublisher(t)
	publisher.On("PublishPaymentEvent", mock.Anything, mock.Anything).Return(nil).Maybe()

	svc := service.NewService(zap.NewNop(), repo, gateway, publisher)
	handler := NewHandler(svc, zap.NewNop())

	return &testEnv{
		repo:    repo,
		gateway: gateway,
		router:  NewRouter(handler, nil, nil, zap.NewNop()),
	}
}

func (e *testEnv) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestHandler_PostCharge(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		gatewayResult  service.GatewayPayment
		gatewayError   error
		expectGateway  bool
		expectedStatus int
		errorContains  string
		expectedStored int
	}{
		{
			name:           "success",
			body:           `{"amount": 50.00}`,
			gatewayResult:  service.GatewayPayment{ExternalReference: "gw-1", ScannableCode: "qr"},
			expectGateway:  true,
			expectedStatus: http.StatusCreated,
			expectedStored: 1,
		},
		{
			name:           "success: exponent literal",
			body:           `{"amount": 1.234e1}`,
			gatewayResult:  service.GatewayPayment{ExternalReference: "gw-2"},
			expectGateway:  true,
			expectedStatus: http.StatusCreated,
			expectedStored: 1,
		},
		{
			name:           "error: amount as string",
			body:           `{"amount": "12.34"}`,
			expectedStatus: http.StatusBadRequest,
			errorContains:  "must be a JSON number",
		},
		{
			name:           "error: amount as bool",
			body:           `{"amount": true}`,
			expectedStatus: http.StatusBadRequest,
			errorContains:  "must be a JSON number",
		},
		{
			name:           "error: null amount",
			body:           `{"amount": null}`,
			expectedStatus: http.StatusBadRequest,
			errorContains:  "amount is required",
		},
		{
			name:           "error: negative amount",
			body:           `{"amount": -5}`,
			expectedStatus: http.StatusBadRequest,
			errorContains:  "positive",
		},
		{
			name:           "error: missing amount",
			body:           `{}`,
			expectedStatus: http.StatusBadRequest,
			errorContains:  "amount is required",
		},
		{
			name:           "error: malformed body",
			body:           `{"amount": `,
			expectedStatus: http.StatusBadRequest,
			errorContains:  "invalid JSON",
		},
		{
			name:           "error: gateway down",
			body:           `{"amount": 10}`,
			gatewayError:   errors.New("connection refused"),
			expectGateway:  true,
			expectedStatus: http.StatusBadGateway,
			errorContains:  "connection refused",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			if tt.expectGateway {
				env.gateway.On("CreatePayment", mock.Anything, mock.Anything).
					Return(tt.gatewayResult, tt.gatewayError).Once()
			}

			rec := env.do(t, http.MethodPost, "/charge", tt.body)

			require.Equal(t, tt.expectedStatus, rec.Code)
			body := decodeBody(t, rec)
			if tt.errorContains != "" {
				require.Contains(t, body["error"], tt.errorContains)
			} else {
				require.NotEmpty(t, body["id"])
			}

			n, err := env.repo.Count(context.Background())
			require.NoError(t, err)
			require.Equal(t, tt.expectedStored, n)
		})
	}
}

func TestHandler_ChargeLifecycle(t *testing.T) {
	env := newTestEnv(t)
	env.gateway.On("CreatePayment", mock.Anything, mock.Anything).
		Return(service.GatewayPayment{ExternalReference: "gw-1", ScannableCode: "https://qr/gw-1"}, nil).Once()

	rec := env.do(t, http.MethodPost, "/charge", `{"amount": 50.00}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	id := decodeBody(t, rec)["id"].(string)

	rec = env.do(t, http.MethodGet, "/charge/"+id, "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	require.Equal(t, "pending", body["status"])
	require.Equal(t, 50.0, body["amount"])
	require.Equal(t, "https://qr/gw-1", body["scannableCode"])
	require.NotContains(t, body, "settledAt")

	rec = env.do(t, http.MethodPost, "/confirm", `{"externalReference": "gw-1", "settledAt": "2026-03-01T12:00:00Z"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	body = decodeBody(t, rec)
	require.Equal(t, true, body["success"])
	require.NotContains(t, body, "alreadySettled")

	rec = env.do(t, http.MethodGet, "/charge/"+id, "")
	body = decodeBody(t, rec)
	require.Equal(t, "confirmed", body["status"])
	require.Equal(t, "2026-03-01T12:00:00Z", body["settledAt"])
	require.NotContains(t, body, "scannableCode")

	// a repeated notification is acknowledged and changes nothing
	rec = env.do(t, http.MethodPost, "/confirm", `{"externalReference": "gw-1", "settledAt": "2026-03-02T00:00:00Z"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, true, decodeBody(t, rec)["alreadySettled"])

	rec = env.do(t, http.MethodGet, "/charge/"+id, "")
	require.Equal(t, "2026-03-01T12:00:00Z", decodeBody(t, rec)["settledAt"])

	// cancelling a settled payment is a conflict
	rec = env.do(t, http.MethodPost, "/charge/"+id+"/cancel", "")
	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestHandler_Cancel(t *testing.T) {
	env := newTestEnv(t)
	created, err := env.repo.Create(context.Background(), repository.NewPayment{
		Amount:            decimal.NewFromInt(5),
		ExternalReference: "gw-9",
	})
	require.NoError(t, err)

	rec := env.do(t, http.MethodPost, "/charge/"+created.ID+"/cancel", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "cancelled", decodeBody(t, rec)["status"])

	// confirmation after cancellation is reported as already settled
	rec = env.do(t, http.MethodPost, "/confirm", `{"externalReference": "gw-9"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, true, decodeBody(t, rec)["alreadySettled"])

	got, err := env.repo.Get(context.Background(), created.ID)
	require.NoError(t, err)
	require.Equal(t, repository.StatusCancelled, got.Status)
	require.Nil(t, got.SettledAt)
}

func TestHandler_Errors(t *testing.T) {
	tests := []struct {
		name           string
		method         string
		path           string
		body           string
		expectedStatus int
	}{
		{"get unknown id", http.MethodGet, "/charge/unknown-id", "", http.StatusNotFound},
		{"cancel unknown id", http.MethodPost, "/charge/unknown-id/cancel", "", http.StatusNotFound},
		{"confirm unknown reference", http.MethodPost, "/confirm", `{"externalReference": "nope"}`, http.StatusNotFound},
		{"confirm without reference", http.MethodPost, "/confirm", `{}`, http.StatusBadRequest},
		{"confirm with malformed body", http.MethodPost, "/confirm", `{`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			rec := env.do(t, tt.method, tt.path, tt.body)
			require.Equal(t, tt.expectedStatus, rec.Code)
			require.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			require.NotEmpty(t, decodeBody(t, rec)["error"])
		})
	}
}

func TestRouter_Health(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "ok", decodeBody(t, rec)["status"])
}
