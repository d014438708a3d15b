package checkout

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riseup/payments/platform/httpjson"
	"github.com/riseup/payments/services/checkout/internal/repository"
)

func TestClient_FetchPayment(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/charge/pay-1":
			_ = httpjson.Write(w, http.StatusOK, map[string]any{
				"id":        "pay-1",
				"amount":    50,
				"status":    "confirmed",
				"createdAt": "2026-03-01T10:00:00Z",
				"settledAt": "2026-03-01T12:00:00Z",
			})
		default:
			_ = httpjson.WriteError(w, http.StatusNotFound, "payment not found")
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)

	p, err := c.FetchPayment(context.Background(), "pay-1")
	require.NoError(t, err)
	require.Equal(t, repository.StatusConfirmed, p.Status)
	require.True(t, decimal.NewFromInt(50).Equal(p.Amount))
	require.NotNil(t, p.SettledAt)

	_, err = c.FetchPayment(context.Background(), "missing")
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestClient_CreateConfirmCancel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/charge":
			var body map[string]any
			assert.NoError(t, httpjson.Decode(r, &body))
			assert.Equal(t, 12.5, body["amount"])
			_ = httpjson.Write(w, http.StatusCreated, map[string]string{"id": "pay-7"})
		case r.URL.Path == "/confirm":
			_ = httpjson.Write(w, http.StatusOK, map[string]bool{"success": true, "alreadySettled": true})
		case r.URL.Path == "/charge/pay-7/cancel":
			_ = httpjson.WriteError(w, http.StatusConflict, "payment already settled")
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)

	id, err := c.CreateCharge(context.Background(), decimal.RequireFromString("12.50"))
	require.NoError(t, err)
	require.Equal(t, "pay-7", id)

	res, err := c.Confirm(context.Background(), "gw-7", nil)
	require.NoError(t, err)
	require.True(t, res.AlreadySettled)

	_, err = c.Cancel(context.Background(), "pay-7")
	require.ErrorIs(t, err, repository.ErrAlreadySettled)
}
