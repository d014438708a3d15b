package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/riseup/payments/platform/httpjson"
	"github.com/riseup/payments/platform/observability"
	"github.com/riseup/payments/services/checkout/internal/service"
)

// Client implements service.GatewayClient over the gateway HTTP API
type Client struct {
	logger  *zap.Logger
	baseURL string
	client  *http.Client
}

// NewClient creates a gateway client; outgoing requests carry the trace context
func NewClient(logger *zap.Logger, baseURL string, timeout time.Duration) *Client {
	return &Client{
		logger:  logger,
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Timeout:   timeout,
			Transport: observability.Transport("checkout", nil),
		},
	}
}

type createPaymentRequest struct {
	Amount    json.Number `json:"amount"`
	Timestamp time.Time   `json:"timestamp"`
}

type createPaymentResponse struct {
	ID string `json:"id"`
	QR string `json:"qr"`
}

// CreatePayment calls POST /payments.
// Every failure comes back as *service.UpstreamError.
func (c *Client) CreatePayment(ctx context.Context, amount decimal.Decimal) (service.GatewayPayment, error) {
	body, err := json.Marshal(createPaymentRequest{
		Amount:    json.Number(amount.String()),
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		return service.GatewayPayment{}, &service.UpstreamError{Op: "encode request", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/payments", bytes.NewReader(body))
	if err != nil {
		return service.GatewayPayment{}, &service.UpstreamError{Op: "create request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return service.GatewayPayment{}, &service.UpstreamError{Op: "create payment", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return service.GatewayPayment{}, &service.UpstreamError{
			Op:  "create payment",
			Err: fmt.Errorf("status %d: %s", resp.StatusCode, httpjson.ReadError(resp)),
		}
	}

	var out createPaymentResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return service.GatewayPayment{}, &service.UpstreamError{Op: "decode response", Err: err}
	}

	// a missing id is tolerated: the record is stored but can never be confirmed
	if out.ID == "" {
		c.logger.Warn("gateway response has no payment id")
	}

	c.logger.Debug("gateway payment created", zap.String("external_reference", out.ID))

	return service.GatewayPayment{
		ExternalReference: out.ID,
		ScannableCode:     out.QR,
	}, nil
}
