// Package checkout is an HTTP client for the checkout API, used by the CLI.
package checkout

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/riseup/payments/platform/httpjson"
	"github.com/riseup/payments/services/checkout/internal/repository"
)

// ErrRequest marks an API answer other than the documented success
var ErrRequest = errors.New("checkout request failed")

// Client talks to a checkout service
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates a client for baseURL
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

type paymentBody struct {
	ID            string          `json:"id"`
	Amount        decimal.Decimal `json:"amount"`
	Status        string          `json:"status"`
	ScannableCode string          `json:"scannableCode"`
	CreatedAt     time.Time       `json:"createdAt"`
	SettledAt     *time.Time      `json:"settledAt"`
	CancelledAt   *time.Time      `json:"cancelledAt"`
}

// ConfirmResult is the answer of POST /confirm
type ConfirmResult struct {
	Success        bool `json:"success"`
	AlreadySettled bool `json:"alreadySettled"`
}

// CreateCharge calls POST /charge and returns the new payment id
func (c *Client) CreateCharge(ctx context.Context, amount decimal.Decimal) (string, error) {
	var out struct {
		ID string `json:"id"`
	}
	body := map[string]json.Number{"amount": json.Number(amount.String())}
	if err := c.do(ctx, http.MethodPost, "/charge", body, http.StatusCreated, &out); err != nil {
		return "", err
	}
	return out.ID, nil
}

// FetchPayment calls GET /charge/{id}; a 404 is reported as repository.ErrNotFound
func (c *Client) FetchPayment(ctx context.Context, id string) (repository.Payment, error) {
	var out paymentBody
	if err := c.do(ctx, http.MethodGet, "/charge/"+id, nil, http.StatusOK, &out); err != nil {
		return repository.Payment{}, err
	}

	status, err := repository.ParseStatus(out.Status)
	if err != nil {
		return repository.Payment{}, fmt.Errorf("%w: %v", ErrRequest, err)
	}
	return repository.Payment{
		ID:            out.ID,
		Amount:        out.Amount,
		Status:        status,
		ScannableCode: out.ScannableCode,
		CreatedAt:     out.CreatedAt,
		SettledAt:     out.SettledAt,
		CancelledAt:   out.CancelledAt,
	}, nil
}

// Confirm calls the POST /confirm webhook the way the gateway does
func (c *Client) Confirm(ctx context.Context, externalReference string, settledAt *time.Time) (ConfirmResult, error) {
	body := struct {
		ExternalReference string     `json:"externalReference"`
		SettledAt         *time.Time `json:"settledAt,omitempty"`
	}{externalReference, settledAt}

	var out ConfirmResult
	if err := c.do(ctx, http.MethodPost, "/confirm", body, http.StatusOK, &out); err != nil {
		return ConfirmResult{}, err
	}
	return out, nil
}

// Cancel calls POST /charge/{id}/cancel and returns the resulting status
func (c *Client) Cancel(ctx context.Context, id string) (string, error) {
	var out struct {
		Status string `json:"status"`
	}
	if err := c.do(ctx, http.MethodPost, "/charge/"+id+"/cancel", nil, http.StatusOK, &out); err != nil {
		return "", err
	}
	return out.Status, nil
}

func (c *Client) do(ctx context.Context, method, path string, in any, want int, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != want {
		msg := httpjson.ReadError(resp)
		switch resp.StatusCode {
		case http.StatusNotFound:
			return fmt.Errorf("%w: %s", repository.ErrNotFound, msg)
		case http.StatusConflict:
			return fmt.Errorf("%w: %s", repository.ErrAlreadySettled, msg)
		case http.StatusBadRequest:
			return fmt.Errorf("%w: %s", ErrRequest, msg)
		default:
			return fmt.Errorf("%w: status %d: %s", ErrRequest, resp.StatusCode, msg)
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
