package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/riseup/payments/platform/httpjson"
	"github.com/riseup/payments/platform/observability"
	"github.com/riseup/payments/services/gateway/internal/repository"
	"github.com/riseup/payments/services/gateway/internal/service"
)

// Handler holds the gateway HTTP handlers
type Handler struct {
	service *service.Service
	logger  *zap.Logger
}

// NewHandler creates the HTTP handler
func NewHandler(svc *service.Service, logger *zap.Logger) *Handler {
	return &Handler{
		service: svc,
		logger:  logger,
	}
}

// CreatePaymentRequest is the body of POST /payments.
// Timestamp is the merchant's request time and is only logged.
type CreatePaymentRequest struct {
	Amount    json.RawMessage `json:"amount"`
	Timestamp string          `json:"timestamp,omitempty"`
}

// CreatePaymentResponse carries the external reference and the scannable code
type CreatePaymentResponse struct {
	ID string `json:"id"`
	QR string `json:"qr"`
}

// PaymentResponse is the body of GET /payments/{id}
type PaymentResponse struct {
	ID          string      `json:"id"`
	Amount      json.Number `json:"amount"`
	Status      string      `json:"status"`
	QR          string      `json:"qr,omitempty"`
	WalletURL   string      `json:"walletUrl"`
	CreatedAt   time.Time   `json:"createdAt"`
	ConfirmedAt *time.Time  `json:"confirmedAt,omitempty"`
}

// ConfirmPaymentResponse is the body of POST /payments/{id}/confirm
type ConfirmPaymentResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// PostPayment handles POST /payments
func (h *Handler) PostPayment(w http.ResponseWriter, r *http.Request) {
	var req CreatePaymentRequest
	if err := httpjson.Decode(r, &req); err != nil {
		h.writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	amount, err := httpjson.ParseDecimal(req.Amount)
	if err != nil {
		h.writeError(w, r, http.StatusBadRequest, "amount "+err.Error())
		return
	}
	if amount == nil {
		h.writeError(w, r, http.StatusBadRequest, "amount is required")
		return
	}
	if req.Timestamp != "" {
		observability.LoggerFromContext(r.Context(), h.logger).Debug("merchant request", zap.String("timestamp", req.Timestamp))
	}

	payment, err := h.service.CreatePayment(r.Context(), *amount)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	h.write(w, r, http.StatusCreated, CreatePaymentResponse{ID: payment.ID, QR: payment.QR})
}

// GetPayment handles GET /payments/{id}; the wallet page reads the same view
func (h *Handler) GetPayment(w http.ResponseWriter, r *http.Request) {
	payment, err := h.service.GetPayment(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	resp := PaymentResponse{
		ID:          payment.ID,
		Amount:      json.Number(payment.Amount.String()),
		Status:      string(payment.Status),
		WalletURL:   h.service.WalletURL(payment.ID),
		CreatedAt:   payment.CreatedAt,
		ConfirmedAt: payment.ConfirmedAt,
	}
	if payment.Status == repository.StatusPending {
		resp.QR = payment.QR
	}
	h.write(w, r, http.StatusOK, resp)
}

// PostConfirm handles POST /payments/{id}/confirm, the payer's wallet action
func (h *Handler) PostConfirm(w http.ResponseWriter, r *http.Request) {
	payment, err := h.service.ConfirmPayment(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	h.write(w, r, http.StatusOK, ConfirmPaymentResponse{ID: payment.ID, Status: string(payment.Status)})
}

func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidAmount):
		h.writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, repository.ErrNotFound):
		h.writeError(w, r, http.StatusNotFound, repository.ErrNotFound.Error())
	case errors.Is(err, repository.ErrAlreadyConfirmed):
		h.writeError(w, r, http.StatusConflict, repository.ErrAlreadyConfirmed.Error())
	default:
		observability.LoggerFromContext(r.Context(), h.logger).Error("request failed", zap.Error(err))
		h.writeError(w, r, http.StatusInternalServerError, "internal server error")
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	if err := httpjson.WriteError(w, status, msg); err != nil {
		observability.LoggerFromContext(r.Context(), h.logger).Warn("failed to encode error response", zap.Error(err))
	}
}

func (h *Handler) write(w http.ResponseWriter, r *http.Request, status int, v any) {
	if err := httpjson.Write(w, status, v); err != nil {
		observability.LoggerFromContext(r.Context(), h.logger).Warn("failed to encode response", zap.Error(err))
	}
}
