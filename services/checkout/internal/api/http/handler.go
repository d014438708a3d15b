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
	"github.com/riseup/payments/services/checkout/internal/repository"
	"github.com/riseup/payments/services/checkout/internal/service"
)

// Handler holds the checkout HTTP handlers.
// It depends on the service layer only and knows nothing about storage or the gateway transport.
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

// ChargeRequest is the body of POST /charge
type ChargeRequest struct {
	// Amount is kept raw so a quoted amount can be rejected
	Amount json.RawMessage `json:"amount"`
}

// ChargeResponse is the body of a successful POST /charge
type ChargeResponse struct {
	ID string `json:"id"`
}

// PaymentResponse is the body of GET /charge/{id}
type PaymentResponse struct {
	ID            string      `json:"id"`
	Amount        json.Number `json:"amount"`
	Status        string      `json:"status"`
	ScannableCode string      `json:"scannableCode,omitempty"`
	CreatedAt     time.Time   `json:"createdAt"`
	SettledAt     *time.Time  `json:"settledAt,omitempty"`
	CancelledAt   *time.Time  `json:"cancelledAt,omitempty"`
}

// ConfirmRequest is the body of the POST /confirm webhook
type ConfirmRequest struct {
	ExternalReference string     `json:"externalReference"`
	SettledAt         *time.Time `json:"settledAt,omitempty"`
}

// ConfirmResponse is the body of a successful POST /confirm
type ConfirmResponse struct {
	Success        bool `json:"success"`
	AlreadySettled bool `json:"alreadySettled,omitempty"`
}

// CancelResponse is the body of a successful POST /charge/{id}/cancel
type CancelResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// PostCharge handles POST /charge: opens a payment at the gateway and stores it
func (h *Handler) PostCharge(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req ChargeRequest
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

	payment, err := h.service.CreateCharge(ctx, *amount)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	h.write(w, r, http.StatusCreated, ChargeResponse{ID: payment.ID})
}

// GetCharge handles GET /charge/{id}: current state of one payment
func (h *Handler) GetCharge(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	payment, err := h.service.GetCharge(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	h.write(w, r, http.StatusOK, toPaymentResponse(payment))
}

// PostConfirm handles the gateway webhook POST /confirm.
// A repeated notification is acknowledged with alreadySettled and changes nothing.
func (h *Handler) PostConfirm(w http.ResponseWriter, r *http.Request) {
	var req ConfirmRequest
	if err := httpjson.Decode(r, &req); err != nil {
		h.writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	out, err := h.service.ConfirmByReference(r.Context(), service.ConfirmInput{
		ExternalReference: req.ExternalReference,
		SettledAt:         req.SettledAt,
	})
	if err != nil && !errors.Is(err, repository.ErrAlreadySettled) {
		h.writeServiceError(w, r, err)
		return
	}

	h.write(w, r, http.StatusOK, ConfirmResponse{Success: true, AlreadySettled: out.AlreadySettled})
}

// PostCancel handles POST /charge/{id}/cancel
func (h *Handler) PostCancel(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	payment, err := h.service.CancelCharge(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	h.write(w, r, http.StatusOK, CancelResponse{ID: payment.ID, Status: string(payment.Status)})
}

func toPaymentResponse(p repository.Payment) PaymentResponse {
	resp := PaymentResponse{
		ID:          p.ID,
		Amount:      json.Number(p.Amount.String()),
		Status:      string(p.Status),
		CreatedAt:   p.CreatedAt,
		SettledAt:   p.SettledAt,
		CancelledAt: p.CancelledAt,
	}
	if p.Status == repository.StatusPending {
		resp.ScannableCode = p.ScannableCode
	}
	return resp
}

// writeServiceError maps service and repository errors to HTTP statuses
func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, repository.ErrInvalidAmount), errors.Is(err, service.ErrReferenceRequired):
		h.writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, repository.ErrNotFound):
		h.writeError(w, r, http.StatusNotFound, repository.ErrNotFound.Error())
	case errors.Is(err, repository.ErrAlreadySettled):
		h.writeError(w, r, http.StatusConflict, repository.ErrAlreadySettled.Error())
	case errors.Is(err, service.ErrUpstream):
		h.writeError(w, r, http.StatusBadGateway, err.Error())
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
