package transport

import (
	"net/http"

	"techstore/internal/middleware"
	"techstore/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PaymentIntentRequest names the order to pay
type PaymentIntentRequest struct {
	OrderID uuid.UUID `json:"order_id" validate:"required"`
}

// ConfirmPaymentRequest confirms a provider payment intent for an order
type ConfirmPaymentRequest struct {
	OrderID         uuid.UUID `json:"order_id" validate:"required"`
	PaymentIntentID string    `json:"payment_intent_id" validate:"required"`
}

// ConfirmPaymentResponse reports a confirmed payment
type ConfirmPaymentResponse struct {
	Message string `json:"message"`
	OrderID string `json:"order_id"`
	Status  string `json:"status"`
}

// PaymentHandler serves the payment-intent flow for the caller's orders
type PaymentHandler struct {
	paymentService service.PaymentService
	logger         *zap.Logger
}

// NewPaymentHandler creates a new PaymentHandler
func NewPaymentHandler(paymentService service.PaymentService, logger *zap.Logger) *PaymentHandler {
	return &PaymentHandler{paymentService: paymentService, logger: logger}
}

// RegisterRoutes registers the /payments routes
func (h *PaymentHandler) RegisterRoutes(r chi.Router, guards Guards) {
	r.Route("/payments", func(r chi.Router) {
		r.Use(guards.Authenticated)
		r.Post("/create-payment-intent", h.CreateIntent)
		r.Post("/confirm", h.Confirm)
		r.Get("/status/{orderID}", h.Status)
	})
}

func (h *PaymentHandler) CreateIntent(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUserID(r)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	var req PaymentIntentRequest
	if !decode(w, r, &req) {
		return
	}

	result, err := h.paymentService.CreateIntent(r.Context(), userID, req.OrderID)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, result)
}

func (h *PaymentHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUserID(r)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	var req ConfirmPaymentRequest
	if !decode(w, r, &req) {
		return
	}

	order, err := h.paymentService.Confirm(r.Context(), userID, req.OrderID, req.PaymentIntentID)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	h.logger.Info("Payment confirmed",
		zap.String("order_id", order.ID.String()),
		zap.String("payment_intent_id", req.PaymentIntentID),
	)
	middleware.RespondWithJSON(w, http.StatusOK, ConfirmPaymentResponse{
		Message: "payment confirmed",
		OrderID: order.ID.String(),
		Status:  string(order.Status),
	})
}

func (h *PaymentHandler) Status(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUserID(r)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	orderID, err := uuidParam(r, "orderID")
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	result, err := h.paymentService.Status(r.Context(), userID, orderID)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, result)
}
