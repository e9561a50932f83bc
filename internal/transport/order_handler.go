package transport

import (
	"net/http"

	"techstore/internal/domain"
	"techstore/internal/middleware"
	"techstore/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// CreateOrderRequest places an order for explicit lines
type CreateOrderRequest struct {
	Items []domain.OrderLine `json:"items" validate:"required,min=1,dive"`
}

// StatusRequest moves an order to another status
type StatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// OrderHandler serves order placement and administration
type OrderHandler struct {
	orderService service.OrderService
	logger       *zap.Logger
}

// NewOrderHandler creates a new OrderHandler
func NewOrderHandler(orderService service.OrderService, logger *zap.Logger) *OrderHandler {
	return &OrderHandler{orderService: orderService, logger: logger}
}

// RegisterRoutes registers the /orders routes
func (h *OrderHandler) RegisterRoutes(r chi.Router, guards Guards) {
	r.Route("/orders", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(guards.Authenticated)
			r.Post("/from-cart", h.CreateFromCart)
			r.Post("/", h.Create)
			r.Get("/my-orders", h.ListMine)
		})

		r.Group(func(r chi.Router) {
			r.Use(guards.Admin)
			r.Get("/all", h.ListAll)
			r.Put("/{orderID}/status", h.UpdateStatus)
		})
	})
}

// CreateFromCart checks out the caller's cart
func (h *OrderHandler) CreateFromCart(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUserID(r)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	order, err := h.orderService.CreateFromCart(r.Context(), userID)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusCreated, order)
}

// Create places an order for the requested lines
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUserID(r)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	var req CreateOrderRequest
	if !decode(w, r, &req) {
		return
	}

	order, err := h.orderService.Create(r.Context(), userID, req.Items)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusCreated, order)
}

// ListMine returns the caller's orders, newest first
func (h *OrderHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUserID(r)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	orders, err := h.orderService.ListMine(r.Context(), userID)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondOrders(w, orders)
}

// ListAll returns every order, newest first
func (h *OrderHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orderService.ListAll(r.Context())
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondOrders(w, orders)
}

func respondOrders(w http.ResponseWriter, orders []*domain.Order) {
	if orders == nil {
		orders = []*domain.Order{}
	}
	middleware.RespondWithJSON(w, http.StatusOK, orders)
}

// UpdateStatus moves an order to the requested status
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuidParam(r, "orderID")
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	var req StatusRequest
	if !decode(w, r, &req) {
		return
	}

	order, err := h.orderService.UpdateStatus(r.Context(), orderID, domain.OrderStatus(req.Status))
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, order)
}
