package transport

import (
	"net/http"

	"techstore/internal/middleware"
	"techstore/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CartItemRequest adds or updates one cart line. Quantity 0 on update removes the line.
type CartItemRequest struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Quantity  *int      `json:"quantity" validate:"omitempty,gte=0"`
}

// CartHandler serves the caller's cart
type CartHandler struct {
	cartService service.CartService
	logger      *zap.Logger
}

// NewCartHandler creates a new CartHandler
func NewCartHandler(cartService service.CartService, logger *zap.Logger) *CartHandler {
	return &CartHandler{cartService: cartService, logger: logger}
}

// RegisterRoutes registers the /cart routes
func (h *CartHandler) RegisterRoutes(r chi.Router, guards Guards) {
	r.Route("/cart", func(r chi.Router) {
		r.Use(guards.Authenticated)
		r.Get("/", h.View)
		r.Post("/add", h.Add)
		r.Put("/update", h.Update)
		r.Delete("/remove/{productID}", h.Remove)
		r.Delete("/clear", h.Clear)
	})
}

// View returns the cart with recomputed totals
func (h *CartHandler) View(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUserID(r)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	view, err := h.cartService.View(r.Context(), userID)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, view)
}

// Add puts a product in the cart, summing with an existing line. Quantity defaults to 1.
func (h *CartHandler) Add(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUserID(r)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	var req CartItemRequest
	if !decode(w, r, &req) {
		return
	}
	quantity := 1
	if req.Quantity != nil {
		quantity = *req.Quantity
	}

	view, err := h.cartService.Add(r.Context(), userID, req.ProductID, quantity)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, view)
}

// Update sets the quantity of a cart line
func (h *CartHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUserID(r)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	var req CartItemRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Quantity == nil {
		middleware.RespondWithValidationErrors(w, []middleware.ValidationError{
			{Field: "quantity", Message: "This field is required"},
		})
		return
	}

	view, err := h.cartService.Update(r.Context(), userID, req.ProductID, *req.Quantity)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, view)
}

// Remove drops one product from the cart
func (h *CartHandler) Remove(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUserID(r)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	productID, err := uuidParam(r, "productID")
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	view, err := h.cartService.Remove(r.Context(), userID, productID)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, view)
}

// Clear empties the cart
func (h *CartHandler) Clear(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUserID(r)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	view, err := h.cartService.Clear(r.Context(), userID)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, view)
}
