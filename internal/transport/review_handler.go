package transport

import (
	"net/http"

	"techstore/internal/domain"
	"techstore/internal/middleware"
	"techstore/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ReviewRequest rates a product
type ReviewRequest struct {
	Rating  float64 `json:"rating" validate:"required,gte=1,lte=5"`
	Comment string  `json:"comment" validate:"required,min=5"`
}

// ReviewHandler serves product reviews
type ReviewHandler struct {
	reviewService service.ReviewService
	logger        *zap.Logger
}

// NewReviewHandler creates a new ReviewHandler
func NewReviewHandler(reviewService service.ReviewService, logger *zap.Logger) *ReviewHandler {
	return &ReviewHandler{reviewService: reviewService, logger: logger}
}

// RegisterRoutes registers the /reviews routes. The path id names a product
// for GET and POST and a review for DELETE.
func (h *ReviewHandler) RegisterRoutes(r chi.Router, guards Guards) {
	r.Route("/reviews", func(r chi.Router) {
		r.Get("/{id}", h.List)
		r.With(guards.Authenticated).Post("/{id}", h.Create)
		r.With(guards.Authenticated).Delete("/{id}", h.Delete)
	})
}

// Create records the caller's review and refreshes the product rating
func (h *ReviewHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUserID(r)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	productID, err := uuidParam(r, "id")
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	var req ReviewRequest
	if !decode(w, r, &req) {
		return
	}

	review, err := h.reviewService.Create(r.Context(), userID, productID, req.Rating, req.Comment)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusCreated, review)
}

// List returns a product's reviews, newest first
func (h *ReviewHandler) List(w http.ResponseWriter, r *http.Request) {
	productID, err := uuidParam(r, "id")
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	reviews, err := h.reviewService.ListByProduct(r.Context(), productID)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	if reviews == nil {
		reviews = []*domain.Review{}
	}

	middleware.RespondWithJSON(w, http.StatusOK, reviews)
}

// Delete removes one of the caller's reviews
func (h *ReviewHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUserID(r)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	reviewID, err := uuidParam(r, "id")
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	if err := h.reviewService.DeleteOwn(r.Context(), reviewID, userID); err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	respondMessage(w, http.StatusOK, "review deleted")
}
