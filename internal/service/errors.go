package service

import (
	"fmt"

	"techstore/internal/apperr"
)

var (
	ErrInvalidCredentials = apperr.Unauthenticated("invalid email or password")
	ErrInvalidToken       = apperr.Unauthenticated("invalid or expired token")
	ErrDuplicateEmail     = apperr.Conflict("email already registered")
	ErrUserNotFound       = apperr.NotFound("user not found")
	ErrEmailRequired      = apperr.Validation("email is required")
	ErrInvalidRole        = apperr.Validation("invalid role")
	ErrInvalidResetToken  = apperr.Validation("invalid reset token")
	ErrResetTokenUsed     = apperr.Validation("reset token already used")
	ErrResetTokenExpired  = apperr.Validation("reset token expired")
	ErrPasswordTooShort   = apperr.Validation("password must be at least %d characters", MinPasswordLength)

	ErrProductNotFound   = apperr.NotFound("product not found")
	ErrInsufficientStock = apperr.Conflict("insufficient stock")
	ErrEmptyPatch        = apperr.Validation("no fields to update")
	ErrImageNotFound     = apperr.NotFound("image not found on product")
	ErrInvalidQuantity   = apperr.Validation("quantity must be at least 1")

	ErrCartNotFound  = apperr.NotFound("cart not found")
	ErrLineNotInCart = apperr.NotFound("product is not in the cart")
	ErrEmptyCart     = apperr.Validation("cart is empty")
	ErrNoOrderLines  = apperr.Validation("order must contain at least one item")

	ErrOrderNotFound  = apperr.NotFound("order not found")
	ErrInvalidStatus  = apperr.Validation("invalid order status")
	ErrNotOrderOwner  = apperr.Forbidden("order belongs to another user")
	ErrPaymentPending = apperr.Validation("payment not completed")

	ErrIntentOrderMismatch  = apperr.Validation("payment intent belongs to another order")
	ErrIntentAmountMismatch = apperr.Validation("payment amount does not match the order total")

	ErrInvalidRating   = apperr.Validation("rating must be between %.0f and %.0f", 1.0, 5.0)
	ErrCommentTooShort = apperr.Validation("comment must be at least 5 characters")
	ErrDuplicateReview = apperr.Conflict("you already reviewed this product")
	ErrReviewNotFound  = apperr.NotFound("review not found")
)

// productNotFound names the offending line while still matching ErrProductNotFound.
func productNotFound(name string) error {
	return &apperr.Error{
		Kind:    apperr.KindNotFound,
		Message: fmt.Sprintf("product '%s' not found", name),
		Err:     ErrProductNotFound,
	}
}

// insufficientStock carries the product name and the quantity still available.
func insufficientStock(name string, available int) error {
	return &apperr.Error{
		Kind:    apperr.KindConflict,
		Message: fmt.Sprintf("insufficient stock for '%s'. Available: %d", name, available),
		Details: map[string]interface{}{"product_name": name, "available": available},
		Err:     ErrInsufficientStock,
	}
}
