package service

import (
	"context"
	"errors"
	"fmt"

	"techstore/internal/apperr"
	"techstore/internal/domain"
	"techstore/internal/notify"
	"techstore/internal/payment"
	"techstore/internal/repository"

	"github.com/google/uuid"
)

// PaymentIntentResult is what the client needs to complete a card payment
type PaymentIntentResult struct {
	ClientSecret    string  `json:"client_secret"`
	PaymentIntentID string  `json:"payment_intent_id"`
	Amount          float64 `json:"amount"`
}

// PaymentStatusResult summarises the payment state of an order
type PaymentStatusResult struct {
	OrderID       uuid.UUID            `json:"order_id"`
	PaymentStatus domain.PaymentStatus `json:"payment_status"`
	OrderStatus   domain.OrderStatus   `json:"order_status"`
	Total         float64              `json:"total"`
}

// PaymentService connects the caller's orders to the payment gateway
type PaymentService interface {
	CreateIntent(ctx context.Context, userID, orderID uuid.UUID) (*PaymentIntentResult, error)
	Confirm(ctx context.Context, userID, orderID uuid.UUID, paymentIntentID string) (*domain.Order, error)
	Status(ctx context.Context, userID, orderID uuid.UUID) (*PaymentStatusResult, error)
}

type paymentService struct {
	gateway    payment.Gateway
	orderRepo  repository.OrderRepository
	userRepo   repository.UserRepository
	dispatcher *notify.Dispatcher
	currency   string
}

// NewPaymentService creates a new instance of PaymentService
func NewPaymentService(
	gateway payment.Gateway,
	orderRepo repository.OrderRepository,
	userRepo repository.UserRepository,
	dispatcher *notify.Dispatcher,
	currency string,
) PaymentService {
	return &paymentService{
		gateway:    gateway,
		orderRepo:  orderRepo,
		userRepo:   userRepo,
		dispatcher: dispatcher,
		currency:   currency,
	}
}

// CreateIntent opens a payment intent for the full order total
func (s *paymentService) CreateIntent(ctx context.Context, userID, orderID uuid.UUID) (*PaymentIntentResult, error) {
	order, err := s.ownOrder(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}

	intent, err := s.gateway.CreateIntent(ctx, domain.Cents(order.Total), s.currency, map[string]string{
		"order_id": order.ID.String(),
		"user_id":  userID.String(),
	})
	if err != nil {
		return nil, providerError(err)
	}

	return &PaymentIntentResult{
		ClientSecret:    intent.ClientSecret,
		PaymentIntentID: intent.ID,
		Amount:          order.Total,
	}, nil
}

// Confirm marks the order paid once the provider reports success
func (s *paymentService) Confirm(ctx context.Context, userID, orderID uuid.UUID, paymentIntentID string) (*domain.Order, error) {
	order, err := s.ownOrder(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}

	intent, err := s.gateway.GetIntent(ctx, paymentIntentID)
	if err != nil {
		return nil, providerError(err)
	}
	if intent.Metadata["order_id"] != orderID.String() {
		return nil, ErrIntentOrderMismatch
	}
	if want := domain.Cents(order.Total); intent.Amount != want {
		return nil, ErrIntentAmountMismatch.WithDetails(map[string]interface{}{
			"expected": want,
			"received": intent.Amount,
		})
	}
	if intent.Status != payment.StatusSucceeded {
		return nil, ErrPaymentPending.WithDetails(map[string]interface{}{"provider_status": intent.Status})
	}

	if err := s.orderRepo.MarkPaid(ctx, orderID, intent.ID); err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to mark order paid: %w", err)
	}

	order, err = s.ownOrder(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}

	event := notify.OrderStatusChanged{Order: order, Status: order.Status}
	if user, err := s.userRepo.FindByID(ctx, userID); err == nil {
		event.CustomerEmail, event.CustomerName = user.Email, user.Name
	}
	s.dispatcher.Dispatch(ctx, event)
	return order, nil
}

func (s *paymentService) Status(ctx context.Context, userID, orderID uuid.UUID) (*PaymentStatusResult, error) {
	order, err := s.ownOrder(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}
	return &PaymentStatusResult{
		OrderID:       order.ID,
		PaymentStatus: order.PaymentStatus,
		OrderStatus:   order.Status,
		Total:         order.Total,
	}, nil
}

func (s *paymentService) ownOrder(ctx context.Context, userID, orderID uuid.UUID) (*domain.Order, error) {
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	if order.UserID != userID {
		return nil, ErrNotOrderOwner
	}
	return order, nil
}

// providerError surfaces provider rejections as validation failures.
func providerError(err error) error {
	var pe *payment.ProviderError
	if errors.As(err, &pe) {
		return apperr.Wrap(apperr.KindValidation, pe.Message, err)
	}
	return fmt.Errorf("payment gateway: %w", err)
}
