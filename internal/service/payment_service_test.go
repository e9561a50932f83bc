package service

import (
	"context"
	"errors"
	"testing"

	"techstore/internal/apperr"
	"techstore/internal/domain"
	"techstore/internal/payment"

	"github.com/google/uuid"
)

type fakeGateway struct {
	created  []int64
	currency string
	metadata map[string]string
	intents  map[string]*payment.Intent
	err      error
}

func (g *fakeGateway) CreateIntent(ctx context.Context, amount int64, currency string, metadata map[string]string) (*payment.Intent, error) {
	if g.err != nil {
		return nil, g.err
	}
	g.created = append(g.created, amount)
	g.currency = currency
	g.metadata = metadata
	return &payment.Intent{ID: "pi_123", ClientSecret: "pi_123_secret", Amount: amount, Currency: currency}, nil
}

func (g *fakeGateway) GetIntent(ctx context.Context, id string) (*payment.Intent, error) {
	if g.err != nil {
		return nil, g.err
	}
	intent, ok := g.intents[id]
	if !ok {
		return nil, &payment.ProviderError{Message: "No such payment_intent: " + id}
	}
	return intent, nil
}

func newPaymentFixture() (PaymentService, *fakeGateway, *memStore, *eventRecorder, *domain.User, *domain.Order) {
	store := newMemStore()
	rec := &eventRecorder{}
	gateway := &fakeGateway{intents: map[string]*payment.Intent{}}
	user := seedUser(store, "Ana", "ana@example.com", domain.RoleCustomer)
	order := domain.Order{
		ID:            uuid.New(),
		UserID:        user.ID,
		Total:         1299.99,
		Status:        domain.OrderStatusPending,
		PaymentStatus: domain.PaymentStatusUnpaid,
	}
	store.orders[order.ID] = order
	svc := NewPaymentService(gateway, fakeOrderRepo{store}, fakeUserRepo{store}, rec.dispatcher(), "pen")
	return svc, gateway, store, rec, user, &order
}

func TestCreateIntent(t *testing.T) {
	svc, gateway, _, _, user, order := newPaymentFixture()
	ctx := context.Background()

	result, err := svc.CreateIntent(ctx, user.ID, order.ID)
	if err != nil {
		t.Fatalf("CreateIntent failed: %v", err)
	}
	if gateway.created[0] != 129999 || gateway.currency != "pen" {
		t.Errorf("expected 129999 pen, got %v %s", gateway.created, gateway.currency)
	}
	if gateway.metadata["order_id"] != order.ID.String() || gateway.metadata["user_id"] != user.ID.String() {
		t.Errorf("unexpected metadata %v", gateway.metadata)
	}
	if result.ClientSecret != "pi_123_secret" || result.Amount != 1299.99 {
		t.Errorf("unexpected result %+v", result)
	}

	if _, err := svc.CreateIntent(ctx, uuid.New(), order.ID); !errors.Is(err, ErrNotOrderOwner) {
		t.Errorf("expected ErrNotOrderOwner, got %v", err)
	}
	if _, err := svc.CreateIntent(ctx, user.ID, uuid.New()); !errors.Is(err, ErrOrderNotFound) {
		t.Errorf("expected ErrOrderNotFound, got %v", err)
	}

	gateway.err = &payment.ProviderError{Message: "Your card was declined."}
	_, err = svc.CreateIntent(ctx, user.ID, order.ID)
	appErr, ok := apperr.As(err)
	if !ok || appErr.Kind != apperr.KindValidation || appErr.Message != "Your card was declined." {
		t.Errorf("provider errors should surface as validation, got %v", err)
	}
}

func TestConfirm(t *testing.T) {
	svc, gateway, store, rec, user, order := newPaymentFixture()
	ctx := context.Background()

	paidFor := func(id, orderID string, amount int64, status string) *payment.Intent {
		return &payment.Intent{ID: id, Status: status, Amount: amount, Metadata: map[string]string{"order_id": orderID}}
	}

	gateway.intents["pi_pending"] = paidFor("pi_pending", order.ID.String(), 129999, "requires_payment_method")
	if _, err := svc.Confirm(ctx, user.ID, order.ID, "pi_pending"); !errors.Is(err, ErrPaymentPending) {
		t.Errorf("expected ErrPaymentPending, got %v", err)
	}
	if _, err := svc.Confirm(ctx, user.ID, order.ID, "pi_missing"); apperr.KindOf(err) != apperr.KindValidation {
		t.Errorf("unknown intent should be a validation error, got %v", err)
	}

	gateway.intents["pi_other"] = paidFor("pi_other", uuid.NewString(), 129999, payment.StatusSucceeded)
	if _, err := svc.Confirm(ctx, user.ID, order.ID, "pi_other"); !errors.Is(err, ErrIntentOrderMismatch) {
		t.Errorf("intent for another order must be rejected, got %v", err)
	}

	gateway.intents["pi_untagged"] = &payment.Intent{ID: "pi_untagged", Status: payment.StatusSucceeded, Amount: 129999}
	if _, err := svc.Confirm(ctx, user.ID, order.ID, "pi_untagged"); !errors.Is(err, ErrIntentOrderMismatch) {
		t.Errorf("intent without an order reference must be rejected, got %v", err)
	}

	gateway.intents["pi_short"] = paidFor("pi_short", order.ID.String(), 100, payment.StatusSucceeded)
	_, err := svc.Confirm(ctx, user.ID, order.ID, "pi_short")
	if !errors.Is(err, ErrIntentAmountMismatch) {
		t.Errorf("underpaid intent must be rejected, got %v", err)
	}
	if appErr, ok := apperr.As(err); !ok || appErr.Details["expected"] != int64(129999) {
		t.Errorf("mismatch should report the expected amount, got %v", err)
	}
	if store.orders[order.ID].PaymentStatus != domain.PaymentStatusUnpaid {
		t.Fatal("rejected intents must not mark the order paid")
	}

	gateway.intents["pi_ok"] = paidFor("pi_ok", order.ID.String(), 129999, payment.StatusSucceeded)
	confirmed, err := svc.Confirm(ctx, user.ID, order.ID, "pi_ok")
	if err != nil {
		t.Fatalf("Confirm failed: %v", err)
	}
	stored := store.orders[order.ID]
	if confirmed.Status != domain.OrderStatusConfirmed || stored.PaymentStatus != domain.PaymentStatusPaid || *stored.PaymentIntentID != "pi_ok" {
		t.Errorf("order not marked paid: %+v", stored)
	}
	if names := rec.names(); len(names) != 1 {
		t.Errorf("expected one status event, got %v", names)
	}

	status, err := svc.Status(ctx, user.ID, order.ID)
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if status.PaymentStatus != domain.PaymentStatusPaid || status.OrderStatus != domain.OrderStatusConfirmed || status.Total != 1299.99 {
		t.Errorf("unexpected status %+v", status)
	}
}
