package notify

import (
	"time"

	"techstore/internal/domain"
)

// Event is something that already happened and was committed.
type Event interface {
	EventName() string
}

const (
	EventUserRegistered         = "user.registered"
	EventOrderCreated           = "order.created"
	EventOrderStatusChanged     = "order.status_changed"
	EventPasswordResetRequested = "user.password_reset_requested"
)

type UserRegistered struct {
	User *domain.User
}

func (UserRegistered) EventName() string { return EventUserRegistered }

// OrderCreated carries the customer contact so hooks need no extra lookups.
type OrderCreated struct {
	Order         *domain.Order
	CustomerEmail string
	CustomerName  string
}

func (OrderCreated) EventName() string { return EventOrderCreated }

type OrderStatusChanged struct {
	Order         *domain.Order
	CustomerEmail string
	CustomerName  string
	Status        domain.OrderStatus
}

func (OrderStatusChanged) EventName() string { return EventOrderStatusChanged }

type PasswordResetRequested struct {
	Email     string
	Name      string
	Token     string
	ExpiresAt time.Time
}

func (PasswordResetRequested) EventName() string { return EventPasswordResetRequested }
