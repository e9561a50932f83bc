package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"techstore/internal/domain"

	"github.com/google/uuid"
)

var ErrOrderNotFound = errors.New("order not found")

// OrderRepository defines the interface for order data access
type OrderRepository interface {
	Create(ctx context.Context, order *domain.Order) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Order, error)
	ListAll(ctx context.Context) ([]*domain.Order, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.OrderStatus) error
	// MarkPaid records a successful payment and confirms the order.
	MarkPaid(ctx context.Context, id uuid.UUID, paymentIntentID string) error
}

type orderRepository struct {
	db *sql.DB
}

// NewOrderRepository creates a new instance of OrderRepository
func NewOrderRepository(db *sql.DB) OrderRepository {
	return &orderRepository{db: db}
}

const orderColumns = `id, user_id, items, total, status, payment_status, payment_intent_id, created_at, updated_at`

func scanOrder(row interface{ Scan(...interface{}) error }) (*domain.Order, error) {
	order := &domain.Order{}
	var (
		items    []byte
		intentID sql.NullString
	)

	err := row.Scan(
		&order.ID,
		&order.UserID,
		&items,
		&order.Total,
		&order.Status,
		&order.PaymentStatus,
		&intentID,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if intentID.Valid {
		order.PaymentIntentID = &intentID.String
	}
	if err := domain.DecodeDocument(items, &order.Items); err != nil {
		return nil, err
	}

	return order, nil
}

func (r *orderRepository) Create(ctx context.Context, order *domain.Order) error {
	items, err := json.Marshal(order.Items)
	if err != nil {
		return fmt.Errorf("failed to encode order items: %w", err)
	}

	query := `
		INSERT INTO orders (id, user_id, items, total, status, payment_status, payment_intent_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err = conn(ctx, r.db).ExecContext(
		ctx,
		query,
		order.ID,
		order.UserID,
		string(items),
		order.Total,
		order.Status,
		order.PaymentStatus,
		order.PaymentIntentID,
		order.CreatedAt,
		order.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}

	return nil
}

func (r *orderRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	order, err := scanOrder(conn(ctx, r.db).QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to find order by ID: %w", err)
	}

	return order, nil
}

func (r *orderRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE user_id = $1 ORDER BY created_at DESC`
	return r.list(ctx, query, userID)
}

func (r *orderRepository) ListAll(ctx context.Context) ([]*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders ORDER BY created_at DESC`
	return r.list(ctx, query)
}

func (r *orderRepository) list(ctx context.Context, query string, args ...interface{}) ([]*domain.Order, error) {
	rows, err := conn(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	orders := []*domain.Order{}
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, order)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating orders: %w", err)
	}

	return orders, nil
}

func (r *orderRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.OrderStatus) error {
	query := `UPDATE orders SET status = $2, updated_at = $3 WHERE id = $1`

	result, err := conn(ctx, r.db).ExecContext(ctx, query, id, status, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}

	return requireOne(result, ErrOrderNotFound)
}

func (r *orderRepository) MarkPaid(ctx context.Context, id uuid.UUID, paymentIntentID string) error {
	query := `
		UPDATE orders
		SET status = $2, payment_status = $3, payment_intent_id = $4, updated_at = $5
		WHERE id = $1
	`

	result, err := conn(ctx, r.db).ExecContext(
		ctx,
		query,
		id,
		domain.OrderStatusConfirmed,
		domain.PaymentStatusPaid,
		paymentIntentID,
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to mark order paid: %w", err)
	}

	return requireOne(result, ErrOrderNotFound)
}
