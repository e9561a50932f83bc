package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"techstore/internal/domain"

	"github.com/google/uuid"
)

var ErrCartNotFound = errors.New("cart not found")

// CartRepository stores one cart document per user
type CartRepository interface {
	FindByUserID(ctx context.Context, userID uuid.UUID) (*domain.Cart, error)
	// FindForUpdate reads the cart and locks it until the surrounding
	// transaction ends. With create set, a missing cart is inserted empty first.
	FindForUpdate(ctx context.Context, userID uuid.UUID, create bool) (*domain.Cart, error)
	// Save creates the cart on first use and replaces its lines afterwards.
	Save(ctx context.Context, cart *domain.Cart) error
	// ClearItems empties an existing cart; a missing cart is left missing.
	ClearItems(ctx context.Context, userID uuid.UUID) error
}

type cartRepository struct {
	db *sql.DB
}

// NewCartRepository creates a new instance of CartRepository
func NewCartRepository(db *sql.DB) CartRepository {
	return &cartRepository{db: db}
}

func (r *cartRepository) FindByUserID(ctx context.Context, userID uuid.UUID) (*domain.Cart, error) {
	return r.find(ctx, `SELECT user_id, items, updated_at FROM carts WHERE user_id = $1`, userID)
}

func (r *cartRepository) FindForUpdate(ctx context.Context, userID uuid.UUID, create bool) (*domain.Cart, error) {
	if create {
		query := `
			INSERT INTO carts (user_id, items, updated_at)
			VALUES ($1, '[]'::jsonb, NOW())
			ON CONFLICT (user_id) DO NOTHING
		`
		if _, err := conn(ctx, r.db).ExecContext(ctx, query, userID); err != nil {
			return nil, fmt.Errorf("failed to create cart: %w", err)
		}
	}

	return r.find(ctx, `SELECT user_id, items, updated_at FROM carts WHERE user_id = $1 FOR UPDATE`, userID)
}

func (r *cartRepository) find(ctx context.Context, query string, userID uuid.UUID) (*domain.Cart, error) {
	cart := &domain.Cart{}
	var items []byte
	err := conn(ctx, r.db).QueryRowContext(ctx, query, userID).Scan(&cart.UserID, &items, &cart.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCartNotFound
		}
		return nil, fmt.Errorf("failed to find cart: %w", err)
	}

	cart.Items = []domain.CartLine{}
	if err := domain.DecodeDocument(items, &cart.Items); err != nil {
		return nil, err
	}

	return cart, nil
}

func (r *cartRepository) Save(ctx context.Context, cart *domain.Cart) error {
	lines := cart.Items
	if lines == nil {
		lines = []domain.CartLine{}
	}
	items, err := json.Marshal(lines)
	if err != nil {
		return fmt.Errorf("failed to encode cart items: %w", err)
	}

	query := `
		INSERT INTO carts (user_id, items, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE SET items = EXCLUDED.items, updated_at = EXCLUDED.updated_at
	`

	if _, err := conn(ctx, r.db).ExecContext(ctx, query, cart.UserID, string(items), cart.UpdatedAt); err != nil {
		return fmt.Errorf("failed to save cart: %w", err)
	}

	return nil
}

func (r *cartRepository) ClearItems(ctx context.Context, userID uuid.UUID) error {
	query := `UPDATE carts SET items = '[]'::jsonb, updated_at = NOW() WHERE user_id = $1`

	if _, err := conn(ctx, r.db).ExecContext(ctx, query, userID); err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}

	return nil
}
