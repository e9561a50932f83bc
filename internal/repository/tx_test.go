package repository

import (
	"context"
	"errors"
	"testing"
)

func TestTxManager_RollbackUndoesDecrements(t *testing.T) {
	products := NewProductRepository(testDB)
	tx := NewTxManager(testDB)
	ctx := context.Background()

	a := newTestProduct("Tx A", 10, 5)
	b := newTestProduct("Tx B", 10, 1)
	createProduct(t, a)
	createProduct(t, b)

	err := tx.WithTransaction(ctx, func(ctx context.Context) error {
		if err := products.DecrementStock(ctx, a.ID, 3); err != nil {
			return err
		}
		return products.DecrementStock(ctx, b.ID, 2)
	})
	if !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}

	got, _ := products.FindByID(ctx, a.ID)
	if got.Stock != 5 {
		t.Errorf("rollback should restore stock to 5, got %d", got.Stock)
	}
}

func TestTxManager_CommitAndNesting(t *testing.T) {
	products := NewProductRepository(testDB)
	tx := NewTxManager(testDB)
	ctx := context.Background()

	p := newTestProduct("Tx Commit", 10, 4)
	createProduct(t, p)

	err := tx.WithTransaction(ctx, func(ctx context.Context) error {
		if err := products.DecrementStock(ctx, p.ID, 1); err != nil {
			return err
		}
		return tx.WithTransaction(ctx, func(ctx context.Context) error {
			return products.DecrementStock(ctx, p.ID, 1)
		})
	})
	if err != nil {
		t.Fatalf("WithTransaction failed: %v", err)
	}

	got, _ := products.FindByID(ctx, p.ID)
	if got.Stock != 2 {
		t.Errorf("expected stock 2 after commit, got %d", got.Stock)
	}
}
