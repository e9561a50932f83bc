package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"techstore/internal/apperr"

	"github.com/google/uuid"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func newCartFixture() (CartService, *memStore) {
	store := newMemStore()
	return NewCartService(&fakeTx{store: store}, fakeCartRepo{store}, fakeProductRepo{store}), store
}

func TestAdd_AccumulatesAgainstStock(t *testing.T) {
	tests := []struct {
		name      string
		stock     int
		wantQty   int
		wantError bool
	}{
		{"enough stock", 10, 8, false},
		{"second add exceeds stock", 7, 5, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, store := newCartFixture()
			ctx := context.Background()
			user := uuid.New()
			product := seedProduct(store, "Keyboard", 45.5, tt.stock)

			if _, err := svc.Add(ctx, user, product.ID, 5); err != nil {
				t.Fatalf("first add failed: %v", err)
			}
			_, err := svc.Add(ctx, user, product.ID, 3)
			if tt.wantError {
				if !errors.Is(err, ErrInsufficientStock) || apperr.KindOf(err) != apperr.KindConflict {
					t.Fatalf("expected insufficient stock conflict, got %v", err)
				}
			} else if err != nil {
				t.Fatalf("second add failed: %v", err)
			}

			view, err := svc.View(ctx, user)
			if err != nil {
				t.Fatalf("View failed: %v", err)
			}
			if len(view.Items) != 1 || view.Items[0].Quantity != tt.wantQty {
				t.Errorf("expected quantity %d, got %+v", tt.wantQty, view.Items)
			}
		})
	}
}

func TestProperty_CartTotalIsRecomputed(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("view total equals sum of price times quantity", prop.ForAll(
		func(quantities []int) bool {
			svc, store := newCartFixture()
			ctx := context.Background()
			user := uuid.New()

			want := 0
			count := 0
			for i, q := range quantities {
				product := seedProduct(store, "P", float64(i+1)+0.25, 100)
				if _, err := svc.Add(ctx, user, product.ID, q); err != nil {
					return false
				}
				want += (4*(i+1) + 1) * q
				count += q
			}

			view, err := svc.View(ctx, user)
			if err != nil {
				return false
			}
			return view.Total == float64(want)/4 && view.TotalItems == count
		},
		gen.SliceOfN(5, gen.IntRange(1, 20)),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestAdd_Rejections(t *testing.T) {
	svc, store := newCartFixture()
	ctx := context.Background()
	user := uuid.New()
	product := seedProduct(store, "Mouse", 20, 2)

	if _, err := svc.Add(ctx, user, uuid.New(), 1); !errors.Is(err, ErrProductNotFound) {
		t.Errorf("expected ErrProductNotFound, got %v", err)
	}
	if _, err := svc.Add(ctx, user, product.ID, 0); !errors.Is(err, ErrInvalidQuantity) {
		t.Errorf("expected ErrInvalidQuantity, got %v", err)
	}
	_, err := svc.Add(ctx, user, product.ID, 3)
	appErr, ok := apperr.As(err)
	if !ok || appErr.Details["available"] != 2 {
		t.Errorf("expected available stock in details, got %v", err)
	}
}

func TestAdd_SnapshotsProduct(t *testing.T) {
	svc, store := newCartFixture()
	ctx := context.Background()
	user := uuid.New()
	product := seedProduct(store, "Monitor", 899.9, 5)

	view, err := svc.Add(ctx, user, product.ID, 2)
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	line := view.Items[0]
	if line.Name != "Monitor" || line.Price != 899.9 || line.Stock != 5 || line.Image == nil || *line.Image != product.Images[0] {
		t.Errorf("unexpected snapshot %+v", line)
	}
	if view.Total != 1799.8 || view.TotalItems != 2 {
		t.Errorf("unexpected totals %v / %d", view.Total, view.TotalItems)
	}
}

func TestUpdate(t *testing.T) {
	svc, store := newCartFixture()
	ctx := context.Background()
	user := uuid.New()
	a := seedProduct(store, "A", 10, 5)
	b := seedProduct(store, "B", 5, 5)

	if _, err := svc.Update(ctx, user, a.ID, 1); !errors.Is(err, ErrCartNotFound) {
		t.Errorf("expected ErrCartNotFound, got %v", err)
	}

	_, _ = svc.Add(ctx, user, a.ID, 1)

	if _, err := svc.Update(ctx, user, b.ID, 2); !errors.Is(err, ErrLineNotInCart) {
		t.Errorf("expected ErrLineNotInCart, got %v", err)
	}
	if _, err := svc.Update(ctx, user, a.ID, 6); !errors.Is(err, ErrInsufficientStock) {
		t.Errorf("expected ErrInsufficientStock, got %v", err)
	}

	p := store.products[a.ID]
	p.Stock = 4
	store.products[a.ID] = p

	view, err := svc.Update(ctx, user, a.ID, 3)
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if view.Items[0].Quantity != 3 || view.Items[0].Stock != 4 {
		t.Errorf("expected quantity 3 with refreshed stock 4, got %+v", view.Items[0])
	}

	view, err = svc.Update(ctx, user, a.ID, 0)
	if err != nil {
		t.Fatalf("Update to zero failed: %v", err)
	}
	if len(view.Items) != 0 || view.Total != 0 {
		t.Errorf("zero quantity should remove the line, got %+v", view)
	}
}

func TestRemoveAndClear(t *testing.T) {
	svc, store := newCartFixture()
	ctx := context.Background()
	user := uuid.New()
	a := seedProduct(store, "A", 10, 5)
	b := seedProduct(store, "B", 5, 5)

	if _, err := svc.Remove(ctx, user, a.ID); !errors.Is(err, ErrCartNotFound) {
		t.Errorf("expected ErrCartNotFound, got %v", err)
	}

	_, _ = svc.Add(ctx, user, a.ID, 2)
	_, _ = svc.Add(ctx, user, b.ID, 1)

	view, err := svc.Remove(ctx, user, a.ID)
	if err != nil || len(view.Items) != 1 || view.Total != 5 {
		t.Fatalf("Remove = %+v, %v", view, err)
	}

	view, err = svc.Clear(ctx, user)
	if err != nil || len(view.Items) != 0 || view.TotalItems != 0 {
		t.Fatalf("Clear = %+v, %v", view, err)
	}
	if cart := store.carts[user]; len(cart.Items) != 0 {
		t.Errorf("stored cart should be empty, got %+v", cart.Items)
	}

	if _, err := svc.Clear(ctx, uuid.New()); err != nil {
		t.Errorf("clearing a missing cart should succeed, got %v", err)
	}
	empty, err := svc.View(ctx, uuid.New())
	if err != nil || empty.Items == nil || len(empty.Items) != 0 {
		t.Errorf("missing cart should view as empty, got %+v, %v", empty, err)
	}
}

func TestAdd_ConcurrentAddsAreNotLost(t *testing.T) {
	svc, store := newCartFixture()
	user := uuid.New()
	product := seedProduct(store, "Mouse", 20, 100)

	const adds = 20
	var wg sync.WaitGroup
	errs := make(chan error, adds)
	for i := 0; i < adds; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.Add(context.Background(), user, product.ID, 1); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("Add failed: %v", err)
	}

	view, err := svc.View(context.Background(), user)
	if err != nil {
		t.Fatalf("View failed: %v", err)
	}
	if len(view.Items) != 1 || view.Items[0].Quantity != adds {
		t.Errorf("expected quantity %d after concurrent adds, got %+v", adds, view.Items)
	}
}
