package service

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"techstore/internal/domain"
	"techstore/internal/media"

	"github.com/google/uuid"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"go.uber.org/zap"
)

func newProductFixture(t *testing.T) (ProductService, *memStore, *media.Store) {
	store := newMemStore()
	images := media.NewStore(t.TempDir(), "http://api.test")
	return NewProductService(fakeProductRepo{store}, images, zap.NewNop()), store, images
}

func TestProperty_DiscountDerivedAtCreation(t *testing.T) {
	svc, _, _ := newProductFixture(t)
	properties := gopter.NewProperties(nil)

	properties.Property("discount follows original price at creation", prop.ForAll(
		func(priceCents int, extraCents int, withOriginal bool) bool {
			price := float64(priceCents) / 100
			input := CreateProductInput{Name: "Mouse", Price: price, Category: "gaming", Stock: 1}

			want := 0.0
			if withOriginal {
				orig := float64(priceCents+extraCents) / 100
				input.OriginalPrice = &orig
				if extraCents > 0 {
					want = math.Round(100*(orig-price)/orig*100) / 100
				}
			}

			product, err := svc.Create(context.Background(), input)
			if err != nil {
				return false
			}
			return math.Abs(product.DiscountPercentage-want) < 0.011
		},
		gen.IntRange(1, 500000),
		gen.IntRange(0, 500000),
		gen.Bool(),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestPatch(t *testing.T) {
	svc, _, _ := newProductFixture(t)
	ctx := context.Background()

	orig := 150.0
	product, err := svc.Create(ctx, CreateProductInput{
		Name: "Headset", Price: 100, OriginalPrice: &orig, Category: "audio", Stock: 4,
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if product.DiscountPercentage != 33.33 {
		t.Fatalf("expected 33.33%% discount, got %v", product.DiscountPercentage)
	}

	if _, err := svc.Patch(ctx, product.ID, domain.ProductPatch{}); !errors.Is(err, ErrEmptyPatch) {
		t.Errorf("expected ErrEmptyPatch, got %v", err)
	}

	price := 120.0
	stock := 9
	patched, err := svc.Patch(ctx, product.ID, domain.ProductPatch{Price: &price, Stock: &stock})
	if err != nil {
		t.Fatalf("Patch failed: %v", err)
	}
	if patched.Price != 120 || patched.Stock != 9 || patched.Name != "Headset" {
		t.Errorf("unexpected patched product %+v", patched)
	}
	if patched.DiscountPercentage != 33.33 {
		t.Errorf("discount must not be recomputed on update, got %v", patched.DiscountPercentage)
	}

	if _, err := svc.Patch(ctx, uuid.New(), domain.ProductPatch{Price: &price}); !errors.Is(err, ErrProductNotFound) {
		t.Errorf("expected ErrProductNotFound, got %v", err)
	}
}

func TestDeleteAndList(t *testing.T) {
	svc, store, _ := newProductFixture(t)
	ctx := context.Background()
	keep := seedProduct(store, "Console", 499, 3)
	gone := seedProduct(store, "Cable", 5, 100)

	if err := svc.Delete(ctx, gone.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := svc.Delete(ctx, gone.ID); !errors.Is(err, ErrProductNotFound) {
		t.Errorf("expected ErrProductNotFound, got %v", err)
	}

	products, err := svc.List(ctx, domain.ProductFilter{Search: "  console "})
	if err != nil || len(products) != 1 || products[0].ID != keep.ID {
		t.Errorf("List = %v, %v", products, err)
	}
}

func TestImageGallery(t *testing.T) {
	svc, store, images := newProductFixture(t)
	ctx := context.Background()
	product := seedProduct(store, "Camera", 300, 2)

	first, err := svc.AddImage(ctx, product.ID, "https://cdn.test/extra.png")
	if err != nil {
		t.Fatalf("AddImage failed: %v", err)
	}
	again, err := svc.AddImage(ctx, product.ID, "https://cdn.test/extra.png")
	if err != nil || len(again.Images) != len(first.Images) {
		t.Errorf("adding the same url twice should be a no-op, got %v", again.Images)
	}

	if _, err := svc.RemoveImage(ctx, product.ID, "https://cdn.test/missing.png"); !errors.Is(err, ErrImageNotFound) {
		t.Errorf("expected ErrImageNotFound, got %v", err)
	}

	uploaded, err := svc.UploadImage(ctx, product.ID, "Front View.PNG", "image/png", strings.NewReader("png-bytes"))
	if err != nil {
		t.Fatalf("UploadImage failed: %v", err)
	}
	url := uploaded.Images[len(uploaded.Images)-1]
	if !strings.HasPrefix(url, "http://api.test/static/products/") || !strings.HasSuffix(url, ".png") {
		t.Fatalf("unexpected uploaded url %s", url)
	}
	file := filepath.Join(images.Root(), "products", filepath.Base(url))
	if _, err := os.Stat(file); err != nil {
		t.Fatalf("uploaded file missing: %v", err)
	}

	removed, err := svc.RemoveImage(ctx, product.ID, url)
	if err != nil {
		t.Fatalf("RemoveImage failed: %v", err)
	}
	if removed.HasImage(url) {
		t.Error("image still in gallery")
	}
	if _, err := os.Stat(file); !os.IsNotExist(err) {
		t.Errorf("uploaded file should be deleted, stat err = %v", err)
	}

	if _, err := svc.UploadImage(ctx, product.ID, "anim.gif", "image/gif", strings.NewReader("gif")); !errors.Is(err, media.ErrUnsupportedType) {
		t.Errorf("gif uploads are not allowed for products, got %v", err)
	}
}

// interleavedProductRepo runs beforeWrite ahead of every catalog write, the
// way a checkout committing between two requests would.
type interleavedProductRepo struct {
	fakeProductRepo
	beforeWrite func()
}

func (r interleavedProductRepo) Update(ctx context.Context, id uuid.UUID, patch domain.ProductPatch) (*domain.Product, error) {
	r.beforeWrite()
	return r.fakeProductRepo.Update(ctx, id, patch)
}

func (r interleavedProductRepo) AddImage(ctx context.Context, id uuid.UUID, url string) (*domain.Product, error) {
	r.beforeWrite()
	return r.fakeProductRepo.AddImage(ctx, id, url)
}

func (r interleavedProductRepo) RemoveImage(ctx context.Context, id uuid.UUID, url string) (*domain.Product, error) {
	r.beforeWrite()
	return r.fakeProductRepo.RemoveImage(ctx, id, url)
}

func TestCatalogWritesKeepConcurrentStockAndRating(t *testing.T) {
	store := newMemStore()
	product := seedProduct(store, "Monitor", 250, 10)
	base := fakeProductRepo{store}
	ctx := context.Background()

	writes := 0
	repo := interleavedProductRepo{fakeProductRepo: base, beforeWrite: func() {
		writes++
		if err := base.DecrementStock(ctx, product.ID, 1); err != nil {
			t.Fatalf("DecrementStock failed: %v", err)
		}
		if err := base.UpdateRating(ctx, product.ID, 4.5); err != nil {
			t.Fatalf("UpdateRating failed: %v", err)
		}
	}}
	svc := NewProductService(repo, media.NewStore(t.TempDir(), ""), zap.NewNop())

	if _, err := svc.AddImage(ctx, product.ID, "https://cdn.test/side.png"); err != nil {
		t.Fatalf("AddImage failed: %v", err)
	}
	name := "Monitor 27"
	if _, err := svc.Patch(ctx, product.ID, domain.ProductPatch{Name: &name}); err != nil {
		t.Fatalf("Patch failed: %v", err)
	}
	got, err := svc.RemoveImage(ctx, product.ID, "https://cdn.test/side.png")
	if err != nil {
		t.Fatalf("RemoveImage failed: %v", err)
	}

	if writes != 3 {
		t.Fatalf("expected 3 catalog writes, got %d", writes)
	}
	if got.Stock != 7 {
		t.Errorf("stock after 3 concurrent checkouts of 1 = %d, want 7", got.Stock)
	}
	if got.Rating != 4.5 {
		t.Errorf("rating overwritten by catalog write: %v", got.Rating)
	}
	if got.Name != name || got.HasImage("https://cdn.test/side.png") {
		t.Errorf("unexpected product after writes: %+v", got)
	}

	stock := 20
	patched, err := svc.Patch(ctx, product.ID, domain.ProductPatch{Stock: &stock})
	if err != nil {
		t.Fatalf("Patch stock failed: %v", err)
	}
	if patched.Stock != 20 {
		t.Errorf("explicit stock patch should win, got %d", patched.Stock)
	}
}

func TestCreate_DiscountUsesStoredPrice(t *testing.T) {
	svc, _, _ := newProductFixture(t)

	orig := 100.004
	product, err := svc.Create(context.Background(), CreateProductInput{
		Name: "Keyboard", Price: 79.999, OriginalPrice: &orig, Category: "gaming",
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if product.Price != 80 || *product.OriginalPrice != 100 {
		t.Fatalf("prices should be stored in cents, got %v / %v", product.Price, *product.OriginalPrice)
	}
	if want := domain.DiscountPercentage(product.Price, product.OriginalPrice); product.DiscountPercentage != want || want != 20 {
		t.Errorf("discount %v should derive from stored prices (want 20)", product.DiscountPercentage)
	}
}
