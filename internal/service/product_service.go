package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"techstore/internal/domain"
	"techstore/internal/media"
	"techstore/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CreateProductInput is the payload for a new catalog entry
type CreateProductInput struct {
	Name          string   `json:"name" validate:"required,min=1,max=200"`
	Description   string   `json:"description"`
	Price         float64  `json:"price" validate:"required,gt=0"`
	OriginalPrice *float64 `json:"original_price" validate:"omitempty,gt=0"`
	Category      string   `json:"category" validate:"required"`
	Stock         int      `json:"stock" validate:"gte=0"`
	Images        []string `json:"images"`
	Rating        float64  `json:"rating" validate:"gte=0,lte=5"`
}

// ImageStore persists uploaded product images
type ImageStore interface {
	Save(c media.Collection, filename, contentType string, allowed map[string]bool, r io.Reader) (*media.Asset, error)
	Delete(c media.Collection, filename string) error
	URL(c media.Collection, filename string) string
}

// ProductService defines the catalog operations
type ProductService interface {
	Create(ctx context.Context, input CreateProductInput) (*domain.Product, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.Product, error)
	List(ctx context.Context, filter domain.ProductFilter) ([]*domain.Product, error)
	Patch(ctx context.Context, id uuid.UUID, patch domain.ProductPatch) (*domain.Product, error)
	Delete(ctx context.Context, id uuid.UUID) error
	AddImage(ctx context.Context, id uuid.UUID, url string) (*domain.Product, error)
	RemoveImage(ctx context.Context, id uuid.UUID, url string) (*domain.Product, error)
	UploadImage(ctx context.Context, id uuid.UUID, filename, contentType string, r io.Reader) (*domain.Product, error)
}

type productService struct {
	productRepo repository.ProductRepository
	images      ImageStore
	logger      *zap.Logger
	now         func() time.Time
}

// NewProductService creates a new instance of ProductService
func NewProductService(productRepo repository.ProductRepository, images ImageStore, logger *zap.Logger) ProductService {
	return &productService{
		productRepo: productRepo,
		images:      images,
		logger:      logger,
		now:         time.Now,
	}
}

// Create stores a product, deriving the discount from the original price
func (s *productService) Create(ctx context.Context, input CreateProductInput) (*domain.Product, error) {
	now := s.now().UTC()
	images := input.Images
	if images == nil {
		images = []string{}
	}

	price := domain.Money(input.Price)
	var originalPrice *float64
	if input.OriginalPrice != nil {
		orig := domain.Money(*input.OriginalPrice)
		originalPrice = &orig
	}

	product := &domain.Product{
		ID:                 uuid.New(),
		Name:               input.Name,
		Description:        input.Description,
		Price:              price,
		OriginalPrice:      originalPrice,
		DiscountPercentage: domain.DiscountPercentage(price, originalPrice),
		Category:           input.Category,
		Stock:              input.Stock,
		Images:             images,
		Rating:             input.Rating,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	if err := s.productRepo.Create(ctx, product); err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}
	return product, nil
}

func (s *productService) Get(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	product, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return product, nil
}

func (s *productService) List(ctx context.Context, filter domain.ProductFilter) ([]*domain.Product, error) {
	filter.Search = strings.TrimSpace(filter.Search)
	products, err := s.productRepo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return products, nil
}

// Patch changes only the provided fields
func (s *productService) Patch(ctx context.Context, id uuid.UUID, patch domain.ProductPatch) (*domain.Product, error) {
	if patch.Empty() {
		return nil, ErrEmptyPatch
	}
	if patch.Price != nil {
		price := domain.Money(*patch.Price)
		patch.Price = &price
	}
	if patch.OriginalPrice != nil {
		orig := domain.Money(*patch.OriginalPrice)
		patch.OriginalPrice = &orig
	}

	product, err := s.productRepo.Update(ctx, id, patch)
	if err != nil {
		return nil, s.productError(err, "failed to update product")
	}
	return product, nil
}

func (s *productService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.productRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return ErrProductNotFound
		}
		return fmt.Errorf("failed to delete product: %w", err)
	}
	return nil
}

// AddImage appends url to the gallery unless it is already there
func (s *productService) AddImage(ctx context.Context, id uuid.UUID, url string) (*domain.Product, error) {
	product, err := s.productRepo.AddImage(ctx, id, url)
	if err != nil {
		return nil, s.productError(err, "failed to add product image")
	}
	return product, nil
}

// RemoveImage drops url from the gallery and deletes the file when it was
// uploaded through this service
func (s *productService) RemoveImage(ctx context.Context, id uuid.UUID, url string) (*domain.Product, error) {
	product, err := s.productRepo.RemoveImage(ctx, id, url)
	if err != nil {
		return nil, s.productError(err, "failed to remove product image")
	}

	if name, ok := s.uploadedName(url); ok {
		if err := s.images.Delete(media.Products, name); err != nil {
			s.logger.Warn("Failed to delete product image file", zap.String("url", url), zap.Error(err))
		}
	}
	return product, nil
}

// uploadedName returns the stored filename when url points into the
// product image collection.
func (s *productService) uploadedName(url string) (string, bool) {
	prefix := strings.TrimSuffix(s.images.URL(media.Products, ""), "/") + "/"
	if !strings.HasPrefix(url, prefix) {
		return "", false
	}
	name := strings.TrimPrefix(url, prefix)
	if name == "" || strings.Contains(name, "/") {
		return "", false
	}
	return name, true
}

// UploadImage stores the file in the media store and adds its URL to the gallery
func (s *productService) UploadImage(ctx context.Context, id uuid.UUID, filename, contentType string, r io.Reader) (*domain.Product, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}

	name := uuid.New().String() + strings.ToLower(filepath.Ext(filename))
	asset, err := s.images.Save(media.Products, name, contentType, media.ProductImageTypes, r)
	if err != nil {
		return nil, err
	}

	return s.AddImage(ctx, id, asset.URL)
}

func (s *productService) productError(err error, msg string) error {
	switch {
	case errors.Is(err, repository.ErrProductNotFound):
		return ErrProductNotFound
	case errors.Is(err, repository.ErrProductImageNotFound):
		return ErrImageNotFound
	default:
		return fmt.Errorf("%s: %w", msg, err)
	}
}
