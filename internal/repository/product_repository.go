package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"techstore/internal/domain"

	"github.com/google/uuid"
)

var (
	ErrProductNotFound      = errors.New("product not found")
	ErrInsufficientStock    = errors.New("insufficient stock")
	ErrProductImageNotFound = errors.New("image not found on product")
)

// ProductRepository defines the interface for product data access
type ProductRepository interface {
	Create(ctx context.Context, product *domain.Product) error
	// Update writes only the fields set in patch and returns the stored product.
	Update(ctx context.Context, id uuid.UUID, patch domain.ProductPatch) (*domain.Product, error)
	AddImage(ctx context.Context, id uuid.UUID, url string) (*domain.Product, error)
	RemoveImage(ctx context.Context, id uuid.UUID, url string) (*domain.Product, error)
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error)
	List(ctx context.Context, filter domain.ProductFilter) ([]*domain.Product, error)
	// DecrementStock subtracts quantity only while stock covers it.
	DecrementStock(ctx context.Context, id uuid.UUID, quantity int) error
	UpdateRating(ctx context.Context, id uuid.UUID, rating float64) error
}

type productRepository struct {
	db *sql.DB
}

// NewProductRepository creates a new instance of ProductRepository
func NewProductRepository(db *sql.DB) ProductRepository {
	return &productRepository{db: db}
}

const productColumns = `id, name, description, price, original_price, discount_percentage,
	category, stock, images, rating, created_at, updated_at`

func scanProduct(row interface{ Scan(...interface{}) error }) (*domain.Product, error) {
	product := &domain.Product{}
	var originalPrice sql.NullFloat64
	var images []byte

	err := row.Scan(
		&product.ID,
		&product.Name,
		&product.Description,
		&product.Price,
		&originalPrice,
		&product.DiscountPercentage,
		&product.Category,
		&product.Stock,
		&images,
		&product.Rating,
		&product.CreatedAt,
		&product.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if originalPrice.Valid {
		product.OriginalPrice = &originalPrice.Float64
	}
	product.Images = []string{}
	if len(images) > 0 {
		if err := domain.DecodeDocument(images, &product.Images); err != nil {
			return nil, err
		}
	}

	return product, nil
}

func encodeImages(images []string) (string, error) {
	if images == nil {
		images = []string{}
	}
	raw, err := json.Marshal(images)
	if err != nil {
		return "", fmt.Errorf("failed to encode images: %w", err)
	}
	return string(raw), nil
}

func (r *productRepository) Create(ctx context.Context, product *domain.Product) error {
	images, err := encodeImages(product.Images)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO products (id, name, description, price, original_price, discount_percentage,
			category, stock, images, rating, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err = conn(ctx, r.db).ExecContext(
		ctx,
		query,
		product.ID,
		product.Name,
		product.Description,
		product.Price,
		product.OriginalPrice,
		product.DiscountPercentage,
		product.Category,
		product.Stock,
		images,
		product.Rating,
		product.CreatedAt,
		product.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create product: %w", err)
	}

	return nil
}

// Update sets the patched columns in place. Stock and rating are left to
// their own statements unless the patch names them.
func (r *productRepository) Update(ctx context.Context, id uuid.UUID, patch domain.ProductPatch) (*domain.Product, error) {
	args := []interface{}{id}
	set := []string{"updated_at = NOW()"}

	column := func(name string, v interface{}) {
		args = append(args, v)
		set = append(set, fmt.Sprintf("%s = $%d", name, len(args)))
	}

	if patch.Name != nil {
		column("name", *patch.Name)
	}
	if patch.Description != nil {
		column("description", *patch.Description)
	}
	if patch.Price != nil {
		column("price", *patch.Price)
	}
	if patch.OriginalPrice != nil {
		column("original_price", *patch.OriginalPrice)
	}
	if patch.Category != nil {
		column("category", *patch.Category)
	}
	if patch.Stock != nil {
		column("stock", *patch.Stock)
	}
	if patch.Images != nil {
		images, err := encodeImages(*patch.Images)
		if err != nil {
			return nil, err
		}
		column("images", images)
	}
	if patch.Rating != nil {
		column("rating", *patch.Rating)
	}

	query := fmt.Sprintf(`UPDATE products SET %s WHERE id = $1 RETURNING %s`, strings.Join(set, ", "), productColumns)

	product, err := scanProduct(conn(ctx, r.db).QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to update product: %w", err)
	}

	return product, nil
}

// AddImage appends url to the gallery unless it is already there
func (r *productRepository) AddImage(ctx context.Context, id uuid.UUID, url string) (*domain.Product, error) {
	query := `
		UPDATE products
		SET images = CASE
		        WHEN images @> jsonb_build_array($2::text) THEN images
		        ELSE images || jsonb_build_array($2::text)
		    END,
		    updated_at = NOW()
		WHERE id = $1
		RETURNING ` + productColumns

	product, err := scanProduct(conn(ctx, r.db).QueryRowContext(ctx, query, id, url))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to add product image: %w", err)
	}

	return product, nil
}

// RemoveImage drops every occurrence of url from the gallery
func (r *productRepository) RemoveImage(ctx context.Context, id uuid.UUID, url string) (*domain.Product, error) {
	query := `
		UPDATE products
		SET images = images - $2::text, updated_at = NOW()
		WHERE id = $1 AND images @> jsonb_build_array($2::text)
		RETURNING ` + productColumns

	product, err := scanProduct(conn(ctx, r.db).QueryRowContext(ctx, query, id, url))
	if err == nil {
		return product, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to remove product image: %w", err)
	}

	if _, err := r.FindByID(ctx, id); err != nil {
		return nil, err
	}
	return nil, ErrProductImageNotFound
}

func (r *productRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := conn(ctx, r.db).ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}

	return requireOne(result, ErrProductNotFound)
}

func (r *productRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	product, err := scanProduct(conn(ctx, r.db).QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to find product by ID: %w", err)
	}

	return product, nil
}

// List returns products matching every set filter field, newest first
func (r *productRepository) List(ctx context.Context, filter domain.ProductFilter) ([]*domain.Product, error) {
	var (
		conditions []string
		args       []interface{}
	)

	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.Category != "" {
		conditions = append(conditions, "category = "+arg(filter.Category))
	}
	if filter.MinPrice != nil {
		conditions = append(conditions, "price >= "+arg(*filter.MinPrice))
	}
	if filter.MaxPrice != nil {
		conditions = append(conditions, "price <= "+arg(*filter.MaxPrice))
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		p := arg("%" + escapeLike(search) + "%")
		conditions = append(conditions, "(name ILIKE "+p+" OR description ILIKE "+p+")")
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	query := fmt.Sprintf(`SELECT %s FROM products %s ORDER BY created_at DESC`, productColumns, whereClause)

	rows, err := conn(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	products := []*domain.Product{}
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, product)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating products: %w", err)
	}

	return products, nil
}

func (r *productRepository) DecrementStock(ctx context.Context, id uuid.UUID, quantity int) error {
	query := `
		UPDATE products
		SET stock = stock - $2, updated_at = NOW()
		WHERE id = $1 AND stock >= $2
	`

	result, err := conn(ctx, r.db).ExecContext(ctx, query, id, quantity)
	if err != nil {
		return fmt.Errorf("failed to decrement stock: %w", err)
	}

	return requireOne(result, ErrInsufficientStock)
}

func (r *productRepository) UpdateRating(ctx context.Context, id uuid.UUID, rating float64) error {
	result, err := conn(ctx, r.db).ExecContext(ctx, `UPDATE products SET rating = $2 WHERE id = $1`, id, rating)
	if err != nil {
		return fmt.Errorf("failed to update product rating: %w", err)
	}

	return requireOne(result, ErrProductNotFound)
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
