package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"techstore/internal/domain"

	"github.com/google/uuid"
)

var (
	ErrReviewNotFound  = errors.New("review not found")
	ErrDuplicateReview = errors.New("review already exists for this product")
)

// ReviewRepository defines the interface for review data access
type ReviewRepository interface {
	Create(ctx context.Context, review *domain.Review) error
	Exists(ctx context.Context, userID, productID uuid.UUID) (bool, error)
	ListByProduct(ctx context.Context, productID uuid.UUID) ([]*domain.Review, error)
	Ratings(ctx context.Context, productID uuid.UUID) ([]float64, error)
	// DeleteOwned removes the review only when userID wrote it.
	DeleteOwned(ctx context.Context, id, userID uuid.UUID) error
}

type reviewRepository struct {
	db *sql.DB
}

// NewReviewRepository creates a new instance of ReviewRepository
func NewReviewRepository(db *sql.DB) ReviewRepository {
	return &reviewRepository{db: db}
}

func (r *reviewRepository) Create(ctx context.Context, review *domain.Review) error {
	query := `
		INSERT INTO reviews (id, user_id, user_name, product_id, rating, comment, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := conn(ctx, r.db).ExecContext(
		ctx,
		query,
		review.ID,
		review.UserID,
		review.UserName,
		review.ProductID,
		review.Rating,
		review.Comment,
		review.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateReview
		}
		return fmt.Errorf("failed to create review: %w", err)
	}

	return nil
}

func (r *reviewRepository) Exists(ctx context.Context, userID, productID uuid.UUID) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM reviews WHERE user_id = $1 AND product_id = $2)`

	var exists bool
	if err := conn(ctx, r.db).QueryRowContext(ctx, query, userID, productID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check review: %w", err)
	}
	return exists, nil
}

func (r *reviewRepository) ListByProduct(ctx context.Context, productID uuid.UUID) ([]*domain.Review, error) {
	query := `
		SELECT id, user_id, user_name, product_id, rating, comment, created_at
		FROM reviews
		WHERE product_id = $1
		ORDER BY created_at DESC
	`

	rows, err := conn(ctx, r.db).QueryContext(ctx, query, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to list reviews: %w", err)
	}
	defer rows.Close()

	reviews := []*domain.Review{}
	for rows.Next() {
		review := &domain.Review{}
		err := rows.Scan(
			&review.ID,
			&review.UserID,
			&review.UserName,
			&review.ProductID,
			&review.Rating,
			&review.Comment,
			&review.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan review: %w", err)
		}
		reviews = append(reviews, review)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating reviews: %w", err)
	}

	return reviews, nil
}

// Ratings re-reads every rating for the product
func (r *reviewRepository) Ratings(ctx context.Context, productID uuid.UUID) ([]float64, error) {
	rows, err := conn(ctx, r.db).QueryContext(ctx, `SELECT rating FROM reviews WHERE product_id = $1`, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to read ratings: %w", err)
	}
	defer rows.Close()

	var ratings []float64
	for rows.Next() {
		var rating float64
		if err := rows.Scan(&rating); err != nil {
			return nil, fmt.Errorf("failed to scan rating: %w", err)
		}
		ratings = append(ratings, rating)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ratings: %w", err)
	}

	return ratings, nil
}

func (r *reviewRepository) DeleteOwned(ctx context.Context, id, userID uuid.UUID) error {
	result, err := conn(ctx, r.db).ExecContext(ctx, `DELETE FROM reviews WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete review: %w", err)
	}

	return requireOne(result, ErrReviewNotFound)
}
