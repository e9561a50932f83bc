package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"techstore/internal/domain"
	"techstore/internal/repository"

	"github.com/google/uuid"
)

// ReviewService manages product reviews and keeps product ratings current
type ReviewService interface {
	Create(ctx context.Context, userID, productID uuid.UUID, rating float64, comment string) (*domain.Review, error)
	ListByProduct(ctx context.Context, productID uuid.UUID) ([]*domain.Review, error)
	DeleteOwn(ctx context.Context, reviewID, userID uuid.UUID) error
}

type reviewService struct {
	tx          repository.TxManager
	reviewRepo  repository.ReviewRepository
	productRepo repository.ProductRepository
	userRepo    repository.UserRepository
	now         func() time.Time
}

// NewReviewService creates a new instance of ReviewService
func NewReviewService(
	tx repository.TxManager,
	reviewRepo repository.ReviewRepository,
	productRepo repository.ProductRepository,
	userRepo repository.UserRepository,
) ReviewService {
	return &reviewService{
		tx:          tx,
		reviewRepo:  reviewRepo,
		productRepo: productRepo,
		userRepo:    userRepo,
		now:         time.Now,
	}
}

// Create stores the user's only review of a product and recomputes the
// product rating from every review in the same transaction
func (s *reviewService) Create(ctx context.Context, userID, productID uuid.UUID, rating float64, comment string) (*domain.Review, error) {
	if rating < domain.MinRating || rating > domain.MaxRating {
		return nil, ErrInvalidRating
	}
	comment = strings.TrimSpace(comment)
	if len([]rune(comment)) < domain.MinCommentLength {
		return nil, ErrCommentTooShort
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	review := &domain.Review{
		ID:        uuid.New(),
		UserID:    userID,
		UserName:  user.Name,
		ProductID: productID,
		Rating:    rating,
		Comment:   comment,
		CreatedAt: s.now().UTC(),
	}

	err = s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.productRepo.FindByID(ctx, productID); err != nil {
			if errors.Is(err, repository.ErrProductNotFound) {
				return ErrProductNotFound
			}
			return fmt.Errorf("failed to get product: %w", err)
		}

		exists, err := s.reviewRepo.Exists(ctx, userID, productID)
		if err != nil {
			return fmt.Errorf("failed to check existing review: %w", err)
		}
		if exists {
			return ErrDuplicateReview
		}

		if err := s.reviewRepo.Create(ctx, review); err != nil {
			if errors.Is(err, repository.ErrDuplicateReview) {
				return ErrDuplicateReview
			}
			return fmt.Errorf("failed to create review: %w", err)
		}

		ratings, err := s.reviewRepo.Ratings(ctx, productID)
		if err != nil {
			return fmt.Errorf("failed to read ratings: %w", err)
		}
		if err := s.productRepo.UpdateRating(ctx, productID, domain.AverageRating(ratings)); err != nil {
			return fmt.Errorf("failed to update product rating: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return review, nil
}

func (s *reviewService) ListByProduct(ctx context.Context, productID uuid.UUID) ([]*domain.Review, error) {
	reviews, err := s.reviewRepo.ListByProduct(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to list reviews: %w", err)
	}
	return reviews, nil
}

// DeleteOwn removes a review only when userID wrote it
func (s *reviewService) DeleteOwn(ctx context.Context, reviewID, userID uuid.UUID) error {
	if err := s.reviewRepo.DeleteOwned(ctx, reviewID, userID); err != nil {
		if errors.Is(err, repository.ErrReviewNotFound) {
			return ErrReviewNotFound
		}
		return fmt.Errorf("failed to delete review: %w", err)
	}
	return nil
}
