package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"techstore/internal/domain"
	"techstore/internal/repository"

	"github.com/google/uuid"
)

// CartService manages the single cart of each user
type CartService interface {
	View(ctx context.Context, userID uuid.UUID) (domain.CartView, error)
	Add(ctx context.Context, userID, productID uuid.UUID, quantity int) (domain.CartView, error)
	Update(ctx context.Context, userID, productID uuid.UUID, quantity int) (domain.CartView, error)
	Remove(ctx context.Context, userID, productID uuid.UUID) (domain.CartView, error)
	Clear(ctx context.Context, userID uuid.UUID) (domain.CartView, error)
}

type cartService struct {
	tx          repository.TxManager
	cartRepo    repository.CartRepository
	productRepo repository.ProductRepository
	now         func() time.Time
}

// NewCartService creates a new instance of CartService
func NewCartService(tx repository.TxManager, cartRepo repository.CartRepository, productRepo repository.ProductRepository) CartService {
	return &cartService{
		tx:          tx,
		cartRepo:    cartRepo,
		productRepo: productRepo,
		now:         time.Now,
	}
}

// View returns the cart with freshly computed totals, or an empty view
func (s *cartService) View(ctx context.Context, userID uuid.UUID) (domain.CartView, error) {
	cart, err := s.cartRepo.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrCartNotFound) {
			return domain.EmptyCartView(userID), nil
		}
		return domain.CartView{}, fmt.Errorf("failed to get cart: %w", err)
	}
	return cart.View(), nil
}

// Add puts quantity units of a product in the cart. An existing line grows
// and the new total is checked against current stock.
func (s *cartService) Add(ctx context.Context, userID, productID uuid.UUID, quantity int) (domain.CartView, error) {
	if quantity < 1 {
		return domain.CartView{}, ErrInvalidQuantity
	}

	product, err := s.product(ctx, productID)
	if err != nil {
		return domain.CartView{}, err
	}
	if product.Stock < quantity {
		return domain.CartView{}, insufficientStock(product.Name, product.Stock)
	}

	return s.mutate(ctx, userID, true, func(cart *domain.Cart) error {
		if i := cart.Line(productID); i >= 0 {
			total := cart.Items[i].Quantity + quantity
			if total > product.Stock {
				return insufficientStock(product.Name, product.Stock)
			}
			cart.Items[i].Quantity = total
			return nil
		}
		cart.Items = append(cart.Items, domain.NewCartLine(product, quantity))
		return nil
	})
}

// Update sets the quantity of a line; zero removes it
func (s *cartService) Update(ctx context.Context, userID, productID uuid.UUID, quantity int) (domain.CartView, error) {
	if quantity < 0 {
		return domain.CartView{}, ErrInvalidQuantity
	}

	return s.mutate(ctx, userID, false, func(cart *domain.Cart) error {
		if quantity == 0 {
			cart.Remove(productID)
			return nil
		}

		product, err := s.product(ctx, productID)
		if err != nil {
			return err
		}
		if quantity > product.Stock {
			return insufficientStock(product.Name, product.Stock)
		}

		i := cart.Line(productID)
		if i < 0 {
			return ErrLineNotInCart
		}
		cart.Items[i].Quantity = quantity
		cart.Items[i].Stock = product.Stock
		return nil
	})
}

func (s *cartService) Remove(ctx context.Context, userID, productID uuid.UUID) (domain.CartView, error) {
	return s.mutate(ctx, userID, false, func(cart *domain.Cart) error {
		cart.Remove(productID)
		return nil
	})
}

// Clear empties the cart; a missing cart is already empty
func (s *cartService) Clear(ctx context.Context, userID uuid.UUID) (domain.CartView, error) {
	if err := s.cartRepo.ClearItems(ctx, userID); err != nil {
		return domain.CartView{}, fmt.Errorf("failed to clear cart: %w", err)
	}
	return domain.EmptyCartView(userID), nil
}

// mutate applies fn to the locked cart and saves it in one transaction, so
// concurrent changes to the same cart are applied one after another.
func (s *cartService) mutate(ctx context.Context, userID uuid.UUID, create bool, fn func(cart *domain.Cart) error) (domain.CartView, error) {
	var view domain.CartView

	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		cart, err := s.cartRepo.FindForUpdate(ctx, userID, create)
		if err != nil {
			if errors.Is(err, repository.ErrCartNotFound) {
				return ErrCartNotFound
			}
			return fmt.Errorf("failed to get cart: %w", err)
		}

		if err := fn(cart); err != nil {
			return err
		}

		cart.UpdatedAt = s.now().UTC()
		if err := s.cartRepo.Save(ctx, cart); err != nil {
			return fmt.Errorf("failed to save cart: %w", err)
		}
		view = cart.View()
		return nil
	})
	if err != nil {
		return domain.CartView{}, err
	}
	return view, nil
}

func (s *cartService) product(ctx context.Context, productID uuid.UUID) (*domain.Product, error) {
	product, err := s.productRepo.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return product, nil
}
