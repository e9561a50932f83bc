package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"techstore/internal/domain"
	"techstore/internal/notify"
	"techstore/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// OrderService places orders and moves them through their lifecycle
type OrderService interface {
	CreateFromCart(ctx context.Context, userID uuid.UUID) (*domain.Order, error)
	Create(ctx context.Context, userID uuid.UUID, lines []domain.OrderLine) (*domain.Order, error)
	ListMine(ctx context.Context, userID uuid.UUID) ([]*domain.Order, error)
	ListAll(ctx context.Context) ([]*domain.Order, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.OrderStatus) (*domain.Order, error)
}

type orderService struct {
	tx          repository.TxManager
	orderRepo   repository.OrderRepository
	productRepo repository.ProductRepository
	cartRepo    repository.CartRepository
	userRepo    repository.UserRepository
	dispatcher  *notify.Dispatcher
	logger      *zap.Logger
	now         func() time.Time
}

// NewOrderService creates a new instance of OrderService
func NewOrderService(
	tx repository.TxManager,
	orderRepo repository.OrderRepository,
	productRepo repository.ProductRepository,
	cartRepo repository.CartRepository,
	userRepo repository.UserRepository,
	dispatcher *notify.Dispatcher,
	logger *zap.Logger,
) OrderService {
	return &orderService{
		tx:          tx,
		orderRepo:   orderRepo,
		productRepo: productRepo,
		cartRepo:    cartRepo,
		userRepo:    userRepo,
		dispatcher:  dispatcher,
		logger:      logger,
		now:         time.Now,
	}
}

// requestedLine is one line to fulfil, named the way errors should report it.
type requestedLine struct {
	productID uuid.UUID
	label     string
	quantity  int
	image     *string
}

// CreateFromCart turns the user's cart into an order and empties the cart
func (s *orderService) CreateFromCart(ctx context.Context, userID uuid.UUID) (*domain.Order, error) {
	return s.place(ctx, userID, nil, true)
}

// Create places an order for an explicit list of products
func (s *orderService) Create(ctx context.Context, userID uuid.UUID, lines []domain.OrderLine) (*domain.Order, error) {
	if len(lines) == 0 {
		return nil, ErrNoOrderLines
	}
	requested := make([]requestedLine, 0, len(lines))
	for _, line := range lines {
		if line.Quantity < 1 {
			return nil, ErrInvalidQuantity
		}
		requested = append(requested, requestedLine{
			productID: line.ProductID,
			label:     line.ProductID.String(),
			quantity:  line.Quantity,
		})
	}
	return s.place(ctx, userID, requested, false)
}

// place validates every line against current stock, decrements it, stores the
// order and clears the cart, all in one transaction. Hooks run after commit.
func (s *orderService) place(ctx context.Context, userID uuid.UUID, lines []requestedLine, fromCart bool) (*domain.Order, error) {
	var order *domain.Order

	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		if fromCart {
			var err error
			if lines, err = s.cartLines(ctx, userID); err != nil {
				return err
			}
		}

		// Step 1: check every line before touching stock
		products := make([]*domain.Product, len(lines))
		for i, line := range lines {
			product, err := s.productRepo.FindByID(ctx, line.productID)
			if err != nil {
				if errors.Is(err, repository.ErrProductNotFound) {
					return productNotFound(line.label)
				}
				return fmt.Errorf("failed to get product: %w", err)
			}
			if line.quantity > product.Stock {
				return insufficientStock(product.Name, product.Stock)
			}
			products[i] = product
		}

		// Step 2: price at current catalog prices
		total := decimal.Zero
		items := make([]domain.OrderItem, len(lines))
		for i, line := range lines {
			product := products[i]
			total = total.Add(domain.LineTotal(product.Price, line.quantity))

			image := line.image
			if image == nil {
				image = product.FirstImage()
			}
			items[i] = domain.OrderItem{
				ProductID: product.ID,
				Name:      product.Name,
				Price:     product.Price,
				Quantity:  line.quantity,
				Image:     image,
			}
		}

		// Step 3: conditional decrements; a concurrent checkout may have won
		for i, line := range lines {
			if err := s.productRepo.DecrementStock(ctx, line.productID, line.quantity); err != nil {
				if errors.Is(err, repository.ErrInsufficientStock) {
					return s.stockRace(ctx, products[i])
				}
				if errors.Is(err, repository.ErrProductNotFound) {
					return productNotFound(line.label)
				}
				return fmt.Errorf("failed to decrement stock: %w", err)
			}
		}

		// Step 4: persist the snapshot
		now := s.now().UTC()
		order = &domain.Order{
			ID:            uuid.New(),
			UserID:        userID,
			Items:         items,
			Total:         total.Round(2).InexactFloat64(),
			Status:        domain.OrderStatusPending,
			PaymentStatus: domain.PaymentStatusUnpaid,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if err := s.orderRepo.Create(ctx, order); err != nil {
			return fmt.Errorf("failed to create order: %w", err)
		}

		if fromCart {
			if err := s.cartRepo.ClearItems(ctx, userID); err != nil {
				return fmt.Errorf("failed to clear cart: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Order created",
		zap.String("order_id", order.ID.String()),
		zap.String("user_id", userID.String()),
		zap.Float64("total", order.Total),
		zap.Int("lines", len(order.Items)),
	)

	email, name := s.customer(ctx, userID)
	s.dispatcher.Dispatch(ctx, notify.OrderCreated{Order: order, CustomerEmail: email, CustomerName: name})
	return order, nil
}

// cartLines locks the cart so no concurrent add lands between reading it
// and clearing it.
func (s *orderService) cartLines(ctx context.Context, userID uuid.UUID) ([]requestedLine, error) {
	cart, err := s.cartRepo.FindForUpdate(ctx, userID, false)
	if err != nil {
		if errors.Is(err, repository.ErrCartNotFound) {
			return nil, ErrEmptyCart
		}
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}
	if len(cart.Items) == 0 {
		return nil, ErrEmptyCart
	}

	lines := make([]requestedLine, 0, len(cart.Items))
	for _, item := range cart.Items {
		lines = append(lines, requestedLine{
			productID: item.ProductID,
			label:     item.Name,
			quantity:  item.Quantity,
			image:     item.Image,
		})
	}
	return lines, nil
}

// stockRace reports the stock that is left after losing a concurrent decrement.
func (s *orderService) stockRace(ctx context.Context, product *domain.Product) error {
	available := 0
	if current, err := s.productRepo.FindByID(ctx, product.ID); err == nil {
		available = current.Stock
	}
	return insufficientStock(product.Name, available)
}

func (s *orderService) ListMine(ctx context.Context, userID uuid.UUID) ([]*domain.Order, error) {
	orders, err := s.orderRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}

func (s *orderService) ListAll(ctx context.Context) ([]*domain.Order, error) {
	orders, err := s.orderRepo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}

// UpdateStatus moves an order to any valid status and notifies the customer
func (s *orderService) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.OrderStatus) (*domain.Order, error) {
	if !status.Valid() {
		return nil, ErrInvalidStatus.WithDetails(map[string]interface{}{"allowed": domain.OrderStatuses})
	}

	if err := s.orderRepo.UpdateStatus(ctx, id, status); err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to update order status: %w", err)
	}

	order, err := s.orderRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	email, name := s.customer(ctx, order.UserID)
	s.dispatcher.Dispatch(ctx, notify.OrderStatusChanged{
		Order:         order,
		CustomerEmail: email,
		CustomerName:  name,
		Status:        status,
	})
	return order, nil
}

// customer resolves contact details for notifications; failures only cost the email.
func (s *orderService) customer(ctx context.Context, userID uuid.UUID) (email, name string) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		s.logger.Warn("Failed to load order customer", zap.String("user_id", userID.String()), zap.Error(err))
		return "", ""
	}
	return user.Email, user.Name
}
