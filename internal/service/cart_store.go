package service

import (
	"context"
	"fmt"
	"sync"

	"pipedrill/internal/domain"
	"pipedrill/internal/pricing"
	"pipedrill/internal/repository"
	"pipedrill/internal/stock"

	"go.uber.org/zap"
)

// CatalogLookup resolves the live catalog entry for a product
type CatalogLookup interface {
	Product(ctx context.Context, id int64) (domain.CatalogProduct, error)
}

// CartStore owns one shopper session's cart. Every content change is
// applied to a working copy, persisted, and only then made visible, so a
// failed save leaves the cart as it was.
type CartStore struct {
	sessionID string
	repo      repository.CartRepository
	ids       *IDGenerator
	logger    *zap.Logger

	mu   sync.Mutex
	cart domain.Cart
}

// NewCartStore restores the session's cart from the repository
func NewCartStore(ctx context.Context, sessionID string, repo repository.CartRepository, ids *IDGenerator, logger *zap.Logger) (*CartStore, error) {
	cart, err := repo.Load(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to restore cart: %w", err)
	}

	return &CartStore{
		sessionID: sessionID,
		repo:      repo,
		ids:       ids,
		logger:    logger.With(zap.String("session_id", sessionID)),
		cart:      cart,
	}, nil
}

func (s *CartStore) SessionID() string {
	return s.sessionID
}

// AddProduct adds one unit of a product, merging into an existing line
func (s *CartStore) AddProduct(ctx context.Context, productID int64, lookup CatalogLookup) error {
	product, err := lookup.Product(ctx, productID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if product.Stock <= 0 {
		return fmt.Errorf("%w: %s", ErrOutOfStock, product.Name)
	}

	next := s.cart.Clone()
	if line, ok := next.ProductLine(productID); ok {
		qty, decision := stock.ClampOrReject(line.Quantity, 1, product.Stock)
		if err := decisionError(decision, product); err != nil {
			return err
		}
		line.Quantity = qty
	} else {
		next.Items = append(next.Items, domain.NewProductLine(product))
	}

	if err := s.commit(ctx, next); err != nil {
		return err
	}

	s.logger.Debug("Product added to cart", zap.Int64("product_id", productID))
	return nil
}

// RemoveItem drops the line with the given id. Removing an absent id is a no-op.
func (s *CartStore) RemoveItem(ctx context.Context, itemID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.cart.IndexOf(itemID)
	if idx < 0 {
		return nil
	}

	next := s.cart.Clone()
	next.Items = append(next.Items[:idx], next.Items[idx+1:]...)
	return s.commit(ctx, next)
}

// UpdateQuantity changes a product line's quantity by delta. A resulting
// quantity of zero or less removes the line; one above live stock is refused.
func (s *CartStore) UpdateQuantity(ctx context.Context, itemID int64, delta int, lookup CatalogLookup) error {
	for {
		current, err := s.adjustableQuantity(itemID)
		if err != nil {
			return err
		}

		// Decrements to zero need no stock figure.
		var product *domain.CatalogProduct
		if !stock.Empties(current, delta) {
			p, err := lookup.Product(ctx, itemID)
			if err != nil {
				return err
			}
			product = &p
		}

		retry, err := s.applyQuantity(ctx, itemID, delta, product)
		if !retry {
			return err
		}
	}
}

// applyQuantity reports retry when the line changed while the catalog was
// consulted and now needs a stock figure that was not fetched.
func (s *CartStore) applyQuantity(ctx context.Context, itemID int64, delta int, product *domain.CatalogProduct) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.cart.Clone()
	idx := next.IndexOf(itemID)
	if idx < 0 {
		return false, fmt.Errorf("%w: %d", ErrItemNotFound, itemID)
	}
	line, ok := next.Items[idx].(*domain.ProductLine)
	if !ok {
		return false, fmt.Errorf("%w: %d", ErrNotAdjustable, itemID)
	}

	available := 0
	if product != nil {
		available = product.Stock
	} else if !stock.Empties(line.Quantity, delta) {
		return true, nil
	}

	qty, decision := stock.ClampOrReject(line.Quantity, delta, available)
	switch decision {
	case stock.Remove:
		next.Items = append(next.Items[:idx], next.Items[idx+1:]...)
	case stock.Accept:
		line.Quantity = qty
	default:
		return false, decisionError(decision, *product)
	}

	return false, s.commit(ctx, next)
}

func (s *CartStore) adjustableQuantity(itemID int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.cart.IndexOf(itemID)
	if idx < 0 {
		return 0, fmt.Errorf("%w: %d", ErrItemNotFound, itemID)
	}
	line, ok := s.cart.Items[idx].(*domain.ProductLine)
	if !ok {
		return 0, fmt.Errorf("%w: %d", ErrNotAdjustable, itemID)
	}
	return line.Quantity, nil
}

// AddServiceBooking appends a booked service under a freshly generated id.
// Services are not stock checked.
func (s *CartStore) AddServiceBooking(ctx context.Context, svc domain.CatalogService, booking domain.BookingDetails) (*domain.ServiceLine, error) {
	if booking.EstimatedHours <= 0 {
		return nil, fmt.Errorf("%w: estimated hours must be positive", ErrInvalidServiceRequest)
	}
	if svc.MinHours > 0 && booking.EstimatedHours < svc.MinHours {
		return nil, fmt.Errorf("%w: %s requires at least %d hours", ErrBelowMinimumHours, svc.Name, svc.MinHours)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.ids.Next()
	for s.cart.IndexOf(id) >= 0 {
		id = s.ids.Next()
	}

	line := domain.NewServiceLine(id, svc, booking)
	next := s.cart.Clone()
	next.Items = append(next.Items, line)

	if err := s.commit(ctx, next); err != nil {
		return nil, err
	}

	s.logger.Debug("Service booked into cart",
		zap.Int64("item_id", id),
		zap.Int64("service_id", svc.ID),
	)
	return line.Clone().(*domain.ServiceLine), nil
}

// Clear empties the cart
func (s *CartStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.commit(ctx, domain.Cart{})
}

// RemoveOrdered takes the lines of a submitted order out of the cart.
// Product quantities added after the order was snapshotted stay behind.
func (s *CartStore) RemoveOrdered(ctx context.Context, ordered domain.Cart) error {
	orderedQty := make(map[int64]int)
	orderedServices := make(map[int64]struct{})
	for _, item := range ordered.Items {
		switch line := item.(type) {
		case *domain.ProductLine:
			orderedQty[line.ID] += line.Quantity
		case *domain.ServiceLine:
			orderedServices[line.ID] = struct{}{}
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.cart.Clone()
	kept := next.Items[:0]
	for _, item := range next.Items {
		switch line := item.(type) {
		case *domain.ProductLine:
			if qty, ok := orderedQty[line.ID]; ok {
				if line.Quantity <= qty {
					continue
				}
				line.Quantity -= qty
			}
		case *domain.ServiceLine:
			if _, ok := orderedServices[line.ID]; ok {
				continue
			}
		}
		kept = append(kept, item)
	}
	if len(kept) == 0 {
		kept = nil
	}
	next.Items = kept

	return s.commit(ctx, next)
}

// Cart returns a copy of the current cart
func (s *CartStore) Cart() domain.Cart {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.Clone()
}

// Items returns a copy of the current lines in order
func (s *CartStore) Items() []domain.CartItem {
	return s.Cart().Items
}

// Breakdown prices the current cart
func (s *CartStore) Breakdown() pricing.Breakdown {
	return pricing.ComputeBreakdown(s.Items())
}

func (s *CartStore) ItemCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.ItemCount()
}

// commit persists next and makes it current. Callers hold s.mu.
func (s *CartStore) commit(ctx context.Context, next domain.Cart) error {
	if err := s.repo.Save(ctx, s.sessionID, next); err != nil {
		s.logger.Error("Failed to persist cart", zap.Error(err))
		return fmt.Errorf("failed to persist cart: %w", err)
	}
	s.cart = next
	return nil
}

func decisionError(decision stock.Decision, product domain.CatalogProduct) error {
	switch decision {
	case stock.RejectOutOfStock:
		return fmt.Errorf("%w: %s", ErrOutOfStock, product.Name)
	case stock.RejectLimit:
		return fmt.Errorf("%w: only %d of %s available", ErrStockLimitReached, product.Stock, product.Name)
	default:
		return nil
	}
}
