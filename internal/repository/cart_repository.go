package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"pipedrill/internal/domain"

	"go.uber.org/zap"
)

// CartRepository defines durable save/restore of a session's cart
type CartRepository interface {
	// Load returns the stored cart for the session. A missing or malformed
	// slot yields an empty cart; only a failing backend returns an error.
	Load(ctx context.Context, sessionID string) (domain.Cart, error)
	// Save overwrites the stored cart for the session. The cart is validated
	// first; an empty cart deletes the slot.
	Save(ctx context.Context, sessionID string, cart domain.Cart) error
}

type cartRepository struct {
	store  SlotStore
	logger *zap.Logger
}

// NewCartRepository creates a new instance of CartRepository over a slot store
func NewCartRepository(store SlotStore, logger *zap.Logger) CartRepository {
	return &cartRepository{store: store, logger: logger}
}

func (r *cartRepository) Load(ctx context.Context, sessionID string) (domain.Cart, error) {
	data, err := r.store.Get(ctx, SlotKey(sessionID))
	if err != nil {
		if errors.Is(err, ErrSlotNotFound) {
			return domain.Cart{}, nil
		}
		return domain.Cart{}, fmt.Errorf("failed to load cart: %w", err)
	}

	var cart domain.Cart
	if err := json.Unmarshal(data, &cart); err != nil {
		r.logger.Warn("Discarding malformed stored cart",
			zap.String("session_id", sessionID),
			zap.Error(err),
		)
		return domain.Cart{}, nil
	}

	if err := cart.Validate(); err != nil {
		r.logger.Warn("Discarding invalid stored cart",
			zap.String("session_id", sessionID),
			zap.Error(err),
		)
		return domain.Cart{}, nil
	}

	return cart, nil
}

func (r *cartRepository) Save(ctx context.Context, sessionID string, cart domain.Cart) error {
	if err := cart.Validate(); err != nil {
		return fmt.Errorf("refusing to save cart: %w", err)
	}

	if cart.IsEmpty() {
		if err := r.store.Delete(ctx, SlotKey(sessionID)); err != nil {
			return fmt.Errorf("failed to clear cart: %w", err)
		}
		return nil
	}

	data, err := json.Marshal(cart)
	if err != nil {
		return fmt.Errorf("failed to encode cart: %w", err)
	}

	if err := r.store.Put(ctx, SlotKey(sessionID), data); err != nil {
		return fmt.Errorf("failed to save cart: %w", err)
	}

	return nil
}
