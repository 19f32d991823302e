package service

import (
	"context"
	"errors"
	"fmt"

	"pipedrill/internal/client"
	"pipedrill/internal/domain"
	"pipedrill/internal/pricing"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// OrderPlacer sends an order to the storefront API
type OrderPlacer interface {
	PlaceOrder(ctx context.Context, payload domain.OrderPayload, requestID string) (domain.SubmitResponse, error)
}

// HistoryRefresher reloads the order history feed
type HistoryRefresher interface {
	Refresh(ctx context.Context) error
}

// OrderConfirmation describes an accepted order
type OrderConfirmation struct {
	OrderID   int64           `json:"order_id,omitempty"`
	RequestID string          `json:"request_id"`
	Amounts   pricing.Amounts `json:"breakdown"`
	ItemCount int             `json:"item_count"`
}

// OrderSubmitter turns a session's cart into a placed order. Attempts are
// not deduplicated: each call is a new order with its own request id.
type OrderSubmitter struct {
	placer       OrderPlacer
	history      HistoryRefresher
	logger       *zap.Logger
	newRequestID func() string
}

func NewOrderSubmitter(placer OrderPlacer, history HistoryRefresher, logger *zap.Logger) *OrderSubmitter {
	return &OrderSubmitter{
		placer:       placer,
		history:      history,
		logger:       logger,
		newRequestID: uuid.NewString,
	}
}

// Checkout submits the current cart. The submitted lines are removed only
// when the API accepts the order; on rejection or transport failure the cart
// is left intact. Lines added while the order was in flight are kept.
func (s *OrderSubmitter) Checkout(ctx context.Context, store *CartStore) (OrderConfirmation, error) {
	cart := store.Cart()
	if cart.IsEmpty() {
		return OrderConfirmation{}, ErrEmptyCart
	}

	breakdown := pricing.ComputeBreakdown(cart.Items)
	payload := breakdown.Payload(cart)
	requestID := s.newRequestID()

	logger := s.logger.With(
		zap.String("session_id", store.SessionID()),
		zap.String("request_id", requestID),
	)
	logger.Info("Placing order",
		zap.Int("lines", len(cart.Items)),
		zap.Float64("total", payload.Total),
	)

	resp, err := s.placer.PlaceOrder(ctx, payload, requestID)
	if err != nil {
		return OrderConfirmation{}, submissionError(err, ErrOrderRejected)
	}

	if err := store.RemoveOrdered(ctx, cart); err != nil {
		// The order exists upstream; report it and leave the cart for the shopper to clear.
		logger.Error("Failed to clear cart after checkout", zap.Error(err))
	}

	if s.history != nil {
		if err := s.history.Refresh(ctx); err != nil {
			logger.Warn("Failed to refresh order history", zap.Error(err))
		}
	}

	logger.Info("Order placed", zap.Int64("order_id", resp.OrderID))
	return OrderConfirmation{
		OrderID:   resp.OrderID,
		RequestID: requestID,
		Amounts:   breakdown.Rounded(),
		ItemCount: cart.ItemCount(),
	}, nil
}

// submissionError maps a storefront client error onto the service taxonomy
func submissionError(err error, kind error) error {
	var rejected *client.RejectedError
	if errors.As(err, &rejected) {
		return &RejectionError{Kind: kind, Reason: rejected.Message}
	}
	return fmt.Errorf("%w: %v", ErrNetwork, err)
}
