package catalog

import (
	"context"
	"fmt"
	"sync"

	"pipedrill/internal/domain"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// HistorySource supplies placed orders and submitted service requests
type HistorySource interface {
	ListProductOrders(ctx context.Context) ([]domain.ProductOrder, error)
	ListServiceRequests(ctx context.Context) ([]domain.ServiceRequestRecord, error)
}

// HistorySnapshot is the order history feed shown to the shopper
type HistorySnapshot struct {
	Orders   []domain.ProductOrder         `json:"orders"`
	Requests []domain.ServiceRequestRecord `json:"requests"`
}

// History caches the order history feed between refreshes
type History struct {
	source HistorySource
	logger *zap.Logger

	mu   sync.RWMutex
	snap HistorySnapshot
}

func NewHistory(source HistorySource, logger *zap.Logger) *History {
	return &History{
		source: source,
		logger: logger,
		snap: HistorySnapshot{
			Orders:   []domain.ProductOrder{},
			Requests: []domain.ServiceRequestRecord{},
		},
	}
}

// Refresh reloads both lists. On failure the previous feed is kept.
func (h *History) Refresh(ctx context.Context) error {
	var next HistorySnapshot

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		orders, err := h.source.ListProductOrders(gctx)
		if err != nil {
			return err
		}
		next.Orders = nonNil(orders)
		return nil
	})
	g.Go(func() error {
		requests, err := h.source.ListServiceRequests(gctx)
		if err != nil {
			return err
		}
		next.Requests = nonNil(requests)
		return nil
	})
	if err := g.Wait(); err != nil {
		return fmt.Errorf("failed to refresh order history: %w", err)
	}

	h.mu.Lock()
	h.snap = next
	h.mu.Unlock()

	h.logger.Debug("Order history refreshed",
		zap.Int("orders", len(next.Orders)),
		zap.Int("requests", len(next.Requests)),
	)
	return nil
}

// Snapshot returns the last loaded feed
func (h *History) Snapshot() HistorySnapshot {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.snap
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
