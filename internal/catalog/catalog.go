// Package catalog keeps an in-memory snapshot of the storefront catalog and
// the order history feed. The snapshot is refreshed lazily: any read that
// finds it older than the configured max age reloads it first, so stock
// checks see the live figure. Concurrent refreshes are coalesced.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"pipedrill/internal/domain"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

var (
	ErrProductNotFound = errors.New("product not found in catalog")
	ErrServiceNotFound = errors.New("service not found in catalog")
	ErrNotLoaded       = errors.New("catalog not loaded")
)

// Source supplies the catalog
type Source interface {
	ListProducts(ctx context.Context) ([]domain.CatalogProduct, error)
	ListServices(ctx context.Context) ([]domain.CatalogService, error)
}

type snapshot struct {
	products  []domain.CatalogProduct
	services  []domain.CatalogService
	byID      map[int64]int
	serviceID map[int64]int
	loadedAt  time.Time
}

// Catalog is a read-only view of products and services
type Catalog struct {
	source Source
	maxAge time.Duration
	logger *zap.Logger
	now    func() time.Time

	mu    sync.RWMutex
	snap  *snapshot
	group singleflight.Group
}

// New creates a catalog that reloads from source when older than maxAge.
// A zero maxAge reloads on every read.
func New(source Source, maxAge time.Duration, logger *zap.Logger) *Catalog {
	return &Catalog{
		source: source,
		maxAge: maxAge,
		logger: logger,
		now:    time.Now,
	}
}

// Refresh reloads products and services unconditionally
func (c *Catalog) Refresh(ctx context.Context) error {
	_, err, _ := c.group.Do("catalog", func() (interface{}, error) {
		return nil, c.load(ctx)
	})
	return err
}

func (c *Catalog) load(ctx context.Context) error {
	var products []domain.CatalogProduct
	var services []domain.CatalogService

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		products, err = c.source.ListProducts(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		services, err = c.source.ListServices(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return fmt.Errorf("failed to load catalog: %w", err)
	}

	snap := &snapshot{
		products:  products,
		services:  services,
		byID:      make(map[int64]int, len(products)),
		serviceID: make(map[int64]int, len(services)),
		loadedAt:  c.now(),
	}
	for i, p := range products {
		snap.byID[p.ID] = i
	}
	for i, s := range services {
		snap.serviceID[s.ID] = i
	}

	c.mu.Lock()
	c.snap = snap
	c.mu.Unlock()

	c.logger.Debug("Catalog loaded",
		zap.Int("products", len(products)),
		zap.Int("services", len(services)),
	)
	return nil
}

// current returns a fresh enough snapshot, refreshing first when stale.
// If the refresh fails and an older snapshot exists, the old one is served.
func (c *Catalog) current(ctx context.Context) (*snapshot, error) {
	c.mu.RLock()
	snap := c.snap
	c.mu.RUnlock()

	if snap != nil && c.now().Sub(snap.loadedAt) < c.maxAge {
		return snap, nil
	}

	if err := c.Refresh(ctx); err != nil {
		if snap == nil {
			return nil, fmt.Errorf("%w: %v", ErrNotLoaded, err)
		}
		c.logger.Warn("Serving stale catalog", zap.Error(err), zap.Time("loaded_at", snap.loadedAt))
		return snap, nil
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snap, nil
}

// Product returns the live catalog entry for a product
func (c *Catalog) Product(ctx context.Context, id int64) (domain.CatalogProduct, error) {
	snap, err := c.current(ctx)
	if err != nil {
		return domain.CatalogProduct{}, err
	}
	i, ok := snap.byID[id]
	if !ok {
		return domain.CatalogProduct{}, fmt.Errorf("%w: %d", ErrProductNotFound, id)
	}
	return snap.products[i], nil
}

// Service returns a catalog service by id
func (c *Catalog) Service(ctx context.Context, id int64) (domain.CatalogService, error) {
	snap, err := c.current(ctx)
	if err != nil {
		return domain.CatalogService{}, err
	}
	i, ok := snap.serviceID[id]
	if !ok {
		return domain.CatalogService{}, fmt.Errorf("%w: %d", ErrServiceNotFound, id)
	}
	return snap.services[i], nil
}

// MatchService finds the service whose normalized name equals serviceType
func (c *Catalog) MatchService(ctx context.Context, serviceType string) (domain.CatalogService, error) {
	snap, err := c.current(ctx)
	if err != nil {
		return domain.CatalogService{}, err
	}
	for _, s := range snap.services {
		if s.Slug() == serviceType {
			return s, nil
		}
	}
	return domain.CatalogService{}, fmt.Errorf("%w: %q", ErrServiceNotFound, serviceType)
}

func (c *Catalog) Products(ctx context.Context) ([]domain.CatalogProduct, error) {
	snap, err := c.current(ctx)
	if err != nil {
		return nil, err
	}
	return snap.products, nil
}

func (c *Catalog) Services(ctx context.Context) ([]domain.CatalogService, error) {
	snap, err := c.current(ctx)
	if err != nil {
		return nil, err
	}
	return snap.services, nil
}
