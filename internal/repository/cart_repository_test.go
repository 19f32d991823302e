package repository

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"pipedrill/internal/domain"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func productLine(id int64, price float64, qty int) *domain.ProductLine {
	line := domain.NewProductLine(domain.CatalogProduct{
		ID:          id,
		Name:        fmt.Sprintf("Product %d", id),
		Description: "Heavy-duty pipe drilling machine",
		Category:    "machines",
		Price:       price,
		Unit:        "unit",
		Stock:       qty + 10,
		Features:    []string{"Industrial grade"},
		Specs:       map[string]string{"power": "5HP"},
	})
	line.Quantity = qty
	return line
}

func serviceLine(id int64, rate float64, hours int) *domain.ServiceLine {
	return domain.NewServiceLine(id, domain.CatalogService{
		ID:         4,
		Name:       "Emergency Repair Service",
		HourlyRate: rate,
		MinHours:   1,
		Features:   []string{"24/7 availability"},
		Materials:  []string{"All materials", "On-site service"},
	}, domain.BookingDetails{
		ServiceType:    "emergency-repair-service",
		PipeMaterial:   "Copper",
		PipeDiameter:   0.75,
		EstimatedHours: hours,
		Description:    "Burst pipe in basement",
		ContactName:    "Jordan",
		ContactEmail:   "jordan@example.com",
		ContactPhone:   "555-0142",
	})
}

func TestCartRepository_RoundTrip(t *testing.T) {
	tests := []struct {
		name string
		cart domain.Cart
	}{
		{"empty cart", domain.Cart{}},
		{"single product", domain.Cart{Items: []domain.CartItem{productLine(1, 12.50, 3)}}},
		{"single service", domain.Cart{Items: []domain.CartItem{serviceLine(1700000000001, 120, 2)}}},
		{"mixed five items", domain.Cart{Items: []domain.CartItem{
			productLine(1, 12.50, 10),
			serviceLine(1700000000001, 85, 2),
			productLine(3, 4500, 1),
			serviceLine(1700000000002, 95, 3),
			productLine(6, 620, 2),
		}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := NewCartRepository(NewMemorySlotStore(), zap.NewNop())
			ctx := context.Background()

			require.NoError(t, repo.Save(ctx, "session-1", tt.cart))

			loaded, err := repo.Load(ctx, "session-1")
			require.NoError(t, err)
			assert.Equal(t, tt.cart, loaded)
		})
	}
}

func TestCartRepository_MissingSlotIsEmpty(t *testing.T) {
	repo := NewCartRepository(NewMemorySlotStore(), zap.NewNop())

	cart, err := repo.Load(context.Background(), "never-saved")
	require.NoError(t, err)
	assert.True(t, cart.IsEmpty())
}

func TestCartRepository_MalformedSlotDegradesToEmpty(t *testing.T) {
	payloads := []string{
		`not json at all`,
		`{"items": []}`,
		`[{"id": 1, "itemType": "coupon"}]`,
		`[{"id": 1, "itemType": "product", "quantity": 0}]`,
		`[{"id": 1, "itemType": "product", "quantity": 1}, {"id": 1, "itemType": "product", "quantity": 2}]`,
		`[{"id": 1, "itemType": "product", "quantity": "three"}]`,
	}

	for _, payload := range payloads {
		t.Run(payload, func(t *testing.T) {
			store := NewMemorySlotStore()
			ctx := context.Background()
			require.NoError(t, store.Put(ctx, SlotKey("s"), []byte(payload)))

			cart, err := NewCartRepository(store, zap.NewNop()).Load(ctx, "s")
			require.NoError(t, err)
			assert.True(t, cart.IsEmpty())
		})
	}
}

type failingSlotStore struct {
	err error
}

func (s failingSlotStore) Get(ctx context.Context, key string) ([]byte, error) { return nil, s.err }
func (s failingSlotStore) Put(ctx context.Context, key string, data []byte) error {
	return s.err
}
func (s failingSlotStore) Delete(ctx context.Context, key string) error { return s.err }

func TestCartRepository_BackendErrorsPropagate(t *testing.T) {
	backendErr := errors.New("connection refused")
	repo := NewCartRepository(failingSlotStore{err: backendErr}, zap.NewNop())
	ctx := context.Background()

	_, err := repo.Load(ctx, "s")
	assert.ErrorIs(t, err, backendErr)

	err = repo.Save(ctx, "s", domain.Cart{Items: []domain.CartItem{productLine(1, 1, 1)}})
	assert.ErrorIs(t, err, backendErr)
}

func TestCartRepository_SaveRefusesInvalidCart(t *testing.T) {
	store := NewMemorySlotStore()
	repo := NewCartRepository(store, zap.NewNop())
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, "s", domain.Cart{Items: []domain.CartItem{productLine(1, 5, 2)}}))

	duplicate := domain.Cart{Items: []domain.CartItem{productLine(1, 5, 1), productLine(1, 5, 1)}}
	assert.ErrorIs(t, repo.Save(ctx, "s", duplicate), domain.ErrDuplicateCartItem)

	assert.ErrorIs(t, repo.Save(ctx, "s", domain.Cart{Items: []domain.CartItem{productLine(2, 5, 0)}}), domain.ErrInvalidCartItem)

	stored, err := repo.Load(ctx, "s")
	require.NoError(t, err)
	require.Len(t, stored.Items, 1)
	assert.Equal(t, 2, stored.Items[0].(*domain.ProductLine).Quantity)
}

func TestCartRepository_EmptyCartDeletesSlot(t *testing.T) {
	store := NewMemorySlotStore()
	repo := NewCartRepository(store, zap.NewNop())
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, "s", domain.Cart{Items: []domain.CartItem{productLine(1, 5, 2)}}))
	require.NoError(t, repo.Save(ctx, "s", domain.Cart{}))

	_, err := store.Get(ctx, SlotKey("s"))
	assert.ErrorIs(t, err, ErrSlotNotFound)

	cart, err := repo.Load(ctx, "s")
	require.NoError(t, err)
	assert.True(t, cart.IsEmpty())
}

func TestCartRepository_SessionsAreIsolated(t *testing.T) {
	repo := NewCartRepository(NewMemorySlotStore(), zap.NewNop())
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, "a", domain.Cart{Items: []domain.CartItem{productLine(1, 1, 1)}}))

	other, err := repo.Load(ctx, "b")
	require.NoError(t, err)
	assert.True(t, other.IsEmpty())
}

// Feature: storefront-cart, Property 5: Persistence round-trips any well-formed cart
func TestProperty_PersistenceRoundTrip(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("load(save(cart)) == cart", prop.ForAll(
		func(quantities []int, hours []int, cents int) bool {
			cart := domain.Cart{}
			for i, qty := range quantities {
				cart.Items = append(cart.Items, productLine(int64(i+1), float64(cents)/100, qty))
			}
			for i, h := range hours {
				cart.Items = append(cart.Items, serviceLine(int64(1700000000000+i), float64(cents)/100, h))
			}

			repo := NewCartRepository(NewMemorySlotStore(), zap.NewNop())
			ctx := context.Background()
			if err := repo.Save(ctx, "prop", cart); err != nil {
				return false
			}
			loaded, err := repo.Load(ctx, "prop")
			if err != nil {
				return false
			}
			return assert.ObjectsAreEqual(cart, loaded)
		},
		gen.SliceOfN(4, gen.IntRange(1, 200)),
		gen.SliceOfN(3, gen.IntRange(1, 40)),
		gen.IntRange(0, 1000000),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}
