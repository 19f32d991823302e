package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"slices"
)

// ItemType tags the variant of a serialized cart item
type ItemType string

const (
	ItemTypeProduct ItemType = "product"
	ItemTypeService ItemType = "service"
)

var (
	ErrUnknownItemType   = errors.New("unknown cart item type")
	ErrInvalidCartItem   = errors.New("invalid cart item")
	ErrDuplicateCartItem = errors.New("duplicate product line in cart")
)

// CartItem is a single cart entry. It is implemented by *ProductLine and
// *ServiceLine only.
type CartItem interface {
	ItemID() int64
	Type() ItemType
	Clone() CartItem
	Validate() error
	cartItem()
}

// ProductLine is a quantity of a stocked product. Product fields are a
// snapshot taken when the product was first added.
type ProductLine struct {
	ID          int64             `json:"id"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Category    string            `json:"category"`
	Price       float64           `json:"price"`
	Unit        string            `json:"unit"`
	Stock       int               `json:"stock"`
	Image       string            `json:"image,omitempty"`
	Features    []string          `json:"features"`
	Specs       map[string]string `json:"specs"`
	Quantity    int               `json:"quantity"`
}

// NewProductLine snapshots a catalog product into a line with quantity 1
func NewProductLine(p CatalogProduct) *ProductLine {
	return &ProductLine{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Category:    p.Category,
		Price:       p.Price,
		Unit:        p.Unit,
		Stock:       p.Stock,
		Image:       p.Image,
		Features:    slices.Clone(p.Features),
		Specs:       maps.Clone(p.Specs),
		Quantity:    1,
	}
}

func (l *ProductLine) ItemID() int64  { return l.ID }
func (l *ProductLine) Type() ItemType { return ItemTypeProduct }
func (l *ProductLine) cartItem()      {}

func (l *ProductLine) Clone() CartItem {
	c := *l
	c.Features = slices.Clone(l.Features)
	c.Specs = maps.Clone(l.Specs)
	return &c
}

func (l *ProductLine) Validate() error {
	if l.Quantity < 1 {
		return fmt.Errorf("%w: product %d has quantity %d", ErrInvalidCartItem, l.ID, l.Quantity)
	}
	if l.Price < 0 {
		return fmt.Errorf("%w: product %d has negative price", ErrInvalidCartItem, l.ID)
	}
	return nil
}

// MarshalJSON adds the itemType tag
func (l ProductLine) MarshalJSON() ([]byte, error) {
	type line ProductLine
	return json.Marshal(struct {
		line
		ItemType ItemType `json:"itemType"`
	}{line(l), ItemTypeProduct})
}

// BookingDetails holds the booking form fields attached to a service line
type BookingDetails struct {
	ServiceType    string  `json:"service_type"`
	PipeMaterial   string  `json:"pipe_material"`
	PipeDiameter   float64 `json:"pipe_diameter"`
	EstimatedHours int     `json:"estimated_hours"`
	Description    string  `json:"description"`
	ContactName    string  `json:"contact_name"`
	ContactEmail   string  `json:"contact_email"`
	ContactPhone   string  `json:"contact_phone"`
}

// ServiceLine is a booked labor service. The ID is generated locally and is
// unrelated to the catalog service ID, which is kept in ServiceID.
type ServiceLine struct {
	ID         int64    `json:"id"`
	ServiceID  int64    `json:"service_id"`
	Name       string   `json:"name"`
	Category   string   `json:"category,omitempty"`
	HourlyRate float64  `json:"hourly_rate"`
	MinHours   int      `json:"min_hours"`
	Image      string   `json:"image,omitempty"`
	Features   []string `json:"features"`
	Materials  []string `json:"materials"`
	BookingDetails
}

// NewServiceLine merges a catalog service snapshot with booking details.
// The booking description replaces the catalog description.
func NewServiceLine(id int64, s CatalogService, booking BookingDetails) *ServiceLine {
	return &ServiceLine{
		ID:             id,
		ServiceID:      s.ID,
		Name:           s.Name,
		Category:       s.Category,
		HourlyRate:     s.HourlyRate,
		MinHours:       s.MinHours,
		Image:          s.Image,
		Features:       slices.Clone(s.Features),
		Materials:      slices.Clone(s.Materials),
		BookingDetails: booking,
	}
}

func (l *ServiceLine) ItemID() int64  { return l.ID }
func (l *ServiceLine) Type() ItemType { return ItemTypeService }
func (l *ServiceLine) cartItem()      {}

func (l *ServiceLine) Clone() CartItem {
	c := *l
	c.Features = slices.Clone(l.Features)
	c.Materials = slices.Clone(l.Materials)
	return &c
}

func (l *ServiceLine) Validate() error {
	if l.EstimatedHours <= 0 {
		return fmt.Errorf("%w: service line %d has %d estimated hours", ErrInvalidCartItem, l.ID, l.EstimatedHours)
	}
	if l.HourlyRate < 0 {
		return fmt.Errorf("%w: service line %d has negative hourly rate", ErrInvalidCartItem, l.ID)
	}
	return nil
}

// MarshalJSON adds the itemType tag
func (l ServiceLine) MarshalJSON() ([]byte, error) {
	type line ServiceLine
	return json.Marshal(struct {
		line
		ItemType ItemType `json:"itemType"`
	}{line(l), ItemTypeService})
}

// Cart is the ordered list of a shopper's selections
type Cart struct {
	Items []CartItem
}

// Clone returns a deep copy of the cart
func (c Cart) Clone() Cart {
	if c.Items == nil {
		return Cart{}
	}
	items := make([]CartItem, 0, len(c.Items))
	for _, item := range c.Items {
		items = append(items, item.Clone())
	}
	return Cart{Items: items}
}

// IsEmpty reports whether the cart has no lines
func (c Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

// IndexOf returns the position of the line with the given ID, or -1
func (c Cart) IndexOf(id int64) int {
	return slices.IndexFunc(c.Items, func(item CartItem) bool {
		return item.ItemID() == id
	})
}

// ProductLine returns the product line with the given product ID, if any
func (c Cart) ProductLine(id int64) (*ProductLine, bool) {
	for _, item := range c.Items {
		if line, ok := item.(*ProductLine); ok && line.ID == id {
			return line, true
		}
	}
	return nil, false
}

// ItemCount sums product quantities; each service line counts once
func (c Cart) ItemCount() int {
	count := 0
	for _, item := range c.Items {
		switch line := item.(type) {
		case *ProductLine:
			count += line.Quantity
		case *ServiceLine:
			count++
		}
	}
	return count
}

// Validate checks every line and the product uniqueness rule
func (c Cart) Validate() error {
	seen := make(map[int64]struct{}, len(c.Items))
	for _, item := range c.Items {
		if err := item.Validate(); err != nil {
			return err
		}
		if item.Type() != ItemTypeProduct {
			continue
		}
		if _, dup := seen[item.ItemID()]; dup {
			return fmt.Errorf("%w: product %d", ErrDuplicateCartItem, item.ItemID())
		}
		seen[item.ItemID()] = struct{}{}
	}
	return nil
}

// MarshalJSON encodes the cart as an array of tagged items
func (c Cart) MarshalJSON() ([]byte, error) {
	if c.Items == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(c.Items)
}

// UnmarshalJSON decodes an array of items tagged by itemType
func (c *Cart) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	var items []CartItem
	for i, msg := range raw {
		var tag struct {
			ItemType ItemType `json:"itemType"`
		}
		if err := json.Unmarshal(msg, &tag); err != nil {
			return fmt.Errorf("failed to decode cart item %d: %w", i, err)
		}

		switch tag.ItemType {
		case ItemTypeProduct:
			line := &ProductLine{}
			if err := json.Unmarshal(msg, line); err != nil {
				return fmt.Errorf("failed to decode product line %d: %w", i, err)
			}
			items = append(items, line)
		case ItemTypeService:
			line := &ServiceLine{}
			if err := json.Unmarshal(msg, line); err != nil {
				return fmt.Errorf("failed to decode service line %d: %w", i, err)
			}
			items = append(items, line)
		default:
			return fmt.Errorf("cart item %d: %w %q", i, ErrUnknownItemType, tag.ItemType)
		}
	}

	c.Items = items
	return nil
}
