package domain

import (
	"regexp"
	"strings"
)

// CatalogProduct represents a stocked product as published by the catalog API
type CatalogProduct struct {
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
}

// CatalogService represents bookable labor as published by the catalog API
type CatalogService struct {
	ID          int64    `json:"id"`
	Name        string   `json:"name"`
	Category    string   `json:"category,omitempty"`
	Description string   `json:"description"`
	HourlyRate  float64  `json:"hourly_rate"`
	MinHours    int      `json:"min_hours"`
	Image       string   `json:"image,omitempty"`
	Features    []string `json:"features"`
	Materials   []string `json:"materials"`
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// ServiceTypeSlug normalizes a service name into the service_type value used by
// the booking form: lowercase with every whitespace run replaced by a hyphen.
func ServiceTypeSlug(name string) string {
	return whitespaceRun.ReplaceAllString(strings.ToLower(name), "-")
}

// Slug returns the booking form service_type for this service
func (s CatalogService) Slug() string {
	return ServiceTypeSlug(s.Name)
}
