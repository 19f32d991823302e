package service

import (
	"errors"
	"fmt"

	"pipedrill/internal/catalog"
)

var (
	ErrOutOfStock            = errors.New("product is out of stock")
	ErrStockLimitReached     = errors.New("not enough stock for the requested quantity")
	ErrItemNotFound          = errors.New("item not found in cart")
	ErrNotAdjustable         = errors.New("item quantity cannot be adjusted")
	ErrEmptyCart             = errors.New("cart is empty")
	ErrNetwork               = errors.New("storefront api unreachable")
	ErrOrderRejected         = errors.New("order rejected")
	ErrRequestRejected       = errors.New("service request rejected")
	ErrInvalidServiceRequest = errors.New("invalid service request")
	ErrBelowMinimumHours     = errors.New("estimated hours below the service minimum")

	ErrProductNotFound = catalog.ErrProductNotFound
	ErrServiceNotFound = catalog.ErrServiceNotFound
)

// RejectionError carries the reason the storefront API gave for refusing a
// submission. It unwraps to ErrOrderRejected or ErrRequestRejected.
type RejectionError struct {
	Kind   error
	Reason string
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("%v: %s", e.Kind, e.Reason)
}

func (e *RejectionError) Unwrap() error {
	return e.Kind
}

// FieldError describes one invalid booking form field
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// FormErrors is returned when a booking form fails coercion or validation.
// It matches ErrInvalidServiceRequest.
type FormErrors []FieldError

func (e FormErrors) Error() string {
	if len(e) == 0 {
		return ErrInvalidServiceRequest.Error()
	}
	return fmt.Sprintf("%v: %s %s", ErrInvalidServiceRequest, e[0].Field, e[0].Message)
}

func (e FormErrors) Is(target error) bool {
	return target == ErrInvalidServiceRequest
}
