package client

import (
	"errors"
	"fmt"
)

var (
	// ErrUnavailable covers every failure to get a usable answer from the
	// storefront API: transport errors, timeouts, 5xx responses, undecodable
	// bodies and an open circuit.
	ErrUnavailable = errors.New("storefront api unavailable")

	// ErrRejected is matched by RejectedError
	ErrRejected = errors.New("storefront api rejected the request")
)

// RejectedError is returned when the API answered with success=false
type RejectedError struct {
	Status  int
	Message string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("storefront api rejected the request (status %d): %s", e.Status, e.Message)
}

func (e *RejectedError) Is(target error) bool {
	return target == ErrRejected
}
