package domain

import "encoding/json"

// OrderPayload is the body sent to the order placement API. The monetary
// figures are computed by the caller and rounded to cents.
type OrderPayload struct {
	Items    Cart    `json:"items"`
	Subtotal float64 `json:"subtotal"`
	Tax      float64 `json:"tax"`
	Total    float64 `json:"total"`
}

// ServiceRequestPayload is the body sent to the service request API
type ServiceRequestPayload struct {
	ServiceType    string  `json:"service_type" validate:"required"`
	PipeMaterial   string  `json:"pipe_material" validate:"required"`
	PipeDiameter   float64 `json:"pipe_diameter" validate:"gt=0"`
	EstimatedHours int     `json:"estimated_hours" validate:"gt=0"`
	Description    string  `json:"description" validate:"required"`
	ContactName    string  `json:"contact_name" validate:"required"`
	ContactEmail   string  `json:"contact_email" validate:"required"`
	ContactPhone   string  `json:"contact_phone" validate:"required"`
}

// Booking returns the booking details carried by a service line
func (p ServiceRequestPayload) Booking() BookingDetails {
	return BookingDetails(p)
}

// SubmitResponse is the generic acknowledgement returned by the submission APIs
type SubmitResponse struct {
	Success   bool   `json:"success"`
	Error     string `json:"error,omitempty"`
	OrderID   int64  `json:"order_id,omitempty"`
	RequestID int64  `json:"request_id,omitempty"`
}

// ProductOrder is a placed order as listed by the order history API
type ProductOrder struct {
	ID        int64           `json:"id"`
	Items     json.RawMessage `json:"items"`
	Total     float64         `json:"total"`
	Timestamp string          `json:"timestamp"`
	Status    string          `json:"status"`
	Type      string          `json:"type"`
}

// ServiceRequestRecord is a submitted service request as listed by the history API
type ServiceRequestRecord struct {
	ID        int64  `json:"id"`
	Timestamp string `json:"timestamp"`
	Status    string `json:"status"`
	Type      string `json:"type"`
	ServiceRequestPayload
}
