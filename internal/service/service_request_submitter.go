package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"

	"pipedrill/internal/domain"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Outcomes of a successful service request for the cart
const (
	StatusAddedToCart    = "added_to_cart"
	StatusNoCatalogMatch = "no_catalog_match"
	StatusNotAdded       = "not_added"
)

// ServiceRequestSender sends a service request to the storefront API
type ServiceRequestSender interface {
	SubmitServiceRequest(ctx context.Context, payload domain.ServiceRequestPayload, requestID string) (domain.SubmitResponse, error)
}

// ServiceCatalog resolves catalog services
type ServiceCatalog interface {
	Service(ctx context.Context, id int64) (domain.CatalogService, error)
	MatchService(ctx context.Context, serviceType string) (domain.CatalogService, error)
}

// ServiceRequestForm holds raw booking form values keyed by field name.
// Numeric fields may arrive as numbers or strings.
type ServiceRequestForm map[string]any

// ServiceRequestResult describes an accepted service request and what
// happened to the cart as a consequence
type ServiceRequestResult struct {
	RequestID     int64               `json:"request_id,omitempty"`
	CorrelationID string              `json:"correlation_id"`
	Status        string              `json:"status"`
	Item          *domain.ServiceLine `json:"item,omitempty"`
	Reason        string              `json:"reason,omitempty"`
}

// ServiceRequestSubmitter submits booking forms and books the matching
// catalog service into the shopper's cart
type ServiceRequestSubmitter struct {
	sender       ServiceRequestSender
	catalog      ServiceCatalog
	history      HistoryRefresher
	validate     *validator.Validate
	logger       *zap.Logger
	newRequestID func() string
}

func NewServiceRequestSubmitter(sender ServiceRequestSender, catalog ServiceCatalog, history HistoryRefresher, logger *zap.Logger) *ServiceRequestSubmitter {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	return &ServiceRequestSubmitter{
		sender:       sender,
		catalog:      catalog,
		history:      history,
		validate:     v,
		logger:       logger,
		newRequestID: uuid.NewString,
	}
}

// Submit coerces and checks the form, sends it, and on acceptance books the
// service into the cart when service_type matches a catalog service.
// Business acceptance is left to the storefront API.
func (s *ServiceRequestSubmitter) Submit(ctx context.Context, store *CartStore, form ServiceRequestForm) (ServiceRequestResult, error) {
	payload, err := s.Parse(form)
	if err != nil {
		return ServiceRequestResult{}, err
	}

	correlationID := s.newRequestID()
	logger := s.logger.With(
		zap.String("session_id", store.SessionID()),
		zap.String("request_id", correlationID),
		zap.String("service_type", payload.ServiceType),
	)

	resp, err := s.sender.SubmitServiceRequest(ctx, payload, correlationID)
	if err != nil {
		return ServiceRequestResult{}, submissionError(err, ErrRequestRejected)
	}

	if s.history != nil {
		if err := s.history.Refresh(ctx); err != nil {
			logger.Warn("Failed to refresh order history", zap.Error(err))
		}
	}

	result := ServiceRequestResult{
		RequestID:     resp.RequestID,
		CorrelationID: correlationID,
	}

	svc, err := s.catalog.MatchService(ctx, payload.ServiceType)
	if err != nil {
		if errors.Is(err, ErrServiceNotFound) {
			logger.Info("Service request accepted without catalog match")
			result.Status = StatusNoCatalogMatch
			return result, nil
		}
		logger.Warn("Failed to resolve requested service", zap.Error(err))
		result.Status = StatusNotAdded
		result.Reason = err.Error()
		return result, nil
	}

	line, err := store.AddServiceBooking(ctx, svc, payload.Booking())
	if err != nil {
		logger.Warn("Accepted service request not added to cart", zap.Error(err))
		result.Status = StatusNotAdded
		result.Reason = err.Error()
		return result, nil
	}

	logger.Info("Service request accepted and booked", zap.Int64("item_id", line.ID))
	result.Status = StatusAddedToCart
	result.Item = line
	return result, nil
}

// BookService returns the service_type value that selects the given catalog
// service in the booking form
func (s *ServiceRequestSubmitter) BookService(ctx context.Context, serviceID int64) (string, error) {
	svc, err := s.catalog.Service(ctx, serviceID)
	if err != nil {
		return "", err
	}
	return svc.Slug(), nil
}

// Parse coerces raw form values into a payload and checks presence and
// positivity of every required field
func (s *ServiceRequestSubmitter) Parse(form ServiceRequestForm) (domain.ServiceRequestPayload, error) {
	var errs FormErrors

	payload := domain.ServiceRequestPayload{
		ServiceType:  formString(form, "service_type"),
		PipeMaterial: formString(form, "pipe_material"),
		Description:  formString(form, "description"),
		ContactName:  formString(form, "contact_name"),
		ContactEmail: formString(form, "contact_email"),
		ContactPhone: formString(form, "contact_phone"),
	}

	diameter, err := formFloat(form, "pipe_diameter")
	if err != nil {
		errs = append(errs, FieldError{Field: "pipe_diameter", Message: err.Error()})
	}
	payload.PipeDiameter = diameter

	hours, err := formInt(form, "estimated_hours")
	if err != nil {
		errs = append(errs, FieldError{Field: "estimated_hours", Message: err.Error()})
	}
	payload.EstimatedHours = hours

	if err := s.validate.Struct(payload); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return domain.ServiceRequestPayload{}, fmt.Errorf("%w: %v", ErrInvalidServiceRequest, err)
		}
		for _, fe := range verrs {
			if errs.has(fe.Field()) {
				continue
			}
			errs = append(errs, FieldError{Field: fe.Field(), Message: fieldMessage(fe)})
		}
	}

	if len(errs) > 0 {
		return domain.ServiceRequestPayload{}, errs
	}
	return payload, nil
}

func (e FormErrors) has(field string) bool {
	for _, fe := range e {
		if fe.Field == field {
			return true
		}
	}
	return false
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required"
	case "gt":
		return "Value must be greater than " + fe.Param()
	default:
		return "Invalid value"
	}
}

func formString(form ServiceRequestForm, key string) string {
	switch v := form[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case nil:
		return ""
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

var errNotNumber = errors.New("must be a number")

func formFloat(form ServiceRequestForm, key string) (float64, error) {
	switch v := form[key].(type) {
	case nil:
		return 0, nil
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	case string:
		v = strings.TrimSpace(v)
		if v == "" {
			return 0, nil
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, errNotNumber
		}
		return f, nil
	default:
		return 0, errNotNumber
	}
}

func formInt(form ServiceRequestForm, key string) (int, error) {
	switch v := form[key].(type) {
	case nil:
		return 0, nil
	case float64:
		if v != math.Trunc(v) || math.Abs(v) > math.MaxInt32 {
			return 0, errors.New("must be a whole number")
		}
		return int(v), nil
	case int:
		return v, nil
	case string:
		v = strings.TrimSpace(v)
		if v == "" {
			return 0, nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0, errors.New("must be a whole number")
		}
		return n, nil
	default:
		return 0, errors.New("must be a whole number")
	}
}
