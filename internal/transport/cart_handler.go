package transport

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"pipedrill/internal/catalog"
	"pipedrill/internal/domain"
	"pipedrill/internal/middleware"
	"pipedrill/internal/pricing"
	"pipedrill/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Catalog is the catalog view the cart API needs
type Catalog interface {
	service.CatalogLookup
	Products(ctx context.Context) ([]domain.CatalogProduct, error)
	Services(ctx context.Context) ([]domain.CatalogService, error)
}

// HistoryFeed exposes the last loaded order history
type HistoryFeed interface {
	Snapshot() catalog.HistorySnapshot
}

// QuantityRequest represents the quantity change payload
type QuantityRequest struct {
	Delta *int `json:"delta" validate:"required"`
}

// CartView is the cart as returned to the storefront page
type CartView struct {
	Items     domain.Cart     `json:"items"`
	Breakdown pricing.Amounts `json:"breakdown"`
	ItemCount int             `json:"item_count"`
}

// BookingResponse prefills the booking form for a catalog service
type BookingResponse struct {
	ServiceID   int64  `json:"service_id"`
	ServiceType string `json:"service_type"`
}

// CartHandler handles HTTP requests for cart operations
type CartHandler struct {
	sessions *service.Registry
	catalog  Catalog
	orders   *service.OrderSubmitter
	requests *service.ServiceRequestSubmitter
	history  HistoryFeed
	logger   *zap.Logger
}

// NewCartHandler creates a new CartHandler
func NewCartHandler(
	sessions *service.Registry,
	catalog Catalog,
	orders *service.OrderSubmitter,
	requests *service.ServiceRequestSubmitter,
	history HistoryFeed,
	logger *zap.Logger,
) *CartHandler {
	return &CartHandler{
		sessions: sessions,
		catalog:  catalog,
		orders:   orders,
		requests: requests,
		history:  history,
		logger:   logger,
	}
}

// RegisterRoutes registers all cart routes. checkoutLimiter may be nil.
func (h *CartHandler) RegisterRoutes(r chi.Router, checkoutLimiter func(http.Handler) http.Handler) {
	r.Route("/api/cart", func(r chi.Router) {
		r.Get("/", h.GetCart)
		r.Delete("/", h.ClearCart)
		r.Post("/products/{productID}", h.AddProduct)
		r.Patch("/items/{itemID}", h.UpdateQuantity)
		r.Delete("/items/{itemID}", h.RemoveItem)
		r.Post("/service-requests", h.SubmitServiceRequest)

		r.Group(func(r chi.Router) {
			if checkoutLimiter != nil {
				r.Use(checkoutLimiter)
			}
			r.Post("/checkout", h.Checkout)
		})
	})

	r.Route("/api/catalog", func(r chi.Router) {
		r.Get("/products", h.ListProducts)
		r.Get("/services", h.ListServices)
		r.Get("/services/{serviceID}/booking", h.BookService)
	})

	r.Get("/api/orders", h.ListOrders)
}

// GetCart returns the session's cart with its price breakdown
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	store, ok := h.store(w, r)
	if !ok {
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, cartView(store))
}

// AddProduct adds one unit of a catalog product
func (h *CartHandler) AddProduct(w http.ResponseWriter, r *http.Request) {
	productID, ok := pathID(w, r, "productID")
	if !ok {
		return
	}
	store, ok := h.store(w, r)
	if !ok {
		return
	}

	if err := store.AddProduct(r.Context(), productID, h.catalog); err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, cartView(store))
}

// UpdateQuantity changes a product line's quantity by delta
func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	itemID, ok := pathID(w, r, "itemID")
	if !ok {
		return
	}

	var req QuantityRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.logger.Debug("Quantity update validation failed", zap.Error(err))

		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}

		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	store, ok := h.store(w, r)
	if !ok {
		return
	}

	if err := store.UpdateQuantity(r.Context(), itemID, *req.Delta, h.catalog); err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, cartView(store))
}

// RemoveItem removes a line; absent ids succeed
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	itemID, ok := pathID(w, r, "itemID")
	if !ok {
		return
	}
	store, ok := h.store(w, r)
	if !ok {
		return
	}

	if err := store.RemoveItem(r.Context(), itemID); err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ClearCart empties the cart
func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	store, ok := h.store(w, r)
	if !ok {
		return
	}

	if err := store.Clear(r.Context()); err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Checkout places an order for the cart contents
func (h *CartHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	store, ok := h.store(w, r)
	if !ok {
		return
	}

	confirmation, err := h.orders.Checkout(r.Context(), store)
	if err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusCreated, confirmation)
}

// SubmitServiceRequest sends a booking form and books the matching service
func (h *CartHandler) SubmitServiceRequest(w http.ResponseWriter, r *http.Request) {
	var form service.ServiceRequestForm
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
		h.logger.Debug("Service request decode failed", zap.Error(err))
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	store, ok := h.store(w, r)
	if !ok {
		return
	}

	result, err := h.requests.Submit(r.Context(), store, form)
	if err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusCreated, result)
}

// ListProducts returns the catalog products
func (h *CartHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.catalog.Products(r.Context())
	if err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, map[string]interface{}{"products": products})
}

// ListServices returns the catalog services
func (h *CartHandler) ListServices(w http.ResponseWriter, r *http.Request) {
	services, err := h.catalog.Services(r.Context())
	if err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, map[string]interface{}{"services": services})
}

// BookService returns the booking form service_type for a catalog service
func (h *CartHandler) BookService(w http.ResponseWriter, r *http.Request) {
	serviceID, ok := pathID(w, r, "serviceID")
	if !ok {
		return
	}

	slug, err := h.requests.BookService(r.Context(), serviceID)
	if err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, BookingResponse{ServiceID: serviceID, ServiceType: slug})
}

// ListOrders returns the order history feed
func (h *CartHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	middleware.RespondWithJSON(w, http.StatusOK, h.history.Snapshot())
}

func (h *CartHandler) store(w http.ResponseWriter, r *http.Request) (*service.CartStore, bool) {
	sessionID, ok := middleware.GetSessionID(r.Context())
	if !ok {
		h.logger.Error("Session ID not found in context")
		middleware.RespondWithError(w, http.StatusBadRequest, "missing session")
		return nil, false
	}

	store, err := h.sessions.Store(r.Context(), sessionID)
	if err != nil {
		h.logger.Error("Failed to open cart session", zap.String("session_id", sessionID), zap.Error(err))
		middleware.RespondWithError(w, http.StatusServiceUnavailable, "cart storage unavailable")
		return nil, false
	}
	return store, true
}

func cartView(store *service.CartStore) CartView {
	cart := store.Cart()
	return CartView{
		Items:     cart,
		Breakdown: pricing.ComputeBreakdown(cart.Items).Rounded(),
		ItemCount: cart.ItemCount(),
	}
}

func pathID(w http.ResponseWriter, r *http.Request, param string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, param), 10, 64)
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid "+param)
		return 0, false
	}
	return id, true
}

// respondWithServiceError maps the service error taxonomy onto HTTP
func (h *CartHandler) respondWithServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var formErrs service.FormErrors
	var rejection *service.RejectionError

	switch {
	case errors.As(err, &formErrs):
		details := make([]middleware.ValidationError, 0, len(formErrs))
		for _, fe := range formErrs {
			details = append(details, middleware.ValidationError{Field: fe.Field, Message: fe.Message})
		}
		middleware.RespondWithValidationErrors(w, details)
	case errors.Is(err, service.ErrOutOfStock):
		respondWithKind(w, http.StatusConflict, "out_of_stock", err)
	case errors.Is(err, service.ErrStockLimitReached):
		respondWithKind(w, http.StatusConflict, "stock_limit_reached", err)
	case errors.Is(err, service.ErrItemNotFound),
		errors.Is(err, service.ErrProductNotFound),
		errors.Is(err, service.ErrServiceNotFound):
		middleware.RespondWithError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrEmptyCart):
		respondWithKind(w, http.StatusUnprocessableEntity, "empty_cart", err)
	case errors.Is(err, service.ErrNotAdjustable):
		respondWithKind(w, http.StatusUnprocessableEntity, "not_adjustable", err)
	case errors.Is(err, service.ErrInvalidServiceRequest):
		middleware.RespondWithError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &rejection):
		h.logger.Warn("Submission rejected", zap.String("path", r.URL.Path), zap.String("reason", rejection.Reason))
		middleware.RespondWithErrorDetails(w, http.StatusBadGateway, rejection.Reason, map[string]interface{}{
			"kind": rejection.Kind.Error(),
		})
	case errors.Is(err, service.ErrNetwork), errors.Is(err, catalog.ErrNotLoaded):
		h.logger.Error("Storefront API unavailable", zap.String("path", r.URL.Path), zap.Error(err))
		respondWithKind(w, http.StatusServiceUnavailable, "network_error", err)
	default:
		h.logger.Error("Cart operation failed", zap.String("path", r.URL.Path), zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "cart operation failed")
	}
}

func respondWithKind(w http.ResponseWriter, status int, kind string, err error) {
	middleware.RespondWithErrorDetails(w, status, err.Error(), map[string]interface{}{"kind": kind})
}
