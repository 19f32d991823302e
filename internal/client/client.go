package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"pipedrill/internal/domain"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

// Submission kinds, used as metric labels
const (
	KindOrder          = "order"
	KindServiceRequest = "service_request"
)

// RequestIDHeader carries the per-attempt correlation id on submissions
const RequestIDHeader = "X-Request-ID"

const maxBodyBytes = 1 << 20

// Config holds storefront API client configuration
type Config struct {
	BaseURL         string
	Timeout         time.Duration
	MaxConnsPerHost int

	BreakerName         string
	BreakerFailureRatio float64
	BreakerMinRequests  uint32
	BreakerOpenTimeout  time.Duration
}

// DefaultConfig returns defaults for a storefront API at baseURL
func DefaultConfig(baseURL string) Config {
	return Config{
		BaseURL:             baseURL,
		Timeout:             10 * time.Second,
		MaxConnsPerHost:     32,
		BreakerName:         "storefront",
		BreakerFailureRatio: 0.5,
		BreakerMinRequests:  5,
		BreakerOpenTimeout:  30 * time.Second,
	}
}

// StorefrontClient talks to the catalog and order-processing API.
// Requests are never retried automatically.
type StorefrontClient interface {
	ListProducts(ctx context.Context) ([]domain.CatalogProduct, error)
	ListServices(ctx context.Context) ([]domain.CatalogService, error)
	ListProductOrders(ctx context.Context) ([]domain.ProductOrder, error)
	ListServiceRequests(ctx context.Context) ([]domain.ServiceRequestRecord, error)
	PlaceOrder(ctx context.Context, payload domain.OrderPayload, requestID string) (domain.SubmitResponse, error)
	SubmitServiceRequest(ctx context.Context, payload domain.ServiceRequestPayload, requestID string) (domain.SubmitResponse, error)
	State() gobreaker.State
}

type response struct {
	status int
	body   []byte
}

type storefrontClient struct {
	baseURL    string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker[*response]
	logger     *zap.Logger
}

// New creates a storefront API client protected by a circuit breaker
func New(cfg Config, logger *zap.Logger) StorefrontClient {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   cfg.MaxConnsPerHost,
		MaxConnsPerHost:       cfg.MaxConnsPerHost,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: time.Second,
	}

	settings := gobreaker.Settings{
		Name:        cfg.BreakerName,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     cfg.BreakerOpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.BreakerMinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= cfg.BreakerFailureRatio
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("Circuit breaker state change",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
			breakerState.WithLabelValues(name).Set(stateToFloat(to))
		},
	}
	breakerState.WithLabelValues(cfg.BreakerName).Set(0)

	return &storefrontClient{
		baseURL: cfg.BaseURL,
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   cfg.Timeout,
		},
		breaker: gobreaker.NewCircuitBreaker[*response](settings),
		logger:  logger,
	}
}

func (c *storefrontClient) State() gobreaker.State {
	return c.breaker.State()
}

func (c *storefrontClient) ListProducts(ctx context.Context) ([]domain.CatalogProduct, error) {
	var env struct {
		envelope
		Products []domain.CatalogProduct `json:"products"`
	}
	if err := c.get(ctx, "/api/products", &env, &env.envelope); err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return env.Products, nil
}

func (c *storefrontClient) ListServices(ctx context.Context) ([]domain.CatalogService, error) {
	var env struct {
		envelope
		Services []domain.CatalogService `json:"services"`
	}
	if err := c.get(ctx, "/api/services", &env, &env.envelope); err != nil {
		return nil, fmt.Errorf("failed to list services: %w", err)
	}
	return env.Services, nil
}

func (c *storefrontClient) ListProductOrders(ctx context.Context) ([]domain.ProductOrder, error) {
	var env struct {
		envelope
		Orders []domain.ProductOrder `json:"orders"`
	}
	if err := c.get(ctx, "/api/product-orders", &env, &env.envelope); err != nil {
		return nil, fmt.Errorf("failed to list product orders: %w", err)
	}
	return env.Orders, nil
}

func (c *storefrontClient) ListServiceRequests(ctx context.Context) ([]domain.ServiceRequestRecord, error) {
	var env struct {
		envelope
		Requests []domain.ServiceRequestRecord `json:"requests"`
	}
	if err := c.get(ctx, "/api/service-requests", &env, &env.envelope); err != nil {
		return nil, fmt.Errorf("failed to list service requests: %w", err)
	}
	return env.Requests, nil
}

func (c *storefrontClient) PlaceOrder(ctx context.Context, payload domain.OrderPayload, requestID string) (domain.SubmitResponse, error) {
	return c.submit(ctx, KindOrder, "/api/place-order", payload, requestID)
}

func (c *storefrontClient) SubmitServiceRequest(ctx context.Context, payload domain.ServiceRequestPayload, requestID string) (domain.SubmitResponse, error) {
	return c.submit(ctx, KindServiceRequest, "/api/service-request", payload, requestID)
}

type envelope struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

func (c *storefrontClient) get(ctx context.Context, path string, out any, env *envelope) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, http.NoBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.do(req)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(resp.body, out); err != nil {
		return fmt.Errorf("%w: failed to decode %s response: %v", ErrUnavailable, path, err)
	}
	if !env.Success {
		return &RejectedError{Status: resp.status, Message: rejectionMessage(env.Error, resp.status)}
	}
	return nil
}

func (c *storefrontClient) submit(ctx context.Context, kind, path string, payload any, requestID string) (domain.SubmitResponse, error) {
	result, err := c.post(ctx, path, payload, requestID)
	submissionsTotal.WithLabelValues(kind, outcomeOf(err)).Inc()

	switch {
	case err == nil:
		c.logger.Info("Submission accepted",
			zap.String("kind", kind),
			zap.String("request_id", requestID),
			zap.Int64("order_id", result.OrderID),
			zap.Int64("service_request_id", result.RequestID),
		)
	case isRejected(err):
		c.logger.Warn("Submission rejected",
			zap.String("kind", kind),
			zap.String("request_id", requestID),
			zap.Error(err),
		)
	default:
		c.logger.Error("Submission failed",
			zap.String("kind", kind),
			zap.String("request_id", requestID),
			zap.Error(err),
		)
	}
	return result, err
}

func (c *storefrontClient) post(ctx context.Context, path string, payload any, requestID string) (domain.SubmitResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return domain.SubmitResponse{}, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return domain.SubmitResponse{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if requestID != "" {
		req.Header.Set(RequestIDHeader, requestID)
	}

	resp, err := c.do(req)
	if err != nil {
		return domain.SubmitResponse{}, err
	}

	var result domain.SubmitResponse
	if err := json.Unmarshal(resp.body, &result); err != nil {
		return domain.SubmitResponse{}, fmt.Errorf("%w: failed to decode %s response: %v", ErrUnavailable, path, err)
	}
	if !result.Success {
		return result, &RejectedError{Status: resp.status, Message: rejectionMessage(result.Error, resp.status)}
	}
	return result, nil
}

// do sends the request through the breaker. 5xx responses count as
// breaker failures; 4xx responses are returned for the caller to decode.
func (c *storefrontClient) do(req *http.Request) (*response, error) {
	resp, err := c.breaker.Execute(func() (*response, error) {
		httpResp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer func() { _ = httpResp.Body.Close() }()

		body, err := io.ReadAll(io.LimitReader(httpResp.Body, maxBodyBytes))
		if err != nil {
			return nil, fmt.Errorf("failed to read response body: %w", err)
		}
		if httpResp.StatusCode >= http.StatusInternalServerError {
			return nil, fmt.Errorf("server error %d: %s", httpResp.StatusCode, bytes.TrimSpace(body))
		}
		return &response{status: httpResp.StatusCode, body: body}, nil
	})
	if err != nil {
		c.logger.Debug("Storefront API call failed",
			zap.String("method", req.Method),
			zap.String("path", req.URL.Path),
			zap.Error(err),
		)
		return nil, fmt.Errorf("%w: %s %s: %v", ErrUnavailable, req.Method, req.URL.Path, err)
	}
	return resp, nil
}

func rejectionMessage(msg string, status int) string {
	if msg != "" {
		return msg
	}
	if text := http.StatusText(status); text != "" && status != http.StatusOK {
		return text
	}
	return "request was not accepted"
}

func isRejected(err error) bool {
	return errors.Is(err, ErrRejected)
}
