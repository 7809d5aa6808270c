package transfer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/GriffinCanCode/librarian/internal/infrastructure/logging"
	"github.com/GriffinCanCode/librarian/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/librarian/internal/shared/types"
	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-cleanhttp"
	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// ClientConfig tunes the archive HTTP client. Timeout bounds the wait for
// response headers only; a body streams for as long as its context allows.
type ClientConfig struct {
	Timeout           time.Duration
	Retries           int
	RetryWaitMin      time.Duration
	RetryWaitMax      time.Duration
	RequestsPerSecond float64
	UserAgent         string
}

// DefaultClientConfig returns production settings
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		Timeout:      2 * time.Minute,
		Retries:      3,
		RetryWaitMin: 1 * time.Second,
		RetryWaitMax: 30 * time.Second,
		UserAgent:    "librarian-local/1.0",
	}
}

// Client fetches archives with rate limiting, retries and a circuit breaker
type Client struct {
	resty   *resty.Client
	limiter *rate.Limiter
	breaker *resilience.Breaker
	logger  *logging.Logger
}

// StatusError is an unsuccessful HTTP response
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: HTTP %d", e.URL, e.Code)
}

// NewClient creates the archive client
func NewClient(cfg ClientConfig, logger *logging.Logger) *Client {
	if logger == nil {
		logger = logging.NewNop()
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultClientConfig().UserAgent
	}

	transport := cleanhttp.DefaultPooledTransport()
	transport.ResponseHeaderTimeout = cfg.Timeout

	retryClient := retryablehttp.NewClient()
	retryClient.HTTPClient = &http.Client{Transport: transport}
	retryClient.RetryMax = cfg.Retries
	retryClient.RetryWaitMin = cfg.RetryWaitMin
	retryClient.RetryWaitMax = cfg.RetryWaitMax
	retryClient.Logger = nil
	// Hand the last response back so the status code can be reported
	retryClient.ErrorHandler = retryablehttp.PassthroughErrorHandler

	restyClient := resty.New()
	restyClient.
		SetHeader("User-Agent", cfg.UserAgent).
		SetTransport(&retryablehttp.RoundTripper{Client: retryClient})

	breaker := resilience.New("archive-host", resilience.Settings{
		MaxRequests: 3,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts resilience.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			// Missing archives say nothing about host health
			return err == nil || errors.Is(err, context.Canceled) || errors.Is(err, types.ErrNotFound)
		},
		OnStateChange: func(name string, from, to resilience.State) {
			logger.Warn("Circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})

	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RequestsPerSecond > 0 {
		burst := int(cfg.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}

	return &Client{
		resty:   restyClient,
		limiter: limiter,
		breaker: breaker,
		logger:  logger.Named("transfer"),
	}
}

// Breaker exposes the circuit breaker for health reporting
func (c *Client) Breaker() *resilience.Breaker {
	return c.breaker
}

// Open issues a GET for url and returns the unread body and its declared
// length, or -1 when the server did not send one.
func (c *Client) Open(ctx context.Context, url string) (io.ReadCloser, int64, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, 0, fmt.Errorf("rate limit: %w", err)
	}

	var body io.ReadCloser
	var size int64
	err := c.breaker.Do(func() error {
		resp, err := c.resty.R().
			SetContext(ctx).
			SetDoNotParseResponse(true).
			Get(url)
		if err != nil {
			return err
		}

		raw := resp.RawBody()
		if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
			if raw != nil {
				raw.Close()
			}
			statusErr := &StatusError{URL: url, Code: resp.StatusCode()}
			if resp.StatusCode() == http.StatusNotFound {
				return types.NewError(types.CodeNotFound, statusErr.Error(), errors.Join(types.ErrNotFound, statusErr))
			}
			return statusErr
		}

		body = raw
		size = -1
		if resp.RawResponse != nil {
			size = resp.RawResponse.ContentLength
		}
		return nil
	})
	if err != nil {
		c.logger.Warn("Archive request failed", zap.String("url", url), zap.Error(err))
		return nil, 0, err
	}
	return body, size, nil
}
