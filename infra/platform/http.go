package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker"

	corelogger "github.com/fleetops/shiftd/core/logger"
	"github.com/fleetops/shiftd/core/model"
	coreplatform "github.com/fleetops/shiftd/core/platform"
	"github.com/fleetops/shiftd/infra/logger"
)

// Config defines the device-management platform endpoint.
type Config struct {
	BaseURL string `json:"base_url"`
	Token   string `json:"token"`
	// TimeoutSeconds bounds a single HTTP request.
	TimeoutSeconds int `json:"timeout_seconds"`
	// MaxRetries is the number of retries on transient failures.
	MaxRetries int `json:"max_retries"`
	// BreakerFailures trips the circuit after this many consecutive
	// failures.
	BreakerFailures int `json:"breaker_failures"`
	// BreakerOpenSeconds keeps the circuit open before a probe.
	BreakerOpenSeconds int `json:"breaker_open_seconds"`
}

// SetDefaults fills unset fields with production defaults.
func (c *Config) SetDefaults() {
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = 5
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 2
	}
	if c.BreakerFailures <= 0 {
		c.BreakerFailures = 5
	}
	if c.BreakerOpenSeconds <= 0 {
		c.BreakerOpenSeconds = 30
	}
}

// HTTPClient talks to the device-management platform REST API. All
// calls go through a circuit breaker so a dead platform trips fast
// instead of stalling every trigger firing, and transient failures are
// retried with exponential backoff inside the caller's context.
type HTTPClient struct {
	base    string
	token   string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
	retries uint64
	log     corelogger.Logger
}

var _ coreplatform.Client = (*HTTPClient)(nil)

// NewHTTPClient creates a platform client from the configuration.
func NewHTTPClient(cfg Config) *HTTPClient {
	cfg.SetDefaults()
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "device-platform",
		Timeout: time.Duration(cfg.BreakerOpenSeconds) * time.Second,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= uint32(cfg.BreakerFailures)
		},
	})
	return &HTTPClient{
		base:    cfg.BaseURL,
		token:   cfg.Token,
		client:  &http.Client{Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second},
		breaker: cb,
		retries: uint64(cfg.MaxRetries),
		log:     logger.New("platform-client"),
	}
}

// SendCommand issues the payload to the device and reports rejection as
// an error.
func (c *HTTPClient) SendCommand(ctx context.Context, deviceID, payload string) error {
	body, err := json.Marshal(map[string]string{"payload": payload})
	if err != nil {
		return err
	}
	var resp struct {
		Executed bool `json:"executed"`
	}
	url := fmt.Sprintf("%s/devices/%s/commands", c.base, deviceID)
	if err := c.do(ctx, http.MethodPost, url, body, &resp); err != nil {
		return err
	}
	if !resp.Executed {
		return coreplatform.ErrCommandRejected
	}
	return nil
}

// ReadIgnition reads the current ignition state of a device.
func (c *HTTPClient) ReadIgnition(ctx context.Context, deviceID string) (model.IgnitionState, error) {
	var resp struct {
		Value string `json:"value"`
	}
	url := fmt.Sprintf("%s/devices/%s/telemetry/ignition", c.base, deviceID)
	if err := c.do(ctx, http.MethodGet, url, nil, &resp); err != nil {
		return model.IgnitionUnknown, err
	}
	return model.ParseIgnitionState(resp.Value), nil
}

// ReadOutput samples the secondary digital-output channel.
func (c *HTTPClient) ReadOutput(ctx context.Context, deviceID string) (float64, error) {
	var resp struct {
		Value float64 `json:"value"`
	}
	url := fmt.Sprintf("%s/devices/%s/telemetry/dout", c.base, deviceID)
	if err := c.do(ctx, http.MethodGet, url, nil, &resp); err != nil {
		return 0, err
	}
	return resp.Value, nil
}

// do runs one request through the breaker with retries. A 4xx response
// is not retried; transport errors and 5xx responses are.
func (c *HTTPClient) do(ctx context.Context, method, url string, body []byte, out any) error {
	op := func() error {
		_, err := c.breaker.Execute(func() (any, error) {
			return nil, c.once(ctx, method, url, body, out)
		})
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return backoff.Permanent(err)
		}
		var perm *permanentError
		if errors.As(err, &perm) {
			return backoff.Permanent(perm.err)
		}
		return err
	}
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 200 * time.Millisecond
	return backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(bo, c.retries), ctx))
}

func (c *HTTPClient) once(ctx context.Context, method, url string, body []byte, out any) error {
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, rd)
	if err != nil {
		return &permanentError{err: err}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "FlespiToken "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	switch {
	case resp.StatusCode >= 500:
		return fmt.Errorf("platform: %s %s: status %d", method, url, resp.StatusCode)
	case resp.StatusCode >= 400:
		return &permanentError{err: fmt.Errorf("platform: %s %s: status %d", method, url, resp.StatusCode)}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &permanentError{err: fmt.Errorf("platform: decode response: %w", err)}
	}
	return nil
}

// permanentError marks failures that retrying cannot fix.
type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }
