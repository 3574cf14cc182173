package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

// Client speaks JSON-RPC to a Solana node over HTTP. Transport retries are
// off unless MaxRetries is set; the swap path owns its retry policy.
type Client struct {
	httpClient   *http.Client
	baseURL      string
	maxRetries   int
	retryBackoff time.Duration
	logger       *logrus.Logger

	nextID atomic.Uint64
}

// ClientConfig holds configuration for the RPC client
type ClientConfig struct {
	BaseURL      string
	Timeout      time.Duration
	MaxRetries   int
	RetryBackoff time.Duration
	Logger       *logrus.Logger
}

func NewClient(cfg ClientConfig) *Client {
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = 500 * time.Millisecond
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		baseURL:      cfg.BaseURL,
		maxRetries:   cfg.MaxRetries,
		retryBackoff: cfg.RetryBackoff,
		logger:       cfg.Logger,
	}
}

// StatusError is a non-200 HTTP answer from the node.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Code == http.StatusTooManyRequests {
		return "rate limited (429)"
	}
	if e.Body == "" {
		return fmt.Sprintf("unexpected status code: %d", e.Code)
	}
	return fmt.Sprintf("unexpected status code: %d: %s", e.Code, e.Body)
}

// transient reports whether a failed request may succeed when repeated.
// Client errors other than 429 are final.
func transient(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code == http.StatusTooManyRequests || se.Code >= http.StatusInternalServerError
	}
	return true
}

// Call posts one JSON-RPC request and decodes the raw response body into
// result. Transient failures are retried up to MaxRetries times with a
// doubling backoff.
func (c *Client) Call(ctx context.Context, method string, params interface{}, result interface{}) error {
	data, err := json.Marshal(map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      c.nextID.Add(1),
		"method":  method,
		"params":  params,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	backoff := c.retryBackoff
	for attempt := 0; ; attempt++ {
		resp, err := c.doRequest(ctx, data)
		if err == nil {
			if err := json.Unmarshal(resp, result); err != nil {
				return fmt.Errorf("failed to unmarshal response: %w", err)
			}
			return nil
		}

		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !transient(err) {
			return err
		}
		if attempt >= c.maxRetries {
			if c.maxRetries == 0 {
				return err
			}
			return fmt.Errorf("max retries exceeded: %w", err)
		}

		c.logger.WithFields(logrus.Fields{
			"attempt": attempt + 1,
			"backoff": backoff,
			"method":  method,
		}).WithError(err).Debug("retrying RPC call")

		t := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
		backoff *= 2
	}
}

func (c *Client) doRequest(ctx context.Context, data []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	return body, nil
}

// CallResult performs Call and decodes the JSON-RPC envelope, surfacing a
// server-side error object as *RPCError.
func (c *Client) CallResult(ctx context.Context, method string, params interface{}, out interface{}) error {
	var envelope struct {
		Result json.RawMessage `json:"result"`
		Error  *RPCError       `json:"error"`
	}

	if err := c.Call(ctx, method, params, &envelope); err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}

	if envelope.Error != nil {
		return envelope.Error
	}

	if out == nil || len(envelope.Result) == 0 {
		return nil
	}

	if err := json.Unmarshal(envelope.Result, out); err != nil {
		return fmt.Errorf("%s: failed to decode result: %w", method, err)
	}

	return nil
}
