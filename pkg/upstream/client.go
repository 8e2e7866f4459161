// Package upstream holds the HTTP clients for the payment-splitting service and the
// payment processor proxy. Requests are forwarded with the caller's own signature; the
// storefront never signs on a user's behalf.
package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"storefront/internal/errs"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Registration is the signed registration body forwarded to the splitting service.
type Registration struct {
	Timestamp string `json:"timestamp"`
	PubKey    string `json:"pubKey"`
	Signature string `json:"signature"`
}

// Intent is the signed payment-intent body forwarded to the processor.
type Intent struct {
	Timestamp string `json:"timestamp"`
	UUID      string `json:"uuid"`
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
	Signature string `json:"signature"`
}

// Client calls a JSON HTTP service rooted at baseURL.
type Client struct {
	baseURL string
	timeout time.Duration
	logger  *zap.Logger
}

// NewClient creates a Client. timeout bounds every request.
func NewClient(baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: timeout,
		logger:  logger,
	}
}

// CreateUser registers a new account with the splitting service and returns it verbatim.
func (c *Client) CreateUser(ctx context.Context, req Registration) (json.RawMessage, error) {
	return c.do(ctx, fiber.MethodPut, "/user/create", req)
}

// AttachProcessor links a processor account to splitterUUID.
func (c *Client) AttachProcessor(ctx context.Context, splitterUUID, processor string, body json.RawMessage) (json.RawMessage, error) {
	if body == nil {
		body = json.RawMessage("{}")
	}
	return c.do(ctx, fiber.MethodPut, fmt.Sprintf("/user/%s/processor/%s", splitterUUID, processor), body)
}

// CreateIntent asks the processor for a payment intent without splits.
func (c *Client) CreateIntent(ctx context.Context, processor string, intent Intent) (json.RawMessage, error) {
	return c.do(ctx, fiber.MethodPost, fmt.Sprintf("/user/%s/processor/%s/intent-without-splits", intent.UUID, processor), intent)
}

func (c *Client) do(ctx context.Context, method, path string, payload interface{}) (json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s %s: %w: %w", method, path, errs.ErrUpstream, err)
	}
	timeout := c.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); left < timeout {
			timeout = left
		}
	}

	// Bytes releases the agent back to fiber's pool; only the Parse failure path releases it here.
	agent := fiber.AcquireAgent()
	req := agent.Request()
	req.Header.SetMethod(method)
	req.SetRequestURI(c.baseURL + path)
	agent.Timeout(timeout)
	agent.JSON(payload)
	if err := agent.Parse(); err != nil {
		fiber.ReleaseAgent(agent)
		return nil, fmt.Errorf("%s %s: %w: %w", method, path, errs.ErrUpstream, err)
	}

	code, body, agentErrs := agent.Bytes()
	if len(agentErrs) > 0 {
		err := errors.Join(agentErrs...)
		c.logger.Warn("upstream request failed", zap.String("method", method), zap.String("path", path), zap.Error(err))
		return nil, fmt.Errorf("%s %s: %w: %w", method, path, errs.ErrUpstream, err)
	}
	if code < fiber.StatusOK || code >= fiber.StatusMultipleChoices {
		c.logger.Warn("upstream returned an error status", zap.String("method", method), zap.String("path", path), zap.Int("status", code))
		return nil, fmt.Errorf("%s %s returned %d: %w", method, path, code, errs.ErrUpstream)
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("%s %s returned invalid JSON: %w", method, path, errs.ErrUpstream)
	}
	return json.RawMessage(body), nil
}
