package tricksim

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/tricktrack/tricktrack/internal/domain/model"
)

const apiPrefix = "/api/v1"

// APIError is a non-2xx response decoded from the service envelope.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("status %d: %s: %s", e.Status, e.Code, e.Message)
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Client talks to the validation API.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client with a per-request timeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL + apiPrefix,
		http:    &http.Client{Timeout: timeout},
	}
}

// Health checks GET /health.
func (c *Client) Health(ctx context.Context) error {
	var out struct {
		Status string `json:"status"`
	}
	if err := c.do(ctx, http.MethodGet, "/health", nil, &out); err != nil {
		return err
	}
	if out.Status != "ok" {
		return fmt.Errorf("%w: status %q", ErrUnhealthy, out.Status)
	}
	return nil
}

// Limits fetches the supported tricks and score ranges.
func (c *Client) Limits(ctx context.Context) (Limits, error) {
	var out Limits
	err := c.do(ctx, http.MethodGet, "/tricks", nil, &out)
	return out, err
}

// Create submits a trick for validation.
func (c *Client) Create(ctx context.Context, s *Submission) (model.Validation, error) {
	var out model.Validation
	err := c.do(ctx, http.MethodPost, "/validations", s, &out)
	return out, err
}

// Score posts one validator's score.
func (c *Client) Score(ctx context.Context, id string, in ScoreInput) (model.Validation, error) {
	var out model.Validation
	err := c.do(ctx, http.MethodPost, "/validations/"+id+"/scores", in, &out)
	return out, err
}

// Get fetches a validation.
func (c *Client) Get(ctx context.Context, id string) (model.Validation, error) {
	var out model.Validation
	err := c.do(ctx, http.MethodGet, "/validations/"+id, nil, &out)
	return out, err
}

// Balance fetches a user's settled token balance.
func (c *Client) Balance(ctx context.Context, userID string) (model.TokenBalance, error) {
	var out model.TokenBalance
	err := c.do(ctx, http.MethodGet, "/balances/"+userID, nil, &out)
	return out, err
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var r io.Reader = http.NoBody
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		r = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, r)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("%s %s: decode response: %w", method, path, err)
	}
	if !env.Success || resp.StatusCode >= http.StatusBadRequest {
		apiErr := &APIError{Status: resp.StatusCode}
		if env.Error != nil {
			apiErr.Code = env.Error.Code
			apiErr.Message = env.Error.Message
		}
		return apiErr
	}
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("%s %s: decode data: %w", method, path, err)
	}
	return nil
}
