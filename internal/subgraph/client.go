// Package subgraph is a GraphQL client for the event indexing service with a
// shared retry policy and cursor pagination.
package subgraph

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"seer-airdrop/internal/observability"
)

// DefaultTimeout bounds a single HTTP request.
const DefaultTimeout = 30 * time.Second

// Client queries one subgraph endpoint.
type Client struct {
	endpoint string
	http     *resty.Client
	policy   RetryPolicy
	logger   zerolog.Logger
}

// ClientOption configures Client.
type ClientOption func(*Client)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.http.SetTimeout(d)
		}
	}
}

// WithRetryPolicy replaces the default retry policy.
func WithRetryPolicy(p RetryPolicy) ClientOption {
	return func(c *Client) {
		c.policy = p
	}
}

// WithHTTPClient sets a custom http.Client as transport.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.http = resty.NewWithClient(hc)
	}
}

// WithLogger sets the logger used for retry warnings.
func WithLogger(l zerolog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = l
	}
}

// NewClient creates a client for endpoint.
func NewClient(endpoint string, opts ...ClientOption) *Client {
	c := &Client{
		endpoint: endpoint,
		http:     resty.New().SetTimeout(DefaultTimeout),
		policy:   DefaultRetryPolicy(),
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.http.SetHeader("Content-Type", "application/json")
	return c
}

// Endpoint returns the URL this client queries.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Request is one GraphQL query. Kind labels metrics and logs.
type Request struct {
	Kind      string
	Query     string
	Variables map[string]any
}

type gqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type gqlResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []GraphQLError  `json:"errors,omitempty"`
}

// GraphQLError is one entry of a response's errors array.
type GraphQLError struct {
	Message string `json:"message"`
}

// ResponseError carries the errors array of a failed response.
type ResponseError struct {
	Errors []GraphQLError
}

func (e *ResponseError) Error() string {
	msgs := make([]string, 0, len(e.Errors))
	for _, ge := range e.Errors {
		msgs = append(msgs, ge.Message)
	}
	return "graphql: " + strings.Join(msgs, "; ")
}

// Unwrap makes indexer-side GraphQL errors retryable.
func (e *ResponseError) Unwrap() error {
	return ErrTransient
}

// Query runs req under the retry policy and decodes data into out.
func (c *Client) Query(ctx context.Context, req Request, out any) error {
	onRetry := func(err error, wait time.Duration) {
		observability.RecordRetry(req.Kind)
		c.logger.Warn().
			Err(err).
			Str("kind", req.Kind).
			Str("endpoint", c.endpoint).
			Dur("wait", wait).
			Msg("retrying subgraph request")
	}

	err := c.policy.Do(ctx, func() error {
		return c.do(ctx, req, out)
	}, onRetry)
	if err != nil {
		return fmt.Errorf("query %s: %w", req.Kind, err)
	}
	return nil
}

// do performs a single attempt.
func (c *Client) do(ctx context.Context, req Request, out any) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(gqlRequest{Query: req.Query, Variables: req.Variables}).
		Post(c.endpoint)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: http request: %v", ErrTransient, err)
	}

	status := resp.StatusCode()
	if status == http.StatusTooManyRequests || status >= http.StatusInternalServerError {
		return fmt.Errorf("%w: status %d", ErrTransient, status)
	}
	if status != http.StatusOK {
		return fmt.Errorf("unexpected status %d: %s", status, resp.String())
	}

	var body gqlResponse
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return fmt.Errorf("%w: unmarshal response: %v", ErrTransient, err)
	}
	if len(body.Errors) > 0 {
		return &ResponseError{Errors: body.Errors}
	}

	if out != nil && len(body.Data) > 0 {
		if err := json.Unmarshal(body.Data, out); err != nil {
			return fmt.Errorf("unmarshal data: %w", err)
		}
	}
	return nil
}
