package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"

	"coursectl/internal/shared"
)

// TokenFunc resolves the current bearer token. It must never perform I/O;
// an empty return means the request goes out unauthenticated, which is valid
// for public endpoints.
type TokenFunc func() string

// Client performs authenticated requests against the platform API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	token      TokenFunc
	limiter    *rate.Limiter
	logger     *log.Logger
}

// ClientOpts contains configuration options for creating a Client.
type ClientOpts struct {
	BaseURL    string
	HTTPClient *http.Client
	Token      TokenFunc
	RateLimit  float64 // requests per second, 0 means 10
	Logger     *log.Logger
}

// NewClient creates a new Client with the provided configuration.
func NewClient(opts ClientOpts) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = "http://localhost:4000/api"
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.Token == nil {
		opts.Token = func() string { return "" }
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 10
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}

	return &Client{
		baseURL:    opts.BaseURL,
		httpClient: opts.HTTPClient,
		token:      opts.Token,
		limiter:    rate.NewLimiter(rate.Limit(opts.RateLimit), 1),
		logger:     opts.Logger,
	}
}

// SetToken replaces the token source. Used to break the construction cycle
// between the client and the session manager.
func (c *Client) SetToken(token TokenFunc) {
	c.token = token
}

// Get performs a GET request and decodes the envelope's data into out.
func (c *Client) Get(ctx context.Context, path string, query url.Values, out any) error {
	return c.do(ctx, http.MethodGet, path, query, nil, out)
}

// Post performs a POST request with a JSON body and decodes the envelope's data into out.
func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPost, path, nil, body, out)
}

// Put performs a PUT request with a JSON body and decodes the envelope's data into out.
func (c *Client) Put(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPut, path, nil, body, out)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	fullURL := c.baseURL + path
	if len(query) > 0 {
		fullURL += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", shared.GenerateID())
	if token := c.token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Cancellation is a distinct terminal state, not a failure.
		if errors.Is(err, context.Canceled) || ctx.Err() != nil {
			return context.Canceled
		}
		c.logger.Debug("transport failure", "method", method, "path", path, "err", err)
		return &Error{Kind: KindNetwork, Message: "could not reach the course platform"}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &Error{Kind: KindNetwork, Message: "failed to read response"}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return classify(resp.StatusCode, raw)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return &Error{Kind: KindHTTP, Status: resp.StatusCode, Message: "malformed response body"}
	}
	if !env.Success {
		message := env.Message
		if message == "" {
			message = "request rejected"
		}
		return &Error{Kind: KindHTTP, Status: resp.StatusCode, Message: message, Fields: env.Errors}
	}

	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return &Error{Kind: KindHTTP, Status: resp.StatusCode, Message: "malformed response data"}
		}
	}
	return nil
}
