// Package googlebooks is a small client for the Google Books volumes API.
//
// Every call waits on a shared token-bucket limiter and runs under the HTTP
// client's timeout, so a slow or throttled upstream cannot hold a request
// goroutine indefinitely. Failures are reported as *Error values wrapping
// one of ErrNotFound, ErrRateLimited or ErrUnavailable.
package googlebooks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	jsoniter "github.com/json-iterator/go"
	"golang.org/x/time/rate"

	"github.com/sakif/bookifyme/internal/model"
)

const (
	DefaultBaseURL = "https://www.googleapis.com/books/v1/volumes"
	DefaultTimeout = 10 * time.Second
	DefaultRPS     = 5.0
	userAgent      = "bookifyme/1.0 (+https://github.com/sakif/bookifyme)"

	// placeholderKey ships in sample .env files and must not be sent.
	placeholderKey = "your-google-books-api-key"

	maxBodyBytes = 4 << 20
)

var (
	ErrNotFound    = errors.New("googlebooks: volume not found")
	ErrRateLimited = errors.New("googlebooks: rate limited")
	ErrUnavailable = errors.New("googlebooks: unavailable")
)

// Error describes a failed call. Status is 0 when no response arrived.
type Error struct {
	Op     string
	Status int
	Err    error
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("googlebooks: %s: status %d: %v", e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("googlebooks: %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Config configures a Client. Zero values fall back to the defaults above.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
	RPS     float64
}

// Client talks to Google Books. It is safe for concurrent use.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger
}

// NewClient builds a Client from cfg.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.RPS <= 0 {
		cfg.RPS = DefaultRPS
	}
	if cfg.APIKey == placeholderKey {
		cfg.APIKey = ""
	}
	burst := int(cfg.RPS)
	if burst < 1 {
		burst = 1
	}

	return &Client{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    rate.NewLimiter(rate.Limit(cfg.RPS), burst),
		logger:     logger,
	}
}

// Search runs a volumes query. The returned count is the number of volumes
// decoded from this page, not Google's totalItems estimate.
func (c *Client) Search(ctx context.Context, query string, limit, offset int) ([]model.BookData, int, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("maxResults", strconv.Itoa(limit))
	params.Set("startIndex", strconv.Itoa(offset))
	c.addKey(params)

	var resp volumesResponse
	if err := c.get(ctx, "search", c.baseURL+"?"+params.Encode(), &resp); err != nil {
		return nil, 0, err
	}

	books := make([]model.BookData, 0, len(resp.Items))
	for i := range resp.Items {
		if resp.Items[i].ID == "" {
			continue
		}
		books = append(books, resp.Items[i].toBookData())
	}

	c.logger.Debug("google books search",
		slog.String("query", query),
		slog.Int("results", len(books)),
	)
	return books, len(books), nil
}

// Get fetches one volume by id.
func (c *Client) Get(ctx context.Context, id string) (*model.BookData, error) {
	target := c.baseURL + "/" + url.PathEscape(id)
	params := url.Values{}
	c.addKey(params)
	if len(params) > 0 {
		target += "?" + params.Encode()
	}

	var v volume
	if err := c.get(ctx, "get", target, &v); err != nil {
		return nil, err
	}
	if v.ID == "" {
		return nil, &Error{Op: "get", Err: ErrNotFound}
	}

	d := v.toBookData()
	return &d, nil
}

func (c *Client) addKey(params url.Values) {
	if c.apiKey != "" {
		params.Set("key", c.apiKey)
	}
}

// get performs a rate-limited GET and decodes a 200 response into out.
func (c *Client) get(ctx context.Context, op, target string, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return &Error{Op: op, Err: fmt.Errorf("%w: waiting for rate limiter: %w", ErrUnavailable, err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return &Error{Op: op, Err: fmt.Errorf("%w: building request: %w", ErrUnavailable, err)}
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("google books request failed",
			slog.String("op", op),
			slog.Duration("elapsed", time.Since(start)),
			slog.String("error", err.Error()),
		)
		return &Error{Op: op, Err: fmt.Errorf("%w: %w", ErrUnavailable, err)}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return &Error{Op: op, Status: resp.StatusCode, Err: ErrNotFound}
	case resp.StatusCode == http.StatusTooManyRequests:
		return &Error{Op: op, Status: resp.StatusCode, Err: ErrRateLimited}
	case resp.StatusCode >= http.StatusBadRequest:
		// Drain a little so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return &Error{Op: op, Status: resp.StatusCode, Err: ErrUnavailable}
	}

	dec := jsoniter.ConfigCompatibleWithStandardLibrary.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes))
	if err := dec.Decode(out); err != nil {
		return &Error{Op: op, Status: resp.StatusCode, Err: fmt.Errorf("%w: decoding response: %w", ErrUnavailable, err)}
	}
	return nil
}
