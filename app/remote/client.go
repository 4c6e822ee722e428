// Package remote is a typed client for the poetry API. It performs no
// retries and no fallback of its own: every failure mode (unreachable host,
// timeout, non-2xx status, malformed body) is normalized to ErrUnavailable
// so callers only have to make a single degrade-to-local decision.
package remote

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"context"

	"golang.org/x/time/rate"
)

// ErrUnavailable is returned for every failed remote call. Use errors.Is to
// detect it; the underlying cause is wrapped for logging.
var ErrUnavailable = errors.New("remote service unavailable")

type Client struct {
	base    *url.URL
	client  *http.Client
	limiter *rate.Limiter
}

// New creates a Client for the given base URL. Every request carries the
// given timeout. speed is the maximum number of requests per minute.
func New(baseURL string, timeout time.Duration, speed int) (*Client, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid remote base URL %q: %w", baseURL, err)
	}

	if speed <= 0 {
		speed = 60
	}

	return &Client{
		base:    base,
		client:  &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(rate.Limit(float64(speed)/60.0), speed),
	}, nil
}

// Search runs a mixed poem search. poemLimit bounds the number of poem
// results the service returns.
func (c *Client) Search(ctx context.Context, query string, poemLimit int) (*SearchResponse, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("poem_limit", strconv.Itoa(poemLimit))

	response := &SearchResponse{}
	if err := c.get(ctx, "/search", params, response); err != nil {
		return nil, err
	}
	return response, nil
}

func (c *Client) GetPoem(ctx context.Context, id string) (*Poem, error) {
	poem := &Poem{}
	if err := c.get(ctx, "/items/"+url.PathEscape(id), nil, poem); err != nil {
		return nil, err
	}
	return poem, nil
}

// GetPage fetches one page of the poem listing. author may be empty for the
// unscoped listing.
func (c *Client) GetPage(ctx context.Context, author string, page int, size int, sort string, order string) (*PageResponse, error) {
	params := url.Values{}
	params.Set("page", strconv.Itoa(page))
	params.Set("size", strconv.Itoa(size))
	if author != "" {
		params.Set("partition", author)
	}
	if sort != "" {
		params.Set("sort", sort)
	}
	if order != "" {
		params.Set("order", order)
	}

	response := &PageResponse{}
	if err := c.get(ctx, "/items", params, response); err != nil {
		return nil, err
	}
	return response, nil
}

func (c *Client) GetRandom(ctx context.Context) (*Poem, error) {
	poem := &Poem{}
	if err := c.get(ctx, "/items/random", nil, poem); err != nil {
		return nil, err
	}
	return poem, nil
}

// Health reports whether the service answered its health endpoint.
func (c *Client) Health(ctx context.Context) bool {
	return c.get(ctx, "/health", nil, &struct{}{}) == nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	target := c.base.JoinPath(path)
	if params != nil {
		target.RawQuery = params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")

	res, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return fmt.Errorf("%w: unexpected status %v for %v", ErrUnavailable, res.StatusCode, path)
	}

	// Unknown fields are ignored and missing optionals keep their zero
	// values, so schema additions on the service side don't break us.
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decoding %v response: %v", ErrUnavailable, path, err)
	}

	return nil
}
