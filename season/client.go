package season

import (
	"context"
	"io"
	"log"
	"net/http"
	"time"

	"f1countdown/model"

	"github.com/pkg/errors"
)

const (
	// Ergast is the primary source, the jolpi.ca mirror serves the same document.
	ErgastURL  = "https://ergast.com/api/f1/current.json"
	JolpicaURL = "https://api.jolpi.ca/ergast/f1/current.json"

	maxBodyBytes = 8 << 20
	userAgent    = "f1countdown"
)

// DefaultEndpoints is the ordered list tried by FetchSeason.
var DefaultEndpoints = []string{ErgastURL, JolpicaURL}

// Client fetches the current season from an ordered list of endpoints,
// falling back to the next one whenever an endpoint fails.
type Client struct {
	endpoints  []string
	httpClient *http.Client
	timeout    time.Duration
}

type ClientOption func(*Client)

// WithHTTPClient replaces http.DefaultClient.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout bounds a whole FetchSeason pass, across every endpoint.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.timeout = d
	}
}

func NewClient(endpoints []string, opts ...ClientOption) *Client {
	c := &Client{
		endpoints:  append([]string(nil), endpoints...),
		httpClient: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Endpoints returns the endpoints in the order they are tried.
func (c *Client) Endpoints() []string {
	return append([]string(nil), c.endpoints...)
}

// FetchSeason makes a single pass over the endpoints and returns the weekends
// of the first one that answers with a non-empty, well formed calendar. When
// all of them fail the result is a *FetchError wrapping the last failure.
func (c *Client) FetchSeason(ctx context.Context) ([]model.RaceWeekend, error) {
	if len(c.endpoints) == 0 {
		return nil, &FetchError{Err: ErrNoEndpoints}
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var lastErr error
	attempts := 0
	for _, endpoint := range c.endpoints {
		attempts++
		weekends, err := c.fetchEndpoint(ctx, endpoint)
		if err == nil {
			return weekends, nil
		}
		log.Printf("Season endpoint %s failed: %v", endpoint, err)
		lastErr = err
		if ctx.Err() != nil {
			break
		}
	}
	return nil, &FetchError{Attempts: attempts, Err: lastErr}
}

func (c *Client) fetchEndpoint(ctx context.Context, endpoint string) ([]model.RaceWeekend, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, errors.Wrap(err, "building request")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "http GET error")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, errors.Wrapf(ErrBadStatus, "status code %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, errors.Wrap(err, "failed to read response body")
	}

	return parseRaces(body)
}
