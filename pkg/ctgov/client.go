// Package ctgov provides a client for the ClinicalTrials.gov v2 API.
package ctgov

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

// Client defines the registry operations the pipeline uses.
type Client interface {
	// ForEachStudy pages through search results for the given query
	// parameters, invoking fn for every raw study document. It returns the
	// number of studies received. A non-nil error from fn aborts the walk.
	ForEachStudy(ctx context.Context, params map[string]string, pageSize, maxPages int, fn func(study map[string]any) error) (int, error)
	// GetStudy fetches a single study by its NCT identifier.
	GetStudy(ctx context.Context, nctID string) (map[string]any, error)
	// Version reports the registry API and data versions.
	Version(ctx context.Context) (map[string]any, error)
}

// Option configures the registry client.
type Option func(*httpClient)

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(u string) Option {
	return func(c *httpClient) {
		c.baseURL = u
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(ua string) Option {
	return func(c *httpClient) {
		c.userAgent = ua
	}
}

// WithPageDelay sets the minimum spacing between page requests. Zero or
// negative disables throttling.
func WithPageDelay(d time.Duration) Option {
	return func(c *httpClient) {
		if d <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		c.limiter = rate.NewLimiter(rate.Every(d), 1)
	}
}

type httpClient struct {
	baseURL   string
	userAgent string
	http      *http.Client
	limiter   *rate.Limiter
}

// NewClient creates a registry client. The default throttle spaces page
// requests 250ms apart; the registry asks integrators to stay polite.
func NewClient(opts ...Option) Client {
	c := &httpClient{
		baseURL:   "https://clinicaltrials.gov/api/v2",
		userAgent: "trialwatch/1.0",
		http: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 4,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		limiter: rate.NewLimiter(rate.Every(250*time.Millisecond), 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// studiesPage is the paged search response envelope.
type studiesPage struct {
	Studies       []map[string]any `json:"studies"`
	NextPageToken string           `json:"nextPageToken"`
}

func (c *httpClient) ForEachStudy(ctx context.Context, params map[string]string, pageSize, maxPages int, fn func(study map[string]any) error) (int, error) {
	if pageSize <= 0 {
		pageSize = 100
	}

	received := 0
	pageToken := ""
	for page := 0; maxPages <= 0 || page < maxPages; page++ {
		// The limiter starts with a full token, so the first page goes out
		// immediately and later pages are spaced by the configured delay.
		if err := c.limiter.Wait(ctx); err != nil {
			return received, eris.Wrap(err, "ctgov: throttle wait")
		}

		q := url.Values{}
		for k, v := range params {
			q.Set(k, v)
		}
		q.Set("format", "json")
		q.Set("pageSize", strconv.Itoa(pageSize))
		if pageToken != "" {
			q.Set("pageToken", pageToken)
		}

		body, header, err := c.get(ctx, c.baseURL+"/studies?"+q.Encode())
		if err != nil {
			return received, err
		}

		var pageResp studiesPage
		if err := json.Unmarshal(body, &pageResp); err != nil {
			return received, eris.Wrap(err, "ctgov: unmarshal studies page")
		}

		for _, study := range pageResp.Studies {
			if err := fn(study); err != nil {
				return received, err
			}
			received++
		}

		// The body token is authoritative; older deployments only sent the
		// header. No token means the walk is done.
		pageToken = pageResp.NextPageToken
		if pageToken == "" {
			pageToken = header.Get("X-Next-Page-Token")
		}
		if pageToken == "" {
			return received, nil
		}
	}
	return received, nil
}

func (c *httpClient) GetStudy(ctx context.Context, nctID string) (map[string]any, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "ctgov: throttle wait")
	}

	body, _, err := c.get(ctx, fmt.Sprintf("%s/studies/%s?format=json", c.baseURL, url.PathEscape(nctID)))
	if err != nil {
		return nil, err
	}

	var study map[string]any
	if err := json.Unmarshal(body, &study); err != nil {
		return nil, eris.Wrapf(err, "ctgov: unmarshal study %s", nctID)
	}
	return study, nil
}

func (c *httpClient) Version(ctx context.Context) (map[string]any, error) {
	body, _, err := c.get(ctx, c.baseURL+"/version")
	if err != nil {
		return nil, err
	}

	var v map[string]any
	if err := json.Unmarshal(body, &v); err != nil {
		return nil, eris.Wrap(err, "ctgov: unmarshal version")
	}
	return v, nil
}

// get performs one GET. Registry errors are fatal: a failed page aborts
// the whole walk rather than retrying into a rate-limit spiral.
func (c *httpClient) get(ctx context.Context, reqURL string) ([]byte, http.Header, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, nil, eris.Wrap(err, "ctgov: create request")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, nil, eris.Wrap(err, "ctgov: request failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, eris.Wrap(err, "ctgov: read response body")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, nil, eris.Errorf("ctgov: unexpected status %d: %s", resp.StatusCode, string(body))
	}
	return body, resp.Header, nil
}
