// Package pubmed provides a client for the NCBI E-utilities endpoints the
// literature linker uses: esearch to find PMIDs registered against a trial
// and esummary to resolve them into citations.
package pubmed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

// Citation is one resolved PubMed article.
type Citation struct {
	PMID    string
	Title   string
	Source  string
	PubDate string
	DOI     string
}

// Client defines the literature operations the linker uses.
type Client interface {
	// SearchTrial returns the PMIDs of articles registered against the
	// given trial identifier in the secondary-source field.
	SearchTrial(ctx context.Context, nctID string) ([]string, error)
	// Summaries resolves PMIDs into citations. Summaries the endpoint
	// cannot resolve are dropped silently.
	Summaries(ctx context.Context, pmids []string) ([]Citation, error)
	// CitationsForTrial combines both: search, then summaries. An empty
	// search short-circuits without a summary request.
	CitationsForTrial(ctx context.Context, nctID string) ([]Citation, error)
}

// Option configures the PubMed client.
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

// WithIdentity sets the tool and email parameters NCBI asks integrators to
// send.
func WithIdentity(tool, email string) Option {
	return func(c *httpClient) {
		c.tool = tool
		c.email = email
	}
}

// WithDelay sets the minimum spacing between requests. Zero or negative
// disables throttling.
func WithDelay(d time.Duration) Option {
	return func(c *httpClient) {
		if d <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		c.limiter = rate.NewLimiter(rate.Every(d), 1)
	}
}

// WithRetMax caps how many PMIDs a search returns.
func WithRetMax(n int) Option {
	return func(c *httpClient) {
		c.retMax = n
	}
}

type httpClient struct {
	baseURL string
	tool    string
	email   string
	retMax  int
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates a PubMed client. The default throttle spaces requests
// 400ms apart, under NCBI's 3-requests-per-second ceiling for anonymous
// clients.
func NewClient(opts ...Option) Client {
	c := &httpClient{
		baseURL: "https://eutils.ncbi.nlm.nih.gov/entrez/eutils",
		tool:    "trialwatch",
		retMax:  200,
		http: &http.Client{
			Timeout: 30 * time.Second,
		},
		limiter: rate.NewLimiter(rate.Every(400*time.Millisecond), 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) SearchTrial(ctx context.Context, nctID string) ([]string, error) {
	// The SI (secondary source ID) field carries trial registry links in
	// both the bare and prefixed forms.
	term := fmt.Sprintf(`("ClinicalTrials.gov/%s"[SI] OR "%s"[SI])`, nctID, nctID)

	q := url.Values{}
	q.Set("db", "pubmed")
	q.Set("retmode", "json")
	q.Set("retmax", strconv.Itoa(c.retMax))
	q.Set("term", term)
	c.identify(q)

	body, err := c.get(ctx, c.baseURL+"/esearch.fcgi?"+q.Encode())
	if err != nil {
		return nil, err
	}

	var resp struct {
		ESearchResult struct {
			IDList []string `json:"idlist"`
		} `json:"esearchresult"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, eris.Wrapf(err, "pubmed: unmarshal esearch %s", nctID)
	}
	return resp.ESearchResult.IDList, nil
}

func (c *httpClient) Summaries(ctx context.Context, pmids []string) ([]Citation, error) {
	if len(pmids) == 0 {
		return nil, nil
	}

	q := url.Values{}
	q.Set("db", "pubmed")
	q.Set("retmode", "json")
	q.Set("id", strings.Join(pmids, ","))
	c.identify(q)

	body, err := c.get(ctx, c.baseURL+"/esummary.fcgi?"+q.Encode())
	if err != nil {
		return nil, err
	}

	var resp struct {
		Result map[string]json.RawMessage `json:"result"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, eris.Wrap(err, "pubmed: unmarshal esummary")
	}

	citations := make([]Citation, 0, len(pmids))
	for _, pmid := range pmids {
		raw, ok := resp.Result[pmid]
		if !ok {
			continue
		}
		var entry struct {
			Title           string `json:"title"`
			Source          string `json:"source"`
			FullJournalName string `json:"fulljournalname"`
			PubDate         string `json:"pubdate"`
			ELocationID     string `json:"elocationid"`
			Error           string `json:"error"`
			ArticleIDs  []struct {
				IDType string `json:"idtype"`
				Value  string `json:"value"`
			} `json:"articleids"`
		}
		// Summaries the endpoint cannot resolve are dropped, not fatal.
		if err := json.Unmarshal(raw, &entry); err != nil || entry.Error != "" {
			continue
		}
		// Prefer the explicit DOI article ID; fall back to elocationid,
		// which carries DOIs with a "doi:" prefix.
		doi := ""
		for _, id := range entry.ArticleIDs {
			if id.IDType == "doi" && id.Value != "" {
				doi = id.Value
				break
			}
		}
		if doi == "" && strings.Contains(strings.ToLower(entry.ELocationID), "doi") {
			doi = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(entry.ELocationID), "doi:"))
		}

		source := entry.FullJournalName
		if source == "" {
			source = entry.Source
		}

		citations = append(citations, Citation{
			PMID:    pmid,
			Title:   entry.Title,
			Source:  source,
			PubDate: entry.PubDate,
			DOI:     doi,
		})
	}
	return citations, nil
}

func (c *httpClient) CitationsForTrial(ctx context.Context, nctID string) ([]Citation, error) {
	pmids, err := c.SearchTrial(ctx, nctID)
	if err != nil {
		return nil, err
	}
	if len(pmids) == 0 {
		return nil, nil
	}
	return c.Summaries(ctx, pmids)
}

func (c *httpClient) identify(q url.Values) {
	if c.tool != "" {
		q.Set("tool", c.tool)
	}
	if c.email != "" {
		q.Set("email", c.email)
	}
}

// get performs one GET. Like the registry client, failures are fatal
// rather than retried.
func (c *httpClient) get(ctx context.Context, reqURL string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "pubmed: throttle wait")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "pubmed: create request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "pubmed: request failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "pubmed: read response body")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("pubmed: unexpected status %d: %s", resp.StatusCode, string(body))
	}
	return body, nil
}
