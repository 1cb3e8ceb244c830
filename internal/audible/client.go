package audible

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"audtag/internal/shared"
)

const (
	// DefaultEndpoint is the public Audible catalog API.
	DefaultEndpoint = "https://api.audible.com"

	requestsPerSecond = 2
)

// Source is the catalog capability the resolution and tagging layers
// depend on. Client is the only production implementation.
type Source interface {
	Search(ctx context.Context, query string, limit int) ([]shared.SearchCandidate, error)
	FetchDetail(ctx context.Context, ref string) (*shared.BookMetadata, error)
	DownloadCover(ctx context.Context, coverURL, savePath string) error
}

// QueryParam is a single query string parameter.
type QueryParam struct {
	Name  string
	Value string
}

// Client talks to the Audible catalog API.
type Client struct {
	endpoint       string
	client         *http.Client
	limiter        *rate.Limiter
	maxRetries     int
	ratingFallback string
	debug          bool
}

// Option configures a Client.
type Option func(*Client)

// WithMaxRetries overrides the retry budget for failed requests.
func WithMaxRetries(n int) Option {
	return func(c *Client) { c.maxRetries = n }
}

// WithRatingFallback sets the sentinel written when the catalog supplies
// no rating.
func WithRatingFallback(v string) Option {
	return func(c *Client) { c.ratingFallback = v }
}

// WithDebug enables request tracing on stdout.
func WithDebug(debug bool) Option {
	return func(c *Client) { c.debug = debug }
}

// NewClient creates a catalog client. An empty endpoint selects the
// public API.
func NewClient(endpoint string, httpClient *http.Client, opts ...Option) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	c := &Client{
		endpoint:       strings.TrimSuffix(endpoint, "/"),
		client:         httpClient,
		limiter:        rate.NewLimiter(rate.Limit(requestsPerSecond), 1),
		maxRetries:     shared.DefaultMaxRetries,
		ratingFallback: "0.1",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// request performs a rate-limited GET with retry on transient failures.
// The caller owns the response body.
func (c *Client) request(ctx context.Context, path string, params []QueryParam) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	u, err := url.Parse(fmt.Sprintf("%s/%s", c.endpoint, strings.TrimPrefix(path, "/")))
	if err != nil {
		return nil, fmt.Errorf("error parsing URL: %w", err)
	}
	if len(params) > 0 {
		q := u.Query()
		for _, p := range params {
			q.Add(p.Name, p.Value)
		}
		u.RawQuery = q.Encode()
	}

	shared.DebugPrint(c.debug, "GET %s", u.String())

	var resp *http.Response
	err = shared.RetryWithBackoff(c.maxRetries, time.Second, 30*time.Second, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
		if err != nil {
			return fmt.Errorf("error creating request: %w", err)
		}
		req.Header.Set("User-Agent", shared.UserAgent)

		resp, err = c.client.Do(req)
		if err != nil {
			return fmt.Errorf("error executing request: %w", err)
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return &shared.HTTPError{StatusCode: resp.StatusCode, Status: resp.Status, URL: u.String()}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

var (
	cdSuffixRe   = regexp.MustCompile(`(?i)[-_ ]*cd ?\d+$`)
	abridgedRe   = regexp.MustCompile(`(?i)\s*\((un)?abridged\)\s*$`)
	narratedByRe = regexp.MustCompile(`(?i)narrated by:\s*`)
	whitespaceRe = regexp.MustCompile(`\s+`)
)

// NormalizeQuery cleans a raw book identifier before it goes to search.
// Trailing disc numbers, abridgement markers and stale narrator prefixes
// are stripped and whitespace is collapsed.
func NormalizeQuery(raw string) string {
	q := cdSuffixRe.ReplaceAllString(raw, "")
	q = abridgedRe.ReplaceAllString(q, "")
	q = narratedByRe.ReplaceAllString(q, "")
	q = strings.ReplaceAll(q, "\t", " ")
	q = whitespaceRe.ReplaceAllString(q, " ")
	return strings.TrimSpace(q)
}

// BuildQuery combines an author hint with a normalized title.
func BuildQuery(authorHint, title string) string {
	title = NormalizeQuery(title)
	if authorHint == "" {
		return title
	}
	return NormalizeQuery(authorHint + " " + title)
}
