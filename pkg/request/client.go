package request

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/publicsuffix"

	"wikiquery/pkg/tracker"
	"wikiquery/pkg/version"
)

var defaultUserAgent = fmt.Sprintf("wikiquery/%s (Go MediaWiki query client)", version.Version)

// ErrMaxRetries is returned when every attempt hit a retryable failure.
var ErrMaxRetries = errors.New("max retries exceeded")

// StatusError reports a non-retryable HTTP status.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("api error: status %d", e.Code)
}

// ClientConfig holds transport settings.
type ClientConfig struct {
	Retries   int
	Timeout   time.Duration
	BaseDelay time.Duration
	MaxDelay  time.Duration
	Gap       time.Duration // pause between two requests to the same provider
	UserAgent string
	Logger    *slog.Logger
}

// Client handles HTTP requests with per-provider queuing, cookies and tracking.
type Client struct {
	httpClient *http.Client
	tracker    *tracker.Tracker
	backoff    *ProviderBackoff
	cfg        ClientConfig
	logger     *slog.Logger

	// Queues per provider (domain)
	queues map[string]chan job
	mu     sync.Mutex // Protects queues map
}

// job represents a queued request.
type job struct {
	req      *http.Request
	body     []byte
	headers  map[string]string
	respChan chan jobResult
}

type jobResult struct {
	body []byte
	err  error
}

// New creates a new Client. Cookies set by a server are kept for the life
// of the Client and sent back on later requests to the same site.
func New(t *tracker.Tracker, cfg ClientConfig) *Client {
	if cfg.Retries < 1 {
		cfg.Retries = 1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Minute
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = 500 * time.Millisecond
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = 30 * time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if t == nil {
		t = tracker.New()
	}

	// cookiejar.New never returns a non-nil error.
	jar, _ := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})

	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout, Jar: jar},
		tracker:    t,
		backoff:    NewProviderBackoff(cfg.BaseDelay, cfg.MaxDelay),
		cfg:        cfg,
		logger:     logger,
		queues:     make(map[string]chan job),
	}
}

// Tracker returns the statistics tracker fed by this client.
func (c *Client) Tracker() *tracker.Tracker { return c.tracker }

// Get performs a GET request.
func (c *Client) Get(ctx context.Context, u string) ([]byte, error) {
	return c.GetWithHeaders(ctx, u, nil)
}

// GetWithHeaders performs a GET request with custom headers.
func (c *Client) GetWithHeaders(ctx context.Context, u string, headers map[string]string) ([]byte, error) {
	return c.do(ctx, http.MethodGet, u, nil, headers)
}

// PostForm performs a form-encoded POST request.
func (c *Client) PostForm(ctx context.Context, u string, form url.Values) ([]byte, error) {
	return c.do(ctx, http.MethodPost, u, []byte(form.Encode()), map[string]string{
		"Content-Type": "application/x-www-form-urlencoded",
	})
}

func (c *Client) do(ctx context.Context, method, u string, body []byte, headers map[string]string) ([]byte, error) {
	parsedURL, err := url.Parse(u)
	if err != nil {
		return nil, fmt.Errorf("invalid url: %w", err)
	}
	provider := normalizeProvider(parsedURL.Host)

	req, err := http.NewRequestWithContext(ctx, method, u, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	respChan := make(chan jobResult, 1)
	c.dispatch(provider, job{req: req, body: body, headers: headers, respChan: respChan})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-respChan:
		return res.body, res.err
	}
}

// normalizeProvider groups the subdomains of the big wiki farms so that
// they share one queue.
func normalizeProvider(host string) string {
	for _, farm := range []string{"wikipedia.org", "wikimedia.org", "wikidata.org", "wiktionary.org"} {
		if host == farm || strings.HasSuffix(host, "."+farm) {
			return farm
		}
	}
	return host
}

// dispatch sends the job to the provider's queue, creating the queue/worker if needed.
func (c *Client) dispatch(provider string, j job) {
	c.mu.Lock()
	defer c.mu.Unlock()

	q, ok := c.queues[provider]
	if !ok {
		q = make(chan job, 100)
		c.queues[provider] = q
		go c.worker(provider, q)
	}

	// We block here if the queue is full, effectively throttling the caller
	select {
	case q <- j:
	case <-j.req.Context().Done():
		j.respChan <- jobResult{err: j.req.Context().Err()}
	}
}

// worker processes requests for a specific provider sequentially.
func (c *Client) worker(provider string, q <-chan job) {
	for j := range q {
		if j.req.Context().Err() != nil {
			c.logger.Warn("Job dropped from queue (context expired)", "provider", provider, "error", j.req.Context().Err())
			j.respChan <- jobResult{err: j.req.Context().Err()}
			continue
		}

		uaMatch := false
		for k, v := range j.headers {
			j.req.Header.Set(k, v)
			if http.CanonicalHeaderKey(k) == "User-Agent" {
				uaMatch = true
			}
		}
		if !uaMatch {
			j.req.Header.Set("User-Agent", c.cfg.UserAgent)
		}

		if err := c.backoff.Wait(j.req.Context(), provider); err != nil {
			j.respChan <- jobResult{err: err}
			continue
		}
		body, err := c.executeWithBackoff(provider, j)

		if err == nil {
			c.backoff.RecordSuccess(provider)
			c.tracker.TrackSuccess(provider, len(body))
		} else {
			var se *StatusError
			if !errors.As(err, &se) && j.req.Context().Err() == nil {
				c.backoff.RecordFailure(provider)
			}
			c.tracker.TrackFailure(provider)
		}

		j.respChan <- jobResult{body: body, err: err}

		if c.cfg.Gap > 0 {
			time.Sleep(c.cfg.Gap)
		}
	}
}

// executeWithBackoff attempts the request with exponential backoff on retryable errors.
func (c *Client) executeWithBackoff(provider string, j job) ([]byte, error) {
	req := j.req
	for attempt := 0; attempt < c.cfg.Retries; attempt++ {
		if req.Context().Err() != nil {
			return nil, req.Context().Err()
		}
		if attempt > 0 {
			c.tracker.TrackRetry(provider)
		}
		if j.body != nil {
			req.Body = io.NopCloser(bytes.NewReader(j.body))
			req.ContentLength = int64(len(j.body))
		}

		c.logger.Debug("Network Request", "method", req.Method, "host", req.URL.Host, "path", req.URL.Path, "attempt", attempt+1)
		resp, err := c.httpClient.Do(req)

		if err != nil {
			if req.Context().Err() != nil {
				return nil, req.Context().Err()
			}
			c.logger.Warn("Request failed, retrying", "url", req.URL.Redacted(), "attempt", attempt+1, "error", err)
			if !c.sleep(req.Context(), attempt) {
				return nil, req.Context().Err()
			}
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests || (resp.StatusCode >= 500 && resp.StatusCode < 600) {
			resp.Body.Close()
			c.logger.Warn("API Backoff", "status", resp.StatusCode, "url", req.URL.Redacted(), "attempt", attempt+1)
			if !c.sleep(req.Context(), attempt) {
				return nil, req.Context().Err()
			}
			continue
		}

		if resp.StatusCode >= 400 {
			resp.Body.Close()
			return nil, &StatusError{Code: resp.StatusCode}
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("read error: %w", err)
		}
		return body, nil
	}

	return nil, ErrMaxRetries
}

// sleep waits out the backoff for attempt; it reports false if ctx ended first.
func (c *Client) sleep(ctx context.Context, attempt int) bool {
	d := time.Duration(math.Pow(2, float64(attempt))) * c.cfg.BaseDelay
	if d > c.cfg.MaxDelay {
		d = c.cfg.MaxDelay
	}
	select {
	case <-time.After(d):
		return true
	case <-ctx.Done():
		return false
	}
}
