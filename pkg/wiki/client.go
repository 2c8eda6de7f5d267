package wiki

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"sync"

	"wikiquery/pkg/request"
	"wikiquery/pkg/wiki/query"
)

// maxGETQuery is the longest query string sent as a GET; longer ones, such
// as batches of 50 long titles, are POSTed.
const maxGETQuery = 2000

// Options tune a Client. Zero values select the defaults.
type Options struct {
	MaxResultLimit int
	GroupSize      int
	Logger         *slog.Logger
}

// Client handles MediaWiki API interactions.
type Client struct {
	request  *request.Client
	endpoint string
	coord    *query.Coordinator
	logger   *slog.Logger

	mu         sync.RWMutex
	namespaces *NamespaceTable
}

// NewClient creates a client for the api.php at endpoint.
func NewClient(r *request.Client, endpoint string, opts Options) *Client {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	c := &Client{
		request:    r,
		endpoint:   endpoint,
		logger:     logger,
		namespaces: DefaultNamespaces(),
	}
	c.coord = query.NewCoordinator(&apiTransport{request: r, endpoint: endpoint}, query.Options{
		MaxResultLimit: opts.MaxResultLimit,
		GroupSize:      opts.GroupSize,
		Logger:         logger,
	})
	return c
}

// Endpoint returns the api.php URL.
func (c *Client) Endpoint() string { return c.endpoint }

// Coordinator exposes the batch coordinator for queries the client has no
// method for.
func (c *Client) Coordinator() *query.Coordinator { return c.coord }

// Namespaces returns the namespace table in use. It holds the canonical
// English names until LoadNamespaces succeeds.
func (c *Client) Namespaces() *NamespaceTable {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.namespaces
}

// LoadNamespaces replaces the namespace table with the wiki's own names and
// aliases.
func (c *Client) LoadNamespaces(ctx context.Context) error {
	r, err := c.single(ctx, c.coord.NewSession(query.Namespaces))
	if err != nil {
		return err
	}
	t, err := parseNamespaces(r)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.namespaces = t
	c.mu.Unlock()
	return nil
}

// single fetches exactly one page.
func (c *Client) single(ctx context.Context, s *query.Session) (*query.Reply, error) {
	page, err := s.Next(ctx)
	if err != nil {
		return nil, err
	}
	switch page.Status {
	case query.PageOK:
		return page.Reply, nil
	case query.PageFailed:
		return nil, page.Err
	}
	return nil, fmt.Errorf("%w: session already exhausted", ErrUnexpectedReply)
}

// drain feeds every page of s to fn. A failed page aborts with its error.
func (c *Client) drain(ctx context.Context, s *query.Session, fn func(*query.Reply)) error {
	for s.HasNext() {
		page, err := s.Next(ctx)
		if err != nil {
			return err
		}
		switch page.Status {
		case query.PageOK:
			fn(page.Reply)
		case query.PageFailed:
			return page.Err
		}
	}
	return nil
}

// drainList collects the records of the list module key over all pages.
func (c *Client) drainList(ctx context.Context, s *query.Session, key string) ([]json.RawMessage, error) {
	recs := []json.RawMessage{}
	err := c.drain(ctx, s, func(r *query.Reply) {
		recs = append(recs, r.List(key)...)
	})
	if err != nil {
		return nil, err
	}
	return recs, nil
}

// apiTransport adapts the queued request client to query.Transport.
type apiTransport struct {
	request  *request.Client
	endpoint string
}

func (t *apiTransport) Get(ctx context.Context, params map[string]string) ([]byte, error) {
	form := url.Values{}
	for k, v := range params {
		form.Set(k, v)
	}

	var body []byte
	var err error
	if encoded := form.Encode(); len(encoded) > maxGETQuery {
		body, err = t.request.PostForm(ctx, t.endpoint, form)
	} else {
		u, perr := url.Parse(t.endpoint)
		if perr != nil {
			return nil, fmt.Errorf("invalid api endpoint: %w", perr)
		}
		u.RawQuery = encoded
		body, err = t.request.Get(ctx, u.String())
	}
	if err != nil {
		return nil, err
	}

	var probe struct {
		Error *APIError `json:"error"`
	}
	if json.Unmarshal(body, &probe) == nil && probe.Error != nil {
		return nil, probe.Error
	}
	return body, nil
}
