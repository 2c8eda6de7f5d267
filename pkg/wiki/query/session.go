package query

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"wikiquery/pkg/logging"
)

// Transport performs one GET against the API with the given query parameters
// and returns the raw body.
type Transport interface {
	Get(ctx context.Context, params map[string]string) ([]byte, error)
}

// DefaultMaxResultLimit is the page-size ceiling most MediaWiki installs grant
// to non-bot users.
const DefaultMaxResultLimit = 500

// PageStatus classifies the outcome of Session.Next.
type PageStatus int

const (
	// PageOK means Reply holds a decoded page.
	PageOK PageStatus = iota
	// PageExhausted means the session was already done; no request was made.
	PageExhausted
	// PageFailed means the transport or decoder failed; Err holds the cause.
	PageFailed
)

func (s PageStatus) String() string {
	switch s {
	case PageOK:
		return "ok"
	case PageExhausted:
		return "exhausted"
	default:
		return "failed"
	}
}

// Page is the result of one Session.Next call.
type Page struct {
	Status PageStatus
	Reply  *Reply
	Err    error
}

// Session drives the continuation loop of one logical query. A Session owns
// its parameter map and must not be shared between queries or goroutines.
type Session struct {
	id          string
	transport   Transport
	logger      *slog.Logger
	params      map[string]string
	pending     map[string]struct{}
	limitParams []string
	module      string
	ceiling     int
	pageLimit   int
	totalLimit  int
	count       int
	done        bool
}

// NewSession seeds a session from the defaults of every template. ceiling is
// the server's page-size ceiling; values below 1 fall back to
// DefaultMaxResultLimit.
func NewSession(t Transport, ceiling int, templates ...Template) *Session {
	if ceiling < 1 {
		ceiling = DefaultMaxResultLimit
	}

	s := &Session{
		id:         uuid.NewString()[:8],
		transport:  t,
		logger:     slog.Default(),
		params:     map[string]string{"action": "query", "format": "json"},
		pending:    make(map[string]struct{}),
		ceiling:    ceiling,
		pageLimit:  ceiling,
		totalLimit: -1,
	}

	for _, tmpl := range templates {
		maps.Copy(s.params, tmpl.defaults)
		for _, r := range tmpl.required {
			s.pending[r] = struct{}{}
		}
		if tmpl.limitParam != "" {
			s.limitParams = append(s.limitParams, tmpl.limitParam)
		}
		if s.module == "" {
			s.module = tmpl.module
		}
	}
	return s
}

// WithTotalLimit caps the number of items the session fetches over all pages.
// Values of 0 or below mean unbounded.
func (s *Session) WithTotalLimit(n int) *Session {
	if n <= 0 {
		n = -1
	}
	s.totalLimit = n
	return s
}

// WithLogger replaces the logger used for page diagnostics.
func (s *Session) WithLogger(l *slog.Logger) *Session {
	if l != nil {
		s.logger = l
	}
	return s
}

// Set assigns a request parameter. Values are sent as-is; do not URL-encode.
func (s *Session) Set(key, value string) *Session {
	s.params[key] = value
	delete(s.pending, key)
	return s
}

// SetList assigns a multi-valued parameter, joined with "|".
func (s *Session) SetList(key string, values []string) *Session {
	return s.Set(key, strings.Join(values, "|"))
}

// AdjustLimit sets the per-page item count. n <= 0 or n above the ceiling
// requests "max".
func (s *Session) AdjustLimit(n int) *Session {
	value := MaxLimit
	if n <= 0 || n > s.ceiling {
		s.pageLimit = s.ceiling
	} else {
		value = strconv.Itoa(n)
		s.pageLimit = n
	}

	for _, p := range s.limitParams {
		s.params[p] = value
	}
	return s
}

// HasNext reports whether another page may be requested.
func (s *Session) HasNext() bool {
	return !s.done
}

// Params returns a copy of the parameters the next request would use.
func (s *Session) Params() map[string]string {
	return maps.Clone(s.params)
}

// Next fetches the next page. It returns ErrUnsetParameter, without touching
// the network, if a required parameter was never set. All other failures are
// reported through the returned Page and end the session.
func (s *Session) Next(ctx context.Context) (Page, error) {
	if len(s.pending) > 0 {
		missing := make([]string, 0, len(s.pending))
		for k := range s.pending {
			missing = append(missing, k)
		}
		sort.Strings(missing)
		return Page{}, fmt.Errorf("%w: %s", ErrUnsetParameter, strings.Join(missing, ", "))
	}
	if s.done {
		return Page{Status: PageExhausted}, nil
	}

	s.count += s.pageLimit
	if s.totalLimit > 0 && s.count > s.totalLimit {
		s.AdjustLimit(s.pageLimit - (s.count - s.totalLimit))
		s.done = true
	}

	body, err := s.transport.Get(ctx, maps.Clone(s.params))
	if err != nil {
		s.done = true
		s.logger.Warn("Query page failed", "session", s.id, "module", s.module, "error", err)
		return Page{Status: PageFailed, Err: fmt.Errorf("%w: %w", ErrTransport, err)}, nil
	}

	reply, err := NewReply(body, s.module)
	if err != nil {
		s.done = true
		s.logger.Warn("Query page undecodable", "session", s.id, "module", s.module, "error", err)
		return Page{Status: PageFailed, Err: err}, nil
	}

	cont := reply.Continuation()
	if cont.Kind == ContinueNone {
		s.done = true
	} else {
		maps.Copy(s.params, cont.Params)
	}
	// A quota used up exactly on a page boundary would otherwise shrink the
	// following page to zero, which the API reads as "max".
	if s.totalLimit > 0 && s.count >= s.totalLimit {
		s.done = true
	}

	s.logger.Debug("Query page", "session", s.id, "module", s.module, "continuation", cont.Kind.String(), "count", s.count, "done", s.done)
	logging.Trace(s.logger, "Query page body", "session", s.id, "body", string(body))

	return Page{Status: PageOK, Reply: reply}, nil
}
