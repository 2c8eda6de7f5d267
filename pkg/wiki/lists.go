package wiki

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"wikiquery/pkg/wiki/query"
)

// Continuation list queries. A cap of 0 or below fetches everything.

// dirNewer makes the API enumerate oldest first; its start/end naming is
// reversed relative to time.
const dirNewer = "newer"

// AllPagesOptions filters AllPages.
type AllPagesOptions struct {
	Prefix        string // title prefix without namespace
	Namespace     *NS
	RedirectsOnly bool
	ProtectedOnly bool
	Cap           int
}

// AllPages lists page titles on the wiki.
func (c *Client) AllPages(ctx context.Context, opts AllPagesOptions) ([]string, error) {
	c.logger.Debug("Listing all pages", "prefix", opts.Prefix, "cap", opts.Cap)

	s := c.coord.NewSession(query.AllPages).WithTotalLimit(opts.Cap)
	if opts.Prefix != "" {
		s.Set("apprefix", opts.Prefix)
	}
	if opts.Namespace != nil {
		s.Set("apnamespace", strconv.Itoa(int(*opts.Namespace)))
	}
	if opts.RedirectsOnly {
		s.Set("apfilterredir", "redirects")
	}
	if opts.ProtectedOnly {
		s.Set("apprtype", "edit|move|upload")
	}

	recs, err := c.drainList(ctx, s, query.AllPages.ResultKey())
	if err != nil {
		return nil, err
	}
	return stringsOf(recs, "title"), nil
}

// PrefixIndex lists the titles in ns starting with prefix, like
// Special:PrefixIndex. End prefix with "/" to list subpages only.
func (c *Client) PrefixIndex(ctx context.Context, ns NS, prefix string) ([]string, error) {
	return c.AllPages(ctx, AllPagesOptions{Prefix: prefix, Namespace: &ns})
}

// CategoryMembers lists the titles in a category. The Category: prefix is
// added if missing. Members skipped by the ns filter still count against cap.
func (c *Client) CategoryMembers(ctx context.Context, title string, limit int, ns ...NS) ([]string, error) {
	c.logger.Debug("Listing category members", "category", title, "cap", limit)

	s := c.coord.NewSession(query.CategoryMembers).
		WithTotalLimit(limit).
		Set("cmtitle", c.Namespaces().ConvertIfNotInNS(title, NSCategory))
	if len(ns) > 0 {
		s.Set("cmnamespace", Filter(ns...))
	}

	recs, err := c.drainList(ctx, s, query.CategoryMembers.ResultKey())
	if err != nil {
		return nil, err
	}
	return stringsOf(recs, "title"), nil
}

// Contribs lists a user's edits, newest first unless olderFirst is set.
func (c *Client) Contribs(ctx context.Context, user string, limit int, olderFirst bool, ns ...NS) ([]Contrib, error) {
	c.logger.Debug("Listing contributions", "user", user, "cap", limit)

	s := c.coord.NewSession(query.UserContribs).
		WithTotalLimit(limit).
		Set("ucuser", c.Namespaces().Strip(user))
	if len(ns) > 0 {
		s.Set("ucnamespace", Filter(ns...))
	}
	if olderFirst {
		s.Set("ucdir", dirNewer)
	}

	recs, err := c.drainList(ctx, s, query.UserContribs.ResultKey())
	if err != nil {
		return nil, err
	}
	return decodeAll[Contrib](recs), nil
}

// LogQuery filters Logs. Empty fields are not filtered on.
type LogQuery struct {
	Title string
	User  string
	Type  string // e.g. delete, upload, patrol
	Cap   int
}

// Logs lists log events, newest first.
func (c *Client) Logs(ctx context.Context, q LogQuery) ([]LogEntry, error) {
	c.logger.Debug("Listing log events", "title", q.Title, "user", q.User, "type", q.Type, "cap", q.Cap)

	s := c.coord.NewSession(query.LogEvents).WithTotalLimit(q.Cap)
	if q.Title != "" {
		s.Set("letitle", q.Title)
	}
	if q.User != "" {
		s.Set("leuser", c.Namespaces().Strip(q.User))
	}
	if q.Type != "" {
		s.Set("letype", q.Type)
	}

	recs, err := c.drainList(ctx, s, query.LogEvents.ResultKey())
	if err != nil {
		return nil, err
	}
	return decodeAll[LogEntry](recs), nil
}

// ProtectedTitles lists create-protected titles.
func (c *Client) ProtectedTitles(ctx context.Context, limit int, olderFirst bool, ns ...NS) ([]ProtectedTitle, error) {
	c.logger.Debug("Listing protected titles", "cap", limit)

	s := c.coord.NewSession(query.ProtectedTitles).WithTotalLimit(limit)
	if len(ns) > 0 {
		s.Set("ptnamespace", Filter(ns...))
	}
	if olderFirst {
		s.Set("ptdir", dirNewer)
	}

	recs, err := c.drainList(ctx, s, query.ProtectedTitles.ResultKey())
	if err != nil {
		return nil, err
	}
	return decodeAll[ProtectedTitle](recs), nil
}

// RandomPages returns up to limit random non-redirect titles.
func (c *Client) RandomPages(ctx context.Context, limit int, ns ...NS) ([]string, error) {
	if limit < 0 {
		return nil, fmt.Errorf("%w: random page limit %d is negative", ErrInvalidArgument, limit)
	}
	c.logger.Debug("Fetching random pages", "limit", limit)

	s := c.coord.NewSession(query.Random).WithTotalLimit(limit)
	if len(ns) > 0 {
		s.Set("rnnamespace", Filter(ns...))
	}

	recs, err := c.drainList(ctx, s, query.Random.ResultKey())
	if err != nil {
		return nil, err
	}
	return stringsOf(recs, "title"), nil
}

// recentWindow is the span RecentChanges covers when start is zero.
const recentWindow = 30 * time.Second

// RecentChanges lists the changes made between start and end, newest first.
// A zero start selects the last 30 seconds; a zero end means up to now.
func (c *Client) RecentChanges(ctx context.Context, start, end time.Time) ([]RecentChange, error) {
	if start.IsZero() {
		end = time.Now().UTC()
		start = end.Add(-recentWindow)
	} else if !end.IsZero() && end.Before(start) {
		return nil, fmt.Errorf("%w: end %s is before start %s", ErrInvalidArgument, end.Format(time.RFC3339), start.Format(time.RFC3339))
	}
	c.logger.Debug("Listing recent changes", "start", start, "end", end)

	s := c.coord.NewSession(query.RecentChanges).Set("rcend", start.UTC().Format(time.RFC3339))
	if !end.IsZero() {
		s.Set("rcstart", end.UTC().Format(time.RFC3339))
	}

	recs, err := c.drainList(ctx, s, query.RecentChanges.ResultKey())
	if err != nil {
		return nil, err
	}
	return decodeAll[RecentChange](recs), nil
}

// RevisionQuery filters Revisions.
type RevisionQuery struct {
	Cap        int
	OlderFirst bool
	Start, End time.Time // both must be set, Start before End
}

// Revisions lists the revisions of a page with their content, newest first
// unless OlderFirst is set.
func (c *Client) Revisions(ctx context.Context, title string, q RevisionQuery) ([]Revision, error) {
	c.logger.Debug("Listing revisions", "title", title, "cap", q.Cap)

	s := c.coord.NewSession(query.Revisions).WithTotalLimit(q.Cap).Set("titles", title)
	if q.OlderFirst {
		s.Set("rvdir", dirNewer)
	}
	if !q.Start.IsZero() && !q.End.IsZero() && q.Start.Before(q.End) {
		from, to := q.End, q.Start
		if q.OlderFirst {
			from, to = to, from
		}
		s.Set("rvstart", from.UTC().Format(time.RFC3339))
		s.Set("rvend", to.UTC().Format(time.RFC3339))
	}

	revs := []Revision{}
	err := c.drain(ctx, s, func(r *query.Reply) {
		if v := r.Prop("title", query.Revisions.ResultKey())[title]; v != nil {
			var recs []json.RawMessage
			if json.Unmarshal(v, &recs) == nil {
				revs = append(revs, decodeAll[Revision](recs)...)
			}
		}
	})
	if err != nil {
		return nil, err
	}
	return revs, nil
}

// Search runs a full-text search and returns the matching titles.
func (c *Client) Search(ctx context.Context, text string, limit int, ns ...NS) ([]string, error) {
	c.logger.Debug("Searching", "query", text, "limit", limit)

	s := c.coord.NewSession(query.Search).WithTotalLimit(limit).Set("srsearch", text)
	if len(ns) > 0 {
		s.Set("srnamespace", Filter(ns...))
	}

	recs, err := c.drainList(ctx, s, query.Search.ResultKey())
	if err != nil {
		return nil, err
	}
	return stringsOf(recs, "title"), nil
}

// UserUploads lists the files a user uploaded.
func (c *Client) UserUploads(ctx context.Context, user string) ([]string, error) {
	c.logger.Debug("Listing uploads", "user", user)

	s := c.coord.NewSession(query.UserUploads).Set("aiuser", c.Namespaces().Strip(user))
	recs, err := c.drainList(ctx, s, query.UserUploads.ResultKey())
	if err != nil {
		return nil, err
	}
	return stringsOf(recs, "title"), nil
}

// QuerySpecialPage lists the titles a query special page reports, e.g.
// "UnusedFiles" or "BrokenRedirects". The name is case-sensitive.
func (c *Client) QuerySpecialPage(ctx context.Context, page string, limit int) ([]string, error) {
	c.logger.Debug("Querying special page", "page", page, "cap", limit)

	s := c.coord.NewSession(query.QueryPages).WithTotalLimit(limit).Set("qppage", c.Namespaces().Strip(page))

	titles := []string{}
	err := c.drain(ctx, s, func(r *query.Reply) {
		var qp struct {
			Results []json.RawMessage `json:"results"`
		}
		if raw := r.Meta(query.QueryPages.ResultKey()); raw != nil && json.Unmarshal(raw, &qp) == nil {
			titles = append(titles, stringsOf(qp.Results, "title")...)
		}
	})
	if err != nil {
		return nil, err
	}
	return titles, nil
}

// PageCreator returns the author of the first revision of title.
func (c *Client) PageCreator(ctx context.Context, title string) (string, error) {
	return c.revisionUser(ctx, title, true)
}

// LastEditor returns the author of the latest revision of title.
func (c *Client) LastEditor(ctx context.Context, title string) (string, error) {
	return c.revisionUser(ctx, title, false)
}

func (c *Client) revisionUser(ctx context.Context, title string, olderFirst bool) (string, error) {
	revs, err := c.Revisions(ctx, title, RevisionQuery{Cap: 1, OlderFirst: olderFirst})
	if err != nil {
		return "", err
	}
	if len(revs) == 0 {
		return "", fmt.Errorf("%w: %s", ErrNoRevisions, title)
	}
	return revs[0].User, nil
}
