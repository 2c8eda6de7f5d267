package wiki

import (
	"context"
	"encoding/json"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	"wikiquery/pkg/wiki/query"
)

// Multi-title queries. Titles are sent in batches. Methods built on list
// props return a map holding every caller title. Methods that read one value
// per page (Exists, CategorySize, PageText, TextExtracts) only hold titles
// the server answered: a title from a failed batch, or one the server left
// out, is absent rather than reported with a zero value.

// propTitles fetches the list-valued prop of tmpl and keeps field of each record.
func (c *Client) propTitles(ctx context.Context, titles []string, tmpl query.Template, extra map[string]string, field string) (map[string][]string, error) {
	recs, err := c.coord.FetchPropList(ctx, titles, tmpl, extra, tmpl.ResultKey())
	if err != nil {
		return nil, err
	}
	out := make(map[string][]string, len(recs))
	for title, v := range recs {
		out[title] = stringsOf(v, field)
	}
	return out, nil
}

// CategoriesOnPage returns the categories of each title.
func (c *Client) CategoriesOnPage(ctx context.Context, titles []string) (map[string][]string, error) {
	c.logger.Debug("Fetching categories", "titles", len(titles))
	return c.propTitles(ctx, titles, query.PageCategories, nil, "title")
}

// CategorySize returns the number of members of each category. Titles must
// carry the Category: prefix. Empty or missing categories report 0;
// unanswered titles are absent.
func (c *Client) CategorySize(ctx context.Context, titles []string) (map[string]int, error) {
	c.logger.Debug("Fetching category sizes", "titles", len(titles))
	pages, err := c.coord.FetchPages(ctx, titles, query.CategoryInfo, nil)
	if err != nil {
		return nil, err
	}
	out := make(map[string]int, len(pages))
	for title, page := range pages {
		var p struct {
			Info struct {
				Size int `json:"size"`
			} `json:"categoryinfo"`
		}
		_ = json.Unmarshal(page, &p)
		out[title] = p.Info.Size
	}
	return out, nil
}

// PageText returns the wikitext of each title, "" for missing pages.
// Unanswered titles are absent.
func (c *Client) PageText(ctx context.Context, titles []string) (map[string]string, error) {
	c.logger.Debug("Fetching page text", "titles", len(titles))
	pages, err := c.coord.FetchPages(ctx, titles, query.PageText, nil)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(pages))
	for title, page := range pages {
		var p struct {
			Revisions json.RawMessage `json:"revisions"`
		}
		_ = json.Unmarshal(page, &p)
		out[title] = firstRevisionText(p.Revisions)
	}
	return out, nil
}

func firstRevisionText(revs json.RawMessage) string {
	if revs == nil {
		return ""
	}
	var list []json.RawMessage
	if err := json.Unmarshal(revs, &list); err != nil || len(list) == 0 {
		return ""
	}
	if s := stringField(list[0], "*"); s != "" {
		return s
	}
	return stringField(list[0], "content")
}

// Exists reports for each title whether the page exists. Missing and
// invalid titles report false. Titles the server did not answer are absent.
func (c *Client) Exists(ctx context.Context, titles []string) (map[string]bool, error) {
	c.logger.Debug("Checking existence", "titles", len(titles))
	pages, err := c.coord.FetchPages(ctx, titles, query.Exists, nil)
	if err != nil {
		return nil, err
	}
	out := make(map[string]bool, len(pages))
	for title, page := range pages {
		out[title] = !hasField(page, "missing") && !hasField(page, "invalid")
	}
	if len(out) < len(titles) {
		c.logger.Warn("Existence unknown for some titles", "asked", len(titles), "answered", len(out))
	}
	return out, nil
}

// FilterExisting returns the titles whose existence equals exists, in input
// order. Titles whose existence is unknown are never returned.
func (c *Client) FilterExisting(ctx context.Context, exists bool, titles []string) ([]string, error) {
	m, err := c.Exists(ctx, titles)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(titles))
	for _, t := range titles {
		if v, ok := m[t]; ok && v == exists {
			out = append(out, t)
		}
	}
	return out, nil
}

// ImageInfo returns the upload history of each file, newest first.
func (c *Client) ImageInfo(ctx context.Context, titles []string) (map[string][]ImageInfo, error) {
	c.logger.Debug("Fetching image info", "titles", len(titles))
	recs, err := c.coord.FetchPropList(ctx, titles, query.ImageInfo, nil, query.ImageInfo.ResultKey())
	if err != nil {
		return nil, err
	}
	out := make(map[string][]ImageInfo, len(recs))
	for title, v := range recs {
		infos := decodeAll[ImageInfo](v)
		slices.SortStableFunc(infos, func(a, b ImageInfo) int {
			return b.Timestamp.Compare(a.Timestamp)
		})
		out[title] = infos
	}
	return out, nil
}

// LinksOnPage returns the wiki links on each title, optionally restricted to ns.
func (c *Client) LinksOnPage(ctx context.Context, titles []string, ns ...NS) (map[string][]string, error) {
	c.logger.Debug("Fetching links", "titles", len(titles))
	var extra map[string]string
	if len(ns) > 0 {
		extra = map[string]string{"plnamespace": Filter(ns...)}
	}
	return c.propTitles(ctx, titles, query.LinksOnPage, extra, "title")
}

// LinksHere returns the pages linking to each title. With redirects set only
// redirects are returned, otherwise only non-redirects.
func (c *Client) LinksHere(ctx context.Context, titles []string, redirects bool) (map[string][]string, error) {
	c.logger.Debug("Fetching links here", "titles", len(titles), "redirects", redirects)
	show := "!redirect"
	if redirects {
		show = "redirect"
	}
	return c.propTitles(ctx, titles, query.LinksHere, map[string]string{"lhshow": show}, "title")
}

// TranscludedIn returns the pages transcluding each title, optionally
// restricted to ns.
func (c *Client) TranscludedIn(ctx context.Context, titles []string, ns ...NS) (map[string][]string, error) {
	c.logger.Debug("Fetching transclusions", "titles", len(titles))
	var extra map[string]string
	if len(ns) > 0 {
		extra = map[string]string{"tinamespace": Filter(ns...)}
	}
	return c.propTitles(ctx, titles, query.TranscludedIn, extra, "title")
}

// FileUsage returns the local pages using each file.
func (c *Client) FileUsage(ctx context.Context, titles []string) (map[string][]string, error) {
	c.logger.Debug("Fetching file usage", "titles", len(titles))
	return c.propTitles(ctx, titles, query.FileUsage, nil, "title")
}

// ExternalLinks returns the external URLs on each title.
func (c *Client) ExternalLinks(ctx context.Context, titles []string) (map[string][]string, error) {
	c.logger.Debug("Fetching external links", "titles", len(titles))
	recs, err := c.coord.FetchPropList(ctx, titles, query.ExtLinks, nil, query.ExtLinks.ResultKey())
	if err != nil {
		return nil, err
	}
	out := make(map[string][]string, len(recs))
	for title, v := range recs {
		links := make([]string, 0, len(v))
		for _, rec := range v {
			u := stringField(rec, "*")
			if u == "" {
				u = stringField(rec, "url")
			}
			if u != "" {
				links = append(links, u)
			}
		}
		out[title] = links
	}
	return out, nil
}

// ImagesOnPage returns the files used on each title.
func (c *Client) ImagesOnPage(ctx context.Context, titles []string) (map[string][]string, error) {
	c.logger.Debug("Fetching images", "titles", len(titles))
	return c.propTitles(ctx, titles, query.Images, nil, "title")
}

// TemplatesOnPage returns the templates transcluded on each title.
func (c *Client) TemplatesOnPage(ctx context.Context, titles []string) (map[string][]string, error) {
	c.logger.Debug("Fetching templates", "titles", len(titles))
	return c.propTitles(ctx, titles, query.Templates, nil, "title")
}

// GlobalUsage returns the pages on other wikis using each file. Needs the
// GlobalUsage extension on the server.
func (c *Client) GlobalUsage(ctx context.Context, titles []string) (map[string][]GlobalUsage, error) {
	c.logger.Debug("Fetching global usage", "titles", len(titles))
	recs, err := c.coord.FetchPropList(ctx, titles, query.GlobalUsage, nil, query.GlobalUsage.ResultKey())
	if err != nil {
		return nil, err
	}
	out := make(map[string][]GlobalUsage, len(recs))
	for title, v := range recs {
		out[title] = decodeAll[GlobalUsage](v)
	}
	return out, nil
}

// DuplicatesOf returns the files with the same content as each file. With
// localOnly set, shared repositories are not searched.
func (c *Client) DuplicatesOf(ctx context.Context, titles []string, localOnly bool) (map[string][]string, error) {
	c.logger.Debug("Fetching duplicates", "titles", len(titles), "local_only", localOnly)
	var extra map[string]string
	if localOnly {
		extra = map[string]string{"dflocalonly": ""}
	}
	return c.duplicates(ctx, titles, extra, func(json.RawMessage) bool { return true })
}

// SharedDuplicatesOf returns the duplicates of each file that live in a
// shared repository such as Commons.
func (c *Client) SharedDuplicatesOf(ctx context.Context, titles []string) (map[string][]string, error) {
	c.logger.Debug("Fetching shared duplicates", "titles", len(titles))
	return c.duplicates(ctx, titles, nil, func(rec json.RawMessage) bool { return hasField(rec, "shared") })
}

func (c *Client) duplicates(ctx context.Context, titles []string, extra map[string]string, keep func(json.RawMessage) bool) (map[string][]string, error) {
	recs, err := c.coord.FetchPropList(ctx, titles, query.DuplicateFiles, extra, query.DuplicateFiles.ResultKey())
	if err != nil {
		return nil, err
	}
	ns := c.Namespaces()
	out := make(map[string][]string, len(recs))
	for title, v := range recs {
		names := make([]string, 0, len(v))
		for _, rec := range v {
			name := stringField(rec, "name")
			if name == "" || !keep(rec) {
				continue
			}
			names = append(names, ns.ConvertIfNotInNS(strings.ReplaceAll(name, "_", " "), NSFile))
		}
		out[title] = names
	}
	return out, nil
}

// TextExtracts returns the plain-text lead section of each title, "" when
// the page is missing or has no extract. Unanswered titles are absent.
func (c *Client) TextExtracts(ctx context.Context, titles []string) (map[string]string, error) {
	c.logger.Debug("Fetching text extracts", "titles", len(titles))
	pages, err := c.coord.FetchPages(ctx, titles, query.TextExtracts, nil)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(pages))
	for title, page := range pages {
		out[title] = stringField(page, query.TextExtracts.ResultKey())
	}
	return out, nil
}

// ResolveRedirects maps each title to its redirect target, or to itself if
// it is not a redirect.
func (c *Client) ResolveRedirects(ctx context.Context, titles []string) (map[string]string, error) {
	c.logger.Debug("Resolving redirects", "titles", len(titles))
	recs, err := c.coord.FetchList(ctx, titles, query.ResolveRedirect, nil, "titles", query.ResolveRedirect.ResultKey())
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(titles))
	for _, t := range titles {
		out[t] = t
	}
	for _, rec := range recs {
		from, to := stringField(rec, "from"), stringField(rec, "to")
		if _, ok := out[from]; ok && to != "" {
			out[from] = to
		}
	}
	return out, nil
}

// UserRights returns the groups of each user, nil for IPs and unknown users.
// Names must not carry the User: prefix.
func (c *Client) UserRights(ctx context.Context, users []string) (map[string][]string, error) {
	c.logger.Debug("Fetching user rights", "users", len(users))
	recs, err := c.coord.FetchList(ctx, users, query.UserRights, nil, "ususers", query.UserRights.ResultKey())
	if err != nil {
		return nil, err
	}
	out := make(map[string][]string, len(users))
	asked := make(map[string][]string, len(users))
	for _, u := range users {
		out[u] = nil
		cu := canonicalUser(u)
		asked[cu] = append(asked[cu], u)
	}
	for _, rec := range recs {
		var user struct {
			Name   string   `json:"name"`
			Groups []string `json:"groups"`
		}
		if err := json.Unmarshal(rec, &user); err != nil {
			continue
		}
		for _, u := range asked[canonicalUser(user.Name)] {
			out[u] = user.Groups
		}
	}
	return out, nil
}

// canonicalUser normalizes a user name the way the server does: underscores
// become spaces and the first letter is upper case.
func canonicalUser(name string) string {
	name = strings.TrimSpace(strings.ReplaceAll(name, "_", " "))
	r, size := utf8.DecodeRuneInString(name)
	if r == utf8.RuneError {
		return name
	}
	return string(unicode.ToUpper(r)) + name[size:]
}
