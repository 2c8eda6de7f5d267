package wiki

import (
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"wikiquery/pkg/wiki/query"
)

// NS is a namespace id.
type NS int

// Namespaces every MediaWiki install has.
const (
	NSMedia         NS = -2
	NSSpecial       NS = -1
	NSMain          NS = 0
	NSTalk          NS = 1
	NSUser          NS = 2
	NSUserTalk      NS = 3
	NSProject       NS = 4
	NSProjectTalk   NS = 5
	NSFile          NS = 6
	NSFileTalk      NS = 7
	NSMediaWiki     NS = 8
	NSMediaWikiTalk NS = 9
	NSTemplate      NS = 10
	NSTemplateTalk  NS = 11
	NSHelp          NS = 12
	NSHelpTalk      NS = 13
	NSCategory      NS = 14
	NSCategoryTalk  NS = 15
)

// Filter renders namespaces as an API filter value: ids deduplicated,
// ascending, joined with "|".
func Filter(ns ...NS) string {
	ids := make([]int, 0, len(ns))
	for _, n := range ns {
		ids = append(ids, int(n))
	}
	slices.Sort(ids)
	ids = slices.Compact(ids)

	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(id)
	}
	return strings.Join(parts, "|")
}

var canonicalNames = map[NS]string{
	NSMedia:         "Media",
	NSSpecial:       "Special",
	NSMain:          "",
	NSTalk:          "Talk",
	NSUser:          "User",
	NSUserTalk:      "User talk",
	NSProject:       "Project",
	NSProjectTalk:   "Project talk",
	NSFile:          "File",
	NSFileTalk:      "File talk",
	NSMediaWiki:     "MediaWiki",
	NSMediaWikiTalk: "MediaWiki talk",
	NSTemplate:      "Template",
	NSTemplateTalk:  "Template talk",
	NSHelp:          "Help",
	NSHelpTalk:      "Help talk",
	NSCategory:      "Category",
	NSCategoryTalk:  "Category talk",
}

// NamespaceTable maps namespace names, aliases included, to ids and back.
type NamespaceTable struct {
	names map[NS]string
	ids   map[string]NS
}

// DefaultNamespaces returns the table of canonical English names.
func DefaultNamespaces() *NamespaceTable {
	t := newNamespaceTable()
	for id, name := range canonicalNames {
		t.add(id, name, true)
	}
	return t
}

func newNamespaceTable() *NamespaceTable {
	return &NamespaceTable{names: make(map[NS]string), ids: make(map[string]NS)}
}

// add registers name for id. primary names are what Name returns.
func (t *NamespaceTable) add(id NS, name string, primary bool) {
	if primary {
		t.names[id] = name
	}
	if name != "" {
		t.ids[foldName(name)] = id
	}
}

// foldName makes names compare case-insensitively with "_" equal to " ".
func foldName(s string) string {
	return strings.ToLower(strings.TrimSpace(strings.ReplaceAll(s, "_", " ")))
}

type siteNamespace struct {
	ID        NS     `json:"id"`
	Star      string `json:"*"`
	Name      string `json:"name"`
	Canonical string `json:"canonical"`
}

func (n siteNamespace) localName() string {
	if n.Name != "" {
		return n.Name
	}
	return n.Star
}

// parseNamespaces builds a table from a siteinfo namespaces reply.
func parseNamespaces(r *query.Reply) (*NamespaceTable, error) {
	raw := r.Meta("namespaces")
	if raw == nil {
		return nil, fmt.Errorf("%w: reply has no namespaces", query.ErrDecode)
	}

	var spaces []siteNamespace
	var byID map[string]siteNamespace
	if err := json.Unmarshal(raw, &byID); err == nil {
		for _, n := range byID {
			spaces = append(spaces, n)
		}
	} else if err := json.Unmarshal(raw, &spaces); err != nil {
		return nil, fmt.Errorf("%w: namespaces: %v", query.ErrDecode, err)
	}

	t := newNamespaceTable()
	for _, n := range spaces {
		t.add(n.ID, n.localName(), true)
		if n.Canonical != "" {
			t.add(n.ID, n.Canonical, false)
		}
	}
	for _, rec := range r.List("namespacealiases") {
		var alias siteNamespace
		if err := json.Unmarshal(rec, &alias); err == nil {
			t.add(alias.ID, alias.localName(), false)
		}
	}
	return t, nil
}

// Lookup resolves a namespace prefix, without the colon. "" and "Main" are
// the main namespace.
func (t *NamespaceTable) Lookup(prefix string) (NS, bool) {
	f := foldName(prefix)
	if f == "" || f == "main" {
		return NSMain, true
	}
	id, ok := t.ids[f]
	return id, ok
}

// Name returns the local name of ns, "" for the main namespace.
func (t *NamespaceTable) Name(ns NS) string {
	return t.names[ns]
}

// Which returns the namespace of title. Titles without a known prefix are
// in the main namespace.
func (t *NamespaceTable) Which(title string) NS {
	i := strings.IndexByte(title, ':')
	if i <= 0 {
		return NSMain
	}
	if id, ok := t.ids[foldName(title[:i])]; ok {
		return id
	}
	return NSMain
}

// Strip removes a known namespace prefix from title.
func (t *NamespaceTable) Strip(title string) string {
	if t.Which(title) == NSMain {
		return title
	}
	return title[strings.IndexByte(title, ':')+1:]
}

// ConvertIfNotInNS returns title unchanged if it is in ns, otherwise the
// title moved into ns.
func (t *NamespaceTable) ConvertIfNotInNS(title string, ns NS) string {
	if t.Which(title) == ns {
		return title
	}
	name := t.Name(ns)
	if name == "" {
		return t.Strip(title)
	}
	return name + ":" + t.Strip(title)
}

// FilterByNS keeps the titles that are in one of ns.
func (t *NamespaceTable) FilterByNS(titles []string, ns ...NS) []string {
	out := make([]string, 0, len(titles))
	for _, title := range titles {
		if slices.Contains(ns, t.Which(title)) {
			out = append(out, title)
		}
	}
	return out
}

// TalkPageOf returns the talk page of title. It reports false for special
// pages and titles that already are talk pages.
func (t *NamespaceTable) TalkPageOf(title string) (string, bool) {
	ns := t.Which(title)
	if ns < 0 || ns%2 == 1 {
		return "", false
	}
	return t.Name(ns+1) + ":" + t.Strip(title), true
}

// TalkPageBelongsTo returns the content page of a talk page. It reports
// false for special pages and content pages.
func (t *NamespaceTable) TalkPageBelongsTo(title string) (string, bool) {
	ns := t.Which(title)
	if ns < 0 || ns%2 == 0 {
		return "", false
	}
	if ns == NSTalk {
		return t.Strip(title), true
	}
	return t.Name(ns-1) + ":" + t.Strip(title), true
}
