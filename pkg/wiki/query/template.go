package query

import (
	"maps"
	"sort"
)

// Family is the top-level action=query parameter a template belongs to.
type Family string

const (
	FamilyNone Family = ""
	FamilyProp Family = "prop"
	FamilyList Family = "list"
	FamilyMeta Family = "meta"
)

// MaxLimit is the sentinel the API accepts for "as many as allowed".
const MaxLimit = "max"

// Template describes one query shape. Templates are pure data and never
// change after package initialization.
type Template struct {
	name       string
	family     Family
	module     string
	defaults   map[string]string
	required   []string
	limitParam string
	resultKey  string
}

// Name returns the catalog name of the template.
func (t Template) Name() string { return t.name }

// Family returns the query family (prop, list, meta) of the template.
func (t Template) Family() Family { return t.family }

// Module returns the module name addressed inside the family, e.g. "categories".
func (t Template) Module() string { return t.module }

// LimitParam returns the per-page limit parameter, or "" if the template has none.
func (t Template) LimitParam() string { return t.limitParam }

// ResultKey returns the key callers use to locate the answer in a reply.
func (t Template) ResultKey() string { return t.resultKey }

// Required returns the parameter names a caller must set before querying.
func (t Template) Required() []string {
	return append([]string(nil), t.required...)
}

// Defaults returns a copy of the fixed parameters, including the family
// parameter and the limit parameter preset to "max".
func (t Template) Defaults() map[string]string {
	return maps.Clone(t.defaults)
}

var catalog = make(map[string]Template)

// newTemplate builds and registers a template. A non-empty limitParam is
// always seeded with MaxLimit.
func newTemplate(name string, family Family, module string, defaults map[string]string, limitParam, resultKey string, required ...string) Template {
	d := make(map[string]string, len(defaults)+2)
	maps.Copy(d, defaults)
	if family != FamilyNone {
		d[string(family)] = module
	}
	if limitParam != "" {
		d[limitParam] = MaxLimit
	}

	t := Template{
		name:       name,
		family:     family,
		module:     module,
		defaults:   d,
		required:   required,
		limitParam: limitParam,
		resultKey:  resultKey,
	}
	catalog[name] = t
	return t
}

// Lookup returns the catalog template registered under name.
func Lookup(name string) (Template, bool) {
	t, ok := catalog[name]
	return t, ok
}

// Names returns the sorted names of all catalog templates.
func Names() []string {
	names := make([]string, 0, len(catalog))
	for n := range catalog {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

const paramTitles = "titles"

// Catalog of known query shapes.
var (
	AllowedFileExts = newTemplate("allowedfileexts", FamilyMeta, "siteinfo",
		map[string]string{"siprop": "fileextensions"}, "", "fileextensions")

	AllPages = newTemplate("allpages", FamilyList, "allpages",
		nil, "aplimit", "allpages")

	CategoryInfo = newTemplate("categoryinfo", FamilyProp, "categoryinfo",
		nil, "", "categoryinfo", paramTitles)

	CategoryMembers = newTemplate("categorymembers", FamilyList, "categorymembers",
		nil, "cmlimit", "categorymembers", "cmtitle")

	Namespaces = newTemplate("namespaces", FamilyMeta, "siteinfo",
		map[string]string{"siprop": "namespaces|namespacealiases"}, "", "")

	DuplicateFiles = newTemplate("duplicatefiles", FamilyProp, "duplicatefiles",
		nil, "dflimit", "duplicatefiles", paramTitles)

	Exists = newTemplate("exists", FamilyProp, "pageprops",
		map[string]string{"ppprop": "missing"}, "", "missing", paramTitles)

	ExtLinks = newTemplate("extlinks", FamilyProp, "extlinks",
		map[string]string{"elexpandurl": "1"}, "ellimit", "extlinks", paramTitles)

	FileUsage = newTemplate("fileusage", FamilyProp, "fileusage",
		nil, "fulimit", "fileusage", paramTitles)

	GlobalUsage = newTemplate("globalusage", FamilyProp, "globalusage",
		nil, "gulimit", "globalusage", paramTitles)

	Images = newTemplate("images", FamilyProp, "images",
		nil, "imlimit", "images", paramTitles)

	ImageInfo = newTemplate("imageinfo", FamilyProp, "imageinfo",
		map[string]string{"iiprop": "canonicaltitle|url|size|sha1|mime|user|timestamp|comment"}, "iilimit", "imageinfo", paramTitles)

	LinksHere = newTemplate("linkshere", FamilyProp, "linkshere",
		map[string]string{"lhprop": "title"}, "lhlimit", "linkshere", "lhshow", paramTitles)

	LinksOnPage = newTemplate("links", FamilyProp, "links",
		nil, "pllimit", "links", paramTitles)

	LogEvents = newTemplate("logevents", FamilyList, "logevents",
		nil, "lelimit", "logevents")

	PageCategories = newTemplate("categories", FamilyProp, "categories",
		nil, "cllimit", "categories", paramTitles)

	PageText = newTemplate("pagetext", FamilyProp, "revisions",
		map[string]string{"rvprop": "content"}, "", "revisions", paramTitles)

	ProtectedTitles = newTemplate("protectedtitles", FamilyList, "protectedtitles",
		map[string]string{"ptprop": "timestamp|level|user|comment"}, "ptlimit", "protectedtitles")

	QueryPages = newTemplate("querypage", FamilyList, "querypage",
		nil, "qplimit", "querypage", "qppage")

	Random = newTemplate("random", FamilyList, "random",
		map[string]string{"rnfilterredir": "nonredirects"}, "rnlimit", "random")

	RecentChanges = newTemplate("recentchanges", FamilyList, "recentchanges",
		map[string]string{"rcprop": "title|timestamp|user|comment", "rctype": "edit|new|log"}, "rclimit", "recentchanges")

	ResolveRedirect = newTemplate("resolveredirect", FamilyNone, "",
		map[string]string{"redirects": ""}, "", "redirects", paramTitles)

	Revisions = newTemplate("revisions", FamilyProp, "revisions",
		map[string]string{"rvprop": "timestamp|user|comment|content"}, "rvlimit", "revisions", paramTitles)

	Search = newTemplate("search", FamilyList, "search",
		map[string]string{"srprop": "", "srnamespace": "*"}, "srlimit", "search", "srsearch")

	Templates = newTemplate("templates", FamilyProp, "templates",
		map[string]string{"tlprop": "title"}, "tllimit", "templates", paramTitles)

	TextExtracts = newTemplate("extracts", FamilyProp, "extracts",
		map[string]string{"exintro": "1", "explaintext": "1"}, "exlimit", "extract", paramTitles)

	TokensCSRF = newTemplate("tokens_csrf", FamilyMeta, "tokens",
		map[string]string{"type": "csrf"}, "", "tokens")

	TokensLogin = newTemplate("tokens_login", FamilyMeta, "tokens",
		map[string]string{"type": "login"}, "", "tokens")

	TranscludedIn = newTemplate("transcludedin", FamilyProp, "transcludedin",
		map[string]string{"tiprop": "title"}, "tilimit", "transcludedin", paramTitles)

	UserContribs = newTemplate("usercontribs", FamilyList, "usercontribs",
		nil, "uclimit", "usercontribs", "ucuser")

	UserInfo = newTemplate("userinfo", FamilyMeta, "userinfo",
		nil, "", "userinfo")

	UserRights = newTemplate("userrights", FamilyList, "users",
		map[string]string{"usprop": "groups"}, "", "users", "ususers")

	UserUploads = newTemplate("useruploads", FamilyList, "allimages",
		map[string]string{"aisort": "timestamp"}, "ailimit", "allimages", "aiuser")
)
