package wiki

import (
	"context"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilter(t *testing.T) {
	tests := []struct {
		name string
		ns   []NS
		want string
	}{
		{"Empty", nil, ""},
		{"Single", []NS{NSFile}, "6"},
		{"SortedAndDeduplicated", []NS{NSCategory, NSMain, NSCategory, NSUser}, "0|2|14"},
		{"Negative", []NS{NSMain, NSSpecial}, "-1|0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Filter(tt.ns...))
		})
	}
}

func TestNamespaceTable_Defaults(t *testing.T) {
	ns := DefaultNamespaces()

	tests := []struct {
		title    string
		which    NS
		stripped string
		asFile   string
		asMainNS string
	}{
		{"Paris", NSMain, "Paris", "File:Paris", "Paris"},
		{"File:Example.jpg", NSFile, "Example.jpg", "File:Example.jpg", "Example.jpg"},
		{"category:Birds", NSCategory, "Birds", "File:Birds", "Birds"},
		{"User_talk:Alice", NSUserTalk, "Alice", "File:Alice", "Alice"},
		{"Star Wars: A New Hope", NSMain, "Star Wars: A New Hope", "File:Star Wars: A New Hope", "Star Wars: A New Hope"},
		{":Leading", NSMain, ":Leading", "File::Leading", ":Leading"},
	}
	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			assert.Equal(t, tt.which, ns.Which(tt.title))
			assert.Equal(t, tt.stripped, ns.Strip(tt.title))
			assert.Equal(t, tt.asFile, ns.ConvertIfNotInNS(tt.title, NSFile))
			assert.Equal(t, tt.asMainNS, ns.ConvertIfNotInNS(tt.title, NSMain))
		})
	}
}

func TestNamespaceTable_Lookup(t *testing.T) {
	ns := DefaultNamespaces()

	id, ok := ns.Lookup("")
	assert.True(t, ok)
	assert.Equal(t, NSMain, id)

	id, ok = ns.Lookup("Main")
	assert.True(t, ok)
	assert.Equal(t, NSMain, id)

	id, ok = ns.Lookup("template talk")
	assert.True(t, ok)
	assert.Equal(t, NSTemplateTalk, id)

	_, ok = ns.Lookup("Portal")
	assert.False(t, ok)
}

func TestNamespaceTable_TalkPages(t *testing.T) {
	ns := DefaultNamespaces()

	talk, ok := ns.TalkPageOf("Paris")
	assert.True(t, ok)
	assert.Equal(t, "Talk:Paris", talk)

	talk, ok = ns.TalkPageOf("File:A.jpg")
	assert.True(t, ok)
	assert.Equal(t, "File talk:A.jpg", talk)

	_, ok = ns.TalkPageOf("Talk:Paris")
	assert.False(t, ok)
	_, ok = ns.TalkPageOf("Special:Random")
	assert.False(t, ok)

	page, ok := ns.TalkPageBelongsTo("Talk:Paris")
	assert.True(t, ok)
	assert.Equal(t, "Paris", page)

	page, ok = ns.TalkPageBelongsTo("User talk:Alice")
	assert.True(t, ok)
	assert.Equal(t, "User:Alice", page)

	_, ok = ns.TalkPageBelongsTo("Paris")
	assert.False(t, ok)
}

func TestNamespaceTable_FilterByNS(t *testing.T) {
	ns := DefaultNamespaces()
	titles := []string{"Paris", "File:A.jpg", "Category:Birds", "File:B.png"}
	assert.Equal(t, []string{"File:A.jpg", "File:B.png"}, ns.FilterByNS(titles, NSFile))
	assert.Equal(t, []string{"Paris", "Category:Birds"}, ns.FilterByNS(titles, NSMain, NSCategory))
}

func TestLoadNamespaces(t *testing.T) {
	c, api := newTestClient(t, func(q url.Values) string {
		return `{"batchcomplete":"","query":{
			"namespaces":{
				"0":{"id":0,"case":"first-letter","content":"","*":""},
				"6":{"id":6,"case":"first-letter","canonical":"File","*":"Datei"},
				"14":{"id":14,"case":"first-letter","canonical":"Category","*":"Kategorie"}
			},
			"namespacealiases":[{"id":6,"*":"Bild"}]
		}}`
	})

	// Until loaded, canonical English names apply.
	assert.Equal(t, "File", c.Namespaces().Name(NSFile))

	require.NoError(t, c.LoadNamespaces(context.Background()))

	q := api.Calls()[0]
	assert.Equal(t, "siteinfo", q.Get("meta"))
	assert.Equal(t, "namespaces|namespacealiases", q.Get("siprop"))

	ns := c.Namespaces()
	assert.Equal(t, "Datei", ns.Name(NSFile))
	assert.Equal(t, NSFile, ns.Which("Bild:Foo.jpg"))
	assert.Equal(t, NSFile, ns.Which("File:Foo.jpg"))
	assert.Equal(t, NSCategory, ns.Which("Kategorie:Vögel"))
	assert.Equal(t, "Datei:Foo.jpg", ns.ConvertIfNotInNS("Foo.jpg", NSFile))
	assert.Equal(t, "Kategorie:Vögel", ns.ConvertIfNotInNS("Vögel", NSCategory))
}

func TestLoadNamespaces_FormatVersion2(t *testing.T) {
	c, _ := newTestClient(t, func(q url.Values) string {
		return `{"query":{"namespaces":[{"id":0,"name":""},{"id":2,"name":"Utilisateur","canonical":"User"}],"namespacealiases":[]}}`
	})

	require.NoError(t, c.LoadNamespaces(context.Background()))
	assert.Equal(t, "Utilisateur", c.Namespaces().Name(NSUser))
	assert.Equal(t, NSUser, c.Namespaces().Which("User:Bob"))
}
