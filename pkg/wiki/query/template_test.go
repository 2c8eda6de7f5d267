package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTemplate_LimitParamPresetToMax(t *testing.T) {
	for _, name := range Names() {
		tmpl, ok := Lookup(name)
		require.True(t, ok, name)

		if tmpl.LimitParam() == "" {
			continue
		}
		assert.Equal(t, MaxLimit, tmpl.Defaults()[tmpl.LimitParam()], "template %s", name)
	}
}

func TestTemplate_FamilyParameter(t *testing.T) {
	assert.Equal(t, "categories", PageCategories.Defaults()["prop"])
	assert.Equal(t, "categorymembers", CategoryMembers.Defaults()["list"])
	assert.Equal(t, "userinfo", UserInfo.Defaults()["meta"])

	_, hasProp := ResolveRedirect.Defaults()["prop"]
	assert.False(t, hasProp)
	assert.Equal(t, "", ResolveRedirect.Defaults()["redirects"])
}

func TestTemplate_DefaultsAreCopies(t *testing.T) {
	d := ImageInfo.Defaults()
	d["iilimit"] = "5"
	d["injected"] = "x"

	assert.Equal(t, MaxLimit, ImageInfo.Defaults()["iilimit"])
	_, ok := ImageInfo.Defaults()["injected"]
	assert.False(t, ok)
}

func TestTemplate_Catalog(t *testing.T) {
	tmpl, ok := Lookup("duplicatefiles")
	require.True(t, ok)
	assert.Equal(t, FamilyProp, tmpl.Family())
	assert.Equal(t, "dflimit", tmpl.LimitParam())
	assert.Equal(t, "duplicatefiles", tmpl.ResultKey())
	assert.Equal(t, []string{"titles"}, tmpl.Required())

	_, ok = Lookup("nope")
	assert.False(t, ok)

	names := Names()
	assert.IsIncreasing(t, names)
	assert.Contains(t, names, "userrights")
	assert.Contains(t, names, "categoryinfo")
}
