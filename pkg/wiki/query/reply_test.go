package query

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReply_PropNormalization(t *testing.T) {
	body := `{
		"batchcomplete": "",
		"query": {
			"normalized": [{"from": "foo bar", "to": "Foo bar"}],
			"pages": {
				"12": {"pageid": 12, "title": "Foo bar", "categoryinfo": {"size": 4}}
			}
		}
	}`
	r, err := NewReply([]byte(body), "categoryinfo")
	require.NoError(t, err)

	m := r.Prop("title", "categoryinfo")
	require.Contains(t, m, "foo bar")
	assert.JSONEq(t, `{"size": 4}`, string(m["foo bar"]))
	assert.JSONEq(t, `{"size": 4}`, string(m["Foo bar"]))
	assert.Equal(t, map[string]string{"foo bar": "Foo bar"}, r.Normalized())
}

func TestReply_PropRedirectThenNormalization(t *testing.T) {
	body := `{"query": {
		"normalized": [{"from": "paname", "to": "Paname"}],
		"redirects": [{"from": "Paname", "to": "Paris"}],
		"pages": {"1": {"title": "Paris", "length": 1000}}
	}}`
	r, err := NewReply([]byte(body), "")
	require.NoError(t, err)

	m := r.Prop("title", "length")
	assert.Equal(t, "1000", string(m["paname"]))
	assert.Equal(t, "1000", string(m["Paname"]))
	assert.Equal(t, "1000", string(m["Paris"]))
}

func TestReply_PropMissingValueIsNil(t *testing.T) {
	body := `{"query": {"pages": {
		"-1": {"ns": 0, "title": "Nowhere", "missing": ""},
		"5": {"ns": 0, "title": "Somewhere", "pageid": 5}
	}}}`
	r, err := NewReply([]byte(body), "")
	require.NoError(t, err)

	m := r.Prop("title", "missing")
	require.Len(t, m, 2)
	assert.NotNil(t, m["Nowhere"])
	v, ok := m["Somewhere"]
	assert.True(t, ok)
	assert.Nil(t, v)
}

func TestReply_PropFormatVersion2(t *testing.T) {
	body := `{"query": {"pages": [
		{"title": "A", "extract": "alpha"},
		{"title": "B", "extract": "beta"}
	]}}`
	r, err := NewReply([]byte(body), "")
	require.NoError(t, err)

	m := r.Prop("title", "extract")
	assert.Equal(t, `"alpha"`, string(m["A"]))
	assert.Equal(t, `"beta"`, string(m["B"]))
}

func TestReply_PropAbsent(t *testing.T) {
	r, err := NewReply([]byte(`{"batchcomplete": ""}`), "")
	require.NoError(t, err)
	assert.Empty(t, r.Prop("title", "categories"))
}

func TestReply_Pages(t *testing.T) {
	body := `{"query": {
		"normalized": [{"from": "foo bar", "to": "Foo bar"}],
		"pages": {
			"7": {"pageid": 7, "title": "Foo bar"},
			"-1": {"title": "Gone", "missing": ""},
			"-2": {"title": "Bad|Title", "invalid": "", "invalidreason": "illegal character"}
		}
	}}`
	r, err := NewReply([]byte(body), "")
	require.NoError(t, err)

	pages := r.Pages("title")
	require.Len(t, pages, 4)
	assert.JSONEq(t, `{"pageid": 7, "title": "Foo bar"}`, string(pages["foo bar"]))
	assert.JSONEq(t, `{"title": "Gone", "missing": ""}`, string(pages["Gone"]))
	assert.Contains(t, string(pages["Bad|Title"]), `"invalid"`)
}

func TestReply_List(t *testing.T) {
	body := `{"query": {"categorymembers": [
		{"ns": 0, "title": "One"},
		"scalar-is-skipped",
		{"ns": 0, "title": "Two"}
	]}}`
	r, err := NewReply([]byte(body), "categorymembers")
	require.NoError(t, err)

	recs := r.List("categorymembers")
	require.Len(t, recs, 2)

	var first struct{ Title string }
	require.NoError(t, json.Unmarshal(recs[0], &first))
	assert.Equal(t, "One", first.Title)

	assert.NotNil(t, r.List("absent"))
	assert.Empty(t, r.List("absent"))
}

func TestReply_Meta(t *testing.T) {
	r, err := NewReply([]byte(`{"query": {"userinfo": {"id": 7, "name": "Example"}}}`), "userinfo")
	require.NoError(t, err)

	assert.JSONEq(t, `{"id": 7, "name": "Example"}`, string(r.Meta("userinfo")))
	assert.Nil(t, r.Meta("tokens"))

	empty, err := NewReply([]byte(`{}`), "")
	require.NoError(t, err)
	assert.Nil(t, empty.Meta("userinfo"))
}

func TestReply_DecodeErrors(t *testing.T) {
	for _, body := range []string{"", "not json", "[1,2]", "null"} {
		_, err := NewReply([]byte(body), "")
		assert.ErrorIs(t, err, ErrDecode, "body %q", body)
	}
}

func TestDecodeContinuation(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		module     string
		wantKind   ContinuationKind
		wantParams map[string]string
	}{
		{
			name:     "none",
			body:     `{"query": {}}`,
			wantKind: ContinueNone,
		},
		{
			name:       "flat",
			body:       `{"continue": {"cmcontinue": "page|ABC|12", "continue": "-||"}}`,
			wantKind:   ContinueFlat,
			wantParams: map[string]string{"cmcontinue": "page|ABC|12", "continue": "-||"},
		},
		{
			name:       "flat numeric values",
			body:       `{"continue": {"rvcontinue": 123456, "continue": "||"}}`,
			wantKind:   ContinueFlat,
			wantParams: map[string]string{"rvcontinue": "123456", "continue": "||"},
		},
		{
			name:       "nested selected module",
			body:       `{"query-continue": {"categorymembers": {"cmcontinue": "x"}, "other": {"oc": "y"}}}`,
			module:     "categorymembers",
			wantKind:   ContinueNested,
			wantParams: map[string]string{"cmcontinue": "x"},
		},
		{
			name:       "nested unknown module merges all",
			body:       `{"query-continue": {"links": {"plcontinue": "1|0|B"}, "images": {"imcontinue": "2|C"}}}`,
			module:     "templates",
			wantKind:   ContinueNested,
			wantParams: map[string]string{"plcontinue": "1|0|B", "imcontinue": "2|C"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := NewReply([]byte(tt.body), tt.module)
			require.NoError(t, err)

			c := r.Continuation()
			assert.Equal(t, tt.wantKind, c.Kind)
			if tt.wantParams != nil {
				assert.Equal(t, tt.wantParams, c.Params)
			}
		})
	}
}
