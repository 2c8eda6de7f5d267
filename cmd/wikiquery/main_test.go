package main

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wikiquery/pkg/logging"
)

type recorder struct {
	mu    sync.Mutex
	calls []url.Values
}

func (r *recorder) Calls() []url.Values {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]url.Values(nil), r.calls...)
}

// runCLI executes the root command against a fake api.php and returns stdout
// and stderr.
func runCLI(t *testing.T, handle func(q url.Values) string, args ...string) (string, string, *recorder, error) {
	t.Helper()

	rec := &recorder{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		rec.mu.Lock()
		rec.calls = append(rec.calls, r.Form)
		rec.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, handle(r.Form))
	}))
	t.Cleanup(srv.Close)

	oldConsole := logging.Console
	logging.Console = io.Discard
	t.Cleanup(func() { logging.Console = oldConsole })

	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "wikiquery.yaml")
	cfg := `wiki:
  api_endpoint: ` + srv.URL + `/w/api.php
  max_result_limit: 500
  group_query_max: 50
request:
  retries: 1
  backoff:
    base_delay: 1ms
    max_delay: 1ms
log:
  server:
    path: ` + filepath.ToSlash(filepath.Join(dir, "server.log")) + `
    level: ERROR
  requests:
    path: ` + filepath.ToSlash(filepath.Join(dir, "requests.log")) + `
    level: ERROR
`
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0o644))

	var stdout, stderr bytes.Buffer
	a := &app{out: &stdout, errOut: &stderr}
	t.Cleanup(a.close)

	root := newRootCmd(a)
	root.SetArgs(append([]string{"--config", cfgPath}, args...))
	err := root.Execute()
	return stdout.String(), stderr.String(), rec, err
}

func TestCategoriesCommand(t *testing.T) {
	out, _, rec, err := runCLI(t, func(q url.Values) string {
		return `{"batchcomplete":"","query":{"pages":{"1":{"pageid":1,"ns":0,"title":"Paris","categories":[{"ns":14,"title":"Category:Capitals"}]}}}}`
	}, "categories", "Paris")
	require.NoError(t, err)

	assert.JSONEq(t, `{"Paris":["Category:Capitals"]}`, out)
	require.Len(t, rec.Calls(), 1)
	assert.Equal(t, "categories", rec.Calls()[0].Get("prop"))
}

func TestMembersCommand_JQRawOutput(t *testing.T) {
	out, _, rec, err := runCLI(t, func(q url.Values) string {
		return `{"query":{"categorymembers":[{"ns":0,"title":"Robin"},{"ns":0,"title":"Wren"}]}}`
	}, "members", "Birds", "--limit", "2", "--ns", "0", "--jq", ".[]", "-r")
	require.NoError(t, err)

	assert.Equal(t, "Robin\nWren\n", out)
	q := rec.Calls()[0]
	assert.Equal(t, "Category:Birds", q.Get("cmtitle"))
	assert.Equal(t, "2", q.Get("cmlimit"))
	assert.Equal(t, "0", q.Get("cmnamespace"))
}

func TestRawCommand(t *testing.T) {
	out, _, rec, err := runCLI(t, func(q url.Values) string {
		if q.Get("sroffset") == "" {
			return `{"continue":{"sroffset":2,"continue":"-||"},"query":{"search":[{"title":"A"},{"title":"B"}]}}`
		}
		return `{"query":{"search":[{"title":"C"}]}}`
	}, "raw", "search", "--set", "srsearch=gopher", "--set", "srwhat=text", "--jq", ".query.search[].title", "-r")
	require.NoError(t, err)

	assert.Equal(t, "A\nB\nC\n", out)
	calls := rec.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, "gopher", calls[0].Get("srsearch"))
	assert.Equal(t, "text", calls[0].Get("srwhat"))
	assert.Equal(t, "2", calls[1].Get("sroffset"))
}

func TestRawCommand_PageLimit(t *testing.T) {
	out, _, rec, err := runCLI(t, func(q url.Values) string {
		return `{"continue":{"apcontinue":"Next","continue":"-||"},"query":{"allpages":[{"title":"X"}]}}`
	}, "raw", "allpages", "--pages", "1", "--jq", ".query.allpages | length")
	require.NoError(t, err)

	assert.Equal(t, "1\n", out)
	assert.Len(t, rec.Calls(), 1)
}

func TestRawCommand_Errors(t *testing.T) {
	handle := func(q url.Values) string { return `{"query":{}}` }

	_, _, rec, err := runCLI(t, handle, "raw", "nosuchtemplate")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown template")
	assert.Empty(t, rec.Calls())

	_, _, rec, err = runCLI(t, handle, "raw", "categorymembers")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cmtitle")
	assert.Empty(t, rec.Calls())

	_, _, _, err = runCLI(t, handle, "raw", "search", "--set", "novalue")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected key=value")
}

func TestTemplatesCommand(t *testing.T) {
	out, _, rec, err := runCLI(t, func(q url.Values) string { return `{}` },
		"templates", "--jq", `.[] | select(.name == "categorymembers") | .required[0]`, "-r")
	require.NoError(t, err)

	assert.Equal(t, "cmtitle\n", out)
	assert.Empty(t, rec.Calls())
}

func TestStatsFlag(t *testing.T) {
	_, stderr, _, err := runCLI(t, func(q url.Values) string {
		return `{"query":{"userinfo":{"id":0,"name":"127.0.0.1","anon":""}}}`
	}, "whoami", "--stats")
	require.NoError(t, err)

	assert.Contains(t, stderr, `"requests": 1`)
}

func TestInitConfigCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "wikiquery.yaml")

	var stdout, stderr bytes.Buffer
	root := newRootCmd(&app{out: &stdout, errOut: &stderr})
	root.SetArgs([]string{"--config", path, "init-config"})
	require.NoError(t, root.Execute())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "# wikiquery configuration"))
	assert.Contains(t, stderr.String(), "Config file generated")
}

func TestParseSet(t *testing.T) {
	tests := []struct {
		name    string
		pairs   []string
		want    map[string]string
		wantErr bool
	}{
		{"Empty", nil, map[string]string{}, false},
		{"Pairs", []string{"a=1", "b=x|y"}, map[string]string{"a": "1", "b": "x|y"}, false},
		{"EmptyValueIsFlag", []string{"redirects="}, map[string]string{"redirects": ""}, false},
		{"ValueWithEquals", []string{"q=a=b"}, map[string]string{"q": "a=b"}, false},
		{"MissingEquals", []string{"redirects"}, nil, true},
		{"EmptyKey", []string{"=x"}, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseSet(tt.pairs)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
