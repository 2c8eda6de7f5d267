package query

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSession_TotalLimitShrinksSinglePage(t *testing.T) {
	tr := &scriptedTransport{bodies: []string{
		`{"continue": {"cmcontinue": "next", "continue": "-||"}, "query": {"categorymembers": []}}`,
	}}

	s := NewSession(tr, 500, CategoryMembers).Set("cmtitle", "Category:Foo").WithTotalLimit(10)
	page, err := s.Next(context.Background())
	require.NoError(t, err)
	require.Equal(t, PageOK, page.Status)

	require.Len(t, tr.calls, 1)
	assert.Equal(t, "10", tr.calls[0]["cmlimit"])
	assert.False(t, s.HasNext(), "session must be done after the in-quota page")

	page, err = s.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, PageExhausted, page.Status)
	assert.Len(t, tr.calls, 1)
}

func TestSession_TotalLimitAcrossPages(t *testing.T) {
	cont := `{"continue": {"aplimit_cont": "x"}, "query": {"allpages": []}}`
	tr := &scriptedTransport{bodies: []string{cont, cont, cont}}

	s := NewSession(tr, 4, AllPages).WithTotalLimit(10)
	for s.HasNext() {
		_, err := s.Next(context.Background())
		require.NoError(t, err)
	}

	require.Len(t, tr.calls, 3)
	assert.Equal(t, MaxLimit, tr.calls[0]["aplimit"])
	assert.Equal(t, MaxLimit, tr.calls[1]["aplimit"])
	assert.Equal(t, "2", tr.calls[2]["aplimit"])
}

func TestSession_TotalLimitOnPageBoundary(t *testing.T) {
	cont := `{"continue": {"apcontinue": "x"}, "query": {"allpages": []}}`
	tr := &scriptedTransport{bodies: []string{cont, cont, cont}}

	s := NewSession(tr, 5, AllPages).WithTotalLimit(10)
	for s.HasNext() {
		_, err := s.Next(context.Background())
		require.NoError(t, err)
	}

	assert.Len(t, tr.calls, 2, "no zero-sized trailing page")
}

func TestSession_DrainsContinuation(t *testing.T) {
	tr := &scriptedTransport{bodies: []string{
		`{"continue": {"cmcontinue": "p2", "continue": "-||"}, "query": {"categorymembers": [{"title": "A"}]}}`,
		`{"query-continue": {"categorymembers": {"cmcontinue": "p3"}}, "query": {"categorymembers": [{"title": "B"}]}}`,
		`{"query": {"categorymembers": [{"title": "C"}]}}`,
	}}

	s := NewSession(tr, 500, CategoryMembers).Set("cmtitle", "Category:X")
	var replies int
	for s.HasNext() {
		page, err := s.Next(context.Background())
		require.NoError(t, err)
		require.Equal(t, PageOK, page.Status)
		replies++
	}

	assert.Equal(t, 3, replies)
	require.Len(t, tr.calls, 3)
	_, hasCont := tr.calls[0]["cmcontinue"]
	assert.False(t, hasCont)
	assert.Equal(t, "p2", tr.calls[1]["cmcontinue"])
	assert.Equal(t, "-||", tr.calls[1]["continue"])
	assert.Equal(t, "p3", tr.calls[2]["cmcontinue"])
}

func TestSession_UnsetParameterFailsFast(t *testing.T) {
	tr := &scriptedTransport{}
	s := NewSession(tr, 500, CategoryMembers)

	_, err := s.Next(context.Background())
	require.ErrorIs(t, err, ErrUnsetParameter)
	assert.Contains(t, err.Error(), "cmtitle")
	assert.Empty(t, tr.calls)
	assert.True(t, s.HasNext(), "a contract violation does not consume the session")
}

func TestSession_TransportFailureEndsSession(t *testing.T) {
	boom := errors.New("connection reset")
	tr := &scriptedTransport{errs: []error{boom}}

	s := NewSession(tr, 500, UserInfo)
	page, err := s.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, PageFailed, page.Status)
	assert.ErrorIs(t, page.Err, ErrTransport)
	assert.ErrorIs(t, page.Err, boom)
	assert.Nil(t, page.Reply)
	assert.False(t, s.HasNext())

	page, err = s.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, PageExhausted, page.Status)
	assert.Len(t, tr.calls, 1)
}

func TestSession_DecodeFailureEndsSession(t *testing.T) {
	tr := &scriptedTransport{bodies: []string{"<html>oops</html>"}}

	s := NewSession(tr, 500, UserInfo)
	page, err := s.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, PageFailed, page.Status)
	assert.ErrorIs(t, page.Err, ErrDecode)
	assert.False(t, s.HasNext())
}

func TestSession_AdjustLimit(t *testing.T) {
	tests := []struct {
		name      string
		n         int
		wantParam string
		wantPage  int
	}{
		{"zero means max", 0, MaxLimit, 500},
		{"negative means max", -1, MaxLimit, 500},
		{"above ceiling means max", 501, MaxLimit, 500},
		{"in range", 25, "25", 25},
		{"at ceiling", 500, "500", 500},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSession(&scriptedTransport{}, 500, PageCategories, Templates).AdjustLimit(tt.n)
			p := s.Params()
			assert.Equal(t, tt.wantParam, p["cllimit"])
			assert.Equal(t, tt.wantParam, p["tllimit"])
			assert.Equal(t, tt.wantPage, s.pageLimit)
		})
	}
}

func TestSession_SetListAndIsolation(t *testing.T) {
	a := NewSession(&scriptedTransport{}, 0, PageCategories).SetList("titles", []string{"A", "B", "C"})
	b := NewSession(&scriptedTransport{}, 0, PageCategories)

	assert.Equal(t, "A|B|C", a.Params()["titles"])
	_, ok := b.Params()["titles"]
	assert.False(t, ok, "sessions must not share parameter maps")
	assert.Equal(t, "query", a.Params()["action"])
	assert.Equal(t, "json", a.Params()["format"])
	assert.Equal(t, DefaultMaxResultLimit, a.ceiling)
}
