package query

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// titlePair is one from/to record of a normalized or redirects block.
type titlePair struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Reply is a read-only view over one decoded page of an action=query response.
type Reply struct {
	raw        json.RawMessage
	doc        map[string]json.RawMessage
	query      map[string]json.RawMessage
	normalized []titlePair
	redirects  []titlePair
	cont       Continuation
}

// NewReply decodes body and prepares the title rewrite lookups.
// module selects the legacy query-continue object, if any.
func NewReply(body []byte, module string) (*Reply, error) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if doc == nil {
		return nil, fmt.Errorf("%w: response is not an object", ErrDecode)
	}

	r := &Reply{
		raw:  json.RawMessage(body),
		doc:  doc,
		cont: decodeContinuation(doc, module),
	}

	if q, ok := doc["query"]; ok {
		_ = json.Unmarshal(q, &r.query)
	}
	if n, ok := r.query["normalized"]; ok {
		_ = json.Unmarshal(n, &r.normalized)
	}
	if rd, ok := r.query["redirects"]; ok {
		_ = json.Unmarshal(rd, &r.redirects)
	}
	return r, nil
}

// Raw returns the undecoded response body.
func (r *Reply) Raw() json.RawMessage { return r.raw }

// Continuation returns the continuation marker carried by this page.
func (r *Reply) Continuation() Continuation { return r.cont }

// Normalized returns the server's from -> to title canonicalizations.
func (r *Reply) Normalized() map[string]string {
	m := make(map[string]string, len(r.normalized))
	for _, p := range r.normalized {
		m[p.From] = p.To
	}
	return m
}

// List returns the records of a list-family module, or an empty slice.
func (r *Reply) List(key string) []json.RawMessage {
	raw, ok := r.query[key]
	if !ok {
		return []json.RawMessage{}
	}
	return objectsOf(raw)
}

// Meta returns the value under query.<key>, or nil when absent.
func (r *Reply) Meta(key string) json.RawMessage {
	return r.query[key]
}

// Prop walks query.pages and maps each page's keyField to its valueField.
// Pages without valueField map to nil. Server-side title rewrites are undone
// so the caller's original titles are keys as well.
func (r *Reply) Prop(keyField, valueField string) map[string]json.RawMessage {
	m := make(map[string]json.RawMessage)
	r.eachPage(keyField, func(key string, _ json.RawMessage, fields map[string]json.RawMessage) {
		m[key] = fields[valueField]
	})
	return r.undoRewrites(m)
}

// Pages maps each page's keyField to the whole page object, including
// missing and invalid pages. A title absent from the result was not part of
// this reply. Title rewrites are undone as in Prop.
func (r *Reply) Pages(keyField string) map[string]json.RawMessage {
	m := make(map[string]json.RawMessage)
	r.eachPage(keyField, func(key string, page json.RawMessage, _ map[string]json.RawMessage) {
		m[key] = page
	})
	return r.undoRewrites(m)
}

func (r *Reply) eachPage(keyField string, fn func(key string, page json.RawMessage, fields map[string]json.RawMessage)) {
	raw, ok := r.query["pages"]
	if !ok {
		return
	}
	for _, page := range pagesOf(raw) {
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(page, &fields); err != nil {
			continue
		}
		var key string
		if err := json.Unmarshal(fields[keyField], &key); err != nil {
			continue
		}
		fn(key, page, fields)
	}
}

// undoRewrites copies each value held under a rewritten title back to the
// title the caller submitted. Redirects are undone before normalization,
// the reverse of the order the server applies them.
func (r *Reply) undoRewrites(m map[string]json.RawMessage) map[string]json.RawMessage {
	for _, pairs := range [][]titlePair{r.redirects, r.normalized} {
		for _, p := range pairs {
			if v, ok := m[p.To]; ok {
				m[p.From] = v
			}
		}
	}
	return m
}

// pagesOf accepts both the keyed-by-pageid object and the formatversion=2 array.
func pagesOf(raw json.RawMessage) []json.RawMessage {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		return objectsOf(raw)
	}

	var byID map[string]json.RawMessage
	if err := json.Unmarshal(raw, &byID); err != nil {
		return nil
	}
	pages := make([]json.RawMessage, 0, len(byID))
	for _, p := range byID {
		pages = append(pages, p)
	}
	return pages
}

// objectsOf returns the object elements of a JSON array, skipping scalars.
func objectsOf(raw json.RawMessage) []json.RawMessage {
	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil {
		return []json.RawMessage{}
	}
	out := make([]json.RawMessage, 0, len(elems))
	for _, e := range elems {
		t := bytes.TrimSpace(e)
		if len(t) > 0 && t[0] == '{' {
			out = append(out, e)
		}
	}
	return out
}
