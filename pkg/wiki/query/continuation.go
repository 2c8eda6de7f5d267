package query

import (
	"encoding/json"
	"maps"
	"sort"
	"strings"
)

// ContinuationKind tells which continuation wire shape a reply carried.
type ContinuationKind int

const (
	// ContinueNone means the reply was the final page.
	ContinueNone ContinuationKind = iota
	// ContinueFlat is the modern {"continue": {...}} shape.
	ContinueFlat
	// ContinueNested is the legacy {"query-continue": {"<module>": {...}}} shape.
	ContinueNested
)

func (k ContinuationKind) String() string {
	switch k {
	case ContinueFlat:
		return "continue"
	case ContinueNested:
		return "query-continue"
	default:
		return "none"
	}
}

// Continuation is the decoded continuation marker of one reply.
type Continuation struct {
	Kind   ContinuationKind
	Module string            // set for ContinueNested when a single module was selected
	Params map[string]string // parameters to merge into the next request
}

// decodeContinuation reads the continuation marker from a top-level document.
// For the legacy shape the object under module is used; when module is empty
// or absent, every nested object is merged in key order.
func decodeContinuation(doc map[string]json.RawMessage, module string) Continuation {
	if raw, ok := doc["continue"]; ok {
		return Continuation{Kind: ContinueFlat, Params: flattenParams(raw)}
	}

	raw, ok := doc["query-continue"]
	if !ok {
		return Continuation{Kind: ContinueNone}
	}

	var nested map[string]json.RawMessage
	if err := json.Unmarshal(raw, &nested); err != nil {
		return Continuation{Kind: ContinueNested, Params: map[string]string{}}
	}

	if inner, ok := nested[module]; ok && module != "" {
		return Continuation{Kind: ContinueNested, Module: module, Params: flattenParams(inner)}
	}

	keys := make([]string, 0, len(nested))
	for k := range nested {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	params := make(map[string]string)
	for _, k := range keys {
		maps.Copy(params, flattenParams(nested[k]))
	}
	return Continuation{Kind: ContinueNested, Params: params}
}

// flattenParams turns a JSON object of scalars into request parameters.
// Strings are unquoted, other scalars keep their literal JSON text.
func flattenParams(raw json.RawMessage) map[string]string {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return map[string]string{}
	}

	params := make(map[string]string, len(obj))
	for k, v := range obj {
		var s string
		if err := json.Unmarshal(v, &s); err == nil {
			params[k] = s
			continue
		}
		params[k] = strings.TrimSpace(string(v))
	}
	return params
}
