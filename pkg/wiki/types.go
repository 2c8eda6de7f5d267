package wiki

import (
	"encoding/json"
	"time"
)

// Entry holds the fields shared by revision-like records.
type Entry struct {
	User      string    `json:"user"`
	Title     string    `json:"title"`
	Summary   string    `json:"comment"`
	Timestamp time.Time `json:"timestamp"`
}

// ImageInfo describes one upload (file revision) of a file.
type ImageInfo struct {
	Entry
	Size   int    `json:"size"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	SHA1   string `json:"sha1"`
	URL    string `json:"url"`
	Mime   string `json:"mime"`
}

// Contrib is one edit from a user's contributions.
type Contrib struct {
	Entry
	RevID    int64 `json:"revid"`
	ParentID int64 `json:"parentid"`
}

// LogEntry is one log event.
type LogEntry struct {
	Entry
	Type   string `json:"type"`
	Action string `json:"action"`
}

// Revision is one page revision. Text is empty unless content was requested.
type Revision struct {
	Entry
	Text string `json:"*"`
}

// RecentChange is one recent changes entry.
type RecentChange struct {
	Entry
	Type string `json:"type"`
}

// ProtectedTitle is a create-protected title.
type ProtectedTitle struct {
	Entry
	Level string `json:"level"`
}

// GlobalUsage is one page on another wiki using a file.
type GlobalUsage struct {
	Title string `json:"title"`
	Wiki  string `json:"wiki"`
}

// decodeAll decodes every record into T. Records that do not fit are skipped.
func decodeAll[T any](recs []json.RawMessage) []T {
	out := make([]T, 0, len(recs))
	for _, rec := range recs {
		var v T
		if err := json.Unmarshal(rec, &v); err != nil {
			continue
		}
		out = append(out, v)
	}
	return out
}

// stringField returns rec[field] as a string, or "" if absent or not a string.
func stringField(rec json.RawMessage, field string) string {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(rec, &fields); err != nil {
		return ""
	}
	var s string
	if err := json.Unmarshal(fields[field], &s); err != nil {
		return ""
	}
	return s
}

// hasField reports whether rec carries field, whatever its value.
func hasField(rec json.RawMessage, field string) bool {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(rec, &fields); err != nil {
		return false
	}
	_, ok := fields[field]
	return ok
}

// stringsOf maps records to their field values, keeping empty ones out.
func stringsOf(recs []json.RawMessage, field string) []string {
	out := make([]string, 0, len(recs))
	for _, rec := range recs {
		if s := stringField(rec, field); s != "" {
			out = append(out, s)
		}
	}
	return out
}
