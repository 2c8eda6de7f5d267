package query

import (
	"context"
	"encoding/json"
	"log/slog"
	"maps"
)

// DefaultGroupSize is the number of titles the API accepts per prop request.
const DefaultGroupSize = 50

const (
	keyFieldTitle = "title"
	paramTitleSet = "titles"
)

// Options tune a Coordinator. Zero values select the defaults.
type Options struct {
	MaxResultLimit int
	GroupSize      int
	Logger         *slog.Logger
}

// Coordinator splits many-key queries into batches, drains each batch's
// continuation pages and merges the results by the caller's keys. Calls are
// strictly sequential.
type Coordinator struct {
	transport Transport
	ceiling   int
	groupSize int
	logger    *slog.Logger
}

// NewCoordinator creates a Coordinator over t.
func NewCoordinator(t Transport, opts Options) *Coordinator {
	c := &Coordinator{
		transport: t,
		ceiling:   opts.MaxResultLimit,
		groupSize: opts.GroupSize,
		logger:    opts.Logger,
	}
	if c.ceiling < 1 {
		c.ceiling = DefaultMaxResultLimit
	}
	if c.groupSize < 1 {
		c.groupSize = DefaultGroupSize
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c
}

// NewSession creates a session sharing the coordinator's transport, ceiling
// and logger.
func (c *Coordinator) NewSession(templates ...Template) *Session {
	return NewSession(c.transport, c.ceiling, templates...).WithLogger(c.logger)
}

// FetchProp fetches one value per title. Every title appears in the result;
// titles the server returned nothing for map to nil. Across continuation
// pages the last value seen for a title wins, even when it is nil.
func (c *Coordinator) FetchProp(ctx context.Context, titles []string, tmpl Template, extra map[string]string, valueField string) (map[string]json.RawMessage, error) {
	merged := make(map[string]json.RawMessage, len(titles))

	err := c.run(ctx, titles, tmpl, extra, paramTitleSet, func(r *Reply) {
		maps.Copy(merged, r.Prop(keyFieldTitle, valueField))
	})
	if err != nil {
		return nil, err
	}

	out := make(map[string]json.RawMessage, len(titles))
	for _, t := range titles {
		out[t] = merged[t]
	}
	return out, nil
}

// FetchPages fetches the page object of each title. Unlike FetchProp, only
// titles some reply actually contained are keys, so a failed batch or a
// title the server left out stays distinguishable from a missing page.
// Across continuation pages the last object seen for a title wins.
func (c *Coordinator) FetchPages(ctx context.Context, titles []string, tmpl Template, extra map[string]string) (map[string]json.RawMessage, error) {
	merged := make(map[string]json.RawMessage, len(titles))

	err := c.run(ctx, titles, tmpl, extra, paramTitleSet, func(r *Reply) {
		maps.Copy(merged, r.Pages(keyFieldTitle))
	})
	if err != nil {
		return nil, err
	}

	out := make(map[string]json.RawMessage, len(titles))
	for _, t := range titles {
		if page, ok := merged[t]; ok {
			out[t] = page
		}
	}
	return out, nil
}

// FetchPropList fetches an array of records per title, accumulating across
// continuation pages in page order. Every title appears in the result;
// titles without records map to an empty slice.
func (c *Coordinator) FetchPropList(ctx context.Context, titles []string, tmpl Template, extra map[string]string, arrayField string) (map[string][]json.RawMessage, error) {
	merged := make(map[string][]json.RawMessage, len(titles))

	err := c.run(ctx, titles, tmpl, extra, paramTitleSet, func(r *Reply) {
		for title, v := range r.Prop(keyFieldTitle, arrayField) {
			if v == nil {
				continue
			}
			merged[title] = append(merged[title], objectsOf(v)...)
		}
	})
	if err != nil {
		return nil, err
	}

	out := make(map[string][]json.RawMessage, len(titles))
	for _, t := range titles {
		recs := merged[t]
		if recs == nil {
			recs = []json.RawMessage{}
		}
		out[t] = recs
	}
	return out, nil
}

// FetchList sends keys in batches under keyParam and collects the records of
// the list-family module listKey, in batch then page order.
func (c *Coordinator) FetchList(ctx context.Context, keys []string, tmpl Template, extra map[string]string, keyParam, listKey string) ([]json.RawMessage, error) {
	var recs []json.RawMessage
	err := c.run(ctx, keys, tmpl, extra, keyParam, func(r *Reply) {
		recs = append(recs, r.List(listKey)...)
	})
	if err != nil {
		return nil, err
	}
	if recs == nil {
		recs = []json.RawMessage{}
	}
	return recs, nil
}

// run validates keys, then drives one session per batch and hands every
// successful page to merge. A failed page ends its batch only.
func (c *Coordinator) run(ctx context.Context, keys []string, tmpl Template, extra map[string]string, keyParam string, merge func(*Reply)) error {
	for _, k := range keys {
		if k == "" {
			return ErrNilKey
		}
	}

	gq := NewGroupQueue(keys, c.groupSize)
	for batchNo := 0; gq.HasMore(); batchNo++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		batch := gq.Poll()

		// The batch is set last so extra can never replace it.
		s := c.NewSession(tmpl)
		for k, v := range extra {
			s.Set(k, v)
		}
		s.SetList(keyParam, batch)

		for s.HasNext() {
			page, err := s.Next(ctx)
			if err != nil {
				return err
			}
			if page.Status == PageFailed {
				c.logger.Warn("Batch ended early", "template", tmpl.Name(), "batch", batchNo, "size", len(batch), "error", page.Err)
				break
			}
			if page.Status == PageOK {
				merge(page.Reply)
			}
		}
	}
	return nil
}
