package query

import (
	"context"
	"errors"
	"maps"
)

// scriptedTransport replays canned bodies in order and records every request.
type scriptedTransport struct {
	bodies []string
	errs   []error
	calls  []map[string]string
}

func (s *scriptedTransport) Get(ctx context.Context, params map[string]string) ([]byte, error) {
	i := len(s.calls)
	s.calls = append(s.calls, maps.Clone(params))
	if i < len(s.errs) && s.errs[i] != nil {
		return nil, s.errs[i]
	}
	if i >= len(s.bodies) {
		return nil, errors.New("no more canned responses")
	}
	return []byte(s.bodies[i]), nil
}

// funcTransport answers each request through a handler.
type funcTransport struct {
	handle func(params map[string]string) (string, error)
	calls  []map[string]string
}

func (f *funcTransport) Get(ctx context.Context, params map[string]string) ([]byte, error) {
	f.calls = append(f.calls, maps.Clone(params))
	body, err := f.handle(params)
	if err != nil {
		return nil, err
	}
	return []byte(body), nil
}
