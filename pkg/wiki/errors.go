package wiki

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument indicates a caller-supplied value the API cannot use.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrNoRevisions indicates a page with no visible revisions.
	ErrNoRevisions = errors.New("page has no revisions")
	// ErrUnexpectedReply indicates a reply that lacks the expected data.
	ErrUnexpectedReply = errors.New("unexpected reply")
)

// APIError is an error object returned by the API in place of a result.
type APIError struct {
	Code string `json:"code"`
	Info string `json:"info"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %s: %s", e.Code, e.Info)
}
