package query

import "errors"

var (
	// ErrNilKey indicates a batch call received an empty key.
	ErrNilKey = errors.New("empty string is not an acceptable key to query with")
	// ErrUnsetParameter indicates a required parameter was never set before Next.
	ErrUnsetParameter = errors.New("query parameter left unset")
	// ErrTransport indicates the transport failed to deliver a page.
	ErrTransport = errors.New("query transport error")
	// ErrDecode indicates a page body was not a JSON object.
	ErrDecode = errors.New("query decode error")
)
