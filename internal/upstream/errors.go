package upstream

import "fmt"

// ErrorKind is the stable vocabulary for upstream fetch failures. The API
// layer serializes these codes directly, so they must not change.
type ErrorKind string

const (
	KindTimeout          ErrorKind = "TIMEOUT"
	KindConnectionFailed ErrorKind = "CONNECTION_FAILED"
	KindHTTPStatus       ErrorKind = "HTTP_STATUS"
	KindInvalidPayload   ErrorKind = "INVALID_PAYLOAD"
	KindInternal         ErrorKind = "INTERNAL"
)

// Error classifies a failed feed fetch. Status is only set for
// KindHTTPStatus.
type Error struct {
	Kind   ErrorKind
	Status int
	Err    error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindHTTPStatus:
		return fmt.Sprintf("upstream responded with status %d", e.Status)
	case KindTimeout:
		return "upstream request timed out"
	case KindConnectionFailed:
		return fmt.Sprintf("could not connect to upstream: %v", e.Err)
	case KindInvalidPayload:
		return fmt.Sprintf("upstream returned an invalid payload: %v", e.Err)
	default:
		return fmt.Sprintf("internal error fetching feed: %v", e.Err)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}
