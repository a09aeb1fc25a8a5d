// Package apperr defines the error taxonomy shared by the upstream client,
// the retry/fallback layers and the HTTP handlers. Callers branch on error
// kind with errors.Is/As; only the final irrecoverable outcome crosses the
// handler boundary.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for retry and HTTP-mapping decisions.
type Kind int

const (
	// KindValidation marks missing or malformed caller input.
	KindValidation Kind = iota + 1
	// KindAuth marks an expected negative auth outcome (no session, bad
	// credentials). Not a transport failure.
	KindAuth
	// KindRateLimited marks an upstream 429 after retries were exhausted.
	KindRateLimited
	// KindUpstreamShape marks a response that is not JSON-RPC at all
	// (HTML body, unparseable JSON).
	KindUpstreamShape
	// KindUpstreamRPC marks a well-formed JSON-RPC error envelope.
	KindUpstreamRPC
	// KindTransport marks network-level failures and unexpected HTTP
	// statuses without a usable body.
	KindTransport
)

// String renders the kind as a stable label for logs and metrics.
func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuth:
		return "auth"
	case KindRateLimited:
		return "rate_limited"
	case KindUpstreamShape:
		return "upstream_shape"
	case KindUpstreamRPC:
		return "upstream_rpc"
	case KindTransport:
		return "transport"
	default:
		return "unknown"
	}
}

// JSON-RPC error codes used in synthetic envelopes. -32000 matches what the
// upstream emits for generic server errors; the shape codes are ours.
const (
	CodeTransport   = -32000
	CodeHTMLBody    = -32080
	CodeInvalidJSON = -32081
	CodeRateLimited = -32029
)

// Sentinel errors for conditions callers test with errors.Is.
var (
	ErrNoSession   = &Error{Kind: KindAuth, Message: "no active session"}
	ErrRateLimited = &Error{Kind: KindRateLimited, Code: CodeRateLimited, Message: "upstream rate limit exceeded"}
)

// Error is the concrete error type carried across layers.
type Error struct {
	Kind    Kind
	Code    int    // JSON-RPC error code when applicable
	Op      string // RPC method or logical operation
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches on kind so sentinel comparisons work for wrapped instances.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && (t.Code == 0 || e.Code == t.Code)
}

// New builds a typed error.
func New(kind Kind, op, message string) *Error {
	return &Error{Kind: kind, Op: op, Message: message}
}

// Wrap builds a typed error around a cause.
func Wrap(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Message: err.Error(), Err: err}
}

// RPC builds an error from a JSON-RPC error envelope.
func RPC(op string, code int, message string) *Error {
	return &Error{Kind: KindUpstreamRPC, Code: code, Op: op, Message: message}
}

// Shape builds an upstream-shape error with one of the synthetic codes.
func Shape(op string, code int, message string) *Error {
	return &Error{Kind: KindUpstreamShape, Code: code, Op: op, Message: message}
}

// Transport builds a transport-level error.
func Transport(op string, err error) *Error {
	return Wrap(KindTransport, op, err)
}

// RateLimited builds a rate-limit error for the given operation.
func RateLimited(op string) *Error {
	return &Error{Kind: KindRateLimited, Code: CodeRateLimited, Op: op, Message: "upstream rate limit exceeded"}
}

// KindOf extracts the kind of an error, or 0 for untyped errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// IsRetryable reports whether the retry wrapper may re-issue the call.
// Only rate limiting is retried at that layer; method ambiguity is the
// fallback chain's business and everything else is final.
func IsRetryable(err error) bool {
	return KindOf(err) == KindRateLimited
}

// IsMethodAmbiguity reports whether an error may be caused by calling a
// method name the upstream deployment does not expose, which is the only
// condition under which the fallback chain rotates candidates.
func IsMethodAmbiguity(err error) bool {
	return KindOf(err) == KindUpstreamRPC
}

// HTTPStatus maps an error to the status the proxy reports to the browser.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return 400
	case KindAuth:
		return 401
	case KindRateLimited:
		return 429
	case KindUpstreamShape:
		return 502
	case KindUpstreamRPC:
		return 502
	default:
		return 500
	}
}
