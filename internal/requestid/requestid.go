// Package requestid tags every proxied request with an id that appears
// in the access log, the response headers and the upstream diagnostics,
// so one mobile interaction can be traced across all three.
package requestid

import (
	"context"

	"github.com/google/uuid"
)

// prefix distinguishes ids minted here from upstream- or client-supplied
// correlation ids in mixed logs.
const prefix = "lb-"

type ctxKey struct{}

// WithRequestID returns a context carrying the given request id.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext extracts the request id from ctx, minting one when the
// context carries none.
func FromContext(ctx context.Context) string {
	if id, ok := ctx.Value(ctxKey{}).(string); ok && id != "" {
		return id
	}
	return mint()
}

// New mints a request id and returns the enriched context and the id.
func New(ctx context.Context) (context.Context, string) {
	id := mint()
	return WithRequestID(ctx, id), id
}

func mint() string {
	return prefix + uuid.New().String()
}
