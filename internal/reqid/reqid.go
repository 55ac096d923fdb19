// Package reqid carries a per-request identifier in the context so that logs,
// events and spans of one HTTP request can be correlated.
package reqid

import (
	"context"

	"github.com/segmentio/ksuid"
)

// Header is the HTTP header used to propagate request ids.
const Header = "X-Request-Id"

type key struct{}

// NewContext returns a copy of parent carrying a new, time-ordered request id.
func NewContext(parent context.Context) (context.Context, string) {
	id := ksuid.New().String()
	return context.WithValue(parent, key{}, id), id
}

// WithID returns a copy of parent carrying id. An empty id generates a new one.
func WithID(parent context.Context, id string) (context.Context, string) {
	if id == "" {
		return NewContext(parent)
	}
	return context.WithValue(parent, key{}, id), id
}

// FromContext extracts the request id from ctx.
func FromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(key{}).(string)
	return id, ok
}
