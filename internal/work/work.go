// Package work provides pluggable implementations of scheduled work.
// A schedule created over the API names a handler type plus a JSON payload;
// the handler runs at every accepted fire.
package work

import (
	"context"
	"encoding/json"
)

// Handler executes one kind of work.
type Handler interface {
	Handle(ctx context.Context, payload json.RawMessage) error
}

// Registry maps handler type names to implementations.
type Registry map[string]Handler

// Default returns the built-in handler set.
func Default() Registry {
	return Registry{
		"shell": Shell{},
		"http":  HTTP{},
	}
}
