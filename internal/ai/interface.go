package ai

import (
	"context"
	"errors"
)

// ErrInvalidResponse marks model output that could not be decoded into the
// requested shape. Callers must not retry on it.
var ErrInvalidResponse = errors.New("model returned invalid response")

// Generator returns schema-conformant JSON decoded into out, or an error.
// Implementations never hand free text back to the caller.
type Generator interface {
	CompleteJSON(ctx context.Context, req JSONRequest, out any) error
}

// JSONRequest is one structured completion.
type JSONRequest struct {
	System      string
	User        string
	Schema      *Schema
	Temperature float32
}
