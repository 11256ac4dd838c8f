package composio

import (
	"context"
	"fmt"
)

// Result is the uniform envelope every tool call is normalized into.
// OK is false exactly when Err is non-empty. Data is an opaque payload
// from the remote side; callers must probe it, never assume a shape.
type Result struct {
	OK   bool   `json:"ok"`
	Data any    `json:"data,omitempty"`
	Err  string `json:"error,omitempty"`
}

// Envelope is implemented by transports whose raw return value already
// exposes the three result facets as typed accessors instead of map keys.
type Envelope interface {
	Successful() bool
	Payload() any
	ErrText() string
}

// SignatureError reports that a transport rejected the calling
// convention itself (argument names or layout), as opposed to the tool
// operation failing. The invoker treats it as "try the next form".
type SignatureError struct {
	Convention string
	Detail     string
}

func (e *SignatureError) Error() string {
	return fmt.Sprintf("signature mismatch (%s): %s", e.Convention, e.Detail)
}

// Transport executes one raw tool call against the remote endpoint.
// The payload layout is owned by the invocation conventions in
// invoker.go; a transport that does not understand a layout must
// return *SignatureError rather than a generic error.
type Transport interface {
	Call(ctx context.Context, payload map[string]any) (any, error)
}
