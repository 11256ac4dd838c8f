package composio

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
)

// convention is one calling-convention candidate: a pure function that
// lays the tool slug, caller identity and argument bag out the way a
// particular provider generation expects them.
type convention struct {
	name  string
	build func(slug, userID string, args map[string]any) map[string]any
}

// Ordered fixed list, current keyword form first. The provider changed
// both field names and argument layout between generations, so the
// invoker probes these in order until one is accepted.
var conventions = []convention{
	{"keyword slug/user_id/arguments", func(slug, userID string, args map[string]any) map[string]any {
		return map[string]any{"slug": slug, "user_id": userID, "arguments": args}
	}},
	{"keyword slug/entity_id/arguments", func(slug, userID string, args map[string]any) map[string]any {
		return map[string]any{"slug": slug, "entity_id": userID, "arguments": args}
	}},
	{"positional slug,user,arguments", func(slug, userID string, args map[string]any) map[string]any {
		return map[string]any{"params": []any{slug, userID, args}}
	}},
	{"positional slug,arguments,user", func(slug, userID string, args map[string]any) map[string]any {
		return map[string]any{"params": []any{slug, args, userID}}
	}},
	{"positional user,slug,arguments", func(slug, userID string, args map[string]any) map[string]any {
		return map[string]any{"params": []any{userID, slug, args}}
	}},
	{"keyword slug/user_id/args", func(slug, userID string, args map[string]any) map[string]any {
		return map[string]any{"slug": slug, "user_id": userID, "args": args}
	}},
}

// Invoker normalizes tool execution against a transport whose exact
// calling convention is not reliably known ahead of time.
type Invoker struct {
	transport Transport
	userID    string
}

func NewInvoker(t Transport, userID string) *Invoker {
	return &Invoker{transport: t, userID: userID}
}

func (iv *Invoker) SetUser(userID string) { iv.userID = userID }

// Execute runs one logical tool call. Convention rejections advance to
// the next candidate; any other transport error is a genuine remote
// failure and aborts the call immediately. There are no remote-side
// retries here, that policy belongs to the caller.
func (iv *Invoker) Execute(ctx context.Context, slug string, args map[string]any) Result {
	var attempts []string
	var lastSig *SignatureError
	for _, c := range conventions {
		raw, err := iv.transport.Call(ctx, c.build(slug, iv.userID, args))
		var sigErr *SignatureError
		if errors.As(err, &sigErr) {
			lastSig = sigErr
			attempts = append(attempts, fmt.Sprintf("%s: %s", c.name, sigErr.Detail))
			continue
		}
		if err != nil {
			return Result{OK: false, Err: fmt.Sprintf("tool %s failed (via %s): %v", slug, c.name, err)}
		}
		return normalize(raw)
	}
	log.Printf("❌ No invocation form accepted for tool %s", slug)
	return Result{OK: false, Err: fmt.Sprintf(
		"all %d invocation forms rejected for tool %s; last mismatch: %v; attempts: %s",
		len(conventions), slug, lastSig, strings.Join(attempts, "; "))}
}

// normalize maps whatever the first accepted convention returned into
// the uniform Result. Map payloads are probed for the successful/data/
// error keys, Envelope values are read through their accessors, and
// anything else is carried through as opaque successful data.
func normalize(raw any) Result {
	switch v := raw.(type) {
	case map[string]any:
		res := Result{OK: true, Data: any(v)}
		if ok, found := v["successful"].(bool); found {
			res.OK = ok
		}
		if d, found := v["data"]; found && d != nil {
			res.Data = d
		}
		if e, found := v["error"].(string); found && e != "" {
			res.Err = e
		}
		return reconcile(res)
	case Envelope:
		res := Result{OK: v.Successful(), Data: v.Payload(), Err: v.ErrText()}
		if res.Data == nil {
			res.Data = raw
		}
		return reconcile(res)
	default:
		return Result{OK: true, Data: raw}
	}
}

// reconcile enforces the envelope invariant: OK is false exactly when
// an error message is present.
func reconcile(res Result) Result {
	if res.Err != "" {
		res.OK = false
	} else if !res.OK {
		res.Err = "tool reported failure without detail"
	}
	return res
}
