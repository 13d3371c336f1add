// Package audit emits the append-only allow/deny trail for every gate
// decision. Events are JSON lines on the shared logger; an external sink is
// expected to collect them.
package audit

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"bloodbridge.org/internal/obs"
)

// Result is the outcome of a gate decision.
type Result string

const (
	ResultAllowed Result = "allowed"
	ResultDenied  Result = "denied"
)

// Event is one access-control decision.
type Event struct {
	Role     string `json:"role,omitempty"`
	Action   string `json:"action"`
	Resource string `json:"resource"`
	Result   Result `json:"result"`
	ActorID  string `json:"actor_id,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

type ctxKey struct{}

// WithRequestID attaches the request identifier used to correlate audit
// events with request logs.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, ctxKey{}, requestID)
}

func requestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxKey{}).(string); ok {
		return v
	}
	return ""
}

// Record writes one decision event. It never fails the request path: a
// marshal problem is reported on the logger and the decision stands.
func Record(ctx context.Context, ev Event) {
	entry := map[string]any{
		"ts":       time.Now().UTC().Format(time.RFC3339Nano),
		"type":     "audit",
		"action":   ev.Action,
		"resource": ev.Resource,
		"result":   string(ev.Result),
	}
	if ev.Role != "" {
		entry["role"] = ev.Role
	}
	if ev.ActorID != "" {
		entry["actor_id"] = ev.ActorID
	}
	if ev.Reason != "" {
		entry["reason"] = ev.Reason
	}
	if rid := requestIDFromContext(ctx); rid != "" {
		entry["request_id"] = rid
	}
	data, err := json.Marshal(entry)
	if err != nil {
		obs.Error("audit marshal failed", map[string]any{"action": ev.Action})
		return
	}
	obs.Logger().Println(string(data))
}

// Allowed records a granted permission check.
func Allowed(ctx context.Context, role, action, resource, actorID string) {
	Record(ctx, Event{Role: role, Action: action, Resource: resource, Result: ResultAllowed, ActorID: actorID})
}

// Denied records a refused permission check with the reason.
func Denied(ctx context.Context, role, action, resource, actorID, reason string) {
	Record(ctx, Event{Role: role, Action: action, Resource: resource, Result: ResultDenied, ActorID: actorID, Reason: reason})
}
