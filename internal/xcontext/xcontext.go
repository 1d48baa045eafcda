// Package xcontext carries request-scoped values that outlive the handler
// that set them, such as the request id a detached sync run keeps logging.
package xcontext

import "context"

type (
	requestIDKey struct{}
	triggerKey   struct{}
)

func SetRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

func GetRequestID(ctx context.Context) (string, bool) {
	requestID, ok := ctx.Value(requestIDKey{}).(string)
	return requestID, ok && requestID != ""
}

// Trigger names what started a sync run.
type Trigger string

const (
	TriggerCLI  Trigger = "cli"
	TriggerCron Trigger = "cron"
	TriggerAPI  Trigger = "api"
)

func SetTrigger(ctx context.Context, trigger Trigger) context.Context {
	return context.WithValue(ctx, triggerKey{}, trigger)
}

func GetTrigger(ctx context.Context) (Trigger, bool) {
	trigger, ok := ctx.Value(triggerKey{}).(Trigger)
	return trigger, ok
}
