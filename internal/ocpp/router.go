package ocpp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrUnsupportedAction marks inbound actions with no registered handler.
// The processor answers these with a NotImplemented CALLERROR instead of
// dropping the connection.
var ErrUnsupportedAction = errors.New("ocpp: unsupported action")

// HandlerFunc processes message payload and returns response body.
type HandlerFunc func(ctx context.Context, identity string, payload json.RawMessage) (interface{}, error)

// Router dispatches OCPP actions to handlers.
type Router struct {
	handlers map[string]HandlerFunc
}

// NewRouter returns router.
func NewRouter() *Router {
	return &Router{handlers: make(map[string]HandlerFunc)}
}

// Register attaches handler to action.
func (r *Router) Register(action string, handler HandlerFunc) {
	r.handlers[action] = handler
}

// Route executes handler for message.
func (r *Router) Route(ctx context.Context, identity string, msg *Message) (interface{}, error) {
	handler, ok := r.handlers[msg.Action]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedAction, msg.Action)
	}
	return handler(ctx, identity, msg.Payload)
}

// Decode convenience helper for handlers.
func Decode[T any](payload json.RawMessage) (T, error) {
	var target T
	if err := json.Unmarshal(payload, &target); err != nil {
		var zero T
		return zero, err
	}
	return target, nil
}
