package engine

import (
	"context"
	"fmt"
	"sync"

	"github.com/hupe1980/agentweave/core"
	"github.com/hupe1980/agentweave/orchestration"
)

// CallbackType defines the lifecycle points where callbacks run.
type CallbackType string

const (
	// CallbackBeforeSegment runs before a start or resume segment begins.
	// Returning an error rejects the Start or Resume call.
	CallbackBeforeSegment CallbackType = "before_segment"

	// CallbackAfterSegment runs once a segment's streams are closed.
	CallbackAfterSegment CallbackType = "after_segment"

	// CallbackOnEvent runs for every event before it is forwarded.
	CallbackOnEvent CallbackType = "on_event"

	// CallbackOnError runs when a segment fails.
	CallbackOnError CallbackType = "on_error"
)

// CallbackContext describes the run a callback fires for.
type CallbackContext struct {
	RunID        string
	Topology     string
	Segment      string // "start" or "resume"
	CallbackType CallbackType

	// Event is set for CallbackOnEvent.
	Event core.Event

	// Err is set for CallbackOnError.
	Err error

	// Status is the workflow status when the callback fires.
	Status orchestration.Status
}

// Callback defines the interface for run lifecycle hooks.
//
// Callbacks run synchronously on the goroutine forwarding events, so they
// should be fast. Only CallbackBeforeSegment errors change control flow;
// errors from the other types are logged.
type Callback interface {
	Type() CallbackType
	Execute(ctx context.Context, callbackCtx *CallbackContext) error
}

// FunctionCallback wraps a function as a callback implementation.
//
// Example:
//
//	cb := NewFunctionCallback(CallbackOnError, func(ctx context.Context, c *CallbackContext) error {
//	    alert(c.RunID, c.Err)
//	    return nil
//	})
type FunctionCallback struct {
	callbackType CallbackType
	fn           func(ctx context.Context, callbackCtx *CallbackContext) error
}

// NewFunctionCallback creates a new function-based callback.
func NewFunctionCallback(callbackType CallbackType, fn func(ctx context.Context, callbackCtx *CallbackContext) error) *FunctionCallback {
	return &FunctionCallback{callbackType: callbackType, fn: fn}
}

// Type returns the callback type this function handles.
func (c *FunctionCallback) Type() CallbackType { return c.callbackType }

// Execute calls the wrapped function with the provided context.
func (c *FunctionCallback) Execute(ctx context.Context, callbackCtx *CallbackContext) error {
	return c.fn(ctx, callbackCtx)
}

// CallbackManager keeps callbacks per type and executes them in
// registration order. It is safe for concurrent use.
type CallbackManager struct {
	mu        sync.RWMutex
	callbacks map[CallbackType][]Callback
}

// NewCallbackManager creates a new, empty callback manager.
func NewCallbackManager() *CallbackManager {
	return &CallbackManager{callbacks: make(map[CallbackType][]Callback)}
}

// RegisterCallback adds a callback for its type.
func (cm *CallbackManager) RegisterCallback(callback Callback) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.callbacks[callback.Type()] = append(cm.callbacks[callback.Type()], callback)
}

// ExecuteCallbacks runs all callbacks of callbackType, stopping at the first error.
func (cm *CallbackManager) ExecuteCallbacks(ctx context.Context, callbackType CallbackType, callbackCtx *CallbackContext) error {
	cm.mu.RLock()
	callbacks := append([]Callback(nil), cm.callbacks[callbackType]...)
	cm.mu.RUnlock()

	for _, callback := range callbacks {
		c := *callbackCtx
		c.CallbackType = callbackType
		if err := callback.Execute(ctx, &c); err != nil {
			return err
		}
	}

	return nil
}

// LoggingCallback forwards lifecycle events to a logging function.
type LoggingCallback struct {
	callbackType CallbackType
	logger       func(message string)
}

// NewLoggingCallback creates a new logging callback.
func NewLoggingCallback(callbackType CallbackType, logger func(message string)) *LoggingCallback {
	return &LoggingCallback{callbackType: callbackType, logger: logger}
}

// Type returns the callback type this logger handles.
func (c *LoggingCallback) Type() CallbackType { return c.callbackType }

// Execute logs the lifecycle event.
func (c *LoggingCallback) Execute(_ context.Context, callbackCtx *CallbackContext) error {
	if c.logger == nil {
		return nil
	}

	msg := fmt.Sprintf("[%s] run=%s topology=%s segment=%s status=%s",
		c.callbackType, callbackCtx.RunID, callbackCtx.Topology, callbackCtx.Segment, callbackCtx.Status)
	if callbackCtx.Event != nil {
		msg += " event=" + EventKind(callbackCtx.Event)
	}
	if callbackCtx.Err != nil {
		msg += " error=" + callbackCtx.Err.Error()
	}

	c.logger(msg)
	return nil
}
