package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime/debug"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/agentweave/core"
	"github.com/hupe1980/agentweave/logging"
	"github.com/hupe1980/agentweave/model"
)

// Result is the outcome of one tool call.
type Result struct {
	Call   model.ToolCall
	Output any
	Err    error
}

// Text renders the result for the model.
func (r Result) Text() string {
	if r.Err != nil {
		return fmt.Sprintf("Tool %s failed: %v", r.Call.Name, r.Err)
	}

	switch v := r.Output.(type) {
	case nil:
		return fmt.Sprintf("Tool %s returned no result.", r.Call.Name)
	case string:
		return fmt.Sprintf("Tool %s returned: %s", r.Call.Name, v)
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("Tool %s returned: %v", r.Call.Name, v)
		}
		return fmt.Sprintf("Tool %s returned: %s", r.Call.Name, b)
	}
}

// ExecutorOptions configures an Executor.
type ExecutorOptions struct {
	// MaxParallel limits concurrently running calls of one batch. 0 means
	// no limit.
	MaxParallel int
	Logger      logging.Logger
}

// Executor runs batches of tool calls. Failures, including panics and calls
// to unknown tools, are reported per call and never abort the batch.
type Executor struct {
	tools       []Tool
	registry    map[string]Tool
	maxParallel int
	logger      *core.LoggerAdapter
}

// NewExecutor creates an executor over tools. Later tools replace earlier
// ones with the same name.
func NewExecutor(tools []Tool, optFns ...func(o *ExecutorOptions)) *Executor {
	opts := ExecutorOptions{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}

	registry := make(map[string]Tool, len(tools))
	ordered := make([]Tool, 0, len(tools))
	for _, t := range tools {
		if _, dup := registry[t.Name()]; dup {
			for i := range ordered {
				if ordered[i].Name() == t.Name() {
					ordered[i] = t
				}
			}
		} else {
			ordered = append(ordered, t)
		}
		registry[t.Name()] = t
	}

	return &Executor{tools: ordered, registry: registry, maxParallel: opts.MaxParallel, logger: core.NewLoggerAdapter(opts.Logger)}
}

// Has reports whether a tool named name is registered.
func (e *Executor) Has(name string) bool {
	_, ok := e.registry[name]
	return ok
}

// Len returns the number of registered tools.
func (e *Executor) Len() int { return len(e.tools) }

// Definitions returns the model facing declarations of every tool in
// registration order.
func (e *Executor) Definitions() []model.ToolDefinition {
	defs := make([]model.ToolDefinition, 0, len(e.tools))
	for _, t := range e.tools {
		defs = append(defs, model.ToolDefinition{Name: t.Name(), Description: t.Description(), Parameters: t.Parameters()})
	}
	return defs
}

// Execute runs calls in parallel and returns their results in call order.
// Calls not yet started when ctx is cancelled report ctx.Err().
func (e *Executor) Execute(ctx context.Context, calls []model.ToolCall) []Result {
	results := make([]Result, len(calls))
	if len(calls) == 0 {
		return results
	}

	g := new(errgroup.Group)
	if e.maxParallel > 0 {
		g.SetLimit(e.maxParallel)
	}

	batchStart := time.Now()
	for i, call := range calls {
		g.Go(func() error {
			results[i] = e.executeOne(ctx, call)
			return nil
		})
	}
	_ = g.Wait()

	e.logger.LogDebug("Tool batch complete", "count", len(calls), "duration_ms", time.Since(batchStart).Milliseconds())

	return results
}

func (e *Executor) executeOne(ctx context.Context, call model.ToolCall) (res Result) {
	res.Call = call

	if err := ctx.Err(); err != nil {
		res.Err = err
		return res
	}

	impl, ok := e.registry[call.Name]
	if !ok {
		res.Err = NewToolError(call.Name, "tool not found", CodeNotFound)
		return res
	}

	args := map[string]any{}
	if len(call.Arguments) > 0 {
		if err := json.Unmarshal(call.Arguments, &args); err != nil {
			res.Err = &ToolError{Tool: call.Name, Message: fmt.Sprintf("failed to unmarshal args: %v", err), Code: CodeValidation}
			return res
		}
	}

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			e.logger.LogError("Tool panicked", "tool", call.Name, "recover", r, "stack", string(debug.Stack()))
			res.Output = nil
			res.Err = NewToolError(call.Name, fmt.Sprintf("panic recovered: %v", r), CodePanic)
		}
		e.logger.LogInfo("Tool executed", "tool", call.Name, "call_id", call.ID,
			"duration_ms", time.Since(start).Milliseconds(), "error", res.Err != nil)
	}()

	res.Output, res.Err = impl.Call(ctx, args)

	return res
}
