package tool

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentweave/model"
)

type orderArgs struct {
	OrderID string `json:"order_id" description:"Order identifier"`
	Express *bool  `json:"express" description:"Optional express flag"`
}

func statusTool() *FunctionTool {
	return NewFunctionToolFromStruct("check_order_status", "Look up an order", orderArgs{},
		func(_ context.Context, args map[string]any) (any, error) {
			return map[string]any{"order_id": args["order_id"], "status": "shipped"}, nil
		})
}

func call(id, name, args string) model.ToolCall {
	return model.ToolCall{ID: id, Name: name, Arguments: json.RawMessage(args)}
}

func TestFunctionTool_Success(t *testing.T) {
	tl := statusTool()
	assert.Equal(t, "check_order_status", tl.Name())
	assert.Equal(t, "Look up an order", tl.Description())
	assert.Equal(t, []string{"order_id"}, tl.Parameters()["required"])

	out, err := tl.Call(context.Background(), map[string]any{"order_id": "1234"})
	require.NoError(t, err)
	assert.Equal(t, "shipped", out.(map[string]any)["status"])
}

func TestFunctionTool_ValidationError(t *testing.T) {
	_, err := statusTool().Call(context.Background(), map[string]any{})
	require.Error(t, err)

	var toolErr *ToolError
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, CodeValidation, toolErr.Code)

	var vErr *ValidationError
	require.ErrorAs(t, toolErr.Details.(error), &vErr)
	assert.Equal(t, "order_id", vErr.Field)
}

func TestFunctionTool_ExecutionError(t *testing.T) {
	failing := NewFunctionTool("fail", "always fails", map[string]any{"type": "object"},
		func(context.Context, map[string]any) (any, error) { return nil, errors.New("backend down") })

	_, err := failing.Call(context.Background(), map[string]any{})
	var toolErr *ToolError
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, CodeExecution, toolErr.Code)
	assert.Equal(t, "backend down", toolErr.Message)

	custom := NewFunctionTool("custom", "custom code", map[string]any{"type": "object"},
		func(context.Context, map[string]any) (any, error) { return nil, NewToolError("custom", "quota", "RATE_LIMIT") })

	_, err = custom.Call(context.Background(), map[string]any{})
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, "RATE_LIMIT", toolErr.Code)
}

func TestToolErrorFormatting(t *testing.T) {
	assert.Equal(t, "tool error [X] in t: m", NewToolError("t", "m", "X").Error())
	assert.Equal(t, "tool error in t: m", NewToolError("t", "m", "").Error())
}

func TestExecutor_PreservesOrderAndIsolatesFailures(t *testing.T) {
	slow := NewFunctionTool("slow", "sleeps", map[string]any{"type": "object"},
		func(ctx context.Context, _ map[string]any) (any, error) {
			select {
			case <-time.After(20 * time.Millisecond):
				return "done", nil
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		})
	boom := NewFunctionTool("boom", "panics", map[string]any{"type": "object"},
		func(context.Context, map[string]any) (any, error) { panic("kaboom") })

	ex := NewExecutor([]Tool{statusTool(), slow, boom})
	assert.Equal(t, 3, ex.Len())
	assert.True(t, ex.Has("slow"))
	assert.False(t, ex.Has("missing"))

	results := ex.Execute(context.Background(), []model.ToolCall{
		call("1", "slow", ""),
		call("2", "check_order_status", `{"order_id":"42"}`),
		call("3", "missing", `{}`),
		call("4", "boom", `{}`),
		call("5", "check_order_status", `{not json`),
	})
	require.Len(t, results, 5)

	assert.Equal(t, "1", results[0].Call.ID)
	assert.Equal(t, "done", results[0].Output)
	assert.NoError(t, results[0].Err)
	assert.Equal(t, "Tool slow returned: done", results[0].Text())

	assert.NoError(t, results[1].Err)
	assert.Equal(t, `Tool check_order_status returned: {"order_id":"42","status":"shipped"}`, results[1].Text())

	codes := map[int]string{2: CodeNotFound, 3: CodePanic, 4: CodeValidation}
	for i, code := range codes {
		var toolErr *ToolError
		require.ErrorAs(t, results[i].Err, &toolErr, "result %d", i)
		assert.Equal(t, code, toolErr.Code, "result %d", i)
		assert.Contains(t, results[i].Text(), "failed")
	}
}

func TestExecutor_MaxParallel(t *testing.T) {
	var running, peak atomic.Int32
	tracked := NewFunctionTool("tracked", "tracks parallelism", map[string]any{"type": "object"},
		func(context.Context, map[string]any) (any, error) {
			n := running.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			running.Add(-1)
			return nil, nil
		})

	ex := NewExecutor([]Tool{tracked}, func(o *ExecutorOptions) { o.MaxParallel = 2 })

	calls := make([]model.ToolCall, 6)
	for i := range calls {
		calls[i] = call("c", "tracked", "")
	}
	results := ex.Execute(context.Background(), calls)

	assert.Len(t, results, 6)
	assert.LessOrEqual(t, peak.Load(), int32(2))
	assert.Equal(t, "Tool tracked returned no result.", results[0].Text())
}

func TestExecutor_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := NewExecutor([]Tool{statusTool()}).Execute(ctx, []model.ToolCall{call("1", "check_order_status", `{"order_id":"1"}`)})
	require.Len(t, results, 1)
	assert.ErrorIs(t, results[0].Err, context.Canceled)
}

func TestExecutor_Definitions(t *testing.T) {
	replacement := NewFunctionTool("check_order_status", "v2", map[string]any{"type": "object"}, nil)
	ex := NewExecutor([]Tool{statusTool(), replacement})

	defs := ex.Definitions()
	require.Len(t, defs, 1)
	assert.Equal(t, "v2", defs[0].Description)
}
