package participant

import (
	"encoding/json"
	"fmt"
	"slices"

	"github.com/hupe1980/agentweave/internal/util"
	"github.com/hupe1980/agentweave/model"
)

// TransferToolName is the tool through which a model requests a handoff.
const TransferToolName = "transfer_to_agent"

type transferArgs struct {
	Agent string `json:"agent" description:"Target agent name"`
}

// TransferTool describes the transfer_to_agent tool for a fixed set of
// handoff targets and decodes calls to it.
type TransferTool struct {
	targets []string
}

// NewTransferTool constructs the transfer tool for targets.
func NewTransferTool(targets []string) *TransferTool {
	return &TransferTool{targets: slices.Clone(targets)}
}

// Definition returns the tool definition passed to the model. The agent
// parameter is restricted to the configured targets.
func (t *TransferTool) Definition() model.ToolDefinition {
	schema := util.CreateSchema(transferArgs{})
	if props, ok := schema["properties"].(map[string]any); ok {
		if agent, ok := props["agent"].(map[string]any); ok && len(t.targets) > 0 {
			agent["enum"] = slices.Clone(t.targets)
		}
	}

	return model.ToolDefinition{
		Name:        TransferToolName,
		Description: "Request transfer of control to another agent by name. Use when another agent is better suited.",
		Parameters:  schema,
	}
}

// Parse extracts the target agent of a transfer_to_agent call.
func (t *TransferTool) Parse(call model.ToolCall) (string, error) {
	if call.Name != TransferToolName {
		return "", fmt.Errorf("unexpected tool %q", call.Name)
	}

	args := make(map[string]any)
	if len(call.Arguments) > 0 {
		if err := json.Unmarshal(call.Arguments, &args); err != nil {
			return "", fmt.Errorf("failed to unmarshal transfer args: %w", err)
		}
	}

	if err := util.ValidateParameters(args, util.CreateSchema(transferArgs{})); err != nil {
		return "", err
	}

	agent, _ := args["agent"].(string)
	if agent == "" {
		return "", fmt.Errorf("field 'agent' must be non-empty string")
	}

	return agent, nil
}
