package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/martinemde/astra/agentloop"
	"github.com/martinemde/astra/subtask"
)

// ParallelToolName is the name of the fan-out tool.
const ParallelToolName = "parallel"

type parallelCall struct {
	Tool string         `json:"tool"`
	Args map[string]any `json:"args"`
}

type parallelResult struct {
	Index  int    `json:"index"`
	Tool   string `json:"tool"`
	OK     bool   `json:"ok"`
	Output string `json:"output"`
}

// ParallelTool returns a tool that dispatches several independent calls
// through registry on a subtask.Runner. Every call yields one result; a
// failing call never hides the others. Nested parallel calls are rejected.
func ParallelTool(registry *agentloop.ToolRegistry, runner *subtask.Runner) agentloop.Tool {
	return agentloop.NewFuncTool(ParallelToolName,
		"Run independent tool calls concurrently. Results come back as a JSON array in call order.",
		[]agentloop.Parameter{
			{Name: "calls", Type: agentloop.ParamString, Required: true,
				Description: `JSON array of {"tool": name, "args": object}.`},
		},
		func(ctx context.Context, args map[string]any) (string, error) {
			raw, _ := agentloop.StringArg(args, "calls")
			var calls []parallelCall
			if err := json.Unmarshal([]byte(raw), &calls); err != nil {
				return "", fmt.Errorf("calls must be a JSON array of {tool, args}: %w", err)
			}
			if len(calls) == 0 {
				return "[]", nil
			}

			items := make([]subtask.Item, len(calls))
			for i, call := range calls {
				items[i] = subtask.Item{
					ID:          strconv.Itoa(i),
					Description: call.Tool,
					Fn: func(ctx context.Context) (any, error) {
						if call.Tool == ParallelToolName {
							return nil, fmt.Errorf("nested %s calls are not allowed", ParallelToolName)
						}
						outcome := registry.Dispatch(ctx, agentloop.ToolCallRequest{ToolName: call.Tool, Args: call.Args})
						if outcome.IsError() {
							return nil, errors.New(outcome.Message)
						}
						return outcome.Result, nil
					},
				}
			}

			outcomes := runner.RunAll(ctx, items)
			results := make([]parallelResult, 0, len(outcomes))
			for _, o := range outcomes {
				index, _ := strconv.Atoi(o.ID)
				r := parallelResult{Index: index, Tool: o.Description, OK: o.OK()}
				if o.OK() {
					r.Output, _ = o.Value.(string)
				} else {
					r.Output = o.Err.Error()
				}
				results = append(results, r)
			}
			sort.Slice(results, func(i, j int) bool { return results[i].Index < results[j].Index })

			data, err := json.Marshal(results)
			if err != nil {
				return "", err
			}
			return string(data), nil
		})
}
