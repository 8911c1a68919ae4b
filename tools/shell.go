package tools

import (
	"context"
	"fmt"
	"time"

	"github.com/martinemde/astra/agentloop"
)

const (
	defaultShellTimeout = 120 // seconds
	shellLineLimit      = 256
)

// ShellTools returns the sh tool.
func ShellTools(env *Environment) []agentloop.Tool {
	return []agentloop.Tool{
		agentloop.NewFuncTool("sh", "Run a shell command (stdout+stderr).",
			[]agentloop.Parameter{
				{Name: "cmd", Type: agentloop.ParamString, Required: true},
				{Name: "timeout", Type: agentloop.ParamInteger, Description: "Seconds before the command is killed. Default: 120."},
			},
			func(ctx context.Context, args map[string]any) (string, error) {
				command, _ := agentloop.StringArg(args, "cmd")
				timeout := agentloop.IntArgOr(args, "timeout", defaultShellTimeout)
				if timeout <= 0 {
					timeout = defaultShellTimeout
				}

				result, err := env.Exec(ctx, command, time.Duration(timeout)*time.Second)
				if err != nil {
					return "", err
				}
				output := agentloop.TruncateLines(result.Output, shellLineLimit)
				if result.TimedOut {
					return "", fmt.Errorf("command timed out after %ds; partial output:\n%s", timeout, output)
				}
				if result.ExitCode != 0 {
					output += fmt.Sprintf("\n[exit code %d]", result.ExitCode)
				}
				return output, nil
			}),
	}
}
