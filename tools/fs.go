package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/martinemde/astra/agentloop"
)

// FSTools returns fs_read, fs_write and fs_list.
func FSTools(env *Environment) []agentloop.Tool {
	return []agentloop.Tool{
		agentloop.NewFuncTool("fs_read", "Read a text file.",
			[]agentloop.Parameter{
				{Name: "path", Type: agentloop.ParamString, Required: true, Description: "File path, absolute or relative to the working directory."},
			},
			func(ctx context.Context, args map[string]any) (string, error) {
				path, _ := agentloop.StringArg(args, "path")
				return env.ReadFile(path)
			}),

		agentloop.NewFuncTool("fs_write", "Write a text file, creating parent directories.",
			[]agentloop.Parameter{
				{Name: "path", Type: agentloop.ParamString, Required: true},
				{Name: "content", Type: agentloop.ParamString, Required: true},
				{Name: "overwrite", Type: agentloop.ParamBoolean, Description: "Replace an existing file. Default: true."},
			},
			func(ctx context.Context, args map[string]any) (string, error) {
				path, _ := agentloop.StringArg(args, "path")
				content, _ := agentloop.StringArg(args, "content")
				overwrite, ok := agentloop.BoolArg(args, "overwrite")
				if !ok {
					overwrite = true
				}
				written, err := env.WriteFile(path, content, overwrite)
				if err != nil {
					return "", err
				}
				return fmt.Sprintf("Wrote %d bytes to %s", len(content), written), nil
			}),

		agentloop.NewFuncTool("fs_list", "List directory entries.",
			[]agentloop.Parameter{
				{Name: "path", Type: agentloop.ParamString, Required: true},
			},
			func(ctx context.Context, args map[string]any) (string, error) {
				path, _ := agentloop.StringArg(args, "path")
				entries, err := env.ListDir(path)
				if err != nil {
					return "", err
				}
				return strings.Join(entries, "\n"), nil
			}),
	}
}
