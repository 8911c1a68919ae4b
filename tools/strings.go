package tools

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/martinemde/astra/agentloop"
)

// StringTools returns str_replace and str_split.
func StringTools() []agentloop.Tool {
	return []agentloop.Tool{
		agentloop.NewFuncTool("str_replace", "Replace every occurrence of a substring.",
			[]agentloop.Parameter{
				{Name: "text", Type: agentloop.ParamString, Required: true},
				{Name: "old", Type: agentloop.ParamString, Required: true},
				{Name: "new", Type: agentloop.ParamString, Required: true},
			},
			func(ctx context.Context, args map[string]any) (string, error) {
				text, _ := agentloop.StringArg(args, "text")
				old, _ := agentloop.StringArg(args, "old")
				repl, _ := agentloop.StringArg(args, "new")
				return strings.ReplaceAll(text, old, repl), nil
			}),

		agentloop.NewFuncTool("str_split", "Split text on a separator; returns a JSON array.",
			[]agentloop.Parameter{
				{Name: "text", Type: agentloop.ParamString, Required: true},
				{Name: "sep", Type: agentloop.ParamString, Description: "Separator. Default: newline."},
			},
			func(ctx context.Context, args map[string]any) (string, error) {
				text, _ := agentloop.StringArg(args, "text")
				sep := agentloop.StringArgOr(args, "sep", "\n")
				data, err := json.Marshal(strings.Split(text, sep))
				if err != nil {
					return "", err
				}
				return string(data), nil
			}),
	}
}
