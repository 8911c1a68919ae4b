// Package tools provides the default tool sets an agent can call: filesystem,
// shell, string, coding, repository and web tools, plus a parallel fan-out
// tool backed by the subtask runner.
package tools

import (
	"github.com/martinemde/astra/agentloop"
	"github.com/martinemde/astra/subtask"
)

// DefaultTools returns every default tool set in registration order.
func DefaultTools(env *Environment) []agentloop.Tool {
	var all []agentloop.Tool
	all = append(all, FSTools(env)...)
	all = append(all, ShellTools(env)...)
	all = append(all, StringTools()...)
	all = append(all, WebTools(env)...)
	all = append(all, CodingTools(env)...)
	all = append(all, RepoTools(env)...)
	return all
}

// RegisterDefaults registers the default tools on registry, followed by the
// parallel tool when runner is non-nil.
func RegisterDefaults(registry *agentloop.ToolRegistry, env *Environment, runner *subtask.Runner) {
	registry.RegisterAll(DefaultTools(env)...)
	if runner != nil {
		registry.Register(ParallelTool(registry, runner))
	}
}
