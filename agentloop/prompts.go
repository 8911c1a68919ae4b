package agentloop

import (
	"fmt"
	"runtime"
	"strings"
	"time"
)

// DefaultSystemPrompt is used when Config.SystemPrompt is empty.
const DefaultSystemPrompt = "You are Astra, an autonomous task-execution agent. " +
	"Think step-by-step, plan, then act using tools when necessary. " +
	"Keep outputs concise for a terminal."

// ThinkPrompt follows the goal in the first user message of a run.
const ThinkPrompt = "Follow ReAct. Use tools via function calls when helpful. " +
	"When planning complex work, decompose into subtasks."

// PlanPrompt follows the goal in a plan-only request.
const PlanPrompt = "You are planning only. Provide: Goals, Risks, Steps, Tools to use, and Stop. " +
	"Do NOT execute tools."

// ConventionInstructions describe the JSON calling convention used when tools
// are not advertised natively.
const ConventionInstructions = `When a tool is needed, respond with a JSON block ONLY, with keys: {"tool": str, "args": object}. ` +
	"Otherwise, respond with a final natural language answer. " +
	"Keep steps small and iterate; tool results come back as Observation lines."

// TaskMessage frames a goal for the model.
func TaskMessage(goal, instructions string) string {
	return fmt.Sprintf("Task: %s\n\n%s", goal, instructions)
}

// FormatObservation renders one tool outcome for the model.
func FormatObservation(toolName, text string) string {
	return fmt.Sprintf("Observation: %s -> %s", toolName, text)
}

// BuildEnvironmentContext generates the environment block appended to the
// system prompt.
func BuildEnvironmentContext(workingDir, model string) string {
	var sb strings.Builder
	sb.WriteString("<environment>\n")
	if workingDir != "" {
		fmt.Fprintf(&sb, "Working directory: %s\n", workingDir)
	}
	fmt.Fprintf(&sb, "Platform: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	fmt.Fprintf(&sb, "Today's date: %s\n", time.Now().Format("2006-01-02"))
	if model != "" {
		fmt.Fprintf(&sb, "Model: %s\n", model)
	}
	sb.WriteString("</environment>")
	return sb.String()
}

// FormatToolList renders tools as a bullet list with their parameters, for
// prompts that describe tools in text.
func FormatToolList(tools []Tool) string {
	var sb strings.Builder
	for _, t := range tools {
		params := make([]string, 0, len(t.Parameters()))
		for _, p := range t.Parameters() {
			entry := p.Name + ": " + string(p.Type)
			if !p.Required {
				entry += "?"
			}
			params = append(params, entry)
		}
		fmt.Fprintf(&sb, "- %s(%s): %s\n", t.Name(), strings.Join(params, ", "), t.Description())
	}
	return strings.TrimRight(sb.String(), "\n")
}

// buildSystemPrompt assembles the system prompt for a run. Convention mode
// embeds the calling convention and the tool list.
func buildSystemPrompt(cfg Config, tools []Tool) string {
	base := cfg.SystemPrompt
	if base == "" {
		base = DefaultSystemPrompt
	}
	parts := []string{base, BuildEnvironmentContext(cfg.WorkingDirectory, cfg.Model)}
	if cfg.ToolMode == ToolModeConvention && len(tools) > 0 {
		parts = append(parts, ConventionInstructions, "Tools:\n"+FormatToolList(tools))
	}
	return strings.Join(parts, "\n\n")
}
