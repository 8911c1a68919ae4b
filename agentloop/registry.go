package agentloop

import (
	"context"
	"fmt"
	"sync"

	"github.com/sahilm/fuzzy"

	"github.com/martinemde/astra/llm"
)

// ToolRegistry holds named tools and dispatches calls to them. Listing order
// is registration order.
type ToolRegistry struct {
	tools map[string]Tool
	order []string
	mu    sync.RWMutex
}

// NewToolRegistry creates an empty ToolRegistry.
func NewToolRegistry() *ToolRegistry {
	return &ToolRegistry{
		tools: make(map[string]Tool),
	}
}

// Register adds or replaces a tool. The last registration for a name wins;
// a replaced tool keeps its original listing position.
func (r *ToolRegistry) Register(tool Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	name := tool.Name()
	if _, exists := r.tools[name]; !exists {
		r.order = append(r.order, name)
	}
	r.tools[name] = tool
}

// RegisterAll registers a tool set in order.
func (r *ToolRegistry) RegisterAll(tools ...Tool) {
	for _, t := range tools {
		r.Register(t)
	}
}

// Get returns the tool registered under name, or a *ToolNotFoundError.
func (r *ToolRegistry) Get(name string) (Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tool, ok := r.tools[name]
	if !ok {
		return nil, &ToolNotFoundError{Name: name, Suggestion: closestName(name, r.order)}
	}
	return tool, nil
}

// closestName returns the best fuzzy match for name among names, or "".
func closestName(name string, names []string) string {
	if name == "" {
		return ""
	}
	matches := fuzzy.Find(name, names)
	if len(matches) == 0 {
		return ""
	}
	return matches[0].Str
}

// List returns all tools in registration order.
func (r *ToolRegistry) List() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tools := make([]Tool, 0, len(r.order))
	for _, name := range r.order {
		tools = append(tools, r.tools[name])
	}
	return tools
}

// ListTools returns name and description pairs in registration order.
func (r *ToolRegistry) ListTools() []ToolInfo {
	tools := r.List()
	infos := make([]ToolInfo, len(tools))
	for i, t := range tools {
		infos[i] = ToolInfo{Name: t.Name(), Description: t.Description()}
	}
	return infos
}

// Names returns the names of all registered tools in registration order.
func (r *ToolRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

// Count returns the number of registered tools.
func (r *ToolRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}

// SchemaForModel returns the tool declarations advertised to the model.
//
// Parameter types are mapped lossily: string, integer and boolean keep their
// JSON type and everything else is advertised as "string".
func (r *ToolRegistry) SchemaForModel() []llm.ToolDeclaration {
	tools := r.List()
	decls := make([]llm.ToolDeclaration, 0, len(tools))
	for _, t := range tools {
		properties := make(map[string]any)
		required := []string{}
		for _, p := range t.Parameters() {
			prop := map[string]any{"type": modelType(p.Type)}
			if p.Description != "" {
				prop["description"] = p.Description
			}
			properties[p.Name] = prop
			if p.Required {
				required = append(required, p.Name)
			}
		}
		decls = append(decls, llm.ToolDeclaration{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters: map[string]any{
				"type":       "object",
				"properties": properties,
				"required":   required,
			},
		})
	}
	return decls
}

func modelType(t ParamType) string {
	switch t {
	case ParamString:
		return "string"
	case ParamInteger:
		return "integer"
	case ParamBoolean:
		return "boolean"
	default:
		return "string"
	}
}

// Dispatch resolves, validates and invokes a single tool call. Every failure,
// a panic inside the tool included, is returned as an error outcome.
func (r *ToolRegistry) Dispatch(ctx context.Context, call ToolCallRequest) (outcome ToolOutcome) {
	tool, err := r.Get(call.ToolName)
	if err != nil {
		return ErrorOutcome(err.Error())
	}

	args := call.Args
	if args == nil {
		args = map[string]any{}
	}
	args = DecodeStringArgs(tool.Parameters(), args)
	if err := ValidateArgs(tool.Name(), tool.Parameters(), args); err != nil {
		return ErrorOutcome((&ToolExecutionError{Tool: tool.Name(), Err: err}).Error())
	}

	defer func() {
		if p := recover(); p != nil {
			outcome = ErrorOutcome((&ToolExecutionError{
				Tool: tool.Name(),
				Err:  fmt.Errorf("panic: %v", p),
			}).Error())
		}
	}()

	result, err := tool.Invoke(ctx, args)
	if err != nil {
		return ErrorOutcome((&ToolExecutionError{Tool: tool.Name(), Err: err}).Error())
	}
	return OkOutcome(result)
}
