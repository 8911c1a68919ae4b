package agentloop

import "context"

// ParamType is the declared type of a tool parameter.
type ParamType string

const (
	ParamString  ParamType = "string"
	ParamInteger ParamType = "integer"
	ParamBoolean ParamType = "boolean"
	ParamNumber  ParamType = "number"
	ParamArray   ParamType = "array"
	ParamObject  ParamType = "object"
)

// Parameter declares one named argument of a tool.
type Parameter struct {
	Name        string    `json:"name"`
	Type        ParamType `json:"type"`
	Description string    `json:"description,omitempty"`
	Required    bool      `json:"required"`
}

// Tool is a named, schema-described capability the model can invoke.
//
// Invoke receives the decoded argument mapping. Arguments beyond the declared
// parameters are passed through untouched; missing required arguments never
// reach Invoke because the registry validates first.
type Tool interface {
	Name() string
	Description() string
	Parameters() []Parameter
	Invoke(ctx context.Context, args map[string]any) (string, error)
}

// ToolFunc is the callable behind a FuncTool.
type ToolFunc func(ctx context.Context, args map[string]any) (string, error)

// FuncTool adapts a plain function into a Tool.
type FuncTool struct {
	name        string
	description string
	params      []Parameter
	fn          ToolFunc
}

var _ Tool = (*FuncTool)(nil)

// NewFuncTool creates a Tool from a function and its parameter declarations.
func NewFuncTool(name, description string, params []Parameter, fn ToolFunc) *FuncTool {
	return &FuncTool{
		name:        name,
		description: description,
		params:      params,
		fn:          fn,
	}
}

func (t *FuncTool) Name() string            { return t.name }
func (t *FuncTool) Description() string     { return t.description }
func (t *FuncTool) Parameters() []Parameter { return t.params }

func (t *FuncTool) Invoke(ctx context.Context, args map[string]any) (string, error) {
	return t.fn(ctx, args)
}

// ToolInfo is the human-facing listing entry for a tool.
type ToolInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}
