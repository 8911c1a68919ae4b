package agentloop

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// ArgumentError lists every problem found in a tool call's arguments.
type ArgumentError struct {
	Tool     string
	Problems []string
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("invalid arguments for %s: %s", e.Tool, strings.Join(e.Problems, "; "))
}

// ArgumentSchema builds the JSON Schema used to validate arguments against
// the declared parameters. Unlike the schema advertised to the model, it
// keeps the true parameter types. Undeclared arguments are allowed.
func ArgumentSchema(params []Parameter) map[string]any {
	properties := make(map[string]any, len(params))
	required := []string{}
	for _, p := range params {
		prop := map[string]any{}
		if t := validationType(p.Type); t != "" {
			prop["type"] = t
		}
		properties[p.Name] = prop
		if p.Required {
			required = append(required, p.Name)
		}
	}
	schema := map[string]any{
		"type":                 "object",
		"properties":           properties,
		"additionalProperties": true,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

func validationType(t ParamType) string {
	switch t {
	case ParamString, ParamInteger, ParamBoolean, ParamNumber, ParamArray, ParamObject:
		return string(t)
	default:
		return ""
	}
}

// DecodeStringArgs returns args with JSON-encoded strings decoded for every
// number, array or object parameter. The model schema advertises those
// parameters as strings, so a model following it sends "[1,2]" rather than
// [1,2]. Values that do not decode to the declared type are left unchanged
// for ValidateArgs to report. args itself is never modified.
func DecodeStringArgs(params []Parameter, args map[string]any) map[string]any {
	var out map[string]any
	for _, p := range params {
		if p.Type != ParamNumber && p.Type != ParamArray && p.Type != ParamObject {
			continue
		}
		raw, ok := args[p.Name].(string)
		if !ok {
			continue
		}
		var v any
		if err := json.Unmarshal([]byte(raw), &v); err != nil || !hasType(v, p.Type) {
			continue
		}
		if out == nil {
			out = make(map[string]any, len(args))
			for k, a := range args {
				out[k] = a
			}
		}
		out[p.Name] = v
	}
	if out == nil {
		return args
	}
	return out
}

func hasType(v any, t ParamType) bool {
	switch v.(type) {
	case float64:
		return t == ParamNumber
	case []any:
		return t == ParamArray
	case map[string]any:
		return t == ParamObject
	}
	return false
}

// ValidateArgs checks args against the tool's declared parameters. It
// returns an *ArgumentError describing every violation, or nil.
func ValidateArgs(tool string, params []Parameter, args map[string]any) error {
	if len(params) == 0 {
		return nil
	}
	if args == nil {
		args = map[string]any{}
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewGoLoader(ArgumentSchema(params)),
		gojsonschema.NewGoLoader(args),
	)
	if err != nil {
		return fmt.Errorf("validate arguments for %s: %w", tool, err)
	}
	if result.Valid() {
		return nil
	}

	problems := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		problems = append(problems, desc.String())
	}
	return &ArgumentError{Tool: tool, Problems: problems}
}
