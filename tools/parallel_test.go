package tools

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/martinemde/astra/agentloop"
	"github.com/martinemde/astra/subtask"
)

func newParallelRegistry(t *testing.T) *agentloop.ToolRegistry {
	t.Helper()
	registry := agentloop.NewToolRegistry()
	registry.RegisterAll(StringTools()...)
	registry.Register(agentloop.NewFuncTool("fail", "Always fails.", nil,
		func(ctx context.Context, args map[string]any) (string, error) {
			return "", errors.New("boom")
		}))
	registry.Register(ParallelTool(registry, subtask.New(subtask.WithConcurrency(2))))
	return registry
}

func decodeResults(t *testing.T, out string) []parallelResult {
	t.Helper()
	var results []parallelResult
	if err := json.Unmarshal([]byte(out), &results); err != nil {
		t.Fatalf("expected JSON results, got %q: %v", out, err)
	}
	return results
}

func TestParallelToolOrderAndFailures(t *testing.T) {
	registry := newParallelRegistry(t)
	calls := `[
		{"tool": "str_replace", "args": {"text": "aaa", "old": "a", "new": "b"}},
		{"tool": "fail", "args": {}},
		{"tool": "missing", "args": {}},
		{"tool": "str_split", "args": {"text": "x,y", "sep": ","}}
	]`

	out := mustOK(t, call(t, registry, ParallelToolName, map[string]any{"calls": calls}))
	results := decodeResults(t, out)
	if len(results) != 4 {
		t.Fatalf("expected 4 results, got %d", len(results))
	}
	for i, r := range results {
		if r.Index != i {
			t.Errorf("result %d has index %d", i, r.Index)
		}
	}
	if !results[0].OK || results[0].Output != "bbb" {
		t.Errorf("unexpected first result %+v", results[0])
	}
	if results[1].OK || !strings.Contains(results[1].Output, "boom") {
		t.Errorf("expected failure for call 1, got %+v", results[1])
	}
	if results[2].OK || !strings.Contains(results[2].Output, "ToolNotFound") {
		t.Errorf("expected ToolNotFound for call 2, got %+v", results[2])
	}
	if !results[3].OK || results[3].Output != `["x","y"]` || results[3].Tool != "str_split" {
		t.Errorf("unexpected last result %+v", results[3])
	}
}

func TestParallelToolRejectsNesting(t *testing.T) {
	registry := newParallelRegistry(t)
	calls := `[{"tool": "parallel", "args": {"calls": "[]"}}]`

	results := decodeResults(t, mustOK(t, call(t, registry, ParallelToolName, map[string]any{"calls": calls})))
	if len(results) != 1 || results[0].OK || !strings.Contains(results[0].Output, "nested") {
		t.Errorf("expected nested call rejection, got %+v", results)
	}
}

func TestParallelToolBadInput(t *testing.T) {
	registry := newParallelRegistry(t)

	if o := call(t, registry, ParallelToolName, map[string]any{"calls": "not json"}); !o.IsError() {
		t.Error("expected error for malformed calls")
	}
	if got := mustOK(t, call(t, registry, ParallelToolName, map[string]any{"calls": "[]"})); got != "[]" {
		t.Errorf("expected empty array, got %q", got)
	}
}

func TestRegisterDefaults(t *testing.T) {
	registry := agentloop.NewToolRegistry()
	RegisterDefaults(registry, NewEnvironment(t.TempDir()), nil)
	if _, err := registry.Get(ParallelToolName); err == nil {
		t.Error("parallel must not be registered without a runner")
	}

	registry = agentloop.NewToolRegistry()
	RegisterDefaults(registry, NewEnvironment(t.TempDir()), subtask.New())
	names := registry.Names()
	if names[len(names)-1] != ParallelToolName {
		t.Errorf("expected parallel registered last, got %v", names)
	}
}
