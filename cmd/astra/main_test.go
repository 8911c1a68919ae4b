package main

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/martinemde/astra/llm"
)

// scannerReader feeds the chat loop from a fixed string.
type scannerReader struct {
	scanner *bufio.Scanner
}

func (r *scannerReader) Readline() (string, error) {
	if !r.scanner.Scan() {
		if err := r.scanner.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return r.scanner.Text(), nil
}

func (r *scannerReader) Close() error { return nil }

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	t.Setenv("ASTRA_CONFIG", "")
	t.Setenv("ASTRA_LOG_LEVEL", "error")
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestRunWithMockModel(t *testing.T) {
	code, out, errOut := runCLI(t, "run", "-mock", "-C", t.TempDir(), "say", "hello")
	if code != exitOK {
		t.Fatalf("expected exit 0, got %d (stderr %q)", code, errOut)
	}
	if !strings.Contains(out, "Echo: Task: say hello") {
		t.Errorf("expected echoed task in output, got %q", out)
	}
}

func TestPlanWithMockModel(t *testing.T) {
	code, out, errOut := runCLI(t, "plan", "-mock", "ship", "it")
	if code != exitOK {
		t.Fatalf("expected exit 0, got %d (stderr %q)", code, errOut)
	}
	if !strings.HasPrefix(out, "Echo: Task: ship it") {
		t.Errorf("unexpected plan output %q", out)
	}
}

func TestToolsCommand(t *testing.T) {
	code, out, errOut := runCLI(t, "tools")
	if code != exitOK {
		t.Fatalf("expected exit 0, got %d (stderr %q)", code, errOut)
	}
	for _, name := range []string{"fs_read", "sh", "repo_files", "parallel"} {
		if !strings.Contains(out, name) {
			t.Errorf("expected %s in tool list %q", name, out)
		}
	}
}

func TestUsageErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"no command", nil},
		{"unknown command", []string{"fly"}},
		{"run without goal", []string{"run", "-mock"}},
		{"plan without goal", []string{"plan", "-mock"}},
		{"bad flag", []string{"run", "-nope", "goal"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if code, _, _ := runCLI(t, tt.args...); code != exitUsage {
				t.Errorf("expected exit %d, got %d", exitUsage, code)
			}
		})
	}
}

func TestInvalidConfig(t *testing.T) {
	code, _, errOut := runCLI(t, "run", "-mock", "-mode", "telepathy", "goal")
	if code != exitError || !strings.Contains(errOut, "tool_mode") {
		t.Errorf("expected config error, got %d %q", code, errOut)
	}
}

func TestCancelledRun(t *testing.T) {
	t.Setenv("ASTRA_CONFIG", "")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var stdout, stderr bytes.Buffer
	code := run(ctx, []string{"run", "-mock", "goal"}, &stdout, &stderr)
	if code != exitCancelled {
		t.Errorf("expected exit %d, got %d", exitCancelled, code)
	}
	if !strings.Contains(stderr.String(), "cancelled") {
		t.Errorf("expected cancellation notice, got %q", stderr.String())
	}
}

func TestVersion(t *testing.T) {
	code, out, _ := runCLI(t, "version")
	if code != exitOK || !strings.Contains(out, version) {
		t.Errorf("unexpected version output %d %q", code, out)
	}
}

func TestChatSession(t *testing.T) {
	orig := newLineReader
	t.Cleanup(func() { newLineReader = orig })
	newLineReader = func(io.Writer) (lineReader, error) {
		return &scannerReader{scanner: bufio.NewScanner(strings.NewReader("first goal\n\n  second goal \nexit\nnever run\n"))}, nil
	}

	code, out, errOut := runCLI(t, "chat", "-mock")
	if code != exitOK {
		t.Fatalf("expected exit 0, got %d (stderr %q)", code, errOut)
	}
	if !strings.Contains(out, "Echo: Task: first goal") || !strings.Contains(out, "Echo: Task: second goal") {
		t.Errorf("expected both goals echoed, got %q", out)
	}
	if strings.Contains(out, "never run") {
		t.Errorf("input after exit must be ignored: %q", out)
	}
}

func TestChatEndsOnEOF(t *testing.T) {
	orig := newLineReader
	t.Cleanup(func() { newLineReader = orig })
	newLineReader = func(io.Writer) (lineReader, error) {
		return &scannerReader{scanner: bufio.NewScanner(strings.NewReader("only goal"))}, nil
	}

	if code, out, _ := runCLI(t, "chat", "-mock"); code != exitOK || !strings.Contains(out, "only goal") {
		t.Errorf("unexpected result %d %q", code, out)
	}
}

func TestIsExitCommand(t *testing.T) {
	for _, in := range []string{"exit", " QUIT ", ":q"} {
		if !isExitCommand(in) {
			t.Errorf("%q should exit", in)
		}
	}
	if isExitCommand("exit now") {
		t.Error("only bare exit words end the session")
	}
}

func TestDescribeGatewayError(t *testing.T) {
	auth := llm.ErrorFromStatusCode(401, "bad key", "openai", nil)
	if got := describeGatewayError(auth); !strings.Contains(got, "ASTRA_API_KEY") {
		t.Errorf("expected key hint, got %q", got)
	}
	server := llm.ErrorFromStatusCode(500, "oops", "openai", nil)
	if got := describeGatewayError(server); got != server.Error() {
		t.Errorf("expected plain message, got %q", got)
	}
	plain := errors.New("plain")
	if got := describeGatewayError(plain); got != "plain" {
		t.Errorf("expected plain, got %q", got)
	}
}
