package tools

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"
	"syscall"
	"time"
)

// UserAgent is sent with every outbound HTTP request.
const UserAgent = "AstraCLI/0.1"

// ExecResult holds the result of a command execution.
type ExecResult struct {
	Output     string `json:"output"` // stdout and stderr interleaved
	ExitCode   int    `json:"exit_code"`
	TimedOut   bool   `json:"timed_out"`
	DurationMs int64  `json:"duration_ms"`
}

// Environment is where the default tools operate: a working directory that
// relative paths resolve against, a shell, and an HTTP client.
type Environment struct {
	workingDir string
	httpClient *http.Client
}

// EnvironmentOption configures an Environment.
type EnvironmentOption func(*Environment)

// WithHTTPClient replaces the HTTP client used by the web tools.
func WithHTTPClient(c *http.Client) EnvironmentOption {
	return func(e *Environment) { e.httpClient = c }
}

// NewEnvironment creates an Environment rooted at workingDir. An empty
// workingDir means the process working directory.
func NewEnvironment(workingDir string, opts ...EnvironmentOption) *Environment {
	if workingDir == "" {
		workingDir, _ = os.Getwd()
	}
	if abs, err := filepath.Abs(workingDir); err == nil {
		workingDir = abs
	}
	e := &Environment{
		workingDir: workingDir,
		httpClient: &http.Client{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// WorkingDirectory returns the directory relative paths resolve against.
func (e *Environment) WorkingDirectory() string { return e.workingDir }

// Resolve turns path into an absolute path inside the environment.
func (e *Environment) Resolve(path string) string {
	if path == "" {
		return e.workingDir
	}
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(e.workingDir, path)
}

// ReadFile returns the content of a text file.
func (e *Environment) ReadFile(path string) (string, error) {
	data, err := os.ReadFile(e.Resolve(path))
	if err != nil {
		return "", fmt.Errorf("read file: %w", err)
	}
	return strings.ToValidUTF8(string(data), ""), nil
}

// WriteFile writes content, creating parent directories. Without overwrite an
// existing file is an error.
func (e *Environment) WriteFile(path, content string, overwrite bool) (string, error) {
	resolved := e.Resolve(path)
	if !overwrite {
		if _, err := os.Stat(resolved); err == nil {
			return "", fmt.Errorf("write file: %s already exists", resolved)
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("write file: %w", err)
		}
	}
	if err := os.MkdirAll(filepath.Dir(resolved), 0o755); err != nil {
		return "", fmt.Errorf("write file: failed to create directory: %w", err)
	}
	if err := os.WriteFile(resolved, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("write file: %w", err)
	}
	return resolved, nil
}

// ListDir returns the sorted absolute paths of a directory's entries.
func (e *Environment) ListDir(path string) ([]string, error) {
	resolved := e.Resolve(path)
	entries, err := os.ReadDir(resolved)
	if err != nil {
		return nil, fmt.Errorf("list directory: %w", err)
	}
	paths := make([]string, 0, len(entries))
	for _, entry := range entries {
		paths = append(paths, filepath.Join(resolved, entry.Name()))
	}
	slices.Sort(paths)
	return paths, nil
}

// Variables whose names end in one of these suffixes (case-insensitively)
// are withheld from shell commands.
var secretSuffixes = []string{"_API_KEY", "_SECRET", "_TOKEN", "_PASSWORD", "_CREDENTIAL"}

func isSensitiveEnvVar(name string) bool {
	upper := strings.ToUpper(name)
	return slices.ContainsFunc(secretSuffixes, func(suffix string) bool {
		return strings.HasSuffix(upper, suffix)
	})
}

func scrubbedEnviron() []string {
	return slices.DeleteFunc(os.Environ(), func(kv string) bool {
		name, _, _ := strings.Cut(kv, "=")
		return isSensitiveEnvVar(name)
	})
}

// Exec runs command through the shell in the working directory. A timeout of
// zero or less means no timeout. Non-zero exit codes are reported in the
// result, not as errors.
func (e *Environment) Exec(ctx context.Context, command string, timeout time.Duration) (*ExecResult, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	shell, shellArg := "/bin/sh", "-c"
	if path, err := exec.LookPath("bash"); err == nil {
		shell = path
	}

	cmd := exec.CommandContext(ctx, shell, shellArg, command)
	cmd.Dir = e.workingDir
	cmd.Env = scrubbedEnviron()
	// Process group so a timeout kills children too.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}

	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	start := time.Now()
	err := cmd.Run()
	result := &ExecResult{
		Output:     strings.ToValidUTF8(out.String(), ""),
		DurationMs: time.Since(start).Milliseconds(),
	}

	if err != nil {
		var exitErr *exec.ExitError
		switch {
		case errors.Is(ctx.Err(), context.DeadlineExceeded):
			result.TimedOut = true
			result.ExitCode = -1
		case errors.As(err, &exitErr):
			result.ExitCode = exitErr.ExitCode()
		default:
			return nil, fmt.Errorf("exec command: %w", err)
		}
	}
	return result, nil
}
