package tools

import (
	"bufio"
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/martinemde/astra/agentloop"
)

const (
	maxGrepMatches = 500
	maxGrepLine    = 1024 * 1024
)

// CodingTools returns code_grep and code_apply_edit.
func CodingTools(env *Environment) []agentloop.Tool {
	return []agentloop.Tool{
		agentloop.NewFuncTool("code_grep", "Regex search in tree; one file:line: text match per line.",
			[]agentloop.Parameter{
				{Name: "path", Type: agentloop.ParamString, Required: true},
				{Name: "pattern", Type: agentloop.ParamString, Required: true, Description: "Go regular expression."},
				{Name: "ignore_case", Type: agentloop.ParamBoolean},
			},
			func(ctx context.Context, args map[string]any) (string, error) {
				path, _ := agentloop.StringArg(args, "path")
				pattern, _ := agentloop.StringArg(args, "pattern")
				ignoreCase, _ := agentloop.BoolArg(args, "ignore_case")
				matches, skipped, err := grepTree(ctx, env.Resolve(path), pattern, ignoreCase)
				if err != nil {
					return "", err
				}
				if len(matches) == 0 {
					matches = append(matches, "No matches.")
				}
				for _, s := range skipped {
					matches = append(matches, "Skipped "+s)
				}
				return strings.Join(matches, "\n"), nil
			}),

		agentloop.NewFuncTool("code_apply_edit", "Replace substring in file (all occurrences).",
			[]agentloop.Parameter{
				{Name: "file", Type: agentloop.ParamString, Required: true},
				{Name: "old", Type: agentloop.ParamString, Required: true},
				{Name: "new", Type: agentloop.ParamString, Required: true},
			},
			func(ctx context.Context, args map[string]any) (string, error) {
				file, _ := agentloop.StringArg(args, "file")
				old, _ := agentloop.StringArg(args, "old")
				repl, _ := agentloop.StringArg(args, "new")
				count, err := applyEdit(env.Resolve(file), old, repl)
				if err != nil {
					return "", err
				}
				return fmt.Sprintf("Replaced %d occurrence(s) in %s", count, file), nil
			}),
	}
}

// grepTree returns matching lines under root. Files that could not be read to
// the end are listed in skipped with the reason; their earlier matches stay.
func grepTree(ctx context.Context, root, pattern string, ignoreCase bool) (matches, skipped []string, err error) {
	if ignoreCase {
		pattern = "(?i)" + pattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid pattern: %w", err)
	}

	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // unreadable entries are skipped
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		f, err := os.Open(path)
		if err != nil {
			return nil
		}
		defer f.Close()

		scanner := bufio.NewScanner(f)
		scanner.Buffer(make([]byte, 64*1024), maxGrepLine)
		for line := 1; scanner.Scan(); line++ {
			text := scanner.Text()
			if re.MatchString(text) {
				matches = append(matches, fmt.Sprintf("%s:%d: %s", path, line, text))
				if len(matches) >= maxGrepMatches {
					return fs.SkipAll
				}
			}
		}
		if err := scanner.Err(); err != nil {
			skipped = append(skipped, fmt.Sprintf("%s: %v", path, err))
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return matches, skipped, nil
}

// applyEdit replaces every occurrence of old and returns how many there were.
// The file is left untouched when there are none.
func applyEdit(path, old, repl string) (int, error) {
	if old == "" {
		return 0, fmt.Errorf("old must not be empty")
	}
	info, err := os.Stat(path)
	if err != nil {
		return 0, fmt.Errorf("apply edit: %w", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("apply edit: %w", err)
	}
	text := string(data)
	count := strings.Count(text, old)
	if count == 0 {
		return 0, nil
	}
	if err := os.WriteFile(path, []byte(strings.ReplaceAll(text, old, repl)), info.Mode().Perm()); err != nil {
		return 0, fmt.Errorf("apply edit: %w", err)
	}
	return count, nil
}
