package tools

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"

	"github.com/martinemde/astra/agentloop"
)

// RepoTools returns repo_files.
func RepoTools(env *Environment) []agentloop.Tool {
	return []agentloop.Tool{
		agentloop.NewFuncTool("repo_files", "List repo files honoring .gitignore.",
			[]agentloop.Parameter{
				{Name: "root", Type: agentloop.ParamString, Required: true},
			},
			func(ctx context.Context, args map[string]any) (string, error) {
				root, _ := agentloop.StringArg(args, "root")
				files, err := ListRepoFiles(ctx, env.Resolve(root))
				if err != nil {
					return "", err
				}
				return strings.Join(files, "\n"), nil
			}),
	}
}

// ListRepoFiles walks root and returns the files not excluded by the
// .gitignore at root. The .git directory is always skipped.
func ListRepoFiles(ctx context.Context, root string) ([]string, error) {
	matcher, err := loadGitignore(root)
	if err != nil {
		return nil, err
	}

	var files []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if path == root {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if d.Name() == ".git" || matcher.MatchesPath(rel+"/") {
				return filepath.SkipDir
			}
			return nil
		}
		if matcher.MatchesPath(rel) {
			return nil
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

func loadGitignore(root string) (*ignore.GitIgnore, error) {
	path := filepath.Join(root, ".gitignore")
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return ignore.CompileIgnoreLines(), nil
	}
	return ignore.CompileIgnoreFile(path)
}
