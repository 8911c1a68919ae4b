package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"

	"github.com/martinemde/astra/agentloop"
)

// lineReader is the part of readline.Instance the chat loop uses.
type lineReader interface {
	Readline() (string, error)
	Close() error
}

// newLineReader is replaced in tests.
var newLineReader = func(stdout io.Writer) (lineReader, error) {
	cfg := &readline.Config{
		Prompt:          "you> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
		Stdout:          stdout,
	}
	if home, err := os.UserHomeDir(); err == nil {
		cfg.HistoryFile = filepath.Join(home, ".astra_history")
	}
	rl, err := readline.NewEx(cfg)
	if err != nil {
		return nil, err
	}
	return rl, nil
}

func isExitCommand(line string) bool {
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "exit", "quit", ":q":
		return true
	}
	return false
}

func chatCmd(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	f, _, err := parseFlags("chat", args, stderr)
	if err != nil {
		return exitUsage
	}
	a, err := newApp(f, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitError
	}
	defer a.Close()

	rl, err := newLineReader(stdout)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitError
	}
	defer rl.Close()

	fmt.Fprintln(stdout, "Interactive session started. Type 'exit' to quit.")
	for {
		if ctx.Err() != nil {
			return exitCancelled
		}
		line, err := rl.Readline()
		switch {
		case errors.Is(err, readline.ErrInterrupt):
			if line == "" {
				return exitOK
			}
			continue
		case errors.Is(err, io.EOF):
			return exitOK
		case err != nil:
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return exitError
		}

		goal := strings.TrimSpace(line)
		if goal == "" {
			continue
		}
		if isExitCommand(goal) {
			return exitOK
		}

		result, err := a.agent.RunTask(ctx, goal, agentloop.OnNarration(func(text string) {
			fmt.Fprintln(stdout, text)
		}))
		if err != nil {
			// A failed turn does not end the session.
			fmt.Fprintf(stderr, "Error: %v\n", describeGatewayError(err))
			continue
		}
		if !result.IsFinal() {
			fmt.Fprintln(stderr, result.Text)
		}
	}
}
