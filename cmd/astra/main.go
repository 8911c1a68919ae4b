// Command astra runs a goal through the bounded think/act agent loop.
//
//	astra run  [flags] <goal...>   execute the goal with the default tools
//	astra plan [flags] <goal...>   print a plan without calling tools
//	astra chat [flags]             interactive session, one run per line
//	astra tools [flags]            list the registered tools
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/martinemde/astra/agentloop"
	"github.com/martinemde/astra/internal/config"
	"github.com/martinemde/astra/internal/logging"
	"github.com/martinemde/astra/llm"
	"github.com/martinemde/astra/subtask"
	"github.com/martinemde/astra/tools"
)

const version = "0.1.0"

// Exit codes.
const (
	exitOK        = 0
	exitError     = 1
	exitUsage     = 2
	exitExhausted = 3
	exitCancelled = 130
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		printHelp(stderr)
		return exitUsage
	}

	command, rest := args[0], args[1:]
	switch command {
	case "run":
		return runCmd(ctx, rest, stdout, stderr)
	case "plan":
		return planCmd(ctx, rest, stdout, stderr)
	case "chat":
		return chatCmd(ctx, rest, stdout, stderr)
	case "tools":
		return toolsCmd(rest, stdout, stderr)
	case "version", "--version", "-v":
		fmt.Fprintf(stdout, "astra v%s\n", version)
		return exitOK
	case "help", "--help", "-h":
		printHelp(stdout)
		return exitOK
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n", command)
		printHelp(stderr)
		return exitUsage
	}
}

func printHelp(w io.Writer) {
	fmt.Fprintln(w, "usage: astra <command> [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "commands:")
	fmt.Fprintln(w, "  run <goal...>    execute a goal with the default tools")
	fmt.Fprintln(w, "  plan <goal...>   print a step-by-step plan, no tools")
	fmt.Fprintln(w, "  chat             interactive session")
	fmt.Fprintln(w, "  tools            list available tools")
	fmt.Fprintln(w, "  version          print the version")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Settings come from the file named by -config or ASTRA_CONFIG, then ASTRA_* variables.")
}

// cliFlags are the flags shared by every command. Flags override the loaded
// configuration only when set.
type cliFlags struct {
	configPath    string
	mock          bool
	maxIterations int
	toolMode      string
	workDir       string
	verbose       bool
}

func parseFlags(name string, args []string, stderr io.Writer) (*cliFlags, []string, error) {
	f := &cliFlags{}
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&f.configPath, "config", "", "path to a YAML config file")
	fs.BoolVar(&f.mock, "mock", false, "use the offline mock model")
	fs.IntVar(&f.maxIterations, "max-iterations", 0, "iteration bound for the run")
	fs.StringVar(&f.toolMode, "mode", "", "tool mode: native or convention")
	fs.StringVar(&f.workDir, "C", "", "working directory for tools")
	fs.BoolVar(&f.verbose, "verbose", false, "log at debug level")
	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}
	return f, fs.Args(), nil
}

func loadConfig(f *cliFlags) (*config.Config, error) {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return nil, err
	}
	if f.mock {
		cfg.Mock = true
	}
	if f.maxIterations > 0 {
		cfg.MaxIterations = f.maxIterations
	}
	if f.toolMode != "" {
		cfg.ToolMode = f.toolMode
	}
	if f.workDir != "" {
		cfg.WorkDir = f.workDir
	}
	if f.verbose {
		cfg.LogLevel = "debug"
	}
	return cfg, cfg.Validate()
}

// app holds everything a command needs.
type app struct {
	cfg    *config.Config
	logger zerolog.Logger
	client *llm.Client
	agent  *agentloop.Agent
}

func newApp(f *cliFlags, stderr io.Writer) (*app, error) {
	cfg, err := loadConfig(f)
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat, stderr)
	if err != nil {
		return nil, err
	}

	client, err := newClient(cfg, logger)
	if err != nil {
		return nil, err
	}

	env := tools.NewEnvironment(cfg.WorkDir)
	runner := subtask.New(subtask.WithConcurrency(cfg.Concurrency), subtask.WithLogger(logger))
	registry := agentloop.NewToolRegistry()
	tools.RegisterDefaults(registry, env, runner)

	agentCfg := cfg.AgentConfig()
	agentCfg.WorkingDirectory = env.WorkingDirectory()
	agent := agentloop.NewAgent(client, registry,
		agentloop.WithConfig(agentCfg),
		agentloop.WithLogger(logger),
	)
	logger.Debug().Stringer("agent", agent).Msg("agent ready")

	return &app{cfg: cfg, logger: logger, client: client, agent: agent}, nil
}

func (a *app) Close() {
	a.agent.Close()
	if err := a.client.Close(); err != nil {
		a.logger.Warn().Err(err).Msg("closing model client")
	}
}

// newClient wires the provider adapter behind logging, retry and rate
// limiting middleware, applied in that order.
func newClient(cfg *config.Config, logger zerolog.Logger) (*llm.Client, error) {
	var adapter llm.ProviderAdapter
	if cfg.Mock {
		adapter = llm.NewMockAdapter()
	} else {
		gollmAdapter, err := llm.NewGollmAdapter(llm.GollmConfig{
			Provider:    cfg.Provider,
			APIKey:      cfg.APIKey,
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
		})
		if err != nil {
			return nil, err
		}
		adapter = gollmAdapter
	}

	policy := llm.DefaultRetryPolicy()
	policy.MaxRetries = cfg.Retries
	policy.OnRetry = func(err error, attempt int, delay time.Duration) {
		logger.Warn().Err(err).Int("attempt", attempt).Dur("delay", delay).Msg("retrying model call")
	}
	middleware := []llm.Middleware{
		llm.LoggingMiddleware(logger),
		llm.RetryMiddleware(policy),
	}
	if cfg.RateLimit > 0 {
		middleware = append(middleware, llm.RateLimitMiddleware(rate.NewLimiter(rate.Limit(cfg.RateLimit), 1)))
	}

	return llm.NewClient(
		llm.WithProvider(adapter.Name(), adapter),
		llm.WithMiddleware(middleware...),
	), nil
}

func runCmd(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	f, rest, err := parseFlags("run", args, stderr)
	if err != nil {
		return exitUsage
	}
	goal := strings.TrimSpace(strings.Join(rest, " "))
	if goal == "" {
		fmt.Fprintln(stderr, "run: a goal is required")
		return exitUsage
	}

	a, err := newApp(f, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitError
	}
	defer a.Close()

	result, err := a.agent.RunTask(ctx, goal, agentloop.OnNarration(func(text string) {
		fmt.Fprintln(stdout, text)
	}))
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", describeGatewayError(err))
		return exitError
	}

	switch result.Status {
	case agentloop.StatusFinal:
		return exitOK
	case agentloop.StatusCancelled:
		fmt.Fprintln(stderr, result.Text)
		return exitCancelled
	default:
		fmt.Fprintln(stderr, result.Text)
		return exitExhausted
	}
}

func planCmd(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	f, rest, err := parseFlags("plan", args, stderr)
	if err != nil {
		return exitUsage
	}
	goal := strings.TrimSpace(strings.Join(rest, " "))
	if goal == "" {
		fmt.Fprintln(stderr, "plan: a goal is required")
		return exitUsage
	}

	a, err := newApp(f, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitError
	}
	defer a.Close()

	plan, err := a.agent.PlanOnly(ctx, goal)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", describeGatewayError(err))
		return exitError
	}
	fmt.Fprintln(stdout, plan)
	return exitOK
}

func toolsCmd(args []string, stdout, stderr io.Writer) int {
	f, _, err := parseFlags("tools", args, stderr)
	if err != nil {
		return exitUsage
	}
	// Listing tools never talks to a model.
	f.mock = true
	a, err := newApp(f, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitError
	}
	defer a.Close()

	for _, info := range a.agent.ListTools() {
		fmt.Fprintf(stdout, "%-16s %s\n", info.Name, info.Description)
	}
	return exitOK
}

// describeGatewayError appends a hint for failures the user can fix.
func describeGatewayError(err error) string {
	var gerr *llm.GatewayError
	if !errors.As(err, &gerr) {
		return err.Error()
	}
	switch gerr.Category {
	case llm.CategoryAuthentication, llm.CategoryAccessDenied:
		return err.Error() + " (check ASTRA_API_KEY or the provider's key variable)"
	case llm.CategoryConfiguration, llm.CategoryNotFound:
		return err.Error() + " (check ASTRA_PROVIDER and ASTRA_MODEL)"
	case llm.CategoryRateLimit:
		return err.Error() + " (lower ASTRA_RATE_LIMIT or raise ASTRA_RETRIES)"
	}
	return err.Error()
}
