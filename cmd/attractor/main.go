// Command attractor is a minimal CLI over the execution engine: run a
// graph to completion, resume one from its last checkpoint, or validate a
// graph without running it (spec §6.1). Grounded on kilroy's
// cmd/kilroy/main.go manual os.Args switch dispatch — no flag-parsing
// library, matching the teacher exactly since the CLI itself is out of
// core scope (spec §1).
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/gutelius/attractor/internal/ctxlog"
	"github.com/gutelius/attractor/internal/engine"
	"github.com/gutelius/attractor/internal/graph"
	"github.com/gutelius/attractor/internal/handler"
	"github.com/gutelius/attractor/internal/registry"
	"github.com/gutelius/attractor/internal/runconfig"
	"github.com/gutelius/attractor/internal/runtime"
	"github.com/gutelius/attractor/internal/transform"
	"github.com/gutelius/attractor/internal/validate"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}
	switch os.Args[1] {
	case "run":
		cmdRun(os.Args[2:])
	case "resume":
		cmdResume(os.Args[2:])
	case "validate":
		cmdValidate(os.Args[2:])
	default:
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage:")
	fmt.Fprintln(os.Stderr, "  attractor run --config <run.yaml>")
	fmt.Fprintln(os.Stderr, "  attractor resume --config <run.yaml>")
	fmt.Fprintln(os.Stderr, "  attractor validate --graph <graph.json>")
}

func flagValue(args []string, name string) (string, bool) {
	for i, a := range args {
		if a == name {
			if i+1 >= len(args) {
				return "", false
			}
			return args[i+1], true
		}
	}
	return "", false
}

func loadGraph(path string) (*graph.Graph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read graph %s: %w", path, err)
	}
	return graph.ParseJSON(data)
}

// buildRegistry wires every built-in handler type, including the engine
// itself as the parallel subsystem's BranchRunner (spec §4.5, §4.7).
func buildRegistry(e *engine.Engine, cfg *runconfig.RunConfig) *registry.Registry {
	reg := e.Registry

	var interviewer handler.Interviewer
	switch cfg.Interviewer.Kind {
	case "queue":
		answers := make([]handler.Answer, len(cfg.Interviewer.Answers))
		for i, a := range cfg.Interviewer.Answers {
			answers[i] = handler.Answer{Selected: a}
		}
		interviewer = handler.NewQueueInterviewer(answers...)
	case "terminal":
		interviewer = handler.NewTerminalInterviewer(os.Stdin, os.Stdout)
	default:
		interviewer = handler.AutoApproveInterviewer{}
	}

	reg.Register("start", handler.StartHandler{})
	reg.Register("exit", handler.ExitHandler{})
	reg.Register("conditional", handler.ConditionalHandler{})
	reg.Register("codergen", handler.NewCodergenHandler(handler.EchoBackend{}))
	reg.Register("wait.human", handler.NewWaitHumanHandler(interviewer))
	reg.Register("tool", handler.NewToolHandler(handler.ShellToolRunner{}))
	reg.Register("stack.manager_loop", handler.NewStackManagerLoopHandler(handler.NoopStackRunner{}))
	reg.Register("parallel", handler.NewParallelHandler(e))
	reg.Register("parallel.fan_in", handler.FanInHandler{})
	return reg
}

func newEngine(g *graph.Graph, cfg *runconfig.RunConfig) *engine.Engine {
	reg := registry.New()
	opts := engine.Options{
		Persistence: runtime.NewFilePersistence(cfg.Checkpoint.Path),
	}
	if cfg.RuntimePolicy.StepLimit != nil {
		opts.StepLimit = *cfg.RuntimePolicy.StepLimit
	}
	if cfg.RuntimePolicy.DefaultMaxRetry != nil {
		g.DefaultMaxRetry = *cfg.RuntimePolicy.DefaultMaxRetry
	}
	e := engine.New(g, reg, opts)
	buildRegistry(e, cfg)
	return e
}

func loggingContext() context.Context {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	return ctxlog.WithLogger(context.Background(), logger)
}

func cmdRun(args []string) {
	configPath, ok := flagValue(args, "--config")
	if !ok {
		usage()
		os.Exit(1)
	}
	cfg, err := runconfig.Load(configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	g, err := loadGraph(cfg.Graph)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if cfg.Goal != "" {
		g.Goal = cfg.Goal
	}
	if err := transform.Run(g, transform.Default()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	e := newEngine(g, cfg)
	if err := e.Initialize(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	runAndReport(e)
}

func cmdResume(args []string) {
	configPath, ok := flagValue(args, "--config")
	if !ok {
		usage()
		os.Exit(1)
	}
	cfg, err := runconfig.Load(configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	g, err := loadGraph(cfg.Graph)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if cfg.Goal != "" {
		g.Goal = cfg.Goal
	}
	if err := transform.Run(g, transform.Default()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	e := newEngine(g, cfg)
	resumed, err := e.Resume()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if !resumed {
		fmt.Fprintln(os.Stderr, "no checkpoint found; nothing to resume")
		os.Exit(1)
	}
	runAndReport(e)
}

func runAndReport(e *engine.Engine) {
	ctx := loggingContext()
	if err := e.Run(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Println("ok")
}

func cmdValidate(args []string) {
	graphPath, ok := flagValue(args, "--graph")
	if !ok {
		usage()
		os.Exit(1)
	}
	g, err := loadGraph(graphPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if err := transform.Run(g, transform.Default()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	diags := validate.SortBySeverity(validate.Validate(g))
	hasError := false
	for _, d := range diags {
		fmt.Printf("%s: %s (%s)\n", d.Severity, d.Message, d.Rule)
		if d.Severity == validate.SeverityError {
			hasError = true
		}
	}
	if hasError {
		os.Exit(1)
	}
	fmt.Println("ok")
}
