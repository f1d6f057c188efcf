package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/hupe1980/agentweave"
	"github.com/hupe1980/agentweave/config"
	"github.com/hupe1980/agentweave/engine"
	"github.com/hupe1980/agentweave/logging"
	"github.com/hupe1980/agentweave/orchestration"
)

// RunCmd runs a workflow definition, answering its requests from stdin.
type RunCmd struct {
	File  string `arg:"" help:"Workflow definition (YAML)." type:"existingfile"`
	Input string `short:"i" help:"Task for the workflow. Read from stdin when empty."`
}

func (c *RunCmd) Run(cli *CLI) error {
	f, err := config.Load(c.File)
	if err != nil {
		return err
	}

	logger, err := newLogger(f.Logging, cli.LogLevel, cli.LogFormat)
	if err != nil {
		return err
	}

	wf, err := f.Build(func(o *config.BuildOptions) { o.Logger = logger })
	if err != nil {
		return fmt.Errorf("failed to build workflow %s: %w", f.Name, err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	in := bufio.NewReader(os.Stdin)

	input := c.Input
	if input == "" {
		if input, err = prompt(in, os.Stdout, "Task> "); err != nil {
			return err
		}
	}

	aw := agentweave.New(func(o *agentweave.Options) {
		o.Logger = logger
		o.Callbacks = lifecycleCallbacks(logger)
	})

	return drive(ctx, aw, wf, input, in, os.Stdout)
}

// drive runs wf to completion, rendering every segment to out and answering
// pending requests from in.
func drive(ctx context.Context, aw *agentweave.AgentWeave, wf *orchestration.Workflow, input string, in *bufio.Reader, out io.Writer) error {
	r := newRenderer(out)

	runID, events, errs, err := aw.Start(ctx, wf, input)
	if err != nil {
		return err
	}

	for {
		for ev := range events {
			r.render(ev)
		}
		if err := <-errs; err != nil {
			return fmt.Errorf("run %s failed: %w", runID, err)
		}

		if wf.Status() != orchestration.StatusSuspended {
			return nil
		}

		responses, err := answer(wf.PendingRequests(), in, out)
		if err != nil {
			_ = aw.Stop(runID)
			return err
		}

		events, errs, err = aw.Resume(ctx, runID, responses)
		if err != nil {
			return err
		}
	}
}

// lifecycleCallbacks reports segment boundaries and failures at debug level.
func lifecycleCallbacks(logger logging.Logger) []engine.Callback {
	debug := func(msg string) { logger.Debug(msg) }
	return []engine.Callback{
		engine.NewLoggingCallback(engine.CallbackAfterSegment, debug),
		engine.NewLoggingCallback(engine.CallbackOnError, debug),
	}
}

func newLogger(cfg config.LoggingConfig, levelFlag, formatFlag string) (logging.Logger, error) {
	levelName := cfg.Level
	if levelFlag != "" {
		levelName = levelFlag
	}
	level, ok := logging.ParseLevel(levelName)
	if !ok {
		return nil, fmt.Errorf("unknown log level %q", levelName)
	}

	format := cfg.Format
	if formatFlag != "" {
		format = formatFlag
	}

	return logging.NewLogger(&logging.LoggerConfig{
		Level:     level,
		Format:    strings.ToLower(format),
		Output:    os.Stderr,
		Component: "cli",
	}), nil
}
