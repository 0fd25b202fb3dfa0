package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/aretw0/ivy/internal/compiler"
	"github.com/aretw0/ivy/internal/dto"
	"github.com/aretw0/ivy/internal/presentation/tui"
	"github.com/aretw0/ivy/internal/runtime"
	"github.com/aretw0/ivy/internal/validator"
	"github.com/aretw0/ivy/pkg/adapters/recorder"
	"github.com/aretw0/ivy/pkg/adapters/terminal"
	"github.com/aretw0/ivy/pkg/ports"
)

// RunOptions contains all the configuration for the Run command.
type RunOptions struct {
	EngineOptions
	Path   string
	Pretty bool // render frames with glamour
	Trace  bool // trace render host calls on Stderr
	Quiet  bool // print the final frame only
}

// LoadScenario reads, parses and validates a scenario file.
func LoadScenario(path string) (*dto.Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	sc, err := compiler.NewParser().Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if err := validator.ValidateScenario(sc); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return sc, nil
}

// Execute replays the scenario at opts.Path and prints a frame per step to out.
func Execute(ctx context.Context, opts RunOptions, out io.Writer) error {
	sc, err := LoadScenario(opts.Path)
	if err != nil {
		return err
	}

	var host ports.RenderHost = recorder.New()
	if opts.Trace {
		host = terminal.New(os.Stderr)
	}

	bundle, err := createEngine(opts.EngineOptions, host)
	if err != nil {
		return err
	}
	defer func() { _ = bundle.engine.Close() }()

	player, err := runtime.Load(ctx, bundle.engine, sc, runtime.WithLogger(bundle.logger))
	if err != nil {
		return err
	}
	defer player.Close()

	render := tui.NewRenderer(opts.Pretty)
	var last runtime.Frame
	show := func(f runtime.Frame) {
		if f.Markdown == "" {
			return
		}
		doc := fmt.Sprintf("## %s\n\n%s", frameTitle(f), f.Markdown)
		rendered, err := render(doc)
		if err != nil {
			bundle.logger.Warn("frame render failed", "step", f.Step, "err", err)
			rendered = doc
		}
		fmt.Fprintln(out, rendered)
	}

	err = player.Play(ctx, func(f runtime.Frame) {
		last = f
		if !opts.Quiet {
			show(f)
		}
	})
	if opts.Quiet {
		show(last)
	}
	if err != nil {
		return err
	}

	if !opts.Quiet {
		name := sc.Name
		if name == "" {
			name = opts.Path
		}
		printSystemMessage(out, "Replayed %d steps of '%s'.", len(sc.Steps), name)
	}
	return nil
}

func frameTitle(f runtime.Frame) string {
	if f.Step < 0 {
		return "initial"
	}
	return fmt.Sprintf("step %d: %s", f.Step+1, f.Op)
}
