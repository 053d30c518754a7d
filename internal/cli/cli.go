// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/vk/circuitgo/internal/app"
	"github.com/vk/circuitgo/internal/manualedits"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

func usageError(format string, args ...any) *ExitError {
	return &ExitError{Code: 2, Message: fmt.Sprintf(format, args...)}
}

// Parse processes command-line arguments. It returns a populated Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")
	flagSet := flag.NewFlagSet("circuitgo", flag.ContinueOnError)
	flagSet.SetOutput(output)

	// Custom usage/help text function
	flagSet.Usage = func() {
		fmt.Fprint(output, `
circuitgo - Evaluates circuit descriptions in a sandbox and settles their layout.

Usage:
  circuitgo [options] ENTRYPOINT

Arguments:
  ENTRYPOINT
    The .tsx, .jsx or .hcl file to evaluate. Every source and JSON file
    under its directory (or -root) is available to it.

Options:
`)
		flagSet.PrintDefaults()
	}

	var places []manualedits.Placement
	configFlag := flagSet.String("config", "", "Path to a TOML or YAML settings file. Flags override its values.")
	rootFlag := flagSet.String("root", "", "Directory loaded as the virtual file map. Defaults to the entrypoint's directory.")
	outFlag := flagSet.String("o", "", "Write the circuit document to this file instead of stdout.")
	editsFlag := flagSet.String("edits", "", "Manual edits file applied to the whole circuit.")
	editsOutFlag := flagSet.String("edits-out", "", "Where recorded placements are saved. Defaults to -edits.")
	flagSet.Func("place", "Record a placement, e.g. R1=5,5 or R1=5,5@absolute. Repeatable.", func(v string) error {
		p, err := ParsePlacement(v)
		if err != nil {
			return err
		}
		places = append(places, p)
		return nil
	})
	healthPortFlag := flagSet.Int("healthcheck-port", 0, "Port for the HTTP health check and metrics server. 0 is disabled.")
	logFormatFlag := flagSet.String("log-format", "text", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	timeoutFlag := flagSet.Duration("timeout", 30*time.Second, "Deadline for evaluation and for settlement. 0 disables it.")
	maxIterFlag := flagSet.Int("max-iterations", 0, "Layout pass budget. 0 uses the default.")
	toleranceFlag := flagSet.Float64("tolerance", 0, "Settlement tolerance in mm. 0 uses the default.")
	strictFlag := flagSet.Bool("strict", false, "Fail when a manual edit selector matches nothing.")
	watchFlag := flagSet.Bool("watch", false, "Keep running and settle again whenever a source file changes.")
	publishURLFlag := flagSet.String("publish-url", "", "Socket.IO endpoint the settled document is pushed to.")
	publishNSFlag := flagSet.String("publish-namespace", "/", "Socket.IO namespace for -publish-url.")
	publishEventFlag := flagSet.String("publish-event", "circuit", "Socket.IO event name for -publish-url.")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, true, nil
		}
		return nil, false, usageError("%s", err.Error())
	}
	slog.Debug("Arguments parsed successfully.")

	if flagSet.NArg() == 0 {
		slog.Debug("No entrypoint provided, printing usage and exiting.")
		flagSet.Usage()
		return nil, true, nil
	}
	if flagSet.NArg() > 1 {
		return nil, false, usageError("expected one entrypoint, got %d", flagSet.NArg())
	}

	cfg := app.Config{
		Entrypoint:       flagSet.Arg(0),
		LogFormat:        *logFormatFlag,
		LogLevel:         *logLevelFlag,
		Timeout:          *timeoutFlag,
		PublishNamespace: *publishNSFlag,
		PublishEvent:     *publishEventFlag,
	}
	if *configFlag != "" {
		settings, err := app.LoadSettings(*configFlag)
		if err != nil {
			return nil, false, usageError("%s", err.Error())
		}
		settings.Apply(&cfg)
		slog.Debug("Settings file applied.", "path", *configFlag)
	}

	// Flags given on the command line win over the settings file.
	flagSet.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "root":
			cfg.RootDir = *rootFlag
		case "o":
			cfg.OutputPath = *outFlag
		case "edits":
			cfg.EditsPath = *editsFlag
		case "edits-out":
			cfg.EditsOut = *editsOutFlag
		case "healthcheck-port":
			cfg.HealthcheckPort = *healthPortFlag
		case "log-format":
			cfg.LogFormat = *logFormatFlag
		case "log-level":
			cfg.LogLevel = *logLevelFlag
		case "timeout":
			cfg.Timeout = *timeoutFlag
		case "max-iterations":
			cfg.MaxIterations = *maxIterFlag
		case "tolerance":
			cfg.Tolerance = *toleranceFlag
		case "strict":
			cfg.Strict = *strictFlag
		case "watch":
			cfg.Watch = *watchFlag
		case "publish-url":
			cfg.PublishURL = *publishURLFlag
		case "publish-namespace":
			cfg.PublishNamespace = *publishNSFlag
		case "publish-event":
			cfg.PublishEvent = *publishEventFlag
		}
	})
	cfg.Places = places

	cfg.LogFormat = strings.ToLower(cfg.LogFormat)
	if cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		return nil, false, usageError("invalid log-format: must be 'text' or 'json'")
	}

	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return nil, false, usageError("invalid log-level: must be 'debug', 'info', 'warn', or 'error'")
	}
	slog.Debug("CLI parameter validation complete.")

	config, err := app.NewConfig(cfg)
	if err != nil {
		return nil, false, usageError("%s", err.Error())
	}

	slog.Debug("CLI parser finished successfully.", "entrypoint", config.Entrypoint)
	return config, false, nil
}

// ParsePlacement reads SELECTOR=X,Y with an optional @absolute or
// @group_center suffix.
func ParsePlacement(s string) (manualedits.Placement, error) {
	selector, rest, ok := strings.Cut(s, "=")
	selector = strings.TrimSpace(selector)
	if !ok || selector == "" {
		return manualedits.Placement{}, fmt.Errorf("placement %q: want SELECTOR=X,Y", s)
	}
	coords, relativeTo, _ := strings.Cut(rest, "@")
	if relativeTo == "" {
		relativeTo = manualedits.RelativeToGroupCenter
	}
	if relativeTo != manualedits.RelativeToGroupCenter && relativeTo != manualedits.RelativeToAbsolute {
		return manualedits.Placement{}, fmt.Errorf("placement %q: unknown relative_to %q", s, relativeTo)
	}
	xs, ys, ok := strings.Cut(coords, ",")
	if !ok {
		return manualedits.Placement{}, fmt.Errorf("placement %q: want SELECTOR=X,Y", s)
	}
	x, err := strconv.ParseFloat(strings.TrimSpace(xs), 64)
	if err != nil {
		return manualedits.Placement{}, fmt.Errorf("placement %q: bad x: %w", s, err)
	}
	y, err := strconv.ParseFloat(strings.TrimSpace(ys), 64)
	if err != nil {
		return manualedits.Placement{}, fmt.Errorf("placement %q: bad y: %w", s, err)
	}
	if !finite(x) || !finite(y) {
		return manualedits.Placement{}, fmt.Errorf("placement %q: coordinates must be finite", s)
	}
	return manualedits.Placement{
		Selector:   selector,
		Center:     manualedits.Point{X: x, Y: y},
		RelativeTo: relativeTo,
	}, nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
