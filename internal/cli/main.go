package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/jspreston/devolve/internal/pipeline"
)

// Injected at build time via ldflags.
var (
	version = "dev"
	commit  = "unknown"
)

const (
	exitOK         = 0
	exitGeneral    = 1
	exitUsage      = 2
	exitValidation = 4
	exitInterrupt  = 130
)

func Main() {
	_ = godotenv.Load() // best-effort: load .env if present

	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	root := &cobra.Command{
		Use:     "devolve <input> <output>",
		Short:   "Cut a video at audio transients and shuffle the pieces",
		Version: fmt.Sprintf("%s (commit: %s)", version, commit),
		Args: func(cmd *cobra.Command, args []string) error {
			if err := cobra.ExactArgs(2)(cmd, args); err != nil {
				return usageError{err}
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, args[0], args[1])
		},
	}

	root.SetOut(os.Stdout)
	root.SetErr(os.Stderr)
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError{err}
	})

	root.Flags().Float64P("threshold", "t", 0.5, "Transient sensitivity, 0.0-1.0")
	root.Flags().BoolP("play", "p", false, "Play the output video when done")
	root.Flags().Int64("seed", 0, "Fix the shuffle order (0 = random each run)")
	root.Flags().String("config", "", "Path to a YAML config file")
	root.Flags().BoolP("verbose", "v", false, "Debug logging")

	// Hidden debugging flag
	root.Flags().Bool("keep-temp", false, "Keep the temp workspace")
	_ = root.Flags().MarkHidden("keep-temp")

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}

// usageError marks argument and flag parse failures so they map to their own
// exit code.
type usageError struct{ err error }

func (u usageError) Error() string { return u.err.Error() }
func (u usageError) Unwrap() error { return u.err }

func exitCode(err error) int {
	if err == nil {
		return exitOK
	}
	if errors.Is(err, context.Canceled) {
		return exitInterrupt
	}
	var usage usageError
	if errors.As(err, &usage) {
		return exitUsage
	}
	if errors.Is(err, pipeline.ErrInvalidThreshold) ||
		errors.Is(err, pipeline.ErrInputNotFound) ||
		errors.Is(err, pipeline.ErrOutputUnwritable) {
		return exitValidation
	}
	return exitGeneral
}
