package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/jspreston/devolve/internal/ports"
	"github.com/jspreston/devolve/internal/ports/adapters/aubio"
	"github.com/jspreston/devolve/internal/ports/adapters/ffmpeg"
	"github.com/jspreston/devolve/internal/ports/adapters/ffplay"
	"github.com/jspreston/devolve/internal/usecase"
)

// Sentinel errors for the validation failures the command layer maps to
// dedicated exit codes.
var (
	ErrInvalidThreshold = errors.New("threshold must be within [0.0, 1.0]")
	ErrInputNotFound    = errors.New("input video not found")
	ErrOutputUnwritable = errors.New("output location is not writable")
)

type Config struct {
	Input     string
	Output    string
	Threshold float64
	Seed      int64
	Play      bool

	// KeepTemp preserves the temp workspace (extracted audio, segment
	// parts) after the run for debugging.
	KeepTemp bool

	FFmpegPath  string
	FFprobePath string
	FFplayPath  string

	Preset       string
	CRF          int
	AudioBitrate string

	Log zerolog.Logger
}

func (c Config) Validate() error {
	if c.Input == "" {
		return errors.New("input is empty")
	}
	if c.Output == "" {
		return errors.New("output is empty")
	}
	if c.Threshold < 0.0 || c.Threshold > 1.0 {
		return fmt.Errorf("%w: got %v", ErrInvalidThreshold, c.Threshold)
	}
	fi, err := os.Stat(c.Input)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInputNotFound, err)
	}
	if fi.IsDir() {
		return fmt.Errorf("%w: %s is a directory", ErrInputNotFound, c.Input)
	}
	outDir := filepath.Dir(c.Output)
	di, err := os.Stat(outDir)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrOutputUnwritable, err)
	}
	if !di.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", ErrOutputUnwritable, outDir)
	}
	return nil
}

// Run wires the adapters and executes one pipeline invocation. The config
// must have been validated.
func Run(ctx context.Context, cfg Config) error {
	log := cfg.Log

	media := ffmpeg.New(ffmpeg.Options{
		FFmpegPath:   cfg.FFmpegPath,
		FFprobePath:  cfg.FFprobePath,
		Preset:       cfg.Preset,
		CRF:          cfg.CRF,
		AudioBitrate: cfg.AudioBitrate,
		Log:          log,
	})
	detector := aubio.New(log)
	player := ffplay.New(cfg.FFplayPath, log)

	uc := usecase.New(usecase.Deps{
		Media:    media,
		Detector: detector,
		Player:   player,
		Log:      log,
	})

	workDir, err := os.MkdirTemp("", "devolve-*")
	if err != nil {
		return fmt.Errorf("create workspace: %w", err)
	}
	if cfg.KeepTemp {
		log.Info().Str("dir", workDir).Msg("keeping temp workspace")
	} else {
		defer os.RemoveAll(workDir)
	}
	log.Debug().Str("dir", workDir).Msg("workspace ready")

	outputExisted := fileExists(cfg.Output)

	_, err = uc.Run(ctx, usecase.Input{
		Input:     cfg.Input,
		Output:    cfg.Output,
		Threshold: cfg.Threshold,
		Seed:      cfg.Seed,
		Play:      cfg.Play,
		WorkDir:   workDir,
	})
	if err != nil {
		// A failed export may leave a partial file behind; remove it
		// unless the path held a file before this run.
		if !outputExisted && fileExists(cfg.Output) {
			if rmErr := os.Remove(cfg.Output); rmErr != nil {
				log.Warn().Err(rmErr).Msg("could not remove partial output")
			}
		}
		return err
	}
	return nil
}

func fileExists(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && !fi.IsDir()
}

// ensure adapters implement ports
var _ ports.MediaSource = (*ffmpeg.Adapter)(nil)
var _ ports.TransientDetector = (*aubio.Detector)(nil)
var _ ports.Player = (*ffplay.Adapter)(nil)
