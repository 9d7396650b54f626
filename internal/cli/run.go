package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/jspreston/devolve/internal/config"
	"github.com/jspreston/devolve/internal/logging"
	"github.com/jspreston/devolve/internal/pipeline"
)

func run(cmd *cobra.Command, input, output string) error {
	threshold, _ := cmd.Flags().GetFloat64("threshold")
	play, _ := cmd.Flags().GetBool("play")
	seed, _ := cmd.Flags().GetInt64("seed")
	configPath, _ := cmd.Flags().GetString("config")
	verbose, _ := cmd.Flags().GetBool("verbose")
	keepTemp, _ := cmd.Flags().GetBool("keep-temp")

	log := logging.Init(verbose)

	appCfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	absIn, err := filepath.Abs(input)
	if err != nil {
		return err
	}
	absOut, err := filepath.Abs(output)
	if err != nil {
		return err
	}

	cfg := pipeline.Config{
		Input:     absIn,
		Output:    absOut,
		Threshold: threshold,
		Seed:      seed,
		Play:      play,
		KeepTemp:  keepTemp,

		FFmpegPath:  appCfg.Tools.FFmpeg,
		FFprobePath: appCfg.Tools.FFprobe,
		FFplayPath:  appCfg.Tools.FFplay,

		Preset:       appCfg.Encode.Preset,
		CRF:          appCfg.Encode.CRF,
		AudioBitrate: appCfg.Encode.AudioBitrate,

		Log: log,
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := pipeline.Run(cmd.Context(), cfg); err != nil {
		return err
	}

	if fi, err := os.Stat(absOut); err == nil {
		log.Info().
			Str("output", absOut).
			Str("size", humanize.Bytes(uint64(fi.Size()))).
			Msg("done")
	}
	return nil
}
