package usecase

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/jspreston/devolve/internal/domain/timeline"
	"github.com/jspreston/devolve/internal/ports"
	"github.com/jspreston/devolve/internal/types"
)

type Deps struct {
	Media    ports.MediaSource
	Detector ports.TransientDetector
	Player   ports.Player
	Log      zerolog.Logger
}

type Usecase struct{ d Deps }

func New(d Deps) Usecase { return Usecase{d: d} }

type Input struct {
	Input     string
	Output    string
	Threshold float64
	Seed      int64
	Play      bool

	// WorkDir holds intermediate artifacts (extracted audio, segment parts)
	// for the duration of the run.
	WorkDir string
}

type Result struct {
	Info     types.VideoInfo
	Segments []types.Segment
	Order    []int
}

// Run executes the pipeline end to end: probe, detect transients, partition
// the timeline, shuffle, cut, concatenate, and optionally play the result.
func (u Usecase) Run(ctx context.Context, in Input) (Result, error) {
	log := u.d.Log

	info, err := u.d.Media.Probe(ctx, in.Input)
	if err != nil {
		return Result{}, err
	}
	if info.Duration <= 0 {
		return Result{}, fmt.Errorf("input has no duration: %s", in.Input)
	}
	log.Info().
		Dur("duration", info.Duration).
		Str("video_codec", info.VideoCodec).
		Bool("has_audio", info.HasAudio).
		Msg("input probed")

	var transients []float64
	if info.HasAudio {
		wavPath := filepath.Join(in.WorkDir, "audio.wav")
		if err := u.d.Media.ExtractAudioMono16k(ctx, in.Input, wavPath); err != nil {
			return Result{}, err
		}

		transients, err = u.d.Detector.Detect(ctx, wavPath, in.Threshold)
		if err != nil {
			return Result{}, err
		}
		log.Info().Int("transients", len(transients)).Msg("transients detected")
	} else {
		log.Warn().Msg("input has no audio track; using a single segment")
	}

	segments, err := timeline.BuildSegments(info.Duration, transients)
	if err != nil {
		return Result{}, err
	}
	order := timeline.Perm(len(segments), in.Seed)
	log.Info().Int("segments", len(segments)).Msg("timeline shuffled")

	parts := make([]string, len(order))
	partExt := filepath.Ext(in.Output)
	if partExt == "" {
		partExt = ".mp4"
	}
	for i, idx := range order {
		seg := segments[idx]
		part := filepath.Join(in.WorkDir, fmt.Sprintf("part-%03d%s", i, partExt))
		if err := u.d.Media.ExtractClip(ctx, in.Input, seg.Start, seg.End, part); err != nil {
			return Result{}, err
		}
		parts[i] = part
	}

	if err := u.d.Media.Concat(ctx, parts, in.Output); err != nil {
		return Result{}, err
	}
	log.Info().Str("output", in.Output).Msg("output written")

	if in.Play && u.d.Player != nil {
		if err := u.d.Player.Play(ctx, in.Output); err != nil {
			log.Warn().Err(err).Msg("playback unavailable")
		}
	}

	return Result{Info: info, Segments: segments, Order: order}, nil
}
