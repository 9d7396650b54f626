package ports

import (
	"context"
	"time"

	"github.com/jspreston/devolve/internal/types"
)

// MediaSource is the narrow surface the pipeline needs from the underlying
// media tooling: probe, pull the audio track, cut a sub-clip, and join clips.
type MediaSource interface {
	Probe(ctx context.Context, path string) (types.VideoInfo, error)
	ExtractAudioMono16k(ctx context.Context, in, outWav string) error
	ExtractClip(ctx context.Context, in string, start, end time.Duration, out string) error
	Concat(ctx context.Context, parts []string, out string) error
}

// TransientDetector finds onset timestamps (seconds, ascending) in a mono
// 16-bit WAV file. threshold is the normalized sensitivity in [0,1]; the
// caller validates the range.
type TransientDetector interface {
	Detect(ctx context.Context, wavPath string, threshold float64) ([]float64, error)
}

// Player starts playback of a rendered file. Failures are expected on hosts
// without a player and must be treated as non-fatal by callers.
type Player interface {
	Play(ctx context.Context, path string) error
}
