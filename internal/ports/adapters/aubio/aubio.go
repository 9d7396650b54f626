// Package aubio detects audio transients with the pure-Go aubio onset
// detector. The library runs with permissive settings to collect every
// candidate onset; the normalized threshold is then applied to each onset's
// local energy, so a higher threshold keeps only the most prominent hits.
package aubio

import (
	"context"
	"fmt"
	"math"
	"os"
	"sort"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/rs/zerolog"
	onset "github.com/schollz/onsets"
)

const (
	// hfc (high frequency content) reacts to percussive attacks, which is
	// what a cut point should look like.
	detectMethod = "hfc"
	bufSize      = 512
	hopSize      = 256

	// Library-level settings stay permissive: candidate selection happens
	// later against the normalized strength threshold.
	libThreshold = 0.02
	libMinioiMs  = 10.0

	// RMS window used to score each onset's strength.
	strengthWindowMs = 50.0
)

type Detector struct {
	log zerolog.Logger
}

func New(log zerolog.Logger) *Detector {
	return &Detector{log: log.With().Str("component", "aubio").Logger()}
}

// Detect returns the onset timestamps (seconds, ascending, deduplicated at
// millisecond resolution) whose strength exceeds threshold times the
// strongest onset. threshold 0 keeps every onset with positive strength;
// threshold 1 keeps none (strict comparison). An empty result is valid.
func (d *Detector) Detect(ctx context.Context, wavPath string, threshold float64) ([]float64, error) {
	samples, sampleRate, err := readWavMono(wavPath)
	if err != nil {
		return nil, err
	}
	if len(samples) == 0 {
		return nil, nil
	}

	candidates, err := detectAllOnsets(ctx, samples, sampleRate)
	if err != nil {
		return nil, err
	}
	d.log.Debug().Int("candidates", len(candidates)).Msg("onset candidates collected")

	strengths := make([]float64, len(candidates))
	for i, t := range candidates {
		strengths[i] = onsetStrength(samples, sampleRate, t)
	}

	kept := keepAboveThreshold(candidates, strengths, threshold)
	sort.Float64s(kept)
	kept = dedupeMs(kept)

	d.log.Debug().
		Float64("threshold", threshold).
		Int("kept", len(kept)).
		Msg("transients selected")
	return kept, nil
}

// readWavMono decodes a WAV file and returns the first channel normalized to
// [-1, 1]. The pipeline extracts mono 16-bit audio, so channel 0 is the
// whole signal.
func readWavMono(path string) ([]float64, uint, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("open wav: %w", err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, 0, fmt.Errorf("invalid wav file: %s", path)
	}
	sampleRate := uint(dec.SampleRate)

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, 0, fmt.Errorf("read pcm: %w", err)
	}

	samples, err := firstChannel(buf)
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", path, err)
	}
	return samples, sampleRate, nil
}

// firstChannel normalizes channel 0 of a 16-bit PCM buffer to [-1, 1].
func firstChannel(buf *audio.IntBuffer) ([]float64, error) {
	channels := buf.Format.NumChannels
	if channels < 1 {
		return nil, fmt.Errorf("wav has no channels")
	}
	n := len(buf.Data) / channels
	samples := make([]float64, n)
	for i := 0; i < n; i++ {
		samples[i] = float64(buf.Data[i*channels]) / 32768.0
	}
	return samples, nil
}

// detectAllOnsets runs the aubio detector over the signal hop by hop and
// collects every reported onset time.
func detectAllOnsets(ctx context.Context, samples []float64, sampleRate uint) ([]float64, error) {
	o := onset.NewOnset(detectMethod, bufSize, hopSize, sampleRate)
	o.SetThreshold(libThreshold)
	o.SetMinioiMs(libMinioiMs)

	in := onset.NewFvec(hopSize)
	out := onset.NewFvec(1)

	var onsets []float64
	total := uint(len(samples))
	for pos := uint(0); pos+hopSize < total; pos += hopSize {
		if pos%(hopSize*1024) == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		for i := uint(0); i < hopSize; i++ {
			in.Data[i] = samples[pos+i]
		}
		o.Do(in, out)
		if out.Data[0] > 0 {
			onsets = append(onsets, o.GetLastS())
		}
	}
	return onsets, nil
}

// onsetStrength scores an onset by the RMS energy of the window starting at
// it.
func onsetStrength(samples []float64, sampleRate uint, onsetTime float64) float64 {
	window := int(strengthWindowMs * float64(sampleRate) / 1000.0)
	start := int(onsetTime * float64(sampleRate))
	if start < 0 {
		start = 0
	}
	end := start + window
	if end > len(samples) {
		end = len(samples)
	}
	if start >= end {
		return 0
	}

	var sum float64
	for i := start; i < end; i++ {
		sum += samples[i] * samples[i]
	}
	return math.Sqrt(sum / float64(end-start))
}

// keepAboveThreshold keeps onsets whose strength strictly exceeds threshold
// times the maximum strength. The strict comparison makes threshold 1.0
// discard even the strongest onset and threshold 0.0 keep anything with
// positive strength.
func keepAboveThreshold(onsets, strengths []float64, threshold float64) []float64 {
	var maxStrength float64
	for _, s := range strengths {
		if s > maxStrength {
			maxStrength = s
		}
	}
	if maxStrength == 0 {
		return nil
	}

	cut := threshold * maxStrength
	kept := make([]float64, 0, len(onsets))
	for i, t := range onsets {
		if strengths[i] > cut {
			kept = append(kept, t)
		}
	}
	return kept
}

// dedupeMs drops onsets within a millisecond of the previous kept one.
// Input must be sorted ascending.
func dedupeMs(sorted []float64) []float64 {
	if len(sorted) < 2 {
		return sorted
	}
	out := sorted[:1]
	for _, t := range sorted[1:] {
		if t-out[len(out)-1] >= 0.001 {
			out = append(out, t)
		}
	}
	return out
}
