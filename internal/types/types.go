package types

import "time"

// Segment is a contiguous time range of the source video between two
// consecutive cut boundaries.
type Segment struct {
	Start time.Duration
	End   time.Duration
}

// Dur returns the segment length.
func (s Segment) Dur() time.Duration { return s.End - s.Start }

// VideoInfo holds probe results for an input file.
type VideoInfo struct {
	Path       string
	Duration   time.Duration
	Width      int
	Height     int
	FPS        float64
	VideoCodec string
	HasAudio   bool
	AudioCodec string
}
