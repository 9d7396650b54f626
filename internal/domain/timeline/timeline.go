package timeline

import (
	"errors"
	"math"
	"math/rand"
	"sort"
	"time"

	"github.com/jspreston/devolve/internal/types"
)

// Boundaries are compared at millisecond resolution: cut arguments are passed
// to ffmpeg with three decimals, so anything closer collapses into a
// zero-length cut.
const minBoundaryGap = time.Millisecond

// ErrNoDuration indicates the source video has a zero or negative duration.
var ErrNoDuration = errors.New("video has no duration")

// BuildSegments partitions [0, duration] at the given transient times
// (seconds). The returned segments cover the full duration in order, with no
// gaps and no overlaps: the first starts at 0, the last ends at duration, and
// each segment starts where the previous one ends. Transients outside
// (0, duration), or closer than a millisecond to a neighbour or an edge, are
// dropped. With no usable transients the result is a single full-length
// segment.
func BuildSegments(duration time.Duration, transients []float64) ([]types.Segment, error) {
	if duration <= 0 {
		return nil, ErrNoDuration
	}

	bounds := make([]time.Duration, 0, len(transients))
	for _, sec := range transients {
		if math.IsNaN(sec) || math.IsInf(sec, 0) {
			continue
		}
		b := time.Duration(sec * float64(time.Second)).Round(time.Millisecond)
		if b < minBoundaryGap || b > duration-minBoundaryGap {
			continue
		}
		bounds = append(bounds, b)
	}
	sort.Slice(bounds, func(i, j int) bool { return bounds[i] < bounds[j] })

	segs := make([]types.Segment, 0, len(bounds)+1)
	start := time.Duration(0)
	for _, b := range bounds {
		if b-start < minBoundaryGap {
			continue
		}
		segs = append(segs, types.Segment{Start: start, End: b})
		start = b
	}
	segs = append(segs, types.Segment{Start: start, End: duration})
	return segs, nil
}

// Perm returns a uniformly random permutation of n segment indices
// (Fisher-Yates via math/rand). A zero seed derives one from the clock, so
// every run shuffles differently; a non-zero seed fixes the order.
func Perm(n int, seed int64) []int {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed)).Perm(n)
}

// TotalDur returns the summed length of the segments.
func TotalDur(segs []types.Segment) time.Duration {
	var total time.Duration
	for _, s := range segs {
		total += s.Dur()
	}
	return total
}
