package ffmpeg

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/jspreston/devolve/internal/types"
)

// Encode defaults match the original export settings: frame-accurate
// re-encoded cuts so short segments keep their exact boundaries.
const (
	DefaultPreset       = "veryfast"
	DefaultCRF          = 18
	DefaultAudioBitrate = "192k"
)

type Options struct {
	FFmpegPath   string
	FFprobePath  string
	Preset       string
	CRF          int
	AudioBitrate string
	Log          zerolog.Logger
}

type Adapter struct {
	ffmpeg       string
	ffprobe      string
	preset       string
	crf          int
	audioBitrate string
	log          zerolog.Logger
}

func New(opts Options) *Adapter {
	if opts.FFmpegPath == "" {
		opts.FFmpegPath = "ffmpeg"
	}
	if opts.FFprobePath == "" {
		opts.FFprobePath = "ffprobe"
	}
	if opts.Preset == "" {
		opts.Preset = DefaultPreset
	}
	if opts.CRF == 0 {
		opts.CRF = DefaultCRF
	}
	if opts.AudioBitrate == "" {
		opts.AudioBitrate = DefaultAudioBitrate
	}
	return &Adapter{
		ffmpeg:       opts.FFmpegPath,
		ffprobe:      opts.FFprobePath,
		preset:       opts.Preset,
		crf:          opts.CRF,
		audioBitrate: opts.AudioBitrate,
		log:          opts.Log.With().Str("component", "ffmpeg").Logger(),
	}
}

func (a *Adapter) Probe(ctx context.Context, path string) (types.VideoInfo, error) {
	cmd := exec.CommandContext(ctx, a.ffprobe,
		"-v", "error",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return types.VideoInfo{}, fmt.Errorf("ffprobe: %w\n%s", err, string(b))
	}

	var pr probeResult
	if err := json.Unmarshal(b, &pr); err != nil {
		return types.VideoInfo{}, fmt.Errorf("parse ffprobe output: %w", err)
	}

	info := types.VideoInfo{Path: path}
	if sec, err := strconv.ParseFloat(pr.Format.Duration, 64); err == nil {
		info.Duration = time.Duration(sec * float64(time.Second))
	}
	for _, s := range pr.Streams {
		switch s.CodecType {
		case "video":
			info.Width = s.Width
			info.Height = s.Height
			info.VideoCodec = s.CodecName
			info.FPS = parseFrameRate(s.RFrameRate)
		case "audio":
			info.HasAudio = true
			info.AudioCodec = s.CodecName
		}
	}

	a.log.Debug().
		Str("input", path).
		Dur("duration", info.Duration).
		Bool("has_audio", info.HasAudio).
		Msg("probed input")
	return info, nil
}

func (a *Adapter) ExtractAudioMono16k(ctx context.Context, in, outWav string) error {
	cmd := exec.CommandContext(ctx, a.ffmpeg,
		"-y",
		"-i", in,
		"-vn",
		"-ac", "1",
		"-ar", "16000",
		"-f", "wav",
		outWav,
	)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg extract audio: %w\n%s", err, string(b))
	}
	return nil
}

func (a *Adapter) ExtractClip(ctx context.Context, in string, start, end time.Duration, out string) error {
	a.log.Debug().
		Str("out", filepath.Base(out)).
		Dur("start", start).
		Dur("end", end).
		Msg("extracting clip")

	cmd := exec.CommandContext(ctx, a.ffmpeg,
		"-y",
		"-ss", fmtSeconds(start),
		"-to", fmtSeconds(end),
		"-i", in,
		"-c:v", "libx264",
		"-preset", a.preset,
		"-crf", strconv.Itoa(a.crf),
		"-c:a", "aac",
		"-b:a", a.audioBitrate,
		out,
	)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg extract clip: %w\n%s", err, string(b))
	}
	return nil
}

// Concat joins the parts with the concat demuxer. The parts all come out of
// ExtractClip with identical encode settings, so stream copy is safe and
// avoids a second generation loss.
func (a *Adapter) Concat(ctx context.Context, parts []string, out string) error {
	if len(parts) == 0 {
		return fmt.Errorf("concat: no input parts")
	}

	a.log.Debug().Int("parts", len(parts)).Str("output", out).Msg("concatenating")

	list, err := writeConcatList(parts)
	if err != nil {
		return fmt.Errorf("concat list: %w", err)
	}
	defer os.Remove(list)

	cmd := exec.CommandContext(ctx, a.ffmpeg,
		"-y",
		"-f", "concat",
		"-safe", "0",
		"-i", list,
		"-c", "copy",
		out,
	)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg concat: %w\n%s", err, string(b))
	}
	return nil
}

// writeConcatList generates the temporary file list the concat demuxer reads.
func writeConcatList(parts []string) (string, error) {
	f, err := os.CreateTemp("", "devolve-concat-*.txt")
	if err != nil {
		return "", err
	}
	defer f.Close()

	for _, p := range parts {
		abs, err := filepath.Abs(p)
		if err != nil {
			return "", err
		}
		if _, err := fmt.Fprintf(f, "file '%s'\n", abs); err != nil {
			return "", err
		}
	}
	return f.Name(), nil
}

type probeResult struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
	Streams []struct {
		CodecType  string `json:"codec_type"`
		CodecName  string `json:"codec_name"`
		Width      int    `json:"width"`
		Height     int    `json:"height"`
		RFrameRate string `json:"r_frame_rate"`
	} `json:"streams"`
}

// parseFrameRate converts ffprobe's rational form ("30000/1001") to a float.
func parseFrameRate(s string) float64 {
	var num, den float64
	if _, err := fmt.Sscanf(s, "%f/%f", &num, &den); err != nil || den == 0 {
		return 0
	}
	return num / den
}

func fmtSeconds(d time.Duration) string {
	sec := float64(d) / float64(time.Second)
	return strconv.FormatFloat(sec, 'f', 3, 64)
}
