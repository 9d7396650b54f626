package ffplay

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"

	"github.com/rs/zerolog"
)

type Adapter struct {
	ffplay string
	log    zerolog.Logger
}

func New(ffplayPath string, log zerolog.Logger) *Adapter {
	if ffplayPath == "" {
		ffplayPath = "ffplay"
	}
	return &Adapter{
		ffplay: ffplayPath,
		log:    log.With().Str("component", "ffplay").Logger(),
	}
}

// Play shows the rendered video. It prefers ffplay (blocks until the video
// ends) and falls back to the OS opener when ffplay is not installed.
// Callers treat any error as a warning.
func (a *Adapter) Play(ctx context.Context, path string) error {
	if _, err := exec.LookPath(a.ffplay); err == nil {
		a.log.Debug().Str("path", path).Msg("playing with ffplay")
		cmd := exec.CommandContext(ctx, a.ffplay,
			"-autoexit",
			"-loglevel", "error",
			path,
		)
		b, err := cmd.CombinedOutput()
		if err != nil {
			return fmt.Errorf("ffplay: %w\n%s", err, string(b))
		}
		return nil
	}

	opener, args := osOpener()
	if opener == "" {
		return fmt.Errorf("no player available: %s not found and no OS opener for %s", a.ffplay, runtime.GOOS)
	}
	a.log.Debug().Str("opener", opener).Str("path", path).Msg("opening with OS default player")

	// Openers hand off to another process; do not wait for playback.
	cmd := exec.CommandContext(ctx, opener, append(args, path)...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("%s: %w", opener, err)
	}
	go func() { _ = cmd.Wait() }()
	return nil
}

func osOpener() (string, []string) {
	switch runtime.GOOS {
	case "darwin":
		return "open", nil
	case "windows":
		return "cmd", []string{"/c", "start", ""}
	default:
		return "xdg-open", nil
	}
}
