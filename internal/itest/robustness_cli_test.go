//go:build integration

package itest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"
)

const cliTimeout = 60 * time.Second

type robustCase struct {
	name            string
	args            func(t *testing.T, repoRoot string) []string
	wantExitCode    int
	wantContains    []string
	wantNotContains []string

	// outputMustNotExist is checked after the run; validation failures
	// must not leave an output file behind.
	outputMustNotExist string
}

type cliRunResult struct {
	exitCode int
	output   string
}

func staticArgs(args ...string) func(*testing.T, string) []string {
	return func(*testing.T, string) []string { return args }
}

func TestRobustness_ArgsValidation(t *testing.T) {
	repoRoot := mustRepoRoot(t)

	tmp := t.TempDir()
	sample := filepath.Join(tmp, "sample.mp4")
	if err := os.WriteFile(sample, []byte("not-really-a-video"), 0o644); err != nil {
		t.Fatalf("write sample fixture: %v", err)
	}
	out := filepath.Join(tmp, "out.mp4")

	cases := []robustCase{
		{
			name:         "no args",
			args:         staticArgs(),
			wantExitCode: 2,
			wantContains: []string{"accepts 2 arg(s), received 0"},
		},
		{
			name:         "one arg",
			args:         staticArgs(sample),
			wantExitCode: 2,
			wantContains: []string{"accepts 2 arg(s), received 1"},
		},
		{
			name:         "too many args",
			args:         staticArgs(sample, out, "extra"),
			wantExitCode: 2,
			wantContains: []string{"accepts 2 arg(s), received 3"},
		},
		{
			name:         "unknown flag",
			args:         staticArgs(sample, out, "--wat"),
			wantExitCode: 2,
			wantContains: []string{"unknown flag: --wat"},
		},
		{
			name:         "threshold non float",
			args:         staticArgs(sample, out, "--threshold", "nope"),
			wantExitCode: 2,
			wantContains: []string{`invalid argument "nope" for "-t, --threshold"`},
		},
		{
			name:               "threshold above range",
			args:               staticArgs(sample, out, "--threshold", "1.5"),
			wantExitCode:       4,
			wantContains:       []string{"threshold must be within [0.0, 1.0]"},
			outputMustNotExist: out,
		},
		{
			name:               "threshold below range",
			args:               staticArgs(sample, out, "-t", "-0.1"),
			wantExitCode:       4,
			wantContains:       []string{"threshold must be within [0.0, 1.0]"},
			outputMustNotExist: out,
		},
	}

	runRobustCases(t, repoRoot, cases)
}

func TestRobustness_InvalidInputMedia(t *testing.T) {
	repoRoot := mustRepoRoot(t)

	tmp := t.TempDir()
	sample := filepath.Join(tmp, "sample.mp4")
	if err := os.WriteFile(sample, []byte("not-really-a-video"), 0o644); err != nil {
		t.Fatalf("write sample fixture: %v", err)
	}

	cases := []robustCase{
		{
			name: "missing input path",
			args: func(t *testing.T, _ string) []string {
				t.Helper()
				dir := t.TempDir()
				return []string{
					filepath.Join(dir, "does-not-exist.mp4"),
					filepath.Join(dir, "out.mp4"),
				}
			},
			wantExitCode: 4,
			wantContains: []string{"input video not found"},
		},
		{
			name: "input is directory",
			args: func(t *testing.T, _ string) []string {
				t.Helper()
				dir := t.TempDir()
				return []string{dir, filepath.Join(dir, "out.mp4")}
			},
			wantExitCode: 4,
			wantContains: []string{"input video not found"},
		},
		{
			name: "output dir missing",
			args: func(t *testing.T, _ string) []string {
				t.Helper()
				return []string{sample, filepath.Join(t.TempDir(), "missing", "out.mp4")}
			},
			wantExitCode: 4,
			wantContains: []string{"output location is not writable"},
		},
		{
			name: "input is non media file",
			args: func(t *testing.T, _ string) []string {
				t.Helper()
				return []string{sample, filepath.Join(t.TempDir(), "out.mp4")}
			},
			wantExitCode: 1,
			wantContains: []string{"ffprobe"},
		},
	}

	runRobustCases(t, repoRoot, cases)
}

func runRobustCases(t *testing.T, repoRoot string, cases []robustCase) {
	t.Helper()
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := runCLI(t, repoRoot, tc.args(t, repoRoot))
			if res.exitCode == 0 {
				t.Fatalf("expected non-zero exit code, got 0\noutput:\n%s", res.output)
			}
			if tc.wantExitCode != 0 && res.exitCode != tc.wantExitCode {
				t.Fatalf("exit code %d, want %d\noutput:\n%s", res.exitCode, tc.wantExitCode, res.output)
			}
			for _, want := range tc.wantContains {
				if !strings.Contains(res.output, want) {
					t.Fatalf("expected output to contain %q\noutput:\n%s", want, res.output)
				}
			}
			for _, notWant := range tc.wantNotContains {
				if strings.Contains(res.output, notWant) {
					t.Fatalf("expected output to not contain %q\noutput:\n%s", notWant, res.output)
				}
			}
			if tc.outputMustNotExist != "" {
				if _, err := os.Stat(tc.outputMustNotExist); !os.IsNotExist(err) {
					t.Fatalf("validation failure wrote an output file, stat err=%v", err)
				}
			}
		})
	}
}

func runCLI(t *testing.T, repoRoot string, args []string) cliRunResult {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), cliTimeout)
	defer cancel()

	cmdArgs := append([]string{"run", "./cmd/devolve"}, args...)
	cmd := exec.CommandContext(ctx, "go", cmdArgs...)
	cmd.Dir = repoRoot
	cmd.Env = mergeEnv(os.Environ(), map[string]string{
		"NO_COLOR": "1",
		"TERM":     "dumb",
	})

	out, err := cmd.CombinedOutput()
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		t.Fatalf("command timed out after %s: go %s", cliTimeout, strings.Join(cmdArgs, " "))
	}

	res := cliRunResult{output: string(out)}
	if err == nil {
		res.exitCode = 0
		return res
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		res.exitCode = exitErr.ExitCode()
		return res
	}

	t.Fatalf("run command: %v\noutput:\n%s", err, string(out))
	return cliRunResult{}
}

func mergeEnv(base []string, overrides ...map[string]string) []string {
	env := make(map[string]string, len(base))
	for _, kv := range base {
		i := strings.IndexByte(kv, '=')
		if i <= 0 {
			continue
		}
		env[kv[:i]] = kv[i+1:]
	}

	for _, set := range overrides {
		for k, v := range set {
			env[k] = v
		}
	}

	out := make([]string, 0, len(env))
	for k, v := range env {
		out = append(out, fmt.Sprintf("%s=%s", k, v))
	}
	sort.Strings(out)
	return out
}
