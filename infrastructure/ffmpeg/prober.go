package ffmpeg

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"squeeze-audio/domain/audio"
)

// Prober implements audio.DurationProber using ffprobe's machine-readable output
type Prober struct {
	ffprobePath string
	runner      CommandRunner
}

// ProberOption is a functional option for configuring Prober
type ProberOption func(*Prober)

// WithFFprobePath sets a custom ffprobe executable path
func WithFFprobePath(path string) ProberOption {
	return func(p *Prober) {
		if path != "" {
			p.ffprobePath = path
		}
	}
}

// WithProberCommandRunner sets a custom command runner (for testing)
func WithProberCommandRunner(runner CommandRunner) ProberOption {
	return func(p *Prober) {
		p.runner = runner
	}
}

// NewProber creates a new ffprobe-based duration prober
func NewProber(opts ...ProberOption) *Prober {
	p := &Prober{
		ffprobePath: "ffprobe",
		runner:      &ExecCommandRunner{},
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Duration implements audio.DurationProber
func (p *Prober) Duration(ctx context.Context, inputPath string) (float64, error) {
	args := []string{
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		inputPath,
	}

	out, err := p.runner.Output(ctx, p.ffprobePath, args...)
	if err != nil {
		return 0, fmt.Errorf("ffprobe duration query failed: %w", err)
	}

	return parseDuration(out)
}

// VerifyInstalled checks that ffprobe is available
func (p *Prober) VerifyInstalled(ctx context.Context) error {
	_, err := p.runner.Output(ctx, p.ffprobePath, "-version")
	if err != nil {
		return fmt.Errorf("ffprobe not found or not executable: %w", err)
	}
	return nil
}

// parseDuration reads the single numeric field printed by ffprobe
func parseDuration(out []byte) (float64, error) {
	value := ""
	for _, line := range strings.Split(string(out), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			value = line
			break
		}
	}
	if value == "" {
		return 0, fmt.Errorf("%w: ffprobe printed no duration", audio.ErrInvalidDuration)
	}

	seconds, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: unparsable ffprobe duration %q", audio.ErrInvalidDuration, value)
	}
	if !(seconds > 0) || math.IsInf(seconds, 0) {
		return 0, fmt.Errorf("%w: got %q", audio.ErrInvalidDuration, value)
	}
	return seconds, nil
}

// Ensure Prober implements audio.DurationProber
var _ audio.DurationProber = (*Prober)(nil)
