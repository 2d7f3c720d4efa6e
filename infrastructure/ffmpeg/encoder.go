package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"squeeze-audio/domain/audio"
)

// Encoder implements audio.Encoder using ffmpeg
type Encoder struct {
	ffmpegPath string
	runner     CommandRunner
	remove     func(path string) error
}

// EncoderOption is a functional option for configuring Encoder
type EncoderOption func(*Encoder)

// WithFFmpegPath sets a custom ffmpeg executable path
func WithFFmpegPath(path string) EncoderOption {
	return func(e *Encoder) {
		if path != "" {
			e.ffmpegPath = path
		}
	}
}

// WithEncoderCommandRunner sets a custom command runner (for testing)
func WithEncoderCommandRunner(runner CommandRunner) EncoderOption {
	return func(e *Encoder) {
		e.runner = runner
	}
}

// NewEncoder creates a new FFmpeg-based audio encoder
func NewEncoder(opts ...EncoderOption) *Encoder {
	e := &Encoder{
		ffmpegPath: "ffmpeg",
		runner:     &ExecCommandRunner{},
		remove:     os.Remove,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Encode implements audio.Encoder
func (e *Encoder) Encode(ctx context.Context, req audio.EncodeRequest) error {
	if err := e.runner.Run(ctx, e.ffmpegPath, encodeArgs(req)...); err != nil {
		// A partial file must never be mistaken for a finished attempt.
		if rmErr := e.remove(req.OutputPath); rmErr != nil && !errors.Is(rmErr, fs.ErrNotExist) {
			return fmt.Errorf("ffmpeg encode at %dk failed: %w (partial output not removed: %v)", req.BitrateKbps, err, rmErr)
		}
		return fmt.Errorf("ffmpeg encode at %dk failed: %w", req.BitrateKbps, err)
	}

	return nil
}

// VerifyInstalled checks that ffmpeg is available
func (e *Encoder) VerifyInstalled(ctx context.Context) error {
	_, err := e.runner.Output(ctx, e.ffmpegPath, "-version")
	if err != nil {
		return fmt.Errorf("ffmpeg not found or not executable: %w", err)
	}
	return nil
}

func encodeArgs(req audio.EncodeRequest) []string {
	args := []string{
		"-hide_banner",
		"-nostdin",
		"-loglevel", "error",
		"-i", req.InputPath,
		"-vn", // No video
		"-sn",
		"-dn",
		"-c:a", req.Profile.Codec,
		"-b:a", strconv.Itoa(req.BitrateKbps) + "k",
	}
	args = append(args, req.Profile.ExtraArgs...)
	args = append(args,
		"-y", // Overwrite output file if it exists
		req.OutputPath,
	)
	return args
}

// Ensure Encoder implements audio.Encoder
var _ audio.Encoder = (*Encoder)(nil)
