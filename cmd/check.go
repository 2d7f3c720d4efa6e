package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"squeeze-audio/infrastructure/ffmpeg"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

const verifyTimeout = 5 * time.Second

// ErrToolsMissing is returned when a required external tool is unavailable
var ErrToolsMissing = errors.New("required tools are missing")

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify ffmpeg and ffprobe are installed",
	Long: `Runs ffmpeg and ffprobe with -version using the configured paths and reports
whether each one is usable.`,
	Args: cobra.NoArgs,
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

// ToolVerifier is an external tool that can confirm it is installed
type ToolVerifier interface {
	VerifyInstalled(ctx context.Context) error
}

// ToolCheck names a tool to verify
type ToolCheck struct {
	Name     string
	Verifier ToolVerifier
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, err := GetConfig()
	if err != nil {
		return err
	}

	checks := []ToolCheck{
		{Name: cfg.Tools.FFmpegPath, Verifier: ffmpeg.NewEncoder(ffmpeg.WithFFmpegPath(cfg.Tools.FFmpegPath))},
		{Name: cfg.Tools.FFprobePath, Verifier: ffmpeg.NewProber(ffmpeg.WithFFprobePath(cfg.Tools.FFprobePath))},
	}
	return RunCheckWithDependencies(cmd.Context(), checks, DefaultOutput)
}

// RunCheckWithDependencies verifies each tool and reports the result (for testing)
func RunCheckWithDependencies(ctx context.Context, checks []ToolCheck, out OutputWriter) error {
	ok := color.New(color.FgGreen).SprintFunc()
	bad := color.New(color.FgRed).SprintFunc()

	missing := 0
	for _, c := range checks {
		verifyCtx, cancel := context.WithTimeout(ctx, verifyTimeout)
		err := c.Verifier.VerifyInstalled(verifyCtx)
		cancel()

		if err != nil {
			missing++
			fmt.Fprintf(out, "%s %s: %v\n", bad("✗"), c.Name, err)
			continue
		}
		fmt.Fprintf(out, "%s %s\n", ok("✓"), c.Name)
	}

	if missing > 0 {
		return fmt.Errorf("%w: %d of %d", ErrToolsMissing, missing, len(checks))
	}
	return nil
}
