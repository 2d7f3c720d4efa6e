package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"squeeze-audio/domain/audio"
	"squeeze-audio/infrastructure/config"

	"github.com/spf13/cobra"
)

// Process exit codes
const (
	ExitSuccess      = 0
	ExitUsage        = 1
	ExitProbeFailed  = 2
	ExitEncodeFailed = 3
	ExitOversized    = 4
)

var (
	cfgFile string
	verbose bool
	cfg     *config.Config
	cfgErr  error
)

var rootCmd = &cobra.Command{
	Use:   "squeeze-audio",
	Short: "Convert video to audio that fits under a size limit",
	Long: `squeeze-audio extracts the audio track of a video file and keeps the result
under a file size ceiling, such as an e-mail or chat attachment limit.

It reads the media duration, picks the highest bitrate that should fit, encodes,
measures the result and re-encodes at a lower bitrate until the file fits or the
attempt budget runs out.

Example:
  squeeze-audio convert lecture.mp4 --max-size 25
  squeeze-audio convert interview.mkv --profile speech --max-size 8 --upload`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command and exits with the code matching the result
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	if err != nil {
		var outcomeErr *audio.OutcomeError
		if !errors.As(err, &outcomeErr) {
			// Outcome failures have already printed their own line
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
	}
	os.Exit(ExitCode(err))
}

// ExitCode maps a command error to the process exit code
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var outcomeErr *audio.OutcomeError
	if !errors.As(err, &outcomeErr) {
		return ExitUsage
	}

	switch outcomeErr.Outcome.Kind {
	case audio.OutcomeSuccess:
		return ExitSuccess
	case audio.OutcomeProbeFailed:
		return ExitProbeFailed
	case audio.OutcomeEncodeFailed:
		return ExitEncodeFailed
	case audio.OutcomeOversizedAfterRetries:
		return ExitOversized
	default:
		return ExitUsage
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./"+config.DefaultPath+")")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "write debug logs to stderr")
}

func initConfig() {
	if cfgFile == "" {
		cfgFile = config.DefaultPath
	}

	// A missing file means defaults; a broken one is reported by commands that need it
	cfg, cfgErr = config.LoadOrDefault(cfgFile)
}

// GetConfig returns the loaded configuration
func GetConfig() (*config.Config, error) {
	if cfgErr != nil {
		return nil, cfgErr
	}
	if cfg == nil {
		return config.Default(), nil
	}
	return cfg, nil
}
