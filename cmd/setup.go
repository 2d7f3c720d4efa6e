package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"squeeze-audio/domain/audio"
	"squeeze-audio/infrastructure/config"

	"github.com/spf13/cobra"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Create configuration file interactively",
	Long: `Prompts for configuration values and creates config.yaml.

This command guides you through the size limit, output profile, tool
locations and optional Google Drive upload settings.`,
	RunE: runSetup,
}

func init() {
	rootCmd.AddCommand(setupCmd)
}

func runSetup(cmd *cobra.Command, args []string) error {
	return RunSetupWithPrompter(DefaultPrompter, cfgFile, DefaultOutput)
}

// RunSetupWithPrompter runs the setup with a given prompter (for testing)
func RunSetupWithPrompter(prompter Prompter, configPath string, out OutputWriter) error {
	if _, err := os.Stat(configPath); err == nil {
		overwrite, err := prompter.Confirm(filepath.Base(configPath)+" already exists. Overwrite?", false)
		if err != nil {
			return fmt.Errorf("prompt cancelled")
		}
		if !overwrite {
			fmt.Fprintln(out, "Setup cancelled.")
			return nil
		}
	}

	fmt.Fprintln(out, "Welcome to squeeze-audio setup!")
	fmt.Fprintln(out)

	cfg := config.Default()

	if err := promptConversion(prompter, cfg); err != nil {
		return err
	}

	if err := promptTools(prompter, cfg); err != nil {
		return err
	}

	if err := promptGoogle(prompter, cfg); err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := config.Save(cfg, configPath); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}

	fmt.Fprintln(out)
	fmt.Fprintf(out, "Configuration saved to %s\n", configPath)
	return nil
}

func promptConversion(prompter Prompter, cfg *config.Config) error {
	size, err := prompter.Input("Maximum output size in MB?", strconv.FormatFloat(cfg.Conversion.MaxSizeMB, 'g', -1, 64))
	if err != nil {
		return fmt.Errorf("prompt cancelled")
	}
	if size != "" {
		mb, err := strconv.ParseFloat(size, 64)
		if err != nil || mb <= 0 {
			return fmt.Errorf("%w: %q", audio.ErrInvalidCeiling, size)
		}
		cfg.Conversion.MaxSizeMB = mb
	}

	profile, err := prompter.Select("Output profile?", audio.ProfileNames(), cfg.Conversion.Profile)
	if err != nil {
		return fmt.Errorf("prompt cancelled")
	}
	if profile != "" {
		cfg.Conversion.Profile = profile
	}

	attempts, err := prompter.Input("Maximum encode attempts?", strconv.Itoa(cfg.Conversion.MaxAttempts))
	if err != nil {
		return fmt.Errorf("prompt cancelled")
	}
	if attempts != "" {
		n, err := strconv.Atoi(attempts)
		if err != nil || n < 1 {
			return fmt.Errorf("%w: %q", audio.ErrInvalidMaxAttempts, attempts)
		}
		cfg.Conversion.MaxAttempts = n
	}

	return nil
}

func promptTools(prompter Prompter, cfg *config.Config) error {
	ffmpegPath, err := prompter.Input("Path to ffmpeg?", cfg.Tools.FFmpegPath)
	if err != nil {
		return fmt.Errorf("prompt cancelled")
	}
	if ffmpegPath != "" {
		cfg.Tools.FFmpegPath = ffmpegPath
	}

	ffprobePath, err := prompter.Input("Path to ffprobe?", cfg.Tools.FFprobePath)
	if err != nil {
		return fmt.Errorf("prompt cancelled")
	}
	if ffprobePath != "" {
		cfg.Tools.FFprobePath = ffprobePath
	}

	return nil
}

func promptGoogle(prompter Prompter, cfg *config.Config) error {
	enable, err := prompter.Confirm("Configure Google Drive upload?", false)
	if err != nil {
		return fmt.Errorf("prompt cancelled")
	}
	if !enable {
		return nil
	}

	credentials, err := prompter.Input("Path to Google OAuth credentials file?", cfg.Google.CredentialsFile)
	if err != nil {
		return fmt.Errorf("prompt cancelled")
	}
	if credentials == "" {
		return fmt.Errorf("credentials file is required for uploads")
	}
	cfg.Google.CredentialsFile = credentials

	token, err := prompter.Input("Where should the sign-in token be stored?", cfg.Google.TokenFile)
	if err != nil {
		return fmt.Errorf("prompt cancelled")
	}
	if token != "" {
		cfg.Google.TokenFile = token
	}

	folder, err := prompter.Input("Google Drive folder ID for uploads (blank for My Drive)?", "")
	if err != nil {
		return fmt.Errorf("prompt cancelled")
	}
	cfg.Google.UploadFolderID = folder

	return nil
}
