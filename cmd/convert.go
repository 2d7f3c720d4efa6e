package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"squeeze-audio/application/convert"
	appdistribution "squeeze-audio/application/distribution"
	"squeeze-audio/domain/audio"
	"squeeze-audio/domain/distribution"
	"squeeze-audio/infrastructure/config"
	"squeeze-audio/infrastructure/console"
	"squeeze-audio/infrastructure/drive"
	"squeeze-audio/infrastructure/ffmpeg"
	"squeeze-audio/infrastructure/filesystem"
	"squeeze-audio/infrastructure/logging"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	convertMaxSize     float64
	convertMaxAttempts int
	convertMinBitrate  int
	convertMaxBitrate  int
	convertMargin      float64
	convertProfile     string
	convertUpload      bool
)

var convertCmd = &cobra.Command{
	Use:   "convert [input]",
	Short: "Extract audio from a video, fitting it under a size limit",
	Long: `Extract the audio track of a video and encode it so the result stays under
--max-size megabytes. The output is written next to the input with the profile's
extension (lecture.mp4 becomes lecture.mp3).

When the first encode comes out too large, the bitrate is scaled down by how far
the file overshot and the audio is encoded again, up to --max-attempts times.

If no input is given and the terminal is interactive, you are prompted for one.

Exit codes:
  0  the output fits under the limit
  1  invalid arguments or input, nothing was encoded
  2  the media duration could not be read
  3  the encoder failed
  4  the output is still too large after all attempts

Example:
  squeeze-audio convert lecture.mp4
  squeeze-audio convert lecture.mp4 --max-size 10 --profile opus
  squeeze-audio convert "Team Call.mov" --profile speech --upload`,
	Args: cobra.MaximumNArgs(1),
	RunE: runConvert,
}

func init() {
	rootCmd.AddCommand(convertCmd)
	convertCmd.Flags().Float64Var(&convertMaxSize, "max-size", audio.DefaultMaxSizeMB, "Size ceiling in MB (1 MB = 1048576 bytes)")
	convertCmd.Flags().IntVar(&convertMaxAttempts, "max-attempts", audio.DefaultMaxAttempts, "Maximum number of encode attempts")
	convertCmd.Flags().IntVar(&convertMinBitrate, "min-bitrate", 0, "Lowest bitrate in kbps (default from profile)")
	convertCmd.Flags().IntVar(&convertMaxBitrate, "max-bitrate", 0, "Highest bitrate in kbps (default from profile)")
	convertCmd.Flags().Float64Var(&convertMargin, "margin", audio.DefaultSafetyMargin, "Fraction of the ceiling to aim for, in (0, 1]")
	convertCmd.Flags().StringVar(&convertProfile, "profile", audio.DefaultProfileName, "Output profile: "+strings.Join(audio.ProfileNames(), ", "))
	convertCmd.Flags().BoolVar(&convertUpload, "upload", false, "Upload the result to Google Drive and print a share link")
}

// ConvertOptions holds the user's conversion settings after flags and config are merged
type ConvertOptions struct {
	InputPath string
	Profile   string
	Request   audio.RequestOptions
	Upload    bool
}

// ConvertFiles is the filesystem access the convert command needs
type ConvertFiles interface {
	audio.FileChecker
	audio.FileStore
}

// LockFunc takes an exclusive lock on an output path and returns its release function
type LockFunc func(outputPath string) (release func() error, err error)

// AudioUploader publishes a converted file
type AudioUploader interface {
	UploadAudio(ctx context.Context, audioPath, mimeType string) (*distribution.UploadResult, error)
}

// UploaderFactory builds the uploader once a conversion has succeeded
type UploaderFactory func(ctx context.Context) (AudioUploader, error)

// ConvertDependencies are the adapters the convert command runs against.
// When uploading, Uploader is used if set, otherwise NewUploader is called
// after the conversion succeeds.
type ConvertDependencies struct {
	Prober        audio.DurationProber
	Encoder       audio.Encoder
	Files         ConvertFiles
	Lock          LockFunc // nil skips locking
	Uploader      AudioUploader
	NewUploader   UploaderFactory
	Logger        *zap.Logger
	ProbeTimeout  time.Duration
	EncodeTimeout time.Duration
}

func runConvert(cmd *cobra.Command, args []string) error {
	cfg, err := GetConfig()
	if err != nil {
		return err
	}

	inputPath, err := resolveInputPath(args, DefaultPrompter, console.IsTerminal(os.Stdin))
	if err != nil {
		return err
	}

	opts, err := mergeConvertOptions(cmd, cfg)
	if err != nil {
		return err
	}
	opts.InputPath = inputPath

	logger := logging.New(logging.Options{Verbose: verbose})
	defer logger.Sync() //nolint:errcheck

	runner := &ffmpeg.ExecCommandRunner{Logger: logger}
	deps := ConvertDependencies{
		Prober:        ffmpeg.NewProber(ffmpeg.WithFFprobePath(cfg.Tools.FFprobePath), ffmpeg.WithProberCommandRunner(runner)),
		Encoder:       ffmpeg.NewEncoder(ffmpeg.WithFFmpegPath(cfg.Tools.FFmpegPath), ffmpeg.WithEncoderCommandRunner(runner)),
		Files:         filesystem.NewChecker(),
		Lock:          lockOutput,
		Logger:        logger,
		ProbeTimeout:  cfg.Tools.ProbeTimeout,
		EncodeTimeout: cfg.Tools.EncodeTimeout,
	}

	if opts.Upload {
		deps.NewUploader = func(ctx context.Context) (AudioUploader, error) {
			return newDriveUploader(ctx, cfg, DefaultOutput)
		}
	}

	return RunConvertWithDependencies(cmd.Context(), deps, opts, DefaultOutput)
}

// mergeConvertOptions layers explicitly set flags over the config file values.
// A zero in RequestOptions means "use the default", so flags set to zero are rejected here.
func mergeConvertOptions(cmd *cobra.Command, cfg *config.Config) (ConvertOptions, error) {
	opts := ConvertOptions{
		Profile: cfg.Conversion.Profile,
		Request: cfg.RequestOptions(),
		Upload:  convertUpload,
	}

	flags := cmd.Flags()
	if flags.Changed("max-size") {
		if !(convertMaxSize > 0) {
			return ConvertOptions{}, fmt.Errorf("%w: --max-size %v", audio.ErrInvalidCeiling, convertMaxSize)
		}
		opts.Request.MaxSizeMB = convertMaxSize
	}
	if flags.Changed("max-attempts") {
		if convertMaxAttempts < 1 {
			return ConvertOptions{}, fmt.Errorf("%w: --max-attempts %d", audio.ErrInvalidMaxAttempts, convertMaxAttempts)
		}
		opts.Request.MaxAttempts = convertMaxAttempts
	}
	if flags.Changed("min-bitrate") {
		if convertMinBitrate < 0 {
			return ConvertOptions{}, fmt.Errorf("%w: --min-bitrate %d", audio.ErrInvalidMinBitrate, convertMinBitrate)
		}
		opts.Request.MinBitrateKbps = convertMinBitrate
	}
	if flags.Changed("max-bitrate") {
		if convertMaxBitrate < 0 {
			return ConvertOptions{}, fmt.Errorf("%w: --max-bitrate %d", audio.ErrInvalidMaxBitrate, convertMaxBitrate)
		}
		opts.Request.MaxBitrateKbps = convertMaxBitrate
	}
	if flags.Changed("margin") {
		if !(convertMargin > 0) {
			return ConvertOptions{}, fmt.Errorf("%w: --margin %v", audio.ErrInvalidSafetyMargin, convertMargin)
		}
		opts.Request.SafetyMargin = convertMargin
	}
	if flags.Changed("profile") {
		opts.Profile = convertProfile
		// Bitrate bounds from the file belong to the file's profile
		if !flags.Changed("min-bitrate") {
			opts.Request.MinBitrateKbps = 0
		}
		if !flags.Changed("max-bitrate") {
			opts.Request.MaxBitrateKbps = 0
		}
	}
	return opts, nil
}

// resolveInputPath takes the input from the arguments, or asks for it when interactive
func resolveInputPath(args []string, prompter Prompter, interactive bool) (string, error) {
	if len(args) > 0 {
		return cleanPath(args[0]), nil
	}
	if !interactive {
		return "", fmt.Errorf("%w: pass the video file as an argument", audio.ErrInputRequired)
	}

	answer, err := prompter.Input("Video file to convert:", "")
	if err != nil {
		return "", fmt.Errorf("prompt cancelled: %w", err)
	}
	return cleanPath(answer), nil
}

// cleanPath strips whitespace and the quotes a drag-and-drop into the terminal adds
func cleanPath(p string) string {
	p = strings.TrimSpace(p)
	if len(p) >= 2 {
		if (p[0] == '"' && p[len(p)-1] == '"') || (p[0] == '\'' && p[len(p)-1] == '\'') {
			p = p[1 : len(p)-1]
		}
	}
	return strings.TrimSpace(p)
}

func lockOutput(outputPath string) (func() error, error) {
	lock, err := filesystem.LockOutput(outputPath)
	if err != nil {
		return nil, err
	}
	return lock.Release, nil
}

func newDriveUploader(ctx context.Context, cfg *config.Config, out OutputWriter) (*appdistribution.UploadService, error) {
	var (
		client *drive.Client
		err    error
	)
	if cfg.Google.TokenFile == "" {
		client, err = drive.NewClient(ctx, cfg.Google.CredentialsFile)
	} else {
		client, err = drive.NewClientWithOAuth(ctx, drive.OAuthConfig{
			CredentialsFile: cfg.Google.CredentialsFile,
			TokenFile:       cfg.Google.TokenFile,
			Output:          out,
		})
	}
	if err != nil {
		return nil, fmt.Errorf("google drive setup failed: %w", err)
	}
	return appdistribution.NewUploadService(client, cfg.Google.UploadFolderID, out), nil
}

// RunConvertWithDependencies runs the convert command with injected dependencies (for testing)
func RunConvertWithDependencies(
	ctx context.Context,
	deps ConvertDependencies,
	opts ConvertOptions,
	output OutputWriter,
) error {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	profile, err := audio.LookupProfile(opts.Profile)
	if err != nil {
		return err
	}

	req, err := audio.NewConversionRequest(opts.InputPath, profile, opts.Request)
	if err != nil {
		return err
	}

	if !deps.Files.Exists(req.InputPath) {
		return fmt.Errorf("input file not found: %s", req.InputPath)
	}
	if opts.Upload && deps.Uploader == nil && deps.NewUploader == nil {
		return fmt.Errorf("upload requested but Google Drive is not configured")
	}

	if deps.Lock != nil {
		release, err := deps.Lock(req.OutputPath())
		if err != nil {
			return err
		}
		defer func() {
			if err := release(); err != nil {
				logger.Warn("failed to release output lock", zap.Error(err))
			}
		}()
	}

	svc := convert.NewService(deps.Prober, deps.Encoder, deps.Files,
		convert.WithObserver(console.NewReporter(output)),
		convert.WithLogger(logger),
		convert.WithProbeTimeout(deps.ProbeTimeout),
		convert.WithEncodeTimeout(deps.EncodeTimeout),
	)

	outcome := svc.Convert(ctx, req)
	console.PrintOutcome(output, outcome)
	if err := outcome.Err(); err != nil {
		return err
	}

	if opts.Upload {
		uploader := deps.Uploader
		if uploader == nil {
			uploader, err = deps.NewUploader(ctx)
			if err != nil {
				return err
			}
		}
		result, err := uploader.UploadAudio(ctx, outcome.OutputPath, profile.MimeType)
		if err != nil {
			return fmt.Errorf("upload failed: %w", err)
		}
		fmt.Fprintf(output, "Shared: %s\n", result.ShareableURL)
	}

	return nil
}
