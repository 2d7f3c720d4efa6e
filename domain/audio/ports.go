package audio

import "context"

// DurationProber reads the duration of a media file.
// This is a port implemented by the ffprobe adapter.
type DurationProber interface {
	// Duration returns the media duration in seconds
	Duration(ctx context.Context, inputPath string) (float64, error)
}

// EncodeRequest describes a single encoder invocation
type EncodeRequest struct {
	InputPath   string
	OutputPath  string
	BitrateKbps int
	Profile     Profile
}

// Encoder transcodes the audio of a media file at a constant bitrate.
// On failure it must not leave a partial output at OutputPath.
type Encoder interface {
	Encode(ctx context.Context, req EncodeRequest) error
}

// FileChecker defines the interface for checking file existence
type FileChecker interface {
	// Exists returns true if the file exists
	Exists(path string) bool
}

// FileStore measures and removes output files
type FileStore interface {
	// Size returns the size of the file in bytes
	Size(path string) (int64, error)

	// Remove deletes the file
	Remove(path string) error
}
