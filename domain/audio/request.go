package audio

import (
	"fmt"
	"math"
	"path/filepath"
	"strings"
)

// Defaults applied when a request option is left at its zero value
const (
	DefaultMaxSizeMB    = 25.0
	DefaultMaxAttempts  = 5
	DefaultSafetyMargin = 0.95
)

// BytesPerMB is the number of bytes in one size-ceiling megabyte
const BytesPerMB = 1024 * 1024

// MaxCeilingMB is the largest ceiling whose byte count still fits in an int64
const MaxCeilingMB = float64(math.MaxInt64 / BytesPerMB)

// ConversionRequest represents one bitrate-constrained conversion of a video file to audio
type ConversionRequest struct {
	InputPath      string
	MaxSizeMB      float64
	MinBitrateKbps int
	MaxBitrateKbps int
	MaxAttempts    int
	SafetyMargin   float64
	Profile        Profile
}

// RequestOptions holds the tunable limits of a request. Zero values select the defaults.
type RequestOptions struct {
	MaxSizeMB      float64
	MaxAttempts    int
	SafetyMargin   float64
	MinBitrateKbps int
	MaxBitrateKbps int
}

// NewConversionRequest creates a ConversionRequest, filling defaults from the profile
// and validating the result
func NewConversionRequest(inputPath string, profile Profile, opts RequestOptions) (*ConversionRequest, error) {
	req := &ConversionRequest{
		InputPath:      strings.TrimSpace(inputPath),
		MaxSizeMB:      opts.MaxSizeMB,
		MinBitrateKbps: opts.MinBitrateKbps,
		MaxBitrateKbps: opts.MaxBitrateKbps,
		MaxAttempts:    opts.MaxAttempts,
		SafetyMargin:   opts.SafetyMargin,
		Profile:        profile,
	}

	if req.MaxSizeMB == 0 {
		req.MaxSizeMB = DefaultMaxSizeMB
	}
	if req.MaxAttempts == 0 {
		req.MaxAttempts = DefaultMaxAttempts
	}
	if req.SafetyMargin == 0 {
		req.SafetyMargin = DefaultSafetyMargin
	}
	if req.MinBitrateKbps == 0 {
		req.MinBitrateKbps = profile.MinBitrateKbps
	}
	if req.MaxBitrateKbps == 0 {
		req.MaxBitrateKbps = profile.MaxBitrateKbps
	}

	if err := req.Validate(); err != nil {
		return nil, err
	}
	return req, nil
}

// Validate checks the request invariants
func (r *ConversionRequest) Validate() error {
	if r.InputPath == "" {
		return ErrInputRequired
	}
	if !(r.MaxSizeMB > 0) || r.MaxSizeMB > MaxCeilingMB {
		return fmt.Errorf("%w: got %v", ErrInvalidCeiling, r.MaxSizeMB)
	}
	if r.MinBitrateKbps <= 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidMinBitrate, r.MinBitrateKbps)
	}
	if r.MaxBitrateKbps < r.MinBitrateKbps {
		return fmt.Errorf("%w: max %d < min %d", ErrInvalidMaxBitrate, r.MaxBitrateKbps, r.MinBitrateKbps)
	}
	if r.MaxAttempts < 1 {
		return fmt.Errorf("%w: got %d", ErrInvalidMaxAttempts, r.MaxAttempts)
	}
	if !(r.SafetyMargin > 0) || r.SafetyMargin > 1 {
		return fmt.Errorf("%w: got %v", ErrInvalidSafetyMargin, r.SafetyMargin)
	}
	if r.Profile.Extension == "" {
		return fmt.Errorf("%w: profile has no file extension", ErrUnknownProfile)
	}
	if filepath.Clean(r.OutputPath()) == filepath.Clean(r.InputPath) {
		return fmt.Errorf("%w: %s", ErrOutputIsInput, r.InputPath)
	}
	return nil
}

// OutputPath returns the input path with its extension replaced by the profile's
func (r *ConversionRequest) OutputPath() string {
	return strings.TrimSuffix(r.InputPath, filepath.Ext(r.InputPath)) + r.Profile.Extension
}

// CeilingBytes returns the size ceiling in bytes
func (r *ConversionRequest) CeilingBytes() int64 {
	return int64(math.Floor(r.MaxSizeMB * BytesPerMB))
}
