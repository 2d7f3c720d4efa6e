package audio

import (
	"errors"
	"math"
	"testing"
)

func mp3Profile(t *testing.T) Profile {
	t.Helper()
	p, err := LookupProfile("mp3")
	if err != nil {
		t.Fatalf("LookupProfile(mp3) unexpected error: %v", err)
	}
	return p
}

func TestNewConversionRequest(t *testing.T) {
	tests := []struct {
		name        string
		inputPath   string
		opts        RequestOptions
		wantErr     error
		wantCeiling float64
		wantMin     int
		wantMax     int
		wantTries   int
	}{
		{
			name:        "defaults applied",
			inputPath:   "/videos/talk.mp4",
			wantCeiling: DefaultMaxSizeMB,
			wantMin:     32,
			wantMax:     320,
			wantTries:   DefaultMaxAttempts,
		},
		{
			name:        "explicit limits",
			inputPath:   "/videos/talk.mp4",
			opts:        RequestOptions{MaxSizeMB: 8, MaxAttempts: 3, MinBitrateKbps: 48, MaxBitrateKbps: 192},
			wantCeiling: 8,
			wantMin:     48,
			wantMax:     192,
			wantTries:   3,
		},
		{
			name:      "empty input path",
			inputPath: "  ",
			wantErr:   ErrInputRequired,
		},
		{
			name:      "negative ceiling",
			inputPath: "/videos/talk.mp4",
			opts:      RequestOptions{MaxSizeMB: -1},
			wantErr:   ErrInvalidCeiling,
		},
		{
			name:      "ceiling too large to count in bytes",
			inputPath: "/videos/talk.mp4",
			opts:      RequestOptions{MaxSizeMB: 1e13},
			wantErr:   ErrInvalidCeiling,
		},
		{
			name:      "infinite ceiling",
			inputPath: "/videos/talk.mp4",
			opts:      RequestOptions{MaxSizeMB: math.Inf(1)},
			wantErr:   ErrInvalidCeiling,
		},
		{
			name:      "negative minimum bitrate",
			inputPath: "/videos/talk.mp4",
			opts:      RequestOptions{MinBitrateKbps: -8},
			wantErr:   ErrInvalidMinBitrate,
		},
		{
			name:      "cap below floor",
			inputPath: "/videos/talk.mp4",
			opts:      RequestOptions{MinBitrateKbps: 128, MaxBitrateKbps: 64},
			wantErr:   ErrInvalidMaxBitrate,
		},
		{
			name:      "negative attempts",
			inputPath: "/videos/talk.mp4",
			opts:      RequestOptions{MaxAttempts: -2},
			wantErr:   ErrInvalidMaxAttempts,
		},
		{
			name:      "margin above one",
			inputPath: "/videos/talk.mp4",
			opts:      RequestOptions{SafetyMargin: 1.2},
			wantErr:   ErrInvalidSafetyMargin,
		},
		{
			name:      "input already has output extension",
			inputPath: "/music/song.mp3",
			wantErr:   ErrOutputIsInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewConversionRequest(tt.inputPath, mp3Profile(t), tt.opts)

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("NewConversionRequest() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("NewConversionRequest() unexpected error: %v", err)
			}

			if got.MaxSizeMB != tt.wantCeiling {
				t.Errorf("MaxSizeMB = %v, want %v", got.MaxSizeMB, tt.wantCeiling)
			}
			if got.MinBitrateKbps != tt.wantMin {
				t.Errorf("MinBitrateKbps = %d, want %d", got.MinBitrateKbps, tt.wantMin)
			}
			if got.MaxBitrateKbps != tt.wantMax {
				t.Errorf("MaxBitrateKbps = %d, want %d", got.MaxBitrateKbps, tt.wantMax)
			}
			if got.MaxAttempts != tt.wantTries {
				t.Errorf("MaxAttempts = %d, want %d", got.MaxAttempts, tt.wantTries)
			}
			if got.SafetyMargin != DefaultSafetyMargin {
				t.Errorf("SafetyMargin = %v, want %v", got.SafetyMargin, DefaultSafetyMargin)
			}
		})
	}
}

func TestConversionRequest_OutputPath(t *testing.T) {
	tests := []struct {
		input   string
		profile string
		want    string
	}{
		{"/videos/talk.mp4", "mp3", "/videos/talk.mp3"},
		{"/videos/talk.final.mkv", "aac", "/videos/talk.final.m4a"},
		{"relative/clip.webm", "opus", "relative/clip.opus"},
		{"/videos/noext", "speech", "/videos/noext.mp3"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			p, err := LookupProfile(tt.profile)
			if err != nil {
				t.Fatalf("LookupProfile(%q) unexpected error: %v", tt.profile, err)
			}
			req := &ConversionRequest{InputPath: tt.input, Profile: p}
			if got := req.OutputPath(); got != tt.want {
				t.Errorf("OutputPath() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestConversionRequest_CeilingBytes(t *testing.T) {
	req := &ConversionRequest{MaxSizeMB: 25}
	if got, want := req.CeilingBytes(), int64(25*1024*1024); got != want {
		t.Errorf("CeilingBytes() = %d, want %d", got, want)
	}

	req.MaxSizeMB = 0.5
	if got, want := req.CeilingBytes(), int64(512*1024); got != want {
		t.Errorf("CeilingBytes() = %d, want %d", got, want)
	}
}

func TestConversionRequest_CeilingBytesAtLargestCeiling(t *testing.T) {
	req, err := NewConversionRequest("/videos/talk.mp4", mp3Profile(t), RequestOptions{MaxSizeMB: MaxCeilingMB})
	if err != nil {
		t.Fatalf("NewConversionRequest() error = %v", err)
	}
	if got := req.CeilingBytes(); got <= 0 {
		t.Errorf("CeilingBytes() = %d, want a positive byte count", got)
	}
}
