package convert

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"squeeze-audio/domain/audio"

	"go.uber.org/zap"
)

// Service drives the probe, encode, measure and retry loop until the output fits
// the size ceiling or the attempt budget is spent
type Service struct {
	prober        audio.DurationProber
	encoder       audio.Encoder
	files         audio.FileStore
	observer      Observer
	logger        *zap.Logger
	probeTimeout  time.Duration
	encodeTimeout time.Duration
}

// Option is a functional option for configuring Service
type Option func(*Service)

// WithObserver sets the observer notified of every state transition
func WithObserver(o Observer) Option {
	return func(s *Service) {
		if o != nil {
			s.observer = o
		}
	}
}

// WithLogger sets the diagnostic logger
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithProbeTimeout bounds each probe call. Zero disables the bound.
func WithProbeTimeout(d time.Duration) Option {
	return func(s *Service) {
		s.probeTimeout = d
	}
}

// WithEncodeTimeout bounds each encode call. Zero disables the bound.
func WithEncodeTimeout(d time.Duration) Option {
	return func(s *Service) {
		s.encodeTimeout = d
	}
}

// NewService creates a new conversion Service
func NewService(prober audio.DurationProber, encoder audio.Encoder, files audio.FileStore, opts ...Option) *Service {
	s := &Service{
		prober:   prober,
		encoder:  encoder,
		files:    files,
		observer: noopObserver{},
		logger:   zap.NewNop(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Convert runs the conversion loop for a validated request and returns its terminal
// outcome. Adapter failures are reported through the outcome, never as a second
// return value.
func (s *Service) Convert(ctx context.Context, req *audio.ConversionRequest) audio.Outcome {
	outcome := s.run(ctx, req)
	s.observer.OnEvent(Event{
		Kind:            EventFinished,
		InputPath:       req.InputPath,
		OutputPath:      outcome.OutputPath,
		Attempt:         outcome.Attempts,
		MaxAttempts:     req.MaxAttempts,
		SizeBytes:       outcome.SizeBytes,
		LimitBytes:      outcome.LimitBytes,
		DurationSeconds: outcome.DurationSeconds,
		Outcome:         &outcome,
	})
	return outcome
}

func (s *Service) run(ctx context.Context, req *audio.ConversionRequest) audio.Outcome {
	limit := req.CeilingBytes()
	outputPath := req.OutputPath()

	duration, err := s.probe(ctx, req)
	if err != nil {
		return audio.Outcome{Kind: audio.OutcomeProbeFailed, LimitBytes: limit, Cause: err}
	}

	bitrate := audio.InitialBitrate(duration, req.MaxSizeMB, req.SafetyMargin, req.MinBitrateKbps, req.MaxBitrateKbps)
	s.logger.Debug("planned initial bitrate",
		zap.Float64("duration_seconds", duration),
		zap.Float64("max_size_mb", req.MaxSizeMB),
		zap.Int("bitrate_kbps", bitrate))

	var history []audio.Attempt
	for attempt := 1; ; attempt++ {
		if err := s.encode(ctx, req, outputPath, attempt, bitrate); err != nil {
			return audio.Outcome{
				Kind:            audio.OutcomeEncodeFailed,
				LimitBytes:      limit,
				Attempts:        attempt,
				Cause:           err,
				DurationSeconds: duration,
				History:         history,
			}
		}

		size, err := s.files.Size(outputPath)
		if err != nil {
			if rmErr := s.files.Remove(outputPath); rmErr != nil {
				s.logger.Warn("failed to remove unmeasured output",
					zap.String("output_path", outputPath),
					zap.Error(rmErr))
			}
			return audio.Outcome{
				Kind:            audio.OutcomeEncodeFailed,
				LimitBytes:      limit,
				Attempts:        attempt,
				Cause:           fmt.Errorf("measure output %s: %w", outputPath, err),
				DurationSeconds: duration,
				History:         history,
			}
		}
		history = append(history, audio.Attempt{Number: attempt, BitrateKbps: bitrate, SizeBytes: size})
		s.observer.OnEvent(Event{
			Kind:        EventMeasured,
			InputPath:   req.InputPath,
			OutputPath:  outputPath,
			Attempt:     attempt,
			MaxAttempts: req.MaxAttempts,
			BitrateKbps: bitrate,
			SizeBytes:   size,
			LimitBytes:  limit,
		})

		delivered := audio.Outcome{
			OutputPath:      outputPath,
			SizeBytes:       size,
			LimitBytes:      limit,
			Attempts:        attempt,
			DurationSeconds: duration,
			History:         history,
		}

		if size <= limit {
			delivered.Kind = audio.OutcomeSuccess
			return delivered
		}

		if attempt >= req.MaxAttempts {
			delivered.Kind = audio.OutcomeOversizedAfterRetries
			return delivered
		}

		sizeMB := float64(size) / audio.BytesPerMB
		next := audio.RescaleBitrate(bitrate, sizeMB, req.MaxSizeMB, req.SafetyMargin, req.MinBitrateKbps)
		if next >= bitrate {
			// Already at the floor; another encode would produce the same size.
			s.logger.Debug("bitrate floor reached, giving up early",
				zap.Int("attempt", attempt),
				zap.Int("bitrate_kbps", bitrate))
			delivered.Kind = audio.OutcomeOversizedAfterRetries
			return delivered
		}

		if err := s.files.Remove(outputPath); err != nil {
			return audio.Outcome{
				Kind:            audio.OutcomeEncodeFailed,
				LimitBytes:      limit,
				Attempts:        attempt,
				Cause:           fmt.Errorf("remove oversized output %s: %w", outputPath, err),
				DurationSeconds: duration,
				History:         history,
			}
		}

		s.logger.Debug("output over budget, retrying",
			zap.Int("attempt", attempt),
			zap.Int64("size_bytes", size),
			zap.Int64("limit_bytes", limit),
			zap.Int("next_bitrate_kbps", next))
		s.observer.OnEvent(Event{
			Kind:        EventRetrying,
			InputPath:   req.InputPath,
			OutputPath:  outputPath,
			Attempt:     attempt + 1,
			MaxAttempts: req.MaxAttempts,
			BitrateKbps: next,
			SizeBytes:   size,
			LimitBytes:  limit,
		})
		bitrate = next
	}
}

func (s *Service) probe(ctx context.Context, req *audio.ConversionRequest) (float64, error) {
	s.observer.OnEvent(Event{Kind: EventProbeStarted, InputPath: req.InputPath, MaxAttempts: req.MaxAttempts})

	probeCtx, cancel := withOptionalTimeout(ctx, s.probeTimeout)
	start := time.Now()
	duration, err := s.prober.Duration(probeCtx, req.InputPath)
	if err == nil && (!(duration > 0) || math.IsInf(duration, 0)) {
		err = fmt.Errorf("%w: got %v", audio.ErrInvalidDuration, duration)
	}
	if err != nil {
		err = timeoutCause(probeCtx, err, "probe", s.probeTimeout)
		duration = 0
	}
	cancel()

	s.logger.Debug("probe finished",
		zap.String("input", req.InputPath),
		zap.Float64("duration_seconds", duration),
		zap.Duration("elapsed", time.Since(start)),
		zap.Error(err))
	s.observer.OnEvent(Event{
		Kind:            EventProbeFinished,
		InputPath:       req.InputPath,
		MaxAttempts:     req.MaxAttempts,
		DurationSeconds: duration,
		Err:             err,
	})
	return duration, err
}

func (s *Service) encode(ctx context.Context, req *audio.ConversionRequest, outputPath string, attempt, bitrate int) error {
	s.observer.OnEvent(Event{
		Kind:        EventEncodeStarted,
		InputPath:   req.InputPath,
		OutputPath:  outputPath,
		Attempt:     attempt,
		MaxAttempts: req.MaxAttempts,
		BitrateKbps: bitrate,
		LimitBytes:  req.CeilingBytes(),
	})

	encodeCtx, cancel := withOptionalTimeout(ctx, s.encodeTimeout)
	start := time.Now()
	err := s.encoder.Encode(encodeCtx, audio.EncodeRequest{
		InputPath:   req.InputPath,
		OutputPath:  outputPath,
		BitrateKbps: bitrate,
		Profile:     req.Profile,
	})
	if err != nil {
		err = timeoutCause(encodeCtx, err, "encode", s.encodeTimeout)
	}
	cancel()

	s.logger.Debug("encode finished",
		zap.Int("attempt", attempt),
		zap.Int("bitrate_kbps", bitrate),
		zap.Duration("elapsed", time.Since(start)),
		zap.Error(err))
	s.observer.OnEvent(Event{
		Kind:        EventEncodeFinished,
		InputPath:   req.InputPath,
		OutputPath:  outputPath,
		Attempt:     attempt,
		MaxAttempts: req.MaxAttempts,
		BitrateKbps: bitrate,
		Err:         err,
	})
	return err
}

func withOptionalTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

// timeoutCause makes a deadline expiry explicit in the returned error
func timeoutCause(ctx context.Context, err error, op string, limit time.Duration) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) && !errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s timed out after %s: %w", op, limit, errors.Join(context.DeadlineExceeded, err))
	}
	return err
}
