package audio

import "fmt"

// OutcomeKind identifies how a conversion terminated
type OutcomeKind int

const (
	// OutcomeSuccess means the output fits within the size ceiling
	OutcomeSuccess OutcomeKind = iota

	// OutcomeOversizedAfterRetries means an output exists but still exceeds the ceiling
	OutcomeOversizedAfterRetries

	// OutcomeProbeFailed means the media duration could not be obtained
	OutcomeProbeFailed

	// OutcomeEncodeFailed means the encoder failed on some attempt
	OutcomeEncodeFailed
)

// String returns the outcome kind name
func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomeOversizedAfterRetries:
		return "oversized_after_retries"
	case OutcomeProbeFailed:
		return "probe_failed"
	case OutcomeEncodeFailed:
		return "encode_failed"
	default:
		return fmt.Sprintf("outcome(%d)", int(k))
	}
}

// Attempt records one encode-then-measure cycle
type Attempt struct {
	Number      int
	BitrateKbps int
	SizeBytes   int64
}

// Outcome is the terminal result of a conversion. Exactly one Kind is set per run.
type Outcome struct {
	Kind OutcomeKind

	// OutputPath and SizeBytes describe the delivered file (Success, OversizedAfterRetries)
	OutputPath string
	SizeBytes  int64

	// LimitBytes is the size ceiling the run was held to
	LimitBytes int64

	// Attempts is the number of encode invocations made. For EncodeFailed it is the
	// failing attempt.
	Attempts int

	// Cause is the adapter error for ProbeFailed and EncodeFailed
	Cause error

	// DurationSeconds is the probed media duration, zero when probing failed
	DurationSeconds float64

	// History lists every measured attempt in order
	History []Attempt
}

// SizeMB returns the delivered file size in megabytes
func (o Outcome) SizeMB() float64 {
	return float64(o.SizeBytes) / BytesPerMB
}

// Err returns nil for a successful outcome and an *OutcomeError otherwise
func (o Outcome) Err() error {
	if o.Kind == OutcomeSuccess {
		return nil
	}
	return &OutcomeError{Outcome: o}
}

// OutcomeError is the error form of a non-successful Outcome
type OutcomeError struct {
	Outcome Outcome
}

func (e *OutcomeError) Error() string {
	o := e.Outcome
	switch o.Kind {
	case OutcomeProbeFailed:
		return fmt.Sprintf("could not determine media duration: %v", o.Cause)
	case OutcomeEncodeFailed:
		return fmt.Sprintf("encoding failed on attempt %d: %v", o.Attempts, o.Cause)
	case OutcomeOversizedAfterRetries:
		return fmt.Sprintf("output %s is %.2f MB after %d attempts, above the %.2f MB limit",
			o.OutputPath, o.SizeMB(), o.Attempts, float64(o.LimitBytes)/BytesPerMB)
	default:
		return o.Kind.String()
	}
}

// Unwrap returns the adapter error behind a probe or encode failure
func (e *OutcomeError) Unwrap() error {
	return e.Outcome.Cause
}
