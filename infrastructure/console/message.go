package console

import (
	"fmt"
	"io"

	"squeeze-audio/domain/audio"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
)

// Outcome line prefixes. Each outcome kind has its own so scripts can tell them apart.
const (
	PrefixSuccess   = "OK"
	PrefixOversized = "OVERSIZED"
	PrefixProbe     = "PROBE FAILED"
	PrefixEncode    = "ENCODE FAILED"
)

// OutcomeMessage returns the single line describing an outcome, without color
func OutcomeMessage(o audio.Outcome) string {
	prefix, body := outcomeParts(o)
	return prefix + ": " + body
}

// PrintOutcome writes the outcome line to w, colored when color output is enabled
func PrintOutcome(w io.Writer, o audio.Outcome) {
	prefix, body := outcomeParts(o)
	_, _ = outcomeColor(o.Kind).Fprint(w, prefix+":")
	fmt.Fprintln(w, " "+body)
}

func outcomeParts(o audio.Outcome) (string, string) {
	switch o.Kind {
	case audio.OutcomeSuccess:
		return PrefixSuccess, fmt.Sprintf("%s written (%s, limit %s) after %s",
			o.OutputPath, FormatSize(o.SizeBytes), FormatSize(o.LimitBytes), pluralAttempts(o.Attempts))
	case audio.OutcomeOversizedAfterRetries:
		return PrefixOversized, fmt.Sprintf("%s is %s, still above the %s limit after %s; "+
			"try a lower --min-bitrate, a higher --max-size, or trimming the input",
			o.OutputPath, FormatSize(o.SizeBytes), FormatSize(o.LimitBytes), pluralAttempts(o.Attempts))
	case audio.OutcomeProbeFailed:
		return PrefixProbe, fmt.Sprintf("could not read media duration: %v", o.Cause)
	case audio.OutcomeEncodeFailed:
		return PrefixEncode, fmt.Sprintf("attempt %d: %v", o.Attempts, o.Cause)
	default:
		return o.Kind.String(), ""
	}
}

func outcomeColor(kind audio.OutcomeKind) *color.Color {
	switch kind {
	case audio.OutcomeSuccess:
		return color.New(color.FgGreen, color.Bold)
	case audio.OutcomeOversizedAfterRetries:
		return color.New(color.FgYellow, color.Bold)
	default:
		return color.New(color.FgRed, color.Bold)
	}
}

// FormatSize renders a byte count in binary megabytes, matching how the ceiling is measured
func FormatSize(bytes int64) string {
	if bytes < 0 {
		bytes = 0
	}
	return humanize.IBytes(uint64(bytes))
}

func pluralAttempts(n int) string {
	if n == 1 {
		return "1 attempt"
	}
	return fmt.Sprintf("%d attempts", n)
}
