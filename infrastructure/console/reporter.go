package console

import (
	"fmt"
	"io"
	"time"

	"squeeze-audio/application/convert"
)

// Reporter prints conversion progress to a writer
type Reporter struct {
	w       io.Writer
	spinner *Spinner
}

var _ convert.Observer = (*Reporter)(nil)

// NewReporter creates a reporter writing to w. A spinner runs during encodes when w is a terminal.
func NewReporter(w io.Writer) *Reporter {
	return &Reporter{w: w, spinner: NewSpinner(w)}
}

// OnEvent implements convert.Observer
func (r *Reporter) OnEvent(e convert.Event) {
	switch e.Kind {
	case convert.EventProbeStarted:
		fmt.Fprintf(r.w, "Reading duration of %s\n", e.InputPath)
		r.spinner.Start("probing")

	case convert.EventProbeFinished:
		r.spinner.Stop()
		if e.Err == nil {
			fmt.Fprintf(r.w, "Duration: %s\n", formatDuration(e.DurationSeconds))
		}

	case convert.EventEncodeStarted:
		fmt.Fprintf(r.w, "Attempt %d/%d: encoding at %d kbps\n", e.Attempt, e.MaxAttempts, e.BitrateKbps)
		r.spinner.Start(fmt.Sprintf("encoding %d kbps", e.BitrateKbps))

	case convert.EventEncodeFinished:
		r.spinner.Stop()

	case convert.EventMeasured:
		fmt.Fprintf(r.w, "  Output size: %s (limit %s)\n", FormatSize(e.SizeBytes), FormatSize(e.LimitBytes))

	case convert.EventRetrying:
		fmt.Fprintf(r.w, "  Over the limit, retrying at %d kbps\n", e.BitrateKbps)

	case convert.EventFinished:
		r.spinner.Stop()
		if e.Outcome != nil && len(e.Outcome.History) > 1 {
			fmt.Fprintln(r.w, RenderAttempts(e.Outcome.History, e.Outcome.LimitBytes))
		}
	}
}

func formatDuration(seconds float64) string {
	d := time.Duration(seconds * float64(time.Second))
	return d.Round(time.Millisecond).String()
}
