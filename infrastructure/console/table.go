package console

import (
	"fmt"

	"squeeze-audio/domain/audio"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// RenderAttempts renders the attempt history as a table. Empty history renders nothing.
func RenderAttempts(history []audio.Attempt, limitBytes int64) string {
	if len(history) == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Attempt", "Bitrate", "Size", "Fits"})

	for _, a := range history {
		fits := "no"
		if a.SizeBytes <= limitBytes {
			fits = "yes"
		}
		tw.AppendRow(table.Row{
			a.Number,
			fmt.Sprintf("%d kbps", a.BitrateKbps),
			FormatSize(a.SizeBytes),
			fits,
		})
	}

	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight, AlignHeader: text.AlignLeft},
		{Number: 2, Align: text.AlignRight, AlignHeader: text.AlignLeft},
		{Number: 3, Align: text.AlignRight, AlignHeader: text.AlignLeft},
		{Number: 4, Align: text.AlignLeft, AlignHeader: text.AlignLeft},
	})

	return tw.Render()
}
