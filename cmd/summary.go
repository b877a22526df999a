package cmd

import (
	"io"
	"strconv"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/smazurov/webcamcapture/internal/capture"
)

// renderSummary prints one row per stream with its packet counters
func renderSummary(w io.Writer, s *capture.Session) error {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Stream", "Kind", "Mode", "Read", "Encoded", "Written"})
	for _, sc := range s.Streams() {
		mode := "copy"
		if sc.Transcoded() {
			mode = "transcode"
		}
		tw.AppendRow(table.Row{
			strconv.Itoa(sc.Index),
			sc.Kind.String(),
			mode,
			sc.PacketsRead,
			sc.FramesEncoded,
			sc.PacketsWritten,
		})
	}
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight, AlignHeader: text.AlignLeft},
		{Number: 4, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
		{Number: 6, Align: text.AlignRight},
	})
	tw.SetCaption("%s in %s, %s", s.Status(), s.Elapsed().Round(10*time.Millisecond), s.ID)

	_, err := io.WriteString(w, tw.Render()+"\n")
	return err
}
