package devices

import (
	"io"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// Render writes the directory as a table of index, category, name and path
func (d *Directory) Render(w io.Writer) error {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"ID", "Type", "Name", "Path"})
	for _, dev := range d.devices {
		tw.AppendRow(table.Row{strconv.Itoa(dev.Index), dev.Category.String(), dev.Name, dev.Path})
	}
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight, AlignHeader: text.AlignLeft},
	})
	if len(d.devices) == 0 {
		tw.SetCaption("no capture devices found")
	}

	_, err := io.WriteString(w, tw.Render()+"\n")
	return err
}
