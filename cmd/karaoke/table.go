package main

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"karaoke/internal/queue"
)

const detailColumnWidth = 60

func newTableWriter(headers ...any) table.Writer {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row(headers))
	return tw
}

// renderQueueTable formats queue items for `karaoke queue list`. Failed items
// surface their stored error in the detail column.
func renderQueueTable(items []*queue.Item) string {
	tw := newTableWriter("ID", "Title", "Status", "Progress", "Detail")
	for _, item := range items {
		detail := item.ProgressMessage
		if item.Status == queue.StatusFailed && item.ErrorMessage != "" {
			detail = item.ErrorMessage
		}
		tw.AppendRow(table.Row{
			item.ID,
			item.Title,
			string(item.Status),
			fmt.Sprintf("%.0f%%", item.ProgressPercent),
			truncate(detail, detailColumnWidth),
		})
	}
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight, AlignHeader: text.AlignLeft},
		{Number: 4, Align: text.AlignRight, AlignHeader: text.AlignLeft},
	})
	return tw.Render()
}

// renderSettingsTable formats the key/value rows shown by `karaoke config show`.
func renderSettingsTable(rows [][2]string) string {
	tw := newTableWriter("Setting", "Value")
	for _, row := range rows {
		tw.AppendRow(table.Row{row[0], row[1]})
	}
	return tw.Render()
}

// renderQueueHealthTable formats the per-state counts shown by `karaoke status`.
func renderQueueHealthTable(summary queue.HealthSummary) string {
	tw := newTableWriter("State", "Count")
	for _, row := range []struct {
		label string
		count int
	}{
		{"total", summary.Total},
		{"pending", summary.Pending},
		{"processing", summary.Processing},
		{"completed", summary.Completed},
		{"failed", summary.Failed},
	} {
		tw.AppendRow(table.Row{row.label, row.count})
	}
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight, AlignHeader: text.AlignLeft},
	})
	return tw.Render()
}

// truncate shortens detail text to max display runes, marking the cut with an
// ellipsis. Titles come from arbitrary filenames, so the cut has to land on a
// rune boundary.
func truncate(value string, max int) string {
	value = strings.TrimSpace(value)
	runes := []rune(value)
	if len(runes) <= max {
		return value
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}
