// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// VFRConvert - FFmpeg mpdecimate 批量转换工具

package tui

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/ZSC714725/vfrconvert/internal/batch"
	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// RenderSummary renders the per file results and the batch totals
func RenderSummary(s batch.Summary) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"#", "File", "Status", "Size", "New size", "Saved", "Frames", "Dropped"})
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
		{Number: 6, Align: text.AlignRight},
		{Number: 7, Align: text.AlignRight},
		{Number: 8, Align: text.AlignRight},
	})

	var inBytes, outBytes int64
	for _, j := range s.Jobs {
		row := table.Row{j.Index + 1, filepath.Base(j.InputPath), j.Status.String(), humanize.Bytes(uint64(j.SizeBytes)), "-", "-", "-", "-"}
		if j.Status == batch.StatusDone {
			inBytes += j.SizeBytes
			outBytes += j.NewSizeBytes
			row[4] = humanize.Bytes(uint64(j.NewSizeBytes))
			row[5] = fmt.Sprintf("%.2f%%", j.CompressionRatio)
			if j.Audited {
				row[6] = fmt.Sprintf("%d → %d", j.InputFrames, j.OutputFrames)
				row[7] = fmt.Sprintf("%.2f%%", j.ReductionPercent)
			}
		}
		tw.AppendRow(row)
	}

	var b strings.Builder
	b.WriteString(tw.Render())
	b.WriteString("\n")

	totals := fmt.Sprintf("%d done, %d failed, %d cancelled in %s",
		s.Done, s.Failed, s.Cancelled, s.Elapsed.Round(time.Second))
	b.WriteString(statusStyle(summaryStatus(s.State)).Render(string(s.State)) + " " + labelStyle.Render(totals))
	if inBytes > 0 {
		b.WriteString("\n" + dimStyle.Render("saved ") +
			valueStyle.Render(humanize.Bytes(uint64(max(inBytes-outBytes, 0)))) +
			dimStyle.Render(fmt.Sprintf(" (%.2f%%)", batch.CompressionRatio(inBytes, outBytes))))
	}
	for _, j := range s.Jobs {
		if j.Status == batch.StatusFailed && j.Err != nil {
			b.WriteString("\n" + statusStyle(batch.StatusFailed).Render(filepath.Base(j.InputPath)+": ") + dimStyle.Render(j.Err.Error()))
		}
	}
	b.WriteString("\n")
	return b.String()
}

func summaryStatus(s batch.State) batch.Status {
	switch s {
	case batch.StateCompleted:
		return batch.StatusDone
	case batch.StateCancelled:
		return batch.StatusCancelled
	case batch.StateFailed:
		return batch.StatusFailed
	}
	return batch.StatusPending
}
