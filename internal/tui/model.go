// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// VFRConvert - FFmpeg mpdecimate 批量转换工具

package tui

import (
	"fmt"
	"math"
	"path/filepath"
	"strings"
	"time"

	"github.com/ZSC714725/vfrconvert/internal/batch"
	"github.com/ZSC714725/vfrconvert/internal/ffmpeg/parse"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"
)

const logTail = 4

type fileRow struct {
	name    string
	status  batch.Status
	size    int64
	newSize int64
	ratio   float64
	reduced float64
	audited bool
}

// Model is the interactive progress view of one batch
type Model struct {
	msgs   <-chan tea.Msg
	cancel func()

	files        []fileRow
	current      int
	filePercent  int
	fileElapsed  float64
	fileStart    time.Time
	bytesPercent int
	filesPercent int
	remaining    int
	log          []string

	started    time.Time
	width      int
	cancelling bool
	quitting   bool
	err        error
}

// NewModel creates the view for jobs. cancel is called when the user
// presses ctrl+c or q.
func NewModel(jobs []batch.Job, msgs <-chan tea.Msg, cancel func()) Model {
	m := Model{
		msgs:      msgs,
		cancel:    cancel,
		current:   -1,
		remaining: len(jobs),
		started:   time.Now(),
	}
	for _, j := range jobs {
		m.files = append(m.files, fileRow{name: filepath.Base(j.InputPath), status: j.Status, size: j.SizeBytes})
	}
	return m
}

func (m Model) Init() tea.Cmd {
	return listen(m.msgs)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			if !m.cancelling {
				m.cancelling = true
				if m.cancel != nil {
					m.cancel()
				}
			}
		}
		return m, nil
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil
	case closedMsg:
		m.quitting = true
		return m, tea.Quit
	}

	m.apply(msg)
	return m, listen(m.msgs)
}

func (m *Model) apply(msg tea.Msg) {
	switch msg := msg.(type) {
	case logMsg:
		m.log = append(m.log, string(msg))
		if len(m.log) > logTail {
			m.log = m.log[len(m.log)-logTail:]
		}
	case statusMsg:
		if row := m.row(msg.index); row != nil {
			row.status = msg.status
		}
	case currentMsg:
		m.current = msg.index
		m.filePercent = 0
		m.fileElapsed = 0
		m.fileStart = time.Now()
	case remainingMsg:
		m.remaining = int(msg)
	case fileProgressMsg:
		m.filePercent = msg.percent
		m.fileElapsed = msg.elapsed
	case totalMsg:
		m.bytesPercent = msg.bytes
		m.filesPercent = msg.files
	case completedMsg:
		if row := m.row(msg.index); row != nil {
			row.newSize = msg.size
			row.ratio = msg.ratio
		}
	case auditedMsg:
		if row := m.row(msg.index); row != nil {
			row.audited = true
			row.reduced = msg.result.ReductionPercent
		}
	case batchFailedMsg:
		m.err = msg.err
	}
}

func (m *Model) row(index int) *fileRow {
	if index < 0 || index >= len(m.files) {
		return nil
	}
	return &m.files[index]
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	barWidth := 40
	if m.width > 0 {
		barWidth = min(60, max(20, m.width-20))
	}

	lines := []string{titleStyle.Render("vfrconvert · mpdecimate")}

	for i, f := range m.files {
		marker := "  "
		if i == m.current {
			marker = "> "
		}
		line := marker + statusStyle(f.status).Render(fmt.Sprintf("%-9s", f.status)) + " " + labelStyle.Render(f.name)
		if f.status == batch.StatusDone {
			line += dimStyle.Render(fmt.Sprintf("  %s, %.2f%% smaller", humanize.Bytes(uint64(f.newSize)), f.ratio))
			if f.audited {
				line += dimStyle.Render(fmt.Sprintf(", %.1f%% frames dropped", f.reduced))
			}
		}
		lines = append(lines, line)
	}

	lines = append(lines, "")
	if m.current >= 0 && m.current < len(m.files) && m.files[m.current].status == batch.StatusRunning {
		eta := "--:--:--"
		if d, ok := batch.EstimateRemaining(time.Since(m.fileStart), m.filePercent); ok {
			eta = parse.FormatTimestamp(d.Seconds())
		}
		lines = append(lines,
			labelStyle.Render(fmt.Sprintf("File   %3d%% ", m.filePercent))+barStyle.Render(renderBar(barWidth, float64(m.filePercent)/100)),
			dimStyle.Render(fmt.Sprintf("       at %s, about %s left", parse.FormatTimestamp(m.fileElapsed), eta)),
		)
	}
	lines = append(lines,
		labelStyle.Render(fmt.Sprintf("Total  %3d%% ", m.bytesPercent))+barStyle.Render(renderBar(barWidth, float64(m.bytesPercent)/100)),
		dimStyle.Render(fmt.Sprintf("       files %d%%, %d remaining, elapsed %s", m.filesPercent, m.remaining, time.Since(m.started).Round(time.Second))),
	)

	if len(m.log) > 0 {
		lines = append(lines, "")
		for _, l := range m.log {
			lines = append(lines, dimStyle.Render(truncate(l, max(barWidth+20, 40))))
		}
	}

	switch {
	case m.err != nil:
		lines = append(lines, "", warnStyle.Render("batch failed: "+m.err.Error()))
	case m.cancelling:
		lines = append(lines, "", warnStyle.Render("cancelling..."))
	default:
		lines = append(lines, "", dimStyle.Render("q / ctrl+c to cancel"))
	}

	return strings.Join(lines, "\n")
}

func listen(msgs <-chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-msgs
		if !ok {
			return closedMsg{}
		}
		return msg
	}
}

func renderBar(width int, ratio float64) string {
	filled := int(math.Round(ratio * float64(width)))
	filled = min(max(filled, 0), width)
	return "[" + strings.Repeat("=", filled) + strings.Repeat(" ", width-filled) + "]"
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
