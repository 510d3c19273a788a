// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// VFRConvert - FFmpeg mpdecimate 批量转换工具

package tui

import (
	"sync"

	"github.com/ZSC714725/vfrconvert/internal/audit"
	"github.com/ZSC714725/vfrconvert/internal/batch"
	tea "github.com/charmbracelet/bubbletea"
)

type logMsg string

type statusMsg struct {
	index  int
	status batch.Status
}

type currentMsg struct {
	index int
	path  string
}

type remainingMsg int

type fileProgressMsg struct {
	index   int
	percent int
	elapsed float64
}

type totalMsg struct {
	bytes int
	files int
}

type completedMsg struct {
	index int
	size  int64
	ratio float64
}

type auditedMsg struct {
	index  int
	result audit.Result
}

type batchDoneMsg batch.Summary

type batchFailedMsg struct{ err error }

type closedMsg struct{}

// ChanObserver turns batch events into bubbletea messages
type ChanObserver struct {
	ch   chan tea.Msg
	once sync.Once
}

// NewChanObserver creates an observer with a buffer of size messages
func NewChanObserver(size int) *ChanObserver {
	return &ChanObserver{ch: make(chan tea.Msg, size)}
}

// Messages is the channel the Model listens on
func (o *ChanObserver) Messages() <-chan tea.Msg {
	return o.ch
}

// Close ends the message stream. Call it once the batch has finished.
func (o *ChanObserver) Close() {
	o.once.Do(func() { close(o.ch) })
}

func (o *ChanObserver) LogLine(text string) { o.ch <- logMsg(text) }

func (o *ChanObserver) FileStatusChanged(index int, status batch.Status) {
	o.ch <- statusMsg{index: index, status: status}
}

func (o *ChanObserver) CurrentFileChanged(index int, path string) {
	o.ch <- currentMsg{index: index, path: path}
}

func (o *ChanObserver) RemainingCountChanged(remaining int) {
	o.ch <- remainingMsg(remaining)
}

func (o *ChanObserver) CurrentFileProgress(index int, percent int, elapsed float64) {
	o.ch <- fileProgressMsg{index: index, percent: percent, elapsed: elapsed}
}

func (o *ChanObserver) TotalProgress(bytesPercent, filesPercent int) {
	o.ch <- totalMsg{bytes: bytesPercent, files: filesPercent}
}

func (o *ChanObserver) FileCompleted(index int, newSizeBytes int64, compressionRatio float64) {
	o.ch <- completedMsg{index: index, size: newSizeBytes, ratio: compressionRatio}
}

func (o *ChanObserver) FileAudited(index int, result audit.Result) {
	o.ch <- auditedMsg{index: index, result: result}
}

func (o *ChanObserver) BatchCompleted(summary batch.Summary) {
	o.ch <- batchDoneMsg(summary)
}

func (o *ChanObserver) BatchFailed(err error) {
	o.ch <- batchFailedMsg{err: err}
}
