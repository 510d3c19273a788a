// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// VFRConvert - FFmpeg mpdecimate 批量转换工具

package batch

import (
	"time"

	"github.com/ZSC714725/vfrconvert/internal/audit"
)

// Observer receives batch events. All methods are called from the batch
// goroutine, in order; implementations must not block for long.
type Observer interface {
	LogLine(text string)
	FileStatusChanged(index int, status Status)
	CurrentFileChanged(index int, path string)
	RemainingCountChanged(remaining int)
	CurrentFileProgress(index int, percent int, elapsed float64)
	TotalProgress(bytesPercent, filesPercent int)
	FileCompleted(index int, newSizeBytes int64, compressionRatio float64)
	FileAudited(index int, result audit.Result)
	BatchCompleted(summary Summary)
	BatchFailed(err error)
}

// Summary is delivered once the batch loop has exited
type Summary struct {
	Jobs           []Job         `json:"jobs"`
	State          State         `json:"state"`
	TotalBytes     int64         `json:"total_bytes"`
	ProcessedBytes int64         `json:"processed_bytes"`
	Done           int           `json:"done"`
	Failed         int           `json:"failed"`
	Cancelled      int           `json:"cancelled"`
	Elapsed        time.Duration `json:"elapsed"`
}

// NopObserver ignores every event. Embed it to implement a subset.
type NopObserver struct{}

func (NopObserver) LogLine(string)                        {}
func (NopObserver) FileStatusChanged(int, Status)         {}
func (NopObserver) CurrentFileChanged(int, string)        {}
func (NopObserver) RemainingCountChanged(int)             {}
func (NopObserver) CurrentFileProgress(int, int, float64) {}
func (NopObserver) TotalProgress(int, int)                {}
func (NopObserver) FileCompleted(int, int64, float64)     {}
func (NopObserver) FileAudited(int, audit.Result)         {}
func (NopObserver) BatchCompleted(Summary)                {}
func (NopObserver) BatchFailed(error)                     {}

// MultiObserver forwards every event to each observer in turn
type MultiObserver []Observer

func (m MultiObserver) LogLine(text string) {
	for _, o := range m {
		o.LogLine(text)
	}
}

func (m MultiObserver) FileStatusChanged(index int, status Status) {
	for _, o := range m {
		o.FileStatusChanged(index, status)
	}
}

func (m MultiObserver) CurrentFileChanged(index int, path string) {
	for _, o := range m {
		o.CurrentFileChanged(index, path)
	}
}

func (m MultiObserver) RemainingCountChanged(remaining int) {
	for _, o := range m {
		o.RemainingCountChanged(remaining)
	}
}

func (m MultiObserver) CurrentFileProgress(index int, percent int, elapsed float64) {
	for _, o := range m {
		o.CurrentFileProgress(index, percent, elapsed)
	}
}

func (m MultiObserver) TotalProgress(bytesPercent, filesPercent int) {
	for _, o := range m {
		o.TotalProgress(bytesPercent, filesPercent)
	}
}

func (m MultiObserver) FileCompleted(index int, newSizeBytes int64, compressionRatio float64) {
	for _, o := range m {
		o.FileCompleted(index, newSizeBytes, compressionRatio)
	}
}

func (m MultiObserver) FileAudited(index int, result audit.Result) {
	for _, o := range m {
		o.FileAudited(index, result)
	}
}

func (m MultiObserver) BatchCompleted(summary Summary) {
	for _, o := range m {
		o.BatchCompleted(summary)
	}
}

func (m MultiObserver) BatchFailed(err error) {
	for _, o := range m {
		o.BatchFailed(err)
	}
}
