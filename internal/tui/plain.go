// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// VFRConvert - FFmpeg mpdecimate 批量转换工具

package tui

import (
	"path/filepath"
	"sync"

	"github.com/ZSC714725/vfrconvert/internal/audit"
	"github.com/ZSC714725/vfrconvert/internal/batch"
	"github.com/ZSC714725/vfrconvert/internal/ffmpeg/parse"
	"github.com/ZSC714725/vfrconvert/internal/logger"
	"github.com/dustin/go-humanize"
)

// progressStep is the granularity of progress lines in plain output
const progressStep = 10

// PlainObserver reports a batch as log lines, for pipes and CI logs.
// ffmpeg output is only forwarded at debug level.
type PlainObserver struct {
	batch.NopObserver

	log   logger.Logger
	names []string
	total int

	mu   sync.Mutex
	step map[int]int
}

func NewPlainObserver(jobs []batch.Job, log logger.Logger) *PlainObserver {
	if log == nil {
		log = logger.Nop()
	}
	o := &PlainObserver{log: log, total: len(jobs), step: make(map[int]int)}
	for _, j := range jobs {
		o.names = append(o.names, filepath.Base(j.InputPath))
	}
	return o
}

func (o *PlainObserver) name(index int) string {
	if index < 0 || index >= len(o.names) {
		return "?"
	}
	return o.names[index]
}

func (o *PlainObserver) LogLine(text string) {
	o.log.Debug("%s", text)
}

func (o *PlainObserver) FileStatusChanged(index int, status batch.Status) {
	switch status {
	case batch.StatusFailed:
		o.log.Warn("[%d/%d] %s %s", index+1, o.total, o.name(index), status)
	case batch.StatusCancelled:
		o.log.Info("[%d/%d] %s %s", index+1, o.total, o.name(index), status)
	}
}

func (o *PlainObserver) CurrentFileChanged(index int, path string) {
	o.log.Info("[%d/%d] %s", index+1, o.total, path)
}

func (o *PlainObserver) CurrentFileProgress(index int, percent int, elapsed float64) {
	step := percent / progressStep * progressStep
	o.mu.Lock()
	last, seen := o.step[index]
	if seen && step <= last {
		o.mu.Unlock()
		return
	}
	o.step[index] = step
	o.mu.Unlock()

	if step == 0 {
		return
	}
	o.log.Info("[%d/%d] %s %3d%% (%s)", index+1, o.total, o.name(index), step, parse.FormatTimestamp(elapsed))
}

func (o *PlainObserver) TotalProgress(bytesPercent, filesPercent int) {
	o.log.Info("total %d%% (files %d%%)", bytesPercent, filesPercent)
}

func (o *PlainObserver) FileCompleted(index int, newSizeBytes int64, compressionRatio float64) {
	o.log.Info("[%d/%d] %s done, %s (%.2f%% smaller)", index+1, o.total, o.name(index), humanize.Bytes(uint64(newSizeBytes)), compressionRatio)
}

func (o *PlainObserver) FileAudited(index int, result audit.Result) {
	o.log.Info("[%d/%d] %s frames %d -> %d, %d dropped (%.2f%%)", index+1, o.total, o.name(index),
		result.InputFrames, result.OutputFrames, result.FramesReduced, result.ReductionPercent)
}

func (o *PlainObserver) BatchFailed(err error) {
	o.log.Error("batch failed: %v", err)
}
