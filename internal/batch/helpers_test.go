// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// VFRConvert - FFmpeg mpdecimate 批量转换工具

package batch

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/ZSC714725/vfrconvert/internal/audit"
	"github.com/ZSC714725/vfrconvert/internal/convert"
	"github.com/ZSC714725/vfrconvert/internal/ffmpeg"
	"github.com/ZSC714725/vfrconvert/internal/testsupport"
)

type env struct {
	dir    string
	ffmpeg ffmpeg.FFmpeg
}

func newEnv(t *testing.T) *env {
	t.Helper()
	tools := testsupport.WriteTools(t)
	ff, err := ffmpeg.New(ffmpeg.Config{Binary: tools.FFmpeg, ProbeBinary: tools.FFprobe, Clamp: true})
	if err != nil {
		t.Fatalf("ffmpeg.New: %v", err)
	}
	return &env{dir: t.TempDir(), ffmpeg: ff}
}

// inputs creates files of the given size and returns them as batch inputs
func (e *env) inputs(t *testing.T, size int, names ...string) []Input {
	t.Helper()
	var out []Input
	for _, n := range names {
		out = append(out, Input{Path: testsupport.WriteInput(t, e.dir, n, size), SizeBytes: int64(size)})
	}
	return out
}

func (e *env) jobs(t *testing.T, size int, names ...string) []Job {
	return NewJobs(e.inputs(t, size, names...), NewResolver("", PolicyOverwrite))
}

// countingConverter counts the conversions it was asked to run
type countingConverter struct {
	next  Converter
	calls atomic.Int32
}

func (c *countingConverter) Convert(ctx context.Context, job convert.Job, hooks convert.Hooks) convert.Outcome {
	c.calls.Add(1)
	return c.next.Convert(ctx, job, hooks)
}

func (e *env) controller(jobs []Job, obs Observer) (*Controller, *countingConverter) {
	conv := &countingConverter{next: convert.New(e.ffmpeg, nil)}
	return NewController(jobs, Options{
		Converter: conv,
		Auditor:   audit.New(e.ffmpeg, nil),
		Observer:  obs,
	}), conv
}

// events records observer calls as strings
type events struct {
	mu        sync.Mutex
	list      []string
	lines     int
	summaries []Summary
	failures  []error

	onCompleted func(index int)
	onProgress  func(index, percent int)
}

func (e *events) add(format string, args ...interface{}) {
	e.mu.Lock()
	e.list = append(e.list, fmt.Sprintf(format, args...))
	e.mu.Unlock()
}

func (e *events) all() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.list...)
}

func (e *events) LogLine(string) {
	e.mu.Lock()
	e.lines++
	e.mu.Unlock()
}

func (e *events) FileStatusChanged(index int, status Status) {
	e.add("status %d %s", index, status)
}

func (e *events) CurrentFileChanged(index int, path string) {
	e.add("current %d", index)
}

func (e *events) RemainingCountChanged(remaining int) {
	e.add("remaining %d", remaining)
}

func (e *events) CurrentFileProgress(index int, percent int, elapsed float64) {
	e.add("progress %d %d", index, percent)
	if e.onProgress != nil {
		e.onProgress(index, percent)
	}
}

func (e *events) TotalProgress(bytesPercent, filesPercent int) {
	e.add("total %d %d", bytesPercent, filesPercent)
}

func (e *events) FileCompleted(index int, newSizeBytes int64, compressionRatio float64) {
	e.add("completed %d %d %.2f", index, newSizeBytes, compressionRatio)
	if e.onCompleted != nil {
		e.onCompleted(index)
	}
}

func (e *events) FileAudited(index int, result audit.Result) {
	e.add("audited %d %d", index, result.FramesReduced)
}

func (e *events) BatchCompleted(summary Summary) {
	e.mu.Lock()
	e.summaries = append(e.summaries, summary)
	e.mu.Unlock()
	e.add("batch %s", summary.State)
}

func (e *events) BatchFailed(err error) {
	e.mu.Lock()
	e.failures = append(e.failures, err)
	e.mu.Unlock()
	e.add("batch failed")
}

func statuses(jobs []Job) []Status {
	out := make([]Status, len(jobs))
	for i, j := range jobs {
		out[i] = j.Status
	}
	return out
}
