// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// VFRConvert - FFmpeg mpdecimate 批量转换工具

package batch

import (
	"fmt"
	"time"
)

// Status of a job
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusDone      Status = "done"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// IsTerminal reports whether no further transition is allowed
func (s Status) IsTerminal() bool {
	return s == StatusDone || s == StatusFailed || s == StatusCancelled
}

func (s Status) String() string { return string(s) }

// Input is a file to convert together with its size
type Input struct {
	Path      string `json:"path"`
	SizeBytes int64  `json:"size_bytes"`
}

// Job is one input file converted to one output file
type Job struct {
	Index      int    `json:"index"`
	InputPath  string `json:"input"`
	OutputPath string `json:"output"`
	SizeBytes  int64  `json:"size_bytes"`
	Status     Status `json:"status"`

	NewSizeBytes     int64   `json:"new_size_bytes,omitempty"`
	CompressionRatio float64 `json:"compression_ratio,omitempty"`

	// 帧数比对结果, 仅在 Done 之后填写
	Audited          bool    `json:"audited"`
	InputFrames      int64   `json:"input_frames,omitempty"`
	OutputFrames     int64   `json:"output_frames,omitempty"`
	FramesReduced    int64   `json:"frames_reduced,omitempty"`
	ReductionPercent float64 `json:"reduction_percent,omitempty"`

	Err        error     `json:"-"`
	StartedAt  time.Time `json:"started_at,omitzero"`
	FinishedAt time.Time `json:"finished_at,omitzero"`

	// preset holds an error found while planning, e.g. an output collision
	preset error
}

// setStatus moves the job along Pending -> Running -> {Done, Failed, Cancelled}
// or Pending -> Cancelled. Terminal states are absorbing.
func (j *Job) setStatus(to Status) error {
	ok := false
	switch j.Status {
	case StatusPending:
		ok = to == StatusRunning || to == StatusCancelled
	case StatusRunning:
		ok = to.IsTerminal()
	}
	if !ok {
		return fmt.Errorf("%w: job %d %s -> %s", ErrTransition, j.Index, j.Status, to)
	}
	j.Status = to
	return nil
}
