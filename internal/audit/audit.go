// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// VFRConvert - FFmpeg mpdecimate 批量转换工具
//
// Package audit counts video frames with ffprobe and reports how many
// frames a conversion removed. The result is advisory only.

package audit

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/ZSC714725/vfrconvert/internal/ffmpeg"
	"github.com/ZSC714725/vfrconvert/internal/logger"
	"github.com/ZSC714725/vfrconvert/internal/process"
)

var (
	ErrZeroFrames   = errors.New("input has zero frames")
	ErrInvalidCount = errors.New("frame count is not an integer")
	ErrProbeFailed  = errors.New("ffprobe failed")
)

// Error reports an audit failure for a path
type Error struct {
	Path string
	Err  error
}

func (e *Error) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("audit: %v", e.Err)
	}
	return fmt.Sprintf("audit %s: %v", e.Path, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Result of comparing the frame counts of an input and its output
type Result struct {
	InputFrames      int64   `json:"input_frames"`
	OutputFrames     int64   `json:"output_frames"`
	FramesReduced    int64   `json:"frames_reduced"`
	ReductionPercent float64 `json:"reduction_percent"`
}

// Prober creates FFprobe processes
type Prober interface {
	NewProbe(config ffmpeg.ProcessConfig) (process.Process, error)
	CountFramesCommand(path string) []string
}

// Auditor counts frames of media files
type Auditor struct {
	prober Prober
	logger logger.Logger
}

// New creates an Auditor
func New(prober Prober, log logger.Logger) *Auditor {
	if log == nil {
		log = logger.Nop()
	}
	return &Auditor{prober: prober, logger: log}
}

// CountFrames decodes the first video stream of path and returns the number
// of frames read. Cancelling ctx terminates ffprobe.
func (a *Auditor) CountFrames(ctx context.Context, path string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, &Error{Path: path, Err: err}
	}

	proc, err := a.prober.NewProbe(ffmpeg.ProcessConfig{
		Command: a.prober.CountFramesCommand(path),
		Logger:  a.logger,
	})
	if err != nil {
		return 0, &Error{Path: path, Err: err}
	}
	if err := proc.Start(); err != nil {
		return 0, &Error{Path: path, Err: err}
	}
	stop := context.AfterFunc(ctx, func() { proc.Terminate() })
	defer stop()

	var out strings.Builder
	for line := range proc.Lines() {
		out.WriteString(line)
		out.WriteByte('\n')
	}

	code, err := proc.Wait()
	if ctx.Err() != nil {
		return 0, &Error{Path: path, Err: ctx.Err()}
	}
	if err != nil {
		return 0, &Error{Path: path, Err: err}
	}
	if code != 0 {
		return 0, &Error{Path: path, Err: fmt.Errorf("%w: exit code %d", ErrProbeFailed, code)}
	}

	text := strings.TrimSpace(out.String())
	n, err := strconv.ParseInt(text, 10, 64)
	if err != nil || n < 0 {
		return 0, &Error{Path: path, Err: fmt.Errorf("%w: %q", ErrInvalidCount, text)}
	}
	return n, nil
}

// Compare counts the frames of input and output and computes the reduction
func (a *Auditor) Compare(ctx context.Context, input, output string) (Result, error) {
	in, err := a.CountFrames(ctx, input)
	if err != nil {
		return Result{}, err
	}
	out, err := a.CountFrames(ctx, output)
	if err != nil {
		return Result{}, err
	}
	res, err := Reduction(in, out)
	if err != nil {
		var ae *Error
		if errors.As(err, &ae) {
			ae.Path = input
		}
		return Result{}, err
	}
	return res, nil
}

// Reduction computes how many frames were removed. An input without frames
// is an error.
func Reduction(inputFrames, outputFrames int64) (Result, error) {
	if inputFrames == 0 {
		return Result{}, &Error{Err: ErrZeroFrames}
	}
	reduced := inputFrames - outputFrames
	return Result{
		InputFrames:      inputFrames,
		OutputFrames:     outputFrames,
		FramesReduced:    reduced,
		ReductionPercent: float64(reduced) / float64(inputFrames) * 100,
	}, nil
}
