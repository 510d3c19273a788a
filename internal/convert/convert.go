// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// VFRConvert - FFmpeg mpdecimate 批量转换工具
//
// Package convert runs one mpdecimate conversion and reports its progress.

package convert

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ZSC714725/vfrconvert/internal/ffmpeg"
	"github.com/ZSC714725/vfrconvert/internal/ffmpeg/parse"
	"github.com/ZSC714725/vfrconvert/internal/logger"
	"github.com/ZSC714725/vfrconvert/internal/process"
)

const tailLines = 5

// Toolchain is the part of ffmpeg.FFmpeg the executor needs
type Toolchain interface {
	New(config ffmpeg.ProcessConfig) (process.Process, error)
	NewParser() parse.Parser
	DecimateCommand(input, output string) []string
}

// Job is a single conversion
type Job struct {
	InputPath  string
	OutputPath string
}

// Hooks receive progress while a conversion runs. Both are optional and are
// called on the converting goroutine.
type Hooks struct {
	Progress func(parse.Sample)
	Line     func(string)
}

// Outcome of a conversion. Err is nil on success.
type Outcome struct {
	Err         error
	ExitCode    int
	Duration    time.Duration
	Stats       parse.Stats
	Interrupted bool
}

// Success reports whether ffmpeg exited cleanly
func (o Outcome) Success() bool {
	return o.Err == nil
}

// ExitError reports a nonzero ffmpeg exit code together with its last output
type ExitError struct {
	Code int
	Tail []string
}

func (e *ExitError) Error() string {
	if len(e.Tail) == 0 {
		return fmt.Sprintf("ffmpeg exited with code %d", e.Code)
	}
	return fmt.Sprintf("ffmpeg exited with code %d: %s", e.Code, e.Tail[len(e.Tail)-1])
}

// Detail returns the last output lines of ffmpeg
func (e *ExitError) Detail() string {
	return strings.Join(e.Tail, "\n")
}

// Executor converts files one at a time
type Executor struct {
	tools  Toolchain
	logger logger.Logger

	lock sync.Mutex
	proc process.Process
}

// New creates an Executor
func New(tools Toolchain, log logger.Logger) *Executor {
	if log == nil {
		log = logger.Nop()
	}
	return &Executor{tools: tools, logger: log}
}

// Convert runs ffmpeg for job and blocks until it exits. Cancelling ctx
// terminates ffmpeg; a context that is already done spawns nothing.
func (e *Executor) Convert(ctx context.Context, job Job, hooks Hooks) Outcome {
	start := time.Now()

	if err := ctx.Err(); err != nil {
		return Outcome{Err: err, ExitCode: -1, Interrupted: true}
	}

	parser := e.tools.NewParser()
	proc, err := e.tools.New(ffmpeg.ProcessConfig{
		Command: e.tools.DecimateCommand(job.InputPath, job.OutputPath),
		Parser:  parser,
		Logger:  e.logger,
		OnStateChange: func(from, to string) {
			e.logger.Debug("%s: %s -> %s", job.InputPath, from, to)
		},
	})
	if err != nil {
		return Outcome{Err: err, ExitCode: -1, Duration: time.Since(start)}
	}

	if err := proc.Start(); err != nil {
		return Outcome{Err: err, ExitCode: -1, Duration: time.Since(start)}
	}

	e.lock.Lock()
	e.proc = proc
	e.lock.Unlock()
	defer func() {
		e.lock.Lock()
		e.proc = nil
		e.lock.Unlock()
	}()

	stop := context.AfterFunc(ctx, func() { proc.Terminate() })
	defer stop()

	// 钩子 panic 时不留下孤儿进程
	waited := false
	defer func() {
		if !waited {
			proc.Terminate()
			proc.Wait()
		}
	}()

	for line := range proc.Lines() {
		if hooks.Line != nil {
			hooks.Line(line)
		}
		if sample, ok := parser.Feed(line); ok && hooks.Progress != nil {
			hooks.Progress(sample)
		}
	}

	code, err := proc.Wait()
	waited = true
	out := Outcome{
		ExitCode:    code,
		Duration:    time.Since(start),
		Stats:       parser.Stats(),
		Interrupted: ctx.Err() != nil,
	}
	switch {
	case err != nil:
		out.Err = err
	case code != 0:
		out.Err = &ExitError{Code: code, Tail: parse.Tail(parser, tailLines)}
	}
	return out
}

// Terminate stops the running conversion. It is a no-op when idle.
func (e *Executor) Terminate() error {
	e.lock.Lock()
	proc := e.proc
	e.lock.Unlock()
	if proc == nil {
		return nil
	}
	return proc.Terminate()
}

// Status of the running conversion
func (e *Executor) Status() (process.Status, bool) {
	e.lock.Lock()
	proc := e.proc
	e.lock.Unlock()
	if proc == nil {
		return process.Status{}, false
	}
	return proc.Status(), true
}
