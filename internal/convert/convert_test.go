// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// VFRConvert - FFmpeg mpdecimate 批量转换工具

package convert

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/ZSC714725/vfrconvert/internal/ffmpeg"
	"github.com/ZSC714725/vfrconvert/internal/ffmpeg/parse"
	"github.com/ZSC714725/vfrconvert/internal/process"
	"github.com/ZSC714725/vfrconvert/internal/testsupport"
)

func newExecutor(t *testing.T) (*Executor, string) {
	t.Helper()
	tools := testsupport.WriteTools(t)
	ff, err := ffmpeg.New(ffmpeg.Config{Binary: tools.FFmpeg, Clamp: true})
	if err != nil {
		t.Fatalf("ffmpeg.New: %v", err)
	}
	return New(ff, nil), t.TempDir()
}

func TestConvertSuccess(t *testing.T) {
	e, dir := newExecutor(t)
	in := testsupport.WriteInput(t, dir, "clip.mp4", 1000)
	out := filepath.Join(dir, "clip_converted.mp4")

	var samples []parse.Sample
	var lines []string
	res := e.Convert(context.Background(), Job{InputPath: in, OutputPath: out}, Hooks{
		Progress: func(s parse.Sample) { samples = append(samples, s) },
		Line:     func(l string) { lines = append(lines, l) },
	})

	if !res.Success() {
		t.Fatalf("Convert failed: %v", res.Err)
	}
	if res.ExitCode != 0 || res.Interrupted {
		t.Errorf("outcome = %+v", res)
	}
	want := []parse.Sample{{Percent: 50, Elapsed: 30}, {Percent: 100, Elapsed: 60}}
	if !slices.Equal(samples, want) {
		t.Errorf("samples = %+v, want %+v", samples, want)
	}
	if len(lines) != 4 {
		t.Errorf("got %d lines: %q", len(lines), lines)
	}
	if res.Stats.Frame != 1500 || res.Stats.Drop != 300 {
		t.Errorf("stats = %+v", res.Stats)
	}
	fi, err := os.Stat(out)
	if err != nil {
		t.Fatalf("stat output: %v", err)
	}
	if fi.Size() != testsupport.OutputSize {
		t.Errorf("output size = %d", fi.Size())
	}
}

func TestConvertExitCode(t *testing.T) {
	e, dir := newExecutor(t)
	in := testsupport.WriteInput(t, dir, "fail.mp4", 1000)

	res := e.Convert(context.Background(), Job{InputPath: in, OutputPath: filepath.Join(dir, "fail_converted.mp4")}, Hooks{})

	var xe *ExitError
	if !errors.As(res.Err, &xe) {
		t.Fatalf("err = %v, want *ExitError", res.Err)
	}
	if xe.Code != 1 || res.ExitCode != 1 {
		t.Errorf("code = %d/%d, want 1", xe.Code, res.ExitCode)
	}
	if len(xe.Tail) == 0 || xe.Tail[len(xe.Tail)-1] != "Conversion failed!" {
		t.Errorf("tail = %q", xe.Tail)
	}
	if xe.Error() != "ffmpeg exited with code 1: Conversion failed!" {
		t.Errorf("Error() = %q", xe.Error())
	}
}

func TestConvertSpawnError(t *testing.T) {
	e := New(missingTool{}, nil)
	res := e.Convert(context.Background(), Job{InputPath: "a.mp4", OutputPath: "b.mp4"}, Hooks{})

	var se *process.SpawnError
	if !errors.As(res.Err, &se) {
		t.Fatalf("err = %v, want *process.SpawnError", res.Err)
	}
	if res.Success() {
		t.Error("spawn failure reported success")
	}
}

func TestConvertCancelledBeforeStart(t *testing.T) {
	counting := &countingTool{}
	e := New(counting, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res := e.Convert(ctx, Job{InputPath: "a.mp4", OutputPath: "b.mp4"}, Hooks{})

	if !res.Interrupted || !errors.Is(res.Err, context.Canceled) {
		t.Errorf("outcome = %+v", res)
	}
	if counting.spawned != 0 {
		t.Errorf("spawned %d processes", counting.spawned)
	}
}

func TestConvertCancelTerminates(t *testing.T) {
	e, dir := newExecutor(t)
	in := testsupport.WriteInput(t, dir, "slow.mp4", 1000)

	ctx, cancel := context.WithCancel(context.Background())
	started := make(chan struct{})
	var once bool

	done := make(chan Outcome, 1)
	go func() {
		done <- e.Convert(ctx, Job{InputPath: in, OutputPath: filepath.Join(dir, "slow_converted.mp4")}, Hooks{
			Progress: func(parse.Sample) {
				if !once {
					once = true
					close(started)
				}
			},
		})
	}()

	select {
	case <-started:
	case <-time.After(10 * time.Second):
		t.Fatal("no progress from slow conversion")
	}
	if _, ok := e.Status(); !ok {
		t.Error("Status reports idle while converting")
	}
	cancel()

	select {
	case res := <-done:
		if res.Success() || !res.Interrupted {
			t.Errorf("outcome = %+v", res)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("conversion not terminated")
	}

	if _, ok := e.Status(); ok {
		t.Error("Status reports busy after conversion")
	}
	if err := e.Terminate(); err != nil {
		t.Errorf("idle Terminate: %v", err)
	}
}

func TestConvertHookPanicStopsFFmpeg(t *testing.T) {
	tools := testsupport.WriteTools(t)
	ff, err := ffmpeg.New(ffmpeg.Config{Binary: tools.FFmpeg, Clamp: true})
	if err != nil {
		t.Fatalf("ffmpeg.New: %v", err)
	}
	rec := &recordingTool{FFmpeg: ff}
	e := New(rec, nil)
	dir := t.TempDir()
	in := testsupport.WriteInput(t, dir, "slow.mp4", 1000)

	start := time.Now()
	func() {
		defer func() {
			if r := recover(); r != "hook bug" {
				t.Errorf("recovered %v, want hook bug", r)
			}
		}()
		e.Convert(context.Background(), Job{InputPath: in, OutputPath: filepath.Join(dir, "slow_converted.mp4")}, Hooks{
			Progress: func(parse.Sample) { panic("hook bug") },
		})
		t.Error("Convert returned without panicking")
	}()

	if d := time.Since(start); d > 15*time.Second {
		t.Errorf("took %s", d)
	}
	if rec.proc == nil {
		t.Fatal("no process spawned")
	}
	if rec.proc.IsRunning() {
		t.Error("ffmpeg still running after panic")
	}
	if st := rec.proc.Status().State; st != "killed" {
		t.Errorf("state = %s, want killed", st)
	}
	if _, ok := e.Status(); ok {
		t.Error("Status reports busy after panic")
	}
}

// recordingTool keeps the last process it created
type recordingTool struct {
	ffmpeg.FFmpeg
	proc process.Process
}

func (r *recordingTool) New(config ffmpeg.ProcessConfig) (process.Process, error) {
	p, err := r.FFmpeg.New(config)
	r.proc = p
	return p, err
}

type missingTool struct{}

func (missingTool) New(config ffmpeg.ProcessConfig) (process.Process, error) {
	return process.New(process.Config{Binary: "/nonexistent/ffmpeg", Args: config.Command})
}

func (missingTool) NewParser() parse.Parser { return parse.New(parse.Config{}) }

func (missingTool) DecimateCommand(input, output string) []string {
	return []string{"-i", input, output}
}

type countingTool struct {
	missingTool
	spawned int
}

func (c *countingTool) New(config ffmpeg.ProcessConfig) (process.Process, error) {
	c.spawned++
	return c.missingTool.New(config)
}
