// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// VFRConvert - FFmpeg mpdecimate 批量转换工具
//
// Package batch converts an ordered list of files one after another and
// reports progress to an Observer.

package batch

import (
	"context"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ZSC714725/vfrconvert/internal/audit"
	"github.com/ZSC714725/vfrconvert/internal/convert"
	"github.com/ZSC714725/vfrconvert/internal/ffmpeg/parse"
	"github.com/ZSC714725/vfrconvert/internal/logger"
)

// State of a batch run
type State string

const (
	StateIdle      State = "idle"
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateCancelled State = "cancelled"
	StateFailed    State = "failed"
)

// Converter runs a single conversion
type Converter interface {
	Convert(ctx context.Context, job convert.Job, hooks convert.Hooks) convert.Outcome
}

// Auditor compares the frame counts of an input and its output
type Auditor interface {
	Compare(ctx context.Context, input, output string) (audit.Result, error)
}

// Options for a Controller. Auditor may be nil to skip frame counting.
type Options struct {
	Converter Converter
	Auditor   Auditor
	Observer  Observer
	Logger    logger.Logger
}

// Snapshot is a consistent copy of the batch state
type Snapshot struct {
	State          State `json:"state"`
	Jobs           []Job `json:"jobs"`
	TotalBytes     int64 `json:"total_bytes"`
	ProcessedBytes int64 `json:"processed_bytes"`
	CurrentIndex   int   `json:"current_index"`
}

// Controller runs the jobs of one batch sequentially
type Controller struct {
	converter Converter
	auditor   Auditor
	observer  Observer
	logger    logger.Logger

	// mu guards the fields below; only the batch goroutine writes them
	mu             sync.Mutex
	jobs           []Job
	totalBytes     int64
	processedBytes int64
	current        int
	state          State

	cancelRequested atomic.Bool
	started         atomic.Bool

	cancelLock sync.Mutex
	cancelFunc context.CancelFunc
}

// NewController creates a controller for jobs. The jobs are copied.
func NewController(jobs []Job, opts Options) *Controller {
	c := &Controller{
		converter: opts.Converter,
		auditor:   opts.Auditor,
		observer:  opts.Observer,
		logger:    opts.Logger,
		jobs:      append([]Job(nil), jobs...),
		current:   -1,
		state:     StateIdle,
	}
	if c.observer == nil {
		c.observer = NopObserver{}
	}
	if c.logger == nil {
		c.logger = logger.Nop()
	}
	for _, j := range c.jobs {
		c.totalBytes += j.SizeBytes
	}
	return c
}

// Cancel requests the batch to stop. The running conversion is terminated
// and the remaining jobs are cancelled. Partially written output is kept.
func (c *Controller) Cancel() {
	if !c.cancelRequested.CompareAndSwap(false, true) {
		return
	}
	c.cancelLock.Lock()
	cancel := c.cancelFunc
	c.cancelLock.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Start runs the batch on its own goroutine. The returned channel is closed
// when the run is over.
func (c *Controller) Start(ctx context.Context) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := c.Run(ctx); err != nil {
			c.logger.Debug("batch: %v", err)
		}
	}()
	return done
}

// Run converts all jobs and blocks until done. A done ctx counts as a cancel
// request. Errors are bookkeeping failures and are also reported through
// Observer.BatchFailed; job errors are stored on the jobs.
func (c *Controller) Run(ctx context.Context) (err error) {
	if !c.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	c.cancelLock.Lock()
	c.cancelFunc = cancel
	c.cancelLock.Unlock()
	if c.cancelRequested.Load() {
		cancel()
	}

	start := time.Now()
	c.setState(StateRunning)

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("batch panic: %v", r)
		}
		if err != nil {
			c.abortCurrent(err)
			c.setState(StateFailed)
			c.logger.Error("batch failed: %v", err)
			c.observer.BatchFailed(err)
		}
	}()

	if err := c.loop(ctx); err != nil {
		return err
	}

	summary := c.summary(start)
	state := StateCompleted
	if summary.Cancelled > 0 {
		state = StateCancelled
	}
	c.setState(state)
	summary.State = state

	c.log("batch %s: %d done, %d failed, %d cancelled in %s",
		state, summary.Done, summary.Failed, summary.Cancelled, summary.Elapsed.Round(10*time.Millisecond))
	c.observer.BatchCompleted(summary)
	return nil
}

func (c *Controller) loop(ctx context.Context) error {
	for i := range c.jobs {
		if c.interrupted(ctx) {
			return c.cancelRemaining(i)
		}
		if err := c.runJob(ctx, i); err != nil {
			return err
		}
	}
	return nil
}

func (c *Controller) runJob(ctx context.Context, i int) error {
	job := &c.jobs[i]

	c.mu.Lock()
	c.current = i
	err := job.setStatus(StatusRunning)
	job.StartedAt = time.Now()
	c.mu.Unlock()
	if err != nil {
		return err
	}

	c.observer.FileStatusChanged(i, StatusRunning)
	c.observer.CurrentFileChanged(i, job.InputPath)
	c.observer.RemainingCountChanged(len(c.jobs) - i - 1)
	c.log("converting %s -> %s", job.InputPath, job.OutputPath)

	if job.preset != nil {
		return c.fail(i, job.preset, false)
	}

	outcome := c.converter.Convert(ctx, convert.Job{
		InputPath:  job.InputPath,
		OutputPath: job.OutputPath,
	}, convert.Hooks{
		Progress: func(s parse.Sample) {
			c.observer.CurrentFileProgress(i, s.Percent, s.Elapsed)
		},
		Line: c.observer.LogLine,
	})

	if outcome.Err != nil {
		return c.fail(i, outcome.Err, outcome.Interrupted || c.interrupted(ctx))
	}
	return c.succeed(ctx, i)
}

func (c *Controller) succeed(ctx context.Context, i int) error {
	job := &c.jobs[i]

	fi, err := os.Stat(job.OutputPath)
	if err != nil {
		return c.fail(i, fmt.Errorf("%w: %w", ErrOutputStat, err), false)
	}
	newSize := fi.Size()
	ratio := CompressionRatio(job.SizeBytes, newSize)

	c.mu.Lock()
	job.NewSizeBytes = newSize
	job.CompressionRatio = ratio
	job.FinishedAt = time.Now()
	c.processedBytes += job.SizeBytes
	err = job.setStatus(StatusDone)
	c.mu.Unlock()
	if err != nil {
		return err
	}

	c.observer.FileCompleted(i, newSize, ratio)
	c.observer.FileStatusChanged(i, StatusDone)
	c.emitTotal(i)
	c.log("done %s: %d -> %d bytes, %.2f%% smaller (%.2fs)",
		job.InputPath, job.SizeBytes, newSize, ratio, job.FinishedAt.Sub(job.StartedAt).Seconds())

	c.audit(ctx, i)
	return nil
}

// fail ends job i. An interrupted job is cancelled and does not consume its
// bytes; any other failure does.
func (c *Controller) fail(i int, cause error, interrupted bool) error {
	job := &c.jobs[i]

	status := StatusFailed
	if interrupted {
		status = StatusCancelled
	}

	c.mu.Lock()
	job.FinishedAt = time.Now()
	if !interrupted {
		job.Err = cause
		c.processedBytes += job.SizeBytes
	}
	err := job.setStatus(status)
	c.mu.Unlock()
	if err != nil {
		return err
	}

	c.observer.FileStatusChanged(i, status)
	if interrupted {
		c.log("cancelled %s", job.InputPath)
		return nil
	}

	c.emitTotal(i)
	c.logger.Error("convert %s: %v", job.InputPath, cause)
	c.observer.LogLine(fmt.Sprintf("failed %s: %v", job.InputPath, cause))
	return nil
}

// abortCurrent fails the job left Running when the loop stops abnormally.
// Observers are not told; the batch reports BatchFailed instead.
func (c *Controller) abortCurrent(cause error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current < 0 || c.current >= len(c.jobs) {
		return
	}
	job := &c.jobs[c.current]
	if job.Status != StatusRunning {
		return
	}
	job.Err = cause
	job.FinishedAt = time.Now()
	c.processedBytes += job.SizeBytes
	job.setStatus(StatusFailed)
}

func (c *Controller) audit(ctx context.Context, i int) {
	if c.auditor == nil || ctx.Err() != nil {
		return
	}
	job := &c.jobs[i]

	res, err := c.auditor.Compare(ctx, job.InputPath, job.OutputPath)
	if err != nil {
		c.logger.Warn("audit %s: %v", job.InputPath, err)
		c.observer.LogLine(fmt.Sprintf("frame count unavailable for %s: %v", job.InputPath, err))
		return
	}

	c.mu.Lock()
	job.Audited = true
	job.InputFrames = res.InputFrames
	job.OutputFrames = res.OutputFrames
	job.FramesReduced = res.FramesReduced
	job.ReductionPercent = res.ReductionPercent
	c.mu.Unlock()

	c.observer.FileAudited(i, res)
	c.log("frames %s: %d -> %d, %d removed (%.2f%%)",
		job.InputPath, res.InputFrames, res.OutputFrames, res.FramesReduced, res.ReductionPercent)
}

func (c *Controller) cancelRemaining(from int) error {
	skipped := 0
	for i := from; i < len(c.jobs); i++ {
		c.mu.Lock()
		if c.jobs[i].Status != StatusPending {
			c.mu.Unlock()
			continue
		}
		err := c.jobs[i].setStatus(StatusCancelled)
		c.mu.Unlock()
		if err != nil {
			return err
		}
		skipped++
		c.observer.FileStatusChanged(i, StatusCancelled)
	}
	c.log("cancel requested, %d file(s) skipped", skipped)
	return nil
}

func (c *Controller) emitTotal(i int) {
	c.mu.Lock()
	processed := c.processedBytes
	c.mu.Unlock()

	n := len(c.jobs)
	c.observer.TotalProgress(BytesPercent(processed, c.totalBytes, i+1, n), FilesPercent(i+1, n))
}

func (c *Controller) interrupted(ctx context.Context) bool {
	if ctx.Err() != nil {
		c.cancelRequested.Store(true)
	}
	return c.cancelRequested.Load()
}

func (c *Controller) log(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	c.logger.Info("%s", msg)
	c.observer.LogLine(msg)
}

func (c *Controller) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

func (c *Controller) summary(start time.Time) Summary {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Summary{
		Jobs:           append([]Job(nil), c.jobs...),
		State:          c.state,
		TotalBytes:     c.totalBytes,
		ProcessedBytes: c.processedBytes,
		Elapsed:        time.Since(start),
	}
	for _, j := range c.jobs {
		switch j.Status {
		case StatusDone:
			s.Done++
		case StatusFailed:
			s.Failed++
		case StatusCancelled:
			s.Cancelled++
		}
	}
	return s
}

// Snapshot returns a copy of the current state
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{
		State:          c.state,
		Jobs:           append([]Job(nil), c.jobs...),
		TotalBytes:     c.totalBytes,
		ProcessedBytes: c.processedBytes,
		CurrentIndex:   c.current,
	}
}

// Cancelled reports whether a cancel was requested
func (c *Controller) Cancelled() bool {
	return c.cancelRequested.Load()
}
