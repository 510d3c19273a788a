// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// VFRConvert - FFmpeg mpdecimate 批量转换工具
//
// Package process wraps exec.Cmd for running a single FFmpeg/FFprobe
// invocation and reading its output line by line.

package process

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"iter"
	"os"
	"os/exec"
	"runtime"
	"sync"
	"sync/atomic"
	"time"
	"unicode/utf8"
)

const defaultKillDelay = 5 * time.Second

// Process is a single-shot external process
type Process interface {
	// Start spawns the process. A failure to launch is a *SpawnError.
	Start() error
	// Lines yields the selected output stream line by line until it is
	// closed. It can be consumed only once.
	Lines() iter.Seq[string]
	// Wait blocks until the process exits and returns its exit code.
	// A process killed by a signal reports -1.
	Wait() (int, error)
	// Terminate asks the process to stop. Safe to call more than once and
	// from any goroutine.
	Terminate() error
	Status() Status
	IsRunning() bool
}

// Stream selects which output of the process Lines reads
type Stream int

const (
	StreamStderr Stream = iota
	StreamStdout
)

// Config for a process
type Config struct {
	Binary        string
	Args          []string
	Stream        Stream
	Parser        Parser
	Monitor       Monitor
	KillDelay     time.Duration
	OnStateChange func(from, to string)
	Logger        Logger
}

// Status of a process
type Status struct {
	State    string
	States   States
	Duration time.Duration
	Time     time.Time
	Pid      int
	CPU      struct {
		Current float64
	}
	Memory struct {
		Current uint64
	}
}

// States cumulative counts
type States struct {
	Finished  uint64
	Starting  uint64
	Running   uint64
	Finishing uint64
	Failed    uint64
	Killed    uint64
}

// Logger interface
type Logger interface {
	Info(format string, args ...interface{})
	Error(format string, args ...interface{})
	Debug(format string, args ...interface{})
}

type stateType string

const (
	stateFinished  stateType = "finished"
	stateStarting  stateType = "starting"
	stateRunning   stateType = "running"
	stateFinishing stateType = "finishing"
	stateFailed    stateType = "failed"
	stateKilled    stateType = "killed"
)

func (s stateType) String() string { return string(s) }

func (s stateType) IsRunning() bool {
	return s == stateStarting || s == stateRunning || s == stateFinishing
}

type process struct {
	binary string
	args   []string
	stream Stream

	cmd  *exec.Cmd
	pipe io.ReadCloser
	pid  int
	lock sync.Mutex

	state struct {
		state  stateType
		time   time.Time
		states States
		lock   sync.Mutex
	}

	consumed    atomic.Bool
	terminating atomic.Bool

	wait struct {
		once sync.Once
		code int
		err  error
	}

	killDelay     time.Duration
	killTimer     *time.Timer
	killTimerLock sync.Mutex

	parser        Parser
	monitor       Monitor
	logger        Logger
	onStateChange func(from, to string)
}

// New creates a new process
func New(config Config) (Process, error) {
	if len(config.Binary) == 0 {
		return nil, ErrNoBinary
	}

	p := &process{
		binary:        config.Binary,
		args:          config.Args,
		stream:        config.Stream,
		parser:        config.Parser,
		monitor:       config.Monitor,
		logger:        config.Logger,
		killDelay:     config.KillDelay,
		onStateChange: config.OnStateChange,
	}

	if p.parser == nil {
		p.parser = &nullParser{}
	}
	if p.monitor == nil {
		p.monitor = NewNullMonitor()
	}
	if p.logger == nil {
		p.logger = &nopLogger{}
	}
	if p.killDelay <= 0 {
		p.killDelay = defaultKillDelay
	}

	p.state.state = stateFinished
	p.state.time = time.Now()

	return p, nil
}

func (p *process) setState(state stateType) error {
	p.state.lock.Lock()

	prevState := p.state.state
	failed := false

	switch p.state.state {
	case stateFinished:
		if state == stateStarting {
			p.state.states.Starting++
		} else {
			failed = true
		}
	case stateStarting:
		switch state {
		case stateRunning:
			p.state.states.Running++
		case stateFailed:
			p.state.states.Failed++
		default:
			failed = true
		}
	case stateRunning:
		switch state {
		case stateFinished:
			p.state.states.Finished++
		case stateFinishing:
			p.state.states.Finishing++
		case stateFailed:
			p.state.states.Failed++
		case stateKilled:
			p.state.states.Killed++
		default:
			failed = true
		}
	case stateFinishing:
		switch state {
		case stateFinished:
			p.state.states.Finished++
		case stateFailed:
			p.state.states.Failed++
		case stateKilled:
			p.state.states.Killed++
		default:
			failed = true
		}
	default:
		failed = true
	}

	if failed {
		p.state.lock.Unlock()
		return fmt.Errorf("can't change from %s to %s", prevState, state)
	}

	p.state.state = state
	p.state.time = time.Now()
	p.state.lock.Unlock()

	if p.onStateChange != nil {
		p.onStateChange(prevState.String(), state.String())
	}
	return nil
}

func (p *process) getState() stateType {
	p.state.lock.Lock()
	defer p.state.lock.Unlock()
	return p.state.state
}

func (p *process) IsRunning() bool {
	return p.getState().IsRunning()
}

func (p *process) Status() Status {
	cpu, memory := p.monitor.Current()

	p.state.lock.Lock()
	stateTime := p.state.time
	stateString := p.state.state.String()
	states := p.state.states
	p.state.lock.Unlock()

	p.lock.Lock()
	pid := p.pid
	p.lock.Unlock()

	s := Status{
		State:    stateString,
		States:   states,
		Duration: time.Since(stateTime),
		Time:     stateTime,
		Pid:      pid,
	}
	s.CPU.Current = cpu
	s.Memory.Current = memory
	return s
}

func (p *process) Start() error {
	p.lock.Lock()
	defer p.lock.Unlock()

	if p.cmd != nil {
		return ErrAlreadyStarted
	}

	if err := p.setState(stateStarting); err != nil {
		return err
	}

	cmd := exec.Command(p.binary, p.args...)

	var pipe io.ReadCloser
	var err error
	if p.stream == StreamStdout {
		pipe, err = cmd.StdoutPipe()
	} else {
		pipe, err = cmd.StderrPipe()
	}
	if err != nil {
		p.setState(stateFailed)
		return &SpawnError{Binary: p.binary, Err: err}
	}

	if err := cmd.Start(); err != nil {
		p.setState(stateFailed)
		p.parser.Parse(err.Error())
		return &SpawnError{Binary: p.binary, Err: err}
	}

	p.cmd = cmd
	p.pipe = pipe
	p.pid = cmd.Process.Pid

	if err := p.monitor.Start(p.pid); err != nil {
		p.logger.Debug("monitor pid %d: %v", p.pid, err)
	}

	p.setState(stateRunning)
	p.logger.Debug("started %s (pid %d)", p.binary, p.pid)

	return nil
}

func (p *process) Lines() iter.Seq[string] {
	return func(yield func(string) bool) {
		p.lock.Lock()
		pipe := p.pipe
		p.lock.Unlock()
		if pipe == nil {
			return
		}
		if !p.consumed.CompareAndSwap(false, true) {
			return
		}

		p.parser.ResetStats()
		p.parser.ResetLog()

		scanner := bufio.NewScanner(pipe)
		scanner.Buffer(make([]byte, 64*1024), 1024*1024)
		scanner.Split(scanLine)

		// keep the pipe drained so the child never blocks on a full buffer
		eof := false
		defer func() {
			if !eof {
				go io.Copy(io.Discard, pipe)
			}
		}()

		for scanner.Scan() {
			line := scanner.Text()
			p.parser.Parse(line)
			if !yield(line) {
				return
			}
		}
		if err := scanner.Err(); err != nil {
			p.logger.Error("read %s output: %v", p.binary, err)
			return
		}
		eof = true
	}
}

func (p *process) Wait() (int, error) {
	p.wait.once.Do(p.waiter)
	return p.wait.code, p.wait.err
}

func (p *process) waiter() {
	p.lock.Lock()
	cmd := p.cmd
	pipe := p.pipe
	p.lock.Unlock()

	if cmd == nil {
		p.wait.code = -1
		p.wait.err = ErrNotStarted
		return
	}

	// Nobody read the stream; drain it before Wait closes the pipe.
	if p.consumed.CompareAndSwap(false, true) {
		io.Copy(io.Discard, pipe)
	}

	err := cmd.Wait()
	switch {
	case err == nil:
		p.wait.code = 0
		p.setState(stateFinished)
	default:
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			p.wait.code = exitErr.ExitCode()
			if p.wait.code >= 0 && !p.terminating.Load() {
				p.setState(stateFailed)
			} else {
				p.setState(stateKilled)
			}
		} else {
			p.wait.code = -1
			p.wait.err = err
			p.setState(stateFailed)
		}
	}

	p.monitor.Stop()

	p.killTimerLock.Lock()
	if p.killTimer != nil {
		p.killTimer.Stop()
		p.killTimer = nil
	}
	p.killTimerLock.Unlock()

	p.logger.Debug("%s (pid %d) exited with code %d", p.binary, cmd.Process.Pid, p.wait.code)
}

func (p *process) Terminate() error {
	p.lock.Lock()
	cmd := p.cmd
	p.lock.Unlock()

	if cmd == nil || !p.IsRunning() {
		return nil
	}
	if !p.terminating.CompareAndSwap(false, true) {
		return nil
	}

	p.setState(stateFinishing)

	var err error
	if runtime.GOOS == "windows" {
		err = cmd.Process.Kill()
	} else {
		err = cmd.Process.Signal(os.Interrupt)
		if err != nil {
			err = cmd.Process.Kill()
		} else {
			p.killTimerLock.Lock()
			p.killTimer = time.AfterFunc(p.killDelay, func() {
				cmd.Process.Kill()
			})
			p.killTimerLock.Unlock()
		}
	}

	if err != nil && !errors.Is(err, os.ErrProcessDone) {
		p.logger.Error("terminate %s (pid %d): %v", p.binary, cmd.Process.Pid, err)
		return err
	}
	return nil
}

// scanLine splits on \n and \r; FFmpeg rewrites its stats line with \r.
func scanLine(data []byte, atEOF bool) (advance int, token []byte, err error) {
	start := 0
	for start < len(data) {
		r, w := utf8.DecodeRune(data[start:])
		if r != '\n' && r != '\r' {
			break
		}
		start += w
	}

	for i := start; i < len(data); {
		r, w := utf8.DecodeRune(data[i:])
		if r == '\n' || r == '\r' {
			return i + w, data[start:i], nil
		}
		i += w
	}

	if atEOF && len(data) > start {
		return len(data), data[start:], nil
	}
	return start, nil, nil
}

type nopLogger struct{}

func (l *nopLogger) Info(format string, args ...interface{})  {}
func (l *nopLogger) Error(format string, args ...interface{}) {}
func (l *nopLogger) Debug(format string, args ...interface{}) {}
