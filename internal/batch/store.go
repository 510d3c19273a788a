// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// VFRConvert - FFmpeg mpdecimate 批量转换工具

package batch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/ZSC714725/vfrconvert/internal/audit"
	"github.com/ZSC714725/vfrconvert/internal/convert"
	"github.com/ZSC714725/vfrconvert/internal/ffmpeg"
	"github.com/ZSC714725/vfrconvert/internal/logger"
	"github.com/ZSC714725/vfrconvert/internal/process"

	"github.com/lithammer/shortuuid/v4"
)

// Batch is a registered list of conversions
type Batch struct {
	ID        string
	CreatedAt int64
	Inputs    []Input

	controller *Controller
	recorder   *Recorder
	executor   *convert.Executor
	created    time.Time

	lock sync.Mutex
	done <-chan struct{}
}

// Snapshot returns the jobs and byte counters
func (b *Batch) Snapshot() Snapshot {
	return b.controller.Snapshot()
}

// Progress returns the live progress
func (b *Batch) Progress() Progress {
	return b.recorder.Progress()
}

// Process returns the status of the running ffmpeg, if any
func (b *Batch) Process() (process.Status, bool) {
	return b.executor.Status()
}

// Log returns recent log lines of the batch
func (b *Batch) Log() []LogEntry {
	return b.recorder.Log()
}

// Done is closed when a started batch has finished. It is nil before Start.
func (b *Batch) Done() <-chan struct{} {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.done
}

// IsRunning reports whether the batch has been started and not yet finished
func (b *Batch) IsRunning() bool {
	done := b.Done()
	if done == nil {
		return false
	}
	select {
	case <-done:
		return false
	default:
		return true
	}
}

// Store manages batches in memory. At most one batch runs at a time.
type Store interface {
	Add(paths []string, autostart bool) (*Batch, error)
	Get(id string) (*Batch, error)
	List() []*Batch
	Delete(id string) error
	Start(id string) error
	Cancel(id string) error
}

// StoreConfig for a Store
type StoreConfig struct {
	FFmpeg ffmpeg.FFmpeg
	Suffix string
	Policy Policy
	// Audit enables frame counting after each converted file
	Audit    bool
	LogLines int
	// Observer additionally receives the events of every batch
	Observer Observer
	Logger   logger.Logger
}

type store struct {
	config  StoreConfig
	logger  logger.Logger
	batches map[string]*Batch
	mu      sync.RWMutex
}

// NewStore creates a batch store
func NewStore(config StoreConfig) Store {
	s := &store{
		config:  config,
		logger:  config.Logger,
		batches: make(map[string]*Batch),
	}
	if s.logger == nil {
		s.logger = logger.Nop()
	}
	return s
}

// Inputs stats the given paths in order. Missing files and directories are
// rejected, as are paths valid refuses.
func Inputs(paths []string, valid func(path string) bool) ([]Input, error) {
	if len(paths) == 0 {
		return nil, ErrNoInputs
	}

	inputs := make([]Input, 0, len(paths))
	for _, p := range paths {
		p = filepath.Clean(p)
		if valid != nil && !valid(p) {
			return nil, fmt.Errorf("%w: %s", ErrInvalidInput, p)
		}
		fi, err := os.Stat(p)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("%w: %s", ErrInputNotFound, p)
			}
			return nil, err
		}
		if fi.IsDir() {
			return nil, fmt.Errorf("%w: %s is a directory", ErrInvalidInput, p)
		}
		inputs = append(inputs, Input{Path: p, SizeBytes: fi.Size()})
	}
	return inputs, nil
}

func (s *store) Add(paths []string, autostart bool) (*Batch, error) {
	inputs, err := Inputs(paths, s.config.FFmpeg.ValidateInput)
	if err != nil {
		return nil, err
	}

	jobs := NewJobs(inputs, NewResolver(s.config.Suffix, s.config.Policy))

	id := shortuuid.New()
	log := &prefixLogger{logger: s.logger, prefix: "batch " + id + ": "}

	recorder := NewRecorder(s.config.LogLines)
	observer := Observer(recorder)
	if s.config.Observer != nil {
		observer = MultiObserver{recorder, s.config.Observer}
	}

	executor := convert.New(s.config.FFmpeg, log)
	opts := Options{
		Converter: executor,
		Observer:  observer,
		Logger:    log,
	}
	if s.config.Audit {
		opts.Auditor = audit.New(s.config.FFmpeg, log)
	}

	now := time.Now()
	b := &Batch{
		ID:         id,
		CreatedAt:  now.Unix(),
		Inputs:     inputs,
		controller: NewController(jobs, opts),
		recorder:   recorder,
		executor:   executor,
		created:    now,
	}

	s.mu.Lock()
	s.batches[id] = b
	s.mu.Unlock()

	s.logger.Info("batch %s added with %d file(s)", id, len(inputs))

	if autostart {
		if err := s.Start(id); err != nil {
			return b, err
		}
	}

	return b, nil
}

func (s *store) Get(id string) (*Batch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.batches[id]
	if !ok {
		return nil, ErrNotFound
	}
	return b, nil
}

func (s *store) List() []*Batch {
	s.mu.RLock()
	out := make([]*Batch, 0, len(s.batches))
	for _, b := range s.batches {
		out = append(out, b)
	}
	s.mu.RUnlock()

	slices.SortFunc(out, func(a, b *Batch) int {
		if c := a.created.Compare(b.created); c != 0 {
			return c
		}
		if a.ID < b.ID {
			return -1
		}
		if a.ID > b.ID {
			return 1
		}
		return 0
	})
	return out
}

func (s *store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.batches[id]
	if !ok {
		return ErrNotFound
	}
	if b.IsRunning() {
		return ErrRunning
	}
	delete(s.batches, id)
	return nil
}

func (s *store) Start(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.batches[id]
	if !ok {
		return ErrNotFound
	}
	if b.Done() != nil {
		return ErrAlreadyStarted
	}
	for _, other := range s.batches {
		if other.IsRunning() {
			return ErrBusy
		}
	}

	b.lock.Lock()
	b.done = b.controller.Start(context.Background())
	b.lock.Unlock()

	s.logger.Info("batch %s started", id)
	return nil
}

func (s *store) Cancel(id string) error {
	b, err := s.Get(id)
	if err != nil {
		return err
	}
	b.controller.Cancel()
	s.logger.Info("batch %s cancel requested", id)
	return nil
}

type prefixLogger struct {
	logger logger.Logger
	prefix string
}

func (l *prefixLogger) Info(format string, args ...interface{}) {
	l.logger.Info(l.prefix+format, args...)
}

func (l *prefixLogger) Warn(format string, args ...interface{}) {
	l.logger.Warn(l.prefix+format, args...)
}

func (l *prefixLogger) Error(format string, args ...interface{}) {
	l.logger.Error(l.prefix+format, args...)
}

func (l *prefixLogger) Debug(format string, args ...interface{}) {
	l.logger.Debug(l.prefix+format, args...)
}
