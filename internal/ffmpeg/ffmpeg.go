// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// VFRConvert - FFmpeg mpdecimate 批量转换工具

package ffmpeg

import (
	"errors"
	"fmt"
	"os/exec"
	"sync"

	"github.com/ZSC714725/vfrconvert/internal/ffmpeg/parse"
	"github.com/ZSC714725/vfrconvert/internal/ffmpeg/skills"
	"github.com/ZSC714725/vfrconvert/internal/logger"
	"github.com/ZSC714725/vfrconvert/internal/process"
)

// DecimateFilter is the filter every conversion runs through
const DecimateFilter = "mpdecimate"

var (
	ErrNoDecimate = errors.New("ffmpeg has no " + DecimateFilter + " filter")
	ErrNoProbe    = errors.New("no ffprobe binary configured")
)

// FFmpeg manages the FFmpeg and FFprobe binaries and their skills
type FFmpeg interface {
	// New creates an FFmpeg process that reports on stderr
	New(config ProcessConfig) (process.Process, error)
	// NewProbe creates an FFprobe process whose answer is read from stdout
	NewProbe(config ProcessConfig) (process.Process, error)
	NewParser() parse.Parser
	DecimateCommand(input, output string) []string
	CountFramesCommand(path string) []string
	ValidateInput(path string) bool
	Skills() skills.Skills
	ReloadSkills() error
}

// ProcessConfig for creating a process
type ProcessConfig struct {
	Command       []string
	Parser        process.Parser
	Logger        logger.Logger
	OnStateChange func(from, to string)
}

// Config for FFmpeg
type Config struct {
	Binary      string
	ProbeBinary string
	// Options are extra output options placed before the output path
	Options        []string
	MaxLogLines    int
	Clamp          bool
	ValidatorInput Validator
	Logger         logger.Logger
}

type ffmpeg struct {
	binary      string
	probeBinary string
	options     []string
	logLines    int
	clamp       bool
	validatorIn Validator

	skills     skills.Skills
	skillsLock sync.RWMutex
}

// New creates FFmpeg. The binary must provide the mpdecimate filter.
func New(config Config) (FFmpeg, error) {
	binary, err := exec.LookPath(config.Binary)
	if err != nil {
		return nil, fmt.Errorf("invalid ffmpeg binary: %w", err)
	}

	f := &ffmpeg{
		binary:   binary,
		options:  append([]string(nil), config.Options...),
		logLines: config.MaxLogLines,
		clamp:    config.Clamp,
	}

	// ffprobe 只用于帧数比对, 找不到时降级为不比对
	if len(config.ProbeBinary) != 0 {
		probe, err := exec.LookPath(config.ProbeBinary)
		if err != nil {
			log := config.Logger
			if log == nil {
				log = logger.Nop()
			}
			log.Warn("ffprobe unavailable, frame audit disabled: %v", err)
		} else {
			f.probeBinary = probe
		}
	}

	if f.logLines <= 0 {
		f.logLines = 100
	}

	if config.ValidatorInput != nil {
		f.validatorIn = config.ValidatorInput
	} else {
		f.validatorIn, _ = NewValidator(nil, nil)
	}

	if err := f.ReloadSkills(); err != nil {
		return nil, fmt.Errorf("invalid ffmpeg: %w", err)
	}

	return f, nil
}

func (f *ffmpeg) New(config ProcessConfig) (process.Process, error) {
	return process.New(process.Config{
		Binary:        f.binary,
		Args:          config.Command,
		Stream:        process.StreamStderr,
		Parser:        config.Parser,
		Monitor:       process.NewSysMonitor(),
		Logger:        config.Logger,
		OnStateChange: config.OnStateChange,
	})
}

func (f *ffmpeg) NewProbe(config ProcessConfig) (process.Process, error) {
	if len(f.probeBinary) == 0 {
		return nil, ErrNoProbe
	}
	return process.New(process.Config{
		Binary:        f.probeBinary,
		Args:          config.Command,
		Stream:        process.StreamStdout,
		Parser:        config.Parser,
		Logger:        config.Logger,
		OnStateChange: config.OnStateChange,
	})
}

func (f *ffmpeg) NewParser() parse.Parser {
	return parse.New(parse.Config{LogLines: f.logLines, Clamp: f.clamp})
}

// DecimateCommand drops near-duplicate frames and writes variable frame rate output
func (f *ffmpeg) DecimateCommand(input, output string) []string {
	args := []string{"-i", input, "-vf", DecimateFilter, "-vsync", "vfr"}
	args = append(args, f.options...)
	return append(args, "-y", output)
}

// CountFramesCommand decodes the first video stream and prints its frame count
func (f *ffmpeg) CountFramesCommand(path string) []string {
	return []string{
		"-v", "error",
		"-select_streams", "v:0",
		"-count_frames",
		"-show_entries", "stream=nb_read_frames",
		"-of", "default=nokey=1:noprint_wrappers=1",
		path,
	}
}

func (f *ffmpeg) ValidateInput(path string) bool {
	return f.validatorIn.IsValid(path)
}

func (f *ffmpeg) Skills() skills.Skills {
	f.skillsLock.RLock()
	defer f.skillsLock.RUnlock()
	return f.skills
}

func (f *ffmpeg) ReloadSkills() error {
	s, err := skills.New(f.binary)
	if err != nil {
		return fmt.Errorf("reload skills: %w", err)
	}
	if f, ok := s.Filter(DecimateFilter); !ok || !f.Video() {
		return ErrNoDecimate
	}
	f.skillsLock.Lock()
	f.skills = s
	f.skillsLock.Unlock()
	return nil
}
