// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// VFRConvert - FFmpeg mpdecimate 批量转换工具

package parse

import (
	"container/ring"
	"math"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ZSC714725/vfrconvert/internal/process"
)

// Sample is the progress of the current file derived from one stats line
type Sample struct {
	Percent int     `json:"percent"`
	Elapsed float64 `json:"elapsed_seconds"`
}

// Stats holds the most recent FFmpeg stats line values
type Stats struct {
	Frame uint64  `json:"frame"`
	FPS   float64 `json:"fps"`
	Size  uint64  `json:"size_bytes"`
	Time  float64 `json:"time_seconds"`
	Speed float64 `json:"speed"`
	Drop  uint64  `json:"drop"`
	Dup   uint64  `json:"dup"`
}

// Parser implements process.Parser and turns FFmpeg stderr into progress
type Parser interface {
	process.Parser
	// Feed inspects one diagnostic line. The first "Duration:" line sets the
	// media duration; later "time=" lines produce a Sample.
	Feed(line string) (Sample, bool)
	Duration() (float64, bool)
	Stats() Stats
}

// Config for the parser
type Config struct {
	LogLines int
	// Clamp limits Percent to [0,100]. FFmpeg's reported duration can be
	// shorter than the real stream, which makes progress overshoot.
	Clamp bool
}

var (
	reDuration = regexp.MustCompile(`Duration: ([0-9]+:[0-9]{2}:[0-9]{2}\.[0-9]+)`)
	reTime     = regexp.MustCompile(`time=\s*([0-9]+:[0-9]{2}:[0-9]{2}\.[0-9]+)`)
	reFrame    = regexp.MustCompile(`frame=\s*([0-9]+)`)
	reFPS      = regexp.MustCompile(`fps=\s*([0-9\.]+)`)
	reSize     = regexp.MustCompile(`size=\s*([0-9]+)(?:kB|KiB)`)
	reSpeed    = regexp.MustCompile(`speed=\s*([0-9\.]+)x`)
	reDrop     = regexp.MustCompile(`drop=\s*([0-9]+)`)
	reDup      = regexp.MustCompile(`dup=\s*([0-9]+)`)
)

type parser struct {
	clamp bool

	duration    float64
	hasDuration bool
	stats       Stats

	log      *ring.Ring
	logLines int

	lock sync.RWMutex
}

// New creates a Parser
func New(config Config) Parser {
	p := &parser{
		clamp:    config.Clamp,
		logLines: config.LogLines,
	}
	if p.logLines <= 0 {
		p.logLines = 100
	}
	p.log = ring.New(p.logLines)
	return p
}

func (p *parser) Feed(line string) (Sample, bool) {
	p.lock.Lock()
	defer p.lock.Unlock()

	if !p.hasDuration {
		if m := reDuration.FindStringSubmatch(line); m != nil {
			if d, err := ParseTimestamp(m[1]); err == nil {
				p.duration = d
				p.hasDuration = true
			}
		}
		return Sample{}, false
	}

	m := reTime.FindStringSubmatch(line)
	if m == nil || p.duration <= 0 {
		return Sample{}, false
	}
	elapsed, err := ParseTimestamp(m[1])
	if err != nil {
		return Sample{}, false
	}

	percent := int(math.Floor(elapsed / p.duration * 100))
	if p.clamp {
		percent = min(max(percent, 0), 100)
	}

	return Sample{Percent: percent, Elapsed: elapsed}, true
}

func (p *parser) Duration() (float64, bool) {
	p.lock.RLock()
	defer p.lock.RUnlock()
	return p.duration, p.hasDuration
}

func (p *parser) Stats() Stats {
	p.lock.RLock()
	defer p.lock.RUnlock()
	return p.stats
}

// Parse records the line in the log and updates Stats from stats lines
func (p *parser) Parse(line string) uint64 {
	now := time.Now()

	p.lock.Lock()
	defer p.lock.Unlock()

	p.log.Value = process.Line{Timestamp: now, Data: line}
	p.log = p.log.Next()

	if !strings.Contains(line, "frame=") {
		return 0
	}

	if m := reFrame.FindStringSubmatch(line); m != nil {
		if x, err := strconv.ParseUint(m[1], 10, 64); err == nil {
			p.stats.Frame = x
		}
	}
	if m := reFPS.FindStringSubmatch(line); m != nil {
		if x, err := strconv.ParseFloat(m[1], 64); err == nil {
			p.stats.FPS = x
		}
	}
	if m := reSize.FindStringSubmatch(line); m != nil {
		if x, err := strconv.ParseUint(m[1], 10, 64); err == nil {
			p.stats.Size = x * 1024
		}
	}
	if m := reTime.FindStringSubmatch(line); m != nil {
		if x, err := ParseTimestamp(m[1]); err == nil {
			p.stats.Time = x
		}
	}
	if m := reSpeed.FindStringSubmatch(line); m != nil {
		if x, err := strconv.ParseFloat(m[1], 64); err == nil {
			p.stats.Speed = x
		}
	}
	if m := reDrop.FindStringSubmatch(line); m != nil {
		if x, err := strconv.ParseUint(m[1], 10, 64); err == nil {
			p.stats.Drop = x
		}
	}
	if m := reDup.FindStringSubmatch(line); m != nil {
		if x, err := strconv.ParseUint(m[1], 10, 64); err == nil {
			p.stats.Dup = x
		}
	}

	return p.stats.Frame
}

func (p *parser) ResetStats() {
	p.lock.Lock()
	defer p.lock.Unlock()
	p.stats = Stats{}
}

func (p *parser) ResetLog() {
	p.lock.Lock()
	defer p.lock.Unlock()
	p.log = ring.New(p.logLines)
}

func (p *parser) Log() []process.Line {
	var out []process.Line
	p.lock.RLock()
	p.log.Do(func(v interface{}) {
		if v != nil {
			out = append(out, v.(process.Line))
		}
	})
	p.lock.RUnlock()
	return out
}

// Tail returns the data of the last n logged lines, oldest first
func Tail(p process.Parser, n int) []string {
	lines := p.Log()
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		out = append(out, l.Data)
	}
	return out
}
