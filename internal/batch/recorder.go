// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// VFRConvert - FFmpeg mpdecimate 批量转换工具

package batch

import (
	"container/ring"
	"sync"
	"time"
)

// Progress is the live view of a batch kept by a Recorder
type Progress struct {
	State        State    `json:"state"`
	CurrentIndex int      `json:"current_index"`
	CurrentFile  string   `json:"current_file"`
	Remaining    int      `json:"remaining"`
	FilePercent  int      `json:"file_percent"`
	FileElapsed  float64  `json:"file_elapsed_seconds"`
	BytesPercent int      `json:"bytes_percent"`
	FilesPercent int      `json:"files_percent"`
	ETA          float64  `json:"eta_seconds"`
	HasETA       bool     `json:"has_eta"`
	Error        string   `json:"error,omitempty"`
	UpdatedAt    int64    `json:"updated_at"`
	Summary      *Summary `json:"summary,omitempty"`
}

// LogEntry is a recorded log line
type LogEntry struct {
	Time time.Time `json:"time"`
	Text string    `json:"text"`
}

// Recorder is an Observer that keeps the latest progress and recent log
// lines for concurrent readers
type Recorder struct {
	NopObserver

	lock      sync.RWMutex
	progress  Progress
	fileStart time.Time
	log       *ring.Ring
	now       func() time.Time
}

// NewRecorder creates a Recorder keeping up to logLines log lines
func NewRecorder(logLines int) *Recorder {
	if logLines <= 0 {
		logLines = 100
	}
	return &Recorder{
		progress: Progress{State: StateIdle, CurrentIndex: -1},
		log:      ring.New(logLines),
		now:      time.Now,
	}
}

func (r *Recorder) LogLine(text string) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.log.Value = LogEntry{Time: r.now(), Text: text}
	r.log = r.log.Next()
}

func (r *Recorder) FileStatusChanged(index int, status Status) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.touch()
}

func (r *Recorder) CurrentFileChanged(index int, path string) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.progress.State = StateRunning
	r.progress.CurrentIndex = index
	r.progress.CurrentFile = path
	r.progress.FilePercent = 0
	r.progress.FileElapsed = 0
	r.progress.HasETA = false
	r.progress.ETA = 0
	r.fileStart = r.now()
	r.touch()
}

func (r *Recorder) RemainingCountChanged(remaining int) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.progress.Remaining = remaining
	r.touch()
}

func (r *Recorder) CurrentFileProgress(index int, percent int, elapsed float64) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.progress.FilePercent = percent
	r.progress.FileElapsed = elapsed
	eta, ok := EstimateRemaining(r.now().Sub(r.fileStart), percent)
	r.progress.ETA = eta.Seconds()
	r.progress.HasETA = ok
	r.touch()
}

func (r *Recorder) TotalProgress(bytesPercent, filesPercent int) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.progress.BytesPercent = bytesPercent
	r.progress.FilesPercent = filesPercent
	r.touch()
}

func (r *Recorder) BatchCompleted(summary Summary) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.progress.State = summary.State
	r.progress.Summary = &summary
	r.progress.HasETA = false
	r.touch()
}

func (r *Recorder) BatchFailed(err error) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.progress.State = StateFailed
	r.progress.Error = err.Error()
	r.touch()
}

func (r *Recorder) touch() {
	r.progress.UpdatedAt = r.now().Unix()
}

// Progress returns the latest progress
func (r *Recorder) Progress() Progress {
	r.lock.RLock()
	defer r.lock.RUnlock()
	return r.progress
}

// Log returns the recorded log lines, oldest first
func (r *Recorder) Log() []LogEntry {
	var out []LogEntry
	r.lock.RLock()
	r.log.Do(func(v interface{}) {
		if v != nil {
			out = append(out, v.(LogEntry))
		}
	})
	r.lock.RUnlock()
	return out
}
