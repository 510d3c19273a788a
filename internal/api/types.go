// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// VFRConvert - FFmpeg mpdecimate 批量转换工具

package api

// BatchRequest for Add
type BatchRequest struct {
	Inputs    []string `json:"inputs" binding:"required"`
	Autostart bool     `json:"autostart"`
}

// Batch represents a batch in API response
type Batch struct {
	ID        string       `json:"id"`
	CreatedAt int64        `json:"created_at"`
	Config    *BatchConfig `json:"config,omitempty"`
	State     *BatchState  `json:"state,omitempty"`
	Report    *BatchReport `json:"report,omitempty"`
}

// BatchConfig lists the planned conversions
type BatchConfig struct {
	Inputs []BatchIO `json:"inputs"`
}

// BatchIO is one input file and its output path
type BatchIO struct {
	Input     string `json:"input"`
	Output    string `json:"output"`
	SizeBytes int64  `json:"size_bytes"`
}

// BatchState for API
type BatchState struct {
	State          string   `json:"exec"`
	CurrentIndex   int      `json:"current_index"`
	CurrentFile    string   `json:"current_file"`
	Remaining      int      `json:"remaining"`
	Progress       Progress `json:"progress"`
	TotalBytes     int64    `json:"total_bytes"`
	ProcessedBytes int64    `json:"processed_bytes"`
	Error          string   `json:"error,omitempty"`
	Jobs           []Job    `json:"jobs"`
	Process        *Process `json:"process,omitempty"`
}

// Progress of the current file and of the whole batch
type Progress struct {
	File        int      `json:"file_percent"`
	FileElapsed float64  `json:"file_elapsed_seconds"`
	Bytes       int      `json:"bytes_percent"`
	Files       int      `json:"files_percent"`
	ETA         *float64 `json:"eta_seconds"`
}

// Process is the running ffmpeg of a batch
type Process struct {
	State   string  `json:"exec"`
	Pid     int     `json:"pid"`
	Runtime int64   `json:"runtime_seconds"`
	Memory  uint64  `json:"memory_bytes"`
	CPU     float64 `json:"cpu_usage"`
}

// Job for API
type Job struct {
	Index            int      `json:"index"`
	Input            string   `json:"input"`
	Output           string   `json:"output"`
	Status           string   `json:"status"`
	SizeBytes        int64    `json:"size_bytes"`
	NewSizeBytes     int64    `json:"new_size_bytes"`
	CompressionRatio float64  `json:"compression_ratio"`
	Frames           *Frames  `json:"frames,omitempty"`
	Error            string   `json:"error,omitempty"`
	Detail           string   `json:"detail,omitempty"`
	Runtime          *float64 `json:"runtime_seconds,omitempty"`
}

// Frames is the frame comparison of a converted file
type Frames struct {
	Input            int64   `json:"input"`
	Output           int64   `json:"output"`
	Reduced          int64   `json:"reduced"`
	ReductionPercent float64 `json:"reduction_percent"`
}

// BatchReport for logs
type BatchReport struct {
	CreatedAt int64       `json:"created_at"`
	Log       [][2]string `json:"log"`
}

// CommandRequest for start/cancel
type CommandRequest struct {
	Command string `json:"command" binding:"required"`
}

// ErrorResponse for API errors
type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}
