// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// VFRConvert - FFmpeg mpdecimate 批量转换工具

package batch

import "errors"

var (
	ErrNotFound       = errors.New("batch not found")
	ErrBusy           = errors.New("another batch is running")
	ErrRunning        = errors.New("batch is running")
	ErrAlreadyStarted = errors.New("batch already started")
	ErrNoInputs       = errors.New("need at least one input")
	ErrInvalidInput   = errors.New("input path not allowed")
	ErrInputNotFound  = errors.New("input file not found")
	ErrOutputExists   = errors.New("output file already exists")
	ErrOutputStat     = errors.New("can't stat output file")
	ErrTransition     = errors.New("invalid job status transition")
	ErrUnknownPolicy  = errors.New("unknown collision policy")
)
