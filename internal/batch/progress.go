// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// VFRConvert - FFmpeg mpdecimate 批量转换工具

package batch

import "time"

// CompressionRatio returns how much smaller the output is, in percent of the
// input size. An empty input yields 0.
func CompressionRatio(size, newSize int64) float64 {
	if size <= 0 {
		return 0
	}
	return float64(size-newSize) / float64(size) * 100
}

// FilesPercent is the share of finished files
func FilesPercent(finished, total int) int {
	if total <= 0 {
		return 0
	}
	return finished * 100 / total
}

// BytesPercent is the byte weighted share of finished work. Batches without
// any bytes fall back to the file count.
func BytesPercent(processed, total int64, finished, files int) int {
	if total <= 0 {
		return FilesPercent(finished, files)
	}
	return int(processed * 100 / total)
}

// EstimateRemaining extrapolates the time left for the current file from
// the wall clock time spent so far
func EstimateRemaining(elapsed time.Duration, percent int) (time.Duration, bool) {
	if percent <= 0 {
		return 0, false
	}
	if percent >= 100 {
		return 0, true
	}
	return elapsed * time.Duration(100-percent) / time.Duration(percent), true
}
