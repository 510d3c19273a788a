// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// VFRConvert - FFmpeg mpdecimate 批量转换工具

package parse

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

var reTimestamp = regexp.MustCompile(`^([0-9]+):([0-9]{1,2}):([0-9]{1,2}(?:\.[0-9]+)?)$`)

// FormatError reports a timestamp that is not H:MM:SS.ss
type FormatError struct {
	Text string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("invalid timestamp %q", e.Text)
}

// ParseTimestamp converts an FFmpeg timestamp (H:MM:SS.ss) to seconds
func ParseTimestamp(text string) (float64, error) {
	m := reTimestamp.FindStringSubmatch(strings.TrimSpace(text))
	if m == nil {
		return 0, &FormatError{Text: text}
	}
	h, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, &FormatError{Text: text}
	}
	mm, _ := strconv.ParseFloat(m[2], 64)
	s, _ := strconv.ParseFloat(m[3], 64)
	return h*3600 + mm*60 + s, nil
}

// FormatTimestamp renders seconds as HH:MM:SS.ss
func FormatTimestamp(seconds float64) string {
	if seconds < 0 || math.IsNaN(seconds) {
		seconds = 0
	}
	cs := int64(math.Round(seconds * 100))
	h := cs / 360000
	cs -= h * 360000
	m := cs / 6000
	cs -= m * 6000
	return fmt.Sprintf("%02d:%02d:%02d.%02d", h, m, cs/100, cs%100)
}
