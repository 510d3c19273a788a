// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// VFRConvert - FFmpeg mpdecimate 批量转换工具

package skills

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"os/exec"
	"regexp"
	"strings"
)

// ErrNoVersion is returned when `ffmpeg -version` can't be understood
var ErrNoVersion = errors.New("can't parse ffmpeg version")

// Filter is one entry of `ffmpeg -filters`
type Filter struct {
	Id   string
	Name string
	// IO is the pad layout, e.g. "V->V" for a video filter
	IO       string
	Timeline bool
	Slice    bool
	Command  bool
}

// Video reports whether the filter takes and produces video
func (f Filter) Video() bool {
	return f.IO == "V->V"
}

// Library represents a linked av library
type Library struct {
	Name     string
	Compiled string
	Linked   string
}

type ffmpegInfo struct {
	Version       string
	Compiler      string
	Configuration string
	Libraries     []Library
}

// Skills are the detected capabilities of FFmpeg
type Skills struct {
	FFmpeg  ffmpegInfo
	Filters []Filter
}

// Filter looks up a filter by id
func (s Skills) Filter(id string) (Filter, bool) {
	for _, f := range s.Filters {
		if f.Id == id {
			return f, true
		}
	}
	return Filter{}, false
}

// HasFilter reports whether the filter with the given id is available
func (s Skills) HasFilter(id string) bool {
	_, ok := s.Filter(id)
	return ok
}

// New runs binary to find its version and filters
func New(binary string) (Skills, error) {
	out, err := exec.Command(binary, "-version").CombinedOutput()
	if err != nil {
		return Skills{}, fmt.Errorf("%w: %w", ErrNoVersion, err)
	}
	info := parseVersion(out)
	if info.Version == "" {
		return Skills{}, ErrNoVersion
	}

	// 旧版本可能不支持 -hide_banner, 输出不可用时 Filters 为空
	filters, _ := exec.Command(binary, "-hide_banner", "-filters").Output()

	return Skills{FFmpeg: info, Filters: parseFilters(filters)}, nil
}

var (
	reVersion = regexp.MustCompile(`^ffmpeg version n?([0-9]+\.[0-9]+(\.[0-9]+)?)`)
	reLibrary = regexp.MustCompile(`^(lib[a-z]+)\s+([0-9]+\.\s*[0-9]+\.\s*[0-9]+) /\s+([0-9]+\.\s*[0-9]+\.\s*[0-9]+)`)
	reFilter  = regexp.MustCompile(`^ ([T.])([S.])([C.]) ([0-9A-Za-z_]+)\s+(\S+)\s+(.*)$`)
)

func parseVersion(data []byte) ffmpegInfo {
	info := ffmpegInfo{}

	if m := reVersion.FindSubmatch(data); m != nil {
		info.Version = string(m[1])
		if len(m[2]) == 0 {
			info.Version += ".0"
		}
	}

	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case strings.HasPrefix(line, "built with "):
			info.Compiler = strings.TrimPrefix(line, "built with ")
		case strings.HasPrefix(line, "configuration: "):
			info.Configuration = strings.TrimPrefix(line, "configuration: ")
		default:
			if m := reLibrary.FindStringSubmatch(line); m != nil {
				info.Libraries = append(info.Libraries, Library{Name: m[1], Compiled: m[2], Linked: m[3]})
			}
		}
	}
	return info
}

func parseFilters(data []byte) []Filter {
	var filters []Filter
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		m := reFilter.FindStringSubmatch(scanner.Text())
		if m == nil {
			continue
		}
		filters = append(filters, Filter{
			Id:       m[4],
			Name:     strings.TrimSpace(m[6]),
			IO:       m[5],
			Timeline: m[1] == "T",
			Slice:    m[2] == "S",
			Command:  m[3] == "C",
		})
	}
	return filters
}
