// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// VFRConvert - FFmpeg mpdecimate 批量转换工具

package api

import (
	"github.com/ZSC714725/vfrconvert/internal/ffmpeg"
	"github.com/ZSC714725/vfrconvert/internal/ffmpeg/skills"
)

// SkillsResponse for API
type SkillsResponse struct {
	FFmpeg struct {
		Version       string          `json:"version"`
		Compiler      string          `json:"compiler"`
		Configuration string          `json:"configuration"`
		Libraries     []SkillsLibrary `json:"libraries"`
	} `json:"ffmpeg"`

	Decimate bool          `json:"mpdecimate"`
	Filters  []SkillsEntry `json:"filter"`
}

// SkillsLibrary is a linked av library
type SkillsLibrary struct {
	Name     string `json:"name"`
	Compiled string `json:"compiled"`
	Linked   string `json:"linked"`
}

// SkillsEntry is an ffmpeg filter
type SkillsEntry struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	IO       string `json:"io"`
	Timeline bool   `json:"timeline"`
}

func skillsToAPI(s skills.Skills) SkillsResponse {
	resp := SkillsResponse{}

	resp.FFmpeg.Version = s.FFmpeg.Version
	resp.FFmpeg.Compiler = s.FFmpeg.Compiler
	resp.FFmpeg.Configuration = s.FFmpeg.Configuration
	resp.FFmpeg.Libraries = make([]SkillsLibrary, len(s.FFmpeg.Libraries))
	for i, lib := range s.FFmpeg.Libraries {
		resp.FFmpeg.Libraries[i] = SkillsLibrary{Name: lib.Name, Compiled: lib.Compiled, Linked: lib.Linked}
	}

	resp.Decimate = s.HasFilter(ffmpeg.DecimateFilter)
	resp.Filters = make([]SkillsEntry, len(s.Filters))
	for i, f := range s.Filters {
		resp.Filters[i] = SkillsEntry{ID: f.Id, Name: f.Name, IO: f.IO, Timeline: f.Timeline}
	}

	return resp
}
