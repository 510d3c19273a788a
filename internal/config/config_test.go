// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// VFRConvert - FFmpeg mpdecimate 批量转换工具

package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Bind != ":8080" || cfg.FFmpeg.Path != "ffmpeg" || cfg.FFmpeg.ProbePath != "ffprobe" {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if cfg.Output.Suffix != "_converted" || cfg.Output.Collision != "overwrite" {
		t.Errorf("unexpected output defaults: %+v", cfg.Output)
	}
	if !cfg.ClampProgress() || !cfg.AuditEnabled() {
		t.Errorf("clamp and audit should default to true")
	}
}

func TestLoadBackfillsEmptyValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
server:
  bind: ""
ffmpeg:
  path: /opt/ffmpeg/bin/ffmpeg
  options: ["-c:a", "copy"]
output:
  collision: rename
progress:
  clamp: false
audit:
  enabled: false
log:
  lines: 0
  debug: true
input:
  block: ["_converted\\."]
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Bind != ":8080" {
		t.Errorf("bind = %q", cfg.Server.Bind)
	}
	if cfg.FFmpeg.Path != "/opt/ffmpeg/bin/ffmpeg" || cfg.FFmpeg.ProbePath != "ffprobe" {
		t.Errorf("ffmpeg = %+v", cfg.FFmpeg)
	}
	if len(cfg.FFmpeg.Options) != 2 {
		t.Errorf("options = %v", cfg.FFmpeg.Options)
	}
	if cfg.Output.Suffix != "_converted" || cfg.Output.Collision != "rename" {
		t.Errorf("output = %+v", cfg.Output)
	}
	if cfg.ClampProgress() || cfg.AuditEnabled() {
		t.Errorf("clamp/audit overrides ignored")
	}
	if cfg.Log.Lines != 100 || !cfg.Log.Debug {
		t.Errorf("log = %+v", cfg.Log)
	}
	if len(cfg.Input.Block) != 1 {
		t.Errorf("input = %+v", cfg.Input)
	}
}

func TestLoadRejectsInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("server: [unterminated"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}
