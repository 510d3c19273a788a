// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// VFRConvert - FFmpeg mpdecimate 批量转换工具

package ffmpeg

import (
	"bytes"
	"errors"
	"slices"
	"strings"
	"testing"

	"github.com/ZSC714725/vfrconvert/internal/logger"
	"github.com/ZSC714725/vfrconvert/internal/testsupport"
)

func TestNewDetectsDecimate(t *testing.T) {
	tools := testsupport.WriteTools(t)

	ff, err := New(Config{Binary: tools.FFmpeg, ProbeBinary: tools.FFprobe})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	s := ff.Skills()
	if s.FFmpeg.Version != "6.1.1" {
		t.Errorf("version = %q", s.FFmpeg.Version)
	}
	if !s.HasFilter(DecimateFilter) {
		t.Error("mpdecimate missing from skills")
	}
	if err := ff.ReloadSkills(); err != nil {
		t.Errorf("ReloadSkills: %v", err)
	}
}

func TestNewRequiresDecimate(t *testing.T) {
	dir := t.TempDir()
	bin := testsupport.WriteScript(t, dir, "ffmpeg", `case "$1" in
-version) echo "ffmpeg version 5.1 Copyright";;
esac
exit 0`)

	_, err := New(Config{Binary: bin})
	if !errors.Is(err, ErrNoDecimate) {
		t.Fatalf("err = %v, want ErrNoDecimate", err)
	}
}

func TestNewRejectsNonVideoDecimate(t *testing.T) {
	dir := t.TempDir()
	bin := testsupport.WriteScript(t, dir, "ffmpeg", `case "$1" in
-version) echo "ffmpeg version 6.0 Copyright";;
-hide_banner) echo " ... mpdecimate        A->A       Not the video filter.";;
esac
exit 0`)

	if _, err := New(Config{Binary: bin}); !errors.Is(err, ErrNoDecimate) {
		t.Fatalf("err = %v, want ErrNoDecimate", err)
	}
}

func TestNewInvalidBinary(t *testing.T) {
	if _, err := New(Config{Binary: "/nonexistent/ffmpeg"}); err == nil {
		t.Fatal("expected error for missing binary")
	}
}

func TestMissingProbeDisablesAudit(t *testing.T) {
	tools := testsupport.WriteTools(t)
	var buf bytes.Buffer
	ff, err := New(Config{
		Binary:      tools.FFmpeg,
		ProbeBinary: "/nonexistent/ffprobe",
		Logger:      logger.NewWithConfig(logger.Config{Output: &buf}),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if !strings.Contains(buf.String(), "[WARN] ffprobe unavailable") {
		t.Errorf("log = %q", buf.String())
	}
	if _, err := ff.NewProbe(ProcessConfig{Command: ff.CountFramesCommand("a.mp4")}); !errors.Is(err, ErrNoProbe) {
		t.Errorf("NewProbe err = %v, want ErrNoProbe", err)
	}
}

func TestCommands(t *testing.T) {
	tools := testsupport.WriteTools(t)
	ff, err := New(Config{Binary: tools.FFmpeg, Options: []string{"-c:a", "copy"}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	got := ff.DecimateCommand("in.mp4", "in_converted.mp4")
	want := []string{"-i", "in.mp4", "-vf", "mpdecimate", "-vsync", "vfr", "-c:a", "copy", "-y", "in_converted.mp4"}
	if !slices.Equal(got, want) {
		t.Errorf("DecimateCommand = %q", got)
	}

	got = ff.CountFramesCommand("a b.mp4")
	want = []string{"-v", "error", "-select_streams", "v:0", "-count_frames",
		"-show_entries", "stream=nb_read_frames", "-of", "default=nokey=1:noprint_wrappers=1", "a b.mp4"}
	if !slices.Equal(got, want) {
		t.Errorf("CountFramesCommand = %q", got)
	}

	if _, err := ff.NewProbe(ProcessConfig{}); !errors.Is(err, ErrNoProbe) {
		t.Errorf("NewProbe err = %v, want ErrNoProbe", err)
	}
}

func TestProbeReadsStdout(t *testing.T) {
	tools := testsupport.WriteTools(t)
	ff, err := New(Config{Binary: tools.FFmpeg, ProbeBinary: tools.FFprobe})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	proc, err := ff.NewProbe(ProcessConfig{Command: ff.CountFramesCommand("clip.mp4")})
	if err != nil {
		t.Fatalf("NewProbe: %v", err)
	}
	if err := proc.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	var lines []string
	for l := range proc.Lines() {
		lines = append(lines, l)
	}
	if code, _ := proc.Wait(); code != 0 {
		t.Fatalf("exit code %d", code)
	}
	if !slices.Equal(lines, []string{"200"}) {
		t.Errorf("lines = %q", lines)
	}
}

func TestValidator(t *testing.T) {
	v, err := NewValidator([]string{`\.mp4$`, ` `}, []string{`/private/`})
	if err != nil {
		t.Fatalf("NewValidator: %v", err)
	}
	cases := map[string]bool{
		"/videos/a.mp4":         true,
		"/videos/a.mkv":         false,
		"/videos/private/a.mp4": false,
	}
	for path, want := range cases {
		if got := v.IsValid(path); got != want {
			t.Errorf("IsValid(%q) = %v, want %v", path, got, want)
		}
	}

	if _, err := NewValidator([]string{"("}, nil); err == nil {
		t.Error("expected compile error")
	}

	all, _ := NewValidator(nil, nil)
	if !all.IsValid("anything") {
		t.Error("empty validator must admit everything")
	}
}
