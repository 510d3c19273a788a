// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// VFRConvert - FFmpeg mpdecimate 批量转换工具

package batch

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/ZSC714725/vfrconvert/internal/ffmpeg"
	"github.com/ZSC714725/vfrconvert/internal/testsupport"
)

func newTestStore(t *testing.T, e *env) Store {
	t.Helper()
	return NewStore(StoreConfig{
		FFmpeg:   e.ffmpeg,
		Policy:   PolicyOverwrite,
		Audit:    true,
		LogLines: 50,
	})
}

func wait(t *testing.T, b *Batch) {
	t.Helper()
	select {
	case <-b.Done():
	case <-time.After(15 * time.Second):
		t.Fatalf("batch %s did not finish", b.ID)
	}
}

func TestStoreAddValidation(t *testing.T) {
	e := newEnv(t)
	s := newTestStore(t, e)

	if _, err := s.Add(nil, false); !errors.Is(err, ErrNoInputs) {
		t.Errorf("no inputs: err = %v", err)
	}
	if _, err := s.Add([]string{filepath.Join(e.dir, "missing.mp4")}, false); !errors.Is(err, ErrInputNotFound) {
		t.Errorf("missing: err = %v", err)
	}
	if _, err := s.Add([]string{e.dir}, false); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("directory: err = %v", err)
	}
	if len(s.List()) != 0 {
		t.Error("rejected batches were stored")
	}
}

func TestStoreValidatorBlocks(t *testing.T) {
	tools := testsupport.WriteTools(t)
	v, err := ffmpeg.NewValidator(nil, []string{`\.txt$`})
	if err != nil {
		t.Fatal(err)
	}
	ff, err := ffmpeg.New(ffmpeg.Config{Binary: tools.FFmpeg, ProbeBinary: tools.FFprobe, ValidatorInput: v})
	if err != nil {
		t.Fatal(err)
	}
	s := NewStore(StoreConfig{FFmpeg: ff})
	dir := t.TempDir()
	in := testsupport.WriteInput(t, dir, "notes.txt", 10)
	if _, err := s.Add([]string{in}, false); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("err = %v, want ErrInvalidInput", err)
	}
}

func TestStoreRunBatch(t *testing.T) {
	e := newEnv(t)
	s := newTestStore(t, e)
	in := e.inputs(t, 1000, "a.mp4", "b.mp4")

	b, err := s.Add([]string{in[0].Path, in[1].Path}, false)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if b.IsRunning() || b.Done() != nil {
		t.Error("batch running before Start")
	}
	if b.Inputs[0].SizeBytes != 1000 {
		t.Errorf("inputs = %+v", b.Inputs)
	}
	if got, err := s.Get(b.ID); err != nil || got != b {
		t.Errorf("Get = %v, %v", got, err)
	}

	if err := s.Start(b.ID); err != nil {
		t.Fatalf("Start: %v", err)
	}
	wait(t, b)

	if err := s.Start(b.ID); !errors.Is(err, ErrAlreadyStarted) {
		t.Errorf("restart err = %v", err)
	}

	p := b.Progress()
	if p.State != StateCompleted || p.Summary == nil || p.Summary.Done != 2 {
		t.Errorf("progress = %+v", p)
	}
	if p.BytesPercent != 100 {
		t.Errorf("bytes percent = %d", p.BytesPercent)
	}
	snap := b.Snapshot()
	if snap.Jobs[1].OutputPath != filepath.Join(e.dir, "b_converted.mp4") || !snap.Jobs[1].Audited {
		t.Errorf("job = %+v", snap.Jobs[1])
	}
	if len(b.Log()) == 0 {
		t.Error("no log recorded")
	}

	if err := s.Delete(b.ID); err != nil {
		t.Errorf("Delete: %v", err)
	}
	if _, err := s.Get(b.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get after delete: %v", err)
	}
}

func TestStoreOneRunningBatch(t *testing.T) {
	e := newEnv(t)
	s := newTestStore(t, e)
	slow := e.inputs(t, 1000, "slow.mp4")
	other := e.inputs(t, 1000, "other.mp4")

	first, err := s.Add([]string{slow[0].Path}, true)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	second, err := s.Add([]string{other[0].Path}, false)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}

	if err := s.Start(second.ID); !errors.Is(err, ErrBusy) {
		t.Errorf("second Start err = %v, want ErrBusy", err)
	}
	if err := s.Delete(first.ID); !errors.Is(err, ErrRunning) {
		t.Errorf("Delete running err = %v, want ErrRunning", err)
	}

	if err := s.Cancel(first.ID); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	wait(t, first)
	if st := first.Snapshot().Jobs[0].Status; st != StatusCancelled {
		t.Errorf("status = %s", st)
	}
	if st := first.Progress().State; st != StateCancelled {
		t.Errorf("state = %s", st)
	}

	if err := s.Start(second.ID); err != nil {
		t.Errorf("Start after cancel: %v", err)
	}
	wait(t, second)

	list := s.List()
	if len(list) != 2 || list[0] != first || list[1] != second {
		t.Errorf("List order wrong")
	}

	if err := s.Cancel("nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Cancel unknown err = %v", err)
	}
}
