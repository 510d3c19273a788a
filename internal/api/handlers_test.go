// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// VFRConvert - FFmpeg mpdecimate 批量转换工具

package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ZSC714725/vfrconvert/internal/batch"
	"github.com/ZSC714725/vfrconvert/internal/ffmpeg"
	"github.com/ZSC714725/vfrconvert/internal/testsupport"
	"github.com/gin-gonic/gin"
)

type testServer struct {
	router *gin.Engine
	store  batch.Store
	dir    string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	tools := testsupport.WriteTools(t)
	ff, err := ffmpeg.New(ffmpeg.Config{Binary: tools.FFmpeg, ProbeBinary: tools.FFprobe, Clamp: true})
	if err != nil {
		t.Fatalf("ffmpeg.New: %v", err)
	}
	store := batch.NewStore(batch.StoreConfig{FFmpeg: ff, Audit: true})

	r := gin.New()
	NewHandler(store, ff).Register(r)
	return &testServer{router: r, store: store, dir: t.TempDir()}
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return v
}

func TestSkills(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/api/v3/skills", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	sk := decode[SkillsResponse](t, w)
	if !sk.Decimate || sk.FFmpeg.Version != "6.1.1" || len(sk.Filters) != 2 {
		t.Errorf("skills = %+v", sk)
	}

	if w := s.do(t, http.MethodPost, "/api/v3/skills/reload", nil); w.Code != http.StatusOK {
		t.Errorf("reload status = %d", w.Code)
	}
}

func TestAddBatchErrors(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/api/v3/batch", map[string]interface{}{"inputs": []string{filepath.Join(s.dir, "missing.mp4")}})
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing input status = %d", w.Code)
	}
	if e := decode[ErrorResponse](t, w); e.Code != http.StatusBadRequest || e.Detail == "" {
		t.Errorf("error = %+v", e)
	}

	if w := s.do(t, http.MethodPost, "/api/v3/batch", map[string]interface{}{"inputs": []string{}}); w.Code != http.StatusBadRequest {
		t.Errorf("empty inputs status = %d", w.Code)
	}

	if w := s.do(t, http.MethodGet, "/api/v3/batch/unknown", nil); w.Code != http.StatusNotFound {
		t.Errorf("unknown batch status = %d", w.Code)
	}
}

func TestBatchLifecycle(t *testing.T) {
	s := newTestServer(t)
	a := testsupport.WriteInput(t, s.dir, "a.mp4", 1000)
	f := testsupport.WriteInput(t, s.dir, "fail.mp4", 1000)

	w := s.do(t, http.MethodPost, "/api/v3/batch", BatchRequest{Inputs: []string{a, f}})
	if w.Code != http.StatusOK {
		t.Fatalf("add status = %d: %s", w.Code, w.Body.String())
	}
	added := decode[Batch](t, w)
	if added.Config == nil || len(added.Config.Inputs) != 2 || added.State != nil {
		t.Fatalf("added = %+v", added)
	}
	if added.Config.Inputs[0].Output != filepath.Join(s.dir, "a_converted.mp4") {
		t.Errorf("output = %q", added.Config.Inputs[0].Output)
	}

	if w := s.do(t, http.MethodPut, "/api/v3/batch/"+added.ID+"/command", CommandRequest{Command: "jump"}); w.Code != http.StatusBadRequest {
		t.Errorf("unknown command status = %d", w.Code)
	}
	if w := s.do(t, http.MethodPut, "/api/v3/batch/"+added.ID+"/command", CommandRequest{Command: "start"}); w.Code != http.StatusOK {
		t.Fatalf("start status = %d: %s", w.Code, w.Body.String())
	}

	b, err := s.store.Get(added.ID)
	if err != nil {
		t.Fatal(err)
	}
	select {
	case <-b.Done():
	case <-time.After(15 * time.Second):
		t.Fatal("batch did not finish")
	}

	w = s.do(t, http.MethodGet, "/api/v3/batch/"+added.ID+"/state", nil)
	state := decode[BatchState](t, w)
	if state.State != "completed" || len(state.Jobs) != 2 {
		t.Fatalf("state = %+v", state)
	}
	if j := state.Jobs[0]; j.Status != "done" || j.NewSizeBytes != 400 || j.CompressionRatio != 60 || j.Frames == nil || j.Frames.Reduced != 50 {
		t.Errorf("job 0 = %+v", j)
	}
	if j := state.Jobs[1]; j.Status != "failed" || j.Error == "" || !strings.Contains(j.Detail, "Conversion failed!") {
		t.Errorf("job 1 = %+v", j)
	}
	if state.ProcessedBytes != 2000 || state.Progress.Bytes != 100 {
		t.Errorf("progress = %+v", state)
	}

	w = s.do(t, http.MethodGet, "/api/v3/batch/"+added.ID+"/report", nil)
	if report := decode[BatchReport](t, w); len(report.Log) == 0 {
		t.Error("empty report")
	}

	w = s.do(t, http.MethodGet, "/api/v3/batch/"+added.ID+"?filter=state", nil)
	if got := decode[Batch](t, w); got.State == nil || got.Config != nil || got.Report != nil {
		t.Errorf("filtered = %+v", got)
	}

	w = s.do(t, http.MethodGet, "/api/v3/batch", nil)
	if list := decode[[]Batch](t, w); len(list) != 1 || list[0].ID != added.ID {
		t.Errorf("list = %+v", list)
	}

	if w := s.do(t, http.MethodPut, "/api/v3/batch/"+added.ID+"/command", CommandRequest{Command: "start"}); w.Code != http.StatusConflict {
		t.Errorf("restart status = %d", w.Code)
	}
	if w := s.do(t, http.MethodDelete, "/api/v3/batch/"+added.ID, nil); w.Code != http.StatusOK {
		t.Errorf("delete status = %d", w.Code)
	}
	if w := s.do(t, http.MethodDelete, "/api/v3/batch/"+added.ID, nil); w.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d", w.Code)
	}
}

func TestCancelCommand(t *testing.T) {
	s := newTestServer(t)
	slow := testsupport.WriteInput(t, s.dir, "slow.mp4", 1000)

	w := s.do(t, http.MethodPost, "/api/v3/batch", BatchRequest{Inputs: []string{slow}, Autostart: true})
	if w.Code != http.StatusOK {
		t.Fatalf("add status = %d: %s", w.Code, w.Body.String())
	}
	added := decode[Batch](t, w)

	if w := s.do(t, http.MethodDelete, "/api/v3/batch/"+added.ID, nil); w.Code != http.StatusConflict {
		t.Errorf("delete running status = %d", w.Code)
	}
	if w := s.do(t, http.MethodPut, "/api/v3/batch/"+added.ID+"/command", CommandRequest{Command: "cancel"}); w.Code != http.StatusOK {
		t.Fatalf("cancel status = %d", w.Code)
	}

	b, _ := s.store.Get(added.ID)
	select {
	case <-b.Done():
	case <-time.After(15 * time.Second):
		t.Fatal("batch did not stop")
	}

	state := decode[BatchState](t, s.do(t, http.MethodGet, "/api/v3/batch/"+added.ID+"/state", nil))
	if state.State != "cancelled" || state.Jobs[0].Status != "cancelled" {
		t.Errorf("state = %+v", state)
	}
}
