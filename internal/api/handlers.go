// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// VFRConvert - FFmpeg mpdecimate 批量转换工具

package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/ZSC714725/vfrconvert/internal/batch"
	"github.com/ZSC714725/vfrconvert/internal/convert"
	"github.com/ZSC714725/vfrconvert/internal/ffmpeg"
	"github.com/gin-gonic/gin"
)

const logTimeFormat = "2006-01-02 15:04:05.000"

// Handler holds dependencies
type Handler struct {
	store  batch.Store
	ffmpeg ffmpeg.FFmpeg
}

// NewHandler creates API handler
func NewHandler(store batch.Store, ff ffmpeg.FFmpeg) *Handler {
	return &Handler{store: store, ffmpeg: ff}
}

// Register mounts the API routes on r
func (h *Handler) Register(r gin.IRouter) {
	v3 := r.Group("/api/v3")
	{
		v3.GET("/skills", h.Skills)
		v3.POST("/skills/reload", h.ReloadSkills)

		v3.GET("/batch", h.ListBatches)
		v3.POST("/batch", h.AddBatch)
		v3.GET("/batch/:id", h.GetBatch)
		v3.DELETE("/batch/:id", h.DeleteBatch)
		v3.GET("/batch/:id/state", h.GetState)
		v3.GET("/batch/:id/report", h.GetReport)
		v3.PUT("/batch/:id/command", h.Command)
	}
}

func errResp(c *gin.Context, code int, msg, detail string) {
	c.JSON(code, ErrorResponse{Code: code, Message: msg, Detail: detail})
}

// storeError maps store errors to HTTP responses
func storeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, batch.ErrNotFound):
		errResp(c, http.StatusNotFound, "Unknown batch ID", err.Error())
	case errors.Is(err, batch.ErrBusy), errors.Is(err, batch.ErrRunning), errors.Is(err, batch.ErrAlreadyStarted):
		errResp(c, http.StatusConflict, "Batch state conflict", err.Error())
	case errors.Is(err, batch.ErrNoInputs), errors.Is(err, batch.ErrInvalidInput), errors.Is(err, batch.ErrInputNotFound):
		errResp(c, http.StatusBadRequest, "Invalid input", err.Error())
	default:
		errResp(c, http.StatusInternalServerError, "Internal error", err.Error())
	}
}

// AddBatch POST /api/v3/batch
func (h *Handler) AddBatch(c *gin.Context) {
	var req BatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errResp(c, http.StatusBadRequest, "Invalid JSON", err.Error())
		return
	}

	b, err := h.store.Add(req.Inputs, req.Autostart)
	if err != nil {
		// autostart can fail after the batch was registered
		if b != nil {
			c.JSON(http.StatusConflict, ErrorResponse{
				Code:    http.StatusConflict,
				Message: "Batch added but not started: " + b.ID,
				Detail:  err.Error(),
			})
			return
		}
		storeError(c, err)
		return
	}

	c.JSON(http.StatusOK, batchToAPI(b, "config"))
}

// ListBatches GET /api/v3/batch
func (h *Handler) ListBatches(c *gin.Context) {
	filter := c.DefaultQuery("filter", "")

	batches := h.store.List()
	out := make([]Batch, 0, len(batches))
	for _, b := range batches {
		out = append(out, batchToAPI(b, filter))
	}

	c.JSON(http.StatusOK, out)
}

// GetBatch GET /api/v3/batch/:id
func (h *Handler) GetBatch(c *gin.Context) {
	b, err := h.store.Get(c.Param("id"))
	if err != nil {
		storeError(c, err)
		return
	}

	c.JSON(http.StatusOK, batchToAPI(b, c.DefaultQuery("filter", "")))
}

// DeleteBatch DELETE /api/v3/batch/:id
func (h *Handler) DeleteBatch(c *gin.Context) {
	if err := h.store.Delete(c.Param("id")); err != nil {
		storeError(c, err)
		return
	}

	c.JSON(http.StatusOK, "OK")
}

// GetState GET /api/v3/batch/:id/state
func (h *Handler) GetState(c *gin.Context) {
	b, err := h.store.Get(c.Param("id"))
	if err != nil {
		storeError(c, err)
		return
	}

	c.JSON(http.StatusOK, batchState(b))
}

// GetReport GET /api/v3/batch/:id/report
func (h *Handler) GetReport(c *gin.Context) {
	b, err := h.store.Get(c.Param("id"))
	if err != nil {
		storeError(c, err)
		return
	}

	c.JSON(http.StatusOK, batchReport(b))
}

// Command PUT /api/v3/batch/:id/command
func (h *Handler) Command(c *gin.Context) {
	id := c.Param("id")

	var req CommandRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errResp(c, http.StatusBadRequest, "Invalid JSON", err.Error())
		return
	}

	var err error
	switch req.Command {
	case "start":
		err = h.store.Start(id)
	case "cancel", "stop":
		err = h.store.Cancel(id)
	default:
		errResp(c, http.StatusBadRequest, "Unknown command", "Known: start, cancel")
		return
	}

	if err != nil {
		storeError(c, err)
		return
	}

	c.JSON(http.StatusOK, "OK")
}

// Skills GET /api/v3/skills
func (h *Handler) Skills(c *gin.Context) {
	c.JSON(http.StatusOK, skillsToAPI(h.ffmpeg.Skills()))
}

// ReloadSkills POST /api/v3/skills/reload
func (h *Handler) ReloadSkills(c *gin.Context) {
	if err := h.ffmpeg.ReloadSkills(); err != nil {
		errResp(c, http.StatusInternalServerError, "Reload failed", err.Error())
		return
	}
	c.JSON(http.StatusOK, skillsToAPI(h.ffmpeg.Skills()))
}

func batchToAPI(b *batch.Batch, filter string) Batch {
	out := Batch{
		ID:        b.ID,
		CreatedAt: b.CreatedAt,
	}

	includeAll := filter == ""
	if includeAll || strings.Contains(filter, "config") {
		out.Config = batchConfig(b)
	}
	if includeAll || strings.Contains(filter, "state") {
		out.State = batchState(b)
	}
	if includeAll || strings.Contains(filter, "report") {
		out.Report = batchReport(b)
	}

	return out
}

func batchConfig(b *batch.Batch) *BatchConfig {
	snap := b.Snapshot()
	cfg := &BatchConfig{Inputs: make([]BatchIO, len(snap.Jobs))}
	for i, j := range snap.Jobs {
		cfg.Inputs[i] = BatchIO{Input: j.InputPath, Output: j.OutputPath, SizeBytes: j.SizeBytes}
	}
	return cfg
}

func batchState(b *batch.Batch) *BatchState {
	snap := b.Snapshot()
	prog := b.Progress()

	state := &BatchState{
		State:          string(snap.State),
		CurrentIndex:   snap.CurrentIndex,
		CurrentFile:    prog.CurrentFile,
		Remaining:      prog.Remaining,
		TotalBytes:     snap.TotalBytes,
		ProcessedBytes: snap.ProcessedBytes,
		Error:          prog.Error,
		Progress: Progress{
			File:        prog.FilePercent,
			FileElapsed: prog.FileElapsed,
			Bytes:       prog.BytesPercent,
			Files:       prog.FilesPercent,
		},
		Jobs: make([]Job, len(snap.Jobs)),
	}
	if prog.HasETA {
		eta := prog.ETA
		state.Progress.ETA = &eta
	}

	for i, j := range snap.Jobs {
		state.Jobs[i] = jobToAPI(j)
	}

	if status, ok := b.Process(); ok {
		state.Process = &Process{
			State:   status.State,
			Pid:     status.Pid,
			Runtime: int64(status.Duration.Seconds()),
			Memory:  status.Memory.Current,
			CPU:     status.CPU.Current,
		}
	}

	return state
}

func jobToAPI(j batch.Job) Job {
	out := Job{
		Index:            j.Index,
		Input:            j.InputPath,
		Output:           j.OutputPath,
		Status:           string(j.Status),
		SizeBytes:        j.SizeBytes,
		NewSizeBytes:     j.NewSizeBytes,
		CompressionRatio: j.CompressionRatio,
	}
	if j.Audited {
		out.Frames = &Frames{
			Input:            j.InputFrames,
			Output:           j.OutputFrames,
			Reduced:          j.FramesReduced,
			ReductionPercent: j.ReductionPercent,
		}
	}
	if j.Err != nil {
		out.Error = j.Err.Error()
		var xe *convert.ExitError
		if errors.As(j.Err, &xe) {
			out.Detail = xe.Detail()
		}
	}
	if !j.StartedAt.IsZero() && !j.FinishedAt.IsZero() {
		runtime := j.FinishedAt.Sub(j.StartedAt).Seconds()
		out.Runtime = &runtime
	}
	return out
}

func batchReport(b *batch.Batch) *BatchReport {
	lines := b.Log()
	report := &BatchReport{
		CreatedAt: b.CreatedAt,
		Log:       make([][2]string, len(lines)),
	}
	for i, line := range lines {
		report.Log[i] = [2]string{line.Time.Format(logTimeFormat), line.Text}
	}
	return report
}
