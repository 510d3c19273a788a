// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// VFRConvert - FFmpeg mpdecimate 批量转换工具

package main

import (
	"flag"
	"io"
	"log"
	"os"

	"github.com/ZSC714725/vfrconvert/internal/api"
	"github.com/ZSC714725/vfrconvert/internal/batch"
	"github.com/ZSC714725/vfrconvert/internal/config"
	"github.com/ZSC714725/vfrconvert/internal/ffmpeg"
	"github.com/ZSC714725/vfrconvert/internal/logger"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config file")
	bind := flag.String("bind", "", "Bind address (overrides config)")
	ffmpegBin := flag.String("ffmpeg", "", "FFmpeg binary path (overrides config)")
	ffprobeBin := flag.String("ffprobe", "", "FFprobe binary path (overrides config)")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		var err error
		cfg, err = config.Load(*configPath)
		if err != nil {
			log.Fatalf("Load config: %v", err)
		}
	}

	bindAddr := cfg.Server.Bind
	if *bind != "" {
		bindAddr = *bind
	}
	if *ffmpegBin != "" {
		cfg.FFmpeg.Path = *ffmpegBin
	}
	if *ffprobeBin != "" {
		cfg.FFmpeg.ProbePath = *ffprobeBin
	}

	var out io.Writer = os.Stderr
	if cfg.Log.File != "" {
		f, err := os.OpenFile(cfg.Log.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			log.Fatalf("Open log file: %v", err)
		}
		defer f.Close()
		out = io.MultiWriter(os.Stderr, f)
	}
	lg := logger.NewWithConfig(logger.Config{Prefix: "vfrconvert", Debug: cfg.Log.Debug, Output: out})

	validator, err := ffmpeg.NewValidator(cfg.Input.Allow, cfg.Input.Block)
	if err != nil {
		log.Fatalf("Input filter: %v", err)
	}

	ff, err := ffmpeg.New(ffmpeg.Config{
		Binary:         cfg.FFmpeg.Path,
		ProbeBinary:    cfg.FFmpeg.ProbePath,
		Options:        cfg.FFmpeg.Options,
		MaxLogLines:    cfg.Log.Lines,
		Clamp:          cfg.ClampProgress(),
		ValidatorInput: validator,
		Logger:         lg,
	})
	if err != nil {
		log.Fatalf("FFmpeg init: %v", err)
	}

	policy, err := batch.ParsePolicy(cfg.Output.Collision)
	if err != nil {
		log.Fatalf("Output collision: %v", err)
	}

	store := batch.NewStore(batch.StoreConfig{
		FFmpeg:   ff,
		Suffix:   cfg.Output.Suffix,
		Policy:   policy,
		Audit:    cfg.AuditEnabled(),
		LogLines: cfg.Log.Lines,
		Logger:   lg,
	})
	handler := api.NewHandler(store, ff)

	if !cfg.Log.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery(), cors.Default())
	handler.Register(r)

	lg.Info("listening on %s (ffmpeg %s)", bindAddr, ff.Skills().FFmpeg.Version)
	if err := r.Run(bindAddr); err != nil {
		log.Fatalf("Server: %v", err)
	}
}
