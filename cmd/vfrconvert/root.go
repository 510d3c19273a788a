// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// VFRConvert - FFmpeg mpdecimate 批量转换工具

package main

import (
	"fmt"
	"io"
	"os"

	"github.com/ZSC714725/vfrconvert/internal/config"
	"github.com/ZSC714725/vfrconvert/internal/logger"
	"github.com/spf13/cobra"
)

var (
	configPath string
	ffmpegBin  string
	ffprobeBin string
	debug      bool
)

var rootCmd = &cobra.Command{
	Use:   "vfrconvert",
	Short: "vfrconvert - drop duplicate frames from videos with ffmpeg mpdecimate",
	Long: "vfrconvert converts video files one after another with ffmpeg's mpdecimate filter " +
		"and variable frame rate output, reporting progress, size savings and dropped frames.",
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to YAML config file")
	rootCmd.PersistentFlags().StringVar(&ffmpegBin, "ffmpeg", "", "ffmpeg binary (overrides config)")
	rootCmd.PersistentFlags().StringVar(&ffprobeBin, "ffprobe", "", "ffprobe binary (overrides config)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "log debug output, including raw ffmpeg lines")
}

// loadConfig reads the config file, if any, and applies the global flags
func loadConfig() (*config.Config, error) {
	cfg := config.Default()
	if configPath != "" {
		var err error
		if cfg, err = config.Load(configPath); err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
	}
	if ffmpegBin != "" {
		cfg.FFmpeg.Path = ffmpegBin
	}
	if ffprobeBin != "" {
		cfg.FFmpeg.ProbePath = ffprobeBin
	}
	if debug {
		cfg.Log.Debug = true
	}
	return cfg, nil
}

// newLogger writes to out and, when configured, to the log file. The
// returned close func must be called once logging is done.
func newLogger(cfg *config.Config, out io.Writer) (logger.Logger, func(), error) {
	closer := func() {}
	if cfg.Log.File != "" {
		f, err := os.OpenFile(cfg.Log.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		closer = func() { f.Close() }
		if out == nil {
			out = f
		} else {
			out = io.MultiWriter(out, f)
		}
	}
	if out == nil {
		return logger.Nop(), closer, nil
	}
	return logger.NewWithConfig(logger.Config{Prefix: "vfrconvert", Debug: cfg.Log.Debug, Output: out}), closer, nil
}
