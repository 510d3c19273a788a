// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// VFRConvert - FFmpeg mpdecimate 批量转换工具

package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	defaultBind      = ":8080"
	defaultFFmpeg    = "ffmpeg"
	defaultFFprobe   = "ffprobe"
	defaultSuffix    = "_converted"
	defaultCollision = "overwrite"
	defaultLogLines  = 100
)

// Config 应用配置
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	FFmpeg   FFmpegConfig   `yaml:"ffmpeg"`
	Output   OutputConfig   `yaml:"output"`
	Input    InputConfig    `yaml:"input"`
	Progress ProgressConfig `yaml:"progress"`
	Audit    AuditConfig    `yaml:"audit"`
	Log      LogConfig      `yaml:"log"`
}

// ServerConfig 服务配置
type ServerConfig struct {
	Bind string `yaml:"bind"`
}

// FFmpegConfig FFmpeg 配置
type FFmpegConfig struct {
	Path      string   `yaml:"path"`
	ProbePath string   `yaml:"probe_path"`
	Options   []string `yaml:"options"`
}

// OutputConfig 输出文件命名
type OutputConfig struct {
	Suffix string `yaml:"suffix"`
	// Collision is one of overwrite, fail, rename.
	Collision string `yaml:"collision"`
}

// InputConfig 输入路径过滤 (正则)
type InputConfig struct {
	Allow []string `yaml:"allow"`
	Block []string `yaml:"block"`
}

// ProgressConfig 进度计算
type ProgressConfig struct {
	Clamp *bool `yaml:"clamp"`
}

// AuditConfig 帧数比对
type AuditConfig struct {
	Enabled *bool `yaml:"enabled"`
}

// LogConfig 日志配置
type LogConfig struct {
	Lines int    `yaml:"lines"`
	Debug bool   `yaml:"debug"`
	File  string `yaml:"file"`
}

// Default 返回默认配置
func Default() *Config {
	clamp := true
	audit := true
	return &Config{
		Server:   ServerConfig{Bind: defaultBind},
		FFmpeg:   FFmpegConfig{Path: defaultFFmpeg, ProbePath: defaultFFprobe},
		Output:   OutputConfig{Suffix: defaultSuffix, Collision: defaultCollision},
		Progress: ProgressConfig{Clamp: &clamp},
		Audit:    AuditConfig{Enabled: &audit},
		Log:      LogConfig{Lines: defaultLogLines},
	}
}

// Load 从 YAML 文件加载配置
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	// 填充空值
	if cfg.Server.Bind == "" {
		cfg.Server.Bind = defaultBind
	}
	if cfg.FFmpeg.Path == "" {
		cfg.FFmpeg.Path = defaultFFmpeg
	}
	if cfg.FFmpeg.ProbePath == "" {
		cfg.FFmpeg.ProbePath = defaultFFprobe
	}
	if cfg.Output.Suffix == "" {
		cfg.Output.Suffix = defaultSuffix
	}
	if cfg.Output.Collision == "" {
		cfg.Output.Collision = defaultCollision
	}
	if cfg.Log.Lines <= 0 {
		cfg.Log.Lines = defaultLogLines
	}
	if cfg.Progress.Clamp == nil {
		clamp := true
		cfg.Progress.Clamp = &clamp
	}
	if cfg.Audit.Enabled == nil {
		audit := true
		cfg.Audit.Enabled = &audit
	}

	return cfg, nil
}

// ClampProgress reports whether per-file progress is clamped to [0,100]
func (c *Config) ClampProgress() bool {
	return c.Progress.Clamp == nil || *c.Progress.Clamp
}

// AuditEnabled reports whether frame counts are compared after each file
func (c *Config) AuditEnabled() bool {
	return c.Audit.Enabled == nil || *c.Audit.Enabled
}
