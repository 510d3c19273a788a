// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// VFRConvert - FFmpeg mpdecimate 批量转换工具

package logger

import (
	"io"
	"log"
	"os"
)

// Logger provides a simple logging interface
type Logger interface {
	Info(format string, args ...interface{})
	Warn(format string, args ...interface{})
	Error(format string, args ...interface{})
	Debug(format string, args ...interface{})
}

// Config 日志配置
type Config struct {
	Prefix string
	Debug  bool
	Output io.Writer
}

type defaultLogger struct {
	prefix string
	debug  bool
	log    *log.Logger
}

// NewWithConfig returns a logger for the given config
func NewWithConfig(config Config) Logger {
	out := config.Output
	if out == nil {
		out = os.Stderr
	}
	prefix := config.Prefix
	if prefix != "" {
		prefix += ": "
	}
	return &defaultLogger{
		prefix: prefix,
		debug:  config.Debug,
		log:    log.New(out, "", log.LstdFlags),
	}
}

func (l *defaultLogger) Info(format string, args ...interface{}) {
	l.log.Printf("[INFO] "+l.prefix+format, args...)
}

func (l *defaultLogger) Warn(format string, args ...interface{}) {
	l.log.Printf("[WARN] "+l.prefix+format, args...)
}

func (l *defaultLogger) Error(format string, args ...interface{}) {
	l.log.Printf("[ERROR] "+l.prefix+format, args...)
}

func (l *defaultLogger) Debug(format string, args ...interface{}) {
	if !l.debug {
		return
	}
	l.log.Printf("[DEBUG] "+l.prefix+format, args...)
}

// Nop returns a logger that discards everything
func Nop() Logger {
	return nopLogger{}
}

type nopLogger struct{}

func (nopLogger) Info(format string, args ...interface{})  {}
func (nopLogger) Warn(format string, args ...interface{})  {}
func (nopLogger) Error(format string, args ...interface{}) {}
func (nopLogger) Debug(format string, args ...interface{}) {}
