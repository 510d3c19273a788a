// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// VFRConvert - FFmpeg mpdecimate 批量转换工具

package tui

import (
	"github.com/ZSC714725/vfrconvert/internal/batch"
	"github.com/charmbracelet/lipgloss"
)

var (
	ColorInk     = lipgloss.Color("#E5E9F0")
	ColorDim     = lipgloss.Color("#7A8291")
	ColorAccent  = lipgloss.Color("#88C0D0")
	ColorSuccess = lipgloss.Color("#A3BE8C")
	ColorWarn    = lipgloss.Color("#EBCB8B")
	ColorError   = lipgloss.Color("#BF616A")
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(ColorAccent)
	labelStyle = lipgloss.NewStyle().Foreground(ColorInk)
	valueStyle = lipgloss.NewStyle().Foreground(ColorInk).Bold(true)
	dimStyle   = lipgloss.NewStyle().Foreground(ColorDim)
	barStyle   = lipgloss.NewStyle().Foreground(ColorAccent)
	warnStyle  = lipgloss.NewStyle().Foreground(ColorWarn)
)

func statusStyle(s batch.Status) lipgloss.Style {
	switch s {
	case batch.StatusRunning:
		return lipgloss.NewStyle().Foreground(ColorAccent).Bold(true)
	case batch.StatusDone:
		return lipgloss.NewStyle().Foreground(ColorSuccess)
	case batch.StatusFailed:
		return lipgloss.NewStyle().Foreground(ColorError).Bold(true)
	case batch.StatusCancelled:
		return lipgloss.NewStyle().Foreground(ColorWarn)
	}
	return dimStyle
}
