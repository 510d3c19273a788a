// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// VFRConvert - FFmpeg mpdecimate 批量转换工具

package main

import (
	"fmt"
	"os/exec"

	"github.com/ZSC714725/vfrconvert/internal/ffmpeg"
	"github.com/ZSC714725/vfrconvert/internal/ffmpeg/skills"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check that ffmpeg provides mpdecimate and ffprobe is available",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		tw := table.NewWriter()
		tw.SetStyle(table.StyleRounded)
		tw.AppendHeader(table.Row{"Check", "Result"})

		var problems []string

		binary, err := exec.LookPath(cfg.FFmpeg.Path)
		if err != nil {
			tw.AppendRow(table.Row{"ffmpeg", "not found: " + cfg.FFmpeg.Path})
			problems = append(problems, "ffmpeg")
		} else {
			tw.AppendRow(table.Row{"ffmpeg", binary})
			s, err := skills.New(binary)
			if err != nil {
				tw.AppendRow(table.Row{"version", err.Error()})
				problems = append(problems, "ffmpeg version")
			} else {
				tw.AppendRow(table.Row{"version", s.FFmpeg.Version})
				for _, lib := range s.FFmpeg.Libraries {
					tw.AppendRow(table.Row{lib.Name, lib.Linked})
				}
				if f, ok := s.Filter(ffmpeg.DecimateFilter); ok && f.Video() {
					tw.AppendRow(table.Row{ffmpeg.DecimateFilter, "available"})
				} else {
					tw.AppendRow(table.Row{ffmpeg.DecimateFilter, "missing"})
					problems = append(problems, ffmpeg.DecimateFilter)
				}
			}
		}

		if probe, err := exec.LookPath(cfg.FFmpeg.ProbePath); err != nil {
			tw.AppendRow(table.Row{"ffprobe", "not found: " + cfg.FFmpeg.ProbePath + " (frame audit disabled)"})
		} else {
			tw.AppendRow(table.Row{"ffprobe", probe})
		}

		fmt.Fprintln(cmd.OutOrStdout(), tw.Render())
		if len(problems) > 0 {
			return fmt.Errorf("check failed: %v", problems)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
}
