// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// VFRConvert - FFmpeg mpdecimate 批量转换工具

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/ZSC714725/vfrconvert/internal/audit"
	"github.com/ZSC714725/vfrconvert/internal/batch"
	"github.com/ZSC714725/vfrconvert/internal/config"
	"github.com/ZSC714725/vfrconvert/internal/convert"
	"github.com/ZSC714725/vfrconvert/internal/ffmpeg"
	"github.com/ZSC714725/vfrconvert/internal/tui"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

var (
	convertSuffix    string
	convertCollision string
	convertNoAudit   bool
	convertNoClamp   bool
	convertPlain     bool
)

var errCancelled = errors.New("cancelled")

var convertCmd = &cobra.Command{
	Use:   "convert [flags] <files...>",
	Short: "Convert files with mpdecimate, one after another",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("suffix") {
			cfg.Output.Suffix = convertSuffix
		}
		if cmd.Flags().Changed("collision") {
			cfg.Output.Collision = convertCollision
		}
		if convertNoAudit {
			off := false
			cfg.Audit.Enabled = &off
		}
		if convertNoClamp {
			off := false
			cfg.Progress.Clamp = &off
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		interactive := !convertPlain && isTerminal(os.Stdout)
		summary, err := runBatch(ctx, cfg, args, interactive)
		if err != nil {
			return err
		}

		fmt.Fprint(cmd.OutOrStdout(), tui.RenderSummary(summary))
		switch {
		case summary.Failed > 0:
			return fmt.Errorf("%d of %d files failed", summary.Failed, len(summary.Jobs))
		case summary.State == batch.StateCancelled:
			return errCancelled
		}
		return nil
	},
}

func init() {
	convertCmd.Flags().StringVarP(&convertSuffix, "suffix", "s", batch.DefaultSuffix, "suffix added to output file names")
	convertCmd.Flags().StringVar(&convertCollision, "collision", string(batch.PolicyOverwrite), "existing output handling: overwrite, fail or rename")
	convertCmd.Flags().BoolVar(&convertNoAudit, "no-audit", false, "skip the ffprobe frame count comparison")
	convertCmd.Flags().BoolVar(&convertNoClamp, "no-clamp", false, "report progress past 100% when ffmpeg overshoots the duration")
	convertCmd.Flags().BoolVar(&convertPlain, "plain", false, "plain log output even on a terminal")

	rootCmd.AddCommand(convertCmd)
}

func runBatch(ctx context.Context, cfg *config.Config, paths []string, interactive bool) (batch.Summary, error) {
	// 交互模式下日志只写文件, 避免打乱进度界面
	var out io.Writer = os.Stderr
	if interactive {
		out = nil
	}
	log, closeLog, err := newLogger(cfg, out)
	if err != nil {
		return batch.Summary{}, err
	}
	defer closeLog()

	validator, err := ffmpeg.NewValidator(cfg.Input.Allow, cfg.Input.Block)
	if err != nil {
		return batch.Summary{}, fmt.Errorf("input filter: %w", err)
	}

	probe := cfg.FFmpeg.ProbePath
	if !cfg.AuditEnabled() {
		probe = ""
	}
	ff, err := ffmpeg.New(ffmpeg.Config{
		Binary:         cfg.FFmpeg.Path,
		ProbeBinary:    probe,
		Options:        cfg.FFmpeg.Options,
		MaxLogLines:    cfg.Log.Lines,
		Clamp:          cfg.ClampProgress(),
		ValidatorInput: validator,
		Logger:         log,
	})
	if err != nil {
		return batch.Summary{}, err
	}

	policy, err := batch.ParsePolicy(cfg.Output.Collision)
	if err != nil {
		return batch.Summary{}, err
	}
	inputs, err := batch.Inputs(paths, ff.ValidateInput)
	if err != nil {
		return batch.Summary{}, err
	}
	jobs := batch.NewJobs(inputs, batch.NewResolver(cfg.Output.Suffix, policy))

	recorder := batch.NewRecorder(cfg.Log.Lines)
	opts := batch.Options{
		Converter: convert.New(ff, log),
		Logger:    log,
	}
	if cfg.AuditEnabled() {
		opts.Auditor = audit.New(ff, log)
	}

	if !interactive {
		opts.Observer = batch.MultiObserver{recorder, tui.NewPlainObserver(jobs, log)}
		err = batch.NewController(jobs, opts).Run(ctx)
		return summaryOf(recorder, err)
	}

	events := tui.NewChanObserver(256)
	opts.Observer = batch.MultiObserver{recorder, events}
	controller := batch.NewController(jobs, opts)

	program := tea.NewProgram(tui.NewModel(jobs, events.Messages(), controller.Cancel))
	uiDone := make(chan struct{})
	go func() {
		defer close(uiDone)
		if _, err := program.Run(); err != nil {
			log.Warn("progress view: %v", err)
		}
		// the view may exit early, keep the batch from blocking on it
		for range events.Messages() {
		}
	}()

	err = controller.Run(ctx)
	events.Close()
	<-uiDone
	return summaryOf(recorder, err)
}

func summaryOf(recorder *batch.Recorder, runErr error) (batch.Summary, error) {
	p := recorder.Progress()
	if p.Summary == nil {
		if runErr == nil {
			runErr = errors.New("batch ended without a summary")
		}
		return batch.Summary{}, runErr
	}
	return *p.Summary, nil
}

func isTerminal(f *os.File) bool {
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
