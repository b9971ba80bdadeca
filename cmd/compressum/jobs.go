package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"compressum/internal/config"
	"compressum/internal/container"
	"compressum/internal/logging"
	"compressum/internal/preflight"
	"compressum/internal/services"
	"compressum/internal/transcode"
)

// requestFlags are the per-job settings shared by compress and watch.
type requestFlags struct {
	outputDir   string
	format      string
	formatIndex int
	fast        bool
	timeout     time.Duration
}

func (f *requestFlags) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVarP(&f.outputDir, "output-dir", "o", "", "Directory for the output file (default: next to the input)")
	flags.StringVarP(&f.format, "format", "f", "", fmt.Sprintf("Output container: %s", container.Names()))
	flags.IntVar(&f.formatIndex, "format-index", 0, "Output container by position in `compressum formats`")
	flags.BoolVar(&f.fast, "fast", false, "Favour speed over quality")
	flags.DurationVar(&f.timeout, "timeout", 0, "Fail the job if ffmpeg runs longer than this (0 uses the config)")
}

// request merges flags over configuration defaults. Flags the user did not
// set fall back to cfg.
func (f *requestFlags) request(cmd *cobra.Command, cfg *config.Config, input string) (transcode.Request, error) {
	req := transcode.Request{
		InputPath:       input,
		OutputDirectory: cfg.Paths.OutputDir,
		Speed:           transcode.SpeedFromToggle(cfg.Compression.Fast),
	}
	flags := cmd.Flags()
	if flags.Changed("output-dir") {
		dir, err := config.ExpandPath(f.outputDir)
		if err != nil {
			return req, services.Wrap(services.ErrInvalidRequest, "cli", "output directory", "", err)
		}
		req.OutputDirectory = dir
	}
	if flags.Changed("fast") {
		req.Speed = transcode.SpeedFromToggle(f.fast)
	}

	nameSet, indexSet := flags.Changed("format"), flags.Changed("format-index")
	var err error
	switch {
	case nameSet && indexSet:
		return req, services.Wrap(services.ErrInvalidRequest, "cli", "format", "use either --format or --format-index, not both", nil)
	case indexSet:
		req.Format, err = container.At(f.formatIndex)
	case nameSet:
		req.Format, err = container.Parse(f.format)
	default:
		req.Format, err = container.Parse(cfg.Compression.Format)
	}
	if err != nil {
		return req, services.Wrap(services.ErrInvalidRequest, "cli", "format", "", err)
	}
	return req, nil
}

func (f *requestFlags) jobTimeout(cmd *cobra.Command, cfg *config.Config) time.Duration {
	if cmd.Flags().Changed("timeout") {
		return f.timeout
	}
	return cfg.Timeout()
}

// newRunner resolves the transcoder and wires the runner's collaborators. A
// missing binary is only warned about here; the spawn attempt reports it.
func newRunner(cfg *config.Config, logger *slog.Logger, recorder transcode.Recorder, timeout time.Duration, listener func(transcode.Snapshot)) (*transcode.Runner, error) {
	status := preflight.ResolveFFmpeg(cfg)
	if !status.Available {
		logging.WarnWithContext(logger, "ffmpeg not available", "ffmpeg_missing",
			logging.String("binary", status.Command),
			logging.String("source", string(status.Source)),
			logging.String("detail", status.Detail),
			logging.String(logging.FieldErrorHint, "install ffmpeg or set ffmpeg.binary; run compressum doctor"),
		)
	}
	binary := status.Command
	if binary == "" {
		binary = cfg.FFmpeg.FallbackPath
	}

	opts := []transcode.Option{
		transcode.WithLogger(logger),
		transcode.WithPresets(transcode.Presets{
			Fast: cfg.Compression.FastPreset,
			Slow: cfg.Compression.SlowPreset,
		}),
		transcode.WithTimeout(timeout),
		transcode.WithLock(cfg.LockPath()),
	}
	if recorder != nil {
		opts = append(opts, transcode.WithRecorder(recorder))
	}
	if listener != nil {
		opts = append(opts, transcode.WithStateListener(listener))
	}
	return transcode.New(binary, opts...)
}
