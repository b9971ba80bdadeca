package main

import (
	"errors"
	"fmt"
	"io"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"compressum/internal/logging"
	"compressum/internal/services"
	"compressum/internal/transcode"
)

// diagnosticTail bounds the ffmpeg output echoed after a failure.
const diagnosticTail = 2048

func newCompressCommand(ctx *commandContext) *cobra.Command {
	var (
		input string
		flags requestFlags
	)

	cmd := &cobra.Command{
		Use:   "compress [dropped-file]",
		Short: "Transcode one video file",
		Long: `Transcode one video file into the chosen container.

The input comes from --input; a positional path (for example a file dropped
onto a launcher) replaces it. The output is written as
<name>_compressed.<ext> in --output-dir or next to the input.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			dropped := ""
			if len(args) == 1 {
				dropped = args[0]
			}

			req, err := flags.request(cmd, cfg, input)
			if err != nil {
				return err
			}
			req = req.WithDropped(dropped)
			if strings.TrimSpace(req.InputPath) == "" {
				fmt.Fprintln(cmd.ErrOrStderr(), "Please select an input video file first (--input or a file argument).")
				return services.Wrap(services.ErrInvalidRequest, "cli", "compress", "no input file selected", nil)
			}

			out := cmd.OutOrStdout()
			live := shouldColorize(out)
			logger, err := ctx.logger(!live)
			if err != nil {
				return err
			}

			var recorder transcode.Recorder
			store, err := ctx.openHistory()
			if err != nil {
				logging.WarnWithContext(logger, "job history unavailable", "history_open",
					logging.Error(err),
					logging.String(logging.FieldErrorHint, "check state_dir; the job still runs"),
				)
			} else {
				defer store.Close()
				recorder = store
			}

			var listener func(transcode.Snapshot)
			if live {
				listener = newProgressLine(out, true).update
			}
			runner, err := newRunner(cfg, logger, recorder, flags.jobTimeout(cmd, cfg), listener)
			if err != nil {
				return err
			}

			signalCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			job, err := runner.Submit(withCorrelation(signalCtx), req, nil)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Compressing %s -> %s (preset %s)\n", job.Request.InputPath, job.OutputPath, job.Preset)
			result, runErr := job.Wait()
			printResult(out, cmd.ErrOrStderr(), result, runErr)
			return runErr
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", "Input video file")
	flags.register(cmd)
	return cmd
}

func printResult(out, errOut io.Writer, result transcode.Result, err error) {
	switch {
	case err == nil:
		fmt.Fprintf(out, "Done in %s: %s\n", result.Elapsed().Round(100*time.Millisecond), result.OutputPath)
	case errors.Is(err, services.ErrCancelled):
		fmt.Fprintf(errOut, "Cancelled after %s; %s may be incomplete.\n", result.Elapsed().Round(100*time.Millisecond), result.OutputPath)
	default:
		fmt.Fprintf(errOut, "Compression failed (job %s, exit code %d).\n", shortID(result.JobID), result.ExitCode)
		if tail := strings.TrimSpace(transcode.Tail(result.CapturedOutput, diagnosticTail)); tail != "" {
			fmt.Fprintln(errOut, "ffmpeg output:")
			fmt.Fprintln(errOut, tail)
		}
		if errors.Is(err, services.ErrSpawnFailure) {
			fmt.Fprintln(errOut, "ffmpeg could not be started; run `compressum doctor`.")
		}
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
