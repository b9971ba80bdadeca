package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"compressum/internal/config"
	"compressum/internal/logging"
	"compressum/internal/services"
	"compressum/internal/transcode"
	"compressum/internal/watch"
)

func newWatchCommand(ctx *commandContext) *cobra.Command {
	var (
		flags     requestFlags
		recursive bool
		existing  bool
	)
	cmd := &cobra.Command{
		Use:   "watch [dir]",
		Short: "Compress every video dropped into a directory",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			dir := cfg.Watch.Dir
			if len(args) == 1 {
				if dir, err = config.ExpandPath(args[0]); err != nil {
					return err
				}
			}
			if strings.TrimSpace(dir) == "" {
				return services.Wrap(services.ErrInvalidRequest, "cli", "watch", "no watch directory (pass one or set watch.dir)", nil)
			}
			// Validate format and other flags once up front.
			template, err := flags.request(cmd, cfg, "")
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("recursive") {
				recursive = cfg.Watch.Recursive
			}

			logger, err := ctx.logger(true)
			if err != nil {
				return err
			}
			var recorder transcode.Recorder
			store, err := ctx.openHistory()
			if err != nil {
				logging.WarnWithContext(logger, "job history unavailable", "history_open", logging.Error(err))
			} else {
				defer store.Close()
				recorder = store
			}

			runner, err := newRunner(cfg, logger, recorder, flags.jobTimeout(cmd, cfg), nil)
			if err != nil {
				return err
			}
			w, err := watch.New(watch.Options{
				Dir:       dir,
				Debounce:  cfg.WatchDebounce(),
				Recursive: recursive,
				Existing:  existing,
				Logger:    logger,
			})
			if err != nil {
				return services.Wrap(services.ErrInvalidRequest, "cli", "watch", "", err)
			}

			signalCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			out := cmd.OutOrStdout()
			var mu sync.Mutex
			fmt.Fprintf(out, "Watching %s (Ctrl-C to stop)\n", w.Dir())
			return w.Run(signalCtx, func(jobCtx context.Context, path string) error {
				result, runErr := runner.Run(withCorrelation(jobCtx), template.WithDropped(path), nil)
				mu.Lock()
				defer mu.Unlock()
				switch {
				case runErr == nil:
					fmt.Fprintf(out, "ok      %s -> %s\n", path, result.OutputPath)
				case errors.Is(runErr, services.ErrCancelled):
					fmt.Fprintf(out, "stopped %s\n", path)
				case result.JobID == "":
					fmt.Fprintf(out, "skipped %s (%v)\n", path, runErr)
				default:
					fmt.Fprintf(out, "failed  %s (job %s)\n", path, shortID(result.JobID))
				}
				return runErr
			})
		},
	}
	flags.register(cmd)
	cmd.Flags().BoolVarP(&recursive, "recursive", "r", false, "Also watch subdirectories")
	cmd.Flags().BoolVar(&existing, "existing", false, "Compress videos already in the directory")
	return cmd
}
