package preflight

import (
	"context"

	"compressum/internal/config"
	"compressum/internal/deps"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name     string
	Passed   bool
	Optional bool
	Detail   string
}

// RunAll executes every preflight check for cfg.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	status := ResolveFFmpeg(cfg)
	results := []Result{CheckFFmpeg(status)}
	if status.Available {
		results = append(results, CheckFFmpegVersion(ctx, status.Command))
	}
	results = append(results, CheckPathFFmpeg())
	results = append(results, CheckOutputDirectory(cfg.Paths.OutputDir))
	results = append(results, CheckDirectoryAccess("State directory", cfg.Paths.StateDir))
	if cfg.Watch.Dir != "" {
		results = append(results, CheckDirectoryAccess("Watch directory", cfg.Watch.Dir))
	}
	return results
}

// Failed returns the required checks that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed && !r.Optional {
			failed = append(failed, r)
		}
	}
	return failed
}

// ResolveFFmpeg applies the configured lookup order.
func ResolveFFmpeg(cfg *config.Config) deps.FFmpegStatus {
	return deps.ResolveFFmpeg(deps.FFmpegOptions{
		Binary:       cfg.FFmpeg.Binary,
		BundleDir:    cfg.FFmpeg.BundleDir,
		FallbackPath: cfg.FFmpeg.FallbackPath,
	})
}
