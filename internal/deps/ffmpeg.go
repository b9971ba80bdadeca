package deps

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// Source identifies where a transcoder binary was found.
type Source string

const (
	SourceConfigured Source = "configured"
	SourceBundled    Source = "bundled"
	SourceFallback   Source = "fallback"
)

// FFmpegOptions controls transcoder resolution.
type FFmpegOptions struct {
	// Binary is an explicit override. A bare name is resolved through PATH.
	Binary string
	// BundleDir holds a bundled ffmpeg. Empty means the directory of the
	// running executable.
	BundleDir string
	// FallbackPath is the fixed well-known install location.
	FallbackPath string
}

// FFmpegStatus extends Status with the lookup source.
type FFmpegStatus struct {
	Status
	Source Source
}

// ResolveFFmpeg reports the transcoder binary compressum will execute.
//
// Lookup order: an explicit binary, then an ffmpeg sitting in the bundle
// directory (next to the compressum executable by default), then the fixed
// fallback path. The fallback is returned even when it does not exist so the
// spawn attempt reports the failure; Available tells callers up front.
func ResolveFFmpeg(opts FFmpegOptions) FFmpegStatus {
	result := FFmpegStatus{Status: Status{
		Name:        "FFmpeg",
		Description: "Transcodes the input file",
	}}

	if explicit := strings.TrimSpace(opts.Binary); explicit != "" {
		result.Source = SourceConfigured
		resolved, err := exec.LookPath(explicit)
		if err != nil {
			result.Command = explicit
			result.Detail = fmt.Sprintf("binary %q not found", explicit)
			return result
		}
		result.Command = resolved
		result.Available = true
		return result
	}

	if candidate, ok := bundledCandidate(opts.BundleDir); ok {
		if info, err := os.Stat(candidate); err == nil && isExecutable(info) {
			result.Command = candidate
			result.Source = SourceBundled
			result.Available = true
			return result
		}
	}

	fallback := strings.TrimSpace(opts.FallbackPath)
	result.Source = SourceFallback
	result.Command = fallback
	if fallback == "" {
		result.Detail = "no bundled ffmpeg and no fallback path configured"
		return result
	}
	info, err := os.Stat(fallback)
	if err != nil {
		result.Detail = fmt.Sprintf("binary %q not found", fallback)
		return result
	}
	if !isExecutable(info) {
		result.Detail = fmt.Sprintf("%q is not executable", fallback)
		return result
	}
	result.Available = true
	return result
}

func bundledCandidate(bundleDir string) (string, bool) {
	dir := strings.TrimSpace(bundleDir)
	if dir == "" {
		self, err := os.Executable()
		if err != nil {
			return "", false
		}
		if resolved, err := filepath.EvalSymlinks(self); err == nil {
			self = resolved
		}
		dir = filepath.Dir(self)
	}
	name := "ffmpeg"
	if runtime.GOOS == "windows" {
		name += ".exe"
	}
	return filepath.Join(dir, name), true
}

func isExecutable(info os.FileInfo) bool {
	if info == nil {
		return false
	}
	if info.IsDir() {
		return false
	}
	if runtime.GOOS == "windows" {
		return true
	}
	return info.Mode().Perm()&0o111 != 0
}
