package preflight

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"compressum/internal/deps"
)

const versionProbeTimeout = 5 * time.Second

// CheckFFmpeg reports the resolved transcoder and where it came from.
func CheckFFmpeg(status deps.FFmpegStatus) Result {
	const name = "FFmpeg"
	if !status.Available {
		detail := status.Detail
		if detail == "" {
			detail = "not found"
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (%s lookup)", detail, status.Source)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%s)", status.Command, status.Source)}
}

// CheckFFmpegVersion runs `<binary> -version` and reports the version line.
func CheckFFmpegVersion(ctx context.Context, binary string) Result {
	const name = "FFmpeg version"

	probeCtx, cancel := context.WithTimeout(ctx, versionProbeTimeout)
	defer cancel()

	cmd := exec.CommandContext(probeCtx, binary, "-version") //nolint:gosec
	output, err := cmd.Output()
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s -version failed (%v)", binary, err)}
	}
	version := ParseVersion(output)
	if version == "" {
		return Result{Name: name, Detail: "unrecognized -version output"}
	}
	return Result{Name: name, Passed: true, Detail: version}
}

// ParseVersion extracts the version token from `ffmpeg -version` output.
func ParseVersion(output []byte) string {
	sc := bufio.NewScanner(bytes.NewReader(output))
	if !sc.Scan() {
		return ""
	}
	fields := strings.Fields(sc.Text())
	for i := 0; i+1 < len(fields); i++ {
		if fields[i] == "version" {
			return fields[i+1]
		}
	}
	return ""
}

// CheckPathFFmpeg notes whether an ffmpeg is also on PATH. It never blocks.
func CheckPathFFmpeg() Result {
	statuses := deps.CheckBinaries([]deps.Requirement{{
		Name:     "FFmpeg on PATH",
		Command:  "ffmpeg",
		Optional: true,
	}})
	st := statuses[0]
	if !st.Available {
		return Result{Name: st.Name, Optional: true, Detail: "not on PATH (set ffmpeg.binary to use one)"}
	}
	return Result{Name: st.Name, Passed: true, Optional: true, Detail: st.Command}
}

// CheckOutputDirectory verifies the configured output directory. An empty
// value means outputs are written next to each input.
func CheckOutputDirectory(path string) Result {
	const name = "Output directory"
	if strings.TrimSpace(path) == "" {
		return Result{Name: name, Passed: true, Detail: "next to each input"}
	}
	return CheckDirectoryAccess(name, path)
}

// CheckDirectoryAccess verifies that the directory exists and is writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: not writable: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (writable)", path)}
}
