package transcode

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"compressum/internal/container"
	"compressum/internal/services"
)

// OutputSuffix is appended to the input base name to form the output name.
const OutputSuffix = "_compressed"

// Speed selects the encoder speed/quality trade-off.
type Speed int

const (
	SpeedSlow Speed = iota
	SpeedFast
)

// SpeedFromToggle maps the fast-compression toggle onto a Speed.
func SpeedFromToggle(fast bool) Speed {
	if fast {
		return SpeedFast
	}
	return SpeedSlow
}

func (s Speed) String() string {
	if s == SpeedFast {
		return "fast"
	}
	return "slow"
}

// Presets maps each Speed to an encoder preset name.
type Presets struct {
	Fast string
	Slow string
}

// DefaultPresets is the preset pair used unless configuration overrides it.
var DefaultPresets = Presets{Fast: "ultrafast", Slow: "fast"}

// Name returns the preset for s, falling back to DefaultPresets for blanks.
func (p Presets) Name(s Speed) string {
	if s == SpeedFast {
		if name := strings.TrimSpace(p.Fast); name != "" {
			return name
		}
		return DefaultPresets.Fast
	}
	if name := strings.TrimSpace(p.Slow); name != "" {
		return name
	}
	return DefaultPresets.Slow
}

// Request describes a single transcode submission.
type Request struct {
	InputPath       string
	OutputDirectory string
	Format          container.Format
	Speed           Speed
}

// WithDropped returns a copy whose input is replaced by a dropped file path.
// An empty dropped path means nothing was dropped and leaves the request as is.
func (r Request) WithDropped(path string) Request {
	if strings.TrimSpace(path) != "" {
		r.InputPath = path
	}
	return r
}

// Resolve trims and absolutizes paths and validates the result. Every failure
// carries services.ErrInvalidRequest.
func (r Request) Resolve() (Request, error) {
	r.InputPath = strings.TrimSpace(r.InputPath)
	r.OutputDirectory = strings.TrimSpace(r.OutputDirectory)
	if r.InputPath == "" {
		return r, invalid("input path required")
	}
	abs, err := filepath.Abs(r.InputPath)
	if err != nil {
		return r, services.Wrap(services.ErrInvalidRequest, "transcode", "validate", "resolve input path", err)
	}
	r.InputPath = abs
	if r.OutputDirectory != "" {
		if r.OutputDirectory, err = filepath.Abs(r.OutputDirectory); err != nil {
			return r, services.Wrap(services.ErrInvalidRequest, "transcode", "validate", "resolve output directory", err)
		}
	}
	return r, r.Validate()
}

// Validate checks the request without modifying it.
func (r Request) Validate() error {
	if strings.TrimSpace(r.InputPath) == "" {
		return invalid("input path required")
	}
	info, err := os.Stat(r.InputPath)
	if err != nil {
		return services.Wrap(services.ErrInvalidRequest, "transcode", "validate", fmt.Sprintf("input %q unavailable", r.InputPath), err)
	}
	if info.IsDir() {
		return invalid(fmt.Sprintf("input %q is a directory", r.InputPath))
	}
	if !r.Format.Valid() {
		return invalid(fmt.Sprintf("unsupported format %q; choose one of %s", string(r.Format), container.Names()))
	}
	if r.Speed != SpeedFast && r.Speed != SpeedSlow {
		return invalid(fmt.Sprintf("unknown speed %d", r.Speed))
	}
	return nil
}

// EffectiveOutputDirectory is OutputDirectory, or the input's parent when empty.
func (r Request) EffectiveOutputDirectory() string {
	if dir := strings.TrimSpace(r.OutputDirectory); dir != "" {
		return dir
	}
	return filepath.Dir(r.InputPath)
}

// OutputPath returns <dir>/<input base without extension>_compressed.<ext>.
func (r Request) OutputPath() string {
	base := filepath.Base(r.InputPath)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(r.EffectiveOutputDirectory(), stem+OutputSuffix+"."+r.Format.Extension())
}

// Args builds the ffmpeg argument list. Paths are passed verbatim.
func (r Request) Args(preset string) []string {
	return []string{"-i", r.InputPath, "-preset", preset, r.OutputPath()}
}

func invalid(message string) error {
	return services.Wrap(services.ErrInvalidRequest, "transcode", "validate", message, nil)
}
