package main

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/jedib0t/go-pretty/v6/text"

	"compressum/internal/transcode"
)

const (
	progressBarWidth = 24
	progressInterval = 100 * time.Millisecond
)

// progressLine redraws a single terminal line from runner snapshots. It is
// only used when stdout is a terminal.
type progressLine struct {
	mu       sync.Mutex
	out      io.Writer
	colorize bool
	last     time.Time
	drawn    bool
}

func newProgressLine(out io.Writer, colorize bool) *progressLine {
	return &progressLine{out: out, colorize: colorize}
}

func (p *progressLine) update(s transcode.Snapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if s.State.Terminal() {
		if p.drawn {
			fmt.Fprintln(p.out)
			p.drawn = false
		}
		return
	}
	now := time.Now()
	if p.drawn && now.Sub(p.last) < progressInterval && s.Percent < 100 {
		return
	}
	p.last = now
	p.drawn = true
	fmt.Fprint(p.out, "\r"+renderProgress(s, p.colorize))
}

func renderProgress(s transcode.Snapshot, colorize bool) string {
	filled := int(s.Percent / 100 * progressBarWidth)
	filled = max(0, min(filled, progressBarWidth))
	bar := strings.Repeat("█", filled) + strings.Repeat("░", progressBarWidth-filled)
	if colorize {
		bar = text.FgGreen.Sprint(bar)
	}
	timing := formatClock(s.Position)
	if s.Duration > 0 {
		timing += " / " + formatClock(s.Duration)
	}
	return fmt.Sprintf("%s %5.1f%%  %s  %s", bar, s.Percent, timing, filepath.Base(s.InputPath))
}

func formatClock(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, (total/60)%60, total%60)
}
