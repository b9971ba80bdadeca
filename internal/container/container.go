// Package container holds the fixed catalogue of export container formats.
package container

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Format is an export container label such as "MP4".
type Format string

const (
	MP4  Format = "MP4"
	MOV  Format = "MOV"
	AVI  Format = "AVI"
	MKV  Format = "MKV"
	FLV  Format = "FLV"
	WEBM Format = "WEBM"
	MPEG Format = "MPEG"
	WMV  Format = "WMV"
)

// ExportFormats is the ordered list offered to the user. Index positions are
// stable and used by --format-index.
var ExportFormats = []Format{MP4, MOV, AVI, MKV, FLV, WEBM, MPEG, WMV}

// Casers are stateful, so each call builds its own.
func upper(s string) string { return cases.Upper(language.Und).String(s) }

func lower(s string) string { return cases.Lower(language.Und).String(s) }

// Extension returns the lower-cased file extension without a dot.
func (f Format) Extension() string {
	return lower(string(f))
}

// Label returns the upper-case display label.
func (f Format) Label() string {
	return upper(string(f))
}

func (f Format) String() string {
	return f.Label()
}

// Valid reports whether f is part of the catalogue.
func (f Format) Valid() bool {
	for _, candidate := range ExportFormats {
		if candidate == f {
			return true
		}
	}
	return false
}

// At returns the format at index i of ExportFormats.
func At(i int) (Format, error) {
	if i < 0 || i >= len(ExportFormats) {
		return "", fmt.Errorf("format index %d out of range [0,%d]", i, len(ExportFormats)-1)
	}
	return ExportFormats[i], nil
}

// Parse resolves a user supplied name such as "mkv", ".MKV", or "Mkv".
func Parse(value string) (Format, error) {
	trimmed := strings.TrimPrefix(strings.TrimSpace(value), ".")
	if trimmed == "" {
		return "", fmt.Errorf("format required; choose one of %s", Names())
	}
	candidate := Format(upper(trimmed))
	if !candidate.Valid() {
		return "", fmt.Errorf("unsupported format %q; choose one of %s", value, Names())
	}
	return candidate, nil
}

// Names returns the catalogue extensions joined for help text.
func Names() string {
	names := make([]string, 0, len(ExportFormats))
	for _, f := range ExportFormats {
		names = append(names, f.Extension())
	}
	return strings.Join(names, ", ")
}

// IsVideoExtension reports whether ext (with or without dot) looks like a
// video file the watch folder should pick up. It accepts every catalogue
// format plus a few common camera and stream containers.
func IsVideoExtension(ext string) bool {
	ext = lower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
	if ext == "" {
		return false
	}
	for _, f := range ExportFormats {
		if f.Extension() == ext {
			return true
		}
	}
	switch ext {
	case "m4v", "ts", "mts", "m2ts", "mpg", "3gp":
		return true
	}
	return false
}
