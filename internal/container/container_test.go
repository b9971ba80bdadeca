package container_test

import (
	"testing"

	"compressum/internal/container"
)

func TestAtMatchesLowerCasedExtension(t *testing.T) {
	want := []string{"mp4", "mov", "avi", "mkv", "flv", "webm", "mpeg", "wmv"}
	if len(container.ExportFormats) != len(want) {
		t.Fatalf("expected %d formats, got %d", len(want), len(container.ExportFormats))
	}
	for i, ext := range want {
		f, err := container.At(i)
		if err != nil {
			t.Fatalf("At(%d) returned error: %v", i, err)
		}
		if f.Extension() != ext {
			t.Fatalf("At(%d).Extension() = %q, want %q", i, f.Extension(), ext)
		}
	}
}

func TestAtRejectsOutOfRange(t *testing.T) {
	for _, idx := range []int{-1, len(container.ExportFormats)} {
		if _, err := container.At(idx); err == nil {
			t.Fatalf("expected error for index %d", idx)
		}
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		in      string
		want    container.Format
		wantErr bool
	}{
		{"mp4", container.MP4, false},
		{".MKV", container.MKV, false},
		{" WebM ", container.WEBM, false},
		{"gif", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := container.Parse(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("Parse(%q) expected error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("Parse(%q) returned error: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("Parse(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestIsVideoExtension(t *testing.T) {
	for _, ext := range []string{".mp4", "MOV", "m4v", ".ts"} {
		if !container.IsVideoExtension(ext) {
			t.Errorf("expected %q to be a video extension", ext)
		}
	}
	for _, ext := range []string{".txt", "", ".part", "jpg"} {
		if container.IsVideoExtension(ext) {
			t.Errorf("expected %q to be rejected", ext)
		}
	}
}
