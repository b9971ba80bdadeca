package transcode_test

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"compressum/internal/container"
	"compressum/internal/services"
	"compressum/internal/transcode"
)

func writeInput(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("not really video"), 0o644); err != nil {
		t.Fatalf("write input: %v", err)
	}
	return path
}

func TestOutputPathDefaultsToInputParent(t *testing.T) {
	dir := t.TempDir()
	req := transcode.Request{InputPath: filepath.Join(dir, "holiday.mov"), Format: container.MP4}
	want := filepath.Join(dir, "holiday_compressed.mp4")
	if got := req.OutputPath(); got != want {
		t.Fatalf("OutputPath = %q, want %q", got, want)
	}
}

func TestOutputPathUsesChosenDirectory(t *testing.T) {
	req := transcode.Request{
		InputPath:       "/videos/clip.final.avi",
		OutputDirectory: "/exports",
		Format:          container.WEBM,
	}
	if got, want := req.OutputPath(), "/exports/clip.final_compressed.webm"; got != want {
		t.Fatalf("OutputPath = %q, want %q", got, want)
	}
}

func TestFormatIndexSelectsExtension(t *testing.T) {
	format, err := container.At(3)
	if err != nil {
		t.Fatalf("At(3): %v", err)
	}
	req := transcode.Request{InputPath: "/in/a.mp4", Format: format}
	if got := filepath.Ext(req.OutputPath()); got != ".mkv" {
		t.Fatalf("extension = %q, want .mkv", got)
	}
}

func TestArgsAreExplicitArray(t *testing.T) {
	req := transcode.Request{
		InputPath:       "/in/my file; rm -rf.mov",
		OutputDirectory: "/out dir",
		Format:          container.MP4,
	}
	want := []string{"-i", "/in/my file; rm -rf.mov", "-preset", "ultrafast", "/out dir/my file; rm -rf_compressed.mp4"}
	if got := req.Args("ultrafast"); !reflect.DeepEqual(got, want) {
		t.Fatalf("Args = %#v, want %#v", got, want)
	}
}

func TestPresetsName(t *testing.T) {
	if got := transcode.DefaultPresets.Name(transcode.SpeedFast); got != "ultrafast" {
		t.Fatalf("fast preset = %q", got)
	}
	if got := transcode.DefaultPresets.Name(transcode.SpeedSlow); got != "fast" {
		t.Fatalf("slow preset = %q", got)
	}
	custom := transcode.Presets{Fast: "veryfast", Slow: " "}
	if got := custom.Name(transcode.SpeedFast); got != "veryfast" {
		t.Fatalf("custom fast preset = %q", got)
	}
	if got := custom.Name(transcode.SpeedSlow); got != "fast" {
		t.Fatalf("blank slow preset should fall back, got %q", got)
	}
	if transcode.SpeedFromToggle(true) != transcode.SpeedFast || transcode.SpeedFromToggle(false) != transcode.SpeedSlow {
		t.Fatal("SpeedFromToggle mapping wrong")
	}
}

func TestWithDropped(t *testing.T) {
	req := transcode.Request{InputPath: "/picked.mov"}
	if got := req.WithDropped("").InputPath; got != "/picked.mov" {
		t.Fatalf("empty drop replaced input: %q", got)
	}
	if got := req.WithDropped("/dropped.avi").InputPath; got != "/dropped.avi" {
		t.Fatalf("drop not applied: %q", got)
	}
}

func TestValidateRejectsBadRequests(t *testing.T) {
	dir := t.TempDir()
	input := writeInput(t, dir, "in.mov")
	cases := map[string]transcode.Request{
		"empty input":     {InputPath: "   ", Format: container.MP4},
		"missing input":   {InputPath: filepath.Join(dir, "absent.mov"), Format: container.MP4},
		"directory input": {InputPath: dir, Format: container.MP4},
		"bad format":      {InputPath: input, Format: container.Format("GIF")},
		"bad speed":       {InputPath: input, Format: container.MP4, Speed: transcode.Speed(7)},
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			err := req.Validate()
			if !errors.Is(err, services.ErrInvalidRequest) {
				t.Fatalf("expected ErrInvalidRequest, got %v", err)
			}
		})
	}
	if err := (transcode.Request{InputPath: input, Format: container.MOV}).Validate(); err != nil {
		t.Fatalf("valid request rejected: %v", err)
	}
}

func TestResolveMakesPathsAbsolute(t *testing.T) {
	dir := t.TempDir()
	writeInput(t, dir, "rel.mov")
	t.Chdir(dir)
	req, err := transcode.Request{InputPath: " rel.mov ", OutputDirectory: "out", Format: container.MP4}.Resolve()
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !filepath.IsAbs(req.InputPath) || !filepath.IsAbs(req.OutputDirectory) {
		t.Fatalf("expected absolute paths, got %q and %q", req.InputPath, req.OutputDirectory)
	}
	if filepath.Base(req.OutputPath()) != "rel_compressed.mp4" {
		t.Fatalf("unexpected output %q", req.OutputPath())
	}
}
