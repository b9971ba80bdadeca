package testsupport

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

// fakeMP4Header is enough of an ftyp box for anything that sniffs the file.
var fakeMP4Header = []byte{0x00, 0x00, 0x00, 0x18, 'f', 't', 'y', 'p', 'i', 's', 'o', 'm'}

// WriteVideo creates a placeholder input file of roughly size bytes and
// returns its path. Parent directories are created as needed.
func WriteVideo(t testing.TB, path string, size int) string {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	body := fakeMP4Header
	if pad := size - len(body); pad > 0 {
		body = append(append([]byte(nil), body...), bytes.Repeat([]byte{0x42}, pad)...)
	}
	if err := os.WriteFile(path, body, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}
