package coordinator

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
)

func TestDetectCodec(t *testing.T) {
	cases := map[string]codec{
		"events.ndjson":    codecNone,
		"events.ndjson.gz": codecGzip,
		"events.zst":       codecZstd,
		"events.xz":        codecXZ,
	}
	for name, want := range cases {
		if got := detectCodec(name); got != want {
			t.Errorf("detectCodec(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestOpenDecompressedGzipReadsThroughToPlainText(t *testing.T) {
	path := filepath.Join(t.TempDir(), "input.gz")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	gz := gzip.NewWriter(f)
	if _, err := gz.Write([]byte("line one\nline two\n")); err != nil {
		t.Fatalf("gz.Write: %v", err)
	}
	if err := gz.Close(); err != nil {
		t.Fatalf("gz.Close: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("f.Close: %v", err)
	}

	src, err := openDecompressed(path, codecGzip)
	if err != nil {
		t.Fatalf("openDecompressed: %v", err)
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if string(data) != "line one\nline two\n" {
		t.Fatalf("got %q", data)
	}
}

func TestSequentialSourceRejectsNonZeroSeek(t *testing.T) {
	path := filepath.Join(t.TempDir(), "input.gz")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	gz := gzip.NewWriter(f)
	gz.Write([]byte("x\n"))
	gz.Close()
	f.Close()

	src, err := openDecompressed(path, codecGzip)
	if err != nil {
		t.Fatalf("openDecompressed: %v", err)
	}
	defer src.Close()

	if _, err := src.Seek(0, io.SeekStart); err != nil {
		t.Fatalf("Seek(0, SeekStart) should always succeed: %v", err)
	}
	if _, err := src.Seek(5, io.SeekStart); err != errNoRandomAccess {
		t.Fatalf("Seek(5, SeekStart) = %v, want errNoRandomAccess", err)
	}
}
