package record

import (
	"bytes"
	"errors"
	"io"
	"testing"
)

func TestFrameReaderRoundTrip(t *testing.T) {
	records := []*Record{sampleRecord(), sampleRecord(), sampleRecord()}
	records[1].Content = "second"
	records[2].Content = "third"

	var buf bytes.Buffer
	for _, r := range records {
		if err := WriteFramed(&buf, r); err != nil {
			t.Fatalf("WriteFramed: %v", err)
		}
	}

	fr := NewFrameReader(&buf)
	for i, want := range records {
		got, err := fr.Next()
		if err != nil {
			t.Fatalf("Next(%d): %v", i, err)
		}
		if got.Content != want.Content {
			t.Fatalf("record %d content mismatch: got %q want %q", i, got.Content, want.Content)
		}
	}
	if _, err := fr.Next(); err != io.EOF {
		t.Fatalf("Next() at end = %v, want io.EOF", err)
	}
}

func TestFrameReaderTruncatedBody(t *testing.T) {
	r := sampleRecord()
	var buf bytes.Buffer
	if err := WriteFramed(&buf, r); err != nil {
		t.Fatalf("WriteFramed: %v", err)
	}

	truncated := buf.Bytes()[:buf.Len()-5]
	fr := NewFrameReader(bytes.NewReader(truncated))
	_, err := fr.Next()
	if err == nil {
		t.Fatalf("Next() on truncated frame returned no error")
	}
	var fe *FramingError
	if !errors.As(err, &fe) {
		t.Fatalf("expected *FramingError, got %T: %v", err, err)
	}
	if fe.Offset != 0 {
		t.Fatalf("FramingError.Offset = %d, want 0", fe.Offset)
	}
}
