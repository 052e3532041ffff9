package record

import (
	"bytes"
	"testing"
)

func sampleRecord() *Record {
	r := &Record{
		CreatedAt: 1700000000,
		Kind:      1,
		Tags:      [][]string{{"e", "abcd"}, {"p", "1234", "relay"}},
		Content:   "hello world",
	}
	for i := range r.ID {
		r.ID[i] = byte(i)
	}
	for i := range r.Author {
		r.Author[i] = byte(i + 1)
	}
	for i := range r.Sig {
		r.Sig[i] = byte(i + 2)
	}
	r.SetHexShapeOK(true)
	return r
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	r := sampleRecord()
	enc := Encode(r)

	got, err := Decode(enc)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got.ID != r.ID || got.Author != r.Author || got.Sig != r.Sig {
		t.Fatalf("fixed fields did not round-trip")
	}
	if got.CreatedAt != r.CreatedAt || got.Kind != r.Kind || got.Content != r.Content {
		t.Fatalf("scalar fields did not round-trip")
	}
	if len(got.Tags) != len(r.Tags) {
		t.Fatalf("tag count mismatch: got %d want %d", len(got.Tags), len(r.Tags))
	}
	for i := range r.Tags {
		if len(got.Tags[i]) != len(r.Tags[i]) {
			t.Fatalf("tag %d length mismatch", i)
		}
		for j := range r.Tags[i] {
			if got.Tags[i][j] != r.Tags[i][j] {
				t.Fatalf("tag %d element %d mismatch: got %q want %q", i, j, got.Tags[i][j], r.Tags[i][j])
			}
		}
	}
}

func TestEncodeDeterministic(t *testing.T) {
	r := sampleRecord()
	a := Encode(r)
	b := Encode(r)
	if !bytes.Equal(a, b) {
		t.Fatalf("Encode is not deterministic for an equal Record")
	}
}

func TestDecodePreservesUnknownFields(t *testing.T) {
	r := sampleRecord()
	enc := Encode(r)

	var tmp [10]byte
	n := writeTLVForTest(tmp[:], 99, []byte("extra"))
	enc = append(enc, tmp[:n]...)

	got, err := Decode(enc)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(got.Unknown) != 1 || got.Unknown[0].Tag != 99 || string(got.Unknown[0].Bytes) != "extra" {
		t.Fatalf("unknown field not preserved: %+v", got.Unknown)
	}

	reenc := Encode(got)
	if !bytes.Contains(reenc, []byte("extra")) {
		t.Fatalf("re-encoding dropped the preserved unknown field")
	}
}

// writeTLVForTest mirrors writeTLV's wire shape without depending on its
// bytes.Buffer-based signature, so the unknown-field test can append a
// raw tag/length/value triple after an already-encoded record.
func writeTLVForTest(buf []byte, tag uint64, payload []byte) int {
	var b bytes.Buffer
	writeTLV(&b, tag, payload)
	return copy(buf, b.Bytes())
}

func TestDecodeRejectsTruncatedInput(t *testing.T) {
	r := sampleRecord()
	enc := Encode(r)
	for cut := 1; cut < len(enc); cut += 7 {
		if _, err := Decode(enc[:cut]); err == nil {
			t.Fatalf("Decode accepted truncated input at %d/%d bytes", cut, len(enc))
		}
	}
}
