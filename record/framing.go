/*
Copyright (C) 2026  nostrbase contributors

	This program is free software: you can redistribute it and/or modify
	it under the terms of the GNU General Public License as published by
	the Free Software Foundation, either version 3 of the License, or
	(at your option) any later version.

	This program is distributed in the hope that it will be useful,
	but WITHOUT ANY WARRANTY; without even the implied warranty of
	MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
	GNU General Public License for more details.

	You should have received a copy of the GNU General Public License
	along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

package record

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
)

// FramingError reports a failure to read the length prefix or body of a
// framed record at a given byte offset (spec §4.1: "a framing error on
// one record terminates the iterator with an error that identifies the
// offending offset").
type FramingError struct {
	Offset int64
	Err    error
}

func (e *FramingError) Error() string {
	return fmt.Sprintf("record: framing error at offset %d: %v", e.Offset, e.Err)
}

func (e *FramingError) Unwrap() error { return e.Err }

// WriteFramed emits a varint length prefix followed by the encoded form
// of r.
func WriteFramed(w io.Writer, r *Record) error {
	b := Encode(r)
	var tmp [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(tmp[:], uint64(len(b)))
	if _, err := w.Write(tmp[:n]); err != nil {
		return err
	}
	_, err := w.Write(b)
	return err
}

// FrameReader presents a lazy, restartable iterator over a framed byte
// stream. It is restartable across records but not mid-record: once Next
// returns an error, the reader must not be used again.
type FrameReader struct {
	r      *bufio.Reader
	offset int64
}

// NewFrameReader wraps r for record-by-record reading. The supplied
// reader should already present an unbounded decompressed byte stream if
// the underlying file is compressed (spec §9, "the framing layer must
// not assume block alignment of the compressor and records").
func NewFrameReader(r io.Reader) *FrameReader {
	return &FrameReader{r: bufio.NewReaderSize(r, 64*1024)}
}

// Next returns the next record, io.EOF when the stream is exhausted
// cleanly between records, or a *FramingError identifying the byte
// offset of a truncated/malformed frame.
func (fr *FrameReader) Next() (*Record, error) {
	startOffset := fr.offset
	length, err := binary.ReadUvarint(fr.r)
	if err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, &FramingError{Offset: startOffset, Err: err}
	}
	fr.offset += int64(uvarintLen(length))

	buf := make([]byte, length)
	if _, err := io.ReadFull(fr.r, buf); err != nil {
		return nil, &FramingError{Offset: startOffset, Err: fmt.Errorf("truncated record body: %w", err)}
	}
	fr.offset += int64(length)

	rec, err := Decode(buf)
	if err != nil {
		return nil, &FramingError{Offset: startOffset, Err: err}
	}
	return rec, nil
}

func uvarintLen(v uint64) int {
	n := 1
	for v >= 0x80 {
		v >>= 7
		n++
	}
	return n
}
