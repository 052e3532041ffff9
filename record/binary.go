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
	"bytes"
	"encoding/binary"
	"fmt"
)

// Wire field tags, spec §6 "Framing per record (binary encoding)".
const (
	tagID        uint64 = 1
	tagAuthor    uint64 = 2
	tagCreatedAt uint64 = 3
	tagKind      uint64 = 4
	tagTagGroup  uint64 = 5
	tagContent   uint64 = 6
	tagSig       uint64 = 7
)

// DecodeError categorizes a structural decode failure so callers can
// charge it to the right accounting bucket (spec §7, "Structural").
type DecodeError struct {
	Offset int
	Reason string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("record: decode error at offset %d: %s", e.Offset, e.Reason)
}

// Encode produces the deterministic binary form of r: every field is
// written in the fixed order id, author, created_at, kind, tags (in
// their original order), content, sig, followed by any preserved
// unknown fields. Two calls with an equal Record always produce
// byte-identical output (spec §4.1, "deterministic byte output").
func Encode(r *Record) []byte {
	var buf bytes.Buffer
	buf.Grow(64 + len(r.Content) + 16*len(r.Tags))

	writeTLV(&buf, tagID, r.ID[:])
	writeTLV(&buf, tagAuthor, r.Author[:])

	var tmp [binary.MaxVarintLen64]byte
	n := binary.PutVarint(tmp[:], r.CreatedAt)
	writeTLV(&buf, tagCreatedAt, tmp[:n])

	n = binary.PutUvarint(tmp[:], uint64(r.Kind))
	writeTLV(&buf, tagKind, tmp[:n])

	for _, tag := range r.Tags {
		writeTLV(&buf, tagTagGroup, encodeTagGroup(tag))
	}

	writeTLV(&buf, tagContent, []byte(r.Content))
	writeTLV(&buf, tagSig, r.Sig[:])

	for _, u := range r.Unknown {
		writeTLV(&buf, u.Tag, u.Bytes)
	}

	return buf.Bytes()
}

func encodeTagGroup(tag []string) []byte {
	var buf bytes.Buffer
	var tmp [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(tmp[:], uint64(len(tag)))
	buf.Write(tmp[:n])
	for _, s := range tag {
		n = binary.PutUvarint(tmp[:], uint64(len(s)))
		buf.Write(tmp[:n])
		buf.WriteString(s)
	}
	return buf.Bytes()
}

func writeTLV(buf *bytes.Buffer, tag uint64, payload []byte) {
	var tmp [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(tmp[:], tag)
	buf.Write(tmp[:n])
	n = binary.PutUvarint(tmp[:], uint64(len(payload)))
	buf.Write(tmp[:n])
	buf.Write(payload)
}

// Decode recovers a Record from its binary form as produced by Encode.
// Unknown tags are preserved verbatim in Record.Unknown; truncated or
// malformed input yields a *DecodeError identifying the byte offset.
func Decode(data []byte) (*Record, error) {
	r := &Record{}
	var sawID, sawAuthor, sawCreatedAt, sawKind, sawContent, sawSig bool

	off := 0
	for off < len(data) {
		start := off
		tag, n := binary.Uvarint(data[off:])
		if n <= 0 {
			return nil, &DecodeError{Offset: start, Reason: "truncated field tag"}
		}
		off += n

		length, n := binary.Uvarint(data[off:])
		if n <= 0 {
			return nil, &DecodeError{Offset: start, Reason: "truncated field length"}
		}
		off += n

		if length > uint64(len(data)-off) {
			return nil, &DecodeError{Offset: start, Reason: "field length exceeds remaining bytes"}
		}
		payload := data[off : off+int(length)]
		off += int(length)

		switch tag {
		case tagID:
			if len(payload) != IDLen {
				return nil, &DecodeError{Offset: start, Reason: "invalid id length"}
			}
			copy(r.ID[:], payload)
			sawID = true
		case tagAuthor:
			if len(payload) != AuthorLen {
				return nil, &DecodeError{Offset: start, Reason: "invalid author length"}
			}
			copy(r.Author[:], payload)
			sawAuthor = true
		case tagCreatedAt:
			v, n := binary.Varint(payload)
			if n <= 0 || n != len(payload) {
				return nil, &DecodeError{Offset: start, Reason: "invalid created_at varint"}
			}
			r.CreatedAt = v
			sawCreatedAt = true
		case tagKind:
			v, n := binary.Uvarint(payload)
			if n <= 0 || n != len(payload) || v > MaxKind {
				return nil, &DecodeError{Offset: start, Reason: "invalid kind varint"}
			}
			r.Kind = uint16(v)
			sawKind = true
		case tagTagGroup:
			group, err := decodeTagGroup(payload)
			if err != nil {
				return nil, &DecodeError{Offset: start, Reason: err.Error()}
			}
			r.Tags = append(r.Tags, group)
		case tagContent:
			r.Content = string(payload)
			sawContent = true
		case tagSig:
			if len(payload) != SigLen {
				return nil, &DecodeError{Offset: start, Reason: "invalid sig length"}
			}
			copy(r.Sig[:], payload)
			sawSig = true
		default:
			cp := make([]byte, len(payload))
			copy(cp, payload)
			r.Unknown = append(r.Unknown, UnknownField{Tag: tag, Bytes: cp})
		}
	}

	if !sawID || !sawAuthor || !sawCreatedAt || !sawKind || !sawContent || !sawSig {
		return nil, &DecodeError{Offset: off, Reason: "missing required field"}
	}
	r.hexShapeOK = true
	return r, nil
}

func decodeTagGroup(payload []byte) ([]string, error) {
	off := 0
	count, n := binary.Uvarint(payload[off:])
	if n <= 0 {
		return nil, fmt.Errorf("invalid tag group count")
	}
	off += n
	if count == 0 {
		return nil, fmt.Errorf("empty tag group")
	}
	group := make([]string, 0, count)
	for i := uint64(0); i < count; i++ {
		l, n := binary.Uvarint(payload[off:])
		if n <= 0 {
			return nil, fmt.Errorf("invalid tag element length")
		}
		off += n
		if l > uint64(len(payload)-off) {
			return nil, fmt.Errorf("tag element length exceeds remaining bytes")
		}
		group = append(group, string(payload[off:off+int(l)]))
		off += int(l)
	}
	return group, nil
}
