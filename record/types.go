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

// Package record defines the textual and binary representation of a
// Nostr event and the length-delimited framing used to store sequences
// of them on disk.
package record

import "fmt"

const (
	IDLen     = 32
	AuthorLen = 32
	SigLen    = 64

	MaxKind = 65535

	SecondsPerDay = 86400
)

// Record is the in-memory representation of one Nostr event.
//
// Hex fields (ID, Author, Sig) are kept as raw bytes internally; the
// textual hex form is only materialized at the JSON boundary.
type Record struct {
	ID        [IDLen]byte
	Author    [AuthorLen]byte
	CreatedAt int64
	Kind      uint16
	Tags      [][]string
	Content   string
	Sig       [SigLen]byte

	// Unknown carries wire field tags this build does not recognize,
	// preserved verbatim so re-encoding does not drop data written by a
	// newer build (see spec §9, "self-describing field tags").
	Unknown []UnknownField

	// overflowKind holds a parsed kind value too large to fit Kind,
	// set only by ParseJSON so the validator can report the real value.
	overflowKind int64

	// hexShapeOK is false when ParseJSON could not decode one of the hex
	// fields (wrong length or non-hex characters) at the JSON boundary;
	// the validator's check_hex_shape reads this directly since the
	// original text is no longer available once parsed into bytes.
	hexShapeOK bool
}

// HexShapeOK reports whether id/author/sig all decoded as well-formed
// lowercase hex of the expected length.
func (r *Record) HexShapeOK() bool { return r.hexShapeOK }

// SetHexShapeOK is exported for callers constructing a Record outside of
// ParseJSON (tests, the binary decoder) that know the hex shape is valid
// by construction.
func (r *Record) SetHexShapeOK(ok bool) { r.hexShapeOK = ok }

// UnknownField is a raw, unparsed TLV entry from the wire format.
type UnknownField struct {
	Tag   uint64
	Bytes []byte
}

// Day returns the UTC partition key for the record, as used for output
// file placement (spec §3, "Partition key").
func (r *Record) Day() (year, month, day int) {
	y, m, d := DayTime(r.CreatedAt).Date()
	return y, int(m), d
}

// DayString renders the partition key as "YYYY_MM_DD".
func (r *Record) DayString() string {
	y, m, d := r.Day()
	return fmt.Sprintf("%04d_%02d_%02d", y, m, d)
}

// IDHex returns the lowercase hex form of ID.
func (r *Record) IDHex() string { return hexEncode(r.ID[:]) }

// AuthorHex returns the lowercase hex form of Author.
func (r *Record) AuthorHex() string { return hexEncode(r.Author[:]) }

// SigHex returns the lowercase hex form of Sig.
func (r *Record) SigHex() string { return hexEncode(r.Sig[:]) }
