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
	"crypto/sha256"
	"strconv"
	"strings"
)

// CanonicalHash computes the content hash defined in spec §3: sha256 over
// the canonical JSON-array serialization of
// [0, author, created_at, kind, tags, content].
//
// The serialization is intentionally not encoding/json.Marshal: the hash
// is a cross-implementation wire contract (it must match what produced
// the record's id in the first place) and depends on an exact, minimal
// escaping rule, not on Go's JSON formatting choices.
func CanonicalHash(author [AuthorLen]byte, createdAt int64, kind uint16, tags [][]string, content string) [IDLen]byte {
	var b strings.Builder
	b.Grow(128 + len(content))

	b.WriteByte('[')
	b.WriteString("0,")
	b.WriteByte('"')
	b.WriteString(hexEncode(author[:]))
	b.WriteString("\",")
	b.WriteString(strconv.FormatInt(createdAt, 10))
	b.WriteByte(',')
	b.WriteString(strconv.FormatUint(uint64(kind), 10))
	b.WriteByte(',')
	writeTagsJSON(&b, tags)
	b.WriteByte(',')
	writeJSONString(&b, content)
	b.WriteByte(']')

	return sha256.Sum256([]byte(b.String()))
}

func writeTagsJSON(b *strings.Builder, tags [][]string) {
	b.WriteByte('[')
	for i, tag := range tags {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteByte('[')
		for j, v := range tag {
			if j > 0 {
				b.WriteByte(',')
			}
			writeJSONString(b, v)
		}
		b.WriteByte(']')
	}
	b.WriteByte(']')
}

// writeJSONString escapes s the way the Nostr id-serialization algorithm
// requires: backslash, double quote, and the control characters \n \r \t,
// plus any byte below 0x20 as \u00XX. Everything else (including raw
// UTF-8 multi-byte sequences) passes through unchanged.
func writeJSONString(b *strings.Builder, s string) {
	b.WriteByte('"')
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case '\\':
			b.WriteString(`\\`)
		case '"':
			b.WriteString(`\"`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			if c < 0x20 {
				const hexdigits = "0123456789abcdef"
				b.WriteString(`\u00`)
				b.WriteByte(hexdigits[c>>4])
				b.WriteByte(hexdigits[c&0xf])
			} else {
				b.WriteByte(c)
			}
		}
	}
	b.WriteByte('"')
}
