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

// Package prefilter implements the byte-level sniff (spec §4.3, C3) that
// discards obviously out-of-range records before paying full JSON parse
// and validation cost.
package prefilter

import "github.com/nostrbase/archiver/record"

// Keep reports whether line is worth parsing further. It looks only for
// a `"kind"` numeric literal in the raw bytes; a record whose kind
// exceeds the maximum permitted value is dropped here, everything else
// defers to the structural parser (spec §4.3: "on ambiguous input it
// defers").
func Keep(line []byte) bool {
	kind, ok := sniffKind(line)
	if !ok {
		return true
	}
	return kind <= record.MaxKind
}

// sniffKind scans for `"kind"` followed by `:` and a run of ASCII digits,
// without a full JSON parse. It returns ok=false if no such literal is
// unambiguously locatable (e.g. the key is absent, or appears inside a
// string value elsewhere and the heuristic can't tell).
func sniffKind(line []byte) (value int64, ok bool) {
	const key = `"kind"`
	idx := indexOf(line, key)
	if idx < 0 {
		return 0, false
	}
	i := idx + len(key)
	// skip whitespace
	for i < len(line) && isSpace(line[i]) {
		i++
	}
	if i >= len(line) || line[i] != ':' {
		return 0, false
	}
	i++
	for i < len(line) && isSpace(line[i]) {
		i++
	}
	start := i
	for i < len(line) && line[i] >= '0' && line[i] <= '9' {
		i++
	}
	if i == start {
		return 0, false
	}
	// Cap digit run length to avoid overflow on pathological input; any
	// run this long is already far out of range.
	digits := line[start:i]
	if len(digits) > 18 {
		return 1 << 62, true
	}
	var v int64
	for _, c := range digits {
		v = v*10 + int64(c-'0')
	}
	return v, true
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}

func indexOf(haystack []byte, needle string) int {
	n := len(needle)
	for i := 0; i+n <= len(haystack); i++ {
		if string(haystack[i:i+n]) == needle {
			return i
		}
	}
	return -1
}
