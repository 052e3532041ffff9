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
	"encoding/hex"
	"time"
)

func hexEncode(b []byte) string {
	return hex.EncodeToString(b)
}

// isLowerHex reports whether s is exactly n bytes of [0-9a-f].
func isLowerHex(s string, n int) bool {
	if len(s) != n {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}

func decodeHexFixed(s string, out []byte) bool {
	if !isLowerHex(s, len(out)*2) {
		return false
	}
	_, err := hex.Decode(out, []byte(s))
	return err == nil
}

// MinYear/MaxYear bound the civil dates this build treats as
// representable; created_at values whose UTC date falls outside this
// range are rejected as nonrepresentable_timestamp rather than producing
// a partition filename with an absurd year.
const (
	MinYear = 1970
	MaxYear = 9999
)

// DayTime converts a created_at timestamp to its UTC time.Time.
func DayTime(createdAt int64) time.Time {
	return time.Unix(createdAt, 0).UTC()
}

// Representable reports whether createdAt falls within the civil date
// range this build is willing to partition by.
func Representable(createdAt int64) bool {
	y := DayTime(createdAt).Year()
	return y >= MinYear && y <= MaxYear
}

// DayIndex returns floor(createdAt/86400), the integer day spec §3 defines
// the partition key from.
func DayIndex(createdAt int64) int64 {
	d := createdAt / SecondsPerDay
	if createdAt%SecondsPerDay != 0 && createdAt < 0 {
		d--
	}
	return d
}
