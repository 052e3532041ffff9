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

package worker

import (
	"bufio"
	"io"
	"math"
	"strings"
)

// EndOfStream is the sentinel End value meaning "read to EOF, whatever
// that is". The coordinator uses it for the single worker reading
// compressed input, which cannot be split by byte range; uncompressed
// runs use the file size as the last worker's End.
const EndOfStream = math.MaxInt64

// LineSource implements the overshoot-to-boundary line reading rule from
// spec §4.6: a worker seeks to the first line boundary at or after
// Start (unless it is worker 0, which starts at byte 0), then reads full
// lines until one whose first byte lies at or beyond End has been fully
// consumed.
type LineSource struct {
	br     *bufio.Reader
	offset int64
	end    int64
	done   bool
}

// OpenLineSource seeks r to start (no-op if workerID==0, which always
// starts at byte 0 per spec §4.6 step 1) and discards a possibly-partial
// first line for non-zero workers, since the previous worker's overshoot
// already owns it.
func OpenLineSource(r io.ReadSeeker, workerID int, start, end int64) (*LineSource, error) {
	seekTo := start
	if workerID == 0 {
		seekTo = 0
	}
	if _, err := r.Seek(seekTo, io.SeekStart); err != nil {
		return nil, err
	}
	br := bufio.NewReaderSize(r, 1<<20)
	ls := &LineSource{br: br, offset: seekTo, end: end}

	if workerID != 0 {
		discarded, err := br.ReadString('\n')
		ls.offset += int64(len(discarded))
		if err != nil && err != io.EOF {
			return nil, err
		}
		if err == io.EOF {
			ls.done = true
		}
	}
	return ls, nil
}

// Next returns the next line (without its trailing newline) and the
// byte offset of its first byte, or io.EOF once the boundary rule says
// this worker is finished.
func (ls *LineSource) Next() (line []byte, start int64, err error) {
	if ls.done {
		return nil, 0, io.EOF
	}
	start = ls.offset
	data, rerr := ls.br.ReadString('\n')
	ls.offset += int64(len(data))

	if len(data) == 0 {
		ls.done = true
		return nil, 0, io.EOF
	}
	if start >= ls.end {
		ls.done = true
	}
	if rerr == io.EOF {
		ls.done = true
	} else if rerr != nil {
		return nil, start, rerr
	}

	return []byte(strings.TrimRight(data, "\r\n")), start, nil
}
