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

package coordinator

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"
)

// codec names the transparent input decompression supported by the
// coordinator (SPEC_FULL.md §11, domain stack).
type codec int

const (
	codecNone codec = iota
	codecGzip
	codecZstd
	codecXZ
)

func detectCodec(path string) codec {
	switch {
	case strings.HasSuffix(path, ".gz"):
		return codecGzip
	case strings.HasSuffix(path, ".zst"):
		return codecZstd
	case strings.HasSuffix(path, ".xz"):
		return codecXZ
	default:
		return codecNone
	}
}

// errNoRandomAccess is returned by sequentialSource.Seek for any target
// other than the very start of the stream.
var errNoRandomAccess = errors.New("coordinator: compressed input does not support random access")

// sequentialSource adapts a forward-only decompressing io.Reader to the
// io.ReadSeeker shape LineSource expects, supporting only a single
// Seek(0, io.SeekStart) at open time (worker 0's own no-op seek). This is
// the concrete form of the "collapse to one sequential worker" decision
// recorded in DESIGN.md for compressed input.
type sequentialSource struct {
	r          io.Reader
	decoderEnd func() // zstd's Decoder.Close takes no error
	file       io.Closer
}

func (s *sequentialSource) Read(p []byte) (int, error) { return s.r.Read(p) }

func (s *sequentialSource) Seek(offset int64, whence int) (int64, error) {
	if offset == 0 && whence == io.SeekStart {
		return 0, nil
	}
	return 0, errNoRandomAccess
}

func (s *sequentialSource) Close() error {
	if s.decoderEnd != nil {
		s.decoderEnd()
	}
	if s.file != nil {
		return s.file.Close()
	}
	return nil
}

// openDecompressed opens path and wraps it in the decompressor for c,
// returning a sequential-only ReadSeeker plus a closer for both layers.
func openDecompressed(path string, c codec) (*sequentialSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	var r io.Reader
	var decoderEnd func()
	switch c {
	case codecGzip:
		gz, err := gzip.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("coordinator: open gzip input: %w", err)
		}
		r = gz
		decoderEnd = func() { gz.Close() }
	case codecZstd:
		zr, err := zstd.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("coordinator: open zstd input: %w", err)
		}
		r = zr
		decoderEnd = zr.Close
	case codecXZ:
		xr, err := xz.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("coordinator: open xz input: %w", err)
		}
		r = xr
	default:
		f.Close()
		return nil, fmt.Errorf("coordinator: openDecompressed called with codecNone")
	}
	return &sequentialSource{r: r, decoderEnd: decoderEnd, file: f}, nil
}
