// Package stream provides the byte-accurate slicing and streaming primitives
// used to peel nested archive layers out of a root resource.
package stream

import (
	"io"
)

// Transform wraps a reader with one stage of the extraction chain.
type Transform func(io.Reader) io.ReadCloser

// RangeReader emits the bytes in [start, start+length) of its source.
// A negative length means open-ended. Each source read yields at most one
// output chunk, so chunk boundaries of the source are preserved after the
// leading skip is trimmed.
type RangeReader struct {
	src    io.Reader
	skip   int64
	remain int64
	err    error
}

// NewRangeReader returns a reader over the byte range of src starting at start.
func NewRangeReader(src io.Reader, start, length int64) *RangeReader {
	return &RangeReader{src: src, skip: start, remain: length}
}

// Read implements io.Reader.
func (r *RangeReader) Read(p []byte) (int, error) {
	if r.remain == 0 {
		return 0, io.EOF
	}
	if r.err != nil {
		return 0, r.err
	}
	if len(p) == 0 {
		return 0, nil
	}

	for {
		n, err := r.src.Read(p)
		chunk := p[:n]

		if r.skip > 0 {
			if int64(n) <= r.skip {
				r.skip -= int64(n)
				chunk = nil
			} else {
				chunk = p[r.skip:n]
				r.skip = 0
			}
		}

		if r.remain > 0 && int64(len(chunk)) > r.remain {
			chunk = chunk[:r.remain]
		}

		if err != nil {
			r.err = err
			if err == io.EOF && r.remain > 0 && int64(len(chunk)) < r.remain {
				r.err = io.ErrUnexpectedEOF
			}
		}

		if len(chunk) > 0 {
			m := copy(p, chunk)
			if r.remain > 0 {
				r.remain -= int64(m)
			}
			return m, nil
		}

		if r.err != nil {
			return 0, r.err
		}
	}
}

// Range returns a Transform that slices [offset, offset+length) out of its input.
func Range(offset, length int64) Transform {
	return func(r io.Reader) io.ReadCloser {
		return io.NopCloser(NewRangeReader(r, offset, length))
	}
}

// Empty returns a byte source that is immediately exhausted.
func Empty() io.ReadCloser {
	return io.NopCloser(eofReader{})
}

type eofReader struct{}

func (eofReader) Read([]byte) (int, error) {
	return 0, io.EOF
}
