package stream

import (
	"io"

	"github.com/klauspost/compress/flate"
)

// Inflate decompresses a raw deflate stream (no zlib or gzip framing).
func Inflate(r io.Reader) io.ReadCloser {
	return flate.NewReader(r)
}
