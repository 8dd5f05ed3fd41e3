package stream

import (
	"errors"
	"io"
)

// Chain is an ordered list of transforms applied from first to last.
type Chain []Transform

// Apply connects src through every stage of the chain. Closing the returned
// reader closes each stage, innermost last, and then src if it is a closer.
func (c Chain) Apply(src io.Reader) io.ReadCloser {
	stages := make([]io.Closer, 0, len(c)+1)
	if closer, ok := src.(io.Closer); ok {
		stages = append(stages, closer)
	}

	cur := src
	for _, t := range c {
		rc := t(cur)
		stages = append(stages, rc)
		cur = rc
	}

	return &chainReader{Reader: cur, stages: stages}
}

type chainReader struct {
	io.Reader
	stages []io.Closer
	closed bool
}

func (c *chainReader) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true

	var errs []error
	for i := len(c.stages) - 1; i >= 0; i-- {
		if err := c.stages[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
