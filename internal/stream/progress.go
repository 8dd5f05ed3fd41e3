package stream

import "io"

// ProgressFunc receives cumulative bytes written and the expected total.
type ProgressFunc func(written, total int64)

// ProgressWriter forwards writes to an underlying writer and reports progress
// after each one. Reported values start at zero, strictly increase, and never
// exceed the expected total.
type ProgressWriter struct {
	w        io.Writer
	fn       ProgressFunc
	total    int64
	written  int64
	reported int64
	started  bool
}

// NewProgressWriter returns a ProgressWriter expecting total bytes.
func NewProgressWriter(w io.Writer, total int64, fn ProgressFunc) *ProgressWriter {
	return &ProgressWriter{w: w, fn: fn, total: total}
}

// Start emits the initial zero progress report. It is idempotent.
func (p *ProgressWriter) Start() {
	if p.started {
		return
	}
	p.started = true
	p.reported = 0
	if p.fn != nil {
		p.fn(0, p.total)
	}
}

// Write implements io.Writer.
func (p *ProgressWriter) Write(b []byte) (int, error) {
	p.Start()

	n, err := p.w.Write(b)
	p.written += int64(n)

	next := min(p.written, p.total)
	if next > p.reported {
		p.reported = next
		if p.fn != nil {
			p.fn(next, p.total)
		}
	}

	return n, err
}

// Written returns the number of bytes actually written, unclamped.
func (p *ProgressWriter) Written() int64 {
	return p.written
}
