// Package linear provides a synchronous, line-oriented renderer for CI
// environments and piped output.
package linear

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/muesli/termenv"
	"go.trai.ch/parcel/internal/core/domain"
	"go.trai.ch/parcel/internal/ui/output"
	"go.trai.ch/parcel/internal/ui/status"
	"go.trai.ch/parcel/internal/ui/style"
)

// Renderer implements ports.Renderer. Package events go to stdout, one line
// each; finished spans are reported on stderr.
type Renderer struct {
	stdout io.Writer
	stderr io.Writer
	output *termenv.Output

	mu       sync.Mutex
	spans    map[string]*spanState
	progress map[string]int // package -> last quarter printed
}

type spanState struct {
	name      string
	startTime time.Time
}

// NewRenderer creates a new Renderer. Nil writers default to the process streams.
func NewRenderer(stdout, stderr io.Writer) *Renderer {
	if stdout == nil {
		stdout = os.Stdout
	}
	if stderr == nil {
		stderr = os.Stderr
	}

	return &Renderer{
		stdout:   stdout,
		stderr:   stderr,
		output:   output.NewWithProfile(stderr, output.ColorProfileANSI),
		spans:    make(map[string]*spanState),
		progress: make(map[string]int),
	}
}

// Start is a no-op; the renderer is synchronous.
func (r *Renderer) Start(_ context.Context) error {
	return nil
}

// Stop is a no-op; every line is written as it arrives.
func (r *Renderer) Stop() error {
	return nil
}

// Wait is a no-op; the renderer is synchronous.
func (r *Renderer) Wait() error {
	return nil
}

// OnEvent prints a line for a package event. Progress is reported once per
// quarter of the download so large packages do not flood the log.
func (r *Renderer) OnEvent(e domain.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch e.Kind {
	case domain.EventBeforeDownload:
		r.progress[e.Package] = -1
	case domain.EventProgress:
		q := status.Quarter(e)
		last, ok := r.progress[e.Package]
		if !ok {
			last = -1
		}
		if q <= last {
			return
		}
		r.progress[e.Package] = q
	}

	if status.Final(e) {
		delete(r.progress, e.Package)
	}

	_, _ = fmt.Fprintf(r.stdout, "[%s] %s\n", e.Package, status.Line(e))
}

// OnSpanStart records when an operation started.
func (r *Renderer) OnSpanStart(spanID, _ /* parentID */, name string, startTime time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.spans[spanID] = &spanState{name: name, startTime: startTime}
}

// OnSpanComplete prints the outcome and duration of an operation.
func (r *Renderer) OnSpanComplete(spanID string, endTime time.Time, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	span, ok := r.spans[spanID]
	if !ok {
		return
	}
	delete(r.spans, spanID)

	prefix := r.output.String(fmt.Sprintf("[%s]", span.name)).Faint().String()
	summary := status.Completion(span.name, endTime.Sub(span.startTime), err)

	if err != nil {
		symbol := r.output.String(style.Cross).Foreground(termenv.ANSIRed).String()
		_, _ = fmt.Fprintf(r.stderr, "%s %s %s\n", prefix, symbol, summary)
		return
	}
	symbol := r.output.String(style.Check).Foreground(termenv.ANSIGreen).String()
	_, _ = fmt.Fprintf(r.stderr, "%s %s %s\n", prefix, symbol, summary)
}
