package ports

import (
	"context"
	"time"

	"go.trai.ch/parcel/internal/core/domain"
)

// Renderer is the abstraction for output rendering.
// It receives installer lifecycle events and span boundaries, allowing the
// same stream to drive either an in-place progress line or linear CI logs.
//
//go:generate go run go.uber.org/mock/mockgen -source=renderer.go -destination=mocks/mock_renderer.go -package=mocks
type Renderer interface {
	// OnEvent is called for every installer lifecycle event.
	OnEvent(event domain.Event)

	// Start initializes the renderer and begins its lifecycle.
	Start(ctx context.Context) error

	// Stop signals the renderer to stop accepting new events and flush any buffered output.
	Stop() error

	// Wait blocks until the renderer has fully terminated.
	Wait() error

	// OnSpanStart is called when a traced operation begins.
	// spanID: unique identifier for this operation
	// parentID: spanID of the enclosing operation (empty if root)
	// name: human-readable operation name
	OnSpanStart(spanID, parentID, name string, startTime time.Time)

	// OnSpanComplete is called when a traced operation finishes.
	// err: nil if successful, error otherwise
	OnSpanComplete(spanID string, endTime time.Time, err error)
}
