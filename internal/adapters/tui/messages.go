package tui

import (
	"time"

	"go.trai.ch/parcel/internal/core/domain"
)

// MsgEvent carries an installer lifecycle event.
type MsgEvent struct {
	Event domain.Event
}

// MsgSpanStart indicates a traced operation has started.
type MsgSpanStart struct {
	SpanID    string
	ParentID  string // May be empty if root
	Name      string
	StartTime time.Time
}

// MsgSpanComplete indicates a traced operation has finished.
type MsgSpanComplete struct {
	SpanID  string
	EndTime time.Time
	Err     error
}
