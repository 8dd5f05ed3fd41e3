package ports

import "go.trai.ch/parcel/internal/core/domain"

// Observer receives lifecycle events for a single operation. It is passed
// explicitly to the installer rather than registered globally.
//
//go:generate go run go.uber.org/mock/mockgen -source=observer.go -destination=mocks/mock_observer.go -package=mocks
type Observer interface {
	OnEvent(event domain.Event)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(event domain.Event)

// OnEvent calls f(event).
func (f ObserverFunc) OnEvent(event domain.Event) {
	f(event)
}
