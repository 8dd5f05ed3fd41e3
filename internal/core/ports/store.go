package ports

import "go.trai.ch/parcel/internal/core/domain"

// ReceiptStore persists install receipts.
//
//go:generate go run go.uber.org/mock/mockgen -source=store.go -destination=mocks/mock_store.go -package=mocks
type ReceiptStore interface {
	// Get retrieves the receipt of the named package.
	// Returns nil, nil if not found.
	Get(name string) (*domain.Receipt, error)

	// Put atomically stores the receipt.
	Put(receipt domain.Receipt) error
}
