// Package store persists install receipts next to the packages they describe.
package store

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"

	parcelfs "go.trai.ch/parcel/internal/adapters/fs"
	"go.trai.ch/parcel/internal/core/domain"
	"go.trai.ch/parcel/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.ReceiptStore = (*ReceiptStore)(nil)

// ReceiptStore implements ports.ReceiptStore with one JSON file per package
// at R/<name>/.parcel/receipt.json.
type ReceiptStore struct {
	layout domain.Layout
}

// NewReceiptStore creates a ReceiptStore below the given installation root.
func NewReceiptStore(root string) *ReceiptStore {
	return &ReceiptStore{layout: domain.NewLayout(root)}
}

// Get retrieves the receipt of the named package.
// Returns nil, nil if not found.
func (s *ReceiptStore) Get(name string) (*domain.Receipt, error) {
	path := s.layout.ReceiptPath(name)
	//nolint:gosec // Path is constructed from the installation root and a validated package name
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, errors.Join(domain.ErrReceiptReadFailed, zerr.With(zerr.Wrap(err, "failed to read receipt"), "path", path))
	}

	var receipt domain.Receipt
	if err := json.Unmarshal(data, &receipt); err != nil {
		return nil, errors.Join(domain.ErrReceiptUnmarshalFailed, zerr.With(zerr.Wrap(err, "failed to decode receipt"), "path", path))
	}

	return &receipt, nil
}

// Put atomically stores the receipt.
func (s *ReceiptStore) Put(receipt domain.Receipt) error {
	data, err := json.MarshalIndent(receipt, "", "  ")
	if err != nil {
		return errors.Join(domain.ErrReceiptWriteFailed, zerr.Wrap(err, "failed to encode receipt"))
	}

	path := s.layout.ReceiptPath(receipt.Name)
	if err := parcelfs.WriteFileAtomic(path, data); err != nil {
		return errors.Join(domain.ErrReceiptWriteFailed, zerr.With(zerr.Wrap(err, "failed to write receipt"), "path", path))
	}

	return nil
}
