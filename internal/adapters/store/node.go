package store

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/parcel/internal/core/ports"
)

// NodeID is the unique identifier for the receipt store Graft node.
const NodeID graft.ID = "adapter.receipt_store"

// Opener returns the receipt store for an installation root. The root is only
// known once flags and the environment have been resolved, so the graph
// provides the constructor rather than a store.
type Opener func(root string) ports.ReceiptStore

func init() {
	graft.Register(graft.Node[Opener]{
		ID:        NodeID,
		Cacheable: true,
		Run: func(_ context.Context) (Opener, error) {
			return func(root string) ports.ReceiptStore {
				return NewReceiptStore(root)
			}, nil
		},
	})
}
