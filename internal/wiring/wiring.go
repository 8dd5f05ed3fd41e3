// Package wiring registers all Graft nodes for the application.
package wiring

import (
	// Register adapter nodes.
	_ "go.trai.ch/parcel/internal/adapters/config"
	_ "go.trai.ch/parcel/internal/adapters/fs"
	_ "go.trai.ch/parcel/internal/adapters/logger"
	_ "go.trai.ch/parcel/internal/adapters/store"
	_ "go.trai.ch/parcel/internal/adapters/transport"
	// Register the app node.
	_ "go.trai.ch/parcel/internal/app"
)
