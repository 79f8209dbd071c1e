// Package wiring registers all Graft nodes for the application.
package wiring

import (
	// Register adapter nodes.
	_ "go.trai.ch/ims/internal/adapters/config"
	_ "go.trai.ch/ims/internal/adapters/fingerprint"
	_ "go.trai.ch/ims/internal/adapters/logger"
	_ "go.trai.ch/ims/internal/adapters/telemetry"
	// Register app nodes.
	_ "go.trai.ch/ims/internal/app"
)
