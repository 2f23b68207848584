/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

// Package service provides primitives for running application components
// (HTTP servers, background workers) and stopping them gracefully by OS signal.
package service

// Unit represents a service unit that can be started and stopped.
type Unit interface {
	// Start begins the unit's operation. It may return immediately or block for the unit's lifetime.
	// A fatal error must be sent into the channel, the channel must not be used after Start returns.
	Start(fatalErr chan<- error)

	// Stop halts the unit. It may be called even if Start has failed or was never called.
	Stop(gracefully bool) error
}

// MetricsRegisterer is an interface for objects that can register its own metrics.
type MetricsRegisterer interface {
	MustRegisterMetrics()
	UnregisterMetrics()
}
