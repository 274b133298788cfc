// Package sdk provides the core interfaces and types for chronoforge's
// engine plugin system. An engine is a pluggable AllocationStrategy:
// a component the allocator consults to break ties among resource
// candidates that already satisfy every scheduling invariant (see
// internal/scheduling/application/services.AllocationStrategy).
package sdk

import (
	"context"
)

// EngineType identifies the kind of pluggable component a manifest
// describes. Only one is defined today, but the type stays distinct from a
// bare string so a future second plugin category (e.g. a reporting
// formatter) can be added without reshaping the registry/grpc plumbing.
type EngineType string

const (
	EngineTypeAllocation EngineType = "allocation"
)

// String returns the string representation of the engine type.
func (t EngineType) String() string {
	return string(t)
}

// IsValid checks if the engine type is valid.
func (t EngineType) IsValid() bool {
	switch t {
	case EngineTypeAllocation:
		return true
	default:
		return false
	}
}

// Engine is the base interface all engines must implement.
// This provides identity, configuration, and lifecycle management.
type Engine interface {
	// Metadata returns engine identification and capabilities.
	Metadata() EngineMetadata

	// Type returns the engine type.
	Type() EngineType

	// ConfigSchema returns the JSON Schema for configuration.
	// This enables auto-generated UI for marketplace configuration.
	ConfigSchema() ConfigSchema

	// Initialize sets up the engine with the provided configuration.
	// This is called once when the engine is loaded.
	Initialize(ctx context.Context, config EngineConfig) error

	// HealthCheck returns the current health status of the engine.
	// Called periodically to monitor engine health.
	HealthCheck(ctx context.Context) HealthStatus

	// Shutdown gracefully stops the engine and releases resources.
	Shutdown(ctx context.Context) error
}

// EngineFactory creates engine instances.
// Used by the registry to defer engine instantiation.
type EngineFactory func() (Engine, error)
