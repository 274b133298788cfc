// Package enginesdk provides the public SDK for building chronoforge
// allocation strategy engine plugins.
//
// This package re-exports types from the internal engine SDK to provide a stable
// public API for third-party plugin developers. Plugin developers should use this
// package instead of importing internal packages directly.
//
// Example usage:
//
//	package main
//
//	import (
//		"context"
//		"github.com/felixgeelhaar/chronoforge/pkg/enginesdk"
//	)
//
//	type MyAllocationEngine struct {
//		config enginesdk.EngineConfig
//	}
//
//	func (e *MyAllocationEngine) Metadata() enginesdk.EngineMetadata {
//		return enginesdk.EngineMetadata{
//			ID:          "mycompany.allocation.v1",
//			Name:        "My Allocation Strategy",
//			Version:     "1.0.0",
//			Author:      "My Company",
//			Description: "Custom tie-break strategy",
//		}
//	}
//
//	func main() {
//		enginesdk.Serve(&MyAllocationEngine{})
//	}
package enginesdk

import (
	"github.com/felixgeelhaar/chronoforge/internal/engine/sdk"
	"github.com/felixgeelhaar/chronoforge/internal/engine/types"
)

// Engine Types
type (
	// EngineType defines the type of engine.
	EngineType = sdk.EngineType

	// Engine is the base interface all engines must implement.
	Engine = sdk.Engine

	// EngineMetadata contains engine identification and documentation.
	EngineMetadata = sdk.EngineMetadata

	// EngineFactory is a function that creates engine instances.
	EngineFactory = sdk.EngineFactory
)

// Configuration Types
type (
	// EngineConfig provides configuration access for engines.
	EngineConfig = sdk.EngineConfig

	// ConfigSchema defines the JSON Schema for engine configuration.
	ConfigSchema = sdk.ConfigSchema

	// PropertySchema defines a single configuration property.
	PropertySchema = sdk.PropertySchema

	// UIHints provides hints for configuration UI rendering.
	UIHints = sdk.UIHints
)

// Execution Types
type (
	// ExecutionContext provides context for engine operations.
	ExecutionContext = sdk.ExecutionContext

	// HealthStatus represents the health status of an engine.
	HealthStatus = sdk.HealthStatus

	// MetricsRecorder is the metrics interface available to engines.
	MetricsRecorder = sdk.MetricsRecorder
)

// AllocationEngine is the specialized engine interface plugin authors
// implement to supply a tie-break strategy for the allocator.
type (
	// AllocationEngine handles alternative-resource tie-break decisions.
	AllocationEngine = types.AllocationEngine

	// AllocationCandidate is one resource's tied offer for a task.
	AllocationCandidate = types.AllocationCandidate

	// ChooseAlternativeInput is what the allocator hands a plugin once
	// multiple resources have tied.
	ChooseAlternativeInput = types.ChooseAlternativeInput

	// ChooseAlternativeOutput carries the winning candidate's index.
	ChooseAlternativeOutput = types.ChooseAlternativeOutput
)

// Engine type constants
const (
	EngineTypeAllocation = sdk.EngineTypeAllocation
)

// NewExecutionContext creates a new execution context (for testing).
var NewExecutionContext = sdk.NewExecutionContext
