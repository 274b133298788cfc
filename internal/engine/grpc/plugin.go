// Package grpc provides gRPC-based plugin communication for chronoforge
// allocation engines. It uses HashiCorp's go-plugin library for process
// isolation and management.
package grpc

import (
	"github.com/felixgeelhaar/chronoforge/internal/engine/sdk"
	"github.com/hashicorp/go-plugin"
)

// HandshakeConfig is used to verify that the plugin is compatible.
// Both the core and plugins must use the same handshake configuration.
var HandshakeConfig = plugin.HandshakeConfig{
	ProtocolVersion:  1,
	MagicCookieKey:   "CHRONOFORGE_ENGINE_PLUGIN",
	MagicCookieValue: "chronoforge-engine-v1",
}

// PluginMap is the map of plugins we can dispense.
var PluginMap = map[string]plugin.Plugin{
	"allocation": &AllocationPlugin{},
}

// PluginMapForEngine returns a plugin map for a specific engine type.
func PluginMapForEngine(engineType sdk.EngineType) map[string]plugin.Plugin {
	switch engineType {
	case sdk.EngineTypeAllocation:
		return map[string]plugin.Plugin{"engine": &AllocationPlugin{}}
	default:
		return nil
	}
}

// AllocationPlugin is the plugin.Plugin implementation for allocation
// strategy engines.
type AllocationPlugin struct {
	plugin.Plugin
	// Impl is the concrete implementation (plugin-side).
	Impl AllocationEnginePlugin
}

// AllocationEnginePlugin is the interface for allocation strategy plugins.
type AllocationEnginePlugin interface {
	sdk.Engine
	ChooseAlternative(ctx *sdk.ExecutionContext, input ChooseAlternativeInput) (*ChooseAlternativeOutput, error)
}
