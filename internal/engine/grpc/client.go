package grpc

import (
	"context"

	"github.com/felixgeelhaar/chronoforge/internal/engine/sdk"
	"github.com/felixgeelhaar/chronoforge/internal/engine/types"
	"google.golang.org/grpc"
)

// GRPCClient interfaces are implemented by host-side gRPC clients.
// These wrap the gRPC client connections and translate between
// Go types and protobuf messages.

// BaseGRPCClient provides common engine functionality for gRPC clients.
type BaseGRPCClient struct {
	conn *grpc.ClientConn
}

// AllocationGRPCClient is the gRPC client for allocation strategy engines.
type AllocationGRPCClient struct {
	conn *grpc.ClientConn
}

// Metadata returns the engine metadata.
func (c *AllocationGRPCClient) Metadata() sdk.EngineMetadata {
	// Will call gRPC Metadata RPC when proto is generated
	return sdk.EngineMetadata{}
}

// Type returns the engine type.
func (c *AllocationGRPCClient) Type() sdk.EngineType {
	return sdk.EngineTypeAllocation
}

// ConfigSchema returns the configuration schema.
func (c *AllocationGRPCClient) ConfigSchema() sdk.ConfigSchema {
	// Will call gRPC ConfigSchema RPC when proto is generated
	return sdk.ConfigSchema{}
}

// Initialize initializes the engine.
func (c *AllocationGRPCClient) Initialize(ctx context.Context, config sdk.EngineConfig) error {
	// Will call gRPC Initialize RPC when proto is generated
	return nil
}

// HealthCheck returns the health status.
func (c *AllocationGRPCClient) HealthCheck(ctx context.Context) sdk.HealthStatus {
	// Will call gRPC HealthCheck RPC when proto is generated
	return sdk.HealthStatus{Healthy: true}
}

// Shutdown shuts down the engine.
func (c *AllocationGRPCClient) Shutdown(ctx context.Context) error {
	// Will call gRPC Shutdown RPC when proto is generated
	return nil
}

// ChooseAlternative picks a candidate from a tied set.
func (c *AllocationGRPCClient) ChooseAlternative(ctx *sdk.ExecutionContext, input types.ChooseAlternativeInput) (*types.ChooseAlternativeOutput, error) {
	// Will call gRPC ChooseAlternative RPC when proto is generated
	return &types.ChooseAlternativeOutput{ChosenIndex: 0}, nil
}

// Verify interface compliance at compile time.
var (
	_ types.AllocationEngine = (*AllocationGRPCClient)(nil)
)
