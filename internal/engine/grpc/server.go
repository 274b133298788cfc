package grpc

import (
	"context"

	"github.com/felixgeelhaar/chronoforge/internal/engine/sdk"
	"github.com/felixgeelhaar/chronoforge/internal/engine/types"
	"github.com/hashicorp/go-plugin"
	"google.golang.org/grpc"
)

// GRPCServer is implemented by plugin-side gRPC servers.
// Each engine type has its own server implementation that wraps
// the actual engine implementation and handles gRPC communication.

// Ensure plugins implement the GRPCPlugin interface.
var _ plugin.GRPCPlugin = (*AllocationPlugin)(nil)

// GRPCServer returns the gRPC server for allocation plugins.
func (p *AllocationPlugin) GRPCServer(broker *plugin.GRPCBroker, s *grpc.Server) error {
	// Registration will use generated proto code when available
	// For now, we document the expected interface
	return nil
}

// GRPCClient returns the gRPC client for allocation plugins.
func (p *AllocationPlugin) GRPCClient(ctx context.Context, broker *plugin.GRPCBroker, c *grpc.ClientConn) (interface{}, error) {
	return &AllocationGRPCClient{conn: c}, nil
}

// BaseEngineServer provides common engine functionality for gRPC servers.
type BaseEngineServer struct {
	engine sdk.Engine
}

// NewBaseEngineServer creates a new base engine server.
func NewBaseEngineServer(engine sdk.Engine) *BaseEngineServer {
	return &BaseEngineServer{engine: engine}
}

// Metadata returns the engine metadata.
func (s *BaseEngineServer) Metadata() sdk.EngineMetadata {
	return s.engine.Metadata()
}

// Type returns the engine type.
func (s *BaseEngineServer) Type() sdk.EngineType {
	return s.engine.Type()
}

// ConfigSchema returns the configuration schema.
func (s *BaseEngineServer) ConfigSchema() sdk.ConfigSchema {
	return s.engine.ConfigSchema()
}

// Initialize initializes the engine.
func (s *BaseEngineServer) Initialize(ctx context.Context, config sdk.EngineConfig) error {
	return s.engine.Initialize(ctx, config)
}

// HealthCheck returns the health status.
func (s *BaseEngineServer) HealthCheck(ctx context.Context) sdk.HealthStatus {
	return s.engine.HealthCheck(ctx)
}

// Shutdown shuts down the engine.
func (s *BaseEngineServer) Shutdown(ctx context.Context) error {
	return s.engine.Shutdown(ctx)
}

// AllocationGRPCServer wraps an allocation engine for gRPC serving.
type AllocationGRPCServer struct {
	BaseEngineServer
	impl types.AllocationEngine
}

// NewAllocationGRPCServer creates a new allocation gRPC server.
func NewAllocationGRPCServer(impl types.AllocationEngine) *AllocationGRPCServer {
	return &AllocationGRPCServer{
		BaseEngineServer: *NewBaseEngineServer(impl),
		impl:             impl,
	}
}

// ChooseAlternative handles the ChooseAlternative RPC.
func (s *AllocationGRPCServer) ChooseAlternative(ctx *sdk.ExecutionContext, input types.ChooseAlternativeInput) (*types.ChooseAlternativeOutput, error) {
	return s.impl.ChooseAlternative(ctx, input)
}
