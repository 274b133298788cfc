package grpc

import (
	"github.com/felixgeelhaar/chronoforge/internal/engine/types"
)

// Re-export allocation types for plugin interface convenience. This allows
// plugins to import a single package for the engine's data shapes.
type (
	AllocationCandidate     = types.AllocationCandidate
	ChooseAlternativeInput  = types.ChooseAlternativeInput
	ChooseAlternativeOutput = types.ChooseAlternativeOutput
)
