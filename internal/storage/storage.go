package storage

import (
	"context"

	"dexarb/pkg/types"
)

// Storage is the interface for persisting pipeline outcomes.
type Storage interface {
	// StoreSimulation stores a simulation result, profitable or not.
	StoreSimulation(ctx context.Context, sim *types.SimulationResult) error

	// StoreExecution stores the outcome of an execution attempt.
	StoreExecution(ctx context.Context, res *types.ExecutionResult) error

	// Close closes the storage connection.
	Close() error
}
