package persistence

// IProverPersistence defines the interface for persisting prover checkpoints
// across restarts. Implementations must be safe for concurrent use: the
// prover checkpoints from its step loop while the harness reads.
//
// The interface supports:
// - Snapshot management (save, load, list, delete, keyed by step)
// - Latest-step tracking (which checkpoint to resume from)
// - Prover operational state (run ID, progress)
// - Lifecycle management (close, health check)
type IProverPersistence interface {
	// Snapshot Management

	// SaveSnapshot persists a machine snapshot indexed by step.
	// Overwrites any existing snapshot at the same step (idempotent).
	SaveSnapshot(snapshot *MachineSnapshot) error

	// LoadSnapshot retrieves a snapshot by step.
	// Returns nil if the snapshot doesn't exist, error only on storage failure.
	LoadSnapshot(step uint64) (*MachineSnapshot, error)

	// ListSnapshots returns all persisted snapshots sorted by step (ascending).
	// Returns an empty slice if none exist, error only on storage failure.
	ListSnapshots() ([]*MachineSnapshot, error)

	// DeleteSnapshot removes a snapshot by step.
	// Idempotent - returns nil if the snapshot doesn't exist.
	DeleteSnapshot(step uint64) error

	// Latest-Step Tracking

	// SetLatestStep stores the step of the checkpoint to resume from.
	// Step 0 indicates no checkpoint yet.
	SetLatestStep(step uint64) error

	// GetLatestStep returns the step of the resume checkpoint.
	// Returns 0 if none is set (first run), error only on storage failure.
	GetLatestStep() (uint64, error)

	// Prover Operational State

	// SaveProverState persists run progress. Overwrites any existing state.
	SaveProverState(state *ProverState) error

	// LoadProverState retrieves run progress.
	// Returns nil state if none exists (first run), error only on storage failure.
	LoadProverState() (*ProverState, error)

	// Lifecycle Management

	// Close cleanly shuts down the persistence layer.
	// Idempotent - safe to call multiple times.
	// After Close(), all other operations should return errors.
	Close() error

	// HealthCheck verifies the persistence layer is operational.
	// Returns nil if healthy, error describing the problem if not.
	HealthCheck() error
}
