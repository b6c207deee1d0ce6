package memory

import (
	"fmt"
	"sort"
	"sync"

	"github.com/wavmlabs/wavm-prover-go/pkg/persistence"
)

// MemoryPersistence is an in-memory implementation of IProverPersistence.
// This implementation is intended for TESTING ONLY.
//
// All data is stored in memory and will be lost when the process exits.
// Thread-safe using sync.RWMutex for concurrent access. Snapshots are
// stored in their serialized form so callers cannot mutate stored trees.
type MemoryPersistence struct {
	mu sync.RWMutex

	// Snapshot storage: step -> serialized MachineSnapshot
	snapshots map[uint64][]byte

	// Latest checkpoint tracking
	latestStep uint64

	// Prover state
	proverState *persistence.ProverState

	// Closed flag
	closed bool
}

// NewMemoryPersistence creates a new in-memory persistence layer.
func NewMemoryPersistence() *MemoryPersistence {
	return &MemoryPersistence{
		snapshots: make(map[uint64][]byte),
	}
}

var _ persistence.IProverPersistence = (*MemoryPersistence)(nil)

// SaveSnapshot persists a machine snapshot.
func (m *MemoryPersistence) SaveSnapshot(snapshot *persistence.MachineSnapshot) error {
	if snapshot == nil {
		return fmt.Errorf("cannot save nil MachineSnapshot")
	}

	data, err := persistence.MarshalMachineSnapshot(snapshot)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return fmt.Errorf("persistence layer is closed")
	}

	m.snapshots[snapshot.Step] = data
	return nil
}

// LoadSnapshot retrieves a snapshot by step.
func (m *MemoryPersistence) LoadSnapshot(step uint64) (*persistence.MachineSnapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, fmt.Errorf("persistence layer is closed")
	}

	data, ok := m.snapshots[step]
	if !ok {
		return nil, nil
	}
	return persistence.UnmarshalMachineSnapshot(data)
}

// ListSnapshots returns all snapshots sorted by step.
func (m *MemoryPersistence) ListSnapshots() ([]*persistence.MachineSnapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, fmt.Errorf("persistence layer is closed")
	}

	steps := make([]uint64, 0, len(m.snapshots))
	for step := range m.snapshots {
		steps = append(steps, step)
	}
	sort.Slice(steps, func(i, j int) bool { return steps[i] < steps[j] })

	snapshots := make([]*persistence.MachineSnapshot, 0, len(steps))
	for _, step := range steps {
		snapshot, err := persistence.UnmarshalMachineSnapshot(m.snapshots[step])
		if err != nil {
			return nil, err
		}
		snapshots = append(snapshots, snapshot)
	}
	return snapshots, nil
}

// DeleteSnapshot removes a snapshot by step. Idempotent.
func (m *MemoryPersistence) DeleteSnapshot(step uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return fmt.Errorf("persistence layer is closed")
	}

	delete(m.snapshots, step)
	return nil
}

// SetLatestStep stores the resume checkpoint step.
func (m *MemoryPersistence) SetLatestStep(step uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return fmt.Errorf("persistence layer is closed")
	}

	m.latestStep = step
	return nil
}

// GetLatestStep returns the resume checkpoint step.
func (m *MemoryPersistence) GetLatestStep() (uint64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return 0, fmt.Errorf("persistence layer is closed")
	}

	return m.latestStep, nil
}

// SaveProverState persists run progress.
func (m *MemoryPersistence) SaveProverState(state *persistence.ProverState) error {
	if state == nil {
		return fmt.Errorf("cannot save nil ProverState")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return fmt.Errorf("persistence layer is closed")
	}

	stateCopy := *state
	m.proverState = &stateCopy
	return nil
}

// LoadProverState retrieves run progress.
func (m *MemoryPersistence) LoadProverState() (*persistence.ProverState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, fmt.Errorf("persistence layer is closed")
	}

	if m.proverState == nil {
		return nil, nil
	}
	stateCopy := *m.proverState
	return &stateCopy, nil
}

// Close shuts down the persistence layer. Idempotent.
func (m *MemoryPersistence) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	return nil
}

// HealthCheck reports whether the layer is usable.
func (m *MemoryPersistence) HealthCheck() error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return fmt.Errorf("persistence layer is closed")
	}
	return nil
}
