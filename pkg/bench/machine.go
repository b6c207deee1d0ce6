package bench

import (
	"github.com/wavmlabs/wavm-prover-go/pkg/merkle"
	"github.com/wavmlabs/wavm-prover-go/pkg/persistence"
	"github.com/wavmlabs/wavm-prover-go/pkg/types"
)

// Machine is the contract the harness drives. The real WASM interpreter
// satisfies it; the harness ships a tree-backed stand-in so merkle costs can
// be measured without an interpreter in the loop.
type Machine interface {
	// StepN advances the machine n steps.
	StepN(n uint64) error

	// Hash returns the machine's overall commitment, recomputing any stale
	// tree nodes.
	Hash() types.Bytes32

	// GetStatus reports the execution state.
	GetStatus() types.MachineStatus

	// GetSteps returns how many steps have executed.
	GetSteps() uint64

	// Snapshot captures the machine's commitment state for persistence.
	Snapshot() *persistence.MachineSnapshot
}

// treeMachine is a Machine whose "execution" is leaf churn on a memory
// tree: every step overwrites one leaf chosen by a deterministic generator.
// It reproduces the prover's mutation pattern (scattered writes, periodic
// roots) with none of the interpreter cost.
type treeMachine struct {
	memory      *merkle.Tree
	globalState types.GlobalState
	resolver    types.PreimageResolver
	steps       uint64
	maxSteps    uint64
	rng         uint64
}

// newTreeMachine builds the stand-in over the given leaves. maxSteps bounds
// the run; the machine reports finished once it is reached.
func newTreeMachine(leaves []types.Bytes32, memoryLayers int, globalState types.GlobalState, resolver types.PreimageResolver, maxSteps uint64) *treeMachine {
	return &treeMachine{
		memory:      merkle.NewAdvanced(merkle.TypeMemory, leaves, memoryLayers),
		globalState: globalState,
		resolver:    resolver,
		maxSteps:    maxSteps,
		rng:         globalState.Hash().ToUint64(),
	}
}

func (m *treeMachine) StepN(n uint64) error {
	leafCount := uint64(m.memory.Len())
	for i := uint64(0); i < n && m.steps < m.maxSteps; i++ {
		// xorshift keeps the write pattern scattered but reproducible.
		m.rng ^= m.rng << 13
		m.rng ^= m.rng >> 7
		m.rng ^= m.rng << 17
		m.memory.Set(int(m.rng%leafCount), types.Uint64ToBytes32(m.rng))
		m.steps++
	}
	return nil
}

func (m *treeMachine) Hash() types.Bytes32 {
	return m.memory.Root()
}

func (m *treeMachine) GetStatus() types.MachineStatus {
	if m.steps >= m.maxSteps {
		return types.MachineStatusFinished
	}
	return types.MachineStatusRunning
}

func (m *treeMachine) GetSteps() uint64 {
	return m.steps
}

func (m *treeMachine) Snapshot() *persistence.MachineSnapshot {
	return &persistence.MachineSnapshot{
		Step:        m.steps,
		Status:      m.GetStatus(),
		GlobalState: m.globalState,
		MachineHash: m.memory.Root(),
		Trees:       map[string]*merkle.Tree{"memory": m.memory},
	}
}
