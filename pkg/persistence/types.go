package persistence

import (
	"github.com/wavmlabs/wavm-prover-go/pkg/merkle"
	"github.com/wavmlabs/wavm-prover-go/pkg/types"
)

// MachineSnapshot is a checkpoint of a machine's commitment state at a step
// boundary. It carries the serialized merkle trees so a reloaded snapshot
// reproduces the same roots and can keep mutating from where it left off.
type MachineSnapshot struct {
	// Step is the interpreted-step count this snapshot was taken at. It is
	// the primary key for snapshot storage.
	Step uint64 `json:"step"`

	// Status is the machine's execution state at the checkpoint.
	Status types.MachineStatus `json:"status"`

	// GlobalState is the outer state the machine carries across steps.
	GlobalState types.GlobalState `json:"globalState"`

	// MachineHash is the machine's overall commitment at the checkpoint,
	// stored for cheap verification without rebuilding any tree.
	MachineHash types.Bytes32 `json:"machineHash"`

	// Trees holds the machine's merkle trees by name ("memory", "modules",
	// "functions", ...). Each tree round-trips with its dirty sets intact.
	Trees map[string]*merkle.Tree `json:"trees"`
}

// ProverState is operational state that must survive restarts: where the
// prover got to and which run produced the stored snapshots.
type ProverState struct {
	// RunID identifies the benchmark or proving run the stored snapshots
	// belong to.
	RunID string `json:"runId"`

	// LastCheckpointedStep is the highest step with a persisted snapshot.
	LastCheckpointedStep uint64 `json:"lastCheckpointedStep"`

	// StartTime is the Unix timestamp when the run began.
	StartTime int64 `json:"startTime"`
}
