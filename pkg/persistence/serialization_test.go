package persistence

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wavmlabs/wavm-prover-go/pkg/merkle"
	"github.com/wavmlabs/wavm-prover-go/pkg/types"
)

func TestMachineSnapshotRoundtrip(t *testing.T) {
	leaves := []types.Bytes32{
		types.Uint64ToBytes32(1),
		types.Uint64ToBytes32(2),
		types.Uint64ToBytes32(3),
	}
	tree := merkle.NewAdvanced(merkle.TypeMemory, leaves, 28)
	tree.Set(1, types.Uint64ToBytes32(99)) // leave a dirty set pending

	snapshot := &MachineSnapshot{
		Step:   1 << 20,
		Status: types.MachineStatusRunning,
		GlobalState: types.GlobalState{
			Bytes32Vals: [2]types.Bytes32{types.Uint64ToBytes32(10), types.Uint64ToBytes32(11)},
			U64Vals:     [2]uint64{3, 7},
		},
		MachineHash: types.Uint64ToBytes32(0xabc),
		Trees:       map[string]*merkle.Tree{"memory": tree},
	}

	data, err := MarshalMachineSnapshot(snapshot)
	require.NoError(t, err)

	loaded, err := UnmarshalMachineSnapshot(data)
	require.NoError(t, err)

	assert.Equal(t, snapshot.Step, loaded.Step)
	assert.Equal(t, snapshot.GlobalState, loaded.GlobalState)
	assert.Equal(t, snapshot.MachineHash, loaded.MachineHash)
	assert.Equal(t, tree.Root(), loaded.Trees["memory"].Root())
}

func TestMarshalNilAndEmpty(t *testing.T) {
	_, err := MarshalMachineSnapshot(nil)
	require.Error(t, err)

	_, err = UnmarshalMachineSnapshot(nil)
	require.Error(t, err)

	_, err = MarshalProverState(nil)
	require.Error(t, err)

	_, err = UnmarshalProverState([]byte{})
	require.Error(t, err)
}

func TestProverStateRoundtrip(t *testing.T) {
	state := &ProverState{RunID: "run-xyz", LastCheckpointedStep: 17, StartTime: 1700000001}

	data, err := MarshalProverState(state)
	require.NoError(t, err)

	loaded, err := UnmarshalProverState(data)
	require.NoError(t, err)
	assert.Equal(t, *state, *loaded)
}
