package badger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wavmlabs/wavm-prover-go/pkg/logger"
	"github.com/wavmlabs/wavm-prover-go/pkg/merkle"
	"github.com/wavmlabs/wavm-prover-go/pkg/persistence"
	"github.com/wavmlabs/wavm-prover-go/pkg/types"
)

func newTestStore(t *testing.T) *BadgerPersistence {
	t.Helper()

	tmpDir := t.TempDir()
	testLogger, _ := logger.NewLogger(&logger.LoggerConfig{Debug: false})
	bp, err := NewBadgerPersistence(tmpDir, testLogger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = bp.Close() })
	return bp
}

func testSnapshot(step uint64) *persistence.MachineSnapshot {
	leaves := make([]types.Bytes32, 5)
	for i := range leaves {
		leaves[i] = types.Uint64ToBytes32(step*100 + uint64(i))
	}
	tree := merkle.NewAdvanced(merkle.TypeMemory, leaves, 11)

	return &persistence.MachineSnapshot{
		Step:        step,
		Status:      types.MachineStatusRunning,
		MachineHash: tree.Root(),
		Trees:       map[string]*merkle.Tree{"memory": tree},
	}
}

func TestBadgerPersistence_SnapshotRoundtrip(t *testing.T) {
	bp := newTestStore(t)

	snapshot := testSnapshot(64)
	require.NoError(t, bp.SaveSnapshot(snapshot))

	loaded, err := bp.LoadSnapshot(64)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, snapshot.Step, loaded.Step)
	assert.Equal(t, snapshot.MachineHash, loaded.MachineHash)
	assert.Equal(t, snapshot.Trees["memory"].Root(), loaded.Trees["memory"].Root())
}

func TestBadgerPersistence_LoadSnapshot_NotFound(t *testing.T) {
	bp := newTestStore(t)

	loaded, err := bp.LoadSnapshot(12345)
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestBadgerPersistence_ListSnapshots_Sorted(t *testing.T) {
	bp := newTestStore(t)

	// Steps whose decimal renderings sort differently than their values;
	// big-endian keys must keep numeric order.
	for _, step := range []uint64{300, 2, 1000000, 45} {
		require.NoError(t, bp.SaveSnapshot(testSnapshot(step)))
	}

	snapshots, err := bp.ListSnapshots()
	require.NoError(t, err)
	require.Len(t, snapshots, 4)

	steps := make([]uint64, 0, len(snapshots))
	for _, snapshot := range snapshots {
		steps = append(steps, snapshot.Step)
	}
	assert.Equal(t, []uint64{2, 45, 300, 1000000}, steps)
}

func TestBadgerPersistence_DeleteSnapshot(t *testing.T) {
	bp := newTestStore(t)

	require.NoError(t, bp.SaveSnapshot(testSnapshot(9)))
	require.NoError(t, bp.DeleteSnapshot(9))
	require.NoError(t, bp.DeleteSnapshot(9)) // idempotent

	loaded, err := bp.LoadSnapshot(9)
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestBadgerPersistence_LatestStepAndProverState(t *testing.T) {
	bp := newTestStore(t)

	step, err := bp.GetLatestStep()
	require.NoError(t, err)
	assert.Zero(t, step)

	require.NoError(t, bp.SetLatestStep(77))
	step, err = bp.GetLatestStep()
	require.NoError(t, err)
	assert.Equal(t, uint64(77), step)

	state, err := bp.LoadProverState()
	require.NoError(t, err)
	assert.Nil(t, state)

	saved := &persistence.ProverState{RunID: "bench-abc", LastCheckpointedStep: 77}
	require.NoError(t, bp.SaveProverState(saved))

	state, err = bp.LoadProverState()
	require.NoError(t, err)
	require.NotNil(t, state)
	assert.Equal(t, *saved, *state)
}

func TestBadgerPersistence_ReopenKeepsData(t *testing.T) {
	tmpDir := t.TempDir()
	testLogger, _ := logger.NewLogger(&logger.LoggerConfig{Debug: false})

	bp, err := NewBadgerPersistence(tmpDir, testLogger)
	require.NoError(t, err)

	snapshot := testSnapshot(11)
	expectedRoot := snapshot.Trees["memory"].Root()
	require.NoError(t, bp.SaveSnapshot(snapshot))
	require.NoError(t, bp.SetLatestStep(11))
	require.NoError(t, bp.Close())

	reopened, err := NewBadgerPersistence(tmpDir, testLogger)
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()

	step, err := reopened.GetLatestStep()
	require.NoError(t, err)
	assert.Equal(t, uint64(11), step)

	loaded, err := reopened.LoadSnapshot(11)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, expectedRoot, loaded.Trees["memory"].Root())
}

func TestBadgerPersistence_Closed(t *testing.T) {
	bp := newTestStore(t)
	require.NoError(t, bp.HealthCheck())
	require.NoError(t, bp.Close())
	require.NoError(t, bp.Close()) // idempotent

	require.Error(t, bp.HealthCheck())
	require.Error(t, bp.SaveSnapshot(testSnapshot(1)))
	_, err := bp.LoadSnapshot(1)
	require.Error(t, err)
}
