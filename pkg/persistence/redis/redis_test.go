package redis

import (
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wavmlabs/wavm-prover-go/pkg/logger"
	"github.com/wavmlabs/wavm-prover-go/pkg/merkle"
	"github.com/wavmlabs/wavm-prover-go/pkg/persistence"
	"github.com/wavmlabs/wavm-prover-go/pkg/types"
)

// getTestRedisAddress returns the Redis address for testing.
// Uses REDIS_TEST_ADDRESS env var if set, otherwise defaults to localhost:6379.
func getTestRedisAddress() string {
	if addr := os.Getenv("REDIS_TEST_ADDRESS"); addr != "" {
		return addr
	}
	return "localhost:6379"
}

// requireRedis skips the test if Redis is not reachable. Each test gets a
// unique key prefix so runs don't collide in the shared test DB.
func requireRedis(t *testing.T) *RedisPersistence {
	t.Helper()

	testLogger, _ := logger.NewLogger(&logger.LoggerConfig{Debug: false})
	cfg := &RedisConfig{
		Address:   getTestRedisAddress(),
		DB:        15, // Use DB 15 for tests to avoid conflicts
		KeyPrefix: fmt.Sprintf("test:%s:%d:", t.Name(), time.Now().UnixNano()),
	}

	rp, err := NewRedisPersistence(cfg, testLogger)
	if err != nil {
		t.Skipf("Redis not available at %s: %v", cfg.Address, err)
		return nil
	}
	t.Cleanup(func() { _ = rp.Close() })

	return rp
}

func testSnapshot(step uint64) *persistence.MachineSnapshot {
	leaves := []types.Bytes32{
		types.Uint64ToBytes32(step),
		types.Uint64ToBytes32(step + 1),
		types.Uint64ToBytes32(step + 2),
	}
	tree := merkle.New(merkle.TypeValue, leaves)

	return &persistence.MachineSnapshot{
		Step:        step,
		Status:      types.MachineStatusRunning,
		MachineHash: tree.Root(),
		Trees:       map[string]*merkle.Tree{"values": tree},
	}
}

func TestRedisPersistence_SnapshotRoundtrip(t *testing.T) {
	rp := requireRedis(t)

	snapshot := testSnapshot(21)
	require.NoError(t, rp.SaveSnapshot(snapshot))
	defer func() { _ = rp.DeleteSnapshot(21) }()

	loaded, err := rp.LoadSnapshot(21)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, snapshot.Step, loaded.Step)
	assert.Equal(t, snapshot.MachineHash, loaded.MachineHash)
	assert.Equal(t, snapshot.Trees["values"].Root(), loaded.Trees["values"].Root())
}

func TestRedisPersistence_LoadSnapshot_NotFound(t *testing.T) {
	rp := requireRedis(t)

	loaded, err := rp.LoadSnapshot(424242)
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestRedisPersistence_ListAndDelete(t *testing.T) {
	rp := requireRedis(t)

	for _, step := range []uint64{900, 5, 37} {
		require.NoError(t, rp.SaveSnapshot(testSnapshot(step)))
	}

	snapshots, err := rp.ListSnapshots()
	require.NoError(t, err)
	require.Len(t, snapshots, 3)
	assert.Equal(t, uint64(5), snapshots[0].Step)
	assert.Equal(t, uint64(37), snapshots[1].Step)
	assert.Equal(t, uint64(900), snapshots[2].Step)

	require.NoError(t, rp.DeleteSnapshot(37))
	require.NoError(t, rp.DeleteSnapshot(37)) // idempotent

	snapshots, err = rp.ListSnapshots()
	require.NoError(t, err)
	require.Len(t, snapshots, 2)

	for _, step := range []uint64{900, 5} {
		require.NoError(t, rp.DeleteSnapshot(step))
	}
}

func TestRedisPersistence_LatestStepAndProverState(t *testing.T) {
	rp := requireRedis(t)

	step, err := rp.GetLatestStep()
	require.NoError(t, err)
	assert.Zero(t, step)

	require.NoError(t, rp.SetLatestStep(123456))
	step, err = rp.GetLatestStep()
	require.NoError(t, err)
	assert.Equal(t, uint64(123456), step)

	state, err := rp.LoadProverState()
	require.NoError(t, err)
	assert.Nil(t, state)

	saved := &persistence.ProverState{RunID: "redis-run", LastCheckpointedStep: 123456}
	require.NoError(t, rp.SaveProverState(saved))

	state, err = rp.LoadProverState()
	require.NoError(t, err)
	require.NotNil(t, state)
	assert.Equal(t, *saved, *state)
}

func TestRedisPersistence_Closed(t *testing.T) {
	rp := requireRedis(t)
	require.NoError(t, rp.HealthCheck())
	require.NoError(t, rp.Close())
	require.NoError(t, rp.Close()) // idempotent

	require.Error(t, rp.HealthCheck())
	require.Error(t, rp.SaveSnapshot(testSnapshot(1)))
}

func TestRedisPersistence_BadConfig(t *testing.T) {
	testLogger, _ := logger.NewLogger(&logger.LoggerConfig{Debug: false})

	_, err := NewRedisPersistence(nil, testLogger)
	require.Error(t, err)

	_, err = NewRedisPersistence(&RedisConfig{}, testLogger)
	require.Error(t, err)
}
