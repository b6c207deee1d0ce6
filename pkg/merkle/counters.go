package merkle

import (
	"sync/atomic"

	"go.uber.org/zap"
)

// Per-type operation counters, for profiling how the prover drives its
// trees. Disabled by default; when disabled the per-op cost is one atomic
// load. Counters never affect tree behavior.

var countersEnabled atomic.Bool

type opCounters struct {
	news    atomic.Uint64
	roots   atomic.Uint64
	sets    atomic.Uint64
	resizes atomic.Uint64
}

var counters [numMerkleTypes]opCounters

// EnableCounters turns on per-type operation counting.
func EnableCounters() {
	countersEnabled.Store(true)
}

// DisableCounters turns off per-type operation counting. Existing counts
// are kept until ResetCounters.
func DisableCounters() {
	countersEnabled.Store(false)
}

func countNew(ty MerkleType) {
	if countersEnabled.Load() {
		counters[ty].news.Add(1)
	}
}

func countRoot(ty MerkleType) {
	if countersEnabled.Load() {
		counters[ty].roots.Add(1)
	}
}

func countSet(ty MerkleType) {
	if countersEnabled.Load() {
		counters[ty].sets.Add(1)
	}
}

func countResize(ty MerkleType) {
	if countersEnabled.Load() {
		counters[ty].resizes.Add(1)
	}
}

// CounterSnapshot is a point-in-time read of one type's operation counts.
type CounterSnapshot struct {
	Type   MerkleType
	New    uint64
	Root   uint64
	Set    uint64
	Resize uint64
}

// Counters returns a snapshot for every hashable type, TypeEmpty excluded.
func Counters() []CounterSnapshot {
	snapshots := make([]CounterSnapshot, 0, numMerkleTypes-1)
	for ty := TypeValue; ty < numMerkleTypes; ty++ {
		snapshots = append(snapshots, CounterSnapshot{
			Type:   ty,
			New:    counters[ty].news.Load(),
			Root:   counters[ty].roots.Load(),
			Set:    counters[ty].sets.Load(),
			Resize: counters[ty].resizes.Load(),
		})
	}
	return snapshots
}

// ResetCounters zeroes every counter.
func ResetCounters() {
	for ty := TypeValue; ty < numMerkleTypes; ty++ {
		counters[ty].news.Store(0)
		counters[ty].roots.Store(0)
		counters[ty].sets.Store(0)
		counters[ty].resizes.Store(0)
	}
}

// LogCounters writes the current counts for every type that saw activity.
func LogCounters(logger *zap.Logger) {
	for _, snapshot := range Counters() {
		if snapshot.New == 0 && snapshot.Root == 0 && snapshot.Set == 0 && snapshot.Resize == 0 {
			continue
		}
		logger.Sugar().Infow("merkle op counters",
			"type", snapshot.Type.String(),
			"new", snapshot.New,
			"root", snapshot.Root,
			"set", snapshot.Set,
			"resize", snapshot.Resize,
		)
	}
}
