package bench

import (
	"fmt"
	"time"

	merkletree "github.com/wealdtech/go-merkletree/v2"
	"github.com/wealdtech/go-merkletree/v2/keccak256"
	"go.uber.org/zap"

	"github.com/wavmlabs/wavm-prover-go/pkg/merkle"
	"github.com/wavmlabs/wavm-prover-go/pkg/types"
)

// ComparisonResult holds side-by-side build timings for the arena tree and
// a generic keccak merkle implementation over the same leaves.
type ComparisonResult struct {
	LeafCount     int
	ArenaTime     time.Duration
	ArenaRoot     types.Bytes32
	ReferenceTime time.Duration
	ReferenceRoot types.Bytes32
}

// RunComparison builds the same leaf vector into the prover's arena tree
// and into wealdtech's generic tree, timing both. The roots differ, since the
// arena tree pads with typed empty hashes and domain-separates every node,
// so only the timings are comparable, not the commitments.
func RunComparison(leafCount int, memoryLayers int, logger *zap.Logger) (*ComparisonResult, error) {
	if leafCount <= 0 {
		return nil, fmt.Errorf("leaf count must be positive, got %d", leafCount)
	}

	leaves := make([]types.Bytes32, leafCount)
	data := make([][]byte, leafCount)
	for i := range leaves {
		leaves[i] = types.Uint64ToBytes32(uint64(i))
		data[i] = leaves[i].Bytes()
	}

	start := time.Now()
	arenaTree := merkle.NewAdvanced(merkle.TypeMemory, leaves, memoryLayers)
	arenaRoot := arenaTree.Root()
	arenaTime := time.Since(start)

	start = time.Now()
	referenceTree, err := merkletree.NewTree(
		merkletree.WithData(data),
		merkletree.WithHashType(keccak256.New()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build reference tree: %w", err)
	}
	referenceRoot := types.BytesToBytes32(referenceTree.Root())
	referenceTime := time.Since(start)

	result := &ComparisonResult{
		LeafCount:     leafCount,
		ArenaTime:     arenaTime,
		ArenaRoot:     arenaRoot,
		ReferenceTime: referenceTime,
		ReferenceRoot: referenceRoot,
	}
	logger.Sugar().Infow("Merkle build comparison",
		"leaves", leafCount,
		"arena_time", arenaTime,
		"arena_root", arenaRoot.Hex(),
		"reference_time", referenceTime,
		"reference_root", referenceRoot.Hex(),
	)
	return result, nil
}
