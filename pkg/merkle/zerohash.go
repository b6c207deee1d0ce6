package merkle

import (
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/crypto"

	"github.com/wavmlabs/wavm-prover-go/pkg/types"
)

// MaxLayers is how deep the empty-subtree hash ladders go. The deepest tree
// anywhere in the system is the memory tree, whose leaves are 8 KiB pages of
// a 64-bit address space.
const MaxLayers = 64

// memoryLeafSize is the number of memory bytes committed per leaf. The
// memory tree's zero leaf is the keccak of one all-zero page.
const memoryLeafSize = 8192

var (
	zeroHashOnce sync.Once

	// zeroHashes[ty][k] is the root of a perfect subtree of height k whose
	// leaves are the zero leaf of ty. Indexed by MerkleType; the TypeEmpty
	// slot stays nil.
	zeroHashes [numMerkleTypes][]types.Bytes32

	// emptyHash is the keccak of no input, the placeholder root for trees
	// of TypeEmpty.
	emptyHash types.Bytes32
)

func buildZeroHashes() {
	emptyHash = types.Bytes32(crypto.Keccak256Hash(nil))

	zeroPage := make([]byte, memoryLeafSize)
	memoryZeroLeaf := types.Bytes32(crypto.Keccak256Hash(zeroPage))

	for ty := TypeValue; ty < numMerkleTypes; ty++ {
		ladder := make([]types.Bytes32, MaxLayers)
		if ty == TypeMemory {
			ladder[0] = memoryZeroLeaf
		}
		for k := 1; k < MaxLayers; k++ {
			ladder[k] = HashNode(ty, ladder[k-1], ladder[k-1])
		}
		zeroHashes[ty] = ladder
	}
}

// EmptyHashAt returns the root of a perfect subtree of height layer whose
// leaves are the canonical zero leaf for ty: the keccak of an 8 KiB zero
// page for TypeMemory, 32 zero bytes otherwise. For TypeEmpty every layer
// maps to the keccak of no input.
func EmptyHashAt(ty MerkleType, layer int) types.Bytes32 {
	zeroHashOnce.Do(buildZeroHashes)
	if ty == TypeEmpty {
		return emptyHash
	}
	if ty >= numMerkleTypes {
		panic(fmt.Sprintf("unknown merkle type %d", uint8(ty)))
	}
	if layer < 0 || layer >= MaxLayers {
		panic(fmt.Sprintf("empty hash layer %d outside table depth %d", layer, MaxLayers))
	}
	return zeroHashes[ty][layer]
}
