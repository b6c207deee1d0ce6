package merkle

import (
	"golang.org/x/crypto/sha3"

	"github.com/wavmlabs/wavm-prover-go/pkg/types"
)

// HashNode computes keccak256(prefix(ty) || left || right), the parent of two
// 32-byte nodes in a tree of the given type. The prefix is fed to the hash
// as-is, unpadded, so roots stay byte-compatible with the on-chain verifier.
// Keccak here is the legacy variant (0x01 padding), not SHA-3.
func HashNode(ty MerkleType, left, right types.Bytes32) types.Bytes32 {
	return hashNodeSlices(ty, left[:], right[:])
}

func hashNodeSlices(ty MerkleType, left, right []byte) types.Bytes32 {
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(ty.Prefix()))
	h.Write(left)
	h.Write(right)
	var out types.Bytes32
	h.Sum(out[:0])
	return out
}

// VerifyProof folds an inclusion proof produced by Prove back up to a root.
// Pairing left-vs-right is decided by the bits of idx, least significant
// first. Returns whether the folded value equals root.
func VerifyProof(ty MerkleType, root types.Bytes32, idx int, leaf types.Bytes32, proof []byte) bool {
	if len(proof)%32 != 0 {
		return false
	}
	current := leaf
	index := idx
	for off := 0; off < len(proof); off += 32 {
		sibling := types.BytesToBytes32(proof[off : off+32])
		if index%2 == 0 {
			current = HashNode(ty, current, sibling)
		} else {
			current = HashNode(ty, sibling, current)
		}
		index >>= 1
	}
	return current == root
}
