package merkle

import (
	"fmt"
	"sort"
	"sync"

	"github.com/wavmlabs/wavm-prover-go/pkg/types"
)

// Tree is a merkle tree with a fixed number of layers.
//
// Each instance's leaves are hashes of a specific MerkleType. Set and Resize
// never change the tree's height; it can be initialized with fewer leaves
// than its layers could hold and later resized up to that capacity. Only
// PushLeaf on a full tree rebuilds it one layer taller.
//
// All layers live concatenated, leaves first, in one contiguous byte arena.
// Leaf mutations only record a dirty parent index; stale internal nodes are
// recomputed lazily on the next Root or proof. The tree is single-writer:
// one mutex covers the arena, the leaf count, and the dirty sets, and Root
// and the proof methods take it as writers because rehashing mutates the
// arena.
//
// The structure does not contain the committed data itself, only hashes.
type Tree struct {
	ty    MerkleType
	depth int

	mu          sync.Mutex
	tree        []byte
	layer0Len   int
	dirtyLayers []map[int]struct{}
}

// New creates a tree of the given type over the leaf hashes, at the minimum
// depth necessary to hold them.
func New(ty MerkleType, leaves []types.Bytes32) *Tree {
	return NewAdvanced(ty, leaves, 0)
}

// NewAdvanced creates a tree of the given type over the leaf hashes,
// over-provisioned to at least minDepth layers. A single leaf with no
// minimum depth yields a depth-1 tree whose root is the leaf itself; this
// is load-bearing for on-chain root compatibility.
func NewAdvanced(ty MerkleType, leaves []types.Bytes32, minDepth int) *Tree {
	countNew(ty)
	if len(leaves) == 0 && minDepth == 0 {
		return &Tree{ty: ty}
	}

	hashCount := len(leaves)
	targetDepth := ceilLog2(hashCount) + 1
	if targetDepth < minDepth {
		targetDepth = minDepth
	}

	tree := make([]byte, 0, totalCapacityBytes(targetDepth, hashCount))
	for _, leaf := range leaves {
		tree = append(tree, leaf[:]...)
	}

	currentLevelSize := hashCount
	nextLevelOffset := len(tree)
	dirtyLayers := make([]map[int]struct{}, 0, targetDepth)

	layerIdx := 0
	for depth := targetDepth; depth > 1; depth-- {
		for i := nextLevelOffset - currentLevelSize*32; i < nextLevelOffset; i += 64 {
			left := tree[i : i+32]
			var right []byte
			if i+32 < nextLevelOffset {
				right = tree[i+32 : i+64]
			} else {
				sibling := EmptyHashAt(ty, layerIdx)
				right = sibling[:]
			}
			parent := hashNodeSlices(ty, left, right)
			tree = append(tree, parent[:]...)
		}
		currentLevelSize = (currentLevelSize + 1) / 2
		dirtyLayers = append(dirtyLayers, make(map[int]struct{}))
		nextLevelOffset = len(tree)
		layerIdx++
	}

	return &Tree{
		ty:          ty,
		depth:       targetDepth,
		tree:        tree,
		layer0Len:   hashCount,
		dirtyLayers: dirtyLayers,
	}
}

// Type returns the tree's merkle type.
func (t *Tree) Type() MerkleType {
	return t.ty
}

// Depth returns the fixed number of layers, including the leaf layer.
func (t *Tree) Depth() int {
	return t.depth
}

// Len returns the current number of leaves.
func (t *Tree) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.layerSizeLocked(0)
}

// Capacity returns the total number of leaves the tree can hold.
func (t *Tree) Capacity() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.capacityLocked()
}

func (t *Tree) capacityLocked() int {
	if len(t.tree) == 0 && t.depth == 0 {
		return 0
	}
	return 1 << (t.depth - 1)
}

// IsEmpty reports whether the tree has no materialized nodes.
func (t *Tree) IsEmpty() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.tree) == 0
}

// Root recomputes any stale internal nodes and returns the root hash. The
// root of the default empty tree is the type's zero leaf.
func (t *Tree) Root() types.Bytes32 {
	countRoot(t.ty)
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.tree) == 0 {
		return EmptyHashAt(t.ty, 0)
	}
	t.rehashLocked()
	return types.BytesToBytes32(t.tree[len(t.tree)-32:])
}

// Set overwrites the leaf at idx. Panics if idx is out of bounds: the tree
// does not grow on assignment. Internal hashes are not recomputed here, only
// the leaf's parent is marked dirty.
func (t *Tree) Set(idx int, hash types.Bytes32) {
	countSet(t.ty)
	t.mu.Lock()
	defer t.mu.Unlock()
	if length := t.layerSizeLocked(0); idx >= length {
		panic(fmt.Sprintf("index %d out of bounds %d", idx, length))
	}
	if types.BytesToBytes32(t.tree[idx*32:idx*32+32]) == hash {
		return
	}
	copy(t.tree[idx*32:idx*32+32], hash[:])
	if len(t.dirtyLayers) > 0 {
		t.dirtyLayers[0][idx>>1] = struct{}{}
	}
}

// rehashLocked drains the dirty sets bottom-up, recomputing each marked
// parent from its children and propagating dirtiness toward the root.
// Indices drain in ascending order so arena access stays monotonic and the
// walk is deterministic.
func (t *Tree) rehashLocked() {
	if len(t.dirtyLayers) == 0 || len(t.dirtyLayers[0]) == 0 {
		return
	}
	childLayerStart := 0
	layerStart := t.layerSizeLocked(0) * 32
	layerBytes := t.layerSizeLocked(1) * 32
	for layerIdx := 1; layerIdx < t.depth; layerIdx++ {
		dirtyIdx := layerIdx - 1
		dirt := make([]int, 0, len(t.dirtyLayers[dirtyIdx]))
		for idx := range t.dirtyLayers[dirtyIdx] {
			dirt = append(dirt, idx)
		}
		sort.Ints(dirt)

		childLayerBytes := t.layerSizeLocked(layerIdx-1) * 32
		for _, idx := range dirt {
			leftChildIdx := idx << 1
			rightChildIdx := leftChildIdx + 1
			left := t.tree[childLayerStart+leftChildIdx*32 : childLayerStart+leftChildIdx*32+32]
			var right []byte
			if rightChildIdx*32 < childLayerBytes {
				right = t.tree[childLayerStart+rightChildIdx*32 : childLayerStart+rightChildIdx*32+32]
			} else {
				sibling := EmptyHashAt(t.ty, layerIdx-1)
				right = sibling[:]
			}
			newHash := hashNodeSlices(t.ty, left, right)
			offset := layerStart + idx*32
			if offset >= layerStart+layerBytes {
				panic(fmt.Sprintf("rehash write at byte %d past layer end %d", offset, layerStart+layerBytes))
			}
			copy(t.tree[offset:offset+32], newHash[:])
			if layerIdx < t.depth-1 {
				t.dirtyLayers[dirtyIdx+1][idx>>1] = struct{}{}
			}
		}
		childLayerStart, layerStart = layerStart, layerStart+layerBytes
		layerBytes = t.layerSizeLocked(layerIdx+1) * 32
		t.dirtyLayers[dirtyIdx] = make(map[int]struct{})
	}
}

// Prove returns an inclusion proof for the leaf at idx, or ok=false when the
// tree is empty or idx is past the live leaves.
func (t *Tree) Prove(idx int) ([]byte, bool) {
	t.mu.Lock()
	empty := len(t.tree) == 0
	length := t.layerSizeLocked(0)
	t.mu.Unlock()
	if empty || idx >= length {
		return nil, false
	}
	return t.ProveAny(idx), true
}

// ProveAny creates a proof whether or not the leaf has content. The proof is
// the concatenation of sibling hashes from the leaf layer up to, but not
// including, the root layer; absent right siblings are the type's empty
// subtree hash at that layer.
func (t *Tree) ProveAny(idx int) []byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rehashLocked()

	proof := make([]byte, 0, t.depth*32)
	nodeIndex := idx
	layerStart := 0
	for layer := 0; layer+1 < t.depth; layer++ {
		size := t.layerSizeLocked(layer)
		if size == 0 {
			break
		}
		siblingIndex := nodeIndex ^ 1
		if siblingIndex < size {
			proof = append(proof, t.tree[layerStart+siblingIndex*32:layerStart+siblingIndex*32+32]...)
		} else {
			sibling := EmptyHashAt(t.ty, layer)
			proof = append(proof, sibling[:]...)
		}
		nodeIndex >>= 1
		layerStart += size * 32
	}
	return proof
}

// Resize grows (or shrinks) the number of live leaves within the tree's
// fixed capacity, filling new space with empty hashes at every layer. The
// padded leaves are marked dirty so they propagate on the next Root.
// Returns the new length, or an error when newLen exceeds the capacity.
func (t *Tree) Resize(newLen int) (int, error) {
	countResize(t.ty)
	t.mu.Lock()
	defer t.mu.Unlock()
	if capacity := t.capacityLocked(); newLen > capacity {
		return 0, fmt.Errorf("cannot resize to a length (%d) greater than the capacity (%d) of the tree", newLen, capacity)
	}

	newTree := make([]byte, 0, totalCapacityBytes(t.depth, newLen))
	layerOffset := 0
	newNextLayerOffset := newLen * 32
	for layerIdx := 0; layerIdx < t.depth; layerIdx++ {
		layerBytes := t.layerSizeLocked(layerIdx) * 32
		newTree = append(newTree, t.tree[layerOffset:layerOffset+layerBytes]...)
		for len(newTree) < newNextLayerOffset {
			filler := EmptyHashAt(t.ty, layerIdx)
			newTree = append(newTree, filler[:]...)
		}
		layerOffset += layerBytes
		newNextLayerOffset = len(newTree) + layerSize(t.depth, newLen, layerIdx+1)*32
	}
	if len(t.dirtyLayers) > 0 {
		for i := t.layer0Len; i < newLen; i++ {
			t.dirtyLayers[0][i>>1] = struct{}{}
		}
	}
	t.tree = newTree
	t.layer0Len = newLen
	return newLen, nil
}

// PushLeaf appends a leaf, rebuilding the tree at its current depth.
// O(n) in the number of leaves.
func (t *Tree) PushLeaf(leaf types.Bytes32) {
	t.mu.Lock()
	leaves := append(t.leavesLocked(), leaf)
	t.rebuildLocked(leaves)
	t.mu.Unlock()
}

// PopLeaf removes the rightmost leaf, rebuilding the tree at its current
// depth. O(n) in the number of leaves.
func (t *Tree) PopLeaf() {
	t.mu.Lock()
	leaves := t.leavesLocked()
	if len(leaves) > 0 {
		leaves = leaves[:len(leaves)-1]
	}
	t.rebuildLocked(leaves)
	t.mu.Unlock()
}

func (t *Tree) rebuildLocked(leaves []types.Bytes32) {
	rebuilt := NewAdvanced(t.ty, leaves, t.depth)
	t.depth = rebuilt.depth
	t.tree = rebuilt.tree
	t.layer0Len = rebuilt.layer0Len
	t.dirtyLayers = rebuilt.dirtyLayers
}

// Equals reports whether two trees commit to the same root. Type and depth
// need not match.
func (t *Tree) Equals(other *Tree) bool {
	return t.Root() == other.Root()
}

func (t *Tree) leavesLocked() []types.Bytes32 {
	leaves := make([]types.Bytes32, 0, t.layer0Len)
	for i := 0; i < t.layer0Len; i++ {
		leaves = append(leaves, types.BytesToBytes32(t.tree[i*32:i*32+32]))
	}
	return leaves
}

func (t *Tree) layerSizeLocked(layer int) int {
	return layerSize(t.depth, t.layer0Len, layer)
}
