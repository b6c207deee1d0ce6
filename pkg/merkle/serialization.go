package merkle

import (
	"encoding/json"
	"fmt"
	"sort"
)

// treeSnapshot is the persisted form of a tree: type, geometry, the raw
// arena, and the dirty sets, so a reloaded tree resumes exactly where the
// original left off and reproduces the same root.
type treeSnapshot struct {
	Type        MerkleType `json:"type"`
	Depth       int        `json:"depth"`
	LeafCount   int        `json:"leafCount"`
	Arena       []byte     `json:"arena"`
	DirtyLayers [][]int    `json:"dirtyLayers"`
}

// MarshalJSON implements json.Marshaler.
func (t *Tree) MarshalJSON() ([]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	snapshot := treeSnapshot{
		Type:        t.ty,
		Depth:       t.depth,
		LeafCount:   t.layer0Len,
		Arena:       append([]byte(nil), t.tree...),
		DirtyLayers: make([][]int, len(t.dirtyLayers)),
	}
	for i, layer := range t.dirtyLayers {
		indices := make([]int, 0, len(layer))
		for idx := range layer {
			indices = append(indices, idx)
		}
		sort.Ints(indices)
		snapshot.DirtyLayers[i] = indices
	}
	return json.Marshal(&snapshot)
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Tree) UnmarshalJSON(data []byte) error {
	var snapshot treeSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return fmt.Errorf("failed to unmarshal merkle tree snapshot: %w", err)
	}
	if snapshot.Depth > 0 && len(snapshot.Arena) != totalCapacityBytes(snapshot.Depth, snapshot.LeafCount) {
		return fmt.Errorf("merkle tree snapshot arena is %d bytes, want %d for depth %d and %d leaves",
			len(snapshot.Arena), totalCapacityBytes(snapshot.Depth, snapshot.LeafCount), snapshot.Depth, snapshot.LeafCount)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.ty = snapshot.Type
	t.depth = snapshot.Depth
	t.tree = snapshot.Arena
	t.layer0Len = snapshot.LeafCount
	t.dirtyLayers = make([]map[int]struct{}, len(snapshot.DirtyLayers))
	for i, indices := range snapshot.DirtyLayers {
		layer := make(map[int]struct{}, len(indices))
		for _, idx := range indices {
			layer[idx] = struct{}{}
		}
		t.dirtyLayers[i] = layer
	}
	return nil
}
