package merkle

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wavmlabs/wavm-prover-go/pkg/types"
)

func TestSerializationRoundtrip(t *testing.T) {
	tree := NewAdvanced(TypeValue, []types.Bytes32{repeatedLeaf(1)}, 4)
	_, err := tree.Resize(4)
	require.NoError(t, err)
	tree.Set(3, repeatedLeaf(2))

	// Serialize with the dirty sets still pending, so the reloaded tree has
	// to finish the rehash itself.
	serialized, err := json.Marshal(tree)
	require.NoError(t, err)

	deserialized := new(Tree)
	require.NoError(t, json.Unmarshal(serialized, deserialized))

	require.Equal(t, tree.Type(), deserialized.Type())
	require.Equal(t, tree.Depth(), deserialized.Depth())
	require.Equal(t, tree.Len(), deserialized.Len())
	require.True(t, tree.Equals(deserialized))
}

func TestSerializationAfterRehash(t *testing.T) {
	tree := New(TypeMemory, repeatedLeaves(1, 2, 3, 4, 5))
	tree.Set(2, repeatedLeaf(9))
	root := tree.Root()

	serialized, err := json.Marshal(tree)
	require.NoError(t, err)

	deserialized := new(Tree)
	require.NoError(t, json.Unmarshal(serialized, deserialized))
	require.Equal(t, root, deserialized.Root())

	// Mutations keep working on the reloaded tree.
	deserialized.Set(0, repeatedLeaf(8))
	tree.Set(0, repeatedLeaf(8))
	require.Equal(t, tree.Root(), deserialized.Root())
}

func TestSerializationEmptyDefault(t *testing.T) {
	tree := New(TypeFunction, nil)

	serialized, err := json.Marshal(tree)
	require.NoError(t, err)

	deserialized := new(Tree)
	require.NoError(t, json.Unmarshal(serialized, deserialized))
	require.True(t, deserialized.IsEmpty())
	require.Equal(t, EmptyHashAt(TypeFunction, 0), deserialized.Root())
}

func TestDeserializationRejectsBadArena(t *testing.T) {
	tree := New(TypeValue, repeatedLeaves(1, 2, 3))
	serialized, err := json.Marshal(tree)
	require.NoError(t, err)

	var snapshot map[string]any
	require.NoError(t, json.Unmarshal(serialized, &snapshot))
	snapshot["leafCount"] = 7
	corrupted, err := json.Marshal(snapshot)
	require.NoError(t, err)

	require.Error(t, json.Unmarshal(corrupted, new(Tree)))
}

func TestMerkleTypeTextRoundtrip(t *testing.T) {
	for ty := TypeEmpty; ty < numMerkleTypes; ty++ {
		text, err := ty.MarshalText()
		require.NoError(t, err)

		var parsed MerkleType
		require.NoError(t, parsed.UnmarshalText(text))
		require.Equal(t, ty, parsed)
	}

	var parsed MerkleType
	require.Error(t, parsed.UnmarshalText([]byte("Bogus")))
}
