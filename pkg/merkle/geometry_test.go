package merkle

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLayerSize(t *testing.T) {
	testCases := []struct {
		name      string
		depth     int
		layer0Len int
		layer     int
		expected  int
	}{
		{"1024 leaves layer 3", 11, 1024, 3, 128},
		{"1024 leaves layer 10", 11, 1024, 10, 1},
		{"6 leaves layer 1", 4, 6, 1, 3},
		{"5 leaves layer 1", 4, 5, 1, 3},
		{"5 leaves layer 0", 4, 5, 0, 5},
		{"5 leaves layer 2", 4, 5, 2, 2},
		{"4 leaves layer 1", 4, 4, 1, 2},
		{"layer at depth is empty", 4, 5, 4, 0},
		{"layer past depth is empty", 4, 5, 7, 0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.expected, layerSize(tc.depth, tc.layer0Len, tc.layer))
		})
	}
}

func TestTotalCapacityBytes(t *testing.T) {
	// 5 leaves at depth 4: layers of 5, 3, 2, 1 nodes.
	require.Equal(t, (5+3+2+1)*32, totalCapacityBytes(4, 5))

	// A full depth-4 tree: 8, 4, 2, 1.
	require.Equal(t, (8+4+2+1)*32, totalCapacityBytes(4, 8))

	// Single leaf, single layer: just the leaf.
	require.Equal(t, 32, totalCapacityBytes(1, 1))

	// No leaves, no bytes, at any depth.
	require.Equal(t, 0, totalCapacityBytes(5, 0))
}

func TestCeilLog2(t *testing.T) {
	require.Equal(t, 0, ceilLog2(0))
	require.Equal(t, 0, ceilLog2(1))
	require.Equal(t, 1, ceilLog2(2))
	require.Equal(t, 2, ceilLog2(3))
	require.Equal(t, 2, ceilLog2(4))
	require.Equal(t, 3, ceilLog2(5))
	require.Equal(t, 10, ceilLog2(1024))
	require.Equal(t, 11, ceilLog2(1025))
}
