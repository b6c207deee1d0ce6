package merkle

import (
	"fmt"
	"testing"

	"github.com/wavmlabs/wavm-prover-go/pkg/types"
)

func benchLeaves(n int) []types.Bytes32 {
	leaves := make([]types.Bytes32, n)
	for i := range leaves {
		leaves[i] = types.Uint64ToBytes32(uint64(i))
	}
	return leaves
}

// BenchmarkTreeBuild benchmarks eager construction at various leaf counts.
func BenchmarkTreeBuild(b *testing.B) {
	sizes := []int{64, 1024, 10000}

	for _, size := range sizes {
		b.Run(fmt.Sprintf("Leaves_%d", size), func(b *testing.B) {
			leaves := benchLeaves(size)
			b.ResetTimer()

			for i := 0; i < b.N; i++ {
				_ = New(TypeMemory, leaves)
			}
		})
	}
}

// BenchmarkSetAndRoot benchmarks the prover's hot loop: mutate a handful of
// leaves, then recompute the root lazily.
func BenchmarkSetAndRoot(b *testing.B) {
	sizes := []int{1024, 10000}

	for _, size := range sizes {
		tree := NewAdvanced(TypeMemory, benchLeaves(size), 28)

		b.Run(fmt.Sprintf("Leaves_%d", size), func(b *testing.B) {
			b.ResetTimer()

			for i := 0; i < b.N; i++ {
				tree.Set(i%size, types.Uint64ToBytes32(uint64(i)))
				tree.Set((i*31)%size, types.Uint64ToBytes32(uint64(i+1)))
				_ = tree.Root()
			}
		})
	}
}

// BenchmarkProve benchmarks proof generation on a clean tree.
func BenchmarkProve(b *testing.B) {
	sizes := []int{1024, 10000}

	for _, size := range sizes {
		tree := New(TypeMemory, benchLeaves(size))
		_ = tree.Root()

		b.Run(fmt.Sprintf("Leaves_%d", size), func(b *testing.B) {
			b.ResetTimer()

			for i := 0; i < b.N; i++ {
				_, _ = tree.Prove(i % size)
			}
		})
	}
}
