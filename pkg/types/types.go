package types

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// Bytes32 is a 32-byte value: the type of merkle leaves, internal nodes,
// roots, and every other hash the prover commits to. It carries no
// endianness semantics beyond byte identity.
type Bytes32 [32]byte

// BytesToBytes32 copies b into a Bytes32. A longer b keeps only its first
// 32 bytes; a shorter b is zero-padded on the right.
func BytesToBytes32(b []byte) Bytes32 {
	var h Bytes32
	copy(h[:], b)
	return h
}

// Uint64ToBytes32 places v big-endian into the last 8 bytes of a Bytes32.
func Uint64ToBytes32(v uint64) Bytes32 {
	var h Bytes32
	binary.BigEndian.PutUint64(h[24:], v)
	return h
}

// ToUint64 reads the last 8 bytes big-endian, the inverse of Uint64ToBytes32.
func (h Bytes32) ToUint64() uint64 {
	return binary.BigEndian.Uint64(h[24:])
}

// Bytes returns a copy of the value as a byte slice.
func (h Bytes32) Bytes() []byte {
	return h[:]
}

// Hex returns the 0x-prefixed hex encoding of the value.
func (h Bytes32) Hex() string {
	return hexutil.Encode(h[:])
}

func (h Bytes32) String() string {
	return h.Hex()
}

// IsZero reports whether every byte is zero.
func (h Bytes32) IsZero() bool {
	return h == Bytes32{}
}

// Equal reports byte equality with other.
func (h Bytes32) Equal(other Bytes32) bool {
	return bytes.Equal(h[:], other[:])
}

// MarshalText implements encoding.TextMarshaler, rendering 0x-prefixed hex.
func (h Bytes32) MarshalText() ([]byte, error) {
	return []byte(h.Hex()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (h *Bytes32) UnmarshalText(text []byte) error {
	decoded, err := hexutil.Decode(string(text))
	if err != nil {
		return fmt.Errorf("failed to decode Bytes32 hex: %w", err)
	}
	if len(decoded) != 32 {
		return fmt.Errorf("invalid Bytes32 length: got %d bytes, want 32", len(decoded))
	}
	copy(h[:], decoded)
	return nil
}

// MachineStatus describes the execution state of a machine owned by the prover.
type MachineStatus uint8

const (
	MachineStatusRunning MachineStatus = iota
	MachineStatusFinished
	MachineStatusErrored
	MachineStatusTooFar
)

func (s MachineStatus) String() string {
	switch s {
	case MachineStatusRunning:
		return "running"
	case MachineStatusFinished:
		return "finished"
	case MachineStatusErrored:
		return "errored"
	case MachineStatusTooFar:
		return "too far"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(s))
	}
}

// globalStatePrefix domain-separates global state commitments from every
// merkle node hash.
const globalStatePrefix = "Global state:"

// GlobalState is the outer state a machine starts from and finishes with:
// two 32-byte values (block hash, send root) and two counters (inbox
// position, position within batch).
type GlobalState struct {
	Bytes32Vals [2]Bytes32 `json:"bytes32Vals"`
	U64Vals     [2]uint64  `json:"u64Vals"`
}

// Hash commits to the global state with the same keccak construction the
// on-chain verifier uses.
func (g GlobalState) Hash() Bytes32 {
	data := make([]byte, 0, len(globalStatePrefix)+2*32+2*8)
	data = append(data, globalStatePrefix...)
	for _, v := range g.Bytes32Vals {
		data = append(data, v[:]...)
	}
	for _, v := range g.U64Vals {
		data = binary.BigEndian.AppendUint64(data, v)
	}
	return Bytes32(crypto.Keccak256Hash(data))
}

// PreimageType identifies the hash scheme a preimage was committed under.
type PreimageType uint8

const (
	PreimageTypeKeccak256 PreimageType = iota
	PreimageTypeSha2_256
)

func (t PreimageType) String() string {
	switch t {
	case PreimageTypeKeccak256:
		return "keccak256"
	case PreimageTypeSha2_256:
		return "sha2-256"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(t))
	}
}

// PreimageResolver supplies the preimage of a committed hash on demand.
// The context value scopes lookups to a module; ok is false when the
// resolver has no preimage for the hash.
type PreimageResolver func(context uint64, ty PreimageType, hash Bytes32) (data []byte, ok bool)
