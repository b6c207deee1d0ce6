package merkle

import "fmt"

// MerkleType tags a tree with the kind of leaves it commits to. Each kind
// hashes under its own domain-separation prefix so that roots of different
// tree kinds are distinguishable on chain.
type MerkleType uint8

const (
	// TypeEmpty is the zero value. It tags the default empty tree and must
	// never reach the hash function.
	TypeEmpty MerkleType = iota
	TypeValue
	TypeFunction
	TypeInstruction
	TypeMemory
	TypeTable
	TypeTableElement
	TypeModule

	numMerkleTypes
)

// Prefix returns the ASCII domain-separation string prepended to every
// internal hash of a tree of this type. Panics for TypeEmpty: hashing with
// the empty type is a programmer error.
func (t MerkleType) Prefix() string {
	switch t {
	case TypeEmpty:
		panic("attempted to get prefix of empty merkle type")
	case TypeValue:
		return "Value merkle tree:"
	case TypeFunction:
		return "Function merkle tree:"
	case TypeInstruction:
		return "Instruction merkle tree:"
	case TypeMemory:
		return "Memory merkle tree:"
	case TypeTable:
		return "Table merkle tree:"
	case TypeTableElement:
		return "Table element merkle tree:"
	case TypeModule:
		return "Module merkle tree:"
	default:
		panic(fmt.Sprintf("unknown merkle type %d", uint8(t)))
	}
}

func (t MerkleType) String() string {
	switch t {
	case TypeEmpty:
		return "Empty"
	case TypeValue:
		return "Value"
	case TypeFunction:
		return "Function"
	case TypeInstruction:
		return "Instruction"
	case TypeMemory:
		return "Memory"
	case TypeTable:
		return "Table"
	case TypeTableElement:
		return "TableElement"
	case TypeModule:
		return "Module"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(t))
	}
}

// MarshalText renders the type name for snapshots.
func (t MerkleType) MarshalText() ([]byte, error) {
	if t >= numMerkleTypes {
		return nil, fmt.Errorf("cannot marshal unknown merkle type %d", uint8(t))
	}
	return []byte(t.String()), nil
}

// UnmarshalText parses a type name produced by MarshalText.
func (t *MerkleType) UnmarshalText(text []byte) error {
	for ty := TypeEmpty; ty < numMerkleTypes; ty++ {
		if ty.String() == string(text) {
			*t = ty
			return nil
		}
	}
	return fmt.Errorf("unknown merkle type %q", string(text))
}
