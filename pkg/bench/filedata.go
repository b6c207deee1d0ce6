package bench

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/ethereum/go-ethereum/crypto"

	"github.com/wavmlabs/wavm-prover-go/pkg/types"
)

// PreimageRecord is one committed hash preimage from a harness input file.
type PreimageRecord struct {
	Type types.PreimageType `json:"type"`
	Hash types.Bytes32      `json:"hash"`
	Data []byte             `json:"data"`
}

// StartState is the global state a benchmarked machine starts from.
type StartState struct {
	BlockHash  types.Bytes32 `json:"blockHash"`
	SendRoot   types.Bytes32 `json:"sendRoot"`
	Batch      uint64        `json:"batch"`
	PosInBatch uint64        `json:"posInBatch"`
}

// FileData is a parsed harness input file: the start state, the inbox
// messages to feed the machine, and any preimages it may look up.
type FileData struct {
	StartState   StartState       `json:"startState"`
	Pos          uint64           `json:"pos"`
	Msg          []byte           `json:"msg"`
	DelayedMsgNr uint64           `json:"delayedMsgNr"`
	DelayedMsg   []byte           `json:"delayedMsg"`
	Preimages    []PreimageRecord `json:"preimages"`
}

// FileDataFromReader parses a harness input file.
func FileDataFromReader(r io.Reader) (*FileData, error) {
	var data FileData
	if err := json.NewDecoder(r).Decode(&data); err != nil {
		return nil, fmt.Errorf("failed to parse harness input: %w", err)
	}
	return &data, nil
}

// LoadFileData parses the harness input file at path.
func LoadFileData(path string) (*FileData, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open harness input %s: %w", path, err)
	}
	defer func() { _ = file.Close() }()
	return FileDataFromReader(file)
}

// GlobalState converts the parsed start state into the machine's form.
func (d *FileData) GlobalState() types.GlobalState {
	return types.GlobalState{
		Bytes32Vals: [2]types.Bytes32{d.StartState.BlockHash, d.StartState.SendRoot},
		U64Vals:     [2]uint64{d.StartState.Batch, d.StartState.PosInBatch},
	}
}

// Resolver builds a preimage resolver over the file's preimage records.
func (d *FileData) Resolver() types.PreimageResolver {
	byHash := make(map[types.Bytes32][]byte, len(d.Preimages))
	for _, record := range d.Preimages {
		byHash[record.Hash] = record.Data
	}
	return func(_ uint64, _ types.PreimageType, hash types.Bytes32) ([]byte, bool) {
		data, ok := byHash[hash]
		return data, ok
	}
}

// Leaves derives a deterministic leaf vector for the workload tree from the
// input's message bytes, so two runs over the same file commit to the same
// roots.
func (d *FileData) Leaves(count int) []types.Bytes32 {
	leaves := make([]types.Bytes32, count)
	seed := crypto.Keccak256(d.Msg)
	for i := range leaves {
		leaves[i] = types.Bytes32(crypto.Keccak256Hash(seed, types.Uint64ToBytes32(uint64(i)).Bytes()))
	}
	return leaves
}
