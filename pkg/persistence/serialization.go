package persistence

import (
	"encoding/json"
	"fmt"
)

// MarshalMachineSnapshot serializes a MachineSnapshot to JSON bytes. The
// embedded merkle trees marshal through their own snapshot form, so the
// round trip preserves roots and pending dirtiness.
func MarshalMachineSnapshot(snapshot *MachineSnapshot) ([]byte, error) {
	if snapshot == nil {
		return nil, fmt.Errorf("cannot marshal nil MachineSnapshot")
	}

	data, err := json.Marshal(snapshot)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal MachineSnapshot to JSON: %w", err)
	}

	return data, nil
}

// UnmarshalMachineSnapshot deserializes a MachineSnapshot from JSON bytes.
func UnmarshalMachineSnapshot(data []byte) (*MachineSnapshot, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("cannot unmarshal empty data")
	}

	var snapshot MachineSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("failed to unmarshal JSON to MachineSnapshot: %w", err)
	}

	return &snapshot, nil
}

// MarshalProverState serializes ProverState to JSON bytes.
func MarshalProverState(state *ProverState) ([]byte, error) {
	if state == nil {
		return nil, fmt.Errorf("cannot marshal nil ProverState")
	}

	return json.Marshal(state)
}

// UnmarshalProverState deserializes ProverState from JSON bytes.
func UnmarshalProverState(data []byte) (*ProverState, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("cannot unmarshal empty data")
	}

	var state ProverState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to unmarshal JSON to ProverState: %w", err)
	}

	return &state, nil
}
