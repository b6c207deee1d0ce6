package bench

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wavmlabs/wavm-prover-go/pkg/config"
	"github.com/wavmlabs/wavm-prover-go/pkg/persistence"
	"github.com/wavmlabs/wavm-prover-go/pkg/types"
)

// Result summarizes a workload run.
type Result struct {
	RunID       string
	Iterations  int
	Steps       uint64
	AvgStepTime time.Duration
	AvgHashTime time.Duration
	FinalRoot   types.Bytes32
	FinalStatus types.MachineStatus
}

// RunWorkload drives a machine through the prover's hot loop (step a
// batch, then recompute the commitment), timing both halves, and checkpoints to
// the store on the configured interval.
func RunWorkload(cfg *config.Config, store persistence.IProverPersistence, logger *zap.Logger) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid workload config: %w", err)
	}

	var (
		leaves      []types.Bytes32
		globalState types.GlobalState
		resolver    types.PreimageResolver
	)
	if cfg.InputPath != "" {
		fileData, err := LoadFileData(cfg.InputPath)
		if err != nil {
			return nil, err
		}
		leaves = fileData.Leaves(cfg.LeafCount)
		globalState = fileData.GlobalState()
		resolver = fileData.Resolver()
	} else {
		leaves = make([]types.Bytes32, cfg.LeafCount)
		for i := range leaves {
			leaves[i] = types.Uint64ToBytes32(uint64(i))
		}
		resolver = func(uint64, types.PreimageType, types.Bytes32) ([]byte, bool) { return nil, false }
	}

	maxSteps := cfg.StepSize * uint64(cfg.MaxIterations)
	machine := newTreeMachine(leaves, cfg.MemoryLayers, globalState, resolver, maxSteps)

	runID := uuid.New().String()
	startTime := time.Now()
	logger.Sugar().Infow("Starting workload",
		"run_id", runID,
		"leaves", cfg.LeafCount,
		"memory_layers", cfg.MemoryLayers,
		"step_size", cfg.StepSize,
		"max_iterations", cfg.MaxIterations,
	)

	if err := store.SaveProverState(&persistence.ProverState{
		RunID:     runID,
		StartTime: startTime.Unix(),
	}); err != nil {
		return nil, fmt.Errorf("failed to record run start: %w", err)
	}

	stepTimes := make([]time.Duration, 0, cfg.MaxIterations)
	hashTimes := make([]time.Duration, 0, cfg.MaxIterations)

	iterations := 0
	for ; iterations < cfg.MaxIterations; iterations++ {
		start := time.Now()
		if err := machine.StepN(cfg.StepSize); err != nil {
			return nil, fmt.Errorf("machine errored at step %d: %w", machine.GetSteps(), err)
		}
		stepTimes = append(stepTimes, time.Since(start))

		start = time.Now()
		root := machine.Hash()
		hashTimes = append(hashTimes, time.Since(start))

		if cfg.CheckpointEvery > 0 && (iterations+1)%cfg.CheckpointEvery == 0 {
			if err := checkpoint(machine, store, runID, startTime); err != nil {
				return nil, err
			}
			logger.Sugar().Debugw("Checkpointed",
				"step", machine.GetSteps(), "root", root.Hex())
		}

		if machine.GetStatus() != types.MachineStatusRunning {
			iterations++
			break
		}
	}

	result := &Result{
		RunID:       runID,
		Iterations:  iterations,
		Steps:       machine.GetSteps(),
		AvgStepTime: average(stepTimes),
		AvgHashTime: average(hashTimes),
		FinalRoot:   machine.Hash(),
		FinalStatus: machine.GetStatus(),
	}
	logger.Sugar().Infow("Workload finished",
		"run_id", result.RunID,
		"iterations", result.Iterations,
		"steps", result.Steps,
		"avg_step_time", result.AvgStepTime,
		"avg_hash_time", result.AvgHashTime,
		"root", result.FinalRoot.Hex(),
		"status", result.FinalStatus.String(),
	)
	return result, nil
}

func checkpoint(machine Machine, store persistence.IProverPersistence, runID string, startTime time.Time) error {
	snapshot := machine.Snapshot()
	if err := store.SaveSnapshot(snapshot); err != nil {
		return fmt.Errorf("failed to checkpoint at step %d: %w", snapshot.Step, err)
	}
	if err := store.SetLatestStep(snapshot.Step); err != nil {
		return fmt.Errorf("failed to advance latest step: %w", err)
	}
	return store.SaveProverState(&persistence.ProverState{
		RunID:                runID,
		LastCheckpointedStep: snapshot.Step,
		StartTime:            startTime.Unix(),
	})
}

func average(durations []time.Duration) time.Duration {
	if len(durations) == 0 {
		return 0
	}
	var sum time.Duration
	for _, d := range durations {
		sum += d
	}
	return sum / time.Duration(len(durations))
}
