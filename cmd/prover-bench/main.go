package main

import (
	"fmt"
	"log"
	"os"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/wavmlabs/wavm-prover-go/pkg/bench"
	"github.com/wavmlabs/wavm-prover-go/pkg/config"
	"github.com/wavmlabs/wavm-prover-go/pkg/logger"
	"github.com/wavmlabs/wavm-prover-go/pkg/merkle"
	"github.com/wavmlabs/wavm-prover-go/pkg/persistence"
	badgerstore "github.com/wavmlabs/wavm-prover-go/pkg/persistence/badger"
	memorystore "github.com/wavmlabs/wavm-prover-go/pkg/persistence/memory"
	redisstore "github.com/wavmlabs/wavm-prover-go/pkg/persistence/redis"
)

func main() {
	app := &cli.App{
		Name:  "prover-bench",
		Usage: "Benchmark harness for the prover's merkle commitment trees",
		Description: `Drives the prover's hot loop - scattered leaf writes followed by lazy
root recomputation - against a memory merkle tree sized like a real machine,
and checkpoints commitment snapshots to a persistence backend.

The workload is deterministic: the same input file (or synthetic seed)
always commits to the same roots.`,
		Version: "1.0.0",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "input-path",
				Aliases: []string{"i"},
				Usage:   "Path to a harness input file (start state, messages, preimages); empty runs a synthetic workload",
				EnvVars: []string{"PROVER_BENCH_INPUT"},
			},
			&cli.IntFlag{
				Name:    "leaves",
				Aliases: []string{"n"},
				Value:   1 << 14,
				Usage:   "Number of leaves the workload tree starts with",
				EnvVars: []string{"PROVER_BENCH_LEAVES"},
			},
			&cli.IntFlag{
				Name:    "memory-layers",
				Value:   config.DefaultMemoryLayers,
				Usage:   "Depth of the memory tree under test",
				EnvVars: []string{"PROVER_BENCH_MEMORY_LAYERS"},
			},
			&cli.Uint64Flag{
				Name:    "step-size",
				Value:   config.DefaultStepSize,
				Usage:   "Leaf mutations per iteration, between root recomputations",
				EnvVars: []string{"PROVER_BENCH_STEP_SIZE"},
			},
			&cli.IntFlag{
				Name:    "iterations",
				Value:   64,
				Usage:   "Number of step/root iterations to run",
				EnvVars: []string{"PROVER_BENCH_ITERATIONS"},
			},
			&cli.IntFlag{
				Name:    "checkpoint-every",
				Value:   16,
				Usage:   "Iterations between persisted snapshots (0 disables)",
				EnvVars: []string{"PROVER_BENCH_CHECKPOINT_EVERY"},
			},
			&cli.StringFlag{
				Name:    "persistence-type",
				Value:   string(config.PersistenceTypeMemory),
				Usage:   "Checkpoint store: memory, badger, or redis",
				EnvVars: []string{"PROVER_BENCH_PERSISTENCE_TYPE"},
			},
			&cli.StringFlag{
				Name:    "data-path",
				Value:   "./prover-bench-data",
				Usage:   "Badger database directory",
				EnvVars: []string{"PROVER_BENCH_DATA_PATH"},
			},
			&cli.StringFlag{
				Name:    "redis-address",
				Usage:   "Redis server address (host:port)",
				EnvVars: []string{"PROVER_BENCH_REDIS_ADDRESS"},
			},
			&cli.IntFlag{
				Name:    "compare-leaves",
				Usage:   "Also run a build comparison against a reference merkle implementation with this many leaves (0 disables)",
				EnvVars: []string{"PROVER_BENCH_COMPARE_LEAVES"},
			},
			&cli.BoolFlag{
				Name:    "counters",
				Usage:   "Collect and dump per-type merkle op counters",
				EnvVars: []string{"PROVER_BENCH_COUNTERS"},
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Usage:   "Enable verbose logging",
				EnvVars: []string{"PROVER_BENCH_VERBOSE"},
			},
		},
		Action: runBench,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatalf("Application error: %v", err)
	}
}

func runBench(c *cli.Context) error {
	cfg, err := parseConfig(c)
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	benchLogger, err := logger.NewLogger(&logger.LoggerConfig{Debug: cfg.Verbose})
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer func() { _ = benchLogger.Sync() }()

	if c.Bool("counters") {
		merkle.EnableCounters()
		defer merkle.LogCounters(benchLogger)
	}

	store, err := openStore(cfg, benchLogger)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	if err := store.HealthCheck(); err != nil {
		return fmt.Errorf("persistence health check failed: %w", err)
	}

	if _, err := bench.RunWorkload(cfg, store, benchLogger); err != nil {
		return err
	}

	if compareLeaves := c.Int("compare-leaves"); compareLeaves > 0 {
		if _, err := bench.RunComparison(compareLeaves, cfg.MemoryLayers, benchLogger); err != nil {
			return err
		}
	}
	return nil
}

func parseConfig(c *cli.Context) (*config.Config, error) {
	persistenceType, err := config.ParsePersistenceType(c.String("persistence-type"))
	if err != nil {
		return nil, err
	}

	cfg := &config.Config{
		InputPath:       c.String("input-path"),
		LeafCount:       c.Int("leaves"),
		MemoryLayers:    c.Int("memory-layers"),
		StepSize:        c.Uint64("step-size"),
		MaxIterations:   c.Int("iterations"),
		CheckpointEvery: c.Int("checkpoint-every"),
		PersistenceType: persistenceType,
		DataPath:        c.String("data-path"),
		RedisAddress:    c.String("redis-address"),
		Verbose:         c.Bool("verbose"),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func openStore(cfg *config.Config, benchLogger *zap.Logger) (persistence.IProverPersistence, error) {
	switch cfg.PersistenceType {
	case config.PersistenceTypeBadger:
		return badgerstore.NewBadgerPersistence(cfg.DataPath, benchLogger)
	case config.PersistenceTypeRedis:
		return redisstore.NewRedisPersistence(&redisstore.RedisConfig{Address: cfg.RedisAddress}, benchLogger)
	default:
		return memorystore.NewMemoryPersistence(), nil
	}
}
