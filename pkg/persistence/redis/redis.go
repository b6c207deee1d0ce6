package redis

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/wavmlabs/wavm-prover-go/pkg/persistence"
)

// Key prefixes for namespacing in Redis
const (
	keyPrefixSnapshot    = "prover:snapshot:"
	keyLatestStep        = "prover:latest:step"
	keyProverState       = "prover:state:main"
	keySchemaVersion     = "prover:metadata:schema_version"
	currentSchemaVersion = "v1"

	// Key set for listing operations (Redis doesn't support prefix iteration natively)
	keySetSnapshots = "prover:snapshots:index"

	opTimeout = 5 * time.Second
)

// RedisPersistence is a persistence implementation using Redis, suitable for
// sharing prover checkpoints between a fleet of harness machines.
type RedisPersistence struct {
	client    *redis.Client
	logger    *zap.Logger
	keyPrefix string // Custom prefix for all keys
	mu        sync.RWMutex
	closed    bool
}

var _ persistence.IProverPersistence = (*RedisPersistence)(nil)

// RedisConfig holds the configuration for connecting to Redis
type RedisConfig struct {
	// Address is the Redis server address (host:port)
	Address string
	// Password is the optional Redis password
	Password string
	// DB is the Redis database number (0-15)
	DB int
	// KeyPrefix is an optional custom prefix for all keys (for multi-tenant
	// setups). If set, it is prepended to every key, e.g. "bench7:" yields
	// keys like "bench7:prover:snapshot:123".
	KeyPrefix string
}

// NewRedisPersistence creates a new Redis-backed persistence layer.
func NewRedisPersistence(cfg *RedisConfig, logger *zap.Logger) (*RedisPersistence, error) {
	if cfg == nil {
		return nil, fmt.Errorf("redis config cannot be nil")
	}
	if cfg.Address == "" {
		return nil, fmt.Errorf("redis address cannot be empty")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.Address, err)
	}

	rp := &RedisPersistence{
		client:    client,
		logger:    logger,
		keyPrefix: cfg.KeyPrefix,
	}

	if err := rp.initSchema(ctx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.Sugar().Infow("Redis persistence initialized", "address", cfg.Address, "db", cfg.DB)

	return rp, nil
}

func (r *RedisPersistence) key(suffix string) string {
	return r.keyPrefix + suffix
}

func (r *RedisPersistence) snapshotKey(step uint64) string {
	return r.key(keyPrefixSnapshot) + strconv.FormatUint(step, 10)
}

func (r *RedisPersistence) initSchema(ctx context.Context) error {
	existing, err := r.client.Get(ctx, r.key(keySchemaVersion)).Result()
	if err == redis.Nil {
		return r.client.Set(ctx, r.key(keySchemaVersion), currentSchemaVersion, 0).Err()
	}
	if err != nil {
		return err
	}
	if existing != currentSchemaVersion {
		return fmt.Errorf("schema version mismatch: found %s, want %s", existing, currentSchemaVersion)
	}
	return nil
}

func (r *RedisPersistence) opContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), opTimeout)
}

// SaveSnapshot persists a machine snapshot and records its step in the index
// set used by ListSnapshots.
func (r *RedisPersistence) SaveSnapshot(snapshot *persistence.MachineSnapshot) error {
	if err := r.checkOpen(); err != nil {
		return err
	}
	if snapshot == nil {
		return fmt.Errorf("cannot save nil MachineSnapshot")
	}

	data, err := persistence.MarshalMachineSnapshot(snapshot)
	if err != nil {
		return err
	}

	ctx, cancel := r.opContext()
	defer cancel()

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, r.snapshotKey(snapshot.Step), data, 0)
	pipe.SAdd(ctx, r.key(keySetSnapshots), strconv.FormatUint(snapshot.Step, 10))
	_, err = pipe.Exec(ctx)
	return errors.Wrapf(err, "failed to save snapshot at step %d", snapshot.Step)
}

// LoadSnapshot retrieves a snapshot by step, nil if absent.
func (r *RedisPersistence) LoadSnapshot(step uint64) (*persistence.MachineSnapshot, error) {
	if err := r.checkOpen(); err != nil {
		return nil, err
	}

	ctx, cancel := r.opContext()
	defer cancel()

	data, err := r.client.Get(ctx, r.snapshotKey(step)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load snapshot at step %d", step)
	}
	return persistence.UnmarshalMachineSnapshot(data)
}

// ListSnapshots returns all snapshots sorted by step (ascending).
func (r *RedisPersistence) ListSnapshots() ([]*persistence.MachineSnapshot, error) {
	if err := r.checkOpen(); err != nil {
		return nil, err
	}

	ctx, cancel := r.opContext()
	defer cancel()

	members, err := r.client.SMembers(ctx, r.key(keySetSnapshots)).Result()
	if err != nil {
		return nil, errors.Wrap(err, "failed to list snapshot index")
	}

	steps := make([]uint64, 0, len(members))
	for _, member := range members {
		step, err := strconv.ParseUint(member, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("corrupt snapshot index entry %q: %w", member, err)
		}
		steps = append(steps, step)
	}
	sort.Slice(steps, func(i, j int) bool { return steps[i] < steps[j] })

	snapshots := make([]*persistence.MachineSnapshot, 0, len(steps))
	for _, step := range steps {
		snapshot, err := r.LoadSnapshot(step)
		if err != nil {
			return nil, err
		}
		if snapshot == nil {
			// Index member without a value: the snapshot was deleted out of
			// band. Skip it rather than fail the listing.
			continue
		}
		snapshots = append(snapshots, snapshot)
	}
	return snapshots, nil
}

// DeleteSnapshot removes a snapshot and its index entry. Idempotent.
func (r *RedisPersistence) DeleteSnapshot(step uint64) error {
	if err := r.checkOpen(); err != nil {
		return err
	}

	ctx, cancel := r.opContext()
	defer cancel()

	pipe := r.client.TxPipeline()
	pipe.Del(ctx, r.snapshotKey(step))
	pipe.SRem(ctx, r.key(keySetSnapshots), strconv.FormatUint(step, 10))
	_, err := pipe.Exec(ctx)
	return errors.Wrapf(err, "failed to delete snapshot at step %d", step)
}

// SetLatestStep stores the resume checkpoint step.
func (r *RedisPersistence) SetLatestStep(step uint64) error {
	if err := r.checkOpen(); err != nil {
		return err
	}

	ctx, cancel := r.opContext()
	defer cancel()

	err := r.client.Set(ctx, r.key(keyLatestStep), strconv.FormatUint(step, 10), 0).Err()
	return errors.Wrap(err, "failed to set latest step")
}

// GetLatestStep returns the resume checkpoint step, 0 if unset.
func (r *RedisPersistence) GetLatestStep() (uint64, error) {
	if err := r.checkOpen(); err != nil {
		return 0, err
	}

	ctx, cancel := r.opContext()
	defer cancel()

	value, err := r.client.Get(ctx, r.key(keyLatestStep)).Result()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, errors.Wrap(err, "failed to get latest step")
	}

	step, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("corrupt latest step value %q: %w", value, err)
	}
	return step, nil
}

// SaveProverState persists run progress.
func (r *RedisPersistence) SaveProverState(state *persistence.ProverState) error {
	if err := r.checkOpen(); err != nil {
		return err
	}

	data, err := persistence.MarshalProverState(state)
	if err != nil {
		return err
	}

	ctx, cancel := r.opContext()
	defer cancel()

	err = r.client.Set(ctx, r.key(keyProverState), data, 0).Err()
	return errors.Wrap(err, "failed to save prover state")
}

// LoadProverState retrieves run progress, nil if none exists.
func (r *RedisPersistence) LoadProverState() (*persistence.ProverState, error) {
	if err := r.checkOpen(); err != nil {
		return nil, err
	}

	ctx, cancel := r.opContext()
	defer cancel()

	data, err := r.client.Get(ctx, r.key(keyProverState)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to load prover state")
	}
	return persistence.UnmarshalProverState(data)
}

// Close shuts down the Redis client. Idempotent.
func (r *RedisPersistence) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true

	if err := r.client.Close(); err != nil {
		return errors.Wrap(err, "failed to close redis client")
	}
	return nil
}

// HealthCheck pings the server.
func (r *RedisPersistence) HealthCheck() error {
	if err := r.checkOpen(); err != nil {
		return err
	}

	ctx, cancel := r.opContext()
	defer cancel()

	return errors.Wrap(r.client.Ping(ctx).Err(), "redis health check failed")
}

func (r *RedisPersistence) checkOpen() error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return fmt.Errorf("persistence layer is closed")
	}
	return nil
}
