package badger

import (
	"context"
	"encoding/binary"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	badgerdb "github.com/dgraph-io/badger/v3"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/wavmlabs/wavm-prover-go/pkg/persistence"
)

// Key prefixes for namespacing
const (
	keyPrefixSnapshot    = "snapshot:"
	keyLatestStep        = "metadata:latest_step"
	keyProverState       = "proverstate:main"
	keySchemaVersion     = "metadata:schema_version"
	currentSchemaVersion = "v1"

	gcInterval     = 5 * time.Minute
	gcDiscardRatio = 0.7
)

// BadgerPersistence is a production-ready persistence implementation using
// Badger. Provides durable, disk-based storage with ACID guarantees for
// prover checkpoints.
type BadgerPersistence struct {
	db       *badgerdb.DB
	logger   *zap.Logger
	gcCancel context.CancelFunc
	gcWg     sync.WaitGroup
	mu       sync.RWMutex
	closed   bool
}

var _ persistence.IProverPersistence = (*BadgerPersistence)(nil)

// NewBadgerPersistence creates a new Badger-backed persistence layer.
// The database is opened at the specified path with SyncWrites enabled for
// durability. A background goroutine is started for garbage collection.
func NewBadgerPersistence(dataPath string, logger *zap.Logger) (*BadgerPersistence, error) {
	absPath, err := filepath.Abs(dataPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve absolute path: %w", err)
	}

	opts := badgerdb.DefaultOptions(absPath)
	opts.Logger = &badgerLoggerAdapter{logger: logger}
	opts.SyncWrites = true // snapshots must survive a crash mid-run
	opts.CompactL0OnClose = true
	opts.NumVersionsToKeep = 1

	db, err := badgerdb.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger database at %s: %w", absPath, err)
	}

	bp := &BadgerPersistence{
		db:     db,
		logger: logger,
	}

	if err := bp.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	bp.gcCancel = cancel
	bp.gcWg.Add(1)
	go bp.runGC(ctx)

	logger.Sugar().Infow("Badger persistence initialized", "path", absPath)

	return bp, nil
}

// initSchema initializes or validates the schema version
func (b *BadgerPersistence) initSchema() error {
	return b.db.Update(func(txn *badgerdb.Txn) error {
		item, err := txn.Get([]byte(keySchemaVersion))
		if err == badgerdb.ErrKeyNotFound {
			return txn.Set([]byte(keySchemaVersion), []byte(currentSchemaVersion))
		}
		if err != nil {
			return fmt.Errorf("failed to read schema version: %w", err)
		}

		var existingVersion string
		err = item.Value(func(val []byte) error {
			existingVersion = string(val)
			return nil
		})
		if err != nil {
			return err
		}
		if existingVersion != currentSchemaVersion {
			return fmt.Errorf("schema version mismatch: found %s, want %s", existingVersion, currentSchemaVersion)
		}
		return nil
	})
}

// runGC runs Badger's value-log garbage collection on a timer.
func (b *BadgerPersistence) runGC(ctx context.Context) {
	defer b.gcWg.Done()

	ticker := time.NewTicker(gcInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// ErrNoRewrite just means there was nothing to collect.
			err := b.db.RunValueLogGC(gcDiscardRatio)
			if err != nil && err != badgerdb.ErrNoRewrite {
				b.logger.Sugar().Warnw("Badger GC failed", "error", err)
			}
		}
	}
}

func snapshotKey(step uint64) []byte {
	key := make([]byte, len(keyPrefixSnapshot)+8)
	copy(key, keyPrefixSnapshot)
	binary.BigEndian.PutUint64(key[len(keyPrefixSnapshot):], step)
	return key
}

// SaveSnapshot persists a machine snapshot indexed by step.
func (b *BadgerPersistence) SaveSnapshot(snapshot *persistence.MachineSnapshot) error {
	if err := b.checkOpen(); err != nil {
		return err
	}
	if snapshot == nil {
		return fmt.Errorf("cannot save nil MachineSnapshot")
	}

	data, err := persistence.MarshalMachineSnapshot(snapshot)
	if err != nil {
		return err
	}

	err = b.db.Update(func(txn *badgerdb.Txn) error {
		return txn.Set(snapshotKey(snapshot.Step), data)
	})
	return errors.Wrapf(err, "failed to save snapshot at step %d", snapshot.Step)
}

// LoadSnapshot retrieves a snapshot by step, nil if absent.
func (b *BadgerPersistence) LoadSnapshot(step uint64) (*persistence.MachineSnapshot, error) {
	if err := b.checkOpen(); err != nil {
		return nil, err
	}

	var data []byte
	err := b.db.View(func(txn *badgerdb.Txn) error {
		item, err := txn.Get(snapshotKey(step))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if err == badgerdb.ErrKeyNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load snapshot at step %d", step)
	}
	return persistence.UnmarshalMachineSnapshot(data)
}

// ListSnapshots returns all snapshots sorted by step. Snapshot keys encode
// the step big-endian, so Badger's key order is already step order.
func (b *BadgerPersistence) ListSnapshots() ([]*persistence.MachineSnapshot, error) {
	if err := b.checkOpen(); err != nil {
		return nil, err
	}

	snapshots := make([]*persistence.MachineSnapshot, 0)
	err := b.db.View(func(txn *badgerdb.Txn) error {
		opts := badgerdb.DefaultIteratorOptions
		opts.Prefix = []byte(keyPrefixSnapshot)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			data, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			snapshot, err := persistence.UnmarshalMachineSnapshot(data)
			if err != nil {
				return err
			}
			snapshots = append(snapshots, snapshot)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to list snapshots")
	}
	return snapshots, nil
}

// DeleteSnapshot removes a snapshot by step. Idempotent.
func (b *BadgerPersistence) DeleteSnapshot(step uint64) error {
	if err := b.checkOpen(); err != nil {
		return err
	}

	err := b.db.Update(func(txn *badgerdb.Txn) error {
		return txn.Delete(snapshotKey(step))
	})
	return errors.Wrapf(err, "failed to delete snapshot at step %d", step)
}

// SetLatestStep stores the resume checkpoint step.
func (b *BadgerPersistence) SetLatestStep(step uint64) error {
	if err := b.checkOpen(); err != nil {
		return err
	}

	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], step)
	err := b.db.Update(func(txn *badgerdb.Txn) error {
		return txn.Set([]byte(keyLatestStep), buf[:])
	})
	return errors.Wrap(err, "failed to set latest step")
}

// GetLatestStep returns the resume checkpoint step, 0 if unset.
func (b *BadgerPersistence) GetLatestStep() (uint64, error) {
	if err := b.checkOpen(); err != nil {
		return 0, err
	}

	var step uint64
	err := b.db.View(func(txn *badgerdb.Txn) error {
		item, err := txn.Get([]byte(keyLatestStep))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			if len(val) != 8 {
				return fmt.Errorf("latest step value is %d bytes, want 8", len(val))
			}
			step = binary.BigEndian.Uint64(val)
			return nil
		})
	})
	if err == badgerdb.ErrKeyNotFound {
		return 0, nil
	}
	if err != nil {
		return 0, errors.Wrap(err, "failed to get latest step")
	}
	return step, nil
}

// SaveProverState persists run progress.
func (b *BadgerPersistence) SaveProverState(state *persistence.ProverState) error {
	if err := b.checkOpen(); err != nil {
		return err
	}

	data, err := persistence.MarshalProverState(state)
	if err != nil {
		return err
	}
	err = b.db.Update(func(txn *badgerdb.Txn) error {
		return txn.Set([]byte(keyProverState), data)
	})
	return errors.Wrap(err, "failed to save prover state")
}

// LoadProverState retrieves run progress, nil if none exists.
func (b *BadgerPersistence) LoadProverState() (*persistence.ProverState, error) {
	if err := b.checkOpen(); err != nil {
		return nil, err
	}

	var data []byte
	err := b.db.View(func(txn *badgerdb.Txn) error {
		item, err := txn.Get([]byte(keyProverState))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if err == badgerdb.ErrKeyNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to load prover state")
	}
	return persistence.UnmarshalProverState(data)
}

// Close stops GC and closes the database. Idempotent.
func (b *BadgerPersistence) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true

	b.gcCancel()
	b.gcWg.Wait()

	if err := b.db.Close(); err != nil {
		return errors.Wrap(err, "failed to close badger database")
	}
	return nil
}

// HealthCheck verifies the database is open and readable.
func (b *BadgerPersistence) HealthCheck() error {
	if err := b.checkOpen(); err != nil {
		return err
	}

	err := b.db.View(func(txn *badgerdb.Txn) error {
		_, err := txn.Get([]byte(keySchemaVersion))
		return err
	})
	return errors.Wrap(err, "badger health check failed")
}

func (b *BadgerPersistence) checkOpen() error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return fmt.Errorf("persistence layer is closed")
	}
	return nil
}
