package paramstore

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"time"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/flightos/mcpd/internal/logger"
)

// SnapshotStore persists a best-effort, point-in-time copy of the
// parameter array to an embedded badger database on a slow timer, so a
// restarted supervisor can seed its publication region with the last
// known values instead of starting from zero. It is never on the
// set/get hot path: persistence failures are logged, not surfaced.
type SnapshotStore struct {
	db *badger.DB
}

// OpenSnapshotStore opens (creating if necessary) the badger database at
// dir.
func OpenSnapshotStore(dir string) (*SnapshotStore, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("paramstore: open snapshot store: %w", err)
	}
	return &SnapshotStore{db: db}, nil
}

func (s *SnapshotStore) Close() error {
	return s.db.Close()
}

func paramKey(id uint32) []byte {
	key := make([]byte, 4)
	binary.BigEndian.PutUint32(key, id)
	return key
}

// Snapshot writes the current value of every declared parameter, as
// reported by store, into the snapshot database.
func (s *SnapshotStore) Snapshot(store *Store, paramIDs []uint32) error {
	return s.db.Update(func(txn *badger.Txn) error {
		for _, id := range paramIDs {
			v := store.Get(id)
			buf := make([]byte, 8)
			binary.BigEndian.PutUint64(buf, math.Float64bits(v))
			if err := txn.Set(paramKey(id), buf); err != nil {
				return fmt.Errorf("paramstore: snapshot param %d: %w", id, err)
			}
		}
		return nil
	})
}

// Restore reads every previously snapshotted value back into store,
// skipping ids that have no snapshot (a fresh parameter never
// persisted).
func (s *SnapshotStore) Restore(store *Store, paramIDs []uint32) error {
	return s.db.View(func(txn *badger.Txn) error {
		for _, id := range paramIDs {
			item, err := txn.Get(paramKey(id))
			if err == badger.ErrKeyNotFound {
				continue
			}
			if err != nil {
				return fmt.Errorf("paramstore: restore param %d: %w", id, err)
			}
			if err := item.Value(func(val []byte) error {
				v := math.Float64frombits(binary.BigEndian.Uint64(val))
				return store.Set(id, v)
			}); err != nil {
				return fmt.Errorf("paramstore: restore param %d: %w", id, err)
			}
		}
		return nil
	})
}

// RunSnapshotLoop persists the parameter array every interval until ctx
// is canceled. Failures are logged and otherwise ignored: a missed
// snapshot only costs durability, never correctness.
func (s *SnapshotStore) RunSnapshotLoop(ctx context.Context, store *Store, paramIDs []uint32, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Snapshot(store, paramIDs); err != nil {
				logger.Warn("parameter snapshot failed", "error", err)
			}
		}
	}
}
