package registry

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cockroachdb/pebble"
)

const (
	// defaultSyncInterval is the default interval between WAL syncs.
	defaultSyncInterval = 100 * time.Millisecond
)

// keyValue is one pair of an atomic batch write.
type keyValue struct {
	key   []byte // key is the record key
	value []byte // value is the encoded record
}

// store is a Pebble key-value store.
// Writes skip fsync and a background goroutine syncs the WAL periodically.
type store struct {
	db       *pebble.DB    // db is the underlying Pebble database
	stopSync chan struct{} // stopSync signals the sync goroutine to stop
	wg       sync.WaitGroup
}

// openStore opens or creates a store at path and starts the sync loop.
func openStore(path string, syncInterval time.Duration) (*store, error) {
	opts := &pebble.Options{
		Cache:                       pebble.NewCache(8 << 20), // 8 MB cache
		MemTableSize:                4 << 20,                  // 4 MB memtable
		MemTableStopWritesThreshold: 2,
	}

	db, err := pebble.Open(path, opts)
	if err != nil {
		return nil, fmt.Errorf("open pebble at %s:\n%w", path, err)
	}

	if syncInterval <= 0 {
		syncInterval = defaultSyncInterval
	}

	s := &store{
		db:       db,
		stopSync: make(chan struct{}),
	}

	s.startSyncLoop(syncInterval)

	return s, nil
}

// get returns a copy of the value for key, or nil if absent.
func (s *store) get(key []byte) ([]byte, error) {
	value, closer, err := s.db.Get(key)
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer closer.Close()

	// value is invalid after closer.Close()
	result := make([]byte, len(value))
	copy(result, value)

	return result, nil
}

// set stores a pair. The write is synced by the background loop.
func (s *store) set(key, value []byte) error {
	return s.db.Set(key, value, pebble.NoSync)
}

// delete removes key.
func (s *store) delete(key []byte) error {
	return s.db.Delete(key, pebble.NoSync)
}

// setBatch atomically stores every pair.
func (s *store) setBatch(pairs []keyValue) error {
	batch := s.db.NewBatch()
	defer batch.Close()

	for _, kv := range pairs {
		if err := batch.Set(kv.key, kv.value, nil); err != nil {
			return err
		}
	}

	return batch.Commit(pebble.NoSync)
}

// iteratePrefix calls fn for each pair under prefix in key order.
// Iteration stops at the first error fn returns.
func (s *store) iteratePrefix(prefix []byte, fn func(key, value []byte) error) error {
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: prefixUpperBound(prefix),
	})
	if err != nil {
		return err
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		value, err := iter.ValueAndErr()
		if err != nil {
			return err
		}

		if err := fn(iter.Key(), value); err != nil {
			return err
		}
	}

	return iter.Error()
}

// prefixUpperBound returns the exclusive upper bound of a prefix scan,
// or nil when prefix is all 0xFF.
func prefixUpperBound(prefix []byte) []byte {
	upper := make([]byte, len(prefix))
	copy(upper, prefix)

	for i := len(upper) - 1; i >= 0; i-- {
		upper[i]++
		if upper[i] != 0 {
			return upper[:i+1]
		}
	}

	return nil
}

// close stops the sync loop, syncs once more and closes the database.
func (s *store) close() error {
	close(s.stopSync)
	s.wg.Wait()

	if err := s.sync(); err != nil {
		return fmt.Errorf("final sync:\n%w", err)
	}

	return s.db.Close()
}

// startSyncLoop syncs the WAL every interval until close.
func (s *store) startSyncLoop(interval time.Duration) {
	s.wg.Add(1)

	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				_ = s.sync()
			case <-s.stopSync:
				return
			}
		}
	}()
}

// sync forces a WAL sync to disk.
func (s *store) sync() error {
	return s.db.LogData(nil, pebble.Sync)
}
