package storage

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	bolt "go.etcd.io/bbolt"
)

const (
	runBucket = "runs"
	keyBytes  = 8
)

// storedRun wraps a record with its expiry.
type storedRun struct {
	ExpiresAt int64     `json:"expires_at"`
	Run       RunRecord `json:"run"`
}

// boltStore implements a Store backed by BoltDB. Keys are big-endian start
// timestamps so cursor order is chronological.
type boltStore struct {
	db              *bolt.DB
	cleanupMu       sync.Mutex
	lastCleanup     atomic.Int64
	runTTL          time.Duration
	cleanupInterval time.Duration
	now             func() time.Time
}

// openBolt initializes a BoltDB-backed Store.
func openBolt(path string, opts Options) (Store, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage directory: %w", err)
		}
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bbolt db: %w", err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(runBucket))
		return err
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("init bucket: %w", err)
	}

	store := &boltStore{
		db:              db,
		runTTL:          opts.RunTTL,
		cleanupInterval: opts.CleanupInterval,
		now:             time.Now,
	}
	store.lastCleanup.Store(store.now().Unix())
	return store, nil
}

// Close closes the BoltDB store.
func (b *boltStore) Close() error {
	if b == nil || b.db == nil {
		return nil
	}
	return b.db.Close()
}

// RecordRun appends a run to the ledger.
func (b *boltStore) RecordRun(run RunRecord) error {
	if b == nil || b.db == nil {
		return nil
	}

	now := b.now()
	if err := b.maybeCleanupExpired(now); err != nil {
		return err
	}

	started := run.StartedAt
	if started.IsZero() {
		started = now
	}
	value, err := json.Marshal(storedRun{ExpiresAt: now.Add(b.runTTL).Unix(), Run: run})
	if err != nil {
		return fmt.Errorf("encode run: %w", err)
	}

	return b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(runBucket))
		if bucket == nil {
			return fmt.Errorf("run bucket missing")
		}
		// Runs started in the same nanosecond get the next free key.
		nanos := uint64(started.UnixNano())
		key := encodeKey(nanos)
		for bucket.Get(key) != nil {
			nanos++
			key = encodeKey(nanos)
		}
		return bucket.Put(key, value)
	})
}

// RecentRuns returns up to limit unexpired runs, newest first.
func (b *boltStore) RecentRuns(limit int) ([]RunRecord, error) {
	runs := []RunRecord{}
	if b == nil || b.db == nil || limit <= 0 {
		return runs, nil
	}

	now := b.now()
	err := b.scanNewest(now, func(run RunRecord) bool {
		runs = append(runs, run)
		return len(runs) < limit
	})
	return runs, err
}

// LastRun returns the newest unexpired run of the given mode.
func (b *boltStore) LastRun(mode string) (RunRecord, bool, error) {
	var (
		found RunRecord
		ok    bool
	)
	if b == nil || b.db == nil {
		return found, false, nil
	}

	err := b.scanNewest(b.now(), func(run RunRecord) bool {
		if run.Mode != mode {
			return true
		}
		found, ok = run, true
		return false
	})
	return found, ok, err
}

// scanNewest walks runs from newest to oldest until fn returns false.
func (b *boltStore) scanNewest(now time.Time, fn func(RunRecord) bool) error {
	return b.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(runBucket))
		if bucket == nil {
			return fmt.Errorf("run bucket missing")
		}

		cursor := bucket.Cursor()
		for k, v := cursor.Last(); k != nil; k, v = cursor.Prev() {
			stored, ok := decodeRun(v)
			if !ok || !time.Unix(stored.ExpiresAt, 0).After(now) {
				continue
			}
			if !fn(stored.Run) {
				return nil
			}
		}
		return nil
	})
}

// maybeCleanupExpired removes expired runs on a fixed cadence to avoid unbounded growth.
func (b *boltStore) maybeCleanupExpired(now time.Time) error {
	if b == nil || b.db == nil {
		return nil
	}

	last := time.Unix(b.lastCleanup.Load(), 0)
	if now.Sub(last) < b.cleanupInterval {
		return nil
	}

	b.cleanupMu.Lock()
	defer b.cleanupMu.Unlock()

	last = time.Unix(b.lastCleanup.Load(), 0)
	if now.Sub(last) < b.cleanupInterval {
		return nil
	}

	err := b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(runBucket))
		if bucket == nil {
			return fmt.Errorf("run bucket missing")
		}

		cursor := bucket.Cursor()
		for k, v := cursor.First(); k != nil; k, v = cursor.Next() {
			stored, ok := decodeRun(v)
			if !ok || !time.Unix(stored.ExpiresAt, 0).After(now) {
				if err := cursor.Delete(); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err == nil {
		b.lastCleanup.Store(now.Unix())
	}
	return err
}

func encodeKey(nanos uint64) []byte {
	buf := make([]byte, keyBytes)
	binary.BigEndian.PutUint64(buf, nanos)
	return buf
}

// decodeRun decodes a stored run; values without a positive expiry are invalid.
func decodeRun(value []byte) (storedRun, bool) {
	var stored storedRun
	if err := json.Unmarshal(value, &stored); err != nil {
		return storedRun{}, false
	}
	if stored.ExpiresAt <= 0 {
		return storedRun{}, false
	}
	return stored, true
}
