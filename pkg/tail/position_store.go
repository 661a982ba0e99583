package tail

import (
	"encoding/binary"
	"fmt"
	"sync"

	bolt "go.etcd.io/bbolt"
)

// bucketPositions maps file path -> big-endian byte offset.
var bucketPositions = []byte("file_positions")

// boltPositionStore implements PositionStore using BoltDB.
// Bolt serializes transactions itself, so no extra locking is needed.
type boltPositionStore struct {
	db *bolt.DB
}

// NewBoltPositionStore creates a BoltDB-based position store.
func NewBoltPositionStore(db *bolt.DB) (PositionStore, error) {
	if err := db.Update(func(tx *bolt.Tx) error {
		_, createErr := tx.CreateBucketIfNotExists(bucketPositions)
		return createErr
	}); err != nil {
		return nil, fmt.Errorf("failed to create positions bucket: %w", err)
	}

	return &boltPositionStore{db: db}, nil
}

// GetPosition implements PositionStore.GetPosition.
func (s *boltPositionStore) GetPosition(path string) (int64, error) {
	var offset int64

	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketPositions).Get([]byte(path))
		if len(data) != 8 {
			// Unknown file, or a value written by an older build.
			// Either way the caller starts over safely at 0.
			return nil
		}
		offset = int64(binary.BigEndian.Uint64(data)) // nolint:gosec
		return nil
	})
	if err != nil {
		return 0, err
	}

	return offset, nil
}

// SetPosition implements PositionStore.SetPosition.
func (s *boltPositionStore) SetPosition(path string, offset int64) error {
	var data [8]byte
	binary.BigEndian.PutUint64(data[:], uint64(offset)) // nolint:gosec

	return s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.Bucket(bucketPositions).Put([]byte(path), data[:]); err != nil {
			return fmt.Errorf("failed to store position: %w", err)
		}
		return nil
	})
}

// memoryPositionStore implements PositionStore using an in-memory map.
// Useful for testing and for runs without persistence.
type memoryPositionStore struct {
	positions map[string]int64
	mu        sync.RWMutex
}

// NewMemoryPositionStore creates an in-memory position store.
func NewMemoryPositionStore() PositionStore {
	return &memoryPositionStore{
		positions: make(map[string]int64),
	}
}

// GetPosition implements PositionStore.GetPosition.
func (s *memoryPositionStore) GetPosition(path string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.positions[path], nil
}

// SetPosition implements PositionStore.SetPosition.
func (s *memoryPositionStore) SetPosition(path string, offset int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.positions[path] = offset
	return nil
}
