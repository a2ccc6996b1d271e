package cache

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/cockroachdb/pebble"
	"go.uber.org/zap"
)

// ErrStoreClosed is returned when operating on a closed store
var ErrStoreClosed = errors.New("timestamp store is closed")

// TimestampStore persists block timestamps in a Pebble database so repeated
// scans do not refetch headers. Keys are big-endian block numbers, values
// are big-endian unix timestamps.
type TimestampStore struct {
	db     *pebble.DB
	logger *zap.Logger
	closed bool
}

// NewTimestampStore opens (or creates) a store at the given path
func NewTimestampStore(path string, logger *zap.Logger) (*TimestampStore, error) {
	if path == "" {
		return nil, fmt.Errorf("store path cannot be empty")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("failed to open timestamp store: %w", err)
	}

	logger.Info("timestamp store opened",
		zap.String("path", path),
	)

	return &TimestampStore{
		db:     db,
		logger: logger,
	}, nil
}

// Get returns the cached timestamp for a block, reporting whether it was
// present
func (s *TimestampStore) Get(block uint64) (uint64, bool, error) {
	if s.closed {
		return 0, false, ErrStoreClosed
	}

	value, closer, err := s.db.Get(blockKey(block))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("failed to read block %d: %w", block, err)
	}
	defer closer.Close()

	if len(value) != 8 {
		return 0, false, fmt.Errorf("corrupt timestamp for block %d: %d bytes", block, len(value))
	}
	return binary.BigEndian.Uint64(value), true, nil
}

// Put stores the timestamp for a block
func (s *TimestampStore) Put(block uint64, timestamp uint64) error {
	if s.closed {
		return ErrStoreClosed
	}

	var value [8]byte
	binary.BigEndian.PutUint64(value[:], timestamp)

	if err := s.db.Set(blockKey(block), value[:], pebble.Sync); err != nil {
		return fmt.Errorf("failed to store block %d: %w", block, err)
	}
	return nil
}

// Close closes the underlying database. Subsequent operations return
// ErrStoreClosed.
func (s *TimestampStore) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close timestamp store: %w", err)
	}
	return nil
}

func blockKey(block uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, block)
	return key
}
