package badger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/timshannon/badgerhold/v4"

	"github.com/bobmcallan/dart-portal/internal/common"
	"github.com/bobmcallan/dart-portal/internal/interfaces"
)

// KVEntry is one stored value.
type KVEntry struct {
	Key      string `badgerhold:"key"`
	Value    string
	StoredAt time.Time
}

// KVStorage implements interfaces.KeyValueStorage on BadgerDB. Entries
// older than ttl read as missing; ttl <= 0 keeps them forever.
type KVStorage struct {
	db     *BadgerDB
	logger *common.Logger
	ttl    time.Duration
	now    func() time.Time
}

// NewKVStorage creates a key-value store backed by db.
func NewKVStorage(db *BadgerDB, logger *common.Logger, ttl time.Duration) *KVStorage {
	return &KVStorage{
		db:     db,
		logger: logger,
		ttl:    ttl,
		now:    time.Now,
	}
}

// Get retrieves a value by key.
func (s *KVStorage) Get(_ context.Context, key string) (string, error) {
	var entry KVEntry
	if err := s.db.Store().Get(key, &entry); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return "", interfaces.ErrNotFound
		}
		return "", fmt.Errorf("failed to get key %s: %w", key, err)
	}
	if s.ttl > 0 && s.now().Sub(entry.StoredAt) > s.ttl {
		return "", interfaces.ErrNotFound
	}
	return entry.Value, nil
}

// Set stores a key-value pair, replacing any existing value.
func (s *KVStorage) Set(_ context.Context, key, value string) error {
	entry := KVEntry{
		Key:      key,
		Value:    value,
		StoredAt: s.now(),
	}
	if err := s.db.Store().Upsert(key, &entry); err != nil {
		return fmt.Errorf("failed to set key %s: %w", key, err)
	}
	return nil
}

// Delete removes a key. Missing keys are not an error.
func (s *KVStorage) Delete(_ context.Context, key string) error {
	err := s.db.Store().Delete(key, KVEntry{})
	if err != nil && !errors.Is(err, badgerhold.ErrNotFound) {
		return fmt.Errorf("failed to delete key %s: %w", key, err)
	}
	return nil
}

// Purge removes entries stored before the cutoff and returns how many went.
func (s *KVStorage) Purge(_ context.Context, before time.Time) (int, error) {
	query := badgerhold.Where("StoredAt").Lt(before)

	var stale []KVEntry
	if err := s.db.Store().Find(&stale, query); err != nil {
		return 0, fmt.Errorf("failed to find stale entries: %w", err)
	}
	if len(stale) == 0 {
		return 0, nil
	}
	if err := s.db.Store().DeleteMatching(&KVEntry{}, query); err != nil {
		return 0, fmt.Errorf("failed to purge stale entries: %w", err)
	}
	s.logger.Debug().Int("purged", len(stale)).Msg("purged stored explanations")
	return len(stale), nil
}

// Count returns the number of stored entries, expired ones included.
func (s *KVStorage) Count(_ context.Context) (int, error) {
	n, err := s.db.Store().Count(&KVEntry{}, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to count entries: %w", err)
	}
	return int(n), nil
}
