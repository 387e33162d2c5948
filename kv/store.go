// ABOUTME: Durable key-value store backed by BadgerDB
// ABOUTME: Persists entity caches and the sync queue as JSON under string keys
package kv

import (
	"encoding/json"
	"fmt"

	"github.com/dgraph-io/badger/v3"
)

// Well-known keys for the application's persisted state.
const (
	KeyHistory   = "history"
	KeyProposals = "proposals"
	KeySyncQueue = "sync_queue"
)

// Store wraps BadgerDB with JSON helpers. Date-typed fields round-trip
// through their RFC3339 string form: encoding happens on Set, and typed
// time.Time fields are revived on Get.
type Store struct {
	db *badger.DB
}

// Open opens (or creates) a store at dir.
func Open(dir string) (*Store, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open kv store: %w", err)
	}
	return &Store{db: db}, nil
}

// OpenInMemory opens a store that lives only for the process lifetime.
// Used by tests and as the degraded fallback when the data dir is unusable.
func OpenInMemory() (*Store, error) {
	opts := badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open in-memory kv store: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Get returns the raw value for key, with found=false when absent.
func (s *Store) Get(key string) ([]byte, bool, error) {
	var value []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if err == badger.ErrKeyNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read key %q: %w", key, err)
	}
	return value, true, nil
}

// Set writes the raw value for key.
func (s *Store) Set(key string, value []byte) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), value)
	})
	if err != nil {
		return fmt.Errorf("failed to write key %q: %w", key, err)
	}
	return nil
}

// Delete removes key if present.
func (s *Store) Delete(key string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
	if err != nil {
		return fmt.Errorf("failed to delete key %q: %w", key, err)
	}
	return nil
}

// GetJSON unmarshals the value at key into v, with found=false when absent.
func (s *Store) GetJSON(key string, v interface{}) (bool, error) {
	raw, found, err := s.Get(key)
	if err != nil || !found {
		return found, err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return true, fmt.Errorf("failed to decode key %q: %w", key, err)
	}
	return true, nil
}

// SetJSON marshals v and writes it at key.
func (s *Store) SetJSON(key string, v interface{}) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode key %q: %w", key, err)
	}
	return s.Set(key, raw)
}
