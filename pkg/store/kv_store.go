// Package store implements the key-value operations on top of a storage
// backend. Every call reads the whole store, checks key existence, and then
// either appends one record or rewrites the full sequence.
package store

import (
	"bytes"
	"slices"

	"github.com/ssargent/kvfile/pkg/codec"
	"github.com/ssargent/kvfile/pkg/storage"
)

// KVStore provides insert, get, update and delete over a storage.Backend.
// It keeps no state between calls and is not safe for concurrent use by
// multiple processes.
type KVStore struct {
	backend storage.Backend
	limits  *codec.RecordCodec
}

// NewKVStore creates a key-value store over backend, bounded only by the
// record format
func NewKVStore(backend storage.Backend) *KVStore {
	return &KVStore{backend: backend, limits: codec.NewRecordCodec()}
}

// Open builds the backend described by opts and wraps it. The size limits of
// opts.Codec apply to the key and value being inserted or updated; records
// already in the store are rewritten as they are.
func Open(opts storage.Options) (*KVStore, error) {
	limits := opts.Codec
	opts.Codec = nil

	backend, err := storage.Open(opts)
	if err != nil {
		return nil, err
	}

	kv := NewKVStore(backend)
	if limits != nil {
		kv.limits = limits
	}
	return kv, nil
}

// Path returns the location of the underlying store
func (kv *KVStore) Path() string {
	return kv.backend.Path()
}

// Insert adds a new key. It fails with ErrDuplicateKey if the key exists.
func (kv *KVStore) Insert(key, value []byte) error {
	if len(key) == 0 {
		return keyError("insert", key, ErrInvalidKey)
	}
	if err := kv.limits.CheckLimits(key, value); err != nil {
		return err
	}

	records, err := kv.backend.ReadAll()
	if err != nil {
		return err
	}
	if indexOf(records, key) >= 0 {
		return keyError("insert", key, ErrDuplicateKey)
	}

	return kv.backend.Append(codec.NewRecord(key, value))
}

// Get returns the value stored under key
func (kv *KVStore) Get(key []byte) ([]byte, error) {
	if len(key) == 0 {
		return nil, keyError("get", key, ErrInvalidKey)
	}

	records, err := kv.backend.ReadAll()
	if err != nil {
		return nil, err
	}

	i := indexOf(records, key)
	if i < 0 {
		return nil, keyError("get", key, ErrKeyNotFound)
	}

	return records[i].Value, nil
}

// Update replaces the value of an existing key and rewrites the store
func (kv *KVStore) Update(key, value []byte) error {
	if len(key) == 0 {
		return keyError("update", key, ErrInvalidKey)
	}
	if err := kv.limits.CheckLimits(key, value); err != nil {
		return err
	}

	records, err := kv.backend.ReadAll()
	if err != nil {
		return err
	}

	i := indexOf(records, key)
	if i < 0 {
		return keyError("update", key, ErrKeyNotFound)
	}
	records[i] = codec.NewRecord(records[i].Key, value)

	return kv.backend.WriteAll(records)
}

// Delete removes a key and rewrites the store
func (kv *KVStore) Delete(key []byte) error {
	if len(key) == 0 {
		return keyError("delete", key, ErrInvalidKey)
	}

	records, err := kv.backend.ReadAll()
	if err != nil {
		return err
	}

	i := indexOf(records, key)
	if i < 0 {
		return keyError("delete", key, ErrKeyNotFound)
	}

	return kv.backend.WriteAll(slices.Delete(records, i, i+1))
}

// Keys returns every key in store order
func (kv *KVStore) Keys() ([][]byte, error) {
	records, err := kv.backend.ReadAll()
	if err != nil {
		return nil, err
	}

	keys := make([][]byte, len(records))
	for i, record := range records {
		keys[i] = record.Key
	}
	return keys, nil
}

// Stats scans the whole store, verifying every checksum on the way
func (kv *KVStore) Stats() (*StoreStats, error) {
	records, err := kv.backend.ReadAll()
	if err != nil {
		return nil, err
	}

	stats := &StoreStats{Keys: len(records)}
	for _, record := range records {
		stats.DataSize += int64(record.Size())
	}
	return stats, nil
}

// indexOf returns the position of the first record with key, or -1
func indexOf(records []*codec.Record, key []byte) int {
	return slices.IndexFunc(records, func(r *codec.Record) bool {
		return bytes.Equal(r.Key, key)
	})
}
