package store

import (
	"fmt"
)

// Errors
var (
	ErrKeyNotFound  = &KVError{"key not found"}
	ErrDuplicateKey = &KVError{"key already exists"}
	ErrInvalidKey   = &KVError{"invalid key: must not be empty"}
)

// KVError represents an expected key-value store outcome, as opposed to a
// storage failure
type KVError struct {
	Message string
}

func (e *KVError) Error() string {
	return e.Message
}

// KeyError ties a KVError to the operation and key that produced it
type KeyError struct {
	Op  string
	Key []byte
	Err *KVError
}

func (e *KeyError) Error() string {
	return fmt.Sprintf("%s %q: %s", e.Op, e.Key, e.Err)
}

func (e *KeyError) Unwrap() error {
	return e.Err
}

func keyError(op string, key []byte, err *KVError) error {
	return &KeyError{Op: op, Key: key, Err: err}
}

// StoreStats holds statistics about the store
type StoreStats struct {
	Keys     int   // Number of live records
	DataSize int64 // Encoded size of all records in bytes
}
