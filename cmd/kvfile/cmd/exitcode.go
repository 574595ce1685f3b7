package cmd

import (
	"errors"

	"github.com/ssargent/kvfile/pkg/codec"
	"github.com/ssargent/kvfile/pkg/storage"
	"github.com/ssargent/kvfile/pkg/store"
)

// Process exit codes
const (
	ExitOK           = 0
	ExitFailure      = 1
	ExitNotFound     = 2
	ExitDuplicateKey = 3
	ExitInvalidInput = 4
	ExitCorrupt      = 5
)

// ExitCode maps an error returned by a command to its exit code
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, storage.ErrCorrupt):
		return ExitCorrupt
	case errors.Is(err, store.ErrKeyNotFound):
		return ExitNotFound
	case errors.Is(err, store.ErrDuplicateKey):
		return ExitDuplicateKey
	case errors.Is(err, store.ErrInvalidKey), errors.Is(err, codec.ErrLengthExceeded):
		return ExitInvalidInput
	default:
		return ExitFailure
	}
}
