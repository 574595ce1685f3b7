package store

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssargent/kvfile/pkg/codec"
	"github.com/ssargent/kvfile/pkg/storage"
)

// openStore returns a store on a fresh path for the given backend kind
func openStore(t *testing.T, kind storage.Kind) (*KVStore, storage.Options) {
	t.Helper()

	opts := storage.Options{
		Kind: kind,
		Path: filepath.Join(t.TempDir(), "test.db"),
		Sync: true,
	}
	kv, err := Open(opts)
	require.NoError(t, err)
	return kv, opts
}

func forEachKind(t *testing.T, fn func(t *testing.T, kind storage.Kind)) {
	for _, kind := range storage.Kinds {
		t.Run(string(kind), func(t *testing.T) {
			fn(t, kind)
		})
	}
}

func TestKVStore_BasicOperations(t *testing.T) {
	forEachKind(t, func(t *testing.T, kind storage.Kind) {
		kv, _ := openStore(t, kind)

		key := []byte("test_key")
		value := []byte("test_value")

		require.NoError(t, kv.Insert(key, value))

		got, err := kv.Get(key)
		require.NoError(t, err)
		assert.Equal(t, value, got)

		_, err = kv.Get([]byte("non_existent"))
		assert.ErrorIs(t, err, ErrKeyNotFound)

		require.NoError(t, kv.Delete(key))

		_, err = kv.Get(key)
		assert.ErrorIs(t, err, ErrKeyNotFound)
	})
}

func TestKVStore_KeyUniqueness(t *testing.T) {
	forEachKind(t, func(t *testing.T, kind storage.Kind) {
		kv, _ := openStore(t, kind)

		require.NoError(t, kv.Insert([]byte("k"), []byte("v")))

		err := kv.Insert([]byte("k"), []byte("v2"))
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrDuplicateKey)

		got, err := kv.Get([]byte("k"))
		require.NoError(t, err)
		assert.Equal(t, "v", string(got))

		keys, err := kv.Keys()
		require.NoError(t, err)
		assert.Len(t, keys, 1)
	})
}

func TestKVStore_UpdateValue(t *testing.T) {
	forEachKind(t, func(t *testing.T, kind storage.Kind) {
		kv, _ := openStore(t, kind)

		require.NoError(t, kv.Insert([]byte("a"), []byte("1")))
		require.NoError(t, kv.Update([]byte("a"), []byte("2")))

		got, err := kv.Get([]byte("a"))
		require.NoError(t, err)
		assert.Equal(t, "2", string(got))

		err = kv.Update([]byte("missing"), []byte("x"))
		assert.ErrorIs(t, err, ErrKeyNotFound)

		_, err = kv.Get([]byte("missing"))
		assert.ErrorIs(t, err, ErrKeyNotFound, "a failed update must not create the key")
	})
}

func TestKVStore_UpdateToEmptyValue(t *testing.T) {
	forEachKind(t, func(t *testing.T, kind storage.Kind) {
		kv, _ := openStore(t, kind)

		require.NoError(t, kv.Insert([]byte("a"), []byte("1")))
		require.NoError(t, kv.Update([]byte("a"), nil))

		got, err := kv.Get([]byte("a"))
		require.NoError(t, err, "an empty value is still a value")
		assert.Empty(t, got)
	})
}

func TestKVStore_DeleteSemantics(t *testing.T) {
	forEachKind(t, func(t *testing.T, kind storage.Kind) {
		kv, _ := openStore(t, kind)

		require.NoError(t, kv.Insert([]byte("a"), []byte("1")))
		require.NoError(t, kv.Delete([]byte("a")))

		_, err := kv.Get([]byte("a"))
		assert.ErrorIs(t, err, ErrKeyNotFound)

		err = kv.Delete([]byte("a"))
		assert.ErrorIs(t, err, ErrKeyNotFound)

		// A deleted key can be inserted again
		require.NoError(t, kv.Insert([]byte("a"), []byte("again")))
		got, err := kv.Get([]byte("a"))
		require.NoError(t, err)
		assert.Equal(t, "again", string(got))
	})
}

func TestKVStore_DeleteMiddleKeepsOthers(t *testing.T) {
	kv, _ := openStore(t, storage.KindFile)

	for _, k := range []string{"a", "b", "c", "d"} {
		require.NoError(t, kv.Insert([]byte(k), []byte("v"+k)))
	}
	require.NoError(t, kv.Delete([]byte("b")))
	require.NoError(t, kv.Update([]byte("a"), []byte("new")))

	keys, err := kv.Keys()
	require.NoError(t, err)
	assert.Equal(t, [][]byte{[]byte("a"), []byte("c"), []byte("d")}, keys, "file backend keeps append order")

	for k, want := range map[string]string{"a": "new", "c": "vc", "d": "vd"} {
		got, err := kv.Get([]byte(k))
		require.NoError(t, err)
		assert.Equal(t, want, string(got))
	}
}

func TestKVStore_PersistenceAcrossInvocations(t *testing.T) {
	forEachKind(t, func(t *testing.T, kind storage.Kind) {
		kv, opts := openStore(t, kind)
		require.NoError(t, kv.Insert([]byte("persist"), []byte("me")))
		require.NoError(t, kv.Insert([]byte("other"), []byte("value")))
		require.NoError(t, kv.Update([]byte("other"), []byte("changed")))

		next, err := Open(opts)
		require.NoError(t, err)

		got, err := next.Get([]byte("persist"))
		require.NoError(t, err)
		assert.Equal(t, "me", string(got))

		got, err = next.Get([]byte("other"))
		require.NoError(t, err)
		assert.Equal(t, "changed", string(got))
	})
}

func TestKVStore_MissingFile(t *testing.T) {
	forEachKind(t, func(t *testing.T, kind storage.Kind) {
		kv, opts := openStore(t, kind)

		_, err := kv.Get([]byte("anything"))
		assert.ErrorIs(t, err, ErrKeyNotFound)

		assert.ErrorIs(t, kv.Update([]byte("anything"), []byte("x")), ErrKeyNotFound)
		assert.ErrorIs(t, kv.Delete([]byte("anything")), ErrKeyNotFound)

		_, statErr := os.Stat(opts.Path)
		assert.True(t, os.IsNotExist(statErr), "failed operations must not create the store")
	})
}

func TestKVStore_EmptyKey(t *testing.T) {
	kv, _ := openStore(t, storage.KindFile)

	assert.ErrorIs(t, kv.Insert(nil, []byte("v")), ErrInvalidKey)
	assert.ErrorIs(t, kv.Update([]byte{}, []byte("v")), ErrInvalidKey)
	assert.ErrorIs(t, kv.Delete(nil), ErrInvalidKey)
	_, err := kv.Get(nil)
	assert.ErrorIs(t, err, ErrInvalidKey)
}

func TestKVStore_ErrorsNameTheKey(t *testing.T) {
	kv, _ := openStore(t, storage.KindFile)
	require.NoError(t, kv.Insert([]byte("dup"), []byte("v")))

	err := kv.Insert([]byte("dup"), []byte("v"))
	var keyErr *KeyError
	require.True(t, errors.As(err, &keyErr))
	assert.Equal(t, "insert", keyErr.Op)
	assert.Equal(t, []byte("dup"), keyErr.Key)
	assert.Equal(t, `insert "dup": key already exists`, err.Error())

	_, err = kv.Get([]byte("nope"))
	assert.Equal(t, `get "nope": key not found`, err.Error())
}

func TestKVStore_CorruptionPropagates(t *testing.T) {
	kv, opts := openStore(t, storage.KindFile)
	require.NoError(t, kv.Insert([]byte("a"), []byte("apple")))
	require.NoError(t, kv.Insert([]byte("b"), []byte("banana")))

	data, err := os.ReadFile(opts.Path)
	require.NoError(t, err)
	data[len(data)-5] ^= 0x01 // last value byte of "banana"
	require.NoError(t, os.WriteFile(opts.Path, data, 0600))

	check := func(err error) {
		t.Helper()
		require.Error(t, err)
		assert.ErrorIs(t, err, storage.ErrCorrupt)
		assert.ErrorIs(t, err, codec.ErrChecksumMismatch)
		assert.NotErrorIs(t, err, ErrKeyNotFound)

		var corrupt *storage.CorruptError
		require.True(t, errors.As(err, &corrupt))
		assert.Equal(t, int64(codec.Overhead+1+5), corrupt.Offset)
	}

	_, err = kv.Get([]byte("a"))
	check(err)
	check(kv.Insert([]byte("c"), []byte("cherry")))
	check(kv.Update([]byte("a"), []byte("x")))
	check(kv.Delete([]byte("a")))
	_, err = kv.Keys()
	check(err)
	_, err = kv.Stats()
	check(err)

	after, err := os.ReadFile(opts.Path)
	require.NoError(t, err)
	assert.Equal(t, data, after, "operations on a corrupt store must not modify it")
}

func TestKVStore_LengthExceededPropagates(t *testing.T) {
	opts := storage.Options{
		Path:  filepath.Join(t.TempDir(), "test.db"),
		Codec: codec.NewRecordCodecWithLimits(8, 8),
	}
	kv, err := Open(opts)
	require.NoError(t, err)

	assert.ErrorIs(t, kv.Insert([]byte("key"), []byte("a value that is too long")), codec.ErrLengthExceeded)
	assert.ErrorIs(t, kv.Insert([]byte("a key that is too long"), []byte("v")), codec.ErrLengthExceeded)

	require.NoError(t, kv.Insert([]byte("key"), []byte("short")))
	assert.ErrorIs(t, kv.Update([]byte("key"), []byte("a value that is too long")), codec.ErrLengthExceeded)

	got, err := kv.Get([]byte("key"))
	require.NoError(t, err)
	assert.Equal(t, "short", string(got))
}

func TestKVStore_LoweredLimitsKeepExistingRecords(t *testing.T) {
	forEachKind(t, func(t *testing.T, kind storage.Kind) {
		kv, opts := openStore(t, kind)
		require.NoError(t, kv.Insert([]byte("big"), []byte("eleven byte")))
		require.NoError(t, kv.Insert([]byte("s"), []byte("1")))
		require.NoError(t, kv.Insert([]byte("gone"), []byte("x")))

		opts.Codec = codec.NewRecordCodecWithLimits(4, 4)
		limited, err := Open(opts)
		require.NoError(t, err)

		require.NoError(t, limited.Update([]byte("s"), []byte("2")), "rewriting an unrelated large record is allowed")
		require.NoError(t, limited.Delete([]byte("gone")))
		require.NoError(t, limited.Update([]byte("big"), []byte("tiny")))

		assert.ErrorIs(t, limited.Update([]byte("s"), []byte("12345")), codec.ErrLengthExceeded)
		assert.ErrorIs(t, limited.Insert([]byte("new"), []byte("12345")), codec.ErrLengthExceeded)

		keys, err := limited.Keys()
		require.NoError(t, err)
		assert.Len(t, keys, 2)

		got, err := limited.Get([]byte("s"))
		require.NoError(t, err)
		assert.Equal(t, "2", string(got))
	})
}

func TestKVStore_Stats(t *testing.T) {
	kv, _ := openStore(t, storage.KindFile)

	stats, err := kv.Stats()
	require.NoError(t, err)
	assert.Equal(t, &StoreStats{}, stats)

	require.NoError(t, kv.Insert([]byte("k1"), []byte("v1")))
	require.NoError(t, kv.Insert([]byte("k2"), []byte("value2")))

	stats, err = kv.Stats()
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Keys)
	assert.Equal(t, int64(2*codec.Overhead+2+2+2+6), stats.DataSize)
}

// failingBackend returns err from every primitive
type failingBackend struct {
	err     error
	records []*codec.Record
	writes  int
}

func (f *failingBackend) ReadAll() ([]*codec.Record, error) {
	if f.records != nil {
		return f.records, nil
	}
	return nil, f.err
}

func (f *failingBackend) WriteAll([]*codec.Record) error {
	f.writes++
	return f.err
}

func (f *failingBackend) Append(*codec.Record) error {
	f.writes++
	return f.err
}

func (f *failingBackend) Path() string { return "failing" }

func TestKVStore_IOErrorsPropagateUnchanged(t *testing.T) {
	ioErr := &os.PathError{Op: "write", Path: "failing", Err: errors.New("no space left on device")}

	t.Run("read failure", func(t *testing.T) {
		kv := NewKVStore(&failingBackend{err: ioErr})

		_, err := kv.Get([]byte("a"))
		assert.Same(t, ioErr, err)
		assert.Same(t, ioErr, kv.Insert([]byte("a"), []byte("1")))
		assert.Same(t, ioErr, kv.Update([]byte("a"), []byte("1")))
		assert.Same(t, ioErr, kv.Delete([]byte("a")))
	})

	t.Run("write failure", func(t *testing.T) {
		backend := &failingBackend{err: ioErr, records: []*codec.Record{codec.NewRecord([]byte("a"), []byte("1"))}}
		kv := NewKVStore(backend)

		assert.Same(t, ioErr, kv.Insert([]byte("b"), []byte("2")))
		assert.Same(t, ioErr, kv.Update([]byte("a"), []byte("2")))
		assert.Same(t, ioErr, kv.Delete([]byte("a")))
		assert.Equal(t, 3, backend.writes)
	})
}
