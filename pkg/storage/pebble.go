package storage

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/cockroachdb/pebble"

	"github.com/ssargent/kvfile/pkg/codec"
)

// Pebble keeps records in a pebble LSM directory, one encoded record per key.
// Records come back in key order.
type Pebble struct {
	dir   string
	codec *codec.RecordCodec
	sync  bool
}

// NewPebble creates a pebble backend rooted at dir
func NewPebble(dir string, c *codec.RecordCodec, sync bool) *Pebble {
	return &Pebble{dir: dir, codec: c, sync: sync}
}

// Path returns the pebble directory
func (p *Pebble) Path() string {
	return p.dir
}

func (p *Pebble) writeOptions() *pebble.WriteOptions {
	if p.sync {
		return pebble.Sync
	}
	return pebble.NoSync
}

func (p *Pebble) open() (*pebble.DB, error) {
	db, err := pebble.Open(p.dir, &pebble.Options{Logger: quietLogger{}})
	if err != nil {
		return nil, fmt.Errorf("opening pebble db: %w", err)
	}
	return db, nil
}

// ReadAll iterates every key. A missing directory is an empty store and is
// not created.
func (p *Pebble) ReadAll() (records []*codec.Record, err error) {
	if _, err := os.Stat(p.dir); errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}

	db, err := p.open()
	if err != nil {
		return nil, err
	}
	defer func() { err = errors.Join(err, db.Close()) }()

	iter, err := db.NewIter(nil)
	if err != nil {
		return nil, err
	}
	defer func() { err = errors.Join(err, iter.Close()) }()

	var position int64
	for iter.First(); iter.Valid(); iter.Next() {
		// iterator buffers are reused on Next
		record, err := p.codec.Decode(bytes.Clone(iter.Value()))
		if err == nil && !bytes.Equal(record.Key, iter.Key()) {
			err = fmt.Errorf("record for key %q stored under key %q", record.Key, iter.Key())
		}
		if err != nil {
			return nil, &CorruptError{Path: p.dir, Offset: position, Err: err}
		}
		records = append(records, record)
		position++
	}
	if err := iter.Error(); err != nil {
		return nil, err
	}

	return records, nil
}

// WriteAll deletes every existing key and writes records in one batch
func (p *Pebble) WriteAll(records []*codec.Record) (err error) {
	encoded, err := encodeAll(p.codec, records)
	if err != nil {
		return err
	}

	db, err := p.open()
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, db.Close()) }()

	batch := db.NewBatch()
	defer func() { err = errors.Join(err, batch.Close()) }()

	if err := deleteAllKeys(db, batch); err != nil {
		return err
	}
	for i, record := range records {
		if err := batch.Set(record.Key, encoded[i], nil); err != nil {
			return err
		}
	}

	return batch.Commit(p.writeOptions())
}

// Append stores one record
func (p *Pebble) Append(record *codec.Record) (err error) {
	data, err := p.codec.EncodeRecord(record)
	if err != nil {
		return err
	}

	db, err := p.open()
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, db.Close()) }()

	return db.Set(record.Key, data, p.writeOptions())
}

// quietLogger drops pebble's informational output; failures reach the
// caller as errors
type quietLogger struct{}

func (quietLogger) Infof(string, ...interface{})  {}
func (quietLogger) Errorf(string, ...interface{}) {}

func (quietLogger) Fatalf(format string, args ...interface{}) {
	panic(fmt.Sprintf("pebble: "+format, args...))
}

func deleteAllKeys(db *pebble.DB, batch *pebble.Batch) (err error) {
	iter, err := db.NewIter(nil)
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, iter.Close()) }()

	for iter.First(); iter.Valid(); iter.Next() {
		if err := batch.Delete(iter.Key(), nil); err != nil {
			return err
		}
	}
	return iter.Error()
}
