package storage

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/ssargent/kvfile/pkg/codec"
)

var recordsBucket = []byte("records")

const boltOpenTimeout = time.Second

// Bolt keeps records in a bbolt B+tree file, one encoded record per key.
// Records come back in key order.
type Bolt struct {
	path  string
	codec *codec.RecordCodec
}

// NewBolt creates a bbolt backend for the database file at path
func NewBolt(path string, c *codec.RecordCodec) *Bolt {
	return &Bolt{path: path, codec: c}
}

// Path returns the bbolt file path
func (b *Bolt) Path() string {
	return b.path
}

func (b *Bolt) open(readOnly bool) (*bolt.DB, error) {
	db, err := bolt.Open(b.path, dataFileMode, &bolt.Options{
		Timeout:  boltOpenTimeout,
		ReadOnly: readOnly,
	})
	if err != nil {
		return nil, fmt.Errorf("opening bolt db: %w", err)
	}
	return db, nil
}

// ReadAll scans the records bucket. A missing database file is an empty
// store and is not created.
func (b *Bolt) ReadAll() (records []*codec.Record, err error) {
	if _, err := os.Stat(b.path); errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}

	db, err := b.open(true)
	if err != nil {
		return nil, err
	}
	defer func() { err = errors.Join(err, db.Close()) }()

	err = db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(recordsBucket)
		if bucket == nil {
			return nil
		}

		var position int64
		return bucket.ForEach(func(k, v []byte) error {
			// bbolt memory is only valid inside the transaction
			record, err := b.codec.Decode(bytes.Clone(v))
			if err == nil && !bytes.Equal(record.Key, k) {
				err = fmt.Errorf("record for key %q stored under key %q", record.Key, k)
			}
			if err != nil {
				return &CorruptError{Path: b.path, Offset: position, Err: err}
			}
			records = append(records, record)
			position++
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	return records, nil
}

// WriteAll replaces the bucket contents in a single transaction
func (b *Bolt) WriteAll(records []*codec.Record) (err error) {
	encoded, err := encodeAll(b.codec, records)
	if err != nil {
		return err
	}

	db, err := b.open(false)
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, db.Close()) }()

	return db.Update(func(tx *bolt.Tx) error {
		if tx.Bucket(recordsBucket) != nil {
			if err := tx.DeleteBucket(recordsBucket); err != nil {
				return fmt.Errorf("clearing bucket: %w", err)
			}
		}
		bucket, err := tx.CreateBucket(recordsBucket)
		if err != nil {
			return fmt.Errorf("creating bucket: %w", err)
		}
		for i, record := range records {
			if err := bucket.Put(record.Key, encoded[i]); err != nil {
				return err
			}
		}
		return nil
	})
}

// Append stores one record
func (b *Bolt) Append(record *codec.Record) (err error) {
	data, err := b.codec.EncodeRecord(record)
	if err != nil {
		return err
	}

	db, err := b.open(false)
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, db.Close()) }()

	return db.Update(func(tx *bolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists(recordsBucket)
		if err != nil {
			return fmt.Errorf("creating bucket: %w", err)
		}
		return bucket.Put(record.Key, data)
	})
}

// encodeAll encodes every record up front so that a length error is
// reported before anything is written
func encodeAll(c *codec.RecordCodec, records []*codec.Record) ([][]byte, error) {
	encoded := make([][]byte, len(records))
	for i, record := range records {
		data, err := c.EncodeRecord(record)
		if err != nil {
			return nil, err
		}
		encoded[i] = data
	}
	return encoded, nil
}
