package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"

	"github.com/segmentio/ksuid"

	"github.com/ssargent/kvfile/pkg/codec"
)

const dataFileMode fs.FileMode = 0600

// File stores records back to back in a single file
type File struct {
	path  string
	codec *codec.RecordCodec
	sync  bool
}

// NewFile creates a file backend. Nothing is touched on disk until the
// first write.
func NewFile(path string, c *codec.RecordCodec, sync bool) *File {
	return &File{path: path, codec: c, sync: sync}
}

// Path returns the data file path
func (f *File) Path() string {
	return f.path
}

// ReadAll loads the whole file and decodes it record by record
func (f *File) ReadAll() ([]*codec.Record, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	return scanAll(f.path, data, f.codec)
}

// WriteAll writes records to a temporary file next to the data file and
// renames it into place, so a failed write leaves the old contents intact.
func (f *File) WriteAll(records []*codec.Record) (err error) {
	dir := filepath.Dir(f.path)
	tmpPath := filepath.Join(dir, fmt.Sprintf(".%s.%s.tmp", filepath.Base(f.path), ksuid.New().String()))

	mode := dataFileMode
	if info, statErr := os.Stat(f.path); statErr == nil {
		mode = info.Mode().Perm()
	}

	file, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, mode)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmpPath)
		}
	}()

	w := NewRecordWriter(file, f.codec, f.sync, 0)
	for _, record := range records {
		if _, err = w.Put(record); err != nil {
			return errors.Join(err, file.Close())
		}
	}
	if err = w.Close(); err != nil {
		return err
	}

	if err = os.Rename(tmpPath, f.path); err != nil {
		return err
	}

	if f.sync {
		return syncDir(dir)
	}
	return nil
}

// Append writes one record at the end of the file, creating it if needed.
// If the write fails the file is restored to its previous length.
func (f *File) Append(record *codec.Record) (err error) {
	_, statErr := os.Stat(f.path)
	existed := statErr == nil

	file, err := os.OpenFile(f.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, dataFileMode)
	if err != nil {
		return err
	}

	info, err := file.Stat()
	if err != nil {
		return errors.Join(err, file.Close())
	}
	size := info.Size()

	defer func() {
		if err == nil {
			return
		}
		if !existed {
			err = errors.Join(err, os.Remove(f.path))
			return
		}
		err = errors.Join(err, os.Truncate(f.path, size))
	}()

	w := NewRecordWriter(file, f.codec, f.sync, size)
	if _, err = w.Put(record); err != nil {
		return errors.Join(err, file.Close())
	}

	return w.Close()
}

// syncDir makes a rename in dir durable. Directories cannot be fsynced on
// Windows.
func syncDir(dir string) error {
	if runtime.GOOS == "windows" {
		return nil
	}

	d, err := os.Open(dir)
	if err != nil {
		return err
	}
	return errors.Join(d.Sync(), d.Close())
}
