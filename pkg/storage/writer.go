package storage

import (
	"bufio"
	"errors"
	"os"

	"github.com/ssargent/kvfile/pkg/codec"
)

const writeBufferSize = 64 * 1024

// RecordWriter encodes records into an open file through a buffer
type RecordWriter struct {
	file   *os.File
	writer *bufio.Writer
	codec  *codec.RecordCodec
	fsync  bool
	offset int64 // Current write offset
}

// NewRecordWriter wraps file, whose current write position is offset. The
// writer takes ownership of file and closes it in Close.
func NewRecordWriter(file *os.File, c *codec.RecordCodec, fsync bool, offset int64) *RecordWriter {
	return &RecordWriter{
		file:   file,
		writer: bufio.NewWriterSize(file, writeBufferSize),
		codec:  c,
		fsync:  fsync,
		offset: offset,
	}
}

// Put encodes a record into the buffer and returns the offset it starts at
func (w *RecordWriter) Put(record *codec.Record) (int64, error) {
	data, err := w.codec.EncodeRecord(record)
	if err != nil {
		return 0, err
	}

	n, err := w.writer.Write(data)
	if err != nil {
		return 0, err
	}

	recordOffset := w.offset
	w.offset += int64(n)

	return recordOffset, nil
}

// Sync flushes buffered records and, when enabled, fsyncs the file
func (w *RecordWriter) Sync() error {
	if err := w.writer.Flush(); err != nil {
		return err
	}
	if !w.fsync {
		return nil
	}
	return w.file.Sync()
}

// Close syncs and closes the file. The file is closed even when the sync
// fails; the first error is returned.
func (w *RecordWriter) Close() error {
	syncErr := w.Sync()
	closeErr := w.file.Close()
	return errors.Join(syncErr, closeErr)
}

// Size returns the offset just past the last record written
func (w *RecordWriter) Size() int64 {
	return w.offset
}

// Path returns the file path
func (w *RecordWriter) Path() string {
	return w.file.Name()
}
