package storage

import (
	"github.com/ssargent/kvfile/pkg/codec"
)

// RecordScanner walks the records of an in-memory store image in order
type RecordScanner struct {
	data   []byte
	codec  *codec.RecordCodec
	offset int64 // Start of the next record
	record *codec.Record
	err    error
}

// NewRecordScanner creates a scanner over data starting at offset zero
func NewRecordScanner(data []byte, c *codec.RecordCodec) *RecordScanner {
	return &RecordScanner{data: data, codec: c}
}

// Next decodes the next record. It returns false at the end of the data or
// on the first decode failure; check Err to tell them apart.
func (s *RecordScanner) Next() bool {
	if s.err != nil || s.offset >= int64(len(s.data)) {
		return false
	}

	record, err := s.codec.Decode(s.data[s.offset:])
	if err != nil {
		s.err = err
		s.record = nil
		return false
	}

	s.record = record
	s.offset += int64(record.Size())
	return true
}

// Record returns the record decoded by the last successful Next
func (s *RecordScanner) Record() *codec.Record {
	return s.record
}

// Offset is the position of the next record, or of the failing record once
// Err is set
func (s *RecordScanner) Offset() int64 {
	return s.offset
}

// Err returns the decode error that stopped the scan, if any
func (s *RecordScanner) Err() error {
	return s.err
}

// scanAll decodes every record in data, failing on the first bad one
func scanAll(path string, data []byte, c *codec.RecordCodec) ([]*codec.Record, error) {
	var records []*codec.Record

	scanner := NewRecordScanner(data, c)
	for scanner.Next() {
		records = append(records, scanner.Record())
	}
	if err := scanner.Err(); err != nil {
		return nil, &CorruptError{Path: path, Offset: scanner.Offset(), Err: err}
	}

	return records, nil
}
