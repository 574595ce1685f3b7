package codec

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"math"
)

const (
	// LengthSize is the width of the key and value length prefixes.
	LengthSize = 4
	// ChecksumSize is the width of the trailing CRC32.
	ChecksumSize = 4
	// Overhead is the number of framing bytes around key and value.
	Overhead = 2*LengthSize + ChecksumSize

	// MaxLength is the largest key or value a length prefix can describe.
	MaxLength = math.MaxUint32
)

// Errors returned by Encode and Decode. They are wrapped with details, so
// compare with errors.Is.
var (
	ErrLengthExceeded   = errors.New("length exceeds record format limit")
	ErrTruncated        = errors.New("record truncated")
	ErrChecksumMismatch = errors.New("checksum mismatch")
)

// Record is a single key-value entry as stored on disk
type Record struct {
	Key      []byte // Key data
	Value    []byte // Value data
	Checksum uint32 // CRC32 (IEEE) of Key followed by Value
}

// NewRecord creates a record with its checksum already computed
func NewRecord(key, value []byte) *Record {
	return &Record{
		Key:      key,
		Value:    value,
		Checksum: Checksum(key, value),
	}
}

// Size returns the total size of the record when encoded
func (r *Record) Size() int {
	return Overhead + len(r.Key) + len(r.Value)
}

// Validate checks the integrity of a record using CRC32
func (r *Record) Validate() error {
	if actual := Checksum(r.Key, r.Value); actual != r.Checksum {
		return fmt.Errorf("%w: stored=0x%08x computed=0x%08x", ErrChecksumMismatch, r.Checksum, actual)
	}
	return nil
}

// Checksum computes the CRC32 of key followed by value. Length prefixes are
// not part of the input.
func Checksum(key, value []byte) uint32 {
	crc := crc32.NewIEEE()
	// hash.Hash never returns an error from Write
	_, _ = crc.Write(key)
	_, _ = crc.Write(value)
	return crc.Sum32()
}

// RecordCodec handles serialization and deserialization of records
type RecordCodec struct {
	maxKeySize   uint64
	maxValueSize uint64
}

// NewRecordCodec creates a codec bounded only by the width of the length prefixes
func NewRecordCodec() *RecordCodec {
	return &RecordCodec{maxKeySize: MaxLength, maxValueSize: MaxLength}
}

// NewRecordCodecWithLimits creates a codec that rejects keys or values larger
// than the given sizes. A zero limit means the format maximum.
func NewRecordCodecWithLimits(maxKeySize, maxValueSize uint32) *RecordCodec {
	c := NewRecordCodec()
	if maxKeySize > 0 {
		c.maxKeySize = uint64(maxKeySize)
	}
	if maxValueSize > 0 {
		c.maxValueSize = uint64(maxValueSize)
	}
	return c
}

// Encode serializes a key-value pair into the binary record format
// Format: [KeyLen(4)][Key][ValueLen(4)][Value][CRC32(4)], big-endian
func (c *RecordCodec) Encode(key, value []byte) ([]byte, error) {
	if err := c.CheckLimits(key, value); err != nil {
		return nil, err
	}

	buf := make([]byte, Overhead+len(key)+len(value))
	pos := 0

	binary.BigEndian.PutUint32(buf[pos:], uint32(len(key)))
	pos += LengthSize
	pos += copy(buf[pos:], key)

	binary.BigEndian.PutUint32(buf[pos:], uint32(len(value)))
	pos += LengthSize
	pos += copy(buf[pos:], value)

	binary.BigEndian.PutUint32(buf[pos:], Checksum(key, value))

	return buf, nil
}

// CheckLimits reports ErrLengthExceeded if key or value is larger than the
// codec accepts
func (c *RecordCodec) CheckLimits(key, value []byte) error {
	if uint64(len(key)) > c.maxKeySize {
		return fmt.Errorf("%w: key is %d bytes, limit %d", ErrLengthExceeded, len(key), c.maxKeySize)
	}
	if uint64(len(value)) > c.maxValueSize {
		return fmt.Errorf("%w: value is %d bytes, limit %d", ErrLengthExceeded, len(value), c.maxValueSize)
	}
	return nil
}

// EncodeRecord serializes r. The stored checksum is recomputed from the
// record contents rather than trusted.
func (c *RecordCodec) EncodeRecord(r *Record) ([]byte, error) {
	return c.Encode(r.Key, r.Value)
}

// Decode deserializes the record at the start of data. Bytes following the
// record are ignored; use Size on the result to find where the next one
// begins. Key and Value alias data.
func (c *RecordCodec) Decode(data []byte) (*Record, error) {
	pos := uint64(0)
	avail := uint64(len(data))

	if avail < LengthSize {
		return nil, fmt.Errorf("%w: need %d bytes for key length, have %d", ErrTruncated, LengthSize, avail)
	}
	keyLen := uint64(binary.BigEndian.Uint32(data[pos:]))
	pos += LengthSize

	if avail < pos+keyLen+LengthSize {
		return nil, fmt.Errorf("%w: key of %d bytes does not fit in %d bytes", ErrTruncated, keyLen, avail)
	}
	key := data[pos : pos+keyLen]
	pos += keyLen

	valueLen := uint64(binary.BigEndian.Uint32(data[pos:]))
	pos += LengthSize

	if avail < pos+valueLen+ChecksumSize {
		return nil, fmt.Errorf("%w: value of %d bytes does not fit in %d bytes", ErrTruncated, valueLen, avail)
	}
	value := data[pos : pos+valueLen]
	pos += valueLen

	r := &Record{
		Key:      key,
		Value:    value,
		Checksum: binary.BigEndian.Uint32(data[pos:]),
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}

	return r, nil
}
