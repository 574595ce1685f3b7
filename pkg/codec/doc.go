// Package codec provides record serialization and deserialization for kvfile.
//
// The codec package implements the binary record format used by every
// storage backend. A store file is nothing more than a concatenation of
// records in this format.
//
// # Record Format
//
//	[KeyLen(4)][Key][ValueLen(4)][Value][CRC32(4)]
//
// Fields:
//   - KeyLen: 32-bit unsigned key length in bytes (big-endian)
//   - Key: KeyLen bytes of key data
//   - ValueLen: 32-bit unsigned value length in bytes (big-endian)
//   - Value: ValueLen bytes of value data
//   - CRC32: IEEE CRC32 of Key followed by Value (big-endian)
//
// The total record size is 12 bytes of framing plus len(key) + len(value).
// The length prefixes are not covered by the checksum; a damaged prefix
// shows up as ErrTruncated or, because the checksum is then read from the
// wrong position, as ErrChecksumMismatch.
//
// # Usage
//
//	c := codec.NewRecordCodec()
//
//	encoded, err := c.Encode([]byte("key"), []byte("value"))
//	if err != nil {
//	    return err
//	}
//
//	record, err := c.Decode(encoded)
//	if err != nil {
//	    return err // truncated or corrupted
//	}
//
// Decode always validates the checksum, so a record it returns is known to
// be intact.
//
// # Thread Safety
//
// RecordCodec holds only immutable limits and is safe for concurrent use.
package codec
