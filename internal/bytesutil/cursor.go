// Package bytesutil provides a bounds-checked big-endian byte cursor used
// by the TLLV and SPC parsers.
//
// The style — an offset tracked alongside the buffer, every read checked
// against remaining length before slicing — is carried over from
// pkg/ntag424/settings.go's ParseFileSettings, generalized from its
// little-endian 24-bit reads to the big-endian reads the wire format
// here actually uses.
package bytesutil

import (
	"encoding/binary"
	"errors"
)

// ErrShortBuffer is returned whenever a read would run past the end of
// the underlying buffer.
var ErrShortBuffer = errors.New("bytesutil: short buffer")

// Cursor reads big-endian integers and byte slices from a fixed buffer,
// advancing an internal offset and refusing to read past the end.
type Cursor struct {
	buf []byte
	off int
}

func NewCursor(buf []byte) *Cursor {
	return &Cursor{buf: buf}
}

// Offset returns the current read position.
func (c *Cursor) Offset() int { return c.off }

// Remaining returns the number of unread bytes.
func (c *Cursor) Remaining() int { return len(c.buf) - c.off }

func (c *Cursor) require(n int) error {
	if n < 0 || c.Remaining() < n {
		return ErrShortBuffer
	}
	return nil
}

// Bytes reads and returns the next n bytes without copying.
func (c *Cursor) Bytes(n int) ([]byte, error) {
	if err := c.require(n); err != nil {
		return nil, err
	}
	out := c.buf[c.off : c.off+n]
	c.off += n
	return out, nil
}

func (c *Cursor) Uint8() (byte, error) {
	b, err := c.Bytes(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (c *Cursor) Uint16() (uint16, error) {
	b, err := c.Bytes(2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b), nil
}

func (c *Cursor) Uint32() (uint32, error) {
	b, err := c.Bytes(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

func (c *Cursor) Uint64() (uint64, error) {
	b, err := c.Bytes(8)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(b), nil
}

// Skip advances the cursor by n bytes without returning them (used to
// pass over TLLV random padding).
func (c *Cursor) Skip(n int) error {
	if err := c.require(n); err != nil {
		return err
	}
	c.off += n
	return nil
}

// PutUint64 appends a big-endian uint64 to dst, mirroring the cursor's
// read-side layout for the writer half of the codec.
func PutUint64(dst []byte, v uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	return append(dst, b[:]...)
}

// PutUint32 appends a big-endian uint32 to dst.
func PutUint32(dst []byte, v uint32) []byte {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	return append(dst, b[:]...)
}

// PutUint16 appends a big-endian uint16 to dst.
func PutUint16(dst []byte, v uint16) []byte {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	return append(dst, b[:]...)
}
