// Package tllv implements the Tag/Total-Length/Value-Length/Value framing
// used inside SPC and CKC payloads.
//
// Record layout: 8-byte big-endian tag, 4-byte total length (value bytes
// plus trailing random padding), 4-byte value length, value bytes, then
// padding out to total length. Parsing and duplicate-tag rejection follow
// the dispatch shape of base_parse_tllv.rs: every tag is checked against
// the set already seen before anything is done with its value.
package tllv

import (
	"crypto/rand"
	"fmt"

	"github.com/barnettlynn/fpsckc/internal/bytesutil"
	"github.com/barnettlynn/fpsckc/internal/fpserrors"
)

const headerSize = 16 // 8 (tag) + 4 (total length) + 4 (value length)

// Record is one decoded TLLV entry. Value excludes any trailing padding.
type Record struct {
	Tag   uint64
	Value []byte
}

// ParseAll decodes a flat byte buffer into a sequence of records and
// rejects a buffer containing the same tag twice, matching
// base_parse_tllv.rs's check-before-dispatch behavior.
func ParseAll(buf []byte) ([]Record, error) {
	cur := bytesutil.NewCursor(buf)
	seen := make(map[uint64]struct{})
	var out []Record

	for cur.Remaining() > 0 {
		if cur.Remaining() < headerSize {
			return nil, fpserrors.New(fpserrors.CodeParserErr)
		}
		tag, err := cur.Uint64()
		if err != nil {
			return nil, fpserrors.Wrap(fpserrors.CodeParserErr, err)
		}
		totalLen, err := cur.Uint32()
		if err != nil {
			return nil, fpserrors.Wrap(fpserrors.CodeParserErr, err)
		}
		valueLen, err := cur.Uint32()
		if err != nil {
			return nil, fpserrors.Wrap(fpserrors.CodeParserErr, err)
		}
		if valueLen > totalLen {
			return nil, fpserrors.New(fpserrors.CodeParserErr)
		}
		if _, dup := seen[tag]; dup {
			return nil, fpserrors.New(fpserrors.CodeDupTagErr)
		}
		seen[tag] = struct{}{}

		value, err := cur.Bytes(int(valueLen))
		if err != nil {
			return nil, fpserrors.Wrap(fpserrors.CodeParserErr, err)
		}
		padLen := int(totalLen) - int(valueLen)
		if err := cur.Skip(padLen); err != nil {
			return nil, fpserrors.Wrap(fpserrors.CodeParserErr, err)
		}

		cp := make([]byte, len(value))
		copy(cp, value)
		out = append(out, Record{Tag: tag, Value: cp})
	}
	return out, nil
}

// Find returns the first record with the given tag, if present.
func Find(records []Record, tag uint64) (Record, bool) {
	for _, r := range records {
		if r.Tag == tag {
			return r, true
		}
	}
	return Record{}, false
}

// Build encodes a single record with padLen bytes of random padding
// appended after the value, the way the original SDK pads CKC TLLVs to
// obscure their true length.
func Build(tag uint64, value []byte, padLen int) ([]byte, error) {
	if padLen < 0 {
		return nil, fmt.Errorf("tllv: negative pad length")
	}
	pad := make([]byte, padLen)
	if padLen > 0 {
		if _, err := rand.Read(pad); err != nil {
			return nil, fmt.Errorf("tllv: generate padding: %w", err)
		}
	}
	out := make([]byte, 0, headerSize+len(value)+padLen)
	out = bytesutil.PutUint64(out, tag)
	out = bytesutil.PutUint32(out, uint32(len(value)+padLen))
	out = bytesutil.PutUint32(out, uint32(len(value)))
	out = append(out, value...)
	out = append(out, pad...)
	return out, nil
}

// BuildAligned is Build with padLen chosen so the record's total size is
// a multiple of blockSize.
func BuildAligned(tag uint64, value []byte, blockSize int) ([]byte, error) {
	used := headerSize + len(value)
	rem := used % blockSize
	pad := 0
	if rem != 0 {
		pad = blockSize - rem
	}
	return Build(tag, value, pad)
}
