// Copyright (c) HashiCorp, Inc
// SPDX-License-Identifier: MPL-2.0

package segment

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"

	"github.com/dreamsxin/logseg/types"
)

const (
	// segmentVersion is the only on-disk format version this code reads or
	// writes.
	segmentVersion = 1

	// headerLen is the fixed file header: version:u16 || capacity:u16, both
	// big-endian.
	headerLen = 4

	// indexRecordLen is the fixed width of one index table slot:
	// index:u64 || term:u64 || offset:u32 || length:u32 || crc:u32.
	indexRecordLen = 28

	// DefaultMaxCount is the entry capacity used when creating a segment
	// without an explicit WithMaxCount option.
	DefaultMaxCount = 4096

	// maxMaxCount is bounded by the u16 capacity field in the header.
	maxMaxCount = 1<<16 - 1
)

// All multi-byte integers are big-endian on disk so files are portable
// across implementations.
var enc = binary.BigEndian

// indexEntry is the decoded form of one index table slot. offset/length
// locate the payload inside the data region and crc is CRC32 (IEEE) over the
// payload bytes only.
type indexEntry struct {
	term   uint64
	offset uint32
	length uint32
	crc    uint32
}

func writeHeader(buf []byte, capacity int) {
	enc.PutUint16(buf[0:2], segmentVersion)
	enc.PutUint16(buf[2:4], uint16(capacity))
}

func readHeader(buf []byte) (capacity int, err error) {
	if v := enc.Uint16(buf[0:2]); v != segmentVersion {
		return 0, fmt.Errorf("%w: got %d want %d", types.ErrInvalidVersion, v, segmentVersion)
	}
	return int(enc.Uint16(buf[2:4])), nil
}

func writeIndexRecord(buf []byte, index uint64, e indexEntry) {
	enc.PutUint64(buf[0:8], index)
	enc.PutUint64(buf[8:16], e.term)
	enc.PutUint32(buf[16:20], e.offset)
	enc.PutUint32(buf[20:24], e.length)
	enc.PutUint32(buf[24:28], e.crc)
}

func readIndexRecord(buf []byte) (index uint64, e indexEntry) {
	index = enc.Uint64(buf[0:8])
	e.term = enc.Uint64(buf[8:16])
	e.offset = enc.Uint32(buf[16:20])
	e.length = enc.Uint32(buf[20:24])
	e.crc = enc.Uint32(buf[24:28])
	return index, e
}

// isZeroRecord reports whether an index slot is the all-zero sentinel
// marking the end of written records. A real record always has a data offset
// of at least headerLen + capacity*indexRecordLen, so a zero offset cannot
// occur in one.
func isZeroRecord(buf []byte) bool {
	for _, b := range buf[:indexRecordLen] {
		if b != 0 {
			return false
		}
	}
	return true
}

func checksum(data []byte) uint32 {
	return crc32.ChecksumIEEE(data)
}
