// Copyright (c) HashiCorp, Inc
// SPDX-License-Identifier: MPL-2.0

package segment

import (
	"fmt"
	"math"

	"github.com/dreamsxin/logseg/types"
)

// Append stores one entry with the given raft index and term. The payload is
// written at the current data cursor and an index record referencing it fills
// the next free index slot.
//
// Returns types.ErrFull, without touching the file, once every index slot is
// occupied. Any other error is fatal to the segment and the caller must
// discard it.
//
// The caller is expected to supply non-decreasing raft indices; appending a
// lower index is a deliberate rewind and supersedes the entries above it on
// the next recovery. Append never syncs; call Sync before acknowledging
// entries. A single writer owns the segment, so Append takes no locks.
func (s *Segment) Append(index, term uint64, data []byte) error {
	if s.closed {
		return types.ErrClosed
	}
	if s.mode != ModeAppend {
		return types.ErrReadOnly
	}
	if s.Full() {
		return types.ErrFull
	}
	if int64(len(data)) > math.MaxUint32 {
		return fmt.Errorf("%w: %d bytes", types.ErrTooLarge, len(data))
	}
	if s.dataOffset+int64(len(data)) > math.MaxUint32 {
		return fmt.Errorf("%w: data region exceeds addressable range", types.ErrTooLarge)
	}

	e := indexEntry{
		term:   term,
		offset: uint32(s.dataOffset),
		length: uint32(len(data)),
		crc:    checksum(data),
	}
	var rec [indexRecordLen]byte
	writeIndexRecord(rec[:], index, e)

	// Payload first, then the index record that references it. The order is
	// not needed for correctness: recovery drops an index record whose data
	// is missing, and CRC validation catches partially persisted payloads.
	if _, err := s.f.WriteAt(data, s.dataOffset); err != nil {
		return fmt.Errorf("failed to write entry data: %w", err)
	}
	if _, err := s.f.WriteAt(rec[:], s.indexOffset); err != nil {
		return fmt.Errorf("failed to write index record: %w", err)
	}

	s.indexOffset += indexRecordLen
	s.dataOffset += int64(len(data))
	s.numEntries++
	s.lastIndex = index

	s.metrics.appends.Inc()
	s.metrics.entryBytesWritten.Add(float64(len(data)))
	return nil
}
