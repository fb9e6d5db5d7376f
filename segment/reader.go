// Copyright (c) HashiCorp, Inc
// SPDX-License-Identifier: MPL-2.0

package segment

import (
	"errors"
	"fmt"
	"io"

	"github.com/dreamsxin/logseg/types"
)

// Read returns the entries with raft indices in [start, start+count), in
// ascending index order. Indices not present in the segment are skipped
// rather than reported, so the result may hold fewer than count entries.
//
// Every payload is validated against the CRC stored in its index record; a
// mismatch returns types.ErrCorrupt and no entries.
func (s *Segment) Read(start uint64, count int) ([]types.LogEntry, error) {
	if s.closed {
		return nil, types.ErrClosed
	}
	if s.mode != ModeRead {
		return nil, types.ErrAppendOnly
	}

	entries := make([]types.LogEntry, 0, count)
	for i := 0; i < count; i++ {
		idx := start + uint64(i)
		e, ok := s.index[idx]
		if !ok {
			continue
		}

		data := make([]byte, e.length)
		if n, err := s.f.ReadAt(data, int64(e.offset)); err != nil {
			if !(errors.Is(err, io.EOF) && n == len(data)) {
				return nil, fmt.Errorf("failed to read entry %d: %w", idx, err)
			}
			// The read completed exactly at end of file.
		}
		if checksum(data) != e.crc {
			s.metrics.checksumFailures.Inc()
			return nil, fmt.Errorf("entry %d at offset %d: %w", idx, e.offset, types.ErrCorrupt)
		}

		entries = append(entries, types.LogEntry{Index: idx, Term: e.term, Data: data})
		s.metrics.entryBytesRead.Add(float64(len(data)))
	}
	s.metrics.entriesRead.Add(float64(len(entries)))
	return entries, nil
}
