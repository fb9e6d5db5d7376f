// Copyright (c) HashiCorp, Inc
// SPDX-License-Identifier: MPL-2.0

// Package segment implements the append-only segment file that backs a
// raft-style replicated log. A segment is a single bounded file holding up
// to a fixed number of entries behind a pre-reserved index table, giving
// constant-time random access by raft index. Higher layers own rollover,
// compaction and cross-segment ordering; a segment only promises what is in
// this one file.
package segment

import (
	"fmt"
	"io"
	"os"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/dreamsxin/logseg/types"
)

// Mode selects how a segment file is opened.
type Mode int

const (
	// ModeAppend opens the file read-write. Recovery sets the write cursors
	// past any existing entries; the in-memory index is not retained.
	ModeAppend Mode = iota

	// ModeRead opens the file read-only and retains the recovered index so
	// Read can resolve raft indices to payload locations.
	ModeRead
)

// Segment is an open handle on one segment file.
//
// The file layout is a 4-byte header (version, capacity), a pre-reserved
// index table of capacity fixed-width records, and a data region of
// concatenated payloads. Unwritten index slots are all-zero.
//
// A segment has no internal locking. At most one writer may hold an
// append-mode handle on a file at a time and the caller serializes its
// operations; any number of independent read-mode handles may coexist.
type Segment struct {
	filename string
	mode     Mode
	maxCount int

	logger  log.Logger
	reg     prometheus.Registerer
	metrics *segmentMetrics

	f *os.File

	// capacity comes from the header on reopen, from maxCount on creation.
	capacity  int
	dataStart int64

	// Write cursors. indexOffset is the file offset of the next free index
	// slot and stays within [headerLen, dataStart]; the segment is full when
	// it reaches dataStart. dataOffset is where the next payload lands.
	indexOffset int64
	dataOffset  int64

	numEntries int
	lastIndex  uint64

	// index maps raft index to payload location. Only populated in ModeRead.
	index map[uint64]indexEntry

	closed bool
}

var (
	_ types.SegmentWriter = (*Segment)(nil)
	_ types.SegmentReader = (*Segment)(nil)
)

// Option configures a segment as it is opened.
type Option func(*Segment)

// WithMode sets the open mode. The default is ModeAppend.
func WithMode(m Mode) Option {
	return func(s *Segment) { s.mode = m }
}

// WithMaxCount sets the entry capacity used when Open creates a new file.
// Ignored when the file already exists since capacity is frozen into the
// header at creation. Must be positive and fit the header's 16-bit field.
func WithMaxCount(n int) Option {
	return func(s *Segment) { s.maxCount = n }
}

// WithLogger sets the logger used for recovery and lifecycle events.
func WithLogger(logger log.Logger) Option {
	return func(s *Segment) { s.logger = logger }
}

// WithMetricsRegisterer registers the segment's operation counters with reg.
// Collectors carry fixed names, so each open segment needs its own
// registerer; leave unset to keep the counters unregistered.
func WithMetricsRegisterer(reg prometheus.Registerer) Option {
	return func(s *Segment) { s.reg = reg }
}

// withMetrics shares an existing metrics struct, used by Filer so all
// segments it opens feed one set of collectors.
func withMetrics(m *segmentMetrics) Option {
	return func(s *Segment) { s.metrics = m }
}

// Open opens the segment file at filename. If the file does not exist and
// the mode is ModeAppend, a new empty segment is created with the configured
// capacity. If it exists, the header is validated and the index table is
// scanned to recover the entry count and write cursors (and, in ModeRead,
// the in-memory index).
func Open(filename string, opts ...Option) (*Segment, error) {
	s := &Segment{
		filename: filename,
		mode:     ModeAppend,
		maxCount: DefaultMaxCount,
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.applyDefaultsAndValidate(); err != nil {
		return nil, err
	}

	var err error
	switch s.mode {
	case ModeRead:
		s.f, err = os.Open(filename)
	default:
		s.f, err = os.OpenFile(filename, os.O_RDWR|os.O_CREATE, 0o644)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open segment file: %w", err)
	}

	if err := s.initialize(); err != nil {
		// Don't leak the handle on any failed open path.
		s.f.Close()
		return nil, err
	}
	return s, nil
}

func (s *Segment) applyDefaultsAndValidate() error {
	if s.logger == nil {
		s.logger = log.NewNopLogger()
	}
	if s.metrics == nil {
		s.metrics = newSegmentMetrics(s.reg)
	}
	if s.maxCount < 1 || s.maxCount > maxMaxCount {
		return fmt.Errorf("max count %d out of range [1, %d]", s.maxCount, maxMaxCount)
	}
	return nil
}

func (s *Segment) initialize() error {
	info, err := s.f.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat segment file: %w", err)
	}

	if info.Size() == 0 && s.mode == ModeAppend {
		return s.create()
	}

	var hdr [headerLen]byte
	if _, err := io.ReadFull(io.NewSectionReader(s.f, 0, headerLen), hdr[:]); err != nil {
		return fmt.Errorf("failed to read segment header: %w", err)
	}
	s.capacity, err = readHeader(hdr[:])
	if err != nil {
		return fmt.Errorf("%s: %w", s.filename, err)
	}
	s.dataStart = headerLen + int64(s.capacity)*indexRecordLen

	return s.recoverIndex(info.Size())
}

// create writes the header of a brand new segment file. The index table is
// not pre-zeroed; the file system zero-fills implicitly as the cursors
// advance past unwritten ranges.
func (s *Segment) create() error {
	s.capacity = s.maxCount
	s.dataStart = headerLen + int64(s.capacity)*indexRecordLen

	var hdr [headerLen]byte
	writeHeader(hdr[:], s.capacity)
	if _, err := s.f.WriteAt(hdr[:], 0); err != nil {
		return fmt.Errorf("failed to write segment header: %w", err)
	}

	s.indexOffset = headerLen
	s.dataOffset = s.dataStart

	level.Debug(s.logger).Log("msg", "created segment", "filename", s.filename,
		"maxCount", s.capacity)
	return nil
}

// recoverIndex rebuilds the in-memory view of an existing file by scanning
// the on-disk index table. The scan stops at the first all-zero slot, and at
// the first record whose payload extends past the end of the file (a torn
// tail: the index slot made it to disk but the data did not). A record with
// a raft index below the previous one marks a rewind by the writer; every
// mapping above the rewind point is discarded.
func (s *Segment) recoverIndex(fileSize int64) error {
	buf := make([]byte, s.capacity*indexRecordLen)
	// A short read leaves the tail of buf zeroed, so truncated slots scan as
	// unwritten. A file holding only the header recovers empty.
	if _, err := s.f.ReadAt(buf, headerLen); err != nil && err != io.EOF {
		return fmt.Errorf("failed to read segment index table: %w", err)
	}

	index := make(map[uint64]indexEntry)
	var (
		count     int
		lastIndex uint64
	)
	nextData := s.dataStart

	for i := 0; i < s.capacity; i++ {
		rec := buf[i*indexRecordLen : (i+1)*indexRecordLen]
		if isZeroRecord(rec) {
			break
		}
		idx, e := readIndexRecord(rec)
		if int64(e.offset)+int64(e.length) > fileSize {
			level.Warn(s.logger).Log("msg", "dropping torn record during recovery",
				"filename", s.filename, "slot", i, "index", idx,
				"offset", e.offset, "length", e.length, "fileSize", fileSize)
			break
		}
		if idx < lastIndex {
			// The writer rewound and re-appended at a lower raft index.
			// Entries above the rewind point are superseded.
			for k := range index {
				if k > idx {
					delete(index, k)
				}
			}
		}
		index[idx] = e
		lastIndex = idx
		nextData = int64(e.offset) + int64(e.length)
		count++
	}

	s.numEntries = count
	s.lastIndex = lastIndex
	s.indexOffset = headerLen + int64(count)*indexRecordLen
	s.dataOffset = nextData
	if s.mode == ModeRead {
		s.index = index
	}
	s.metrics.recoveries.Inc()
	s.metrics.recoveredEntries.Add(float64(count))

	level.Debug(s.logger).Log("msg", "recovered segment", "filename", s.filename,
		"entries", count, "lastIndex", lastIndex, "dataOffset", nextData)
	return nil
}

// Sync forces all buffered writes and file metadata to durable storage. It
// is the only durability primitive a segment offers: Append never syncs.
// Callers must Sync before acknowledging appended entries to anyone.
func (s *Segment) Sync() error {
	if s.closed {
		return types.ErrClosed
	}
	if err := s.f.Sync(); err != nil {
		return fmt.Errorf("failed to sync segment file: %w", err)
	}
	s.metrics.syncs.Inc()
	return nil
}

// Close releases the file handle. The on-disk file persists. The segment
// must not be used afterwards.
func (s *Segment) Close() error {
	if s.closed {
		return types.ErrClosed
	}
	s.closed = true
	s.index = nil
	if err := s.f.Close(); err != nil {
		return fmt.Errorf("failed to close segment file: %w", err)
	}
	return nil
}

// Filename returns the path the segment was opened with.
func (s *Segment) Filename() string {
	return s.filename
}

// MaxCount returns the entry capacity fixed into the file header.
func (s *Segment) MaxCount() int {
	return s.capacity
}

// NumEntries returns the number of occupied index slots.
func (s *Segment) NumEntries() int {
	return s.numEntries
}

// LastIndex returns the raft index of the most recently appended entry, or 0
// if the segment is empty.
func (s *Segment) LastIndex() uint64 {
	return s.lastIndex
}

// Full reports whether every index slot is occupied. The next Append will
// return types.ErrFull.
func (s *Segment) Full() bool {
	return s.indexOffset == s.dataStart
}
